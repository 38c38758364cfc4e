// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package fileconv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
)

// State is a stage of the conversion pipeline.
type State int

const (
	StateIdle State = iota
	StateDetecting
	StateDispatching
	StateConverting
	StateCompleted
	StateFailed
)

var stateNames = [...]string{"idle", "detecting", "dispatching", "converting", "completed", "failed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// run carries one conversion through the pipeline.
type run struct {
	engine    *Engine
	id        string
	src       Source
	target    string
	outDir    string
	logger    zerolog.Logger
	state     State
	mediaType MediaType
}

func (r *run) transition(s State) {
	r.logger.Debug().Str("event", "pipeline.transition").Stringer("from", r.state).Stringer("to", s).Msg("state change")
	r.state = s
	if r.engine.stateHook != nil {
		r.engine.stateHook(r.id, s)
	}
}

// fail moves the run to StateFailed and fills in the error context.
func (r *run) fail(e *Error) error {
	if e.Source == "" {
		e.Source = r.src.Name()
	}
	if e.MediaType == Unknown {
		e.MediaType = r.mediaType
	}
	if e.Format == "" {
		e.Format = r.target
	}
	r.transition(StateFailed)
	r.logger.Warn().Err(e).Str("event", "conversion.failed").Str("kind", string(e.Kind)).Msg("conversion failed")
	return e
}

func (r *run) canceled(op string, err error) error {
	return r.fail(&Error{Kind: KindCanceled, Op: op, Err: err})
}

func (r *run) execute(ctx context.Context) (*Artifact, error) {
	r.transition(StateDetecting)
	if err := ctx.Err(); err != nil {
		return nil, r.canceled("detect", err)
	}
	r.mediaType = r.engine.detector.Detect(r.src)
	if r.mediaType == Unknown {
		return nil, r.fail(&Error{Kind: KindUnknownFormat, Op: "detect", Err: errors.New("content could not be classified")})
	}
	r.logger.Debug().Str("event", "pipeline.detected").Str("media_type", string(r.mediaType)).Msg("media type detected")

	r.transition(StateDispatching)
	if err := ctx.Err(); err != nil {
		return nil, r.canceled("dispatch", err)
	}
	binding, err := r.engine.dispatcher.Resolve(r.mediaType, r.target)
	if err != nil {
		var e *Error
		errors.As(err, &e)
		return nil, r.fail(e)
	}

	r.transition(StateConverting)
	art, err := r.convert(ctx, binding)
	if err != nil {
		return nil, err
	}

	r.transition(StateCompleted)
	r.logger.Info().
		Str("event", "conversion.completed").
		Str("converter", binding.Name).
		Str("path", art.Path).
		Int64("bytes", art.Size).
		Msg("conversion completed")
	return art, nil
}

// convert runs the Converting stage. Output goes to a pending temp file in
// outDir that only replaces the final path after the converter succeeded;
// every other exit removes it.
func (r *run) convert(ctx context.Context, b Binding) (*Artifact, error) {
	if r.engine.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.engine.timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return nil, r.canceled("convert", err)
	}

	outPath := OutputPath(r.src.Name(), r.outDir, r.target)
	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return nil, r.fail(&Error{Kind: ioKind(err), Op: "convert", Err: fmt.Errorf("create output directory: %w", err)})
	}
	if err := r.checkOutputPath(outPath); err != nil {
		return nil, err
	}

	rc, err := r.src.Open()
	if err != nil {
		return nil, r.fail(&Error{Kind: ioKind(err), Op: "convert", Err: fmt.Errorf("open input: %w", err)})
	}
	defer rc.Close()

	pending, err := renameio.NewPendingFile(outPath, renameio.WithPermissions(0o644))
	if err != nil {
		return nil, r.fail(&Error{Kind: ioKind(err), Op: "convert", Err: fmt.Errorf("create pending output: %w", err)})
	}
	defer func() {
		// No-op once committed.
		if err := pending.Cleanup(); err != nil {
			r.logger.Debug().Err(err).Msg("cleanup pending output")
		}
	}()

	in := &checkpointReader{ctx: ctx, r: rc}
	out := &checkpointWriter{ctx: ctx, w: pending}
	info := newStreamInfo(r.src.Name(), r.mediaType, r.target)

	convErr := safeConvert(ctx, b, in, info, out)

	switch {
	case ctx.Err() != nil:
		return nil, r.canceled("convert", ctx.Err())
	case convErr == nil:
	case isContextErr(convErr):
		return nil, r.canceled("convert", convErr)
	case out.err != nil:
		return nil, r.fail(&Error{Kind: ioKind(out.err), Op: "convert", Err: fmt.Errorf("write output: %w", out.err)})
	case in.err != nil:
		return nil, r.fail(&Error{Kind: ioKind(in.err), Op: "convert", Err: fmt.Errorf("read input: %w", in.err)})
	default:
		var e *Error
		if errors.As(convErr, &e) {
			return nil, r.fail(&Error{Kind: e.Kind, Op: "convert", Err: e.Err})
		}
		return nil, r.fail(&Error{Kind: KindConverterFailure, Op: "convert", Err: fmt.Errorf("%s: %w", b.Name, convErr)})
	}

	if err := r.commit(pending, outPath); err != nil {
		return nil, err
	}

	return &Artifact{
		Path:      outPath,
		MediaType: FormatMediaType(r.target),
		Format:    r.target,
		Size:      out.n,
	}, nil
}

// safeConvert runs the converter and reports a panic as an error.
func safeConvert(ctx context.Context, b Binding, in io.Reader, info StreamInfo, out io.Writer) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return b.Converter.Convert(ctx, in, info, out)
}

// commit publishes the pending file at outPath. Without overwrite the file
// is hard-linked into place, which fails if outPath appeared since the
// pre-conversion check, so concurrent runs never replace each other.
func (r *run) commit(pending *renameio.PendingFile, outPath string) error {
	if r.engine.overwrite {
		if err := pending.CloseAtomicallyReplace(); err != nil {
			return r.fail(&Error{Kind: ioKind(err), Op: "convert", Err: fmt.Errorf("commit output: %w", err)})
		}
		return nil
	}
	if err := pending.Sync(); err != nil {
		return r.fail(&Error{Kind: ioKind(err), Op: "convert", Err: fmt.Errorf("sync output: %w", err)})
	}
	// The deferred Cleanup closes and removes the temporary name.
	if err := os.Link(pending.Name(), outPath); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return r.fail(&Error{Kind: KindIOFailure, Op: "convert", Err: fmt.Errorf("%s: %w", outPath, ErrOutputExists)})
		}
		return r.fail(&Error{Kind: ioKind(err), Op: "convert", Err: fmt.Errorf("commit output: %w", err)})
	}
	return nil
}

// checkOutputPath refuses to write over the input, and over any existing
// file unless overwriting is enabled.
func (r *run) checkOutputPath(outPath string) error {
	existing, err := os.Stat(outPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return r.fail(&Error{Kind: ioKind(err), Op: "convert", Err: fmt.Errorf("stat output: %w", err)})
	}
	if inPath, ok := localPath(r.src); ok {
		if input, err := os.Stat(inPath); err == nil && os.SameFile(input, existing) {
			return r.fail(&Error{Kind: KindIOFailure, Op: "convert", Err: fmt.Errorf("%s: %w", outPath, ErrSameFile)})
		}
	}
	if !r.engine.overwrite {
		return r.fail(&Error{Kind: KindIOFailure, Op: "convert", Err: fmt.Errorf("%s: %w", outPath, ErrOutputExists)})
	}
	return nil
}

// OutputPath returns <outDir>/<input basename without extension>.<format>.
func OutputPath(sourceName, outDir, format string) string {
	base := filepath.Base(sourceName)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "output"
	}
	return filepath.Join(outDir, base+"."+NormalizeFormat(format))
}

// checkpointReader stops reading once ctx is done and records the first
// non-EOF read error.
type checkpointReader struct {
	ctx context.Context
	r   io.Reader
	err error
}

func (c *checkpointReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := c.r.Read(p)
	if err != nil && err != io.EOF && c.err == nil {
		c.err = err
	}
	return n, err
}

// checkpointWriter stops writing once ctx is done, counts bytes and records
// the first write error.
type checkpointWriter struct {
	ctx context.Context
	w   io.Writer
	n   int64
	err error
}

func (c *checkpointWriter) Write(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	if err != nil && c.err == nil {
		c.err = err
	}
	return n, err
}

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

// Package fileconv is a file-format conversion engine. It detects the media
// type of an input, resolves a converter for the requested output format
// from a registry of advertised conversions, and writes the converted
// artifact atomically into an output directory.
package fileconv

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	xlog "github.com/nicholasgasior/fileconv/internal/log"
	"github.com/nicholasgasior/fileconv/internal/metrics"
)

// Engine is the conversion engine. It is immutable after New and safe for
// concurrent use by multiple goroutines.
type Engine struct {
	registry   *Registry
	detector   *Detector
	dispatcher *Dispatcher

	custom     []Binding
	noBuiltins bool

	timeout     time.Duration
	overwrite   bool
	jpegQuality int
	maxPixels   int
	logger      zerolog.Logger
	stateHook   func(id string, s State)
}

// Request is one conversion to perform.
type Request struct {
	Source Source
	Target string
	OutDir string
}

// Result is the outcome of one Request: exactly one of Artifact and Err is set.
type Result struct {
	Request  Request
	Artifact *Artifact
	Err      error
}

// Artifact is a converted file. Ownership passes to the caller, who is
// responsible for removing it when no longer needed.
type Artifact struct {
	Path      string
	MediaType MediaType
	Format    string
	Size      int64
}

// Remove deletes the artifact from disk.
func (a *Artifact) Remove() error {
	if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove artifact: %w", err)
	}
	return nil
}

// New creates an Engine with the given options.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		jpegQuality: DefaultJPEGQuality,
		maxPixels:   DefaultMaxPixels,
		logger:      xlog.WithComponent("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = DefaultRegistry()
	}
	if e.detector == nil {
		e.detector = NewDetector()
	}
	if e.jpegQuality < 1 || e.jpegQuality > 100 {
		return nil, fmt.Errorf("jpeg quality %d out of range 1-100", e.jpegQuality)
	}
	if e.maxPixels <= 0 {
		return nil, fmt.Errorf("max pixels must be positive, got %d", e.maxPixels)
	}

	bindings := append([]Binding(nil), e.custom...)
	if !e.noBuiltins {
		bindings = append(bindings, e.builtins()...)
	}
	d, err := NewDispatcher(e.registry, bindings...)
	if err != nil {
		return nil, err
	}
	e.dispatcher = d
	return e, nil
}

// Registry returns the engine's format registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Detect classifies src.
func (e *Engine) Detect(src Source) MediaType {
	return e.detector.Detect(src)
}

// OutputsFor returns the formats advertised for mt. It never fails.
func (e *Engine) OutputsFor(mt MediaType) []string {
	return e.registry.OutputsFor(mt)
}

// ListOutputFormats detects src and returns the formats advertised for it.
// An empty slice means no conversion is available; it is not an error.
func (e *Engine) ListOutputFormats(src Source) []string {
	return e.registry.OutputsFor(e.detector.Detect(src))
}

// Convert runs the detect, dispatch and convert stages for src and writes
// the result into outDir as <basename>.<format>. The input is never
// modified. On failure the error is an *Error and no file is left at the
// output path.
func (e *Engine) Convert(ctx context.Context, src Source, target, outDir string) (*Artifact, error) {
	id := uuid.NewString()
	ctx = xlog.ContextWithConversionID(ctx, id)
	target = NormalizeFormat(target)

	logger := xlog.WithContext(ctx, e.logger).With().Str("source", src.Name()).Str("target", target).Logger()
	ctx = logger.WithContext(ctx)

	r := &run{
		engine: e,
		id:     id,
		src:    src,
		target: target,
		outDir: outDir,
		logger: logger,
	}

	metrics.Inflight.Inc()
	defer metrics.Inflight.Dec()
	start := time.Now()

	art, err := r.execute(ctx)

	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = string(KindOf(err))
	}
	metrics.Conversions.WithLabelValues(metrics.SourceLabel(r.mediaType.Essence()), target, outcome).Inc()
	metrics.ConversionDuration.WithLabelValues(target).Observe(time.Since(start).Seconds())
	if art != nil {
		metrics.OutputBytes.WithLabelValues(target).Add(float64(art.Size))
	}
	return art, err
}

// ConvertAll converts independent requests concurrently, at most workers at
// a time (unbounded when workers <= 0). Results are in request order; one
// failure does not stop the others.
func (e *Engine) ConvertAll(ctx context.Context, reqs []Request, workers int) []Result {
	results := make([]Result, len(reqs))

	var g errgroup.Group
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, req := range reqs {
		g.Go(func() error {
			art, err := e.Convert(ctx, req.Source, req.Target, req.OutDir)
			results[i] = Result{Request: req, Artifact: art, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// builtins returns the built-in converter bindings in match order.
func (e *Engine) builtins() []Binding {
	img := func(format string) Converter {
		return NewImageConverter(format, e.jpegQuality, e.maxPixels)
	}
	return []Binding{
		{"text-pdf", "text/plain", FormatPDF, NewTextPDFConverter(false)},
		{"text-html", "text/plain", FormatHTML, NewTextHTMLConverter()},
		{"markdown-html", "text/markdown", FormatHTML, NewMarkdownHTMLConverter()},
		{"markdown-pdf", "text/markdown", FormatPDF, NewTextPDFConverter(true)},
		{"html-md", "text/html", FormatMD, NewHTMLConverter(FormatMD)},
		{"html-txt", "text/html", FormatTXT, NewHTMLConverter(FormatTXT)},
		{"csv-xlsx", "text/csv", FormatXLSX, NewCSVConverter(FormatXLSX)},
		{"csv-json", "text/csv", FormatJSON, NewCSVConverter(FormatJSON)},
		{"csv-md", "text/csv", FormatMD, NewCSVConverter(FormatMD)},
		{"xlsx-csv", mimeXLSX, FormatCSV, NewXlsxConverter(FormatCSV)},
		{"xlsx-md", mimeXLSX, FormatMD, NewXlsxConverter(FormatMD)},
		{"xls-csv", mimeXLS, FormatCSV, NewXlsConverter(FormatCSV)},
		{"xls-md", mimeXLS, FormatMD, NewXlsConverter(FormatMD)},
		{"docx-txt", mimeDOCX, FormatTXT, NewOOXMLTextConverter()},
		{"pptx-txt", mimePPTX, FormatTXT, NewOOXMLTextConverter()},
		{"pdf-txt", "application/pdf", FormatTXT, NewPDFTextConverter()},
		{"rss-md", "application/rss+xml", FormatMD, NewFeedConverter(FormatMD)},
		{"rss-json", "application/rss+xml", FormatJSON, NewFeedConverter(FormatJSON)},
		{"atom-md", "application/atom+xml", FormatMD, NewFeedConverter(FormatMD)},
		{"atom-json", "application/atom+xml", FormatJSON, NewFeedConverter(FormatJSON)},
		{"ipynb-md", mimeIpynb, FormatMD, NewNotebookConverter(FormatMD)},
		{"ipynb-py", mimeIpynb, FormatPY, NewNotebookConverter(FormatPY)},
		{"image-png", "image/", FormatPNG, img(FormatPNG)},
		{"image-jpg", "image/", FormatJPG, img(FormatJPG)},
		{"image-gif", "image/", FormatGIF, img(FormatGIF)},
		{"image-bmp", "image/", FormatBMP, img(FormatBMP)},
		{"image-tiff", "image/", FormatTIFF, img(FormatTIFF)},
	}
}

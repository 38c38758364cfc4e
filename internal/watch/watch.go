// Package watch implements a hot folder: files created or rewritten in an
// input directory are converted into an output directory once they have
// been quiet for a debounce interval.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/nicholasgasior/fileconv"
	xlog "github.com/nicholasgasior/fileconv/internal/log"
)

// Converter is the part of fileconv.Engine the watcher needs.
type Converter interface {
	Convert(ctx context.Context, src fileconv.Source, target, outDir string) (*fileconv.Artifact, error)
}

// Config configures a Watcher.
type Config struct {
	In       string
	Out      string
	Target   string
	Debounce time.Duration
	Workers  int  // concurrent conversions, 0 means 1
	Scan     bool // convert files already present at start
}

// Watcher converts files dropped into Config.In.
type Watcher struct {
	conv     Converter
	cfg      Config
	logger   zerolog.Logger
	onResult func(fileconv.Result)
	running  atomic.Bool
}

// New validates cfg and returns a Watcher. onResult, if non-nil, receives
// every conversion result; it is called from worker goroutines.
func New(conv Converter, cfg Config, onResult func(fileconv.Result)) (*Watcher, error) {
	if cfg.In == "" || cfg.Out == "" {
		return nil, errors.New("watch: input and output directories are required")
	}
	if cfg.Target == "" {
		return nil, errors.New("watch: target format is required")
	}
	in, err := filepath.Abs(cfg.In)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	out, err := filepath.Abs(cfg.Out)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if in == out {
		return nil, errors.New("watch: input and output directories must differ")
	}
	cfg.In, cfg.Out = in, out
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Watcher{
		conv:     conv,
		cfg:      cfg,
		logger:   xlog.WithComponent("watch"),
		onResult: onResult,
	}, nil
}

// Healthy returns nil while Run is active.
func (w *Watcher) Healthy() error {
	if !w.running.Load() {
		return errors.New("watcher not running")
	}
	return nil
}

type fired struct {
	path string
	gen  uint64
}

type pending struct {
	timer *time.Timer
	gen   uint64
}

// Run watches until ctx is canceled, then waits for running conversions.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.cfg.In); err != nil {
		return fmt.Errorf("watch %s: %w", w.cfg.In, err)
	}

	w.running.Store(true)
	defer w.running.Store(false)

	w.logger.Info().
		Str("event", "watch.started").
		Str("in", w.cfg.In).
		Str("out", w.cfg.Out).
		Str("target", w.cfg.Target).
		Msg("watching input directory")

	timers := make(map[string]*pending)
	ready := make(chan fired)
	var gen uint64

	schedule := func(path string) {
		if p, ok := timers[path]; ok {
			p.timer.Stop()
		}
		gen++
		f := fired{path: path, gen: gen}
		timers[path] = &pending{
			gen: gen,
			timer: time.AfterFunc(w.cfg.Debounce, func() {
				select {
				case ready <- f:
				case <-ctx.Done():
				}
			}),
		}
	}

	if w.cfg.Scan {
		entries, err := os.ReadDir(w.cfg.In)
		if err != nil {
			return fmt.Errorf("scan %s: %w", w.cfg.In, err)
		}
		for _, e := range entries {
			if e.Type().IsRegular() && !ignored(e.Name()) {
				schedule(filepath.Join(w.cfg.In, e.Name()))
			}
		}
	}

	// Fired paths wait in queue until a worker takes them, so the loop keeps
	// draining fsnotify while every worker is busy.
	var queue pathQueue
	work := make(chan string)
	var g errgroup.Group
	for i := 0; i < w.cfg.Workers; i++ {
		g.Go(func() error {
			for path := range work {
				w.convert(ctx, path)
			}
			return nil
		})
	}
	drain := func() {
		close(work)
		_ = g.Wait()
	}

	for {
		var send chan<- string
		next, ok := queue.peek()
		if ok {
			send = work
		}

		select {
		case <-ctx.Done():
			for _, p := range timers {
				p.timer.Stop()
			}
			drain()
			w.logger.Info().Str("event", "watch.stopped").Int("dropped", queue.len()).Msg("watcher stopped")
			return nil

		case send <- next:
			queue.pop()

		case event, ok := <-fw.Events:
			if !ok {
				drain()
				return errors.New("watcher event channel closed")
			}
			if ignored(filepath.Base(event.Name)) {
				continue
			}
			switch {
			case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
				w.logger.Debug().Str("event", "watch.file_changed").Str("op", event.Op.String()).Str("path", event.Name).Msg("file changed")
				schedule(event.Name)
			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				if p, ok := timers[event.Name]; ok {
					p.timer.Stop()
					delete(timers, event.Name)
				}
				queue.remove(event.Name)
			}

		case f := <-ready:
			p, ok := timers[f.path]
			if !ok || p.gen != f.gen {
				continue
			}
			delete(timers, f.path)
			if info, err := os.Stat(f.path); err != nil || !info.Mode().IsRegular() {
				continue
			}
			if !queue.push(f.path) {
				w.logger.Debug().Str("event", "watch.already_queued").Str("path", f.path).Msg("file already queued")
			}

		case err, ok := <-fw.Errors:
			if !ok {
				drain()
				return errors.New("watcher error channel closed")
			}
			w.logger.Error().Err(err).Str("event", "watch.error").Msg("watcher error")
		}
	}
}

func (w *Watcher) convert(ctx context.Context, path string) {
	req := fileconv.Request{Source: fileconv.FileSource(path), Target: w.cfg.Target, OutDir: w.cfg.Out}
	art, err := w.conv.Convert(ctx, req.Source, req.Target, req.OutDir)
	if err != nil {
		ev := w.logger.Warn()
		if fileconv.IsUnsupportedConversion(err) {
			ev = w.logger.Info()
		}
		ev.Err(err).Str("event", "watch.convert_failed").Str("path", path).Msg("conversion failed")
	}
	if w.onResult != nil {
		w.onResult(fileconv.Result{Request: req, Artifact: art, Err: err})
	}
}

// pathQueue is a FIFO of paths holding each path at most once.
type pathQueue struct {
	paths  []string
	queued map[string]bool
}

// push appends path and reports false if it was already queued.
func (q *pathQueue) push(path string) bool {
	if q.queued[path] {
		return false
	}
	if q.queued == nil {
		q.queued = make(map[string]bool)
	}
	q.queued[path] = true
	q.paths = append(q.paths, path)
	return true
}

func (q *pathQueue) peek() (string, bool) {
	if len(q.paths) == 0 {
		return "", false
	}
	return q.paths[0], true
}

func (q *pathQueue) pop() string {
	path := q.paths[0]
	q.paths = q.paths[1:]
	delete(q.queued, path)
	return path
}

func (q *pathQueue) remove(path string) {
	if !q.queued[path] {
		return
	}
	delete(q.queued, path)
	for i, p := range q.paths {
		if p == path {
			q.paths = append(q.paths[:i], q.paths[i+1:]...)
			return
		}
	}
}

func (q *pathQueue) len() int { return len(q.paths) }

// ignored filters hidden, temporary and editor swap files.
func ignored(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") ||
		strings.HasSuffix(name, ".swp") || strings.HasSuffix(name, ".tmp")
}

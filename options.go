package fileconv

import (
	"time"

	"github.com/rs/zerolog"
)

// Option configures an Engine.
type Option func(*Engine)

// WithRegistry replaces the built-in format registry.
func WithRegistry(r *Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithDetector replaces the built-in detector.
func WithDetector(d *Detector) Option {
	return func(e *Engine) {
		e.detector = d
	}
}

// WithConverter registers a converter for (pattern, format). Converters
// added this way are matched before the built-ins, in the order given.
func WithConverter(name string, pattern MediaType, format string, c Converter) Option {
	return func(e *Engine) {
		e.custom = append(e.custom, Binding{Name: name, Pattern: pattern, Format: format, Converter: c})
	}
}

// WithoutBuiltins disables the built-in converters. Only converters added
// with WithConverter are dispatched to.
func WithoutBuiltins() Option {
	return func(e *Engine) {
		e.noBuiltins = true
	}
}

// WithTimeout bounds the Converting stage of each conversion (default: none).
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// WithOverwrite allows replacing an existing file at the output path
// (default: false, which fails the conversion with ErrOutputExists).
func WithOverwrite(overwrite bool) Option {
	return func(e *Engine) {
		e.overwrite = overwrite
	}
}

// WithLogger sets the logger used for pipeline events.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithStateHook installs a callback invoked synchronously on every pipeline
// state transition. The hook must be safe for concurrent use.
func WithStateHook(hook func(id string, s State)) Option {
	return func(e *Engine) {
		e.stateHook = hook
	}
}

// WithJPEGQuality sets the quality used by the built-in JPEG encoder (1-100).
func WithJPEGQuality(q int) Option {
	return func(e *Engine) {
		e.jpegQuality = q
	}
}

// WithMaxPixels bounds width*height of images the built-in image converter
// will decode (default: DefaultMaxPixels).
func WithMaxPixels(n int) Option {
	return func(e *Engine) {
		e.maxPixels = n
	}
}

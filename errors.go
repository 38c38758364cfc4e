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
	"io/fs"
	"strings"
)

// Kind classifies a failed conversion.
type Kind string

const (
	// KindUnknownFormat means the detector could not classify the input.
	KindUnknownFormat Kind = "unknown_format"
	// KindUnsupportedConversion means no declared or implemented path leads
	// from the detected type to the requested format.
	KindUnsupportedConversion Kind = "unsupported_conversion"
	// KindConverterFailure means the converter rejected malformed or unreadable input.
	KindConverterFailure Kind = "converter_failure"
	// KindIOFailure means the input could not be read or the output could not be written.
	KindIOFailure Kind = "io_failure"
	// KindPermissionDenied means the environment denied filesystem access.
	KindPermissionDenied Kind = "permission_denied"
	// KindCanceled means the caller canceled the conversion or its timeout expired.
	KindCanceled Kind = "canceled"
)

var (
	// ErrNoContent is returned by Source.Open for name-only sources.
	ErrNoContent = errors.New("source has no readable content")
	// ErrOutputExists is wrapped when the output path is taken and overwriting is disabled.
	ErrOutputExists = errors.New("output file already exists")
	// ErrSameFile is wrapped when the output path resolves to the input file.
	ErrSameFile = errors.New("output path is the input file")
)

// Error is the failure value of every Engine conversion.
type Error struct {
	Kind      Kind
	Op        string // pipeline stage: detect, dispatch or convert
	Source    string
	MediaType MediaType
	Format    string
	Err       error
}

func (e *Error) Error() string {
	parts := []string{"fileconv"}
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	if e.Source != "" {
		parts = append(parts, fmt.Sprintf("source=%q", e.Source))
	}
	if e.MediaType != Unknown {
		parts = append(parts, fmt.Sprintf("mime=%q", string(e.MediaType)))
	}
	if e.Format != "" {
		parts = append(parts, fmt.Sprintf("format=%q", e.Format))
	}
	msg := strings.Join(parts, " ") + ": " + strings.ReplaceAll(string(e.Kind), "_", " ")
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind carried by err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return ""
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsUnsupportedConversion reports whether err means "no conversion path".
func IsUnsupportedConversion(err error) bool {
	return IsKind(err, KindUnsupportedConversion)
}

// Malformed marks err as a rejection of the converter's input. Converters
// may return it explicitly; any other converter error that is not an I/O or
// cancellation failure is classified the same way.
func Malformed(err error) error {
	return &Error{Kind: KindConverterFailure, Err: err}
}

// ioKind classifies a filesystem error as permission or generic I/O failure.
func ioKind(err error) Kind {
	if errors.Is(err, fs.ErrPermission) {
		return KindPermissionDenied
	}
	return KindIOFailure
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

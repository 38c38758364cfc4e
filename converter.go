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
	"io"
	"path/filepath"
	"strings"
)

// StreamInfo holds metadata about the input being converted.
type StreamInfo struct {
	MediaType MediaType
	Filename  string
	Extension string
	Charset   string
	Target    string
}

func newStreamInfo(name string, mt MediaType, target string) StreamInfo {
	return StreamInfo{
		MediaType: mt,
		Filename:  filepath.Base(name),
		Extension: strings.ToLower(filepath.Ext(name)),
		Charset:   mt.Charset(),
		Target:    target,
	}
}

// Converter is the interface all format converters implement. A converter
// reads the whole input from in and writes a complete artifact in its target
// format to out. It must not keep state between calls: concurrent calls on
// the same value are expected.
type Converter interface {
	Convert(ctx context.Context, in io.Reader, info StreamInfo, out io.Writer) error
}

// ConverterFunc adapts a function to the Converter interface.
type ConverterFunc func(ctx context.Context, in io.Reader, info StreamInfo, out io.Writer) error

// Convert calls f.
func (f ConverterFunc) Convert(ctx context.Context, in io.Reader, info StreamInfo, out io.Writer) error {
	return f(ctx, in, info, out)
}

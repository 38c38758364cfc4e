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
	"fmt"
	"io"
	"slices"

	"gopkg.in/yaml.v3"
)

// FormatCapability declares the output formats offered for one MediaType key.
type FormatCapability struct {
	MediaType MediaType `yaml:"media_type" mapstructure:"media_type"`
	Outputs   []string  `yaml:"outputs" mapstructure:"outputs"`
}

// Registry is the read-only table of advertised conversions. Keys are
// matched against a detected MediaType by literal prefix; the first matching
// key in registration order wins.
type Registry struct {
	entries []FormatCapability
}

// NewRegistry validates caps and returns a Registry holding a private copy.
// Output formats are normalized; a format listed twice for the same key, an
// empty key, or a key registered twice is an error.
func NewRegistry(caps ...FormatCapability) (*Registry, error) {
	r := &Registry{entries: make([]FormatCapability, 0, len(caps))}
	seenKeys := make(map[MediaType]bool, len(caps))

	for _, c := range caps {
		if c.MediaType == Unknown {
			return nil, fmt.Errorf("registry: empty media type key")
		}
		if seenKeys[c.MediaType] {
			return nil, fmt.Errorf("registry: media type %q registered twice", string(c.MediaType))
		}
		seenKeys[c.MediaType] = true

		outputs := make([]string, 0, len(c.Outputs))
		for _, o := range c.Outputs {
			f := NormalizeFormat(o)
			if f == "" {
				return nil, fmt.Errorf("registry: empty output format for %q", string(c.MediaType))
			}
			if slices.Contains(outputs, f) {
				return nil, fmt.Errorf("registry: output %q listed twice for %q", f, string(c.MediaType))
			}
			outputs = append(outputs, f)
		}
		r.entries = append(r.entries, FormatCapability{MediaType: c.MediaType, Outputs: outputs})
	}

	return r, nil
}

// LoadRegistry reads a YAML sequence of {media_type, outputs} entries. A
// sequence rather than a mapping is used so registration order survives.
func LoadRegistry(r io.Reader) (*Registry, error) {
	var caps []FormatCapability
	if err := yaml.NewDecoder(r).Decode(&caps); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	return NewRegistry(caps...)
}

// Lookup returns the first entry whose key is a prefix of mt.
func (r *Registry) Lookup(mt MediaType) (FormatCapability, bool) {
	if r == nil || mt == Unknown {
		return FormatCapability{}, false
	}
	for _, e := range r.entries {
		if mt.HasPrefix(e.MediaType) {
			return e, true
		}
	}
	return FormatCapability{}, false
}

// OutputsFor returns the ordered output formats offered for mt. It never
// fails: an Unknown or unregistered type yields an empty slice.
func (r *Registry) OutputsFor(mt MediaType) []string {
	e, ok := r.Lookup(mt)
	if !ok {
		return []string{}
	}
	return slices.Clone(e.Outputs)
}

// Supports reports whether format is advertised for mt.
func (r *Registry) Supports(mt MediaType, format string) bool {
	e, ok := r.Lookup(mt)
	return ok && slices.Contains(e.Outputs, NormalizeFormat(format))
}

// Capabilities returns a copy of all entries in registration order.
func (r *Registry) Capabilities() []FormatCapability {
	out := make([]FormatCapability, len(r.entries))
	for i, e := range r.entries {
		out[i] = FormatCapability{MediaType: e.MediaType, Outputs: slices.Clone(e.Outputs)}
	}
	return out
}

// defaultCapabilities is the built-in advertisement table.
var defaultCapabilities = []FormatCapability{
	{MediaType: "text/plain", Outputs: []string{FormatPDF, FormatHTML}},
	{MediaType: "text/markdown", Outputs: []string{FormatHTML, FormatPDF}},
	{MediaType: "text/html", Outputs: []string{FormatMD, FormatTXT}},
	{MediaType: "text/csv", Outputs: []string{FormatXLSX, FormatJSON, FormatMD}},
	{MediaType: mimeXLSX, Outputs: []string{FormatCSV, FormatMD}},
	{MediaType: mimeXLS, Outputs: []string{FormatCSV, FormatMD}},
	{MediaType: mimeDOCX, Outputs: []string{FormatTXT}},
	{MediaType: mimePPTX, Outputs: []string{FormatTXT}},
	{MediaType: "application/pdf", Outputs: []string{FormatTXT}},
	{MediaType: "application/rss+xml", Outputs: []string{FormatMD, FormatJSON}},
	{MediaType: "application/atom+xml", Outputs: []string{FormatMD, FormatJSON}},
	{MediaType: mimeIpynb, Outputs: []string{FormatMD, FormatPY}},
	{MediaType: "image/jpeg", Outputs: []string{FormatPNG, FormatGIF, FormatBMP, FormatTIFF, FormatWEBP}},
	{MediaType: "image/png", Outputs: []string{FormatJPG, FormatGIF, FormatBMP, FormatTIFF, FormatWEBP}},
	{MediaType: "image/gif", Outputs: []string{FormatPNG, FormatJPG}},
	{MediaType: "image/bmp", Outputs: []string{FormatPNG, FormatJPG}},
	{MediaType: "image/tiff", Outputs: []string{FormatPNG, FormatJPG}},
	{MediaType: "image/webp", Outputs: []string{FormatPNG, FormatJPG}},
}

// DefaultRegistry returns the built-in registry.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(defaultCapabilities...)
	if err != nil {
		panic(err)
	}
	return r
}

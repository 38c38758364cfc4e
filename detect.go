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
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	mimeDOCX  MediaType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimePPTX  MediaType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	mimeXLSX  MediaType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeXLS   MediaType = "application/vnd.ms-excel"
	mimeIpynb MediaType = "application/x-ipynb+json"

	mimeOctetStream = "application/octet-stream"
)

// extensionTypes is the name-based detection table. Its values are the same
// vocabulary the content sniffer produces.
var extensionTypes = map[string]MediaType{
	".txt":      "text/plain",
	".text":     "text/plain",
	".log":      "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".html":     "text/html",
	".htm":      "text/html",
	".csv":      "text/csv",
	".json":     "application/json",
	".xml":      "text/xml",
	".rss":      "application/rss+xml",
	".atom":     "application/atom+xml",
	".ipynb":    mimeIpynb,
	".pdf":      "application/pdf",
	".docx":     mimeDOCX,
	".pptx":     mimePPTX,
	".xlsx":     mimeXLSX,
	".xls":      mimeXLS,
	".zip":      "application/zip",
	".epub":     "application/epub+zip",
	".png":      "image/png",
	".jpg":      "image/jpeg",
	".jpeg":     "image/jpeg",
	".gif":      "image/gif",
	".bmp":      "image/bmp",
	".tif":      "image/tiff",
	".tiff":     "image/tiff",
	".webp":     "image/webp",
}

// refinements lists, per sniffed essence, the more specific types the file
// extension may select. Sniffing cannot tell markdown from plain text or a
// notebook from arbitrary JSON; the extension can.
var refinements = map[string][]MediaType{
	"text/plain":                {"text/markdown", "text/csv", "text/html", "application/json", mimeIpynb},
	"application/json":          {mimeIpynb},
	"text/xml":                  {"application/rss+xml", "application/atom+xml"},
	"application/xml":           {"application/rss+xml", "application/atom+xml"},
	"application/zip":           {mimeDOCX, mimePPTX, mimeXLSX, "application/epub+zip"},
	"application/x-ole-storage": {mimeXLS},
}

// Detector classifies content into a MediaType. It holds no mutable state
// and is safe for concurrent use.
type Detector struct {
	extensions  map[string]MediaType
	refinements map[string][]MediaType
}

// NewDetector returns a Detector using the built-in tables.
func NewDetector() *Detector {
	return &Detector{extensions: extensionTypes, refinements: refinements}
}

// Detect classifies src from its content when it can be opened, and from
// its name otherwise. It returns Unknown rather than an error.
func (d *Detector) Detect(src Source) MediaType {
	rc, err := src.Open()
	if err != nil {
		return d.DetectName(src.Name())
	}
	defer rc.Close()
	return d.DetectReader(rc, src.Name())
}

// DetectReader sniffs the head of r. The name, when given, refines generic
// results and covers content the sniffer reports as octet-stream.
func (d *Detector) DetectReader(r io.Reader, name string) MediaType {
	byName := d.DetectName(name)

	mtype, err := mimetype.DetectReader(r)
	if err != nil || mtype.Is(mimeOctetStream) {
		return byName
	}
	sniffed := MediaType(mtype.String())

	if byName != Unknown && byName.Essence() != sniffed.Essence() {
		for _, candidate := range d.refinements[sniffed.Essence()] {
			if candidate == byName {
				return byName.withParamsOf(sniffed)
			}
		}
	}
	return sniffed
}

// DetectName derives a MediaType from the filename extension alone.
func (d *Detector) DetectName(name string) MediaType {
	if name == "" {
		return Unknown
	}
	return d.extensions[strings.ToLower(filepath.Ext(name))]
}

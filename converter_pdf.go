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
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFTextConverter extracts the text layer of a PDF, one block per page.
type PDFTextConverter struct{}

// NewPDFTextConverter creates a new PDFTextConverter.
func NewPDFTextConverter() *PDFTextConverter {
	return &PDFTextConverter{}
}

func (c *PDFTextConverter) Convert(ctx context.Context, in io.Reader, _ StreamInfo, out io.Writer) (err error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	// ledongthuc/pdf panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = Malformed(fmt.Errorf("parse PDF: %v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Malformed(fmt.Errorf("open PDF: %w", err))
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text := strings.TrimSpace(extractPageText(page))
		if text == "" {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	return writeText(out, b.String())
}

type pdfTextElement struct {
	x    float64
	y    float64
	text string
	size float64
}

type pdfLine struct {
	y        float64
	elements []pdfTextElement
}

// extractPageText extracts text from a single page using GetTextByRow,
// falling back to position-based grouping of Content().Text.
func extractPageText(page pdf.Page) string {
	if rows, err := page.GetTextByRow(); err == nil && len(rows) > 0 {
		var result strings.Builder
		for _, row := range rows {
			var line strings.Builder
			gap := false
			for _, word := range row.Content {
				if word.S == "" {
					gap = true
					continue
				}
				// An empty string between words marks a word boundary.
				if gap && line.Len() > 0 && !strings.HasSuffix(line.String(), " ") {
					line.WriteString(" ")
				}
				line.WriteString(word.S)
				gap = false
			}
			if text := strings.TrimSpace(line.String()); text != "" {
				result.WriteString(text)
				result.WriteString("\n")
			}
		}
		if strings.TrimSpace(result.String()) != "" {
			return result.String()
		}
	}

	var elements []pdfTextElement
	for _, t := range page.Content().Text {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		elements = append(elements, pdfTextElement{x: t.X, y: t.Y, text: t.S, size: t.FontSize})
	}
	if len(elements) == 0 {
		return ""
	}

	yTolerance := 3.0
	if elements[0].size > 0 {
		yTolerance = elements[0].size * 0.3
	}

	var lines []pdfLine
	for _, elem := range elements {
		found := false
		for i := range lines {
			if math.Abs(lines[i].y-elem.y) < yTolerance {
				lines[i].elements = append(lines[i].elements, elem)
				found = true
				break
			}
		}
		if !found {
			lines = append(lines, pdfLine{y: elem.y, elements: []pdfTextElement{elem}})
		}
	}

	// PDF y grows upwards.
	sort.Slice(lines, func(i, j int) bool { return lines[i].y > lines[j].y })

	var result strings.Builder
	for _, ln := range lines {
		sort.Slice(ln.elements, func(i, j int) bool { return ln.elements[i].x < ln.elements[j].x })

		var line strings.Builder
		var lastEnd float64
		for i, elem := range ln.elements {
			if i > 0 {
				threshold := math.Max(elem.size*0.2, 1.0)
				if elem.x-lastEnd > threshold {
					line.WriteString(" ")
				}
			}
			line.WriteString(elem.text)
			lastEnd = elem.x + float64(len([]rune(elem.text)))*elem.size*0.55
		}
		if text := line.String(); strings.TrimSpace(text) != "" {
			result.WriteString(text)
			result.WriteString("\n")
		}
	}
	return result.String()
}

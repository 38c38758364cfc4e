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
	"html"
	"io"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/sfnt"
)

// pdfEpoch is stamped as creation and modification date so identical input
// yields byte-identical PDFs.
var pdfEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

const (
	pdfFont       = "gomono"
	pdfBodySize   = 10.0
	pdfLineHeight = 4.5
	pdfCheckEvery = 256
	tabWidth      = 4
)

var (
	pdfGlyphsOnce sync.Once
	pdfGlyphs     *sfnt.Font
	pdfGlyphsErr  error
)

// checkGlyphs fails for the first rune the embedded font cannot draw.
func checkGlyphs(line string, lineNo int) error {
	pdfGlyphsOnce.Do(func() {
		pdfGlyphs, pdfGlyphsErr = sfnt.Parse(gomono.TTF)
	})
	if pdfGlyphsErr != nil {
		return fmt.Errorf("parse PDF font: %w", pdfGlyphsErr)
	}
	var buf sfnt.Buffer
	for _, r := range line {
		idx, err := pdfGlyphs.GlyphIndex(&buf, r)
		if err != nil {
			return fmt.Errorf("look up glyph: %w", err)
		}
		if idx == 0 {
			return Malformed(fmt.Errorf("line %d: character %q (%U) has no glyph in the PDF font", lineNo, r, r))
		}
	}
	return nil
}

// replaceControls turns control characters into spaces.
func replaceControls(line string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, line)
}

// TextPDFConverter renders text as an A4 PDF in the embedded Go Mono font,
// which covers Latin, Greek and Cyrillic. Text needing other scripts fails
// as malformed rather than losing characters. In markdown mode ATX headings
// are set in Go Mono Bold.
type TextPDFConverter struct {
	markdown bool
}

// NewTextPDFConverter creates a new TextPDFConverter.
func NewTextPDFConverter(markdown bool) *TextPDFConverter {
	return &TextPDFConverter{markdown: markdown}
}

func (c *TextPDFConverter) Convert(ctx context.Context, in io.Reader, info StreamInfo, out io.Writer) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	text := reCRLF.ReplaceAllString(decodeText(data, info.Charset), "\n")

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(pdfEpoch)
	pdf.SetModificationDate(pdfEpoch)
	pdf.SetCatalogSort(true)
	pdf.SetProducer("fileconv", false)
	pdf.SetTitle(strings.TrimSuffix(info.Filename, info.Extension), true)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddUTF8FontFromBytes(pdfFont, "", gomono.TTF)
	pdf.AddUTF8FontFromBytes(pdfFont, "B", gomonobold.TTF)
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("load PDF font: %w", err)
	}
	pdf.AddPage()

	for i, line := range strings.Split(text, "\n") {
		if i%pdfCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		line = replaceControls(expandTabs(line))
		if err := checkGlyphs(line, i+1); err != nil {
			return err
		}

		if c.markdown {
			if level, heading, ok := atxHeading(line); ok {
				pdf.SetFont(pdfFont, "B", 18-2*float64(level))
				pdf.MultiCell(0, 8, heading, "", "L", false)
				continue
			}
		}

		pdf.SetFont(pdfFont, "", pdfBodySize)
		if strings.TrimSpace(line) == "" {
			pdf.Ln(pdfLineHeight)
			continue
		}
		pdf.MultiCell(0, pdfLineHeight, line, "", "L", false)
	}

	if err := pdf.Output(out); err != nil {
		return fmt.Errorf("render PDF: %w", err)
	}
	return nil
}

// atxHeading parses "# Title" style headings, levels 1 to 6.
func atxHeading(line string) (int, string, bool) {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 {
		return 0, "", false
	}
	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	if level == 0 || level > 6 {
		return 0, "", false
	}
	rest := trimmed[level:]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return 0, "", false
	}
	return level, strings.TrimSpace(strings.TrimRight(strings.TrimSpace(rest), "#")), true
}

func expandTabs(line string) string {
	if !strings.Contains(line, "\t") {
		return line
	}
	var b strings.Builder
	col := 0
	for _, r := range line {
		if r == '\t' {
			n := tabWidth - col%tabWidth
			b.WriteString(strings.Repeat(" ", n))
			col += n
			continue
		}
		b.WriteRune(r)
		col++
	}
	return b.String()
}

// TextHTMLConverter wraps plain text in a minimal HTML document.
type TextHTMLConverter struct{}

// NewTextHTMLConverter creates a new TextHTMLConverter.
func NewTextHTMLConverter() *TextHTMLConverter {
	return &TextHTMLConverter{}
}

func (c *TextHTMLConverter) Convert(_ context.Context, in io.Reader, info StreamInfo, out io.Writer) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	text := reCRLF.ReplaceAllString(decodeText(data, info.Charset), "\n")

	var b bytes.Buffer
	writeHTMLHead(&b, strings.TrimSuffix(info.Filename, info.Extension))
	b.WriteString("<pre>")
	b.WriteString(html.EscapeString(text))
	b.WriteString("</pre>\n</body>\n</html>\n")

	_, err = out.Write(b.Bytes())
	return err
}

// MarkdownHTMLConverter renders GitHub-flavored markdown to HTML.
type MarkdownHTMLConverter struct {
	md goldmark.Markdown
}

// NewMarkdownHTMLConverter creates a new MarkdownHTMLConverter.
func NewMarkdownHTMLConverter() *MarkdownHTMLConverter {
	return &MarkdownHTMLConverter{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

func (c *MarkdownHTMLConverter) Convert(_ context.Context, in io.Reader, info StreamInfo, out io.Writer) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	source := []byte(decodeText(data, info.Charset))

	title := strings.TrimSuffix(info.Filename, info.Extension)
	for _, line := range strings.Split(string(source), "\n") {
		if level, heading, ok := atxHeading(line); ok && level == 1 {
			title = heading
			break
		}
	}

	var b bytes.Buffer
	writeHTMLHead(&b, title)
	if err := c.md.Convert(source, &b); err != nil {
		return Malformed(fmt.Errorf("render markdown: %w", err))
	}
	b.WriteString("</body>\n</html>\n")

	_, err = out.Write(b.Bytes())
	return err
}

func writeHTMLHead(b *bytes.Buffer, title string) {
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(b, "<title>%s</title>\n", html.EscapeString(title))
	b.WriteString("</head>\n<body>\n")
}

// writeText normalizes s and writes it to out.
func writeText(out io.Writer, s string) error {
	_, err := io.WriteString(out, normalizeText(s))
	return err
}

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
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"golang.org/x/net/html"
)

// HTMLConverter turns HTML into markdown or plain text.
type HTMLConverter struct {
	format string
}

// NewHTMLConverter creates a new HTMLConverter producing format (md or txt).
func NewHTMLConverter(format string) *HTMLConverter {
	return &HTMLConverter{format: format}
}

func (c *HTMLConverter) Convert(_ context.Context, in io.Reader, info StreamInfo, out io.Writer) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	htmlStr := removeScriptAndStyle(decodeText(data, info.Charset))

	switch c.format {
	case FormatMD:
		md, err := convertHTMLToMarkdown(htmlStr)
		if err != nil {
			return Malformed(fmt.Errorf("convert HTML to markdown: %w", err))
		}
		if title := extractHTMLTitle(htmlStr); title != "" && !strings.HasPrefix(strings.TrimSpace(md), "# ") {
			md = "# " + title + "\n\n" + md
		}
		return writeText(out, truncateDataURIs(md))
	case FormatTXT:
		doc, err := html.Parse(strings.NewReader(htmlStr))
		if err != nil {
			return Malformed(fmt.Errorf("parse HTML: %w", err))
		}
		return writeText(out, htmlText(doc))
	}
	return fmt.Errorf("html: unsupported target %q", c.format)
}

// convertHTMLToMarkdown converts HTML to markdown using html-to-markdown.
func convertHTMLToMarkdown(htmlStr string) (string, error) {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(
				commonmark.WithHeadingStyle("atx"),
			),
			table.NewTablePlugin(),
		),
	)
	return conv.ConvertString(htmlStr)
}

var (
	reScript  = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	reStyle   = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style>`)
	reDataURI = regexp.MustCompile(`(data:[a-zA-Z0-9/+.-]+;base64,)[A-Za-z0-9+/=]{64,}`)
)

func removeScriptAndStyle(htmlStr string) string {
	htmlStr = reScript.ReplaceAllString(htmlStr, "")
	return reStyle.ReplaceAllString(htmlStr, "")
}

// truncateDataURIs shortens inline base64 payloads to data:mime/type;base64...
func truncateDataURIs(md string) string {
	return reDataURI.ReplaceAllString(md, "${1}...")
}

// extractHTMLTitle extracts the <title> of an HTML document.
func extractHTMLTitle(htmlStr string) string {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return ""
	}

	var title string
	var find func(*html.Node) bool
	find = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil {
				title = n.FirstChild.Data
			}
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if find(c) {
				return true
			}
		}
		return false
	}
	find(doc)

	return strings.TrimSpace(title)
}

// blockElements end a line of text output.
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "pre": true, "blockquote": true,
	"section": true, "article": true, "header": true, "footer": true, "table": true,
}

// htmlText collects the visible text of the document body, one line per
// block element.
func htmlText(doc *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if s := strings.Join(strings.Fields(n.Data), " "); s != "" {
				if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
					b.WriteByte(' ')
				}
				b.WriteString(s)
			}
			return
		case html.ElementNode:
			if n.Data == "head" || n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			b.WriteByte('\n')
		}
	}
	walk(doc)
	return b.String()
}

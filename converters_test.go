package fileconv

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	xunicode "golang.org/x/text/encoding/unicode"
)

// convertBytes runs a full engine conversion of an in-memory input and
// returns the artifact bytes.
func convertBytes(t *testing.T, e *Engine, name string, data []byte, target string) []byte {
	t.Helper()
	art, err := e.Convert(context.Background(), BytesSource(name, data), target, t.TempDir())
	require.NoError(t, err)
	out, err := os.ReadFile(art.Path)
	require.NoError(t, err)
	return out
}

func TestTextToHTML(t *testing.T) {
	out := convertBytes(t, newTestEngine(t), "cmp.txt", []byte("a < b\r\nc & d\n"), "html")
	s := string(out)
	assert.Contains(t, s, "<title>cmp</title>")
	assert.Contains(t, s, "<pre>a &lt; b\nc &amp; d\n</pre>")
}

func TestTextDecodesLegacyCharset(t *testing.T) {
	latin1 := []byte("caf\xe9\n")
	var buf bytes.Buffer
	err := NewTextHTMLConverter().Convert(context.Background(), bytes.NewReader(latin1),
		StreamInfo{Charset: "iso-8859-1", Filename: "menu.txt", Extension: ".txt"}, &buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "café")
}

func TestMarkdownToHTML(t *testing.T) {
	md := "# Release Notes\n\nSome *emphasis* here.\n\n| a | b |\n|---|---|\n| 1 | 2 |\n"
	s := string(convertBytes(t, newTestEngine(t), "notes.md", []byte(md), "html"))

	assert.Contains(t, s, "<title>Release Notes</title>")
	assert.Contains(t, s, "<h1>Release Notes</h1>")
	assert.Contains(t, s, "<em>emphasis</em>")
	assert.Contains(t, s, "<table>")
}

func TestHTMLToMarkdownAndText(t *testing.T) {
	page := `<!DOCTYPE html><html><head><title>Page</title><style>p{color:red}</style></head>
<body><h1>Welcome</h1><p>Hello <b>world</b></p><script>alert(1)</script><ul><li>one</li><li>two</li></ul></body></html>`
	e := newTestEngine(t)

	md := string(convertBytes(t, e, "page.html", []byte(page), "md"))
	assert.Contains(t, md, "# Welcome")
	assert.Contains(t, md, "Hello **world**")
	assert.NotContains(t, md, "alert")
	assert.NotContains(t, md, "color:red")

	txt := string(convertBytes(t, e, "page.html", []byte(page), "txt"))
	assert.Equal(t, "Welcome\nHello world\none\ntwo\n", txt)
}

func TestTruncateDataURIs(t *testing.T) {
	payload := strings.Repeat("A", 100)
	got := truncateDataURIs("![x](data:image/png;base64," + payload + ")")
	assert.Equal(t, "![x](data:image/png;base64,...)", got)
}

func TestCSVConversions(t *testing.T) {
	e := newTestEngine(t)
	data := []byte("name,qty\napple,3\npear|ripe,5\n")

	md := string(convertBytes(t, e, "stock.csv", data, "md"))
	assert.Equal(t, "| name | qty |\n| --- | --- |\n| apple | 3 |\n| pear\\|ripe | 5 |\n", md)

	var rows []map[string]string
	require.NoError(t, json.Unmarshal(convertBytes(t, e, "stock.csv", data, "json"), &rows))
	assert.Equal(t, []map[string]string{
		{"name": "apple", "qty": "3"},
		{"name": "pear|ripe", "qty": "5"},
	}, rows)

	f, err := excelize.OpenReader(bytes.NewReader(convertBytes(t, e, "stock.csv", data, "xlsx")))
	require.NoError(t, err)
	defer f.Close()
	got, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"name", "qty"}, {"apple", "3"}, {"pear|ripe", "5"}}, got)
}

func TestCSVJSONRaggedRows(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRecordsJSON(&buf, [][]string{{"a", ""}, {"1"}, {"2", "3", "4"}}))

	var rows []map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	assert.Equal(t, []map[string]string{
		{"a": "1", "column_2": ""},
		{"a": "2", "column_2": "3", "column_3": "4"},
	}, rows)
}

func TestCSVToJSONDuplicateHeaders(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRecordsJSON(&buf, [][]string{
		{"name", "name", "age", "column_4", ""},
		{"Ada", "Lovelace", "36", "x", "y"},
	}))

	var rows []map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	assert.Equal(t, []map[string]string{
		{"name": "Ada", "name_2": "Lovelace", "age": "36", "column_4": "x", "column_5": "y"},
	}, rows)
}

func TestMalformedCSV(t *testing.T) {
	_, err := newTestEngine(t).Convert(context.Background(),
		BytesSource("bad.csv", []byte("a,\"b\nc,d\n")), "md", t.TempDir())
	assert.True(t, IsKind(err, KindConverterFailure))
}

func TestXLSXConversions(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "name"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "qty"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "apple"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 3))
	_, err := f.NewSheet("Empty")
	require.NoError(t, err)
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	e := newTestEngine(t)
	assert.Equal(t, []string{"csv", "md"}, e.ListOutputFormats(BytesSource("stock.xlsx", buf.Bytes())))

	csvOut := convertBytes(t, e, "stock.xlsx", buf.Bytes(), "csv")
	assert.Equal(t, "name,qty\napple,3\n", string(csvOut))

	md := string(convertBytes(t, e, "stock.xlsx", buf.Bytes(), "md"))
	assert.Contains(t, md, "## Sheet1")
	assert.Contains(t, md, "| apple | 3 |")
	assert.NotContains(t, md, "## Empty")
}

func zipBytes(t *testing.T, files [][2]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f[0])
		require.NoError(t, err)
		_, err = w.Write([]byte(f[1]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDOCXToText(t *testing.T) {
	docx := zipBytes(t, [][2]string{
		{"[Content_Types].xml", `<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`},
		{"word/document.xml", `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:r><w:t>Quarterly</w:t></w:r><w:r><w:t xml:space="preserve"> report</w:t></w:r></w:p>
<w:p><w:r><w:t>Name</w:t><w:tab/><w:t>Value</w:t></w:r></w:p>
</w:body></w:document>`},
	})

	out := string(convertBytes(t, newTestEngine(t), "report.docx", docx, "txt"))
	assert.Equal(t, "Quarterly report\nName\tValue\n", out)
}

func TestPPTXToText(t *testing.T) {
	slide := func(text string) string {
		return `<?xml version="1.0"?><p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" ` +
			`xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"><p:cSld><p:spTree><p:sp><p:txBody>` +
			`<a:p><a:r><a:t>` + text + `</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`
	}
	pptx := zipBytes(t, [][2]string{
		{"[Content_Types].xml", `<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`},
		{"ppt/presentation.xml", `<?xml version="1.0"?><p:presentation xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" ` +
			`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><p:sldIdLst>` +
			`<p:sldId id="256" r:id="rId3"/><p:sldId id="257" r:id="rId2"/></p:sldIdLst></p:presentation>`},
		{"ppt/_rels/presentation.xml.rels", `<?xml version="1.0"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
			`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide1.xml"/>` +
			`<Relationship Id="rId3" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide2.xml"/>` +
			`</Relationships>`},
		{"ppt/slides/slide1.xml", slide("Closing")},
		{"ppt/slides/slide2.xml", slide("Opening")},
	})

	out := string(convertBytes(t, newTestEngine(t), "deck.pptx", pptx, "txt"))
	assert.Equal(t, "Slide 1\n\nOpening\n\nSlide 2\n\nClosing\n", out)
}

func TestOOXMLMissingPart(t *testing.T) {
	broken := zipBytes(t, [][2]string{{"word/styles.xml", "<w:styles/>"}})
	_, err := newTestEngine(t).Convert(context.Background(), BytesSource("broken.docx", broken), "txt", t.TempDir())
	assert.True(t, IsKind(err, KindConverterFailure))
}

func TestPDFRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	pdfData := convertBytes(t, e, "greeting.txt", []byte("Hello PDF\n"), "pdf")

	txt := string(convertBytes(t, e, "greeting.pdf", pdfData, "txt"))
	assert.Contains(t, strings.ReplaceAll(txt, " ", ""), "HelloPDF")
}

func TestTextToPDFKeepsNonLatinText(t *testing.T) {
	e := newTestEngine(t)
	pdfData := convertBytes(t, e, "greeting.txt", []byte("Привет мир\nΚαλημέρα\n"), "pdf")

	r, err := pdf.NewReader(bytes.NewReader(pdfData), int64(len(pdfData)))
	require.NoError(t, err)
	require.Equal(t, 1, r.NumPage())
	rc := r.Page(1).V.Key("Contents").Reader()
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	utf16be := xunicode.UTF16(xunicode.BigEndian, xunicode.IgnoreBOM).NewEncoder()
	for _, word := range []string{"Привет", "Καλημέρα"} {
		encoded, err := utf16be.String(word)
		require.NoError(t, err)
		assert.Contains(t, string(content), encoded, word)
	}
	assert.NotContains(t, string(content), "......")
}

func TestTextToPDFRejectsMissingGlyphs(t *testing.T) {
	out := t.TempDir()
	_, err := newTestEngine(t).Convert(context.Background(),
		BytesSource("greeting.txt", []byte("Привет\n你好\n")), "pdf", out)
	assert.True(t, IsKind(err, KindConverterFailure))
	assert.ErrorContains(t, err, "line 2")
	assert.Empty(t, dirEntries(t, out))
}

func TestMalformedPDF(t *testing.T) {
	_, err := newTestEngine(t).Convert(context.Background(),
		BytesSource("broken.pdf", []byte("%PDF-1.4\nnot really a pdf\n")), "txt", t.TempDir())
	assert.True(t, IsKind(err, KindConverterFailure))
}

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>Release Feed</title><description>Project releases</description><link>https://example.com/</link>
<item><title>Version 2</title><link>https://example.com/v2</link><pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
<description>&lt;p&gt;Now with &lt;b&gt;streaming&lt;/b&gt;&lt;/p&gt;</description></item>
</channel></rss>`

func TestFeedConversions(t *testing.T) {
	e := newTestEngine(t)
	assert.Equal(t, []string{"md", "json"}, e.ListOutputFormats(BytesSource("releases.rss", []byte(testFeed))))

	md := string(convertBytes(t, e, "releases.rss", []byte(testFeed), "md"))
	assert.Contains(t, md, "# Release Feed")
	assert.Contains(t, md, "## Version 2")
	assert.Contains(t, md, "Published: Mon, 02 Jan 2006 15:04:05 GMT")
	assert.Contains(t, md, "Now with **streaming**")

	var feed struct {
		Title string `json:"title"`
		Items []struct {
			Title string `json:"title"`
			Link  string `json:"link"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(convertBytes(t, e, "releases.rss", []byte(testFeed), "json"), &feed))
	assert.Equal(t, "Release Feed", feed.Title)
	require.Len(t, feed.Items, 1)
	assert.Equal(t, "https://example.com/v2", feed.Items[0].Link)
}

const testNotebook = `{
 "metadata": {"kernelspec": {"language": "python"}},
 "cells": [
  {"cell_type": "markdown", "source": ["# Analysis\n", "Intro text"]},
  {"cell_type": "code", "source": "print(1 + 1)", "outputs": [{"output_type": "stream", "text": ["2\n"]}]},
  {"cell_type": "code", "source": "", "outputs": []}
 ]
}`

func TestNotebookConversions(t *testing.T) {
	e := newTestEngine(t)

	md := string(convertBytes(t, e, "analysis.ipynb", []byte(testNotebook), "md"))
	assert.Equal(t, "# Analysis\nIntro text\n\n```python\nprint(1 + 1)\n```\n\n```\n2\n```\n", md)

	py := string(convertBytes(t, e, "analysis.ipynb", []byte(testNotebook), "py"))
	assert.Equal(t, "# %% [markdown]\n# # Analysis\n# Intro text\n\n# %%\nprint(1 + 1)\n", py)
}

func TestImageConversions(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			src.Set(x, y, color.NRGBA{R: uint8(x * 30), G: uint8(y * 40), B: 200, A: 128})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))
	e := newTestEngine(t)

	decoders := map[string]func([]byte) (image.Image, error){
		"jpg":  func(b []byte) (image.Image, error) { return jpeg.Decode(bytes.NewReader(b)) },
		"gif":  func(b []byte) (image.Image, error) { return gif.Decode(bytes.NewReader(b)) },
		"bmp":  func(b []byte) (image.Image, error) { return bmp.Decode(bytes.NewReader(b)) },
		"tiff": func(b []byte) (image.Image, error) { return tiff.Decode(bytes.NewReader(b)) },
	}
	for format, decode := range decoders {
		t.Run(format, func(t *testing.T) {
			img, err := decode(convertBytes(t, e, "swatch.png", buf.Bytes(), format))
			require.NoError(t, err)
			assert.Equal(t, src.Bounds(), img.Bounds())
		})
	}
}

func TestImagePixelLimit(t *testing.T) {
	e := newTestEngine(t, WithMaxPixels(10))
	out := t.TempDir()

	_, err := e.Convert(context.Background(), BytesSource("big.png", pngBytes(t, 4, 4)), "jpg", out)
	assert.True(t, IsKind(err, KindConverterFailure))
	assert.Empty(t, dirEntries(t, out))
}

func TestFlattenOpaqueIsNoop(t *testing.T) {
	opaque := image.NewGray(image.Rect(0, 0, 2, 2))
	assert.Same(t, opaque, flatten(opaque))

	transparent := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	r, g, b, a := flatten(transparent).At(0, 0).RGBA()
	assert.Equal(t, [4]uint32{0xffff, 0xffff, 0xffff, 0xffff}, [4]uint32{r, g, b, a})
}

package fileconv

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDetectContent(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		name    string
		src     Source
		essence string
	}{
		{"plain text", BytesSource("notes.txt", []byte("hello world\n")), "text/plain"},
		{"text without name", BytesSource("", []byte("just some words\n")), "text/plain"},
		{"markdown by extension", BytesSource("README.md", []byte("# Title\n\nbody\n")), "text/markdown"},
		{"csv", BytesSource("data.csv", []byte("a,b\n1,2\n3,4\n")), "text/csv"},
		{"html", BytesSource("page.html", []byte("<!DOCTYPE html><html><body><p>x</p></body></html>")), "text/html"},
		{"json", BytesSource("data.json", []byte(`{"a": 1}`)), "application/json"},
		{"notebook", BytesSource("nb.ipynb", []byte(`{"cells": [], "metadata": {}}`)), string(mimeIpynb)},
		{"png named txt", BytesSource("image.txt", pngBytes(t, 2, 2)), "image/png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.essence, d.Detect(tt.src).Essence())
		})
	}
}

func TestDetectKeepsCharset(t *testing.T) {
	mt := NewDetector().Detect(BytesSource("README.md", []byte("# Title\n")))
	assert.Equal(t, "text/markdown", mt.Essence())
	assert.Equal(t, "utf-8", mt.Charset())
}

func TestDetectNameFallback(t *testing.T) {
	d := NewDetector()

	assert.Equal(t, MediaType("application/pdf"), d.Detect(NameSource("report.PDF")))
	assert.Equal(t, MediaType("image/jpeg"), d.Detect(NameSource("photo.jpeg")))
	assert.Equal(t, Unknown, d.Detect(NameSource("archive.unknownext")))
	assert.Equal(t, Unknown, d.Detect(NameSource("")))
}

func TestDetectUnclassifiable(t *testing.T) {
	blob := []byte{0x8f, 0x3a, 0x00, 0x91, 0xc4, 0x00, 0x07, 0xee, 0x00, 0x13}
	d := NewDetector()

	assert.Equal(t, Unknown, d.Detect(BytesSource("blob", blob)))
	assert.Equal(t, MediaType("application/pdf"), d.Detect(BytesSource("blob.pdf", blob)))
}

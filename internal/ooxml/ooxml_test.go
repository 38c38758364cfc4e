package ooxml

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelsPathFor(t *testing.T) {
	assert.Equal(t, "ppt/_rels/presentation.xml.rels", RelsPathFor("ppt/presentation.xml"))
	assert.Equal(t, "_rels/.rels", RelsPathFor(""))
	assert.Equal(t, "_rels/root.xml.rels", RelsPathFor("root.xml"))
}

func TestResolveTarget(t *testing.T) {
	assert.Equal(t, "ppt/slides/slide1.xml", ResolveTarget("ppt/presentation.xml", "slides/slide1.xml"))
	assert.Equal(t, "ppt/media/image1.png", ResolveTarget("ppt/slides/slide1.xml", "../media/image1.png"))
	assert.Equal(t, "word/document.xml", ResolveTarget("ppt/presentation.xml", "/word/document.xml"))
}

func TestMissingParts(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, zip.NewWriter(&buf).Close())
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	_, err = DocumentText(zr)
	assert.True(t, errors.Is(err, ErrPartNotFound))
	_, err = SlideTexts(zr)
	assert.True(t, errors.Is(err, ErrPartNotFound))

	rels, err := ParseRelationships(zr, PresentationPart)
	require.NoError(t, err)
	assert.Empty(t, rels)
}

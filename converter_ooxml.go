package fileconv

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/nicholasgasior/fileconv/internal/ooxml"
)

// OOXMLTextConverter extracts plain text from DOCX and PPTX packages.
type OOXMLTextConverter struct{}

// NewOOXMLTextConverter creates a new OOXMLTextConverter.
func NewOOXMLTextConverter() *OOXMLTextConverter {
	return &OOXMLTextConverter{}
}

func (c *OOXMLTextConverter) Convert(ctx context.Context, in io.Reader, info StreamInfo, out io.Writer) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Malformed(fmt.Errorf("open package: %w", err))
	}

	if info.MediaType.HasPrefix(mimePPTX) {
		slides, err := ooxml.SlideTexts(zr)
		if err != nil {
			return Malformed(err)
		}
		var b strings.Builder
		for i, text := range slides {
			if err := ctx.Err(); err != nil {
				return err
			}
			fmt.Fprintf(&b, "Slide %d\n\n%s\n\n", i+1, text)
		}
		return writeText(out, b.String())
	}

	text, err := ooxml.DocumentText(zr)
	if err != nil {
		return Malformed(err)
	}
	return writeText(out, text)
}

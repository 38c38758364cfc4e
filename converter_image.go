package fileconv

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp" // register webp decoder
)

const (
	// DefaultJPEGQuality is the JPEG encoder quality used unless WithJPEGQuality is given.
	DefaultJPEGQuality = 90
	// DefaultMaxPixels bounds width*height of decoded images unless WithMaxPixels is given.
	DefaultMaxPixels = 100_000_000
)

// ImageConverter decodes any registered raster format and re-encodes it.
// Targets without alpha support are flattened onto white.
type ImageConverter struct {
	format    string
	quality   int
	maxPixels int
}

// NewImageConverter creates a new ImageConverter producing format.
func NewImageConverter(format string, quality, maxPixels int) *ImageConverter {
	return &ImageConverter{format: format, quality: quality, maxPixels: maxPixels}
}

func (c *ImageConverter) Convert(ctx context.Context, in io.Reader, _ StreamInfo, out io.Writer) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Malformed(fmt.Errorf("read image header: %w", err))
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > c.maxPixels/cfg.Height {
		return Malformed(fmt.Errorf("%s image %dx%d exceeds %d pixels", name, cfg.Width, cfg.Height, c.maxPixels))
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Malformed(fmt.Errorf("decode %s: %w", name, err))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	switch c.format {
	case FormatPNG:
		return png.Encode(out, img)
	case FormatJPG:
		return jpeg.Encode(out, flatten(img), &jpeg.Options{Quality: c.quality})
	case FormatGIF:
		return gif.Encode(out, img, &gif.Options{NumColors: 256})
	case FormatBMP:
		return bmp.Encode(out, flatten(img))
	case FormatTIFF:
		return tiff.Encode(out, img, &tiff.Options{Compression: tiff.Deflate})
	}
	return fmt.Errorf("image: no encoder for %q", c.format)
}

// flatten composites img over an opaque white background.
func flatten(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, image.White, image.Point{}, draw.Src)
	draw.Draw(dst, b, img, b.Min, draw.Over)
	return dst
}

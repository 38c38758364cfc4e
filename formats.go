package fileconv

import (
	"mime"
	"strings"
)

// Output format identifiers.
const (
	FormatPDF  = "pdf"
	FormatHTML = "html"
	FormatMD   = "md"
	FormatTXT  = "txt"
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatXLSX = "xlsx"
	FormatPNG  = "png"
	FormatJPG  = "jpg"
	FormatGIF  = "gif"
	FormatBMP  = "bmp"
	FormatTIFF = "tiff"
	FormatWEBP = "webp"
	FormatPY   = "py"
)

var formatAliases = map[string]string{
	"jpeg":     FormatJPG,
	"tif":      FormatTIFF,
	"htm":      FormatHTML,
	"markdown": FormatMD,
	"text":     FormatTXT,
}

// formatMediaTypes maps each output format to the MediaType of the artifact it produces.
var formatMediaTypes = map[string]MediaType{
	FormatPDF:  "application/pdf",
	FormatHTML: "text/html; charset=utf-8",
	FormatMD:   "text/markdown; charset=utf-8",
	FormatTXT:  "text/plain; charset=utf-8",
	FormatCSV:  "text/csv; charset=utf-8",
	FormatJSON: "application/json",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	FormatPNG:  "image/png",
	FormatJPG:  "image/jpeg",
	FormatGIF:  "image/gif",
	FormatBMP:  "image/bmp",
	FormatTIFF: "image/tiff",
	FormatWEBP: "image/webp",
	FormatPY:   "text/x-python; charset=utf-8",
}

// NormalizeFormat lowercases a format identifier, drops a leading dot and
// resolves aliases ("JPEG" and ".jpeg" both become "jpg").
func NormalizeFormat(format string) string {
	f := strings.ToLower(strings.TrimSpace(format))
	f = strings.TrimPrefix(f, ".")
	if alias, ok := formatAliases[f]; ok {
		return alias
	}
	return f
}

// FormatMediaType returns the MediaType of output written in format. Formats
// outside the vocabulary are looked up in the system MIME table by extension
// and are Unknown if that has no entry either.
func FormatMediaType(format string) MediaType {
	f := NormalizeFormat(format)
	if mt, ok := formatMediaTypes[f]; ok {
		return mt
	}
	if f == "" {
		return Unknown
	}
	return MediaType(mime.TypeByExtension("." + f))
}

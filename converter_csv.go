package fileconv

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// CSVConverter turns CSV into an XLSX workbook, a JSON array or a markdown table.
type CSVConverter struct {
	format string
}

// NewCSVConverter creates a new CSVConverter producing format (xlsx, json or md).
func NewCSVConverter(format string) *CSVConverter {
	return &CSVConverter{format: format}
}

func (c *CSVConverter) Convert(ctx context.Context, in io.Reader, info StreamInfo, out io.Writer) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	r := csv.NewReader(strings.NewReader(decodeText(data, info.Charset)))
	r.FieldsPerRecord = -1 // allow variable fields
	records, err := r.ReadAll()
	if err != nil {
		return Malformed(fmt.Errorf("parse CSV: %w", err))
	}

	switch c.format {
	case FormatMD:
		return writeText(out, renderMarkdownTable(records))
	case FormatJSON:
		return writeRecordsJSON(out, records)
	case FormatXLSX:
		return writeRecordsXLSX(ctx, out, records)
	}
	return fmt.Errorf("csv: unsupported target %q", c.format)
}

// writeRecordsJSON writes data rows as objects keyed by the header row.
// Missing cells become empty strings; extra cells get "column_N" keys.
func writeRecordsJSON(out io.Writer, records [][]string) error {
	rows := make([]map[string]string, 0, len(records))
	if len(records) > 0 {
		width := 0
		for _, rec := range records {
			width = max(width, len(rec))
		}
		keys := columnKeys(records[0], width)
		header := records[0]
		for _, rec := range records[1:] {
			row := make(map[string]string, len(header))
			for i := 0; i < len(header) || i < len(rec); i++ {
				if i < len(rec) {
					row[keys[i]] = rec[i]
				} else {
					row[keys[i]] = ""
				}
			}
			rows = append(rows, row)
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// columnKeys returns one distinct key per column. Header names are used as
// given, blanks become "column_N" and repeats get a "_2", "_3" suffix.
func columnKeys(header []string, width int) []string {
	keys := make([]string, width)
	seen := make(map[string]bool, width)
	for i := range keys {
		key := fmt.Sprintf("column_%d", i+1)
		if i < len(header) && header[i] != "" {
			key = header[i]
		}
		unique := key
		for n := 2; seen[unique]; n++ {
			unique = fmt.Sprintf("%s_%d", key, n)
		}
		seen[unique] = true
		keys[i] = unique
	}
	return keys
}

// writeRecordsXLSX streams records into the first sheet of a new workbook.
func writeRecordsXLSX(ctx context.Context, out io.Writer, records [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("open sheet writer: %w", err)
	}
	for i, rec := range records {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(rec))
		for j, v := range rec {
			values[j] = v
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	return f.Write(out)
}

// renderMarkdownTable renders a 2D string slice as a markdown table. The
// first row is the header; rows are padded or cut to its width.
func renderMarkdownTable(records [][]string) string {
	if len(records) == 0 {
		return ""
	}
	numCols := len(records[0])
	if numCols == 0 {
		return ""
	}

	var b strings.Builder
	writeRow := func(row []string) {
		b.WriteString("|")
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(row) {
				cell = escapeTableCell(row[i])
			}
			b.WriteString(" ")
			b.WriteString(cell)
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	writeRow(records[0])
	b.WriteString("|")
	for i := 0; i < numCols; i++ {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range records[1:] {
		writeRow(row)
	}

	return b.String()
}

func escapeTableCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

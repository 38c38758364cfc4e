package fileconv

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/extrame/xls"
)

// XlsConverter handles legacy XLS workbooks, with the same output layout as
// XlsxConverter.
type XlsConverter struct {
	format string
}

// NewXlsConverter creates a new XlsConverter producing format (csv or md).
func NewXlsConverter(format string) *XlsConverter {
	return &XlsConverter{format: format}
}

func (c *XlsConverter) Convert(ctx context.Context, in io.Reader, _ StreamInfo, out io.Writer) error {
	// extrame/xls reads from a path, so the input is spooled to a private temp file.
	tmp, err := os.CreateTemp("", "fileconv-*.xls")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return fmt.Errorf("spool input: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("spool input: %w", err)
	}

	wb, err := xls.Open(tmpPath, "utf-8")
	if err != nil {
		return Malformed(fmt.Errorf("open XLS: %w", err))
	}

	switch c.format {
	case FormatCSV:
		if wb.NumSheets() == 0 {
			return writeCSV(out, nil)
		}
		return writeCSV(out, xlsRows(wb.GetSheet(0)))

	case FormatMD:
		var md strings.Builder
		for i := 0; i < wb.NumSheets(); i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			sheet := wb.GetSheet(i)
			rows := xlsRows(sheet)
			if len(rows) == 0 {
				continue
			}
			name := sheet.Name
			if name == "" {
				name = fmt.Sprintf("Sheet%d", i+1)
			}
			fmt.Fprintf(&md, "## %s\n\n", name)
			md.WriteString(renderMarkdownTable(rows))
			md.WriteString("\n")
		}
		return writeText(out, md.String())
	}
	return fmt.Errorf("xls: unsupported target %q", c.format)
}

func xlsRows(sheet *xls.WorkSheet) [][]string {
	if sheet == nil {
		return nil
	}
	var rows [][]string
	for rowIdx := 0; rowIdx <= int(sheet.MaxRow); rowIdx++ {
		row := sheet.Row(rowIdx)
		if row == nil {
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for colIdx := 0; colIdx < row.LastCol(); colIdx++ {
			cells = append(cells, row.Col(colIdx))
		}
		rows = append(rows, cells)
	}
	return rows
}

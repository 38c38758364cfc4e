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
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	xlog "github.com/nicholasgasior/fileconv/internal/log"
)

// XlsxConverter handles XLSX workbooks. CSV output holds the active sheet;
// markdown output holds every non-empty sheet under its own heading.
type XlsxConverter struct {
	format string
}

// NewXlsxConverter creates a new XlsxConverter producing format (csv or md).
func NewXlsxConverter(format string) *XlsxConverter {
	return &XlsxConverter{format: format}
}

func (c *XlsxConverter) Convert(ctx context.Context, in io.Reader, _ StreamInfo, out io.Writer) error {
	f, err := excelize.OpenReader(in)
	if err != nil {
		return Malformed(fmt.Errorf("open XLSX: %w", err))
	}
	defer f.Close()

	switch c.format {
	case FormatCSV:
		sheet := f.GetSheetName(f.GetActiveSheetIndex())
		rows, err := f.GetRows(sheet)
		if err != nil {
			return Malformed(fmt.Errorf("read sheet %q: %w", sheet, err))
		}
		return writeCSV(out, rows)

	case FormatMD:
		var md strings.Builder
		for _, sheet := range f.GetSheetList() {
			if err := ctx.Err(); err != nil {
				return err
			}
			rows, err := f.GetRows(sheet)
			if err != nil {
				xlog.FromContext(ctx).Debug().Err(err).Str("sheet", sheet).Msg("skipping unreadable sheet")
				continue
			}
			if len(rows) == 0 {
				continue
			}
			fmt.Fprintf(&md, "## %s\n\n", sheet)
			md.WriteString(renderMarkdownTable(rows))
			md.WriteString("\n")
		}
		return writeText(out, md.String())
	}
	return fmt.Errorf("xlsx: unsupported target %q", c.format)
}

func writeCSV(out io.Writer, rows [][]string) error {
	w := csv.NewWriter(out)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write CSV: %w", err)
	}
	return nil
}

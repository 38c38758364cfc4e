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
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// NotebookConverter handles Jupyter notebooks. Markdown output interleaves
// prose, fenced code and text outputs; py output is a percent-format script
// with prose cells commented out.
type NotebookConverter struct {
	format string
}

// NewNotebookConverter creates a new NotebookConverter producing format (md or py).
func NewNotebookConverter(format string) *NotebookConverter {
	return &NotebookConverter{format: format}
}

type notebook struct {
	Metadata notebookMetadata `json:"metadata"`
	Cells    []notebookCell   `json:"cells"`
}

type notebookMetadata struct {
	KernelSpec *kernelSpec `json:"kernelspec"`
}

type kernelSpec struct {
	Language string `json:"language"`
}

type notebookCell struct {
	CellType string          `json:"cell_type"`
	Source   json.RawMessage `json:"source"`
	Outputs  []cellOutput    `json:"outputs"`
}

type cellOutput struct {
	OutputType string                     `json:"output_type"`
	Text       json.RawMessage            `json:"text"`
	Data       map[string]json.RawMessage `json:"data"`
}

func (c *NotebookConverter) Convert(_ context.Context, in io.Reader, _ StreamInfo, out io.Writer) error {
	var nb notebook
	if err := json.NewDecoder(in).Decode(&nb); err != nil {
		return Malformed(fmt.Errorf("parse notebook JSON: %w", err))
	}

	language := "python"
	if nb.Metadata.KernelSpec != nil && nb.Metadata.KernelSpec.Language != "" {
		language = nb.Metadata.KernelSpec.Language
	}

	switch c.format {
	case FormatMD:
		return writeText(out, notebookMarkdown(nb, language))
	case FormatPY:
		return writeText(out, notebookScript(nb))
	}
	return fmt.Errorf("notebook: unsupported target %q", c.format)
}

func notebookMarkdown(nb notebook, language string) string {
	var sections []string
	for _, cell := range nb.Cells {
		source := parseSource(cell.Source)

		switch cell.CellType {
		case "markdown":
			sections = append(sections, source)
		case "code":
			if strings.TrimSpace(source) != "" {
				sections = append(sections, fmt.Sprintf("```%s\n%s\n```", language, source))
			}
			for _, output := range cell.Outputs {
				if text := parseOutputText(output); text != "" {
					sections = append(sections, fmt.Sprintf("```\n%s\n```", text))
				}
			}
		case "raw":
			if strings.TrimSpace(source) != "" {
				sections = append(sections, fmt.Sprintf("```\n%s\n```", source))
			}
		}
	}
	return strings.Join(sections, "\n\n")
}

func notebookScript(nb notebook) string {
	var sections []string
	for _, cell := range nb.Cells {
		source := strings.TrimRight(parseSource(cell.Source), "\n")
		if strings.TrimSpace(source) == "" {
			continue
		}

		switch cell.CellType {
		case "code":
			sections = append(sections, "# %%\n"+source)
		case "markdown", "raw":
			lines := strings.Split(source, "\n")
			for i, line := range lines {
				lines[i] = strings.TrimRight("# "+line, " ")
			}
			sections = append(sections, fmt.Sprintf("# %%%% [%s]\n%s", cell.CellType, strings.Join(lines, "\n")))
		}
	}
	return strings.Join(sections, "\n\n")
}

// parseSource extracts a cell source, stored either as a string or as an
// array of lines.
func parseSource(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var arr []string
	if err := json.Unmarshal(raw, &arr); err == nil {
		return strings.Join(arr, "")
	}
	return ""
}

// parseOutputText extracts the text of a stream or text/plain output.
func parseOutputText(output cellOutput) string {
	if output.Text != nil {
		if text := parseSource(output.Text); text != "" {
			return strings.TrimRight(text, "\n")
		}
	}
	if raw, ok := output.Data["text/plain"]; ok {
		if text := parseSource(raw); text != "" {
			return strings.TrimRight(text, "\n")
		}
	}
	return ""
}

package fileconv

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mmcdole/gofeed"
)

// FeedConverter handles RSS and Atom feeds. Markdown output renders the
// feed as a document; JSON output is gofeed's normalized feed model.
type FeedConverter struct {
	format string
}

// NewFeedConverter creates a new FeedConverter producing format (md or json).
func NewFeedConverter(format string) *FeedConverter {
	return &FeedConverter{format: format}
}

func (c *FeedConverter) Convert(ctx context.Context, in io.Reader, _ StreamInfo, out io.Writer) error {
	feed, err := gofeed.NewParser().Parse(in)
	if err != nil {
		return Malformed(fmt.Errorf("parse feed: %w", err))
	}

	switch c.format {
	case FormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(feed)
	case FormatMD:
		var b strings.Builder
		if feed.Title != "" {
			fmt.Fprintf(&b, "# %s\n", feed.Title)
		}
		if feed.Description != "" {
			fmt.Fprintf(&b, "%s\n", feed.Description)
		}
		b.WriteString("\n")

		for _, item := range feed.Items {
			if err := ctx.Err(); err != nil {
				return err
			}
			if item.Title != "" {
				fmt.Fprintf(&b, "## %s\n", item.Title)
			}
			if item.Published != "" {
				fmt.Fprintf(&b, "Published: %s\n\n", item.Published)
			} else if item.Updated != "" {
				fmt.Fprintf(&b, "Updated: %s\n\n", item.Updated)
			}
			if item.Link != "" {
				fmt.Fprintf(&b, "<%s>\n\n", item.Link)
			}

			content := item.Content
			if content == "" {
				content = item.Description
			}
			if content != "" {
				if strings.Contains(content, "<") && strings.Contains(content, ">") {
					if md, err := convertHTMLToMarkdown(content); err == nil {
						content = md
					}
				}
				b.WriteString(content)
				b.WriteString("\n")
			}
			b.WriteString("\n")
		}
		return writeText(out, b.String())
	}
	return fmt.Errorf("feed: unsupported target %q", c.format)
}

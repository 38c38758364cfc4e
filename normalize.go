package fileconv

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	reTrailingWhitespace = regexp.MustCompile(`[ \t]+\n`)
	reMultipleNewlines   = regexp.MustCompile(`\n{3,}`)
	reCRLF               = regexp.MustCompile(`\r\n?`)
)

// normalizeText cleans text artifacts (md, txt, py) before they are written:
// - Normalize line endings (CRLF -> LF)
// - Strip non-printable/control characters (keep \n, \t)
// - Strip trailing whitespace from each line
// - Collapse 3+ consecutive newlines to 2
// - End with exactly one newline
func normalizeText(s string) string {
	s = strings.ToValidUTF8(s, "")
	s = reCRLF.ReplaceAllString(s, "\n")

	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)

	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	s = reTrailingWhitespace.ReplaceAllString(s, "\n")
	s = reMultipleNewlines.ReplaceAllString(s, "\n\n")

	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return s + "\n"
}

package fileconv

import (
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// decodeText returns data as UTF-8. A declared charset is tried first, then
// data is used as-is if it is valid UTF-8, then chardet candidates are
// scored and the best decoding is kept.
func decodeText(data []byte, charset string) string {
	data = trimBOM(data)

	if charset != "" {
		if enc := lookupEncoding(charset); enc != nil {
			if decoded, err := enc.NewDecoder().Bytes(data); err == nil {
				return string(decoded)
			}
		}
	}

	if utf8.Valid(data) {
		return string(data)
	}

	results, err := chardet.NewTextDetector().DetectAll(data)
	if err != nil || len(results) == 0 {
		return strings.ToValidUTF8(string(data), "\uFFFD")
	}

	best, bestScore := "", -1<<31
	for _, r := range results {
		enc := lookupEncoding(r.Charset)
		if enc == nil {
			continue
		}
		decoded, err := enc.NewDecoder().Bytes(data)
		if err != nil {
			continue
		}
		if score := scoreDecodedText(string(decoded), r.Confidence); score > bestScore {
			best, bestScore = string(decoded), score
		}
	}
	if best == "" {
		return strings.ToValidUTF8(string(data), "\uFFFD")
	}
	return best
}

func trimBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}

// scoreDecodedText rates how coherent a decoding looks. chardet often ranks
// a Latin codepage above the right CJK one, so letters and ideographs earn
// points and replacement or control characters lose them.
func scoreDecodedText(text string, confidence int) int {
	score := confidence
	for _, r := range text {
		switch {
		case r == '\uFFFD':
			score -= 10
		case r < 0x20 && r != '\n' && r != '\r' && r != '\t':
			score -= 5
		case r >= 0x3040 && r <= 0x30FF, r >= 0xFF00 && r <= 0xFFEF:
			score += 5
		case r >= 0x4E00 && r <= 0x9FFF, r >= 0xAC00 && r <= 0xD7AF:
			score += 2
		case r >= 0x80 && r < 0xC0:
			// C1 controls and Latin-1 punctuation rarely appear in real text.
			score -= 2
		case r >= 'A' && r <= 'z':
			score++
		}
	}
	return score
}

// lookupEncoding maps charset names to x/text encodings.
func lookupEncoding(charset string) encoding.Encoding {
	switch strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(charset)) {
	case "utf8", "utf8bom", "ascii", "usascii":
		return unicode.UTF8
	case "utf16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	case "utf16be":
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	case "iso88591", "latin1":
		return charmap.ISO8859_1
	case "iso88592":
		return charmap.ISO8859_2
	case "iso88595":
		return charmap.ISO8859_5
	case "iso88597":
		return charmap.ISO8859_7
	case "iso88599":
		return charmap.ISO8859_9
	case "iso885915":
		return charmap.ISO8859_15
	case "windows1250", "cp1250":
		return charmap.Windows1250
	case "windows1251", "cp1251":
		return charmap.Windows1251
	case "windows1252", "cp1252":
		return charmap.Windows1252
	case "koi8r":
		return charmap.KOI8R
	case "shiftjis", "sjis", "cp932", "windows31j":
		return japanese.ShiftJIS
	case "eucjp":
		return japanese.EUCJP
	case "iso2022jp":
		return japanese.ISO2022JP
	case "euckr", "cp949":
		return korean.EUCKR
	case "gb2312", "gbk", "cp936", "gb18030":
		return simplifiedchinese.GBK
	case "big5", "cp950":
		return traditionalchinese.Big5
	}
	return nil
}

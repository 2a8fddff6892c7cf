// Package normalize cleans text coming out of the document extraction engine
// and out of LLM replies before it is compared or parsed.
//
// Normalization is idempotent: applying it to already-normalized text is a
// no-op. This matters because the same fragment text is normalized once at
// extraction time and later compared byte-for-byte during reintegration.
package normalize

import (
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// noiseRunes are characters that carry no text content but leak out of PDF
// extraction and LLM output: zero-width spaces, BOMs, replacement chars,
// soft hyphens and directional marks.
var noiseRunes = map[rune]bool{
	'\u200b': true, // zero-width space
	'\u200c': true, // zero-width non-joiner
	'\u200d': true, // zero-width joiner
	'\u2060': true, // word joiner
	'\ufeff': true, // BOM
	'\ufffd': true, // replacement character
	'\u00ad': true, // soft hyphen
	'\u200e': true, // left-to-right mark
	'\u200f': true, // right-to-left mark
}

// Normalize decodes literal escape sequences, strips noise and control
// characters, collapses whitespace runs to single spaces, applies Unicode
// NFC and trims the result.
func Normalize(text string) string {
	text = DecodeEscapes(text)

	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		if noiseRunes[r] {
			continue
		}
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			continue
		}
		sb.WriteRune(r)
	}

	collapsed := strings.Join(strings.Fields(sb.String()), " ")
	return norm.NFC.String(collapsed)
}

// DecodeEscapes converts literal two-character escape sequences (\n, \t, \r)
// and \uXXXX sequences into the runes they denote. Backends sometimes return
// escaped Unicode inside otherwise plain text, so this runs before any JSON
// parsing of LLM replies. Unknown sequences are left untouched.
func DecodeEscapes(text string) string {
	if !strings.ContainsRune(text, '\\') {
		return text
	}

	var sb strings.Builder
	sb.Grow(len(text))
	i := 0
	for i < len(text) {
		c := text[i]
		if c != '\\' || i+1 >= len(text) {
			sb.WriteByte(c)
			i++
			continue
		}
		switch text[i+1] {
		case 'n':
			sb.WriteByte('\n')
			i += 2
		case 't':
			sb.WriteByte('\t')
			i += 2
		case 'r':
			sb.WriteByte('\r')
			i += 2
		case 'u':
			r, consumed := decodeUnicodeEscape(text[i:])
			if consumed == 0 {
				sb.WriteByte(c)
				i++
				continue
			}
			sb.WriteRune(r)
			i += consumed
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return sb.String()
}

// decodeUnicodeEscape decodes a \uXXXX sequence at the start of s, pairing
// UTF-16 surrogate halves into a single rune. It returns the decoded rune and
// the number of bytes consumed, or (0, 0) when s does not start with a valid
// sequence.
func decodeUnicodeEscape(s string) (rune, int) {
	first, ok := hex4(s, 2)
	if !ok {
		return 0, 0
	}
	if utf16.IsSurrogate(first) {
		if len(s) >= 12 && s[6] == '\\' && s[7] == 'u' {
			if second, ok := hex4(s, 8); ok {
				if r := utf16.DecodeRune(first, second); r != utf8.RuneError {
					return r, 12
				}
			}
		}
		return utf8.RuneError, 6
	}
	return first, 6
}

// hex4 parses four hex digits of s starting at off.
func hex4(s string, off int) (rune, bool) {
	if len(s) < off+4 {
		return 0, false
	}
	var v rune
	for i := off; i < off+4; i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			v = v<<4 | rune(c-'0')
		case c >= 'a' && c <= 'f':
			v = v<<4 | rune(c-'a'+10)
		case c >= 'A' && c <= 'F':
			v = v<<4 | rune(c-'A'+10)
		default:
			return 0, false
		}
	}
	return v, true
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package content

import (
	"bytes"
	"compress/zlib"
	"io"
	"strings"
	"unicode/utf8"
)

// pdfText pulls visible text out of a PDF by walking its content streams
// and collecting the arguments of text-showing operators (Tj, TJ, '). It is
// a best-effort reader for machine-generated papers, not a full PDF parser:
// anything it cannot decode contributes nothing, and the caller falls back
// to the abstract when the result is empty.
func pdfText(data []byte, maxRunes int) string {
	var sb strings.Builder
	rest := data

	for {
		start := bytes.Index(rest, []byte("stream"))
		if start < 0 {
			break
		}
		body := rest[start+len("stream"):]
		// Stream keyword is followed by an EOL marker.
		body = bytes.TrimPrefix(body, []byte("\r\n"))
		body = bytes.TrimPrefix(body, []byte("\n"))

		end := bytes.Index(body, []byte("endstream"))
		if end < 0 {
			break
		}

		decoded := inflate(body[:end])
		collectText(decoded, &sb)

		if maxRunes > 0 && sb.Len() >= maxRunes*utf8.UTFMax {
			break
		}
		rest = body[end+len("endstream"):]
	}

	return truncateRunes(sb.String(), maxRunes)
}

// inflate attempts zlib decompression (FlateDecode); raw streams pass
// through untouched.
func inflate(body []byte) []byte {
	r, err := zlib.NewReader(bytes.NewReader(body))
	if err != nil {
		return body
	}
	defer r.Close()
	decoded, err := io.ReadAll(r)
	if err != nil && len(decoded) == 0 {
		return body
	}
	return decoded
}

// collectText scans a content stream for literal strings followed by a
// text-showing operator and appends their contents. Strings inside [...]
// arrays are treated as TJ fragments interleaved with kerning numbers.
func collectText(stream []byte, sb *strings.Builder) {
	i := 0
	inArray := false
	for i < len(stream) {
		switch stream[i] {
		case '[':
			inArray = true
			i++
		case ']':
			inArray = false
			i++
		case '(':
			lit, next, ok := readLiteral(stream, i)
			i = next
			if !ok {
				continue
			}
			if inArray {
				writeWord(sb, lit)
				continue
			}
			if op := peekOperator(stream, next); op == "Tj" || op == "'" || op == "\"" {
				writeWord(sb, lit)
			}
		default:
			i++
		}
	}
}

// readLiteral parses a PDF literal string starting at the '(' in stream[i],
// handling nesting and backslash escapes. It returns the decoded string and
// the index just past the closing parenthesis.
func readLiteral(stream []byte, i int) (string, int, bool) {
	var out []byte
	depth := 0
	j := i
	for ; j < len(stream); j++ {
		c := stream[j]
		switch c {
		case '\\':
			if j+1 < len(stream) {
				j++
				switch stream[j] {
				case 'n':
					out = append(out, '\n')
				case 't':
					out = append(out, '\t')
				case '(', ')', '\\':
					out = append(out, stream[j])
				}
			}
		case '(':
			depth++
			if depth > 1 {
				out = append(out, c)
			}
		case ')':
			depth--
			if depth == 0 {
				return string(out), j + 1, true
			}
			out = append(out, c)
		default:
			if depth > 0 {
				out = append(out, c)
			}
		}
	}
	return "", j, false
}

// peekOperator returns the next non-space token after position i, bounded
// to a couple of characters, so callers can tell text-showing operators
// from other string uses (names, dictionaries).
func peekOperator(stream []byte, i int) string {
	for i < len(stream) && (stream[i] == ' ' || stream[i] == '\n' || stream[i] == '\r') {
		i++
	}
	j := i
	for j < len(stream) && j < i+2 {
		c := stream[j]
		if c == ' ' || c == '\n' || c == '\r' || c == '(' {
			break
		}
		j++
	}
	return string(stream[i:j])
}

// writeWord appends a decoded literal, inserting a separating space and
// dropping fragments that are pure control bytes.
func writeWord(sb *strings.Builder, lit string) {
	lit = strings.TrimFunc(lit, func(r rune) bool { return r < 0x20 })
	if lit == "" {
		return
	}
	if sb.Len() > 0 {
		sb.WriteByte(' ')
	}
	sb.WriteString(lit)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"
)

// DefaultPageBreak separates pages when the page_break option is unset.
const DefaultPageBreak = "\n\n--- Page Break ---\n\n"

// PDFConverter extracts the text layer of a PDF page by page. Scanned PDFs
// without a text layer fail; the markitdown backend may handle those.
type PDFConverter struct{}

// Convert implements Converter.
func (p *PDFConverter) Convert(ctx context.Context, data []byte, _ string, options map[string]string) (string, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	doc, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return "", fmt.Errorf("reading pdf: %w", err)
	}

	sep, ok := options[OptionPageBreak]
	if !ok {
		sep = DefaultPageBreak
	}

	var pages []string
	for nr := 1; nr <= doc.PageCount; nr++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		r, err := pdfcpu.ExtractPageContent(doc, nr)
		if err != nil || r == nil {
			continue
		}
		content, err := io.ReadAll(r)
		if err != nil {
			continue
		}
		if text := pageText(content); text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 {
		return "", fmt.Errorf("no extractable text in %d page(s)", doc.PageCount)
	}
	return finish(strings.Join(pages, sep)), nil
}

// operator is a content stream operator such as Tj or BT.
type operator string

// pageText interprets the text-showing operators of a content stream.
// Positioning operators become spaces or line breaks.
func pageText(content []byte) string {
	var (
		b        strings.Builder
		operands []any
	)
	sc := &streamScanner{data: content}
	for {
		tok, ok := sc.next()
		if !ok {
			break
		}
		op, isOp := tok.(operator)
		if !isOp {
			operands = append(operands, tok)
			continue
		}
		applyOperator(&b, op, operands)
		if op == "ID" {
			sc.skipInlineImage()
		}
		operands = operands[:0]
	}
	return tidyText(b.String())
}

func applyOperator(b *strings.Builder, op operator, operands []any) {
	switch op {
	case "Tj":
		b.WriteString(lastString(operands))
	case "'", "\"":
		newline(b)
		b.WriteString(lastString(operands))
	case "TJ":
		if len(operands) == 0 {
			return
		}
		arr, _ := operands[len(operands)-1].([]any)
		for _, el := range arr {
			switch v := el.(type) {
			case string:
				b.WriteString(v)
			case float64:
				// Large negative kerning is how most producers encode a word gap.
				if v < -200 {
					space(b)
				}
			}
		}
	case "Td", "TD":
		if len(operands) >= 2 {
			if ty, ok := operands[1].(float64); ok && ty != 0 {
				newline(b)
				return
			}
		}
		space(b)
	case "T*", "ET", "Tm":
		newline(b)
	}
}

func lastString(operands []any) string {
	if len(operands) == 0 {
		return ""
	}
	s, _ := operands[len(operands)-1].(string)
	return s
}

func newline(b *strings.Builder) {
	if s := b.String(); s != "" && !strings.HasSuffix(s, "\n") {
		b.WriteByte('\n')
	}
}

func space(b *strings.Builder) {
	if s := b.String(); s != "" && !strings.HasSuffix(s, " ") && !strings.HasSuffix(s, "\n") {
		b.WriteByte(' ')
	}
}

// tidyText collapses whitespace within lines and drops empty lines and
// unprintable runes.
func tidyText(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return ' '
			}
			if !unicode.IsPrint(r) {
				return -1
			}
			return r
		}, line)
		if fields := strings.Fields(line); len(fields) > 0 {
			lines = append(lines, strings.Join(fields, " "))
		}
	}
	return strings.Join(lines, "\n")
}

// streamScanner tokenizes a PDF content stream into operands and operators.
// Strings decode to Go strings, numbers to float64, arrays to []any; names
// and dictionaries decode to nil.
type streamScanner struct {
	data []byte
	pos  int
}

func (s *streamScanner) next() (any, bool) {
	s.skipSpace()
	if s.pos >= len(s.data) {
		return nil, false
	}
	c := s.data[s.pos]
	switch {
	case c == '(':
		return decodePDFText(s.literal()), true
	case c == '<':
		if s.peek(1) == '<' {
			s.skipDict()
			return nil, true
		}
		return decodePDFText(s.hex()), true
	case c == '[':
		s.pos++
		var arr []any
		for {
			s.skipSpace()
			if s.pos >= len(s.data) {
				return arr, true
			}
			if s.data[s.pos] == ']' {
				s.pos++
				return arr, true
			}
			v, ok := s.next()
			if !ok {
				return arr, true
			}
			arr = append(arr, v)
		}
	case c == '/':
		s.pos++
		s.word()
		return nil, true
	case isDelimiter(c):
		s.pos++
		return nil, true
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		f, err := strconv.ParseFloat(s.word(), 64)
		if err != nil {
			return nil, true
		}
		return f, true
	default:
		w := s.word()
		if w == "" {
			s.pos++
			return nil, true
		}
		return operator(w), true
	}
}

func (s *streamScanner) peek(off int) byte {
	if s.pos+off < len(s.data) {
		return s.data[s.pos+off]
	}
	return 0
}

func (s *streamScanner) skipSpace() {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		switch {
		case isWhite(c):
			s.pos++
		case c == '%':
			for s.pos < len(s.data) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
		default:
			return
		}
	}
}

func (s *streamScanner) word() string {
	start := s.pos
	for s.pos < len(s.data) && !isWhite(s.data[s.pos]) && !isDelimiter(s.data[s.pos]) {
		s.pos++
	}
	return string(s.data[start:s.pos])
}

// literal reads a parenthesized string, resolving escapes and balanced
// nested parentheses.
func (s *streamScanner) literal() []byte {
	s.pos++
	var out []byte
	depth := 1
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return out
			}
		case '\\':
			if s.pos >= len(s.data) {
				return out
			}
			e := s.data[s.pos]
			s.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if s.pos < len(s.data) && s.data[s.pos] == '\n' {
					s.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					val := int(e - '0')
					for i := 0; i < 2 && s.pos < len(s.data) && s.data[s.pos] >= '0' && s.data[s.pos] <= '7'; i++ {
						val = val*8 + int(s.data[s.pos]-'0')
						s.pos++
					}
					out = append(out, byte(val))
				} else {
					out = append(out, e)
				}
			}
			continue
		}
		out = append(out, c)
	}
	return out
}

func (s *streamScanner) hex() []byte {
	s.pos++
	var digits []byte
	for s.pos < len(s.data) && s.data[s.pos] != '>' {
		if c := s.data[s.pos]; isHexDigit(c) {
			digits = append(digits, c)
		}
		s.pos++
	}
	s.pos++
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, len(digits)/2)
	for i := range out {
		v, _ := strconv.ParseUint(string(digits[2*i:2*i+2]), 16, 8)
		out[i] = byte(v)
	}
	return out
}

func (s *streamScanner) skipDict() {
	depth := 0
	for s.pos < len(s.data) {
		switch {
		case s.data[s.pos] == '<' && s.peek(1) == '<':
			depth++
			s.pos += 2
		case s.data[s.pos] == '>' && s.peek(1) == '>':
			depth--
			s.pos += 2
			if depth == 0 {
				return
			}
		case s.data[s.pos] == '(':
			s.literal()
		default:
			s.pos++
		}
	}
}

// skipInlineImage jumps past binary inline image data up to the EI
// operator.
func (s *streamScanner) skipInlineImage() {
	rest := s.data[s.pos:]
	for off := 0; ; {
		i := bytes.Index(rest[off:], []byte("EI"))
		if i < 0 {
			s.pos = len(s.data)
			return
		}
		at := off + i
		before := at == 0 || isWhite(rest[at-1])
		after := at+2 >= len(rest) || isWhite(rest[at+2])
		if before && after {
			s.pos += at + 2
			return
		}
		off = at + 2
	}
}

func isWhite(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isDelimiter(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

var errNotUTF16 = errors.New("no UTF-16 byte order mark")

// decodePDFText decodes a string operand. Strings starting with a UTF-16
// byte order mark are UTF-16; anything else is treated as WinAnsi.
func decodePDFText(raw []byte) string {
	if s, err := decodeUTF16(raw); err == nil {
		return s
	}
	if isASCII(raw) {
		return string(raw)
	}
	s, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(s)
}

func decodeUTF16(raw []byte) (string, error) {
	if !bytes.HasPrefix(raw, []byte{0xfe, 0xff}) && !bytes.HasPrefix(raw, []byte{0xff, 0xfe}) {
		return "", errNotUTF16
	}
	out, err := xunicode.UTF16(xunicode.BigEndian, xunicode.ExpectBOM).NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

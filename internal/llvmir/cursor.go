package llvmir

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// cursor представляет позицию внутри одной строки IR
type cursor struct {
	s   string
	off int
}

func newCursor(s string) cursor { return cursor{s: s} }

// eof проверяет, достигнут ли конец строки
func (c *cursor) eof() bool { return c.off >= len(c.s) }

// peek читает текущий байт, если есть, иначе возвращает 0
func (c *cursor) peek() byte {
	if c.eof() {
		return 0
	}
	return c.s[c.off]
}

// bump перемещает курсор на один байт вперед и возвращает прочитанный байт
func (c *cursor) bump() byte {
	if c.eof() {
		return 0
	}
	b := c.s[c.off]
	c.off++
	return b
}

func (c *cursor) eat(b byte) bool {
	if c.peek() == b {
		c.off++
		return true
	}
	return false
}

func (c *cursor) skipSpace() {
	for !c.eof() {
		switch c.s[c.off] {
		case ' ', '\t', '\r':
			c.off++
		default:
			return
		}
	}
}

func (c *cursor) rest() string { return c.s[c.off:] }

func isIdentByte(b byte) bool {
	return b == '-' || b == '$' || b == '.' || b == '_' ||
		('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9')
}

func isWordByte(b byte) bool {
	return b == '_' || b == '.' || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9')
}

// word reads a bare keyword or type name.
func (c *cursor) word() string {
	start := c.off
	for !c.eof() && isWordByte(c.s[c.off]) {
		c.off++
	}
	return c.s[start:c.off]
}

// ident reads the body of an @ or % identifier; the sigil must already be consumed.
// Quoted names are unescaped.
func (c *cursor) ident() (string, error) {
	if c.peek() == '"' {
		return c.quoted()
	}
	start := c.off
	for !c.eof() && isIdentByte(c.s[c.off]) {
		c.off++
	}
	if start == c.off {
		return "", fmt.Errorf("expected identifier")
	}
	return c.s[start:c.off], nil
}

// quoted reads a "..." literal with LLVM \XX escapes.
func (c *cursor) quoted() (string, error) {
	if !c.eat('"') {
		return "", fmt.Errorf("expected '\"'")
	}
	start := c.off
	end := strings.IndexByte(c.s[start:], '"')
	if end < 0 {
		c.off = len(c.s)
		return "", fmt.Errorf("unterminated string")
	}
	raw := c.s[start : start+end]
	c.off = start + end + 1
	return unescape(raw), nil
}

// skipQuoted moves past a "..." literal without decoding it.
func (c *cursor) skipQuoted() {
	c.eat('"')
	end := strings.IndexByte(c.s[c.off:], '"')
	if end < 0 {
		c.off = len(c.s)
		return
	}
	c.off += end + 1
}

// skipGroup moves past a balanced bracket group starting at the cursor.
func (c *cursor) skipGroup() {
	depth := 0
	for !c.eof() {
		switch c.s[c.off] {
		case '"':
			c.skipQuoted()
			continue
		case '(', '{', '[', '<':
			depth++
		case ')', '}', ']', '>':
			depth--
			if depth <= 0 {
				c.off++
				return
			}
		}
		c.off++
	}
}

func unescape(raw string) string {
	if strings.IndexByte(raw, '\\') < 0 {
		return raw
	}
	var sb strings.Builder
	sb.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		if ch != '\\' {
			sb.WriteByte(ch)
			continue
		}
		if i+1 < len(raw) && raw[i+1] == '\\' {
			sb.WriteByte('\\')
			i++
			continue
		}
		if i+2 < len(raw) {
			hi, okHi := fromHex(raw[i+1])
			lo, okLo := fromHex(raw[i+2])
			if okHi && okLo {
				sb.WriteByte(hi<<4 | lo)
				i += 2
				continue
			}
		}
		sb.WriteByte(ch)
	}
	return sb.String()
}

func fromHex(b byte) (byte, bool) {
	switch {
	case '0' <= b && b <= '9':
		return b - '0', true
	case 'a' <= b && b <= 'f':
		return b - 'a' + 10, true
	case 'A' <= b && b <= 'F':
		return b - 'A' + 10, true
	default:
		return 0, false
	}
}

// stripComment drops a trailing ';' comment that is not inside a string.
func stripComment(s string) string {
	inStr := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inStr = !inStr
		case ';':
			if !inStr {
				return strings.TrimRight(s[:i], " \t")
			}
		}
	}
	return s
}

// indexOutsideStrings finds sub in s, ignoring occurrences inside "..." literals.
func indexOutsideStrings(s, sub string) int {
	inStr := false
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i] == '"' {
			inStr = !inStr
			continue
		}
		if !inStr && strings.HasPrefix(s[i:], sub) {
			return i
		}
	}
	return -1
}

func validText(s string) bool { return utf8.ValidString(s) }

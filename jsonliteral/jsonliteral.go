// Package jsonliteral parses a JSON literal and grafts it onto a
// pre-existing node in the document tree. The outermost parsed
// value reuses the target key -- so anything elsewhere in the tree
// that already points at that key keeps pointing at the right place
// after the graft -- while every nested object, array, or scalar gets
// a freshly allocated key.
package jsonliteral

import (
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/wvankleunen/jsondb/jsonerr"
	"github.com/wvankleunen/jsondb/node"
	"github.com/wvankleunen/jsondb/txn"
	"github.com/wvankleunen/jsondb/valuekey"
)

// Graft parses literal as a single JSON value and stores it at
// targetKey, replacing whatever was there before. Any subtree
// previously owned by targetKey is deleted first.
func Graft(t *txn.Transaction, targetKey valuekey.Key, literal string) error {
	if err := clearChildren(t, targetKey); err != nil {
		return err
	}
	p := &parser{src: literal}
	if err := graftValue(t, targetKey, p); err != nil {
		return err
	}
	p.skipSpace()
	if !p.done() {
		return jsonerr.JsonSyntax("unexpected trailing content", p.pos)
	}
	return nil
}

func clearChildren(t *txn.Transaction, key valuekey.Key) error {
	old, found, err := t.Retrieve(key)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	for _, child := range old.ChildKeys() {
		if err := t.DeleteSubtree(child); err != nil {
			return err
		}
	}
	return nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) done() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.done() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) skipSpace() {
	for !p.done() {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func graftValue(t *txn.Transaction, key valuekey.Key, p *parser) error {
	p.skipSpace()
	if p.done() {
		return jsonerr.JsonSyntax("unexpected end of input", p.pos)
	}
	switch p.peek() {
	case '{':
		return graftObject(t, key, p)
	case '[':
		return graftArray(t, key, p)
	case '"', '\'':
		s, err := parseString(p, p.peek())
		if err != nil {
			return err
		}
		return t.Store(node.NewString(key, s))
	case 't':
		if err := expectLiteral(p, "true"); err != nil {
			return err
		}
		return t.Store(node.NewBoolean(key, true))
	case 'f':
		if err := expectLiteral(p, "false"); err != nil {
			return err
		}
		return t.Store(node.NewBoolean(key, false))
	case 'n':
		if err := expectLiteral(p, "null"); err != nil {
			return err
		}
		return t.Store(node.NewNull(key))
	default:
		return graftNumber(t, key, p)
	}
}

func expectLiteral(p *parser, lit string) error {
	if p.pos+len(lit) > len(p.src) || p.src[p.pos:p.pos+len(lit)] != lit {
		return jsonerr.JsonSyntax("expected '"+lit+"'", p.pos)
	}
	p.pos += len(lit)
	return nil
}

func graftObject(t *txn.Transaction, key valuekey.Key, p *parser) error {
	p.pos++ // consume '{'
	entries := make(map[string]valuekey.Key)
	p.skipSpace()
	if p.peek() == '}' {
		p.pos++
		return t.Store(node.NewObject(key, entries))
	}
	for {
		p.skipSpace()
		quote := p.peek()
		if quote != '"' && quote != '\'' {
			return jsonerr.JsonSyntax("expected a quoted member name", p.pos)
		}
		name, err := parseString(p, quote)
		if err != nil {
			return err
		}
		p.skipSpace()
		if p.peek() != ':' {
			return jsonerr.JsonSyntax("expected ':' after member name", p.pos)
		}
		p.pos++
		childKey := t.GenerateKey()
		if err := graftValue(t, childKey, p); err != nil {
			return err
		}
		entries[name] = childKey
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
			continue
		case '}':
			p.pos++
			return t.Store(node.NewObject(key, entries))
		default:
			return jsonerr.JsonSyntax("expected ',' or '}'", p.pos)
		}
	}
}

func graftArray(t *txn.Transaction, key valuekey.Key, p *parser) error {
	p.pos++ // consume '['
	var children []valuekey.Key
	p.skipSpace()
	if p.peek() == ']' {
		p.pos++
		return t.Store(node.NewArray(key, children))
	}
	for {
		childKey := t.GenerateKey()
		if err := graftValue(t, childKey, p); err != nil {
			return err
		}
		children = append(children, childKey)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
			continue
		case ']':
			p.pos++
			return t.Store(node.NewArray(key, children))
		default:
			return jsonerr.JsonSyntax("expected ',' or ']'", p.pos)
		}
	}
}

func graftNumber(t *txn.Transaction, key valuekey.Key, p *parser) error {
	start := p.pos
	isReal := false
	if p.peek() == '-' {
		p.pos++
	}
	for !p.done() && isDigit(p.peek()) {
		p.pos++
	}
	if !p.done() && p.peek() == '.' {
		isReal = true
		p.pos++
		for !p.done() && isDigit(p.peek()) {
			p.pos++
		}
	}
	if !p.done() && (p.peek() == 'e' || p.peek() == 'E') {
		isReal = true
		p.pos++
		if !p.done() && (p.peek() == '+' || p.peek() == '-') {
			p.pos++
		}
		for !p.done() && isDigit(p.peek()) {
			p.pos++
		}
	}
	if p.pos == start {
		return jsonerr.JsonSyntax("expected a value", p.pos)
	}
	text := p.src[start:p.pos]
	if isReal {
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return jsonerr.JsonSyntax("malformed number literal", start)
		}
		return t.Store(node.NewReal(key, v))
	}
	v, err := strconv.ParseInt(text, 10, 32)
	if err != nil {
		return jsonerr.JsonSyntax("integer literal out of range", start)
	}
	return t.Store(node.NewInteger(key, int32(v)))
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// parseString reads a string literal delimited by quote (either '"'
// or '\'', so both single- and double-quoted strings are accepted).
func parseString(p *parser, quote byte) (string, error) {
	p.pos++ // consume opening quote
	var sb strings.Builder
	for {
		if p.done() {
			return "", jsonerr.JsonSyntax("unterminated string literal", p.pos)
		}
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return sb.String(), nil
		case c == '\\':
			p.pos++
			if p.done() {
				return "", jsonerr.JsonSyntax("dangling escape in string literal", p.pos)
			}
			esc := p.src[p.pos]
			switch esc {
			case '"', '\'', '\\', '/':
				sb.WriteByte(esc)
				p.pos++
			case 'b':
				sb.WriteByte('\b')
				p.pos++
			case 'f':
				sb.WriteByte('\f')
				p.pos++
			case 'n':
				sb.WriteByte('\n')
				p.pos++
			case 'r':
				sb.WriteByte('\r')
				p.pos++
			case 't':
				sb.WriteByte('\t')
				p.pos++
			case 'u':
				r, err := parseUnicodeEscape(p)
				if err != nil {
					return "", err
				}
				sb.WriteRune(r)
			default:
				return "", jsonerr.JsonSyntax("unsupported escape character", p.pos)
			}
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
}

func parseUnicodeEscape(p *parser) (rune, error) {
	p.pos++ // consume 'u'
	hi, err := parseHex4(p)
	if err != nil {
		return 0, err
	}
	if utf16.IsSurrogate(rune(hi)) {
		if p.pos+1 < len(p.src) && p.src[p.pos] == '\\' && p.src[p.pos+1] == 'u' {
			save := p.pos
			p.pos += 2
			lo, err := parseHex4(p)
			if err == nil {
				if r := utf16.DecodeRune(rune(hi), rune(lo)); r != utf8.RuneError {
					return r, nil
				}
			}
			p.pos = save
		}
		return utf8.RuneError, nil
	}
	return rune(hi), nil
}

func parseHex4(p *parser) (uint16, error) {
	if p.pos+4 > len(p.src) {
		return 0, jsonerr.JsonSyntax("truncated \\u escape", p.pos)
	}
	v, err := strconv.ParseUint(p.src[p.pos:p.pos+4], 16, 16)
	if err != nil {
		return 0, jsonerr.JsonSyntax("malformed \\u escape", p.pos)
	}
	p.pos += 4
	return uint16(v), nil
}

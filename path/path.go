// Package path implements the JSONPath-subset grammar: a leading
// "$", followed by any mix of ".name", "['name']"/"[\"name\"]" and
// "[int]" segments. Quoted names accept the escapes \b \t \n \f \r
// \" \' \\. It parses an expression into a Path once and resolves it
// against a live transaction as many times as needed.
package path

import (
	"strconv"
	"strings"

	"github.com/wvankleunen/jsondb/jsonerr"
)

// SegmentKind distinguishes a named (object) step from an indexed
// (array) step.
type SegmentKind int

const (
	Name SegmentKind = iota
	Index
)

// Segment is one step of a parsed path.
type Segment struct {
	Kind  SegmentKind
	Name  string
	Index int
}

// Path is a parsed JSONPath-subset expression, ready to be resolved
// against a tree root any number of times.
type Path struct {
	Segments []Segment
	raw      string
}

// String returns the original expression the Path was parsed from.
func (p *Path) String() string { return p.raw }

// Parse parses expr, which must begin with "$". An empty segment list
// (just "$") refers to the document root.
func Parse(expr string) (*Path, error) {
	if !strings.HasPrefix(expr, "$") {
		return nil, jsonerr.PathSyntax(expr, "path must start with '$'")
	}
	p := &parser{src: expr, pos: 1}
	segs, err := p.parseSegments()
	if err != nil {
		return nil, err
	}
	return &Path{Segments: segs, raw: expr}, nil
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

func (p *parser) parseSegments() ([]Segment, error) {
	var segs []Segment
	for !p.done() {
		switch p.peek() {
		case '.':
			seg, err := p.parseDotName()
			if err != nil {
				return nil, err
			}
			segs = append(segs, seg)
		case '[':
			seg, err := p.parseBracket()
			if err != nil {
				return nil, err
			}
			segs = append(segs, seg)
		default:
			return nil, jsonerr.PathSyntax(p.src, "expected '.' or '[' at offset "+strconv.Itoa(p.pos))
		}
	}
	return segs, nil
}

func (p *parser) parseDotName() (Segment, error) {
	p.pos++ // consume '.'
	if p.done() || !isNameStart(p.peek()) {
		return Segment{}, jsonerr.PathSyntax(p.src, "expected a name after '.'")
	}
	start := p.pos
	for !p.done() && isNameChar(p.src[p.pos]) {
		p.pos++
	}
	return Segment{Kind: Name, Name: p.src[start:p.pos]}, nil
}

// Unquoted names follow the grammar alpha (alnum | '_')*; anything
// else must be bracket-quoted.
func isNameStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isNameChar(c byte) bool {
	return isNameStart(c) || c >= '0' && c <= '9' || c == '_'
}

func (p *parser) parseBracket() (Segment, error) {
	p.pos++ // consume '['
	if p.done() {
		return Segment{}, jsonerr.PathSyntax(p.src, "unterminated '['")
	}
	var seg Segment
	switch p.peek() {
	case '\'':
		name, err := p.parseQuoted('\'')
		if err != nil {
			return Segment{}, err
		}
		seg = Segment{Kind: Name, Name: name}
	case '"':
		name, err := p.parseQuoted('"')
		if err != nil {
			return Segment{}, err
		}
		seg = Segment{Kind: Name, Name: name}
	default:
		start := p.pos
		if p.peek() == '-' {
			p.pos++
		}
		for !p.done() && p.peek() >= '0' && p.peek() <= '9' {
			p.pos++
		}
		if p.pos == start {
			return Segment{}, jsonerr.PathSyntax(p.src, "expected a quoted name or integer inside '['")
		}
		idx, err := strconv.Atoi(p.src[start:p.pos])
		if err != nil {
			return Segment{}, jsonerr.PathSyntax(p.src, "malformed integer index")
		}
		seg = Segment{Kind: Index, Index: idx}
	}
	if p.done() || p.peek() != ']' {
		return Segment{}, jsonerr.PathSyntax(p.src, "expected closing ']'")
	}
	p.pos++
	return seg, nil
}

func (p *parser) parseQuoted(quote byte) (string, error) {
	p.pos++ // consume opening quote
	var sb strings.Builder
	for {
		if p.done() {
			return "", jsonerr.PathSyntax(p.src, "unterminated quoted name")
		}
		c := p.src[p.pos]
		if c == quote {
			p.pos++
			return sb.String(), nil
		}
		if c == '\\' {
			p.pos++
			if p.done() {
				return "", jsonerr.PathSyntax(p.src, "dangling escape at end of path")
			}
			esc, err := unescape(p.src[p.pos])
			if err != nil {
				return "", jsonerr.PathSyntax(p.src, err.Error())
			}
			sb.WriteByte(esc)
			p.pos++
			continue
		}
		sb.WriteByte(c)
		p.pos++
	}
}

func unescape(c byte) (byte, error) {
	switch c {
	case 'b':
		return '\b', nil
	case 't':
		return '\t', nil
	case 'n':
		return '\n', nil
	case 'f':
		return '\f', nil
	case 'r':
		return '\r', nil
	case '"':
		return '"', nil
	case '\'':
		return '\'', nil
	case '\\':
		return '\\', nil
	default:
		return 0, strconvError(c)
	}
}

func strconvError(c byte) error {
	return &unescapeError{c}
}

type unescapeError struct{ c byte }

func (e *unescapeError) Error() string {
	return "unsupported escape character '" + string(e.c) + "'"
}

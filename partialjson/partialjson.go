// Package partialjson parses possibly-truncated JSON text, the kind a tool
// call's arguments accumulate into one delta at a time. It never returns an
// error: an incomplete token is simply closed at the point it was cut off,
// so a caller can render a live preview of streaming arguments without
// waiting for the closing brace.
package partialjson

import (
	"strconv"
	"strings"
)

// Parse best-effort parses s, closing any open string, array, or object at
// the point the input ends. An empty or whitespace-only s parses to nil.
func Parse(s string) any {
	p := &parser{input: s}
	p.skipSpace()
	if p.pos >= len(p.input) {
		return nil
	}
	v, _ := p.parseValue()
	return v
}

type parser struct {
	input string
	pos   int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) {
		switch p.input[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) eof() bool { return p.pos >= len(p.input) }

// parseValue returns the parsed value and whether the input ran out before
// the value could be confirmed complete (used by containers to decide
// whether to keep accepting more elements, though at top level truncation
// is simply tolerated).
func (p *parser) parseValue() (any, bool) {
	p.skipSpace()
	if p.eof() {
		return nil, true
	}
	switch c := p.input[p.pos]; {
	case c == '{':
		return p.parseObject()
	case c == '[':
		return p.parseArray()
	case c == '"':
		return p.parseString()
	case c == 't' || c == 'f':
		return p.parseBool()
	case c == 'n':
		return p.parseNull()
	case c == '-' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	default:
		// Unrecognized token start; skip it rather than error.
		p.pos++
		return nil, true
	}
}

func (p *parser) parseObject() (any, bool) {
	p.pos++ // consume '{'
	out := map[string]any{}
	for {
		p.skipSpace()
		if p.eof() {
			return out, true
		}
		if p.input[p.pos] == '}' {
			p.pos++
			return out, false
		}
		if p.input[p.pos] != '"' {
			return out, true
		}
		key, truncated := p.parseString()
		if truncated {
			return out, true
		}
		p.skipSpace()
		if p.eof() || p.input[p.pos] != ':' {
			return out, true
		}
		p.pos++ // consume ':'
		p.skipSpace()
		if p.eof() {
			return out, true
		}
		val, vTruncated := p.parseValue()
		out[key.(string)] = val
		if vTruncated {
			return out, true
		}
		p.skipSpace()
		if p.eof() {
			return out, true
		}
		switch p.input[p.pos] {
		case ',':
			p.pos++
			continue
		case '}':
			p.pos++
			return out, false
		default:
			return out, true
		}
	}
}

func (p *parser) parseArray() (any, bool) {
	p.pos++ // consume '['
	out := []any{}
	for {
		p.skipSpace()
		if p.eof() {
			return out, true
		}
		if p.input[p.pos] == ']' {
			p.pos++
			return out, false
		}
		val, truncated := p.parseValue()
		out = append(out, val)
		if truncated {
			return out, true
		}
		p.skipSpace()
		if p.eof() {
			return out, true
		}
		switch p.input[p.pos] {
		case ',':
			p.pos++
			continue
		case ']':
			p.pos++
			return out, false
		default:
			return out, true
		}
	}
}

func (p *parser) parseString() (any, bool) {
	p.pos++ // consume opening quote
	var b strings.Builder
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c == '"' {
			p.pos++
			return b.String(), false
		}
		if c == '\\' {
			p.pos++
			if p.pos >= len(p.input) {
				return b.String(), true
			}
			esc := p.input[p.pos]
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '"', '\\', '/':
				b.WriteByte(esc)
			case 'u':
				if p.pos+4 < len(p.input) {
					if n, err := strconv.ParseInt(p.input[p.pos+1:p.pos+5], 16, 32); err == nil {
						b.WriteRune(rune(n))
						p.pos += 4
					}
				} else {
					return b.String(), true
				}
			default:
				b.WriteByte(esc)
			}
			p.pos++
			continue
		}
		b.WriteByte(c)
		p.pos++
	}
	// Ran off the end mid-string: close it where it stands.
	return b.String(), true
}

func (p *parser) parseBool() (any, bool) {
	if strings.HasPrefix(p.input[p.pos:], "true") {
		p.pos += 4
		return true, false
	}
	if strings.HasPrefix(p.input[p.pos:], "false") {
		p.pos += 5
		return false, false
	}
	// Truncated partway through true/false; can't guess the value.
	p.pos = len(p.input)
	return nil, true
}

func (p *parser) parseNull() (any, bool) {
	if strings.HasPrefix(p.input[p.pos:], "null") {
		p.pos += 4
		return nil, false
	}
	p.pos = len(p.input)
	return nil, true
}

func (p *parser) parseNumber() (any, bool) {
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.' || c == 'e' || c == 'E' {
			p.pos++
			continue
		}
		break
	}
	text := p.input[start:p.pos]
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, true
	}
	return n, p.eof()
}

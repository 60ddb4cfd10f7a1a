package interp

import (
	"strconv"
	"strings"
)

// jsonEncode renders v as JSON text (spec §4.7's `json` stdlib module), grounded on the same
// recursive-descent style as the rest of this package's hand-written parsers rather than
// reaching for encoding/json, since v's dynamic pyObject shape has no static Go type encoding/json
// could marshal through.
func jsonEncode(v pyObject) string {
	var sb strings.Builder
	writeJSON(&sb, v)
	return sb.String()
}

func writeJSON(sb *strings.Builder, v pyObject) {
	switch t := v.(type) {
	case pyNone:
		sb.WriteString("null")
	case pyBool:
		if t {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case pyInt:
		sb.WriteString(t.v.String())
	case pyFloat:
		sb.WriteString(strconv.FormatFloat(float64(t), 'g', -1, 64))
	case pyString:
		writeJSONString(sb, string(t))
	case *pyList:
		sb.WriteByte('[')
		for i, item := range t.items {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeJSON(sb, item)
		}
		sb.WriteByte(']')
	case pyTuple:
		sb.WriteByte('[')
		for i, item := range t.items {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeJSON(sb, item)
		}
		sb.WriteByte(']')
	case *pyDict:
		sb.WriteByte('{')
		for i, e := range t.entries {
			if i > 0 {
				sb.WriteByte(',')
			}
			if s, ok := e.key.(pyString); ok {
				writeJSONString(sb, string(s))
			} else {
				writeJSONString(sb, reprOf(e.key))
			}
			sb.WriteByte(':')
			writeJSON(sb, e.value)
		}
		sb.WriteByte('}')
	default:
		writeJSONString(sb, v.String())
	}
}

func writeJSONString(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
}

// jsonDecode parses a JSON value from the start of s, returning the decoded value and the
// unconsumed remainder.
func jsonDecode(ctx *Context, s string) (pyObject, string, error) {
	s = strings.TrimLeft(s, " \t\n\r")
	if s == "" {
		return nil, s, ctx.newValueError("unexpected end of JSON input")
	}
	switch {
	case s[0] == '{':
		return jsonDecodeObject(ctx, s)
	case s[0] == '[':
		return jsonDecodeArray(ctx, s)
	case s[0] == '"':
		return jsonDecodeString(ctx, s)
	case strings.HasPrefix(s, "true"):
		return True, s[4:], nil
	case strings.HasPrefix(s, "false"):
		return False, s[5:], nil
	case strings.HasPrefix(s, "null"):
		return None, s[4:], nil
	default:
		return jsonDecodeNumber(ctx, s)
	}
}

func jsonDecodeObject(ctx *Context, s string) (pyObject, string, error) {
	d := newPyDict()
	s = s[1:]
	s = strings.TrimLeft(s, " \t\n\r")
	if len(s) > 0 && s[0] == '}' {
		return d, s[1:], nil
	}
	for {
		s = strings.TrimLeft(s, " \t\n\r")
		key, rest, err := jsonDecodeString(ctx, s)
		if err != nil {
			return nil, s, err
		}
		s = strings.TrimLeft(rest, " \t\n\r")
		if len(s) == 0 || s[0] != ':' {
			return nil, s, ctx.newValueError("expected ':' in JSON object")
		}
		s = s[1:]
		val, rest2, err := jsonDecode(ctx, s)
		if err != nil {
			return nil, s, err
		}
		d.Set(ctx, key, val)
		s = strings.TrimLeft(rest2, " \t\n\r")
		if len(s) == 0 {
			return nil, s, ctx.newValueError("unterminated JSON object")
		}
		if s[0] == ',' {
			s = s[1:]
			continue
		}
		if s[0] == '}' {
			return d, s[1:], nil
		}
		return nil, s, ctx.newValueError("expected ',' or '}' in JSON object")
	}
}

func jsonDecodeArray(ctx *Context, s string) (pyObject, string, error) {
	var items []pyObject
	s = s[1:]
	s = strings.TrimLeft(s, " \t\n\r")
	if len(s) > 0 && s[0] == ']' {
		return newPyList(items), s[1:], nil
	}
	for {
		val, rest, err := jsonDecode(ctx, s)
		if err != nil {
			return nil, s, err
		}
		items = append(items, val)
		s = strings.TrimLeft(rest, " \t\n\r")
		if len(s) == 0 {
			return nil, s, ctx.newValueError("unterminated JSON array")
		}
		if s[0] == ',' {
			s = s[1:]
			continue
		}
		if s[0] == ']' {
			return newPyList(items), s[1:], nil
		}
		return nil, s, ctx.newValueError("expected ',' or ']' in JSON array")
	}
}

func jsonDecodeString(ctx *Context, s string) (pyString, string, error) {
	if len(s) == 0 || s[0] != '"' {
		return "", s, ctx.newValueError("expected string in JSON input")
	}
	var sb strings.Builder
	i := 1
	for i < len(s) && s[i] != '"' {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			default:
				sb.WriteByte(s[i+1])
			}
			i += 2
			continue
		}
		sb.WriteByte(s[i])
		i++
	}
	if i >= len(s) {
		return "", s, ctx.newValueError("unterminated JSON string")
	}
	return pyString(sb.String()), s[i+1:], nil
}

func jsonDecodeNumber(ctx *Context, s string) (pyObject, string, error) {
	i := 0
	isFloat := false
	for i < len(s) && (s[i] == '-' || s[i] == '+' || s[i] == '.' || s[i] == 'e' || s[i] == 'E' || (s[i] >= '0' && s[i] <= '9')) {
		if s[i] == '.' || s[i] == 'e' || s[i] == 'E' {
			isFloat = true
		}
		i++
	}
	if i == 0 {
		return nil, s, ctx.newValueError("invalid JSON value")
	}
	text := s[:i]
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, s, ctx.newValueError("invalid JSON number: %s", text)
		}
		return pyFloat(f), s[i:], nil
	}
	return newPyIntFromString(ctx, text), s[i:], nil
}

package interp

import (
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// formatSpec is a parsed Python format-spec mini-language string (spec §4.5's f-string
// formatting): [[fill]align][sign][#][0][width][,][.precision][type].
type formatSpec struct {
	fill      rune
	align     byte // '<', '>', '^', '=', or 0 for default
	sign      byte // '+', '-', ' ', or 0 for default
	width     int
	comma     bool
	precision int
	hasPrec   bool
	kind      byte // 'f', 'd', 'x', 'X', 'o', 'b', 'e', '%', 's', or 0
}

func parseFormatSpec(spec string) formatSpec {
	var fs formatSpec
	fs.fill = ' '
	r := []rune(spec)
	i := 0
	if len(r) >= 2 && strings.ContainsRune("<>^=", r[1]) {
		fs.fill = r[0]
		fs.align = byte(r[1])
		i = 2
	} else if len(r) >= 1 && strings.ContainsRune("<>^=", r[0]) {
		fs.align = byte(r[0])
		i = 1
	}
	if i < len(r) && strings.ContainsRune("+- ", r[i]) {
		fs.sign = byte(r[i])
		i++
	}
	if i < len(r) && r[i] == '#' {
		i++
	}
	if i < len(r) && r[i] == '0' {
		if fs.align == 0 {
			fs.align = '='
			fs.fill = '0'
		}
		i++
	}
	start := i
	for i < len(r) && r[i] >= '0' && r[i] <= '9' {
		i++
	}
	if i > start {
		fs.width, _ = strconv.Atoi(string(r[start:i]))
	}
	if i < len(r) && r[i] == ',' {
		fs.comma = true
		i++
	}
	if i < len(r) && r[i] == '.' {
		i++
		start = i
		for i < len(r) && r[i] >= '0' && r[i] <= '9' {
			i++
		}
		fs.precision, _ = strconv.Atoi(string(r[start:i]))
		fs.hasPrec = true
	}
	if i < len(r) {
		fs.kind = byte(r[i])
	}
	return fs
}

// applyFormatSpec renders v according to spec, falling back to text (str(v)) for anything the
// mini-language doesn't recognize about v's type.
func applyFormatSpec(v pyObject, spec string, text string) string {
	fs := parseFormatSpec(spec)
	var rendered string
	switch fs.kind {
	case 'f', 'F', 'e', 'E', '%':
		f, ok := asFloat(v)
		if !ok {
			rendered = text
			break
		}
		prec := 6
		if fs.hasPrec {
			prec = fs.precision
		}
		if fs.kind == '%' {
			rendered = strconv.FormatFloat(f*100, 'f', prec, 64) + "%"
		} else {
			rendered = strconv.FormatFloat(f, byte(fs.kind|0x20), prec, 64)
		}
		rendered = applySign(rendered, fs.sign, f < 0)
	case 'd':
		i, ok := toInt(v)
		if !ok {
			rendered = text
			break
		}
		rendered = i.v.String()
		if fs.comma {
			rendered = humanize.Comma(i.v.Int64())
		}
		rendered = applySign(rendered, fs.sign, i.v.Sign() < 0)
	case 'x':
		i, ok := toInt(v)
		if ok {
			rendered = strings.ToLower(i.v.Text(16))
		} else {
			rendered = text
		}
	case 'X':
		i, ok := toInt(v)
		if ok {
			rendered = strings.ToUpper(i.v.Text(16))
		} else {
			rendered = text
		}
	case 'o':
		i, ok := toInt(v)
		if ok {
			rendered = i.v.Text(8)
		} else {
			rendered = text
		}
	case 'b':
		i, ok := toInt(v)
		if ok {
			rendered = i.v.Text(2)
		} else {
			rendered = text
		}
	case 's', 0:
		rendered = text
		if fs.hasPrec && len(rendered) > fs.precision {
			rendered = rendered[:fs.precision]
		}
		if fs.comma {
			if f, ok := asFloat(v); ok {
				rendered = humanize.Commaf(f)
			}
		}
	default:
		rendered = text
	}
	return pad(rendered, fs)
}

func applySign(s string, sign byte, negative bool) string {
	if negative {
		return s
	}
	switch sign {
	case '+':
		return "+" + s
	case ' ':
		return " " + s
	}
	return s
}

func pad(s string, fs formatSpec) string {
	if fs.width <= 0 || len([]rune(s)) >= fs.width {
		return s
	}
	padLen := fs.width - len([]rune(s))
	fill := string(fs.fill)
	align := fs.align
	if align == 0 {
		align = '<'
	}
	switch align {
	case '>':
		return strings.Repeat(fill, padLen) + s
	case '^':
		left := padLen / 2
		right := padLen - left
		return strings.Repeat(fill, left) + s + strings.Repeat(fill, right)
	case '=':
		if len(s) > 0 && (s[0] == '-' || s[0] == '+') {
			return string(s[0]) + strings.Repeat(fill, padLen) + s[1:]
		}
		return strings.Repeat(fill, padLen) + s
	default:
		return s + strings.Repeat(fill, padLen)
	}
}

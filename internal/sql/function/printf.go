package function

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tuannm99/novalite/internal/record"
)

// printf implements printf()/format() for the common conversions:
// %d %i %u %f %e %E %g %G %x %X %o %c %s %z %q %Q %w and %%.
func printf(args []record.Value, _ record.Collation) (record.Value, error) {
	if args[0].IsNull() {
		return record.Null, nil
	}
	format := args[0].AsText()
	rest := args[1:]
	next := func() record.Value {
		if len(rest) == 0 {
			return record.Null
		}
		v := rest[0]
		rest = rest[1:]
		return v
	}

	var out strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			out.WriteByte(c)
			continue
		}
		i++
		if i >= len(format) {
			break
		}
		var flags strings.Builder
		for i < len(format) && strings.IndexByte("-+ 0#,!", format[i]) >= 0 {
			flags.WriteByte(format[i])
			i++
		}
		width := ""
		if i < len(format) && format[i] == '*' {
			width = strconv.FormatInt(next().AsInt(), 10)
			i++
		} else {
			for i < len(format) && format[i] >= '0' && format[i] <= '9' {
				width += string(format[i])
				i++
			}
		}
		prec := ""
		hasPrec := false
		if i < len(format) && format[i] == '.' {
			hasPrec = true
			i++
			if i < len(format) && format[i] == '*' {
				prec = strconv.FormatInt(next().AsInt(), 10)
				i++
			} else {
				for i < len(format) && format[i] >= '0' && format[i] <= '9' {
					prec += string(format[i])
					i++
				}
			}
			if prec == "" {
				prec = "0"
			}
		}
		// Length modifiers carry no meaning here.
		for i < len(format) && (format[i] == 'l' || format[i] == 'h') {
			i++
		}
		if i >= len(format) {
			break
		}
		fl := flags.String()
		thousands := strings.Contains(fl, ",")
		fl = strings.NewReplacer(",", "", "!", "").Replace(fl)
		spec := "%" + fl + width
		if hasPrec {
			spec += "." + prec
		}

		switch conv := format[i]; conv {
		case '%':
			out.WriteByte('%')
		case 'd', 'i', 'u':
			n := next().AsInt()
			if thousands {
				out.WriteString(padString(groupThousands(n), fl, width))
			} else {
				out.WriteString(fmt.Sprintf(spec+"d", n))
			}
		case 'f', 'e', 'E', 'g', 'G':
			f := next().AsFloat()
			if !hasPrec {
				spec += ".6"
			}
			out.WriteString(fmt.Sprintf(spec+string(conv), f))
		case 'x', 'X', 'o':
			out.WriteString(fmt.Sprintf(spec+string(conv), uint64(next().AsInt())))
		case 'c':
			s := next().AsText()
			if s != "" {
				r, _ := utf8.DecodeRuneInString(s)
				out.WriteString(padString(string(r), fl, width))
			}
		case 's', 'z':
			s := next().AsText()
			if hasPrec {
				p, _ := strconv.Atoi(prec)
				if r := []rune(s); p < len(r) {
					s = string(r[:p])
				}
			}
			out.WriteString(padString(s, fl, width))
		case 'q':
			out.WriteString(padString(strings.ReplaceAll(next().AsText(), "'", "''"), fl, width))
		case 'Q':
			v := next()
			if v.IsNull() {
				out.WriteString(padString("NULL", fl, width))
			} else {
				out.WriteString(padString("'"+strings.ReplaceAll(v.AsText(), "'", "''")+"'", fl, width))
			}
		case 'w':
			out.WriteString(padString(strings.ReplaceAll(next().AsText(), `"`, `""`), fl, width))
		default:
			out.WriteByte('%')
			out.WriteByte(conv)
		}
	}
	return record.Text(out.String()), nil
}

func padString(s, flags, width string) string {
	w, _ := strconv.Atoi(width)
	n := utf8.RuneCountInString(s)
	if n >= w {
		return s
	}
	pad := strings.Repeat(" ", w-n)
	if strings.Contains(flags, "-") {
		return s + pad
	}
	return pad + s
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var out []byte
	for i := range len(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}

// Package shell holds the text front ends of a session: the line protocol
// spoken to test harnesses and the interactive console.
package shell

import (
	"strings"

	"github.com/tuannm99/novalite/internal/record"
)

// Formatter renders values as text for the line protocol.
type Formatter struct {
	NullText  string
	EmptyText string
	Separator string
}

func DefaultFormatter() Formatter {
	return Formatter{NullText: "NULL", EmptyText: "(empty)", Separator: "\t"}
}

// Value renders v. Blobs print as upper-case hex and text is passed through
// Printable.
func (f Formatter) Value(v record.Value) string {
	switch v.Kind() {
	case record.KindNull:
		return f.NullText
	case record.KindBlob:
		if len(v.Str()) == 0 {
			return f.EmptyText
		}
		return record.Hex(v)
	case record.KindText:
		if v.Str() == "" {
			return f.EmptyText
		}
		return Printable(v.Str())
	default:
		return v.AsText()
	}
}

// Row renders a row with the separator between values.
func (f Formatter) Row(row record.Row) string {
	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = f.Value(v)
	}
	return strings.Join(parts, f.Separator)
}

// Printable replaces every byte outside printable ASCII with '@', so a
// value never breaks the line or column structure of the output.
func Printable(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] < ' ' || s[i] > '~' {
			b := []byte(s)
			for j := i; j < len(b); j++ {
				if b[j] < ' ' || b[j] > '~' {
					b[j] = '@'
				}
			}
			return string(b)
		}
	}
	return s
}

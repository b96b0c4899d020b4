package record

import (
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Collation orders text values.
type Collation interface {
	Name() string
	Compare(a, b string) int
	// Key maps s to a string that is byte-equal for every pair of inputs the
	// collation considers equal. Used for hashing and grouping.
	Key(s string) string
}

var (
	Binary  Collation = binaryCollation{}
	NoCase  Collation = nocaseCollation{}
	RTrim   Collation = rtrimCollation{}
	Unicode Collation = newUnicodeCollation()
)

var collations = map[string]Collation{
	"BINARY":  Binary,
	"NOCASE":  NoCase,
	"RTRIM":   RTrim,
	"UNICODE": Unicode,
}

// LookupCollation finds a collation by case-insensitive name.
func LookupCollation(name string) (Collation, bool) {
	c, ok := collations[strings.ToUpper(name)]
	return c, ok
}

type binaryCollation struct{}

func (binaryCollation) Name() string            { return "BINARY" }
func (binaryCollation) Compare(a, b string) int { return strings.Compare(a, b) }
func (binaryCollation) Key(s string) string     { return s }

// nocaseCollation folds ASCII letters only.
type nocaseCollation struct{}

func (nocaseCollation) Name() string { return "NOCASE" }

func (nocaseCollation) Compare(a, b string) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		ca, cb := lowerASCII(a[i]), lowerASCII(b[i])
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

func (nocaseCollation) Key(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}

func lowerASCII(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

// rtrimCollation ignores trailing spaces.
type rtrimCollation struct{}

func (rtrimCollation) Name() string { return "RTRIM" }
func (rtrimCollation) Compare(a, b string) int {
	return strings.Compare(strings.TrimRight(a, " "), strings.TrimRight(b, " "))
}
func (rtrimCollation) Key(s string) string { return strings.TrimRight(s, " ") }

// unicodeCollation orders by the root locale of the Unicode collation
// algorithm. A collate.Collator is not safe for concurrent use.
type unicodeCollation struct {
	mu  sync.Mutex
	c   *collate.Collator
	buf collate.Buffer
}

func newUnicodeCollation() *unicodeCollation {
	return &unicodeCollation{c: collate.New(language.Und)}
}

func (u *unicodeCollation) Name() string { return "UNICODE" }

func (u *unicodeCollation) Compare(a, b string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	if r := u.c.CompareString(a, b); r != 0 {
		return r
	}
	// Canonically equivalent but distinct strings still need a total order.
	return strings.Compare(a, b)
}

func (u *unicodeCollation) Key(s string) string {
	u.mu.Lock()
	defer u.mu.Unlock()
	k := string(u.c.KeyFromString(&u.buf, s))
	u.buf.Reset()
	return k + "\x00" + s
}

// Package slt reads sqllogictest files and runs them against sessions.
package slt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// SortMode says how query results are ordered before comparison.
type SortMode uint8

const (
	NoSort SortMode = iota
	RowSort
	ValueSort
)

func (m SortMode) String() string {
	switch m {
	case RowSort:
		return "rowsort"
	case ValueSort:
		return "valuesort"
	default:
		return "nosort"
	}
}

// RecordKind tells statements from queries.
type RecordKind uint8

const (
	KindStatement RecordKind = iota
	KindQuery
)

// Record is one statement or query of a test file.
type Record struct {
	Kind RecordKind
	Line int
	SQL  string

	// statements
	ExpectError bool

	// queries
	Types         string
	Sort          SortMode
	Label         string
	Expected      []string
	HashCount     int
	Hash          string
	HashThreshold int
}

// Hashed reports whether the expected result is given as a hash.
func (r *Record) Hashed() bool { return r.Hash != "" }

var hashLine = regexp.MustCompile(`^(\d+) values hashing to ([0-9a-f]{32})$`)

// ParseFile parses the test file at path. Records guarded by skipif/onlyif
// are dropped according to target, and parsing stops at halt.
func ParseFile(path, target string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	recs, err := Parse(f, target)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}

func Parse(r io.Reader, target string) ([]Record, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	p := &fileParser{lines: lines, target: target}
	return p.parse(), nil
}

type fileParser struct {
	lines     []string
	i         int
	target    string
	skip      bool
	threshold int
	out       []Record
}

func (p *fileParser) parse() []Record {
	for p.i < len(p.lines) {
		line := p.lines[p.i]
		lineNo := p.i + 1
		switch {
		case line == "" || strings.HasPrefix(line, "#"):
			p.i++
		case strings.HasPrefix(line, "skipif "):
			if strings.TrimSpace(line[len("skipif "):]) == p.target {
				p.skip = true
			}
			p.i++
		case strings.HasPrefix(line, "onlyif "):
			if strings.TrimSpace(line[len("onlyif "):]) != p.target {
				p.skip = true
			}
			p.i++
		case line == "halt":
			if !p.skip {
				return p.out
			}
			p.skip = false
			p.i++
		case strings.HasPrefix(line, "hash-threshold "):
			if n, err := strconv.Atoi(strings.TrimSpace(line[len("hash-threshold "):])); err == nil {
				p.threshold = n
			}
			p.i++
		case strings.HasPrefix(line, "statement "):
			p.statement(line, lineNo)
		case strings.HasPrefix(line, "query "):
			p.query(line, lineNo)
		default:
			p.i++
		}
	}
	return p.out
}

func (p *fileParser) statement(header string, lineNo int) {
	p.i++
	var sql []string
	for p.i < len(p.lines) {
		l := p.lines[p.i]
		if strings.TrimSpace(l) == "" || isDirective(l) {
			break
		}
		sql = append(sql, l)
		p.i++
	}
	if p.takeSkip() || len(sql) == 0 {
		return
	}
	p.out = append(p.out, Record{
		Kind:        KindStatement,
		Line:        lineNo,
		SQL:         strings.Join(sql, "\n"),
		ExpectError: strings.Contains(strings.ToLower(header), "error"),
	})
}

func (p *fileParser) query(header string, lineNo int) {
	p.i++
	var sql []string
	for p.i < len(p.lines) && p.lines[p.i] != "----" {
		if p.lines[p.i] != "" {
			sql = append(sql, p.lines[p.i])
		}
		p.i++
	}
	if p.i >= len(p.lines) {
		// no result section
		p.skip = false
		return
	}
	p.i++

	var expected []string
	for p.i < len(p.lines) {
		l := p.lines[p.i]
		if l == "" || isDirective(l) {
			break
		}
		if strings.Contains(l, "|") {
			expected = append(expected, strings.Split(l, "|")...)
		} else {
			expected = append(expected, l)
		}
		p.i++
	}
	fields := strings.Fields(header[len("query "):])
	if p.takeSkip() || len(sql) == 0 || len(fields) == 0 {
		return
	}

	rec := Record{
		Kind:          KindQuery,
		Line:          lineNo,
		SQL:           strings.Join(sql, "\n"),
		Types:         fields[0],
		HashThreshold: p.threshold,
	}
	for _, f := range fields[1:] {
		switch f {
		case "nosort":
			rec.Sort = NoSort
		case "rowsort":
			rec.Sort = RowSort
		case "valuesort":
			rec.Sort = ValueSort
		default:
			rec.Label = f
		}
	}
	if len(expected) == 1 {
		if m := hashLine.FindStringSubmatch(expected[0]); m != nil {
			rec.HashCount, _ = strconv.Atoi(m[1])
			rec.Hash = m[2]
			expected = nil
		}
	}
	rec.Expected = expected
	p.out = append(p.out, rec)
}

func (p *fileParser) takeSkip() bool {
	s := p.skip
	p.skip = false
	return s
}

func isDirective(line string) bool {
	line = strings.TrimLeft(line, " \t")
	for _, prefix := range []string{"statement ", "query ", "hash-threshold ", "skipif ", "onlyif "} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return line == "halt"
}

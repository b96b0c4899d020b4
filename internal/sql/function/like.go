package function

import "unicode/utf8"

func foldASCII(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + 'a' - 'A'
	}
	return r
}

// Like matches s against a LIKE pattern: '%' matches any run, '_' one
// character, ASCII letters match case-insensitively. esc, when non-zero,
// makes the following pattern character literal.
func Like(pattern, s string, esc rune) bool {
	return likeMatch([]rune(pattern), []rune(s), esc)
}

func likeMatch(p, s []rune, esc rune) bool {
	for len(p) > 0 {
		c := p[0]
		switch {
		case esc != 0 && c == esc:
			if len(p) < 2 || len(s) == 0 || foldASCII(p[1]) != foldASCII(s[0]) {
				return false
			}
			p, s = p[2:], s[1:]
		case c == '%':
			for len(p) > 0 && (p[0] == '%' || p[0] == '_') {
				if p[0] == '_' {
					if len(s) == 0 {
						return false
					}
					s = s[1:]
				}
				p = p[1:]
			}
			if len(p) == 0 {
				return true
			}
			for i := 0; i <= len(s); i++ {
				if likeMatch(p, s[i:], esc) {
					return true
				}
			}
			return false
		case c == '_':
			if len(s) == 0 {
				return false
			}
			p, s = p[1:], s[1:]
		default:
			if len(s) == 0 || foldASCII(c) != foldASCII(s[0]) {
				return false
			}
			p, s = p[1:], s[1:]
		}
	}
	return len(s) == 0
}

// Glob matches s against a case-sensitive GLOB pattern with '*', '?' and
// '[...]' classes ('^' negates, '-' spans a range).
func Glob(pattern, s string) bool {
	return globMatch(pattern, s)
}

func globMatch(p, s string) bool {
	for len(p) > 0 {
		switch p[0] {
		case '*':
			for len(p) > 0 && (p[0] == '*' || p[0] == '?') {
				if p[0] == '?' {
					if len(s) == 0 {
						return false
					}
					_, n := utf8.DecodeRuneInString(s)
					s = s[n:]
				}
				p = p[1:]
			}
			if len(p) == 0 {
				return true
			}
			for i := 0; i <= len(s); {
				if globMatch(p, s[i:]) {
					return true
				}
				if i == len(s) {
					break
				}
				_, n := utf8.DecodeRuneInString(s[i:])
				i += n
			}
			return false
		case '?':
			if len(s) == 0 {
				return false
			}
			_, n := utf8.DecodeRuneInString(s)
			p, s = p[1:], s[n:]
		case '[':
			if len(s) == 0 {
				return false
			}
			r, n := utf8.DecodeRuneInString(s)
			matched, rest, ok := matchClass(p[1:], r)
			if !ok || !matched {
				return false
			}
			p, s = rest, s[n:]
		default:
			pr, pn := utf8.DecodeRuneInString(p)
			r, n := utf8.DecodeRuneInString(s)
			if len(s) == 0 || pr != r {
				return false
			}
			p, s = p[pn:], s[n:]
		}
	}
	return len(s) == 0
}

// matchClass matches r against the class body following '['. It returns the
// pattern after the closing ']'; ok is false for an unterminated class.
func matchClass(p string, r rune) (matched bool, rest string, ok bool) {
	negate := false
	if len(p) > 0 && p[0] == '^' {
		negate = true
		p = p[1:]
	}
	first := true
	var prev rune = -1
	for len(p) > 0 {
		c, n := utf8.DecodeRuneInString(p)
		if c == ']' && !first {
			return matched != negate, p[n:], true
		}
		first = false
		if c == '-' && prev >= 0 && len(p) > n && p[n] != ']' {
			hi, hn := utf8.DecodeRuneInString(p[n:])
			if r >= prev && r <= hi {
				matched = true
			}
			prev = -1
			p = p[n+hn:]
			continue
		}
		if c == r {
			matched = true
		}
		prev = c
		p = p[n:]
	}
	return false, "", false
}

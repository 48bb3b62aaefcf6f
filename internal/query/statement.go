package query

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var ErrMultipleStatements = errors.New("only one sql statement is allowed")

// SingleStatement returns the one statement held in sqlText without its
// trailing semicolons. Separators inside quoted strings, quoted identifiers,
// dollar-quoted bodies and comments do not count. Parts that hold only
// comments are ignored.
func SingleStatement(sqlText string) (string, error) {
	statements := make([]string, 0, 1)
	rest := sqlText
	for {
		end := statementEnd(rest)
		if part := rest[:end]; skipTrivia(part, 0) < len(part) {
			statements = append(statements, strings.TrimSpace(part))
		}
		if end >= len(rest) {
			break
		}
		rest = rest[end+1:]
	}

	switch len(statements) {
	case 0:
		return "", ErrEmptySQL
	case 1:
		return statements[0], nil
	default:
		return "", fmt.Errorf("%w: found %d", ErrMultipleStatements, len(statements))
	}
}

// statementEnd returns the index of the first top-level semicolon, or
// len(s). Unterminated quotes and comments run to the end of the text.
func statementEnd(s string) int {
	for i := 0; i < len(s); {
		switch {
		case s[i] == ';':
			return i
		case s[i] == '\'' || s[i] == '"' || s[i] == '`':
			i = skipQuoted(s, i)
		case strings.HasPrefix(s[i:], "--"):
			i = skipLineComment(s, i)
		case strings.HasPrefix(s[i:], "/*"):
			i = skipBlockComment(s, i)
		case s[i] == '$':
			i = skipDollarQuoted(s, i)
		default:
			i++
		}
	}
	return len(s)
}

// skipQuoted treats a doubled quote as an escape. Backslashes are not
// escapes, so a backslash-escaped quote ends the string early and can only
// make a separator visible, never hide one.
func skipQuoted(s string, start int) int {
	quote := s[start]
	for i := start + 1; i < len(s); i++ {
		if s[i] != quote {
			continue
		}
		if i+1 < len(s) && s[i+1] == quote {
			i++
			continue
		}
		return i + 1
	}
	return len(s)
}

func skipLineComment(s string, start int) int {
	newline := strings.IndexByte(s[start:], '\n')
	if newline < 0 {
		return len(s)
	}
	return start + newline + 1
}

func skipBlockComment(s string, start int) int {
	end := strings.Index(s[start+2:], "*/")
	if end < 0 {
		return len(s)
	}
	return start + 2 + end + 2
}

// skipDollarQuoted skips a $tag$...$tag$ body. A '$' that does not open a
// valid tag, such as a $1 placeholder, is skipped alone.
func skipDollarQuoted(s string, start int) int {
	closing := strings.IndexByte(s[start+1:], '$')
	if closing < 0 {
		return start + 1
	}
	tag := s[start : start+1+closing+1]
	if !validDollarTag(tag[1 : len(tag)-1]) {
		return start + 1
	}
	bodyStart := start + len(tag)
	end := strings.Index(s[bodyStart:], tag)
	if end < 0 {
		return len(s)
	}
	return bodyStart + end + len(tag)
}

func validDollarTag(tag string) bool {
	for i, r := range tag {
		if r == '_' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}

// skipTrivia returns the index of the first character at or after start
// that is neither whitespace nor part of a comment.
func skipTrivia(s string, start int) int {
	i := start
	for i < len(s) {
		switch {
		case unicode.IsSpace(rune(s[i])):
			i++
		case strings.HasPrefix(s[i:], "--"):
			i = skipLineComment(s, i)
		case strings.HasPrefix(s[i:], "/*"):
			i = skipBlockComment(s, i)
		default:
			return i
		}
	}
	return i
}

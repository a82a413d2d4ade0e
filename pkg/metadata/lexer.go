package metadata

import (
	"strings"
)

// findCalls returns the raw argument text of every call to name found in code
// (string literals and comments are skipped). Calls may span several lines.
func findCalls(source, name string) []string {
	var calls []string
	for i := 0; i < len(source); {
		c := source[i]
		switch {
		case c == '#':
			i = skipComment(source, i)
		case c == '"' || c == '\'':
			end, ok := skipString(source, i)
			if !ok {
				return calls
			}
			i = end
		case strings.HasPrefix(source[i:], name) && (i == 0 || !isIdentByte(source[i-1])):
			j := i + len(name)
			for j < len(source) && (source[j] == ' ' || source[j] == '\t') {
				j++
			}
			if j >= len(source) || source[j] != '(' {
				i = j
				continue
			}
			end, ok := matchParen(source, j)
			if !ok {
				return calls
			}
			calls = append(calls, source[j+1:end])
			i = end + 1
		default:
			i++
		}
	}
	return calls
}

// splitArgs splits a call's argument text on top-level commas.
func splitArgs(args string) []string {
	var (
		parts []string
		depth int
		start int
	)
	for i := 0; i < len(args); {
		switch c := args[i]; c {
		case '"', '\'':
			end, ok := skipString(args, i)
			if !ok {
				i = len(args)
				continue
			}
			i = end
			continue
		case '#':
			i = skipComment(args, i)
			continue
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				parts = appendArg(parts, args[start:i])
				start = i + 1
			}
		}
		i++
	}
	return appendArg(parts, args[start:])
}

func appendArg(parts []string, arg string) []string {
	arg = stripComments(arg)
	if arg == "" {
		return parts
	}
	return append(parts, arg)
}

// stripComments drops trailing comments from each line of a single argument.
func stripComments(arg string) string {
	if !strings.Contains(arg, "#") {
		return strings.TrimSpace(arg)
	}
	var b strings.Builder
	for i := 0; i < len(arg); {
		switch arg[i] {
		case '"', '\'':
			end, ok := skipString(arg, i)
			if !ok {
				end = len(arg)
			}
			b.WriteString(arg[i:end])
			i = end
		case '#':
			i = skipComment(arg, i)
		default:
			b.WriteByte(arg[i])
			i++
		}
	}
	return strings.TrimSpace(b.String())
}

// matchParen returns the index of the bracket closing the one at open.
func matchParen(source string, open int) (int, bool) {
	depth := 0
	for i := open; i < len(source); {
		switch c := source[i]; c {
		case '"', '\'':
			end, ok := skipString(source, i)
			if !ok {
				return 0, false
			}
			i = end
			continue
		case '#':
			i = skipComment(source, i)
			continue
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
		i++
	}
	return 0, false
}

func skipComment(source string, i int) int {
	if nl := strings.IndexByte(source[i:], '\n'); nl >= 0 {
		return i + nl
	}
	return len(source)
}

// skipString returns the index just past the string literal starting at i.
// An unterminated single-line literal ends at the newline.
func skipString(source string, i int) (int, bool) {
	quote := source[i]
	if strings.HasPrefix(source[i:], strings.Repeat(string(quote), 3)) {
		delim := source[i : i+3]
		for j := i + 3; j < len(source); j++ {
			if source[j] == '\\' {
				j++
				continue
			}
			if strings.HasPrefix(source[j:], delim) {
				return j + 3, true
			}
		}
		return 0, false
	}
	for j := i + 1; j < len(source); j++ {
		switch source[j] {
		case '\\':
			j++
		case '\n':
			return j, true
		case quote:
			return j + 1, true
		}
	}
	return len(source), true
}

// unquote evaluates expr when it is made only of string literals (implicit
// concatenation included). ok is false for any other expression.
func unquote(expr string) (string, bool) {
	expr = strings.TrimSpace(expr)
	var (
		b     strings.Builder
		found bool
	)
	for expr != "" {
		raw := false
		prefix := 0
		for prefix < len(expr) && prefix < 2 && strings.ContainsRune("rRuUbBfF", rune(expr[prefix])) {
			if expr[prefix] == 'r' || expr[prefix] == 'R' {
				raw = true
			}
			prefix++
		}
		if prefix >= len(expr) || (expr[prefix] != '"' && expr[prefix] != '\'') {
			return "", false
		}
		end, ok := skipString(expr, prefix)
		if !ok || expr[end-1] != expr[prefix] {
			return "", false
		}
		width := 1
		if end-prefix >= 6 && strings.HasPrefix(expr[prefix:], strings.Repeat(expr[prefix:prefix+1], 3)) {
			width = 3
		}
		body := expr[prefix+width : end-width]
		if raw {
			b.WriteString(body)
		} else {
			b.WriteString(unescape(body))
		}
		found = true
		expr = strings.TrimSpace(expr[end:])
	}
	return b.String(), found
}

func unescape(body string) string {
	if !strings.Contains(body, `\`) {
		return body
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] != '\\' || i+1 == len(body) {
			b.WriteByte(body[i])
			continue
		}
		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case '\\', '\'', '"':
			b.WriteByte(body[i])
		case '\n':
		default:
			b.WriteByte('\\')
			b.WriteByte(body[i])
		}
	}
	return b.String()
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

package filter

import (
	"fmt"
	"regexp"
	"strings"
)

// SyntaxError reports a malformed glob or regex expression.
type SyntaxError struct {
	// Expr is the expression as written.
	Expr string
	// Pos is the byte offset of the offending construct, or -1.
	Pos int
	// Message describes the problem.
	Message string
	// Err is the underlying regexp error, if any.
	Err error
}

// Error returns a formatted syntax error message.
func (e *SyntaxError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid pattern %q: %s: %v", e.Expr, e.Message, e.Err)
	}
	if e.Pos >= 0 {
		return fmt.Sprintf("invalid pattern %q at offset %d: %s", e.Expr, e.Pos, e.Message)
	}
	return fmt.Sprintf("invalid pattern %q: %s", e.Expr, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// CompileGlob compiles a glob expression into an anchored regular expression.
//
// Grammar:
//
//	"*"       any sequence of characters, including none
//	"?"       exactly one character
//	"[abc]"   one character from the class; [!abc] negates, a-z is a range
//	"{a,bc}"  one of the literal alternatives
//	"\x"      the literal character x; a trailing \ is literal
func CompileGlob(glob string) (*regexp.Regexp, error) {
	expr, err := translateGlob(glob)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, &SyntaxError{Expr: glob, Pos: -1, Message: "cannot compile", Err: err}
	}
	return re, nil
}

func translateGlob(glob string) (string, error) {
	var sb strings.Builder
	sb.WriteString(`(?s)^`)

	runes := []rune(glob)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch c {
		case '*':
			sb.WriteString(`.*`)
		case '?':
			sb.WriteString(`.`)
		case '\\':
			if i+1 < len(runes) {
				i++
				sb.WriteString(regexp.QuoteMeta(string(runes[i])))
			} else {
				sb.WriteString(`\\`)
			}
		case '[':
			end, class, err := translateClass(glob, runes, i)
			if err != nil {
				return "", err
			}
			sb.WriteString(class)
			i = end
		case '{':
			end, alt, err := translateAlternation(glob, runes, i)
			if err != nil {
				return "", err
			}
			sb.WriteString(alt)
			i = end
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
	}

	sb.WriteString(`$`)
	return sb.String(), nil
}

// translateClass converts the class starting at runes[start] == '[' and
// returns the index of its closing ']'.
func translateClass(glob string, runes []rune, start int) (int, string, error) {
	i := start + 1
	negate := false
	if i < len(runes) && runes[i] == '!' {
		negate = true
		i++
	}

	type item struct{ lo, hi rune }
	var items []item
	first := true

	for i < len(runes) {
		c := runes[i]
		if c == ']' && !first {
			var sb strings.Builder
			sb.WriteByte('[')
			if negate {
				sb.WriteByte('^')
			}
			for _, it := range items {
				sb.WriteString(classChar(it.lo))
				if it.hi != it.lo {
					sb.WriteByte('-')
					sb.WriteString(classChar(it.hi))
				}
			}
			sb.WriteByte(']')
			return i, sb.String(), nil
		}
		first = false

		if c == '\\' && i+1 < len(runes) {
			i++
			c = runes[i]
		}

		// a-z range; a '-' right before the closing bracket is literal
		if i+2 < len(runes) && runes[i+1] == '-' && runes[i+2] != ']' {
			hi := runes[i+2]
			next := i + 3
			if hi == '\\' && i+3 < len(runes) {
				hi = runes[i+3]
				next = i + 4
			}
			if hi < c {
				return 0, "", &SyntaxError{Expr: glob, Pos: byteOffset(runes, i), Message: "reversed range in character class"}
			}
			items = append(items, item{lo: c, hi: hi})
			i = next
			continue
		}

		items = append(items, item{lo: c, hi: c})
		i++
	}

	return 0, "", &SyntaxError{Expr: glob, Pos: byteOffset(runes, start), Message: "unterminated '['"}
}

// translateAlternation converts the alternation starting at runes[start] == '{'
// and returns the index of its closing '}'.
func translateAlternation(glob string, runes []rune, start int) (int, string, error) {
	var alts []string
	var cur strings.Builder

	for i := start + 1; i < len(runes); i++ {
		c := runes[i]
		switch c {
		case '\\':
			if i+1 < len(runes) {
				i++
				cur.WriteRune(runes[i])
			} else {
				cur.WriteRune(c)
			}
		case ',':
			alts = append(alts, regexp.QuoteMeta(cur.String()))
			cur.Reset()
		case '}':
			alts = append(alts, regexp.QuoteMeta(cur.String()))
			return i, `(?:` + strings.Join(alts, `|`) + `)`, nil
		default:
			cur.WriteRune(c)
		}
	}

	return 0, "", &SyntaxError{Expr: glob, Pos: byteOffset(runes, start), Message: "unterminated '{'"}
}

func classChar(r rune) string {
	switch r {
	case '\\', ']', '[', '-', '^':
		return `\` + string(r)
	default:
		return string(r)
	}
}

func byteOffset(runes []rune, idx int) int {
	return len(string(runes[:idx]))
}

// Package lexer splits normalized ZCONF source into a flat, ordered
// token sequence.
package lexer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/zconf/zconf/token"
)

// SyntaxError is raised immediately by the lexer (and later by the
// parser) on any lexical/syntactic failure. It is never recovered from
// internally; the entry surface converts it to a ParseError.
type SyntaxError struct {
	Line    int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("zconf: syntax error at line %d: %s", e.Line, e.Message)
}

// stringMode tracks whether the scanner is currently inside a quoted
// string's content, and of which flavor. The flat terminal table in
// isolation is ambiguous outside this context: BASIC_UNESCAPED's charset
// (anything but '"' and '\') is a superset of UNQUOTED_KEY's, so without
// gating it by "are we inside a string" it would out-match every bare
// key, space run and punctuation token on the line. Tracking open/close
// delimiters is the natural fix and mirrors how the parser itself
// describes string consumption as a distinct mode (basic strings
// "consume tokens until the closing QUOTATION_MARK").
type stringMode int

const (
	modeNormal stringMode = iota
	modeBasicString
	modeLiteralString
)

var (
	dateTimeRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})?)?`)
	floatRe    = regexp.MustCompile(`^[+-]?(\d[\d_]*)(\.\d[\d_]*)?([eE][+-]?\d[\d_]*)?`)
	integerRe  = regexp.MustCompile(`^[+-]?\d[\d_]*`)
	unquotedRe = regexp.MustCompile(`^[A-Za-z0-9_-]+`)
	spaceRe    = regexp.MustCompile(`^[ ]+`)
	unicode4Re = regexp.MustCompile(`^\\u[0-9A-Fa-f]{4}`)
	unicode8Re = regexp.MustCompile(`^\\U[0-9A-Fa-f]{8}`)
)

// Normalize applies the source-encoding rules from the external
// interfaces contract: CRLF/CR become LF, tabs become single spaces.
func Normalize(src string) string {
	src = strings.ReplaceAll(src, "\r\n", "\n")
	src = strings.ReplaceAll(src, "\r", "\n")
	src = strings.ReplaceAll(src, "\t", " ")
	return src
}

// Tokenize normalizes and lexes src, returning the flat token sequence
// terminated by an EOS token.
func Tokenize(src string) ([]token.Token, error) {
	src = Normalize(src)
	lines := strings.Split(src, "\n")

	var tokens []token.Token
	mode := modeNormal
	triple := false

	for i, line := range lines {
		lineNo := i + 1
		col := 0
		for col < len(line) {
			kind, length, newMode, newTriple, err := matchAt(line, col, mode, triple, lineNo)
			if err != nil {
				return nil, err
			}
			if length == 0 {
				return nil, &SyntaxError{Line: lineNo, Message: fmt.Sprintf("no terminal matches at %q", line[col:])}
			}
			tokens = append(tokens, token.New(kind, line[col:col+length], lineNo))
			mode, triple = newMode, newTriple
			col += length
		}
		if i != len(lines)-1 {
			tokens = append(tokens, token.New(token.NEWLINE, "\n", lineNo))
		}
	}
	tokens = append(tokens, token.New(token.EOS, "", len(lines)))
	return tokens, nil
}

func matchAt(line string, col int, mode stringMode, triple bool, lineNo int) (token.Kind, int, stringMode, bool, error) {
	rest := line[col:]

	switch mode {
	case modeBasicString:
		if triple && strings.HasPrefix(rest, `"""`) {
			return token.TRIPLE_QUOTATION_MARK, 3, modeNormal, false, nil
		}
		if !triple && strings.HasPrefix(rest, `"`) {
			return token.QUOTATION_MARK, 1, modeNormal, false, nil
		}
		if m := unicode8Re.FindString(rest); m != "" {
			return token.ESCAPED_CHARACTER, len(m), mode, triple, nil
		}
		if m := unicode4Re.FindString(rest); m != "" {
			return token.ESCAPED_CHARACTER, len(m), mode, triple, nil
		}
		if len(rest) >= 2 && rest[0] == '\\' && strings.ContainsRune(`btnfr"\`, rune(rest[1])) {
			return token.ESCAPED_CHARACTER, 2, mode, triple, nil
		}
		if rest[0] == '\\' {
			return token.ESCAPE, 1, mode, triple, nil
		}
		n := stringContentRun(rest, true)
		if n > 0 {
			return token.BASIC_UNESCAPED, n, mode, triple, nil
		}
		return 0, 0, mode, triple, nil

	case modeLiteralString:
		if triple && strings.HasPrefix(rest, `'''`) {
			return token.TRIPLE_APOSTROPHE, 3, modeNormal, false, nil
		}
		if !triple && strings.HasPrefix(rest, `'`) {
			return token.APOSTROPHE, 1, modeNormal, false, nil
		}
		if rest[0] == '\\' {
			return token.ESCAPE, 1, mode, triple, nil
		}
		n := stringContentRun(rest, false)
		if n > 0 {
			return token.BASIC_UNESCAPED, n, mode, triple, nil
		}
		return 0, 0, mode, triple, nil

	default:
		return matchNormal(rest, lineNo)
	}
}

// stringContentRun returns the length of the longest run of characters
// that do not start a delimiter or escape sequence for the current
// string flavor. basic excludes '"' and '\\'; literal excludes '\'' and
// '\\'.
func stringContentRun(rest string, basic bool) int {
	stop := byte('\'')
	if basic {
		stop = '"'
	}
	n := 0
	for n < len(rest) && rest[n] != stop && rest[n] != '\\' {
		n++
	}
	return n
}

func matchNormal(rest string, lineNo int) (token.Kind, int, stringMode, bool, error) {
	type cand struct {
		kind   token.Kind
		length int
	}
	var best cand

	consider := func(k token.Kind, n int) {
		if n > best.length {
			best = cand{k, n}
		}
	}

	if strings.HasPrefix(rest, "=") {
		consider(token.EQUAL, 1)
	}
	if strings.HasPrefix(rest, "null") && !followedByKeyChar(rest, 4) {
		consider(token.NULL, 4)
	}
	if strings.HasPrefix(rest, "true") && !followedByKeyChar(rest, 4) {
		consider(token.BOOLEAN, 4)
	}
	if strings.HasPrefix(rest, "false") && !followedByKeyChar(rest, 5) {
		consider(token.BOOLEAN, 5)
	}
	if m := dateTimeRe.FindString(rest); m != "" {
		consider(token.DATE_TIME, len(m))
	}
	if m := floatRe.FindString(rest); m != "" && isFloatLiteral(m) {
		consider(token.FLOAT, len(m))
	}
	if m := integerRe.FindString(rest); m != "" {
		consider(token.INTEGER, len(m))
	}
	if strings.HasPrefix(rest, `"""`) {
		consider(token.TRIPLE_QUOTATION_MARK, 3)
	}
	if strings.HasPrefix(rest, `"`) {
		consider(token.QUOTATION_MARK, 1)
	}
	if strings.HasPrefix(rest, `'''`) {
		consider(token.TRIPLE_APOSTROPHE, 3)
	}
	if strings.HasPrefix(rest, `'`) {
		consider(token.APOSTROPHE, 1)
	}
	if strings.HasPrefix(rest, "#") {
		consider(token.HASH, 1)
	}
	if m := spaceRe.FindString(rest); m != "" {
		consider(token.SPACE, len(m))
	}
	if strings.HasPrefix(rest, "[") {
		consider(token.LEFT_SQUARE_BRACKET, 1)
	}
	if strings.HasPrefix(rest, "]") {
		consider(token.RIGHT_SQUARE_BRACKET, 1)
	}
	if strings.HasPrefix(rest, "{") {
		consider(token.LEFT_CURLY_BRACE, 1)
	}
	if strings.HasPrefix(rest, "}") {
		consider(token.RIGHT_CURLY_BRACE, 1)
	}
	if strings.HasPrefix(rest, ",") {
		consider(token.COMMA, 1)
	}
	if strings.HasPrefix(rest, ".") {
		consider(token.DOT, 1)
	}
	if m := unquotedRe.FindString(rest); m != "" {
		consider(token.UNQUOTED_KEY, len(m))
	}

	if best.length == 0 {
		return 0, 0, modeNormal, false, nil
	}

	switch best.kind {
	case token.TRIPLE_QUOTATION_MARK:
		return best.kind, best.length, modeBasicString, true, nil
	case token.QUOTATION_MARK:
		return best.kind, best.length, modeBasicString, false, nil
	case token.TRIPLE_APOSTROPHE:
		return best.kind, best.length, modeLiteralString, true, nil
	case token.APOSTROPHE:
		return best.kind, best.length, modeLiteralString, false, nil
	default:
		return best.kind, best.length, modeNormal, false, nil
	}
}

func followedByKeyChar(rest string, n int) bool {
	if n >= len(rest) {
		return false
	}
	c := rest[n]
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' || c == '-'
}

// isFloatLiteral rejects a floatRe match that has neither a fractional
// part nor an exponent, which the integer terminal should win instead
// (float requires at least one of '.' digits or an exponent marker).
func isFloatLiteral(m string) bool {
	return strings.ContainsAny(m, ".eE")
}

// Package parser implements the recursive-descent driver that consumes
// a token stream and mutates a Value Tree and Key Store in lock step.
package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/zconf/zconf/keystore"
	"github.com/zconf/zconf/lexer"
	"github.com/zconf/zconf/stream"
	"github.com/zconf/zconf/token"
	"github.com/zconf/zconf/value"
)

// Parser drives the top-level grammar loop, consuming tokens and
// mutating a Value Tree and Key Store it owns for the duration of one
// parse.
type Parser struct {
	s    *stream.Stream
	tree *value.Tree
	keys *keystore.Store
}

// Parse rejects input that is not valid UTF-8, normalizes and lexes it,
// then runs the top-level loop to completion, returning the resulting
// Value Tree.
func Parse(input string) (*value.Tree, error) {
	if !utf8.ValidString(input) {
		return nil, &lexer.SyntaxError{Line: 0, Message: "input is not valid UTF-8"}
	}
	tokens, err := lexer.Tokenize(input)
	if err != nil {
		return nil, err
	}
	p := &Parser{
		s:    stream.New(tokens),
		tree: value.NewTree(),
		keys: keystore.New(),
	}
	if err := p.run(); err != nil {
		return nil, err
	}
	return p.tree, nil
}

func (p *Parser) errf(format string, args ...any) error {
	return &lexer.SyntaxError{Line: p.s.Line(), Message: fmt.Sprintf(format, args...)}
}

func (p *Parser) wrapKeyErr(err error) error {
	return &lexer.SyntaxError{Line: p.s.Line(), Message: err.Error()}
}

func (p *Parser) run() error {
	for !p.s.Exhausted() {
		tk, _ := p.s.Peek()
		switch {
		case tk.Kind == token.HASH:
			p.consumeComment()
		case tk.Kind == token.QUOTATION_MARK || tk.Kind == token.UNQUOTED_KEY || tk.Kind == token.INTEGER:
			if err := p.consumeKeyValue(false); err != nil {
				return err
			}
		case p.s.MatchesSequence(token.LEFT_SQUARE_BRACKET, token.LEFT_SQUARE_BRACKET):
			if err := p.consumeArrayOfTablesHeader(); err != nil {
				return err
			}
		case tk.Kind == token.LEFT_SQUARE_BRACKET:
			if err := p.consumeTableHeader(); err != nil {
				return err
			}
		case tk.Kind == token.SPACE || tk.Kind == token.NEWLINE || tk.Kind == token.EOS:
			p.s.Advance()
		default:
			return p.errf("unexpected token %s (%q)", tk.Kind, tk.Lexeme)
		}
	}
	return nil
}

func (p *Parser) consumeComment() {
	p.s.Advance() // HASH
	for !p.s.Exhausted() && !p.s.MatchesAny(token.NEWLINE, token.EOS) {
		p.s.Advance()
	}
}

// consumeKeyValue parses the key, consumes '=', and dispatches on the
// value's leading token: '[' for an array, '{' for an inline table
// (registered as the inline-table key first), otherwise a simple
// value. When inline is true this is a key-value pair inside an inline
// table and does not require a trailing newline.
func (p *Parser) consumeKeyValue(inline bool) error {
	key, err := p.parseKey()
	if err != nil {
		return err
	}
	p.s.SkipWhile(token.SPACE)
	if _, err := p.s.Expect(token.EQUAL); err != nil {
		return err
	}
	p.s.SkipWhile(token.SPACE)

	tk, ok := p.s.Peek()
	if !ok {
		return p.errf("expected a value after '='")
	}

	switch tk.Kind {
	case token.LEFT_SQUARE_BRACKET:
		arr, err := p.parseArray()
		if err != nil {
			return err
		}
		if err := p.keys.AddKey(key); err != nil {
			return p.wrapKeyErr(err)
		}
		p.tree.Put(key, arr)
	case token.LEFT_CURLY_BRACE:
		if err := p.keys.AddInlineTableKey(key); err != nil {
			return p.wrapKeyErr(err)
		}
		p.keys.PushInlineScope(key)
		p.tree.BeginInline(key)
		if err := p.parseInlineTableBody(); err != nil {
			return err
		}
		p.tree.EndInline()
		p.keys.PopInlineScope()
	default:
		v, err := p.parseSimpleValue()
		if err != nil {
			return err
		}
		if err := p.keys.AddKey(key); err != nil {
			return p.wrapKeyErr(err)
		}
		p.tree.Put(key, v)
	}

	if !inline {
		p.s.SkipWhile(token.SPACE)
		if p.s.Matches(token.HASH) {
			p.consumeComment()
		}
		if !p.s.Exhausted() && !p.s.MatchesAny(token.NEWLINE, token.EOS) {
			return p.errf("expected end of line after value")
		}
	}
	return nil
}

// parseKey parses a single leaf key: quoted, unquoted, or an integer
// lexeme used leniently as a bare key.
func (p *Parser) parseKey() (string, error) {
	tk, ok := p.s.Peek()
	if !ok {
		return "", p.errf("expected a key")
	}
	switch tk.Kind {
	case token.UNQUOTED_KEY, token.INTEGER:
		p.s.Advance()
		return tk.Lexeme, nil
	case token.QUOTATION_MARK:
		return p.scanBasicString(false)
	default:
		return "", p.errf("expected a key, got %s", tk.Kind)
	}
}

// parseDottedHeaderName parses key ('.' key)* for table and
// array-of-tables headers, escaping any quoted segment's literal dots
// before joining so the result can be split again by '.' without
// ambiguity.
func (p *Parser) parseDottedHeaderName() (string, error) {
	var segments []string
	for {
		tk, ok := p.s.Peek()
		if !ok {
			return "", p.errf("expected a key segment")
		}
		var seg string
		switch tk.Kind {
		case token.UNQUOTED_KEY, token.INTEGER:
			p.s.Advance()
			seg = tk.Lexeme
		case token.QUOTATION_MARK:
			s, err := p.scanBasicString(false)
			if err != nil {
				return "", err
			}
			seg = value.EscapeSegment(s)
		default:
			return "", p.errf("expected a key segment, got %s", tk.Kind)
		}
		segments = append(segments, seg)
		if p.s.Matches(token.DOT) {
			p.s.Advance()
			continue
		}
		break
	}
	return strings.Join(segments, "."), nil
}

func (p *Parser) consumeTableHeader() error {
	if _, err := p.s.Expect(token.LEFT_SQUARE_BRACKET); err != nil {
		return err
	}
	name, err := p.parseDottedHeaderName()
	if err != nil {
		return err
	}
	if _, err := p.s.Expect(token.RIGHT_SQUARE_BRACKET); err != nil {
		return err
	}
	if err := p.keys.AddTableKey(name); err != nil {
		return p.wrapKeyErr(err)
	}
	p.tree.EnterTable(name, p.keys.IsRegisteredAsArrayTable)
	return p.consumeHeaderTrailer()
}

func (p *Parser) consumeArrayOfTablesHeader() error {
	if _, err := p.s.Expect(token.LEFT_SQUARE_BRACKET); err != nil {
		return err
	}
	if _, err := p.s.Expect(token.LEFT_SQUARE_BRACKET); err != nil {
		return err
	}
	name, err := p.parseDottedHeaderName()
	if err != nil {
		return err
	}
	if _, err := p.s.Expect(token.RIGHT_SQUARE_BRACKET); err != nil {
		return err
	}
	if _, err := p.s.Expect(token.RIGHT_SQUARE_BRACKET); err != nil {
		return err
	}
	if err := p.keys.AddArrayTableKey(name); err != nil {
		return p.wrapKeyErr(err)
	}
	p.tree.EnterArrayTable(name, p.keys.IsRegisteredAsArrayTable)
	return p.consumeHeaderTrailer()
}

func (p *Parser) consumeHeaderTrailer() error {
	p.s.SkipWhile(token.SPACE)
	if p.s.Matches(token.HASH) {
		p.consumeComment()
	}
	if !p.s.Exhausted() && !p.s.MatchesAny(token.NEWLINE, token.EOS) {
		return p.errf("expected end of line after table header")
	}
	return nil
}

func (p *Parser) skipArrayFiller() {
	for {
		if p.s.MatchesAny(token.SPACE, token.NEWLINE) {
			p.s.Advance()
			continue
		}
		if p.s.Matches(token.HASH) {
			p.consumeComment()
			continue
		}
		break
	}
}

func (p *Parser) parseArray() (*value.Array, error) {
	if _, err := p.s.Expect(token.LEFT_SQUARE_BRACKET); err != nil {
		return nil, err
	}
	arr := &value.Array{}
	for {
		p.skipArrayFiller()
		if p.s.Matches(token.RIGHT_SQUARE_BRACKET) {
			p.s.Advance()
			return arr, nil
		}
		elem, err := p.parseArrayElement()
		if err != nil {
			return nil, err
		}
		if len(arr.Elems) > 0 && !value.SameTag(arr.Elems[0], elem) {
			return nil, p.errf("mixed-type array element")
		}
		arr.Elems = append(arr.Elems, elem)
		p.skipArrayFiller()
		if p.s.Matches(token.COMMA) {
			p.s.Advance()
			p.skipArrayFiller()
			if p.s.Matches(token.RIGHT_SQUARE_BRACKET) {
				p.s.Advance()
				return arr, nil
			}
			continue
		}
		if p.s.Matches(token.RIGHT_SQUARE_BRACKET) {
			p.s.Advance()
			return arr, nil
		}
		return nil, p.errf("expected ',' or ']' in array")
	}
}

func (p *Parser) parseArrayElement() (value.Value, error) {
	if p.s.Matches(token.LEFT_SQUARE_BRACKET) {
		return p.parseArray()
	}
	return p.parseSimpleValue()
}

func (p *Parser) parseInlineTableBody() error {
	if _, err := p.s.Expect(token.LEFT_CURLY_BRACE); err != nil {
		return err
	}
	p.s.SkipWhile(token.SPACE)
	if p.s.Matches(token.RIGHT_CURLY_BRACE) {
		p.s.Advance()
		return nil
	}
	for {
		if err := p.consumeKeyValue(true); err != nil {
			return err
		}
		p.s.SkipWhile(token.SPACE)
		if p.s.Matches(token.COMMA) {
			p.s.Advance()
			p.s.SkipWhile(token.SPACE)
			continue
		}
		break
	}
	p.s.SkipWhile(token.SPACE)
	if _, err := p.s.Expect(token.RIGHT_CURLY_BRACE); err != nil {
		return err
	}
	return nil
}

func (p *Parser) parseSimpleValue() (value.Value, error) {
	tk, ok := p.s.Peek()
	if !ok {
		return nil, p.errf("expected a value")
	}
	switch tk.Kind {
	case token.NULL:
		p.s.Advance()
		return value.Null{}, nil
	case token.BOOLEAN:
		p.s.Advance()
		return value.Bool(tk.Lexeme == "true"), nil
	case token.INTEGER:
		p.s.Advance()
		n, err := parseInteger(tk.Lexeme)
		if err != nil {
			return nil, p.errf("%v", err)
		}
		return value.Integer(n), nil
	case token.FLOAT:
		p.s.Advance()
		f, err := parseFloat(tk.Lexeme)
		if err != nil {
			return nil, p.errf("%v", err)
		}
		return value.Float(f), nil
	case token.QUOTATION_MARK:
		s, err := p.scanBasicString(false)
		if err != nil {
			return nil, err
		}
		return value.String(s), nil
	case token.TRIPLE_QUOTATION_MARK:
		s, err := p.scanBasicString(true)
		if err != nil {
			return nil, err
		}
		return value.String(s), nil
	case token.APOSTROPHE:
		s, err := p.scanLiteralString(false)
		if err != nil {
			return nil, err
		}
		return value.String(s), nil
	case token.TRIPLE_APOSTROPHE:
		s, err := p.scanLiteralString(true)
		if err != nil {
			return nil, err
		}
		return value.String(s), nil
	case token.DATE_TIME:
		p.s.Advance()
		dt, err := parseDatetime(tk.Lexeme)
		if err != nil {
			return nil, p.errf("%v", err)
		}
		return value.Datetime(dt), nil
	default:
		return nil, p.errf("unexpected token %s (%q) in value position", tk.Kind, tk.Lexeme)
	}
}

// scanBasicString consumes a basic string (single or triple quoted),
// decoding ESCAPED_CHARACTER tokens and skipping line-continuations in
// the multi-line form. ESCAPE and NEWLINE are errors in the single-line
// form.
func (p *Parser) scanBasicString(triple bool) (string, error) {
	openKind, closeKind := token.QUOTATION_MARK, token.QUOTATION_MARK
	if triple {
		openKind, closeKind = token.TRIPLE_QUOTATION_MARK, token.TRIPLE_QUOTATION_MARK
	}
	if _, err := p.s.Expect(openKind); err != nil {
		return "", err
	}
	if triple && p.s.Matches(token.NEWLINE) {
		p.s.Advance()
	}
	var sb strings.Builder
	for {
		tk, ok := p.s.Peek()
		if !ok {
			return "", p.errf("unterminated string")
		}
		if tk.Kind == closeKind {
			p.s.Advance()
			return sb.String(), nil
		}
		switch tk.Kind {
		case token.ESCAPED_CHARACTER:
			p.s.Advance()
			ch, err := decodeEscape(tk.Lexeme)
			if err != nil {
				return "", p.errf("%v", err)
			}
			sb.WriteString(ch)
		case token.ESCAPE:
			if !triple {
				return "", p.errf("bare backslash is not a valid escape")
			}
			p.s.Advance()
			p.s.SkipWhile(token.ESCAPE, token.SPACE, token.NEWLINE)
		case token.NEWLINE:
			if !triple {
				return "", p.errf("unterminated string: newline before closing quote")
			}
			p.s.Advance()
			sb.WriteString("\n")
		case token.EOS:
			return "", p.errf("unterminated string")
		default:
			p.s.Advance()
			sb.WriteString(tk.Lexeme)
		}
	}
}

// scanLiteralString consumes a literal string (single or triple
// apostrophe). Lexemes are emitted verbatim; there is no escape
// processing at all, even for ESCAPE tokens.
func (p *Parser) scanLiteralString(triple bool) (string, error) {
	openKind, closeKind := token.APOSTROPHE, token.APOSTROPHE
	if triple {
		openKind, closeKind = token.TRIPLE_APOSTROPHE, token.TRIPLE_APOSTROPHE
	}
	if _, err := p.s.Expect(openKind); err != nil {
		return "", err
	}
	if triple && p.s.Matches(token.NEWLINE) {
		p.s.Advance()
	}
	var sb strings.Builder
	for {
		tk, ok := p.s.Peek()
		if !ok {
			return "", p.errf("unterminated literal string")
		}
		if tk.Kind == closeKind {
			p.s.Advance()
			return sb.String(), nil
		}
		if tk.Kind == token.EOS {
			return "", p.errf("unterminated literal string")
		}
		if tk.Kind == token.NEWLINE && !triple {
			return "", p.errf("unterminated literal string: newline before closing apostrophe")
		}
		p.s.Advance()
		sb.WriteString(tk.Lexeme)
	}
}

func decodeEscape(lexeme string) (string, error) {
	switch lexeme {
	case `\b`:
		return "\b", nil
	case `\t`:
		return "\t", nil
	case `\n`:
		return "\n", nil
	case `\f`:
		return "\f", nil
	case `\r`:
		return "\r", nil
	case `\"`:
		return "\"", nil
	case `\\`:
		return "\\", nil
	}
	if strings.HasPrefix(lexeme, `\u`) || strings.HasPrefix(lexeme, `\U`) {
		code, err := strconv.ParseInt(lexeme[2:], 16, 32)
		if err != nil {
			return "", fmt.Errorf("invalid unicode escape %q", lexeme)
		}
		r := rune(code)
		if !utf8.ValidRune(r) {
			return "", fmt.Errorf("unicode escape %q is not a legal scalar value", lexeme)
		}
		return string(r), nil
	}
	return "", fmt.Errorf("unknown escape %q", lexeme)
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// validateDigitsUnderscore enforces that underscores appear only
// between two digits (Invariants 6 and 7).
func validateDigitsUnderscore(s string) error {
	if s == "" {
		return fmt.Errorf("empty digit run")
	}
	for i := 0; i < len(s); i++ {
		if s[i] != '_' {
			continue
		}
		if i == 0 || i == len(s)-1 || !isDigit(s[i-1]) || !isDigit(s[i+1]) {
			return fmt.Errorf("underscore must be between two digits")
		}
	}
	return nil
}

func parseInteger(lexeme string) (int64, error) {
	sign, body := "", lexeme
	if strings.HasPrefix(body, "+") || strings.HasPrefix(body, "-") {
		sign, body = string(body[0]), body[1:]
	}
	if err := validateDigitsUnderscore(body); err != nil {
		return 0, fmt.Errorf("invalid integer %q: %w", lexeme, err)
	}
	if len(body) > 1 && body[0] == '0' {
		return 0, fmt.Errorf("invalid integer %q: leading zero", lexeme)
	}
	clean := strings.ReplaceAll(body, "_", "")
	n, err := strconv.ParseInt(sign+clean, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", lexeme)
	}
	return n, nil
}

func parseFloat(lexeme string) (float64, error) {
	sign, body := "", lexeme
	if strings.HasPrefix(body, "+") || strings.HasPrefix(body, "-") {
		sign, body = string(body[0]), body[1:]
	}

	mantissa, exponent := body, ""
	if i := strings.IndexAny(body, "eE"); i >= 0 {
		mantissa, exponent = body[:i], body[i+1:]
	}
	intPart, fracPart := mantissa, ""
	if i := strings.IndexByte(mantissa, '.'); i >= 0 {
		intPart, fracPart = mantissa[:i], mantissa[i+1:]
	}

	if err := validateDigitsUnderscore(intPart); err != nil {
		return 0, fmt.Errorf("invalid float %q: %w", lexeme, err)
	}
	if len(intPart) > 1 && intPart[0] == '0' {
		return 0, fmt.Errorf("invalid float %q: leading zero", lexeme)
	}
	if fracPart != "" {
		if err := validateDigitsUnderscore(fracPart); err != nil {
			return 0, fmt.Errorf("invalid float %q: %w", lexeme, err)
		}
	}
	if exponent != "" {
		expBody := exponent
		if strings.HasPrefix(expBody, "+") || strings.HasPrefix(expBody, "-") {
			expBody = expBody[1:]
		}
		if err := validateDigitsUnderscore(expBody); err != nil {
			return 0, fmt.Errorf("invalid float %q: %w", lexeme, err)
		}
	}

	clean := strings.ReplaceAll(body, "_", "")
	f, err := strconv.ParseFloat(sign+clean, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float %q", lexeme)
	}
	return f, nil
}

var datetimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseDatetime(lexeme string) (time.Time, error) {
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, lexeme); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid datetime %q", lexeme)
}

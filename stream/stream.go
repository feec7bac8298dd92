// Package stream provides a non-consuming lookahead cursor over a token
// sequence, used by the parser to drive its recursive-descent grammar
// without advance-then-rollback tricks.
package stream

import (
	"fmt"

	"github.com/zconf/zconf/lexer"
	"github.com/zconf/zconf/token"
)

// Stream is a cursor over an already fully-lexed token sequence. The
// whole sequence is materialized eagerly because parsing here is never
// streaming or incremental.
type Stream struct {
	tokens []token.Token
	pos    int
}

func New(tokens []token.Token) *Stream {
	return &Stream{tokens: tokens}
}

// Advance returns the next token and moves the cursor forward, or the
// zero Token and false once exhausted.
func (s *Stream) Advance() (token.Token, bool) {
	if s.Exhausted() {
		return token.Token{}, false
	}
	tk := s.tokens[s.pos]
	s.pos++
	return tk, true
}

// Peek returns the next token without advancing.
func (s *Stream) Peek() (token.Token, bool) {
	if s.Exhausted() {
		return token.Token{}, false
	}
	return s.tokens[s.pos], true
}

// Expect advances and returns the lexeme of the next token if it has the
// given kind, failing with a *lexer.SyntaxError naming the expected and
// actual kinds otherwise.
func (s *Stream) Expect(kind token.Kind) (string, error) {
	tk, ok := s.Peek()
	if !ok {
		return "", &lexer.SyntaxError{Line: s.Line(), Message: fmt.Sprintf("expected %s, got end of input", kind)}
	}
	if tk.Kind != kind {
		return "", &lexer.SyntaxError{Line: tk.Line, Message: fmt.Sprintf("expected %s, got %s (%q)", kind, tk.Kind, tk.Lexeme)}
	}
	s.pos++
	return tk.Lexeme, nil
}

// Matches reports whether the next token has the given kind, without
// consuming it.
func (s *Stream) Matches(kind token.Kind) bool {
	tk, ok := s.Peek()
	return ok && tk.Kind == kind
}

// MatchesAny reports whether the next token's kind is in kinds.
func (s *Stream) MatchesAny(kinds ...token.Kind) bool {
	tk, ok := s.Peek()
	if !ok {
		return false
	}
	for _, k := range kinds {
		if tk.Kind == k {
			return true
		}
	}
	return false
}

// MatchesSequence reports whether the next len(kinds) tokens match kinds
// in order. The cursor is never advanced by this call.
func (s *Stream) MatchesSequence(kinds ...token.Kind) bool {
	if s.pos+len(kinds) > len(s.tokens) {
		return false
	}
	for i, k := range kinds {
		if s.tokens[s.pos+i].Kind != k {
			return false
		}
	}
	return true
}

// SkipWhile advances past any run of tokens whose kind is in kinds.
func (s *Stream) SkipWhile(kinds ...token.Kind) {
	for s.MatchesAny(kinds...) {
		s.pos++
	}
}

// Exhausted reports whether no tokens remain (the EOS token itself still
// counts as remaining until consumed).
func (s *Stream) Exhausted() bool {
	return s.pos >= len(s.tokens)
}

// Line returns the line of the next token, or the line of the last
// token if exhausted, for error reporting.
func (s *Stream) Line() int {
	if tk, ok := s.Peek(); ok {
		return tk.Line
	}
	if len(s.tokens) > 0 {
		return s.tokens[len(s.tokens)-1].Line
	}
	return 0
}

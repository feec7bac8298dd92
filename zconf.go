// Package zconf is the public entry surface for the ZCONF
// configuration language: a TOML v0.4.0-compatible dialect extended
// with a null literal.
package zconf

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zconf/zconf/builder"
	"github.com/zconf/zconf/lexer"
	"github.com/zconf/zconf/parser"
	"github.com/zconf/zconf/pkg"
	"github.com/zconf/zconf/value"
)

// ParseError is the public, user-facing error every failure mode
// originating in the parser or in file access is converted to. It may
// carry the source filename, a 1-based line number, and a short
// snippet of the offending line.
type ParseError struct {
	Filename string
	Line     int
	Snippet  string
	Message  string

	err error
}

func (e *ParseError) Error() string {
	var sb strings.Builder
	sb.WriteString("zconf: ")
	if e.Filename != "" {
		sb.WriteString(e.Filename)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		fmt.Fprintf(&sb, "line %d: ", e.Line)
	}
	sb.WriteString(e.Message)
	if e.Snippet != "" {
		fmt.Fprintf(&sb, " (near %q)", e.Snippet)
	}
	return sb.String()
}

func (e *ParseError) Unwrap() error { return e.err }

// DumpError is the public error type for every Builder failure.
type DumpError = builder.DumpError

// Object is the opaque record-like container ParseStringAsObject and
// ParseFileAsObject return: same keys, same values as the root Table,
// just a different container shape.
type Object struct {
	tbl *value.Table
}

// AsObject wraps a parsed tree's root table as an Object.
func AsObject(tree *value.Tree) *Object {
	return &Object{tbl: tree.Root()}
}

func (o *Object) Get(key string) (value.Value, bool) {
	return o.tbl.Get(key)
}

func (o *Object) Keys() []string {
	return o.tbl.Keys()
}

// ParseString parses input as ZCONF source and returns the resulting
// Value Tree.
func ParseString(input string) (*value.Tree, error) {
	tree, err := parser.Parse(input)
	if err != nil {
		return nil, wrapParseErr(err, "", input)
	}
	return tree, nil
}

// ParseStringAsObject parses input and returns its root as an Object
// instead of a *value.Tree.
func ParseStringAsObject(input string) (*Object, error) {
	tree, err := ParseString(input)
	if err != nil {
		return nil, err
	}
	return AsObject(tree), nil
}

// ParseFile reads path and parses its contents as ZCONF source,
// failing distinctly for "file does not exist" vs. "file not
// readable", both reported as a *ParseError carrying path as the
// Filename.
func ParseFile(path string) (*value.Tree, error) {
	data, err := pkg.ReadFile(path)
	if err != nil {
		return nil, fileErrToParseErr(path, err)
	}
	tree, err := parser.Parse(string(data))
	if err != nil {
		return nil, wrapParseErr(err, path, string(data))
	}
	return tree, nil
}

// ParseFileAsObject parses path and returns its root as an Object
// instead of a *value.Tree.
func ParseFileAsObject(path string) (*Object, error) {
	tree, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	return AsObject(tree), nil
}

// NewBuilder returns a Builder using the default indentation width.
func NewBuilder() *builder.Builder {
	return builder.New()
}

func fileErrToParseErr(path string, err error) *ParseError {
	var notExist *pkg.NotExistError
	var notReadable *pkg.NotReadableError
	switch {
	case errors.As(err, &notExist):
		return &ParseError{Filename: path, Message: "file does not exist", err: err}
	case errors.As(err, &notReadable):
		return &ParseError{Filename: path, Message: "file not readable", err: err}
	default:
		return &ParseError{Filename: path, Message: err.Error(), err: err}
	}
}

func wrapParseErr(err error, filename, input string) *ParseError {
	var syn *lexer.SyntaxError
	line := 0
	msg := err.Error()
	if errors.As(err, &syn) {
		line = syn.Line
		msg = syn.Message
	}
	return &ParseError{
		Filename: filename,
		Line:     line,
		Snippet:  snippetAt(input, line),
		Message:  msg,
		err:      err,
	}
}

const maxSnippetLen = 60

func snippetAt(input string, line int) string {
	if line <= 0 {
		return ""
	}
	lines := strings.Split(input, "\n")
	if line > len(lines) {
		return ""
	}
	s := strings.TrimSpace(lines[line-1])
	if len(s) > maxSnippetLen {
		s = s[:maxSnippetLen] + "…"
	}
	return s
}

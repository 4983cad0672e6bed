package exprlang

import "fmt"

// ParseError reports a formula/filter parse failure together with the
// offending token and its byte offset in the source string, per spec.md
// §4.1 ("Parse failures return a typed error pointing at offset and
// token").
type ParseError struct {
	Offset  int
	Token   string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d (near %q): %s", e.Offset, e.Token, e.Message)
}

func newParseError(tok Token, format string, args ...interface{}) *ParseError {
	return &ParseError{
		Offset:  tok.Offset,
		Token:   tok.Literal,
		Message: fmt.Sprintf(format, args...),
	}
}

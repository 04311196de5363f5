package store

import "errors"

// ErrorKind classifies a store-level failure so the command layer can map
// it to the correct wire error code (§7).
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindWrongType
	KindNotInteger
	KindOverflow
	KindNoSuchKey
	KindSyntax
)

// Error is a typed error carrying the classification the dispatcher needs
// to pick a "-WRONGTYPE"/"-ERR" wire prefix without string-sniffing.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func newErr(kind ErrorKind, msg string) error { return &Error{Kind: kind, Msg: msg} }

var (
	ErrWrongType   = newErr(KindWrongType, "WRONGTYPE Operation against a key holding the wrong kind of value")
	ErrNotInteger  = newErr(KindNotInteger, "ERR value is not an integer or out of range")
	ErrNotFloat    = newErr(KindNotInteger, "ERR value is not a valid float")
	ErrOverflow    = newErr(KindOverflow, "ERR increment or decrement would overflow")
	ErrNoSuchKey   = newErr(KindNoSuchKey, "ERR no such key")
	ErrSyntax      = newErr(KindSyntax, "ERR syntax error")
	ErrNotANumber  = newErr(KindNotInteger, "ERR value is not a number")
)

// As classifies err, falling back to KindNone for plain errors.
func As(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindNone
}

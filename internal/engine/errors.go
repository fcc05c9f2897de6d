package engine

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed run.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindUsage
	KindNotFound
	KindParse
	KindWrite
	KindOther
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindUsage:
		return "usage"
	case KindNotFound:
		return "not-found"
	case KindParse:
		return "parse"
	case KindWrite:
		return "write"
	}
	return "other"
}

// UsageError means the analyzer was invoked incorrectly: no path, an unknown
// parser backend or an invalid rule or scoring configuration.
type UsageError struct {
	Msg string
	Err error
}

func (e *UsageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("usage: %s: %v", e.Msg, e.Err)
	}
	return "usage: " + e.Msg
}

func (e *UsageError) Unwrap() error { return e.Err }

// NotFoundError means the contract path does not name a readable regular file.
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s: %v", e.Path, e.Err)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// ParseError carries the parser's fatal message verbatim.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string { return "parse error: " + e.Err.Error() }

func (e *ParseError) Unwrap() error { return e.Err }

// WriteError means analysis succeeded but the report could not be persisted.
type WriteError struct {
	Dir string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write failed: %s: %v", e.Dir, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// KindOf returns the kind of the first typed error in err's chain.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var (
		ue *UsageError
		ne *NotFoundError
		pe *ParseError
		we *WriteError
	)
	switch {
	case errors.As(err, &ue):
		return KindUsage
	case errors.As(err, &ne):
		return KindNotFound
	case errors.As(err, &pe):
		return KindParse
	case errors.As(err, &we):
		return KindWrite
	}
	return KindOther
}

// ExitCode maps err to the process exit status: 0 success, 1 bad input or
// cancellation, 2 usage, 3 write failure.
func ExitCode(err error) int {
	switch KindOf(err) {
	case KindNone:
		return 0
	case KindUsage:
		return 2
	case KindWrite:
		return 3
	}
	return 1
}

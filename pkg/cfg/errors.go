package cfg

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedConstruct is returned when a tree node's kind is outside
	// the set the builder lowers.
	ErrUnsupportedConstruct = errors.New("unsupported construct")

	// ErrInvalidControlTransfer is returned for break or continue with no
	// enclosing target.
	ErrInvalidControlTransfer = errors.New("invalid control transfer")

	// ErrMalformedInput is returned when a required child is missing.
	ErrMalformedInput = errors.New("malformed input")
)

// LowerError describes why a unit could not be lowered.
type LowerError struct {
	Kind      error  // One of the Err* sentinels
	Construct string // Offending node kind
	Line      int    // 1-based source line, 0 if unknown
	Detail    string
}

func (e *LowerError) Error() string {
	msg := e.Kind.Error()
	if e.Construct != "" {
		msg += " " + e.Construct
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(" at line %d", e.Line)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *LowerError) Unwrap() error {
	return e.Kind
}

func unsupported(construct string, line int, detail string) error {
	return &LowerError{Kind: ErrUnsupportedConstruct, Construct: construct, Line: line, Detail: detail}
}

func malformed(construct string, line int, detail string) error {
	return &LowerError{Kind: ErrMalformedInput, Construct: construct, Line: line, Detail: detail}
}

func invalidTransfer(construct string, line int, detail string) error {
	return &LowerError{Kind: ErrInvalidControlTransfer, Construct: construct, Line: line, Detail: detail}
}

// atLine fills in the line of a LowerError raised below statement level,
// where expressions and types carry no position.
func atLine(err error, line int) error {
	var le *LowerError
	if errors.As(err, &le) && le.Line == 0 {
		le.Line = line
	}
	return err
}

// Err joins the errors of all failed units, or returns nil.
func (f *Forest) Err() error {
	var errs []error
	for _, u := range f.Failed() {
		err := u.Err
		if err == nil {
			err = errors.New(u.Error)
		}
		name := u.Name
		if name == "" {
			name = string(u.Kind)
		}
		errs = append(errs, fmt.Errorf("%s (line %d): %w", name, u.Line, err))
	}
	return errors.Join(errs...)
}

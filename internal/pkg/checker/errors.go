package checker

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	// SymbolTable errors wrap a symbols clash, missing name or wrong kind.
	SymbolTable ErrorKind = iota
	Semantic
	Other
)

func (k ErrorKind) String() string {
	switch k {
	case SymbolTable:
		return "symbol table"
	case Semantic:
		return "semantic"
	default:
		return "other"
	}
}

// Error is returned by Check for every failing statement.
type Error struct {
	Kind ErrorKind
	// Statement is the zero-based position of the failing statement.
	Statement int
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error in statement %d: %s", e.Kind, e.Statement+1, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var ErrBetweenActionInUnboundedRule = errors.New("range output values are only allowed in between rules")

type NumberOutOfBoundsError struct {
	What     string
	Boundary [2]int
	Got      int
}

func (e *NumberOutOfBoundsError) Error() string {
	return fmt.Sprintf("%s %d is outside [%d, %d]", e.What, e.Got, e.Boundary[0], e.Boundary[1])
}

type InvalidPercentError struct {
	Got int
}

func (e *InvalidPercentError) Error() string {
	return fmt.Sprintf("invalid percent %d, must be within [0, 100]", e.Got)
}

type InvalidConditionRangeError struct {
	Min int
	Max int
}

func (e *InvalidConditionRangeError) Error() string {
	if e.Min == e.Max {
		return fmt.Sprintf("between [%d, %d] is empty, cannot interpolate across it", e.Min, e.Max)
	}
	return fmt.Sprintf("between [%d, %d] has min greater than max", e.Min, e.Max)
}

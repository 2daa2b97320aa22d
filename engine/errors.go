package engine

import (
	"errors"
	"fmt"
)

// Kind classifies a dispatch failure. Callers map kinds to an outward
// status; the engine itself never retries or degrades.
type Kind string

const (
	KindRouting    Kind = "routing"
	KindFetch      Kind = "fetch"
	KindExtract    Kind = "extract"
	KindLoad       Kind = "load"
	KindInvocation Kind = "invocation"
)

// Sentinel causes reachable through errors.Is on a dispatch error.
var (
	ErrPathRequired     = errors.New("path is required")
	ErrNoRoute          = errors.New("no function matches path")
	ErrFunctionNotFound = errors.New("function not found in registry")
)

// Error is the engine's dispatch failure type. Function and Module are set
// when known at the point of failure; Err preserves the original cause.
type Error struct {
	Kind     Kind
	Function string
	Module   string
	Err      error
}

func (e *Error) Error() string {
	switch {
	case e.Function != "" && e.Module != "":
		return fmt.Sprintf("%s: function %q (module %q): %v", e.Kind, e.Function, e.Module, e.Err)
	case e.Function != "":
		return fmt.Sprintf("%s: function %q: %v", e.Kind, e.Function, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the failure kind from a dispatch error, or "" if err is
// not an engine error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

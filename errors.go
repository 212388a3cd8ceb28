package ember

import (
	"errors"
	"fmt"
)

// Authoring errors, raised at graph construction time so a bad effect
// definition can never reach the compiler.
var (
	ErrUndeclaredProperty = errors.New("undeclared property")
	ErrDuplicateProperty  = errors.New("duplicate property")
	ErrTypeMismatch       = errors.New("type mismatch")
)

// CompileError reports that the shader backend rejected generated source.
// Fatal for the one effect it belongs to; the variant cache and all other
// effects stay intact.
type CompileError struct {
	Label string
	Cause error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("shader compile failed for %q: %v", e.Label, e.Cause)
}

func (e *CompileError) Unwrap() error {
	return e.Cause
}

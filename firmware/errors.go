package firmware

import (
	"fmt"
	"strings"
)

// NoWriteCapabilityError reports a loader that exposes none of the write
// strategies.
type NoWriteCapabilityError struct {
	Probed []string
}

func (e *NoWriteCapabilityError) Error() string {
	return fmt.Sprintf("loader has no flash write capability (probed %s)", strings.Join(e.Probed, ", "))
}

// ProgramError is returned when Program rejected every argument shape.
type ProgramError struct {
	Errs []error
}

func (e *ProgramError) Error() string {
	parts := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		parts[i] = err.Error()
	}
	return "program rejected every argument shape: " + strings.Join(parts, "; ")
}

func (e *ProgramError) Unwrap() []error {
	return e.Errs
}

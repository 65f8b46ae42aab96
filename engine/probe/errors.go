package probe

import (
	"errors"
	"fmt"
)

// ErrDatabase is matched by every failure of a database step.
var ErrDatabase = errors.New("database operation failed")

// Step names used in errors and logs.
const (
	StepConnect     = "connect"
	StepDropTable   = "drop_table"
	StepCreateTable = "create_table"
	StepInsert      = "insert"
	StepRead        = "read"
	StepServerZone  = "server_zone"
)

// Error is a database failure tied to the step that raised it.
type Error struct {
	Step string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("%s failed", e.Step)
}

func (e *Error) Is(target error) bool {
	return target == ErrDatabase
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err as a failure of step.
func NewError(step string, err error) error {
	return &Error{Step: step, Err: err}
}

package probe

import (
	"context"
	"fmt"
	"io"

	"github.com/compozy/tzprobe/pkg/logger"
)

const (
	StatusOK     = "OK"
	StatusFailed = "FAILED"
)

// runStep prints message, runs fn and completes the line with OK or FAILED.
// A failure is returned as *Error for step.
func runStep(ctx context.Context, out io.Writer, step, message string, fn func() error) error {
	log := logger.FromContext(ctx).With("step", step)
	fmt.Fprint(out, message)
	if err := fn(); err != nil {
		fmt.Fprintln(out, StatusFailed)
		log.Debug("Step failed", "error", err)
		return NewError(step, err)
	}
	fmt.Fprintln(out, StatusOK)
	log.Debug("Step completed")
	return nil
}

package treewalk

import (
	"errors"
	"fmt"
	"syscall"
)

var (
	// ErrClosedPipe marks a write that failed because the consumer closed
	// the output stream. The run aborts silently with a failure status.
	ErrClosedPipe = errors.New("treewalk: output stream closed by consumer")

	// ErrTooDeep marks a walk that exceeded the open-directory ceiling.
	ErrTooDeep = errors.New("treewalk: directory nesting exceeds limit")
)

// wrapWriteError maps broken-pipe failures to ErrClosedPipe and annotates
// everything else.
func wrapWriteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, syscall.EPIPE) {
		return ErrClosedPipe
	}
	return fmt.Errorf("write output: %w", err)
}

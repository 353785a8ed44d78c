package rabbit

import (
	"errors"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/rabbit"
)

// isRecoverableError returns true if the provided error must be requeued
func isRecoverableError(err error) bool {
	return oneOf(err, types.ErrDatabaseFailed, rabbit.ErrBusUnavailable)
}

// isFastFail reports errors that retrying right away cannot fix.
func isFastFail(err error) bool {
	return oneOf(err, rabbit.ErrBusUnavailable, rabbit.ErrBusClosed)
}

func oneOf(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// retry calls fn up to n times, sleeping between attempts. Fast-fail errors
// are returned immediately.
func retry(n int, sleep time.Duration, fn func() error) error {
	var err error
	for i := range n {
		if err = fn(); err == nil || isFastFail(err) {
			return err
		}
		if i < n-1 {
			time.Sleep(sleep)
		}
	}
	return err
}

package wrap

import (
	"context"
	"errors"
)

// Error attaches the LogCtx of ctx to err. An already wrapped error keeps its
// chain and only gets the newer context.
func Error(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	var e *errorWithLogCtx
	if errors.As(err, &e) {
		return &errorWithLogCtx{err: err, logCtx: mergeLogCtx(e.logCtx, fromCtx(ctx))}
	}

	return &errorWithLogCtx{
		err:    err,
		logCtx: fromCtx(ctx),
	}
}

// mergeLogCtx keeps the deepest non-empty values, filling gaps from outer.
func mergeLogCtx(inner, outer LogCtx) LogCtx {
	if inner.Action == "" {
		inner.Action = outer.Action
	}
	if inner.UserID == "" {
		inner.UserID = outer.UserID
	}
	if inner.DriverID == "" {
		inner.DriverID = outer.DriverID
	}
	if inner.RequestID == "" {
		inner.RequestID = outer.RequestID
	}
	if inner.RideID == "" {
		inner.RideID = outer.RideID
	}
	return inner
}

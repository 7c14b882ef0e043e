package trade

import (
	"context"
	"errors"
	"time"

	"github.com/coopmarket/backend/internal/domain/shared"
)

// DefaultOperationTimeout bounds every order operation when none is configured
const DefaultOperationTimeout = 5 * time.Second

// withDeadline derives a context that expires after timeout. An earlier
// deadline already set on ctx is kept.
func withDeadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultOperationTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// mapDeadline turns context expiry into the retryable timeout error
func mapDeadline(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return shared.ErrTimeout.Wrap(err)
	}
	return err
}

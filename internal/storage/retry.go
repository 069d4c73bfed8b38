package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/mcoot/bubble/internal/model"
)

// RetryConfig bounds optimistic-write retries
type RetryConfig struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig returns sensible defaults for conflict retries
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     5,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     200 * time.Millisecond,
	}
}

// RetryOnConflict runs a read-modify-write operation, re-running it while it
// fails with model.ErrVersionConflict. Any other error stops immediately.
// After MaxAttempts conflicts it returns model.ErrConflict.
func RetryOnConflict(ctx context.Context, cfg RetryConfig, op func() error) error {
	if cfg.MaxAttempts == 0 {
		cfg = DefaultRetryConfig()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialInterval
	b.MaxInterval = cfg.MaxInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := op()
		if err == nil || errors.Is(err, model.ErrVersionConflict) {
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(cfg.MaxAttempts),
	)
	if errors.Is(err, model.ErrVersionConflict) {
		return fmt.Errorf("%w: %w", model.ErrConflict, err)
	}
	return err
}

package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"smartscore/internal/model"
)

// Retrying retries transient ledger failures with exponential backoff.
// Errors that survive all attempts are reported as ErrLedgerUnavailable.
type Retrying struct {
	Reader     Reader
	MaxRetries int
	Backoff    time.Duration
	Logger     *zap.Logger
}

func (r *Retrying) TradesForWallet(ctx context.Context, wallet string, w Window) ([]model.Trade, error) {
	var trades []model.Trade
	err := r.do(ctx, "trades for wallet", func(ctx context.Context) error {
		var err error
		trades, err = r.Reader.TradesForWallet(ctx, wallet, w)
		return err
	})
	return trades, err
}

func (r *Retrying) ActiveWallets(ctx context.Context, w Window) ([]string, error) {
	var wallets []string
	err := r.do(ctx, "active wallets", func(ctx context.Context) error {
		var err error
		wallets, err = r.Reader.ActiveWallets(ctx, w)
		return err
	})
	return wallets, err
}

func (r *Retrying) MarketPrices(ctx context.Context, marketID string, w Window) ([]model.PricePoint, error) {
	var points []model.PricePoint
	err := r.do(ctx, "market prices", func(ctx context.Context) error {
		var err error
		points, err = r.Reader.MarketPrices(ctx, marketID, w)
		return err
	})
	return points, err
}

func (r *Retrying) do(ctx context.Context, op string, fn func(context.Context) error) error {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var rejected *RejectedTradesError
	err := WithRetry(ctx, r.MaxRetries, r.Backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if errors.As(err, &rejected) {
			return nil
		}
		if err != nil {
			logger.Warn("ledger read failed", zap.String("op", op), zap.Error(err))
		}
		return err
	})
	if rejected != nil {
		return rejected
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrLedgerUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrLedgerUnavailable, op, err)
}

// WithRetry calls fn until it succeeds or maxRetries retries are spent,
// doubling the delay after each failure.
func WithRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}

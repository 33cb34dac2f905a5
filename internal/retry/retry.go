package retry

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// Config controls the backoff schedule. The growth factor is aggressive
// on purpose: news providers rate-limit hard, so the second retry should
// already be well clear of the limit window.
type Config struct {
	MaxAttempts  int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	GrowthFactor float64
	JitterWindow time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		BaseDelay:    500 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		GrowthFactor: 4.0,
		JitterWindow: 300 * time.Millisecond,
	}
}

// Classifier decides whether an error is worth retrying.
type Classifier func(error) bool

type Retrier struct {
	cfg         Config
	isRetryable Classifier
	logger      *slog.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

func New(cfg Config, classifier Classifier, logger *slog.Logger) *Retrier {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrier{
		cfg:         cfg,
		isRetryable: classifier,
		logger:      logger,
		sleep:       contextSleep,
	}
}

// Do runs operation up to MaxAttempts times. The final failure always
// propagates to the caller; the policy never swallows it.
func (r *Retrier) Do(ctx context.Context, operation func() error) error {
	var lastErr error
	attempts := 0

	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		attempts = attempt
		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				r.logger.Info("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		retryable := r.isRetryable == nil || r.isRetryable(lastErr)
		if attempt == r.cfg.MaxAttempts || !retryable {
			r.logger.Warn("operation failed permanently",
				"attempt", attempt,
				"retryable", retryable,
				"error", lastErr)
			break
		}

		delay := r.delay(attempt)
		r.logger.Info("retrying after backoff",
			"attempt", attempt,
			"delay", delay,
			"error", lastErr)

		if err := r.sleep(ctx, delay); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", attempts, lastErr)
}

// delay computes base * growth^(attempt-1) capped at MaxDelay, plus a
// uniform jitter so concurrent per-source retries do not align.
func (r *Retrier) delay(attempt int) time.Duration {
	d := float64(r.cfg.BaseDelay) * math.Pow(r.cfg.GrowthFactor, float64(attempt-1))
	if d > float64(r.cfg.MaxDelay) {
		d = float64(r.cfg.MaxDelay)
	}
	if r.cfg.JitterWindow > 0 {
		d += rand.Float64() * float64(r.cfg.JitterWindow)
	}
	return time.Duration(d)
}

func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

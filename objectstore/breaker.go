package objectstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/sagarc03/filevault"
)

// BreakerConfig configures the circuit breaker placed in front of a gateway.
type BreakerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxRequests uint32        `mapstructure:"max_requests"` // Requests allowed while half-open
	Interval    time.Duration `mapstructure:"interval"`     // Closed-state count reset period
	Timeout     time.Duration `mapstructure:"timeout"`      // Open-state duration before half-open
	MinRequests uint32        `mapstructure:"min_requests"` // Requests before the failure rate is considered
	FailureRate float64       `mapstructure:"failure_rate"` // Failure ratio that opens the breaker
}

// Breaker is a filevault.ObjectGateway that stops deleting objects while the
// wrapped gateway keeps failing to. Deletes rejected by an open breaker return
// filevault.ErrStorage.
//
// URL issuance is a signing step that never reaches the store, so it bypasses
// the breaker and keeps working while deletes are rejected.
type Breaker struct {
	next filevault.ObjectGateway
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker wraps next with a circuit breaker named name.
func NewBreaker(name string, next filevault.ObjectGateway, cfg BreakerConfig) *Breaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRate := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRate >= cfg.FailureRate
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("object gateway breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
		// A caller giving up is not a gateway failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

// State reports the breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func (b *Breaker) IssueUploadTarget(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	return b.next.IssueUploadTarget(ctx, key, contentType, ttl)
}

func (b *Breaker) IssueDownloadTarget(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return b.next.IssueDownloadTarget(ctx, key, ttl)
}

func (b *Breaker) DeleteObject(ctx context.Context, key string) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.next.DeleteObject(ctx, key)
	})
	if err != nil {
		return b.wrap("delete object", err)
	}
	return nil
}

func (b *Breaker) wrap(op string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: %w: %w", op, filevault.ErrStorage, err)
	}
	return err
}

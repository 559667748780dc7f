package retry

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/latticeworks/substrate/internal/apperr"
	"github.com/latticeworks/substrate/internal/logging"
	"github.com/latticeworks/substrate/internal/metrics"
	"github.com/latticeworks/substrate/internal/outcome"
)

// Policy configures the retry behavior of one IO adapter. It is passed in
// explicitly so the policy is swappable per test.
type Policy struct {
	// MaxAttempts is the hard cap on attempts, including the first.
	MaxAttempts int
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// Multiplier grows the delay between consecutive retries.
	Multiplier float64
}

// DefaultPolicy returns the standard retry policy: 5 attempts total with
// backoff delays of 200, 600, 1800, 5400ms.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   200 * time.Millisecond,
		Multiplier:  3,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.Multiplier <= 0 {
		p.Multiplier = 1
	}
	return p
}

// delay returns the backoff before retry number n (1-based).
func (p Policy) delay(n int) time.Duration {
	return time.Duration(float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(n-1)))
}

// Do invokes op, retrying on failures the classifier judges transient,
// strictly sequentially with exponential backoff. The terminal raw failure
// is logged exactly once at error severity with the cause attached, then
// translated into an application error: a schema-validation failure
// becomes KindValidation carrying args; anything else, including exhausted
// transient retries, becomes KindUnavailable. Do never panics and never
// returns a raw error.
func Do[R any](ctx context.Context, pol Policy, classify Classifier, log *logging.Logger, opName string, args any, op func(context.Context) (R, error)) outcome.Outcome[R] {
	pol = pol.normalized()

	var lastErr error
	for attempt := 1; ; attempt++ {
		value, err := op(ctx)
		if err == nil {
			return outcome.OK(value)
		}
		lastErr = err

		if !classify(err) || attempt >= pol.MaxAttempts {
			break
		}
		metrics.RecordRetry(opName)

		timer := time.NewTimer(pol.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			lastErr = errors.Join(ctx.Err(), lastErr)
		case <-timer.C:
			continue
		}
		break
	}

	log.WithContext(ctx).WithError(lastErr).WithFields(map[string]interface{}{
		"operation": opName,
	}).Error("operation failed")

	var issues *apperr.ValidationIssues
	if errors.As(lastErr, &issues) {
		return outcome.Fail[R](apperr.Validation(opName+" rejected input", lastErr).WithData(args))
	}
	return outcome.Fail[R](apperr.Unavailable(opName+" failed", lastErr).WithData(args))
}

// DoStore runs a document store operation under the store failure
// classifier.
func DoStore[R any](ctx context.Context, pol Policy, log *logging.Logger, opName string, args any, op func(context.Context) (R, error)) outcome.Outcome[R] {
	return Do(ctx, pol, TransientStore, log, opName, args, op)
}

// DoService runs an outside-service call under the service failure
// classifier.
func DoService[R any](ctx context.Context, pol Policy, log *logging.Logger, opName string, args any, op func(context.Context) (R, error)) outcome.Outcome[R] {
	return Do(ctx, pol, TransientService, log, opName, args, op)
}

// Package poll implements bounded fixed-interval polling for asynchronous
// backend jobs. One reusable loop replaces the per-call-site polling the
// review workflow needs for long-running section analysis.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted is returned when the attempt budget runs out before the job
// reaches a terminal state.
var ErrExhausted = errors.New("polling attempts exhausted")

// Defaults match the review backend's task queue: one poll per second for
// up to two minutes.
const (
	DefaultInterval    = time.Second
	DefaultMaxAttempts = 120
)

// Func performs one poll attempt.
//
// The returned values drive the loop:
//   - done=true, err=nil: the job succeeded; value is delivered.
//   - done=true, err!=nil: the job failed terminally; err is delivered.
//   - done=false, err!=nil: transient error; the loop continues.
//   - done=false, err=nil: job still running; the loop continues.
type Func[T any] func(ctx context.Context) (value T, done bool, err error)

// Options configure a polling loop. Zero values use the defaults.
type Options struct {
	Interval    time.Duration
	MaxAttempts int
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	return o
}

// Poll runs fn at a fixed interval until it reports a terminal state, the
// attempt budget is exhausted, or ctx is canceled. Exhaustion delivers a
// single error wrapping ErrExhausted. Transient per-attempt errors never
// abort the loop.
func Poll[T any](ctx context.Context, fn Func[T], opts Options) (T, error) {
	var zero T
	opts = opts.withDefaults()

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		value, done, err := fn(ctx)
		if done {
			if err != nil {
				return zero, err
			}
			return value, nil
		}

		if attempt >= opts.MaxAttempts {
			return zero, fmt.Errorf("%w after %d attempts", ErrExhausted, attempt)
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-ticker.C:
		}
	}
}

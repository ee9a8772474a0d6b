package emitter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/correlator-io/lineage/internal/lineage"
)

// Sentinel errors for emission outcomes.
// These can be used with errors.Is() for error checking.
var (
	// ErrRejected indicates the backend rejected the payload (4xx). Rejections
	// are never retried: a malformed event stays malformed on replay.
	ErrRejected = errors.New("event rejected by backend")

	// ErrUnreachable indicates transient failures exhausted the retry budget.
	ErrUnreachable = errors.New("backend unreachable")

	// ErrNilTransport indicates the client was constructed without a transport.
	ErrNilTransport = errors.New("transport cannot be nil")
)

type (
	// Transport delivers one serialized event to the backend.
	//
	// Implementations classify failures: a permanent rejection wraps
	// ErrRejected, anything else is treated as transient and retried by the
	// Client. Implementations must be safe for concurrent use - many
	// simultaneously open runs share one transport.
	Transport interface {
		Deliver(ctx context.Context, payload []byte) error
	}

	// Client delivers RunEvents reliably: transient failures are retried with
	// exponential backoff, rejections surface immediately, and a token bucket
	// caps the sustained outbound rate.
	//
	// The client never deduplicates locally. The backend upserts by
	// (run id, eventType), so re-delivering the same event after a retry is
	// safe; at-least-once is the delivery contract.
	//
	// The client imposes no cross-run ordering. For a single run, callers
	// (the run tracker) serialize emission so START precedes any terminal
	// event.
	Client struct {
		transport         Transport
		limiter           *rate.Limiter
		maxRetries        int
		backoffBase       time.Duration
		backoffMultiplier float64
		logger            *slog.Logger
	}
)

const limiterBurstMultiplier = 2

// NewClient creates an emission client around the given transport.
// A nil logger falls back to slog.Default().
func NewClient(cfg *Config, transport Transport, logger *slog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("emitter config: %w", err)
	}

	if transport == nil {
		return nil, ErrNilTransport
	}

	if logger == nil {
		logger = slog.Default()
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.MaxEventsPerSecond > 0 {
		burst := int(cfg.MaxEventsPerSecond) * limiterBurstMultiplier
		if burst < 1 {
			burst = 1
		}

		limiter = rate.NewLimiter(rate.Limit(cfg.MaxEventsPerSecond), burst)
	}

	return &Client{
		transport:         transport,
		limiter:           limiter,
		maxRetries:        cfg.MaxRetries,
		backoffBase:       cfg.BackoffBase,
		backoffMultiplier: cfg.BackoffMultiplier,
		logger:            logger,
	}, nil
}

// Emit delivers one event to the backend.
//
// Outcomes:
//   - nil: the backend accepted the event (eventual visibility is acceptable;
//     acceptance does not imply the event is durably queryable yet)
//   - ErrRejected: the backend rejected the payload; not retried
//   - ErrUnreachable: transient failures exhausted MaxRetries
//   - ctx.Err(): the caller cancelled; cancellation interrupts both in-flight
//     deliveries and pending backoff waits
func (c *Client) Emit(ctx context.Context, event *lineage.RunEvent) error {
	payload, err := lineage.MarshalEvent(event)
	if err != nil {
		return err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	var lastErr error

	delay := c.backoffBase

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, delay); err != nil {
				return err
			}

			delay = time.Duration(float64(delay) * c.backoffMultiplier)
		}

		err := c.transport.Deliver(ctx, payload)
		if err == nil {
			c.logger.Debug("Lineage event emitted",
				slog.String("event_type", string(event.EventType)),
				slog.String("run_id", event.Run.ID),
				slog.String("job", event.Job.Name),
				slog.Int("attempt", attempt+1),
			)

			return nil
		}

		if errors.Is(err, ErrRejected) {
			return err
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("emit cancelled: %w", ctxErr)
		}

		lastErr = err

		c.logger.Warn("Lineage event delivery failed, will retry",
			slog.String("event_type", string(event.EventType)),
			slog.String("run_id", event.Run.ID),
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", c.maxRetries+1),
			slog.String("error", err.Error()),
		)
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrUnreachable, c.maxRetries+1, lastErr)
}

// sleepContext waits for the given duration or until the context is done,
// whichever comes first. A cancellation request interrupts a pending backoff
// wait, not just a pending network call.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("emit cancelled during backoff: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// Package tracker provides the per-run state machine governing event
// sequencing for one unit of pipeline work.
//
// The orchestrator contract is: call Start before doing work, then exactly one
// of Succeed, Fail, or Abort after. The tracker enforces legal ordering -
// every run emits exactly one START before any terminal event, and terminal
// states are final.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/correlator-io/lineage/internal/emitter"
	"github.com/correlator-io/lineage/internal/lineage"
)

// Sentinel errors for run state machine misuse. These indicate programmer
// error in the orchestration code and should be unreachable when the
// start-then-one-terminal contract is honored, but they fail loudly rather
// than silently reordering events.
var (
	// ErrAlreadyOpen indicates Start was called twice on the same run handle.
	ErrAlreadyOpen = errors.New("run already open")

	// ErrIllegalTransition indicates a transition that the run cycle forbids,
	// such as a second terminal event or Succeed before Start.
	ErrIllegalTransition = errors.New("illegal run state transition")
)

// state is the run lifecycle position: Unopened → Started → terminal.
type state int

const (
	stateUnopened state = iota
	stateStarted
	stateCompleted
	stateFailed
	stateAborted
)

// String returns the lifecycle state name for logs and errors.
func (s state) String() string {
	switch s {
	case stateUnopened:
		return "UNOPENED"
	case stateStarted:
		return "STARTED"
	case stateCompleted:
		return "COMPLETED"
	case stateFailed:
		return "FAILED"
	case stateAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// terminal reports whether the state admits no further transitions.
func (s state) terminal() bool {
	return s == stateCompleted || s == stateFailed || s == stateAborted
}

type (
	// Tracker opens run handles for pipeline stages. One Tracker is shared by
	// all stages in a process; the builder and client it delegates to are safe
	// for concurrent use by many simultaneously open runs.
	Tracker struct {
		builder *emitter.Builder
		client  *emitter.Client
		logger  *slog.Logger
	}

	// Run is the handle for one unit of work. A handle is owned by exactly one
	// logical unit of work; the internal mutex only guards against accidental
	// sharing, it is not an invitation to share handles across stages.
	Run struct {
		tracker *Tracker
		job     lineage.Job
		id      string

		mu       sync.Mutex
		state    state
		emitErrs []error
	}
)

// New creates a Tracker emitting through the given builder and client.
// A nil logger falls back to slog.Default().
func New(builder *emitter.Builder, client *emitter.Client, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}

	return &Tracker{
		builder: builder,
		client:  client,
		logger:  logger,
	}
}

// NewRun allocates an unopened run handle for the given job with a fresh
// run ID. Two concurrent runs of the same job never collide: every handle gets
// its own UUID.
func (t *Tracker) NewRun(job lineage.Job) *Run {
	return &Run{
		tracker: t,
		job:     job,
		id:      uuid.NewString(),
		state:   stateUnopened,
	}
}

// Start opens a run for the job and emits its START event in one call.
func (t *Tracker) Start(
	ctx context.Context,
	job lineage.Job,
	inputs, outputs []lineage.Dataset,
	opts ...emitter.BuildOption,
) (*Run, error) {
	run := t.NewRun(job)
	if err := run.Start(ctx, inputs, outputs, opts...); err != nil {
		return nil, err
	}

	return run, nil
}

// ID returns the run identifier.
func (r *Run) ID() string {
	return r.id
}

// Done reports whether the run has reached a terminal state.
func (r *Run) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state.terminal()
}

// EmissionErrors returns delivery failures collected on the failure path.
// These never mask the business error the caller reported; they are exposed
// here for callers that want to surface degraded lineage visibility.
func (r *Run) EmissionErrors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]error, len(r.emitErrs))
	copy(out, r.emitErrs)

	return out
}

// Start emits the START event and transitions the run to Started.
// Inputs and outputs are optional at this point; datasets discovered during
// the work can still be declared on the terminal event.
//
// Returns ErrAlreadyOpen if the handle was started before, ErrIllegalTransition
// if it is already terminal. Emission failures surface to the caller and leave
// the run unopened so the failure path can still emit an implicit START.
func (r *Run) Start(
	ctx context.Context,
	inputs, outputs []lineage.Dataset,
	opts ...emitter.BuildOption,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.state == stateStarted:
		return fmt.Errorf("%w: run %s", ErrAlreadyOpen, r.id)
	case r.state.terminal():
		return fmt.Errorf("%w: %s → STARTED", ErrIllegalTransition, r.state)
	}

	if err := r.emit(ctx, lineage.EventTypeStart, inputs, outputs, opts...); err != nil {
		return err
	}

	r.state = stateStarted

	return nil
}

// Succeed emits the COMPLETE event and transitions the run to Completed.
// Only legal from Started: succeeding a run that never started would produce a
// terminal event with no preceding START.
func (r *Run) Succeed(ctx context.Context, inputs, outputs []lineage.Dataset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != stateStarted {
		return fmt.Errorf("%w: %s → COMPLETED", ErrIllegalTransition, r.state)
	}

	if err := r.emit(ctx, lineage.EventTypeComplete, inputs, outputs); err != nil {
		return err
	}

	r.state = stateCompleted

	return nil
}

// Fail records the run as failed and emits a FAIL event carrying the error
// message as an errorMessage run facet.
//
// Fail is legal from Started and also from Unopened, covering failures that
// occur before a START could be emitted: in that case an implicit START is
// emitted immediately before the FAIL, preserving the invariant that every run
// has exactly one START before any terminal event.
//
// The failure path is resilient: emission failures are logged and collected
// (see EmissionErrors) but never returned, so they cannot mask the original
// error the caller is reporting. The only error Fail returns is
// ErrIllegalTransition when the run is already terminal.
func (r *Run) Fail(ctx context.Context, errorMessage string) error {
	return r.terminate(ctx, lineage.EventTypeFail, stateFailed, errorMessage)
}

// Abort records an explicit cancellation (upstream timeout, operator action)
// and emits an ABORT event with the reason. Same resilience contract as Fail.
func (r *Run) Abort(ctx context.Context, reason string) error {
	return r.terminate(ctx, lineage.EventTypeAbort, stateAborted, reason)
}

// terminate is the shared failure-class path for Fail and Abort.
func (r *Run) terminate(
	ctx context.Context,
	eventType lineage.EventType,
	target state,
	message string,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.terminal() {
		return fmt.Errorf("%w: %s → %s", ErrIllegalTransition, r.state, target)
	}

	// A failure before Start still needs its START: emit one best-effort so
	// the backend sees a complete run cycle.
	if r.state == stateUnopened {
		if err := r.emit(ctx, lineage.EventTypeStart, nil, nil); err != nil {
			r.collectEmitError(lineage.EventTypeStart, err)
		}
	}

	if err := r.emit(ctx, eventType, nil, nil, emitter.WithErrorMessage(message)); err != nil {
		r.collectEmitError(eventType, err)
	}

	r.state = target

	return nil
}

// emit builds and delivers one event for this run. Callers hold r.mu, which
// serializes emission per run: START always precedes the terminal event.
func (r *Run) emit(
	ctx context.Context,
	eventType lineage.EventType,
	inputs, outputs []lineage.Dataset,
	opts ...emitter.BuildOption,
) error {
	event, err := r.tracker.builder.BuildEvent(eventType, r.id, r.job, inputs, outputs, opts...)
	if err != nil {
		return err
	}

	return r.tracker.client.Emit(ctx, event)
}

// collectEmitError records a best-effort emission failure without surfacing it.
func (r *Run) collectEmitError(eventType lineage.EventType, err error) {
	r.emitErrs = append(r.emitErrs, fmt.Errorf("emit %s: %w", eventType, err))

	r.tracker.logger.Warn("Best-effort lineage emission failed",
		slog.String("event_type", string(eventType)),
		slog.String("run_id", r.id),
		slog.String("job", r.job.Name),
		slog.String("error", err.Error()),
	)
}

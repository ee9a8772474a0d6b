package emitter

import (
	"fmt"
	"time"

	"github.com/correlator-io/lineage/internal/lineage"
)

type (
	// Builder assembles well-formed RunEvents for a fixed namespace.
	//
	// Building is a pure transformation: no network is touched and no state is
	// mutated, so event construction is deterministic apart from the eventTime
	// stamp. One Builder is shared by all runs in a process; it is safe for
	// concurrent use.
	Builder struct {
		namespace string
		producer  string

		// now is the clock used to stamp eventTime. Overridable in tests.
		now func() time.Time
	}

	// BuildOption customizes one built event.
	BuildOption func(*buildOptions)

	buildOptions struct {
		jobDescription string
		errorMessage   string
	}
)

// WithJobDescription attaches a documentation facet to the event's job.
func WithJobDescription(description string) BuildOption {
	return func(o *buildOptions) {
		o.jobDescription = description
	}
}

// WithErrorMessage attaches an errorMessage run facet. Intended for FAIL and
// ABORT events.
func WithErrorMessage(message string) BuildOption {
	return func(o *buildOptions) {
		o.errorMessage = message
	}
}

// NewBuilder creates a Builder stamping events with the given default namespace.
func NewBuilder(namespace string) (*Builder, error) {
	if _, err := lineage.NewJob(namespace, "builder"); err != nil {
		return nil, fmt.Errorf("builder namespace: %w", err)
	}

	return &Builder{
		namespace: namespace,
		producer:  lineage.Producer,
		now:       time.Now,
	}, nil
}

// Namespace returns the builder's default namespace.
func (b *Builder) Namespace() string {
	return b.namespace
}

// BuildEvent constructs an immutable RunEvent for the given run state.
//
// The event time is stamped with the current UTC instant at call time, not a
// call-site-chosen value, so sequential events for one run carry monotonically
// non-decreasing times. Dataset facets are copied into the event verbatim.
//
// Inputs and outputs may be empty or nil for any event type: a FAIL may occur
// before datasets are known, and inputs/outputs are independently suppliable at
// each event (the backend accumulates them).
func (b *Builder) BuildEvent(
	eventType lineage.EventType,
	runID string,
	job lineage.Job,
	inputs, outputs []lineage.Dataset,
	opts ...BuildOption,
) (*lineage.RunEvent, error) {
	options := buildOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	if job.Namespace == "" {
		job.Namespace = b.namespace
	}

	if options.jobDescription != "" {
		facets, err := withFacet(job.Facets, lineage.FacetKeyDocumentation,
			lineage.DocumentationFacet(options.jobDescription))
		if err != nil {
			return nil, fmt.Errorf("job facets: %w", err)
		}

		job.Facets = facets
	}

	run := lineage.Run{ID: runID}

	if options.errorMessage != "" {
		facets, err := withFacet(nil, lineage.FacetKeyErrorMessage,
			lineage.ErrorMessageFacet(options.errorMessage))
		if err != nil {
			return nil, fmt.Errorf("run facets: %w", err)
		}

		run.Facets = facets
	}

	event := &lineage.RunEvent{
		EventTime: b.now().UTC(),
		EventType: eventType,
		Producer:  b.producer,
		SchemaURL: lineage.SchemaURL,
		Run:       run,
		Job:       job,
		Inputs:    defaultDatasetNamespace(inputs, b.namespace),
		Outputs:   defaultDatasetNamespace(outputs, b.namespace),
	}

	if err := lineage.ValidateEvent(event); err != nil {
		return nil, err
	}

	return event, nil
}

// withFacet adds one facet to an existing facet map through a FacetBuilder so
// duplicate keys are rejected rather than overwritten.
func withFacet(existing lineage.Facets, key string, facet interface{}) (lineage.Facets, error) {
	builder := lineage.NewFacetBuilder()
	for k, v := range existing {
		builder.Set(k, v)
	}

	return builder.Set(key, facet).Build()
}

// defaultDatasetNamespace fills the builder's namespace into datasets declared
// without one. The input slice is copied; callers' declarations stay untouched.
func defaultDatasetNamespace(datasets []lineage.Dataset, namespace string) []lineage.Dataset {
	if len(datasets) == 0 {
		return nil
	}

	out := make([]lineage.Dataset, len(datasets))
	copy(out, datasets)

	for i := range out {
		if out[i].Namespace == "" {
			out[i].Namespace = namespace
		}
	}

	return out
}

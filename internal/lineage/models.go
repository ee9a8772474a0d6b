// Package lineage provides the OpenLineage domain model for event emission.
// Spec: https://openlineage.io/docs/spec/object-model
package lineage

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type (
	// RunEvent represents an OpenLineage RunEvent (runtime lineage) - Domain Model.
	// RunEvents describe the execution of a job and are emitted when a run starts,
	// progresses, completes, fails, or is aborted. Each RunEvent carries the Job,
	// the Run, and the input and output Datasets involved.
	//
	// This is a pure domain model without JSON tags. Wire serialization lives in
	// wire.go so the domain type stays independent of the transport encoding.
	//
	// A RunEvent is immutable once built; the emission layer never mutates it.
	//
	// Spec: https://openlineage.io/docs/spec/object-model#job-run-state-update
	RunEvent struct {
		// EventTime is the timestamp when this event occurred (UTC).
		// Stamped by the event builder at build time so sequential events
		// for the same run carry monotonically increasing times.
		EventTime time.Time

		// EventType is the run state: START, RUNNING, COMPLETE, FAIL, ABORT, or OTHER.
		EventType EventType

		// Producer identifies the tool that generated this event.
		// Format: URL with version (e.g., "https://github.com/correlator-io/lineage/tree/1.0.0")
		Producer string

		// SchemaURL is the OpenLineage spec version URL.
		// Example: "https://openlineage.io/spec/2-0-2/OpenLineage.json"
		SchemaURL string

		// Run contains metadata about this specific run instance.
		Run Run

		// Job contains metadata about the job definition.
		Job Job

		// Inputs are datasets consumed by this run (optional).
		// Can be declared at START, COMPLETE, or both (events are accumulative).
		Inputs []Dataset

		// Outputs are datasets produced by this run (optional).
		// Typically declared on the COMPLETE event.
		Outputs []Dataset
	}

	// EventType represents OpenLineage run states.
	// Spec: https://openlineage.io/docs/spec/run-cycle#run-states
	EventType string

	// Facets are extensible, named metadata blocks attached to a Run, Job, or Dataset.
	// Facets are accumulative: a later event with a differently populated facet does
	// not retract earlier facets at the backend. This module serializes exactly the
	// facets it was given, with a stable shape, so the backend can merge them.
	//
	// Spec: https://openlineage.io/docs/spec/facets/
	Facets map[string]interface{}

	// Run represents a single execution instance of a Job - Domain Model.
	// Each run has a uniquely identifiable runId (client-generated UUID).
	// The client maintains the runId between run state updates; two concurrent
	// runs of the same Job never share an ID.
	//
	// Spec: https://openlineage.io/docs/spec/object-model#run
	Run struct {
		// ID is a client-generated UUID that uniquely identifies this run.
		// Must be maintained throughout the run lifecycle (START → COMPLETE).
		ID string

		// Facets are extensible metadata about this run instance.
		// Standard facets: nominalTime, parent, errorMessage.
		Facets Facets
	}

	// Job represents a repeatable unit of work (a pipeline stage) - Domain Model.
	// Jobs are identified by a unique name within a namespace and are stable
	// across many runs.
	//
	// Spec: https://openlineage.io/docs/spec/object-model#job
	Job struct {
		// Namespace scopes the job identity (e.g., an audit domain).
		Namespace string

		// Name is unique within the namespace.
		// Examples: "customer_data_processing", "dbt_run"
		Name string

		// Facets are extensible metadata about the job definition.
		// Standard facets: documentation, sourceCodeLocation, jobType.
		Facets Facets
	}

	// Dataset represents an abstract data artifact: a table, file, or topic - Domain Model.
	// A Dataset value is a declaration, not an owned object: two emissions referencing
	// the same (namespace, name) key describe facets of the same logical dataset, and
	// the backend merges/versions them. Only the key participates in identity.
	//
	// Spec: https://openlineage.io/docs/spec/object-model#dataset
	Dataset struct {
		// Namespace identifies the data source.
		// Examples: "postgres://prod-db:5432", "s3://raw-data", "data-lineage-audit"
		Namespace string

		// Name is the hierarchical path to the dataset.
		// Examples: "analytics.public.orders", "raw_customers"
		Name string

		// Facets are extensible metadata for this dataset snapshot.
		// Standard facets: schema, documentation, dataSource, ownership, columnLineage.
		Facets Facets
	}
)

const (
	// EventTypeStart indicates the beginning of a job execution.
	EventTypeStart EventType = "START"

	// EventTypeRunning provides additional information about a running job.
	EventTypeRunning EventType = "RUNNING"

	// EventTypeComplete signifies that execution of the job has concluded successfully.
	// Terminal state.
	EventTypeComplete EventType = "COMPLETE"

	// EventTypeFail signifies that the job has failed.
	// Terminal state.
	EventTypeFail EventType = "FAIL"

	// EventTypeAbort signifies that the job has been stopped abnormally.
	// Terminal state.
	EventTypeAbort EventType = "ABORT"

	// EventTypeOther is used to send additional metadata outside the standard run cycle.
	EventTypeOther EventType = "OTHER"
)

// ErrInvalidIdentity indicates an empty or whitespace-only namespace or name.
// Identity errors are caller bugs: they are never retried and always propagate
// synchronously.
var ErrInvalidIdentity = errors.New("invalid identity")

// ValidEventTypes returns all valid OpenLineage event types.
func ValidEventTypes() []EventType {
	return []EventType{
		EventTypeStart,
		EventTypeRunning,
		EventTypeComplete,
		EventTypeFail,
		EventTypeAbort,
		EventTypeOther,
	}
}

// IsValid checks if the EventType is a valid OpenLineage run state.
func (et EventType) IsValid() bool {
	for _, valid := range ValidEventTypes() {
		if et == valid {
			return true
		}
	}

	return false
}

// IsTerminal returns true if the event type is a terminal state.
// Terminal states (COMPLETE, FAIL, ABORT) are final: a run never transitions
// out of them.
//
// Spec: https://openlineage.io/docs/spec/run-cycle#run-states
func (et EventType) IsTerminal() bool {
	return et == EventTypeComplete || et == EventTypeFail || et == EventTypeAbort
}

// NewJob creates a Job identity after validating namespace and name.
// Returns ErrInvalidIdentity for empty or whitespace-only values.
func NewJob(namespace, name string) (Job, error) {
	if err := validateIdentity(namespace, name); err != nil {
		return Job{}, fmt.Errorf("job: %w", err)
	}

	return Job{Namespace: namespace, Name: name}, nil
}

// NewDataset creates a Dataset identity after validating namespace and name.
// Returns ErrInvalidIdentity for empty or whitespace-only values.
func NewDataset(namespace, name string, facets Facets) (Dataset, error) {
	if err := validateIdentity(namespace, name); err != nil {
		return Dataset{}, fmt.Errorf("dataset: %w", err)
	}

	return Dataset{Namespace: namespace, Name: name, Facets: facets}, nil
}

// validateIdentity enforces the shared (namespace, name) identity rules.
// Identities are case-sensitive; insertion order is irrelevant; the pair is
// the only equality key.
func validateIdentity(namespace, name string) error {
	if strings.TrimSpace(namespace) == "" {
		return fmt.Errorf("%w: namespace cannot be empty", ErrInvalidIdentity)
	}

	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidIdentity)
	}

	return nil
}

// URN returns the canonical URN for this dataset: {namespace}/{name}.
// Two Dataset values with the same URN are the same logical dataset at
// different points in its description, regardless of facets.
func (d *Dataset) URN() string {
	return d.Namespace + "/" + d.Name
}

// URN returns the canonical URN for this job: {namespace}/{name}.
func (j *Job) URN() string {
	return j.Namespace + "/" + j.Name
}

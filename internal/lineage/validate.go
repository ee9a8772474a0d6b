package lineage

import (
	"errors"
	"fmt"
)

// Sentinel errors for event validation failures.
var (
	ErrNilEvent            = errors.New("event cannot be nil")
	ErrInvalidEventType    = errors.New("invalid eventType")
	ErrMissingEventTime    = errors.New("eventTime is required")
	ErrMissingProducer     = errors.New("producer is required")
	ErrMissingRunID        = errors.New("run.runId is required")
	ErrMissingJobNamespace = errors.New("job.namespace is required")
	ErrMissingJobName      = errors.New("job.name is required")
)

// ValidateEvent validates that a RunEvent contains all required OpenLineage
// fields before it is handed to a transport.
//
// Required fields (per OpenLineage v2 spec):
//   - eventType: must be a valid run state
//   - eventTime: must not be the zero value
//   - producer: must not be empty
//   - run.runId: must not be empty
//   - job.namespace / job.name: must not be empty
//
// Optional fields:
//   - inputs / outputs: may be empty or nil (a FAIL may occur before any
//     dataset is known)
//   - facets: may be nil or carry unknown keys (extensibility)
//
// Dataset declarations, when present, must each carry a valid identity.
func ValidateEvent(event *RunEvent) error {
	if event == nil {
		return ErrNilEvent
	}

	if !event.EventType.IsValid() {
		return fmt.Errorf(
			"%w: %s (valid: START, RUNNING, COMPLETE, FAIL, ABORT, OTHER)",
			ErrInvalidEventType, event.EventType,
		)
	}

	if event.EventTime.IsZero() {
		return ErrMissingEventTime
	}

	if event.Producer == "" {
		return ErrMissingProducer
	}

	if event.Run.ID == "" {
		return ErrMissingRunID
	}

	if event.Job.Namespace == "" {
		return ErrMissingJobNamespace
	}

	if event.Job.Name == "" {
		return ErrMissingJobName
	}

	for i := range event.Inputs {
		if err := validateIdentity(event.Inputs[i].Namespace, event.Inputs[i].Name); err != nil {
			return fmt.Errorf("inputs[%d]: %w", i, err)
		}
	}

	for i := range event.Outputs {
		if err := validateIdentity(event.Outputs[i].Namespace, event.Outputs[i].Name); err != nil {
			return fmt.Errorf("outputs[%d]: %w", i, err)
		}
	}

	return nil
}

package lineage

import (
	"encoding/json"
	"fmt"
	"time"
)

// Producer identifies this toolkit as the source of emitted events, for
// provenance of the lineage data itself.
const Producer = "https://github.com/correlator-io/lineage/tree/1.0.0"

// SchemaURL is the OpenLineage spec version this module emits.
const SchemaURL = "https://openlineage.io/spec/2-0-2/OpenLineage.json"

type (
	// runEventWire is the JSON contract for POST /api/v1/lineage.
	// The domain model (models.go) carries no JSON tags; this layer owns the
	// wire shape so backend contract changes never leak into domain types.
	runEventWire struct {
		EventType string        `json:"eventType"`
		EventTime string        `json:"eventTime"`
		Run       runWire       `json:"run"`
		Job       jobWire       `json:"job"`
		Inputs    []datasetWire `json:"inputs"`
		Outputs   []datasetWire `json:"outputs"`
		Producer  string        `json:"producer"`
		SchemaURL string        `json:"schemaURL"`
	}

	runWire struct {
		RunID  string `json:"runId"`
		Facets Facets `json:"facets,omitempty"`
	}

	jobWire struct {
		Namespace string `json:"namespace"`
		Name      string `json:"name"`
		Facets    Facets `json:"facets,omitempty"`
	}

	datasetWire struct {
		Namespace string `json:"namespace"`
		Name      string `json:"name"`
		Facets    Facets `json:"facets,omitempty"`
	}
)

// MarshalEvent serializes a RunEvent into its OpenLineage JSON representation.
// EventTime is rendered as RFC3339 with nanosecond precision in UTC. Inputs and
// outputs always serialize as arrays (never null), matching what the backend
// expects for events with no declared datasets.
func MarshalEvent(event *RunEvent) ([]byte, error) {
	if err := ValidateEvent(event); err != nil {
		return nil, err
	}

	wire := runEventWire{
		EventType: string(event.EventType),
		EventTime: event.EventTime.UTC().Format(time.RFC3339Nano),
		Run: runWire{
			RunID:  event.Run.ID,
			Facets: event.Run.Facets,
		},
		Job: jobWire{
			Namespace: event.Job.Namespace,
			Name:      event.Job.Name,
			Facets:    event.Job.Facets,
		},
		Inputs:    datasetsToWire(event.Inputs),
		Outputs:   datasetsToWire(event.Outputs),
		Producer:  event.Producer,
		SchemaURL: event.SchemaURL,
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("marshal run event: %w", err)
	}

	return data, nil
}

// UnmarshalEvent parses an OpenLineage JSON payload back into a RunEvent.
// This is the inverse of MarshalEvent: for any valid event the pair round-trips
// field-for-field.
func UnmarshalEvent(data []byte) (*RunEvent, error) {
	var wire runEventWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("unmarshal run event: %w", err)
	}

	eventTime, err := time.Parse(time.RFC3339Nano, wire.EventTime)
	if err != nil {
		return nil, fmt.Errorf("unmarshal run event: invalid eventTime %q: %w", wire.EventTime, err)
	}

	event := &RunEvent{
		EventTime: eventTime.UTC(),
		EventType: EventType(wire.EventType),
		Producer:  wire.Producer,
		SchemaURL: wire.SchemaURL,
		Run: Run{
			ID:     wire.Run.RunID,
			Facets: wire.Run.Facets,
		},
		Job: Job{
			Namespace: wire.Job.Namespace,
			Name:      wire.Job.Name,
			Facets:    wire.Job.Facets,
		},
		Inputs:  datasetsFromWire(wire.Inputs),
		Outputs: datasetsFromWire(wire.Outputs),
	}

	if err := ValidateEvent(event); err != nil {
		return nil, err
	}

	return event, nil
}

func datasetsToWire(datasets []Dataset) []datasetWire {
	wire := make([]datasetWire, 0, len(datasets))
	for _, d := range datasets {
		wire = append(wire, datasetWire{
			Namespace: d.Namespace,
			Name:      d.Name,
			Facets:    d.Facets,
		})
	}

	return wire
}

func datasetsFromWire(wire []datasetWire) []Dataset {
	// Empty arrays map back to nil so a marshal/unmarshal trip preserves
	// equality for events built without datasets.
	if len(wire) == 0 {
		return nil
	}

	datasets := make([]Dataset, 0, len(wire))
	for _, d := range wire {
		datasets = append(datasets, Dataset{
			Namespace: d.Namespace,
			Name:      d.Name,
			Facets:    d.Facets,
		})
	}

	return datasets
}

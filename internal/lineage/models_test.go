package lineage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType EventType
		want      bool
	}{
		{"START is valid", EventTypeStart, true},
		{"RUNNING is valid", EventTypeRunning, true},
		{"COMPLETE is valid", EventTypeComplete, true},
		{"FAIL is valid", EventTypeFail, true},
		{"ABORT is valid", EventTypeAbort, true},
		{"OTHER is valid", EventTypeOther, true},
		{"empty is invalid", EventType(""), false},
		{"lowercase is invalid", EventType("start"), false},
		{"unknown is invalid", EventType("FINISHED"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.eventType.IsValid())
		})
	}
}

func TestEventType_IsTerminal(t *testing.T) {
	tests := []struct {
		name      string
		eventType EventType
		want      bool
	}{
		{"COMPLETE is terminal", EventTypeComplete, true},
		{"FAIL is terminal", EventTypeFail, true},
		{"ABORT is terminal", EventTypeAbort, true},
		{"START is not terminal", EventTypeStart, false},
		{"RUNNING is not terminal", EventTypeRunning, false},
		{"OTHER is not terminal", EventTypeOther, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.eventType.IsTerminal())
		})
	}
}

func TestNewJob_ValidIdentity(t *testing.T) {
	job, err := NewJob("data-lineage-audit", "customer_data_processing")

	require.NoError(t, err)
	assert.Equal(t, "data-lineage-audit", job.Namespace)
	assert.Equal(t, "customer_data_processing", job.Name)
	assert.Nil(t, job.Facets)
}

func TestNewJob_InvalidIdentity(t *testing.T) {
	tests := []struct {
		name      string
		namespace string
		jobName   string
	}{
		{"empty namespace", "", "job"},
		{"whitespace namespace", "   ", "job"},
		{"empty name", "ns", ""},
		{"whitespace name", "ns", "\t "},
		{"both empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewJob(tt.namespace, tt.jobName)

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidIdentity)
		})
	}
}

func TestNewDataset_ValidIdentity(t *testing.T) {
	facets := Facets{"documentation": DocumentationFacet("raw customer data")}

	dataset, err := NewDataset("data-lineage-audit", "raw_customers", facets)

	require.NoError(t, err)
	assert.Equal(t, "data-lineage-audit", dataset.Namespace)
	assert.Equal(t, "raw_customers", dataset.Name)
	assert.Equal(t, facets, dataset.Facets)
}

func TestNewDataset_InvalidIdentity(t *testing.T) {
	_, err := NewDataset(" ", "raw_customers", nil)
	assert.ErrorIs(t, err, ErrInvalidIdentity)

	_, err = NewDataset("data-lineage-audit", "", nil)
	assert.ErrorIs(t, err, ErrInvalidIdentity)
}

func TestDataset_URN(t *testing.T) {
	dataset := Dataset{Namespace: "postgres://prod-db:5432", Name: "analytics.public.orders"}

	assert.Equal(t, "postgres://prod-db:5432/analytics.public.orders", dataset.URN())
}

// Two datasets with the same (namespace, name) key but different facets are the
// same logical dataset: only the key participates in identity.
func TestDataset_IdentityIgnoresFacets(t *testing.T) {
	withSchema := Dataset{
		Namespace: "data-lineage-audit",
		Name:      "raw_orders",
		Facets: Facets{
			"schema": SchemaFacet([]SchemaField{{Name: "order_id", Type: "integer"}}),
		},
	}
	withoutSchema := Dataset{Namespace: "data-lineage-audit", Name: "raw_orders"}

	assert.Equal(t, withSchema.URN(), withoutSchema.URN())

	seen := map[string]struct{}{}
	seen[withSchema.URN()] = struct{}{}
	seen[withoutSchema.URN()] = struct{}{}

	assert.Len(t, seen, 1)
}

func TestJob_URN(t *testing.T) {
	job := Job{Namespace: "data-lineage-audit", Name: "dbt_run"}

	assert.Equal(t, "data-lineage-audit/dbt_run", job.URN())
}

func TestIdentity_CaseSensitive(t *testing.T) {
	lower := Dataset{Namespace: "ns", Name: "orders"}
	upper := Dataset{Namespace: "ns", Name: "Orders"}

	assert.NotEqual(t, lower.URN(), upper.URN())
}

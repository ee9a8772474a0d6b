// Package verify checks the realized lineage graph against an expected
// topology.
package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// ErrBackendUnavailable indicates the graph query itself failed. This is
// distinct from a failed completeness check, which is a normal negative result
// carried in the Report, not an error.
var ErrBackendUnavailable = errors.New("lineage backend unavailable")

// maxResponseBytes bounds how much of a query response is read.
const maxResponseBytes = 8 << 20 // 8 MB

type (
	// Report is the outcome of one completeness check.
	// Passed is true iff both difference sets are empty.
	Report struct {
		MissingDatasets []string
		MissingJobs     []string
		Passed          bool
	}

	// Verifier queries the backend for the datasets and jobs registered under
	// a namespace and diffs them against an expected topology.
	//
	// Verification is a snapshot check: it does not wait or retry for eventual
	// consistency. Callers needing to tolerate propagation delay poll with
	// their own backoff, keeping this a pure comparison primitive.
	Verifier struct {
		baseURL string
		client  *http.Client
		logger  *slog.Logger
	}

	// namedObject is the slice of the backend's dataset/job representations
	// the verifier needs: just the name.
	namedObject struct {
		Name string `json:"name"`
	}

	// listResponse tolerates both response shapes the backend family uses:
	// Marquez wraps the array ({"datasets": [...]}, {"jobs": [...]}), other
	// implementations return the bare array.
	listResponse struct {
		Datasets []namedObject `json:"datasets"`
		Jobs     []namedObject `json:"jobs"`
	}
)

// New creates a Verifier for the given backend base URL.
// A nil logger falls back to slog.Default().
func New(baseURL string, timeout time.Duration, logger *slog.Logger) (*Verifier, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid backend base URL %q", baseURL)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Verifier{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// Verify queries the live dataset and job names under the namespace and
// reports which expected nodes are missing. The backend is never mutated.
//
// Returns ErrBackendUnavailable (wrapped) if either query fails; a report with
// Passed=false is not an error.
func (v *Verifier) Verify(ctx context.Context, namespace string, topology *Topology) (*Report, error) {
	observedDatasets, err := v.fetchNames(ctx, namespace, "datasets")
	if err != nil {
		return nil, err
	}

	observedJobs, err := v.fetchNames(ctx, namespace, "jobs")
	if err != nil {
		return nil, err
	}

	report := &Report{
		MissingDatasets: missingFrom(topology.Datasets, observedDatasets),
		MissingJobs:     missingFrom(topology.Jobs, observedJobs),
	}
	report.Passed = len(report.MissingDatasets) == 0 && len(report.MissingJobs) == 0

	v.logger.Info("Lineage completeness check finished",
		slog.String("namespace", namespace),
		slog.Bool("passed", report.Passed),
		slog.Int("missing_datasets", len(report.MissingDatasets)),
		slog.Int("missing_jobs", len(report.MissingJobs)),
	)

	return report, nil
}

// fetchNames queries GET /api/v1/namespaces/{ns}/{kind} and returns the set of
// registered names. kind is "datasets" or "jobs".
func (v *Verifier) fetchNames(ctx context.Context, namespace, kind string) (map[string]struct{}, error) {
	endpoint := fmt.Sprintf("%s/api/v1/namespaces/%s/%s", v.baseURL, url.PathEscape(namespace), kind)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build %s query: %w", ErrBackendUnavailable, kind, err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %w", ErrBackendUnavailable, kind, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: query %s: status %d", ErrBackendUnavailable, kind, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s response: %w", ErrBackendUnavailable, kind, err)
	}

	objects, err := decodeNamedObjects(body, kind)
	if err != nil {
		return nil, err
	}

	names := make(map[string]struct{}, len(objects))
	for _, obj := range objects {
		names[obj.Name] = struct{}{}
	}

	return names, nil
}

// decodeNamedObjects accepts either a bare JSON array of named objects or the
// Marquez-style wrapper object keyed by kind.
func decodeNamedObjects(body []byte, kind string) ([]namedObject, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var objects []namedObject
		if err := json.Unmarshal(body, &objects); err != nil {
			return nil, fmt.Errorf("%w: decode %s response: %w", ErrBackendUnavailable, kind, err)
		}

		return objects, nil
	}

	var wrapped listResponse
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("%w: decode %s response: %w", ErrBackendUnavailable, kind, err)
	}

	if kind == "jobs" {
		return wrapped.Jobs, nil
	}

	return wrapped.Datasets, nil
}

// missingFrom computes expected − observed as a sorted slice.
// Order of the input is irrelevant; the output is sorted for deterministic
// reports.
func missingFrom(expected []string, observed map[string]struct{}) []string {
	var missing []string

	seen := make(map[string]struct{}, len(expected))

	for _, name := range expected {
		if _, dup := seen[name]; dup {
			continue
		}

		seen[name] = struct{}{}

		if _, ok := observed[name]; !ok {
			missing = append(missing, name)
		}
	}

	sort.Strings(missing)

	return missing
}

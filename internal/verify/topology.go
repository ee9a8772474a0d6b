package verify

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrEmptyTopology indicates a topology that names no datasets and no jobs.
// Verifying an empty topology always passes, which is almost certainly a
// misconfigured pipeline rather than an intentional check.
var ErrEmptyTopology = errors.New("topology names no datasets and no jobs")

// Topology declares the dataset and job names that must exist in the backend's
// namespace for a pipeline to be considered complete. Names are compared
// case-sensitively; order and duplicates are irrelevant (set semantics).
type Topology struct {
	Datasets []string `yaml:"datasets"`
	Jobs     []string `yaml:"jobs"`
}

// Validate checks that the topology declares at least one expected node.
func (t *Topology) Validate() error {
	if len(t.Datasets) == 0 && len(t.Jobs) == 0 {
		return ErrEmptyTopology
	}

	return nil
}

// LoadTopology reads an expected topology from a YAML file:
//
//	datasets:
//	  - raw_orders
//	  - fct_orders
//	jobs:
//	  - dbt_run
func LoadTopology(path string) (*Topology, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config source
	if err != nil {
		return nil, fmt.Errorf("read topology file %s: %w", path, err)
	}

	var topology Topology
	if err := yaml.Unmarshal(data, &topology); err != nil {
		return nil, fmt.Errorf("parse topology file %s: %w", path, err)
	}

	if err := topology.Validate(); err != nil {
		return nil, fmt.Errorf("topology file %s: %w", path, err)
	}

	return &topology, nil
}

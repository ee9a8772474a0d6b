package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/correlator-io/lineage/internal/verify"
)

// ErrIncompleteLineage is returned (and mapped to a non-zero exit code) when
// the completeness check finds missing nodes. Distinct from query failures,
// which surface as verify.ErrBackendUnavailable.
var ErrIncompleteLineage = errors.New("lineage graph is incomplete")

// newVerifyCmd creates the verify command: diff the backend's registered
// datasets and jobs against an expected topology file.
func newVerifyCmd() *cobra.Command {
	var topologyPath string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check lineage graph completeness against an expected topology",
		Long: `Verify queries the backend for the datasets and jobs registered under the
configured namespace and reports every expected node that is missing.

This is a snapshot check. Freshly emitted events may not be queryable yet;
rerun after propagation or poll from the calling pipeline.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVerify(cmd, topologyPath)
		},
	}

	cmd.Flags().StringVar(&topologyPath, "topology", "topology.yaml", "path to expected topology YAML file")

	return cmd
}

func runVerify(cmd *cobra.Command, topologyPath string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	topology, err := verify.LoadTopology(topologyPath)
	if err != nil {
		return err
	}

	verifier, err := verify.New(cfg.BaseURL, cfg.Timeout, newLogger())
	if err != nil {
		return err
	}

	report, err := verifier.Verify(cmd.Context(), cfg.Namespace, topology)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if report.Passed {
		fmt.Fprintf(out, "lineage complete: all %d datasets and %d jobs registered in %s\n",
			len(topology.Datasets), len(topology.Jobs), cfg.Namespace)

		return nil
	}

	for _, name := range report.MissingDatasets {
		fmt.Fprintf(out, "missing dataset: %s\n", name)
	}

	for _, name := range report.MissingJobs {
		fmt.Fprintf(out, "missing job: %s\n", name)
	}

	return fmt.Errorf("%w: %d datasets and %d jobs missing from %s",
		ErrIncompleteLineage, len(report.MissingDatasets), len(report.MissingJobs), cfg.Namespace)
}

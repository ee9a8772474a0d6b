package cli

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/correlator-io/lineage/internal/emitter"
	"github.com/correlator-io/lineage/internal/lineage"
)

const datasetRefParts = 2

type emitFlags struct {
	eventType    string
	job          string
	runID        string
	inputs       []string
	outputs      []string
	description  string
	errorMessage string
}

// newEmitCmd creates the emit command: build one run event and deliver it.
// Shell-driven pipeline stages use this to declare their lineage without
// linking against the toolkit:
//
//	run_id=$(uuidgen)
//	lineagectl emit --type START    --job load_orders --run-id "$run_id" --input raw_orders
//	... stage work ...
//	lineagectl emit --type COMPLETE --job load_orders --run-id "$run_id" --output fct_orders
func newEmitCmd() *cobra.Command {
	flags := emitFlags{}

	cmd := &cobra.Command{
		Use:   "emit",
		Short: "Build and emit a single run event",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEmit(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.eventType, "type", "START", "event type: START, RUNNING, COMPLETE, FAIL, ABORT")
	cmd.Flags().StringVar(&flags.job, "job", "", "job name (required)")
	cmd.Flags().StringVar(&flags.runID, "run-id", "", "run identifier; generated when omitted")
	cmd.Flags().StringArrayVar(&flags.inputs, "input", nil, "input dataset as name or namespace/name (repeatable)")
	cmd.Flags().StringArrayVar(&flags.outputs, "output", nil, "output dataset as name or namespace/name (repeatable)")
	cmd.Flags().StringVar(&flags.description, "description", "", "job description, attached as documentation facet")
	cmd.Flags().StringVar(&flags.errorMessage, "error-message", "", "error message for FAIL/ABORT events")

	_ = cmd.MarkFlagRequired("job")

	return cmd
}

func runEmit(cmd *cobra.Command, flags emitFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := newLogger()

	transport, err := emitter.NewHTTPTransport(cfg)
	if err != nil {
		return err
	}

	client, err := emitter.NewClient(cfg, transport, logger)
	if err != nil {
		return err
	}

	builder, err := emitter.NewBuilder(cfg.Namespace)
	if err != nil {
		return err
	}

	job, err := lineage.NewJob(cfg.Namespace, flags.job)
	if err != nil {
		return err
	}

	inputs, err := parseDatasetRefs(flags.inputs)
	if err != nil {
		return err
	}

	outputs, err := parseDatasetRefs(flags.outputs)
	if err != nil {
		return err
	}

	runID := flags.runID
	if runID == "" {
		runID = uuid.NewString()
	}

	var opts []emitter.BuildOption
	if flags.description != "" {
		opts = append(opts, emitter.WithJobDescription(flags.description))
	}

	if flags.errorMessage != "" {
		opts = append(opts, emitter.WithErrorMessage(flags.errorMessage))
	}

	event, err := builder.BuildEvent(
		lineage.EventType(strings.ToUpper(flags.eventType)),
		runID, job, inputs, outputs, opts...,
	)
	if err != nil {
		return err
	}

	if err := client.Emit(cmd.Context(), event); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "emitted %s for %s (run_id: %s)\n", event.EventType, job.Name, runID)

	return nil
}

// parseDatasetRefs parses dataset references of the form "name" or
// "namespace/name". Bare names inherit the configured default namespace when
// the event is built.
func parseDatasetRefs(refs []string) ([]lineage.Dataset, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	datasets := make([]lineage.Dataset, 0, len(refs))

	for _, ref := range refs {
		parts := strings.SplitN(ref, "/", datasetRefParts)
		if len(parts) == datasetRefParts {
			dataset, err := lineage.NewDataset(parts[0], parts[1], nil)
			if err != nil {
				return nil, fmt.Errorf("dataset %q: %w", ref, err)
			}

			datasets = append(datasets, dataset)

			continue
		}

		if strings.TrimSpace(ref) == "" {
			return nil, fmt.Errorf("dataset %q: %w", ref, lineage.ErrInvalidIdentity)
		}

		datasets = append(datasets, lineage.Dataset{Name: ref})
	}

	return datasets, nil
}

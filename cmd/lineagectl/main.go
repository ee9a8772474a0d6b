// Package main provides lineagectl, the command-line driver for the lineage
// emission toolkit: emit run events for pipeline stages and verify graph
// completeness against an expected topology.
package main

import (
	"fmt"
	"os"

	"github.com/correlator-io/lineage/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "lineagectl: %v\n", err)
		os.Exit(1)
	}
}

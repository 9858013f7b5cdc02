package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var runFlags struct {
	sources  []string
	maxItems int
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Trigger one prospecting cycle over the configured sources",
	RunE:  runProspect,
}

func init() {
	f := runCmd.Flags()
	f.StringSliceVar(&runFlags.sources, "source", nil, "Source to prospect (repeatable); defaults to the server config")
	f.IntVar(&runFlags.maxItems, "max-items", 0, "Max candidates per source; 0 uses the server default")
}

func runProspect(cmd *cobra.Command, _ []string) error {
	req := map[string]any{}
	if len(runFlags.sources) > 0 {
		req["sources"] = runFlags.sources
	}
	if runFlags.maxItems > 0 {
		req["max_items_per_source"] = runFlags.maxItems
	}

	var report struct {
		Fetched   int      `json:"fetched"`
		Upserted  int      `json:"upserted"`
		Qualified int      `json:"qualified"`
		Rejected  int      `json:"rejected"`
		Errors    []string `json:"errors"`
	}
	if err := call("POST", "/prospect", req, &report); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Fetched:   %d\n", report.Fetched)
	fmt.Fprintf(out, "Upserted:  %d\n", report.Upserted)
	fmt.Fprintf(out, "Qualified: %d\n", report.Qualified)
	fmt.Fprintf(out, "Rejected:  %d\n", report.Rejected)
	if len(report.Errors) > 0 {
		fmt.Fprintf(out, "Errors:\n  %s\n", strings.Join(report.Errors, "\n  "))
	}
	return nil
}

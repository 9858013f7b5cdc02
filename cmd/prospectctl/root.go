package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	apiURL string
}

var rootCmd = &cobra.Command{
	Use:   "prospectctl",
	Short: "Operator CLI for the lead & outreach lifecycle engine",
	Long:  "prospectctl drives a running leadengine API: trigger prospecting runs,\ninspect and select leads, and approve or cancel outreach attempts.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.apiURL, "api", envOr("LEADENGINE_API", "http://localhost:8080"), "Base URL of the leadengine API")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(leadsCmd)
	rootCmd.AddCommand(outreachCmd)
	rootCmd.Version = version
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Inspect and select leads",
}

var leadsListFlags struct {
	stage string
	limit int
}

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List leads ordered by score",
	RunE:  runLeadsList,
}

var leadsStageFlags struct {
	actor string
}

var leadsSelectCmd = &cobra.Command{
	Use:   "select <lead-id>",
	Short: "Mark a lead SELECTED for outreach",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setStage(cmd, args[0], "SELECTED")
	},
}

var leadsDisqualifyCmd = &cobra.Command{
	Use:   "disqualify <lead-id>",
	Short: "Mark a lead DISQUALIFIED",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setStage(cmd, args[0], "DISQUALIFIED")
	},
}

var leadsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all leads as CSV to stdout",
	RunE:  runLeadsExport,
}

func init() {
	f := leadsListCmd.Flags()
	f.StringVar(&leadsListFlags.stage, "stage", "", "Filter by stage (NEW, ENRICHED, SELECTED, EMAILED, RESPONDED, DISQUALIFIED)")
	f.IntVar(&leadsListFlags.limit, "limit", 50, "Max rows")

	for _, c := range []*cobra.Command{leadsSelectCmd, leadsDisqualifyCmd} {
		c.Flags().StringVar(&leadsStageFlags.actor, "actor", "", "Operator name recorded in provenance")
	}

	leadsCmd.AddCommand(leadsListCmd)
	leadsCmd.AddCommand(leadsSelectCmd)
	leadsCmd.AddCommand(leadsDisqualifyCmd)
	leadsCmd.AddCommand(leadsExportCmd)
}

type leadRow struct {
	ID        string  `json:"id"`
	Stage     string  `json:"stage"`
	Score     float64 `json:"score"`
	UserLogin string  `json:"user_login"`
	Email     string  `json:"email"`
	Repo      string  `json:"repo"`
	Title     string  `json:"title"`
}

func runLeadsList(cmd *cobra.Command, _ []string) error {
	q := url.Values{}
	if leadsListFlags.stage != "" {
		q.Set("stage", leadsListFlags.stage)
	}
	q.Set("limit", strconv.Itoa(leadsListFlags.limit))

	var resp struct {
		Leads []leadRow `json:"leads"`
		Count int       `json:"count"`
	}
	if err := call("GET", "/leads?"+q.Encode(), nil, &resp); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, l := range resp.Leads {
		title := l.Title
		if len(title) > 48 {
			title = title[:45] + "..."
		}
		fmt.Fprintf(out, "%s  %.2f  %-12s %-20s %s\n", l.ID, l.Score, l.Stage, l.UserLogin, title)
	}
	fmt.Fprintf(out, "%d lead(s)\n", resp.Count)
	return nil
}

func setStage(cmd *cobra.Command, leadID, stage string) error {
	req := map[string]string{"stage": stage, "actor": leadsStageFlags.actor}
	var resp struct {
		OldStage string `json:"old_stage"`
		NewStage string `json:"new_stage"`
	}
	if err := call("PUT", "/leads/"+leadID+"/stage", req, &resp); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s -> %s\n", leadID, resp.OldStage, resp.NewStage)
	return nil
}

func runLeadsExport(_ *cobra.Command, _ []string) error {
	resp, err := httpClient.Get(rootFlags.apiURL + "/leads/export")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return fmt.Errorf("export failed: status %d", resp.StatusCode)
	}
	_, err = io.Copy(os.Stdout, resp.Body)
	return err
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var outreachCmd = &cobra.Command{
	Use:   "outreach",
	Short: "Create, approve and cancel outreach attempts",
}

var outreachCreateFlags struct {
	subject string
	body    string
	actor   string
}

var outreachCreateCmd = &cobra.Command{
	Use:   "create <lead-id>",
	Short: "Create an outreach attempt for a lead",
	Args:  cobra.ExactArgs(1),
	RunE:  runOutreachCreate,
}

var outreachApproveFlags struct {
	approver string
}

var outreachApproveCmd = &cobra.Command{
	Use:   "approve <attempt-id>",
	Short: "Approve a pending attempt, releasing it to dispatch",
	Args:  cobra.ExactArgs(1),
	RunE:  runOutreachApprove,
}

var outreachCancelFlags struct {
	reason string
	actor  string
}

var outreachCancelCmd = &cobra.Command{
	Use:   "cancel <attempt-id>",
	Short: "Cancel a non-terminal attempt",
	Args:  cobra.ExactArgs(1),
	RunE:  runOutreachCancel,
}

var outreachCloseFlags struct {
	actor string
}

var outreachCloseCmd = &cobra.Command{
	Use:   "close <attempt-id>",
	Short: "Close a replied attempt, freeing the lead for future outreach",
	Args:  cobra.ExactArgs(1),
	RunE:  runOutreachClose,
}

var outreachListFlags struct {
	status string
}

var outreachListCmd = &cobra.Command{
	Use:   "list",
	Short: "List outreach attempts",
	RunE:  runOutreachList,
}

func init() {
	f := outreachCreateCmd.Flags()
	f.StringVar(&outreachCreateFlags.subject, "subject", "", "Email subject (required)")
	f.StringVar(&outreachCreateFlags.body, "body", "", "Email body (required)")
	f.StringVar(&outreachCreateFlags.actor, "actor", "", "Operator name recorded in provenance")
	_ = outreachCreateCmd.MarkFlagRequired("subject")
	_ = outreachCreateCmd.MarkFlagRequired("body")

	outreachApproveCmd.Flags().StringVar(&outreachApproveFlags.approver, "approver", "", "Approver name (required)")
	_ = outreachApproveCmd.MarkFlagRequired("approver")

	outreachCancelCmd.Flags().StringVar(&outreachCancelFlags.reason, "reason", "operator cancelled", "Cancellation reason")
	outreachCancelCmd.Flags().StringVar(&outreachCancelFlags.actor, "actor", "", "Operator name recorded in provenance")

	outreachCloseCmd.Flags().StringVar(&outreachCloseFlags.actor, "actor", "", "Operator name recorded in provenance")

	outreachListCmd.Flags().StringVar(&outreachListFlags.status, "status", "", "Filter by status")

	outreachCmd.AddCommand(outreachCreateCmd)
	outreachCmd.AddCommand(outreachApproveCmd)
	outreachCmd.AddCommand(outreachCancelCmd)
	outreachCmd.AddCommand(outreachCloseCmd)
	outreachCmd.AddCommand(outreachListCmd)
}

type attemptRow struct {
	ID               string `json:"id"`
	LeadID           string `json:"lead_id"`
	PersonaID        string `json:"persona_id"`
	Recipient        string `json:"recipient"`
	Status           string `json:"status"`
	RequiresApproval bool   `json:"requires_approval"`
	ApprovalReason   string `json:"approval_reason"`
}

func runOutreachCreate(cmd *cobra.Command, args []string) error {
	req := map[string]string{
		"lead_id":      args[0],
		"subject":      outreachCreateFlags.subject,
		"body":         outreachCreateFlags.body,
		"requested_by": outreachCreateFlags.actor,
	}
	var attempt attemptRow
	if err := call("POST", "/outreach", req, &attempt); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Attempt: %s\n", attempt.ID)
	fmt.Fprintf(out, "Persona: %s\n", attempt.PersonaID)
	fmt.Fprintf(out, "Status:  %s\n", attempt.Status)
	if attempt.RequiresApproval {
		fmt.Fprintf(out, "Needs approval: %s\n", attempt.ApprovalReason)
	}
	return nil
}

func runOutreachApprove(cmd *cobra.Command, args []string) error {
	req := map[string]string{"approver": outreachApproveFlags.approver}
	var attempt attemptRow
	if err := call("POST", "/outreach/"+args[0]+"/approve", req, &attempt); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Attempt %s is now %s\n", attempt.ID, attempt.Status)
	return nil
}

func runOutreachCancel(cmd *cobra.Command, args []string) error {
	req := map[string]string{"reason": outreachCancelFlags.reason, "actor": outreachCancelFlags.actor}
	var attempt attemptRow
	if err := call("POST", "/outreach/"+args[0]+"/cancel", req, &attempt); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Attempt %s is now %s\n", attempt.ID, attempt.Status)
	return nil
}

func runOutreachClose(cmd *cobra.Command, args []string) error {
	req := map[string]string{"actor": outreachCloseFlags.actor}
	var attempt attemptRow
	if err := call("POST", "/outreach/"+args[0]+"/close", req, &attempt); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Attempt %s is now %s\n", attempt.ID, attempt.Status)
	return nil
}

func runOutreachList(cmd *cobra.Command, _ []string) error {
	path := "/outreach"
	if outreachListFlags.status != "" {
		path += "?status=" + outreachListFlags.status
	}
	var resp struct {
		Attempts []attemptRow `json:"attempts"`
		Count    int          `json:"count"`
	}
	if err := call("GET", path, nil, &resp); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, a := range resp.Attempts {
		fmt.Fprintf(out, "%s  %-16s persona=%-20s lead=%s %s\n", a.ID, a.Status, a.PersonaID, a.LeadID, a.Recipient)
	}
	fmt.Fprintf(out, "%d attempt(s)\n", resp.Count)
	return nil
}

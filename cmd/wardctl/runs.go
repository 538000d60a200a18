package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ashbyfield/ward/pkg/pagination"
	"github.com/ashbyfield/ward/workflow"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the workflow run audit trail",
	}

	cmd.AddCommand(newRunsListCmd(), newRunsShowCmd())
	return cmd
}

func newRunsListCmd() *cobra.Command {
	var (
		domain    string
		status    string
		requestID string
		page      int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/runs?page=%d", page)
			if domain != "" {
				path += "&domain=" + domain
			}
			if status != "" {
				path += "&status=" + status
			}
			if requestID != "" {
				path += "&request_id=" + requestID
			}

			var result pagination.PageResult[workflow.Run]
			if err := newClient().get(cmd.Context(), path, &result); err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"ID", "Request", "Domain", "Status", "Iterations", "Started"})
			for _, run := range result.Data {
				t.AppendRow(table.Row{
					run.ID, run.RequestID, run.Domain, run.Status,
					run.Iterations, run.StartedAt.Format("2006-01-02 15:04:05"),
				})
			}
			t.Render()

			fmt.Printf("page %d of %d (%d total)\n", result.Page, result.TotalPages, result.Total)
			return nil
		},
	}

	cmd.Flags().StringVar(&domain, "domain", "", "filter by domain")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().StringVar(&requestID, "request", "", "filter by request id")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	return cmd
}

func newRunsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run with its plan and execution log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var run workflow.Run
			if err := newClient().get(cmd.Context(), "/runs/"+args[0], &run); err != nil {
				return err
			}

			fmt.Printf("id:         %s\n", run.ID)
			fmt.Printf("request:    %s\n", run.RequestID)
			fmt.Printf("domain:     %s\n", run.Domain)
			fmt.Printf("status:     %s\n", run.Status)
			fmt.Printf("iterations: %d\n", run.Iterations)
			if run.FailureReason != "" {
				fmt.Printf("reason:     %s\n", run.FailureReason)
			}

			if run.Plan != nil {
				fmt.Printf("\nplan (quality %.2f):\n", run.Plan.Quality)
				t := table.NewWriter()
				t.SetOutputMirror(os.Stdout)
				t.AppendHeader(table.Row{"Requirement", "Resource", "Score"})
				for _, a := range run.Plan.Assignments {
					t.AppendRow(table.Row{a.RequirementID, a.ResourceID, fmt.Sprintf("%.2f", a.Score)})
				}
				for _, gap := range run.Plan.Gaps {
					t.AppendRow(table.Row{gap, "(unmatched)", "-"})
				}
				t.Render()

				for _, v := range run.Plan.Violations {
					fmt.Printf("  [%s] %s: %s\n", v.Severity, v.RuleID, v.Message)
				}
			}

			if len(run.Log) > 0 {
				fmt.Println("\nlog:")
				for _, entry := range run.Log {
					fmt.Printf("  %s  %-22s %s\n", entry.At.Format("15:04:05"), entry.State, entry.Message)
				}
			}
			return nil
		},
	}
}

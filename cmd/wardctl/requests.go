package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ashbyfield/ward/internal/requests"
	"github.com/ashbyfield/ward/pkg/pagination"
)

func newRequestsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "requests",
		Short: "Inspect and manage allocation requests",
	}

	cmd.AddCommand(newRequestsListCmd(), newRequestsStatusCmd(), newRequestsCancelCmd())
	return cmd
}

func newRequestsListCmd() *cobra.Command {
	var (
		domain string
		status string
		page   int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List allocation requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/requests?page=%d", page)
			if domain != "" {
				path += "&domain=" + domain
			}
			if status != "" {
				path += "&status=" + status
			}

			var result pagination.PageResult[requests.Request]
			if err := newClient().get(cmd.Context(), path, &result); err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"ID", "Domain", "Urgency", "Subject", "Status", "Submitted"})
			for _, req := range result.Data {
				t.AppendRow(table.Row{
					req.ID, req.Domain, req.Urgency, req.Subject,
					req.Status, req.SubmittedAt.Format("2006-01-02 15:04:05"),
				})
			}
			t.Render()

			fmt.Printf("page %d of %d (%d total)\n", result.Page, result.TotalPages, result.Total)
			return nil
		},
	}

	cmd.Flags().StringVar(&domain, "domain", "", "filter by domain")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	return cmd
}

func newRequestsStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id>",
		Short: "Show one allocation request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req requests.Request
			if err := newClient().get(cmd.Context(), "/requests/"+args[0], &req); err != nil {
				return err
			}

			fmt.Printf("id:        %s\n", req.ID)
			fmt.Printf("domain:    %s\n", req.Domain)
			fmt.Printf("urgency:   %s\n", req.Urgency)
			fmt.Printf("subject:   %s\n", req.Subject)
			fmt.Printf("status:    %s\n", req.Status)
			if req.FailureReason != "" {
				fmt.Printf("reason:    %s\n", req.FailureReason)
			}
			fmt.Printf("submitted: %s\n", req.SubmittedAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}

func newRequestsCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel an in-flight allocation request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req requests.Request
			if err := newClient().post(cmd.Context(), "/requests/"+args[0]+"/cancel", nil, &req); err != nil {
				return err
			}

			fmt.Printf("cancelled %s status=%s\n", req.ID, req.Status)
			return nil
		},
	}
}

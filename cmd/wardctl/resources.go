package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ashbyfield/ward/internal/resources"
	"github.com/ashbyfield/ward/pkg/pagination"
)

func newResourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resources",
		Short: "Inspect the allocatable resource inventory",
	}

	cmd.AddCommand(newResourcesListCmd())
	return cmd
}

func newResourcesListCmd() *cobra.Command {
	var (
		domain   string
		status   string
		location string
		page     int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List resources",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/resources?page=%d", page)
			if domain != "" {
				path += "&domain=" + domain
			}
			if status != "" {
				path += "&status=" + status
			}
			if location != "" {
				path += "&location=" + location
			}

			var result pagination.PageResult[resources.Resource]
			if err := newClient().get(cmd.Context(), path, &result); err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"ID", "Domain", "Name", "Kind", "Status", "Location", "Use", "Load", "Capabilities"})
			for _, res := range result.Data {
				t.AppendRow(table.Row{
					res.ID, res.Domain, res.Name, res.Kind, res.Status, res.Location,
					fmt.Sprintf("%d/%d", res.Assigned, res.Capacity),
					fmt.Sprintf("%.2f", res.Load),
					strings.Join(res.Capabilities, ","),
				})
			}
			t.Render()

			fmt.Printf("page %d of %d (%d total)\n", result.Page, result.TotalPages, result.Total)
			return nil
		},
	}

	cmd.Flags().StringVar(&domain, "domain", "", "filter by domain")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().StringVar(&location, "location", "", "filter by location")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	return cmd
}

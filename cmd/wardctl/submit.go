package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ashbyfield/ward/internal/requests"
	"github.com/ashbyfield/ward/workflow"
)

func newSubmitCmd() *cobra.Command {
	var (
		domain      string
		urgency     string
		subject     string
		attributes  []string
		preferences []string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit an allocation request",
		Example: `  wardctl submit --domain bed --urgency urgent --subject patient-4412 \
    --attr unit=icu --attr isolation=true --pref location=east-wing`,
		RunE: func(cmd *cobra.Command, args []string) error {
			attrs, err := parsePairs(attributes)
			if err != nil {
				return err
			}
			prefs, err := parsePairs(preferences)
			if err != nil {
				return err
			}

			body := requests.SubmitCommand{
				Domain:      workflow.Domain(domain),
				Urgency:     workflow.Urgency(urgency),
				Subject:     subject,
				Attributes:  attrs,
				Preferences: prefs,
			}

			var req requests.Request
			if err := newClient().post(cmd.Context(), "/requests", body, &req); err != nil {
				return err
			}

			fmt.Printf("accepted %s (%s/%s) status=%s\n", req.ID, req.Domain, req.Urgency, req.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&domain, "domain", "", "allocation domain: bed, staff, or supply")
	cmd.Flags().StringVar(&urgency, "urgency", "routine", "urgency: emergency, urgent, or routine")
	cmd.Flags().StringVar(&subject, "subject", "", "who or what the allocation is for")
	cmd.Flags().StringArrayVar(&attributes, "attr", nil, "request attribute as key=value (repeatable)")
	cmd.Flags().StringArrayVar(&preferences, "pref", nil, "placement preference as key=value (repeatable)")
	cmd.MarkFlagRequired("domain")
	cmd.MarkFlagRequired("subject")

	return cmd
}

package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/shehryarbajwa/tabtrace/internal/submitter"
)

func newActivitiesCmd(a *app) *cobra.Command {
	var limit int

	activitiesCmd := &cobra.Command{
		Use:   "activities",
		Short: "List recorded activities, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := submitter.NewClient(a.cfg.ServerURL, a.httpClient)
			activities, err := client.ListActivities(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(activities) == 0 {
				_, err := fmt.Fprintln(out, "No activities recorded yet.")
				return err
			}
			if limit > 0 && len(activities) > limit {
				activities = activities[:limit]
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tDURATION\tURL\tTITLE")
			for _, activity := range activities {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
					humanize.Time(activity.StartTime.Time),
					(time.Duration(activity.Duration) * time.Second).String(),
					activity.URL,
					activity.Title,
				)
			}
			return tw.Flush()
		},
	}

	activitiesCmd.Flags().IntVar(&limit, "limit", 20, "maximum rows to print (0 for all)")

	return activitiesCmd
}

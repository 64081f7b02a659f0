// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pwalczak/bmb/cmd/bmb/internal/clierr"
)

// NewLogsCommand prints the job logs of one build result.
func NewLogsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logs <build-key>",
		Short: "Print the job logs of a build",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			errOut := cmd.ErrOrStderr()
			buildKey := args[0]

			jobKeys := []string{buildKey}
			if result, err := client.BuildResultStages(ctx, buildKey); err == nil {
				if keys := result.JobKeys(); len(keys) > 0 {
					jobKeys = keys
				}
			} else {
				return clierr.Wrap(clierr.CodeFailure, "fetching build "+buildKey, err)
			}

			for _, jobKey := range jobKeys {
				if len(jobKeys) > 1 {
					fmt.Fprintf(out, "=== %s ===\n", jobKey)
				}
				lines, err := client.JobLogEntries(ctx, jobKey)
				if err == nil && len(lines) > 0 {
					for _, line := range lines {
						fmt.Fprintln(out, line)
					}
					continue
				}
				// Some servers don't expose logEntries through the result API;
				// fall back to the raw log download.
				raw, dlErr := client.DownloadLog(ctx, jobKey)
				if dlErr != nil {
					fmt.Fprintf(errOut, "Could not retrieve logs for %s\n", jobKey)
					continue
				}
				fmt.Fprint(out, raw)
			}
			return nil
		},
	}
}

// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pwalczak/bmb/cmd/bmb/internal/clierr"
)

// NewPlansCommand lists the build plans of one project.
func NewPlansCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "plans <project>",
		Short: "List the build plans of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			plans, err := client.ListPlans(cmd.Context(), args[0], 1000)
			if err != nil {
				return clierr.Wrap(clierr.CodeFailure, "listing plans for "+args[0], err)
			}
			out := cmd.OutOrStdout()
			if len(plans) == 0 {
				fmt.Fprintln(out, "No plans found.")
				return nil
			}
			for _, p := range plans {
				fmt.Fprintf(out, "%s\t%s\n", p.Key, p.ShortName)
			}
			return nil
		},
	}
}

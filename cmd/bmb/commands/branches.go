// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pwalczak/bmb/cmd/bmb/internal/clierr"
)

// NewBranchesCommand lists the automatically created branches of a plan.
func NewBranchesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "branches [plan]",
		Short: "List the plan branches of a build plan",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := keyFromArgsOrConfig(args, planKey)
			if err != nil {
				return err
			}
			client, err := newClient()
			if err != nil {
				return err
			}
			branches, err := client.ListBranches(cmd.Context(), key, 1000)
			if err != nil {
				return clierr.Wrap(clierr.CodeFailure, "listing branches for "+key, err)
			}
			out := cmd.OutOrStdout()
			if len(branches) == 0 {
				fmt.Fprintln(out, "No branches found.")
				return nil
			}
			for _, b := range branches {
				fmt.Fprintf(out, "%s\t%s\n", b.Key, b.ShortName)
			}
			return nil
		},
	}
}

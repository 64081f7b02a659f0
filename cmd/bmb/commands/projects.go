// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pwalczak/bmb/cmd/bmb/internal/clierr"
)

// NewProjectsCommand lists all build projects on the server.
func NewProjectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List all build projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			projects, err := client.ListProjects(cmd.Context(), 1000)
			if err != nil {
				return clierr.Wrap(clierr.CodeFailure, "listing projects", err)
			}
			out := cmd.OutOrStdout()
			if len(projects) == 0 {
				fmt.Fprintln(out, "No projects found.")
				return nil
			}
			for _, p := range projects {
				fmt.Fprintf(out, "%s\t%s\n", p.Key, p.Name)
			}
			return nil
		},
	}
}

// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd constructs the bmb root Cobra command.
func NewRootCmd() *cobra.Command {
	version := os.Getenv("BMB_VERSION")
	if version == "" {
		version = "0.0.0-dev"
	}

	cmd := &cobra.Command{
		Use:           "bmb",
		Short:         "bmb - Bamboo build and deployment CLI",
		Long:          "bmb talks to a Bamboo server: list projects and builds, inspect logs,\ncreate and deploy versions, and render deployment timelines against the\nlocal git history.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number of bmb",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "bmb version %s\n", version)
		},
	})

	cmd.AddCommand(NewInitCommand())
	cmd.AddCommand(NewProjectsCommand())
	cmd.AddCommand(NewPlansCommand())
	cmd.AddCommand(NewBranchesCommand())
	cmd.AddCommand(NewBuildsCommand())
	cmd.AddCommand(NewStatusCommand())
	cmd.AddCommand(NewLogsCommand())
	cmd.AddCommand(NewDeploysCommand())
	cmd.AddCommand(NewVersionsCommand())
	cmd.AddCommand(NewVersionCreateCommand())
	cmd.AddCommand(NewDeployCommand())
	cmd.AddCommand(NewTimelineCommand())

	return cmd
}

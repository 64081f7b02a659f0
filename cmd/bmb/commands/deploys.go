// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/pwalczak/bmb/cmd/bmb/internal/clierr"
	"github.com/pwalczak/bmb/internal/deploystatus"
	"github.com/pwalczak/bmb/internal/envstate"
	"github.com/pwalczak/bmb/internal/gitvcs"
)

// NewDeploysCommand shows what is deployed to each environment.
func NewDeploysCommand() *cobra.Command {
	var showSHA bool

	cmd := &cobra.Command{
		Use:   "deploys [plan]",
		Short: "Show the deployment status of each environment",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := keyFromArgsOrConfig(args, deployKey)
			if err != nil {
				return err
			}
			client, err := newClient()
			if err != nil {
				return err
			}

			view := &deploystatus.View{
				API:      client,
				Resolver: envstate.New(client),
				ShowSHA:  showSHA,
			}
			if showSHA {
				view.Git = gitvcs.Open(".")
			}

			if err := view.Render(cmd.Context(), cmd.OutOrStdout(), key); err != nil {
				if errors.Is(err, deploystatus.ErrNoProjects) {
					return clierr.Wrap(clierr.CodeNotFound, "deployment status", err)
				}
				return clierr.Wrap(clierr.CodeFailure, "deployment status", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showSHA, "sha", false, "show commit SHAs and subjects instead of version metadata")
	return cmd
}

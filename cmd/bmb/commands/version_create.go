// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pwalczak/bmb/cmd/bmb/internal/clierr"
	"github.com/pwalczak/bmb/internal/deployer"
	"github.com/pwalczak/bmb/internal/gitvcs"
	"github.com/pwalczak/bmb/internal/planref"
)

// NewVersionCreateCommand creates a deployable version from a build result,
// defaulting to the latest build of the current branch.
func NewVersionCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version-create [build-key]",
		Short: "Create a deployable version from a build",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client, err := newClient()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var buildKey, versionName string
			if len(args) > 0 {
				buildKey = args[0]
				versionName = strings.Replace(buildKey, cfg.Plan+"-", "", 1)
			} else {
				repo := gitvcs.Open(".")
				gitBranch, err := repo.CurrentBranch(ctx)
				if err != nil {
					return clierr.Wrap(clierr.CodeLocalState, "not in a git checkout", err)
				}
				key, branchName, err := planref.Resolve(ctx, client, cfg.Plan, gitBranch)
				if err != nil {
					switch {
					case errors.Is(err, planref.ErrNoTicket):
						return clierr.Wrap(clierr.CodeLocalState, "resolving branch", err)
					case errors.Is(err, planref.ErrBranchUnknown):
						return clierr.Wrap(clierr.CodeNotFound, "resolving branch", err)
					default:
						return clierr.Wrap(clierr.CodeFailure, "resolving branch", err)
					}
				}
				results, err := client.BuildResults(ctx, key, 1)
				if err != nil {
					return clierr.Wrap(clierr.CodeFailure, "fetching builds for "+key, err)
				}
				if len(results) == 0 {
					return clierr.Newf(clierr.CodeNotFound, "no builds found for %s", key)
				}
				buildKey = results[0].Key
				versionName = fmt.Sprintf("%s-%d", branchName, results[0].BuildNumber)
			}

			projectID, err := deployer.FindProjectID(ctx, client, cfg.Plan)
			if err != nil {
				if errors.Is(err, deployer.ErrNoProject) {
					return clierr.Wrap(clierr.CodeNotFound, "creating version", err)
				}
				return clierr.Wrap(clierr.CodeFailure, "creating version", err)
			}

			version, err := client.CreateVersion(ctx, projectID, buildKey, versionName)
			if err != nil {
				return clierr.Wrap(clierr.CodeFailure, "creating version "+versionName, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created version: %s\n", version.Name)
			return nil
		},
	}
}

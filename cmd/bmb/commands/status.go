// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pwalczak/bmb/cmd/bmb/internal/clierr"
	"github.com/pwalczak/bmb/internal/bamboo"
	"github.com/pwalczak/bmb/internal/gitvcs"
	"github.com/pwalczak/bmb/internal/planref"
)

// NewStatusCommand shows the latest build of the current branch, or the
// detail of one explicitly named build result.
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status [build-key]",
		Short: "Show the status of a build (defaults to the current branch's latest)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			buildKey := ""
			branchName := ""
			if len(args) > 0 {
				buildKey = args[0]
			} else {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				repo := gitvcs.Open(".")
				gitBranch, err := repo.CurrentBranch(ctx)
				if err != nil {
					return clierr.Wrap(clierr.CodeLocalState, "not in a git checkout", err)
				}
				key, name, err := planref.Resolve(ctx, client, cfg.Plan, gitBranch)
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
				branchName = name
				results, err := client.BuildResults(ctx, key, 1)
				if err != nil {
					return clierr.Wrap(clierr.CodeFailure, "fetching builds for "+key, err)
				}
				if len(results) == 0 {
					return clierr.Newf(clierr.CodeNotFound, "no builds found for %s", key)
				}
				buildKey = results[0].Key
			}

			result, err := client.BuildResult(ctx, buildKey)
			if err != nil {
				return clierr.Wrap(clierr.CodeFailure, "fetching build "+buildKey, err)
			}

			if branchName != "" {
				fmt.Fprintf(out, "Build:    %s (%s)\n", result.Key, branchName)
			} else {
				fmt.Fprintf(out, "Build:    %s\n", result.Key)
			}
			fmt.Fprintf(out, "State:    %s\n", result.BuildState)
			if result.BuildDurationDesc != "" {
				fmt.Fprintf(out, "Duration: %s\n", result.BuildDurationDesc)
			}
			if reason := stripHTML(result.ReasonSummary); reason != "" {
				fmt.Fprintf(out, "Reason:   %s\n", reason)
			}
			if result.SuccessfulTestCount+result.FailedTestCount+result.SkippedTestCount > 0 {
				fmt.Fprintf(out, "Tests:    %d passed, %d failed, %d skipped\n",
					result.SuccessfulTestCount, result.FailedTestCount, result.SkippedTestCount)
			}

			if result.BuildState == bamboo.BuildStateFailed {
				return clierr.New(clierr.CodeFailure, "build failed")
			}
			return nil
		},
	}
}

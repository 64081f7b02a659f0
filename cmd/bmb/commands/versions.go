// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pwalczak/bmb/cmd/bmb/internal/clierr"
	"github.com/pwalczak/bmb/internal/deployer"
	"github.com/pwalczak/bmb/internal/envstate"
	"github.com/pwalczak/bmb/internal/gitvcs"
	"github.com/pwalczak/bmb/internal/reltime"
)

// NewVersionsCommand lists the deployable versions of a plan's deployment
// project.
func NewVersionsCommand() *cobra.Command {
	var (
		limit   int
		showSHA bool
	)

	cmd := &cobra.Command{
		Use:   "versions [plan]",
		Short: "List the deployable versions of a plan",
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
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			projectID, err := deployer.FindProjectID(ctx, client, key)
			if err != nil {
				if errors.Is(err, deployer.ErrNoProject) {
					return clierr.Wrap(clierr.CodeNotFound, "listing versions", err)
				}
				return clierr.Wrap(clierr.CodeFailure, "listing versions", err)
			}
			versions, err := client.Versions(ctx, projectID, limit)
			if err != nil {
				return clierr.Wrap(clierr.CodeFailure, "listing versions", err)
			}
			if len(versions) == 0 {
				fmt.Fprintln(out, "No versions found.")
				return nil
			}

			var (
				resolver *envstate.Resolver
				repo     *gitvcs.Repo
			)
			if showSHA {
				resolver = envstate.New(client)
				repo = gitvcs.Open(".")
			}

			now := time.Now()
			for _, v := range versions {
				// Versions with no originating build keep the metadata line
				// even in SHA mode.
				if showSHA && v.BuildKey() != "" {
					line := "(not in local repo)"
					if sha := resolver.BuildSHA(ctx, v.BuildKey()); sha != "" {
						if c, ok := repo.ShowCommit(ctx, sha); ok {
							line = fmt.Sprintf("%-10s %s", c.ShortHash, truncateSubject(c.Subject, 60))
						} else {
							line = fmt.Sprintf("%-10s %s", sha, "(not in local repo)")
						}
					}
					fmt.Fprintf(out, "%-30s %s\n", v.Name, line)
					continue
				}
				fmt.Fprintf(out, "%-50s %-8s %-20s %s\n",
					v.Name,
					reltime.Since(v.CreationDate.Time(), now),
					v.CreatorDisplayName,
					v.BuildKey())
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of versions to list")
	cmd.Flags().BoolVar(&showSHA, "sha", false, "show commit SHAs and subjects for each version")
	return cmd
}

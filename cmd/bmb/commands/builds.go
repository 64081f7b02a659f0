// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pwalczak/bmb/cmd/bmb/internal/clierr"
)

// htmlTags matches server-rendered markup in reason summaries.
var htmlTags = regexp.MustCompile(`<[^>]+>`)

func stripHTML(s string) string {
	return strings.TrimSpace(htmlTags.ReplaceAllString(s, ""))
}

// NewBuildsCommand lists recent build results of a plan or plan branch.
func NewBuildsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "builds [plan]",
		Short: "List recent builds of a plan or plan branch",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := keyFromArgsOrConfig(args, planKey)
			if err != nil {
				return err
			}
			if !strings.Contains(key, "-") {
				return clierr.Newf(clierr.CodeLocalState, "key must be in PROJECT-PLAN format, got %q", key)
			}
			client, err := newClient()
			if err != nil {
				return err
			}
			results, err := client.BuildResults(cmd.Context(), key, limit)
			if err != nil {
				return clierr.Wrap(clierr.CodeFailure, "listing builds for "+key, err)
			}
			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(out, "No builds found.")
				return nil
			}
			for _, r := range results {
				fmt.Fprintf(out, "%s\t%-12s\t%s\n", r.Key, r.BuildState, stripHTML(r.ReasonSummary))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of builds to list")
	return cmd
}

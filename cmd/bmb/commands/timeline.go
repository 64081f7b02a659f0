// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/pwalczak/bmb/cmd/bmb/internal/clierr"
	"github.com/pwalczak/bmb/internal/envstate"
	"github.com/pwalczak/bmb/internal/gitvcs"
	"github.com/pwalczak/bmb/internal/projectcfg"
	"github.com/pwalczak/bmb/internal/timeline"
)

// NewTimelineCommand renders trunk history annotated with where each commit
// is deployed.
func NewTimelineCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "timeline [plan]",
		Short: "Show trunk commits annotated with their deployment environments",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := keyFromArgsOrConfig(args, deployKey)
			if err != nil {
				return err
			}

			// The trunk ref comes from the config when present; a missing
			// config just means the default trunk.
			trunk := projectcfg.DefaultTrunk
			if cfg, err := projectcfg.Load("."); err == nil {
				trunk = cfg.TrunkRef()
			}

			client, err := newClient()
			if err != nil {
				return err
			}

			r := &timeline.Renderer{
				Oracle: gitvcs.Open("."),
				Envs:   envstate.New(client),
				Trunk:  trunk,
			}
			if err := r.Render(cmd.Context(), cmd.OutOrStdout(), key); err != nil {
				switch {
				case errors.Is(err, timeline.ErrNoDeployments),
					errors.Is(err, timeline.ErrNothingOnTrunk):
					return clierr.Wrap(clierr.CodeNotFound, "timeline", err)
				case errors.Is(err, timeline.ErrNoHistory):
					return clierr.Wrap(clierr.CodeLocalState, "timeline", err)
				default:
					return clierr.Wrap(clierr.CodeFailure, "timeline", err)
				}
			}
			return nil
		},
	}
}

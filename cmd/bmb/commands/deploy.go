// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/pwalczak/bmb/cmd/bmb/internal/clierr"
	"github.com/pwalczak/bmb/internal/deployer"
)

// NewDeployCommand deploys a version to one or more environments.
func NewDeployCommand() *cobra.Command {
	var (
		plan     string
		chain    bool
		parallel bool
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "deploy <version> <environment> [environment...]",
		Short: "Deploy a version to one or more environments",
		Long:  "Deploys a version to the named environments. With --chain each\ndeployment waits for the previous one to succeed; with --parallel all are\ntriggered at once. Environments whose name contains PROD are refused.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if chain && parallel {
				return clierr.New(clierr.CodeLocalState, "--chain and --parallel are mutually exclusive")
			}

			versionName := args[0]
			envNames := args[1:]

			mode := deployer.Single
			switch {
			case chain:
				mode = deployer.Chain
			case parallel:
				mode = deployer.Parallel
			}

			key := plan
			if key == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				key = cfg.Plan
			}

			client, err := newClient()
			if err != nil {
				return err
			}

			d := &deployer.Deployer{
				API:     client,
				Out:     cmd.OutOrStdout(),
				Timeout: timeout,
			}
			if err := d.Run(cmd.Context(), key, versionName, envNames, mode); err != nil {
				switch {
				case errors.Is(err, deployer.ErrProdTarget):
					return clierr.Wrap(clierr.CodeGuardrail, "deploy refused", err)
				case errors.Is(err, deployer.ErrNoProject),
					errors.Is(err, deployer.ErrVersionNotFound),
					errors.Is(err, deployer.ErrEnvNotFound):
					return clierr.Wrap(clierr.CodeNotFound, "deploy", err)
				default:
					return clierr.Wrap(clierr.CodeFailure, "deploy", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&plan, "plan", "", "build plan key (defaults to the project config)")
	cmd.Flags().BoolVar(&chain, "chain", false, "deploy sequentially, stopping at the first failure")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "trigger all deployments at once without waiting")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "per-environment wait ceiling for chained deploys")
	return cmd
}

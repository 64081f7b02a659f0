// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pwalczak/bmb/cmd/bmb/internal/clierr"
	"github.com/pwalczak/bmb/internal/credentials"
)

// NewInitCommand interactively stores the server URL and access token.
func NewInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Configure the Bamboo server URL and access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			in := bufio.NewReader(cmd.InOrStdin())

			fmt.Fprint(out, "Bamboo server URL (e.g. https://bamboo.example.com): ")
			rawURL, err := in.ReadString('\n')
			if err != nil {
				return clierr.Wrap(clierr.CodeLocalState, "reading server URL", err)
			}
			serverURL := strings.TrimSpace(rawURL)
			if serverURL == "" {
				return clierr.New(clierr.CodeLocalState, "server URL must not be empty")
			}

			fmt.Fprintf(out, "Create a personal access token under %s/profile/userAccessTokens.action\n", strings.TrimSuffix(serverURL, "/"))
			fmt.Fprint(out, "Access token: ")
			rawToken, err := in.ReadString('\n')
			if err != nil {
				return clierr.Wrap(clierr.CodeLocalState, "reading access token", err)
			}
			token := strings.TrimSpace(rawToken)
			if token == "" {
				return clierr.New(clierr.CodeLocalState, "access token must not be empty")
			}

			path, err := credentials.Save(credentials.Credentials{URL: serverURL, Token: token})
			if err != nil {
				return clierr.Wrap(clierr.CodeFailure, "saving credentials", err)
			}
			fmt.Fprintf(out, "Credentials saved to %s\n", path)
			return nil
		},
	}
}

// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"fmt"

	"github.com/pwalczak/bmb/cmd/bmb/internal/clierr"
	"github.com/pwalczak/bmb/internal/bamboo"
	"github.com/pwalczak/bmb/internal/credentials"
	"github.com/pwalczak/bmb/internal/projectcfg"
)

// newClient builds an authenticated Bamboo client from the environment or
// the stored credentials file.
func newClient() (*bamboo.Client, error) {
	creds, err := credentials.Load()
	if err != nil {
		if errors.Is(err, credentials.ErrNotConfigured) {
			return nil, clierr.Wrap(clierr.CodeLocalState,
				"credentials not configured: set BAMBOO_URL and BAMBOO_TOKEN, or run 'bmb init'", err)
		}
		return nil, clierr.Wrap(clierr.CodeFailure, "loading credentials", err)
	}
	return bamboo.New(creds.URL, creds.Token), nil
}

// loadConfig finds the nearest .bmb.yaml, attaching remediation text when
// there is none.
func loadConfig() (projectcfg.Config, error) {
	cfg, err := projectcfg.Load(".")
	if err != nil {
		if errors.Is(err, projectcfg.ErrNotFound) {
			return projectcfg.Config{}, clierr.Wrap(clierr.CodeLocalState,
				fmt.Sprintf("no plan specified and no %s found; create one with: plan: \"MYPROJECT-BUILD\"", projectcfg.FileName), err)
		}
		return projectcfg.Config{}, clierr.Wrap(clierr.CodeLocalState, "reading project config", err)
	}
	return cfg, nil
}

// keyFromArgsOrConfig resolves the plan/project identifier for commands
// that take it as an optional positional argument, falling back to the
// project config file.
func keyFromArgsOrConfig(args []string, pick func(projectcfg.Config) string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	key := pick(cfg)
	if key == "" {
		return "", clierr.Newf(clierr.CodeLocalState, "no plan configured in %s", projectcfg.FileName)
	}
	return key, nil
}

func planKey(cfg projectcfg.Config) string   { return cfg.Plan }
func deployKey(cfg projectcfg.Config) string { return cfg.DeployKey() }

// truncateSubject cuts on rune boundaries so multi-byte subjects stay
// valid UTF-8.
func truncateSubject(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

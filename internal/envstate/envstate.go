// Package envstate resolves what is currently deployed where: it maps each
// environment of a deployment project to the commit SHA and lifecycle state
// of its deployed version.
package envstate

import (
	"context"
	"strings"

	"github.com/pwalczak/bmb/internal/bamboo"
)

// API is the slice of the Bamboo client the resolver needs.
type API interface {
	DeploymentDashboard(ctx context.Context) ([]bamboo.DashboardEntry, error)
	BuildResult(ctx context.Context, buildKey string) (*bamboo.BuildResult, error)
}

// EnvState is one environment's currently deployed commit and state.
type EnvState struct {
	SHA   string // short commit hash, "" when unresolvable
	State string // bamboo deployment state (SUCCESS, FAILED, ...)
}

// shortSHALen matches git's default abbreviated hash width used across the
// timeline output.
const shortSHALen = 8

// Resolver answers deployment-state queries, memoizing build→SHA lookups
// for its lifetime. A build's VCS revision never changes once built, so the
// cache is never invalidated; create one Resolver per command invocation.
type Resolver struct {
	api      API
	shaCache map[string]string
}

// New creates a Resolver around the given client.
func New(api API) *Resolver {
	return &Resolver{
		api:      api,
		shaCache: make(map[string]string),
	}
}

// MatchesPlan reports whether a deployment project's plan key matches the
// given identifier: a bare project key (no separator) matches by prefix, a
// fully qualified plan key by equality.
func MatchesPlan(planKey, key string) bool {
	if !strings.Contains(key, "-") {
		return strings.HasPrefix(planKey, key+"-")
	}
	return planKey == key
}

// ResolveStates maps every environment under the matched deployment
// project(s) to its deployed SHA and state. An identifier matching nothing
// yields an empty map, not an error. Environments whose build SHA cannot be
// resolved are omitted.
func (r *Resolver) ResolveStates(ctx context.Context, planOrProjectKey string) (map[string]EnvState, error) {
	dashboard, err := r.api.DeploymentDashboard(ctx)
	if err != nil {
		return nil, err
	}

	states := make(map[string]EnvState)
	for _, entry := range dashboard {
		if !MatchesPlan(entry.Project.PlanKey.Key, planOrProjectKey) {
			continue
		}
		for _, status := range entry.EnvironmentStatuses {
			if status.Result == nil {
				continue
			}
			buildKey := status.Result.DeploymentVersion.BuildKey()
			if buildKey == "" {
				continue
			}
			sha := r.BuildSHA(ctx, buildKey)
			if sha == "" {
				continue
			}
			states[status.Environment.Name] = EnvState{
				SHA:   sha,
				State: status.Result.DeploymentState,
			}
		}
	}
	return states, nil
}

// BuildSHA resolves a build result key to its short VCS revision. Lookups
// are memoized, including failures: a build that can't be resolved now won't
// resolve later in the same run either.
func (r *Resolver) BuildSHA(ctx context.Context, buildKey string) string {
	if sha, ok := r.shaCache[buildKey]; ok {
		return sha
	}

	sha := ""
	if result, err := r.api.BuildResult(ctx, buildKey); err == nil {
		sha = result.VcsRevisionKey
		if len(sha) > shortSHALen {
			sha = sha[:shortSHALen]
		}
	}
	r.shaCache[buildKey] = sha
	return sha
}

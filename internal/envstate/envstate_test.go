package envstate

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwalczak/bmb/internal/bamboo"
)

type fakeAPI struct {
	dashboard     []bamboo.DashboardEntry
	dashboardErr  error
	builds        map[string]string // build key -> vcs revision
	buildCalls    map[string]int
	dashboardHits int
}

func (f *fakeAPI) DeploymentDashboard(ctx context.Context) ([]bamboo.DashboardEntry, error) {
	f.dashboardHits++
	return f.dashboard, f.dashboardErr
}

func (f *fakeAPI) BuildResult(ctx context.Context, buildKey string) (*bamboo.BuildResult, error) {
	if f.buildCalls == nil {
		f.buildCalls = map[string]int{}
	}
	f.buildCalls[buildKey]++
	rev, ok := f.builds[buildKey]
	if !ok {
		return nil, fmt.Errorf("build %s not found", buildKey)
	}
	return &bamboo.BuildResult{VcsRevisionKey: rev}, nil
}

func entry(planKey string, envs ...bamboo.EnvironmentStatus) bamboo.DashboardEntry {
	e := bamboo.DashboardEntry{EnvironmentStatuses: envs}
	e.Project.PlanKey.Key = planKey
	return e
}

func envStatus(name, state, buildKey string) bamboo.EnvironmentStatus {
	s := bamboo.EnvironmentStatus{
		Environment: bamboo.Environment{Name: name},
		Result:      &bamboo.DeploymentResult{DeploymentState: state},
	}
	var item bamboo.VersionItem
	item.PlanResultKey.Key = buildKey
	s.Result.DeploymentVersion.Items = []bamboo.VersionItem{item}
	return s
}

func TestMatchesPlan(t *testing.T) {
	tests := []struct {
		name    string
		planKey string
		key     string
		want    bool
	}{
		{name: "project prefix match", planKey: "CORE-BUILD", key: "CORE", want: true},
		{name: "project prefix no partial key match", planKey: "COREX-BUILD", key: "CORE", want: false},
		{name: "exact plan match", planKey: "CORE-BUILD", key: "CORE-BUILD", want: true},
		{name: "different plan", planKey: "CORE-DEPLOY", key: "CORE-BUILD", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesPlan(tt.planKey, tt.key))
		})
	}
}

func TestResolveStates(t *testing.T) {
	api := &fakeAPI{
		dashboard: []bamboo.DashboardEntry{
			entry("CORE-BUILD",
				envStatus("API_DEV", bamboo.StateSuccess, "CORE-BUILD-42"),
				envStatus("API_STAGE", bamboo.StateFailed, "CORE-BUILD-41"),
			),
			entry("OTHER-BUILD",
				envStatus("WEB_DEV", bamboo.StateSuccess, "OTHER-BUILD-9"),
			),
		},
		builds: map[string]string{
			"CORE-BUILD-42": "abc1234567890def",
			"CORE-BUILD-41": "def4567890abc123",
			"OTHER-BUILD-9": "9999999999999999",
		},
	}

	states, err := New(api).ResolveStates(context.Background(), "CORE-BUILD")
	require.NoError(t, err)

	assert.Equal(t, map[string]EnvState{
		"API_DEV":   {SHA: "abc12345", State: bamboo.StateSuccess},
		"API_STAGE": {SHA: "def45678", State: bamboo.StateFailed},
	}, states)
	assert.Equal(t, 1, api.dashboardHits, "exactly one dashboard fetch per call")
	assert.Zero(t, api.buildCalls["OTHER-BUILD-9"], "non-matching projects are not resolved")
}

func TestResolveStatesProjectKeyPrefix(t *testing.T) {
	api := &fakeAPI{
		dashboard: []bamboo.DashboardEntry{
			entry("CORE-BUILD", envStatus("API_DEV", bamboo.StateSuccess, "CORE-BUILD-42")),
			entry("CORE-WEB", envStatus("WEB_DEV", bamboo.StateSuccess, "CORE-WEB-7")),
		},
		builds: map[string]string{
			"CORE-BUILD-42": "abc1234567890def",
			"CORE-WEB-7":    "def4567890abc123",
		},
	}

	states, err := New(api).ResolveStates(context.Background(), "CORE")
	require.NoError(t, err)
	assert.Len(t, states, 2, "bare project key matches every plan under it")
}

func TestResolveStatesNoMatch(t *testing.T) {
	api := &fakeAPI{
		dashboard: []bamboo.DashboardEntry{
			entry("CORE-BUILD", envStatus("API_DEV", bamboo.StateSuccess, "CORE-BUILD-42")),
		},
	}

	states, err := New(api).ResolveStates(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.Empty(t, states, "no match is an empty mapping, not an error")
}

func TestResolveStatesDashboardError(t *testing.T) {
	api := &fakeAPI{dashboardErr: errors.New("connection refused")}
	_, err := New(api).ResolveStates(context.Background(), "CORE")
	assert.Error(t, err)
}

func TestBuildSHAMemoized(t *testing.T) {
	api := &fakeAPI{builds: map[string]string{"CORE-BUILD-42": "abc1234567890def"}}
	r := New(api)
	ctx := context.Background()

	assert.Equal(t, "abc12345", r.BuildSHA(ctx, "CORE-BUILD-42"))
	assert.Equal(t, "abc12345", r.BuildSHA(ctx, "CORE-BUILD-42"))
	assert.Equal(t, 1, api.buildCalls["CORE-BUILD-42"], "second lookup served from cache")

	// Failures are memoized too.
	assert.Equal(t, "", r.BuildSHA(ctx, "GONE-1"))
	assert.Equal(t, "", r.BuildSHA(ctx, "GONE-1"))
	assert.Equal(t, 1, api.buildCalls["GONE-1"])
}

func TestSkipsEnvironmentsWithoutResolvableSHA(t *testing.T) {
	api := &fakeAPI{
		dashboard: []bamboo.DashboardEntry{
			entry("CORE-BUILD",
				envStatus("API_DEV", bamboo.StateSuccess, "CORE-BUILD-42"),
				envStatus("API_STAGE", bamboo.StateSuccess, "GONE-1"),
				bamboo.EnvironmentStatus{Environment: bamboo.Environment{Name: "API_QA"}}, // never deployed
			),
		},
		builds: map[string]string{"CORE-BUILD-42": "abc1234567890def"},
	}

	states, err := New(api).ResolveStates(context.Background(), "CORE-BUILD")
	require.NoError(t, err)
	assert.Equal(t, []string{"API_DEV"}, keys(states))
}

func keys(m map[string]EnvState) []string {
	var out []string
	for k := range m {
		out = append(out, k)
	}
	return out
}

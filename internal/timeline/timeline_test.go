package timeline

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwalczak/bmb/internal/envstate"
	"github.com/pwalczak/bmb/internal/gitvcs"
	"github.com/pwalczak/bmb/internal/testutil/golden"
)

type fakeOracle struct {
	onTrunk   map[string]bool
	mergeBase string
	log       []gitvcs.Commit
	branches  map[string][]string
	commits   map[string]gitvcs.Commit

	gotMergeBaseInput []string
	gotLogFrom        string
}

func (f *fakeOracle) IsAncestor(ctx context.Context, candidate, ref string) bool {
	return f.onTrunk[candidate]
}

func (f *fakeOracle) MergeBaseOctopus(ctx context.Context, shas []string) string {
	f.gotMergeBaseInput = shas
	return f.mergeBase
}

func (f *fakeOracle) Log(ctx context.Context, fromExclusive, toRef string, firstParent bool) []gitvcs.Commit {
	f.gotLogFrom = fromExclusive
	return f.log
}

func (f *fakeOracle) RemoteBranchesContaining(ctx context.Context, sha, excludeRef string) []string {
	return f.branches[sha]
}

func (f *fakeOracle) ShowCommit(ctx context.Context, sha string) (gitvcs.Commit, bool) {
	c, ok := f.commits[sha]
	return c, ok
}

type fakeResolver struct {
	states map[string]envstate.EnvState
	err    error
}

func (f *fakeResolver) ResolveStates(ctx context.Context, key string) (map[string]envstate.EnvState, error) {
	return f.states, f.err
}

func fixedNow() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func at(age time.Duration) time.Time {
	return fixedNow().Add(-age)
}

func TestRenderTimeline(t *testing.T) {
	oracle := &fakeOracle{
		onTrunk:   map[string]bool{"aaa1111": true, "bbb2222": true},
		mergeBase: "aaa1111",
		log: []gitvcs.Commit{
			{ShortHash: "aaa1111", Author: "Ada Lovelace", Time: at(72 * time.Hour), Subject: "Add retry logic to importer"},
			{ShortHash: "bbb2222", Author: "Grace Hopper", Time: at(48 * time.Hour), Subject: "Merge pull request #12 from acme/feature/AC-7-cache"},
			{ShortHash: "ddd4444", Author: "Linus T", Time: at(4 * time.Hour), Subject: "Add pool metrics"},
		},
		branches: map[string][]string{
			"ccc3333": {"feature/AC-9-experiment", "feature/AC-9-experiment-v2"},
		},
		commits: map[string]gitvcs.Commit{
			"ccc3333": {ShortHash: "ccc3333", Author: "Mara Janson", Time: at(24 * time.Hour), Subject: "Try sharded queue"},
		},
	}
	envs := &fakeResolver{
		states: map[string]envstate.EnvState{
			"API_DEV":   {SHA: "bbb2222", State: "SUCCESS"},
			"WEB_DEV":   {SHA: "bbb2222", State: "SUCCESS"},
			"API_STAGE": {SHA: "aaa1111", State: "SUCCESS"},
			"WEB_QA":    {SHA: "ccc3333", State: "IN_PROGRESS"},
		},
	}

	r := &Renderer{Oracle: oracle, Envs: envs, Trunk: "origin/main", Now: fixedNow}
	var buf bytes.Buffer
	require.NoError(t, r.Render(context.Background(), &buf, "CORE-BUILD"))

	assert.ElementsMatch(t, []string{"aaa1111", "bbb2222"}, oracle.gotMergeBaseInput,
		"merge-base computed over on-trunk SHAs only")
	assert.Equal(t, "aaa1111", oracle.gotLogFrom, "log anchored at the oldest on-trunk SHA")

	golden.Assert(t, golden.TestdataDir(t), "timeline", buf.String())
}

func TestRenderNoDeployments(t *testing.T) {
	r := &Renderer{Oracle: &fakeOracle{}, Envs: &fakeResolver{}, Trunk: "origin/main"}
	err := r.Render(context.Background(), &bytes.Buffer{}, "CORE-BUILD")
	assert.ErrorIs(t, err, ErrNoDeployments)
}

func TestRenderNothingOnTrunk(t *testing.T) {
	r := &Renderer{
		Oracle: &fakeOracle{}, // nothing is an ancestor of trunk
		Envs: &fakeResolver{states: map[string]envstate.EnvState{
			"API_DEV": {SHA: "ccc3333", State: "SUCCESS"},
		}},
		Trunk: "origin/main",
	}
	err := r.Render(context.Background(), &bytes.Buffer{}, "CORE-BUILD")
	assert.ErrorIs(t, err, ErrNothingOnTrunk)
	assert.Contains(t, err.Error(), "origin/main")
}

func TestRenderNoHistory(t *testing.T) {
	r := &Renderer{
		Oracle: &fakeOracle{onTrunk: map[string]bool{"aaa1111": true}, mergeBase: "aaa1111"},
		Envs: &fakeResolver{states: map[string]envstate.EnvState{
			"API_DEV": {SHA: "aaa1111", State: "SUCCESS"},
		}},
		Trunk: "origin/main",
	}
	err := r.Render(context.Background(), &bytes.Buffer{}, "CORE-BUILD")
	assert.ErrorIs(t, err, ErrNoHistory)
}

func TestEnvsAtToleratesAbbreviationWidths(t *testing.T) {
	shaToEnvs := map[string][]string{
		"abc12345": {"API_DEV"}, // 8-char build-side abbreviation
	}

	assert.Equal(t, []string{"API_DEV"}, envsAt(shaToEnvs, "abc12345"))
	assert.Equal(t, []string{"API_DEV"}, envsAt(shaToEnvs, "abc1234"), "7-char local hash matches 8-char build hash")
	assert.Nil(t, envsAt(shaToEnvs, "abd1234"))
	assert.Nil(t, envsAt(shaToEnvs, "abc1"), "short prefixes are too ambiguous to match")
}

// Package timeline renders the deployment timeline: the trunk's recent
// commit history annotated with which environments currently run each
// commit, followed by deployments living on feature branches.
package timeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/pwalczak/bmb/internal/envgroup"
	"github.com/pwalczak/bmb/internal/envstate"
	"github.com/pwalczak/bmb/internal/gitvcs"
	"github.com/pwalczak/bmb/internal/reltime"
)

// Oracle is the slice of the git repository the renderer queries.
type Oracle interface {
	IsAncestor(ctx context.Context, candidate, ref string) bool
	MergeBaseOctopus(ctx context.Context, shas []string) string
	Log(ctx context.Context, fromExclusive, toRef string, firstParent bool) []gitvcs.Commit
	RemoteBranchesContaining(ctx context.Context, sha, excludeRef string) []string
	ShowCommit(ctx context.Context, sha string) (gitvcs.Commit, bool)
}

// EnvResolver supplies the current deployment state per environment.
type EnvResolver interface {
	ResolveStates(ctx context.Context, planOrProjectKey string) (map[string]envstate.EnvState, error)
}

// Rendering failures the CLI distinguishes from transport errors.
var (
	ErrNoDeployments  = errors.New("no deployments found or could not resolve commit SHAs")
	ErrNothingOnTrunk = errors.New("no deployments found on trunk")
	ErrNoHistory      = errors.New("could not read git history for deployed commits")
)

// Column widths of the report. These are part of the output contract, not
// cosmetics: consumers line up rows across runs.
const (
	ageWidth        = 3
	authorWidth     = 10
	subjectWidth    = 50
	subjectMax      = 48
	branchNameWidth = 42
	branchNameMax   = 40
)

// Renderer produces the timeline report for one plan or project.
type Renderer struct {
	Oracle Oracle
	Envs   EnvResolver
	Trunk  string // remote trunk ref, e.g. origin/main

	// Now is the clock used for relative ages; nil means time.Now.
	Now func() time.Time
}

// Render writes the timeline for planOrProjectKey to w.
func (r *Renderer) Render(ctx context.Context, w io.Writer, planOrProjectKey string) error {
	states, err := r.Envs.ResolveStates(ctx, planOrProjectKey)
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return ErrNoDeployments
	}

	envStates := make(map[string]string, len(states))
	shaToEnvs := make(map[string][]string)
	for env, st := range states {
		envStates[env] = st.State
		shaToEnvs[st.SHA] = append(shaToEnvs[st.SHA], env)
	}

	var onTrunk, offTrunk []string
	for _, sha := range sortedKeys(shaToEnvs) {
		if r.Oracle.IsAncestor(ctx, sha, r.Trunk) {
			onTrunk = append(onTrunk, sha)
		} else {
			offTrunk = append(offTrunk, sha)
		}
	}
	if len(onTrunk) == 0 {
		return fmt.Errorf("%w (%s)", ErrNothingOnTrunk, r.Trunk)
	}

	oldest := r.Oracle.MergeBaseOctopus(ctx, onTrunk)
	commits := r.Oracle.Log(ctx, oldest, r.Trunk, true)
	if len(commits) == 0 {
		return ErrNoHistory
	}

	universe := envgroup.NewUniverse(envStates)
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	for _, c := range commits {
		envs := envsAt(shaToEnvs, c.ShortHash)
		short, detail := universe.Label(envs)
		marker := ""
		if short != "" {
			marker = "<- " + short
		}
		fmt.Fprintf(w, "%s  %-*s %-*s %-*s %s\n",
			c.ShortHash,
			ageWidth, reltime.Since(c.Time, now()),
			authorWidth, firstName(c.Author),
			subjectWidth, abbreviateSubject(c.Subject, subjectMax),
			marker)
		if detail != "" {
			fmt.Fprintf(w, "          %s\n", detail)
		}
	}

	if len(offTrunk) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "On feature branches:")
	for _, sha := range offTrunk {
		c, ok := r.Oracle.ShowCommit(ctx, sha)
		if !ok {
			continue
		}
		branch := "unknown"
		if branches := r.Oracle.RemoteBranchesContaining(ctx, sha, r.Trunk); len(branches) > 0 {
			branch = stripBranchPrefix(branches[0])
		}
		branch = truncate(branch, branchNameMax)

		short, detail := universe.Label(shaToEnvs[sha])
		marker := ""
		if short != "" {
			marker = "<- " + short
		}
		fmt.Fprintf(w, "  %s  %-*s %-*s %-*s %s\n",
			c.ShortHash,
			ageWidth, reltime.Since(c.Time, now()),
			authorWidth, firstName(c.Author),
			branchNameWidth, branch,
			marker)
		if detail != "" {
			fmt.Fprintf(w, "            %s\n", detail)
		}
	}
	return nil
}

// envsAt finds environments deployed at a commit, tolerating differing
// abbreviation widths between build metadata and local git (one side may
// abbreviate to 7 characters, the other to 8).
func envsAt(shaToEnvs map[string][]string, commitSHA string) []string {
	if envs, ok := shaToEnvs[commitSHA]; ok {
		return envs
	}
	for sha, envs := range shaToEnvs {
		if samePrefix(sha, commitSHA) {
			return envs
		}
	}
	return nil
}

func samePrefix(a, b string) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	return len(a) >= 7 && a == b[:len(a)]
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

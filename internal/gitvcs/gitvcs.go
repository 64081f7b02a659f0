// Package gitvcs wraps the handful of read-only git queries bmb needs:
// ancestry tests, merge-base computation, and bounded log traversals.
// All answers degrade rather than fail: callers get "false", an arbitrary
// element, or an empty list when git cannot produce a definitive result.
package gitvcs

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Commit is one commit's display metadata.
type Commit struct {
	ShortHash string
	Author    string
	Time      time.Time
	Subject   string
}

// logFormat produces tab-separated short hash, author, committer
// timestamp and subject.
const logFormat = "--format=%h\t%an\t%ct\t%s"

// Repo answers ancestry queries against one local checkout.
type Repo struct {
	dir string
}

// Open returns a Repo rooted at dir. dir may be any directory inside the
// checkout; git resolves the repository itself.
func Open(dir string) *Repo {
	return &Repo{dir: dir}
}

// CurrentBranch returns the checked-out branch name.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	out, err := r.git(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// IsAncestor reports whether candidate is an ancestor of (or equal to) ref.
// Any inability to decide, including commits absent locally, counts as false.
func (r *Repo) IsAncestor(ctx context.Context, candidate, ref string) bool {
	cmd := exec.CommandContext(ctx, "git", "merge-base", "--is-ancestor", candidate, ref)
	cmd.Dir = r.dir
	return cmd.Run() == nil
}

// MergeBaseOctopus returns the common ancestor of all given commits.
// A single input is its own merge-base. When git cannot compute one
// (disjoint histories), the first input is returned as a degraded answer
// rather than an error. Empty input yields "".
func (r *Repo) MergeBaseOctopus(ctx context.Context, shas []string) string {
	switch len(shas) {
	case 0:
		return ""
	case 1:
		return shas[0]
	}
	args := append([]string{"merge-base", "--octopus"}, shas...)
	out, err := r.git(ctx, args...)
	if err != nil {
		return shas[0]
	}
	return strings.TrimSpace(out)
}

// Newest returns the element of shas that is a descendant of all others.
// When no element dominates (the set is not totally ordered by ancestry),
// the most recent commit by date is used as a tie-break; if even that
// fails, the first element is returned.
func (r *Repo) Newest(ctx context.Context, shas []string) string {
	switch len(shas) {
	case 0:
		return ""
	case 1:
		return shas[0]
	}

	for _, candidate := range shas {
		dominates := true
		for _, other := range shas {
			if other == candidate {
				continue
			}
			if !r.IsAncestor(ctx, other, candidate) {
				dominates = false
				break
			}
		}
		if dominates {
			return candidate
		}
	}

	args := append([]string{"log", "-1", "--format=%h", "--date-order"}, shas...)
	out, err := r.git(ctx, args...)
	if err != nil {
		return shas[0]
	}
	return strings.TrimSpace(out)
}

// Log returns commits reachable from toRef back to, but excluding,
// fromExclusive, oldest first. With firstParent set, side branches of merge
// commits are skipped so the trunk reads as a straight line. Invalid refs
// yield an empty list.
func (r *Repo) Log(ctx context.Context, fromExclusive, toRef string, firstParent bool) []Commit {
	args := []string{"log", logFormat, "--reverse"}
	if firstParent {
		args = append(args, "--first-parent")
	}
	args = append(args, fromExclusive+"^.."+toRef)

	out, err := r.git(ctx, args...)
	if err != nil {
		return nil
	}

	var commits []Commit
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if c, ok := parseLogLine(line); ok {
			commits = append(commits, c)
		}
	}
	return commits
}

// ShowCommit returns the metadata of a single commit, false if it is not
// present locally.
func (r *Repo) ShowCommit(ctx context.Context, sha string) (Commit, bool) {
	out, err := r.git(ctx, "log", "-1", logFormat, sha)
	if err != nil {
		return Commit{}, false
	}
	return parseLogLine(strings.TrimSpace(out))
}

// RemoteBranchesContaining lists remote branches that contain sha, with the
// "origin/" prefix stripped. Branches whose name contains excludeRef's
// branch part (typically the trunk) are filtered out.
func (r *Repo) RemoteBranchesContaining(ctx context.Context, sha, excludeRef string) []string {
	out, err := r.git(ctx, "branch", "-r", "--contains", sha)
	if err != nil {
		return nil
	}

	exclude := excludeRef
	if i := strings.LastIndex(exclude, "/"); i >= 0 {
		exclude = exclude[i+1:]
	}

	var branches []string
	for _, line := range strings.Split(out, "\n") {
		name := strings.TrimSpace(line)
		if name == "" || strings.Contains(name, "->") {
			continue
		}
		name = strings.TrimPrefix(name, "origin/")
		if exclude != "" && strings.Contains(name, exclude) {
			continue
		}
		branches = append(branches, name)
	}
	return branches
}

func (r *Repo) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.dir
	out, err := cmd.Output()
	return string(out), err
}

func parseLogLine(line string) (Commit, bool) {
	parts := strings.SplitN(line, "\t", 4)
	if len(parts) != 4 {
		return Commit{}, false
	}
	ts, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Commit{}, false
	}
	return Commit{
		ShortHash: parts[0],
		Author:    parts[1],
		Time:      time.Unix(ts, 0),
		Subject:   parts[3],
	}, true
}

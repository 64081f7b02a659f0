// Package deploystatus renders the deployment dashboard view: one line per
// environment with version, state, age and deployer, plus race markers
// showing which environments lead or lag on trunk builds.
package deploystatus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pwalczak/bmb/internal/bamboo"
	"github.com/pwalczak/bmb/internal/envstate"
	"github.com/pwalczak/bmb/internal/gitvcs"
	"github.com/pwalczak/bmb/internal/reltime"
)

// TrunkVersionPrefix marks versions built from the trunk plan; only those
// participate in the leader/lagging race markers.
const TrunkVersionPrefix = "master-"

// Race and state markers.
const (
	markerFailed  = "❌"
	markerPending = "⏳"
	markerLagging = "🐢"
	markerLeading = "🏎️"
)

// ErrNoProjects is returned when no deployment project matches the key.
var ErrNoProjects = errors.New("no deployment projects found")

// manualRunBy extracts the deployer's name out of a server-rendered
// "Manual run by <a href=...>Name</a>" reason. Best-effort enrichment only.
var manualRunBy = regexp.MustCompile(`>([^<]+)</a>`)

// CommitShower is the single local-git query the --sha view needs.
type CommitShower interface {
	ShowCommit(ctx context.Context, sha string) (gitvcs.Commit, bool)
}

// View renders deployment status for the projects matching one key.
type View struct {
	API      envstate.API
	Resolver *envstate.Resolver // shares the build→SHA cache with other views
	Git      CommitShower       // used only when ShowSHA is set

	ShowSHA bool
	Now     func() time.Time
}

// Render writes one block per matched deployment project to w.
func (v *View) Render(ctx context.Context, w io.Writer, planOrProjectKey string) error {
	dashboard, err := v.API.DeploymentDashboard(ctx)
	if err != nil {
		return err
	}

	now := time.Now
	if v.Now != nil {
		now = v.Now
	}

	found := false
	for _, entry := range dashboard {
		if !envstate.MatchesPlan(entry.Project.PlanKey.Key, planOrProjectKey) {
			continue
		}
		found = true
		name := entry.Project.Name
		fmt.Fprintf(w, "\n%s\n%s\n", name, strings.Repeat("-", len(name)))

		newestID, newestCount, hasOlder := trunkRace(entry.EnvironmentStatuses)
		showLeader := newestCount == 1 && hasOlder

		for _, status := range entry.EnvironmentStatuses {
			v.renderEnv(ctx, w, status, newestID, showLeader, now())
		}
	}

	if !found {
		return fmt.Errorf("%w for %s", ErrNoProjects, planOrProjectKey)
	}
	return nil
}

// trunkRace scans the trunk-convention versions on a project's dashboard:
// the newest version id, how many environments already run it, and whether
// any environment is still behind.
func trunkRace(statuses []bamboo.EnvironmentStatus) (newestID int64, newestCount int, hasOlder bool) {
	for _, status := range statuses {
		if status.Result == nil {
			continue
		}
		version := status.Result.DeploymentVersion
		if !strings.HasPrefix(version.Name, TrunkVersionPrefix) {
			continue
		}
		if version.ID > newestID {
			newestID = version.ID
		}
	}
	if newestID == 0 {
		return 0, 0, false
	}
	for _, status := range statuses {
		if status.Result == nil {
			continue
		}
		version := status.Result.DeploymentVersion
		if !strings.HasPrefix(version.Name, TrunkVersionPrefix) {
			continue
		}
		if version.ID == newestID {
			newestCount++
		} else {
			hasOlder = true
		}
	}
	return newestID, newestCount, hasOlder
}

func (v *View) renderEnv(ctx context.Context, w io.Writer, status bamboo.EnvironmentStatus, newestID int64, showLeader bool, now time.Time) {
	envName := status.Environment.Name

	if status.Result == nil {
		if v.ShowSHA {
			fmt.Fprintf(w, "  %-20s %-10s %s\n", envName, "?", "(no deployments)")
			return
		}
		fmt.Fprintf(w, "  %-20s %-42s\n", envName, "(no deployments)")
		return
	}

	result := status.Result
	version := result.DeploymentVersion
	marker := envMarker(result, newestID, showLeader)

	// A version without an originating build has no SHA to show; it keeps
	// the standard metadata line even in SHA mode.
	if v.ShowSHA && version.BuildKey() != "" {
		v.renderEnvSHA(ctx, w, envName, version, marker)
		return
	}

	// Emoji are double-width on screen but vary in rune count (🐢 is one
	// rune, 🏎️ two). Pad the version column by the marker's rune length and
	// use a two-space placeholder when there is none, so rows stay aligned.
	markerDisplay := marker
	if markerDisplay == "" {
		markerDisplay = "  "
	}
	pad := 40 + utf8.RuneCountInString(markerDisplay)
	fmt.Fprintf(w, "  %-20s %-*s %-10s %-8s %s\n",
		envName,
		pad, version.Name+markerDisplay,
		result.DeploymentState,
		reltime.Since(result.FinishedDate.Time(), now),
		deployerName(result))
}

func (v *View) renderEnvSHA(ctx context.Context, w io.Writer, envName string, version bamboo.DeploymentVersion, marker string) {
	sha := v.Resolver.BuildSHA(ctx, version.BuildKey())
	if sha != "" && v.Git != nil {
		if c, ok := v.Git.ShowCommit(ctx, sha); ok {
			fmt.Fprintf(w, "  %-20s %-10s %s\n", envName, c.ShortHash, truncateSubject(c.Subject, 50))
			return
		}
	}
	if sha == "" {
		sha = "?"
	}
	fmt.Fprintf(w, "  %-20s %-10s %s%s\n", envName, sha, version.Name, marker)
}

// truncateSubject cuts on rune boundaries so multi-byte subjects stay
// valid UTF-8.
func truncateSubject(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

// envMarker picks the status symbol for one environment. Failure and
// in-flight states win over the race markers.
func envMarker(result *bamboo.DeploymentResult, newestID int64, showLeader bool) string {
	version := result.DeploymentVersion
	isTrunk := strings.HasPrefix(version.Name, TrunkVersionPrefix)

	switch {
	case result.DeploymentState == bamboo.StateFailed:
		return markerFailed
	case result.DeploymentState == bamboo.StateInProgress || result.DeploymentState == bamboo.StateQueued:
		return markerPending
	case isTrunk && newestID != 0 && version.ID != newestID:
		return markerLagging
	case isTrunk && showLeader && version.ID == newestID:
		return markerLeading
	default:
		return ""
	}
}

// deployerName resolves who deployed: the version creator when known,
// otherwise scraped from a "Manual run by" reason summary. May be empty.
func deployerName(result *bamboo.DeploymentResult) string {
	if who := result.DeploymentVersion.CreatorDisplayName; who != "" {
		return who
	}
	if strings.Contains(result.ReasonSummary, "Manual run by") {
		if m := manualRunBy.FindStringSubmatch(result.ReasonSummary); m != nil {
			return m[1]
		}
	}
	return ""
}

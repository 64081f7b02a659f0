package timeline

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	mergePRPattern    = regexp.MustCompile(`^Merge pull request #(\d+) from [^/]+/(.+)$`)
	branchPrefixStrip = regexp.MustCompile(`^(bugfix|bugfixes|feature|features|tmp)/`)
)

// abbreviateSubject rewrites GitHub-style merge subjects
// ("Merge pull request #123 from org/feature/thing" → "#123 thing") and
// hard-truncates to maxLen with an ellipsis marker.
func abbreviateSubject(subject string, maxLen int) string {
	if m := mergePRPattern.FindStringSubmatch(subject); m != nil {
		subject = "#" + m[1] + " " + stripBranchPrefix(m[2])
	}
	return truncate(subject, maxLen)
}

// stripBranchPrefix removes the common branch-type prefix from a branch name.
func stripBranchPrefix(branch string) string {
	return branchPrefixStrip.ReplaceAllString(branch, "")
}

// truncate shortens s to maxLen runes, the last three spent on "...".
// Cuts on rune boundaries so multi-byte subjects stay valid UTF-8.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen-3]) + "..."
}

// firstName returns the first whitespace-separated token of a full name,
// capped at the author column width.
func firstName(author string) string {
	fields := strings.Fields(author)
	if len(fields) == 0 {
		return ""
	}
	return truncate(fields[0], authorWidth)
}

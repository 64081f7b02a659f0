// Package planref maps the local git branch onto Bamboo plan identifiers:
// trunk branches map to the plan itself, feature branches are matched to a
// Bamboo plan branch by the ticket number embedded in their name.
package planref

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/pwalczak/bmb/internal/bamboo"
)

// BranchLister is the single Bamboo query this package needs.
type BranchLister interface {
	ListBranches(ctx context.Context, planKey string, max int) ([]bamboo.Plan, error)
}

// Failures the CLI maps to remediation messages.
var (
	ErrNoTicket      = errors.New("could not extract a ticket number from branch name")
	ErrBranchUnknown = errors.New("no Bamboo branch found")
)

var ticketPattern = regexp.MustCompile(`(?i)([A-Z]+-\d+)`)

// ExtractTicket pulls an issue key like "AC-12345" out of a branch name,
// uppercased. Matching is case-insensitive.
func ExtractTicket(branchName string) (string, bool) {
	m := ticketPattern.FindString(branchName)
	if m == "" {
		return "", false
	}
	return strings.ToUpper(m), true
}

// IsTrunk reports whether the local branch is the integration branch.
func IsTrunk(branchName string) bool {
	return branchName == "main" || branchName == "master"
}

// Resolve maps the current git branch to the Bamboo key builds should be
// read from: the plan itself on trunk, else the plan branch whose name
// contains the branch's ticket number. The returned name is the Bamboo
// branch short name ("master" on trunk).
func Resolve(ctx context.Context, api BranchLister, planKey, gitBranch string) (key, name string, err error) {
	if IsTrunk(gitBranch) {
		return planKey, "master", nil
	}

	ticket, ok := ExtractTicket(gitBranch)
	if !ok {
		return "", "", fmt.Errorf("%w %q", ErrNoTicket, gitBranch)
	}

	branches, err := api.ListBranches(ctx, planKey, 1000)
	if err != nil {
		return "", "", err
	}
	for _, b := range branches {
		if strings.Contains(strings.ToLower(b.ShortName), strings.ToLower(ticket)) {
			return b.Key, b.ShortName, nil
		}
	}
	return "", "", fmt.Errorf("%w matching %q", ErrBranchUnknown, ticket)
}

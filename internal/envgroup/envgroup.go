// Package envgroup classifies environment names into (service, stage) pairs
// and collapses sets of environments into compact report labels.
//
// Names follow an optional SERVICE_STAGE convention on the last underscore
// ("API_DEV" → service API, stage DEV). Names without an underscore are
// treated as standalone labels.
package envgroup

import (
	"fmt"
	"sort"
	"strings"
)

// Status markers. A stage only gets a composite marker when every one of
// its services reports the same non-empty marker; partial failure is never
// summarized into a single symbol.
const (
	MarkerFailed  = "❌"
	MarkerPending = "⏳"
)

// deployment states that map to markers
const (
	stateFailed     = "FAILED"
	stateInProgress = "IN_PROGRESS"
	stateQueued     = "QUEUED"
)

// ParseEnv splits an environment name on its last underscore.
func ParseEnv(name string) (service, stage string, ok bool) {
	i := strings.LastIndex(name, "_")
	if i < 0 {
		return "", "", false
	}
	return name[:i], name[i+1:], true
}

// Universe is the full set of services and stages observed across ALL
// environments of a deployment project, plus each environment's current
// state. The aggregation rule "all DEV" is relative to this universe, not
// to whatever subset is being labeled.
type Universe struct {
	services map[string]bool
	stages   map[string]bool
	states   map[string]string // env name -> deployment state
}

// NewUniverse builds a Universe from every known environment's state.
func NewUniverse(states map[string]string) *Universe {
	u := &Universe{
		services: make(map[string]bool),
		stages:   make(map[string]bool),
		states:   states,
	}
	for env := range states {
		if service, stage, ok := ParseEnv(env); ok {
			u.services[service] = true
			u.stages[stage] = true
		}
	}
	return u
}

// Label formats a set of environment names sharing some property (same SHA,
// same state) into two strings: a short summary of complete stages and
// ungrouped names, and a detail string listing partially covered stages.
// Output is sorted, so it is stable under input reordering.
func (u *Universe) Label(envs []string) (short, detail string) {
	if len(envs) == 0 {
		return "", ""
	}

	byStage := make(map[string]map[string]bool)
	var ungrouped []string
	for _, env := range envs {
		service, stage, ok := ParseEnv(env)
		if !ok {
			ungrouped = append(ungrouped, env)
			continue
		}
		if byStage[stage] == nil {
			byStage[stage] = make(map[string]bool)
		}
		byStage[stage][service] = true
	}

	var shortLabels, detailLabels []string
	for _, stage := range sortedKeys(u.stages) {
		services, ok := byStage[stage]
		if !ok {
			continue
		}
		if len(services) == len(u.services) {
			shortLabels = append(shortLabels, "all "+stage+u.stageMarker(stage, services))
			continue
		}
		var parts []string
		for _, svc := range sortedKeys(services) {
			parts = append(parts, svc+u.serviceMarker(svc, stage))
		}
		detailLabels = append(detailLabels, fmt.Sprintf("%s(%s)", stage, strings.Join(parts, ",")))
	}

	sort.Strings(ungrouped)
	shortLabels = append(shortLabels, ungrouped...)

	return strings.Join(shortLabels, ", "), strings.Join(detailLabels, ", ")
}

// serviceMarker returns the marker for one service within a stage.
func (u *Universe) serviceMarker(service, stage string) string {
	switch u.states[service+"_"+stage] {
	case stateFailed:
		return MarkerFailed
	case stateInProgress, stateQueued:
		return MarkerPending
	default:
		return ""
	}
}

// stageMarker promotes a marker to the stage level only when every service
// in the stage shares the same non-empty marker.
func (u *Universe) stageMarker(stage string, services map[string]bool) string {
	first := ""
	for svc := range services {
		m := u.serviceMarker(svc, stage)
		if m == "" {
			return ""
		}
		if first == "" {
			first = m
		} else if m != first {
			return ""
		}
	}
	return first
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

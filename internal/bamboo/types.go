package bamboo

import "time"

// Deployment and build states as Bamboo reports them.
const (
	StateSuccess    = "SUCCESS"
	StateFailed     = "FAILED"
	StateInProgress = "IN_PROGRESS"
	StateQueued     = "QUEUED"

	LifeCycleFinished = "FINISHED"
)

// Build states use a different spelling than deployment states.
const (
	BuildStateSuccessful = "Successful"
	BuildStateFailed     = "Failed"
)

// EpochMillis is a Bamboo timestamp: milliseconds since the Unix epoch.
type EpochMillis int64

// Time converts to time.Time; the zero value maps to the zero time.
func (m EpochMillis) Time() time.Time {
	if m == 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(m))
}

// Project is a Bamboo build project.
type Project struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Plan is a build plan or an automatically created plan branch.
type Plan struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
}

// BuildResult is the result of one build execution. The same payload shape
// is returned for plan results and individual job results.
type BuildResult struct {
	Key                 string `json:"key"`
	BuildResultKey      string `json:"buildResultKey"`
	BuildNumber         int    `json:"buildNumber"`
	State               string `json:"state"`
	BuildState          string `json:"buildState"`
	LifeCycleState      string `json:"lifeCycleState"`
	BuildDurationDesc   string `json:"buildDurationDescription"`
	ReasonSummary       string `json:"reasonSummary"`
	VcsRevisionKey      string `json:"vcsRevisionKey"`
	SuccessfulTestCount int    `json:"successfulTestCount"`
	FailedTestCount     int    `json:"failedTestCount"`
	SkippedTestCount    int    `json:"skippedTestCount"`

	Stages     stageList `json:"stages"`
	LogEntries logList   `json:"logEntries"`
}

type stageList struct {
	Stage []Stage `json:"stage"`
}

// Stage is one stage of a build, holding per-job results.
type Stage struct {
	Name    string `json:"name"`
	Results struct {
		Result []BuildResult `json:"result"`
	} `json:"results"`
}

// JobKeys returns the job result keys across all stages, in stage order.
func (r *BuildResult) JobKeys() []string {
	var keys []string
	for _, st := range r.Stages.Stage {
		for _, jr := range st.Results.Result {
			if jr.BuildResultKey != "" {
				keys = append(keys, jr.BuildResultKey)
			}
		}
	}
	return keys
}

type logList struct {
	LogEntry []LogEntry `json:"logEntry"`
}

// LogEntry is one line of a job's build log.
type LogEntry struct {
	Log string `json:"log"`
}

// Logs returns the raw log lines of an expanded job result.
func (r *BuildResult) Logs() []string {
	lines := make([]string, 0, len(r.LogEntries.LogEntry))
	for _, e := range r.LogEntries.LogEntry {
		lines = append(lines, e.Log)
	}
	return lines
}

// DeploymentProject is a Bamboo deployment project tied to a build plan.
type DeploymentProject struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	PlanKey struct {
		Key string `json:"key"`
	} `json:"planKey"`
	Environments []Environment `json:"environments"`
}

// Environment is one deployment target within a deployment project.
type Environment struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DeploymentVersion is an immutable release produced from one build result.
type DeploymentVersion struct {
	ID                 int64         `json:"id"`
	Name               string        `json:"name"`
	CreatorDisplayName string        `json:"creatorDisplayName"`
	CreationDate       EpochMillis   `json:"creationDate"`
	Items              []VersionItem `json:"items"`
}

// VersionItem links a deployment version back to the build it was
// produced from.
type VersionItem struct {
	PlanResultKey struct {
		Key string `json:"key"`
	} `json:"planResultKey"`
}

// BuildKey returns the build result key the version was created from,
// or "" when the version carries no items.
func (v *DeploymentVersion) BuildKey() string {
	if len(v.Items) == 0 {
		return ""
	}
	return v.Items[0].PlanResultKey.Key
}

// DeploymentResult is the outcome (possibly still running) of deploying a
// version to an environment.
type DeploymentResult struct {
	ID                int64             `json:"id"`
	DeploymentState   string            `json:"deploymentState"`
	LifeCycleState    string            `json:"lifeCycleState"`
	FinishedDate      EpochMillis       `json:"finishedDate"`
	ReasonSummary     string            `json:"reasonSummary"`
	DeploymentVersion DeploymentVersion `json:"deploymentVersion"`
}

// EnvironmentStatus pairs an environment with its latest deployment result.
// Result is nil for environments never deployed to.
type EnvironmentStatus struct {
	Environment Environment       `json:"environment"`
	Result      *DeploymentResult `json:"deploymentResult"`
}

// DashboardEntry is one deployment project on the deployment dashboard,
// a snapshot of what is currently deployed where.
type DashboardEntry struct {
	Project             DeploymentProject   `json:"deploymentProject"`
	EnvironmentStatuses []EnvironmentStatus `json:"environmentStatuses"`
}

// TriggeredDeployment is the queue acknowledgement for a deployment trigger.
type TriggeredDeployment struct {
	DeploymentResultID int64 `json:"deploymentResultId"`
}

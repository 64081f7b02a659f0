// Package deployer triggers deployments of a version onto one or more
// environments, either fire-and-forget in parallel or chained with a wait
// for each environment to finish before the next starts.
package deployer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/pwalczak/bmb/internal/bamboo"
)

// API is the slice of the Bamboo client the deployer needs.
type API interface {
	DeploymentProjectsForPlan(ctx context.Context, planKey string) ([]bamboo.DeploymentProject, error)
	DeploymentProject(ctx context.Context, id int64) (*bamboo.DeploymentProject, error)
	Versions(ctx context.Context, projectID int64, max int) ([]bamboo.DeploymentVersion, error)
	TriggerDeployment(ctx context.Context, versionID, environmentID int64) (*bamboo.TriggeredDeployment, error)
	DeploymentResult(ctx context.Context, resultID int64) (*bamboo.DeploymentResult, error)
}

// Mode selects how multiple target environments are handled.
type Mode int

const (
	// Single deploys to the first target only.
	Single Mode = iota
	// Chain deploys sequentially, waiting for each to finish and stopping
	// at the first failure.
	Chain
	// Parallel fires all triggers without waiting; individual failures are
	// reported but don't abort the rest.
	Parallel
)

// Failures the CLI maps to distinct exit codes.
var (
	ErrProdTarget      = errors.New("deploying to PROD environments is not allowed")
	ErrNoProject       = errors.New("no deployment project found")
	ErrVersionNotFound = errors.New("version not found")
	ErrEnvNotFound     = errors.New("environment not found")
	ErrTimeout         = errors.New("timed out waiting for deployment")
)

const (
	defaultPollInterval = 5 * time.Second
	defaultTimeout      = 30 * time.Minute
)

// Deployer resolves a version and environment names, then triggers.
type Deployer struct {
	API API
	Out io.Writer

	// PollInterval and Timeout bound the chained-deploy wait loop.
	// Zero values pick the defaults (5s, 30m).
	PollInterval time.Duration
	Timeout      time.Duration
}

// GuardTargets refuses any target environment whose name contains "PROD",
// case-insensitively. Called before any network traffic; not configurable.
func GuardTargets(envNames []string) error {
	for _, name := range envNames {
		if strings.Contains(strings.ToUpper(name), "PROD") {
			return fmt.Errorf("%w (%s)", ErrProdTarget, name)
		}
	}
	return nil
}

// FindProjectID returns the first deployment project fed by planKey.
func FindProjectID(ctx context.Context, api API, planKey string) (int64, error) {
	projects, err := api.DeploymentProjectsForPlan(ctx, planKey)
	if err != nil {
		return 0, err
	}
	if len(projects) == 0 {
		return 0, fmt.Errorf("%w for %s", ErrNoProject, planKey)
	}
	return projects[0].ID, nil
}

// Run deploys versionName to envNames according to mode.
func (d *Deployer) Run(ctx context.Context, planKey, versionName string, envNames []string, mode Mode) error {
	if err := GuardTargets(envNames); err != nil {
		return err
	}

	projectID, err := FindProjectID(ctx, d.API, planKey)
	if err != nil {
		return err
	}

	versionID, err := d.findVersion(ctx, projectID, versionName)
	if err != nil {
		return err
	}

	targets, err := d.resolveTargets(ctx, projectID, envNames)
	if err != nil {
		return err
	}

	switch mode {
	case Chain:
		return d.runChained(ctx, versionName, versionID, targets)
	case Parallel:
		return d.runParallel(ctx, versionName, versionID, targets)
	default:
		return d.runSingle(ctx, versionID, targets[0])
	}
}

type target struct {
	name string
	id   int64
}

func (d *Deployer) findVersion(ctx context.Context, projectID int64, name string) (int64, error) {
	versions, err := d.API.Versions(ctx, projectID, 100)
	if err != nil {
		return 0, err
	}
	for _, v := range versions {
		if v.Name == name {
			return v.ID, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrVersionNotFound, name)
}

func (d *Deployer) resolveTargets(ctx context.Context, projectID int64, envNames []string) ([]target, error) {
	project, err := d.API.DeploymentProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]int64, len(project.Environments))
	for _, env := range project.Environments {
		byName[env.Name] = env.ID
	}

	targets := make([]target, 0, len(envNames))
	for _, name := range envNames {
		id, ok := byName[name]
		if !ok {
			available := make([]string, 0, len(byName))
			for n := range byName {
				available = append(available, n)
			}
			sort.Strings(available)
			return nil, fmt.Errorf("%w: %q (available: %s)", ErrEnvNotFound, name, strings.Join(available, ", "))
		}
		targets = append(targets, target{name: name, id: id})
	}
	return targets, nil
}

func (d *Deployer) runSingle(ctx context.Context, versionID int64, t target) error {
	triggered, err := d.API.TriggerDeployment(ctx, versionID, t.id)
	if err != nil {
		return fmt.Errorf("triggering deployment to %s: %w", t.name, err)
	}
	fmt.Fprintf(d.Out, "Deployment triggered: %d\n", triggered.DeploymentResultID)
	return nil
}

func (d *Deployer) runParallel(ctx context.Context, versionName string, versionID int64, targets []target) error {
	fmt.Fprintf(d.Out, "Deploying %s to %d environments (parallel):\n", versionName, len(targets))
	for _, t := range targets {
		triggered, err := d.API.TriggerDeployment(ctx, versionID, t.id)
		if err != nil {
			fmt.Fprintf(d.Out, "  %s: error: %v\n", t.name, err)
			continue
		}
		fmt.Fprintf(d.Out, "  %s: triggered (ID: %d)\n", t.name, triggered.DeploymentResultID)
	}
	return nil
}

func (d *Deployer) runChained(ctx context.Context, versionName string, versionID int64, targets []target) error {
	fmt.Fprintf(d.Out, "Deploying %s to %d environments (chained):\n", versionName, len(targets))
	for _, t := range targets {
		fmt.Fprintf(d.Out, "  %s: deploying...\n", t.name)
		triggered, err := d.API.TriggerDeployment(ctx, versionID, t.id)
		if err != nil {
			return fmt.Errorf("triggering deployment to %s: %w", t.name, err)
		}
		if err := d.wait(ctx, triggered.DeploymentResultID, t.name); err != nil {
			return fmt.Errorf("chain stopped at %s: %w", t.name, err)
		}
	}
	fmt.Fprintln(d.Out, "All deployments completed successfully.")
	return nil
}

var errStillRunning = errors.New("deployment still running")

// wait polls one deployment result at a fixed interval until it finishes,
// bounded by the configured timeout ceiling.
func (d *Deployer) wait(ctx context.Context, resultID int64, envName string) error {
	interval := d.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	// Backoff instances are stateful; build a fresh one per wait. Constant
	// interval, bounded total time.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = interval
	bo.MaxInterval = interval
	bo.Multiplier = 1
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = timeout

	var finalState string
	operation := func() error {
		result, err := d.API.DeploymentResult(ctx, resultID)
		if err != nil {
			return backoff.Permanent(err)
		}
		if result.LifeCycleState != bamboo.LifeCycleFinished {
			return errStillRunning
		}
		finalState = result.DeploymentState
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		if errors.Is(err, errStillRunning) {
			return fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}
		return err
	}

	if finalState != bamboo.StateSuccess {
		fmt.Fprintf(d.Out, "  %s: FAILED (%s)\n", envName, finalState)
		return fmt.Errorf("deployment to %s finished %s", envName, finalState)
	}
	fmt.Fprintf(d.Out, "  %s: SUCCESS\n", envName)
	return nil
}

// Package bamboo is a minimal typed client for the Bamboo REST API,
// covering the endpoints bmb needs: projects, plans, branches, build
// results, logs, and the deployment dashboard/version/trigger surface.
package bamboo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const apiBase = "rest/api/latest"

// Client talks to one Bamboo server using personal-access-token auth.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client for the given server URL and token.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// ListProjects returns all build projects.
func (c *Client) ListProjects(ctx context.Context, max int) ([]Project, error) {
	var out struct {
		Projects struct {
			Project []Project `json:"project"`
		} `json:"projects"`
	}
	params := url.Values{"max-results": {strconv.Itoa(max)}}
	if err := c.get(ctx, apiBase+"/project", params, &out); err != nil {
		return nil, err
	}
	return out.Projects.Project, nil
}

// ListPlans returns the plans of one project.
func (c *Client) ListPlans(ctx context.Context, projectKey string, max int) ([]Plan, error) {
	var out struct {
		Plans struct {
			Plan []Plan `json:"plan"`
		} `json:"plans"`
	}
	params := url.Values{
		"expand":      {"plans.plan"},
		"max-results": {strconv.Itoa(max)},
	}
	if err := c.get(ctx, apiBase+"/project/"+url.PathEscape(projectKey), params, &out); err != nil {
		return nil, err
	}
	return out.Plans.Plan, nil
}

// ListBranches returns the automatically created branches of a plan.
func (c *Client) ListBranches(ctx context.Context, planKey string, max int) ([]Plan, error) {
	var out struct {
		Branches struct {
			Branch []Plan `json:"branch"`
		} `json:"branches"`
	}
	params := url.Values{"max-results": {strconv.Itoa(max)}}
	if err := c.get(ctx, apiBase+"/plan/"+url.PathEscape(planKey)+"/branch", params, &out); err != nil {
		return nil, err
	}
	return out.Branches.Branch, nil
}

// BuildResults lists recent results for a plan or plan branch, newest first.
func (c *Client) BuildResults(ctx context.Context, key string, max int) ([]BuildResult, error) {
	var out struct {
		Results struct {
			Result []BuildResult `json:"result"`
		} `json:"results"`
	}
	params := url.Values{"max-results": {strconv.Itoa(max)}}
	if err := c.get(ctx, apiBase+"/result/"+url.PathEscape(key), params, &out); err != nil {
		return nil, err
	}
	return out.Results.Result, nil
}

// BuildResult fetches the detail of one build result.
func (c *Client) BuildResult(ctx context.Context, buildKey string) (*BuildResult, error) {
	var out BuildResult
	if err := c.get(ctx, apiBase+"/result/"+url.PathEscape(buildKey), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BuildResultStages fetches a build result expanded down to per-job results,
// used to discover job keys for log retrieval.
func (c *Client) BuildResultStages(ctx context.Context, buildKey string) (*BuildResult, error) {
	var out BuildResult
	params := url.Values{"expand": {"stages.stage.results.result"}}
	if err := c.get(ctx, apiBase+"/result/"+url.PathEscape(buildKey), params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// JobLogEntries fetches the log lines of one job via the result API.
func (c *Client) JobLogEntries(ctx context.Context, jobKey string) ([]string, error) {
	var out BuildResult
	params := url.Values{
		"expand":      {"logEntries"},
		"max-results": {"99999"},
	}
	if err := c.get(ctx, apiBase+"/result/"+url.PathEscape(jobKey), params, &out); err != nil {
		return nil, err
	}
	return out.Logs(), nil
}

// DownloadLog fetches a job's raw log file directly, as a fallback for
// servers that don't expose logEntries through the API.
func (c *Client) DownloadLog(ctx context.Context, jobKey string) (string, error) {
	u := fmt.Sprintf("%s/download/%s/build_logs/%s.log", c.baseURL, url.PathEscape(jobKey), url.PathEscape(jobKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading log for %s: %w", jobKey, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(resp.Header.Get("Content-Type"), "text") {
		return "", fmt.Errorf("no raw log available for %s (status %d)", jobKey, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// DeploymentDashboard fetches the full deployment dashboard: every
// deployment project with the current status of each environment.
func (c *Client) DeploymentDashboard(ctx context.Context) ([]DashboardEntry, error) {
	var out []DashboardEntry
	if err := c.get(ctx, apiBase+"/deploy/dashboard", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeploymentProjectsForPlan returns the deployment projects fed by a plan.
func (c *Client) DeploymentProjectsForPlan(ctx context.Context, planKey string) ([]DeploymentProject, error) {
	var out []DeploymentProject
	params := url.Values{"planKey": {planKey}}
	if err := c.get(ctx, apiBase+"/deploy/project/forPlan", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeploymentProject fetches one deployment project with its environments.
func (c *Client) DeploymentProject(ctx context.Context, id int64) (*DeploymentProject, error) {
	var out DeploymentProject
	if err := c.get(ctx, apiBase+"/deploy/project/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Versions lists the deployable versions of a deployment project.
func (c *Client) Versions(ctx context.Context, projectID int64, max int) ([]DeploymentVersion, error) {
	var out struct {
		Versions []DeploymentVersion `json:"versions"`
	}
	params := url.Values{"max-result": {strconv.Itoa(max)}}
	path := fmt.Sprintf("%s/deploy/project/%d/versions", apiBase, projectID)
	if err := c.get(ctx, path, params, &out); err != nil {
		return nil, err
	}
	return out.Versions, nil
}

// CreateVersion creates a named version from a build result.
func (c *Client) CreateVersion(ctx context.Context, projectID int64, buildKey, name string) (*DeploymentVersion, error) {
	payload := map[string]string{
		"planResultKey": buildKey,
		"name":          name,
	}
	var out DeploymentVersion
	path := fmt.Sprintf("%s/deploy/project/%d/version", apiBase, projectID)
	if err := c.post(ctx, path, nil, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TriggerDeployment queues a deployment of a version to an environment.
func (c *Client) TriggerDeployment(ctx context.Context, versionID, environmentID int64) (*TriggeredDeployment, error) {
	params := url.Values{
		"versionId":     {strconv.FormatInt(versionID, 10)},
		"environmentId": {strconv.FormatInt(environmentID, 10)},
	}
	var out TriggeredDeployment
	if err := c.post(ctx, apiBase+"/queue/deployment", params, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeploymentResult fetches the state of a triggered deployment.
func (c *Client) DeploymentResult(ctx context.Context, resultID int64) (*DeploymentResult, error) {
	var out DeploymentResult
	if err := c.get(ctx, apiBase+"/deploy/result/"+strconv.FormatInt(resultID, 10), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, v any) error {
	return c.do(ctx, http.MethodGet, path, params, nil, v)
}

func (c *Client) post(ctx context.Context, path string, params url.Values, payload, v any) error {
	return c.do(ctx, http.MethodPost, path, params, payload, v)
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, payload, v any) error {
	u := c.baseURL + "/" + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: %s", method, path, statusError(resp))
	}

	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%s %s: decoding response: %w", method, path, err)
	}
	return nil
}

// statusError summarizes a non-2xx response, keeping only a short excerpt
// of the body since Bamboo error pages can be full HTML documents.
func statusError(resp *http.Response) string {
	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
	s := strings.TrimSpace(string(excerpt))
	if s == "" {
		return resp.Status
	}
	return fmt.Sprintf("%s: %s", resp.Status, s)
}

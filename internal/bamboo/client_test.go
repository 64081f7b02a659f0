package bamboo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "test-token")
}

func TestListProjects(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/latest/project", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "1000", r.URL.Query().Get("max-results"))
		fmt.Fprint(w, `{"projects":{"project":[{"key":"CORE","name":"Core Services"}]}}`)
	})

	projects, err := c.ListProjects(context.Background(), 1000)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "CORE", projects[0].Key)
	assert.Equal(t, "Core Services", projects[0].Name)
}

func TestBuildResultsForPlan(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/latest/result/CORE-BUILD", r.URL.Path)
		fmt.Fprint(w, `{"results":{"result":[
			{"key":"CORE-BUILD-42","state":"Successful"},
			{"key":"CORE-BUILD-41","state":"Failed"}]}}`)
	})

	results, err := c.BuildResults(context.Background(), "CORE-BUILD", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "CORE-BUILD-42", results[0].Key)
	assert.Equal(t, "Failed", results[1].State)
}

func TestDeploymentDashboard(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/latest/deploy/dashboard", r.URL.Path)
		fmt.Fprint(w, `[{
			"deploymentProject":{"id":7,"name":"Core API","planKey":{"key":"CORE-BUILD"}},
			"environmentStatuses":[{
				"environment":{"id":11,"name":"API_DEV"},
				"deploymentResult":{
					"deploymentState":"SUCCESS",
					"lifeCycleState":"FINISHED",
					"finishedDate":1748736000000,
					"deploymentVersion":{
						"id":901,"name":"master-42",
						"creatorDisplayName":"Ada",
						"items":[{"planResultKey":{"key":"CORE-BUILD-42"}}]}}}]}]`)
	})

	dash, err := c.DeploymentDashboard(context.Background())
	require.NoError(t, err)
	require.Len(t, dash, 1)
	assert.Equal(t, "CORE-BUILD", dash[0].Project.PlanKey.Key)

	status := dash[0].EnvironmentStatuses[0]
	require.NotNil(t, status.Result)
	assert.Equal(t, "API_DEV", status.Environment.Name)
	assert.Equal(t, StateSuccess, status.Result.DeploymentState)
	assert.Equal(t, "master-42", status.Result.DeploymentVersion.Name)
	assert.Equal(t, "CORE-BUILD-42", status.Result.DeploymentVersion.BuildKey())
	assert.False(t, status.Result.FinishedDate.Time().IsZero())
}

func TestCreateVersion(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/api/latest/deploy/project/7/version", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		fmt.Fprint(w, `{"id":902,"name":"master-43"}`)
	})

	v, err := c.CreateVersion(context.Background(), 7, "CORE-BUILD-43", "master-43")
	require.NoError(t, err)
	assert.Equal(t, int64(902), v.ID)
	assert.Equal(t, "master-43", v.Name)
}

func TestTriggerDeployment(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/api/latest/queue/deployment", r.URL.Path)
		assert.Equal(t, "902", r.URL.Query().Get("versionId"))
		assert.Equal(t, "11", r.URL.Query().Get("environmentId"))
		fmt.Fprint(w, `{"deploymentResultId":5001}`)
	})

	td, err := c.TriggerDeployment(context.Background(), 902, 11)
	require.NoError(t, err)
	assert.Equal(t, int64(5001), td.DeploymentResultID)
}

func TestErrorIncludesStatusAndExcerpt(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, "token expired")
	})

	_, err := c.ListProjects(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "token expired")
}

func TestJobKeysAcrossStages(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "stages.stage.results.result", r.URL.Query().Get("expand"))
		fmt.Fprint(w, `{"key":"CORE-BUILD-42","stages":{"stage":[
			{"results":{"result":[{"buildResultKey":"CORE-BUILD-JOB1-42"}]}},
			{"results":{"result":[{"buildResultKey":"CORE-BUILD-JOB2-42"}]}}]}}`)
	})

	br, err := c.BuildResultStages(context.Background(), "CORE-BUILD-42")
	require.NoError(t, err)
	assert.Equal(t, []string{"CORE-BUILD-JOB1-42", "CORE-BUILD-JOB2-42"}, br.JobKeys())
}

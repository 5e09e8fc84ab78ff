package api_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"evalgo.org/strata/api"
	"evalgo.org/strata/engine/enginetest"
	"evalgo.org/strata/orchestrator"
	"evalgo.org/strata/project"
)

func testProject() *project.Project {
	return &project.Project{
		Name: "myapp",
		Services: []project.Service{
			{Name: "web", Scale: 1, Image: "nginx:latest"},
		},
	}
}

func newTestServer(t *testing.T) (*httptest.Server, func()) {
	t.Helper()
	fake := enginetest.New()
	fake.SeedImage("nginx:latest")
	orch := orchestrator.New(fake)
	p := testProject()

	ctx := t.Context()
	_, err := orch.Up(ctx, p, orchestrator.UpOptions{})
	require.NoError(t, err)

	s := api.New(orch, func(name string) (*project.Project, error) {
		if name != p.Name {
			return nil, &projectNotFoundError{name: name}
		}
		return p, nil
	})

	srv := httptest.NewServer(s.Handler())
	return srv, srv.Close
}

type projectNotFoundError struct{ name string }

func (e *projectNotFoundError) Error() string { return "no such project: " + e.name }

func TestListContainersReturnsConvergedReplicas(t *testing.T) {
	srv, closeFn := newTestServer(t)
	defer closeFn()

	resp, err := http.Get(srv.URL + "/projects/myapp/ps")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListContainersUnknownProjectIsNotFound(t *testing.T) {
	srv, closeFn := newTestServer(t)
	defer closeFn()

	resp, err := http.Get(srv.URL + "/projects/nope/ps")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthCheck(t *testing.T) {
	srv, closeFn := newTestServer(t)
	defer closeFn()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

package project_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"evalgo.org/strata/project"
)

func testProject() *project.Project {
	return &project.Project{
		Name: "myapp",
		Services: []project.Service{
			{Name: "db"},
			{Name: "web", Profiles: []string{"frontend"}},
			{Name: "worker", Profiles: []string{"backend", "frontend"}},
		},
		ActiveProfiles: map[string]struct{}{"frontend": {}},
	}
}

func TestServiceByName(t *testing.T) {
	p := testProject()

	svc, ok := p.ServiceByName("web")
	assert.True(t, ok)
	assert.Equal(t, "web", svc.Name)

	_, ok = p.ServiceByName("missing")
	assert.False(t, ok)
}

func TestServiceIndex(t *testing.T) {
	p := testProject()

	assert.Equal(t, 0, p.ServiceIndex("db"))
	assert.Equal(t, 2, p.ServiceIndex("worker"))
	assert.Equal(t, -1, p.ServiceIndex("missing"))
}

func TestEnabledHonorsActiveProfiles(t *testing.T) {
	p := testProject()

	assert.True(t, p.Enabled(project.Service{Name: "db"}))
	assert.True(t, p.Enabled(project.Service{Name: "web", Profiles: []string{"frontend"}}))
	assert.True(t, p.Enabled(project.Service{Name: "worker", Profiles: []string{"backend", "frontend"}}))
	assert.False(t, p.Enabled(project.Service{Name: "other", Profiles: []string{"backend"}}))
}

func TestEnabledServicesPreservesDeclarationOrder(t *testing.T) {
	p := testProject()

	enabled := p.EnabledServices()
	names := make([]string, len(enabled))
	for i, s := range enabled {
		names[i] = s.Name
	}
	assert.Equal(t, []string{"db", "web", "worker"}, names)
}

func TestContainerRunning(t *testing.T) {
	assert.True(t, project.Container{State: project.StateRunning}.Running())
	assert.False(t, project.Container{State: project.StateExited}.Running())
}

func TestServicePortKeyDefaultsProtocolToTCP(t *testing.T) {
	p := project.ServicePort{Target: 8080}
	assert.Equal(t, project.PortKey{Target: 8080, Protocol: "tcp"}, p.Key())

	udp := project.ServicePort{Target: 53, Protocol: "udp"}
	assert.Equal(t, project.PortKey{Target: 53, Protocol: "udp"}, udp.Key())
}

func TestVolumeSpecKeyIsTarget(t *testing.T) {
	v := project.VolumeSpec{Target: "/data"}
	assert.Equal(t, "/data", v.Key())
}

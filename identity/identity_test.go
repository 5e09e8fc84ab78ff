package identity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalgo.org/strata/identity"
	"evalgo.org/strata/project"
)

func TestContainerName(t *testing.T) {
	assert.Equal(t, "myapp_web_1", identity.ContainerName("myapp", "web", 1))
	assert.Equal(t, "myapp_web_2", identity.ContainerName("myapp", "web", 2))
}

func TestOneOffNameIsUnique(t *testing.T) {
	a := identity.OneOffName("myapp", "web")
	b := identity.OneOffName("myapp", "web")
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "myapp_web_run_")
}

func TestContainerLabelsReservedWins(t *testing.T) {
	p := &project.Project{
		Name:        "myapp",
		WorkingDir:  "/srv/myapp",
		ConfigFiles: []string{"docker-compose.yml"},
	}
	svc := project.Service{
		Name: "web",
		Labels: map[string]string{
			identity.LabelProject: "attacker-controlled",
			"custom.label":        "keep-me",
		},
	}

	labels := identity.ContainerLabels(p, svc, 1, false, "deadbeef")

	assert.Equal(t, "myapp", labels[identity.LabelProject])
	assert.Equal(t, "web", labels[identity.LabelService])
	assert.Equal(t, "1", labels[identity.LabelContainerNumber])
	assert.Equal(t, "False", labels[identity.LabelOneOff])
	assert.Equal(t, "deadbeef", labels[identity.LabelConfigHash])
	assert.Equal(t, "keep-me", labels["custom.label"])
}

func TestConfigHashStableAndSensitive(t *testing.T) {
	svc1 := project.Service{Name: "web", Image: "nginx:1.25", Environment: map[string]*string{}}
	svc2 := project.Service{Name: "web", Image: "nginx:1.25", Environment: map[string]*string{}}

	h1, err := identity.ConfigHash(svc1)
	require.NoError(t, err)
	h2, err := identity.ConfigHash(svc2)
	require.NoError(t, err)
	assert.Equal(t, h1, h2, "identical services must hash identically")

	svc3 := svc1
	svc3.Image = "nginx:1.26"
	h3, err := identity.ConfigHash(svc3)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3, "a changed field must change the hash")
}

func TestConfigHashIgnoresNonHashFields(t *testing.T) {
	base := project.Service{Name: "web", Image: "nginx:1.25"}
	h1, err := identity.ConfigHash(base)
	require.NoError(t, err)

	grace := 30 * time.Second
	changed := base
	changed.Scale = 3
	changed.Profiles = []string{"backend"}
	changed.ContainerName = "custom-name"
	changed.Labels = map[string]string{"team": "platform"}
	changed.StopGracePeriod = &grace
	changed.Restart = project.RestartPolicy{Name: "always"}

	h2, err := identity.ConfigHash(changed)
	require.NoError(t, err)
	assert.Equal(t, h1, h2, "scale/profiles/container_name/labels/stop_grace_period/restart must not affect the config hash")
}

func TestConfigHashMapOrderInsensitive(t *testing.T) {
	v1, v2 := "a", "a"
	w1, w2 := "b", "b"
	svcA := project.Service{Name: "web", Environment: map[string]*string{"A": &v1, "B": &w1}}
	svcB := project.Service{Name: "web", Environment: map[string]*string{"B": &w2, "A": &v2}}

	hA, err := identity.ConfigHash(svcA)
	require.NoError(t, err)
	hB, err := identity.ConfigHash(svcB)
	require.NoError(t, err)
	assert.Equal(t, hA, hB)
}

package errcat_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evalgo.org/strata/errcat"
)

func TestConfigurationErrorMessage(t *testing.T) {
	e := &errcat.ConfigurationError{File: "docker-compose.yml", Path: "services.web.ports[0]", Cause: errors.New("invalid port")}
	assert.Contains(t, e.Error(), "docker-compose.yml")
	assert.Contains(t, e.Error(), "services.web.ports[0]")

	bare := &errcat.ConfigurationError{Cause: errors.New("bad document")}
	assert.Equal(t, "configuration error: bad document", bare.Error())
}

func TestCircularReferenceMessage(t *testing.T) {
	e := &errcat.CircularReference{Kind: "extends", Trail: []string{"a", "b", "a"}}
	assert.Equal(t, "circular extends reference: a -> b -> a", e.Error())
}

func TestNoSuchServiceMessage(t *testing.T) {
	e := &errcat.NoSuchService{Name: "ghost"}
	assert.Equal(t, `no such service: "ghost"`, e.Error())
}

func TestNewProjectErrorEmptyCausesIsNil(t *testing.T) {
	err := errcat.NewProjectError(nil)
	assert.Nil(t, err)
}

func TestNewProjectErrorAggregatesAndUnwraps(t *testing.T) {
	causes := map[string]error{
		"web": &errcat.NoSuchService{Name: "web"},
		"db":  errors.New("connection refused"),
	}
	err := errcat.NewProjectError(causes)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 node(s) failed")
	assert.Contains(t, err.Error(), "web:")
	assert.Contains(t, err.Error(), "db:")

	var noSuch *errcat.NoSuchService
	assert.True(t, errcat.As(err, &noSuch))
	assert.Equal(t, "web", noSuch.Name)
}

func TestUnwrapChains(t *testing.T) {
	cause := errors.New("engine timeout")
	e := &errcat.OperationFailedError{Service: "web", Operation: "start", Cause: cause}
	assert.ErrorIs(t, e, cause)
}

package loader_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"evalgo.org/strata/loader"
)

func TestLoadVersion2Document(t *testing.T) {
	doc := []byte(`
version: "3.8"
services:
  web:
    image: nginx:latest
    depends_on:
      db:
        condition: service_started
  db:
    image: postgres:16
networks:
  default:
    driver: bridge
`)

	layer, err := loader.Load("compose.yml", doc)
	require.NoError(t, err)
	require.Equal(t, "3.8", layer.Version)
	require.Contains(t, layer.Services, "web")
	require.Contains(t, layer.Services, "db")
	require.Contains(t, layer.Networks, "default")
}

func TestLoadVersion1PromotesRootAsServices(t *testing.T) {
	doc := []byte(`
web:
  image: nginx:latest
db:
  image: postgres:16
`)

	layer, err := loader.Load("compose.yml", doc)
	require.NoError(t, err)
	require.Equal(t, "1", layer.Version)
	require.Contains(t, layer.Services, "web")
	require.Contains(t, layer.Services, "db")
}

func TestLoadTranslatesLegacyNetField(t *testing.T) {
	doc := []byte(`
web:
  image: nginx:latest
  net: "container:mycontainer"
`)

	layer, err := loader.Load("compose.yml", doc)
	require.NoError(t, err)
	webRaw := layer.Services["web"]
	require.Equal(t, "container:mycontainer", webRaw["network_mode"])
	require.NotContains(t, webRaw, "net")
}

func TestLoadNetDoesNotOverrideExplicitNetworkMode(t *testing.T) {
	doc := []byte(`
version: "3.8"
services:
  web:
    image: nginx:latest
    net: "container:ignored"
    network_mode: "service:db"
`)

	layer, err := loader.Load("compose.yml", doc)
	require.NoError(t, err)
	webRaw := layer.Services["web"]
	require.Equal(t, "service:db", webRaw["network_mode"])
}

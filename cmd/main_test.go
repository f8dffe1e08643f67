package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aukilabs/celltree/featureflag"
	"github.com/stretchr/testify/require"
)

func validTestConfig() config {
	return config{
		PublicEndpoint:     "http://localhost:4000",
		MeshFile:           "mesh.geojson",
		CellsPerLeaf:       2,
		Buckets:            4,
		ClientIdleTimeout:  time.Minute,
		LogSummaryInterval: time.Minute,
		ShutdownTimeout:    time.Second,
	}
}

func TestValidateConfig(t *testing.T) {
	require.NoError(t, validateConfig(validTestConfig()))

	tests := []struct {
		name   string
		update func(*config)
	}{
		{name: "invalid public endpoint", update: func(c *config) { c.PublicEndpoint = "localhost" }},
		{name: "missing mesh file", update: func(c *config) { c.MeshFile = "" }},
		{name: "zero cells per leaf", update: func(c *config) { c.CellsPerLeaf = 0 }},
		{name: "single bucket", update: func(c *config) { c.Buckets = 1 }},
		{name: "negative workers", update: func(c *config) { c.Workers = -1 }},
		{name: "zero idle timeout", update: func(c *config) { c.ClientIdleTimeout = 0 }},
		{name: "zero shutdown timeout", update: func(c *config) { c.ShutdownTimeout = 0 }},
		{name: "zero log summary interval", update: func(c *config) { c.LogSummaryInterval = 0 }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			conf := validTestConfig()
			test.update(&conf)
			require.Error(t, validateConfig(conf))
		})
	}
}

func TestBuildIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mesh.json")
	err := os.WriteFile(path, []byte(`{
		"vertices": [[0, 0], [1, 0], [1, 1], [0, 1]],
		"faces": [[0, 1, 2], [0, 2, 3]]
	}`), 0o600)
	require.NoError(t, err)

	conf := validTestConfig()
	conf.MeshFile = path

	t.Run("configured workers", func(t *testing.T) {
		conf := conf
		conf.Workers = 3

		idx, err := buildIndex(conf, featureflag.New(nil))
		require.NoError(t, err)
		require.Equal(t, 2, idx.Mesh().CellCount())
		require.Equal(t, 3, idx.Options().Workers)
	})

	t.Run("serial queries", func(t *testing.T) {
		conf := conf
		conf.Workers = 3

		idx, err := buildIndex(conf, featureflag.New([]string{string(featureflag.FlagSerialQueries)}))
		require.NoError(t, err)
		require.Equal(t, 1, idx.Options().Workers)
	})

	t.Run("missing mesh file", func(t *testing.T) {
		conf := conf
		conf.MeshFile = filepath.Join(t.TempDir(), "missing.json")

		_, err := buildIndex(conf, featureflag.New(nil))
		require.Error(t, err)
	})
}

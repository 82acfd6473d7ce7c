package qdrant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClusterURL(t *testing.T) {
	t.Run("cloud URL with REST port", func(t *testing.T) {
		ep, err := parseClusterURL("https://xyz-example.eu-central.aws.cloud.qdrant.io:6333")
		require.NoError(t, err)
		assert.Equal(t, "xyz-example.eu-central.aws.cloud.qdrant.io", ep.Host)
		assert.Equal(t, 6334, ep.Port)
		assert.True(t, ep.UseTLS)
	})

	t.Run("cloud URL without port", func(t *testing.T) {
		ep, err := parseClusterURL("https://xyz-example.cloud.qdrant.io")
		require.NoError(t, err)
		assert.Equal(t, 6334, ep.Port)
		assert.True(t, ep.UseTLS)
	})

	t.Run("bare host", func(t *testing.T) {
		ep, err := parseClusterURL("xyz-example.cloud.qdrant.io")
		require.NoError(t, err)
		assert.Equal(t, "xyz-example.cloud.qdrant.io", ep.Host)
		assert.True(t, ep.UseTLS)
	})

	t.Run("local http with explicit grpc port", func(t *testing.T) {
		ep, err := parseClusterURL("http://localhost:6334")
		require.NoError(t, err)
		assert.Equal(t, "localhost", ep.Host)
		assert.Equal(t, 6334, ep.Port)
		assert.False(t, ep.UseTLS)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := parseClusterURL("")
		require.Error(t, err)
	})
}

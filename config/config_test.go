package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("QDRANT_CLOUD_URL", "https://example.cloud.qdrant.io:6334")
	t.Setenv("QDRANT_CLOUD_API_KEY", "qdrant-key")
	t.Setenv("OPENAI_API_KEY", "openai-key")
	t.Setenv("GCS_BUCKET_NAME", "ai_knowledgebase")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "historical_sources", cfg.Qdrant.Collection)
	assert.Equal(t, "text-embedding-3-small", cfg.OpenAI.Model)
	assert.Equal(t, "podcasts/revolutions/metadata/", cfg.GCS.MetadataPrefix)
	assert.Equal(t, "revolutions", cfg.GCS.SourceName)
	assert.Equal(t, "chronicler.db", cfg.Ledger.Path)
	assert.Equal(t, 0, cfg.Run.MemoryLimitMB)
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("QDRANT_COLLECTION_NAME", "test_collection")
	t.Setenv("GCS_METADATA_PREFIX", "podcasts/rome/metadata/")
	t.Setenv("SOURCE_NAME", "history_of_rome")
	t.Setenv("MEMORY_LIMIT_MB", "512")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test_collection", cfg.Qdrant.Collection)
	assert.Equal(t, "podcasts/rome/metadata/", cfg.GCS.MetadataPrefix)
	assert.Equal(t, "history_of_rome", cfg.GCS.SourceName)
	assert.Equal(t, 512, cfg.Run.MemoryLimitMB)
}

func TestValidateMissingCredentials(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("QDRANT_CLOUD_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "QDRANT_CLOUD_API_KEY")
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestValidateSearchSkipsGCS(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GCS_BUCKET_NAME", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Error(t, cfg.Validate(), "full validation should require the bucket")
	assert.NoError(t, cfg.ValidateSearch(), "search validation should not require GCS")
}

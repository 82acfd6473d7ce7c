// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the full runtime configuration, read from the environment
// with an optional .env file layered underneath.
type Config struct {
	Qdrant QdrantConfig
	OpenAI OpenAIConfig
	GCS    GCSConfig
	Ledger LedgerConfig
	Run    RunConfig
}

// QdrantConfig addresses the vector index.
type QdrantConfig struct {
	URL        string `envconfig:"QDRANT_CLOUD_URL"`
	APIKey     string `envconfig:"QDRANT_CLOUD_API_KEY"`
	Collection string `envconfig:"QDRANT_COLLECTION_NAME" default:"historical_sources"`
}

// OpenAIConfig holds embedding API credentials.
type OpenAIConfig struct {
	APIKey string `envconfig:"OPENAI_API_KEY"`
	Model  string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
}

// GCSConfig locates the transcript corpus in Google Cloud.
type GCSConfig struct {
	ProjectID       string `envconfig:"GCS_PROJECT_ID"`
	Bucket          string `envconfig:"GCS_BUCKET_NAME"`
	MetadataPrefix  string `envconfig:"GCS_METADATA_PREFIX" default:"podcasts/revolutions/metadata/"`
	CredentialsFile string `envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`
	SourceName      string `envconfig:"SOURCE_NAME" default:"revolutions"`
}

// LedgerConfig locates the local progress ledger.
type LedgerConfig struct {
	Path string `envconfig:"LEDGER_PATH" default:"chronicler.db"`
}

// RunConfig bounds the pipeline's resource usage.
type RunConfig struct {
	// MemoryLimitMB is passed to the runtime's soft memory limit so an
	// unattended run on a capped instance degrades instead of dying.
	// Zero disables the limit.
	MemoryLimitMB int `envconfig:"MEMORY_LIMIT_MB" default:"0"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present; real environment variables win.
func Load() (*Config, error) {
	// Ignore a missing .env; the environment alone is a valid setup.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return &cfg, nil
}

// Validate checks that every credential processing needs is present.
// Called before any network client is constructed so a misconfigured run
// aborts immediately.
func (c *Config) Validate() error {
	var missing []string
	if c.Qdrant.URL == "" {
		missing = append(missing, "QDRANT_CLOUD_URL")
	}
	if c.Qdrant.APIKey == "" {
		missing = append(missing, "QDRANT_CLOUD_API_KEY")
	}
	if c.OpenAI.APIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.GCS.Bucket == "" {
		missing = append(missing, "GCS_BUCKET_NAME")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missing)
	}
	if c.Qdrant.Collection == "" {
		return errors.New("QDRANT_COLLECTION_NAME must not be blank")
	}
	return nil
}

// ValidateSearch checks the subset of configuration the query CLI needs;
// it does not require GCS credentials.
func (c *Config) ValidateSearch() error {
	var missing []string
	if c.Qdrant.URL == "" {
		missing = append(missing, "QDRANT_CLOUD_URL")
	}
	if c.Qdrant.APIKey == "" {
		missing = append(missing, "QDRANT_CLOUD_API_KEY")
	}
	if c.OpenAI.APIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missing)
	}
	return nil
}

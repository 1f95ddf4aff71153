package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

const baseYAML = `
app:
  name: cpq-console
backend:
  base_url: ${TEST_CPQ_BACKEND}
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: localhost
    database: cpq
    user: cpq
  elasticsearch:
    addresses: ["http://localhost:9200"]
  redis:
    address: localhost:6379
workers:
  opportunity.workflow.submit:
    enabled: true
    max_jobs_active: 3
  dashboard.export.csv:
    enabled: false
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// ==========================
// Loader Tests
// ==========================

func TestLoadFromFile(t *testing.T) {
	t.Setenv("TEST_CPQ_BACKEND", "https://cpq.example.com")

	cfg, err := LoadFromFile(writeConfig(t, baseYAML))
	require.NoError(t, err)

	assert.Equal(t, "https://cpq.example.com", cfg.Backend.BaseURL)

	submit := GetWorkerConfig(cfg, "opportunity.workflow.submit")
	assert.True(t, submit.Enabled)
	assert.Equal(t, 3, submit.MaxJobsActive)
	assert.Equal(t, 30000, submit.Timeout, "defaulted")
	assert.Equal(t, 3, submit.MaxRetries, "defaulted")

	assert.False(t, IsWorkerEnabled(cfg, "dashboard.export.csv"))
	assert.True(t, IsWorkerEnabled(cfg, "opportunity.summary.pdf"), "unlisted workers are enabled")
}

func TestLoadFromFile_Defaults(t *testing.T) {
	t.Setenv("TEST_CPQ_BACKEND", "https://cpq.example.com")

	cfg, err := LoadFromFile(writeConfig(t, baseYAML))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, "token", cfg.Backend.TokenKey)
	assert.Equal(t, 3, cfg.Backend.MaxRetries)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "cpq", cfg.Database.Elasticsearch.IndexPrefix)
	assert.Equal(t, "opportunityFormData", cfg.Wizard.DraftKey)
	assert.Equal(t, 7*24*time.Hour, GetSeconds(cfg.Wizard.DraftTTL))
	assert.Equal(t, 500*time.Millisecond, GetDuration(cfg.Dashboard.SearchDebounce))
	assert.Equal(t, 10, cfg.Dashboard.PageSize)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		extra   string
		wantErr string
	}{
		{"missing backend", "", "", "backend.base_url"},
		{"non-http backend", "ftp://cpq", "", "must be an http(s) URL"},
		{"topic without arn", "https://cpq", "notifications:\n  topic:\n    enabled: true\n", "notifications.topic.arn"},
		{"email without sender", "https://cpq", "notifications:\n  email:\n    enabled: true\n", "from_email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_CPQ_BACKEND", tt.backend)
			t.Setenv("CPQ_BACKEND_URL", "")
			t.Setenv("NOTIFICATION_TOPIC_ARN", "")

			_, err := LoadFromFile(writeConfig(t, baseYAML+tt.extra))

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetWorkerConfig_Fallback(t *testing.T) {
	wc := GetWorkerConfig(&Config{}, "unknown.task")
	assert.Equal(t, WorkerConfig{Enabled: true, MaxJobsActive: 5, Timeout: 30000, MaxRetries: 3}, wc)
}

// internal/workers/dashboard/export-csv/config.go
package exportcsv

import (
	"fmt"
	"os"
	"time"

	"cpq-console/internal/common/config"
)

type Config struct {
	Enabled   bool
	Timeout   time.Duration
	ExportDir string
	// DefaultFields are the columns used when the job names none.
	DefaultFields []string
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		Timeout:       60 * time.Second,
		ExportDir:     os.TempDir(),
		DefaultFields: []string{"id", "name"},
	}
}

func ConfigFrom(cfg *config.Config) *Config {
	wc := config.GetWorkerConfig(cfg, TaskType)
	c := DefaultConfig()
	c.Enabled = wc.Enabled
	c.Timeout = config.GetDuration(wc.Timeout)
	if cfg.Dashboard.ExportDir != "" {
		c.ExportDir = cfg.Dashboard.ExportDir
	}
	return c
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.ExportDir == "" {
		return fmt.Errorf("export_dir is required")
	}
	if len(c.DefaultFields) == 0 {
		return fmt.Errorf("at least one default field is required")
	}
	return nil
}

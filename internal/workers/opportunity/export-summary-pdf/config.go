// internal/workers/opportunity/export-summary-pdf/config.go
package exportsummarypdf

import (
	"fmt"
	"os"
	"time"

	"cpq-console/internal/common/config"
)

type Config struct {
	Enabled                     bool
	Timeout                     time.Duration
	ExportDir                   string
	NewCustomerSalesCycleTypeID string
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:   true,
		Timeout:   60 * time.Second,
		ExportDir: os.TempDir(),
	}
}

func ConfigFrom(cfg *config.Config) *Config {
	wc := config.GetWorkerConfig(cfg, TaskType)
	c := DefaultConfig()
	c.Enabled = wc.Enabled
	c.Timeout = config.GetDuration(wc.Timeout)
	c.NewCustomerSalesCycleTypeID = cfg.Wizard.NewCustomerSalesCycleTypeID
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
	return nil
}

// internal/workers/catalog/transition-status/config.go
package transitionstatus

import (
	"fmt"
	"time"

	"cpq-console/internal/common/config"
)

type Config struct {
	Enabled bool
	Timeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{Enabled: true, Timeout: 15 * time.Second}
}

func ConfigFrom(cfg *config.Config) *Config {
	wc := config.GetWorkerConfig(cfg, TaskType)
	return &Config{Enabled: wc.Enabled, Timeout: config.GetDuration(wc.Timeout)}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

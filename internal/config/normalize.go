package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeMCP()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Inventory.DatabasePath) != "" {
		if c.Inventory.DatabasePath, err = expandPath(c.Inventory.DatabasePath); err != nil {
			return fmt.Errorf("inventory.database_path: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeMCP() {
	c.MCP.Bind = strings.TrimSpace(c.MCP.Bind)
	if c.MCP.Bind == "" {
		c.MCP.Bind = defaultMCPBind
	}
	if c.MCP.MaxSessions <= 0 {
		c.MCP.MaxSessions = defaultMaxSessions
	}
	c.MCP.ServerName = strings.TrimSpace(c.MCP.ServerName)
	if c.MCP.ServerName == "" {
		c.MCP.ServerName = defaultServerName
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

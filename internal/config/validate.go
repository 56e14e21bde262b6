package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMCP(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateMCP() error {
	host, port, err := net.SplitHostPort(c.MCP.Bind)
	if err != nil {
		return fmt.Errorf("mcp.bind must be a host:port address: %w", err)
	}
	if host == "" {
		return errors.New("mcp.bind must include a host")
	}
	portNum, err := strconv.Atoi(port)
	if err != nil || portNum < 0 || portNum > 65535 {
		return fmt.Errorf("mcp.bind has invalid port %q", port)
	}
	if c.MCP.MaxSessions < 1 {
		return errors.New("mcp.max_sessions must be at least 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

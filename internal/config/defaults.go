package config

const (
	defaultDataDir     = "~/.local/share/bigrack"
	defaultLogDir      = "~/.local/share/bigrack/logs"
	defaultMCPBind     = "127.0.0.1:7331"
	defaultMaxSessions = 16
	defaultServerName  = "bigrack"
	defaultLogFormat   = "console"
	defaultLogLevel    = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		MCP: MCP{
			Bind:        defaultMCPBind,
			MaxSessions: defaultMaxSessions,
			ServerName:  defaultServerName,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

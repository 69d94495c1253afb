package config

import (
	"strconv"
	"strings"
)

// AgentConfig holds configuration for the agent process: the CDP bridge, the
// navigation watcher, the Huma control API, and the optional recorder.
type AgentConfig struct {
	CDPAddress string
	CDPPort    int

	BindAddr         string
	PortCandidates   []string
	PortAutoFallback bool

	TabURLFilter    string
	DestinationHost string
	EvalTimeoutMS   int

	NavPollIntervalMS   int
	TablePollIntervalMS int
	TableMaxAttempts    int
	WatchOnStart        bool

	LogLevel string
	LogFile  string

	RecorderEnabled bool
	DataDir         string
	MaxFileSizeMB   int
	BufferSize      int
}

// LoadAgent reads agent configuration from environment variables.
func LoadAgent() (*AgentConfig, error) {
	loadDotEnv()

	cfg := &AgentConfig{
		CDPAddress: getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:    getEnvIntOrDefault("CHROMIUM_CDP_PORT", 9222),

		BindAddr:         getEnvOrDefault("AGENT_BIND_ADDR", "127.0.0.1:8288"),
		PortCandidates:   getEnvListOrDefault("AGENT_PORT_CANDIDATES", []string{"127.0.0.1:8289", "127.0.0.1:8290"}),
		PortAutoFallback: getEnvBoolOrDefault("AGENT_PORT_AUTO_FALLBACK", true),

		TabURLFilter:    getEnvOrDefault("AGENT_TAB_URL_FILTER", "console.aws.amazon.com"),
		DestinationHost: getEnvOrDefault("AGENT_DESTINATION_HOST", "console.aws.amazon.com"),
		EvalTimeoutMS:   getEnvIntOrDefault("AGENT_EVAL_TIMEOUT_MS", 5000),

		NavPollIntervalMS:   getEnvIntOrDefault("AGENT_NAV_POLL_INTERVAL_MS", 1000),
		TablePollIntervalMS: getEnvIntOrDefault("AGENT_TABLE_POLL_INTERVAL_MS", 500),
		TableMaxAttempts:    getEnvIntOrDefault("AGENT_TABLE_MAX_ATTEMPTS", 20),
		WatchOnStart:        getEnvBoolOrDefault("AGENT_WATCH_ON_START", true),

		LogLevel: strings.ToLower(getEnvOrDefault("AGENT_LOG_LEVEL", "info")),
		LogFile:  getEnvOrDefault("AGENT_LOG_FILE", "logs/ecs_exec_agent.log"),

		RecorderEnabled: getEnvBoolOrDefault("AGENT_RECORDER_ENABLED", false),
		DataDir:         getEnvOrDefault("AGENT_DATA_DIR", "./agent_data"),
		MaxFileSizeMB:   getEnvIntOrDefault("AGENT_MAX_FILE_SIZE_MB", 200),
		BufferSize:      getEnvIntOrDefault("AGENT_BUFFER_SIZE", 1000),
	}
	if cfg.EvalTimeoutMS < 1000 {
		cfg.EvalTimeoutMS = 1000
	}
	if cfg.NavPollIntervalMS < 100 {
		cfg.NavPollIntervalMS = 100
	}
	if cfg.TablePollIntervalMS < 100 {
		cfg.TablePollIntervalMS = 100
	}
	if cfg.TableMaxAttempts < 1 {
		cfg.TableMaxAttempts = 1
	}
	return cfg, nil
}

// AgentCDPURL returns the CDP HTTP endpoint for agent use.
func (c *AgentConfig) AgentCDPURL() string {
	return "http://" + c.CDPAddress + ":" + strconv.Itoa(c.CDPPort)
}

package config

// BrowserConfig holds configuration for the browser launcher process.
type BrowserConfig struct {
	CDPAddress          string
	CDPPort             int
	StartURL            string
	ProfileDir          string
	LogFileDir          string
	CrashDumpDir        string
	EnableCrashReporter bool
	WindowSize          string
	LogLevel            string
	LogFile             string
}

// LoadBrowser reads browser launcher configuration from environment variables.
func LoadBrowser() (*BrowserConfig, error) {
	loadDotEnv()

	cfg := &BrowserConfig{
		CDPAddress:          getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:             getEnvIntOrDefault("CHROMIUM_CDP_PORT", 9222),
		StartURL:            getEnvOrDefault("BROWSER_START_URL", "https://console.aws.amazon.com/ecs/v2/clusters"),
		ProfileDir:          getEnvOrDefault("BROWSER_PROFILE_DIR", "./browser_profile"),
		LogFileDir:          getEnvOrDefault("BROWSER_LOG_DIR", "./logs"),
		CrashDumpDir:        getEnvOrDefault("BROWSER_CRASH_DUMP_DIR", "./crash_dumps"),
		EnableCrashReporter: getEnvBoolOrDefault("BROWSER_ENABLE_CRASH_REPORTER", false),
		WindowSize:          getEnvOrDefault("BROWSER_WINDOW_SIZE", "1920,1080"),
		LogLevel:            getEnvOrDefault("BROWSER_LOG_LEVEL", "info"),
		LogFile:             getEnvOrDefault("BROWSER_LOG_FILE", "logs/browser.log"),
	}
	return cfg, nil
}

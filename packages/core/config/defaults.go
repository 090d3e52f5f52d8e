package config

import "time"

const (
	// DefaultPort is the HTTP gateway port
	DefaultPort = 3000

	// DefaultPostmanBaseURL is the Postman API root
	DefaultPostmanBaseURL = "https://api.getpostman.com"

	// DefaultRemoteTimeout bounds a single Postman API request
	DefaultRemoteTimeout = 30 * time.Second
)

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:      DefaultPort,
			PublicDir: "public",
			RunBurst:  1,
		},
		Storage: StorageConfig{
			ReportsDir:  "reports",
			HistoryFile: "run-history.json",
			Ledger:      LedgerJSON,
			SQLitePath:  "run-history.db",
		},
		Report: ReportConfig{
			Prefix:       "newman-report",
			Title:        "API Test Dashboard",
			BrowserTitle: "API Test Results",
		},
		Source: SourceConfig{
			Mode: ModeLocal,
			Local: LocalSourceConfig{
				Collection:  "data/collection.json",
				Environment: "data/environment.json",
			},
			Remote: RemoteSourceConfig{
				BaseURL: DefaultPostmanBaseURL,
				Timeout: "30s",
			},
		},
		Engine: EngineConfig{
			Command: "newman",
		},
		Notify: NotifyConfig{
			On: "failure",
		},
	}
}

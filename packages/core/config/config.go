package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source modes
const (
	ModeLocal  = "local"
	ModeRemote = "remote"
)

// Ledger drivers
const (
	LedgerJSON   = "json"
	LedgerSQLite = "sqlite"
)

// Config represents the hitboard configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Report  ReportConfig  `yaml:"report"`
	Source  SourceConfig  `yaml:"source"`
	Engine  EngineConfig  `yaml:"engine"`
	Notify  NotifyConfig  `yaml:"notify"`
	Publish PublishConfig `yaml:"publish"`
}

// ServerConfig configures the HTTP gateway
type ServerConfig struct {
	Port         int    `yaml:"port"`
	PublicDir    string `yaml:"publicDir"`
	RunRateLimit int    `yaml:"runRateLimit"` // runs per minute, 0 disables
	RunBurst     int    `yaml:"runBurst"`
}

// StorageConfig locates the report directory and the run history
type StorageConfig struct {
	ReportsDir  string `yaml:"reportsDir"`
	HistoryFile string `yaml:"historyFile"`
	Ledger      string `yaml:"ledger"` // json or sqlite
	SQLitePath  string `yaml:"sqlitePath"`
}

// ReportConfig controls the rendered HTML report
type ReportConfig struct {
	Prefix        string `yaml:"prefix"`
	Title         string `yaml:"title"`
	BrowserTitle  string `yaml:"browserTitle"`
	DarkTheme     *bool  `yaml:"darkTheme"`
	ShowOnlyFails bool   `yaml:"showOnlyFails"`
}

// SourceConfig selects where the collection and environment come from
type SourceConfig struct {
	Mode   string             `yaml:"mode"`
	Local  LocalSourceConfig  `yaml:"local"`
	Remote RemoteSourceConfig `yaml:"remote"`
}

// LocalSourceConfig points at collection and environment files on disk
type LocalSourceConfig struct {
	Collection  string `yaml:"collection"`
	Environment string `yaml:"environment"`
}

// RemoteSourceConfig identifies a collection and environment in the Postman API
type RemoteSourceConfig struct {
	CollectionUID  string `yaml:"collectionUid"`
	EnvironmentUID string `yaml:"environmentUid"`
	APIKey         string `yaml:"apiKey"`
	BaseURL        string `yaml:"baseUrl"`
	Timeout        string `yaml:"timeout"`
}

// EngineConfig configures the newman subprocess
type EngineConfig struct {
	Command   string   `yaml:"command"`
	Timeout   string   `yaml:"timeout"` // empty or 0 means no limit
	ExtraArgs []string `yaml:"extraArgs"`
}

// NotifyConfig configures post-run notifications
type NotifyConfig struct {
	On           string `yaml:"on"` // always, failure, success, recovery, never
	SlackWebhook string `yaml:"slackWebhook"`
	SlackChannel string `yaml:"slackChannel"`
	TeamsWebhook string `yaml:"teamsWebhook"`
	OpenBrowser  bool   `yaml:"openBrowser"`
	PublicURL    string `yaml:"publicUrl"` // base for absolute report links
}

// PublishConfig configures mirroring of reports to S3-compatible storage
type PublishConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"useSSL"`
	Prefix    string `yaml:"prefix"`
}

// Enabled reports whether report publishing is configured
func (p PublishConfig) Enabled() bool {
	return p.Endpoint != "" && p.Bucket != ""
}

// GetDarkTheme returns the dark theme setting, defaulting to true
func (r ReportConfig) GetDarkTheme() bool {
	if r.DarkTheme == nil {
		return true
	}
	return *r.DarkTheme
}

// RemoteTimeout returns the Postman API request timeout
func (c *Config) RemoteTimeout() time.Duration {
	d, err := parseDuration(c.Source.Remote.Timeout)
	if err != nil || d <= 0 {
		return DefaultRemoteTimeout
	}
	return d
}

// EngineTimeout returns the engine run timeout, zero when unlimited
func (c *Config) EngineTimeout() time.Duration {
	d, _ := parseDuration(c.Engine.Timeout)
	return d
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	"hitboard.yaml",
	"hitboard.yml",
	".hitboard.yaml",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	// Search for config file in current directory
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("cannot read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return config, nil
}

// ApplyEnv overlays environment variables onto the configuration.
// Variables that are unset or empty leave the current value untouched.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	setString(&c.Source.Mode, "HITBOARD_SOURCE")
	setString(&c.Source.Remote.APIKey, "POSTMAN_API_KEY")
	setString(&c.Source.Remote.CollectionUID, "POSTMAN_COLLECTION_UID")
	setString(&c.Source.Remote.EnvironmentUID, "POSTMAN_ENVIRONMENT_UID")
	setString(&c.Storage.ReportsDir, "HITBOARD_REPORTS_DIR")
	setString(&c.Storage.HistoryFile, "HITBOARD_HISTORY_FILE")
	setString(&c.Storage.Ledger, "HITBOARD_LEDGER")
	setString(&c.Engine.Command, "HITBOARD_NEWMAN")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks the configuration for values that cannot work
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.RunRateLimit < 0 {
		problems = append(problems, "server.runRateLimit must not be negative")
	}
	if c.Storage.ReportsDir == "" {
		problems = append(problems, "storage.reportsDir is required")
	}

	switch strings.ToLower(c.Storage.Ledger) {
	case LedgerJSON:
		if c.Storage.HistoryFile == "" {
			problems = append(problems, "storage.historyFile is required for the json ledger")
		}
	case LedgerSQLite:
		if c.Storage.SQLitePath == "" {
			problems = append(problems, "storage.sqlitePath is required for the sqlite ledger")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown storage.ledger %q (use json or sqlite)", c.Storage.Ledger))
	}

	if _, err := c.ResolveSource(); err != nil {
		problems = append(problems, err.Error())
	}

	if _, err := parseDuration(c.Source.Remote.Timeout); err != nil {
		problems = append(problems, fmt.Sprintf("invalid source.remote.timeout: %v", err))
	}
	if _, err := parseDuration(c.Engine.Timeout); err != nil {
		problems = append(problems, fmt.Sprintf("invalid engine.timeout: %v", err))
	}

	switch strings.ToLower(strings.TrimSpace(c.Notify.On)) {
	case "", "always", "failure", "success", "recovery", "never":
	default:
		problems = append(problems, fmt.Sprintf("unknown notify.on %q", c.Notify.On))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

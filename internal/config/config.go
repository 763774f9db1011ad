// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config provides configuration management for the switchAIChat gateway.
// It handles loading and parsing YAML configuration files, applies defaults and
// environment-provided credentials, and sanitizes values before use.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/traylinx/switchAIChat/internal/constant"
	"gopkg.in/yaml.v3"
)

// Catalog store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// DefaultSyncSchedule runs the catalog synchronizer every six hours.
const DefaultSyncSchedule = "0 */6 * * *"

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// Host is the network host/interface on which the API server will bind.
	// Default is empty ("") to bind all interfaces (IPv4 + IPv6).
	Host string `yaml:"host" json:"-"`
	// Port is the network port on which the API server will listen.
	Port int `yaml:"port" json:"-"`

	// Debug enables or disables debug-level logging and other debug features.
	Debug bool `yaml:"debug" json:"debug"`

	// LoggingToFile controls whether application logs are written to rotating files or stdout.
	LoggingToFile bool `yaml:"logging-to-file" json:"logging-to-file"`

	// LogsMaxTotalSizeMB limits the total size (in MB) of log files under the logs directory.
	// When exceeded, the oldest log files are deleted until within the limit. Set to 0 to disable.
	LogsMaxTotalSizeMB int `yaml:"logs-max-total-size-mb" json:"logs-max-total-size-mb"`

	// SystemPrompt is the global system prompt, used when neither the persona nor
	// the folder of a conversation provides one.
	SystemPrompt string `yaml:"system-prompt" json:"system-prompt"`

	// PrimaryProvider is preferred when the active model is selected by default.
	PrimaryProvider string `yaml:"primary-provider" json:"primary-provider"`

	// Providers holds the credentials and endpoints of each backend.
	Providers ProvidersConfig `yaml:"providers" json:"providers"`

	// Catalog configures the model catalog store and its synchronizer.
	Catalog CatalogConfig `yaml:"catalog" json:"catalog"`

	// Search configures the web search fallback.
	Search SearchConfig `yaml:"search" json:"search"`

	// Stream configures the streaming channel.
	Stream StreamConfig `yaml:"stream" json:"stream"`

	// Attachments configures where message attachments are read from.
	Attachments AttachmentsConfig `yaml:"attachments" json:"attachments"`

	// Tools configures the tool collaborator.
	Tools ToolsConfig `yaml:"tools" json:"tools"`

	// Agent identifies the designated main agent.
	Agent AgentConfig `yaml:"agent" json:"agent"`
}

// ProvidersConfig groups the per-provider settings.
type ProvidersConfig struct {
	Gemini ProviderConfig `yaml:"gemini" json:"gemini"`
	OpenAI ProviderConfig `yaml:"openai" json:"openai"`
	Claude ProviderConfig `yaml:"claude" json:"claude"`
}

// ProviderConfig describes one backend.
type ProviderConfig struct {
	// APIKey authenticates against the provider. An empty key leaves the adapter unconfigured.
	APIKey string `yaml:"api-key" json:"-"`
	// BaseURL overrides the provider's default endpoint.
	BaseURL string `yaml:"base-url" json:"base-url"`
	// TitleModel is the cheap model used for conversation titles.
	TitleModel string `yaml:"title-model" json:"title-model"`
	// MaxOutputTokens is used when the active model config does not set one.
	MaxOutputTokens int `yaml:"max-output-tokens" json:"max-output-tokens"`
}

// CatalogConfig configures catalog storage and synchronization.
type CatalogConfig struct {
	// Driver is one of memory, sqlite3 or postgres.
	Driver string `yaml:"driver" json:"driver"`
	// DSN is the sqlite file path or the postgres connection string.
	DSN string `yaml:"dsn" json:"-"`
	// SyncSchedule is a 5-field cron expression.
	SyncSchedule string `yaml:"sync-schedule" json:"sync-schedule"`
	// SyncOnStart runs one synchronization at startup.
	SyncOnStart bool `yaml:"sync-on-start" json:"sync-on-start"`
	// GracePeriodHours is how long a missing model stays available.
	GracePeriodHours int `yaml:"grace-period-hours" json:"grace-period-hours"`
}

// SearchConfig configures the web search fallback.
type SearchConfig struct {
	// SerperAPIKey enables the Serper backend; DuckDuckGo is used without it.
	SerperAPIKey   string `yaml:"serper-api-key" json:"-"`
	MaxResults     int    `yaml:"max-results" json:"max-results"`
	TimeoutSeconds int    `yaml:"timeout-seconds" json:"timeout-seconds"`
}

// StreamConfig configures the streaming channel.
type StreamConfig struct {
	TimeoutSeconds int `yaml:"timeout-seconds" json:"timeout-seconds"`
}

// AttachmentsConfig configures attachment sources.
type AttachmentsConfig struct {
	// Dir is the local uploads directory.
	Dir   string      `yaml:"dir" json:"dir"`
	Minio MinioConfig `yaml:"minio" json:"minio"`
}

// MinioConfig configures an S3-compatible attachment bucket.
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	AccessKey string `yaml:"access-key" json:"-"`
	SecretKey string `yaml:"secret-key" json:"-"`
	Bucket    string `yaml:"bucket" json:"bucket"`
	// Region skips bucket location discovery when set.
	Region string `yaml:"region" json:"region"`
	UseSSL bool   `yaml:"use-ssl" json:"use-ssl"`
}

// Enabled reports whether enough settings are present to use the bucket.
func (m MinioConfig) Enabled() bool {
	return m.Endpoint != "" && m.Bucket != ""
}

// ToolsConfig configures built-in tools.
type ToolsConfig struct {
	// Timezone is the IANA zone used by the current date/time tool.
	Timezone string `yaml:"timezone" json:"timezone"`
}

// AgentConfig identifies the main agent.
type AgentConfig struct {
	// MainConversationID is the conversation owned by the main agent. Calendar
	// tools are scoped to it only when invoked from that conversation.
	MainConversationID string `yaml:"main-conversation-id" json:"main-conversation-id"`
}

// LoadConfig reads a YAML configuration file from the given path,
// unmarshals it into a Config struct, applies environment variable overrides,
// and returns it.
func LoadConfig(configFile string) (*Config, error) {
	return LoadConfigOptional(configFile, false)
}

// LoadConfigOptional reads YAML from configFile.
// If optional is true and the file is missing, it returns a default Config.
func LoadConfigOptional(configFile string, optional bool) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		if optional && (os.IsNotExist(err) || errors.Is(err, syscall.EISDIR)) {
			data = nil
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := Default()
	if len(data) > 0 {
		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.ApplyEnv()
	cfg.Sanitize()
	return cfg, nil
}

// Default returns a Config populated with defaults. LoadConfig starts from it so
// that absent keys keep their defaults.
func Default() *Config {
	return &Config{
		Host:            "",
		Port:            8080,
		PrimaryProvider: constant.Gemini,
		Providers: ProvidersConfig{
			Gemini: ProviderConfig{TitleModel: "gemini-2.0-flash-lite"},
			OpenAI: ProviderConfig{TitleModel: "gpt-4o-mini"},
			Claude: ProviderConfig{TitleModel: "claude-3-5-haiku-latest", MaxOutputTokens: 4096},
		},
		Catalog: CatalogConfig{
			Driver:           DriverMemory,
			SyncSchedule:     DefaultSyncSchedule,
			SyncOnStart:      true,
			GracePeriodHours: int(constant.CatalogGracePeriod / time.Hour),
		},
		Search: SearchConfig{MaxResults: 5, TimeoutSeconds: 10},
		Stream: StreamConfig{TimeoutSeconds: int(constant.StreamTimeout / time.Second)},
		Attachments: AttachmentsConfig{
			Dir: "uploads",
		},
		Tools: ToolsConfig{Timezone: "America/Sao_Paulo"},
	}
}

// ApplyEnv fills credentials missing from the YAML file from the environment.
func (cfg *Config) ApplyEnv() {
	fill := func(dst *string, keys ...string) {
		if strings.TrimSpace(*dst) != "" {
			return
		}
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	fill(&cfg.Providers.Gemini.APIKey, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	fill(&cfg.Providers.OpenAI.APIKey, "OPENAI_API_KEY")
	fill(&cfg.Providers.Claude.APIKey, "ANTHROPIC_API_KEY", "CLAUDE_API_KEY")
	fill(&cfg.Search.SerperAPIKey, "SERPER_API_KEY")
	fill(&cfg.Attachments.Minio.AccessKey, "MINIO_ACCESS_KEY")
	fill(&cfg.Attachments.Minio.SecretKey, "MINIO_SECRET_KEY")
	fill(&cfg.Catalog.DSN, "CATALOG_DSN", "DATABASE_URL")
}

// Sanitize trims values and restores defaults for invalid ones.
func (cfg *Config) Sanitize() {
	def := Default()

	if cfg.Port <= 0 || cfg.Port > 65535 {
		cfg.Port = def.Port
	}
	if cfg.LogsMaxTotalSizeMB < 0 {
		cfg.LogsMaxTotalSizeMB = 0
	}

	cfg.PrimaryProvider = strings.ToLower(strings.TrimSpace(cfg.PrimaryProvider))
	if cfg.PrimaryProvider == "" {
		cfg.PrimaryProvider = def.PrimaryProvider
	}

	cfg.SanitizeProviders()
	cfg.SanitizeCatalog()

	if cfg.Search.MaxResults <= 0 {
		cfg.Search.MaxResults = def.Search.MaxResults
	}
	if cfg.Search.TimeoutSeconds <= 0 {
		cfg.Search.TimeoutSeconds = def.Search.TimeoutSeconds
	}
	if cfg.Stream.TimeoutSeconds <= 0 {
		cfg.Stream.TimeoutSeconds = def.Stream.TimeoutSeconds
	}
	if strings.TrimSpace(cfg.Attachments.Dir) == "" {
		cfg.Attachments.Dir = def.Attachments.Dir
	}
	if _, err := time.LoadLocation(strings.TrimSpace(cfg.Tools.Timezone)); err != nil || strings.TrimSpace(cfg.Tools.Timezone) == "" {
		cfg.Tools.Timezone = def.Tools.Timezone
	}
	cfg.Agent.MainConversationID = strings.TrimSpace(cfg.Agent.MainConversationID)
}

// SanitizeProviders trims credentials and endpoints and restores default title models.
func (cfg *Config) SanitizeProviders() {
	def := Default().Providers
	sanitize := func(p *ProviderConfig, d ProviderConfig) {
		p.APIKey = strings.TrimSpace(p.APIKey)
		p.BaseURL = strings.TrimRight(strings.TrimSpace(p.BaseURL), "/")
		p.TitleModel = strings.TrimSpace(p.TitleModel)
		if p.TitleModel == "" {
			p.TitleModel = d.TitleModel
		}
		if p.MaxOutputTokens < 0 {
			p.MaxOutputTokens = 0
		}
		if p.MaxOutputTokens == 0 {
			p.MaxOutputTokens = d.MaxOutputTokens
		}
	}
	sanitize(&cfg.Providers.Gemini, def.Gemini)
	sanitize(&cfg.Providers.OpenAI, def.OpenAI)
	sanitize(&cfg.Providers.Claude, def.Claude)
}

// SanitizeCatalog normalizes the store driver and sync settings.
func (cfg *Config) SanitizeCatalog() {
	def := Default().Catalog
	driver := strings.ToLower(strings.TrimSpace(cfg.Catalog.Driver))
	switch driver {
	case DriverMemory, DriverSQLite, DriverPostgres:
	case "sqlite":
		driver = DriverSQLite
	case "pgx", "postgresql":
		driver = DriverPostgres
	default:
		driver = def.Driver
	}
	cfg.Catalog.Driver = driver
	cfg.Catalog.DSN = strings.TrimSpace(cfg.Catalog.DSN)
	if driver != DriverMemory && cfg.Catalog.DSN == "" {
		cfg.Catalog.Driver = DriverMemory
	}
	if len(strings.Fields(cfg.Catalog.SyncSchedule)) != 5 {
		cfg.Catalog.SyncSchedule = def.SyncSchedule
	}
	if cfg.Catalog.GracePeriodHours <= 0 {
		cfg.Catalog.GracePeriodHours = def.GracePeriodHours
	}
}

// GracePeriod returns the catalog grace period as a duration.
func (c CatalogConfig) GracePeriod() time.Duration {
	return time.Duration(c.GracePeriodHours) * time.Hour
}

// Timeout returns the stream cap as a duration.
func (s StreamConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Timeout returns the search request timeout as a duration.
func (s SearchConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Location returns the tool timezone, falling back to UTC.
func (t ToolsConfig) Location() *time.Location {
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

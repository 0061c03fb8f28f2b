// Package config loads and validates shiplog configuration.
//
// Configuration comes from an optional YAML file plus environment
// variable overrides. All required fields are validated eagerly at load
// time; missing keys are reported as one aggregated error rather than
// discovered one at a time mid-run.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable overrides.
const (
	envChatToken       = "SHIPLOG_CHAT_TOKEN"
	envChatBaseURL     = "SHIPLOG_CHAT_BASE_URL"
	envChannelID       = "SHIPLOG_CHANNEL_ID"
	envAnnounceChannel = "SHIPLOG_ANNOUNCE_CHANNEL_ID"
	envAnthropicKey    = "ANTHROPIC_API_KEY"
	envModel           = "SHIPLOG_MODEL"
	envDBPath          = "SHIPLOG_DB_PATH"
	envWebhookToken    = "SHIPLOG_WEBHOOK_TOKEN"
)

const (
	// DefaultModel is the extraction model used when none is configured.
	DefaultModel = "claude-sonnet-4-5-20250929"

	defaultChatBaseURL = "https://slack.com/api"
	defaultDBPath      = ".shiplog/shiplog.db"
	defaultFetchWindow = 24 * time.Hour
	defaultListenAddr  = ":8090"
	defaultMaxTokens   = 4096
)

// Config holds all settings, constructed once at process start and
// passed explicitly to every component.
type Config struct {
	Chat      ChatConfig      `yaml:"chat"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Database  DatabaseConfig  `yaml:"database"`
	Notify    NotifyConfig    `yaml:"notify"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Denylist  DenylistConfig  `yaml:"denylist"`
}

// ChatConfig describes the source chat platform connection.
type ChatConfig struct {
	BaseURL   string        `yaml:"baseUrl"`
	Token     string        `yaml:"token"`
	ChannelID string        `yaml:"channelId"`
	Window    time.Duration `yaml:"window"`
}

// ExtractorConfig describes the LLM endpoint used for classification
// and extraction.
type ExtractorConfig struct {
	APIKey    string `yaml:"apiKey"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"maxTokens"`
}

// DatabaseConfig describes the SQLite database location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// NotifyConfig describes the announcement channel. Must differ from the
// ingestion channel to avoid feedback loops.
type NotifyConfig struct {
	ChannelID string `yaml:"channelId"`
	MaxItems  int    `yaml:"maxItems"`
}

// WebhookConfig describes the event-push ingestion endpoint.
type WebhookConfig struct {
	ListenAddr string `yaml:"listenAddr"`
	Token      string `yaml:"token"`
}

// DenylistConfig filters out messages from automated senders that would
// otherwise create feedback loops (e.g. bots re-posting release notes).
type DenylistConfig struct {
	UserIDs        []string `yaml:"userIds"`
	BotIDs         []string `yaml:"botIds"`
	NameSubstrings []string `yaml:"nameSubstrings"`
}

// Load reads the YAML file at path (optional; empty path or a missing
// file yields defaults), applies environment overrides, and validates.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(envChatToken); v != "" {
		c.Chat.Token = v
	}
	if v := os.Getenv(envChatBaseURL); v != "" {
		c.Chat.BaseURL = v
	}
	if v := os.Getenv(envChannelID); v != "" {
		c.Chat.ChannelID = v
	}
	if v := os.Getenv(envAnnounceChannel); v != "" {
		c.Notify.ChannelID = v
	}
	if v := os.Getenv(envAnthropicKey); v != "" {
		c.Extractor.APIKey = v
	}
	if v := os.Getenv(envModel); v != "" {
		c.Extractor.Model = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(envWebhookToken); v != "" {
		c.Webhook.Token = v
	}
}

func (c *Config) applyDefaults() {
	if c.Chat.BaseURL == "" {
		c.Chat.BaseURL = defaultChatBaseURL
	}
	if c.Chat.Window <= 0 {
		c.Chat.Window = defaultFetchWindow
	}
	if c.Extractor.Model == "" {
		c.Extractor.Model = DefaultModel
	}
	if c.Extractor.MaxTokens <= 0 {
		c.Extractor.MaxTokens = defaultMaxTokens
	}
	if c.Database.Path == "" {
		c.Database.Path = defaultDBPath
	}
	if c.Notify.MaxItems <= 0 {
		c.Notify.MaxItems = 10
	}
	if c.Webhook.ListenAddr == "" {
		c.Webhook.ListenAddr = defaultListenAddr
	}
}

// Validate checks every required field and returns one aggregated error
// listing all missing keys.
func (c *Config) Validate() error {
	var missing []string
	if c.Chat.Token == "" {
		missing = append(missing, "chat.token ("+envChatToken+")")
	}
	if c.Chat.ChannelID == "" {
		missing = append(missing, "chat.channelId ("+envChannelID+")")
	}
	if c.Extractor.APIKey == "" {
		missing = append(missing, "extractor.apiKey ("+envAnthropicKey+")")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	// Announcing into the ingestion channel would feed extracted releases
	// back into the pipeline.
	if c.Notify.ChannelID != "" && c.Notify.ChannelID == c.Chat.ChannelID {
		return fmt.Errorf("notify.channelId must differ from chat.channelId (both %q)", c.Notify.ChannelID)
	}
	return nil
}

// DeniedSender reports whether a message sender matches the denylist by
// user ID, bot/app ID, or case-insensitive display-name substring.
func (c *Config) DeniedSender(userID, botID, username string) bool {
	for _, id := range c.Denylist.UserIDs {
		if id != "" && id == userID {
			return true
		}
	}
	for _, id := range c.Denylist.BotIDs {
		if id != "" && id == botID {
			return true
		}
	}
	if username != "" {
		lower := strings.ToLower(username)
		for _, sub := range c.Denylist.NameSubstrings {
			if sub != "" && strings.Contains(lower, strings.ToLower(sub)) {
				return true
			}
		}
	}
	return false
}

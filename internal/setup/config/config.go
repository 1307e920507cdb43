package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
)

// Current version of each config file.
const (
	CurrentCommonVersion = 1
	CurrentBotVersion    = 1
)

// Config represents the entire application configuration.
type Config struct {
	Common CommonConfig
	Bot    BotConfig
}

// CommonConfig contains configuration independent of the Discord surface.
type CommonConfig struct {
	// Version of the common config.
	Version    int        `koanf:"version"`
	Debug      Debug      `koanf:"debug"`
	Redis      Redis      `koanf:"redis"`
	Classifier Classifier `koanf:"classifier"`
}

// BotConfig contains Discord bot specific configuration.
type BotConfig struct {
	// Version of the bot config.
	Version  int      `koanf:"version"`
	Discord  Discord  `koanf:"discord"`
	Channels Channels `koanf:"channels"`
	Report   Report   `koanf:"report"`
	Automod  Automod  `koanf:"automod"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
}

// Redis contains Redis connection configuration for the score cache.
type Redis struct {
	// Enable the classifier score cache.
	Enabled bool `koanf:"enabled"`
	// Redis hostname.
	Host string `koanf:"host"`
	// Redis port.
	Port int `koanf:"port"`
	// Redis username.
	Username string `koanf:"username"`
	// Redis password.
	Password string `koanf:"password"`
}

// Classifier contains the scoring service configuration.
type Classifier struct {
	// Base URL of the scoring service.
	URL string `koanf:"url"`
	// Request timeout in milliseconds.
	RequestTimeout int `koanf:"request_timeout"`
	// Maximum retry attempts before reporting the service unavailable.
	MaxRetries uint64 `koanf:"max_retries"`
	// Cached score lifetime in seconds.
	CacheTTL int `koanf:"cache_ttl"`
}

// Discord contains Discord bot configuration.
type Discord struct {
	// Discord bot token for authentication.
	Token string `koanf:"token"`
}

// Channels identifies the channels the bot operates on.
type Channels struct {
	// Guild channel scanned by the automatic classifier.
	MonitoredChannelID uint64 `koanf:"monitored_channel_id"`
	// Channel where reports and triage prompts are posted for moderators.
	ModChannelID uint64 `koanf:"mod_channel_id"`
}

// Report contains manual reporting flow configuration.
type Report struct {
	// Path to the questionnaire decision tree document.
	TreePath string `koanf:"tree_path"`
}

// Automod contains automatic escalation thresholds.
type Automod struct {
	// Scores strictly above this post an advisory warning.
	WarnThreshold float64 `koanf:"warn_threshold"`
	// Scores at or above this escalate into an automatic report.
	FlagThreshold float64 `koanf:"flag_threshold"`
	// Support resource link included in the strong advisory.
	ResourceURL string `koanf:"resource_url"`
}

// LoadConfig loads the configuration from the first search path holding both
// config files. Returns the config along with the used config directory.
func LoadConfig() (*Config, string, error) {
	k := koanf.New(".")

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configPaths := []string{
		".warden",
		homeDir + "/.warden/config",
		"/etc/warden/config",
		"/app/config",
		"config",
		".",
	}

	var usedConfigPath string

	configFiles := []string{"common", "bot"}
	for _, configName := range configFiles {
		configLoaded := false

		for _, path := range configPaths {
			configPath := fmt.Sprintf("%s/%s.toml", path, configName)
			if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
				configLoaded = true

				if usedConfigPath == "" {
					usedConfigPath = path
				}

				break
			}
		}

		if !configLoaded {
			return nil, "", fmt.Errorf("%w: %s.toml", ErrConfigFileNotFound, configName)
		}
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := checkConfigVersion("common", config.Common.Version, CurrentCommonVersion); err != nil {
		return nil, "", err
	}

	if err := checkConfigVersion("bot", config.Bot.Version, CurrentBotVersion); err != nil {
		return nil, "", err
	}

	return &config, usedConfigPath, nil
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(name string, current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: %s.toml", ErrConfigVersionMissing, name)
	}

	if current != expected {
		return fmt.Errorf("%w: %s.toml (got: %d, expected: %d)",
			ErrConfigVersionMismatch, name, current, expected)
	}

	return nil
}

// Package config provides YAML-based configuration loading for gamelink.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"gamelink/pkg/protocol"
)

// ErrConfiguration marks a missing or malformed property. It is fatal at
// startup and never retried.
var ErrConfiguration = errors.New("configuration error")

// KeyChatServer is the required property holding the chat lobby URL.
const KeyChatServer = "settings.online.chat"

// Config is the root application configuration.
type Config struct {
	// AppName optional logical name of the peer
	AppName string `mapstructure:"app_name"`

	// LicenseKey is sent in the chat hello.
	LicenseKey string `mapstructure:"license_key"`

	Log      LogConfig      `mapstructure:"log"`
	Settings SettingsConfig `mapstructure:"settings"`
	Online   OnlineConfig   `mapstructure:"online"`
	Net      NetConfig      `mapstructure:"net"`
	Profile  ProfileConfig  `mapstructure:"profile"`
	Lobby    LobbyConfig    `mapstructure:"lobby"`

	v *viper.Viper
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: list of outputs: stdout, stderr, or file paths
	Outputs []string `mapstructure:"outputs"`

	// Rotation controls file rotation when writing to files
	Rotation RotationConfig `mapstructure:"rotation"`
	// Development toggles development-friendly logging options
	Development bool `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Default returns a Config populated with defaults. The chat server has no
// default; it must be configured.
func Default() *Config {
	return &Config{
		AppName: "gamelink-node",
		Log: LogConfig{
			Level:       "info",
			Format:      "console",
			Outputs:     []string{"stdout"},
			Development: true,
			Rotation: RotationConfig{
				Enable:     false,
				Filename:   "logs/gamelink.log",
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
		Online:  OnlineConfig{Format: "cbor"},
		Net:     NetConfig{Listen: ":0", ResolveTimeoutMS: 2000},
		Profile: ProfileConfig{Name: "player"},
		Lobby:   LobbyConfig{Listen: ":11886", IdleTimeoutMS: 300000},
	}
}

// Load reads configuration from path (if non-empty), otherwise it searches
// common locations; environment variables override both.
// Environment variables use the prefix GAMELINK and `.`/`-` are replaced with `_`.
// Example: GAMELINK_SETTINGS_ONLINE_CHAT=lobby.example.com:11886
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("GAMELINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	seedDefaults(v, cfg)

	if path == "" {
		if envPath := os.Getenv("GAMELINK_CONFIG"); envPath != "" {
			path = envPath
		}
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("gamelink")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".gamelink"))
		}
	}

	// Read config file if present; if not found, continue with defaults/env
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}
	return fromViper(v, cfg)
}

// FromViper decodes an already populated viper instance. Defaults are seeded
// for keys v does not set.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := Default()
	seedDefaults(v, cfg)
	return fromViper(v, cfg)
}

func fromViper(v *viper.Viper, cfg *Config) (*Config, error) {
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	cfg.v = v
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// seed defaults for viper so env-only configs work
func seedDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("app_name", cfg.AppName)
	v.SetDefault("license_key", cfg.LicenseKey)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
	// empty default so AutomaticEnv can see the key during Unmarshal
	v.SetDefault(KeyChatServer, "")
	v.SetDefault("online.format", cfg.Online.Format)
	v.SetDefault("net.listen", cfg.Net.Listen)
	v.SetDefault("net.resolve_timeout_ms", cfg.Net.ResolveTimeoutMS)
	v.SetDefault("profile.name", cfg.Profile.Name)
	v.SetDefault("profile.password", cfg.Profile.Password)
	v.SetDefault("lobby.listen", cfg.Lobby.Listen)
	v.SetDefault("lobby.idle_timeout_ms", cfg.Lobby.IdleTimeoutMS)
	for key, text := range defaultMessages {
		v.SetDefault(messagePrefix+key, text)
	}
}

func (c *Config) validate() error {
	lvl := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch lvl {
	case "debug", "info", "warn", "warning", "error":
		// ok
	default:
		return errors.Wrapf(ErrConfiguration, "invalid log.level: %q", c.Log.Level)
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stdout"}
	}
	if _, err := protocol.ParseFormat(c.Online.Format); err != nil {
		return errors.Wrapf(ErrConfiguration, "online.format: %v", err)
	}
	if c.Net.ResolveTimeoutMS <= 0 {
		c.Net.ResolveTimeoutMS = 2000
	}
	if strings.TrimSpace(c.Net.Listen) == "" {
		c.Net.Listen = ":0"
	}
	return nil
}

// RequiredString returns the non-empty string property key.
func (c *Config) RequiredString(key string) (string, error) {
	var s string
	if c.v != nil {
		s = strings.TrimSpace(c.v.GetString(key))
	}
	if s == "" {
		return "", errors.Wrapf(ErrConfiguration, "required property %q is not set", key)
	}
	return s, nil
}

// BodyFormat is the parsed online.format.
func (c *Config) BodyFormat() protocol.Format {
	f, _ := protocol.ParseFormat(c.Online.Format)
	return f
}

// LobbyIdleTimeout is how long the lobby keeps a silent player.
func (c *Config) LobbyIdleTimeout() time.Duration {
	return time.Duration(c.Lobby.IdleTimeoutMS) * time.Millisecond
}

// ResolveTimeout bounds one chat server host lookup.
func (c *Config) ResolveTimeout() time.Duration {
	return time.Duration(c.Net.ResolveTimeoutMS) * time.Millisecond
}

func (c *Config) String() string {
	return fmt.Sprintf("app=%s chat=%q format=%s listen=%s", c.AppName, c.Settings.Online.Chat, c.Online.Format, c.Net.Listen)
}

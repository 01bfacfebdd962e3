package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	UI       UIConfig       `mapstructure:"ui"`
	Forms    FormsConfig    `mapstructure:"forms"`
	Cache    CacheConfig    `mapstructure:"cache"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig controls where the terminal front end writes its log.
type LogConfig struct {
	Path  string `mapstructure:"path"`
	Level string `mapstructure:"level"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	ConfirmUnsavedClose bool   `mapstructure:"confirm_unsaved_close"`
	StartCollapsed      bool   `mapstructure:"start_collapsed"`
	CurrencySymbol      string `mapstructure:"currency_symbol"`
}

// FormsConfig points at an optional catalog file overriding the embedded one.
type FormsConfig struct {
	Catalog string `mapstructure:"catalog"`
}

// CacheConfig sizes the dropdown search cache.
type CacheConfig struct {
	SearchEntries int `mapstructure:"search_entries"`
}

// Path returns the config file location. PLM_CONFIG overrides the default.
func Path() string {
	if p := os.Getenv("PLM_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "plm", "config.toml")
}

func newViper() *viper.Viper {
	v := viper.New()

	home := os.Getenv("HOME")
	v.SetDefault("database.path", filepath.Join(home, ".local", "share", "plm", "plm.db"))
	v.SetDefault("log.path", filepath.Join(home, ".local", "state", "plm", "plm.log"))
	v.SetDefault("log.level", "info")
	v.SetDefault("ui.confirm_unsaved_close", true)
	v.SetDefault("ui.start_collapsed", false)
	v.SetDefault("ui.currency_symbol", "₹")
	v.SetDefault("forms.catalog", "")
	v.SetDefault("cache.search_entries", 256)

	v.SetConfigType("toml")
	v.SetEnvPrefix("PLM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration from file and env. Env var overrides use prefix PLM_.
// A missing config file is not an error.
func Load() (Config, error) {
	v := newViper()
	v.SetConfigFile(Path())
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Save writes cfg to Path, creating the config directory if needed.
func Save(cfg Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("database.path", cfg.Database.Path)
	v.Set("log.path", cfg.Log.Path)
	v.Set("log.level", cfg.Log.Level)
	v.Set("ui.confirm_unsaved_close", cfg.UI.ConfirmUnsavedClose)
	v.Set("ui.start_collapsed", cfg.UI.StartCollapsed)
	v.Set("ui.currency_symbol", cfg.UI.CurrencySymbol)
	v.Set("forms.catalog", cfg.Forms.Catalog)
	v.Set("cache.search_entries", cfg.Cache.SearchEntries)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

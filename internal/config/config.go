package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration. Loaded once at startup and
// treated as immutable afterwards.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Dropi    DropiConfig    `mapstructure:"dropi"`
	Lucidbot LucidbotConfig `mapstructure:"lucidbot"`
	Meta     MetaConfig     `mapstructure:"meta"`
	Sync     SyncConfig     `mapstructure:"sync"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	EncryptionKey string `mapstructure:"encryption_key"` // 32 bytes, hex or raw
}

type DropiConfig struct {
	// BaseURLs maps a country code to the API origin for that country.
	BaseURLs       map[string]string `mapstructure:"base_urls"`
	DefaultCountry string            `mapstructure:"default_country"`
	OrdersPageSize int               `mapstructure:"orders_page_size"`
	WalletPageSize int               `mapstructure:"wallet_page_size"`
}

type LucidbotConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	AdFieldID string `mapstructure:"ad_field_id"`
}

type MetaConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIVersion string `mapstructure:"api_version"`
}

type SyncConfig struct {
	IntervalMinutes    int `mapstructure:"interval_minutes"`
	FullOrdersMax      int `mapstructure:"full_orders_max"`
	IncrementalMax     int `mapstructure:"incremental_max"`
	FullWalletMax      int `mapstructure:"full_wallet_max"`
	IncrementalWallet  int `mapstructure:"incremental_wallet_max"`
	FullWindowDays     int `mapstructure:"full_window_days"`
	IncrementalDays    int `mapstructure:"incremental_window_days"`
	OrderCommitEvery   int `mapstructure:"order_commit_every"`
	WalletCommitEvery  int `mapstructure:"wallet_commit_every"`
	RequestTimeoutSecs int `mapstructure:"request_timeout_seconds"`
}

// Load reads configuration from the given file (optional) and from
// LUCID_* environment variables, applying defaults for anything unset.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("LUCID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("database.path", "lucid_analytics.db")

	v.SetDefault("auth.jwt_secret", "change-me-in-production")
	v.SetDefault("auth.encryption_key", "dev-only-change-in-production")

	v.SetDefault("dropi.base_urls", map[string]string{
		"gt": "https://api.dropi.gt",
		"co": "https://api.dropi.co",
		"mx": "https://api.dropi.mx",
		"cl": "https://api.dropi.cl",
		"pe": "https://api.dropi.pe",
		"ec": "https://api.dropi.ec",
	})
	v.SetDefault("dropi.default_country", "co")
	v.SetDefault("dropi.orders_page_size", 100)
	v.SetDefault("dropi.wallet_page_size", 500)

	v.SetDefault("lucidbot.base_url", "https://panel.lucidbot.co/api")
	v.SetDefault("lucidbot.ad_field_id", "728462")

	v.SetDefault("meta.base_url", "https://graph.facebook.com")
	v.SetDefault("meta.api_version", "v21.0")

	v.SetDefault("sync.interval_minutes", 120)
	v.SetDefault("sync.full_orders_max", 10000)
	v.SetDefault("sync.incremental_max", 500)
	v.SetDefault("sync.full_wallet_max", 5000)
	v.SetDefault("sync.incremental_wallet_max", 1000)
	v.SetDefault("sync.full_window_days", 730)
	v.SetDefault("sync.incremental_window_days", 60)
	v.SetDefault("sync.order_commit_every", 50)
	v.SetDefault("sync.wallet_commit_every", 100)
	v.SetDefault("sync.request_timeout_seconds", 60)
}

package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/gookit/validate"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

type Config struct {
	Port      string `mapstructure:"port" validate:"required|isNumber"`
	LogLevel  string `mapstructure:"log_level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	LogFormat string `mapstructure:"log_format" validate:"required|in:json,console"`

	StorageDriver string `mapstructure:"storage_driver" validate:"required|in:postgres,mongo,memory"`
	DatabaseURL   string `mapstructure:"database_url"`
	MongoURI      string `mapstructure:"mongodb_uri"`
	MongoDatabase string `mapstructure:"mongodb_database"`
	Timezone      string `mapstructure:"timezone" validate:"required"`

	ClerkSecretKey string `mapstructure:"clerk_secret_key"`
	AdminEmail     string `mapstructure:"admin_email" validate:"email"`
	AdminLoginURL  string `mapstructure:"admin_login_url" validate:"required"`

	YouTubeAPIKey        string        `mapstructure:"youtube_api_key"`
	YouTubeChannelID     string        `mapstructure:"youtube_channel_id"`
	YouTubeMaxPages      int           `mapstructure:"youtube_max_pages" validate:"min:1|max:20"`
	InstagramAccessToken string        `mapstructure:"instagram_access_token"`
	InstagramMaxPages    int           `mapstructure:"instagram_max_pages" validate:"min:1|max:20"`
	VercelToken          string        `mapstructure:"vercel_token"`
	VercelTeamID         string        `mapstructure:"vercel_team_id"`
	SyncHTTPTimeout      time.Duration `mapstructure:"sync_http_timeout"`
	SyncInterval         time.Duration `mapstructure:"sync_interval"`

	FCMServiceAccountJSON string `mapstructure:"fcm_service_account_json"`
	FCMServiceAccountFile string `mapstructure:"fcm_service_account_file"`
	FCMAdminTopic         string `mapstructure:"fcm_admin_topic"`

	CacheSizeMB int           `mapstructure:"cache_size_mb" validate:"min:0"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`

	RateLimitRPS   float64 `mapstructure:"rate_limit_rps" validate:"min:0"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst" validate:"min:1"`
	// TrustedProxies lists the IPs or CIDRs allowed to set X-Forwarded-For.
	TrustedProxies []string `mapstructure:"trusted_proxies"`

	MetricsUser    string   `mapstructure:"metrics_user"`
	MetricsPass    string   `mapstructure:"metrics_pass"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	location *time.Location
	proxies  []netip.Prefix
}

var defaults = map[string]any{
	"port":                "3333",
	"log_level":           "info",
	"log_format":          "json",
	"storage_driver":      DriverPostgres,
	"mongodb_database":    "portfolio",
	"timezone":            "Local",
	"admin_login_url":     "/sign-in",
	"youtube_max_pages":   1,
	"instagram_max_pages": 1,
	"sync_http_timeout":   "15s",
	"sync_interval":       "0s",
	"fcm_admin_topic":     "admin",
	"cache_size_mb":       16,
	"cache_ttl":           "10m",
	"rate_limit_rps":      5.0,
	"rate_limit_burst":    30,
	"allowed_origins":     []string{"*"},
}

// Load reads .env (if present) and the process environment. Every key is
// bound to the upper-cased env var of the same name.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for _, key := range keys() {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func keys() []string {
	return []string{
		"port", "log_level", "log_format",
		"storage_driver", "database_url", "mongodb_uri", "mongodb_database", "timezone",
		"clerk_secret_key", "admin_email", "admin_login_url",
		"youtube_api_key", "youtube_channel_id", "youtube_max_pages",
		"instagram_access_token", "instagram_max_pages",
		"vercel_token", "vercel_team_id", "sync_http_timeout", "sync_interval",
		"fcm_service_account_json", "fcm_service_account_file", "fcm_admin_topic",
		"cache_size_mb", "cache_ttl", "rate_limit_rps", "rate_limit_burst", "trusted_proxies",
		"metrics_user", "metrics_pass", "allowed_origins",
	}
}

func (c *Config) Validate() error {
	v := validate.Struct(c)
	if !v.Validate() {
		return fmt.Errorf("invalid config: %s", v.Errors.One())
	}

	switch c.StorageDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("invalid config: DATABASE_URL is required for the postgres driver")
		}
	case DriverMongo:
		if c.MongoURI == "" {
			return errors.New("invalid config: MONGODB_URI is required for the mongo driver")
		}
	}

	if c.SyncHTTPTimeout <= 0 {
		return errors.New("invalid config: SYNC_HTTP_TIMEOUT must be positive")
	}
	if c.SyncInterval < 0 {
		return errors.New("invalid config: SYNC_INTERVAL must not be negative")
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid config: unknown TIMEZONE %q: %w", c.Timezone, err)
	}
	c.location = loc

	proxies, err := ParsePrefixes(c.TrustedProxies)
	if err != nil {
		return fmt.Errorf("invalid config: TRUSTED_PROXIES: %w", err)
	}
	c.proxies = proxies

	return nil
}

// ParsePrefixes reads IPs and CIDRs. A bare IP becomes a single-host prefix.
func ParsePrefixes(entries []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, err
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, err
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

func (c *Config) TrustedProxyPrefixes() []netip.Prefix {
	return c.proxies
}

func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// AdminEnabled reports whether the admin routes can authenticate anyone.
func (c *Config) AdminEnabled() bool {
	return c.ClerkSecretKey != "" && c.AdminEmail != ""
}

func (c *Config) NotificationsEnabled() bool {
	return c.FCMServiceAccountJSON != "" || c.FCMServiceAccountFile != ""
}

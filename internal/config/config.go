// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Detect   DetectConfig   `mapstructure:"detect"`
	Harvest  HarvestConfig  `mapstructure:"harvest"`
	WorldMap WorldMapConfig `mapstructure:"worldmap"`
	CRS      CRSConfig      `mapstructure:"crs"`
	Site     SiteConfig     `mapstructure:"site"`
	DB       DBConfig       `mapstructure:"db"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DetectConfig bounds the protocol probe battery.
type DetectConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// HarvestConfig governs the harvest pipelines.
type HarvestConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	PageSize       int `mapstructure:"page_size"`
}

// WorldMapConfig points at the WorldMap catalog and its GeoServer.
type WorldMapConfig struct {
	APIURL       string `mapstructure:"api_url"`
	GeoserverURL string `mapstructure:"geoserver_url"`
}

// CRSConfig points at the WKT-to-EPSG resolver.
type CRSConfig struct {
	LookupURL string `mapstructure:"lookup_url"`
}

// SiteConfig holds the public base URL layer detail pages live under.
type SiteConfig struct {
	URL string `mapstructure:"url"`
}

// DBConfig controls access to the catalog database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int    `mapstructure:"max_conns"`
	MinConns int    `mapstructure:"min_conns"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MAPHARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("detect.timeout_seconds", 10)
	v.SetDefault("harvest.timeout_seconds", 30)
	v.SetDefault("harvest.page_size", 10)
	v.SetDefault("crs.lookup_url", "http://prj2epsg.org/search.json")
	v.SetDefault("site.url", "http://localhost:8080")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Detect.TimeoutSeconds <= 0 {
		return fmt.Errorf("detect.timeout_seconds must be > 0")
	}
	if c.Harvest.TimeoutSeconds <= 0 {
		return fmt.Errorf("harvest.timeout_seconds must be > 0")
	}
	if c.Harvest.PageSize <= 0 {
		return fmt.Errorf("harvest.page_size must be > 0")
	}
	return nil
}

// DetectTimeout converts the probe timeout config into a duration.
func (c Config) DetectTimeout() time.Duration {
	return time.Duration(c.Detect.TimeoutSeconds) * time.Second
}

// HarvestTimeout converts the harvest timeout config into a duration.
func (c Config) HarvestTimeout() time.Duration {
	return time.Duration(c.Harvest.TimeoutSeconds) * time.Second
}

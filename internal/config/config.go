// Package config loads application configuration from environment
// variables, an optional config file, and defaults, in that precedence.
package config

import (
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/madebyarthouse/rental-monitor-sub000/internal/database"
	"github.com/madebyarthouse/rental-monitor-sub000/internal/fetcher"
	"github.com/madebyarthouse/rental-monitor-sub000/internal/logger"
)

// Config aggregates all configuration sections.
type Config struct {
	Database database.Config
	Fetcher  fetcher.Config
	Crawler  Crawler
	Logger   logger.Config
}

// Load builds the configuration from Viper and environment variables.
func Load(v *viper.Viper) *Config {
	return &Config{
		Database: loadDatabase(v),
		Fetcher:  loadFetcher(v),
		Crawler:  loadCrawler(v),
		Logger:   loadLogger(v),
	}
}

// getConfigValue retrieves a configuration value from environment or
// Viper, with a default fallback. Environment wins.
func getConfigValue(envKey, viperKey, defaultValue string, v *viper.Viper) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if val := v.GetString(viperKey); val != "" {
		return val
	}
	return defaultValue
}

// getConfigInt is getConfigValue for integer settings.
func getConfigInt(viperKey string, defaultValue int, v *viper.Viper) int {
	if v.IsSet(viperKey) {
		return v.GetInt(viperKey)
	}
	return defaultValue
}

// getConfigDuration is getConfigValue for duration settings.
func getConfigDuration(viperKey string, defaultValue time.Duration, v *viper.Viper) time.Duration {
	if v.IsSet(viperKey) {
		return v.GetDuration(viperKey)
	}
	return defaultValue
}

// Default database settings.
const (
	defaultDBHost    = "localhost"
	defaultDBPort    = "5432"
	defaultDBUser    = "postgres"
	defaultDBName    = "rental_monitor"
	defaultDBSSLMode = "disable"
)

// loadDatabase loads database configuration. Environment variables take
// precedence over the config file.
func loadDatabase(v *viper.Viper) database.Config {
	return database.Config{
		Host:     getConfigValue("DB_HOST", "database.host", defaultDBHost, v),
		Port:     getConfigValue("DB_PORT", "database.port", defaultDBPort, v),
		User:     getConfigValue("DB_USER", "database.user", defaultDBUser, v),
		Password: getConfigValue("DB_PASSWORD", "database.password", "", v),
		DBName:   getConfigValue("DB_NAME", "database.dbname", defaultDBName, v),
		SSLMode:  getConfigValue("DB_SSLMODE", "database.sslmode", defaultDBSSLMode, v),
	}
}

// loadFetcher loads fetcher configuration.
func loadFetcher(v *viper.Viper) fetcher.Config {
	return fetcher.Config{
		MaxInFlight:    getConfigInt("fetcher.max_in_flight", 0, v),
		RequestTimeout: getConfigDuration("fetcher.request_timeout", 0, v),
		UserAgent:      getConfigValue("FETCHER_USER_AGENT", "fetcher.user_agent", "", v),
	}.WithDefaults()
}

// loadLogger loads logger configuration.
func loadLogger(v *viper.Viper) logger.Config {
	return logger.Config{
		Level:       getConfigValue("LOG_LEVEL", "logger.level", "info", v),
		Encoding:    getConfigValue("LOG_FORMAT", "logger.encoding", "console", v),
		Development: v.GetBool("logger.development"),
	}
}

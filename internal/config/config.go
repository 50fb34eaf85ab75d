package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Quote    Quote    `mapstructure:"quote"`
	Session  Session  `mapstructure:"session"`
	Redis    Redis    `mapstructure:"redis"`
	Logger   Logger   `mapstructure:"logger"`
	Trading  Trading  `mapstructure:"trading"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Quote holds the configuration for the external quote provider.
type Quote struct {
	BaseURL        string  `mapstructure:"base_url"`
	ApiKey         string  `mapstructure:"api_key"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Session holds the configuration for the session store.
type Session struct {
	Store      string `mapstructure:"store"` // "memory" or "redis"
	TTLMinutes int    `mapstructure:"ttl_minutes"`
	CookieName string `mapstructure:"cookie_name"`
}

// Redis holds the configuration for the optional redis session backend.
type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Trading holds the configuration for the trading service.
type Trading struct {
	StartingCash float64 `mapstructure:"starting_cash"`
}

// LoadConfig reads configuration from file or environment variables.
// It fails when the quote provider API key is missing, since every
// trading operation depends on price lookups.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.dsn", "finance.db")
	viper.SetDefault("quote.base_url", "https://cloud.iexapis.com")
	// Registered so the QUOTE_API_KEY env override is visible to Unmarshal
	// even when the key is absent from the config file.
	viper.SetDefault("quote.api_key", "")
	viper.SetDefault("quote.rate_limit", 10) // requests per second
	viper.SetDefault("quote.rate_limit_burst", 5)
	viper.SetDefault("session.store", "memory")
	viper.SetDefault("session.ttl_minutes", 30)
	viper.SetDefault("session.cookie_name", "session_id")
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")
	viper.SetDefault("trading.starting_cash", 10000)

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if config.Quote.ApiKey == "" {
		err = fmt.Errorf("quote.api_key is not set (config file or QUOTE_API_KEY env)")
	}
	return
}

package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type EmailConfig struct {
	From     string `mapstructure:"from"`
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type FeedConfig struct {
	Interval       time.Duration `mapstructure:"interval"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
}

type CacheConfig struct {
	ReferenceTTL time.Duration `mapstructure:"reference_ttl"`
}

type Config struct {
	DatabaseURL   string      `mapstructure:"database_url"`
	ServerPort    string      `mapstructure:"server_port"`
	JWTSecret     string      `mapstructure:"jwt_secret"`
	SessionSecret string      `mapstructure:"session_secret"`
	Environment   string      `mapstructure:"environment"`
	CORSOrigins   []string    `mapstructure:"cors_origins"`
	Email         EmailConfig `mapstructure:"email"`
	Feed          FeedConfig  `mapstructure:"feed"`
	Cache         CacheConfig `mapstructure:"cache"`
}

// Load reads configuration from an optional config.yaml plus environment
// variables. DATABASE_URL and JWT_SECRET are required; missing either is
// fatal so a misconfigured deployment fails fast with a diagnostic.
func Load() *Config {
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Bind explicitly so env vars work without a config file present.
	for _, key := range []string{
		"database_url", "server_port", "jwt_secret", "session_secret",
		"environment", "port",
	} {
		v.BindEnv(key) //nolint:errcheck
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Fatalf("Error reading config file: %v", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Fatalf("Error unmarshalling config: %v", err)
	}

	if config.ServerPort == "" {
		config.ServerPort = v.GetString("port")
	}
	if config.ServerPort == "" {
		config.ServerPort = "8080"
	}
	if config.Environment == "" {
		config.Environment = "development"
	}
	if len(config.CORSOrigins) == 0 {
		config.CORSOrigins = []string{"http://localhost:3000"}
	}
	if config.Email.SMTPPort == 0 {
		config.Email.SMTPPort = 587
	}
	if config.Feed.Interval <= 0 {
		config.Feed.Interval = 10 * time.Second
	}
	if config.Feed.ReconnectDelay <= 0 {
		config.Feed.ReconnectDelay = 5 * time.Second
	}
	if config.Cache.ReferenceTTL <= 0 {
		config.Cache.ReferenceTTL = 5 * time.Minute
	}

	if config.DatabaseURL == "" {
		log.Fatal("DATABASE_URL must be set")
	}
	if config.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	return &config
}

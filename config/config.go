package config

import (
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

type Config struct {
	APIURL         string        `envconfig:"NEXT_PUBLIC_API_URL" default:"http://localhost:1337"`
	Port           string        `envconfig:"STOREFRONT_PORT"     default:":3000"`
	LogLevel       string        `envconfig:"LOG_LEVEL"           default:"info"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT"     default:"5s"`
	CookieSecure   bool          `envconfig:"COOKIE_SECURE"       default:"false"`
	CookieDomain   string        `envconfig:"COOKIE_DOMAIN"`
	TabIdleTTL     time.Duration `envconfig:"TAB_IDLE_TTL"        default:"30m"`
	RabbitMQURL    string        `envconfig:"RABBITMQ_URL"`
}

var (
	config Config
	once   sync.Once
)

func LoadConfig(logger *logrus.Logger) *Config {
	once.Do(func() {
		err := godotenv.Load()
		if err != nil && !os.IsNotExist(err) {
			logger.Warnf("Error loading .env file (but continuing): %v", err)
		} else if err == nil {
			logger.Info("Loaded configuration from .env file")
		}

		if err := Process(&config); err != nil {
			logger.Fatalf("Failed to process configuration from environment variables: %v", err)
		}

		logger.Infof("Configuration loaded: Port=%s, API=%s, LogLevel=%s", config.Port, config.APIURL, config.LogLevel)
		if config.RabbitMQURL != "" {
			logger.Info("Configuration loaded: RABBITMQ_URL is set, logout signals go through RabbitMQ")
		}
	})
	return &config
}

// Process fills cfg from the environment only, without touching .env.
func Process(cfg *Config) error {
	return envconfig.Process("", cfg)
}

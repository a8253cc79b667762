package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/rezonia/nfse-ipm/internal/model"
	"github.com/rezonia/nfse-ipm/internal/webservice"
)

// Config holds the settings of the CLI and the gateway
type Config struct {
	NFSe    NFSeConfig
	Server  ServerConfig
	Logging LoggingConfig
}

// NFSeConfig holds the webservice account
type NFSeConfig struct {
	Login         string
	Password      string
	MunicipalCode string
	URL           string
	XMLResponse   bool
	TestMode      bool
	Timeout       time.Duration
}

// ServerConfig holds the HTTP gateway settings
type ServerConfig struct {
	Address      string
	Debug        bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// LoggingConfig holds the logger settings
type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads the configuration from the environment. When envFile is
// empty a .env in the working directory is loaded if present; a named
// file must exist.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	} else {
		// .env is optional
		_ = godotenv.Load()
	}

	return &Config{
		NFSe: NFSeConfig{
			Login:         getEnv("NFSE_LOGIN", ""),
			Password:      getEnv("NFSE_PASSWORD", ""),
			MunicipalCode: getEnv("NFSE_MUNICIPAL_CODE", ""),
			URL:           getEnv("NFSE_URL", webservice.DatacenterURL),
			XMLResponse:   getEnvAsBool("NFSE_XML_RESPONSE", true),
			TestMode:      getEnvAsBool("NFSE_TEST_MODE", false),
			Timeout:       getEnvAsDuration("NFSE_TIMEOUT", model.DefaultTimeout),
		},
		Server: ServerConfig{
			Address:      getEnv("SERVER_ADDRESS", ":8080"),
			Debug:        getEnvAsBool("SERVER_DEBUG", false),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 90*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}, nil
}

// Validate reports every missing webservice setting
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.NFSe.Login) == "" {
		missing = append(missing, "NFSE_LOGIN")
	}
	if strings.TrimSpace(c.NFSe.Password) == "" {
		missing = append(missing, "NFSE_PASSWORD")
	}
	if strings.TrimSpace(c.NFSe.MunicipalCode) == "" {
		missing = append(missing, "NFSE_MUNICIPAL_CODE")
	}
	if strings.TrimSpace(c.NFSe.URL) == "" {
		missing = append(missing, "NFSE_URL")
	}
	if len(missing) > 0 {
		return errors.New("missing configuration: " + strings.Join(missing, ", "))
	}
	return nil
}

// ClientConfig maps the account settings onto the webservice client config
func (c *Config) ClientConfig() model.ClientConfig {
	return model.ClientConfig{
		Login:         c.NFSe.Login,
		Password:      c.NFSe.Password,
		MunicipalCode: c.NFSe.MunicipalCode,
		URL:           c.NFSe.URL,
		XMLResponse:   model.Bool(c.NFSe.XMLResponse),
		Timeout:       c.NFSe.Timeout,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("90s") or plain seconds ("90")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment string
	Port        string
	SystemName  string
	EnvType     string
	AWS         AWSConfig
	Twilio      TwilioConfig
}

// AWSConfig holds AWS client configuration
type AWSConfig struct {
	Region string
}

// TwilioConfig holds Twilio client configuration
type TwilioConfig struct {
	HTTPTimeout        time.Duration
	DefaultCountryCode string
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Set up Viper
	viper.AutomaticEnv()
	viper.SetDefault("PORT", "8081")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("SYSTEM_NAME", "twh")
	viper.SetDefault("ENV_TYPE", "dev")
	viper.SetDefault("AWS_REGION", "us-east-1")
	viper.SetDefault("TWILIO_HTTP_TIMEOUT", "10s")
	viper.SetDefault("DEFAULT_COUNTRY_CODE", "US")

	config := &Config{
		Environment: viper.GetString("ENVIRONMENT"),
		Port:        viper.GetString("PORT"),
		SystemName:  viper.GetString("SYSTEM_NAME"),
		EnvType:     viper.GetString("ENV_TYPE"),
		AWS: AWSConfig{
			Region: viper.GetString("AWS_REGION"),
		},
		Twilio: TwilioConfig{
			HTTPTimeout:        viper.GetDuration("TWILIO_HTTP_TIMEOUT"),
			DefaultCountryCode: viper.GetString("DEFAULT_COUNTRY_CODE"),
		},
	}

	return config, nil
}

// ParameterPath builds the fully qualified Parameter Store path for a key,
// e.g. /twh/dev/twilio-auth-token.
func (c *Config) ParameterPath(key string) string {
	return "/" + c.SystemName + "/" + c.EnvType + "/" + key
}

// GetEnv gets an environment variable with a fallback value
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// GetEnvAsInt gets an environment variable as integer with a fallback value
func GetEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

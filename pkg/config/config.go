package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Auth       AuthConfig       `mapstructure:"auth"`
	RateLimits RateLimitsConfig `mapstructure:"rate_limits"`
	Providers  ProvidersConfig  `mapstructure:"providers"`
	CORS       CORSConfig       `mapstructure:"cors"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	MetricsPort int    `mapstructure:"metrics_port"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig describes the identity provider the auth gate validates bearer
// tokens against.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// RateLimitsConfig holds the fixed-window quotas. Authenticated callers get
// the higher tier, guests the lower one.
type RateLimitsConfig struct {
	Authenticated int           `mapstructure:"authenticated"`
	Guest         int           `mapstructure:"guest"`
	Window        time.Duration `mapstructure:"window"`
}

type ProvidersConfig struct {
	LLM        LLMConfig        `mapstructure:"llm"`
	VirusTotal VirusTotalConfig `mapstructure:"virustotal"`
}

// LLMConfig names the completion service backing the classifier router.
// Name selects the provider implementation (azure, openai, anthropic).
type LLMConfig struct {
	Name       string        `mapstructure:"name"`
	Endpoint   string        `mapstructure:"endpoint"`
	APIKey     string        `mapstructure:"api_key"`
	Deployment string        `mapstructure:"deployment"`
	APIVersion string        `mapstructure:"api_version"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// VirusTotalConfig credential is optional; absence switches the binary file
// scan path to a documented demo response.
type VirusTotalConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

var globalConfig Config

func Load(configPath string) error {
	if err := loadConfigFile(configPath, "config", &globalConfig); err != nil {
		return fmt.Errorf("could not load main config file: %w", err)
	}
	setDefaultValues()
	return nil
}

func loadConfigFile(configPath, fileName string, out interface{}) error {
	viper.SetConfigName(fileName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("config file %s.yaml not found, using only environment variables", fileName)
		}
		return fmt.Errorf("error reading config file %s.yaml: %w", fileName, err)
	}

	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := viper.Unmarshal(out, decodeHook); err != nil {
		return fmt.Errorf("failed to unmarshal %s config: %w", fileName, err)
	}

	return nil
}

func setDefaultValues() {
	if globalConfig.Database.SSLMode == "" {
		globalConfig.Database.SSLMode = "disable"
	}
	if globalConfig.RateLimits.Authenticated == 0 {
		globalConfig.RateLimits.Authenticated = 50
	}
	if globalConfig.RateLimits.Guest == 0 {
		globalConfig.RateLimits.Guest = 20
	}
	if globalConfig.RateLimits.Window == 0 {
		globalConfig.RateLimits.Window = time.Minute
	}
	if globalConfig.Providers.LLM.Name == "" {
		globalConfig.Providers.LLM.Name = "azure"
	}
	if globalConfig.Providers.LLM.Deployment == "" {
		globalConfig.Providers.LLM.Deployment = "gpt-4o"
	}
	if globalConfig.Providers.LLM.APIVersion == "" {
		globalConfig.Providers.LLM.APIVersion = "2024-02-15-preview"
	}
	if globalConfig.Providers.LLM.Timeout == 0 {
		globalConfig.Providers.LLM.Timeout = 15 * time.Second
	}
}

func GetConfig() *Config {
	return &globalConfig
}

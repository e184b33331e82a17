package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"linkedin-harvester/pkg/types"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Harvester HarvesterConfig `yaml:"harvester"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type HarvesterConfig struct {
	Headless             *bool  `yaml:"headless"`
	ActionTimeoutSeconds int    `yaml:"action_timeout_seconds"`
	MaxRunSeconds        int    `yaml:"max_run_seconds"`
	InactivitySeconds    int    `yaml:"inactivity_seconds"`
	ScrollSteps          int    `yaml:"scroll_steps"`
	ScrollStepPixels     int    `yaml:"scroll_step_pixels"`
	SettleMillis         int    `yaml:"settle_millis"`
	ResultsDir           string `yaml:"results_dir"`
	LoginURL             string `yaml:"login_url"`
	UserAgent            string `yaml:"user_agent"`
}

type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

func Load(configFile string) (*Config, error) {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		// .env file is optional, so don't fail if it doesn't exist
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configFile)
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables if they exist
	if port := os.Getenv("API_PORT"); port != "" {
		config.Server.Port = port
	}
	if dbHost := os.Getenv("DB_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbUser := os.Getenv("DB_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPassword := os.Getenv("DB_PASSWORD"); dbPassword != "" {
		config.Database.Password = dbPassword
	}
	if dbName := os.Getenv("DB_NAME"); dbName != "" {
		config.Database.Name = dbName
	}
	if resultsDir := os.Getenv("RESULTS_DIR"); resultsDir != "" {
		config.Harvester.ResultsDir = resultsDir
	}

	return &config, nil
}

// ToHarvestConfig converts the file representation into the run config,
// filling anything unset with the harvester defaults.
func (hc HarvesterConfig) ToHarvestConfig() types.HarvestConfig {
	cfg := types.DefaultHarvestConfig()
	if hc.Headless != nil {
		cfg.Headless = *hc.Headless
	}

	if hc.ActionTimeoutSeconds > 0 {
		cfg.ActionTimeout = time.Duration(hc.ActionTimeoutSeconds) * time.Second
	}
	if hc.MaxRunSeconds > 0 {
		cfg.MaxRunDuration = time.Duration(hc.MaxRunSeconds) * time.Second
	}
	if hc.InactivitySeconds > 0 {
		cfg.InactivityTimeout = time.Duration(hc.InactivitySeconds) * time.Second
	}
	if hc.ScrollSteps > 0 {
		cfg.ScrollSteps = hc.ScrollSteps
	}
	if hc.ScrollStepPixels > 0 {
		cfg.ScrollStepPixels = hc.ScrollStepPixels
	}
	if hc.SettleMillis > 0 {
		cfg.SettleInterval = time.Duration(hc.SettleMillis) * time.Millisecond
	}
	if hc.ResultsDir != "" {
		cfg.ResultsDir = hc.ResultsDir
	}
	if hc.LoginURL != "" {
		cfg.LoginURL = hc.LoginURL
	}
	if hc.UserAgent != "" {
		cfg.UserAgent = hc.UserAgent
	}
	return cfg
}

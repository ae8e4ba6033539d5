package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"
)

// TaskTemplate defines a recurring task the generate-week command stamps out.
// Recurrence is an RFC 5545 RRULE; Location is matched by name against the
// sources (pickups) or recipients (deliveries) table.
type TaskTemplate struct {
	Title     string `yaml:"title" validate:"required"`
	RRule     string `yaml:"rrule" validate:"required"`
	StartTime string `yaml:"startTime" validate:"required,datetime=15:04"`
	EndTime   string `yaml:"endTime" validate:"required,datetime=15:04"`
	Kind      string `yaml:"kind" validate:"required,oneof=PICKUP DELIVERY"`
	Location  string `yaml:"location,omitempty"`
	Capacity  int    `yaml:"capacity" validate:"required,min=1"`
	Notes     string `yaml:"notes,omitempty"`
}

// Config represents the application configuration
type Config struct {
	DatabaseURL   string         `yaml:"databaseURL" validate:"required"`
	HTTPAddr      string         `yaml:"httpAddr,omitempty"`
	OrgName       string         `yaml:"orgName" validate:"required"`
	GmailUserID   string         `yaml:"gmailUserID,omitempty"`
	GmailSender   string         `yaml:"gmailSender,omitempty"`
	TaskTemplates []TaskTemplate `yaml:"taskTemplates,omitempty" validate:"dive"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// LoadWithEnv loads and validates the configuration for an environment.
// For example, env="test" looks for "pantry_config.test.yaml".
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct and checks rrule syntax
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	for i, tmpl := range cfg.TaskTemplates {
		if _, err := rrule.StrToRRule(tmpl.RRule); err != nil {
			return fmt.Errorf("invalid rrule in taskTemplates[%d]: %w", i, err)
		}
	}

	return nil
}

// findConfigFile searches for the config file in the current directory and
// the user's home directory. An env adds an extension, e.g.
// "pantry_config.test.yaml".
func findConfigFile(env string) (string, error) {
	configFileName := "pantry_config.yaml"
	if env != "" {
		configFileName = "pantry_config." + env + ".yaml"
	}

	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("config file not found in current directory or home directory")
}

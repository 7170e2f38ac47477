package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DefaultRegion is used when neither config nor CLI flags name a region.
const DefaultRegion = "us-east-2"

// Config holds all configuration for the application.
type Config struct {
	AWS         AWSConfig
	Registry    RegistryConfig
	Provisioner ProvisionerConfig
	State       StateConfig
	LogLevel    string
}

// AWSConfig holds cloud provider settings.
type AWSConfig struct {
	Region string
}

// RegistryConfig holds container registry configuration.
type RegistryConfig struct {
	Type string
}

// ProvisionerConfig holds infrastructure provisioner configuration.
type ProvisionerConfig struct {
	TemplateDir string
	StateDir    string
}

// StateConfig holds local run-history storage configuration.
type StateConfig struct {
	DatabasePath string
}

// Load loads configuration from environment variables and an optional config
// file.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.auto-deployer")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars only
	}

	viper.SetEnvPrefix("AUTO_DEPLOYER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	return &Config{
		AWS: AWSConfig{
			Region: viper.GetString("aws.region"),
		},
		Registry: RegistryConfig{
			Type: viper.GetString("registry.type"),
		},
		Provisioner: ProvisionerConfig{
			TemplateDir: viper.GetString("provisioner.template_dir"),
			StateDir:    viper.GetString("provisioner.state_dir"),
		},
		State: StateConfig{
			DatabasePath: viper.GetString("state.database_path"),
		},
		LogLevel: viper.GetString("log_level"),
	}, nil
}

// setDefaults sets default configuration values.
func setDefaults() {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	baseDir := filepath.Join(home, ".auto-deployer")

	viper.SetDefault("aws.region", DefaultRegion)
	viper.SetDefault("registry.type", "ecr")
	viper.SetDefault("provisioner.template_dir", filepath.Join("infrastructure", "templates", "aws_app_runner"))
	viper.SetDefault("provisioner.state_dir", filepath.Join(baseDir, "state"))
	viper.SetDefault("state.database_path", filepath.Join(baseDir, "runs.db"))
	viper.SetDefault("log_level", "info")
}

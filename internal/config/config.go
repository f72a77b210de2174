// Package config provides configuration management for AvatarSim
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	API    APIConfig    `mapstructure:"api"`
	Health HealthConfig `mapstructure:"health"`
	Avatar AvatarConfig `mapstructure:"avatar"`
	Window WindowConfig `mapstructure:"window"`
}

// APIConfig configures the backend API client
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// HealthConfig configures the backend reachability probe
type HealthConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// AvatarConfig configures the 3D avatar
type AvatarConfig struct {
	ModelPath  string `mapstructure:"model_path"`
	HeadMesh   string `mapstructure:"head_mesh"`
	TeethMesh  string `mapstructure:"teeth_mesh"`
	WatchModel bool   `mapstructure:"watch_model"` // reload on re-export
	FrameRate  int    `mapstructure:"frame_rate"`  // blend update rate
}

// WindowConfig configures the window
type WindowConfig struct {
	Title       string `mapstructure:"title"`
	Width       int    `mapstructure:"width"`
	Height      int    `mapstructure:"height"`
	AlwaysOnTop bool   `mapstructure:"always_on_top"`
	Frameless   bool   `mapstructure:"frameless"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 30 * time.Second,
		},
		Health: HealthConfig{
			Interval: 30 * time.Second,
		},
		Avatar: AvatarConfig{
			ModelPath:  "models/avatar.glb",
			HeadMesh:   "Wolf3D_Head",
			TeethMesh:  "Wolf3D_Teeth",
			WatchModel: false,
			FrameRate:  60,
		},
		Window: WindowConfig{
			Title:       "AvatarSim",
			Width:       1024,
			Height:      720,
			AlwaysOnTop: false,
			Frameless:   false,
		},
	}
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configDir, err := GetConfigDir()
	if err != nil {
		return cfg, err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return cfg, err
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	// Environment variable overrides
	viper.SetEnvPrefix("AVATARSIM")
	viper.AutomaticEnv()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, err
		}
		// Config file not found, use defaults and create one
		if err := Save(cfg); err != nil {
			return cfg, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Save writes the configuration to file
func Save(cfg *Config) error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	viper.Set("api", cfg.API)
	viper.Set("health", cfg.Health)
	viper.Set("avatar", cfg.Avatar)
	viper.Set("window", cfg.Window)

	configPath := filepath.Join(configDir, "config.yaml")
	return viper.WriteConfigAs(configPath)
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".avatarsim"), nil
}

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	API      APIConfig      `mapstructure:"api" yaml:"api"`
	Download DownloadConfig `mapstructure:"download" yaml:"download"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`

	Port string `mapstructure:"port" yaml:"port"`
}

type APIConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	PageURL string `mapstructure:"page_url" yaml:"page_url"`
}

type DownloadConfig struct {
	OutDir     string        `mapstructure:"out_dir" yaml:"out_dir"`
	Resolution string        `mapstructure:"resolution" yaml:"resolution"`
	MaxWorkers int           `mapstructure:"max_workers" yaml:"max_workers"`
	Retries    int           `mapstructure:"retries" yaml:"retries"`
	MaxDelay   time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
}

type LogConfig struct {
	Path          string `mapstructure:"path" yaml:"path"`
	Level         string `mapstructure:"level" yaml:"level"`
	IncludeStdout bool   `mapstructure:"include_stdout" yaml:"include_stdout"`
}

type StoreConfig struct {
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
}

func Load(path string) (*Config, error) {
	v := viper.New()

	// Set Defaults
	v.SetDefault("port", "8080")
	v.SetDefault("api.base_url", "https://hanime.tv/api/v8")
	v.SetDefault("api.page_url", "https://hanime.tv/videos/hentai")
	v.SetDefault("download.out_dir", "Downloads")
	v.SetDefault("download.resolution", "720p")
	v.SetDefault("download.max_workers", 8)
	v.SetDefault("download.retries", 10)
	v.SetDefault("download.max_delay", 30*time.Second)
	v.SetDefault("log.path", "hanidl.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.include_stdout", false)
	v.SetDefault("store.sqlite_path", "hanidl.db")

	// The config file is optional; defaults plus env vars make a complete
	// configuration. An explicitly requested file that is missing is still
	// an error.
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// Support Environment Variables
	v.SetEnvPrefix("HANIDL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api base_url is required")
	}

	if c.Download.MaxWorkers <= 0 {
		c.Download.MaxWorkers = 8
	}

	if c.Download.Retries <= 0 {
		c.Download.Retries = 10
	}

	if c.Download.MaxDelay <= 0 {
		c.Download.MaxDelay = 30 * time.Second
	}

	if c.Download.OutDir == "" {
		c.Download.OutDir = "Downloads"
	}

	if c.Download.Resolution == "" {
		c.Download.Resolution = "720p"
	}

	return nil
}

package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds server settings loaded from the YAML config file.
// Environment variables override individual fields after loading.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Scheduler struct {
		Enabled   bool `yaml:"enabled"`
		BatchSize int  `yaml:"batch_size"`
	} `yaml:"scheduler"`
	Auction struct {
		BidTimeSec       int   `yaml:"bid_time_sec"`
		MinBidIncrement  int64 `yaml:"min_bid_increment"`
		ReshuffleSkipped bool  `yaml:"reshuffle_skipped"`
	} `yaml:"auction"`
}

func defaultConfig() *Config {
	var config Config
	config.Server.Port = "8080"
	config.Scheduler.Enabled = true
	config.Scheduler.BatchSize = 10
	return &config
}

func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.Server.Port = getEnv("PORT", config.Server.Port)
	config.Scheduler.BatchSize = getEnvAsInt("SCHEDULER_BATCH_SIZE", config.Scheduler.BatchSize)
	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

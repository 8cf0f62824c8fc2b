// Package config loads sensorviz settings from the environment.
package config

import (
	"os"
	"strconv"
	"time"
)

// Defaults.
const (
	DefaultAddr          = ":8080"
	DefaultTimeZone      = "UTC"
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "gpt-4o-mini"
	DefaultFeedInterval  = 2 * time.Second
	DefaultFeedWindow    = 50
)

// Config holds process configuration.
type Config struct {
	Addr          string        // HTTP listen address
	DBPath        string        // SQLite file; empty keeps datasets in memory
	TimeZone      string        // Reference zone for time parsing and bucketing
	CleanerURL    string        // Base URL of the external cleaning service
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	FeedInterval  time.Duration // Simulated feed tick
	FeedWindow    int           // Rows retained by the simulated feed
}

// Load reads the configuration from environment variables.
func Load() Config {
	cfg := Config{
		Addr:          os.Getenv("SENSORVIZ_ADDR"),
		DBPath:        os.Getenv("SENSORVIZ_DB"),
		TimeZone:      os.Getenv("SENSORVIZ_TZ"),
		CleanerURL:    os.Getenv("SENSORVIZ_CLEANER_URL"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:   os.Getenv("OPENAI_MODEL"),
	}
	if v := os.Getenv("SENSORVIZ_FEED_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.FeedInterval = d
		}
	}
	if v := os.Getenv("SENSORVIZ_FEED_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FeedWindow = n
		}
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults applies default values to zero fields.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.TimeZone == "" {
		c.TimeZone = DefaultTimeZone
	}
	if c.OpenAIBaseURL == "" {
		c.OpenAIBaseURL = DefaultOpenAIBaseURL
	}
	if c.OpenAIModel == "" {
		c.OpenAIModel = DefaultOpenAIModel
	}
	if c.FeedInterval <= 0 {
		c.FeedInterval = DefaultFeedInterval
	}
	if c.FeedWindow <= 0 {
		c.FeedWindow = DefaultFeedWindow
	}
}

// Location resolves TimeZone, falling back to UTC when it cannot be loaded.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

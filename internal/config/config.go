package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// DefaultSourceURLs are the public recent-grads style CSV files used when no
// sources are configured.
var DefaultSourceURLs = []string{
	"https://raw.githubusercontent.com/fivethirtyeight/data/master/college-majors/recent-grads.csv",
	"https://raw.githubusercontent.com/datasets/college-majors/master/majors-list.csv",
	"https://raw.githubusercontent.com/rfordatascience/tidytuesday/master/data/2018/2018-10-16/recent-grads.csv",
}

// Source is one configured data source.
type Source struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	Format string `yaml:"format"`
}

type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}

type Config struct {
	// HTTP Server
	Host string
	Port string

	// Storage
	SQLiteDBPath     string
	JSONFallbackPath string

	// Scraping
	Sources          []Source
	SourcesFile      string
	FetchTimeout     time.Duration
	FetchConcurrency int
	ScrapeInterval   time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleSpreadsheetID string
	GoogleSheetRange    string

	// Logging
	LogLevel  string
	LogFormat string
	Debug     bool

	sourcesErr error
}

func Load() *Config {
	cfg := &Config{
		Host: getEnv("API_HOST", "127.0.0.1"),
		Port: getEnv("PORT", getEnv("API_PORT", "5000")),

		SQLiteDBPath:     getEnv("SQLITE_DB_PATH", "./data/majors.db"),
		JSONFallbackPath: getEnv("JSON_FALLBACK_PATH", "./jobs.json"),

		SourcesFile:      getEnv("SOURCES_FILE", ""),
		FetchTimeout:     getEnvDuration("FETCH_TIMEOUT", 10*time.Second),
		FetchConcurrency: getEnvInt("FETCH_CONCURRENCY", 1),
		ScrapeInterval:   getEnvDuration("SCRAPE_INTERVAL", 0),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "majorincome"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "dataset_refreshed"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetRange:    getEnv("GOOGLE_SHEET_RANGE", "Majors!A1"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", ""),
		Debug:     getEnvBool("DEBUG", false),
	}

	if cfg.Debug && os.Getenv("LOG_LEVEL") == "" {
		cfg.LogLevel = "debug"
	}

	switch {
	case cfg.SourcesFile != "":
		cfg.Sources, cfg.sourcesErr = LoadSourcesFile(cfg.SourcesFile)
	case os.Getenv("SOURCES") != "":
		cfg.Sources = ParseSourceList(os.Getenv("SOURCES"))
	default:
		cfg.Sources = ParseSourceList(strings.Join(DefaultSourceURLs, ","))
	}

	return cfg
}

// Addr returns the listen address for the API server.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// ParseSourceList turns a comma separated URL list into CSV sources.
func ParseSourceList(list string) []Source {
	var sources []Source
	for _, raw := range strings.Split(list, ",") {
		u := strings.TrimSpace(raw)
		if u == "" {
			continue
		}
		sources = append(sources, Source{URL: u, Format: "csv"})
	}
	return sources
}

// LoadSourcesFile reads a YAML document of the form
//
//	sources:
//	  - name: fivethirtyeight
//	    url: https://...
//	    format: csv
func LoadSourcesFile(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	var doc sourcesFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse sources file %s: %w", path, err)
	}
	for i := range doc.Sources {
		doc.Sources[i].URL = strings.TrimSpace(doc.Sources[i].URL)
		if doc.Sources[i].Format == "" {
			doc.Sources[i].Format = "csv"
		}
		doc.Sources[i].Format = strings.ToLower(doc.Sources[i].Format)
	}
	return doc.Sources, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}
	if c.JSONFallbackPath == "" {
		errors = append(errors, "JSON fallback path cannot be empty")
	}

	// Validate sources
	if c.sourcesErr != nil {
		errors = append(errors, c.sourcesErr.Error())
	} else if len(c.Sources) == 0 {
		errors = append(errors, "at least one source must be configured")
	}
	for _, s := range c.Sources {
		if parsed, err := url.Parse(s.URL); err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid source URL '%s': must be http or https", s.URL))
		}
		if s.Format != "csv" && s.Format != "html" {
			errors = append(errors, fmt.Sprintf("invalid source format '%s' for %s: must be csv or html", s.Format, s.URL))
		}
	}

	if c.FetchTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid fetch timeout %v: must be positive", c.FetchTimeout))
	}
	if c.FetchConcurrency < 1 {
		errors = append(errors, fmt.Sprintf("invalid fetch concurrency %d: must be at least 1", c.FetchConcurrency))
	} else if c.FetchConcurrency > 32 {
		errors = append(errors, fmt.Sprintf("invalid fetch concurrency %d: must be at most 32", c.FetchConcurrency))
	}
	if c.ScrapeInterval < 0 {
		errors = append(errors, fmt.Sprintf("invalid scrape interval %v: must not be negative", c.ScrapeInterval))
	} else if c.ScrapeInterval > 0 && c.ScrapeInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid scrape interval %v: must be at least 1 minute", c.ScrapeInterval))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	switch strings.ToLower(c.LogFormat) {
	case "", "json", "text":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be json or text", c.LogFormat))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateSheets checks the settings the Google Sheets export needs.
func (c *Config) ValidateSheets() error {
	if c.GoogleSpreadsheetID == "" {
		return fmt.Errorf("GOOGLE_SPREADSHEET_ID is required for sheets export")
	}
	if !strings.Contains(c.GoogleSheetRange, "!") {
		return fmt.Errorf("invalid GOOGLE_SHEET_RANGE '%s': expected Sheet!A1 notation", c.GoogleSheetRange)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aluiziolira/go-bookbase/models"
)

// Browse modes for the default view.
const (
	ModeBrowse = "browse"
	ModeSearch = "search"
)

// Store backends.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// MaxResultsLimit is the largest page the remote catalog will return.
// Output formats for the export pipeline.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatDual = "dual"
)

const MaxResultsLimit = 40

// Config holds bookbase configuration.
type Config struct {
	BaseURL           string
	MaxResults        int
	Timeout           time.Duration
	RequestsPerSecond float64
	UserAgent         string
	MaxInFlight       int

	Mode         string // browse or search
	DefaultQuery string
	Categories   []models.CategoryQuery

	DatabaseDriver string // sqlite or postgres
	DatabaseDSN    string
	StoreCacheSize int

	PipelineBufferSize int
	BatchSize          int
	DedupeMaxSize      int
	OutputFile         string
	OutputFormat       string // csv, json, or dual

	MetricsAddr string
	Verbose     bool
}

// DefaultConfig returns defaults that work against the public catalog.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:            "https://www.googleapis.com/books/v1",
		MaxResults:         MaxResultsLimit,
		Timeout:            10 * time.Second,
		RequestsPerSecond:  0,
		UserAgent:          "bookbase/1.0 (+https://github.com/aluiziolira/go-bookbase)",
		MaxInFlight:        8,
		Mode:               ModeBrowse,
		DefaultQuery:       "bestsellers",
		Categories:         models.DefaultCategories(),
		DatabaseDriver:     DriverSQLite,
		DatabaseDSN:        "file:bookbase.db?_busy_timeout=5000&_journal_mode=WAL",
		StoreCacheSize:     256,
		PipelineBufferSize: 512,
		BatchSize:          64,
		DedupeMaxSize:      10000,
		OutputFile:         "output/books.csv",
		OutputFormat:       FormatCSV,
		MetricsAddr:        "",
		Verbose:            false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.MaxResults <= 0 || c.MaxResults > MaxResultsLimit {
		return fmt.Errorf("max results must be between 1 and %d", MaxResultsLimit)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second cannot be negative")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.MaxInFlight < 0 {
		return fmt.Errorf("max in-flight cannot be negative")
	}

	switch c.Mode {
	case ModeBrowse:
		if len(c.Categories) == 0 {
			return fmt.Errorf("browse mode needs at least one category")
		}
		for i, cat := range c.Categories {
			if strings.TrimSpace(cat.Label) == "" || strings.TrimSpace(cat.Query) == "" {
				return fmt.Errorf("category %d needs a label and a query", i)
			}
		}
	case ModeSearch:
		if strings.TrimSpace(c.DefaultQuery) == "" {
			return fmt.Errorf("search mode needs a default query")
		}
	default:
		return fmt.Errorf("mode must be browse or search")
	}

	if c.DatabaseDriver != DriverSQLite && c.DatabaseDriver != DriverPostgres {
		return fmt.Errorf("database driver must be sqlite or postgres")
	}
	if c.DatabaseDSN == "" {
		return fmt.Errorf("database DSN cannot be empty")
	}
	if c.StoreCacheSize <= 0 {
		return fmt.Errorf("store cache size must be positive")
	}

	if c.PipelineBufferSize <= 0 {
		return fmt.Errorf("pipeline buffer size must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != FormatCSV && c.OutputFormat != FormatJSON && c.OutputFormat != FormatDual {
		return fmt.Errorf("output format must be csv, json, or dual")
	}

	return nil
}

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aluiziolira/go-bookbase/models"
	"github.com/spf13/viper"
)

// Viper keys. Nested keys map to BOOKBASE_<SECTION>_<NAME> environment variables.
const (
	KeyBaseURL           = "base_url"
	KeyMaxResults        = "max_results"
	KeyTimeout           = "timeout"
	KeyRequestsPerSecond = "requests_per_second"
	KeyUserAgent         = "user_agent"
	KeyMaxInFlight       = "max_in_flight"
	KeyMode              = "mode"
	KeyDefaultQuery      = "default_query"
	KeyCategories        = "categories"
	KeyDatabaseDriver    = "database.driver"
	KeyDatabaseDSN       = "database.dsn"
	KeyStoreCacheSize    = "store.cache_size"
	KeyPipelineBuffer    = "pipeline.buffer_size"
	KeyBatchSize         = "pipeline.batch_size"
	KeyDedupeMaxSize     = "pipeline.dedupe_max_size"
	KeyOutputFile        = "output.file"
	KeyOutputFormat      = "output.format"
	KeyMetricsAddr       = "metrics_addr"
	KeyVerbose           = "verbose"
)

// NewViper prepares a viper instance with defaults, env binding and the
// optional config file. An explicit configFile must exist; the implicit
// bookbase.yaml lookup is allowed to find nothing.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix("BOOKBASE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
		return v, nil
	}

	v.SetConfigName("bookbase")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.bookbase")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault(KeyBaseURL, cfg.BaseURL)
	v.SetDefault(KeyMaxResults, cfg.MaxResults)
	v.SetDefault(KeyTimeout, cfg.Timeout)
	v.SetDefault(KeyRequestsPerSecond, cfg.RequestsPerSecond)
	v.SetDefault(KeyUserAgent, cfg.UserAgent)
	v.SetDefault(KeyMaxInFlight, cfg.MaxInFlight)
	v.SetDefault(KeyMode, cfg.Mode)
	v.SetDefault(KeyDefaultQuery, cfg.DefaultQuery)
	v.SetDefault(KeyDatabaseDriver, cfg.DatabaseDriver)
	v.SetDefault(KeyDatabaseDSN, cfg.DatabaseDSN)
	v.SetDefault(KeyStoreCacheSize, cfg.StoreCacheSize)
	v.SetDefault(KeyPipelineBuffer, cfg.PipelineBufferSize)
	v.SetDefault(KeyBatchSize, cfg.BatchSize)
	v.SetDefault(KeyDedupeMaxSize, cfg.DedupeMaxSize)
	v.SetDefault(KeyOutputFile, cfg.OutputFile)
	v.SetDefault(KeyOutputFormat, cfg.OutputFormat)
	v.SetDefault(KeyMetricsAddr, cfg.MetricsAddr)
	v.SetDefault(KeyVerbose, cfg.Verbose)
}

// FromViper builds a Config from v. It does not validate.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()
	cfg.BaseURL = v.GetString(KeyBaseURL)
	cfg.MaxResults = v.GetInt(KeyMaxResults)
	cfg.Timeout = v.GetDuration(KeyTimeout)
	cfg.RequestsPerSecond = v.GetFloat64(KeyRequestsPerSecond)
	cfg.UserAgent = v.GetString(KeyUserAgent)
	cfg.MaxInFlight = v.GetInt(KeyMaxInFlight)
	cfg.Mode = strings.ToLower(v.GetString(KeyMode))
	cfg.DefaultQuery = v.GetString(KeyDefaultQuery)
	cfg.DatabaseDriver = strings.ToLower(v.GetString(KeyDatabaseDriver))
	cfg.DatabaseDSN = v.GetString(KeyDatabaseDSN)
	cfg.StoreCacheSize = v.GetInt(KeyStoreCacheSize)
	cfg.PipelineBufferSize = v.GetInt(KeyPipelineBuffer)
	cfg.BatchSize = v.GetInt(KeyBatchSize)
	cfg.DedupeMaxSize = v.GetInt(KeyDedupeMaxSize)
	cfg.OutputFile = v.GetString(KeyOutputFile)
	cfg.OutputFormat = strings.ToLower(v.GetString(KeyOutputFormat))
	cfg.MetricsAddr = v.GetString(KeyMetricsAddr)
	cfg.Verbose = v.GetBool(KeyVerbose)

	if v.IsSet(KeyCategories) {
		var categories []models.CategoryQuery
		if err := v.UnmarshalKey(KeyCategories, &categories); err != nil {
			return nil, fmt.Errorf("decode categories: %w", err)
		}
		cfg.Categories = categories
	}
	return cfg, nil
}

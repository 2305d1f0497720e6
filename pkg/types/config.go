// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// HTTPConfig holds shared HTTP settings used for every E-utilities request.
type HTTPConfig struct {
	// Timeout bounds each individual HTTP request, retries included separately.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "fetch-papers/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent" validate:"required"`
}

// PubMedConfig holds settings for the NCBI E-utilities collaborator.
type PubMedConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the E-utilities root; esearch.fcgi and efetch.fcgi are
	// resolved relative to it.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url" validate:"required,url"`

	// APIKey raises the NCBI rate limit from 3 to 10 requests per second.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Email and Tool identify the caller per NCBI usage guidelines.
	Email string `json:"email,omitempty" yaml:"email,omitempty" mapstructure:"email" validate:"omitempty,email"`
	Tool  string `json:"tool" yaml:"tool" mapstructure:"tool"`
}

// FetchConfig controls searching, batching and retry behaviour.
type FetchConfig struct {
	// MaxResults caps the number of PMIDs requested from ESearch (default 100).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results" validate:"min=1,max=10000"`

	// BatchSize is the number of PMIDs per EFetch request (default 200).
	BatchSize int `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size" validate:"min=1,max=200"`

	// Workers bounds the number of EFetch requests in flight (default 4).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers" validate:"min=1,max=10"`

	// MaxRetries is the number of retries after the first attempt (default 4).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries" validate:"min=0,max=10"`

	// RetryBaseDelay is the first backoff delay; it doubles on each retry
	// up to RetryMaxDelay.
	RetryBaseDelay time.Duration `json:"retry_base_delay" yaml:"retry_base_delay" mapstructure:"retry_base_delay" validate:"gte=0"`
	RetryMaxDelay  time.Duration `json:"retry_max_delay" yaml:"retry_max_delay" mapstructure:"retry_max_delay" validate:"gtefield=RetryBaseDelay"`
}

// ClassifierConfig extends the built-in marker lists. Entries are appended
// to the defaults, never replacing them.
type ClassifierConfig struct {
	IndustryMarkers []string `json:"industry_markers,omitempty" yaml:"industry_markers,omitempty" mapstructure:"industry_markers" validate:"dive,required"`
	AcademicMarkers []string `json:"academic_markers,omitempty" yaml:"academic_markers,omitempty" mapstructure:"academic_markers" validate:"dive,required"`
	KnownCompanies  []string `json:"known_companies,omitempty" yaml:"known_companies,omitempty" mapstructure:"known_companies" validate:"dive,required"`
}

// OutputFormat selects how records are rendered.
type OutputFormat string

const (
	FormatCSV   OutputFormat = "csv"
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// OutputConfig holds output defaults.
type OutputConfig struct {
	// Format is empty to infer from the output path extension.
	Format OutputFormat `json:"format,omitempty" yaml:"format,omitempty" mapstructure:"format" validate:"omitempty,oneof=csv table json yaml"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Format string `json:"format" yaml:"format" mapstructure:"format" validate:"oneof=console json"`
}

// Config groups all settings for a run. It is loaded once at startup and
// passed by value afterwards.
type Config struct {
	PubMed     PubMedConfig     `json:"pubmed" yaml:"pubmed" mapstructure:"pubmed"`
	Fetch      FetchConfig      `json:"fetch" yaml:"fetch" mapstructure:"fetch"`
	Classifier ClassifierConfig `json:"classifier" yaml:"classifier" mapstructure:"classifier"`
	Output     OutputConfig     `json:"output" yaml:"output" mapstructure:"output"`
	Log        LogConfig        `json:"log" yaml:"log" mapstructure:"log"`
}

// Defaults used when neither a config file nor flags provide a value.
const (
	DefaultBaseURL        = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/"
	DefaultTool           = "fetch-papers"
	DefaultUserAgent      = "fetch-papers/0.1"
	DefaultTimeout        = 30 * time.Second
	DefaultMaxResults     = 100
	DefaultBatchSize      = 200
	DefaultWorkers        = 4
	DefaultMaxRetries     = 4
	DefaultRetryBaseDelay = 500 * time.Millisecond
	DefaultRetryMaxDelay  = 10 * time.Second
)

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() Config {
	return Config{
		PubMed: PubMedConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   DefaultTimeout,
				UserAgent: DefaultUserAgent,
			},
			BaseURL: DefaultBaseURL,
			Tool:    DefaultTool,
		},
		Fetch: FetchConfig{
			MaxResults:     DefaultMaxResults,
			BatchSize:      DefaultBatchSize,
			Workers:        DefaultWorkers,
			MaxRetries:     DefaultMaxRetries,
			RetryBaseDelay: DefaultRetryBaseDelay,
			RetryMaxDelay:  DefaultRetryMaxDelay,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field constraint and reports all violations at once.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return errors.New("invalid configuration: " + strings.Join(msgs, "; "))
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/fetch-papers/internal/apperr"
	"github.com/pdiddy/fetch-papers/internal/logger"
	"github.com/pdiddy/fetch-papers/internal/secrets"
	"github.com/pdiddy/fetch-papers/pkg/types"
)

// Credential locations, relative to the working directory.
var (
	secretsDir = ".secrets/"
	envFile    = ".env"
)

// flagKeys maps command-line flags onto config keys. A flag only overrides
// the config file and environment when it is set.
var flagKeys = map[string]string{
	"max-results": "fetch.max_results",
	"batch-size":  "fetch.batch_size",
	"workers":     "fetch.workers",
	"api-key":     "pubmed.api_key",
	"email":       "pubmed.email",
	"format":      "output.format",
	"log-format":  "log.format",
}

// setDefaults registers every config key so AutomaticEnv can see it.
func setDefaults(v *viper.Viper) {
	d := types.DefaultConfig()
	v.SetDefault("pubmed.base_url", d.PubMed.BaseURL)
	v.SetDefault("pubmed.api_key", d.PubMed.APIKey)
	v.SetDefault("pubmed.email", d.PubMed.Email)
	v.SetDefault("pubmed.tool", d.PubMed.Tool)
	v.SetDefault("pubmed.timeout", d.PubMed.Timeout)
	v.SetDefault("pubmed.user_agent", d.PubMed.UserAgent)
	v.SetDefault("fetch.max_results", d.Fetch.MaxResults)
	v.SetDefault("fetch.batch_size", d.Fetch.BatchSize)
	v.SetDefault("fetch.workers", d.Fetch.Workers)
	v.SetDefault("fetch.max_retries", d.Fetch.MaxRetries)
	v.SetDefault("fetch.retry_base_delay", d.Fetch.RetryBaseDelay)
	v.SetDefault("fetch.retry_max_delay", d.Fetch.RetryMaxDelay)
	v.SetDefault("classifier.industry_markers", []string{})
	v.SetDefault("classifier.academic_markers", []string{})
	v.SetDefault("classifier.known_companies", []string{})
	v.SetDefault("output.format", string(d.Output.Format))
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// newViper reads the config file named by --config, else fetch-papers.yaml
// in the working directory or ~/.config/fetch-papers/config.yaml.
func newViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	cfgFile, _ := cmd.Flags().GetString("config")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("fetch-papers")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "fetch-papers"))
		}
	}

	v.SetEnvPrefix("FETCH_PAPERS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, apperr.WithRef(apperr.Wrap(err, apperr.KindConfig, "reading config file"), v.ConfigFileUsed())
		}
	}

	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, apperr.Wrapf(err, apperr.KindConfig, "binding flag --%s", name)
			}
		}
	}
	return v, nil
}

// loadConfig builds and validates the run configuration, then initializes
// the root logger from it. NCBI credentials not set through config fall
// back to NCBI_API_KEY, NCBI_EMAIL, the .env file and the .secrets
// directory.
func loadConfig(cmd *cobra.Command) (types.Config, error) {
	v, err := newViper(cmd)
	if err != nil {
		return types.Config{}, err
	}

	cfg := types.DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, apperr.Wrap(err, apperr.KindConfig, "decoding configuration")
	}

	creds, err := secrets.Resolve(secrets.Sources{Dir: secretsDir, EnvFile: envFile})
	if err != nil {
		return types.Config{}, apperr.Wrap(err, apperr.KindConfig, "loading NCBI credentials")
	}
	if cfg.PubMed.APIKey == "" {
		cfg.PubMed.APIKey = creds.APIKey
	}
	if cfg.PubMed.Email == "" {
		cfg.PubMed.Email = creds.Email
	}

	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return types.Config{}, apperr.Wrap(err, apperr.KindConfig, "validating configuration")
	}

	logger.Init(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Writer: cmd.ErrOrStderr()})
	if used := v.ConfigFileUsed(); used != "" {
		logger.Named("config").Debug().Str("file", used).Msg("using config file")
	}
	return cfg, nil
}

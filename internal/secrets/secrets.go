// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads NCBI credentials from a directory of plain-text
// files, a dotenv file, and the process environment.
//
// In a secrets directory each file is one secret: the filename is the key
// name and the trimmed file contents are the value. Recognised files are
// ncbi-api-key and ncbi-email.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/pdiddy/fetch-papers/internal/logger"
)

// Key file names in a secrets directory.
const (
	FileAPIKey = "ncbi-api-key"
	FileEmail  = "ncbi-email"
)

// Environment variable names, also read from dotenv files.
const (
	EnvAPIKey = "NCBI_API_KEY"
	EnvEmail  = "NCBI_EMAIL"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged at warn and skipped.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Named("secrets").Warn().Err(err).Str("secret", name).Msg("could not read secret")
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// LoadEnvFile parses a dotenv file without touching the process
// environment. A missing file yields an empty map.
func LoadEnvFile(path string) (map[string]string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}
	return env, nil
}

// Credentials identifies the caller to NCBI.
type Credentials struct {
	APIKey string
	Email  string
}

// Sources lists where credentials may come from. Lookup defaults to
// os.LookupEnv.
type Sources struct {
	Dir     string
	EnvFile string
	Lookup  func(string) (string, bool)
}

// Resolve returns the first non-empty value for each credential, checking
// the environment, then the dotenv file, then the secrets directory.
func Resolve(src Sources) (Credentials, error) {
	lookup := src.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	files, err := Load(src.Dir)
	if err != nil {
		return Credentials{}, err
	}
	dotenv := map[string]string{}
	if src.EnvFile != "" {
		if dotenv, err = LoadEnvFile(src.EnvFile); err != nil {
			return Credentials{}, err
		}
	}

	pick := func(env, file string) string {
		if v, ok := lookup(env); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		if v := strings.TrimSpace(dotenv[env]); v != "" {
			return v
		}
		return files[file]
	}
	return Credentials{
		APIKey: pick(EnvAPIKey, FileAPIKey),
		Email:  pick(EnvEmail, FileEmail),
	}, nil
}

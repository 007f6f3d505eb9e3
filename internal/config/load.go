// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunCoach Contributors

package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	yamlv3 "gopkg.in/yaml.v3"
)

// envKeys maps environment variable names to configuration keys.
var envKeys = map[string]string{
	"DATABASE_URL":             "database.url",
	"DATABASE_CONNECT_TIMEOUT": "database.connect_timeout",
	"SECRET_KEY":               "auth.secret_key",
	"BCRYPT_COST":              "auth.bcrypt_cost",
	"HTTP_ADDR":                "http.addr",
	"CORS_ORIGINS":             "http.cors_origins",
	"SHUTDOWN_TIMEOUT":         "http.shutdown_timeout",
	"METRICS_ADDR":             "metrics.addr",
	"LOG_FORMAT":               "log.format",
	"DEBUG":                    "debug",
	"ANTHROPIC_API_KEY":        "integrations.anthropic_api_key",
	"STRAVA_CLIENT_ID":         "integrations.strava_client_id",
	"STRAVA_CLIENT_SECRET":     "integrations.strava_client_secret",
	"RESEND_API_KEY":           "integrations.resend_api_key",
}

// flagKeys maps command-line flag names to configuration keys. Flags not
// listed here are ignored by Load.
var flagKeys = map[string]string{
	"listen":       "http.addr",
	"database-url": "database.url",
	"metrics-addr": "metrics.addr",
	"log-format":   "log.format",
	"debug":        "debug",
}

// LoadOptions selects the configuration sources. Zero values skip a source.
type LoadOptions struct {
	// File is a YAML configuration file.
	File string
	// EnvFile is a dotenv file. A missing file is not an error.
	EnvFile string
	// Flags are parsed command-line flags; only changed flags override.
	Flags *pflag.FlagSet
}

// Load builds the configuration. Later sources win: defaults, then the YAML
// file, then the dotenv file, then the process environment, then flags.
// The result is validated.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	defaults, err := yamlv3.Marshal(Default())
	if err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "defaults").Wrap(err)
	}
	if err := k.Load(rawBytes(defaults), yaml.Parser()); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "defaults").Wrap(err)
	}

	if opts.File != "" {
		if err := k.Load(file.Provider(opts.File), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("source", "file").
				With("path", opts.File).
				Wrap(err)
		}
	}

	if opts.EnvFile != "" {
		if err := loadDotenv(k, opts.EnvFile); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envValue), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, f.Value.String()
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "unmarshal").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envValue maps a variable to its key. Unknown variables are skipped.
func envValue(name, value string) (string, any) {
	key, ok := envKeys[name]
	if !ok {
		return "", nil
	}
	if key == "http.cors_origins" {
		return key, splitList(value)
	}
	return key, value
}

func loadDotenv(k *koanf.Koanf, path string) error {
	vars, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").
			With("source", "dotenv").
			With("path", path).
			Wrap(err)
	}
	for name, value := range vars {
		key, v := envValue(name, value)
		if key == "" {
			continue
		}
		if err := k.Set(key, v); err != nil {
			return oops.Code("CONFIG_LOAD_FAILED").With("source", "dotenv").With("key", key).Wrap(err)
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// rawBytes is a koanf provider over an in-memory document.
type rawBytes []byte

func (b rawBytes) ReadBytes() ([]byte, error) { return b, nil }

func (b rawBytes) Read() (map[string]any, error) {
	return nil, errors.New("raw bytes provider requires a parser")
}

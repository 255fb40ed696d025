// Package config loads and saves slurmctl's TOML settings file.
package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// Config is what slurmctl needs to reach the service.
type Config struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
	Retries     int
}

const (
	// DefaultPath is used when no --config flag is given.
	DefaultPath = "~/.config/slurmctl/config.toml"

	defaultTimeout = 30 * time.Second
)

// Environment variables that override the file.
const (
	EnvURL   = "SLURM_URL"
	EnvToken = "SLURM_TOKEN"
)

type rawConfig struct {
	BaseURL     string `toml:"base_url"`
	AccessToken string `toml:"access_token,omitempty"`
	Timeout     string `toml:"timeout,omitempty"`
	Retries     int    `toml:"retries,omitempty"`
}

// Load parses the config at path, falling back to defaults when the file is
// missing. An empty path means [DefaultPath].
func Load(path string) (Config, error) {
	resolved, err := ResolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{Timeout: defaultTimeout}

	file, err := os.Open(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, errors.Wrap(err, "open config")
	}
	defer file.Close()

	b, err := io.ReadAll(file)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}

	var raw rawConfig
	if err := toml.Unmarshal(b, &raw); err != nil {
		return Config{}, errors.Wrapf(err, "parse config %s", resolved)
	}

	cfg.BaseURL = strings.TrimSpace(raw.BaseURL)
	cfg.AccessToken = strings.TrimSpace(raw.AccessToken)
	if t := strings.TrimSpace(raw.Timeout); t != "" {
		d, err := time.ParseDuration(t)
		if err != nil {
			return Config{}, errors.Wrapf(err, "parse timeout %q", t)
		}
		cfg.Timeout = d
	}
	if raw.Retries < 0 {
		return Config{}, errors.Errorf("retries must not be negative, got %d", raw.Retries)
	}
	cfg.Retries = raw.Retries

	return cfg, nil
}

// Save writes cfg to path, creating parent directories. The file holds a
// bearer token, so it is only readable by the owner.
func Save(path string, cfg Config) error {
	resolved, err := ResolvePath(path)
	if err != nil {
		return err
	}
	raw := rawConfig{
		BaseURL:     cfg.BaseURL,
		AccessToken: cfg.AccessToken,
		Retries:     cfg.Retries,
	}
	if cfg.Timeout > 0 && cfg.Timeout != defaultTimeout {
		raw.Timeout = cfg.Timeout.String()
	}
	b, err := toml.Marshal(raw)
	if err != nil {
		return errors.Wrap(err, "encode config")
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o700); err != nil {
		return errors.Wrap(err, "create config dir")
	}
	return errors.Wrap(os.WriteFile(resolved, b, 0o600), "write config")
}

// ApplyEnv overrides the URL and token from the environment when set.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvURL); ok && strings.TrimSpace(v) != "" {
		c.BaseURL = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvToken); ok && strings.TrimSpace(v) != "" {
		c.AccessToken = strings.TrimSpace(v)
	}
}

// ResolvePath expands ~ and makes path absolute. An empty path resolves to
// [DefaultPath].
func ResolvePath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		trimmed = DefaultPath
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "resolve home dir")
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}

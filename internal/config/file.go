package config

import (
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// File is the persisted CLI configuration stored in ~/.asaancar/config.toml.
type File struct {
	Default FileDefault `toml:"default"`
	Auth    FileAuth    `toml:"auth"`
}

// FileDefault holds general client settings.
type FileDefault struct {
	APIBaseURL    string `toml:"api_base_url"`
	PusherHost    string `toml:"pusher_host"`
	PusherKey     string `toml:"pusher_key"`
	PusherCluster string `toml:"pusher_cluster"`
}

// FileAuth holds the saved session from the last login.
type FileAuth struct {
	Token    string `toml:"token"`
	UserID   int64  `toml:"user_id"`
	UserName string `toml:"user_name"`
}

// Dir returns the path to ~/.asaancar, creating it if needed.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".asaancar")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("cannot create config directory: %w", err)
	}
	return dir, nil
}

// Path returns the full path to the config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ReadFile loads the persisted configuration. A missing file is not an
// error; it yields the zero File.
func ReadFile() (File, error) {
	path, err := Path()
	if err != nil {
		return File{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return File{}, nil
		}
		return File{}, fmt.Errorf("cannot read config file: %w", err)
	}
	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("cannot parse config file: %w", err)
	}
	return f, nil
}

// WriteFile persists the configuration with owner-only permissions, since it
// carries the session token.
func WriteFile(f File) error {
	path, err := Path()
	if err != nil {
		return err
	}
	data, err := toml.Marshal(f)
	if err != nil {
		return fmt.Errorf("cannot encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("cannot write config file: %w", err)
	}
	return nil
}

// Merge applies file values for anything the environment left at its zero or
// default value.
func (c Config) Merge(f File) Config {
	if f.Default.APIBaseURL != "" && c.APIBaseURL == DefaultAPIBaseURL {
		c.APIBaseURL = f.Default.APIBaseURL
	}
	if f.Default.PusherHost != "" && c.PusherHost == "" {
		c.PusherHost = f.Default.PusherHost
	}
	if f.Default.PusherKey != "" && c.PusherKey == "" {
		c.PusherKey = f.Default.PusherKey
	}
	if f.Default.PusherCluster != "" {
		c.PusherCluster = f.Default.PusherCluster
	}
	return c
}

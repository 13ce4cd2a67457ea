package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/user"
	"path"

	"gopkg.in/yaml.v2"
)

const (
	configDir  string = ".hwbp"
	configFile string = "config.yml"
)

// Config holds the options read from the hwbp configuration file. Command
// line flags take precedence over it.
type Config struct {
	// DefaultCondition is the breakpoint condition used by 'set' when
	// --cond is not specified (execute, write, io or readwrite).
	DefaultCondition string `yaml:"default-condition,omitempty"`
	// DefaultLength is the watched region size in bytes used by 'set'
	// when --len is not specified.
	DefaultLength int `yaml:"default-length,omitempty"`

	// Serialize makes every operation on a thread wait for the previous
	// one on the same thread to complete. Defaults to true.
	Serialize *bool `yaml:"serialize,omitempty"`

	// Log enables logging, LogOutput is a comma separated list of the
	// components that should produce debug output.
	Log       bool   `yaml:"log"`
	LogOutput string `yaml:"log-output,omitempty"`
}

// SerializeEnabled returns the value of the serialize option.
func (c *Config) SerializeEnabled() bool {
	return c.Serialize == nil || *c.Serialize
}

// LoadConfig reads ~/.hwbp/config.yml, creating it with every option
// commented out if it does not exist. Errors are printed and an empty
// Config is returned.
func LoadConfig() *Config {
	if err := createConfigPath(); err != nil {
		fmt.Fprintf(os.Stderr, "could not create config directory: %v\n", err)
		return &Config{}
	}
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to get config file path: %v\n", err)
		return &Config{}
	}
	c, err := loadConfigFile(fullConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return &Config{}
	}
	return c
}

func loadConfigFile(fullConfigFile string) (*Config, error) {
	data, err := os.ReadFile(fullConfigFile)
	if errors.Is(err, fs.ErrNotExist) {
		if err := createDefaultConfig(fullConfigFile); err != nil {
			return nil, fmt.Errorf("error creating default config file: %v", err)
		}
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read config data: %v", err)
	}

	c := new(Config)
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("unable to decode config file %s: %v", fullConfigFile, err)
	}
	return c, nil
}

func createDefaultConfig(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create config file: %v", err)
	}
	defer f.Close()
	if err := writeDefaultConfig(f); err != nil {
		return fmt.Errorf("unable to write default configuration: %v", err)
	}
	return nil
}

func writeDefaultConfig(w io.Writer) error {
	_, err := io.WriteString(w,
		`# Configuration file for hwbp.

# This is the default configuration file. Available options are provided, but disabled.
# Delete the leading hash mark to enable an item.

# Breakpoint condition used when --cond is not passed to 'hwbp set'.
# One of execute, write, io, readwrite.
# default-condition: write

# Watched region size in bytes used when --len is not passed to 'hwbp set'.
# One of 1, 2, 4, 8.
# default-length: 4

# Wait for the previous operation on a thread to complete before starting
# a new one.
# serialize: true

# Enable logging and select the components that produce debug output
# (hwbreak, native).
# log: true
# log-output: hwbreak
`)
	return err
}

// createConfigPath creates ~/.hwbp.
func createConfigPath() error {
	path, err := GetConfigFilePath("")
	if err != nil {
		return err
	}
	return os.MkdirAll(path, 0700)
}

// GetConfigFilePath gets the full path to the given config file name.
func GetConfigFilePath(file string) (string, error) {
	userHomeDir := "."
	usr, err := user.Current()
	if err == nil {
		userHomeDir = usr.HomeDir
	}
	return path.Join(userHomeDir, configDir, file), nil
}

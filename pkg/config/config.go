package config

import (
	"fmt"
	"os"
	"path"

	"gopkg.in/yaml.v2"
)

const (
	configDir  string = ".asmwin"
	configFile string = "config.yml"
)

// Config defines all configuration options available to be set through
// the config file.
type Config struct {
	// Count is the default number of instructions requested on each
	// side of the anchor.
	Count int `yaml:"count"`
	// Flavour is the assembly syntax used to render instructions, one
	// of "gnu", "intel" or "go".
	Flavour string `yaml:"flavour"`
	// Emulate enables emulation-assisted forward resolution when a
	// backend is available.
	Emulate bool `yaml:"emulate"`
}

// LoadConfig attempts to populate a Config object from the config.yml
// file. It always returns a usable Config.
func LoadConfig() *Config {
	err := createConfigPath()
	if err != nil {
		fmt.Printf("Could not create config directory: %v.\n", err)
		return defaultConfig()
	}
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		fmt.Printf("Unable to get config file path: %v.\n", err)
		return defaultConfig()
	}

	data, err := os.ReadFile(fullConfigFile)
	if err != nil {
		return defaultConfig()
	}

	c := defaultConfig()
	err = yaml.Unmarshal(data, c)
	if err != nil {
		fmt.Printf("Unable to decode config file: %v.\n", err)
		return defaultConfig()
	}
	return c
}

// SaveConfig will marshal and save the config struct to disk.
func SaveConfig(conf *Config) error {
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(*conf)
	if err != nil {
		return err
	}

	return os.WriteFile(fullConfigFile, out, 0644)
}

func defaultConfig() *Config {
	return &Config{Count: 5, Flavour: "gnu"}
}

// GetConfigFilePath gets the full path to the given config file name.
func GetConfigFilePath(file string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return path.Join(home, configDir, file), nil
}

func createConfigPath() error {
	path, err := GetConfigFilePath("")
	if err != nil {
		return err
	}
	return os.MkdirAll(path, 0700)
}

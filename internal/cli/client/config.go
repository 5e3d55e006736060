package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	envAPIToken = "GUARDIAN_API_TOKEN"
	envAPIURL   = "GUARDIAN_API_URL"

	defaultAPIURL = "http://localhost:8080"
)

// GlobalConfig is the saved login stored in config.json.
type GlobalConfig struct {
	APIToken string `json:"api_token,omitempty"`
	APIURL   string `json:"api_url,omitempty"`
}

var (
	getConfigDirFunc  = defaultGetConfigDir
	getConfigPathFunc = defaultGetConfigPath
)

func defaultGetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "guardian"), nil
}

func defaultGetConfigPath() (string, error) {
	configDir, err := getConfigDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// GetConfigDir returns the platform-specific configuration directory
func GetConfigDir() (string, error) {
	return getConfigDirFunc()
}

// GetConfigPath returns the full path to the config.json file
func GetConfigPath() (string, error) {
	return getConfigPathFunc()
}

// LoadGlobalConfig reads the saved login. A missing file yields a nil
// config and no error.
func LoadGlobalConfig() (*GlobalConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config GlobalConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveGlobalConfig writes the config to config.json with 0600 permissions
func SaveGlobalConfig(config *GlobalConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DeleteGlobalConfig removes the config.json file
func DeleteGlobalConfig() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.Remove(configPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete config file: %w", err)
	}

	return nil
}

// CredentialSource represents where the API URL came from
type CredentialSource string

const (
	SourceFlag         CredentialSource = "flag"
	SourceEnv          CredentialSource = "env"
	SourceGlobalConfig CredentialSource = "global_config"
	SourceDefault      CredentialSource = "default"
)

// Settings is the resolved client configuration.
type Settings struct {
	APIURL    string
	APIToken  string
	URLSource CredentialSource
}

// ResolveSettings applies the cascade flag → env → global config → default
// separately to the URL and the token.
func ResolveSettings(flagURL, flagToken string) (Settings, error) {
	s := Settings{APIURL: flagURL, APIToken: flagToken, URLSource: SourceFlag}

	if s.APIURL == "" {
		s.APIURL = os.Getenv(envAPIURL)
		s.URLSource = SourceEnv
	}
	if s.APIToken == "" {
		s.APIToken = os.Getenv(envAPIToken)
	}

	if s.APIURL == "" || s.APIToken == "" {
		global, err := LoadGlobalConfig()
		if err != nil {
			return Settings{}, err
		}
		if global != nil {
			if s.APIURL == "" && global.APIURL != "" {
				s.APIURL = global.APIURL
				s.URLSource = SourceGlobalConfig
			}
			if s.APIToken == "" {
				s.APIToken = global.APIToken
			}
		}
	}

	if s.APIURL == "" {
		s.APIURL = defaultAPIURL
		s.URLSource = SourceDefault
	}

	return s, nil
}

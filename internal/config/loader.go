package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable that points at a config file.
const EnvConfigPath = "NAVGOAL_CONFIG"

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses configuration from a file.
// Fields absent from the file keep their defaults. ${VAR} references are
// expanded before parsing. If a .checksums manifest sits next to the file,
// the file must match it.
func Load(configPath string) (*Config, error) {
	absPath, err := ResolveFile(configPath)
	if err != nil {
		return nil, err
	}

	if err := VerifyChecksums(absPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(interpolateEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", absPath, err)
	}
	cfg.SourcePath = absPath

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ResolveFile turns a file or directory argument into the absolute path of
// the config file. A directory must contain config.yaml.
func ResolveFile(configPath string) (string, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}
	if info.IsDir() {
		absPath = filepath.Join(absPath, "config.yaml")
		if _, err := os.Stat(absPath); err != nil {
			return "", fmt.Errorf("directory provided but config.yaml not found: %s", absPath)
		}
	}
	return absPath, nil
}

// Resolve loads configPath, or the discovered config when configPath is
// empty, or the defaults when nothing is found.
func Resolve(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = Discover()
	}
	if configPath == "" {
		return Defaults(), nil
	}
	return Load(configPath)
}

// Discover finds a config file by checking standard locations.
// Priority order: $NAVGOAL_CONFIG, ~/.config/navgoal/config.yaml.
// Returns "" when none exists.
func Discover() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		userConfig := filepath.Join(homeDir, ".config", "navgoal", "config.yaml")
		if _, err := os.Stat(userConfig); err == nil {
			return userConfig
		}
	}

	return ""
}

// Marshal renders the effective configuration as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}

		// Leave the placeholder; validation reports it where it matters.
		return match
	})
}

// validate performs basic validation on the configuration.
func validate(cfg *Config) error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(cfg.Service.LogLevel)] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}
	if f := strings.ToLower(cfg.Service.LogFormat); f != "json" && f != "text" {
		return fmt.Errorf("service.log_format must be json or text (got %q)", cfg.Service.LogFormat)
	}

	if m := envVarPattern.FindStringSubmatch(cfg.Bridge.URL); len(m) > 1 {
		return fmt.Errorf("bridge.url: environment variable ${%s} is not set", m[1])
	}
	u, err := url.Parse(cfg.Bridge.URL)
	if err != nil {
		return fmt.Errorf("bridge.url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("bridge.url must use ws:// or wss:// (got %q)", cfg.Bridge.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("bridge.url has no host")
	}
	if cfg.Bridge.DialTimeout <= 0 {
		return fmt.Errorf("bridge.dial_timeout must be positive")
	}

	if cfg.Action.Name == "" {
		return fmt.Errorf("action.name is required")
	}
	if cfg.Action.Type == "" {
		return fmt.Errorf("action.type is required")
	}
	if cfg.Action.Frame == "" {
		return fmt.Errorf("action.frame is required")
	}
	if cfg.Action.ServerTimeout <= 0 {
		return fmt.Errorf("action.server_timeout must be positive")
	}
	if cfg.Action.PollInterval <= 0 {
		return fmt.Errorf("action.poll_interval must be positive")
	}
	if cfg.Action.PollInterval > cfg.Action.ServerTimeout {
		return fmt.Errorf("action.poll_interval (%v) exceeds action.server_timeout (%v)",
			cfg.Action.PollInterval, cfg.Action.ServerTimeout)
	}

	if cfg.Status.Enabled && cfg.Status.Listen == "" {
		return fmt.Errorf("status.listen is required when status.enabled is true")
	}
	return nil
}

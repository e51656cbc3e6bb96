package config

import "time"

// Config represents the complete navgoal configuration.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Bridge  BridgeConfig  `yaml:"bridge"`
	Action  ActionConfig  `yaml:"action"`
	State   StateConfig   `yaml:"state"`
	Status  StatusConfig  `yaml:"status"`

	// SourcePath is the file the config was loaded from, empty for built-in defaults.
	SourcePath string `yaml:"-"`
}

// ServiceConfig defines process-wide settings.
type ServiceConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// BridgeConfig defines how the rosbridge websocket is reached.
type BridgeConfig struct {
	URL         string        `yaml:"url"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// ActionConfig describes the navigation action server and the goal frame.
type ActionConfig struct {
	Name          string        `yaml:"name"`
	Type          string        `yaml:"type"`
	Frame         string        `yaml:"frame"`
	ServerTimeout time.Duration `yaml:"server_timeout"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	BehaviorTree  string        `yaml:"behavior_tree,omitempty"`
}

// StateConfig defines the goal journal location. An empty path disables it.
type StateConfig struct {
	Path string `yaml:"path"`
}

// StatusConfig defines the optional status HTTP server.
type StatusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// Defaults returns a Config matching a stock nav2 bringup behind rosbridge.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
		Bridge: BridgeConfig{
			URL:         "ws://127.0.0.1:9090",
			DialTimeout: 2 * time.Second,
		},
		Action: ActionConfig{
			Name:          "/navigate_to_pose",
			Type:          "nav2_msgs/action/NavigateToPose",
			Frame:         "map",
			ServerTimeout: 10 * time.Second,
			PollInterval:  100 * time.Millisecond,
		},
		State: StateConfig{
			Path: "",
		},
		Status: StatusConfig{
			Enabled: false,
			Listen:  "127.0.0.1:8088",
		},
	}
}

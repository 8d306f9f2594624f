// Package config loads armctl configuration from defaults, an optional
// YAML file, and ARMCTL_* environment variables, in increasing order of
// precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds everything the controller daemon needs at startup.
type Config struct {
	// RobotHost is the vendor controller's address (RAPID web service).
	RobotHost string `mapstructure:"robot_host"`
	// RapidPort is the RAPID web service port on the controller.
	RapidPort int `mapstructure:"rapid_port"`

	// ListenPort is the armctl REST/WebSocket API port.
	ListenPort int `mapstructure:"listen_port"`

	// ControlHz is the control loop rate in Hz.
	ControlHz int `mapstructure:"control_hz"`

	// SpeedScalarMax bounds the speed scalar accepted by set-mode
	// requests.
	SpeedScalarMax float64 `mapstructure:"speed_scalar_max"`

	// JointLimitLow/JointLimitHigh are optional per-joint command clip
	// limits in radians. Empty means no clipping; otherwise both must
	// have 6 entries.
	JointLimitLow  []float64 `mapstructure:"joint_limit_low"`
	JointLimitHigh []float64 `mapstructure:"joint_limit_high"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`
}

// Load reads configuration. path may be empty, in which case armctl.yaml
// is looked up in the working directory and ~/.armctl; a missing file is
// not an error, the defaults and environment still apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("robot_host", "192.168.11.58")
	v.SetDefault("rapid_port", 80)
	v.SetDefault("listen_port", 8080)
	v.SetDefault("control_hz", 250)
	v.SetDefault("speed_scalar_max", 5.0)
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("ARMCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("armctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.armctl")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.ControlHz <= 0 {
		return fmt.Errorf("control_hz must be positive, got %d", c.ControlHz)
	}
	if c.SpeedScalarMax <= 0 {
		return fmt.Errorf("speed_scalar_max must be positive, got %f", c.SpeedScalarMax)
	}
	if len(c.JointLimitLow) != len(c.JointLimitHigh) {
		return fmt.Errorf("joint limit lists differ in length: %d vs %d",
			len(c.JointLimitLow), len(c.JointLimitHigh))
	}
	if n := len(c.JointLimitLow); n != 0 && n != 6 {
		return fmt.Errorf("joint limits need 6 entries, got %d", n)
	}
	return nil
}

// RapidBaseURL returns the RAPID web service base URL.
func (c *Config) RapidBaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.RobotHost, c.RapidPort)
}

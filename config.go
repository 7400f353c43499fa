package givmodbus

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// ClientConfig holds the client engine's operational knobs - everything
// that is deployment environment rather than wire protocol. Grounded on
// EdgxCloud-EdgeFlow's internal/config.Config: defaults set first, then
// overridden by an optional YAML file, then by GIVMODBUS_* environment
// variables.
type ClientConfig struct {
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout"`
	InterFramePacing time.Duration `mapstructure:"inter_frame_pacing"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	Retries          int           `mapstructure:"retries"`
	Log              LogConfig     `mapstructure:"log"`
}

// DefaultClientConfig matches the hard-coded defaults the original
// implementation's Client constructor carries.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Port:             8899,
		ConnectTimeout:   defaultConnectTimeout,
		InterFramePacing: defaultInterFrameGap,
		RequestTimeout:   3 * time.Second,
		Retries:          2,
		Log:              DefaultLogConfig(),
	}
}

// LoadClientConfig resolves a ClientConfig from defaults, an optional
// YAML file at configPath (skipped if empty or missing), and
// GIVMODBUS_*-prefixed environment variables, in that order of
// increasing precedence.
func LoadClientConfig(configPath string) (ClientConfig, error) {
	cfg := DefaultClientConfig()

	v := viper.New()
	v.SetDefault("host", cfg.Host)
	v.SetDefault("port", cfg.Port)
	v.SetDefault("connect_timeout", cfg.ConnectTimeout)
	v.SetDefault("inter_frame_pacing", cfg.InterFramePacing)
	v.SetDefault("request_timeout", cfg.RequestTimeout)
	v.SetDefault("retries", cfg.Retries)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return cfg, fmt.Errorf("givmodbus: loading config %s: %w", configPath, err)
			}
		}
	}

	v.SetEnvPrefix("GIVMODBUS")
	v.AutomaticEnv()

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("givmodbus: parsing config: %w", err)
	}
	return cfg, nil
}

// NewClientFromConfig builds a Client wired up with cfg's operational
// settings and a logger built from cfg.Log.
func NewClientFromConfig(cfg ClientConfig) (*Client, error) {
	logger, err := NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	c := NewClient(cfg.Host, cfg.Port)
	c.ConnectTimeout = cfg.ConnectTimeout
	c.InterFramePacing = cfg.InterFramePacing
	c.Logger = logger
	return c, nil
}

// Package config loads the aggregate titan configuration from a YAML file
// and TITAN_-prefixed environment variables. Each component owns its own
// Config type and defaults; this package only assembles them.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/SergeOin/titan/internal/agent"
	"github.com/SergeOin/titan/internal/classifier"
	"github.com/SergeOin/titan/internal/ingest"
	"github.com/SergeOin/titan/internal/logger"
	"github.com/SergeOin/titan/internal/pacing"
	"github.com/SergeOin/titan/internal/ratelimit"
	"github.com/SergeOin/titan/internal/storage"
)

// DefaultStatePath is where the pacing state lands when unconfigured.
const DefaultStatePath = "titan_state.json"

// envKeyReplacer maps nested config keys to environment variable names,
// e.g. storage.mongo_uri becomes TITAN_STORAGE_MONGO_URI.
var envKeyReplacer = strings.NewReplacer(".", "_")

// Server holds the HTTP API settings.
type Server struct {
	Addr         string        `mapstructure:"addr"          yaml:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"  yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// SetDefaults applies default values to unset fields.
func (s *Server) SetDefaults() {
	if s.Addr == "" {
		s.Addr = ":8080"
	}
	if s.ReadTimeout <= 0 {
		s.ReadTimeout = 15 * time.Second
	}
	if s.WriteTimeout <= 0 {
		s.WriteTimeout = 15 * time.Second
	}
}

// Config is the full application configuration.
type Config struct {
	Logger     logger.Config            `mapstructure:"logger"     yaml:"logger"`
	Server     Server                   `mapstructure:"server"     yaml:"server"`
	Classifier classifier.Config        `mapstructure:"classifier" yaml:"classifier"`
	Pacing     pacing.Config            `mapstructure:"pacing"     yaml:"pacing"`
	RateLimit  ratelimit.Config         `mapstructure:"rate_limit" yaml:"rate_limit"`
	Cooldown   ratelimit.CooldownConfig `mapstructure:"cooldown"   yaml:"cooldown"`
	Storage    storage.Config           `mapstructure:"storage"    yaml:"storage"`
	Agent      agent.Config             `mapstructure:"agent"      yaml:"agent"`
	Ingest     ingest.Config            `mapstructure:"ingest"     yaml:"ingest"`
	Redis      ingest.RedisConfig       `mapstructure:"redis"      yaml:"redis"`

	// StatePath is where the pacing controller persists its state.
	StatePath string `mapstructure:"state_path" yaml:"state_path"`
}

// SetDefaults applies default values across every component configuration.
func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	c.Classifier.SetDefaults()
	c.Pacing.SetDefaults()
	c.RateLimit.SetDefaults()
	c.Cooldown.SetDefaults()
	c.Storage.SetDefaults()
	c.Agent.SetDefaults()
	c.Ingest.SetDefaults()
	c.Redis.SetDefaults()
	if c.StatePath == "" {
		c.StatePath = DefaultStatePath
	}
}

// Validate reports configuration errors that defaults cannot repair.
func (c *Config) Validate() error {
	if len(c.Ingest.Keywords) == 0 {
		return errors.New("ingest.keywords must not be empty")
	}
	if c.Agent.BaseURL == "" {
		return errors.New("agent.base_url must be set")
	}
	return nil
}

// Load reads the configuration file (when present) and the environment,
// then fills in defaults. path may be empty, in which case config.yml in
// the working directory is tried.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("TITAN")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	// Exclusion toggles default to on; a zero-value Toggles struct would
	// silently disable every rule.
	v.SetDefault("classifier.exclusions.internship", true)
	v.SetDefault("classifier.exclusions.freelance", true)
	v.SetDefault("classifier.exclusions.job_seeker", true)
	v.SetDefault("classifier.exclusions.promotional", true)
	v.SetDefault("classifier.exclusions.agency", true)
	v.SetDefault("classifier.exclusions.foreign_location", true)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// No file is fine; defaults and environment carry the day.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	return &cfg, nil
}

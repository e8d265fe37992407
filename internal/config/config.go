// Package config loads and validates the server's YAML configuration file,
// following the same load/default/env-override/validate pipeline the rest
// of this codebase's tooling uses.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultAccessLogRotateMaxSizeMB  = 100
	defaultAccessLogRotateMaxBackups = 14
	defaultAccessLogRotateMaxAgeDays = 14
)

// AccessLogRotateConfig mirrors the rotating-writer's own knobs; the
// *Set fields track which values were explicitly supplied so defaults only
// apply to fields the operator left out, not to an explicit 0.
type AccessLogRotateConfig struct {
	Enabled    bool `yaml:"enabled"`
	MaxSizeMB  int  `yaml:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days"`
	Compress   bool `yaml:"compress"`

	maxSizeMBSet  bool `yaml:"-"`
	maxBackupsSet bool `yaml:"-"`
	maxAgeDaysSet bool `yaml:"-"`
}

func (c *AccessLogRotateConfig) UnmarshalYAML(value *yaml.Node) error {
	type rawRotate struct {
		Enabled    bool `yaml:"enabled"`
		MaxSizeMB  int  `yaml:"max_size_mb"`
		MaxBackups int  `yaml:"max_backups"`
		MaxAgeDays int  `yaml:"max_age_days"`
		Compress   bool `yaml:"compress"`
	}
	var raw rawRotate
	if err := value.Decode(&raw); err != nil {
		return err
	}
	c.Enabled = raw.Enabled
	c.MaxSizeMB = raw.MaxSizeMB
	c.MaxBackups = raw.MaxBackups
	c.MaxAgeDays = raw.MaxAgeDays
	c.Compress = raw.Compress
	c.maxSizeMBSet, c.maxBackupsSet, c.maxAgeDaysSet = false, false, false

	if value.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		switch strings.TrimSpace(value.Content[i].Value) {
		case "max_size_mb":
			c.maxSizeMBSet = true
		case "max_backups":
			c.maxBackupsSet = true
		case "max_age_days":
			c.maxAgeDaysSet = true
		}
	}
	return nil
}

// LoggingConfig controls the structured access log.
type LoggingConfig struct {
	Level                 string                `yaml:"level"`
	AccessLog             bool                  `yaml:"access_log"`
	AccessLogPath         string                `yaml:"access_log_path"`
	AccessLogFormat       string                `yaml:"access_log_format"`
	AccessLogFormatPreset string                `yaml:"access_log_format_preset"`
	AccessLogRotate       AccessLogRotateConfig `yaml:"access_log_rotate"`
}

// Config is the top-level shape of the server's YAML config file.
type Config struct {
	Server struct {
		Listen         string `yaml:"listen"`
		ReadTimeoutMs  int    `yaml:"read_timeout_ms"`
		WriteTimeoutMs int    `yaml:"write_timeout_ms"`
		PidFile        string `yaml:"pid_file"`
	} `yaml:"server"`

	DSL struct {
		// Root is the directory the loader walks to build the endpoint
		// graph.
		Root string `yaml:"root"`
		// StepLimit bounds a single task-tree walk against a cyclic graph;
		// <= 0 falls back to the engine's built-in default.
		StepLimit int `yaml:"step_limit"`
	} `yaml:"dsl"`

	HTTPClient struct {
		// TimeoutMs bounds each outbound request an Http task issues.
		TimeoutMs int `yaml:"timeout_ms"`
	} `yaml:"http_client"`

	Logging LoggingConfig `yaml:"logging"`
}

// Load reads, defaults, env-overrides, and validates the config at path.
func Load(path string) (*Config, error) {
	// #nosec G304 -- path is provided by trusted config/flag.
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Server.Listen) == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.ReadTimeoutMs <= 0 {
		cfg.Server.ReadTimeoutMs = 30000
	}
	if cfg.Server.WriteTimeoutMs <= 0 {
		cfg.Server.WriteTimeoutMs = 30000
	}
	if strings.TrimSpace(cfg.Server.PidFile) == "" {
		cfg.Server.PidFile = "/var/run/lattice.pid"
	}
	if strings.TrimSpace(cfg.DSL.Root) == "" {
		cfg.DSL.Root = "./dsl"
	}
	if cfg.DSL.StepLimit <= 0 {
		cfg.DSL.StepLimit = 4096
	}
	if cfg.HTTPClient.TimeoutMs <= 0 {
		cfg.HTTPClient.TimeoutMs = 30000
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if !cfg.Logging.AccessLogRotate.maxSizeMBSet {
		cfg.Logging.AccessLogRotate.MaxSizeMB = defaultAccessLogRotateMaxSizeMB
	}
	if !cfg.Logging.AccessLogRotate.maxBackupsSet {
		cfg.Logging.AccessLogRotate.MaxBackups = defaultAccessLogRotateMaxBackups
	}
	if !cfg.Logging.AccessLogRotate.maxAgeDaysSet {
		cfg.Logging.AccessLogRotate.MaxAgeDays = defaultAccessLogRotateMaxAgeDays
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("LATTICE_LISTEN")); v != "" {
		cfg.Server.Listen = v
	}
	if n, ok := envInt("LATTICE_READ_TIMEOUT_MS"); ok && n > 0 {
		cfg.Server.ReadTimeoutMs = n
	}
	if n, ok := envInt("LATTICE_WRITE_TIMEOUT_MS"); ok && n > 0 {
		cfg.Server.WriteTimeoutMs = n
	}
	if v := strings.TrimSpace(os.Getenv("LATTICE_PID_FILE")); v != "" {
		cfg.Server.PidFile = v
	}
	if v := strings.TrimSpace(os.Getenv("LATTICE_DSL_ROOT")); v != "" {
		cfg.DSL.Root = v
	}
	if n, ok := envInt("LATTICE_DSL_STEP_LIMIT"); ok && n > 0 {
		cfg.DSL.StepLimit = n
	}
	if n, ok := envInt("LATTICE_HTTP_CLIENT_TIMEOUT_MS"); ok && n > 0 {
		cfg.HTTPClient.TimeoutMs = n
	}
	if v := strings.TrimSpace(os.Getenv("LATTICE_ACCESS_LOG_PATH")); v != "" {
		cfg.Logging.AccessLogPath = v
	}
	if v := os.Getenv("LATTICE_ACCESS_LOG_FORMAT"); strings.TrimSpace(v) != "" {
		cfg.Logging.AccessLogFormat = v
	}
	if v := strings.TrimSpace(os.Getenv("LATTICE_ACCESS_LOG_FORMAT_PRESET")); v != "" {
		cfg.Logging.AccessLogFormatPreset = v
	}
	cfg.Logging.AccessLogRotate.Enabled = envBool("LATTICE_ACCESS_LOG_ROTATE_ENABLED", cfg.Logging.AccessLogRotate.Enabled)
	if n, ok := envInt("LATTICE_ACCESS_LOG_ROTATE_MAX_SIZE_MB"); ok {
		cfg.Logging.AccessLogRotate.MaxSizeMB = n
		cfg.Logging.AccessLogRotate.maxSizeMBSet = true
	}
	if n, ok := envInt("LATTICE_ACCESS_LOG_ROTATE_MAX_BACKUPS"); ok {
		cfg.Logging.AccessLogRotate.MaxBackups = n
		cfg.Logging.AccessLogRotate.maxBackupsSet = true
	}
	if n, ok := envInt("LATTICE_ACCESS_LOG_ROTATE_MAX_AGE_DAYS"); ok {
		cfg.Logging.AccessLogRotate.MaxAgeDays = n
		cfg.Logging.AccessLogRotate.maxAgeDaysSet = true
	}
	cfg.Logging.AccessLogRotate.Compress = envBool("LATTICE_ACCESS_LOG_ROTATE_COMPRESS", cfg.Logging.AccessLogRotate.Compress)
}

func envInt(name string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envBool(name string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.DSL.Root) == "" {
		return errors.New("dsl.root is required")
	}
	if cfg.DSL.StepLimit <= 0 {
		return errors.New("dsl.step_limit must be > 0")
	}
	if cfg.Logging.AccessLogRotate.Enabled {
		if !cfg.Logging.AccessLog {
			return errors.New("logging.access_log must be true when logging.access_log_rotate.enabled=true")
		}
		if strings.TrimSpace(cfg.Logging.AccessLogPath) == "" {
			return errors.New("logging.access_log_path is required when logging.access_log_rotate.enabled=true")
		}
	}
	if cfg.Logging.AccessLogRotate.MaxSizeMB <= 0 {
		return errors.New("logging.access_log_rotate.max_size_mb must be > 0")
	}
	if cfg.Logging.AccessLogRotate.MaxBackups <= 0 {
		return errors.New("logging.access_log_rotate.max_backups must be > 0")
	}
	if cfg.Logging.AccessLogRotate.MaxAgeDays < 0 {
		return errors.New("logging.access_log_rotate.max_age_days must be >= 0")
	}
	return nil
}

package accumulate

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const envPrefix = "ACCUMULATE_"

// ServiceConfig configures the signing service.
type ServiceConfig struct {
	Network       string        `json:"network"`
	Endpoint      string        `json:"endpoint"`
	ListenAddress string        `json:"listenAddress"`
	DatabasePath  string        `json:"databasePath"`
	PreparedTTL   time.Duration `json:"preparedTTL"`
	SweepInterval time.Duration `json:"sweepInterval"`
	RateLimit     float64       `json:"rateLimit"`
	RateBurst     int           `json:"rateBurst"`
	LogLevel      string        `json:"logLevel"`
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Network:       string(NetworkMainNet),
		ListenAddress: "localhost:8420",
		PreparedTTL:   DefaultPreparedTTL,
		SweepInterval: DefaultSweepInterval,
		RateLimit:     20,
		RateBurst:     40,
		LogLevel:      "info",
	}
}

type fileConfig struct {
	Network       string  `yaml:"network" toml:"network"`
	Endpoint      string  `yaml:"endpoint" toml:"endpoint"`
	ListenAddress string  `yaml:"listenAddress" toml:"listen_address"`
	DatabasePath  string  `yaml:"databasePath" toml:"database_path"`
	PreparedTTL   string  `yaml:"preparedTTL" toml:"prepared_ttl"`
	SweepInterval string  `yaml:"sweepInterval" toml:"sweep_interval"`
	RateLimit     float64 `yaml:"rateLimit" toml:"rate_limit"`
	RateBurst     int     `yaml:"rateBurst" toml:"rate_burst"`
	LogLevel      string  `yaml:"logLevel" toml:"log_level"`
}

// LoadServiceConfig reads a yaml or toml file, chosen by extension, over the
// defaults. Keys missing from the file keep their default.
func LoadServiceConfig(path string) (cfg ServiceConfig, err error) {
	cfg = DefaultServiceConfig()

	var raw fileConfig
	defined := map[string]bool{}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err2 := os.ReadFile(path)
		if err2 != nil {
			return cfg, errors.Wrap(err2, "unable to read config file")
		}
		var keys map[string]any
		if err = yaml.Unmarshal(data, &keys); err != nil {
			return cfg, errors.Wrap(err, "unable to parse yaml config")
		}
		if err = yaml.Unmarshal(data, &raw); err != nil {
			return cfg, errors.Wrap(err, "unable to parse yaml config")
		}
		for key := range keys {
			defined[strings.ToLower(key)] = true
		}

	case ".toml":
		meta, err2 := toml.DecodeFile(path, &raw)
		if err2 != nil {
			return cfg, errors.Wrap(err2, "unable to parse toml config")
		}
		for _, key := range meta.Keys() {
			defined[strings.ToLower(strings.ReplaceAll(key.String(), "_", ""))] = true
		}

	default:
		return cfg, errors.Errorf("unsupported config file extension '%s'", filepath.Ext(path))
	}

	if defined["network"] {
		cfg.Network = strings.TrimSpace(raw.Network)
	}
	if defined["endpoint"] {
		cfg.Endpoint = strings.TrimSpace(raw.Endpoint)
	}
	if defined["listenaddress"] {
		cfg.ListenAddress = strings.TrimSpace(raw.ListenAddress)
	}
	if defined["databasepath"] {
		cfg.DatabasePath = strings.TrimSpace(raw.DatabasePath)
	}
	if defined["preparedttl"] {
		if cfg.PreparedTTL, err = time.ParseDuration(strings.TrimSpace(raw.PreparedTTL)); err != nil {
			return cfg, errors.Wrap(err, "parse prepared ttl")
		}
	}
	if defined["sweepinterval"] {
		if cfg.SweepInterval, err = time.ParseDuration(strings.TrimSpace(raw.SweepInterval)); err != nil {
			return cfg, errors.Wrap(err, "parse sweep interval")
		}
	}
	if defined["ratelimit"] {
		cfg.RateLimit = raw.RateLimit
	}
	if defined["rateburst"] {
		cfg.RateBurst = raw.RateBurst
	}
	if defined["loglevel"] {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	return
}

// ApplyEnv overrides fields from ACCUMULATE_* variables.
func (c *ServiceConfig) ApplyEnv(lookup func(string) (string, bool)) (err error) {
	get := func(name string) (string, bool) {
		v, ok := lookup(envPrefix + name)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("NETWORK"); ok {
		c.Network = v
	}
	if v, ok := get("ENDPOINT"); ok {
		c.Endpoint = v
	}
	if v, ok := get("LISTEN_ADDRESS"); ok {
		c.ListenAddress = v
	}
	if v, ok := get("DATABASE_PATH"); ok {
		c.DatabasePath = v
	}
	if v, ok := get("PREPARED_TTL"); ok {
		if c.PreparedTTL, err = time.ParseDuration(v); err != nil {
			return errors.Wrapf(err, "%sPREPARED_TTL", envPrefix)
		}
	}
	if v, ok := get("SWEEP_INTERVAL"); ok {
		if c.SweepInterval, err = time.ParseDuration(v); err != nil {
			return errors.Wrapf(err, "%sSWEEP_INTERVAL", envPrefix)
		}
	}
	if v, ok := get("RATE_LIMIT"); ok {
		if c.RateLimit, err = strconv.ParseFloat(v, 64); err != nil {
			return errors.Wrapf(err, "%sRATE_LIMIT", envPrefix)
		}
	}
	if v, ok := get("RATE_BURST"); ok {
		if c.RateBurst, err = strconv.Atoi(v); err != nil {
			return errors.Wrapf(err, "%sRATE_BURST", envPrefix)
		}
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.LogLevel = v
	}

	return
}

func (c ServiceConfig) Validate() error {
	if err := Network(c.Network).Validate(); err != nil {
		return err
	}
	if c.ListenAddress == "" {
		return errors.New("listen address not configured")
	}
	if c.PreparedTTL <= 0 {
		return errors.New("prepared ttl must be positive")
	}
	return nil
}

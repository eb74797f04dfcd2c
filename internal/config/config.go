package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/minkj/stackup/internal/logger"
	"github.com/minkj/stackup/internal/supervisor"
)

// FileConfig mirrors the top-level TOML structure.
//
//	pid_dir = "./run"
//	env = ["NODE_ENV=development"]
//
//	[log]
//	dir = "./logs"
//
//	[server]
//	listen = "127.0.0.1:8420"
//	base_path = "/api"
//
//	[metrics]
//	enabled = true
//	listen = "127.0.0.1:9420"
//
//	[store]
//	path = "./run/stackup.db"
//	retention = "720h"
//
//	[[services]]
//	name = "hub"
//	workdir = "/home/me/agent-hub"
//	command = "npm run dev"
//	port = 3000
//	health_path = "/healthz"
type FileConfig struct {
	PIDDir   string           `toml:"pid_dir" mapstructure:"pid_dir"`
	Env      []string         `toml:"env" mapstructure:"env"`
	StopWait time.Duration    `toml:"stop_wait" mapstructure:"stop_wait"`
	Log      *LogConfig       `toml:"log" mapstructure:"log"`
	Server   *ServerConfig    `toml:"server" mapstructure:"server"`
	Metrics  *MetricsConfig   `toml:"metrics" mapstructure:"metrics"`
	Store    *StoreConfig     `toml:"store" mapstructure:"store"`
	Services []ServiceConfig  `toml:"services" mapstructure:"services"`
}

type LogConfig struct {
	Dir        string `toml:"dir" mapstructure:"dir"`
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress"`
}

type ServerConfig struct {
	Listen   string `toml:"listen" mapstructure:"listen"`
	BasePath string `toml:"base_path" mapstructure:"base_path"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Listen  string `toml:"listen" mapstructure:"listen"`
}

type StoreConfig struct {
	Path      string        `toml:"path" mapstructure:"path"`
	Retention time.Duration `toml:"retention" mapstructure:"retention"`
}

type ServiceConfig struct {
	Name         string        `toml:"name" mapstructure:"name"`
	WorkDir      string        `toml:"workdir" mapstructure:"workdir"`
	Command      string        `toml:"command" mapstructure:"command"`
	Port         int           `toml:"port" mapstructure:"port"`
	HealthPath   string        `toml:"health_path" mapstructure:"health_path"`
	Env          []string      `toml:"env" mapstructure:"env"`
	GracePeriod  time.Duration `toml:"grace_period" mapstructure:"grace_period"`
	ProbeTimeout time.Duration `toml:"probe_timeout" mapstructure:"probe_timeout"`
}

// Config is the resolved configuration handed to the rest of the program.
// Relative directories are resolved against the config file's directory.
type Config struct {
	PIDDir   string
	StopWait time.Duration
	Log      logger.FileConfig
	Server   *ServerConfig
	Metrics  *MetricsConfig
	Store    *StoreConfig
	Specs    []supervisor.Spec
}

// Load reads and validates a TOML config file. Any error here is a
// configuration fault: fatal to the whole supervision run.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var fc FileConfig
	// viper's default decode hooks already handle "2s"-style durations.
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return resolve(&fc, filepath.Dir(path))
}

func resolve(fc *FileConfig, baseDir string) (*Config, error) {
	cfg := &Config{
		PIDDir:   resolvePath(baseDir, orDefault(fc.PIDDir, "run")),
		StopWait: fc.StopWait,
		Server:   fc.Server,
		Metrics:  fc.Metrics,
		Store:    fc.Store,
	}
	logDir := "logs"
	if fc.Log != nil {
		if fc.Log.Dir != "" {
			logDir = fc.Log.Dir
		}
		cfg.Log = logger.FileConfig{
			MaxSizeMB:  fc.Log.MaxSizeMB,
			MaxBackups: fc.Log.MaxBackups,
			MaxAgeDays: fc.Log.MaxAgeDays,
			Compress:   fc.Log.Compress,
		}
	}
	cfg.Log.Dir = resolvePath(baseDir, logDir)
	if cfg.Store != nil && cfg.Store.Path != "" {
		cfg.Store.Path = resolvePath(baseDir, cfg.Store.Path)
	}

	if len(fc.Services) == 0 {
		return nil, fmt.Errorf("no services configured")
	}
	seenNames := make(map[string]bool, len(fc.Services))
	seenPorts := make(map[int]string, len(fc.Services))
	for _, sc := range fc.Services {
		sp := supervisor.Spec{
			Name:         sc.Name,
			WorkDir:      resolvePath(baseDir, sc.WorkDir),
			Command:      sc.Command,
			Port:         sc.Port,
			HealthPath:   sc.HealthPath,
			Env:          append(append([]string(nil), fc.Env...), sc.Env...),
			GracePeriod:  sc.GracePeriod,
			ProbeTimeout: sc.ProbeTimeout,
		}
		if err := sp.Validate(); err != nil {
			return nil, err
		}
		if seenNames[sp.Name] {
			return nil, fmt.Errorf("duplicate service name %q", sp.Name)
		}
		if other, ok := seenPorts[sp.Port]; ok {
			return nil, fmt.Errorf("service %q: port %d already used by %q", sp.Name, sp.Port, other)
		}
		seenNames[sp.Name] = true
		seenPorts[sp.Port] = sp.Name
		cfg.Specs = append(cfg.Specs, sp)
	}
	return cfg, nil
}

// SpecByName returns the spec for name, or false for an unknown service.
func (c *Config) SpecByName(name string) (supervisor.Spec, bool) {
	for _, sp := range c.Specs {
		if sp.Name == name {
			return sp, true
		}
	}
	return supervisor.Spec{}, false
}

// Subset returns the specs for the given names, preserving config order.
// An unknown name is a configuration fault.
func (c *Config) Subset(names []string) ([]supervisor.Spec, error) {
	if len(names) == 0 {
		return c.Specs, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := c.SpecByName(n); !ok {
			return nil, fmt.Errorf("unknown service %q", n)
		}
		want[n] = true
	}
	out := make([]supervisor.Spec, 0, len(want))
	for _, sp := range c.Specs {
		if want[sp.Name] {
			out = append(out, sp)
		}
	}
	return out, nil
}

func resolvePath(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

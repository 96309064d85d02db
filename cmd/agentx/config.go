package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/samcharles93/agentx/internal/pim"
	"github.com/samcharles93/agentx/internal/simulator"
	"github.com/samcharles93/agentx/internal/topology"
)

// Config represents the agentx configuration file (~/.config/agentx/config.yaml).
// All fields are pointers so we can distinguish "not set" from zero values.
type Config struct {
	// Trace defaults
	ModelSize  string `yaml:"model_size"`
	ContextLen *int64 `yaml:"context_len"`
	BatchSize  *int64 `yaml:"batch_size"`
	MaxLen     *int64 `yaml:"max_len"`
	DTypeBytes *int64 `yaml:"dtype_bytes"`

	Topology TopologyConfig `yaml:"topology"`

	Simulator SimulatorConfig `yaml:"simulator"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`
}

// TopologyConfig overrides individual fan-outs of the default system.
type TopologyConfig struct {
	Packages      *int `yaml:"packages"`
	Channels      *int `yaml:"channels"`
	Ranks         *int `yaml:"ranks"`
	BankGroups    *int `yaml:"bank_groups"`
	Banks         *int `yaml:"banks"`
	Rows          *int `yaml:"rows"`
	Columns       *int `yaml:"columns"`
	PrefetchBytes *int `yaml:"prefetch_bytes"`
}

type SimulatorConfig struct {
	Dir        string `yaml:"dir"`
	Binary     string `yaml:"binary"`
	ConfigFile string `yaml:"yaml"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "agentx", "config.yaml")
}

// LoadConfig reads the config file at path, or the default location when
// path is empty. A missing default file yields a zero Config; a missing
// explicit file is an error.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = configPath()
	}
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Apply overlays the set fields on t.
func (c TopologyConfig) Apply(t topology.Topology) topology.Topology {
	for _, f := range []struct {
		src *int
		dst *int
	}{
		{c.Packages, &t.Packages},
		{c.Channels, &t.Channels},
		{c.Ranks, &t.Ranks},
		{c.BankGroups, &t.BankGroups},
		{c.Banks, &t.Banks},
		{c.Rows, &t.Rows},
		{c.Columns, &t.Columns},
		{c.PrefetchBytes, &t.PrefetchBytes},
	} {
		if f.src != nil {
			*f.dst = *f.src
		}
	}
	return t
}

// pimConfig is the hardware side of a run: the configured topology and the
// requested element width.
func pimConfig(cfg Config, dtypeBytes int64) (pim.Config, error) {
	topo := cfg.Topology.Apply(topology.Default())
	if err := topo.Validate(); err != nil {
		return pim.Config{}, err
	}
	return pim.Config{Topology: topo, ElementBytes: int(dtypeBytes)}, nil
}

// applyTraceConfig applies config file defaults to trace options when the
// corresponding CLI flag was not explicitly set.
func applyTraceConfig(c *cli.Command, cfg Config, o *traceOptions) {
	if cfg.ModelSize != "" && !c.IsSet("model-size") {
		o.modelSize = cfg.ModelSize
	}
	if cfg.ContextLen != nil && !c.IsSet("context-len") {
		o.contextLen = *cfg.ContextLen
	}
	if cfg.BatchSize != nil && !c.IsSet("batch-size") {
		o.batchSize = *cfg.BatchSize
	}
	if cfg.MaxLen != nil && !c.IsSet("max-len") {
		o.maxLen = *cfg.MaxLen
	}
	if cfg.DTypeBytes != nil && !c.IsSet("dtype-bytes") {
		o.dtypeBytes = *cfg.DTypeBytes
	}
}

func applySimulatorConfig(c *cli.Command, cfg Config, r *simulator.Runner) {
	if cfg.Simulator.Dir != "" && !c.IsSet("agentx-dir") {
		r.Dir = cfg.Simulator.Dir
	}
	if cfg.Simulator.Binary != "" && !c.IsSet("binary") {
		r.Binary = cfg.Simulator.Binary
	}
	if cfg.Simulator.ConfigFile != "" && !c.IsSet("yaml") {
		r.ConfigFile = cfg.Simulator.ConfigFile
	}
}

func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}

func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

package main

import (
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/agentx/internal/pim"
	"github.com/samcharles93/agentx/internal/profile"
	"github.com/samcharles93/agentx/internal/simulator"
)

var (
	configFile string
	appConfig  Config
	logLevel   string
	logFormat  string
	debug      bool
)

// traceOptions are the inputs of one generation run.
type traceOptions struct {
	modelSize  string
	contextLen int64
	batchSize  int64
	maxLen     int64
	dtypeBytes int64
}

func (o traceOptions) params() profile.Params {
	return profile.Params{
		BatchSize:  int(o.batchSize),
		ContextLen: int(o.contextLen),
		MaxLen:     int(o.maxLen),
	}
}

func traceFlags(o *traceOptions) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "model-size",
			Aliases:     []string{"m"},
			Usage:       "model profile (8B, 14B, 32B, 70B)",
			Value:       "32B",
			Destination: &o.modelSize,
		},
		&cli.Int64Flag{
			Name:        "context-len",
			Aliases:     []string{"ctx", "c"},
			Usage:       "tokens already in the KV cache",
			Value:       8192,
			Destination: &o.contextLen,
		},
		&cli.Int64Flag{
			Name:        "batch-size",
			Aliases:     []string{"b"},
			Usage:       "concurrent decode streams",
			Value:       1,
			Destination: &o.batchSize,
		},
		&cli.Int64Flag{
			Name:        "max-len",
			Usage:       "upper bound for --context-len",
			Value:       profile.DefaultMaxLen,
			Destination: &o.maxLen,
		},
		&cli.Int64Flag{
			Name:        "dtype-bytes",
			Usage:       "weight element width in bytes",
			Value:       pim.DefaultElementBytes,
			Destination: &o.dtypeBytes,
		},
	}
}

func simulatorFlags(r *simulator.Runner) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "agentx-dir",
			Aliases:     []string{"dir"},
			Usage:       "simulator working directory",
			Value:       ".",
			Destination: &r.Dir,
		},
		&cli.StringFlag{
			Name:        "binary",
			Usage:       "simulator executable, relative to --agentx-dir unless absolute",
			Value:       simulator.DefaultBinary,
			Destination: &r.Binary,
		},
		&cli.StringFlag{
			Name:        "yaml",
			Usage:       "simulator configuration passed with -f",
			Value:       simulator.DefaultConfigFile,
			Destination: &r.ConfigFile,
		},
		&cli.BoolFlag{
			Name:        "keep",
			Usage:       "keep the trace and the simulator log directory",
			Destination: &r.KeepArtifacts,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (auto, pretty, json, text)",
			Value:       "auto",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

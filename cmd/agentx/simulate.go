package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/agentx/internal/logger"
	"github.com/samcharles93/agentx/internal/simulator"
	"github.com/samcharles93/agentx/internal/trace"
)

type simulateReport struct {
	Model       string           `json:"model"`
	BatchSize   int              `json:"batch_size"`
	ContextLen  int              `json:"context_len"`
	Result      simulator.Result `json:"result"`
	LatencyNS   int64            `json:"decode_latency_ns"`
	TokensPerS  float64          `json:"tokens_per_second"`
	Layers      int              `json:"layers"`
	TraceSHA256 string           `json:"trace_sha256"`
}

func simulateCmd() *cli.Command {
	var (
		opts       traceOptions
		runner     simulator.Runner
		jsonOutput bool
	)

	return &cli.Command{
		Name:  "simulate",
		Usage: "Generate a trace and run it through the LPDDR-PIM simulator",
		Flags: append(append(traceFlags(&opts), simulatorFlags(&runner)...),
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the result as JSON",
				Destination: &jsonOutput,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyTraceConfig(cmd, appConfig, &opts)
			applySimulatorConfig(cmd, appConfig, &runner)

			run, err := generate(ctx, opts)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			log.Info("running simulator",
				"binary", runner.BinaryPath(),
				"commands", len(run.program.Commands),
			)
			res, err := runner.Run(ctx, run.program.Commands)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			layers := run.decode.Profile.Layers
			latency := res.DecodeLatency(layers)
			report := simulateReport{
				Model:      run.decode.Profile.Label,
				BatchSize:  run.decode.Params.BatchSize,
				ContextLen: run.decode.Params.ContextLen,
				Result:     res,
				LatencyNS:  latency.Nanoseconds(),
				Layers:     layers,
			}
			if latency > 0 {
				report.TokensPerS = float64(run.decode.Params.BatchSize) / latency.Seconds()
			}
			if jsonOutput {
				report.TraceSHA256 = trace.Digest(run.program.Commands)
				return printJSON(report)
			}

			fmt.Printf("model:          %s (batch %d, context %d)\n", report.Model, report.BatchSize, report.ContextLen)
			fmt.Printf("commands:       %d\n", res.Commands)
			fmt.Printf("cycles:         %d per layer\n", res.Cycles)
			fmt.Printf("decode latency: %s (%d layers)\n", latency, layers)
			fmt.Printf("throughput:     %.2f tokens/s\n", report.TokensPerS)
			fmt.Printf("wall time:      %s\n", res.Elapsed)
			return nil
		},
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/agentx/internal/logger"
	"github.com/samcharles93/agentx/internal/pim"
	"github.com/samcharles93/agentx/internal/profile"
	"github.com/samcharles93/agentx/internal/simulator"
	"github.com/samcharles93/agentx/internal/trace"
)

func traceCmd() *cli.Command {
	var (
		opts        traceOptions
		output      string
		summaryJSON bool
	)

	return &cli.Command{
		Name:  "trace",
		Usage: "Generate the PIM command trace of one decode step",
		Flags: append(traceFlags(&opts),
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "trace file to write",
				Value:       simulator.DefaultTraceName,
				Destination: &output,
			},
			&cli.BoolFlag{
				Name:        "summary-json",
				Usage:       "print the trace summary as JSON on stdout",
				Destination: &summaryJSON,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyTraceConfig(cmd, appConfig, &opts)

			run, err := generate(ctx, opts)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if err := trace.WriteFile(output, run.program.Commands); err != nil {
				return cli.Exit(fmt.Sprintf("error: write trace: %v", err), 1)
			}
			log.Info("trace written",
				"path", output,
				"model", run.decode.Profile.Label,
				"commands", len(run.program.Commands),
				"barriers", run.program.Barriers,
				"final_offset", fmt.Sprintf("%#x", run.program.FinalOffset),
			)

			if summaryJSON {
				return printJSON(pim.Summarize(run.decode, run.cfg, run.program))
			}
			return nil
		},
	}
}

type generation struct {
	decode  profile.Decode
	cfg     pim.Config
	program *pim.Program
}

func generate(ctx context.Context, opts traceOptions) (generation, error) {
	log := logger.FromContext(ctx)

	decode, err := profile.DecodeShapes(opts.modelSize, opts.params())
	if err != nil {
		return generation{}, err
	}
	cfg, err := pimConfig(appConfig, opts.dtypeBytes)
	if err != nil {
		return generation{}, err
	}

	start := time.Now()
	prog, err := pim.Generate(ctx, decode, cfg)
	if err != nil {
		var capErr *pim.CapacityError
		if errors.As(err, &capErr) {
			log.Error("trace does not fit in one channel",
				"pass", capErr.Pass,
				"offset", capErr.FinalOffset,
				"capacity", capErr.Capacity,
			)
		}
		return generation{}, err
	}
	log.Debug("trace generated",
		"model", decode.Profile.Label,
		"batch_size", decode.Params.BatchSize,
		"context_len", decode.Params.ContextLen,
		"compute", prog.Compute(),
		"elapsed", time.Since(start),
	)
	return generation{decode: decode, cfg: cfg, program: prog}, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: encode json: %v", err), 1)
	}
	_, err = fmt.Fprintln(os.Stdout, string(data))
	return err
}

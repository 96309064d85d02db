package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/agentx/internal/trace"
)

type inspectReport struct {
	Path   string      `json:"path"`
	Stats  trace.Stats `json:"stats"`
	SHA256 string      `json:"sha256"`
}

func inspectCmd() *cli.Command {
	var jsonOutput bool

	return &cli.Command{
		Name:      "inspect",
		Usage:     "Summarize an existing trace file",
		ArgsUsage: "<trace>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the summary as JSON",
				Destination: &jsonOutput,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return cli.Exit("error: trace path is required", 1)
			}
			cmds, sum, err := readTraceFileDigest(path)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			report := inspectReport{Path: path, Stats: trace.Summarize(cmds), SHA256: sum}
			if jsonOutput {
				return printJSON(report)
			}

			fmt.Printf("trace:       %s\n", report.Path)
			fmt.Printf("commands:    %d\n", report.Stats.Total)
			fmt.Printf("  %-10s %d\n", trace.MACAB, report.Stats.MACAB)
			fmt.Printf("  %-10s %d\n", trace.Barrier, report.Stats.Barriers)
			if report.Stats.Total > 0 {
				fmt.Printf("addr range:  %#010x - %#010x\n", report.Stats.MinAddr, report.Stats.MaxAddr)
			}
			fmt.Printf("sha256:      %s\n", report.SHA256)
			return nil
		},
	}
}

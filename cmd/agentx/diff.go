package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/agentx/internal/trace"
)

func diffCmd() *cli.Command {
	var jsonOutput bool

	return &cli.Command{
		Name:      "diff",
		Usage:     "Compare two trace files command by command",
		ArgsUsage: "<a.trace> <b.trace>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the comparison as JSON",
				Destination: &jsonOutput,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return cli.Exit("error: diff needs exactly two trace paths", 1)
			}
			pathA, pathB := cmd.Args().Get(0), cmd.Args().Get(1)
			a, err := readTraceFile(pathA)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			b, err := readTraceFile(pathB)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			d := trace.Compare(a, b)
			if jsonOutput {
				if err := printJSON(d); err != nil {
					return err
				}
			} else {
				fmt.Printf("A=%s commands=%d macab=%d barriers=%d\n", pathA, d.StatsA.Total, d.StatsA.MACAB, d.StatsA.Barriers)
				fmt.Printf("B=%s commands=%d macab=%d barriers=%d\n", pathB, d.StatsB.Total, d.StatsB.MACAB, d.StatsB.Barriers)
				if d.Equal() {
					fmt.Println("traces are identical")
					return nil
				}
				fmt.Printf("first difference at command %d (line %d)\n", d.First, d.First+1)
				fmt.Printf("  A: %s\n", describe(d.A))
				fmt.Printf("  B: %s\n", describe(d.B))
				fmt.Printf("%d mismatched command(s)\n", d.Mismatches)
			}
			if !d.Equal() {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

func describe(c *trace.Command) string {
	if c == nil {
		return "<end of trace>"
	}
	return strings.TrimSuffix(c.String(), "\n")
}

func readTraceFile(path string) ([]trace.Command, error) {
	cmds, _, err := readTraceFileDigest(path)
	return cmds, err
}

// readTraceFileDigest also returns the sha256 of the file's bytes.
func readTraceFileDigest(path string) ([]trace.Command, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open trace: %w", err)
	}
	defer func() { _ = f.Close() }()
	cmds, sum, err := trace.ReadDigest(f)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return cmds, sum, nil
}

package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/agentx/internal/profile"
)

func profilesCmd() *cli.Command {
	var jsonOutput bool

	return &cli.Command{
		Name:    "profiles",
		Aliases: []string{"models"},
		Usage:   "List the built-in model profiles",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the catalog as JSON",
				Destination: &jsonOutput,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			profiles := profile.All()
			if jsonOutput {
				return printJSON(profiles)
			}

			fmt.Printf("  %-6s %6s %7s %7s %5s %8s %6s\n", "MODEL", "LAYERS", "D_MODEL", "D_FF", "HEADS", "KV_HEADS", "D_HEAD")
			for _, p := range profiles {
				fmt.Printf("  %-6s %6d %7d %7d %5d %8d %6d\n", p.Label, p.Layers, p.DModel, p.DFF, p.Heads, p.KVHeads, p.DHead)
			}
			return nil
		},
	}
}

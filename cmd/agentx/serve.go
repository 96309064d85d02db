package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/agentx/internal/api"
	"github.com/samcharles93/agentx/internal/logger"
	"github.com/samcharles93/agentx/internal/pim"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
		storeLimit  int64
		dtypeBytes  int64
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve trace generation over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.Int64Flag{
				Name:        "store-limit",
				Usage:       "generated traces kept in memory",
				Value:       api.DefaultStoreLimit,
				Destination: &storeLimit,
			},
			&cli.Int64Flag{
				Name:        "dtype-bytes",
				Usage:       "default weight element width in bytes",
				Value:       pim.DefaultElementBytes,
				Destination: &dtypeBytes,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyServeConfig(cmd, appConfig, &addr)
			if appConfig.DTypeBytes != nil && !cmd.IsSet("dtype-bytes") {
				dtypeBytes = *appConfig.DTypeBytes
			}

			cfg, err := pimConfig(appConfig, dtypeBytes)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			server := api.NewServer(api.NewTraceStore(int(storeLimit)), cfg, log)
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr, "address_space", cfg.Topology.AddressSpace())
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}

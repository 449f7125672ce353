// Package servecmder provides the serve command running the papers API, the
// MCP endpoint and the ingestion scheduler in one process.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/papers/api"
	"github.com/papercomputeco/papers/api/mcp"
	"github.com/papercomputeco/papers/pkg/config"
	"github.com/papercomputeco/papers/pkg/logger"
	"github.com/papercomputeco/papers/pkg/schedule"
	"github.com/papercomputeco/papers/pkg/services"
)

type ServeCommander struct {
	cfg       *config.Config
	configDir string
	debug     bool
	jsonLogs  bool
	logFile   string
	logger    *slog.Logger
}

const serveLongDesc string = `Run papers services.

Starts the HTTP API (search and ingestion endpoints), the MCP endpoint at /mcp
exposing the arxiv_search tool, and, when a corpus is configured, the
ingestion scheduler. With --interval set, a batch of --count papers is
ingested on every tick; POST /v1/ingest triggers a batch on demand.

Examples:
  papers serve --corpus ./arxiv-metadata-oai-snapshot.json --interval 10m
  papers serve --listen :9090 --vector-store-provider qdrant --vector-store-target localhost:6334`

const serveShortDesc string = "Run papers services"

var serveFlags = []string{
	config.FlagAPIListen,
	config.FlagCorpus,
	config.FlagCount,
	config.FlagConcurrency,
	config.FlagInterval,
	config.FlagCheckpointName,
	config.FlagKafkaBrokers,
}

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Resolve(cmd, config.Flags, append(serveFlags, config.ServiceFlags...))
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cmder.cfg = cfg
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			consoleLogger := logger.New(
				logger.WithDebug(cmder.debug),
				logger.WithSource(cmder.debug),
				logger.WithComponent("serve"),
				logger.WithJSON(cmder.jsonLogs),
				logger.WithPretty(!cmder.jsonLogs),
				logger.WithWriter(cmd.ErrOrStderr()),
			)
			cmder.logger = consoleLogger

			if cmder.logFile != "" {
				f, err := os.OpenFile(cmder.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
				if err != nil {
					return fmt.Errorf("opening log file: %w", err)
				}
				defer f.Close()

				cmder.logger = logger.Multi(consoleLogger, logger.New(
					logger.WithDebug(cmder.debug),
					logger.WithSource(cmder.debug),
					logger.WithComponent("serve"),
					logger.WithJSON(true),
					logger.WithWriter(f),
				))
			}

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, new(string))
	config.AddStringFlag(cmd, config.Flags, config.FlagCorpus, new(string))
	config.AddUintFlag(cmd, config.Flags, config.FlagCount, new(uint))
	config.AddUintFlag(cmd, config.Flags, config.FlagConcurrency, new(uint))
	config.AddStringFlag(cmd, config.Flags, config.FlagInterval, new(string))
	config.AddStringFlag(cmd, config.Flags, config.FlagCheckpointName, new(string))
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaBrokers, new(string))
	config.AddServiceFlags(cmd)
	cmd.Flags().BoolVar(&cmder.jsonLogs, "json-logs", false, "Write console logs as JSON")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	return cmd
}

// run serves until ctx is cancelled, a termination signal arrives, or the
// API server fails.
func (c *ServeCommander) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	interval, err := c.cfg.Ingest.IntervalDuration()
	if err != nil {
		return err
	}

	svc, err := services.Build(ctx, &services.Options{
		Config:    c.cfg,
		ConfigDir: c.configDir,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}
	defer svc.Close()

	mcpServer, err := mcp.NewServer(mcp.Config{
		Searcher: svc.Engine,
		Logger:   c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	apiConfig := api.Config{
		ListenAddr:         c.cfg.API.Listen,
		Searcher:           svc.Engine,
		DefaultTargetCount: int(c.cfg.Ingest.TargetCount),
		MCPHandler:         mcpServer.Handler(),
	}

	pipeline, err := svc.Pipeline()
	switch {
	case errors.Is(err, services.ErrNoCorpus):
		c.logger.Warn("no corpus source configured, ingestion disabled")
	case err != nil:
		return err
	default:
		sched, err := schedule.NewScheduler(&schedule.Config{
			Runner:      pipeline,
			Interval:    interval,
			TargetCount: int(c.cfg.Ingest.TargetCount),
			Logger:      c.logger,
		})
		if err != nil {
			return err
		}
		sched.Start(ctx)
		defer sched.Close()

		apiConfig.Ingester = sched
		apiConfig.Progress = pipeline

		c.logger.Info("ingestion enabled",
			"source", c.cfg.Corpus.Source,
			"interval", interval,
			"target_count", c.cfg.Ingest.TargetCount,
		)
	}

	server := api.NewServer(apiConfig, c.logger)

	// Channel to capture errors from the server goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
	case <-ctx.Done():
		c.logger.Info("context done, shutting down")
	}

	return server.Shutdown()
}

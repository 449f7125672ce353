// Package ingestcmder provides the ingest command for advancing the corpus
// checkpoint by embedding and storing the next batch of papers.
package ingestcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/papers/pkg/cliui"
	"github.com/papercomputeco/papers/pkg/config"
	"github.com/papercomputeco/papers/pkg/corpus"
	"github.com/papercomputeco/papers/pkg/ingest"
	"github.com/papercomputeco/papers/pkg/logger"
	"github.com/papercomputeco/papers/pkg/schedule"
	"github.com/papercomputeco/papers/pkg/services"
)

type ingestCommander struct {
	cfg       *config.Config
	configDir string
	watch     bool
	follow    bool
	debug     bool

	out    io.Writer
	logger *slog.Logger
}

const ingestLongDesc string = `Ingest the next batch of papers from the corpus.

Reads the stored checkpoint, streams the corpus from that line, and embeds and
stores up to --count new papers. Papers already in the record store are skipped
as duplicates, so re-running after a failure is safe.

Use --watch to keep running and ingest a batch every --interval. With --follow,
a batch also runs whenever the local corpus file changes.

Examples:
  papers ingest --corpus ./arxiv-metadata-oai-snapshot.json --count 25
  papers ingest --watch --interval 10m
  papers ingest --watch --follow --corpus ./corpus.jsonl
  papers ingest status
  papers ingest reset 0`

const ingestShortDesc string = "Ingest the next batch of papers"

var ingestFlags = []string{
	config.FlagCorpus,
	config.FlagCount,
	config.FlagConcurrency,
	config.FlagInterval,
	config.FlagCheckpointName,
	config.FlagKafkaBrokers,
}

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.resolve(cmd, ingestFlags)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return cmder.run(ctx)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagCorpus, new(string))
	config.AddUintFlag(cmd, config.Flags, config.FlagCount, new(uint))
	config.AddUintFlag(cmd, config.Flags, config.FlagConcurrency, new(uint))
	config.AddStringFlag(cmd, config.Flags, config.FlagInterval, new(string))
	config.AddStringFlag(cmd, config.Flags, config.FlagCheckpointName, new(string))
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaBrokers, new(string))
	config.AddServiceFlags(cmd)
	cmd.Flags().BoolVarP(&cmder.watch, "watch", "w", false, "Keep running and ingest a batch every interval")
	cmd.Flags().BoolVar(&cmder.follow, "follow", false, "With --watch, also ingest when the local corpus file changes")

	cmd.AddCommand(newResetCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

// resolve loads the effective configuration and the command's logger.
func (c *ingestCommander) resolve(cmd *cobra.Command, keys []string) error {
	cfg, err := config.Resolve(cmd, config.Flags, append(keys, config.ServiceFlags...))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	c.cfg = cfg
	c.configDir, _ = cmd.Flags().GetString("config-dir")
	c.debug, _ = cmd.Flags().GetBool("debug")
	c.out = cmd.OutOrStdout()
	c.logger = logger.New(
		logger.WithPretty(true),
		logger.WithDebug(c.debug),
		logger.WithSource(c.debug),
		logger.WithComponent("ingest"),
		logger.WithWriter(cmd.ErrOrStderr()),
	)
	return nil
}

func (c *ingestCommander) pipeline(ctx context.Context) (*services.Services, *ingest.Pipeline, error) {
	svc, err := services.Build(ctx, &services.Options{
		Config:    c.cfg,
		ConfigDir: c.configDir,
		Logger:    c.logger,
	})
	if err != nil {
		return nil, nil, err
	}

	pipeline, err := svc.Pipeline()
	if err != nil {
		_ = svc.Close()
		return nil, nil, err
	}
	return svc, pipeline, nil
}

func (c *ingestCommander) run(ctx context.Context) error {
	svc, pipeline, err := c.pipeline(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	target := int(c.cfg.Ingest.TargetCount)

	if c.watch {
		return c.runWatch(ctx, pipeline, target)
	}

	var summary *ingest.Summary
	err = cliui.Step(c.out, fmt.Sprintf("Ingesting up to %d papers", target), func() error {
		var runErr error
		summary, runErr = pipeline.RunBatch(ctx, target)
		return runErr
	})
	if summary != nil {
		c.printSummary(summary)
	}
	return err
}

// runWatch runs a batch immediately and then every interval, or on every
// corpus file change with --follow, until ctx is cancelled.
func (c *ingestCommander) runWatch(ctx context.Context, pipeline *ingest.Pipeline, target int) error {
	interval, err := c.cfg.Ingest.IntervalDuration()
	if err != nil {
		return err
	}
	if interval <= 0 && !c.follow {
		return errors.New("--watch requires --interval or ingest.interval")
	}

	var src corpus.Source
	if c.follow {
		src, err = corpus.NewSource(c.cfg.Corpus.Source)
		if err != nil {
			return err
		}
		if _, ok := src.(*corpus.FileSource); !ok {
			return fmt.Errorf("--follow: %w", corpus.ErrNotWatchable)
		}
	}

	sched, err := schedule.NewScheduler(&schedule.Config{
		Runner:      pipeline,
		Interval:    interval,
		TargetCount: target,
		RunOnStart:  true,
		OnComplete: func(summary *ingest.Summary, err error) {
			if summary != nil {
				c.printSummary(summary)
			}
			if err != nil {
				c.logger.Error("ingestion run failed", "error", err)
			}
		},
		Logger: c.logger,
	})
	if err != nil {
		return err
	}

	c.logger.Info("watching corpus", "source", c.cfg.Corpus.Source, "interval", interval, "follow", c.follow, "target_count", target)
	sched.Start(ctx)
	defer sched.Close()

	if src != nil {
		go func() {
			err := corpus.Watch(ctx, src, func() {
				c.logger.Debug("corpus changed", "source", src.String())
				sched.Trigger(target)
			})
			if err != nil {
				c.logger.Error("corpus watcher stopped", "error", err)
			}
		}()
	}

	<-ctx.Done()
	c.logger.Info("stopping ingestion")
	return nil
}

func (c *ingestCommander) printSummary(s *ingest.Summary) {
	fmt.Fprintf(c.out, "\n  %s\n", cliui.HeaderStyle.Render(s.Message()))
	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render(fmt.Sprintf(
		"duplicates %d  skipped %d  malformed %d  failed %d  lines %d  (%s)",
		s.Duplicates, s.Skipped, s.Malformed, s.Failed, s.LinesConsumed, cliui.FormatDuration(s.Duration),
	)))
}

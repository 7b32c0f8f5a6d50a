package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/briefwire/briefwire/pkg/breaker"
	"github.com/briefwire/briefwire/pkg/config"
	"github.com/briefwire/briefwire/pkg/content"
	"github.com/briefwire/briefwire/pkg/dedup"
	"github.com/briefwire/briefwire/pkg/domain"
	"github.com/briefwire/briefwire/pkg/feed"
	"github.com/briefwire/briefwire/pkg/llm"
	"github.com/briefwire/briefwire/pkg/queue"
	"github.com/briefwire/briefwire/pkg/quota"
	"github.com/briefwire/briefwire/pkg/repository"
	"github.com/briefwire/briefwire/pkg/scheduler"
	"github.com/briefwire/briefwire/server"
)

// Opts with all CLI options
type Opts struct {
	Config string `short:"c" long:"config" env:"CONFIG" default:"briefwire.yml" description:"config file path"`

	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	setupLog(opts.Debug, opts.NoColor)
	lgr.Printf("[INFO] starting briefwire version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		lgr.Printf("[INFO] termination signal received")
		cancel()
	}()

	if err := run(ctx, opts); err != nil {
		lgr.Printf("[ERROR] %v", err)
		cancel()
		os.Exit(1)
	}
	cancel()
	lgr.Printf("[INFO] shutdown complete")
}

func run(ctx context.Context, opts Opts) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.LLM.APIKey != "" { // mask the key in logs
		setupLog(opts.Debug, opts.NoColor, cfg.LLM.APIKey)
	}

	repos, err := repository.NewRepositories(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := repos.Close(); err != nil {
			lgr.Printf("[WARN] database close failed: %v", err)
		}
	}()

	if err := repos.Source.SeedSources(ctx, configuredSources(cfg)); err != nil {
		return fmt.Errorf("seed sources: %w", err)
	}

	sched := buildScheduler(cfg, repos)
	sched.Start(ctx)
	defer sched.Stop()

	srv := server.New(cfg, sched, repos.Brief, repos.Source, repos.Log, revision, opts.Debug)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// buildScheduler wires the pipeline components together
func buildScheduler(cfg *config.Config, repos *repository.Repositories) *scheduler.Scheduler {
	deps := scheduler.Deps{
		Sources:  repos.Source,
		Articles: repos.Article,
		Briefs:   repos.Brief,
		Logs:     repos.Log,
		Fetcher:  feed.NewFetcher(cfg.Fetch),
		Rewriter: llm.NewRewriter(cfg.GetLLMConfig(), cfg.GetBriefConfig()),
		Novelty:  dedup.NewNoveltyFilter(repos.Article),
		Breakers: breaker.NewRegistry(),
		Holding:  queue.NewHolding(10*cfg.Quota.DailyLimit, func(a domain.Article) float64 { return dedup.Score(a, time.Now()) }),
		Dedup:    dedup.NewDeduplicator(),
		Quota:    quota.NewDistributor(cfg.Quota),
	}
	if cfg.Extraction.Enabled {
		deps.Enricher = content.NewExtractor(cfg.Extraction.Timeout, cfg.Extraction.MinTextLength, cfg.Extraction.UserAgent)
	}

	return scheduler.NewScheduler(deps, scheduler.Config{
		SweepInterval: cfg.Schedule.SweepInterval,
		BatchInterval: cfg.Schedule.BatchInterval,
		StartupDelay:  cfg.Schedule.StartupDelay,
		BatchDeadline: cfg.Schedule.BatchDeadline,
		MaxWorkers:    cfg.Schedule.MaxWorkers,
		Model:         cfg.LLM.Model,
		PromptVersion: cfg.LLM.PromptVersion,
	})
}

// configuredSources converts config entries to domain sources
func configuredSources(cfg *config.Config) []domain.Source {
	sources := make([]domain.Source, len(cfg.Sources))
	for i, s := range cfg.Sources {
		sources[i] = domain.Source{
			ID:       s.ID,
			Name:     s.Name,
			URL:      s.URL,
			Category: domain.Category(s.Category),
			Active:   s.Active,
		}
	}
	return sources
}

func setupLog(dbg, noColor bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	if !noColor {
		colorizer := lgr.Mapper{
			ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
			WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
			InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
			DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
			CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
			TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
		}
		logOpts = append(logOpts, lgr.Map(colorizer))
	}

	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}

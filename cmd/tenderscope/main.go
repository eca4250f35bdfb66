package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"
	"golang.org/x/sync/errgroup"

	"github.com/umputun/tenderscope/pkg/aggregate"
	"github.com/umputun/tenderscope/pkg/classify"
	"github.com/umputun/tenderscope/pkg/config"
	"github.com/umputun/tenderscope/pkg/content"
	"github.com/umputun/tenderscope/pkg/digest"
	"github.com/umputun/tenderscope/pkg/history"
	"github.com/umputun/tenderscope/pkg/notify"
	"github.com/umputun/tenderscope/pkg/scheduler"
	"github.com/umputun/tenderscope/pkg/server"
	"github.com/umputun/tenderscope/pkg/source"
)

// Opts with all CLI options
type Opts struct {
	Config string `short:"f" long:"config" env:"CONFIG" default:"config.yml" description:"config file path"`
	Once   bool   `long:"once" description:"run a single pass and exit instead of scheduling"`

	// Common options
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

	cfg, err := config.Load(opts.Config)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	setupLog(opts.Debug, opts.NoColor, cfg.Email.SMTP.Password, cfg.Telegram.Token)

	lgr.Printf("[INFO] starting tenderscope version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		lgr.Printf("[INFO] termination signal received")
		cancel()
	}()

	if err := run(ctx, cfg, opts); err != nil {
		lgr.Printf("[ERROR] %v", err)
		os.Exit(1)
	}

	lgr.Printf("[INFO] shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, opts Opts) error {
	runner, closer, err := makeRunner(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer()

	if opts.Once {
		return runner.Run(ctx)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runner.Schedule(ctx, cfg.Schedule.Cron, cfg.Schedule.RunOnStart)
	})

	if cfg.Server.Listen != "" {
		srv := server.New(server.Config{
			Listen:  cfg.Server.Listen,
			Timeout: cfg.Server.Timeout,
			Status:  runner,
			Version: revision,
			Debug:   opts.Debug,
		})
		g.Go(func() error { return srv.Run(ctx) })
	}

	return g.Wait()
}

// makeRunner assembles the pipeline from configuration. The returned closer
// releases the history backend.
func makeRunner(ctx context.Context, cfg *config.Config) (*scheduler.Runner, func(), error) {
	fetcher := source.NewFetcher(cfg.Fetch.Timeout, cfg.Fetch.UserAgent)
	extractor := content.NewExtractor(cfg.Fetch.Timeout, cfg.Fetch.UserAgent)

	adapters, err := makeAdapters(cfg, fetcher, extractor)
	if err != nil {
		return nil, nil, err
	}

	store, closer, err := makeStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	notifiers := []scheduler.Notifier{notify.NewEmailSender(notify.EmailConfig{
		To:       cfg.Email.To,
		From:     cfg.Email.From,
		Host:     cfg.Email.SMTP.Host,
		Port:     cfg.Email.SMTP.Port,
		Username: cfg.Email.SMTP.Username,
		Password: cfg.Email.SMTP.Password,
		TLS:      cfg.Email.SMTP.TLS,
	})}

	if cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegramSender(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			closer()
			return nil, nil, fmt.Errorf("make telegram sender: %w", err)
		}
		notifiers = append(notifiers, tg)
	}

	runner := scheduler.NewRunner(scheduler.Config{
		Adapters: adapters,
		Aggregator: aggregate.New(classify.New(classify.Taxonomy{
			Tier1: cfg.Keywords.Tier1,
			Tier2: cfg.Keywords.Tier2,
		})),
		Store:        store,
		Renderer:     digest.NewRenderer(cfg.Email.Subject),
		Notifiers:    notifiers,
		FetchTimeout: cfg.Fetch.SourceTimeout,
		MaxWorkers:   cfg.Fetch.MaxConcurrent,
	})
	return runner, closer, nil
}

// makeAdapters builds source adapters from config, falling back to the
// built-in source list when none are configured.
func makeAdapters(cfg *config.Config, fetcher *source.Fetcher, extractor source.BodyExtractor) ([]scheduler.Adapter, error) {
	specs := source.DefaultSpecs()
	if len(cfg.Sources) > 0 {
		specs = specs[:0]
		for _, s := range cfg.Sources {
			if !s.IsEnabled() {
				lgr.Printf("[DEBUG] source %s disabled", s.Name)
				continue
			}
			specs = append(specs, source.Spec{Name: s.Name, Type: s.Type, URL: s.URL, DetailPages: s.DetailPages})
		}
	}

	adapters := make([]scheduler.Adapter, 0, len(specs))
	for _, spec := range specs {
		adapter, err := source.New(spec, fetcher, extractor)
		if err != nil {
			return nil, fmt.Errorf("make source %s: %w", spec.Name, err)
		}
		adapters = append(adapters, adapter)
	}

	lgr.Printf("[INFO] %d sources configured", len(adapters))
	return adapters, nil
}

// makeStore picks the history backend, sqlite when a DSN is set and the
// JSON file otherwise.
func makeStore(ctx context.Context, cfg *config.Config) (scheduler.HistoryStore, func(), error) {
	if cfg.History.DSN != "" {
		store, err := history.NewSQLiteStore(ctx, cfg.History.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open history db: %w", err)
		}
		lgr.Printf("[INFO] sqlite history at %s", cfg.History.DSN)
		return store, func() {
			if err := store.Close(); err != nil {
				lgr.Printf("[WARN] failed to close history db: %v", err)
			}
		}, nil
	}

	lgr.Printf("[INFO] file history at %s", cfg.History.Path)
	return history.NewFileStore(cfg.History.Path), func() {}, nil
}

func setupLog(dbg, noColor bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	if dbg {
		logOpts = append(logOpts, lgr.Debug, lgr.CallerFile, lgr.CallerFunc)
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

	secrets := []string{}
	for _, s := range secs {
		if s != "" {
			secrets = append(secrets, s)
		}
	}
	if len(secrets) > 0 {
		logOpts = append(logOpts, lgr.Secret(secrets...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}

package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/clearweb/clearweb/internal/config"
	"github.com/clearweb/clearweb/internal/service"
	"github.com/clearweb/clearweb/internal/web"
	"github.com/clearweb/clearweb/pkg/extractor"
	"github.com/clearweb/clearweb/pkg/fetcher"
	"github.com/clearweb/clearweb/pkg/langcheck"
	"github.com/clearweb/clearweb/pkg/llm"
	"github.com/clearweb/clearweb/pkg/safeurl"
	"github.com/clearweb/clearweb/pkg/simplify"
	"github.com/clearweb/clearweb/pkg/store"
)

func main() {
	app := &cli.App{
		Name:  "clearweb",
		Usage: "scrape web pages and rewrite them for easier reading",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP API",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "config", Usage: "path to YAML config file"},
					&cli.StringFlag{Name: "addr", Usage: "listen address (overrides config)"},
					&cli.StringFlag{Name: "db", Usage: "SQLite database path (overrides config)"},
					&cli.BoolFlag{Name: "quiet", Usage: "log errors only"},
				},
				Action: serveAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveAction(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("addr") {
		cfg.Addr = c.String("addr")
	}
	if c.IsSet("db") {
		cfg.DBPath = c.String("db")
	}

	logLevel := parseLevel(cfg.LogLevel)
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	client := llm.NewClient(
		llm.NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.Model),
		llm.NewAnthropic(cfg.Anthropic.APIKey, cfg.Anthropic.Model),
	)
	if !client.Available() {
		logger.Warn("no LLM provider configured; simplify and chat will fail")
	}

	var checker langcheck.Checker = langcheck.NewHeuristic()
	if cfg.LanguageChecker == config.CheckerLingua {
		checker = langcheck.NewLingua()
	}

	guard := safeurl.NewGuard(nil)
	fetch := fetcher.New(guard, fetcher.Config{Timeout: time.Duration(cfg.FetchTimeout)})
	gen := simplify.NewGenerator(client, checker,
		simplify.WithMaxRetries(cfg.MaxRetries),
		simplify.WithLogger(logger),
	)

	svc := service.New(fetch, extractor.New(extractor.Config{}), gen, client, st, logger)

	srv := web.NewServer(cfg.Addr, svc, cfg.AllowedOrigins, logger)
	return web.Run(srv, logger)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

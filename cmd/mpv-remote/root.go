package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"mpv-chat-remote/bot"
	"mpv-chat-remote/config"
	"mpv-chat-remote/logging"
	"mpv-chat-remote/mpv"
	"mpv-chat-remote/service"
	"mpv-chat-remote/storage"
	"mpv-chat-remote/twitch"
)

var (
	envFile  string
	logLevel string

	rootCmd = &cobra.Command{
		Use:           "mpv-remote",
		Short:         "Control mpv from Twitch chat",
		Long:          "mpv-remote joins a Twitch channel and turns !commands from authorized users into mpv IPC requests.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBot(cmd.Context())
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "optional file with KEY=value settings")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error); overrides LOG_LEVEL")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(sendCmd)
}

func newLogger(fallback string) zerolog.Logger {
	level := logLevel
	if level == "" {
		level = fallback
	}
	logger := logging.New(level)
	log.Logger = logger
	return logger
}

func runBot(parent context.Context) error {
	cfg, err := config.LoadFile(envFile)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	logger := newLogger(cfg.LogLevel)

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	transport := mpv.NewSocketTransport(cfg.MPV.SocketPath, cfg.MPV.Timeout)
	player := mpv.NewClient(transport)

	registry := bot.NewRegistry()
	if err := bot.RegisterDefaults(registry, player, bot.Jokes, logging.Component(logger, "commands")); err != nil {
		return err
	}
	dispatcher := bot.NewDispatcher(registry, bot.NewUserSet(cfg.AuthorizedUsers), nil, logging.Component(logger, "dispatch"))

	if cfg.Postgres.Enabled() {
		stop, err := startJournal(ctx, cfg, dispatcher, logging.Component(logger, "journal"))
		if err != nil {
			return err
		}
		defer stop()
	}

	client := twitch.NewClient(cfg.Twitch, cfg.Reply, logging.Component(logger, "twitch"))
	srv := service.New(client, dispatcher, logger)

	logger.Info().
		Str("channel", cfg.Twitch.Channel).
		Str("socket", transport.Path()).
		Msg("starting")

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("service run failed: %w", err)
	}

	logger.Info().Msg("shutting down")
	return nil
}

// startJournal connects to Postgres and attaches the journal to d. The returned
// func flushes pending rows and closes the pool.
func startJournal(ctx context.Context, cfg config.Config, d *bot.Dispatcher, logger zerolog.Logger) (func(), error) {
	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := storage.EnsureSchema(ctx, pool, cfg.Batch.FlushTimeout); err != nil {
		pool.Close()
		return nil, err
	}

	journalCtx, stopJournal := context.WithCancel(context.Background())
	journal := storage.NewJournal(journalCtx, pool, storage.BatchConfig{
		MaxBatch:      cfg.Batch.MaxBatch,
		FlushEvery:    cfg.Batch.FlushEvery,
		ChanBuffer:    cfg.Batch.ChanBuffer,
		StatsLogEvery: cfg.Batch.StatsLogEvery,
		FlushTimeout:  cfg.Batch.FlushTimeout,
	}, logger)
	d.SetJournal(journal)
	logger.Info().Str("host", cfg.Postgres.Host).Str("db", cfg.Postgres.DB).Msg("invocation journal enabled")

	return func() {
		stopJournal()
		<-journal.Done()
		pool.Close()
	}, nil
}

// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command bot is the entry point for the News Wizard Telegram bot.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Open durable session storage (file, Redis or PostgreSQL), sealed when a secret is set.
//  4. Load the message catalog and the language model prompts.
//  5. Wire the handshake core (store, controller, MTProto session factory).
//  6. Wire the digest pipeline and the daily scheduler.
//  7. Connect the Bot API transport and start long polling.
//  8. Start the probe server, then shut everything down on signal.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/taibuivan/newswizard/internal/api"
	"github.com/taibuivan/newswizard/internal/auth"
	"github.com/taibuivan/newswizard/internal/bot"
	"github.com/taibuivan/newswizard/internal/digest"
	"github.com/taibuivan/newswizard/internal/platform/config"
	"github.com/taibuivan/newswizard/internal/platform/constants"
	"github.com/taibuivan/newswizard/internal/platform/locale"
	"github.com/taibuivan/newswizard/internal/platform/migration"
	"github.com/taibuivan/newswizard/internal/platform/mtproto"
	"github.com/taibuivan/newswizard/internal/platform/openai"
	pgstore "github.com/taibuivan/newswizard/internal/platform/postgres"
	redisstore "github.com/taibuivan/newswizard/internal/platform/redis"
	"github.com/taibuivan/newswizard/internal/platform/sec"
	"github.com/taibuivan/newswizard/internal/platform/telegram"
	"github.com/taibuivan/newswizard/internal/scheduler"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("service_initializing", slog.String("version", constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("session_backend", cfg.SessionBackend),
		slog.Bool("session_sealed", cfg.SessionSecret != ""),
		slog.String("health_port", cfg.HealthPort),
	)

	// Startup deadline so misconfiguration is caught quickly.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. Session Storage ────────────────────────────────────────────────
	var (
		blobs auth.BlobStorage
		pool  *pgxpool.Pool
		rdb   *goredis.Client
	)

	switch cfg.SessionBackend {
	case config.BackendRedis:
		rdb, err = redisstore.NewClient(startupCtx, cfg.RedisURL, log)
		must(log, err, "connect to redis")
		blobs = auth.NewRedisBlobStorage(rdb)

	case config.BackendPostgres:
		pool, err = pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
		must(log, err, "connect to postgres")
		must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")
		blobs = auth.NewPostgresBlobStorage(pool)

	default:
		fileBlobs, ferr := auth.NewFileBlobStorage(cfg.SessionDir)
		must(log, ferr, "open session directory")
		blobs = fileBlobs
	}

	if cfg.SessionSecret != "" {
		sealer, serr := sec.NewSealer(cfg.SessionSecret)
		must(log, serr, "derive session key")
		blobs = auth.NewSealedBlobStorage(blobs, sealer)
	}

	// ── 4. Content Resources ──────────────────────────────────────────────
	catalog, err := locale.NewCatalog(cfg.LocaleDir)
	must(log, err, "load message catalog")

	prompts, err := openai.LoadPrompts(cfg.ResourcesDir)
	must(log, err, "load prompts")

	model := openai.New(cfg.OpenAIKey, cfg.OpenAIChatModel, prompts)

	// ── 5. Handshake Core ─────────────────────────────────────────────────
	sessions := mtproto.NewFactory(cfg.APIID, cfg.APIHash, blobs, log)
	store := auth.NewStore(locale.Resolve)
	controller := auth.NewController(sessions, model, catalog)

	// ── 6. Digest Pipeline ────────────────────────────────────────────────
	location := cfg.Location()

	sched := scheduler.New(
		scheduler.WithFireTime(scheduler.FireTime{Hour: cfg.FireHour, Minute: cfg.FireMinute}),
		scheduler.WithLocation(location),
		scheduler.WithLogger(log),
	)

	builder := digest.NewBuilder(digest.Config{
		TmpDir:   cfg.TmpDir,
		Lookback: cfg.Lookback,
		Pacing:   constants.ChannelPacing,
		Location: location,
	}, model, model, log)

	// ── 7. Bot Transport ──────────────────────────────────────────────────
	messenger, err := telegram.New(cfg.BotToken, cfg.Debug, log)
	must(log, err, "connect to bot api")

	service := bot.NewService(store, controller, builder, sched, messenger, catalog, log)
	dispatcher := bot.NewDispatcher(service, log)

	// Root context: cancelled on SIGINT/SIGTERM. Scheduled jobs live as long as it does.
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		messenger.Poll(rootCtx, dispatcher.Dispatch)
	}()

	// ── 8. Probe Server ───────────────────────────────────────────────────
	server := api.NewServer(rootCtx, cfg.HealthPort, log, store,
		api.Check{Name: "session_storage", Ping: blobs.Ping},
		api.Check{Name: "bot_api", Ping: messenger.Ping},
	)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	log.Info("service_started")

	// Block until OS signal, probe server failure or the update stream ending.
	select {
	case <-rootCtx.Done():
		log.Info("shutdown_signal_received")
	case err := <-serverErr:
		log.Error("probe_server_failed", slog.Any("error", err))
	case <-pollDone:
		log.Error("update_stream_closed")
	}
	stop()

	// ── Graceful Shutdown ─────────────────────────────────────────────────
	log.Info("shutting_down", slog.Duration("timeout", constants.ShutdownTimeout))

	if err := server.Shutdown(constants.ShutdownTimeout); err != nil {
		log.Error("probe_server_shutdown_failed", slog.Any("error", err))
	}

	<-pollDone
	dispatcher.Wait()
	sched.Wait()

	// Nothing holds an entry any more; close the live provider connections.
	store.Range(func(entry *auth.Entry) bool {
		if session := entry.Machine().Session(); session != nil {
			if err := session.Close(); err != nil {
				log.Warn("credential_session_close_failed",
					slog.Int64(constants.FieldUserID, entry.UserID()),
					slog.Any("error", err),
				)
			}
		}
		return true
	})

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Error("redis_close_failed", slog.Any("error", err))
		}
	}
	if pool != nil {
		pool.Close()
	}

	log.Info("service_stopped_cleanly")
}

// newLogger builds the JSON logger shared by every component.
func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("app", constants.AppName))
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned and
// handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}

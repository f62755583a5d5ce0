package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/rs/zerolog"

	"github.com/darkarnold/task-manager-api/internal/api"
	"github.com/darkarnold/task-manager-api/internal/api/handler"
	"github.com/darkarnold/task-manager-api/internal/core/ports"
	"github.com/darkarnold/task-manager-api/internal/core/service"
	"github.com/darkarnold/task-manager-api/internal/infrastructure/db/memory"
	mongostore "github.com/darkarnold/task-manager-api/internal/infrastructure/db/mongo"
	redisstore "github.com/darkarnold/task-manager-api/internal/infrastructure/db/redis"
	"github.com/darkarnold/task-manager-api/internal/infrastructure/notify"
	"github.com/darkarnold/task-manager-api/internal/infrastructure/queue"
	"github.com/darkarnold/task-manager-api/internal/pkg/config"
	"github.com/darkarnold/task-manager-api/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

// stores bundles the persistence adapters selected by STORE.
type stores struct {
	users  ports.UserRepository
	tasks  ports.TaskRepository
	dedup  ports.ReminderDedup
	checks map[string]handler.HealthCheck
	close  func(ctx context.Context) error
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger is not configured yet.
		boot := logger.Init(logger.Options{})
		boot.Fatal().Err(err).Msg("load config")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		File:    cfg.LogFile,
		Service: "task-manager-api",
		Env:     cfg.Env,
	})

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.Store).Msg("open stores")
	}

	var mailer ports.NotificationSender = notify.NewLogSender(logger.Component("mail-log"))
	if cfg.SMTP.Host != "" {
		mailer = notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}, logger.Component("smtp"))
	}
	dispatcher := queue.NewDispatcher(cfg.SMTP.Workers, mailer, logger.Component("notify-queue"))
	dispatcher.Start(ctx)

	clock := service.SystemClock{}
	hasher := service.NewPasswordHasher(cfg.BcryptCost)
	codec := service.NewTokenCodec(cfg.JWTSecret, clock)

	authService := service.NewAuthService(st.users, codec, hasher, clock, cfg.JWTExpiry, logger.Component("auth"))
	taskService := service.NewTaskService(st.tasks, st.users, clock, logger.Component("tasks"))
	resetService := service.NewPasswordResetService(st.users, dispatcher, hasher, clock, cfg.FrontendURL,
		logger.Component("password-reset"))
	reminders := service.NewReminderService(st.tasks, st.users, st.dedup, dispatcher, clock, cfg.Reminder.Window,
		logger.Component("reminders"))

	e := api.NewRouter(api.Dependencies{
		Tokens:       codec,
		Auth:         authService,
		Tasks:        taskService,
		Resets:       resetService,
		HealthChecks: st.checks,
		Log:          logger.Component("http"),
	})

	reminderCtx, stopReminders := context.WithCancel(ctx)
	go reminders.Run(reminderCtx, cfg.Reminder.Interval)

	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.Store).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		ctx,
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			// Ordered: stop intake, drain queued mail, then close the stores.
			"api": func(ctx context.Context) error {
				httpErr := e.Shutdown(ctx)
				stopReminders()
				queueErr := dispatcher.Stop(ctx)
				return errors.Join(httpErr, queueErr, st.close(ctx))
			},
		},
	)

	exitCode := <-wait
	log.Info().Int("exit_code", exitCode).Msg("shutdown complete")
	os.Exit(exitCode)
}

// openStores connects the configured backend. Mongo needs Redis for reminder
// dedup; the memory backend keeps dedup in process.
func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	if cfg.Store == config.StoreMemory {
		log.Warn().Msg("using in-memory stores; data is lost on restart")
		return &stores{
			users:  memory.NewUserRepository(),
			tasks:  memory.NewTaskRepository(),
			dedup:  memory.NewReminderDedup(),
			checks: map[string]handler.HealthCheck{},
			close:  func(context.Context) error { return nil },
		}, nil
	}

	client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return nil, err
	}
	if err := mongostore.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	log.Info().Str("db", cfg.Mongo.Database).Str("redis", cfg.Redis.Addr).Msg("stores connected")
	return &stores{
		users: mongostore.NewUserRepository(db),
		tasks: mongostore.NewTaskRepository(db),
		dedup: redisstore.NewReminderDedup(rdb, 0),
		checks: map[string]handler.HealthCheck{
			"mongodb": func(ctx context.Context) error { return mongostore.Ping(ctx, db) },
			"redis":   func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		close: func(ctx context.Context) error {
			return errors.Join(rdb.Close(), client.Disconnect(ctx))
		},
	}, nil
}

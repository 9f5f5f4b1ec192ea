package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/billingkit/internal/api"
	"github.com/dmitrymomot/billingkit/internal/catalog"
	"github.com/dmitrymomot/billingkit/internal/domain"
	"github.com/dmitrymomot/billingkit/internal/gateway"
	"github.com/dmitrymomot/billingkit/internal/ledger"
	"github.com/dmitrymomot/billingkit/internal/mailer"
	"github.com/dmitrymomot/billingkit/internal/payment"
	"github.com/dmitrymomot/billingkit/internal/reminder"
	"github.com/dmitrymomot/billingkit/internal/storage"
	"github.com/dmitrymomot/billingkit/pkg/config"
	"github.com/dmitrymomot/billingkit/pkg/httpserver"
	"github.com/dmitrymomot/billingkit/pkg/logger"
	"github.com/dmitrymomot/billingkit/pkg/pg"
	"github.com/dmitrymomot/billingkit/pkg/redis"
)

type appConfig struct {
	Environment string        `env:"APP_ENV" envDefault:"development"`
	SweepEvery  time.Duration `env:"REMINDER_SWEEP_INTERVAL" envDefault:"1h"`
	RedisLock   bool          `env:"REMINDER_REDIS_LOCK" envDefault:"false"`
}

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("service stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var appCfg appConfig
	config.MustLoad(&appCfg)

	log := logger.New(
		logger.WithEnvironment(appCfg.Environment, "billingd"),
	)
	logger.SetAsDefault(log)

	var pgCfg pg.Config
	config.MustLoad(&pgCfg)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return err
	}

	store := storage.NewPostgres(pool)

	// Mailer: Postmark when a server token is configured, file-based
	// otherwise so local runs work without credentials.
	var mailCfg mailer.Config
	config.MustLoad(&mailCfg)

	var sender mailer.Sender
	if mailCfg.PostmarkServerToken != "" {
		sender, err = mailer.NewPostmarkSender(mailCfg)
		if err != nil {
			return err
		}
	} else {
		sender = mailer.NewDevSender(mailCfg.DevOutputDir)
		log.Info("postmark token not set, writing emails to disk",
			slog.String("dir", mailCfg.DevOutputDir))
	}

	var gwCfg gateway.Config
	config.MustLoad(&gwCfg)

	gw, err := gateway.NewStripeGateway(gwCfg)
	if err != nil {
		return err
	}

	plans := catalog.New(store, log)
	if err := plans.EnsureDefaults(ctx, domain.DefaultPlanKinds); err != nil {
		return err
	}

	subscriptions := ledger.New(store, log)
	payments := payment.New(store, gw, sender, log)

	sweeperOpts := []reminder.Option{}
	healthChecks := []func(context.Context) error{pg.Healthcheck(pool)}

	// The redis lock keeps concurrent instances from double-sweeping.
	if appCfg.RedisLock {
		var redisCfg redis.Config
		config.MustLoad(&redisCfg)

		redisClient, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer redisClient.Close()

		sweeperOpts = append(sweeperOpts,
			reminder.WithLocker(reminder.NewRedisLock(redisClient, "", 0)))
		healthChecks = append(healthChecks, redis.Healthcheck(redisClient))
	}

	sweeper := reminder.NewSweeper(store, sender, log, sweeperOpts...)
	runner := reminder.NewRunner(sweeper, reminder.EveryInterval(appCfg.SweepEvery), log)

	var httpCfg httpserver.Config
	config.MustLoad(&httpCfg)

	handler := api.NewRouter(api.Deps{
		Catalog:  plans,
		Ledger:   subscriptions,
		Payments: payments,
		Reminder: sweeper,
		Log:      log,
		Health:   httpserver.HealthCheckHandler(ctx, log, healthChecks...),
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := runner.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return httpserver.New(httpCfg, log).Run(ctx, handler)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

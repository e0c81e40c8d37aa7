package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ogurasousui/talent-board/internal/adapters/integrations/convertkit"
	"github.com/ogurasousui/talent-board/internal/adapters/integrations/sendgrid"
	"github.com/ogurasousui/talent-board/internal/adapters/integrations/slack"
	"github.com/ogurasousui/talent-board/internal/adapters/repository/postgres"
	"github.com/ogurasousui/talent-board/internal/core/job"
	"github.com/ogurasousui/talent-board/internal/core/onboarding"
	"github.com/ogurasousui/talent-board/internal/core/person"
	"github.com/ogurasousui/talent-board/internal/core/tagsync"
	"github.com/ogurasousui/talent-board/internal/core/taxonomy"
	"github.com/ogurasousui/talent-board/internal/platform/config"
	pg "github.com/ogurasousui/talent-board/internal/platform/db/postgres"
	"github.com/ogurasousui/talent-board/internal/platform/logging"
	"github.com/ogurasousui/talent-board/internal/platform/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("worker stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "assets/local.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	logger := logging.New(os.Stdout, cfg.Log.Level)
	slog.SetDefault(logger)

	dbPool, err := pg.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer dbPool.Close()
	tx := pg.NewTransactionManager(dbPool, pg.WithStatementTimeout(cfg.Database.StatementTimeout))

	integrations := cfg.Integrations
	chat := slack.New(slack.Config{
		BaseURL:    integrations.Chat.BaseURL,
		Token:      integrations.Chat.Token,
		TeamID:     integrations.Chat.TeamID,
		ChannelIDs: integrations.Chat.ChannelIDs,
		Timeout:    integrations.Chat.Timeout,
	})
	list := convertkit.New(convertkit.Config{
		BaseURL:       integrations.MailingList.BaseURL,
		APIKey:        integrations.MailingList.Token,
		APISecret:     integrations.MailingList.APISecret,
		FormID:        integrations.MailingList.FormID,
		RatePerSecond: integrations.MailingList.RatePerSecond,
		Timeout:       integrations.MailingList.Timeout,
	})
	mail := sendgrid.New(sendgrid.Config{
		BaseURL: integrations.Email.BaseURL,
		APIKey:  integrations.Email.Token,
		From:    integrations.Email.From,
		Timeout: integrations.Email.Timeout,
	})

	personRepo := postgres.NewPersonRepository(dbPool)
	people := person.NewService(personRepo, nil, tx)
	effects := onboarding.NewSideEffects(personRepo, chat, list, mail, onboarding.SideEffectsConfig{
		NotifyChannel:     integrations.Chat.NotifyChannel,
		WelcomeTemplateID: integrations.Email.WelcomeTemplateID,
	}, logger)
	tags := tagsync.NewService(people, list, logger,
		tagsync.WithManagedTags(tagsync.Managed{
			Prefix: integrations.MailingList.ManagedTagPrefix,
			Names:  integrations.MailingList.ManagedTags,
		}),
		tagsync.WithMaxRetryWait(cfg.Worker.LeaseTimeout/2),
	)

	normalizer := taxonomy.NewNormalizer(postgres.NewTaxonomyRepository(dbPool), nil)
	jobs := job.NewService(postgres.NewJobRepository(dbPool), normalizer, nil, tx, job.WithExpiryAge(cfg.Worker.JobExpiryAge))

	pool := worker.NewPool(worker.NewPostgresStore(dbPool), map[string]worker.Handler{
		onboarding.SideEffectsTaskType: effects.Handle,
		tagsync.TaskType:               tags.Handle,
		person.OffboardTaskType:        effects.HandleOffboard,
	}, worker.Config{
		Workers:      cfg.Worker.Count,
		MaxAttempts:  cfg.Worker.MaxAttempts,
		PollInterval: cfg.Worker.PollInterval,
		Lease:        cfg.Worker.LeaseTimeout,
	}, logger)

	sweep := worker.NewScheduler("job-expiry", cfg.Worker.SweepInterval, func(ctx context.Context) error {
		n, err := jobs.ExpireStale(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.InfoContext(ctx, "expired stale jobs", slog.Int("count", n))
		}
		return nil
	}, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return pool.Run(gctx) })
	g.Go(func() error { return sweep.Run(gctx) })

	logger.Info("worker started", slog.Int("workers", cfg.Worker.Count))
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

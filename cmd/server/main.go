package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	rediscache "github.com/ogurasousui/talent-board/internal/adapters/cache/redis"
	"github.com/ogurasousui/talent-board/internal/adapters/http/handler"
	"github.com/ogurasousui/talent-board/internal/adapters/repository/postgres"
	"github.com/ogurasousui/talent-board/internal/core/company"
	"github.com/ogurasousui/talent-board/internal/core/job"
	"github.com/ogurasousui/talent-board/internal/core/matching"
	"github.com/ogurasousui/talent-board/internal/core/mentorship"
	"github.com/ogurasousui/talent-board/internal/core/onboarding"
	"github.com/ogurasousui/talent-board/internal/core/person"
	"github.com/ogurasousui/talent-board/internal/core/taxonomy"
	"github.com/ogurasousui/talent-board/internal/platform/config"
	pg "github.com/ogurasousui/talent-board/internal/platform/db/postgres"
	"github.com/ogurasousui/talent-board/internal/platform/logging"
	"github.com/ogurasousui/talent-board/internal/platform/server"
	"github.com/ogurasousui/talent-board/internal/platform/storage"
	"github.com/ogurasousui/talent-board/internal/platform/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("server stopped with error", slog.Any("error", err))
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

	files, err := storage.NewFileStore(cfg.Storage.Dir, cfg.Storage.MaxUploadBytes)
	if err != nil {
		return err
	}

	matchOpts := []matching.Option{matching.WithLogger(logger)}
	if cfg.Cache.RedisURL != "" {
		rdb, err := rediscache.Open(ctx, cfg.Cache.RedisURL)
		if err != nil {
			// キャッシュなしで起動を続けます。
			logger.Warn("match cache disabled", slog.Any("error", err))
		} else {
			defer rdb.Close()
			matchOpts = append(matchOpts, matching.WithCache(rediscache.NewMatchCache(rdb), cfg.Cache.MatchTTL))
		}
	}

	personRepo := postgres.NewPersonRepository(dbPool)
	taxonomyRepo := postgres.NewTaxonomyRepository(dbPool)
	companyRepo := postgres.NewCompanyRepository(dbPool)

	normalizerOpts := []taxonomy.NormalizerOption{taxonomy.WithFuzzyCutoff(cfg.Taxonomy.FuzzyCutoff)}
	for kind, strategy := range cfg.Taxonomy.Strategies {
		normalizerOpts = append(normalizerOpts, taxonomy.WithStrategy(taxonomy.Kind(kind), taxonomy.Strategy(strategy)))
	}
	normalizer := taxonomy.NewNormalizer(taxonomyRepo, nil, normalizerOpts...)

	tasks := worker.NewQueue(worker.NewPostgresStore(dbPool), nil)

	people := person.NewService(personRepo, nil, tx, person.WithTaskQueue(tasks))
	companies := company.NewService(companyRepo, nil, tx)
	mentors := mentorship.NewService(postgres.NewMentorshipRepository(dbPool), nil, tx)
	jobs := job.NewService(postgres.NewJobRepository(dbPool), normalizer, nil, tx, job.WithExpiryAge(cfg.Worker.JobExpiryAge))
	matches := matching.NewService(postgres.NewMatchingRepository(dbPool), matchOpts...)

	assembler := onboarding.NewService(onboarding.Deps{
		People:     personRepo,
		Taxonomy:   normalizer,
		Companies:  company.NewResolver(companyRepo, nil, tx),
		Mentorship: mentors,
		Files:      files,
		Tasks:      tasks,
		Matches:    matches,
		Tx:         tx,
		Logger:     logger,
	})

	api := handler.NewRouter(handler.Deps{
		People:          people,
		CompanyAccounts: onboarding.NewCompanyRegistration(people, companies, tx),
		Onboarding:      assembler,
		Companies:       companies,
		Jobs:            jobs,
		Mentors:         mentors,
		Matches:         matches,
		Taxonomy:        taxonomy.NewService(taxonomyRepo),
		Tokens:          handler.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		CookieName:      cfg.Auth.CookieName,
		SecureCookie:    cfg.Auth.SecureCookie,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		MaxUploadBytes:  cfg.Storage.MaxUploadBytes,
		RequestTimeout:  cfg.Server.RequestTimeout,
		Logger:          logger,
	})

	srv := server.New(cfg.Server.HTTPListenAddr, cfg.Server.GRPCListenAddr, api, matches, logger)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

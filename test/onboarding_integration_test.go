//go:build integration

package integration

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	repo "github.com/ogurasousui/talent-board/internal/adapters/repository/postgres"
	"github.com/ogurasousui/talent-board/internal/core/company"
	"github.com/ogurasousui/talent-board/internal/core/job"
	"github.com/ogurasousui/talent-board/internal/core/matching"
	"github.com/ogurasousui/talent-board/internal/core/mentorship"
	"github.com/ogurasousui/talent-board/internal/core/onboarding"
	"github.com/ogurasousui/talent-board/internal/core/person"
	"github.com/ogurasousui/talent-board/internal/core/tagsync"
	"github.com/ogurasousui/talent-board/internal/core/taxonomy"
	"github.com/ogurasousui/talent-board/internal/platform/config"
	pg "github.com/ogurasousui/talent-board/internal/platform/db/postgres"
	"github.com/ogurasousui/talent-board/internal/platform/logging"
	"github.com/ogurasousui/talent-board/internal/platform/storage"
	"github.com/ogurasousui/talent-board/internal/platform/worker"
)

const migrationsDir = "../assets/migrations"

func TestOnboardingToMatchesIntegration(t *testing.T) {
	cfg, err := config.Load(configPathFromEnv())
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if err := resetMigrations(cfg.Database.DSN(), migrationsDir); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	ctx := context.Background()
	pool, err := pg.NewPool(ctx, cfg.Database)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	t.Cleanup(pool.Close)
	tx := pg.NewTransactionManager(pool)

	files, err := storage.NewFileStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}

	personRepo := repo.NewPersonRepository(pool)
	companyRepo := repo.NewCompanyRepository(pool)
	normalizer := taxonomy.NewNormalizer(repo.NewTaxonomyRepository(pool), nil, taxonomy.WithStrategy(taxonomy.KindSkill, taxonomy.StrategyFuzzy))
	store := worker.NewPostgresStore(pool)
	tasks := worker.NewQueue(store, nil)

	people := person.NewService(personRepo, nil, tx, person.WithTaskQueue(tasks))
	companies := company.NewService(companyRepo, nil, tx)
	jobs := job.NewService(repo.NewJobRepository(pool), normalizer, nil, tx)
	matches := matching.NewService(repo.NewMatchingRepository(pool))
	assembler := onboarding.NewService(onboarding.Deps{
		People:     personRepo,
		Taxonomy:   normalizer,
		Companies:  company.NewResolver(companyRepo, nil, tx),
		Mentorship: mentorship.NewService(repo.NewMentorshipRepository(pool), nil, tx),
		Files:      files,
		Tasks:      tasks,
		Matches:    matches,
		Tx:         tx,
	})

	ada, err := people.Register(ctx, person.RegisterInput{AccountType: person.AccountMember, Email: "ada@example.com", FirstName: "Ada", Password: "integration-pass"})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	grace, err := people.Register(ctx, person.RegisterInput{AccountType: person.AccountMember, Email: "grace@example.com", FirstName: "Grace", Password: "integration-pass"})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	first, err := assembler.Assemble(ctx, ada.ID, onboarding.Form{
		Skills:  []string{"Go", "PostgreSQL"},
		Company: &company.Ref{Name: "Acme Integration"},
	}, onboarding.Files{})
	if err != nil {
		t.Fatalf("Assemble error: %v", err)
	}
	if first.Company == nil || !first.Company.Unclaimed {
		t.Fatalf("expected a new unclaimed company, got %+v", first.Company)
	}
	second, err := assembler.Assemble(ctx, grace.ID, onboarding.Form{
		Skills:  []string{"go"},
		Company: &company.Ref{ID: first.Company.ID},
	}, onboarding.Files{})
	if err != nil {
		t.Fatalf("Assemble error: %v", err)
	}
	if second.Company == nil || first.Company.ID != second.Company.ID {
		t.Fatalf("expected both members at the same company, got %+v / %+v", first.Company, second.Company)
	}
	current, err := companies.Members(ctx, first.Company.ID, company.RelationCurrent)
	if err != nil {
		t.Fatalf("Members error: %v", err)
	}
	if len(current) != 2 {
		t.Fatalf("expected two current members, got %v", current)
	}
	if _, err := assembler.Assemble(ctx, ada.ID, onboarding.Form{}, onboarding.Files{}); !errors.Is(err, onboarding.ErrAlreadyOnboarded) {
		t.Fatalf("expected ErrAlreadyOnboarded, got %v", err)
	}

	posting, err := jobs.CreateJob(ctx, job.CreateJobInput{CompanyID: first.Company.ID, Title: "Backend Engineer", Skills: []string{"Go"}, CreatedBy: ada.ID})
	if err != nil {
		t.Fatalf("CreateJob error: %v", err)
	}
	for _, ev := range []job.Event{job.EventSubmit, job.EventApprove} {
		if _, err := jobs.ApplyEvent(ctx, posting.ID, ev); err != nil {
			t.Fatalf("ApplyEvent(%s) error: %v", ev, err)
		}
	}

	top, err := matches.TopJobs(ctx, ada.ID, 10)
	if err != nil {
		t.Fatalf("TopJobs error: %v", err)
	}
	if len(top) != 1 || top[0].Candidate.ID != posting.ID || top[0].Score != 1 {
		t.Fatalf("unexpected matches %+v", top)
	}

	if err := people.SoftDelete(ctx, grace.ID, "integration"); err != nil {
		t.Fatalf("SoftDelete error: %v", err)
	}
	stats, err := people.Stats(ctx, person.StatsFilter{IncludeDeleted: true})
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}
	if stats.Total != 2 || stats.Deleted != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	var (
		mu      sync.Mutex
		handled = map[string]int{}
	)
	record := func(taskType string) worker.Handler {
		return func(context.Context, []byte) error {
			mu.Lock()
			defer mu.Unlock()
			handled[taskType]++
			return nil
		}
	}
	runner := worker.NewPool(store, map[string]worker.Handler{
		onboarding.SideEffectsTaskType: record(onboarding.SideEffectsTaskType),
		tagsync.TaskType:               record(tagsync.TaskType),
		person.OffboardTaskType:        record(person.OffboardTaskType),
	}, worker.Config{MaxAttempts: 1}, logging.Discard())
	for {
		ran, err := runner.RunOnce(ctx)
		if err != nil {
			t.Fatalf("RunOnce error: %v", err)
		}
		if !ran {
			break
		}
	}
	if handled[onboarding.SideEffectsTaskType] != 2 || handled[tagsync.TaskType] != 2 || handled[person.OffboardTaskType] != 1 {
		t.Fatalf("unexpected handled tasks %v", handled)
	}
}

func resetMigrations(dsn, dir string) error {
	m, err := migrate.New("file://"+dir, dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Down(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func configPathFromEnv() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "../assets/local.yaml"
}

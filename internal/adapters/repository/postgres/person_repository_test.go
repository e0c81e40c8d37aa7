package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/talent-board/internal/core/person"
	"github.com/ogurasousui/talent-board/internal/core/taxonomy"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestPersonRepository_Create_DuplicateEmail(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`INSERT INTO people`).WillReturnError(&pgconn.PgError{Code: uniqueViolationCode})

	_, err = NewPersonRepository(mock).Create(context.Background(), &person.Person{Email: "dup@example.com"})
	if !errors.Is(err, person.ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestPersonRepository_LockByID_LocksRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`FROM people\s+WHERE id = \$1 AND deleted_at IS NULL\s+FOR UPDATE`).
		WithArgs("p-gone").
		WillReturnError(pgx.ErrNoRows)

	_, err = NewPersonRepository(mock).LockByID(context.Background(), "p-gone")
	if !errors.Is(err, person.ErrPersonNotFound) {
		t.Fatalf("expected ErrPersonNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPersonRepository_MarkSideEffect(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`UPDATE people SET chat_invite_sent = \$1 WHERE id = \$2`).WithArgs(false, "p-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := NewPersonRepository(mock)
	if err := repo.MarkSideEffect(context.Background(), "p-1", person.SideEffectChatInvite, false); err != nil {
		t.Fatalf("MarkSideEffect returned error: %v", err)
	}
	if err := repo.MarkSideEffect(context.Background(), "p-1", "carrier_pigeon", true); !errors.Is(err, person.ErrInvalidSideEffect) {
		t.Fatalf("expected ErrInvalidSideEffect, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPersonRepository_Stats_IncludeDeleted(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	cols := []string{"total", "members", "mentors", "mentees", "companies", "recruiters", "open_doors", "staff", "onboarded", "deleted"}
	mock.ExpectQuery(`FROM people\s+WHERE \$1 OR deleted_at IS NULL`).WithArgs(true).
		WillReturnRows(pgxmock.NewRows(cols).AddRow(10, 8, 2, 3, 1, 1, 0, 1, 6, 2))

	stats, err := NewPersonRepository(mock).Stats(context.Background(), person.StatsFilter{IncludeDeleted: true})
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.Total != 10 || stats.Deleted != 2 || stats.OnboardingComplete != 6 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestPersonRepository_SaveProfessional_ReplacesTerms(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectExec(`UPDATE professional_profiles`).
		WithArgs("5-7", "SRE", nil, nil, "", "", now, "p-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	for _, kind := range professionalKinds {
		mock.ExpectExec(`DELETE FROM person_terms`).WithArgs("p-1", string(kind)).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		if kind == taxonomy.KindSkill {
			mock.ExpectExec(`INSERT INTO person_terms`).WithArgs("p-1", "skill", "t-1", 0).
				WillReturnResult(pgxmock.NewResult("INSERT", 1))
		}
	}

	err = NewPersonRepository(mock).SaveProfessional(context.Background(), &person.ProfessionalProfile{
		PersonID:   "p-1",
		Experience: person.Experience5To7,
		JobTitle:   "SRE",
		Skills:     []taxonomy.Term{{ID: "t-1", Name: "Go"}},
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("SaveProfessional returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

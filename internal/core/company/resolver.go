package company

import (
	"context"
	"fmt"
	"strings"
)

// Resolver は人物の勤務先を解決し、在籍関係を付け替えます。
type Resolver struct {
	repo  Repository
	clock Clock
	tx    TransactionManager
}

// NewResolver は Resolver を生成します。
func NewResolver(repo Repository, clock Clock, tx TransactionManager) *Resolver {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	return &Resolver{repo: repo, clock: clock, tx: tx}
}

// ResolveInput は勤務先解決の入力です。
type ResolveInput struct {
	PersonID string
	Ref      Ref
}

// Resolve は Ref が指す会社に人物を在籍として追加します。
// Ref.ID があれば既存の会社を使い、なければ未登録の会社を作成して人物を作成者とします。
// 他社に在籍していた場合はその会社の在籍から外し、過去在籍に移します。
// 人物行をロックしてから在籍を読むため、同一人物に対する並行した解決は直列化されます。
func (r *Resolver) Resolve(ctx context.Context, in ResolveInput) (*Company, error) {
	if strings.TrimSpace(in.PersonID) == "" {
		return nil, fmt.Errorf("person id: %w", ErrInvalidID)
	}
	if strings.TrimSpace(in.Ref.ID) == "" && strings.TrimSpace(in.Ref.Name) == "" {
		return nil, ErrInvalidRef
	}

	var resolved *Company
	if err := r.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := r.repo.LockPerson(txCtx, in.PersonID); err != nil {
			return err
		}
		currents, err := r.repo.CompaniesForPerson(txCtx, in.PersonID, RelationCurrent, true)
		if err != nil {
			return err
		}

		target, err := r.target(txCtx, in)
		if err != nil {
			return err
		}

		now := r.clock.Now()
		for _, c := range currents {
			if c.ID == target.ID {
				continue
			}
			if err := r.repo.RemoveMember(txCtx, c.ID, in.PersonID, RelationCurrent); err != nil {
				return err
			}
			if err := r.repo.AddMember(txCtx, Member{
				CompanyID: c.ID,
				PersonID:  in.PersonID,
				Relation:  RelationPast,
				CreatedAt: now,
			}); err != nil {
				return err
			}
		}

		if err := r.repo.AddMember(txCtx, Member{
			CompanyID: target.ID,
			PersonID:  in.PersonID,
			Relation:  RelationCurrent,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		resolved = target
		return nil
	}); err != nil {
		return nil, err
	}
	return resolved, nil
}

func (r *Resolver) target(ctx context.Context, in ResolveInput) (*Company, error) {
	if id := strings.TrimSpace(in.Ref.ID); id != "" {
		return r.repo.FindByID(ctx, id)
	}

	name, err := normalizeName(in.Ref.Name)
	if err != nil {
		return nil, err
	}
	site, err := normalizeURL(in.Ref.URL)
	if err != nil {
		return nil, err
	}

	now := r.clock.Now()
	return r.repo.Create(ctx, &Company{
		Name:      name,
		URL:       site,
		LogoRef:   strings.TrimSpace(in.Ref.LogoRef),
		Unclaimed: true,
		CreatedBy: in.PersonID,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

package onboarding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ogurasousui/talent-board/internal/core/company"
	"github.com/ogurasousui/talent-board/internal/core/mentorship"
	"github.com/ogurasousui/talent-board/internal/core/person"
	"github.com/ogurasousui/talent-board/internal/core/tagsync"
	"github.com/ogurasousui/talent-board/internal/core/taxonomy"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// Taxonomy は自由入力ラベルと報酬帯を解決します。
type Taxonomy interface {
	NormalizeAll(ctx context.Context, kind taxonomy.Kind, labels []string) ([]taxonomy.Term, error)
	SalaryRange(ctx context.Context, id string) (*taxonomy.SalaryRange, error)
}

// CompanyResolver は勤務先を解決します。
type CompanyResolver interface {
	Resolve(ctx context.Context, in company.ResolveInput) (*company.Company, error)
}

// Mentorship はメンタリングプログラムへの申込を受け付けます。
type Mentorship interface {
	Apply(ctx context.Context, in mentorship.ApplyInput) (*mentorship.Enrollment, error)
}

// FileStore はアップロードファイルを保存します。
type FileStore interface {
	Save(ctx context.Context, kind, filename string, r io.Reader) (string, error)
	Remove(ref string) error
}

// TaskQueue は呼び出し元のトランザクションに参加してタスクを登録します。
type TaskQueue interface {
	Enqueue(ctx context.Context, taskType string, payload any) error
}

// MatchCache は照合結果のキャッシュを破棄します。
type MatchCache interface {
	Invalidate(ctx context.Context, personID string)
}

// Deps は Service の依存です。
type Deps struct {
	People     person.Repository
	Taxonomy   Taxonomy
	Companies  CompanyResolver
	Mentorship Mentorship
	Files      FileStore
	Tasks      TaskQueue
	Matches    MatchCache
	Clock      Clock
	Tx         TransactionManager
	Logger     *slog.Logger
}

// Service はオンボーディングとプロフィール更新を担います。
type Service struct {
	people     person.Repository
	terms      Taxonomy
	companies  CompanyResolver
	mentorship Mentorship
	files      FileStore
	tasks      TaskQueue
	matches    MatchCache
	clock      Clock
	tx         TransactionManager
	logger     *slog.Logger
}

// NewService は Service を生成します。
func NewService(d Deps) *Service {
	if d.Clock == nil {
		d.Clock = realClock{}
	}
	if d.Tx == nil {
		d.Tx = noopTransactionManager{}
	}
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		people:     d.People,
		terms:      d.Taxonomy,
		companies:  d.Companies,
		mentorship: d.Mentorship,
		files:      d.Files,
		tasks:      d.Tasks,
		matches:    d.Matches,
		clock:      d.Clock,
		tx:         d.Tx,
		logger:     d.Logger,
	}
}

// Assemble は初回オンボーディングを行います。
// オンボーディング済みの場合はトランザクションを開始する前に ErrAlreadyOnboarded を返します。
// プロフィール・勤務先・メンタリング・完了フラグ・後続タスクの登録は単一のトランザクションで行い、
// いずれかが失敗した場合は保存済みのファイルも削除します。外部連携はコミット後にタスクとして実行されます。
func (s *Service) Assemble(ctx context.Context, personID string, form Form, files Files) (*Result, error) {
	if strings.TrimSpace(personID) == "" {
		return nil, fmt.Errorf("person id: %w", ErrInvalidID)
	}

	p, err := s.people.FindByID(ctx, personID)
	if err != nil {
		return nil, err
	}
	if p.OnboardingComplete {
		return nil, ErrAlreadyOnboarded
	}
	if !form.Experience.Valid() {
		return nil, fmt.Errorf("%q: %w", form.Experience, person.ErrInvalidExperience)
	}

	resumeRef, photoRef, err := s.storeFiles(ctx, files)
	if err != nil {
		return nil, err
	}

	var result Result
	err = s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		// 人物行をロックしてから完了済みかを確かめます。並行した完了処理はここで直列化されます。
		current, err := s.people.LockByID(txCtx, personID)
		if err != nil {
			return err
		}
		if current.OnboardingComplete {
			return ErrAlreadyOnboarded
		}
		now := s.clock.Now()

		prof, err := s.people.FindProfessional(txCtx, personID)
		if err != nil {
			return err
		}
		if err := s.fillProfessional(txCtx, prof, ProfessionalForm{
			Experience:  &form.Experience,
			JobTitle:    &form.JobTitle,
			Skills:      nonNil(form.Skills),
			Roles:       nonNil(form.Roles),
			Departments: nonNil(form.Departments),
			Industries:  nonNil(form.Industries),
			Certs:       nonNil(form.Certs),
			MinSalaryID: &form.MinSalaryID,
			MaxSalaryID: &form.MaxSalaryID,
		}); err != nil {
			return err
		}
		if resumeRef != "" {
			prof.ResumeRef = resumeRef
		}
		if photoRef != "" {
			prof.PhotoRef = photoRef
		}
		prof.UpdatedAt = now
		if err := s.people.SaveProfessional(txCtx, prof); err != nil {
			return err
		}

		demo, err := s.people.FindDemographic(txCtx, personID)
		if err != nil {
			return err
		}
		for kind, field := range form.Identity {
			if !kind.IsIdentity() {
				return fmt.Errorf("%q: %w", kind, taxonomy.ErrInvalidKind)
			}
			terms, err := s.terms.NormalizeAll(txCtx, kind, field.Labels)
			if err != nil {
				return err
			}
			demo.SetCategory(kind, person.IdentityCategory{Terms: terms, Display: field.Display})
		}
		demo.Disabled = form.Disabled
		demo.Caregiver = form.Caregiver
		demo.Veteran = form.Veteran
		demo.UpdatedAt = now
		if err := s.people.SaveDemographic(txCtx, demo); err != nil {
			return err
		}

		if form.Company != nil && !form.Company.IsZero() {
			c, err := s.companies.Resolve(txCtx, company.ResolveInput{PersonID: personID, Ref: *form.Company})
			if err != nil {
				return err
			}
			result.Company = c
		}

		if m := form.Mentorship; m != nil && (m.Mentor || m.Mentee) {
			enrolled, err := s.mentorship.Apply(txCtx, mentorship.ApplyInput{
				PersonID:   personID,
				Commitment: m.Commitment,
				Mentor:     m.Mentor,
				Mentee:     m.Mentee,
				Capacity:   m.Capacity,
				Bio:        m.Bio,
				Goals:      m.Goals,
			})
			if err != nil {
				return err
			}
			current.Roles.Mentor = current.Roles.Mentor || m.Mentor
			current.Roles.Mentee = current.Roles.Mentee || m.Mentee
			result.Enrollment = enrolled
		}

		current.OnboardingComplete = true
		current.Marketing = form.Marketing
		current.UpdatedAt = now
		updated, err := s.people.Update(txCtx, current)
		if err != nil {
			return err
		}

		if err := s.tasks.Enqueue(txCtx, SideEffectsTaskType, SideEffectsPayload{PersonID: personID}); err != nil {
			return err
		}
		if err := s.tasks.Enqueue(txCtx, tagsync.TaskType, tagsync.Payload{PersonID: personID}); err != nil {
			return err
		}

		result.Profile = &person.Profile{Person: updated, Professional: prof, Demographic: demo}
		return nil
	})
	if err != nil {
		s.discardFiles(ctx, resumeRef, photoRef)
		return nil, err
	}

	s.matches.Invalidate(ctx, personID)
	return &result, nil
}

// UpdateProfessional は職務プロフィールを更新し、タグ同期を登録します。
func (s *Service) UpdateProfessional(ctx context.Context, personID string, form ProfessionalForm, files Files) (*person.ProfessionalProfile, error) {
	if strings.TrimSpace(personID) == "" {
		return nil, fmt.Errorf("person id: %w", ErrInvalidID)
	}
	if form.Experience != nil && !form.Experience.Valid() {
		return nil, fmt.Errorf("%q: %w", *form.Experience, person.ErrInvalidExperience)
	}

	resumeRef, photoRef, err := s.storeFiles(ctx, files)
	if err != nil {
		return nil, err
	}

	var (
		out      *person.ProfessionalProfile
		replaced []string
	)
	err = s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if _, err := s.people.LockByID(txCtx, personID); err != nil {
			return err
		}
		prof, err := s.people.FindProfessional(txCtx, personID)
		if err != nil {
			return err
		}
		if err := s.fillProfessional(txCtx, prof, form); err != nil {
			return err
		}
		if resumeRef != "" {
			replaced = append(replaced, prof.ResumeRef)
			prof.ResumeRef = resumeRef
		}
		if photoRef != "" {
			replaced = append(replaced, prof.PhotoRef)
			prof.PhotoRef = photoRef
		}
		prof.UpdatedAt = s.clock.Now()
		if err := s.people.SaveProfessional(txCtx, prof); err != nil {
			return err
		}
		if err := s.tasks.Enqueue(txCtx, tagsync.TaskType, tagsync.Payload{PersonID: personID}); err != nil {
			return err
		}
		out = prof
		return nil
	})
	if err != nil {
		s.discardFiles(ctx, resumeRef, photoRef)
		return nil, err
	}

	s.discardFiles(ctx, replaced...)
	s.matches.Invalidate(ctx, personID)
	return out, nil
}

func (s *Service) fillProfessional(ctx context.Context, prof *person.ProfessionalProfile, form ProfessionalForm) error {
	if form.Experience != nil {
		prof.Experience = *form.Experience
	}
	if form.JobTitle != nil {
		prof.JobTitle = strings.TrimSpace(*form.JobTitle)
	}

	lists := []struct {
		kind   taxonomy.Kind
		labels []string
		dst    *[]taxonomy.Term
	}{
		{taxonomy.KindSkill, form.Skills, &prof.Skills},
		{taxonomy.KindRole, form.Roles, &prof.Roles},
		{taxonomy.KindDepartment, form.Departments, &prof.Departments},
		{taxonomy.KindIndustry, form.Industries, &prof.Industries},
		{taxonomy.KindCert, form.Certs, &prof.Certs},
	}
	for _, l := range lists {
		if l.labels == nil {
			continue
		}
		terms, err := s.terms.NormalizeAll(ctx, l.kind, l.labels)
		if err != nil {
			return err
		}
		*l.dst = terms
	}

	minID, maxID := prof.MinSalaryID, prof.MaxSalaryID
	if form.MinSalaryID != nil {
		minID = strings.TrimSpace(*form.MinSalaryID)
	}
	if form.MaxSalaryID != nil {
		maxID = strings.TrimSpace(*form.MaxSalaryID)
	}
	minRange, err := s.salary(ctx, minID)
	if err != nil {
		return err
	}
	maxRange, err := s.salary(ctx, maxID)
	if err != nil {
		return err
	}
	if minRange != nil && maxRange != nil && minRange.MinAmount > maxRange.MinAmount {
		return fmt.Errorf("minimum above maximum: %w", ErrInvalidSalaryRange)
	}
	prof.MinSalaryID = minID
	prof.MaxSalaryID = maxID
	return nil
}

func (s *Service) salary(ctx context.Context, id string) (*taxonomy.SalaryRange, error) {
	if id == "" {
		return nil, nil
	}
	sr, err := s.terms.SalaryRange(ctx, id)
	if errors.Is(err, taxonomy.ErrSalaryRangeNotFound) || errors.Is(err, taxonomy.ErrInvalidID) {
		return nil, fmt.Errorf("%q: %w", id, ErrInvalidSalaryRange)
	}
	if err != nil {
		return nil, err
	}
	return sr, nil
}

func (s *Service) storeFiles(ctx context.Context, files Files) (resumeRef, photoRef string, err error) {
	if files.Resume != nil {
		resumeRef, err = s.files.Save(ctx, "resumes", files.Resume.Filename, files.Resume.Content)
		if err != nil {
			return "", "", fmt.Errorf("store resume: %w", err)
		}
	}
	if files.Photo != nil {
		photoRef, err = s.files.Save(ctx, "photos", files.Photo.Filename, files.Photo.Content)
		if err != nil {
			s.discardFiles(ctx, resumeRef)
			return "", "", fmt.Errorf("store photo: %w", err)
		}
	}
	return resumeRef, photoRef, nil
}

func (s *Service) discardFiles(ctx context.Context, refs ...string) {
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if err := s.files.Remove(ref); err != nil {
			s.logger.WarnContext(ctx, "remove stored file failed", slog.String("ref", ref), slog.Any("error", err))
		}
	}
}

// nonNil は未入力のリストを空のリストとして扱わせます。初回オンボーディングでは全項目を上書きします。
func nonNil(labels []string) []string {
	if labels == nil {
		return []string{}
	}
	return labels
}

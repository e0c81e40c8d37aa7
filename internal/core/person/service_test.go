package person

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ogurasousui/talent-board/internal/core/taxonomy"
)

type stubClock struct {
	now time.Time
}

func (s *stubClock) Now() time.Time {
	return s.now
}

type fakeRepo struct {
	people       map[string]*Person
	order        []string
	professional map[string]*ProfessionalProfile
	demographic  map[string]*DemographicProfile
	seq          int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		people:       make(map[string]*Person),
		professional: make(map[string]*ProfessionalProfile),
		demographic:  make(map[string]*DemographicProfile),
	}
}

func (r *fakeRepo) Create(_ context.Context, p *Person) (*Person, error) {
	for _, existing := range r.people {
		if existing.Email == p.Email {
			return nil, ErrEmailAlreadyExists
		}
	}
	r.seq++
	clone := *p
	clone.ID = fmt.Sprintf("person-%d", r.seq)
	r.people[clone.ID] = &clone
	r.order = append(r.order, clone.ID)
	out := clone
	return &out, nil
}

func (r *fakeRepo) Update(_ context.Context, p *Person) (*Person, error) {
	if _, ok := r.people[p.ID]; !ok {
		return nil, ErrPersonNotFound
	}
	clone := *p
	r.people[p.ID] = &clone
	out := clone
	return &out, nil
}

func (r *fakeRepo) FindByID(_ context.Context, id string) (*Person, error) {
	p, ok := r.people[id]
	if !ok || p.Deleted() {
		return nil, ErrPersonNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *fakeRepo) LockByID(ctx context.Context, id string) (*Person, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeRepo) FindByEmail(_ context.Context, email string) (*Person, error) {
	for _, p := range r.people {
		if p.Email == email {
			clone := *p
			return &clone, nil
		}
	}
	return nil, ErrPersonNotFound
}

func (r *fakeRepo) SoftDelete(_ context.Context, id, reason string, at time.Time) error {
	p, ok := r.people[id]
	if !ok || p.Deleted() {
		return ErrPersonNotFound
	}
	p.DeletedAt = &at
	p.DeleteReason = reason
	return nil
}

func (r *fakeRepo) MarkSideEffect(_ context.Context, id string, effect SideEffect, done bool) error {
	p, ok := r.people[id]
	if !ok {
		return ErrPersonNotFound
	}
	switch effect {
	case SideEffectChatInvite:
		p.SideEffects.ChatInviteSent = done
	case SideEffectMailingList:
		p.SideEffects.MailingListSubscribed = done
	case SideEffectInternalNotify:
		p.SideEffects.InternalNotified = done
	}
	return nil
}

func (r *fakeRepo) Stats(_ context.Context, filter StatsFilter) (*Stats, error) {
	var s Stats
	for _, id := range r.order {
		p := r.people[id]
		if p.Deleted() {
			s.Deleted++
			if !filter.IncludeDeleted {
				continue
			}
		}
		s.Total++
		if p.Roles.Member {
			s.Members++
		}
		if p.Roles.CompanyAccount {
			s.CompanyAccounts++
		}
	}
	if !filter.IncludeDeleted {
		s.Deleted = 0
	}
	return &s, nil
}

func (r *fakeRepo) CreateProfiles(_ context.Context, personID string, at time.Time) error {
	r.professional[personID] = &ProfessionalProfile{PersonID: personID, UpdatedAt: at}
	r.demographic[personID] = &DemographicProfile{PersonID: personID, UpdatedAt: at}
	return nil
}

func (r *fakeRepo) FindProfessional(_ context.Context, personID string) (*ProfessionalProfile, error) {
	p, ok := r.professional[personID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *fakeRepo) SaveProfessional(_ context.Context, profile *ProfessionalProfile) error {
	clone := *profile
	r.professional[profile.PersonID] = &clone
	return nil
}

func (r *fakeRepo) FindDemographic(_ context.Context, personID string) (*DemographicProfile, error) {
	d, ok := r.demographic[personID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	clone := *d
	return &clone, nil
}

func (r *fakeRepo) SaveDemographic(_ context.Context, profile *DemographicProfile) error {
	clone := *profile
	r.demographic[profile.PersonID] = &clone
	return nil
}

type countingTx struct {
	readWrite int
	readOnly  int
}

func (c *countingTx) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	c.readOnly++
	return fn(ctx)
}

func (c *countingTx) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	c.readWrite++
	return fn(ctx)
}

func newTestService(repo *fakeRepo, tx TransactionManager) *Service {
	clk := &stubClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	return NewService(repo, clk, tx, WithBcryptCost(bcrypt.MinCost))
}

func TestService_Register_Success(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	tx := &countingTx{}
	svc := newTestService(repo, tx)

	created, err := svc.Register(context.Background(), RegisterInput{
		AccountType: AccountMember,
		Email:       "  Ada@Example.COM ",
		FirstName:   " Ada ",
		LastName:    "Lovelace",
		Password:    "correct horse",
		Marketing:   Marketing{Newsletter: true},
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if created.Email != "ada@example.com" {
		t.Errorf("expected normalized email, got %q", created.Email)
	}
	if created.FullName() != "Ada Lovelace" {
		t.Errorf("unexpected full name %q", created.FullName())
	}
	if !created.Roles.Member || created.Roles.CompanyAccount {
		t.Errorf("unexpected roles %+v", created.Roles)
	}
	if created.PasswordHash == "correct horse" {
		t.Fatal("password stored in clear text")
	}
	if _, ok := repo.professional[created.ID]; !ok {
		t.Error("professional profile not created")
	}
	if _, ok := repo.demographic[created.ID]; !ok {
		t.Error("demographic profile not created")
	}
	if tx.readWrite != 1 {
		t.Errorf("expected one read-write transaction, got %d", tx.readWrite)
	}
}

func TestService_Register_DuplicateEmail(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := newTestService(repo, nil)
	in := RegisterInput{AccountType: AccountMember, Email: "dup@example.com", FirstName: "A", Password: "password1"}

	if _, err := svc.Register(context.Background(), in); err != nil {
		t.Fatalf("first Register returned error: %v", err)
	}
	_, err := svc.Register(context.Background(), in)
	if !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
	if err.Error() != "email already in use" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestService_Register_DeletedEmailStillTaken(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := newTestService(repo, nil)
	in := RegisterInput{AccountType: AccountMember, Email: "gone@example.com", FirstName: "A", Password: "password1"}

	created, err := svc.Register(context.Background(), in)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if err := svc.SoftDelete(context.Background(), created.ID, "requested"); err != nil {
		t.Fatalf("SoftDelete returned error: %v", err)
	}
	if _, err := svc.Register(context.Background(), in); !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestService_Register_Validation(t *testing.T) {
	t.Parallel()

	svc := newTestService(newFakeRepo(), nil)
	base := RegisterInput{AccountType: AccountCompany, Email: "hr@example.com", FirstName: "HR", Password: "password1"}

	cases := []struct {
		name   string
		mutate func(*RegisterInput)
		want   error
	}{
		{"account type", func(in *RegisterInput) { in.AccountType = "vip" }, ErrInvalidAccountType},
		{"email", func(in *RegisterInput) { in.Email = "not-an-email" }, ErrInvalidEmail},
		{"name", func(in *RegisterInput) { in.FirstName = "  " }, ErrInvalidName},
		{"password", func(in *RegisterInput) { in.Password = "short" }, ErrWeakPassword},
	}
	for _, tc := range cases {
		in := base
		tc.mutate(&in)
		if _, err := svc.Register(context.Background(), in); !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestService_Authenticate(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := newTestService(repo, nil)
	created, err := svc.Register(context.Background(), RegisterInput{
		AccountType: AccountCompany,
		Email:       "lead@example.com",
		FirstName:   "Lead",
		Password:    "s3cret-pass",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if !created.Roles.CompanyAccount {
		t.Fatalf("expected company account role, got %+v", created.Roles)
	}

	got, err := svc.Authenticate(context.Background(), "LEAD@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("authenticated wrong person: %s", got.ID)
	}

	if _, err := svc.Authenticate(context.Background(), "lead@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "nobody@example.com", "s3cret-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}

	if err := svc.SoftDelete(context.Background(), created.ID, ""); err != nil {
		t.Fatalf("SoftDelete returned error: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "lead@example.com", "s3cret-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected deleted person to be rejected, got %v", err)
	}
}

func TestService_SoftDeleteExcludesFromDefaultQueries(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := newTestService(repo, nil)
	keep, _ := svc.Register(context.Background(), RegisterInput{AccountType: AccountMember, Email: "keep@example.com", FirstName: "K", Password: "password1"})
	drop, _ := svc.Register(context.Background(), RegisterInput{AccountType: AccountMember, Email: "drop@example.com", FirstName: "D", Password: "password1"})

	if err := svc.SoftDelete(context.Background(), drop.ID, "spam"); err != nil {
		t.Fatalf("SoftDelete returned error: %v", err)
	}

	if _, err := svc.GetPerson(context.Background(), drop.ID); !errors.Is(err, ErrPersonNotFound) {
		t.Fatalf("expected ErrPersonNotFound, got %v", err)
	}
	if _, err := svc.GetPerson(context.Background(), keep.ID); err != nil {
		t.Fatalf("GetPerson returned error: %v", err)
	}
	if repo.people[drop.ID].DeleteReason != "spam" {
		t.Fatalf("expected reason retained for audit")
	}

	stats, err := svc.Stats(context.Background(), StatsFilter{})
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.Total != 1 {
		t.Fatalf("expected deleted excluded by default, got %d", stats.Total)
	}

	stats, err = svc.Stats(context.Background(), StatsFilter{IncludeDeleted: true})
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.Total != 2 || stats.Deleted != 1 {
		t.Fatalf("unexpected stats with deleted: %+v", stats)
	}
}

func TestService_RecordSideEffect(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := newTestService(repo, nil)
	p, _ := svc.Register(context.Background(), RegisterInput{AccountType: AccountMember, Email: "fx@example.com", FirstName: "F", Password: "password1"})

	if err := svc.RecordSideEffect(context.Background(), p.ID, SideEffectMailingList, true); err != nil {
		t.Fatalf("RecordSideEffect returned error: %v", err)
	}
	if !repo.people[p.ID].SideEffects.MailingListSubscribed {
		t.Fatal("expected mailing list flag set")
	}
	if err := svc.RecordSideEffect(context.Background(), p.ID, SideEffect("fax"), true); !errors.Is(err, ErrInvalidSideEffect) {
		t.Fatalf("expected ErrInvalidSideEffect, got %v", err)
	}
}

func TestService_Profile(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := newTestService(repo, nil)
	p, _ := svc.Register(context.Background(), RegisterInput{AccountType: AccountMember, Email: "pf@example.com", FirstName: "P", Password: "password1"})

	got, err := svc.Profile(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("Profile returned error: %v", err)
	}
	if got.Professional.PersonID != p.ID || got.Demographic.PersonID != p.ID {
		t.Fatalf("unexpected profile: %+v", got)
	}
	if _, err := svc.Profile(context.Background(), " "); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestDemographicProfile_PublicDropsHiddenCategories(t *testing.T) {
	t.Parallel()

	d := DemographicProfile{
		Gender:    IdentityCategory{Terms: []taxonomy.Term{{Name: "Woman"}}, Display: true},
		Sexuality: IdentityCategory{Terms: []taxonomy.Term{{Name: "Queer"}}, Display: false},
		Pronouns:  IdentityCategory{Terms: []taxonomy.Term{{Name: "she/her"}}, Display: true},
	}

	pub := d.Public()
	if len(pub.Gender) != 1 || pub.Gender[0] != "Woman" {
		t.Errorf("expected displayed gender, got %v", pub.Gender)
	}
	if pub.Sexuality != nil {
		t.Errorf("hidden category leaked: %v", pub.Sexuality)
	}
	if pub.Ethnicity != nil {
		t.Errorf("empty category should be nil, got %v", pub.Ethnicity)
	}
}

func TestExperienceBand_Valid(t *testing.T) {
	t.Parallel()

	if len(ExperienceBands) != 7 {
		t.Fatalf("expected 7 bands, got %d", len(ExperienceBands))
	}
	if !ExperienceBand("16+").Valid() || !ExperienceNotGiven.Valid() {
		t.Fatal("expected known bands to be valid")
	}
	if ExperienceBand("3-4").Valid() {
		t.Fatal("unexpected band accepted")
	}
}

type recordingQueue struct {
	types    []string
	payloads []any
}

func (q *recordingQueue) Enqueue(_ context.Context, taskType string, payload any) error {
	q.types = append(q.types, taskType)
	q.payloads = append(q.payloads, payload)
	return nil
}

func TestService_SoftDeleteEnqueuesOffboarding(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	queue := &recordingQueue{}
	svc := NewService(repo, nil, nil, WithBcryptCost(bcrypt.MinCost), WithTaskQueue(queue))
	p, err := svc.Register(context.Background(), RegisterInput{AccountType: AccountMember, Email: "bye@example.com", FirstName: "B", Password: "password1"})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if err := svc.SoftDelete(context.Background(), p.ID, ""); err != nil {
		t.Fatalf("SoftDelete returned error: %v", err)
	}
	if len(queue.types) != 1 || queue.types[0] != OffboardTaskType {
		t.Fatalf("expected offboard task, got %v", queue.types)
	}
	if got := queue.payloads[0].(OffboardPayload); got.Email != "bye@example.com" || got.PersonID != p.ID {
		t.Errorf("unexpected payload %+v", got)
	}

	if err := svc.SoftDelete(context.Background(), p.ID, ""); !errors.Is(err, ErrPersonNotFound) {
		t.Fatalf("expected ErrPersonNotFound on second delete, got %v", err)
	}
	if len(queue.types) != 1 {
		t.Errorf("second delete must not enqueue, got %v", queue.types)
	}
}

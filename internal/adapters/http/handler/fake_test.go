package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/ogurasousui/talent-board/internal/core/company"
	"github.com/ogurasousui/talent-board/internal/core/job"
	"github.com/ogurasousui/talent-board/internal/core/matching"
	"github.com/ogurasousui/talent-board/internal/core/mentorship"
	"github.com/ogurasousui/talent-board/internal/core/onboarding"
	"github.com/ogurasousui/talent-board/internal/core/person"
	"github.com/ogurasousui/talent-board/internal/core/taxonomy"
)

type fakePeople struct {
	people      map[string]*person.Person
	profiles    map[string]*person.Profile
	registered  []person.RegisterInput
	deleted     map[string]string
	statsFilter person.StatsFilter
	lookupErr   error
}

func newFakePeople(people ...*person.Person) *fakePeople {
	f := &fakePeople{people: map[string]*person.Person{}, profiles: map[string]*person.Profile{}, deleted: map[string]string{}}
	for _, p := range people {
		f.people[p.ID] = p
	}
	return f
}

func (f *fakePeople) Register(_ context.Context, in person.RegisterInput) (*person.Person, error) {
	for _, p := range f.people {
		if p.Email == in.Email {
			return nil, person.ErrEmailAlreadyExists
		}
	}
	f.registered = append(f.registered, in)
	p := &person.Person{ID: "p-new", Email: in.Email, FirstName: in.FirstName, Roles: person.Roles{Member: true}}
	f.people[p.ID] = p
	return p, nil
}

func (f *fakePeople) Authenticate(_ context.Context, email, password string) (*person.Person, error) {
	for _, p := range f.people {
		if p.Email == email && password == "correct-horse" {
			return p, nil
		}
	}
	return nil, person.ErrInvalidCredentials
}

func (f *fakePeople) GetPerson(_ context.Context, id string) (*person.Person, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	p, ok := f.people[id]
	if !ok {
		return nil, person.ErrPersonNotFound
	}
	if _, gone := f.deleted[id]; gone {
		return nil, person.ErrPersonNotFound
	}
	return p, nil
}

func (f *fakePeople) Profile(ctx context.Context, id string) (*person.Profile, error) {
	if profile, ok := f.profiles[id]; ok {
		return profile, nil
	}
	p, err := f.GetPerson(ctx, id)
	if err != nil {
		return nil, err
	}
	return &person.Profile{Person: p, Professional: &person.ProfessionalProfile{PersonID: id}, Demographic: &person.DemographicProfile{PersonID: id}}, nil
}

func (f *fakePeople) SoftDelete(_ context.Context, id, reason string) error {
	f.deleted[id] = reason
	return nil
}

func (f *fakePeople) Stats(_ context.Context, filter person.StatsFilter) (*person.Stats, error) {
	f.statsFilter = filter
	if filter.IncludeDeleted {
		return &person.Stats{Total: 3, Members: 3, Deleted: 1}, nil
	}
	return &person.Stats{Total: 2, Members: 2}, nil
}

type fakeCompanyAccounts struct {
	in onboarding.RegisterCompanyInput
}

func (f *fakeCompanyAccounts) Register(_ context.Context, in onboarding.RegisterCompanyInput) (*person.Person, *company.Company, error) {
	f.in = in
	p := &person.Person{ID: "p-co", Email: in.Account.Email, Roles: person.Roles{CompanyAccount: true}}
	return p, &company.Company{ID: "c-new", Name: in.Company.Name, CreatedBy: p.ID}, nil
}

type fakeOnboarding struct {
	form      onboarding.Form
	files     []string
	assembled bool
	err       error
	panics    bool
}

func (f *fakeOnboarding) Assemble(_ context.Context, personID string, form onboarding.Form, files onboarding.Files) (*onboarding.Result, error) {
	if f.panics {
		panic("boom")
	}
	if f.err != nil {
		return nil, f.err
	}
	f.assembled = true
	f.form = form
	if files.Resume != nil {
		b, _ := io.ReadAll(files.Resume.Content)
		f.files = append(f.files, files.Resume.Filename+":"+string(b))
	}
	return &onboarding.Result{Profile: &person.Profile{
		Person:       &person.Person{ID: personID, OnboardingComplete: true},
		Professional: &person.ProfessionalProfile{PersonID: personID, Skills: []taxonomy.Term{{ID: "t-go", Name: "Go"}}},
		Demographic:  &person.DemographicProfile{PersonID: personID},
	}}, nil
}

func (f *fakeOnboarding) UpdateProfessional(_ context.Context, personID string, form onboarding.ProfessionalForm, _ onboarding.Files) (*person.ProfessionalProfile, error) {
	prof := &person.ProfessionalProfile{PersonID: personID}
	if form.JobTitle != nil {
		prof.JobTitle = *form.JobTitle
	}
	return prof, nil
}

type fakeCompanies struct {
	companies map[string]*company.Company
	members   map[company.Relation][]string
	created   []company.CreateCompanyInput
	deleted   []string
}

func (f *fakeCompanies) CreateCompany(_ context.Context, in company.CreateCompanyInput) (*company.Company, error) {
	f.created = append(f.created, in)
	return &company.Company{ID: "c-created", Name: in.Name, CreatedBy: in.CreatedBy}, nil
}

func (f *fakeCompanies) GetCompany(_ context.Context, id string) (*company.Company, error) {
	c, ok := f.companies[id]
	if !ok {
		return nil, company.ErrCompanyNotFound
	}
	return c, nil
}

func (f *fakeCompanies) ListCompanies(_ context.Context, in company.ListCompaniesInput) (*company.ListCompaniesResult, error) {
	out := &company.ListCompaniesResult{}
	for _, c := range f.companies {
		if in.Unclaimed == nil || c.Unclaimed == *in.Unclaimed {
			out.Companies = append(out.Companies, c)
		}
	}
	return out, nil
}

func (f *fakeCompanies) UpdateCompany(_ context.Context, in company.UpdateCompanyInput) (*company.Company, error) {
	c := *f.companies[in.ID]
	if in.Name != nil {
		c.Name = *in.Name
	}
	return &c, nil
}

func (f *fakeCompanies) DeleteCompany(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeCompanies) Members(_ context.Context, _ string, relation company.Relation) ([]string, error) {
	return f.members[relation], nil
}

func (f *fakeCompanies) AddTeamMember(_ context.Context, _, personID string, relation company.Relation) error {
	if relation != company.RelationBilling && relation != company.RelationHiring && relation != company.RelationAdmin {
		return company.ErrInvalidRelation
	}
	if !slices.Contains(f.members[relation], personID) {
		f.members[relation] = append(f.members[relation], personID)
	}
	return nil
}

func (f *fakeCompanies) RemoveTeamMember(_ context.Context, _, personID string, relation company.Relation) error {
	if relation != company.RelationBilling && relation != company.RelationHiring && relation != company.RelationAdmin {
		return company.ErrInvalidRelation
	}
	f.members[relation] = slices.DeleteFunc(f.members[relation], func(id string) bool { return id == personID })
	return nil
}

type fakeJobs struct {
	jobs   map[string]*job.Job
	events []job.Event
	input  job.ListJobsInput
}

func (f *fakeJobs) CreateJob(_ context.Context, in job.CreateJobInput) (*job.Job, error) {
	return &job.Job{ID: "j-new", CompanyID: in.CompanyID, Title: in.Title, Status: job.StatusDraft, CreatedBy: in.CreatedBy}, nil
}

func (f *fakeJobs) GetJob(_ context.Context, id string) (*job.Job, error) {
	j, ok := f.jobs[id]
	if !ok {
		return nil, job.ErrJobNotFound
	}
	return j, nil
}

func (f *fakeJobs) ListActive(ctx context.Context, in job.ListJobsInput) (*job.ListJobsResult, error) {
	active := job.StatusActive
	in.Status = &active
	return f.ListJobs(ctx, in)
}

func (f *fakeJobs) ListJobs(_ context.Context, in job.ListJobsInput) (*job.ListJobsResult, error) {
	f.input = in
	out := &job.ListJobsResult{}
	for _, j := range f.jobs {
		if in.Status == nil || j.Status == *in.Status {
			out.Jobs = append(out.Jobs, j)
		}
	}
	return out, nil
}

func (f *fakeJobs) UpdateJob(_ context.Context, in job.UpdateJobInput) (*job.Job, error) {
	j := *f.jobs[in.ID]
	if in.Title != nil {
		j.Title = *in.Title
	}
	return &j, nil
}

func (f *fakeJobs) ApplyEvent(_ context.Context, id string, event job.Event) (*job.Job, error) {
	j := f.jobs[id]
	next, err := job.Transition(j.Status, event)
	if err != nil {
		return nil, err
	}
	f.events = append(f.events, event)
	j.Status = next
	return j, nil
}

func (f *fakeJobs) ExpireStale(context.Context) (int, error) {
	return 4, nil
}

type fakeMentors struct {
	mentors map[string]*mentorship.MentorProfile
	events  []mentorship.Event
	reviews []mentorship.ReviewInput
}

func (f *fakeMentors) Apply(_ context.Context, in mentorship.ApplyInput) (*mentorship.Enrollment, error) {
	if !in.Mentor && !in.Mentee {
		return nil, mentorship.ErrNoRoleSelected
	}
	return &mentorship.Enrollment{Program: &mentorship.ProgramProfile{PersonID: in.PersonID, Commitment: mentorship.CommitmentMedium}}, nil
}

func (f *fakeMentors) ApplyEvent(_ context.Context, id string, event mentorship.Event) (*mentorship.MentorProfile, error) {
	m, ok := f.mentors[id]
	if !ok {
		return nil, mentorship.ErrMentorNotFound
	}
	next, err := mentorship.Transition(m.Status, event)
	if err != nil {
		return nil, err
	}
	f.events = append(f.events, event)
	m.Status = next
	return m, nil
}

func (f *fakeMentors) ListActiveMentors(context.Context, mentorship.ListMentorsInput) (*mentorship.ListMentorsResult, error) {
	return &mentorship.ListMentorsResult{}, nil
}

func (f *fakeMentors) ListMentors(context.Context, mentorship.ListMentorsInput) (*mentorship.ListMentorsResult, error) {
	return &mentorship.ListMentorsResult{}, nil
}

func (f *fakeMentors) GetMentor(_ context.Context, id string) (*mentorship.MentorProfile, error) {
	m, ok := f.mentors[id]
	if !ok {
		return nil, mentorship.ErrMentorNotFound
	}
	return m, nil
}

func (f *fakeMentors) AddToRoster(_ context.Context, mentorID, menteeID string) (*mentorship.RosterEntry, error) {
	return nil, mentorship.ErrMentorAtCapacity
}

func (f *fakeMentors) LogSession(_ context.Context, in mentorship.LogSessionInput) (*mentorship.Session, error) {
	return &mentorship.Session{ID: "s-1", RosterID: in.RosterID, DurationMinutes: in.DurationMinutes}, nil
}

func (f *fakeMentors) Sessions(context.Context, string) ([]*mentorship.Session, error) {
	return nil, nil
}

func (f *fakeMentors) Review(_ context.Context, in mentorship.ReviewInput) (*mentorship.Review, error) {
	f.reviews = append(f.reviews, in)
	return &mentorship.Review{ID: "rv-1", RosterID: in.RosterID, Rating: in.Rating}, nil
}

type fakeMatches struct{}

func (fakeMatches) TopJobs(_ context.Context, _ string, limit int) ([]matching.Match, error) {
	return []matching.Match{{Candidate: matching.Candidate{ID: "j-1", Label: "Backend"}, Score: 2}}[:min(limit, 1)], nil
}

func (fakeMatches) TopMentors(context.Context, string, int) ([]matching.Match, error) {
	return nil, nil
}

type fakeTaxonomy struct{}

func (fakeTaxonomy) List(_ context.Context, kind taxonomy.Kind) ([]*taxonomy.Term, error) {
	if !kind.Valid() {
		return nil, taxonomy.ErrInvalidKind
	}
	return []*taxonomy.Term{{ID: "t-1", Kind: kind, Name: "Go"}}, nil
}

func (fakeTaxonomy) SalaryRanges(context.Context) ([]*taxonomy.SalaryRange, error) {
	return []*taxonomy.SalaryRange{{ID: "s-1", Label: "$50k-$70k", MinAmount: 50000, MaxAmount: 70000}}, nil
}

type fixture struct {
	people     *fakePeople
	accounts   *fakeCompanyAccounts
	onboarding *fakeOnboarding
	companies  *fakeCompanies
	jobs       *fakeJobs
	mentors    *fakeMentors
	tokens     *Tokens
	router     http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	member := &person.Person{ID: "p-member", Email: "ada@example.com", FirstName: "Ada", Roles: person.Roles{Member: true}}
	staff := &person.Person{ID: "p-staff", Email: "ops@example.com", FirstName: "Ops", Roles: person.Roles{Staff: true}}
	recruiter := &person.Person{ID: "p-recruiter", Email: "hr@example.com", FirstName: "Hr", Roles: person.Roles{CompanyAccount: true}}

	f := &fixture{
		people:     newFakePeople(member, staff, recruiter),
		accounts:   &fakeCompanyAccounts{},
		onboarding: &fakeOnboarding{},
		companies: &fakeCompanies{
			companies: map[string]*company.Company{"c-1": {ID: "c-1", Name: "Acme"}},
			members:   map[company.Relation][]string{company.RelationHiring: {"p-recruiter"}},
		},
		jobs: &fakeJobs{jobs: map[string]*job.Job{
			"j-draft":   {ID: "j-draft", CompanyID: "c-1", Title: "Draft", Status: job.StatusDraft},
			"j-active":  {ID: "j-active", CompanyID: "c-1", Title: "Active", Status: job.StatusActive},
			"j-pending": {ID: "j-pending", CompanyID: "c-1", Title: "Pending", Status: job.StatusPending},
		}},
		mentors: &fakeMentors{mentors: map[string]*mentorship.MentorProfile{
			"m-1": {ID: "m-1", PersonID: "p-member", Status: mentorship.StatusActive, Capacity: 2},
		}},
		tokens: NewTokens("test-secret", time.Hour),
	}
	f.router = NewRouter(Deps{
		People:          f.people,
		CompanyAccounts: f.accounts,
		Onboarding:      f.onboarding,
		Companies:       f.companies,
		Jobs:            f.jobs,
		Mentors:         f.mentors,
		Matches:         fakeMatches{},
		Taxonomy:        fakeTaxonomy{},
		Tokens:          f.tokens,
		AllowedOrigins:  []string{"https://app.example.com"},
		Logger:          slog.New(slog.DiscardHandler),
	})
	return f
}

func (f *fixture) token(t *testing.T, personID string) string {
	t.Helper()
	token, _, err := f.tokens.Issue(personID)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	return token
}

func (f *fixture) do(t *testing.T, method, path, personID, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if personID != "" {
		req.Header.Set("Authorization", "Bearer "+f.token(t, personID))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ogurasousui/talent-board/internal/core/company"
	"github.com/ogurasousui/talent-board/internal/core/job"
	"github.com/ogurasousui/talent-board/internal/core/matching"
	"github.com/ogurasousui/talent-board/internal/core/mentorship"
	"github.com/ogurasousui/talent-board/internal/core/onboarding"
	"github.com/ogurasousui/talent-board/internal/core/person"
	"github.com/ogurasousui/talent-board/internal/core/taxonomy"
)

// People は会員アカウントのユースケースです。
type People interface {
	Register(ctx context.Context, in person.RegisterInput) (*person.Person, error)
	Authenticate(ctx context.Context, email, password string) (*person.Person, error)
	GetPerson(ctx context.Context, id string) (*person.Person, error)
	Profile(ctx context.Context, id string) (*person.Profile, error)
	SoftDelete(ctx context.Context, id, reason string) error
	Stats(ctx context.Context, filter person.StatsFilter) (*person.Stats, error)
}

// CompanyRegistrar は会社アカウント登録です。
type CompanyRegistrar interface {
	Register(ctx context.Context, in onboarding.RegisterCompanyInput) (*person.Person, *company.Company, error)
}

// Onboarding はオンボーディングとプロフィール更新です。
type Onboarding interface {
	Assemble(ctx context.Context, personID string, form onboarding.Form, files onboarding.Files) (*onboarding.Result, error)
	UpdateProfessional(ctx context.Context, personID string, form onboarding.ProfessionalForm, files onboarding.Files) (*person.ProfessionalProfile, error)
}

// Companies は会社のユースケースです。
type Companies interface {
	CreateCompany(ctx context.Context, in company.CreateCompanyInput) (*company.Company, error)
	GetCompany(ctx context.Context, id string) (*company.Company, error)
	ListCompanies(ctx context.Context, in company.ListCompaniesInput) (*company.ListCompaniesResult, error)
	UpdateCompany(ctx context.Context, in company.UpdateCompanyInput) (*company.Company, error)
	DeleteCompany(ctx context.Context, id string) error
	Members(ctx context.Context, companyID string, relation company.Relation) ([]string, error)
	AddTeamMember(ctx context.Context, companyID, personID string, relation company.Relation) error
	RemoveTeamMember(ctx context.Context, companyID, personID string, relation company.Relation) error
}

// Jobs は求人のユースケースです。
type Jobs interface {
	CreateJob(ctx context.Context, in job.CreateJobInput) (*job.Job, error)
	GetJob(ctx context.Context, id string) (*job.Job, error)
	ListActive(ctx context.Context, in job.ListJobsInput) (*job.ListJobsResult, error)
	ListJobs(ctx context.Context, in job.ListJobsInput) (*job.ListJobsResult, error)
	UpdateJob(ctx context.Context, in job.UpdateJobInput) (*job.Job, error)
	ApplyEvent(ctx context.Context, id string, event job.Event) (*job.Job, error)
	ExpireStale(ctx context.Context) (int, error)
}

// Mentors はメンタリングプログラムのユースケースです。
type Mentors interface {
	Apply(ctx context.Context, in mentorship.ApplyInput) (*mentorship.Enrollment, error)
	ApplyEvent(ctx context.Context, mentorID string, event mentorship.Event) (*mentorship.MentorProfile, error)
	ListActiveMentors(ctx context.Context, in mentorship.ListMentorsInput) (*mentorship.ListMentorsResult, error)
	ListMentors(ctx context.Context, in mentorship.ListMentorsInput) (*mentorship.ListMentorsResult, error)
	GetMentor(ctx context.Context, id string) (*mentorship.MentorProfile, error)
	AddToRoster(ctx context.Context, mentorID, menteeID string) (*mentorship.RosterEntry, error)
	LogSession(ctx context.Context, in mentorship.LogSessionInput) (*mentorship.Session, error)
	Sessions(ctx context.Context, rosterID string) ([]*mentorship.Session, error)
	Review(ctx context.Context, in mentorship.ReviewInput) (*mentorship.Review, error)
}

// Matches は推薦です。
type Matches interface {
	TopJobs(ctx context.Context, personID string, limit int) ([]matching.Match, error)
	TopMentors(ctx context.Context, personID string, limit int) ([]matching.Match, error)
}

// Taxonomy はドロップダウン用の分類一覧です。
type Taxonomy interface {
	List(ctx context.Context, kind taxonomy.Kind) ([]*taxonomy.Term, error)
	SalaryRanges(ctx context.Context) ([]*taxonomy.SalaryRange, error)
}

// Deps は Handler の依存です。
type Deps struct {
	People          People
	CompanyAccounts CompanyRegistrar
	Onboarding      Onboarding
	Companies       Companies
	Jobs            Jobs
	Mentors         Mentors
	Matches         Matches
	Taxonomy        Taxonomy
	Tokens          *Tokens
	CookieName      string
	SecureCookie    bool
	AllowedOrigins  []string
	MaxUploadBytes  int64
	RequestTimeout  time.Duration
	Logger          *slog.Logger
}

// Handler は REST API のハンドラーです。
type Handler struct {
	people         People
	companyAccts   CompanyRegistrar
	onboarding     Onboarding
	companies      Companies
	jobs           Jobs
	mentors        Mentors
	matches        Matches
	taxonomy       Taxonomy
	tokens         *Tokens
	cookieName     string
	secureCookie   bool
	maxUploadBytes int64
	logger         *slog.Logger
}

const (
	defaultCookieName     = "talent_board_token"
	defaultMaxUploadBytes = 10 << 20
)

// NewRouter はルーティングとミドルウェアを設定した http.Handler を返します。
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	if d.CookieName == "" {
		d.CookieName = defaultCookieName
	}
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = defaultMaxUploadBytes
	}
	h := &Handler{
		people:         d.People,
		companyAccts:   d.CompanyAccounts,
		onboarding:     d.Onboarding,
		companies:      d.Companies,
		jobs:           d.Jobs,
		mentors:        d.Mentors,
		matches:        d.Matches,
		taxonomy:       d.Taxonomy,
		tokens:         d.Tokens,
		cookieName:     d.CookieName,
		secureCookie:   d.SecureCookie,
		maxUploadBytes: d.MaxUploadBytes,
		logger:         d.Logger,
	}

	r := mux.NewRouter()
	r.Use(recoveryMiddleware(d.Logger))
	r.Use(loggingMiddleware(d.Logger))
	r.Use(corsMiddleware(d.AllowedOrigins))
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, h.logger, errNotFound)
	})

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/auth/register", h.register).Methods(http.MethodPost)
	api.HandleFunc("/auth/register/company", h.registerCompany).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", h.logout).Methods(http.MethodPost)
	api.HandleFunc("/taxonomy/salary-ranges", h.listSalaryRanges).Methods(http.MethodGet)
	api.HandleFunc("/taxonomy/{kind}", h.listTerms).Methods(http.MethodGet)
	api.HandleFunc("/jobs", h.listJobs).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}", h.getJob).Methods(http.MethodGet)
	api.HandleFunc("/companies", h.listCompanies).Methods(http.MethodGet)
	api.HandleFunc("/companies/{id}", h.getCompany).Methods(http.MethodGet)
	api.HandleFunc("/mentors", h.listMentors).Methods(http.MethodGet)
	api.HandleFunc("/mentors/{id}", h.getMentor).Methods(http.MethodGet)

	api.Handle("/me", h.authed(h.me)).Methods(http.MethodGet)
	api.Handle("/me", h.authed(h.deleteMe)).Methods(http.MethodDelete)
	api.Handle("/me/onboarding", h.authed(h.onboard)).Methods(http.MethodPost)
	api.Handle("/me/professional", h.authed(h.updateProfessional)).Methods(http.MethodPatch)
	api.Handle("/me/matches/jobs", h.authed(h.matchJobs)).Methods(http.MethodGet)
	api.Handle("/me/matches/mentors", h.authed(h.matchMentors)).Methods(http.MethodGet)
	api.Handle("/people/{id}", h.authed(h.publicProfile)).Methods(http.MethodGet)
	api.Handle("/companies", h.authed(h.createCompany)).Methods(http.MethodPost)
	api.Handle("/companies/{id}", h.authed(h.updateCompany)).Methods(http.MethodPatch)
	api.Handle("/companies/{id}", h.authed(h.deleteCompany)).Methods(http.MethodDelete)
	api.Handle("/companies/{id}/members", h.authed(h.addTeamMember)).Methods(http.MethodPost)
	api.Handle("/companies/{id}/members", h.authed(h.removeTeamMember)).Methods(http.MethodDelete)
	api.Handle("/jobs", h.authed(h.createJob)).Methods(http.MethodPost)
	api.Handle("/jobs/{id}", h.authed(h.updateJob)).Methods(http.MethodPatch)
	api.Handle("/jobs/{id}/transitions", h.authed(h.transitionJob)).Methods(http.MethodPost)
	api.Handle("/mentorship/apply", h.authed(h.applyMentorship)).Methods(http.MethodPost)
	api.Handle("/mentors/{id}/transitions", h.authed(h.transitionMentor)).Methods(http.MethodPost)
	api.Handle("/roster/{id}/sessions", h.authed(h.listSessions)).Methods(http.MethodGet)
	api.Handle("/roster/{id}/sessions", h.authed(h.logSession)).Methods(http.MethodPost)
	api.Handle("/roster/{id}/reviews", h.authed(h.review)).Methods(http.MethodPost)

	api.Handle("/admin/stats", h.staff(h.stats)).Methods(http.MethodGet)
	api.Handle("/admin/jobs", h.staff(h.adminListJobs)).Methods(http.MethodGet)
	api.Handle("/admin/jobs/expire", h.staff(h.expireJobs)).Methods(http.MethodPost)
	api.Handle("/admin/mentors", h.staff(h.adminListMentors)).Methods(http.MethodGet)
	api.Handle("/admin/roster", h.staff(h.addToRoster)).Methods(http.MethodPost)

	if d.RequestTimeout > 0 {
		return http.TimeoutHandler(r, d.RequestTimeout, `{"error":"request timed out"}`)
	}
	return r
}

func (h *Handler) authed(fn http.HandlerFunc) http.Handler {
	return h.authMiddleware(fn)
}

func (h *Handler) staff(fn http.HandlerFunc) http.Handler {
	return h.authMiddleware(requireStaff(h.logger)(fn))
}

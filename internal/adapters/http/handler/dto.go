package handler

import (
	"time"

	"github.com/ogurasousui/talent-board/internal/core/company"
	"github.com/ogurasousui/talent-board/internal/core/job"
	"github.com/ogurasousui/talent-board/internal/core/matching"
	"github.com/ogurasousui/talent-board/internal/core/mentorship"
	"github.com/ogurasousui/talent-board/internal/core/person"
	"github.com/ogurasousui/talent-board/internal/core/taxonomy"
)

type rolesJSON struct {
	Member         bool `json:"member"`
	Mentor         bool `json:"mentor"`
	Mentee         bool `json:"mentee"`
	CompanyAccount bool `json:"company_account"`
	Recruiter      bool `json:"recruiter"`
	OpenDoors      bool `json:"open_doors"`
	Staff          bool `json:"staff"`
}

type marketingJSON struct {
	Jobs             bool `json:"jobs"`
	Events           bool `json:"events"`
	OrgUpdates       bool `json:"org_updates"`
	IdentityPrograms bool `json:"identity_programs"`
	Newsletter       bool `json:"newsletter"`
}

func (m marketingJSON) toDomain() person.Marketing {
	return person.Marketing{
		Jobs:             m.Jobs,
		Events:           m.Events,
		OrgUpdates:       m.OrgUpdates,
		IdentityPrograms: m.IdentityPrograms,
		Newsletter:       m.Newsletter,
	}
}

type personJSON struct {
	ID                 string        `json:"id"`
	Email              string        `json:"email"`
	FirstName          string        `json:"first_name"`
	LastName           string        `json:"last_name"`
	Roles              rolesJSON     `json:"roles"`
	OnboardingComplete bool          `json:"onboarding_complete"`
	Marketing          marketingJSON `json:"marketing"`
	CreatedAt          time.Time     `json:"created_at"`
}

func toPersonJSON(p *person.Person) personJSON {
	return personJSON{
		ID:        p.ID,
		Email:     p.Email,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Roles: rolesJSON{
			Member:         p.Roles.Member,
			Mentor:         p.Roles.Mentor,
			Mentee:         p.Roles.Mentee,
			CompanyAccount: p.Roles.CompanyAccount,
			Recruiter:      p.Roles.Recruiter,
			OpenDoors:      p.Roles.OpenDoors,
			Staff:          p.Roles.Staff,
		},
		OnboardingComplete: p.OnboardingComplete,
		Marketing: marketingJSON{
			Jobs:             p.Marketing.Jobs,
			Events:           p.Marketing.Events,
			OrgUpdates:       p.Marketing.OrgUpdates,
			IdentityPrograms: p.Marketing.IdentityPrograms,
			Newsletter:       p.Marketing.Newsletter,
		},
		CreatedAt: p.CreatedAt,
	}
}

type termJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func toTermsJSON(terms []taxonomy.Term) []termJSON {
	out := make([]termJSON, 0, len(terms))
	for _, t := range terms {
		out = append(out, termJSON{ID: t.ID, Name: t.Name})
	}
	return out
}

type professionalJSON struct {
	Experience  string     `json:"experience"`
	JobTitle    string     `json:"job_title"`
	Skills      []termJSON `json:"skills"`
	Roles       []termJSON `json:"roles"`
	Departments []termJSON `json:"departments"`
	Industries  []termJSON `json:"industries"`
	Certs       []termJSON `json:"certs"`
	MinSalaryID string     `json:"min_salary_id,omitempty"`
	MaxSalaryID string     `json:"max_salary_id,omitempty"`
	ResumeRef   string     `json:"resume_ref,omitempty"`
	PhotoRef    string     `json:"photo_ref,omitempty"`
}

func toProfessionalJSON(p *person.ProfessionalProfile) *professionalJSON {
	if p == nil {
		return nil
	}
	return &professionalJSON{
		Experience:  string(p.Experience),
		JobTitle:    p.JobTitle,
		Skills:      toTermsJSON(p.Skills),
		Roles:       toTermsJSON(p.Roles),
		Departments: toTermsJSON(p.Departments),
		Industries:  toTermsJSON(p.Industries),
		Certs:       toTermsJSON(p.Certs),
		MinSalaryID: p.MinSalaryID,
		MaxSalaryID: p.MaxSalaryID,
		ResumeRef:   p.ResumeRef,
		PhotoRef:    p.PhotoRef,
	}
}

type identityJSON struct {
	Terms   []termJSON `json:"terms"`
	Display bool       `json:"display"`
}

type demographicJSON struct {
	Sexuality identityJSON `json:"sexuality"`
	Gender    identityJSON `json:"gender"`
	Ethnicity identityJSON `json:"ethnicity"`
	Pronouns  identityJSON `json:"pronouns"`
	Disabled  bool         `json:"disabled"`
	Caregiver bool         `json:"caregiver"`
	Veteran   bool         `json:"veteran"`
}

func toIdentityJSON(c person.IdentityCategory) identityJSON {
	return identityJSON{Terms: toTermsJSON(c.Terms), Display: c.Display}
}

// toDemographicJSON は本人向けの表示です。非公開の区分も含みます。
func toDemographicJSON(d *person.DemographicProfile) *demographicJSON {
	if d == nil {
		return nil
	}
	return &demographicJSON{
		Sexuality: toIdentityJSON(d.Sexuality),
		Gender:    toIdentityJSON(d.Gender),
		Ethnicity: toIdentityJSON(d.Ethnicity),
		Pronouns:  toIdentityJSON(d.Pronouns),
		Disabled:  d.Disabled,
		Caregiver: d.Caregiver,
		Veteran:   d.Veteran,
	}
}

type profileJSON struct {
	Person       personJSON        `json:"person"`
	Professional *professionalJSON `json:"professional"`
	Demographic  *demographicJSON  `json:"demographic"`
}

func toProfileJSON(p *person.Profile) profileJSON {
	return profileJSON{
		Person:       toPersonJSON(p.Person),
		Professional: toProfessionalJSON(p.Professional),
		Demographic:  toDemographicJSON(p.Demographic),
	}
}

type publicDemographicsJSON struct {
	Sexuality []string `json:"sexuality,omitempty"`
	Gender    []string `json:"gender,omitempty"`
	Ethnicity []string `json:"ethnicity,omitempty"`
	Pronouns  []string `json:"pronouns,omitempty"`
}

type publicProfileJSON struct {
	ID          string                 `json:"id"`
	FirstName   string                 `json:"first_name"`
	LastName    string                 `json:"last_name"`
	JobTitle    string                 `json:"job_title,omitempty"`
	Skills      []string               `json:"skills"`
	Roles       []string               `json:"roles"`
	Departments []string               `json:"departments"`
	Identity    publicDemographicsJSON `json:"identity"`
}

// toPublicProfileJSON は他の会員向けの表示です。非公開のアイデンティティ区分は含めません。
func toPublicProfileJSON(p *person.Profile) publicProfileJSON {
	out := publicProfileJSON{
		ID:          p.Person.ID,
		FirstName:   p.Person.FirstName,
		LastName:    p.Person.LastName,
		Skills:      []string{},
		Roles:       []string{},
		Departments: []string{},
	}
	if prof := p.Professional; prof != nil {
		out.JobTitle = prof.JobTitle
		out.Skills = taxonomy.Names(prof.Skills)
		out.Roles = taxonomy.Names(prof.Roles)
		out.Departments = taxonomy.Names(prof.Departments)
	}
	if p.Demographic != nil {
		pub := p.Demographic.Public()
		out.Identity = publicDemographicsJSON{
			Sexuality: pub.Sexuality,
			Gender:    pub.Gender,
			Ethnicity: pub.Ethnicity,
			Pronouns:  pub.Pronouns,
		}
	}
	return out
}

type companyJSON struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	URL         string    `json:"url,omitempty"`
	LogoRef     string    `json:"logo_ref,omitempty"`
	Description *string   `json:"description,omitempty"`
	Unclaimed   bool      `json:"unclaimed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toCompanyJSON(c *company.Company) *companyJSON {
	if c == nil {
		return nil
	}
	return &companyJSON{
		ID:          c.ID,
		Name:        c.Name,
		URL:         c.URL,
		LogoRef:     c.LogoRef,
		Description: c.Description,
		Unclaimed:   c.Unclaimed,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

type jobJSON struct {
	ID          string     `json:"id"`
	CompanyID   string     `json:"company_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	ApplyURL    string     `json:"apply_url,omitempty"`
	Location    string     `json:"location,omitempty"`
	Remote      bool       `json:"remote"`
	Status      string     `json:"status"`
	Skills      []termJSON `json:"skills"`
	Departments []termJSON `json:"departments"`
	SalaryID    string     `json:"salary_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PostedAt    *time.Time `json:"posted_at,omitempty"`
}

func toJobJSON(j *job.Job) jobJSON {
	return jobJSON{
		ID:          j.ID,
		CompanyID:   j.CompanyID,
		Title:       j.Title,
		Description: j.Description,
		ApplyURL:    j.ApplyURL,
		Location:    j.Location,
		Remote:      j.Remote,
		Status:      string(j.Status),
		Skills:      toTermsJSON(j.Skills),
		Departments: toTermsJSON(j.Departments),
		SalaryID:    j.SalaryID,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
		PostedAt:    j.PostedAt,
	}
}

type mentorJSON struct {
	ID        string    `json:"id"`
	PersonID  string    `json:"person_id"`
	Status    string    `json:"status"`
	Capacity  int       `json:"capacity"`
	Bio       string    `json:"bio,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toMentorJSON(m *mentorship.MentorProfile) *mentorJSON {
	if m == nil {
		return nil
	}
	return &mentorJSON{
		ID:        m.ID,
		PersonID:  m.PersonID,
		Status:    string(m.Status),
		Capacity:  m.Capacity,
		Bio:       m.Bio,
		CreatedAt: m.CreatedAt,
	}
}

type menteeJSON struct {
	ID       string `json:"id"`
	PersonID string `json:"person_id"`
	Goals    string `json:"goals,omitempty"`
}

type enrollmentJSON struct {
	Commitment string      `json:"commitment"`
	Mentor     *mentorJSON `json:"mentor,omitempty"`
	Mentee     *menteeJSON `json:"mentee,omitempty"`
}

func toEnrollmentJSON(e *mentorship.Enrollment) *enrollmentJSON {
	if e == nil {
		return nil
	}
	out := &enrollmentJSON{Mentor: toMentorJSON(e.Mentor)}
	if e.Program != nil {
		out.Commitment = string(e.Program.Commitment)
	}
	if e.Mentee != nil {
		out.Mentee = &menteeJSON{ID: e.Mentee.ID, PersonID: e.Mentee.PersonID, Goals: e.Mentee.Goals}
	}
	return out
}

type rosterJSON struct {
	ID        string     `json:"id"`
	MentorID  string     `json:"mentor_id"`
	MenteeID  string     `json:"mentee_id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

type sessionJSON struct {
	ID              string    `json:"id"`
	RosterID        string    `json:"roster_id"`
	OccurredAt      time.Time `json:"occurred_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Notes           string    `json:"notes,omitempty"`
}

func toSessionJSON(s *mentorship.Session) sessionJSON {
	return sessionJSON{
		ID:              s.ID,
		RosterID:        s.RosterID,
		OccurredAt:      s.OccurredAt,
		DurationMinutes: s.DurationMinutes,
		Notes:           s.Notes,
	}
}

type reviewJSON struct {
	ID       string `json:"id"`
	RosterID string `json:"roster_id"`
	Rating   int    `json:"rating"`
	Comment  string `json:"comment,omitempty"`
}

type matchJSON struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Score int    `json:"score"`
}

func toMatchesJSON(matches []matching.Match) []matchJSON {
	out := make([]matchJSON, 0, len(matches))
	for _, m := range matches {
		out = append(out, matchJSON{ID: m.Candidate.ID, Label: m.Candidate.Label, Score: m.Score})
	}
	return out
}

type statsJSON struct {
	Total              int  `json:"total"`
	Members            int  `json:"members"`
	Mentors            int  `json:"mentors"`
	Mentees            int  `json:"mentees"`
	CompanyAccounts    int  `json:"company_accounts"`
	Recruiters         int  `json:"recruiters"`
	OpenDoors          int  `json:"open_doors"`
	Staff              int  `json:"staff"`
	OnboardingComplete int  `json:"onboarding_complete"`
	Deleted            int  `json:"deleted"`
	IncludeDeleted     bool `json:"include_deleted"`
}

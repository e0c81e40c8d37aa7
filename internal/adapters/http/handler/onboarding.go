package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/ogurasousui/talent-board/internal/core/company"
	"github.com/ogurasousui/talent-board/internal/core/mentorship"
	"github.com/ogurasousui/talent-board/internal/core/onboarding"
	"github.com/ogurasousui/talent-board/internal/core/person"
	"github.com/ogurasousui/talent-board/internal/core/taxonomy"
)

const profilePart = "profile"

type identityRequest struct {
	Labels  []string `json:"labels"`
	Display bool     `json:"display"`
}

type companyRefRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type mentorshipRequest struct {
	Mentor     bool   `json:"mentor"`
	Mentee     bool   `json:"mentee"`
	Commitment string `json:"commitment"`
	Capacity   int    `json:"capacity"`
	Bio        string `json:"bio"`
	Goals      string `json:"goals"`
}

type onboardingRequest struct {
	Experience  string                     `json:"experience"`
	JobTitle    string                     `json:"job_title"`
	Skills      []string                   `json:"skills"`
	Roles       []string                   `json:"roles"`
	Departments []string                   `json:"departments"`
	Industries  []string                   `json:"industries"`
	Certs       []string                   `json:"certs"`
	MinSalaryID string                     `json:"min_salary_id"`
	MaxSalaryID string                     `json:"max_salary_id"`
	Identity    map[string]identityRequest `json:"identity"`
	Disabled    bool                       `json:"disabled"`
	Caregiver   bool                       `json:"caregiver"`
	Veteran     bool                       `json:"veteran"`
	Company     *companyRefRequest         `json:"company"`
	Mentorship  *mentorshipRequest         `json:"mentorship"`
	Marketing   marketingJSON              `json:"marketing"`
}

func (req onboardingRequest) toDomain() onboarding.Form {
	form := onboarding.Form{
		Experience:  person.ExperienceBand(req.Experience),
		JobTitle:    req.JobTitle,
		Skills:      req.Skills,
		Roles:       req.Roles,
		Departments: req.Departments,
		Industries:  req.Industries,
		Certs:       req.Certs,
		MinSalaryID: req.MinSalaryID,
		MaxSalaryID: req.MaxSalaryID,
		Disabled:    req.Disabled,
		Caregiver:   req.Caregiver,
		Veteran:     req.Veteran,
		Marketing:   req.Marketing.toDomain(),
	}
	if len(req.Identity) > 0 {
		form.Identity = make(map[taxonomy.Kind]onboarding.IdentityField, len(req.Identity))
		for kind, field := range req.Identity {
			form.Identity[taxonomy.Kind(kind)] = onboarding.IdentityField{Labels: field.Labels, Display: field.Display}
		}
	}
	if c := req.Company; c != nil {
		ref := company.Ref{ID: c.ID, Name: c.Name, URL: c.URL}
		if !ref.IsZero() {
			form.Company = &ref
		}
	}
	if m := req.Mentorship; m != nil && (m.Mentor || m.Mentee) {
		form.Mentorship = &onboarding.MentorshipForm{
			Mentor:     m.Mentor,
			Mentee:     m.Mentee,
			Commitment: mentorship.Commitment(m.Commitment),
			Capacity:   m.Capacity,
			Bio:        m.Bio,
			Goals:      m.Goals,
		}
	}
	return form
}

type onboardingResponse struct {
	Profile    profileJSON     `json:"profile"`
	Company    *companyJSON    `json:"company,omitempty"`
	Mentorship *enrollmentJSON `json:"mentorship,omitempty"`
}

// onboard は JSON 本文、または profile パートとファイルを持つ multipart を受け付けます。
func (h *Handler) onboard(w http.ResponseWriter, r *http.Request) {
	body, files, cleanup, err := h.readProfileRequest(w, r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	defer cleanup()

	var req onboardingRequest
	if err := validateAndDecode(r.Context(), onboardingSchema, body, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	p, _ := currentPerson(r.Context())
	result, err := h.onboarding.Assemble(r.Context(), p.ID, req.toDomain(), files)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, onboardingResponse{
		Profile:    toProfileJSON(result.Profile),
		Company:    toCompanyJSON(result.Company),
		Mentorship: toEnrollmentJSON(result.Enrollment),
	})
}

type professionalRequest struct {
	Experience  *string  `json:"experience"`
	JobTitle    *string  `json:"job_title"`
	Skills      []string `json:"skills"`
	Roles       []string `json:"roles"`
	Departments []string `json:"departments"`
	Industries  []string `json:"industries"`
	Certs       []string `json:"certs"`
	MinSalaryID *string  `json:"min_salary_id"`
	MaxSalaryID *string  `json:"max_salary_id"`
}

func (req professionalRequest) toDomain() onboarding.ProfessionalForm {
	form := onboarding.ProfessionalForm{
		JobTitle:    req.JobTitle,
		Skills:      req.Skills,
		Roles:       req.Roles,
		Departments: req.Departments,
		Industries:  req.Industries,
		Certs:       req.Certs,
		MinSalaryID: req.MinSalaryID,
		MaxSalaryID: req.MaxSalaryID,
	}
	if req.Experience != nil {
		band := person.ExperienceBand(*req.Experience)
		form.Experience = &band
	}
	return form
}

func (h *Handler) updateProfessional(w http.ResponseWriter, r *http.Request) {
	body, files, cleanup, err := h.readProfileRequest(w, r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	defer cleanup()

	var req professionalRequest
	if err := decodeStrict(body, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	p, _ := currentPerson(r.Context())
	prof, err := h.onboarding.UpdateProfessional(r.Context(), p.ID, req.toDomain(), files)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfessionalJSON(prof))
}

// readProfileRequest は JSON 本文とアップロードファイルを取り出します。
// cleanup は開いたファイルを閉じるため、呼び出し元で必ず実行します。
func (h *Handler) readProfileRequest(w http.ResponseWriter, r *http.Request) ([]byte, onboarding.Files, func(), error) {
	var files onboarding.Files
	noop := func() {}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		body, err := readBody(r)
		return body, files, noop, err
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+maxJSONBody)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		return nil, files, noop, fmt.Errorf("%w: %v", errBadJSON, err)
	}

	var opened []multipart.File
	cleanup := func() {
		for _, f := range opened {
			_ = f.Close()
		}
		_ = r.MultipartForm.RemoveAll()
	}

	for _, field := range []struct {
		name string
		dst  **onboarding.Upload
	}{{"resume", &files.Resume}, {"photo", &files.Photo}} {
		f, header, err := r.FormFile(field.name)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			cleanup()
			return nil, files, noop, fmt.Errorf("%w: %s: %v", errBadJSON, field.name, err)
		}
		opened = append(opened, f)
		*field.dst = &onboarding.Upload{Filename: header.Filename, Content: f}
	}

	body := []byte(r.FormValue(profilePart))
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}
	return body, files, cleanup, nil
}

func decodeStrict(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadJSON, err)
	}
	return nil
}

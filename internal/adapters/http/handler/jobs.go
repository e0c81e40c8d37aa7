package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ogurasousui/talent-board/internal/core/company"
	"github.com/ogurasousui/talent-board/internal/core/job"
)

type listJobsResponse struct {
	Jobs          []jobJSON `json:"jobs"`
	NextPageToken string    `json:"next_page_token,omitempty"`
}

func writeJobs(w http.ResponseWriter, result *job.ListJobsResult) {
	out := listJobsResponse{Jobs: make([]jobJSON, 0, len(result.Jobs)), NextPageToken: result.NextPageToken}
	for _, j := range result.Jobs {
		out.Jobs = append(out.Jobs, toJobJSON(j))
	}
	writeJSON(w, http.StatusOK, out)
}

// listJobs は公開中の求人のみを返します。
func (h *Handler) listJobs(w http.ResponseWriter, r *http.Request) {
	result, err := h.jobs.ListActive(r.Context(), job.ListJobsInput{
		PageSize:  queryInt(r, "page_size"),
		PageToken: r.URL.Query().Get("page_token"),
		CompanyID: r.URL.Query().Get("company_id"),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJobs(w, result)
}

func (h *Handler) adminListJobs(w http.ResponseWriter, r *http.Request) {
	in := job.ListJobsInput{
		PageSize:  queryInt(r, "page_size"),
		PageToken: r.URL.Query().Get("page_token"),
		CompanyID: r.URL.Query().Get("company_id"),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := job.Status(raw)
		in.Status = &status
	}
	result, err := h.jobs.ListJobs(r.Context(), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJobs(w, result)
}

// getJob は公開中でない求人を存在しないものとして扱います。
func (h *Handler) getJob(w http.ResponseWriter, r *http.Request) {
	j, err := h.jobs.GetJob(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if j.Status != job.StatusActive {
		writeError(w, r, h.logger, job.ErrJobNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toJobJSON(j))
}

type createJobRequest struct {
	CompanyID   string   `json:"company_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ApplyURL    string   `json:"apply_url"`
	Location    string   `json:"location"`
	Remote      bool     `json:"remote"`
	Skills      []string `json:"skills"`
	Departments []string `json:"departments"`
	SalaryID    string   `json:"salary_id"`
}

func (h *Handler) createJob(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req createJobRequest
	if err := validateAndDecode(r.Context(), createJobSchema, body, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.authorizeCompany(r.Context(), req.CompanyID, company.RelationAdmin, company.RelationHiring); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	p, _ := currentPerson(r.Context())
	j, err := h.jobs.CreateJob(r.Context(), job.CreateJobInput{
		CompanyID:   req.CompanyID,
		Title:       req.Title,
		Description: req.Description,
		ApplyURL:    req.ApplyURL,
		Location:    req.Location,
		Remote:      req.Remote,
		Skills:      req.Skills,
		Departments: req.Departments,
		SalaryID:    req.SalaryID,
		CreatedBy:   p.ID,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toJobJSON(j))
}

type updateJobRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	ApplyURL    *string  `json:"apply_url"`
	Location    *string  `json:"location"`
	Remote      *bool    `json:"remote"`
	Skills      []string `json:"skills"`
	Departments []string `json:"departments"`
	SalaryID    *string  `json:"salary_id"`
}

func (h *Handler) updateJob(w http.ResponseWriter, r *http.Request) {
	var req updateJobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	existing, err := h.jobs.GetJob(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.authorizeCompany(r.Context(), existing.CompanyID, company.RelationAdmin, company.RelationHiring); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	j, err := h.jobs.UpdateJob(r.Context(), job.UpdateJobInput{
		ID:          existing.ID,
		Title:       req.Title,
		Description: req.Description,
		ApplyURL:    req.ApplyURL,
		Location:    req.Location,
		Remote:      req.Remote,
		Skills:      req.Skills,
		Departments: req.Departments,
		SalaryID:    req.SalaryID,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobJSON(j))
}

type transitionRequest struct {
	Event string `json:"event"`
}

// transitionJob は審査系のイベントを管理者に限定し、それ以外は会社の管理者・採用担当に許可します。
func (h *Handler) transitionJob(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	event := job.Event(req.Event)

	existing, err := h.jobs.GetJob(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	p, _ := currentPerson(r.Context())
	if event.StaffOnly() {
		if !isStaff(p) {
			writeError(w, r, h.logger, errForbidden)
			return
		}
	} else if err := h.authorizeCompany(r.Context(), existing.CompanyID, company.RelationAdmin, company.RelationHiring); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	j, err := h.jobs.ApplyEvent(r.Context(), existing.ID, event)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobJSON(j))
}

type expireResponse struct {
	Expired int `json:"expired"`
}

func (h *Handler) expireJobs(w http.ResponseWriter, r *http.Request) {
	n, err := h.jobs.ExpireStale(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, expireResponse{Expired: n})
}

func (h *Handler) matchJobs(w http.ResponseWriter, r *http.Request) {
	p, _ := currentPerson(r.Context())
	matches, err := h.matches.TopJobs(r.Context(), p.ID, queryInt(r, "limit"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]matchJSON{"matches": toMatchesJSON(matches)})
}

func (h *Handler) matchMentors(w http.ResponseWriter, r *http.Request) {
	p, _ := currentPerson(r.Context())
	matches, err := h.matches.TopMentors(r.Context(), p.ID, queryInt(r, "limit"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]matchJSON{"matches": toMatchesJSON(matches)})
}

package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ogurasousui/talent-board/internal/core/person"
	"github.com/ogurasousui/talent-board/internal/core/taxonomy"
)

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	includeDeleted, err := queryBool(r, "include_deleted")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	filter := person.StatsFilter{IncludeDeleted: includeDeleted != nil && *includeDeleted}
	s, err := h.people.Stats(r.Context(), filter)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, statsJSON{
		Total:              s.Total,
		Members:            s.Members,
		Mentors:            s.Mentors,
		Mentees:            s.Mentees,
		CompanyAccounts:    s.CompanyAccounts,
		Recruiters:         s.Recruiters,
		OpenDoors:          s.OpenDoors,
		Staff:              s.Staff,
		OnboardingComplete: s.OnboardingComplete,
		Deleted:            s.Deleted,
		IncludeDeleted:     filter.IncludeDeleted,
	})
}

func (h *Handler) listTerms(w http.ResponseWriter, r *http.Request) {
	terms, err := h.taxonomy.List(r.Context(), taxonomy.Kind(mux.Vars(r)["kind"]))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	out := make([]termJSON, 0, len(terms))
	for _, t := range terms {
		out = append(out, termJSON{ID: t.ID, Name: t.Name})
	}
	writeJSON(w, http.StatusOK, map[string][]termJSON{"terms": out})
}

type salaryRangeJSON struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	MinAmount int    `json:"min_amount"`
	MaxAmount int    `json:"max_amount"`
}

func (h *Handler) listSalaryRanges(w http.ResponseWriter, r *http.Request) {
	ranges, err := h.taxonomy.SalaryRanges(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	out := make([]salaryRangeJSON, 0, len(ranges))
	for _, s := range ranges {
		out = append(out, salaryRangeJSON{ID: s.ID, Label: s.Label, MinAmount: s.MinAmount, MaxAmount: s.MaxAmount})
	}
	writeJSON(w, http.StatusOK, map[string][]salaryRangeJSON{"salary_ranges": out})
}

package handler

import (
	"context"
	"net/http"
	"slices"

	"github.com/gorilla/mux"

	"github.com/ogurasousui/talent-board/internal/core/company"
	"github.com/ogurasousui/talent-board/internal/core/person"
)

type listCompaniesResponse struct {
	Companies     []*companyJSON `json:"companies"`
	NextPageToken string         `json:"next_page_token,omitempty"`
}

func (h *Handler) listCompanies(w http.ResponseWriter, r *http.Request) {
	unclaimed, err := queryBool(r, "unclaimed")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	result, err := h.companies.ListCompanies(r.Context(), company.ListCompaniesInput{
		PageSize:  queryInt(r, "page_size"),
		PageToken: r.URL.Query().Get("page_token"),
		Unclaimed: unclaimed,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	out := listCompaniesResponse{Companies: make([]*companyJSON, 0, len(result.Companies)), NextPageToken: result.NextPageToken}
	for _, c := range result.Companies {
		out.Companies = append(out.Companies, toCompanyJSON(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getCompany(w http.ResponseWriter, r *http.Request) {
	c, err := h.companies.GetCompany(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toCompanyJSON(c))
}

type createCompanyRequest struct {
	Name        string  `json:"name"`
	URL         string  `json:"url"`
	LogoRef     string  `json:"logo_ref"`
	Description *string `json:"description"`
}

func (h *Handler) createCompany(w http.ResponseWriter, r *http.Request) {
	var req createCompanyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	p, _ := currentPerson(r.Context())
	if !p.Roles.CompanyAccount && !p.Roles.Staff {
		writeError(w, r, h.logger, errForbidden)
		return
	}
	c, err := h.companies.CreateCompany(r.Context(), company.CreateCompanyInput{
		Name:        req.Name,
		URL:         req.URL,
		LogoRef:     req.LogoRef,
		Description: req.Description,
		CreatedBy:   p.ID,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCompanyJSON(c))
}

type updateCompanyRequest struct {
	Name        *string `json:"name"`
	URL         *string `json:"url"`
	LogoRef     *string `json:"logo_ref"`
	Description *string `json:"description"`
}

func (h *Handler) updateCompany(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req updateCompanyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.authorizeCompany(r.Context(), id, company.RelationAdmin); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	c, err := h.companies.UpdateCompany(r.Context(), company.UpdateCompanyInput{
		ID:          id,
		Name:        req.Name,
		URL:         req.URL,
		LogoRef:     req.LogoRef,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toCompanyJSON(c))
}

func (h *Handler) deleteCompany(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.authorizeCompany(r.Context(), id, company.RelationAdmin); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.companies.DeleteCompany(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type teamMemberRequest struct {
	PersonID string           `json:"person_id"`
	Relation company.Relation `json:"relation"`
}

// addTeamMember は会社の billing / hiring / admin いずれかの集合に人物を加えます。会社の admin か staff のみ実行できます。
func (h *Handler) addTeamMember(w http.ResponseWriter, r *http.Request) {
	h.changeTeamMember(w, r, h.companies.AddTeamMember)
}

func (h *Handler) removeTeamMember(w http.ResponseWriter, r *http.Request) {
	h.changeTeamMember(w, r, h.companies.RemoveTeamMember)
}

func (h *Handler) changeTeamMember(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, companyID, personID string, relation company.Relation) error) {
	id := mux.Vars(r)["id"]
	if err := h.authorizeCompany(r.Context(), id, company.RelationAdmin); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req teamMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := apply(r.Context(), id, req.PersonID, req.Relation); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// authorizeCompany は呼び出し元が管理者か、会社に対していずれかの関係を持つことを確認します。
func (h *Handler) authorizeCompany(ctx context.Context, companyID string, relations ...company.Relation) error {
	p, ok := currentPerson(ctx)
	if !ok {
		return errUnauthorized
	}
	if p.Roles.Staff {
		return nil
	}
	for _, rel := range relations {
		members, err := h.companies.Members(ctx, companyID, rel)
		if err != nil {
			return err
		}
		if slices.Contains(members, p.ID) {
			return nil
		}
	}
	return errForbidden
}

func isStaff(p *person.Person) bool {
	return p != nil && p.Roles.Staff
}

package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ogurasousui/talent-board/internal/core/company"
	"github.com/ogurasousui/talent-board/internal/core/onboarding"
	"github.com/ogurasousui/talent-board/internal/core/person"
)

type registerRequest struct {
	AccountType string        `json:"account_type"`
	Email       string        `json:"email"`
	FirstName   string        `json:"first_name"`
	LastName    string        `json:"last_name"`
	Password    string        `json:"password"`
	Marketing   marketingJSON `json:"marketing"`
}

func (req registerRequest) toDomain() person.RegisterInput {
	accountType := person.AccountType(req.AccountType)
	if accountType == "" {
		accountType = person.AccountMember
	}
	return person.RegisterInput{
		AccountType: accountType,
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Password:    req.Password,
		Marketing:   req.Marketing.toDomain(),
	}
}

type registerCompanyRequest struct {
	registerRequest
	CompanyName string  `json:"company_name"`
	CompanyURL  string  `json:"company_url"`
	Description *string `json:"description"`
}

type authResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	Person    personJSON   `json:"person"`
	Company   *companyJSON `json:"company,omitempty"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	in := req.toDomain()
	if in.AccountType == person.AccountCompany {
		writeError(w, r, h.logger, errForbidden)
		return
	}

	p, err := h.people.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.writeSession(w, r, http.StatusCreated, p, nil)
}

func (h *Handler) registerCompany(w http.ResponseWriter, r *http.Request) {
	var req registerCompanyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	p, c, err := h.companyAccts.Register(r.Context(), onboarding.RegisterCompanyInput{
		Account: req.toDomain(),
		Company: company.CreateCompanyInput{
			Name:        req.CompanyName,
			URL:         req.CompanyURL,
			Description: req.Description,
		},
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.writeSession(w, r, http.StatusCreated, p, c)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	p, err := h.people.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.writeSession(w, r, http.StatusOK, p, nil)
}

// logout はトークンがステートレスなため Cookie を消すのみです。
func (h *Handler) logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeSession(w http.ResponseWriter, r *http.Request, status int, p *person.Person, c *company.Company) {
	token, expires, err := h.tokens.Issue(p.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, status, authResponse{Token: token, ExpiresAt: expires, Person: toPersonJSON(p), Company: toCompanyJSON(c)})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	p, _ := currentPerson(r.Context())
	profile, err := h.people.Profile(r.Context(), p.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileJSON(profile))
}

type deleteMeRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) deleteMe(w http.ResponseWriter, r *http.Request) {
	var req deleteMeRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
	}
	p, _ := currentPerson(r.Context())
	if err := h.people.SoftDelete(r.Context(), p.ID, req.Reason); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.logout(w, r)
}

func (h *Handler) publicProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.people.Profile(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toPublicProfileJSON(profile))
}

package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ogurasousui/talent-board/internal/core/mentorship"
)

type listMentorsResponse struct {
	Mentors       []*mentorJSON `json:"mentors"`
	NextPageToken string        `json:"next_page_token,omitempty"`
}

func writeMentors(w http.ResponseWriter, result *mentorship.ListMentorsResult) {
	out := listMentorsResponse{Mentors: make([]*mentorJSON, 0, len(result.Mentors)), NextPageToken: result.NextPageToken}
	for _, m := range result.Mentors {
		out.Mentors = append(out.Mentors, toMentorJSON(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) listMentors(w http.ResponseWriter, r *http.Request) {
	result, err := h.mentors.ListActiveMentors(r.Context(), mentorship.ListMentorsInput{
		PageSize:  queryInt(r, "page_size"),
		PageToken: r.URL.Query().Get("page_token"),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeMentors(w, result)
}

func (h *Handler) adminListMentors(w http.ResponseWriter, r *http.Request) {
	in := mentorship.ListMentorsInput{
		PageSize:  queryInt(r, "page_size"),
		PageToken: r.URL.Query().Get("page_token"),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := mentorship.Status(raw)
		in.Status = &status
	}
	result, err := h.mentors.ListMentors(r.Context(), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeMentors(w, result)
}

func (h *Handler) getMentor(w http.ResponseWriter, r *http.Request) {
	m, err := h.mentors.GetMentor(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if m.Status != mentorship.StatusActive {
		writeError(w, r, h.logger, mentorship.ErrMentorNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toMentorJSON(m))
}

type applyRequest struct {
	Commitment string `json:"commitment"`
	Mentor     bool   `json:"mentor"`
	Mentee     bool   `json:"mentee"`
	Capacity   int    `json:"capacity"`
	Bio        string `json:"bio"`
	Goals      string `json:"goals"`
}

func (h *Handler) applyMentorship(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	p, _ := currentPerson(r.Context())
	enrollment, err := h.mentors.Apply(r.Context(), mentorship.ApplyInput{
		PersonID:   p.ID,
		Commitment: mentorship.Commitment(req.Commitment),
		Mentor:     req.Mentor,
		Mentee:     req.Mentee,
		Capacity:   req.Capacity,
		Bio:        req.Bio,
		Goals:      req.Goals,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toEnrollmentJSON(enrollment))
}

// transitionMentor は pause と resume をメンター本人にも許可し、それ以外は管理者に限定します。
func (h *Handler) transitionMentor(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	event := mentorship.Event(req.Event)
	id := mux.Vars(r)["id"]

	p, _ := currentPerson(r.Context())
	if !isStaff(p) {
		if event != mentorship.EventPause && event != mentorship.EventResume {
			writeError(w, r, h.logger, errForbidden)
			return
		}
		m, err := h.mentors.GetMentor(r.Context(), id)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		if m.PersonID != p.ID {
			writeError(w, r, h.logger, errForbidden)
			return
		}
	}

	m, err := h.mentors.ApplyEvent(r.Context(), id, event)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toMentorJSON(m))
}

type rosterRequest struct {
	MentorID string `json:"mentor_id"`
	MenteeID string `json:"mentee_id"`
}

func (h *Handler) addToRoster(w http.ResponseWriter, r *http.Request) {
	var req rosterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	entry, err := h.mentors.AddToRoster(r.Context(), req.MentorID, req.MenteeID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, rosterJSON{
		ID:        entry.ID,
		MentorID:  entry.MentorID,
		MenteeID:  entry.MenteeID,
		StartedAt: entry.StartedAt,
		EndedAt:   entry.EndedAt,
	})
}

type sessionRequest struct {
	OccurredAt      *time.Time `json:"occurred_at"`
	DurationMinutes int        `json:"duration_minutes"`
	Notes           string     `json:"notes"`
}

func (h *Handler) logSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	in := mentorship.LogSessionInput{
		RosterID:        mux.Vars(r)["id"],
		DurationMinutes: req.DurationMinutes,
		Notes:           req.Notes,
	}
	if req.OccurredAt != nil {
		in.OccurredAt = req.OccurredAt.UTC()
	}
	s, err := h.mentors.LogSession(r.Context(), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionJSON(s))
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.mentors.Sessions(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	out := make([]sessionJSON, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toSessionJSON(s))
	}
	writeJSON(w, http.StatusOK, map[string][]sessionJSON{"sessions": out})
}

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	p, _ := currentPerson(r.Context())
	rv, err := h.mentors.Review(r.Context(), mentorship.ReviewInput{
		RosterID:   mux.Vars(r)["id"],
		ReviewerID: p.ID,
		Rating:     req.Rating,
		Comment:    req.Comment,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, reviewJSON{ID: rv.ID, RosterID: rv.RosterID, Rating: rv.Rating, Comment: rv.Comment})
}

package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ogurasousui/talent-board/internal/core/company"
	"github.com/ogurasousui/talent-board/internal/core/job"
	"github.com/ogurasousui/talent-board/internal/core/mentorship"
	"github.com/ogurasousui/talent-board/internal/core/onboarding"
	"github.com/ogurasousui/talent-board/internal/core/person"
	"github.com/ogurasousui/talent-board/internal/core/taxonomy"
	"github.com/ogurasousui/talent-board/internal/platform/storage"
)

var (
	errUnauthorized = errors.New("authentication required")
	errForbidden    = errors.New("permission denied")
	errNotFound     = errors.New("not found")
)

// validationError はリクエストのスキーマ検証エラーです。
type validationError struct {
	fields []string
}

func (e *validationError) Error() string {
	return "validation failed: " + strings.Join(e.fields, "; ")
}

func statusFor(err error) int {
	var verr *validationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, errBadJSON),
		errors.Is(err, errBadQuery),
		errors.Is(err, person.ErrEmailAlreadyExists),
		errors.Is(err, person.ErrInvalidEmail),
		errors.Is(err, person.ErrInvalidName),
		errors.Is(err, person.ErrInvalidID),
		errors.Is(err, person.ErrInvalidAccountType),
		errors.Is(err, person.ErrWeakPassword),
		errors.Is(err, person.ErrInvalidExperience),
		errors.Is(err, onboarding.ErrAlreadyOnboarded),
		errors.Is(err, onboarding.ErrInvalidSalaryRange),
		errors.Is(err, onboarding.ErrInvalidID),
		errors.Is(err, taxonomy.ErrInvalidKind),
		errors.Is(err, taxonomy.ErrEmptyLabel),
		errors.Is(err, taxonomy.ErrInvalidID),
		errors.Is(err, company.ErrInvalidName),
		errors.Is(err, company.ErrInvalidURL),
		errors.Is(err, company.ErrInvalidRelation),
		errors.Is(err, company.ErrInvalidRef),
		errors.Is(err, company.ErrInvalidID),
		errors.Is(err, company.ErrInvalidPageSize),
		errors.Is(err, company.ErrInvalidPageToken),
		errors.Is(err, job.ErrInvalidTitle),
		errors.Is(err, job.ErrInvalidID),
		errors.Is(err, job.ErrInvalidPageSize),
		errors.Is(err, job.ErrInvalidPageToken),
		errors.Is(err, job.ErrInvalidStatus),
		errors.Is(err, mentorship.ErrInvalidStatus),
		errors.Is(err, mentorship.ErrInvalidCommitment),
		errors.Is(err, mentorship.ErrInvalidCapacity),
		errors.Is(err, mentorship.ErrInvalidRating),
		errors.Is(err, mentorship.ErrInvalidDuration),
		errors.Is(err, mentorship.ErrInvalidID),
		errors.Is(err, mentorship.ErrNoRoleSelected),
		errors.Is(err, mentorship.ErrInvalidPageSize),
		errors.Is(err, mentorship.ErrInvalidPageToken),
		errors.Is(err, storage.ErrTooLarge),
		errors.Is(err, storage.ErrInvalidKind):
		return http.StatusBadRequest
	case errors.Is(err, errUnauthorized),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, person.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, errForbidden),
		errors.Is(err, mentorship.ErrNotRosterMember):
		return http.StatusForbidden
	case errors.Is(err, errNotFound),
		errors.Is(err, person.ErrPersonNotFound),
		errors.Is(err, person.ErrProfileNotFound),
		errors.Is(err, company.ErrCompanyNotFound),
		errors.Is(err, company.ErrPersonNotFound),
		errors.Is(err, job.ErrJobNotFound),
		errors.Is(err, mentorship.ErrMentorNotFound),
		errors.Is(err, mentorship.ErrMenteeNotFound),
		errors.Is(err, mentorship.ErrProgramNotFound),
		errors.Is(err, mentorship.ErrRosterNotFound),
		errors.Is(err, taxonomy.ErrTermNotFound),
		errors.Is(err, taxonomy.ErrSalaryRangeNotFound):
		return http.StatusNotFound
	case errors.Is(err, job.ErrInvalidTransition),
		errors.Is(err, job.ErrStatusConflict),
		errors.Is(err, job.ErrNotEditable),
		errors.Is(err, mentorship.ErrInvalidTransition),
		errors.Is(err, mentorship.ErrStatusConflict),
		errors.Is(err, mentorship.ErrMentorNotActive),
		errors.Is(err, mentorship.ErrMentorAtCapacity),
		errors.Is(err, mentorship.ErrAlreadyPaired),
		errors.Is(err, company.ErrMembershipConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError はエラーを HTTP ステータスと JSON 本文に変換します。500 の詳細はログにのみ残します。
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.Any("error", err))
		writeJSON(w, code, errorResponse{Error: "an unexpected error occurred"})
		return
	}

	body := errorResponse{Error: err.Error()}
	var verr *validationError
	if errors.As(err, &verr) {
		body = errorResponse{Error: "validation failed", Fields: verr.fields}
	}
	writeJSON(w, code, body)
}

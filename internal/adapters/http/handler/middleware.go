package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/ogurasousui/talent-board/internal/core/person"
)

type ctxKey string

const ctxPerson ctxKey = "person"

// currentPerson は認証済みの人物を返します。
func currentPerson(ctx context.Context) (*person.Person, bool) {
	p, ok := ctx.Value(ctxPerson).(*person.Person)
	return p, ok && p != nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.InfoContext(r.Context(), "request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

func recoveryMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.ErrorContext(r.Context(), "panic", slog.Any("panic", rec), slog.String("path", r.URL.Path))
					writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "an unexpected error occurred"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// corsMiddleware は許可されたオリジンにのみ資格情報付きのアクセスを許可します。"*" は全オリジンを許可します。
func corsMiddleware(allowed []string) mux.MiddlewareFunc {
	wildcard := slices.Contains(allowed, "*")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (wildcard || slices.Contains(allowed, origin)) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
				h.Add("Vary", "Origin")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// authMiddleware は Bearer トークンまたは Cookie を検証し、人物をコンテキストに載せます。
// 論理削除された人物のトークンは 401 で拒否します。人物の取得に失敗した場合は 500 を返します。
func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			if c, err := r.Cookie(h.cookieName); err == nil {
				raw = c.Value
			}
		}
		if raw == "" {
			writeError(w, r, h.logger, errUnauthorized)
			return
		}

		personID, err := h.tokens.Parse(raw)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		p, err := h.people.GetPerson(r.Context(), personID)
		if errors.Is(err, person.ErrPersonNotFound) {
			writeError(w, r, h.logger, errUnauthorized)
			return
		}
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxPerson, p)))
	})
}

func requireStaff(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := currentPerson(r.Context())
			if !ok || !p.Roles.Staff {
				writeError(w, r, logger, errForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

package adapthttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/brunod-e/daily-diet-api/internal/app"
	"github.com/brunod-e/daily-diet-api/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

// writeServiceError maps application and domain errors onto HTTP statuses.
// Unclassified errors are logged and reported as 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domain.ErrEmailTaken):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, domain.ErrMealNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, app.ErrSessionNotFound), errors.Is(err, app.ErrSessionExpired), errors.Is(err, app.ErrUserNotFound):
		writeError(w, http.StatusUnauthorized, errors.New("unauthorized"))
	default:
		s.log.Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request failed")
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func parseJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

func mealIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "mealID"))
	if err != nil {
		return uuid.Nil, domain.Invalid("mealId", "must be a UUID")
	}
	return id, nil
}

// dateLayouts are tried in order for string dates. The last two cover the
// output of JavaScript's Date.prototype.toString.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Mon Jan 02 2006 15:04:05 GMT-0700",
	"Mon Jan 02 2006",
}

// parseMealDate accepts a JSON string in one of dateLayouts or a JSON number
// of Unix milliseconds. A missing or null value yields the zero time.
func parseMealDate(raw json.RawMessage) (time.Time, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return time.Time{}, nil
	}

	if !strings.HasPrefix(s, `"`) {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, domain.Invalid("date", "is not a valid date")
		}
		return time.UnixMilli(ms).UTC(), nil
	}

	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return time.Time{}, domain.Invalid("date", "is not a valid date")
	}
	str = strings.TrimSpace(str)
	// "Thu Dec 14 2023 22:57:59 GMT-0300 (Brasilia Standard Time)"
	if i := strings.Index(str, " ("); i > 0 {
		str = str[:i]
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, str); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, domain.Invalid("date", "is not a valid date")
}

func withNoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

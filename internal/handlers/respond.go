package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"

	"fitgrove/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDomainError maps the shared error taxonomy onto HTTP statuses.
// NotFound covers both absent and out-of-scope rows so existence of
// foreign records never leaks.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrDuplicateConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrUnauthenticated):
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
	case errors.Is(err, domain.ErrRoleViolation),
		errors.Is(err, domain.ErrInvalidRange),
		errors.Is(err, domain.ErrMissingSchedule),
		errors.Is(err, domain.ErrSelfReference):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "server error", http.StatusInternalServerError)
	}
}

// isUniqueViolation reports a postgres unique constraint failure. The
// store's enforcement is canonical: two concurrent writers can both pass
// the optimistic pre-checks, so a 23505 surfaced at commit time is still
// mapped to DuplicateConflict.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"

	"fitgrove/internal/domain"
	"fitgrove/internal/models"
	mw "fitgrove/internal/middleware"
)

type UserHandler struct {
	db *sqlx.DB
}

func NewUserHandler(db *sqlx.DB) *UserHandler { return &UserHandler{db: db} }

// GetMe returns the current user's profile
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	var u models.User
	if err := h.db.Get(&u, `SELECT `+userColumns+` FROM users WHERE id=$1`, p.UserID); err != nil {
		writeDomainError(w, domain.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// UpdateMe updates provided fields on the current user's profile. The
// coach field accepts a user id or explicit null to clear the link; the
// role pair and self-reference rules run before anything is written.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	var body struct {
		Phone       *string         `json:"phone"`
		Bio         *string         `json:"bio"`
		DateOfBirth *models.Date    `json:"date_of_birth"`
		HeightCM    *float64        `json:"height_cm"`
		Coach       json.RawMessage `json:"coach"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	// Build dynamic update
	setClauses := []string{}
	args := []interface{}{}
	argIdx := 1
	add := func(col string, val interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s=$%d", col, argIdx))
		args = append(args, val)
		argIdx++
	}
	if body.Phone != nil {
		add("phone", *body.Phone)
	}
	if body.Bio != nil {
		add("bio", *body.Bio)
	}
	if body.DateOfBirth != nil {
		add("date_of_birth", *body.DateOfBirth)
	}
	if body.HeightCM != nil {
		add("height_cm", *body.HeightCM)
	}
	if body.Coach != nil {
		if string(body.Coach) == "null" {
			setClauses = append(setClauses, "coach_id=NULL")
		} else {
			var coachID int
			if err := json.Unmarshal(body.Coach, &coachID); err != nil {
				http.Error(w, "coach: must be a user id or null", http.StatusBadRequest)
				return
			}
			var me, coach models.User
			if err := h.db.Get(&me, `SELECT `+userColumns+` FROM users WHERE id=$1`, p.UserID); err != nil {
				http.Error(w, "server error", http.StatusInternalServerError)
				return
			}
			if err := h.db.Get(&coach, `SELECT `+userColumns+` FROM users WHERE id=$1`, coachID); err != nil {
				if err == sql.ErrNoRows {
					http.Error(w, "coach: not found", http.StatusBadRequest)
					return
				}
				http.Error(w, "server error", http.StatusInternalServerError)
				return
			}
			if err := domain.ValidateCoachAssignment(&me, &coach); err != nil {
				writeDomainError(w, err)
				return
			}
			add("coach_id", coachID)
		}
	}
	if len(setClauses) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	setClauses = append(setClauses, "updated_at=NOW()")

	query := fmt.Sprintf("UPDATE users SET %s WHERE id=$%d RETURNING %s",
		joinClauses(setClauses), argIdx, userColumns)
	args = append(args, p.UserID)
	var u models.User
	if err := h.db.QueryRowx(query, args...).StructScan(&u); err != nil {
		http.Error(w, "could not update", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// List godoc
// @Summary List all user accounts
// @Description Returns every registered user (admin only)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.User
// @Failure 403 {string} string "Forbidden"
// @Router /users [get]
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	if ok, err := isAdmin(h.db, p.UserID); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	} else if !ok {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	users := []models.User{}
	if err := h.db.Select(&users, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`); err != nil {
		http.Error(w, "could not fetch", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func isAdmin(db *sqlx.DB, userID int) (bool, error) {
	var admin bool
	if err := db.QueryRowx(`SELECT is_admin FROM users WHERE id=$1`, userID).Scan(&admin); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return admin, nil
}

func joinClauses(parts []string) string {
	out := parts[0]
	for i := 1; i < len(parts); i++ {
		out += ", " + parts[i]
	}
	return out
}

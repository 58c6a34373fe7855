package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"

	"fitgrove/internal/domain"
	mw "fitgrove/internal/middleware"
	"fitgrove/internal/models"
)

type TrainingHandler struct {
	db *sqlx.DB
}

func NewTrainingHandler(db *sqlx.DB) *TrainingHandler { return &TrainingHandler{db: db} }

const sessionColumns = `id, user_id, training_plan_id, title, description, date, duration_minutes, intensity, calories_burned, notes, created_at, updated_at`
const exerciseColumns = `id, session_id, name, sets, reps, weight_kg, rest_seconds, notes`

type exerciseRequest struct {
	Name        string   `json:"name"`
	Sets        int      `json:"sets"`
	Reps        int      `json:"reps"`
	WeightKG    *float64 `json:"weight_kg"`
	RestSeconds *int     `json:"rest_seconds"`
	Notes       *string  `json:"notes"`
}

func (req *exerciseRequest) validate(prefix string) error {
	if req.Name == "" {
		return fmt.Errorf("%sname: required", prefix)
	}
	if req.Sets < 1 {
		return fmt.Errorf("%ssets: must be positive", prefix)
	}
	if req.Reps < 1 {
		return fmt.Errorf("%sreps: must be positive", prefix)
	}
	if req.RestSeconds != nil && *req.RestSeconds < 0 {
		return fmt.Errorf("%srest_seconds: must not be negative", prefix)
	}
	return nil
}

type sessionRequest struct {
	Title           *string           `json:"title"`
	Description     *string           `json:"description"`
	Date            *models.Date      `json:"date"`
	DurationMinutes *int              `json:"duration_minutes"`
	Intensity       *models.Intensity `json:"intensity"`
	CaloriesBurned  *int              `json:"calories_burned"`
	Notes           *string           `json:"notes"`
	TrainingPlan    *int              `json:"training_plan"`
	Exercises       []exerciseRequest `json:"exercises"`
}

func (h *TrainingHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	scope := domain.OwnerScope(p, "user_id")
	sessions := []models.TrainingSession{}
	query := fmt.Sprintf(`SELECT %s FROM training_sessions WHERE %s=$1 ORDER BY date DESC, created_at DESC`, sessionColumns, scope.Column)
	if err := h.db.Select(&sessions, query, scope.Value); err != nil {
		http.Error(w, "could not fetch", http.StatusInternalServerError)
		return
	}
	if err := h.attachExercises(sessions); err != nil {
		http.Error(w, "could not fetch", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// CreateSession writes the session and every nested exercise in one
// transaction. Children are validated before any row is inserted; a
// failure discards the whole batch.
func (h *TrainingHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.Title == nil || *req.Title == "" {
		http.Error(w, "title: required", http.StatusBadRequest)
		return
	}
	if req.Date == nil {
		http.Error(w, "date: required", http.StatusBadRequest)
		return
	}
	if req.DurationMinutes == nil || *req.DurationMinutes < 1 {
		http.Error(w, "duration_minutes: must be positive", http.StatusBadRequest)
		return
	}
	if req.Intensity == nil || !req.Intensity.Valid() {
		http.Error(w, "intensity: must be one of low, medium, high", http.StatusBadRequest)
		return
	}
	for i := range req.Exercises {
		if err := req.Exercises[i].validate(fmt.Sprintf("exercises[%d].", i)); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if req.TrainingPlan != nil {
		var visible bool
		if err := h.db.Get(&visible, `SELECT EXISTS (SELECT 1 FROM training_plans WHERE id=$1 AND user_id=$2)`, *req.TrainingPlan, p.UserID); err != nil {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		if !visible {
			http.Error(w, "training_plan: not found", http.StatusBadRequest)
			return
		}
	}

	tx, err := h.db.Beginx()
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	defer tx.Rollback()

	var session models.TrainingSession
	err = tx.QueryRowx(`INSERT INTO training_sessions (user_id, training_plan_id, title, description, date, duration_minutes, intensity, calories_burned, notes)
	                     VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	                     RETURNING `+sessionColumns,
		p.UserID, req.TrainingPlan, *req.Title, req.Description, *req.Date, *req.DurationMinutes,
		*req.Intensity, req.CaloriesBurned, req.Notes).StructScan(&session)
	if err != nil {
		http.Error(w, "could not save", http.StatusInternalServerError)
		return
	}
	session.Exercises = []models.Exercise{}
	for i := range req.Exercises {
		e := req.Exercises[i]
		var row models.Exercise
		err = tx.QueryRowx(`INSERT INTO exercises (session_id, name, sets, reps, weight_kg, rest_seconds, notes)
		                     VALUES ($1, $2, $3, $4, $5, $6, $7)
		                     RETURNING `+exerciseColumns,
			session.ID, e.Name, e.Sets, e.Reps, e.WeightKG, e.RestSeconds, e.Notes).StructScan(&row)
		if err != nil {
			http.Error(w, "could not save", http.StatusInternalServerError)
			return
		}
		session.Exercises = append(session.Exercises, row)
	}
	if err := tx.Commit(); err != nil {
		http.Error(w, "could not save", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (h *TrainingHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	session, err := h.sessionInScope(p, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := []models.TrainingSession{*session}
	if err := h.attachExercises(out); err != nil {
		http.Error(w, "could not fetch", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, out[0])
}

// UpdateSession updates parent fields only; exercises are managed through
// their own sub-collection.
func (h *TrainingHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, domain.ErrNotFound)
		return
	}
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	setClauses := []string{}
	args := []interface{}{}
	argIdx := 1
	add := func(col string, val interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s=$%d", col, argIdx))
		args = append(args, val)
		argIdx++
	}
	if req.Title != nil {
		if *req.Title == "" {
			http.Error(w, "title: required", http.StatusBadRequest)
			return
		}
		add("title", *req.Title)
	}
	if req.Description != nil {
		add("description", *req.Description)
	}
	if req.Date != nil {
		add("date", *req.Date)
	}
	if req.DurationMinutes != nil {
		if *req.DurationMinutes < 1 {
			http.Error(w, "duration_minutes: must be positive", http.StatusBadRequest)
			return
		}
		add("duration_minutes", *req.DurationMinutes)
	}
	if req.Intensity != nil {
		if !req.Intensity.Valid() {
			http.Error(w, "intensity: must be one of low, medium, high", http.StatusBadRequest)
			return
		}
		add("intensity", *req.Intensity)
	}
	if req.CaloriesBurned != nil {
		add("calories_burned", *req.CaloriesBurned)
	}
	if req.Notes != nil {
		add("notes", *req.Notes)
	}
	if len(setClauses) == 0 {
		h.GetSession(w, r)
		return
	}
	setClauses = append(setClauses, "updated_at=NOW()")

	scope := domain.OwnerScope(p, "user_id")
	query := fmt.Sprintf(`UPDATE training_sessions SET %s WHERE id=$%d AND %s=$%d RETURNING %s`,
		joinClauses(setClauses), argIdx, scope.Column, argIdx+1, sessionColumns)
	args = append(args, id, scope.Value)

	var session models.TrainingSession
	if err := h.db.QueryRowx(query, args...).StructScan(&session); err != nil {
		writeDomainError(w, domain.ErrNotFound)
		return
	}
	out := []models.TrainingSession{session}
	if err := h.attachExercises(out); err != nil {
		http.Error(w, "could not fetch", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, out[0])
}

func (h *TrainingHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, domain.ErrNotFound)
		return
	}
	scope := domain.OwnerScope(p, "user_id")
	res, err := h.db.Exec(fmt.Sprintf(`DELETE FROM training_sessions WHERE id=$1 AND %s=$2`, scope.Column), id, scope.Value)
	if err != nil {
		http.Error(w, "could not delete", http.StatusInternalServerError)
		return
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		writeDomainError(w, domain.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListExercises lists the exercises of one session; visibility is derived
// through the session's owner.
func (h *TrainingHandler) ListExercises(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	session, err := h.sessionInScope(p, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := []models.Exercise{}
	if err := h.db.Select(&out, `SELECT `+exerciseColumns+` FROM exercises WHERE session_id=$1 ORDER BY id`, session.ID); err != nil {
		http.Error(w, "could not fetch", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *TrainingHandler) CreateExercise(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	session, err := h.sessionInScope(p, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var req exerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := req.validate(""); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var row models.Exercise
	err = h.db.QueryRowx(`INSERT INTO exercises (session_id, name, sets, reps, weight_kg, rest_seconds, notes)
	                       VALUES ($1, $2, $3, $4, $5, $6, $7)
	                       RETURNING `+exerciseColumns,
		session.ID, req.Name, req.Sets, req.Reps, req.WeightKG, req.RestSeconds, req.Notes).StructScan(&row)
	if err != nil {
		http.Error(w, "could not save", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (h *TrainingHandler) sessionInScope(p domain.Principal, rawID string) (*models.TrainingSession, error) {
	id, err := strconv.Atoi(rawID)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	scope := domain.OwnerScope(p, "user_id")
	var session models.TrainingSession
	query := fmt.Sprintf(`SELECT %s FROM training_sessions WHERE id=$1 AND %s=$2`, sessionColumns, scope.Column)
	if err := h.db.Get(&session, query, id, scope.Value); err != nil {
		return nil, domain.ErrNotFound
	}
	return &session, nil
}

func (h *TrainingHandler) attachExercises(sessions []models.TrainingSession) error {
	if len(sessions) == 0 {
		return nil
	}
	ids := make([]int, len(sessions))
	byID := make(map[int]*models.TrainingSession, len(sessions))
	for i := range sessions {
		ids[i] = sessions[i].ID
		sessions[i].Exercises = []models.Exercise{}
		byID[sessions[i].ID] = &sessions[i]
	}
	query, args, err := sqlx.In(`SELECT `+exerciseColumns+` FROM exercises WHERE session_id IN (?) ORDER BY id`, ids)
	if err != nil {
		return err
	}
	var rows []models.Exercise
	if err := h.db.Select(&rows, h.db.Rebind(query), args...); err != nil {
		return err
	}
	for _, row := range rows {
		s := byID[row.SessionID]
		s.Exercises = append(s.Exercises, row)
	}
	return nil
}

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

type CheckInHandler struct {
	db *sqlx.DB
}

func NewCheckInHandler(db *sqlx.DB) *CheckInHandler { return &CheckInHandler{db: db} }

const checkinColumns = `id, user_id, date, weight_kg, body_fat_percentage, muscle_mass_kg, mood, energy_level, sleep_hours, water_intake_ml, notes, created_at, updated_at`

type checkinRequest struct {
	Date              *models.Date `json:"date"`
	WeightKG          *float64     `json:"weight_kg"`
	BodyFatPercentage *float64     `json:"body_fat_percentage"`
	MuscleMassKG      *float64     `json:"muscle_mass_kg"`
	Mood              *models.Mood `json:"mood"`
	EnergyLevel       *int         `json:"energy_level"`
	SleepHours        *float64     `json:"sleep_hours"`
	WaterIntakeML     *int         `json:"water_intake_ml"`
	Notes             *string      `json:"notes"`
}

func (req *checkinRequest) validate() error {
	if req.Mood != nil && !req.Mood.Valid() {
		return fmt.Errorf("mood: must be one of excellent, good, neutral, poor, bad")
	}
	if req.EnergyLevel != nil && (*req.EnergyLevel < 1 || *req.EnergyLevel > 10) {
		return fmt.Errorf("energy_level: must be between 1 and 10")
	}
	if req.WaterIntakeML != nil && *req.WaterIntakeML < 0 {
		return fmt.Errorf("water_intake_ml: must not be negative")
	}
	return nil
}

func (h *CheckInHandler) List(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	scope := domain.OwnerScope(p, "user_id")
	out := []models.CheckIn{}
	query := fmt.Sprintf(`SELECT %s FROM checkins WHERE %s=$1 ORDER BY date DESC, created_at DESC`, checkinColumns, scope.Column)
	if err := h.db.Select(&out, query, scope.Value); err != nil {
		http.Error(w, "could not fetch", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *CheckInHandler) Create(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	var req checkinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.Date == nil {
		http.Error(w, "date: required", http.StatusBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Optimistic pre-check; the unique constraint remains the authority.
	var exists bool
	if err := h.db.Get(&exists, `SELECT EXISTS (SELECT 1 FROM checkins WHERE user_id=$1 AND date=$2)`, p.UserID, *req.Date); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if exists {
		http.Error(w, "date: check-in already exists for this date", http.StatusConflict)
		return
	}

	var c models.CheckIn
	err := h.db.QueryRowx(`INSERT INTO checkins (user_id, date, weight_kg, body_fat_percentage, muscle_mass_kg, mood, energy_level, sleep_hours, water_intake_ml, notes)
	                        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	                        RETURNING `+checkinColumns,
		p.UserID, *req.Date, req.WeightKG, req.BodyFatPercentage, req.MuscleMassKG, req.Mood,
		req.EnergyLevel, req.SleepHours, req.WaterIntakeML, req.Notes).StructScan(&c)
	if err != nil {
		if isUniqueViolation(err) {
			http.Error(w, "date: check-in already exists for this date", http.StatusConflict)
			return
		}
		http.Error(w, "could not save", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *CheckInHandler) Get(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, domain.ErrNotFound)
		return
	}
	scope := domain.OwnerScope(p, "user_id")
	var c models.CheckIn
	query := fmt.Sprintf(`SELECT %s FROM checkins WHERE id=$1 AND %s=$2`, checkinColumns, scope.Column)
	if err := h.db.Get(&c, query, id, scope.Value); err != nil {
		writeDomainError(w, domain.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CheckInHandler) Update(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, domain.ErrNotFound)
		return
	}
	var req checkinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
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
	if req.Date != nil {
		add("date", *req.Date)
	}
	if req.WeightKG != nil {
		add("weight_kg", *req.WeightKG)
	}
	if req.BodyFatPercentage != nil {
		add("body_fat_percentage", *req.BodyFatPercentage)
	}
	if req.MuscleMassKG != nil {
		add("muscle_mass_kg", *req.MuscleMassKG)
	}
	if req.Mood != nil {
		add("mood", *req.Mood)
	}
	if req.EnergyLevel != nil {
		add("energy_level", *req.EnergyLevel)
	}
	if req.SleepHours != nil {
		add("sleep_hours", *req.SleepHours)
	}
	if req.WaterIntakeML != nil {
		add("water_intake_ml", *req.WaterIntakeML)
	}
	if req.Notes != nil {
		add("notes", *req.Notes)
	}
	if len(setClauses) == 0 {
		h.Get(w, r)
		return
	}
	setClauses = append(setClauses, "updated_at=NOW()")

	scope := domain.OwnerScope(p, "user_id")
	query := fmt.Sprintf(`UPDATE checkins SET %s WHERE id=$%d AND %s=$%d RETURNING %s`,
		joinClauses(setClauses), argIdx, scope.Column, argIdx+1, checkinColumns)
	args = append(args, id, scope.Value)

	var c models.CheckIn
	if err := h.db.QueryRowx(query, args...).StructScan(&c); err != nil {
		if isUniqueViolation(err) {
			http.Error(w, "date: check-in already exists for this date", http.StatusConflict)
			return
		}
		writeDomainError(w, domain.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CheckInHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, domain.ErrNotFound)
		return
	}
	scope := domain.OwnerScope(p, "user_id")
	res, err := h.db.Exec(fmt.Sprintf(`DELETE FROM checkins WHERE id=$1 AND %s=$2`, scope.Column), id, scope.Value)
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

package handlers

import (
	"database/sql"
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

type TrainingPlanHandler struct {
	db *sqlx.DB
}

func NewTrainingPlanHandler(db *sqlx.DB) *TrainingPlanHandler { return &TrainingPlanHandler{db: db} }

const trainingPlanColumns = `id, coach_id, user_id, name, description, start_date, end_date, is_active, created_at, updated_at`
const planExerciseColumns = `id, plan_id, name, sets, reps, rest_seconds, day_of_week, scheduled_date, sort_order, notes`

type planExerciseRequest struct {
	Name          string       `json:"name"`
	Sets          int          `json:"sets"`
	Reps          int          `json:"reps"`
	RestSeconds   *int         `json:"rest_seconds"`
	DayOfWeek     *int         `json:"day_of_week"`
	ScheduledDate *models.Date `json:"scheduled_date"`
	SortOrder     int          `json:"sort_order"`
	Notes         *string      `json:"notes"`
}

func (req *planExerciseRequest) validate(prefix string) error {
	if req.Name == "" {
		return fmt.Errorf("%sname: required", prefix)
	}
	if req.Sets < 1 {
		return fmt.Errorf("%ssets: must be positive", prefix)
	}
	if req.Reps < 1 {
		return fmt.Errorf("%sreps: must be positive", prefix)
	}
	return domain.ValidateSchedulePresence(req.DayOfWeek, req.ScheduledDate)
}

type trainingPlanRequest struct {
	User        *int                  `json:"user"`
	Name        *string               `json:"name"`
	Description *string               `json:"description"`
	StartDate   *models.Date          `json:"start_date"`
	EndDate     *models.Date          `json:"end_date"`
	IsActive    *bool                 `json:"is_active"`
	Exercises   []planExerciseRequest `json:"exercises"`
}

// end_date is raw so an explicit null (clear the date, plan runs
// open-ended) can be told apart from an absent key (leave it alone).
type trainingPlanUpdateRequest struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	StartDate   *models.Date    `json:"start_date"`
	EndDate     json.RawMessage `json:"end_date"`
	IsActive    *bool           `json:"is_active"`
}

// optionalDate decodes a tri-state date field: present reports whether the
// key appeared at all, and d is nil when the value was null.
func optionalDate(raw json.RawMessage) (d *models.Date, present bool, err error) {
	if raw == nil {
		return nil, false, nil
	}
	if string(raw) == "null" {
		return nil, true, nil
	}
	var v models.Date
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false, err
	}
	return &v, true, nil
}

func (h *TrainingPlanHandler) List(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	scope := domain.PlanScope(p, "coach_id", "user_id")
	plans := []models.TrainingPlan{}
	query := fmt.Sprintf(`SELECT %s FROM training_plans WHERE %s=$1 ORDER BY created_at DESC`, trainingPlanColumns, scope.Column)
	if err := h.db.Select(&plans, query, scope.Value); err != nil {
		http.Error(w, "could not fetch", http.StatusInternalServerError)
		return
	}
	if err := h.attachExercises(plans); err != nil {
		http.Error(w, "could not fetch", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

// Create authors a plan for one assignee. The author is always the
// authenticated caller; client payloads cannot name a different coach.
// The plan row and every scheduled entry are written as one transaction.
func (h *TrainingPlanHandler) Create(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	var req trainingPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.User == nil {
		http.Error(w, "user: required", http.StatusBadRequest)
		return
	}
	if req.Name == nil || *req.Name == "" {
		http.Error(w, "name: required", http.StatusBadRequest)
		return
	}
	if req.StartDate == nil {
		http.Error(w, "start_date: required", http.StatusBadRequest)
		return
	}
	if err := domain.ValidateDateRange(*req.StartDate, req.EndDate); err != nil {
		writeDomainError(w, err)
		return
	}
	for i := range req.Exercises {
		if err := req.Exercises[i].validate(fmt.Sprintf("exercises[%d].", i)); err != nil {
			if _, ok := err.(*domain.RuleError); ok {
				writeDomainError(w, err)
			} else {
				http.Error(w, err.Error(), http.StatusBadRequest)
			}
			return
		}
	}

	var coach, assignee models.User
	if err := h.db.Get(&coach, `SELECT `+userColumns+` FROM users WHERE id=$1`, p.UserID); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if err := h.db.Get(&assignee, `SELECT `+userColumns+` FROM users WHERE id=$1`, *req.User); err != nil {
		if err == sql.ErrNoRows {
			http.Error(w, "user: not found", http.StatusBadRequest)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if err := domain.ValidateRolePair(&coach, &assignee); err != nil {
		writeDomainError(w, err)
		return
	}

	// Optimistic pre-check; the unique constraint remains the authority.
	var exists bool
	if err := h.db.Get(&exists, `SELECT EXISTS (SELECT 1 FROM training_plans WHERE user_id=$1 AND name=$2)`, *req.User, *req.Name); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if exists {
		http.Error(w, "name: plan with this name already exists for this user", http.StatusConflict)
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	tx, err := h.db.Beginx()
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	defer tx.Rollback()

	var plan models.TrainingPlan
	err = tx.QueryRowx(`INSERT INTO training_plans (coach_id, user_id, name, description, start_date, end_date, is_active)
	                     VALUES ($1, $2, $3, $4, $5, $6, $7)
	                     RETURNING `+trainingPlanColumns,
		p.UserID, *req.User, *req.Name, req.Description, *req.StartDate, req.EndDate, isActive).StructScan(&plan)
	if err != nil {
		if isUniqueViolation(err) {
			http.Error(w, "name: plan with this name already exists for this user", http.StatusConflict)
			return
		}
		http.Error(w, "could not save", http.StatusInternalServerError)
		return
	}
	plan.Exercises = []models.TrainingPlanExercise{}
	for i := range req.Exercises {
		e := req.Exercises[i]
		var row models.TrainingPlanExercise
		err = tx.QueryRowx(`INSERT INTO training_plan_exercises (plan_id, name, sets, reps, rest_seconds, day_of_week, scheduled_date, sort_order, notes)
		                     VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		                     RETURNING `+planExerciseColumns,
			plan.ID, e.Name, e.Sets, e.Reps, e.RestSeconds, e.DayOfWeek, e.ScheduledDate, e.SortOrder, e.Notes).StructScan(&row)
		if err != nil {
			http.Error(w, "could not save", http.StatusInternalServerError)
			return
		}
		plan.Exercises = append(plan.Exercises, row)
	}
	if err := tx.Commit(); err != nil {
		http.Error(w, "could not save", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (h *TrainingPlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	plan, err := h.planInScope(p, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := []models.TrainingPlan{*plan}
	if err := h.attachExercises(out); err != nil {
		http.Error(w, "could not fetch", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, out[0])
}

// Update mutates authored plans only; deactivation (is_active=false) is a
// pure status flag with no side effects on logged sessions.
func (h *TrainingPlanHandler) Update(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, domain.ErrNotFound)
		return
	}
	var req trainingPlanUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	endDate, endSet, err := optionalDate(req.EndDate)
	if err != nil {
		http.Error(w, "end_date: expected YYYY-MM-DD or null", http.StatusBadRequest)
		return
	}

	// Author scope: assignees cannot mutate plans, and for them the row is
	// simply not found.
	var existing models.TrainingPlan
	if err := h.db.Get(&existing, `SELECT `+trainingPlanColumns+` FROM training_plans WHERE id=$1 AND coach_id=$2`, id, p.UserID); err != nil {
		writeDomainError(w, domain.ErrNotFound)
		return
	}

	start := existing.StartDate
	end := existing.EndDate
	if req.StartDate != nil {
		start = *req.StartDate
	}
	if endSet {
		end = endDate
	}
	if err := domain.ValidateDateRange(start, end); err != nil {
		writeDomainError(w, err)
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
	if req.Name != nil {
		if *req.Name == "" {
			http.Error(w, "name: required", http.StatusBadRequest)
			return
		}
		add("name", *req.Name)
	}
	if req.Description != nil {
		add("description", *req.Description)
	}
	if req.StartDate != nil {
		add("start_date", *req.StartDate)
	}
	if endSet {
		add("end_date", endDate)
	}
	if req.IsActive != nil {
		add("is_active", *req.IsActive)
	}
	if len(setClauses) == 0 {
		h.Get(w, r)
		return
	}
	setClauses = append(setClauses, "updated_at=NOW()")

	query := fmt.Sprintf(`UPDATE training_plans SET %s WHERE id=$%d AND coach_id=$%d RETURNING %s`,
		joinClauses(setClauses), argIdx, argIdx+1, trainingPlanColumns)
	args = append(args, id, p.UserID)

	var plan models.TrainingPlan
	if err := h.db.QueryRowx(query, args...).StructScan(&plan); err != nil {
		if isUniqueViolation(err) {
			http.Error(w, "name: plan with this name already exists for this user", http.StatusConflict)
			return
		}
		writeDomainError(w, domain.ErrNotFound)
		return
	}
	out := []models.TrainingPlan{plan}
	if err := h.attachExercises(out); err != nil {
		http.Error(w, "could not fetch", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, out[0])
}

// Delete removes the plan and cascades its scheduled entries; sessions
// that referenced the plan keep their rows with the reference cleared.
func (h *TrainingPlanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, domain.ErrNotFound)
		return
	}
	res, err := h.db.Exec(`DELETE FROM training_plans WHERE id=$1 AND coach_id=$2`, id, p.UserID)
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

func (h *TrainingPlanHandler) ListExercises(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	plan, err := h.planInScope(p, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := []models.TrainingPlanExercise{}
	if err := h.db.Select(&out, `SELECT `+planExerciseColumns+` FROM training_plan_exercises WHERE plan_id=$1 ORDER BY sort_order, id`, plan.ID); err != nil {
		http.Error(w, "could not fetch", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *TrainingPlanHandler) CreateExercise(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, domain.ErrNotFound)
		return
	}
	var plan models.TrainingPlan
	if err := h.db.Get(&plan, `SELECT `+trainingPlanColumns+` FROM training_plans WHERE id=$1 AND coach_id=$2`, id, p.UserID); err != nil {
		writeDomainError(w, domain.ErrNotFound)
		return
	}
	var req planExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := req.validate(""); err != nil {
		if _, ok := err.(*domain.RuleError); ok {
			writeDomainError(w, err)
		} else {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}
	var row models.TrainingPlanExercise
	err = h.db.QueryRowx(`INSERT INTO training_plan_exercises (plan_id, name, sets, reps, rest_seconds, day_of_week, scheduled_date, sort_order, notes)
	                       VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	                       RETURNING `+planExerciseColumns,
		plan.ID, req.Name, req.Sets, req.Reps, req.RestSeconds, req.DayOfWeek, req.ScheduledDate, req.SortOrder, req.Notes).StructScan(&row)
	if err != nil {
		http.Error(w, "could not save", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (h *TrainingPlanHandler) planInScope(p domain.Principal, rawID string) (*models.TrainingPlan, error) {
	id, err := strconv.Atoi(rawID)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	scope := domain.PlanScope(p, "coach_id", "user_id")
	var plan models.TrainingPlan
	query := fmt.Sprintf(`SELECT %s FROM training_plans WHERE id=$1 AND %s=$2`, trainingPlanColumns, scope.Column)
	if err := h.db.Get(&plan, query, id, scope.Value); err != nil {
		return nil, domain.ErrNotFound
	}
	return &plan, nil
}

func (h *TrainingPlanHandler) attachExercises(plans []models.TrainingPlan) error {
	if len(plans) == 0 {
		return nil
	}
	ids := make([]int, len(plans))
	byID := make(map[int]*models.TrainingPlan, len(plans))
	for i := range plans {
		ids[i] = plans[i].ID
		plans[i].Exercises = []models.TrainingPlanExercise{}
		byID[plans[i].ID] = &plans[i]
	}
	query, args, err := sqlx.In(`SELECT `+planExerciseColumns+` FROM training_plan_exercises WHERE plan_id IN (?) ORDER BY sort_order, id`, ids)
	if err != nil {
		return err
	}
	var rows []models.TrainingPlanExercise
	if err := h.db.Select(&rows, h.db.Rebind(query), args...); err != nil {
		return err
	}
	for _, row := range rows {
		pl := byID[row.PlanID]
		pl.Exercises = append(pl.Exercises, row)
	}
	return nil
}

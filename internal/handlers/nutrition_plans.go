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

type NutritionPlanHandler struct {
	db *sqlx.DB
}

func NewNutritionPlanHandler(db *sqlx.DB) *NutritionPlanHandler {
	return &NutritionPlanHandler{db: db}
}

const nutritionPlanColumns = `id, coach_id, user_id, name, description, daily_calories, daily_protein_g, daily_carbs_g, daily_fat_g, start_date, end_date, is_active, created_at, updated_at`
const planMealColumns = `id, plan_id, meal_type, scheduled_time, description, is_pre_workout, is_post_workout, sort_order`

type planMealRequest struct {
	MealType      *models.MealType `json:"meal_type"`
	ScheduledTime *string          `json:"scheduled_time"`
	Description   *string          `json:"description"`
	IsPreWorkout  bool             `json:"is_pre_workout"`
	IsPostWorkout bool             `json:"is_post_workout"`
	SortOrder     int              `json:"sort_order"`
}

func (req *planMealRequest) validate(prefix string) error {
	if req.MealType == nil || !req.MealType.Valid() {
		return fmt.Errorf("%smeal_type: must be one of breakfast, lunch, dinner, snack, pre_workout, post_workout", prefix)
	}
	if req.ScheduledTime == nil {
		return fmt.Errorf("%sscheduled_time: expected HH:MM", prefix)
	}
	norm, err := parseClock(*req.ScheduledTime)
	if err != nil {
		return fmt.Errorf("%sscheduled_time: expected HH:MM", prefix)
	}
	*req.ScheduledTime = norm
	return nil
}

type nutritionPlanRequest struct {
	User          *int              `json:"user"`
	Name          *string           `json:"name"`
	Description   *string           `json:"description"`
	DailyCalories *int              `json:"daily_calories"`
	DailyProteinG *float64          `json:"daily_protein_g"`
	DailyCarbsG   *float64          `json:"daily_carbs_g"`
	DailyFatG     *float64          `json:"daily_fat_g"`
	StartDate     *models.Date      `json:"start_date"`
	EndDate       *models.Date      `json:"end_date"`
	IsActive      *bool             `json:"is_active"`
	Meals         []planMealRequest `json:"meals"`
}

type nutritionPlanUpdateRequest struct {
	Name          *string         `json:"name"`
	Description   *string         `json:"description"`
	DailyCalories *int            `json:"daily_calories"`
	DailyProteinG *float64        `json:"daily_protein_g"`
	DailyCarbsG   *float64        `json:"daily_carbs_g"`
	DailyFatG     *float64        `json:"daily_fat_g"`
	StartDate     *models.Date    `json:"start_date"`
	EndDate       json.RawMessage `json:"end_date"`
	IsActive      *bool           `json:"is_active"`
}

func (h *NutritionPlanHandler) List(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	scope := domain.PlanScope(p, "coach_id", "user_id")
	plans := []models.NutritionPlan{}
	query := fmt.Sprintf(`SELECT %s FROM nutrition_plans WHERE %s=$1 ORDER BY created_at DESC`, nutritionPlanColumns, scope.Column)
	if err := h.db.Select(&plans, query, scope.Value); err != nil {
		http.Error(w, "could not fetch", http.StatusInternalServerError)
		return
	}
	if err := h.attachMeals(plans); err != nil {
		http.Error(w, "could not fetch", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

// Create authors a nutrition plan for one assignee; same rules as
// training plans, plus per-entry (meal_type, scheduled_time) uniqueness.
func (h *NutritionPlanHandler) Create(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	var req nutritionPlanRequest
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
	if req.DailyCalories != nil && *req.DailyCalories < 0 {
		http.Error(w, "daily_calories: must not be negative", http.StatusBadRequest)
		return
	}
	seen := map[string]bool{}
	for i := range req.Meals {
		if err := req.Meals[i].validate(fmt.Sprintf("meals[%d].", i)); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		key := string(*req.Meals[i].MealType) + "@" + *req.Meals[i].ScheduledTime
		if seen[key] {
			http.Error(w, fmt.Sprintf("meals[%d]: duplicate meal_type and scheduled_time", i), http.StatusConflict)
			return
		}
		seen[key] = true
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

	var exists bool
	if err := h.db.Get(&exists, `SELECT EXISTS (SELECT 1 FROM nutrition_plans WHERE user_id=$1 AND name=$2)`, *req.User, *req.Name); err != nil {
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

	var plan models.NutritionPlan
	err = tx.QueryRowx(`INSERT INTO nutrition_plans (coach_id, user_id, name, description, daily_calories, daily_protein_g, daily_carbs_g, daily_fat_g, start_date, end_date, is_active)
	                     VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	                     RETURNING `+nutritionPlanColumns,
		p.UserID, *req.User, *req.Name, req.Description, req.DailyCalories, req.DailyProteinG,
		req.DailyCarbsG, req.DailyFatG, *req.StartDate, req.EndDate, isActive).StructScan(&plan)
	if err != nil {
		if isUniqueViolation(err) {
			http.Error(w, "name: plan with this name already exists for this user", http.StatusConflict)
			return
		}
		http.Error(w, "could not save", http.StatusInternalServerError)
		return
	}
	plan.Meals = []models.NutritionPlanMeal{}
	for i := range req.Meals {
		m := req.Meals[i]
		var row models.NutritionPlanMeal
		err = tx.QueryRowx(`INSERT INTO nutrition_plan_meals (plan_id, meal_type, scheduled_time, description, is_pre_workout, is_post_workout, sort_order)
		                     VALUES ($1, $2, $3, $4, $5, $6, $7)
		                     RETURNING `+planMealColumns,
			plan.ID, *m.MealType, *m.ScheduledTime, m.Description, m.IsPreWorkout, m.IsPostWorkout, m.SortOrder).StructScan(&row)
		if err != nil {
			if isUniqueViolation(err) {
				http.Error(w, fmt.Sprintf("meals[%d]: duplicate meal_type and scheduled_time", i), http.StatusConflict)
				return
			}
			http.Error(w, "could not save", http.StatusInternalServerError)
			return
		}
		plan.Meals = append(plan.Meals, row)
	}
	if err := tx.Commit(); err != nil {
		http.Error(w, "could not save", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (h *NutritionPlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	plan, err := h.planInScope(p, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := []models.NutritionPlan{*plan}
	if err := h.attachMeals(out); err != nil {
		http.Error(w, "could not fetch", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, out[0])
}

func (h *NutritionPlanHandler) Update(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, domain.ErrNotFound)
		return
	}
	var req nutritionPlanUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	endDate, endSet, err := optionalDate(req.EndDate)
	if err != nil {
		http.Error(w, "end_date: expected YYYY-MM-DD or null", http.StatusBadRequest)
		return
	}

	var existing models.NutritionPlan
	if err := h.db.Get(&existing, `SELECT `+nutritionPlanColumns+` FROM nutrition_plans WHERE id=$1 AND coach_id=$2`, id, p.UserID); err != nil {
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
	if req.DailyCalories != nil {
		if *req.DailyCalories < 0 {
			http.Error(w, "daily_calories: must not be negative", http.StatusBadRequest)
			return
		}
		add("daily_calories", *req.DailyCalories)
	}
	if req.DailyProteinG != nil {
		add("daily_protein_g", *req.DailyProteinG)
	}
	if req.DailyCarbsG != nil {
		add("daily_carbs_g", *req.DailyCarbsG)
	}
	if req.DailyFatG != nil {
		add("daily_fat_g", *req.DailyFatG)
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

	query := fmt.Sprintf(`UPDATE nutrition_plans SET %s WHERE id=$%d AND coach_id=$%d RETURNING %s`,
		joinClauses(setClauses), argIdx, argIdx+1, nutritionPlanColumns)
	args = append(args, id, p.UserID)

	var plan models.NutritionPlan
	if err := h.db.QueryRowx(query, args...).StructScan(&plan); err != nil {
		if isUniqueViolation(err) {
			http.Error(w, "name: plan with this name already exists for this user", http.StatusConflict)
			return
		}
		writeDomainError(w, domain.ErrNotFound)
		return
	}
	out := []models.NutritionPlan{plan}
	if err := h.attachMeals(out); err != nil {
		http.Error(w, "could not fetch", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, out[0])
}

func (h *NutritionPlanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, domain.ErrNotFound)
		return
	}
	res, err := h.db.Exec(`DELETE FROM nutrition_plans WHERE id=$1 AND coach_id=$2`, id, p.UserID)
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

func (h *NutritionPlanHandler) ListMeals(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	plan, err := h.planInScope(p, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := []models.NutritionPlanMeal{}
	if err := h.db.Select(&out, `SELECT `+planMealColumns+` FROM nutrition_plan_meals WHERE plan_id=$1 ORDER BY sort_order, id`, plan.ID); err != nil {
		http.Error(w, "could not fetch", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *NutritionPlanHandler) CreateMeal(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, domain.ErrNotFound)
		return
	}
	var plan models.NutritionPlan
	if err := h.db.Get(&plan, `SELECT `+nutritionPlanColumns+` FROM nutrition_plans WHERE id=$1 AND coach_id=$2`, id, p.UserID); err != nil {
		writeDomainError(w, domain.ErrNotFound)
		return
	}
	var req planMealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := req.validate(""); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var row models.NutritionPlanMeal
	err = h.db.QueryRowx(`INSERT INTO nutrition_plan_meals (plan_id, meal_type, scheduled_time, description, is_pre_workout, is_post_workout, sort_order)
	                       VALUES ($1, $2, $3, $4, $5, $6, $7)
	                       RETURNING `+planMealColumns,
		plan.ID, *req.MealType, *req.ScheduledTime, req.Description, req.IsPreWorkout, req.IsPostWorkout, req.SortOrder).StructScan(&row)
	if err != nil {
		if isUniqueViolation(err) {
			http.Error(w, "scheduled_time: entry with this meal_type and time already exists", http.StatusConflict)
			return
		}
		http.Error(w, "could not save", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (h *NutritionPlanHandler) planInScope(p domain.Principal, rawID string) (*models.NutritionPlan, error) {
	id, err := strconv.Atoi(rawID)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	scope := domain.PlanScope(p, "coach_id", "user_id")
	var plan models.NutritionPlan
	query := fmt.Sprintf(`SELECT %s FROM nutrition_plans WHERE id=$1 AND %s=$2`, nutritionPlanColumns, scope.Column)
	if err := h.db.Get(&plan, query, id, scope.Value); err != nil {
		return nil, domain.ErrNotFound
	}
	return &plan, nil
}

func (h *NutritionPlanHandler) attachMeals(plans []models.NutritionPlan) error {
	if len(plans) == 0 {
		return nil
	}
	ids := make([]int, len(plans))
	byID := make(map[int]*models.NutritionPlan, len(plans))
	for i := range plans {
		ids[i] = plans[i].ID
		plans[i].Meals = []models.NutritionPlanMeal{}
		byID[plans[i].ID] = &plans[i]
	}
	query, args, err := sqlx.In(`SELECT `+planMealColumns+` FROM nutrition_plan_meals WHERE plan_id IN (?) ORDER BY sort_order, id`, ids)
	if err != nil {
		return err
	}
	var rows []models.NutritionPlanMeal
	if err := h.db.Select(&rows, h.db.Rebind(query), args...); err != nil {
		return err
	}
	for _, row := range rows {
		pl := byID[row.PlanID]
		pl.Meals = append(pl.Meals, row)
	}
	return nil
}

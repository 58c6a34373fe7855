package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"

	"fitgrove/internal/domain"
	mw "fitgrove/internal/middleware"
	"fitgrove/internal/models"
)

type NutritionHandler struct {
	db *sqlx.DB
}

func NewNutritionHandler(db *sqlx.DB) *NutritionHandler { return &NutritionHandler{db: db} }

const mealColumns = `id, user_id, nutrition_plan_id, name, meal_type, date, time, calories, protein_g, carbs_g, fat_g, notes, created_at, updated_at`
const foodColumns = `id, meal_id, name, quantity, calories, protein_g, carbs_g, fat_g`

// parseClock validates an HH:MM time of day and returns it zero-padded,
// so "8:00" and "08:00" store as the same value.
func parseClock(s string) (string, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return "", err
	}
	return t.Format("15:04"), nil
}

type foodRequest struct {
	Name     string   `json:"name"`
	Quantity string   `json:"quantity"`
	Calories *int     `json:"calories"`
	ProteinG *float64 `json:"protein_g"`
	CarbsG   *float64 `json:"carbs_g"`
	FatG     *float64 `json:"fat_g"`
}

func (req *foodRequest) validate(prefix string) error {
	if req.Name == "" {
		return fmt.Errorf("%sname: required", prefix)
	}
	if req.Quantity == "" {
		return fmt.Errorf("%squantity: required", prefix)
	}
	if req.Calories == nil || *req.Calories < 0 {
		return fmt.Errorf("%scalories: must not be negative", prefix)
	}
	return nil
}

type mealRequest struct {
	Name          *string          `json:"name"`
	MealType      *models.MealType `json:"meal_type"`
	Date          *models.Date     `json:"date"`
	Time          *string          `json:"time"`
	Calories      *int             `json:"calories"`
	ProteinG      *float64         `json:"protein_g"`
	CarbsG        *float64         `json:"carbs_g"`
	FatG          *float64         `json:"fat_g"`
	Notes         *string          `json:"notes"`
	NutritionPlan *int             `json:"nutrition_plan"`
	Foods         []foodRequest    `json:"foods"`
}

func (h *NutritionHandler) ListMeals(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	scope := domain.OwnerScope(p, "user_id")
	meals := []models.Meal{}
	query := fmt.Sprintf(`SELECT %s FROM meals WHERE %s=$1 ORDER BY date DESC, created_at DESC`, mealColumns, scope.Column)
	if err := h.db.Select(&meals, query, scope.Value); err != nil {
		http.Error(w, "could not fetch", http.StatusInternalServerError)
		return
	}
	if err := h.attachFoods(meals); err != nil {
		http.Error(w, "could not fetch", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, meals)
}

// CreateMeal writes the meal and every nested food in one transaction;
// any child failure discards the whole batch.
func (h *NutritionHandler) CreateMeal(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	var req mealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.Name == nil || *req.Name == "" {
		http.Error(w, "name: required", http.StatusBadRequest)
		return
	}
	if req.MealType == nil || !req.MealType.Valid() {
		http.Error(w, "meal_type: must be one of breakfast, lunch, dinner, snack, pre_workout, post_workout", http.StatusBadRequest)
		return
	}
	if req.Date == nil {
		http.Error(w, "date: required", http.StatusBadRequest)
		return
	}
	if req.Time != nil {
		norm, err := parseClock(*req.Time)
		if err != nil {
			http.Error(w, "time: expected HH:MM", http.StatusBadRequest)
			return
		}
		req.Time = &norm
	}
	if req.Calories == nil || *req.Calories < 0 {
		http.Error(w, "calories: must not be negative", http.StatusBadRequest)
		return
	}
	for i := range req.Foods {
		if err := req.Foods[i].validate(fmt.Sprintf("foods[%d].", i)); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if req.NutritionPlan != nil {
		var visible bool
		if err := h.db.Get(&visible, `SELECT EXISTS (SELECT 1 FROM nutrition_plans WHERE id=$1 AND user_id=$2)`, *req.NutritionPlan, p.UserID); err != nil {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		if !visible {
			http.Error(w, "nutrition_plan: not found", http.StatusBadRequest)
			return
		}
	}

	tx, err := h.db.Beginx()
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	defer tx.Rollback()

	var meal models.Meal
	err = tx.QueryRowx(`INSERT INTO meals (user_id, nutrition_plan_id, name, meal_type, date, time, calories, protein_g, carbs_g, fat_g, notes)
	                     VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	                     RETURNING `+mealColumns,
		p.UserID, req.NutritionPlan, *req.Name, *req.MealType, *req.Date, req.Time,
		*req.Calories, req.ProteinG, req.CarbsG, req.FatG, req.Notes).StructScan(&meal)
	if err != nil {
		http.Error(w, "could not save", http.StatusInternalServerError)
		return
	}
	meal.Foods = []models.Food{}
	for i := range req.Foods {
		f := req.Foods[i]
		var row models.Food
		err = tx.QueryRowx(`INSERT INTO foods (meal_id, name, quantity, calories, protein_g, carbs_g, fat_g)
		                     VALUES ($1, $2, $3, $4, $5, $6, $7)
		                     RETURNING `+foodColumns,
			meal.ID, f.Name, f.Quantity, *f.Calories, f.ProteinG, f.CarbsG, f.FatG).StructScan(&row)
		if err != nil {
			http.Error(w, "could not save", http.StatusInternalServerError)
			return
		}
		meal.Foods = append(meal.Foods, row)
	}
	if err := tx.Commit(); err != nil {
		http.Error(w, "could not save", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, meal)
}

func (h *NutritionHandler) GetMeal(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	meal, err := h.mealInScope(p, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := []models.Meal{*meal}
	if err := h.attachFoods(out); err != nil {
		http.Error(w, "could not fetch", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, out[0])
}

// UpdateMeal updates parent fields only; foods are managed through their
// own sub-collection.
func (h *NutritionHandler) UpdateMeal(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, domain.ErrNotFound)
		return
	}
	var req mealRequest
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
	if req.Name != nil {
		if *req.Name == "" {
			http.Error(w, "name: required", http.StatusBadRequest)
			return
		}
		add("name", *req.Name)
	}
	if req.MealType != nil {
		if !req.MealType.Valid() {
			http.Error(w, "meal_type: must be one of breakfast, lunch, dinner, snack, pre_workout, post_workout", http.StatusBadRequest)
			return
		}
		add("meal_type", *req.MealType)
	}
	if req.Date != nil {
		add("date", *req.Date)
	}
	if req.Time != nil {
		norm, err := parseClock(*req.Time)
		if err != nil {
			http.Error(w, "time: expected HH:MM", http.StatusBadRequest)
			return
		}
		add("time", norm)
	}
	if req.Calories != nil {
		if *req.Calories < 0 {
			http.Error(w, "calories: must not be negative", http.StatusBadRequest)
			return
		}
		add("calories", *req.Calories)
	}
	if req.ProteinG != nil {
		add("protein_g", *req.ProteinG)
	}
	if req.CarbsG != nil {
		add("carbs_g", *req.CarbsG)
	}
	if req.FatG != nil {
		add("fat_g", *req.FatG)
	}
	if req.Notes != nil {
		add("notes", *req.Notes)
	}
	if len(setClauses) == 0 {
		h.GetMeal(w, r)
		return
	}
	setClauses = append(setClauses, "updated_at=NOW()")

	scope := domain.OwnerScope(p, "user_id")
	query := fmt.Sprintf(`UPDATE meals SET %s WHERE id=$%d AND %s=$%d RETURNING %s`,
		joinClauses(setClauses), argIdx, scope.Column, argIdx+1, mealColumns)
	args = append(args, id, scope.Value)

	var meal models.Meal
	if err := h.db.QueryRowx(query, args...).StructScan(&meal); err != nil {
		writeDomainError(w, domain.ErrNotFound)
		return
	}
	out := []models.Meal{meal}
	if err := h.attachFoods(out); err != nil {
		http.Error(w, "could not fetch", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, out[0])
}

func (h *NutritionHandler) DeleteMeal(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, domain.ErrNotFound)
		return
	}
	scope := domain.OwnerScope(p, "user_id")
	res, err := h.db.Exec(fmt.Sprintf(`DELETE FROM meals WHERE id=$1 AND %s=$2`, scope.Column), id, scope.Value)
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

// ListFoods lists the foods of one meal; visibility is derived through
// the meal's owner.
func (h *NutritionHandler) ListFoods(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	meal, err := h.mealInScope(p, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := []models.Food{}
	if err := h.db.Select(&out, `SELECT `+foodColumns+` FROM foods WHERE meal_id=$1 ORDER BY id`, meal.ID); err != nil {
		http.Error(w, "could not fetch", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *NutritionHandler) CreateFood(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	meal, err := h.mealInScope(p, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var req foodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := req.validate(""); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var row models.Food
	err = h.db.QueryRowx(`INSERT INTO foods (meal_id, name, quantity, calories, protein_g, carbs_g, fat_g)
	                       VALUES ($1, $2, $3, $4, $5, $6, $7)
	                       RETURNING `+foodColumns,
		meal.ID, req.Name, req.Quantity, *req.Calories, req.ProteinG, req.CarbsG, req.FatG).StructScan(&row)
	if err != nil {
		http.Error(w, "could not save", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (h *NutritionHandler) mealInScope(p domain.Principal, rawID string) (*models.Meal, error) {
	id, err := strconv.Atoi(rawID)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	scope := domain.OwnerScope(p, "user_id")
	var meal models.Meal
	query := fmt.Sprintf(`SELECT %s FROM meals WHERE id=$1 AND %s=$2`, mealColumns, scope.Column)
	if err := h.db.Get(&meal, query, id, scope.Value); err != nil {
		return nil, domain.ErrNotFound
	}
	return &meal, nil
}

func (h *NutritionHandler) attachFoods(meals []models.Meal) error {
	if len(meals) == 0 {
		return nil
	}
	ids := make([]int, len(meals))
	byID := make(map[int]*models.Meal, len(meals))
	for i := range meals {
		ids[i] = meals[i].ID
		meals[i].Foods = []models.Food{}
		byID[meals[i].ID] = &meals[i]
	}
	query, args, err := sqlx.In(`SELECT `+foodColumns+` FROM foods WHERE meal_id IN (?) ORDER BY id`, ids)
	if err != nil {
		return err
	}
	var rows []models.Food
	if err := h.db.Select(&rows, h.db.Rebind(query), args...); err != nil {
		return err
	}
	for _, row := range rows {
		m := byID[row.MealID]
		m.Foods = append(m.Foods, row)
	}
	return nil
}

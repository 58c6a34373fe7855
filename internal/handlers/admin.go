package handlers

import (
	"net/http"

	"github.com/jmoiron/sqlx"

	mw "fitgrove/internal/middleware"
)

type AdminHandler struct {
	db *sqlx.DB
}

func NewAdminHandler(db *sqlx.DB) *AdminHandler { return &AdminHandler{db: db} }

type adminOverview struct {
	TotalUsers            int `json:"total_users"`
	TotalCoaches          int `json:"total_coaches"`
	TotalCheckIns         int `json:"total_checkins"`
	TotalSessions         int `json:"total_sessions"`
	CheckInsThisWeek      int `json:"checkins_this_week"`
	SessionsThisWeek      int `json:"sessions_this_week"`
	ActiveUsersThisWeek   int `json:"active_users_this_week"`
	ActiveTrainingPlans   int `json:"active_training_plans"`
	ActiveNutritionPlans  int `json:"active_nutrition_plans"`
}

// Overview godoc
// @Summary Get admin overview
// @Description Returns administrative statistics and metrics (admin only)
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} adminOverview
// @Failure 403 {string} string "Forbidden"
// @Failure 500 {string} string "Internal server error"
// @Router /admin/overview [get]
func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())
	if ok, err := isAdmin(h.db, p.UserID); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	} else if !ok {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var out adminOverview
	stats := []struct {
		dest  *int
		query string
	}{
		{&out.TotalUsers, `SELECT COUNT(*) FROM users`},
		{&out.TotalCoaches, `SELECT COUNT(*) FROM users WHERE user_type='coach'`},
		{&out.TotalCheckIns, `SELECT COUNT(*) FROM checkins`},
		{&out.TotalSessions, `SELECT COUNT(*) FROM training_sessions`},
		{&out.CheckInsThisWeek, `SELECT COUNT(*) FROM checkins WHERE date >= date_trunc('week', CURRENT_DATE) AND date <= CURRENT_DATE`},
		{&out.SessionsThisWeek, `SELECT COUNT(*) FROM training_sessions WHERE date >= date_trunc('week', CURRENT_DATE) AND date <= CURRENT_DATE`},
		{&out.ActiveUsersThisWeek, `SELECT COUNT(DISTINCT user_id) FROM checkins WHERE date >= date_trunc('week', CURRENT_DATE) AND date <= CURRENT_DATE`},
		{&out.ActiveTrainingPlans, `SELECT COUNT(*) FROM training_plans WHERE is_active`},
		{&out.ActiveNutritionPlans, `SELECT COUNT(*) FROM nutrition_plans WHERE is_active`},
	}
	for _, s := range stats {
		if err := h.db.QueryRowx(s.query).Scan(s.dest); err != nil {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
	}

	writeJSON(w, http.StatusOK, out)
}

package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	mw "fitgrove/internal/middleware"
	"fitgrove/internal/models"
)

type DashboardHandler struct {
	db *sqlx.DB
}

func NewDashboardHandler(db *sqlx.DB) *DashboardHandler { return &DashboardHandler{db: db} }

type weightPoint struct {
	Date     string  `json:"date"`
	WeightKG float64 `json:"weight_kg"`
}

type dashboardResponse struct {
	ReferenceDate            string        `json:"reference_date"`
	HasTodayCheckIn          bool          `json:"has_today_checkin"`
	LatestWeightKG           *float64      `json:"latest_weight_kg,omitempty"`
	CheckInsThisWeek         int           `json:"checkins_this_week"`
	SessionsThisWeek         int           `json:"sessions_this_week"`
	MealsThisWeek            int           `json:"meals_this_week"`
	CaloriesBurnedThisWeek   int           `json:"calories_burned_this_week"`
	CaloriesConsumedThisWeek int           `json:"calories_consumed_this_week"`
	WeightTrend              []weightPoint `json:"weight_trend"`
}

// Get aggregates the caller's recent activity. Accepts optional query
// param local_date=YYYY-MM-DD to use as the caller's "today"; weeks start
// on Monday to match the plan day_of_week encoding.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	p := mw.Principal(r.Context())

	today := time.Now().UTC().Truncate(24 * time.Hour)
	if raw := r.URL.Query().Get("local_date"); raw != "" {
		d, err := models.ParseDate(raw)
		if err != nil {
			http.Error(w, "invalid local_date format; expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		today = d.Time
	}
	offset := (int(today.Weekday()) + 6) % 7 // Monday start
	weekStart := today.AddDate(0, 0, -offset)

	res := dashboardResponse{
		ReferenceDate: today.Format("2006-01-02"),
		WeightTrend:   []weightPoint{},
	}

	// No check-in with a weight yet is fine; any other failure is not.
	err := h.db.Get(&res.LatestWeightKG, `SELECT weight_kg FROM checkins WHERE user_id=$1 AND weight_kg IS NOT NULL AND date<=$2 ORDER BY date DESC LIMIT 1`, p.UserID, today)
	if err != nil && err != sql.ErrNoRows {
		http.Error(w, "could not fetch aggregates", http.StatusInternalServerError)
		return
	}

	aggregates := []struct {
		dest  any
		query string
		args  []any
	}{
		{&res.HasTodayCheckIn, `SELECT EXISTS (SELECT 1 FROM checkins WHERE user_id=$1 AND date=$2)`, []any{p.UserID, today}},
		{&res.CheckInsThisWeek, `SELECT COUNT(*) FROM checkins WHERE user_id=$1 AND date >= $2 AND date <= $3`, []any{p.UserID, weekStart, today}},
		{&res.SessionsThisWeek, `SELECT COUNT(*) FROM training_sessions WHERE user_id=$1 AND date >= $2 AND date <= $3`, []any{p.UserID, weekStart, today}},
		{&res.MealsThisWeek, `SELECT COUNT(*) FROM meals WHERE user_id=$1 AND date >= $2 AND date <= $3`, []any{p.UserID, weekStart, today}},
		{&res.CaloriesBurnedThisWeek, `SELECT COALESCE(SUM(calories_burned),0) FROM training_sessions WHERE user_id=$1 AND date >= $2 AND date <= $3`, []any{p.UserID, weekStart, today}},
		{&res.CaloriesConsumedThisWeek, `SELECT COALESCE(SUM(calories),0) FROM meals WHERE user_id=$1 AND date >= $2 AND date <= $3`, []any{p.UserID, weekStart, today}},
	}
	for _, a := range aggregates {
		if err := h.db.Get(a.dest, a.query, a.args...); err != nil {
			http.Error(w, "could not fetch aggregates", http.StatusInternalServerError)
			return
		}
	}

	rows, err := h.db.Queryx(`SELECT date, weight_kg FROM checkins WHERE user_id=$1 AND weight_kg IS NOT NULL AND date<=$2 ORDER BY date DESC LIMIT 7`, p.UserID, today)
	if err != nil {
		http.Error(w, "could not fetch", http.StatusInternalServerError)
		return
	}
	defer rows.Close()
	for rows.Next() {
		var d time.Time
		var kg float64
		if err := rows.Scan(&d, &kg); err == nil {
			// Prepend so the trend reads oldest to newest.
			res.WeightTrend = append([]weightPoint{{Date: d.Format("2006-01-02"), WeightKG: kg}}, res.WeightTrend...)
		}
	}

	writeJSON(w, http.StatusOK, res)
}

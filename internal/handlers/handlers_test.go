package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitgrove/internal/db"
	mw "fitgrove/internal/middleware"
	"fitgrove/internal/models"
)

const testJWTSecret = "handlers-test-secret"

// setupDB opens the database named by TEST_DATABASE_URL, runs migrations
// and starts from empty tables. Tests are skipped when the variable is
// unset so the pure-core suites still run everywhere.
func setupDB(t *testing.T) *sqlx.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	conn, err := sqlx.Open("pgx", url)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.Ping())
	require.NoError(t, db.RunMigrations(conn))
	_, err = conn.Exec(`TRUNCATE users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return conn
}

func testRouter(conn *sqlx.DB) http.Handler {
	authHandler := NewAuthHandler(conn, []byte(testJWTSecret))
	userHandler := NewUserHandler(conn)
	checkinHandler := NewCheckInHandler(conn)
	trainingHandler := NewTrainingHandler(conn)
	trainingPlanHandler := NewTrainingPlanHandler(conn)
	nutritionHandler := NewNutritionHandler(conn)
	nutritionPlanHandler := NewNutritionPlanHandler(conn)
	dashboardHandler := NewDashboardHandler(conn)
	authMW := mw.NewAuthMiddleware([]byte(testJWTSecret))

	r := chi.NewRouter()
	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/signup", authHandler.Signup)
		api.Post("/auth/login", authHandler.Login)
		api.Group(func(pr chi.Router) {
			pr.Use(authMW.RequireAuth)
			pr.Get("/users/me", userHandler.GetMe)
			pr.Put("/users/me", userHandler.UpdateMe)
			pr.Get("/checkins", checkinHandler.List)
			pr.Post("/checkins", checkinHandler.Create)
			pr.Get("/checkins/{id}", checkinHandler.Get)
			pr.Delete("/checkins/{id}", checkinHandler.Delete)
			pr.Route("/training", func(t chi.Router) {
				t.Get("/sessions", trainingHandler.ListSessions)
				t.Post("/sessions", trainingHandler.CreateSession)
				t.Get("/sessions/{id}", trainingHandler.GetSession)
				t.Get("/plans", trainingPlanHandler.List)
				t.Post("/plans", trainingPlanHandler.Create)
				t.Get("/plans/{id}", trainingPlanHandler.Get)
				t.Put("/plans/{id}", trainingPlanHandler.Update)
				t.Delete("/plans/{id}", trainingPlanHandler.Delete)
			})
			pr.Route("/nutrition", func(n chi.Router) {
				n.Post("/meals", nutritionHandler.CreateMeal)
				n.Post("/plans", nutritionPlanHandler.Create)
			})
			pr.Get("/dashboard", dashboardHandler.Get)
		})
	})
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// signup registers a user through the API and returns its id and token.
func signup(t *testing.T, h http.Handler, username string, role models.UserRole) (int, string) {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"username":  username,
		"email":     username + "@example.com",
		"password":  "secret123",
		"user_type": role,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res.User.ID, res.Token
}

func TestCheckInDuplicateDate(t *testing.T) {
	conn := setupDB(t)
	h := testRouter(conn)
	_, token := signup(t, h, "alice", models.RoleNormal)

	first := doJSON(t, h, http.MethodPost, "/api/checkins", token, map[string]any{
		"date": "2024-01-01", "weight_kg": 80.0,
	})
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	var created models.CheckIn
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &created))
	assert.Equal(t, "2024-01-01", created.Date.String())
	assert.NotNil(t, created.WeightKG)

	second := doJSON(t, h, http.MethodPost, "/api/checkins", token, map[string]any{
		"date": "2024-01-01", "weight_kg": 81.0,
	})
	assert.Equal(t, http.StatusConflict, second.Code, second.Body.String())

	var count int
	require.NoError(t, conn.Get(&count, `SELECT COUNT(*) FROM checkins`))
	assert.Equal(t, 1, count)
}

func TestCheckInScopedNotFound(t *testing.T) {
	conn := setupDB(t)
	h := testRouter(conn)
	_, aliceToken := signup(t, h, "alice", models.RoleNormal)
	_, bobToken := signup(t, h, "bob", models.RoleNormal)

	rec := doJSON(t, h, http.MethodPost, "/api/checkins", aliceToken, map[string]any{"date": "2024-02-01"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.CheckIn
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// Foreign rows read as absent, not forbidden.
	get := doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/checkins/%d", created.ID), bobToken, nil)
	assert.Equal(t, http.StatusNotFound, get.Code)
	del := doJSON(t, h, http.MethodDelete, fmt.Sprintf("/api/checkins/%d", created.ID), bobToken, nil)
	assert.Equal(t, http.StatusNotFound, del.Code)
}

func TestSessionListScoping(t *testing.T) {
	conn := setupDB(t)
	h := testRouter(conn)
	_, aliceToken := signup(t, h, "alice", models.RoleNormal)
	_, bobToken := signup(t, h, "bob", models.RoleNormal)

	for _, tok := range []string{aliceToken, bobToken, bobToken} {
		rec := doJSON(t, h, http.MethodPost, "/api/training/sessions", tok, map[string]any{
			"title": "legs", "date": "2024-03-01", "duration_minutes": 45, "intensity": "high",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	list := doJSON(t, h, http.MethodGet, "/api/training/sessions", aliceToken, nil)
	require.Equal(t, http.StatusOK, list.Code)
	var sessions []models.TrainingSession
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, 1, sessions[0].UserID)
}

func TestNestedSessionCreateIsAtomic(t *testing.T) {
	conn := setupDB(t)
	h := testRouter(conn)
	_, token := signup(t, h, "alice", models.RoleNormal)

	rec := doJSON(t, h, http.MethodPost, "/api/training/sessions", token, map[string]any{
		"title": "push day", "date": "2024-03-02", "duration_minutes": 60, "intensity": "medium",
		"exercises": []map[string]any{
			{"name": "bench press", "sets": 3, "reps": 8},
			{"name": "", "sets": 3, "reps": 8}, // invalid child
		},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var count int
	require.NoError(t, conn.Get(&count, `SELECT COUNT(*) FROM training_sessions`))
	assert.Equal(t, 0, count, "no row from the failed batch may persist")

	ok := doJSON(t, h, http.MethodPost, "/api/training/sessions", token, map[string]any{
		"title": "push day", "date": "2024-03-02", "duration_minutes": 60, "intensity": "medium",
		"exercises": []map[string]any{
			{"name": "bench press", "sets": 3, "reps": 8, "weight_kg": 60.5},
			{"name": "dips", "sets": 3, "reps": 12},
		},
	})
	require.Equal(t, http.StatusCreated, ok.Code, ok.Body.String())
	var session models.TrainingSession
	require.NoError(t, json.Unmarshal(ok.Body.Bytes(), &session))
	require.Len(t, session.Exercises, 2)
	assert.Equal(t, "bench press", session.Exercises[0].Name)
}

func TestTrainingPlanInvalidRange(t *testing.T) {
	conn := setupDB(t)
	h := testRouter(conn)
	userID, _ := signup(t, h, "client", models.RoleNormal)
	_, coachToken := signup(t, h, "coach", models.RoleCoach)

	rec := doJSON(t, h, http.MethodPost, "/api/training/plans", coachToken, map[string]any{
		"user": userID, "name": "cut", "start_date": "2024-01-01", "end_date": "2023-12-31",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "end_date")
}

func TestTrainingPlanRolePair(t *testing.T) {
	conn := setupDB(t)
	h := testRouter(conn)
	clientID, clientToken := signup(t, h, "client", models.RoleNormal)
	coachID, coachToken := signup(t, h, "coach", models.RoleCoach)

	// A normal caller cannot author plans.
	rec := doJSON(t, h, http.MethodPost, "/api/training/plans", clientToken, map[string]any{
		"user": clientID, "name": "bulk", "start_date": "2024-01-01",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// A coach cannot be an assignee.
	rec = doJSON(t, h, http.MethodPost, "/api/training/plans", coachToken, map[string]any{
		"user": coachID, "name": "bulk", "start_date": "2024-01-01",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The valid pair passes, and the author comes from the token.
	rec = doJSON(t, h, http.MethodPost, "/api/training/plans", coachToken, map[string]any{
		"user": clientID, "name": "bulk", "start_date": "2024-01-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var plan models.TrainingPlan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))
	assert.Equal(t, coachID, plan.CoachID)
}

func TestTrainingPlanMondayZeroEntryAccepted(t *testing.T) {
	conn := setupDB(t)
	h := testRouter(conn)
	clientID, _ := signup(t, h, "client", models.RoleNormal)
	_, coachToken := signup(t, h, "coach", models.RoleCoach)

	rec := doJSON(t, h, http.MethodPost, "/api/training/plans", coachToken, map[string]any{
		"user": clientID, "name": "strength", "start_date": "2024-01-01",
		"exercises": []map[string]any{
			{"name": "squat", "sets": 5, "reps": 5, "day_of_week": 0},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var plan models.TrainingPlan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))
	require.Len(t, plan.Exercises, 1)
	require.NotNil(t, plan.Exercises[0].DayOfWeek)
	assert.Equal(t, 0, *plan.Exercises[0].DayOfWeek)

	missing := doJSON(t, h, http.MethodPost, "/api/training/plans", coachToken, map[string]any{
		"user": clientID, "name": "strength 2", "start_date": "2024-01-01",
		"exercises": []map[string]any{
			{"name": "squat", "sets": 5, "reps": 5},
		},
	})
	assert.Equal(t, http.StatusBadRequest, missing.Code)
}

func TestTrainingPlanDuplicateName(t *testing.T) {
	conn := setupDB(t)
	h := testRouter(conn)
	clientID, _ := signup(t, h, "client", models.RoleNormal)
	_, coachToken := signup(t, h, "coach", models.RoleCoach)

	payload := map[string]any{"user": clientID, "name": "phase 1", "start_date": "2024-01-01"}
	first := doJSON(t, h, http.MethodPost, "/api/training/plans", coachToken, payload)
	require.Equal(t, http.StatusCreated, first.Code)
	second := doJSON(t, h, http.MethodPost, "/api/training/plans", coachToken, payload)
	assert.Equal(t, http.StatusConflict, second.Code)
}

func TestTrainingPlanDeleteCascadesAndDetaches(t *testing.T) {
	conn := setupDB(t)
	h := testRouter(conn)
	clientID, clientToken := signup(t, h, "client", models.RoleNormal)
	_, coachToken := signup(t, h, "coach", models.RoleCoach)

	rec := doJSON(t, h, http.MethodPost, "/api/training/plans", coachToken, map[string]any{
		"user": clientID, "name": "phase 1", "start_date": "2024-01-01",
		"exercises": []map[string]any{
			{"name": "squat", "sets": 5, "reps": 5, "day_of_week": 2},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var plan models.TrainingPlan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))

	sess := doJSON(t, h, http.MethodPost, "/api/training/sessions", clientToken, map[string]any{
		"title": "day 1", "date": "2024-01-02", "duration_minutes": 50,
		"intensity": "medium", "training_plan": plan.ID,
	})
	require.Equal(t, http.StatusCreated, sess.Code, sess.Body.String())
	var session models.TrainingSession
	require.NoError(t, json.Unmarshal(sess.Body.Bytes(), &session))
	require.NotNil(t, session.TrainingPlanID)

	del := doJSON(t, h, http.MethodDelete, fmt.Sprintf("/api/training/plans/%d", plan.ID), coachToken, nil)
	require.Equal(t, http.StatusNoContent, del.Code)

	var entries int
	require.NoError(t, conn.Get(&entries, `SELECT COUNT(*) FROM training_plan_exercises WHERE plan_id=$1`, plan.ID))
	assert.Equal(t, 0, entries, "plan entries must cascade")

	get := doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/training/sessions/%d", session.ID), clientToken, nil)
	require.Equal(t, http.StatusOK, get.Code)
	var kept models.TrainingSession
	require.NoError(t, json.Unmarshal(get.Body.Bytes(), &kept))
	assert.Nil(t, kept.TrainingPlanID, "session keeps its row with the plan reference cleared")
}

func TestTrainingPlanVisibility(t *testing.T) {
	conn := setupDB(t)
	h := testRouter(conn)
	clientID, clientToken := signup(t, h, "client", models.RoleNormal)
	_, coachToken := signup(t, h, "coach", models.RoleCoach)
	_, otherCoachToken := signup(t, h, "othercoach", models.RoleCoach)

	rec := doJSON(t, h, http.MethodPost, "/api/training/plans", coachToken, map[string]any{
		"user": clientID, "name": "phase 1", "start_date": "2024-01-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var plan models.TrainingPlan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))

	// Author and assignee both see the plan; an unrelated coach does not.
	for token, wantLen := range map[string]int{coachToken: 1, clientToken: 1, otherCoachToken: 0} {
		list := doJSON(t, h, http.MethodGet, "/api/training/plans", token, nil)
		require.Equal(t, http.StatusOK, list.Code)
		var plans []models.TrainingPlan
		require.NoError(t, json.Unmarshal(list.Body.Bytes(), &plans))
		assert.Len(t, plans, wantLen)
	}

	get := doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/training/plans/%d", plan.ID), otherCoachToken, nil)
	assert.Equal(t, http.StatusNotFound, get.Code)
}

func TestCoachAssignmentRules(t *testing.T) {
	conn := setupDB(t)
	h := testRouter(conn)
	_, clientToken := signup(t, h, "client", models.RoleNormal)
	otherID, _ := signup(t, h, "other", models.RoleNormal)
	coachID, coachToken := signup(t, h, "coach", models.RoleCoach)

	// Assigning a normal user as coach fails.
	rec := doJSON(t, h, http.MethodPut, "/api/users/me", clientToken, map[string]any{"coach": otherID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// A coach cannot hold an assignment.
	rec = doJSON(t, h, http.MethodPut, "/api/users/me", coachToken, map[string]any{"coach": coachID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Valid assignment, then cleared with explicit null.
	rec = doJSON(t, h, http.MethodPut, "/api/users/me", clientToken, map[string]any{"coach": coachID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var u models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &u))
	require.NotNil(t, u.CoachID)
	assert.Equal(t, coachID, *u.CoachID)

	rec = doJSON(t, h, http.MethodPut, "/api/users/me", clientToken, map[string]any{"coach": nil})
	require.Equal(t, http.StatusOK, rec.Code)
	var cleared models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cleared))
	assert.Nil(t, cleared.CoachID)
}

func TestNutritionPlanMealUniqueness(t *testing.T) {
	conn := setupDB(t)
	h := testRouter(conn)
	clientID, _ := signup(t, h, "client", models.RoleNormal)
	_, coachToken := signup(t, h, "coach", models.RoleCoach)

	rec := doJSON(t, h, http.MethodPost, "/api/nutrition/plans", coachToken, map[string]any{
		"user": clientID, "name": "macros", "start_date": "2024-01-01", "daily_calories": 2400,
		"meals": []map[string]any{
			{"meal_type": "breakfast", "scheduled_time": "08:00"},
			{"meal_type": "breakfast", "scheduled_time": "8:00"}, // same slot, unpadded
		},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	var count int
	require.NoError(t, conn.Get(&count, `SELECT COUNT(*) FROM nutrition_plans`))
	assert.Equal(t, 0, count, "failed batch may not leave the parent row behind")

	ok := doJSON(t, h, http.MethodPost, "/api/nutrition/plans", coachToken, map[string]any{
		"user": clientID, "name": "macros", "start_date": "2024-01-01", "daily_calories": 2400,
		"meals": []map[string]any{
			{"meal_type": "breakfast", "scheduled_time": "08:00", "sort_order": 1},
			{"meal_type": "snack", "scheduled_time": "10:30", "is_pre_workout": true, "sort_order": 2},
		},
	})
	require.Equal(t, http.StatusCreated, ok.Code, ok.Body.String())
	var plan models.NutritionPlan
	require.NoError(t, json.Unmarshal(ok.Body.Bytes(), &plan))
	require.Len(t, plan.Meals, 2)
	assert.True(t, plan.Meals[1].IsPreWorkout)
}

func TestTrainingPlanEndDateCleared(t *testing.T) {
	conn := setupDB(t)
	h := testRouter(conn)
	clientID, _ := signup(t, h, "client", models.RoleNormal)
	_, coachToken := signup(t, h, "coach", models.RoleCoach)

	rec := doJSON(t, h, http.MethodPost, "/api/training/plans", coachToken, map[string]any{
		"user": clientID, "name": "phase 1", "start_date": "2024-01-01", "end_date": "2024-03-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var plan models.TrainingPlan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))
	require.NotNil(t, plan.EndDate)
	path := fmt.Sprintf("/api/training/plans/%d", plan.ID)

	// An update that never mentions end_date leaves it alone.
	rec = doJSON(t, h, http.MethodPut, path, coachToken, map[string]any{"description": "winter block"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var untouched models.TrainingPlan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &untouched))
	assert.NotNil(t, untouched.EndDate)

	// An explicit null clears it, leaving the plan open-ended.
	rec = doJSON(t, h, http.MethodPut, path, coachToken, map[string]any{"end_date": nil})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var cleared models.TrainingPlan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cleared))
	assert.Nil(t, cleared.EndDate)

	rec = doJSON(t, h, http.MethodPut, path, coachToken, map[string]any{"end_date": "soon"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Setting a new end date still validates against the start.
	rec = doJSON(t, h, http.MethodPut, path, coachToken, map[string]any{"end_date": "2023-12-31"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardForFreshUser(t *testing.T) {
	conn := setupDB(t)
	h := testRouter(conn)
	_, token := signup(t, h, "alice", models.RoleNormal)

	rec := doJSON(t, h, http.MethodGet, "/api/dashboard?local_date=2024-05-06", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res dashboardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.HasTodayCheckIn)
	assert.Nil(t, res.LatestWeightKG, "no weight recorded yet reads as absent, not zero")
	assert.Equal(t, 0, res.CheckInsThisWeek)
	assert.Empty(t, res.WeightTrend)
}

func TestMealNestedFoods(t *testing.T) {
	conn := setupDB(t)
	h := testRouter(conn)
	_, token := signup(t, h, "alice", models.RoleNormal)

	rec := doJSON(t, h, http.MethodPost, "/api/nutrition/meals", token, map[string]any{
		"name": "lunch", "meal_type": "lunch", "date": "2024-04-01", "time": "12:30", "calories": 650,
		"foods": []map[string]any{
			{"name": "rice", "quantity": "200g", "calories": 260, "carbs_g": 56.0},
			{"name": "chicken", "quantity": "150g", "calories": 240, "protein_g": 45.0},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var meal models.Meal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &meal))
	require.Len(t, meal.Foods, 2)
	assert.Equal(t, "rice", meal.Foods[0].Name)
}

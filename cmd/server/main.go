package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"fitgrove/internal/db"
	"fitgrove/internal/handlers"
	mw "fitgrove/internal/middleware"
)

func mustGetenv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func main() {
	_ = godotenv.Load()

	logger, err := newLogger(mustGetenv("APP_ENV", "development"))
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}

	port := mustGetenv("PORT", "8080")

	dbConn, err := sqlx.Open("pgx", databaseURL)
	if err != nil {
		logger.Fatal("failed to open db", zap.Error(err))
	}
	dbConn.SetMaxOpenConns(10)
	dbConn.SetConnMaxLifetime(2 * time.Hour)
	if err = dbConn.Ping(); err != nil {
		logger.Fatal("failed to ping db", zap.Error(err))
	}
	if err := db.RunMigrations(dbConn); err != nil {
		logger.Fatal("failed migrations", zap.Error(err))
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.Metrics)

	authHandler := handlers.NewAuthHandler(dbConn, []byte(jwtSecret))
	userHandler := handlers.NewUserHandler(dbConn)
	checkinHandler := handlers.NewCheckInHandler(dbConn)
	trainingHandler := handlers.NewTrainingHandler(dbConn)
	trainingPlanHandler := handlers.NewTrainingPlanHandler(dbConn)
	nutritionHandler := handlers.NewNutritionHandler(dbConn)
	nutritionPlanHandler := handlers.NewNutritionPlanHandler(dbConn)
	dashboardHandler := handlers.NewDashboardHandler(dbConn)
	adminHandler := handlers.NewAdminHandler(dbConn)
	authMW := mw.NewAuthMiddleware([]byte(jwtSecret))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := dbConn.Ping(); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/signup", authHandler.Signup)
		api.Post("/auth/login", authHandler.Login)
		api.Group(func(pr chi.Router) {
			pr.Use(authMW.RequireAuth)

			pr.Get("/users/me", userHandler.GetMe)
			pr.Put("/users/me", userHandler.UpdateMe)
			pr.Get("/users", userHandler.List)

			pr.Get("/checkins", checkinHandler.List)
			pr.Post("/checkins", checkinHandler.Create)
			pr.Get("/checkins/{id}", checkinHandler.Get)
			pr.Put("/checkins/{id}", checkinHandler.Update)
			pr.Delete("/checkins/{id}", checkinHandler.Delete)

			pr.Route("/training", func(t chi.Router) {
				t.Get("/sessions", trainingHandler.ListSessions)
				t.Post("/sessions", trainingHandler.CreateSession)
				t.Get("/sessions/{id}", trainingHandler.GetSession)
				t.Put("/sessions/{id}", trainingHandler.UpdateSession)
				t.Delete("/sessions/{id}", trainingHandler.DeleteSession)
				t.Get("/sessions/{id}/exercises", trainingHandler.ListExercises)
				t.Post("/sessions/{id}/exercises", trainingHandler.CreateExercise)

				t.Get("/plans", trainingPlanHandler.List)
				t.Post("/plans", trainingPlanHandler.Create)
				t.Get("/plans/{id}", trainingPlanHandler.Get)
				t.Put("/plans/{id}", trainingPlanHandler.Update)
				t.Delete("/plans/{id}", trainingPlanHandler.Delete)
				t.Get("/plans/{id}/exercises", trainingPlanHandler.ListExercises)
				t.Post("/plans/{id}/exercises", trainingPlanHandler.CreateExercise)
			})

			pr.Route("/nutrition", func(n chi.Router) {
				n.Get("/meals", nutritionHandler.ListMeals)
				n.Post("/meals", nutritionHandler.CreateMeal)
				n.Get("/meals/{id}", nutritionHandler.GetMeal)
				n.Put("/meals/{id}", nutritionHandler.UpdateMeal)
				n.Delete("/meals/{id}", nutritionHandler.DeleteMeal)
				n.Get("/meals/{id}/foods", nutritionHandler.ListFoods)
				n.Post("/meals/{id}/foods", nutritionHandler.CreateFood)

				n.Get("/plans", nutritionPlanHandler.List)
				n.Post("/plans", nutritionPlanHandler.Create)
				n.Get("/plans/{id}", nutritionPlanHandler.Get)
				n.Put("/plans/{id}", nutritionPlanHandler.Update)
				n.Delete("/plans/{id}", nutritionPlanHandler.Delete)
				n.Get("/plans/{id}/meals", nutritionPlanHandler.ListMeals)
				n.Post("/plans/{id}/meals", nutritionPlanHandler.CreateMeal)
			})

			pr.Get("/dashboard", dashboardHandler.Get)
			pr.Get("/admin/overview", adminHandler.Overview)
		})
	})

	srv := &http.Server{Addr: ":" + port, Handler: r}
	go func() {
		logger.Info("server starting", zap.String("addr", ":"+port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown initiated")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	logger.Info("server stopped")
}

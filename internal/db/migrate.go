package db

import (
	"context"

	"github.com/jmoiron/sqlx"
)

func RunMigrations(db *sqlx.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS users (
    id SERIAL PRIMARY KEY,
    username TEXT UNIQUE NOT NULL,
    email TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    user_type TEXT NOT NULL DEFAULT 'normal' CHECK (user_type IN ('normal', 'coach')),
    coach_id INTEGER REFERENCES users(id) ON DELETE SET NULL,
    phone TEXT,
    bio TEXT,
    date_of_birth DATE,
    height_cm DOUBLE PRECISION,
    is_admin BOOLEAN NOT NULL DEFAULT false,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS checkins (
    id SERIAL PRIMARY KEY,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    date DATE NOT NULL,
    weight_kg DOUBLE PRECISION,
    body_fat_percentage DOUBLE PRECISION,
    muscle_mass_kg DOUBLE PRECISION,
    mood TEXT CHECK (mood IN ('excellent', 'good', 'neutral', 'poor', 'bad')),
    energy_level SMALLINT CHECK (energy_level BETWEEN 1 AND 10),
    sleep_hours DOUBLE PRECISION,
    water_intake_ml INTEGER CHECK (water_intake_ml >= 0),
    notes TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (user_id, date)
);

CREATE TABLE IF NOT EXISTS training_plans (
    id SERIAL PRIMARY KEY,
    coach_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    description TEXT,
    start_date DATE NOT NULL,
    end_date DATE,
    is_active BOOLEAN NOT NULL DEFAULT true,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (user_id, name)
);

CREATE TABLE IF NOT EXISTS training_plan_exercises (
    id SERIAL PRIMARY KEY,
    plan_id INTEGER NOT NULL REFERENCES training_plans(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    sets INTEGER NOT NULL CHECK (sets > 0),
    reps INTEGER NOT NULL CHECK (reps > 0),
    rest_seconds INTEGER CHECK (rest_seconds >= 0),
    day_of_week SMALLINT CHECK (day_of_week BETWEEN 0 AND 6),
    scheduled_date DATE,
    sort_order INTEGER NOT NULL DEFAULT 0,
    notes TEXT,
    CHECK (day_of_week IS NOT NULL OR scheduled_date IS NOT NULL)
);

CREATE TABLE IF NOT EXISTS training_sessions (
    id SERIAL PRIMARY KEY,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    training_plan_id INTEGER REFERENCES training_plans(id) ON DELETE SET NULL,
    title TEXT NOT NULL,
    description TEXT,
    date DATE NOT NULL,
    duration_minutes INTEGER NOT NULL CHECK (duration_minutes > 0),
    intensity TEXT NOT NULL CHECK (intensity IN ('low', 'medium', 'high')),
    calories_burned INTEGER CHECK (calories_burned >= 0),
    notes TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS exercises (
    id SERIAL PRIMARY KEY,
    session_id INTEGER NOT NULL REFERENCES training_sessions(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    sets INTEGER NOT NULL CHECK (sets > 0),
    reps INTEGER NOT NULL CHECK (reps > 0),
    weight_kg DOUBLE PRECISION,
    rest_seconds INTEGER CHECK (rest_seconds >= 0),
    notes TEXT
);

CREATE TABLE IF NOT EXISTS nutrition_plans (
    id SERIAL PRIMARY KEY,
    coach_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    description TEXT,
    daily_calories INTEGER CHECK (daily_calories >= 0),
    daily_protein_g DOUBLE PRECISION,
    daily_carbs_g DOUBLE PRECISION,
    daily_fat_g DOUBLE PRECISION,
    start_date DATE NOT NULL,
    end_date DATE,
    is_active BOOLEAN NOT NULL DEFAULT true,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (user_id, name)
);

CREATE TABLE IF NOT EXISTS nutrition_plan_meals (
    id SERIAL PRIMARY KEY,
    plan_id INTEGER NOT NULL REFERENCES nutrition_plans(id) ON DELETE CASCADE,
    meal_type TEXT NOT NULL CHECK (meal_type IN ('breakfast', 'lunch', 'dinner', 'snack', 'pre_workout', 'post_workout')),
    scheduled_time TEXT NOT NULL,
    description TEXT,
    is_pre_workout BOOLEAN NOT NULL DEFAULT false,
    is_post_workout BOOLEAN NOT NULL DEFAULT false,
    sort_order INTEGER NOT NULL DEFAULT 0,
    UNIQUE (plan_id, meal_type, scheduled_time)
);

CREATE TABLE IF NOT EXISTS meals (
    id SERIAL PRIMARY KEY,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    nutrition_plan_id INTEGER REFERENCES nutrition_plans(id) ON DELETE SET NULL,
    name TEXT NOT NULL,
    meal_type TEXT NOT NULL CHECK (meal_type IN ('breakfast', 'lunch', 'dinner', 'snack', 'pre_workout', 'post_workout')),
    date DATE NOT NULL,
    time TEXT,
    calories INTEGER NOT NULL CHECK (calories >= 0),
    protein_g DOUBLE PRECISION,
    carbs_g DOUBLE PRECISION,
    fat_g DOUBLE PRECISION,
    notes TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS foods (
    id SERIAL PRIMARY KEY,
    meal_id INTEGER NOT NULL REFERENCES meals(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    quantity TEXT NOT NULL,
    calories INTEGER NOT NULL CHECK (calories >= 0),
    protein_g DOUBLE PRECISION,
    carbs_g DOUBLE PRECISION,
    fat_g DOUBLE PRECISION
);

CREATE INDEX IF NOT EXISTS idx_checkins_user_date ON checkins (user_id, date DESC);
CREATE INDEX IF NOT EXISTS idx_training_sessions_user_date ON training_sessions (user_id, date DESC);
CREATE INDEX IF NOT EXISTS idx_meals_user_date ON meals (user_id, date DESC);
CREATE INDEX IF NOT EXISTS idx_training_plans_coach ON training_plans (coach_id);
CREATE INDEX IF NOT EXISTS idx_nutrition_plans_coach ON nutrition_plans (coach_id);
CREATE INDEX IF NOT EXISTS idx_exercises_session ON exercises (session_id);
CREATE INDEX IF NOT EXISTS idx_foods_meal ON foods (meal_id);
CREATE INDEX IF NOT EXISTS idx_plan_exercises_plan ON training_plan_exercises (plan_id);
CREATE INDEX IF NOT EXISTS idx_plan_meals_plan ON nutrition_plan_meals (plan_id);
`
	_, err := db.ExecContext(context.Background(), schema)
	return err
}

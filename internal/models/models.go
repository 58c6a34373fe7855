package models

import "time"

type UserRole string

const (
	RoleNormal UserRole = "normal"
	RoleCoach  UserRole = "coach"
)

func (r UserRole) Valid() bool { return r == RoleNormal || r == RoleCoach }

type Mood string

const (
	MoodExcellent Mood = "excellent"
	MoodGood      Mood = "good"
	MoodNeutral   Mood = "neutral"
	MoodPoor      Mood = "poor"
	MoodBad       Mood = "bad"
)

func (m Mood) Valid() bool {
	switch m {
	case MoodExcellent, MoodGood, MoodNeutral, MoodPoor, MoodBad:
		return true
	}
	return false
}

type Intensity string

const (
	IntensityLow    Intensity = "low"
	IntensityMedium Intensity = "medium"
	IntensityHigh   Intensity = "high"
)

func (i Intensity) Valid() bool {
	return i == IntensityLow || i == IntensityMedium || i == IntensityHigh
}

type MealType string

const (
	MealBreakfast   MealType = "breakfast"
	MealLunch       MealType = "lunch"
	MealDinner      MealType = "dinner"
	MealSnack       MealType = "snack"
	MealPreWorkout  MealType = "pre_workout"
	MealPostWorkout MealType = "post_workout"
)

func (m MealType) Valid() bool {
	switch m {
	case MealBreakfast, MealLunch, MealDinner, MealSnack, MealPreWorkout, MealPostWorkout:
		return true
	}
	return false
}

type User struct {
	ID           int       `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	UserType     UserRole  `db:"user_type" json:"user_type"`
	CoachID      *int      `db:"coach_id" json:"coach,omitempty"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	Bio          *string   `db:"bio" json:"bio,omitempty"`
	DateOfBirth  *Date     `db:"date_of_birth" json:"date_of_birth,omitempty"`
	HeightCM     *float64  `db:"height_cm" json:"height_cm,omitempty"`
	IsAdmin      bool      `db:"is_admin" json:"is_admin"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

type CheckIn struct {
	ID                int       `db:"id" json:"id"`
	UserID            int       `db:"user_id" json:"user"`
	Date              Date      `db:"date" json:"date"`
	WeightKG          *float64  `db:"weight_kg" json:"weight_kg,omitempty"`
	BodyFatPercentage *float64  `db:"body_fat_percentage" json:"body_fat_percentage,omitempty"`
	MuscleMassKG      *float64  `db:"muscle_mass_kg" json:"muscle_mass_kg,omitempty"`
	Mood              *Mood     `db:"mood" json:"mood,omitempty"`
	EnergyLevel       *int      `db:"energy_level" json:"energy_level,omitempty"`
	SleepHours        *float64  `db:"sleep_hours" json:"sleep_hours,omitempty"`
	WaterIntakeML     *int      `db:"water_intake_ml" json:"water_intake_ml,omitempty"`
	Notes             *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

type TrainingSession struct {
	ID              int        `db:"id" json:"id"`
	UserID          int        `db:"user_id" json:"user"`
	TrainingPlanID  *int       `db:"training_plan_id" json:"training_plan,omitempty"`
	Title           string     `db:"title" json:"title"`
	Description     *string    `db:"description" json:"description,omitempty"`
	Date            Date       `db:"date" json:"date"`
	DurationMinutes int        `db:"duration_minutes" json:"duration_minutes"`
	Intensity       Intensity  `db:"intensity" json:"intensity"`
	CaloriesBurned  *int       `db:"calories_burned" json:"calories_burned,omitempty"`
	Notes           *string    `db:"notes" json:"notes,omitempty"`
	Exercises       []Exercise `db:"-" json:"exercises"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

type Exercise struct {
	ID          int      `db:"id" json:"id"`
	SessionID   int      `db:"session_id" json:"session"`
	Name        string   `db:"name" json:"name"`
	Sets        int      `db:"sets" json:"sets"`
	Reps        int      `db:"reps" json:"reps"`
	WeightKG    *float64 `db:"weight_kg" json:"weight_kg,omitempty"`
	RestSeconds *int     `db:"rest_seconds" json:"rest_seconds,omitempty"`
	Notes       *string  `db:"notes" json:"notes,omitempty"`
}

type TrainingPlan struct {
	ID          int                    `db:"id" json:"id"`
	CoachID     int                    `db:"coach_id" json:"coach"`
	UserID      int                    `db:"user_id" json:"user"`
	Name        string                 `db:"name" json:"name"`
	Description *string                `db:"description" json:"description,omitempty"`
	StartDate   Date                   `db:"start_date" json:"start_date"`
	EndDate     *Date                  `db:"end_date" json:"end_date,omitempty"`
	IsActive    bool                   `db:"is_active" json:"is_active"`
	Exercises   []TrainingPlanExercise `db:"-" json:"exercises"`
	CreatedAt   time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time              `db:"updated_at" json:"updated_at"`
}

// TrainingPlanExercise is a scheduled entry in a coach-authored plan.
// DayOfWeek uses 0=Monday .. 6=Sunday. Either DayOfWeek or ScheduledDate
// must be set; a nil pointer is the only "unset" state, so Monday (0) is
// never mistaken for absent.
type TrainingPlanExercise struct {
	ID            int     `db:"id" json:"id"`
	PlanID        int     `db:"plan_id" json:"plan"`
	Name          string  `db:"name" json:"name"`
	Sets          int     `db:"sets" json:"sets"`
	Reps          int     `db:"reps" json:"reps"`
	RestSeconds   *int    `db:"rest_seconds" json:"rest_seconds,omitempty"`
	DayOfWeek     *int    `db:"day_of_week" json:"day_of_week,omitempty"`
	ScheduledDate *Date   `db:"scheduled_date" json:"scheduled_date,omitempty"`
	SortOrder     int     `db:"sort_order" json:"sort_order"`
	Notes         *string `db:"notes" json:"notes,omitempty"`
}

type Meal struct {
	ID              int       `db:"id" json:"id"`
	UserID          int       `db:"user_id" json:"user"`
	NutritionPlanID *int      `db:"nutrition_plan_id" json:"nutrition_plan,omitempty"`
	Name            string    `db:"name" json:"name"`
	MealType        MealType  `db:"meal_type" json:"meal_type"`
	Date            Date      `db:"date" json:"date"`
	Time            *string   `db:"time" json:"time,omitempty"`
	Calories        int       `db:"calories" json:"calories"`
	ProteinG        *float64  `db:"protein_g" json:"protein_g,omitempty"`
	CarbsG          *float64  `db:"carbs_g" json:"carbs_g,omitempty"`
	FatG            *float64  `db:"fat_g" json:"fat_g,omitempty"`
	Notes           *string   `db:"notes" json:"notes,omitempty"`
	Foods           []Food    `db:"-" json:"foods"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

type Food struct {
	ID       int      `db:"id" json:"id"`
	MealID   int      `db:"meal_id" json:"meal"`
	Name     string   `db:"name" json:"name"`
	Quantity string   `db:"quantity" json:"quantity"`
	Calories int      `db:"calories" json:"calories"`
	ProteinG *float64 `db:"protein_g" json:"protein_g,omitempty"`
	CarbsG   *float64 `db:"carbs_g" json:"carbs_g,omitempty"`
	FatG     *float64 `db:"fat_g" json:"fat_g,omitempty"`
}

type NutritionPlan struct {
	ID            int                 `db:"id" json:"id"`
	CoachID       int                 `db:"coach_id" json:"coach"`
	UserID        int                 `db:"user_id" json:"user"`
	Name          string              `db:"name" json:"name"`
	Description   *string             `db:"description" json:"description,omitempty"`
	DailyCalories *int                `db:"daily_calories" json:"daily_calories,omitempty"`
	DailyProteinG *float64            `db:"daily_protein_g" json:"daily_protein_g,omitempty"`
	DailyCarbsG   *float64            `db:"daily_carbs_g" json:"daily_carbs_g,omitempty"`
	DailyFatG     *float64            `db:"daily_fat_g" json:"daily_fat_g,omitempty"`
	StartDate     Date                `db:"start_date" json:"start_date"`
	EndDate       *Date               `db:"end_date" json:"end_date,omitempty"`
	IsActive      bool                `db:"is_active" json:"is_active"`
	Meals         []NutritionPlanMeal `db:"-" json:"meals"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time           `db:"updated_at" json:"updated_at"`
}

type NutritionPlanMeal struct {
	ID            int      `db:"id" json:"id"`
	PlanID        int      `db:"plan_id" json:"plan"`
	MealType      MealType `db:"meal_type" json:"meal_type"`
	ScheduledTime string   `db:"scheduled_time" json:"scheduled_time"`
	Description   *string  `db:"description" json:"description,omitempty"`
	IsPreWorkout  bool     `db:"is_pre_workout" json:"is_pre_workout"`
	IsPostWorkout bool     `db:"is_post_workout" json:"is_post_workout"`
	SortOrder     int      `db:"sort_order" json:"sort_order"`
}

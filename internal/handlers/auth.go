package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"fitgrove/internal/metrics"
	"fitgrove/internal/models"
)

type AuthHandler struct {
	db        *sqlx.DB
	jwtSecret []byte
}

func NewAuthHandler(db *sqlx.DB, jwtSecret []byte) *AuthHandler {
	return &AuthHandler{db: db, jwtSecret: jwtSecret}
}

type signupRequest struct {
	Username    string           `json:"username"`
	Email       string           `json:"email"`
	Password    string           `json:"password"`
	UserType    *models.UserRole `json:"user_type"`
	Phone       *string          `json:"phone"`
	Bio         *string          `json:"bio"`
	DateOfBirth *models.Date     `json:"date_of_birth"`
	HeightCM    *float64         `json:"height_cm"`
}

type credentials struct {
	Username string `json:"username"` // username or email
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

const userColumns = `id, username, email, password_hash, user_type, coach_id, phone, bio, date_of_birth, height_cm, is_admin, created_at, updated_at`

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Username == "" || req.Email == "" || req.Password == "" {
		http.Error(w, "username, email and password required", http.StatusBadRequest)
		return
	}
	role := models.RoleNormal
	if req.UserType != nil {
		if !req.UserType.Valid() {
			http.Error(w, "user_type: must be normal or coach", http.StatusBadRequest)
			return
		}
		role = *req.UserType
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "could not hash password", http.StatusInternalServerError)
		return
	}

	var user models.User
	err = h.db.QueryRowx(`INSERT INTO users (username, email, password_hash, user_type, phone, bio, date_of_birth, height_cm)
	                       VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	                       RETURNING `+userColumns,
		req.Username, req.Email, string(hashed), role, req.Phone, req.Bio, req.DateOfBirth, req.HeightCM).StructScan(&user)
	if err != nil {
		if isUniqueViolation(err) {
			http.Error(w, "username or email already registered", http.StatusConflict)
			return
		}
		http.Error(w, "could not create user", http.StatusBadRequest)
		return
	}

	token, err := h.issueJWT(user.ID, user.UserType)
	if err != nil {
		http.Error(w, "could not issue token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponse{Token: token, User: user})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	metrics.AuthAttemptsTotal.Inc()
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	c.Username = strings.TrimSpace(c.Username)
	if c.Username == "" || c.Password == "" {
		http.Error(w, "username and password required", http.StatusBadRequest)
		return
	}

	var user models.User
	err := h.db.Get(&user, `SELECT `+userColumns+` FROM users WHERE username=$1 OR email=lower($1)`, c.Username)
	if err != nil {
		if err == sql.ErrNoRows {
			metrics.AuthFailuresTotal.Inc()
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(c.Password)) != nil {
		metrics.AuthFailuresTotal.Inc()
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	token, err := h.issueJWT(user.ID, user.UserType)
	if err != nil {
		http.Error(w, "could not issue token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token, User: user})
}

func (h *AuthHandler) issueJWT(userID int, role models.UserRole) (string, error) {
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": string(role),
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
		"iat":  time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.jwtSecret)
}

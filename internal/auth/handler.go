package auth

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler exposes signup and login over HTTP.
type Handler struct {
	repo   Repository
	issuer *TokenIssuer
}

// NewHandler creates the auth handler.
func NewHandler(repo Repository, issuer *TokenIssuer) *Handler {
	return &Handler{repo: repo, issuer: issuer}
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	User        userInfo `json:"user"`
}

type userInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}
	if req.Role != RoleDoctor && req.Role != RolePatient {
		http.Error(w, "Role must be doctor or patient", http.StatusBadRequest)
		return
	}

	if _, err := h.repo.FindByEmail(r.Context(), req.Email); err == nil {
		http.Error(w, "Email already registered", http.StatusBadRequest)
		return
	}

	hashed, err := HashPassword(req.Password)
	if err != nil {
		zap.L().Error("password hash failed", zap.Error(err))
		http.Error(w, "Signup failed", http.StatusInternalServerError)
		return
	}

	user := &User{Email: req.Email, HashedPassword: hashed, Role: req.Role}
	if err := h.repo.Create(r.Context(), user); err != nil {
		zap.L().Error("user insert failed", zap.Error(err))
		http.Error(w, "Signup failed", http.StatusInternalServerError)
		return
	}

	h.respondWithToken(w, user)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	user, err := h.repo.FindByEmail(r.Context(), req.Email)
	if err != nil || !VerifyPassword(req.Password, user.HashedPassword) {
		http.Error(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	h.respondWithToken(w, user)
}

func (h *Handler) respondWithToken(w http.ResponseWriter, user *User) {
	token, err := h.issuer.Issue(user.ID, user.Email, user.Role, time.Now())
	if err != nil {
		zap.L().Error("token issue failed", zap.Error(err))
		http.Error(w, "Login failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(authResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        userInfo{ID: user.ID, Email: user.Email, Role: user.Role},
	})
}

// RegisterRoutes mounts the auth endpoints.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/auth/signup", h.Signup)
	r.Post("/auth/login", h.Login)
}

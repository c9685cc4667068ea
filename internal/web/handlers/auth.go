package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/viewlulu/pouch-backend/internal/auth"
	"github.com/viewlulu/pouch-backend/internal/catalog"
)

// AuthHandler handles registration and login endpoints.
type AuthHandler struct {
	auth *auth.Service
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{auth: authService}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	user, err := h.auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrInvalidInput):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, catalog.ErrDuplicateEmail):
			respondError(w, http.StatusConflict, "email already registered")
		default:
			log.Printf("register failed: %v", err)
			respondError(w, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"id":    user.ID,
		"email": user.Email,
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, catalog.ErrUnauthorized) {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		log.Printf("login failed for %s: %v", sanitizeForLog(req.Email), err)
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

package auth

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"tablebook/middleware"
	"tablebook/models"
	"tablebook/store"
	"tablebook/utils"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/crypto/bcrypt"
)

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32,alphanum"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Email    string `json:"email" validate:"omitempty,email"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// POST /api/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req registerRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if err := h.validate.Struct(req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Username must be 3-32 letters or digits and password at least 8 characters")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	log.Printf("Registering user: %s", req.Username)

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Failed to hash password for user %s: %v", req.Username, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	user := &models.User{
		UserID:    "u" + strings.ReplaceAll(utils.GetUUID(), "-", ""),
		Username:  req.Username,
		Email:     req.Email,
		Password:  string(hashedPassword),
		Role:      []string{"user"},
		CreatedAt: time.Now().UTC(),
	}
	if err := h.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			utils.RespondWithError(w, http.StatusConflict, "User already exists")
			return
		}
		log.Printf("Failed to register user %s: %v", req.Username, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"message": "Registration successful",
		"userid":  user.UserID,
	})
}

// POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req loginRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	storedUser, err := h.users.FindUserByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if !errors.Is(err, store.ErrNoDocument) {
			log.Printf("Login lookup for %s failed: %v", req.Username, err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	// Check password
	if err := bcrypt.CompareHashAndPassword([]byte(storedUser.Password), []byte(req.Password)); err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	token, err := middleware.NewToken(storedUser.UserID, storedUser.Username, storedUser.Role, h.tokenTTL)
	if err != nil {
		log.Printf("Failed to sign token for %s: %v", storedUser.UserID, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"message": "Login successful",
		"token":   token,
		"userid":  storedUser.UserID,
	})
}

// GET /api/auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, err := h.users.FindUserByID(ctx, utils.GetUserIDFromRequest(r))
	if err != nil {
		if errors.Is(err, store.ErrNoDocument) {
			utils.RespondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("Profile lookup failed: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, user)
}

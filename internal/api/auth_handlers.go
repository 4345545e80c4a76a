package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"hr-admin-api/internal/auth"
	"hr-admin-api/internal/database"
	"hr-admin-api/internal/models"

	"github.com/google/uuid"
)

type RegisterRequest struct {
	Username  string `json:"username" example:"alice"`
	Email     string `json:"email" example:"alice@example.com"`
	Password  string `json:"password" example:"secret1"`
	Role      string `json:"role" example:"user"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type UserResponse struct {
	ID       uuid.UUID   `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Role     models.Role `json:"role"`
}

// @Summary      Register a new account
// @Description  Creates an account and returns a bearer token for it. The password is stored only as a bcrypt hash.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        registerRequest  body      RegisterRequest  true  "Account details"
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string "Missing field or unknown role"
// @Failure      409  {object}  map[string]string "Username or email taken"
// @Router       /auth/register [post]
func (s *Server) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" || req.Role == "" {
		respondError(w, http.StatusBadRequest, "Username, email, password, and role are required")
		return
	}

	role, err := models.ParseRole(req.Role)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Role must be one of admin, user, viewer")
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("ERROR: failed to hash password: %v", err)
		respondError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	user, err := s.store.CreateUser(r.Context(), database.CreateUserParams{
		ID:           uuid.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashedPassword,
		Role:         role,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
	})
	if err != nil {
		if err == database.ErrUserExists {
			respondError(w, http.StatusConflict, "User already exists")
			return
		}
		log.Printf("ERROR: failed to create user: %v", err)
		respondError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	token, err := auth.GenerateJWT(user, s.config.JWT.Secret)
	if err != nil {
		log.Printf("ERROR: failed to generate token: %v", err)
		respondError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
		"user": UserResponse{
			ID:       user.ID,
			Username: user.Username,
			Email:    user.Email,
			Role:     user.Role,
		},
		"token": token,
	})
}

type LoginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail" example:"alice"`
	Password        string `json:"password" example:"secret1"`
}

type LoginResponse struct {
	Token    string      `json:"token"`
	Role     models.Role `json:"role"`
	Username string      `json:"username"`
}

// @Summary      Log a user in
// @Description  Accepts a username or an email. Unknown identity and wrong password return the same generic rejection.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        loginRequest  body      LoginRequest  true  "Login credentials"
// @Success      200  {object}  LoginResponse
// @Failure      400  {object}  map[string]string "Invalid credentials"
// @Router       /auth/login [post]
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.UsernameOrEmail == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Username/Email and Password are required")
		return
	}

	user, err := s.store.GetUserByUsernameOrEmail(r.Context(), req.UsernameOrEmail)
	if err != nil {
		log.Printf("ERROR: login lookup failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		respondError(w, http.StatusBadRequest, "Invalid credentials")
		return
	}

	token, err := auth.GenerateJWT(user, s.config.JWT.Secret)
	if err != nil {
		log.Printf("ERROR: failed to generate token: %v", err)
		respondError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	respondJSON(w, http.StatusOK, LoginResponse{
		Token:    token,
		Role:     user.Role,
		Username: user.Username,
	})
}

type ForgotPasswordRequest struct {
	Email string `json:"email" example:"alice@example.com"`
}

// @Summary      Request a password reset
// @Description  Issues a single-use reset token valid for 15 minutes and mails a recovery link to the account's address.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        forgotPasswordRequest  body      ForgotPasswordRequest  true  "Account email"
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  map[string]string "Unknown email"
// @Router       /auth/forgot-password [post]
func (s *Server) ForgotPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		log.Printf("ERROR: forgot-password lookup failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}

	token, err := auth.NewResetToken()
	if err != nil {
		log.Printf("ERROR: failed to generate reset token: %v", err)
		respondError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	expiry := time.Now().Add(auth.ResetTokenTTL)
	if err := s.store.SetResetToken(r.Context(), user.ID, token, expiry); err != nil {
		log.Printf("ERROR: failed to persist reset token: %v", err)
		respondError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	resetLink := fmt.Sprintf("%s/reset-password/%s", s.config.Origin, token)
	body := fmt.Sprintf(`Click <a href="%s">here</a> to reset your password.`, resetLink)
	if err := s.mailer.Send(user.Email, "Reset Your Password", body); err != nil {
		// The token is already live; mail delivery is not retried.
		log.Printf("ERROR: failed to send reset email to %s: %v", user.Email, err)
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Password reset link sent"})
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// @Summary      Redeem a password reset token
// @Description  A wrong token and an expired token are indistinguishable to the caller. A redeemed token cannot be reused.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        resetPasswordRequest  body      ResetPasswordRequest  true  "Token and new password"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string "Invalid or expired token"
// @Router       /auth/reset-password [post]
func (s *Server) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Token == "" || req.NewPassword == "" {
		respondError(w, http.StatusBadRequest, "Token and new password are required")
		return
	}

	hashedPassword, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		log.Printf("ERROR: failed to hash password: %v", err)
		respondError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	ok, err := s.store.ConsumeResetToken(r.Context(), req.Token, hashedPassword)
	if err != nil {
		log.Printf("ERROR: failed to consume reset token: %v", err)
		respondError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid or expired token")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Password has been reset"})
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	UsernameOrEmail string `json:"usernameOrEmail"`
}

// @Summary      Change password
// @Description  Requires a valid bearer token and re-verification of the current password.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        changePasswordRequest  body      ChangePasswordRequest  true  "Current and new password"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string "Incorrect current password"
// @Failure      401  {object}  map[string]string "Missing or invalid token"
// @Failure      404  {object}  map[string]string "Unknown user"
// @Security     BearerAuth
// @Router       /auth/change-password [post]
func (s *Server) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.CurrentPassword == "" || req.NewPassword == "" || req.UsernameOrEmail == "" {
		respondError(w, http.StatusBadRequest, "Current password, new password, and username/email are required")
		return
	}

	user, err := s.store.GetUserByUsernameOrEmail(r.Context(), req.UsernameOrEmail)
	if err != nil {
		log.Printf("ERROR: change-password lookup failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}

	if !auth.CheckPasswordHash(req.CurrentPassword, user.PasswordHash) {
		respondError(w, http.StatusBadRequest, "Incorrect current password")
		return
	}

	hashedPassword, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		log.Printf("ERROR: failed to hash password: %v", err)
		respondError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	if err := s.store.UpdatePassword(r.Context(), user.ID, hashedPassword); err != nil {
		log.Printf("ERROR: failed to update password for %s: %v", user.Username, err)
		respondError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"hr-admin-api/internal/auth"
	"hr-admin-api/internal/database"
	"hr-admin-api/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// @Summary      Get a user's role
// @Tags         users
// @Produce      json
// @Param        username  path  string  true  "Username or email"
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Security     BearerAuth
// @Router       /users/role/{username} [get]
func (s *Server) GetUserRoleHandler(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	user, err := s.store.GetUserByUsernameOrEmail(r.Context(), username)
	if err != nil {
		log.Printf("ERROR: role lookup failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]models.Role{"role": user.Role})
}

// @Summary      Get a user by username or email
// @Tags         users
// @Produce      json
// @Param        username  path  string  true  "Username or email"
// @Success      200  {object}  map[string]models.User
// @Failure      404  {object}  map[string]string
// @Router       /users/get-user/{username} [get]
func (s *Server) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	user, err := s.store.GetUserByUsernameOrEmail(r.Context(), username)
	if err != nil {
		log.Printf("ERROR: user lookup failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]*models.User{"user": user})
}

type UserListEntry struct {
	UserID  uuid.UUID   `json:"user_id"`
	Name    string      `json:"name"`
	Email   string      `json:"email"`
	Role    models.Role `json:"role"`
	Avatar  string      `json:"avatar"`
	Plan    string      `json:"plan"`
	Billing string      `json:"billing"`
	Status  string      `json:"status"`
}

// @Summary      List all users
// @Description  Admin view of every account, shaped for the users table in the admin panel.
// @Tags         users
// @Produce      json
// @Success      200  {object}  map[string][]UserListEntry
// @Security     BearerAuth
// @Router       /users/get-all-user [get]
func (s *Server) GetAllUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		log.Printf("ERROR: failed to list users: %v", err)
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}

	entries := make([]UserListEntry, 0, len(users))
	for _, user := range users {
		status := "Inactive"
		switch user.Role {
		case models.RoleAdmin:
			status = "Active"
		case models.RoleViewer:
			status = "Pending"
		}
		entries = append(entries, UserListEntry{
			UserID:  user.ID,
			Name:    fmt.Sprintf("%s %s", user.FirstName, user.LastName),
			Email:   user.Email,
			Role:    user.Role,
			Avatar:  user.Avatar,
			Plan:    "Enterprise",
			Billing: "Auto Debit",
			Status:  status,
		})
	}

	respondJSON(w, http.StatusOK, map[string][]UserListEntry{"users": entries})
}

type UserProfile struct {
	ID        uuid.UUID   `json:"id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Avatar    string      `json:"avatar"`
	Active    bool        `json:"active"`
}

// @Summary      Get user details by ID
// @Tags         users
// @Produce      json
// @Param        user_id  path  string  true  "User ID"
// @Success      200  {object}  map[string]UserProfile
// @Failure      400  {object}  map[string]string "Malformed ID"
// @Failure      404  {object}  map[string]string
// @Security     BearerAuth
// @Router       /users/get-user-details/{user_id} [get]
func (s *Server) GetUserDetailsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	user, err := s.store.GetUserByID(r.Context(), userID)
	if err != nil {
		log.Printf("ERROR: user detail lookup failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}

	avatar := user.Avatar
	if avatar == "" {
		avatar = fmt.Sprintf("https://ui-avatars.com/api/?name=%s+%s", user.FirstName, user.LastName)
	}

	respondJSON(w, http.StatusOK, map[string]UserProfile{"user": {
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      user.Role,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Avatar:    avatar,
		Active:    user.Active,
	}})
}

type CreateUserRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	Avatar    string `json:"avatar"`
}

// @Summary      Administratively create a user
// @Description  Generates a default password, stores only its hash and emails the credentials to the new user.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        createUserRequest  body      CreateUserRequest  true  "New user"
// @Success      201  {object}  map[string]interface{}
// @Failure      409  {object}  map[string]string "Username or email taken"
// @Security     BearerAuth
// @Router       /users/create-user [post]
func (s *Server) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Username == "" || req.Email == "" || req.FirstName == "" || req.LastName == "" {
		respondError(w, http.StatusBadRequest, "All required fields must be filled.")
		return
	}

	role := models.RoleUser
	if req.Role != "" {
		parsed, err := models.ParseRole(req.Role)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Role must be one of admin, user, viewer")
			return
		}
		role = parsed
	}

	userID := uuid.New()
	idStr := userID.String()
	defaultPassword := req.Username + idStr[len(idStr)-6:]

	hashedPassword, err := auth.HashPassword(defaultPassword)
	if err != nil {
		log.Printf("ERROR: failed to hash default password: %v", err)
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}

	user, err := s.store.CreateUser(r.Context(), database.CreateUserParams{
		ID:           userID,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashedPassword,
		Role:         role,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Avatar:       req.Avatar,
	})
	if err != nil {
		if err == database.ErrUserExists {
			respondError(w, http.StatusConflict, "Username or email already exists.")
			return
		}
		log.Printf("ERROR: failed to create user: %v", err)
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}

	subject := "Welcome to the platform - Your login credentials"
	body := fmt.Sprintf(`
		<p>Hello %s,</p>
		<p>Your account has been created successfully. Here are your credentials:</p>
		<ul>
			<li><strong>Username:</strong> %s</li>
			<li><strong>Password:</strong> %s</li>
		</ul>
		<p>Please change your password after logging in.</p>
	`, req.FirstName, req.Username, defaultPassword)
	if err := s.mailer.Send(req.Email, subject, body); err != nil {
		log.Printf("ERROR: failed to send credentials email to %s: %v", req.Email, err)
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"message": "User account created successfully. Password has been sent to the email.",
		"user": UserProfile{
			ID:        user.ID,
			Username:  user.Username,
			Email:     user.Email,
			Role:      user.Role,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Avatar:    user.Avatar,
		},
	})
}

type ChangeUserDetailsRequest struct {
	UserID    uuid.UUID `json:"user_id"`
	Username  *string   `json:"username"`
	FirstName *string   `json:"first_name"`
	LastName  *string   `json:"last_name"`
	Role      *string   `json:"role"`
	Active    *bool     `json:"active"`
	Avatar    *string   `json:"avatar"`
}

// @Summary      Update a user by ID
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        changeUserDetailsRequest  body      ChangeUserDetailsRequest  true  "Fields to change"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Security     BearerAuth
// @Router       /users/change-info [put]
func (s *Server) ChangeUserDetailsHandler(w http.ResponseWriter, r *http.Request) {
	var req ChangeUserDetailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == uuid.Nil {
		respondError(w, http.StatusBadRequest, "User ID is required.")
		return
	}

	var role *models.Role
	if req.Role != nil {
		parsed, err := models.ParseRole(*req.Role)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Role must be one of admin, user, viewer")
			return
		}
		role = &parsed
	}

	user, err := s.store.UpdateUserInfo(r.Context(), database.UpdateUserParams{
		ID:        req.UserID,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      role,
		Active:    req.Active,
		Avatar:    req.Avatar,
	})
	if err != nil {
		if err == database.ErrUserExists {
			respondError(w, http.StatusConflict, "Username or email already exists.")
			return
		}
		log.Printf("ERROR: failed to update user %s: %v", req.UserID, err)
		respondError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "User not found.")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "User info updated successfully.",
		"user":    user,
	})
}

type ChangeAccountRequest struct {
	UsernameOrEmail string  `json:"usernameOrEmail"`
	FirstName       *string `json:"first_name"`
	LastName        *string `json:"last_name"`
	Role            *string `json:"role"`
	Avatar          *string `json:"avatar"`
}

// @Summary      Update an account by username or email
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        changeAccountRequest  body      ChangeAccountRequest  true  "Fields to change"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Router       /users/change-account [post]
func (s *Server) ChangeAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req ChangeAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UsernameOrEmail == "" {
		respondError(w, http.StatusBadRequest, "usernameOrEmail is required")
		return
	}

	existing, err := s.store.GetUserByUsernameOrEmail(r.Context(), req.UsernameOrEmail)
	if err != nil {
		log.Printf("ERROR: account lookup failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if existing == nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}

	// An unknown role value is ignored here rather than rejected, matching
	// the partial-update contract of this endpoint.
	var role *models.Role
	if req.Role != nil {
		if parsed, err := models.ParseRole(*req.Role); err == nil {
			role = &parsed
		}
	}

	user, err := s.store.UpdateUserInfo(r.Context(), database.UpdateUserParams{
		ID:        existing.ID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      role,
		Avatar:    req.Avatar,
	})
	if err != nil {
		log.Printf("ERROR: failed to update account %s: %v", existing.Username, err)
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "User info updated successfully",
		"user":    user,
	})
}

type DeleteAccountRequest struct {
	UserID uuid.UUID `json:"user_id"`
}

// @Summary      Delete a user account
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        deleteAccountRequest  body      DeleteAccountRequest  true  "User to delete"
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Security     BearerAuth
// @Router       /users/delete-account [delete]
func (s *Server) DeleteAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req DeleteAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == uuid.Nil {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	deleted, err := s.store.DeleteUser(r.Context(), req.UserID)
	if err != nil {
		log.Printf("ERROR: failed to delete user %s: %v", req.UserID, err)
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if !deleted {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "User account deleted successfully"})
}

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"hr-admin-api/internal/auth"
	"hr-admin-api/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func userRouter() chi.Router {
	r := chi.NewRouter()
	r.Get("/api/users/role/{username}", testServer.GetUserRoleHandler)
	r.Get("/api/users/get-user/{username}", testServer.GetUserHandler)
	r.Get("/api/users/get-user-details/{user_id}", testServer.GetUserDetailsHandler)
	return r
}

func TestGetUserRole(t *testing.T) {
	registerUser(t, "role_lookup", "secret1", "viewer")

	rr := httptest.NewRecorder()
	userRouter().ServeHTTP(rr, httptest.NewRequest("GET", "/api/users/role/role_lookup", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"role":"viewer"}`, rr.Body.String())

	// Email works as the identifier too.
	rr = httptest.NewRecorder()
	userRouter().ServeHTTP(rr, httptest.NewRequest("GET", "/api/users/role/role_lookup@example.com", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	userRouter().ServeHTTP(rr, httptest.NewRequest("GET", "/api/users/role/unknown_person", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetUser_OmitsSensitiveFields(t *testing.T) {
	registerUser(t, "sanitized_user", "secret1", "user")

	rr := httptest.NewRecorder()
	userRouter().ServeHTTP(rr, httptest.NewRequest("GET", "/api/users/get-user/sanitized_user", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotContains(t, resp["user"], "password_hash")
	require.NotContains(t, resp["user"], "reset_token")
	require.Equal(t, "sanitized_user", resp["user"]["username"])
}

func TestGetUserDetails(t *testing.T) {
	registerUser(t, "details_user", "secret1", "user")
	stored, err := testServer.store.GetUserByUsername(context.Background(), "details_user")
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	userRouter().ServeHTTP(rr, httptest.NewRequest("GET", "/api/users/get-user-details/"+stored.ID.String(), nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]UserProfile
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, stored.ID, resp["user"].ID)
	require.Contains(t, resp["user"].Avatar, "ui-avatars.com", "Empty avatar falls back to a generated one")

	rr = httptest.NewRecorder()
	userRouter().ServeHTTP(rr, httptest.NewRequest("GET", "/api/users/get-user-details/not-a-uuid", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	userRouter().ServeHTTP(rr, httptest.NewRequest("GET", "/api/users/get-user-details/"+uuid.NewString(), nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetAllUsers(t *testing.T) {
	registerUser(t, "list_admin", "secret1", "admin")
	registerUser(t, "list_viewer", "secret1", "viewer")

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/users/get-all-user", nil)
	http.HandlerFunc(testServer.GetAllUsersHandler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string][]UserListEntry
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	byEmail := map[string]UserListEntry{}
	for _, entry := range resp["users"] {
		byEmail[entry.Email] = entry
	}
	require.Equal(t, "Active", byEmail["list_admin@example.com"].Status)
	require.Equal(t, "Pending", byEmail["list_viewer@example.com"].Status)
	require.Equal(t, "Test User", byEmail["list_admin@example.com"].Name)
}

func TestCreateUser_DefaultPasswordEmailed(t *testing.T) {
	rr := postJSON(t, testServer.CreateUserHandler, CreateUserRequest{
		Username:  "provisioned",
		Email:     "provisioned@example.com",
		FirstName: "Pro",
		LastName:  "Visioned",
		Role:      "user",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	stored, err := testServer.store.GetUserByUsername(context.Background(), "provisioned")
	require.NoError(t, err)
	require.NotNil(t, stored)

	idStr := stored.ID.String()
	defaultPassword := "provisioned" + idStr[len(idStr)-6:]
	require.True(t, auth.CheckPasswordHash(defaultPassword, stored.PasswordHash),
		"The stored hash matches the generated default password")

	mail := testMailer.last()
	require.NotNil(t, mail)
	require.Equal(t, "provisioned@example.com", mail.To)
	require.Contains(t, mail.Body, defaultPassword)
	require.NotContains(t, rr.Body.String(), defaultPassword, "The response never carries the password")
}

func TestCreateUser_MissingFields(t *testing.T) {
	rr := postJSON(t, testServer.CreateUserHandler, CreateUserRequest{Username: "half_done"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateUser_Duplicate(t *testing.T) {
	payload := CreateUserRequest{
		Username:  "dup_provisioned",
		Email:     "dup_provisioned@example.com",
		FirstName: "Dup",
		LastName:  "User",
	}
	rr := postJSON(t, testServer.CreateUserHandler, payload)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = postJSON(t, testServer.CreateUserHandler, payload)
	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestChangeUserDetails(t *testing.T) {
	registerUser(t, "mutable_user", "secret1", "user")
	stored, err := testServer.store.GetUserByUsername(context.Background(), "mutable_user")
	require.NoError(t, err)

	role := "viewer"
	active := true
	rr := postJSON(t, testServer.ChangeUserDetailsHandler, ChangeUserDetailsRequest{
		UserID: stored.ID,
		Role:   &role,
		Active: &active,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	updated, err := testServer.store.GetUserByID(context.Background(), stored.ID)
	require.NoError(t, err)
	require.Equal(t, models.RoleViewer, updated.Role)
	require.True(t, updated.Active)
	require.Equal(t, "mutable_user", updated.Username, "Fields not in the patch are unchanged")
}

func TestChangeUserDetails_RejectsUnknownRole(t *testing.T) {
	registerUser(t, "strict_role_user", "secret1", "user")
	stored, err := testServer.store.GetUserByUsername(context.Background(), "strict_role_user")
	require.NoError(t, err)

	role := "owner"
	rr := postJSON(t, testServer.ChangeUserDetailsHandler, ChangeUserDetailsRequest{
		UserID: stored.ID,
		Role:   &role,
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	unchanged, err := testServer.store.GetUserByID(context.Background(), stored.ID)
	require.NoError(t, err)
	require.Equal(t, models.RoleUser, unchanged.Role)
}

func TestChangeAccount_IgnoresUnknownRole(t *testing.T) {
	registerUser(t, "lenient_role_user", "secret1", "user")

	role := "owner"
	first := "Renamed"
	rr := postJSON(t, testServer.ChangeAccountHandler, ChangeAccountRequest{
		UsernameOrEmail: "lenient_role_user",
		Role:            &role,
		FirstName:       &first,
	})
	require.Equal(t, http.StatusOK, rr.Code)

	updated, err := testServer.store.GetUserByUsername(context.Background(), "lenient_role_user")
	require.NoError(t, err)
	require.Equal(t, models.RoleUser, updated.Role, "An unparseable role is ignored, not applied")
	require.Equal(t, "Renamed", updated.FirstName)
}

func TestDeleteAccount(t *testing.T) {
	registerUser(t, "doomed_user", "secret1", "user")
	stored, err := testServer.store.GetUserByUsername(context.Background(), "doomed_user")
	require.NoError(t, err)

	rr := postJSON(t, testServer.DeleteAccountHandler, DeleteAccountRequest{UserID: stored.ID})
	require.Equal(t, http.StatusOK, rr.Code)

	gone, err := testServer.store.GetUserByID(context.Background(), stored.ID)
	require.NoError(t, err)
	require.Nil(t, gone)

	rr = postJSON(t, testServer.DeleteAccountHandler, DeleteAccountRequest{UserID: stored.ID})
	require.Equal(t, http.StatusNotFound, rr.Code)
}

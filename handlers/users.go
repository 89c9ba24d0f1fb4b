// Copyright (c) 2025 the tischrunde authors.
// MIT License; see LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tischrunde/tischrunde/auth"
	"github.com/tischrunde/tischrunde/cliparse"
	"github.com/tischrunde/tischrunde/middleware"
	"github.com/tischrunde/tischrunde/models"
)

type UserHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewUserHandler(db *sql.DB, cfg cliparse.Config) *UserHandler {
	return &UserHandler{db: db, cfg: cfg}
}

// Register handles POST /auth/register
// The caller has already authenticated against the identity provider; the
// bearer token proves ownership of the provider uid. The very first account
// bootstraps as an approved admin, everyone after that waits for approval.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	bearer := middleware.BearerToken(r)
	if bearer == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Authorization header required")
		return
	}
	providerUID, err := auth.ParseSubject(bearer, h.cfg.TokenSecret)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	var req models.RegisterRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if len(req.Username) < 2 || len(req.Username) > 50 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "username must be 2-50 characters")
		return
	}
	if req.Email == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "email is required")
		return
	}

	var exists bool
	err = h.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE provider_uid = $1)`, providerUID).Scan(&exists)
	if err != nil {
		slog.Error("failed to check existing account", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if exists {
		middleware.ErrorResponse(w, http.StatusConflict, "Account already registered")
		return
	}

	// Count and insert in one transaction so two racing first registrations
	// cannot both observe an empty table and bootstrap as admin.
	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	var userCount int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&userCount); err != nil {
		slog.Error("failed to count users", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	// First account becomes the admin so someone can approve everyone else.
	isFirst := userCount == 0

	user := models.User{
		ID:          uuid.NewString(),
		ProviderUID: providerUID,
		Username:    req.Username,
		Email:       req.Email,
		FullName:    nullable(req.FullName),
		IsAdmin:     isFirst,
		IsApproved:  isFirst,
		CreatedAt:   time.Now(),
	}

	_, err = tx.Exec(`
		INSERT INTO users (id, provider_uid, username, email, full_name, is_admin, is_approved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, user.ID, user.ProviderUID, user.Username, user.Email, user.FullName,
		user.IsAdmin, user.IsApproved, user.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			middleware.ErrorResponse(w, http.StatusConflict, "Username or email already taken")
			return
		}
		slog.Error("failed to insert user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	slog.Info("user registered", "user_id", user.ID, "username", user.Username, "approved", user.IsApproved)

	middleware.JSONResponse(w, http.StatusCreated, user)
}

// Me handles GET /me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	middleware.JSONResponse(w, http.StatusOK, middleware.CurrentUser(r))
}

// UpdateMe handles PUT /me
// Profile fields only; handle, email and approval state are not editable
// here. An empty full_name or bio clears the field, a missing profile_pic
// keeps the current picture.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r)

	var req models.UpdateProfileRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	_, err := h.db.Exec(`
		UPDATE users
		SET full_name = $1, bio = $2, profile_pic = COALESCE($3, profile_pic)
		WHERE id = $4
	`, nullable(req.FullName), nullable(req.Bio), nullable(req.ProfilePic), user.ID)
	if err != nil {
		slog.Error("failed to update profile", "error", err, "user_id", user.ID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	updated, err := h.loadUser(user.ID)
	if err != nil {
		slog.Error("failed to reload user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	slog.Info("profile updated", "user_id", user.ID)
	middleware.JSONResponse(w, http.StatusOK, updated)
}

func (h *UserHandler) loadUser(userID string) (models.User, error) {
	var u models.User
	err := h.db.QueryRow(`
		SELECT id, provider_uid, username, email, full_name, bio, profile_pic,
		       is_admin, is_approved, created_at, last_login
		FROM users WHERE id = $1
	`, userID).Scan(&u.ID, &u.ProviderUID, &u.Username, &u.Email, &u.FullName,
		&u.Bio, &u.ProfilePic, &u.IsAdmin, &u.IsApproved, &u.CreatedAt, &u.LastLogin)
	return u, err
}

func requireAdmin(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user := middleware.CurrentUser(r)
	if !user.IsAdmin {
		middleware.ErrorResponse(w, http.StatusForbidden, "Admin only")
		return user, false
	}
	return user, true
}

// PendingUsers handles GET /admin/users/pending
func (h *UserHandler) PendingUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	rows, err := h.db.Query(`
		SELECT id, provider_uid, username, email, full_name, bio, profile_pic,
		       is_admin, is_approved, created_at, last_login
		FROM users
		WHERE is_approved = FALSE
		ORDER BY created_at
	`)
	if err != nil {
		slog.Error("failed to query pending users", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.ProviderUID, &u.Username, &u.Email, &u.FullName,
			&u.Bio, &u.ProfilePic, &u.IsAdmin, &u.IsApproved, &u.CreatedAt, &u.LastLogin); err != nil {
			slog.Error("failed to scan user", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		users = append(users, u)
	}

	middleware.JSONResponse(w, http.StatusOK, users)
}

// Approve handles POST /admin/users/{id}/approve
func (h *UserHandler) Approve(w http.ResponseWriter, r *http.Request) {
	admin, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	userID := r.PathValue("id")
	res, err := h.db.Exec(`UPDATE users SET is_approved = TRUE WHERE id = $1`, userID)
	if err != nil {
		slog.Error("failed to approve user", "error", err, "user_id", userID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "User not found")
		return
	}

	slog.Info("user approved", "user_id", userID, "by", admin.ID)
	middleware.JSONResponse(w, http.StatusOK, map[string]bool{"approved": true})
}

// Reject handles DELETE /admin/users/{id}
// Rejection destroys the pending account; approved accounts cannot be
// removed this way.
func (h *UserHandler) Reject(w http.ResponseWriter, r *http.Request) {
	admin, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	userID := r.PathValue("id")

	var approved bool
	err := h.db.QueryRow(`SELECT is_approved FROM users WHERE id = $1`, userID).Scan(&approved)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		slog.Error("failed to query user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if approved {
		middleware.ErrorResponse(w, http.StatusConflict, "Cannot reject an approved account")
		return
	}

	if _, err := h.db.Exec(`DELETE FROM users WHERE id = $1`, userID); err != nil {
		slog.Error("failed to delete user", "error", err, "user_id", userID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	slog.Info("user rejected", "user_id", userID, "by", admin.ID)
	w.WriteHeader(http.StatusNoContent)
}

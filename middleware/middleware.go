// Copyright (c) 2025 the tischrunde authors.
// MIT License; see LICENSE.

package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tischrunde/tischrunde/auth"
	"github.com/tischrunde/tischrunde/models"
)

type contextKey string

const userContextKey contextKey = "currentUser"

// WithLogging wraps a handler with request logging
func WithLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		slog.Info("request started",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
		)

		next(w, r)

		duration := time.Since(start)
		slog.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", duration.Milliseconds(),
		)
	}
}

// RequireUser resolves the Authorization bearer token to an account row and
// stores it in the request context. Requests without a valid token get 401;
// accounts still waiting for admin approval get 403.
func RequireUser(db *sql.DB, tokenSecret string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bearer := BearerToken(r)
		if bearer == "" {
			ErrorResponse(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		sub, err := auth.ParseSubject(bearer, tokenSecret)
		if err != nil {
			ErrorResponse(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		var u models.User
		err = db.QueryRow(`
			SELECT id, provider_uid, username, email, full_name, bio, profile_pic,
			       is_admin, is_approved, created_at, last_login
			FROM users WHERE provider_uid = $1
		`, sub).Scan(
			&u.ID, &u.ProviderUID, &u.Username, &u.Email, &u.FullName, &u.Bio,
			&u.ProfilePic, &u.IsAdmin, &u.IsApproved, &u.CreatedAt, &u.LastLogin,
		)
		if err == sql.ErrNoRows {
			ErrorResponse(w, http.StatusUnauthorized, "Unknown account")
			return
		}
		if err != nil {
			slog.Error("failed to load current user", "error", err)
			ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}

		if !u.IsApproved && !u.IsAdmin {
			ErrorResponse(w, http.StatusForbidden, "Account pending approval")
			return
		}

		// Presence stamp, throttled to one write per minute per account.
		// A failed write never blocks the request.
		now := time.Now()
		if u.LastLogin == nil || now.Sub(*u.LastLogin) > time.Minute {
			if _, err := db.Exec(`UPDATE users SET last_login = $1 WHERE id = $2`, now, u.ID); err != nil {
				slog.Warn("failed to stamp last_login", "error", err, "user_id", u.ID)
			} else {
				u.LastLogin = &now
			}
		}

		next(w, WithUser(r, u))
	}
}

// WithUser returns a copy of the request with the account in its context,
// exactly as RequireUser stores it. Tests that call handlers directly use
// this instead of going through the token path.
func WithUser(r *http.Request, u models.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userContextKey, u))
}

// CurrentUser returns the account RequireUser stored in the context.
// Calling it outside a RequireUser-wrapped handler returns the zero User.
func CurrentUser(r *http.Request) models.User {
	u, _ := r.Context().Value(userContextKey).(models.User)
	return u
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return ""
}

// JSONResponse writes a JSON response
func JSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// ErrorResponse writes a JSON error response
func ErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	JSONResponse(w, statusCode, models.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}

// ParseJSONBody parses the request body into the given struct
func ParseJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return nil
}

// CORS middleware allows cross-origin requests from the frontend
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

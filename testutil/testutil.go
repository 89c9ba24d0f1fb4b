// Copyright (c) 2025 the tischrunde authors.
// MIT License; see LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/tischrunde/tischrunde/auth"
	"github.com/tischrunde/tischrunde/cliparse"
	"github.com/tischrunde/tischrunde/db"
	"github.com/tischrunde/tischrunde/models"
)

// TestTokenSecret signs the bearer tokens used in tests
const TestTokenSecret = "test-secret"

// SetupTestDB creates a fresh in-memory database with the full schema.
// Every test gets its own database; it disappears when the connection
// closes.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// A second connection would see an empty database.
	conn.SetMaxOpenConns(1)

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	t.Cleanup(func() { conn.Close() })

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:         3320,
		DatabaseURL:  ":memory:",
		DatabaseType: "sqlite",
		TokenSecret:  TestTokenSecret,
	}
}

// BearerFor returns an Authorization header map for the given provider uid
func BearerFor(t *testing.T, providerUID string) map[string]string {
	t.Helper()

	token, err := auth.SignToken(providerUID, TestTokenSecret, time.Hour)
	if err != nil {
		t.Fatalf("Failed to sign test token: %v", err)
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

// CreateTestUser creates an approved account. The provider uid is derived
// from the username so BearerFor can address it.
func CreateTestUser(t *testing.T, conn *sql.DB, username string) models.User {
	t.Helper()

	u := models.User{
		ID:          uuid.NewString(),
		ProviderUID: "prov-" + username,
		Username:    username,
		Email:       username + "@example.com",
		IsApproved:  true,
		CreatedAt:   time.Now(),
	}
	_, err := conn.Exec(`
		INSERT INTO users (id, provider_uid, username, email, is_admin, is_approved, created_at)
		VALUES ($1, $2, $3, $4, FALSE, TRUE, $5)
	`, u.ID, u.ProviderUID, u.Username, u.Email, u.CreatedAt)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return u
}

// CreateTestCampaign creates a campaign with the given DM and returns its ID
func CreateTestCampaign(t *testing.T, conn *sql.DB, dmID string) string {
	t.Helper()

	id := uuid.NewString()
	_, err := conn.Exec(`
		INSERT INTO campaign (id, name, game_system, dm_id, created_at)
		VALUES ($1, 'Test Campaign', 'D&D 5e', $2, $3)
	`, id, dmID, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test campaign: %v", err)
	}

	return id
}

// AddTestPlayer adds a user to a campaign's roster
func AddTestPlayer(t *testing.T, conn *sql.DB, campaignID, userID string) {
	t.Helper()

	_, err := conn.Exec(`
		INSERT INTO campaign_player (campaign_id, user_id, joined_at)
		VALUES ($1, $2, $3)
	`, campaignID, userID, time.Now())
	if err != nil {
		t.Fatalf("Failed to add test player: %v", err)
	}
}

// CreateTestSession creates a session at the given time and returns its ID
func CreateTestSession(t *testing.T, conn *sql.DB, campaignID, createdBy string, scheduledAt time.Time) string {
	t.Helper()

	id := uuid.NewString()
	_, err := conn.Exec(`
		INSERT INTO session (id, campaign_id, title, scheduled_at, created_by, created_at)
		VALUES ($1, $2, 'Test Session', $3, $4, $5)
	`, id, campaignID, scheduledAt, createdBy, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test session: %v", err)
	}

	return id
}

// CreateTestPoll creates an open scheduling poll and returns its ID
func CreateTestPoll(t *testing.T, conn *sql.DB, campaignID, createdBy string) string {
	t.Helper()

	id := uuid.NewString()
	_, err := conn.Exec(`
		INSERT INTO session_poll (id, campaign_id, title, is_closed, created_by, created_at)
		VALUES ($1, $2, 'Test Poll', FALSE, $3, $4)
	`, id, campaignID, createdBy, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}

	return id
}

// AddTestPollOption adds an option to a poll and returns the option ID
func AddTestPollOption(t *testing.T, conn *sql.DB, pollID string, scheduledAt time.Time) string {
	t.Helper()

	id := uuid.NewString()
	_, err := conn.Exec(`
		INSERT INTO poll_option (id, poll_id, scheduled_at)
		VALUES ($1, $2, $3)
	`, id, pollID, scheduledAt)
	if err != nil {
		t.Fatalf("Failed to create test poll option: %v", err)
	}

	return id
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}

// Copyright (c) 2025 the tischrunde authors.
// MIT License; see LICENSE.

package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tischrunde/tischrunde/middleware"
	"github.com/tischrunde/tischrunde/models"
	"github.com/tischrunde/tischrunde/testutil"
)

// TestConcurrentRSVPUpdates verifies that one member answering the same
// session repeatedly and concurrently ends up with exactly one response row
func TestConcurrentRSVPUpdates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewSessionHandler(db, cfg)

	dm := testutil.CreateTestUser(t, db, "dm")
	player := testutil.CreateTestUser(t, db, "player")
	campaignID := testutil.CreateTestCampaign(t, db, dm.ID)
	testutil.AddTestPlayer(t, db, campaignID, player.ID)
	sessionID := testutil.CreateTestSession(t, db, campaignID, dm.ID, time.Now().Add(24*time.Hour))

	responses := []string{"yes", "no", "maybe"}
	numUpdates := 9

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numUpdates; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			body := models.RSVPRequest{Response: responses[idx%len(responses)]}
			req := testutil.MakeRequest("POST", "/campaigns/"+campaignID+"/sessions/"+sessionID+"/rsvp", body, nil)
			req.SetPathValue("id", campaignID)
			req.SetPathValue("sid", sessionID)
			req = middleware.WithUser(req, player)
			w := httptest.NewRecorder()

			handler.RSVP(w, req)

			if w.Code == http.StatusOK {
				successCount.Add(1)
			}
		}(i)
	}

	wg.Wait()

	if int(successCount.Load()) != numUpdates {
		t.Errorf("Expected %d successful RSVPs, got %d", numUpdates, successCount.Load())
	}

	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM session_response WHERE session_id = $1 AND user_id = $2
	`, sessionID, player.ID).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to count responses: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 response row after concurrent updates, got %d", count)
	}
}

// TestConcurrentVoters verifies that distinct members voting simultaneously
// on the same option all land, one row each
func TestConcurrentVoters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewPollHandler(db, cfg)

	dm := testutil.CreateTestUser(t, db, "dm")
	campaignID := testutil.CreateTestCampaign(t, db, dm.ID)
	pollID := testutil.CreateTestPoll(t, db, campaignID, dm.ID)
	optionID := testutil.AddTestPollOption(t, db, pollID, time.Now().Add(24*time.Hour))

	numVoters := 8
	voters := make([]models.User, numVoters)
	for i := range voters {
		voters[i] = testutil.CreateTestUser(t, db, fmt.Sprintf("voter%d", i))
		testutil.AddTestPlayer(t, db, campaignID, voters[i].ID)
	}

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numVoters; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			body := models.VoteRequest{OptionID: optionID, Response: "yes"}
			req := testutil.MakeRequest("POST", "/campaigns/"+campaignID+"/polls/"+pollID+"/vote", body, nil)
			req.SetPathValue("id", campaignID)
			req.SetPathValue("pid", pollID)
			req = middleware.WithUser(req, voters[idx])
			w := httptest.NewRecorder()

			handler.Vote(w, req)

			if w.Code == http.StatusOK {
				successCount.Add(1)
			}
		}(i)
	}

	wg.Wait()

	if int(successCount.Load()) != numVoters {
		t.Errorf("Expected %d successful votes, got %d", numVoters, successCount.Load())
	}

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM poll_vote WHERE option_id = $1`, optionID).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to count votes: %v", err)
	}
	if count != numVoters {
		t.Errorf("Expected %d vote rows, got %d", numVoters, count)
	}
}

// TestConcurrentFinalize verifies that when several finalize requests race,
// exactly one wins and exactly one session is created
func TestConcurrentFinalize(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewPollHandler(db, cfg)

	dm := testutil.CreateTestUser(t, db, "dm")
	campaignID := testutil.CreateTestCampaign(t, db, dm.ID)
	pollID := testutil.CreateTestPoll(t, db, campaignID, dm.ID)
	optionID := testutil.AddTestPollOption(t, db, pollID, time.Now().Add(24*time.Hour))

	numAttempts := 4
	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numAttempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			body := models.FinalizePollRequest{OptionID: optionID}
			req := testutil.MakeRequest("POST", "/campaigns/"+campaignID+"/polls/"+pollID+"/finalize", body, nil)
			req.SetPathValue("id", campaignID)
			req.SetPathValue("pid", pollID)
			req = middleware.WithUser(req, dm)
			w := httptest.NewRecorder()

			handler.Finalize(w, req)

			if w.Code == http.StatusCreated {
				successCount.Add(1)
			}
		}()
	}

	wg.Wait()

	if successCount.Load() != 1 {
		t.Errorf("Expected exactly 1 successful finalize, got %d", successCount.Load())
	}

	var sessionCount int
	err := db.QueryRow(`SELECT COUNT(*) FROM session WHERE campaign_id = $1`, campaignID).Scan(&sessionCount)
	if err != nil {
		t.Fatalf("Failed to count sessions: %v", err)
	}
	if sessionCount != 1 {
		t.Errorf("Expected exactly 1 session, got %d", sessionCount)
	}

	var closed bool
	if err := db.QueryRow(`SELECT is_closed FROM session_poll WHERE id = $1`, pollID).Scan(&closed); err != nil {
		t.Fatalf("Failed to query poll: %v", err)
	}
	if !closed {
		t.Error("Expected poll to be closed")
	}
}

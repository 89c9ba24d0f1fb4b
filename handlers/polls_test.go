package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tischrunde/tischrunde/middleware"
	"github.com/tischrunde/tischrunde/models"
	"github.com/tischrunde/tischrunde/testutil"
)

func TestCreatePoll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewPollHandler(db, cfg)

	dm := testutil.CreateTestUser(t, db, "dm")
	player := testutil.CreateTestUser(t, db, "player")
	campaignID := testutil.CreateTestCampaign(t, db, dm.ID)
	testutil.AddTestPlayer(t, db, campaignID, player.ID)

	option := func(offset time.Duration) models.PollOptionInput {
		return models.PollOptionInput{ScheduledAt: time.Now().Add(offset)}
	}

	tests := []struct {
		name           string
		user           models.User
		body           models.CreatePollRequest
		expectedStatus int
	}{
		{
			name: "valid poll",
			user: dm,
			body: models.CreatePollRequest{
				Title:   "Next session?",
				Options: []models.PollOptionInput{option(24 * time.Hour), option(48 * time.Hour)},
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "no options",
			user:           dm,
			body:           models.CreatePollRequest{Title: "Empty"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "six options",
			user: dm,
			body: models.CreatePollRequest{
				Options: []models.PollOptionInput{
					option(1 * time.Hour), option(2 * time.Hour), option(3 * time.Hour),
					option(4 * time.Hour), option(5 * time.Hour), option(6 * time.Hour),
				},
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "option without date",
			user: dm,
			body: models.CreatePollRequest{
				Options: []models.PollOptionInput{{Location: "Somewhere"}},
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "player cannot create",
			user: player,
			body: models.CreatePollRequest{
				Options: []models.PollOptionInput{option(24 * time.Hour)},
			},
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/campaigns/"+campaignID+"/polls", tt.body, nil)
			req.SetPathValue("id", campaignID)
			req = middleware.WithUser(req, tt.user)
			w := httptest.NewRecorder()

			handler.Create(w, req)
			testutil.AssertStatus(t, w, tt.expectedStatus)

			if tt.expectedStatus == http.StatusCreated {
				var poll models.SessionPoll
				testutil.AssertJSON(t, w, &poll)
				if len(poll.Options) != len(tt.body.Options) {
					t.Errorf("Expected %d options, got %d", len(tt.body.Options), len(poll.Options))
				}
				if poll.IsClosed {
					t.Error("New poll should be open")
				}
			}
		})
	}
}

func TestVote(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewPollHandler(db, cfg)

	dm := testutil.CreateTestUser(t, db, "dm")
	player := testutil.CreateTestUser(t, db, "player")
	campaignID := testutil.CreateTestCampaign(t, db, dm.ID)
	testutil.AddTestPlayer(t, db, campaignID, player.ID)

	pollID := testutil.CreateTestPoll(t, db, campaignID, dm.ID)
	optionID := testutil.AddTestPollOption(t, db, pollID, time.Now().Add(24*time.Hour))

	otherPollID := testutil.CreateTestPoll(t, db, campaignID, dm.ID)
	foreignOption := testutil.AddTestPollOption(t, db, otherPollID, time.Now().Add(24*time.Hour))

	vote := func(user models.User, pollID, optionID, response string) *httptest.ResponseRecorder {
		req := testutil.MakeRequest("POST", "/campaigns/"+campaignID+"/polls/"+pollID+"/vote",
			models.VoteRequest{OptionID: optionID, Response: response}, nil)
		req.SetPathValue("id", campaignID)
		req.SetPathValue("pid", pollID)
		req = middleware.WithUser(req, user)
		w := httptest.NewRecorder()
		handler.Vote(w, req)
		return w
	}

	t.Run("valid vote", func(t *testing.T) {
		w := vote(player, pollID, optionID, "yes")
		testutil.AssertStatus(t, w, http.StatusOK)

		var resp models.VoteResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.OptionID != optionID || resp.MyResponse != "yes" {
			t.Errorf("Unexpected response: %+v", resp)
		}
		if len(resp.Yes) != 1 {
			t.Errorf("Expected one yes in the tally, got %+v", resp.Yes)
		}
	})

	t.Run("repeat vote overwrites", func(t *testing.T) {
		w := vote(player, pollID, optionID, "no")
		testutil.AssertStatus(t, w, http.StatusOK)

		var count int
		if err := db.QueryRow(`
			SELECT COUNT(*) FROM poll_vote WHERE option_id = $1 AND user_id = $2
		`, optionID, player.ID).Scan(&count); err != nil {
			t.Fatalf("Failed to count votes: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected a single vote row, got %d", count)
		}
	})

	t.Run("option from another poll", func(t *testing.T) {
		testutil.AssertStatus(t, vote(player, pollID, foreignOption, "yes"), http.StatusNotFound)
	})

	t.Run("invalid response", func(t *testing.T) {
		testutil.AssertStatus(t, vote(player, pollID, optionID, "absolutely"), http.StatusBadRequest)
	})

	t.Run("closed poll", func(t *testing.T) {
		if _, err := db.Exec(`UPDATE session_poll SET is_closed = TRUE WHERE id = $1`, pollID); err != nil {
			t.Fatalf("Failed to close poll: %v", err)
		}
		testutil.AssertStatus(t, vote(player, pollID, optionID, "yes"), http.StatusConflict)
	})
}

func TestFinalizePoll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewPollHandler(db, cfg)

	dm := testutil.CreateTestUser(t, db, "dm")
	player := testutil.CreateTestUser(t, db, "player")
	campaignID := testutil.CreateTestCampaign(t, db, dm.ID)
	testutil.AddTestPlayer(t, db, campaignID, player.ID)

	scheduledAt := time.Now().Add(72 * time.Hour)
	pollID := testutil.CreateTestPoll(t, db, campaignID, dm.ID)
	optionID := testutil.AddTestPollOption(t, db, pollID, scheduledAt)

	finalize := func(user models.User, optionID string) *httptest.ResponseRecorder {
		req := testutil.MakeRequest("POST", "/campaigns/"+campaignID+"/polls/"+pollID+"/finalize",
			models.FinalizePollRequest{OptionID: optionID}, nil)
		req.SetPathValue("id", campaignID)
		req.SetPathValue("pid", pollID)
		req = middleware.WithUser(req, user)
		w := httptest.NewRecorder()
		handler.Finalize(w, req)
		return w
	}

	t.Run("player cannot finalize", func(t *testing.T) {
		testutil.AssertStatus(t, finalize(player, optionID), http.StatusForbidden)
	})

	t.Run("unknown option", func(t *testing.T) {
		testutil.AssertStatus(t, finalize(dm, "nope"), http.StatusNotFound)
	})

	t.Run("DM finalizes", func(t *testing.T) {
		w := finalize(dm, optionID)
		testutil.AssertStatus(t, w, http.StatusCreated)

		var session models.Session
		testutil.AssertJSON(t, w, &session)
		if session.CampaignID != campaignID {
			t.Errorf("Session created in wrong campaign: %s", session.CampaignID)
		}
		if session.Title == nil || *session.Title != "Test Poll" {
			t.Errorf("Expected session title from poll, got %+v", session.Title)
		}
		if !session.ScheduledAt.Equal(scheduledAt) && session.ScheduledAt.Unix() != scheduledAt.Unix() {
			t.Errorf("Expected session at %v, got %v", scheduledAt, session.ScheduledAt)
		}

		var closed bool
		if err := db.QueryRow(`SELECT is_closed FROM session_poll WHERE id = $1`, pollID).Scan(&closed); err != nil {
			t.Fatalf("Failed to query poll: %v", err)
		}
		if !closed {
			t.Error("Expected poll to be closed")
		}
	})

	t.Run("second finalize conflicts", func(t *testing.T) {
		var before int
		if err := db.QueryRow(`SELECT COUNT(*) FROM session WHERE campaign_id = $1`, campaignID).Scan(&before); err != nil {
			t.Fatalf("Failed to count sessions: %v", err)
		}

		testutil.AssertStatus(t, finalize(dm, optionID), http.StatusConflict)

		var after int
		if err := db.QueryRow(`SELECT COUNT(*) FROM session WHERE campaign_id = $1`, campaignID).Scan(&after); err != nil {
			t.Fatalf("Failed to count sessions: %v", err)
		}
		if after != before {
			t.Errorf("A conflicting finalize created a session: %d -> %d", before, after)
		}
	})
}

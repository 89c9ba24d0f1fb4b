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

func TestCreateCampaign(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewCampaignHandler(db, cfg)

	user := testutil.CreateTestUser(t, db, "gm")

	tests := []struct {
		name           string
		body           models.CreateCampaignRequest
		expectedStatus int
	}{
		{
			name:           "valid campaign",
			body:           models.CreateCampaignRequest{Name: "Curse of Strahd", GameSystem: "D&D 5e"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing name",
			body:           models.CreateCampaignRequest{GameSystem: "D&D 5e"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing game system",
			body:           models.CreateCampaignRequest{Name: "Nameless"},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := middleware.WithUser(testutil.MakeRequest("POST", "/campaigns", tt.body, nil), user)
			w := httptest.NewRecorder()

			handler.Create(w, req)
			testutil.AssertStatus(t, w, tt.expectedStatus)

			if tt.expectedStatus == http.StatusCreated {
				var c models.Campaign
				testutil.AssertJSON(t, w, &c)
				if c.DMID != user.ID {
					t.Errorf("Expected creator to be DM, got %s", c.DMID)
				}
			}
		})
	}
}

func TestListCampaigns(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewCampaignHandler(db, cfg)

	dm := testutil.CreateTestUser(t, db, "dm")
	other := testutil.CreateTestUser(t, db, "other")

	create := func(user models.User, name, system string) {
		t.Helper()
		req := middleware.WithUser(testutil.MakeRequest("POST", "/campaigns",
			models.CreateCampaignRequest{Name: name, GameSystem: system, Description: "weekly " + name}, nil), user)
		w := httptest.NewRecorder()
		handler.Create(w, req)
		testutil.AssertStatus(t, w, http.StatusCreated)
	}

	create(dm, "Dragonlance", "D&D 5e")
	create(dm, "Mothership One-Shot", "Mothership")
	create(other, "Dark Heresy", "WH40k")

	list := func(user models.User, query string) []models.Campaign {
		t.Helper()
		req := middleware.WithUser(testutil.MakeRequest("GET", "/campaigns"+query, nil, nil), user)
		w := httptest.NewRecorder()
		handler.List(w, req)
		testutil.AssertStatus(t, w, http.StatusOK)
		var campaigns []models.Campaign
		testutil.AssertJSON(t, w, &campaigns)
		return campaigns
	}

	t.Run("discovery lists everything", func(t *testing.T) {
		if got := list(other, ""); len(got) != 3 {
			t.Errorf("Expected 3 campaigns, got %d", len(got))
		}
	})

	t.Run("system filter", func(t *testing.T) {
		got := list(other, "?system=Mothership")
		if len(got) != 1 || got[0].Name != "Mothership One-Shot" {
			t.Errorf("Expected the Mothership campaign, got %+v", got)
		}
	})

	t.Run("text search", func(t *testing.T) {
		got := list(other, "?q=dragon")
		if len(got) != 1 || got[0].Name != "Dragonlance" {
			t.Errorf("Expected Dragonlance, got %+v", got)
		}
	})

	t.Run("mine", func(t *testing.T) {
		req := middleware.WithUser(testutil.MakeRequest("GET", "/campaigns/mine", nil, nil), dm)
		w := httptest.NewRecorder()
		handler.Mine(w, req)
		testutil.AssertStatus(t, w, http.StatusOK)

		var campaigns []models.Campaign
		testutil.AssertJSON(t, w, &campaigns)
		if len(campaigns) != 2 {
			t.Errorf("Expected 2 campaigns as DM, got %d", len(campaigns))
		}
	})

	t.Run("mine includes player memberships", func(t *testing.T) {
		var campaignID string
		if err := db.QueryRow(`SELECT id FROM campaign WHERE name = 'Dark Heresy'`).Scan(&campaignID); err != nil {
			t.Fatalf("Failed to find campaign: %v", err)
		}
		testutil.AddTestPlayer(t, db, campaignID, dm.ID)

		req := middleware.WithUser(testutil.MakeRequest("GET", "/campaigns/mine", nil, nil), dm)
		w := httptest.NewRecorder()
		handler.Mine(w, req)

		var campaigns []models.Campaign
		testutil.AssertJSON(t, w, &campaigns)
		if len(campaigns) != 3 {
			t.Errorf("Expected 3 campaigns after joining one, got %d", len(campaigns))
		}
	})
}

func TestRoster(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewCampaignHandler(db, cfg)

	dm := testutil.CreateTestUser(t, db, "dm")
	player := testutil.CreateTestUser(t, db, "player")
	campaignID := testutil.CreateTestCampaign(t, db, dm.ID)

	addPlayer := func(actor models.User, userID string) *httptest.ResponseRecorder {
		req := testutil.MakeRequest("POST", "/campaigns/"+campaignID+"/players",
			models.AddPlayerRequest{UserID: userID}, nil)
		req.SetPathValue("id", campaignID)
		req = middleware.WithUser(req, actor)
		w := httptest.NewRecorder()
		handler.AddPlayer(w, req)
		return w
	}

	t.Run("DM adds player", func(t *testing.T) {
		testutil.AssertStatus(t, addPlayer(dm, player.ID), http.StatusCreated)
	})

	t.Run("duplicate add conflicts", func(t *testing.T) {
		testutil.AssertStatus(t, addPlayer(dm, player.ID), http.StatusConflict)
	})

	t.Run("DM cannot join as player", func(t *testing.T) {
		testutil.AssertStatus(t, addPlayer(dm, dm.ID), http.StatusBadRequest)
	})

	t.Run("unknown user", func(t *testing.T) {
		testutil.AssertStatus(t, addPlayer(dm, "nope"), http.StatusNotFound)
	})

	t.Run("player cannot manage roster", func(t *testing.T) {
		stranger := testutil.CreateTestUser(t, db, "stranger")
		testutil.AssertStatus(t, addPlayer(player, stranger.ID), http.StatusForbidden)
	})

	t.Run("remove player", func(t *testing.T) {
		req := testutil.MakeRequest("DELETE", "/campaigns/"+campaignID+"/players/"+player.ID, nil, nil)
		req.SetPathValue("id", campaignID)
		req.SetPathValue("userID", player.ID)
		req = middleware.WithUser(req, dm)
		w := httptest.NewRecorder()
		handler.RemovePlayer(w, req)
		testutil.AssertStatus(t, w, http.StatusNoContent)
	})

	t.Run("remove non-member", func(t *testing.T) {
		req := testutil.MakeRequest("DELETE", "/campaigns/"+campaignID+"/players/"+player.ID, nil, nil)
		req.SetPathValue("id", campaignID)
		req.SetPathValue("userID", player.ID)
		req = middleware.WithUser(req, dm)
		w := httptest.NewRecorder()
		handler.RemovePlayer(w, req)
		testutil.AssertStatus(t, w, http.StatusNotFound)
	})
}

func TestCampaignDetail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewCampaignHandler(db, cfg)

	dm := testutil.CreateTestUser(t, db, "dm")
	player := testutil.CreateTestUser(t, db, "player")
	outsider := testutil.CreateTestUser(t, db, "outsider")
	campaignID := testutil.CreateTestCampaign(t, db, dm.ID)
	testutil.AddTestPlayer(t, db, campaignID, player.ID)

	testutil.CreateTestSession(t, db, campaignID, dm.ID, time.Now().Add(24*time.Hour))
	testutil.CreateTestSession(t, db, campaignID, dm.ID, time.Now().Add(-24*time.Hour))
	pollID := testutil.CreateTestPoll(t, db, campaignID, dm.ID)
	testutil.AddTestPollOption(t, db, pollID, time.Now().Add(48*time.Hour))

	detail := func(user models.User) (*httptest.ResponseRecorder, models.CampaignDetail) {
		req := testutil.MakeRequest("GET", "/campaigns/"+campaignID, nil, nil)
		req.SetPathValue("id", campaignID)
		req = middleware.WithUser(req, user)
		w := httptest.NewRecorder()
		handler.Detail(w, req)
		var d models.CampaignDetail
		if w.Code == http.StatusOK {
			testutil.AssertJSON(t, w, &d)
		}
		return w, d
	}

	t.Run("outsider rejected", func(t *testing.T) {
		w, _ := detail(outsider)
		testutil.AssertStatus(t, w, http.StatusForbidden)
	})

	t.Run("player sees the aggregate", func(t *testing.T) {
		w, d := detail(player)
		testutil.AssertStatus(t, w, http.StatusOK)

		if d.IsDM {
			t.Error("Player flagged as DM")
		}
		if len(d.Players) != 1 || d.Players[0].ID != player.ID {
			t.Errorf("Expected roster with the player, got %+v", d.Players)
		}
		if len(d.Upcoming) != 1 {
			t.Errorf("Expected 1 upcoming session, got %d", len(d.Upcoming))
		}
		if len(d.Past) != 1 {
			t.Errorf("Expected 1 past session, got %d", len(d.Past))
		}
		if len(d.OpenPolls) != 1 {
			t.Errorf("Expected 1 open poll, got %d", len(d.OpenPolls))
		}
		// Session without RSVP + poll with an unanswered option.
		if d.PendingActions != 2 {
			t.Errorf("Expected 2 pending actions, got %d", d.PendingActions)
		}
	})

	t.Run("DM flag", func(t *testing.T) {
		w, d := detail(dm)
		testutil.AssertStatus(t, w, http.StatusOK)
		if !d.IsDM {
			t.Error("DM not flagged as DM")
		}
	})
}

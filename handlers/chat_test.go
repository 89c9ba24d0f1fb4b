package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tischrunde/tischrunde/middleware"
	"github.com/tischrunde/tischrunde/models"
	"github.com/tischrunde/tischrunde/testutil"
)

func TestChat(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewChatHandler(db, cfg)

	dm := testutil.CreateTestUser(t, db, "dm")
	player := testutil.CreateTestUser(t, db, "player")
	outsider := testutil.CreateTestUser(t, db, "outsider")
	campaignID := testutil.CreateTestCampaign(t, db, dm.ID)
	testutil.AddTestPlayer(t, db, campaignID, player.ID)

	// The player's character, for in-character messages.
	characterID := uuid.NewString()
	_, err := db.Exec(`
		INSERT INTO character_sheet (id, user_id, campaign_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, 'Tharok', $4, $4)
	`, characterID, player.ID, campaignID, time.Now())
	if err != nil {
		t.Fatalf("Failed to create character: %v", err)
	}

	send := func(user models.User, body models.SendMessageRequest) *httptest.ResponseRecorder {
		req := testutil.MakeRequest("POST", "/campaigns/"+campaignID+"/messages", body, nil)
		req.SetPathValue("id", campaignID)
		req = middleware.WithUser(req, user)
		w := httptest.NewRecorder()
		handler.Send(w, req)
		return w
	}

	t.Run("outsider rejected", func(t *testing.T) {
		testutil.AssertStatus(t, send(outsider, models.SendMessageRequest{Content: "hi"}), http.StatusForbidden)
	})

	t.Run("empty content", func(t *testing.T) {
		testutil.AssertStatus(t, send(player, models.SendMessageRequest{Content: "  "}), http.StatusBadRequest)
	})

	t.Run("someone else's character", func(t *testing.T) {
		w := send(dm, models.SendMessageRequest{Content: "sneaky", CharacterID: characterID})
		testutil.AssertStatus(t, w, http.StatusNotFound)
	})

	t.Run("DM speaks as DM", func(t *testing.T) {
		w := send(dm, models.SendMessageRequest{Content: "Roll initiative!"})
		testutil.AssertStatus(t, w, http.StatusCreated)

		var msg models.Message
		testutil.AssertJSON(t, w, &msg)
		if msg.SenderName != "DM" || !msg.IsDM {
			t.Errorf("Expected DM attribution, got %q (is_dm=%v)", msg.SenderName, msg.IsDM)
		}
	})

	t.Run("player speaks in character", func(t *testing.T) {
		w := send(player, models.SendMessageRequest{Content: "I attack the darkness", CharacterID: characterID})
		testutil.AssertStatus(t, w, http.StatusCreated)

		var msg models.Message
		testutil.AssertJSON(t, w, &msg)
		if msg.SenderName != "Tharok" {
			t.Errorf("Expected character name, got %q", msg.SenderName)
		}
	})

	t.Run("player speaks as themselves", func(t *testing.T) {
		w := send(player, models.SendMessageRequest{Content: "brb"})
		testutil.AssertStatus(t, w, http.StatusCreated)

		var msg models.Message
		testutil.AssertJSON(t, w, &msg)
		if msg.SenderName != "player" {
			t.Errorf("Expected handle, got %q", msg.SenderName)
		}
	})

	list := func(user models.User) []models.Message {
		t.Helper()
		req := testutil.MakeRequest("GET", "/campaigns/"+campaignID+"/messages", nil, nil)
		req.SetPathValue("id", campaignID)
		req = middleware.WithUser(req, user)
		w := httptest.NewRecorder()
		handler.List(w, req)
		testutil.AssertStatus(t, w, http.StatusOK)
		var msgs []models.Message
		testutil.AssertJSON(t, w, &msgs)
		return msgs
	}

	t.Run("list is oldest first", func(t *testing.T) {
		msgs := list(player)
		if len(msgs) != 3 {
			t.Fatalf("Expected 3 messages, got %d", len(msgs))
		}
		if msgs[0].Content != "Roll initiative!" || msgs[2].Content != "brb" {
			t.Errorf("Expected chronological order, got %q .. %q", msgs[0].Content, msgs[2].Content)
		}
	})

	t.Run("deleted character falls back to handle", func(t *testing.T) {
		if _, err := db.Exec(`DELETE FROM character_sheet WHERE id = $1`, characterID); err != nil {
			t.Fatalf("Failed to delete character: %v", err)
		}

		msgs := list(player)
		if len(msgs) != 3 {
			t.Fatalf("Expected messages to survive character deletion, got %d", len(msgs))
		}
		for _, msg := range msgs {
			if msg.Content == "I attack the darkness" && msg.SenderName != "player" {
				t.Errorf("Expected fallback to handle after deletion, got %q", msg.SenderName)
			}
		}
	})
}

// Copyright (c) 2025 the tischrunde authors.
// MIT License; see LICENSE.

package models

import (
	"encoding/json"
	"strings"
	"time"
)

// RSVP / poll vote values
const (
	ResponseYes   = "yes"
	ResponseNo    = "no"
	ResponseMaybe = "maybe"
)

// Quest status values. Anything else stored historically is treated as open.
const (
	QuestStatusOpen = "open"
	QuestStatusDone = "done"
)

// ValidResponse reports whether s is an accepted RSVP/vote value.
func ValidResponse(s string) bool {
	return s == ResponseYes || s == ResponseNo || s == ResponseMaybe
}

// TagInput accepts tags as either a JSON array of strings or a single
// comma-separated string, matching what the web client sends.
type TagInput []string

func (t *TagInput) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = list
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = strings.Split(raw, ",")
	return nil
}

// Request types

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

type UpdateProfileRequest struct {
	FullName   string `json:"full_name"`
	Bio        string `json:"bio"`
	ProfilePic string `json:"profile_pic"`
}

type CreateCampaignRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	GameSystem  string `json:"game_system"`
	Image       string `json:"image"`
}

type AddPlayerRequest struct {
	UserID string `json:"user_id"`
}

type UpsertCharacterRequest struct {
	Name        string `json:"name"`
	Class       string `json:"class"`
	Level       *int   `json:"level,omitempty"`
	Race        string `json:"race"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

type SessionRequest struct {
	Title       string    `json:"title"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Location    string    `json:"location"`
	Notes       string    `json:"notes"`
}

type RSVPRequest struct {
	Response string `json:"response"`
}

type PollOptionInput struct {
	ScheduledAt time.Time `json:"scheduled_at"`
	Location    string    `json:"location"`
	Notes       string    `json:"notes"`
}

type CreatePollRequest struct {
	Title   string            `json:"title"`
	Notes   string            `json:"notes"`
	Options []PollOptionInput `json:"options"`
}

type VoteRequest struct {
	OptionID string `json:"option_id"`
	Response string `json:"response"`
}

type FinalizePollRequest struct {
	OptionID string `json:"option_id"`
}

type QuestRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Reward      string   `json:"reward"`
	Status      string   `json:"status"`
	Priority    string   `json:"priority"`
	IsMain      bool     `json:"is_main"`
	Tags        TagInput `json:"tags"`
}

type UpdateTagsRequest struct {
	Tags TagInput `json:"tags"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type NPCRequest struct {
	Name        string   `json:"name"`
	Race        string   `json:"race"`
	Age         *int     `json:"age,omitempty"`
	Gender      string   `json:"gender"`
	Appearance  string   `json:"appearance"`
	Personality string   `json:"personality"`
	Background  string   `json:"background"`
	Notes       string   `json:"notes"`
	Tags        TagInput `json:"tags"`
	IsImportant bool     `json:"is_important"`
	Image       string   `json:"image"`
}

type SendMessageRequest struct {
	Content     string `json:"content"`
	CharacterID string `json:"character_id,omitempty"`
}

// Response types

// Tally groups responder display names by answer. Names resolve to the
// user's full name when set, otherwise the handle.
type Tally struct {
	Yes   []string `json:"yes"`
	Maybe []string `json:"maybe"`
	No    []string `json:"no"`
}

type RSVPResponse struct {
	SessionID  string `json:"session_id"`
	MyResponse string `json:"my_response"`
	Tally
}

type VoteResponse struct {
	PollID     string `json:"poll_id"`
	OptionID   string `json:"option_id"`
	MyResponse string `json:"my_response"`
	Tally
}

type PendingResponse struct {
	Count int `json:"count"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Domain types

type User struct {
	ID          string     `json:"id"`
	ProviderUID string     `json:"-"` // Never expose in JSON
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	FullName    *string    `json:"full_name,omitempty"`
	Bio         *string    `json:"bio,omitempty"`
	ProfilePic  *string    `json:"profile_pic,omitempty"`
	IsAdmin     bool       `json:"is_admin"`
	IsApproved  bool       `json:"is_approved"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
}

// DisplayName is the name shown in tallies and chat: full name if set,
// otherwise the handle.
func (u User) DisplayName() string {
	if u.FullName != nil && *u.FullName != "" {
		return *u.FullName
	}
	return u.Username
}

type Campaign struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	GameSystem  string    `json:"game_system"`
	Image       *string   `json:"image,omitempty"`
	DMID        string    `json:"dm_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type Character struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	CampaignID  string    `json:"campaign_id"`
	Name        string    `json:"name"`
	Class       *string   `json:"class,omitempty"`
	Level       *int      `json:"level,omitempty"`
	Race        *string   `json:"race,omitempty"`
	Description *string   `json:"description,omitempty"`
	Image       *string   `json:"image,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Session struct {
	ID          string    `json:"id"`
	CampaignID  string    `json:"campaign_id"`
	Title       *string   `json:"title,omitempty"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Location    *string   `json:"location,omitempty"`
	Notes       *string   `json:"notes,omitempty"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

type SessionPoll struct {
	ID         string       `json:"id"`
	CampaignID string       `json:"campaign_id"`
	Title      *string      `json:"title,omitempty"`
	Notes      *string      `json:"notes,omitempty"`
	IsClosed   bool         `json:"is_closed"`
	CreatedBy  string       `json:"created_by"`
	CreatedAt  time.Time    `json:"created_at"`
	Options    []PollOption `json:"options,omitempty"`
}

type PollOption struct {
	ID          string    `json:"id"`
	PollID      string    `json:"poll_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Location    *string   `json:"location,omitempty"`
	Notes       *string   `json:"notes,omitempty"`
}

type Quest struct {
	ID          string    `json:"id"`
	CampaignID  string    `json:"campaign_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Reward      *string   `json:"reward,omitempty"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	IsMain      bool      `json:"is_main"`
	Tags        *string   `json:"tags,omitempty"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type NPC struct {
	ID          string    `json:"id"`
	CampaignID  string    `json:"campaign_id"`
	Name        string    `json:"name"`
	Race        *string   `json:"race,omitempty"`
	Age         *int      `json:"age,omitempty"`
	Gender      *string   `json:"gender,omitempty"`
	Appearance  *string   `json:"appearance,omitempty"`
	Personality *string   `json:"personality,omitempty"`
	Background  *string   `json:"background,omitempty"`
	Notes       *string   `json:"notes,omitempty"`
	Tags        *string   `json:"tags,omitempty"`
	IsImportant bool      `json:"is_important"`
	Image       *string   `json:"image,omitempty"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Message struct {
	ID          string    `json:"id"`
	CampaignID  string    `json:"campaign_id"`
	UserID      string    `json:"user_id"`
	CharacterID *string   `json:"character_id,omitempty"`
	Content     string    `json:"content"`
	SenderName  string    `json:"sender_name"`
	IsDM        bool      `json:"is_dm"`
	CreatedAt   time.Time `json:"created_at"`
}

// Schedule view types

type UpcomingSession struct {
	Session
	CampaignName string `json:"campaign_name"`
	MyResponse   string `json:"my_response,omitempty"`
	StartsIn     string `json:"starts_in"`
}

type OpenPoll struct {
	SessionPoll
	CampaignName string            `json:"campaign_name"`
	MyVotes      map[string]string `json:"my_votes"` // option id -> response
}

type ScheduleResponse struct {
	Sessions []UpcomingSession `json:"sessions"`
	Polls    []OpenPoll        `json:"polls"`
}

type CampaignDetail struct {
	Campaign       Campaign          `json:"campaign"`
	IsDM           bool              `json:"is_dm"`
	Players        []User            `json:"players"`
	Characters     []Character       `json:"characters"`
	Quests         []Quest           `json:"quests"`
	NPCs           []NPC             `json:"npcs"`
	Upcoming       []UpcomingSession `json:"upcoming_sessions"`
	Past           []Session         `json:"past_sessions"`
	OpenPolls      []OpenPoll        `json:"open_polls"`
	PendingActions int               `json:"pending_actions"`
}

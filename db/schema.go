// Copyright (c) 2025 the tischrunde authors.
// MIT License; see LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
//
// Timestamps are always written by the application, never by column
// defaults, so the DDL stays portable between Postgres and sqlite.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const schema = `
-- Users
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    provider_uid TEXT NOT NULL UNIQUE,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL UNIQUE,
    full_name TEXT,
    bio TEXT,
    profile_pic TEXT,
    is_admin BOOLEAN NOT NULL DEFAULT FALSE,
    is_approved BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL,
    last_login TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_users_provider_uid ON users(provider_uid);

-- Campaigns
CREATE TABLE IF NOT EXISTS campaign (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    game_system TEXT NOT NULL,
    image TEXT,
    dm_id TEXT NOT NULL REFERENCES users(id),
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_campaign_dm_id ON campaign(dm_id);

-- Campaign membership (players only; the DM is never listed here)
CREATE TABLE IF NOT EXISTS campaign_player (
    campaign_id TEXT NOT NULL REFERENCES campaign(id) ON DELETE CASCADE,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    joined_at TIMESTAMP NOT NULL,
    PRIMARY KEY (campaign_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_campaign_player_user ON campaign_player(user_id);

-- Character sheets (at most one per user per campaign)
CREATE TABLE IF NOT EXISTS character_sheet (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id),
    campaign_id TEXT NOT NULL REFERENCES campaign(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    char_class TEXT,
    level INTEGER,
    race TEXT,
    description TEXT,
    image TEXT,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    UNIQUE (user_id, campaign_id)
);

CREATE INDEX IF NOT EXISTS idx_character_campaign ON character_sheet(campaign_id);

-- Scheduled sessions
CREATE TABLE IF NOT EXISTS session (
    id TEXT PRIMARY KEY,
    campaign_id TEXT NOT NULL REFERENCES campaign(id) ON DELETE CASCADE,
    title TEXT,
    scheduled_at TIMESTAMP NOT NULL,
    location TEXT,
    notes TEXT,
    created_by TEXT NOT NULL REFERENCES users(id),
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_session_campaign ON session(campaign_id);
CREATE INDEX IF NOT EXISTS idx_session_scheduled_at ON session(scheduled_at);

-- RSVP responses, one row per (session, user)
CREATE TABLE IF NOT EXISTS session_response (
    session_id TEXT NOT NULL REFERENCES session(id) ON DELETE CASCADE,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    response TEXT NOT NULL CHECK (response IN ('yes', 'no', 'maybe')),
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (session_id, user_id)
);

-- Scheduling polls
CREATE TABLE IF NOT EXISTS session_poll (
    id TEXT PRIMARY KEY,
    campaign_id TEXT NOT NULL REFERENCES campaign(id) ON DELETE CASCADE,
    title TEXT,
    notes TEXT,
    is_closed BOOLEAN NOT NULL DEFAULT FALSE,
    created_by TEXT NOT NULL REFERENCES users(id),
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_session_poll_campaign ON session_poll(campaign_id);

CREATE TABLE IF NOT EXISTS poll_option (
    id TEXT PRIMARY KEY,
    poll_id TEXT NOT NULL REFERENCES session_poll(id) ON DELETE CASCADE,
    scheduled_at TIMESTAMP NOT NULL,
    location TEXT,
    notes TEXT
);

CREATE INDEX IF NOT EXISTS idx_poll_option_poll ON poll_option(poll_id);

-- Poll votes, one row per (option, user)
CREATE TABLE IF NOT EXISTS poll_vote (
    option_id TEXT NOT NULL REFERENCES poll_option(id) ON DELETE CASCADE,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    response TEXT NOT NULL CHECK (response IN ('yes', 'no', 'maybe')),
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (option_id, user_id)
);

-- Quests
CREATE TABLE IF NOT EXISTS quest (
    id TEXT PRIMARY KEY,
    campaign_id TEXT NOT NULL REFERENCES campaign(id) ON DELETE CASCADE,
    title TEXT NOT NULL,
    description TEXT,
    reward TEXT,
    status TEXT NOT NULL DEFAULT 'open',
    priority TEXT NOT NULL DEFAULT 'normal',
    is_main BOOLEAN NOT NULL DEFAULT FALSE,
    tags TEXT,
    created_by TEXT NOT NULL REFERENCES users(id),
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_quest_campaign ON quest(campaign_id);

-- NPCs
CREATE TABLE IF NOT EXISTS npc (
    id TEXT PRIMARY KEY,
    campaign_id TEXT NOT NULL REFERENCES campaign(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    race TEXT,
    age INTEGER,
    gender TEXT,
    appearance TEXT,
    personality TEXT,
    background TEXT,
    notes TEXT,
    tags TEXT,
    is_important BOOLEAN NOT NULL DEFAULT FALSE,
    image TEXT,
    created_by TEXT NOT NULL REFERENCES users(id),
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_npc_campaign ON npc(campaign_id);

-- Chat log. character_id is a weak link: messages survive character deletion.
CREATE TABLE IF NOT EXISTS message (
    id TEXT PRIMARY KEY,
    campaign_id TEXT NOT NULL REFERENCES campaign(id) ON DELETE CASCADE,
    user_id TEXT NOT NULL REFERENCES users(id),
    character_id TEXT REFERENCES character_sheet(id) ON DELETE SET NULL,
    content TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_message_campaign ON message(campaign_id, created_at);
`

// Copyright (c) 2025 the tischrunde authors.
// MIT License; see LICENSE.

/*
Package main provides the entry point for the tischrunde API server.

Tischrunde is a campaign companion for tabletop RPG groups: campaigns with
a DM and players, character sheets, session planning with RSVPs,
scheduling polls, a quest log, an NPC compendium, and campaign chat.

# Starting the Server

The server requires environment variables (or a .env file) or CLI flags:

	DATABASE_URL=postgres://... TOKEN_SECRET=... go run .

Or with flags:

	go run . -p 3320 -t postgres -d "postgres://..." -token-secret "..."

# Configuration

Required settings:

  - DATABASE_URL (-d): Connection string (Postgres URL or sqlite path)
  - TOKEN_SECRET (-token-secret): Shared secret for bearer token verification

Optional settings:

  - PORT (-p): Server port (default: 3320)
  - DATABASE_TYPE (-t): "postgres" or "sqlite" (default: sqlite)

# Architecture

The server uses a handler-based architecture with dependency injection:

  - handlers: HTTP request handlers (campaigns, sessions, polls, quests, ...)
  - router: Route definitions using Go 1.22+ routing
  - middleware: Authentication, CORS, logging, JSON helpers
  - models: Domain and request/response types, shared normalization
  - auth: Bearer token verification against the identity provider secret
  - db: Schema creation
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main

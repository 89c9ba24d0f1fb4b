// Copyright (c) 2025 the tischrunde authors.
// MIT License; see LICENSE.

/*
Package middleware provides HTTP middleware and response helpers.

# Middleware

  - WithLogging: request start/completion logging with duration
  - RequireUser: bearer token -> account row -> request context;
    rejects unknown tokens (401) and unapproved accounts (403)
  - CORS: cross-origin headers and preflight handling

# Helpers

  - CurrentUser: reads the account RequireUser stored in the context
  - JSONResponse / ErrorResponse: JSON writers
  - ParseJSONBody: request body decoding

Handlers behind RequireUser can assume CurrentUser returns a real,
approved account.
*/
package middleware

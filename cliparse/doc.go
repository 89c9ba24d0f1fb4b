// Copyright (c) 2025 the tischrunde authors.
// MIT License; see LICENSE.

/*
Package cliparse handles server configuration from CLI flags and environment.

# Precedence

CLI flags win over environment variables. Missing values fall back to env,
then to defaults where one exists.

# Settings

Required:

  - DATABASE_URL (-d): connection string (Postgres URL or sqlite file path)
  - TOKEN_SECRET (--token-secret): HMAC secret for identity bearer tokens

Optional:

  - PORT (-p): server port (default: 3320)
  - DATABASE_TYPE (-t): "sqlite" (default) or "postgres"

# Usage

	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}
*/
package cliparse

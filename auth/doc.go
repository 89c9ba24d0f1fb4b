// Copyright (c) 2025 the tischrunde authors.
// MIT License; see LICENSE.

/*
Package auth is the identity boundary.

Accounts are owned by an external identity provider. What crosses the wire
is an HS256 JWT whose subject claim carries the provider's stable user id;
this package verifies the signature and hands back that id. Credentials,
password hashing, and OAuth flows are the provider's problem, not ours.

# Usage

	sub, err := auth.ParseSubject(bearer, cfg.TokenSecret)
	if err != nil {
		// 401
	}

SignToken exists for local development and tests, which act as their own
provider.
*/
package auth

// Package auth authenticates civicbase users.
//
// # Login
//
// Authenticator.Login looks an account up by email or user name and runs
// the lockout state machine:
//
//	ACTIVE   + wrong password  -> attempts+1, BLOCKED once attempts reach the limit
//	ACTIVE   + right password  -> token issued
//	DISABLED + any password    -> attempts+1, ErrAccountDisabled
//	BLOCKED  + any password    -> attempts+1, ErrAccountBlocked
//
// Unknown logins fail with ErrInvalidCredentials, the same error as a wrong
// password, so accounts cannot be enumerated.
//
// # Tokens
//
// Tokens are HS256 JWTs carrying the user id, the user agent that logged in
// and a fingerprint of the stored password hash:
//
//	issuer := auth.NewTokenIssuer(secret, 480*time.Hour)
//	token, err := issuer.Issue(account, r.UserAgent())
//
// Authenticator.Verify re-reads the account on every request and rejects
// the token when the user agent differs, the password changed since the
// token was issued, or the account is no longer ACTIVE.
//
// # Request Context
//
// The authentication middleware stores the verified Caller in the request
// context:
//
//	caller, ok := auth.CallerFrom(r.Context())
package auth

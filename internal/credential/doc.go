// Package credential persists and validates the session credential issued by
// the identity provider.
//
// A SessionCredential is an access token, a refresh token and an account
// label. The subject and expiry are decoded from the access token's claims
// segment on demand and never stored separately; the signature is not
// verified because the claims are only used for display and expiry.
//
// # Storage
//
// The credential lives in a single JSON document:
//
//	<data dir>/steam_token.json
//
// Load never fails. It reports why nothing was returned through LoadStatus
// (missing, corrupt or expired) so callers can log the cases separately.
// Save writes through a temporary file and a rename so that an interrupted
// write cannot destroy a previously valid document.
//
// # Token source
//
// NewTokenSource adapts the store to golang.org/x/oauth2 so host code can
// build authenticated HTTP clients with oauth2.NewClient. The source refreshes
// expiring credentials through a Refresher and writes the result back.
package credential

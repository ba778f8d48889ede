// Package authservice is the client for the identity provider's
// authentication service.
//
// Three endpoints are used: BeginAuthSessionViaQR starts a pairing,
// PollAuthSessionStatus reports its progress and GenerateAccessTokenForApp
// refreshes an access token. Each request is a tag-encoded binary message,
// base64-wrapped into the input_protobuf_encoded form field and POSTed with
// the mobile app's user agent and cookies. Responses are decoded with
// google.golang.org/protobuf/encoding/protowire against fixed field tags;
// unknown tags are skipped.
//
// A poll response carries no explicit status. PollOnce classifies it into
// exactly one of Pending, ChallengeRotated or CredentialReady based on which
// fields are populated.
package authservice

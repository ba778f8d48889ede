package credential

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSubject = "76561197960287930"

// signedAccessToken builds an access token whose claims expire at exp.
func signedAccessToken(t *testing.T, subject string, exp time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "steam",
		Subject:   subject,
		Audience:  jwt.ClaimStrings{"client", "web"},
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(exp.Add(-24 * time.Hour)),
	})

	signed, err := token.SignedString([]byte("test-signing-key"))
	if err != nil {
		t.Fatalf("Failed to sign test token: %v", err)
	}
	return signed
}

func testCredential(t *testing.T, exp time.Time) *SessionCredential {
	t.Helper()
	return &SessionCredential{
		AccessToken:  signedAccessToken(t, testSubject, exp),
		RefreshToken: "refresh-token",
		AccountName:  "gaben",
	}
}

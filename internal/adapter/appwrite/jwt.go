package appwrite

import (
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/mmcdole/awsync/internal/domain"
)

// checkJWT rejects a token whose exp claim has passed. The signature is not
// verified; only the server holds the key.
func checkJWT(token string, now time.Time) error {
	parser := gojwt.NewParser()
	parsed, _, err := parser.ParseUnverified(token, gojwt.MapClaims{})
	if err != nil {
		return fmt.Errorf("malformed jwt: %w", err)
	}

	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil {
		return fmt.Errorf("malformed jwt exp claim: %w", err)
	}
	if exp != nil && !exp.After(now) {
		return fmt.Errorf("%w: jwt expired at %s", domain.ErrUnauthorized, exp.Time.Format(time.RFC3339))
	}
	return nil
}

// Package token mints the short-lived HS256 bearer tokens that authenticate
// the station's outbound calls (downloads, restores, warning webhooks).
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issue mints an HS256 token from the configured claim set. The claims are
// copied so the caller's map is never mutated; "iat" and "exp" are always
// overwritten with the current unix time and now+expiry, even when the
// configured payload carries its own values for them.
func Issue(claims map[string]any, secret string, expiry int64) (string, error) {
	mc := jwt.MapClaims{}
	for k, v := range claims {
		mc[k] = v
	}
	iat := time.Now().Unix()
	mc["iat"] = iat
	mc["exp"] = iat + expiry
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, mc)
	return tok.SignedString([]byte(secret))
}

// Bearer resolves the outbound bearer value under the station's token
// policy: a non-empty static token is used verbatim, otherwise a fresh
// token is minted for this call. Tokens are never cached across calls.
// On a minting failure the returned value is empty and the caller is
// expected to proceed without authentication.
func Bearer(static string, claims map[string]any, secret string, expiry int64) (string, error) {
	if static != "" {
		return static, nil
	}
	return Issue(claims, secret, expiry)
}

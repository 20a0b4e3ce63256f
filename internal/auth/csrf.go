package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"

	"github.com/2beens/fittrack/pkg"

	log "github.com/sirupsen/logrus"
)

const (
	CSRFCookieName = "XSRF-TOKEN"
	CSRFHeaderName = "X-XSRF-Token"
)

// CSRF derives the anti-forgery token of a session from a server secret, so the
// token needs no storage and dies with the session.
type CSRF struct {
	secret []byte
}

// NewCSRF uses the secret as the HMAC key. An empty secret is replaced with a random
// one, which invalidates all tokens on restart.
func NewCSRF(secret string) *CSRF {
	if secret == "" {
		log.Warnln("SESSION_SECRET not set, using a random per-process secret")
		random, err := pkg.GenerateRandomBytes(32)
		if err != nil {
			log.Fatalf("generate csrf secret: %s", err)
		}
		return &CSRF{secret: random}
	}
	return &CSRF{secret: []byte(secret)}
}

func (c *CSRF) Token(sessionToken string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(sessionToken))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (c *CSRF) Valid(sessionToken, token string) bool {
	if sessionToken == "" || token == "" {
		return false
	}
	return hmac.Equal([]byte(c.Token(sessionToken)), []byte(token))
}

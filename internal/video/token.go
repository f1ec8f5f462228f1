package video

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TwilioTokenIssuer mints Twilio Video access tokens (the "fpa" JWT
// format Twilio client SDKs expect). The grant is always scoped to a
// single room.
type TwilioTokenIssuer struct {
	accountSID string
	apiKey     string
	apiSecret  string
	ttl        time.Duration
	clock      func() time.Time
}

func NewTwilioTokenIssuer(cfg TwilioConfig, ttl time.Duration) *TwilioTokenIssuer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TwilioTokenIssuer{
		accountSID: cfg.AccountSID,
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		ttl:        ttl,
		clock:      time.Now,
	}
}

type videoGrant struct {
	Room string `json:"room"`
}

type accessTokenClaims struct {
	jwt.RegisteredClaims
	Grants struct {
		Identity string     `json:"identity"`
		Video    videoGrant `json:"video"`
	} `json:"grants"`
}

func (i *TwilioTokenIssuer) AccessToken(identity, roomHandle string) (string, error) {
	if identity == "" || roomHandle == "" {
		return "", errors.New("video: identity and room are required")
	}
	if i.accountSID == "" || i.apiKey == "" || i.apiSecret == "" {
		return "", errors.New("video: twilio credentials not configured")
	}

	now := i.clock().UTC()
	claims := accessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.apiKey,
			Subject:   i.accountSID,
			ID:        fmt.Sprintf("%s-%d", i.apiKey, now.Unix()),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	claims.Grants.Identity = identity
	claims.Grants.Video = videoGrant{Room: roomHandle}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["cty"] = "twilio-fpa;v=1"
	return token.SignedString([]byte(i.apiSecret))
}

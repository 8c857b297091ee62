package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionObject is the client-visible projection of the session token:
// the four identity fields plus whatever base session fields the
// transport framework maintains in Data.
type SessionObject struct {
	InternalID       string         `json:"internal_id,omitempty"`
	LoginProvider    string         `json:"login_provider,omitempty"`
	ExternalID       string         `json:"external_id,omitempty"`
	ExternalUsername string         `json:"external_username,omitempty"`
	IssuedAt         *time.Time     `json:"issued_at,omitempty"`
	ExpirationDate   *time.Time     `json:"expiration_date,omitempty"`
	Data             map[string]any `json:"data,omitempty"`
}

// Project overlays the token's identity claims onto the incoming
// session. Pure field projection, executed on every session read; no
// storage access.
func (e *TokenEnricher) Project(session *SessionObject, token jwt.MapClaims) *SessionObject {
	out := &SessionObject{}
	if session != nil {
		copied := *session
		out = &copied
	}

	out.InternalID = stringClaim(token, ClaimInternalID)
	out.LoginProvider = stringClaim(token, ClaimProvider)
	out.ExternalID = stringClaim(token, ClaimExternalID)
	out.ExternalUsername = stringClaim(token, ClaimExternalUsername)

	return out
}

func (s SessionObject) String() string {
	issuedAt := "<nil>"
	if s.IssuedAt != nil {
		issuedAt = s.IssuedAt.Format(time.RFC1123)
	}
	return fmt.Sprintf(
		"user=%s provider=%s external=%s iat=%s",
		s.InternalID,
		s.LoginProvider,
		s.ExternalID,
		issuedAt,
	)
}

package identity

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ProviderCredentials is the provider name for local username/password
// logins. Every other provider name comes from its OAuth/SSO client.
const ProviderCredentials = "credentials"

// UserProfile is the canonical user record. At most one profile exists
// per (external_id, login_provider) pair, and exactly one profile
// created against an empty store carries Admin = true.
type UserProfile struct {
	bun.BaseModel `bun:"table:user_profiles,alias:up"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	ExternalID    string     `bun:"external_id,notnull,unique:ux_external_identity" json:"external_id,omitempty"`
	LoginProvider string     `bun:"login_provider,notnull,unique:ux_external_identity" json:"login_provider,omitempty"`
	Email         string     `bun:"email,notnull" json:"email,omitempty"`
	Name          string     `bun:"name" json:"name,omitempty"`
	Admin         bool       `bun:"admin" json:"admin,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Identity returns the external identity tuple stored on the profile.
func (u *UserProfile) Identity() ExternalIdentity {
	return ExternalIdentity{
		ExternalID:    u.ExternalID,
		LoginProvider: u.LoginProvider,
		Email:         u.Email,
		Name:          u.Name,
	}
}

// Credential holds the password hash for a credentials-provider profile.
type Credential struct {
	bun.BaseModel     `bun:"table:credentials,alias:crd"`
	UserID            uuid.UUID  `bun:"user_id,pk,type:uuid" json:"user_id,omitempty"`
	PasswordHash      string     `bun:"password_hash,notnull" json:"password_hash,omitempty"`
	ChangeAtNextLogin bool       `bun:"change_at_next_login" json:"change_at_next_login,omitempty"`
	CreatedAt         *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt         *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// ExternalIdentity is the tuple produced by a login attempt. It is
// never persisted directly; the reconciler folds it into a UserProfile.
type ExternalIdentity struct {
	ExternalID    string `json:"external_id"`
	LoginProvider string `json:"login_provider"`
	Email         string `json:"email"`
	Name          string `json:"name,omitempty"`
}

func (e ExternalIdentity) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.ExternalID, validation.Required),
		validation.Field(&e.LoginProvider, validation.Required),
		validation.Field(&e.Email, validation.Required, is.Email),
	)
}

// DisplayName falls back to the email when the provider sent no name.
func (e ExternalIdentity) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.Email
}

// NormalizeEmail lower-cases and trims an email so derived ids and
// lookups agree regardless of how the address was typed.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DeriveInternalID computes the stable internal id for a
// credentials-provider user from the normalized email. The same email
// always yields the same id, before the profile row exists.
func DeriveInternalID(email string) (uuid.UUID, error) {
	return hashid.NewUUID(NormalizeEmail(email))
}

package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// UserStore is the storage contract consumed by the verifier and the
// reconciler. Every call is atomic; implementations must enforce
// uniqueness on (external_id, login_provider) and signal a violated
// constraint with ErrDuplicateIdentity so callers can resolve the
// create race by re-fetching.
type UserStore interface {
	FindByExternalIdentity(ctx context.Context, externalID, provider string) (*UserProfile, error)
	FindByEmail(ctx context.Context, email string) (*UserProfile, *Credential, error)
	CountUsers(ctx context.Context) (int, error)
	CreateUser(ctx context.Context, record *UserProfile) (*UserProfile, error)
	UpdateUser(ctx context.Context, record *UserProfile) (*UserProfile, error)
	SaveCredential(ctx context.Context, record *Credential) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] IDENTITY "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] IDENTITY "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] IDENTITY "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] IDENTITY "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

func parseUUID(id string) (uuid.UUID, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, false
	}
	return parsed, true
}

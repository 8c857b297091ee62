package identity

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// SeedAdmin is the configured bootstrap account. When the store is
// empty and a login matches this pair exactly, the verifier creates the
// seed administrator.
type SeedAdmin struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CredentialVerifier validates local username/password logins against
// stored credentials. Invalid password and unknown user are both
// reported as a nil identity, deliberately indistinguishable to the
// caller; diagnostic logs do distinguish them.
type CredentialVerifier struct {
	store  UserStore
	seed   *SeedAdmin
	sink   ActivitySink
	logger Logger
}

// NewCredentialVerifier returns a verifier backed by the given store.
func NewCredentialVerifier(store UserStore) *CredentialVerifier {
	return &CredentialVerifier{
		store:  store,
		sink:   noopActivitySink{},
		logger: defLogger{},
	}
}

// WithSeedAdmin enables the one-time seed administrator bootstrap.
func (c *CredentialVerifier) WithSeedAdmin(seed *SeedAdmin) *CredentialVerifier {
	c.seed = seed
	return c
}

// WithActivitySink configures a sink for login success/failure events.
func (c *CredentialVerifier) WithActivitySink(sink ActivitySink) *CredentialVerifier {
	c.sink = normalizeActivitySink(sink)
	return c
}

func (c *CredentialVerifier) WithLogger(logger Logger) *CredentialVerifier {
	c.logger = logger
	return c
}

// Authorize validates the username/password pair and returns the
// resulting external identity, or nil when the login must be rejected.
// Only a missing username or a store failure produces an error.
func (c *CredentialVerifier) Authorize(ctx context.Context, username, password string) (*ExternalIdentity, error) {
	if username == "" && password == "" {
		c.logger.Warn("authorize called without credentials")
		return nil, nil
	}

	if username == "" {
		return nil, ErrMissingUsername
	}

	email := NormalizeEmail(username)

	user, cred, err := c.store.FindByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return c.bootstrapSeedAdmin(ctx, username, password)
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to look up user by email")
	}

	if cred == nil {
		c.logger.Warn("login rejected for %s account, user has no local credential", user.LoginProvider)
		c.emit(ctx, ActivityEventLoginFailure, user, "no_credential")
		return nil, nil
	}

	if err := ComparePasswordAndHash(password, cred.PasswordHash); err != nil {
		if IsInvalidCredentials(err) {
			c.logger.Warn("login rejected for user %s, password mismatch", user.ID)
			c.emit(ctx, ActivityEventLoginFailure, user, "password_mismatch")
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to verify password hash")
	}

	c.logger.Debug("login verified for user %s", user.ID)
	c.emit(ctx, ActivityEventLoginSuccess, user, "")

	identity := user.Identity()
	return &identity, nil
}

// bootstrapSeedAdmin creates the seed administrator when the store is
// empty and the supplied pair matches the configured seed exactly. The
// zero-count guard makes the path meaningfully executable once per
// deployment.
func (c *CredentialVerifier) bootstrapSeedAdmin(ctx context.Context, username, password string) (*ExternalIdentity, error) {
	if c.seed == nil || c.seed.Email == "" || c.seed.Password == "" {
		c.logger.Warn("login rejected, unknown user")
		return nil, nil
	}

	count, err := c.store.CountUsers(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to count users")
	}

	if count != 0 {
		c.logger.Warn("login rejected, unknown user")
		return nil, nil
	}

	if NormalizeEmail(username) != NormalizeEmail(c.seed.Email) || password != c.seed.Password {
		c.logger.Warn("login rejected, seed credentials mismatch")
		return nil, nil
	}

	id, err := DeriveInternalID(c.seed.Email)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to derive seed admin id")
	}

	record := &UserProfile{
		ID:            id,
		ExternalID:    id.String(),
		LoginProvider: ProviderCredentials,
		Email:         NormalizeEmail(c.seed.Email),
		Name:          NormalizeEmail(c.seed.Email),
		Admin:         true,
	}

	created, err := c.store.CreateUser(ctx, record)
	if err != nil {
		if IsDuplicateIdentity(err) {
			// A concurrent bootstrap won; fall back to a normal verify
			// against the row it created.
			return c.Authorize(ctx, username, password)
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create seed admin")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to hash seed admin password")
	}

	if err := c.store.SaveCredential(ctx, &Credential{
		UserID:            created.ID,
		PasswordHash:      hash,
		ChangeAtNextLogin: true,
	}); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to store seed admin credential")
	}

	c.logger.Info("created seed administrator %s", created.ID)
	c.emit(ctx, ActivityEventLoginSuccess, created, "seed_bootstrap")

	identity := created.Identity()
	return &identity, nil
}

func (c *CredentialVerifier) emit(ctx context.Context, eventType ActivityEventType, user *UserProfile, reason string) {
	event := ActivityEvent{
		EventType: eventType,
		UserID:    user.ID.String(),
		Email:     user.Email,
		Name:      user.Name,
		Metadata:  map[string]any{"provider": ProviderCredentials},
	}
	if reason != "" {
		event.Metadata["reason"] = reason
	}

	if err := normalizeActivitySink(c.sink).Record(ctx, event); err != nil {
		c.logger.Warn("activity sink record error: %v", err)
	}
}

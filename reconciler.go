package identity

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// IdentityReconciler maps an external identity onto its canonical
// UserProfile, creating the profile the first time the pair
// (external id, login provider) is seen.
type IdentityReconciler struct {
	store          UserStore
	signupDisabled bool
	logger         Logger
}

// NewIdentityReconciler returns a reconciler backed by the given store.
func NewIdentityReconciler(store UserStore) *IdentityReconciler {
	return &IdentityReconciler{
		store:  store,
		logger: defLogger{},
	}
}

// WithSignupDisabled gates profile creation. Existing profiles still
// reconcile normally.
func (r *IdentityReconciler) WithSignupDisabled(disabled bool) *IdentityReconciler {
	r.signupDisabled = disabled
	return r
}

func (r *IdentityReconciler) WithLogger(logger Logger) *IdentityReconciler {
	r.logger = logger
	return r
}

// GetOrCreateUser returns the canonical profile for the identity,
// creating it on first sight, plus the pending events the caller
// should hand to a Dispatcher. Two sequential calls with the same
// (external id, provider) return the same internal id.
//
// The first profile created against an empty store becomes the
// administrator. Creation while signup is disabled fails with
// ErrSignupDisabled. A create that loses the uniqueness race is
// resolved by re-fetching the winner.
func (r *IdentityReconciler) GetOrCreateUser(ctx context.Context, ident ExternalIdentity) (*UserProfile, []ActivityEvent, error) {
	if err := ident.Validate(); err != nil {
		return nil, nil, errors.Wrap(err, errors.CategoryValidation, "invalid external identity")
	}

	user, err := r.store.FindByExternalIdentity(ctx, ident.ExternalID, ident.LoginProvider)
	if err == nil {
		return r.syncProfile(ctx, user, ident)
	}

	if !repository.IsRecordNotFound(err) {
		return nil, nil, errors.Wrap(err, errors.CategoryInternal, "failed to look up external identity")
	}

	if r.signupDisabled {
		r.logger.Warn("rejected first-time login for provider %s, signup disabled", ident.LoginProvider)
		return nil, nil, ErrSignupDisabled
	}

	count, err := r.store.CountUsers(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CategoryInternal, "failed to count users")
	}

	record := &UserProfile{
		ExternalID:    ident.ExternalID,
		LoginProvider: ident.LoginProvider,
		Email:         ident.Email,
		Name:          ident.DisplayName(),
		// The very first reconciled user in the system becomes the
		// administrator. Concurrent first logins from different
		// providers can both observe count == 0 and both come out admin.
		Admin: count == 0,
	}

	// Credentials-provider external ids are the deterministic internal
	// id already derived from the email; reuse it so the seed bootstrap
	// and the reconciler agree. Other providers get a storage id.
	if ident.LoginProvider == ProviderCredentials {
		if id, ok := parseUUID(ident.ExternalID); ok {
			record.ID = id
		}
	}

	created, err := r.store.CreateUser(ctx, record)
	if err != nil {
		if IsDuplicateIdentity(err) {
			r.logger.Debug("lost identity create race for provider %s, re-fetching", ident.LoginProvider)
			winner, ferr := r.store.FindByExternalIdentity(ctx, ident.ExternalID, ident.LoginProvider)
			if ferr != nil {
				return nil, nil, errors.Wrap(ferr, errors.CategoryInternal, "failed to fetch identity after create race")
			}
			return winner, nil, nil
		}
		return nil, nil, errors.Wrap(err, errors.CategoryInternal, "failed to create user profile")
	}

	r.logger.Info("created user profile %s provider=%s admin=%t", created.ID, created.LoginProvider, created.Admin)

	events := []ActivityEvent{{
		EventType: ActivityEventUserCreated,
		UserID:    created.ID.String(),
		Email:     created.Email,
		Name:      created.Name,
		Metadata: map[string]any{
			"provider": created.LoginProvider,
			"admin":    created.Admin,
		},
	}}

	return created, events, nil
}

// syncProfile updates the stored name/email when the provider-supplied
// values drift. Providers are the source of truth for both; the id and
// admin flag are never altered here.
func (r *IdentityReconciler) syncProfile(ctx context.Context, user *UserProfile, ident ExternalIdentity) (*UserProfile, []ActivityEvent, error) {
	name := ident.DisplayName()
	if user.Name == name && user.Email == ident.Email {
		return user, nil, nil
	}

	patch := &UserProfile{
		ID:    user.ID,
		Email: ident.Email,
		Name:  name,
	}

	updated, err := r.store.UpdateUser(ctx, patch)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CategoryInternal, "failed to sync user profile")
	}

	return updated, nil, nil
}

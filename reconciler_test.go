package identity_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-identity"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func notFound() error {
	return repository.NewRecordNotFound()
}

func TestGetOrCreateUser(t *testing.T) {
	ctx := context.Background()

	ident := identity.ExternalIdentity{
		ExternalID:    "gh-123",
		LoginProvider: "github",
		Email:         "octo@example.com",
		Name:          "Octo Cat",
	}

	t.Run("creates profile on first sight and is idempotent", func(t *testing.T) {
		store := new(MockUserStore)
		reconciler := identity.NewIdentityReconciler(store).WithLogger(silentLogger{})

		created := &identity.UserProfile{
			ID:            uuid.New(),
			ExternalID:    ident.ExternalID,
			LoginProvider: ident.LoginProvider,
			Email:         ident.Email,
			Name:          ident.Name,
			Admin:         true,
		}

		store.On("FindByExternalIdentity", ctx, "gh-123", "github").
			Return(nil, notFound()).Once()
		store.On("CountUsers", ctx).Return(0, nil).Once()
		store.On("CreateUser", ctx, mock.Anything).Return(created, nil).Once()

		user, events, err := reconciler.GetOrCreateUser(ctx, ident)
		require.NoError(t, err)
		assert.Equal(t, created.ID, user.ID)
		assert.True(t, user.Admin)
		require.Len(t, events, 1)
		assert.Equal(t, identity.ActivityEventUserCreated, events[0].EventType)
		assert.Equal(t, created.ID.String(), events[0].UserID)

		// Second call with the same pair returns the same internal id
		// and emits nothing.
		store.On("FindByExternalIdentity", ctx, "gh-123", "github").
			Return(created, nil).Once()

		again, events, err := reconciler.GetOrCreateUser(ctx, ident)
		require.NoError(t, err)
		assert.Equal(t, user.ID, again.ID)
		assert.Empty(t, events)

		store.AssertExpectations(t)
	})

	t.Run("only the first user becomes admin", func(t *testing.T) {
		store := new(MockUserStore)
		reconciler := identity.NewIdentityReconciler(store).WithLogger(silentLogger{})

		store.On("FindByExternalIdentity", ctx, "gh-456", "github").
			Return(nil, notFound()).Once()
		store.On("CountUsers", ctx).Return(1, nil).Once()
		store.On("CreateUser", ctx, mock.MatchedBy(func(u *identity.UserProfile) bool {
			return !u.Admin
		})).Return(&identity.UserProfile{
			ID:            uuid.New(),
			ExternalID:    "gh-456",
			LoginProvider: "github",
			Email:         "second@example.com",
			Name:          "second@example.com",
		}, nil).Once()

		user, _, err := reconciler.GetOrCreateUser(ctx, identity.ExternalIdentity{
			ExternalID:    "gh-456",
			LoginProvider: "github",
			Email:         "second@example.com",
		})
		require.NoError(t, err)
		assert.False(t, user.Admin)

		store.AssertExpectations(t)
	})

	t.Run("fails with SignupDisabled and creates nothing", func(t *testing.T) {
		store := new(MockUserStore)
		reconciler := identity.NewIdentityReconciler(store).
			WithSignupDisabled(true).
			WithLogger(silentLogger{})

		store.On("FindByExternalIdentity", ctx, "gh-123", "github").
			Return(nil, notFound()).Once()

		user, events, err := reconciler.GetOrCreateUser(ctx, ident)
		assert.Nil(t, user)
		assert.Empty(t, events)
		assert.True(t, identity.IsSignupDisabled(err))

		store.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
		store.AssertExpectations(t)
	})

	t.Run("signup disabled still reconciles existing profiles", func(t *testing.T) {
		store := new(MockUserStore)
		reconciler := identity.NewIdentityReconciler(store).
			WithSignupDisabled(true).
			WithLogger(silentLogger{})

		existing := &identity.UserProfile{
			ID:            uuid.New(),
			ExternalID:    ident.ExternalID,
			LoginProvider: ident.LoginProvider,
			Email:         ident.Email,
			Name:          ident.Name,
		}

		store.On("FindByExternalIdentity", ctx, "gh-123", "github").
			Return(existing, nil).Once()

		user, _, err := reconciler.GetOrCreateUser(ctx, ident)
		require.NoError(t, err)
		assert.Equal(t, existing.ID, user.ID)

		store.AssertExpectations(t)
	})

	t.Run("re-fetches the winner after losing the create race", func(t *testing.T) {
		store := new(MockUserStore)
		reconciler := identity.NewIdentityReconciler(store).WithLogger(silentLogger{})

		winner := &identity.UserProfile{
			ID:            uuid.New(),
			ExternalID:    ident.ExternalID,
			LoginProvider: ident.LoginProvider,
			Email:         ident.Email,
			Name:          ident.Name,
		}

		store.On("FindByExternalIdentity", ctx, "gh-123", "github").
			Return(nil, notFound()).Once()
		store.On("CountUsers", ctx).Return(0, nil).Once()
		store.On("CreateUser", ctx, mock.Anything).
			Return(nil, identity.ErrDuplicateIdentity).Once()
		store.On("FindByExternalIdentity", ctx, "gh-123", "github").
			Return(winner, nil).Once()

		user, events, err := reconciler.GetOrCreateUser(ctx, ident)
		require.NoError(t, err)
		assert.Equal(t, winner.ID, user.ID)
		assert.Empty(t, events)

		store.AssertExpectations(t)
	})

	t.Run("updates stored profile when provider values drift", func(t *testing.T) {
		store := new(MockUserStore)
		reconciler := identity.NewIdentityReconciler(store).WithLogger(silentLogger{})

		stale := &identity.UserProfile{
			ID:            uuid.New(),
			ExternalID:    ident.ExternalID,
			LoginProvider: ident.LoginProvider,
			Email:         "old@example.com",
			Name:          "Old Name",
		}
		fresh := &identity.UserProfile{
			ID:            stale.ID,
			ExternalID:    ident.ExternalID,
			LoginProvider: ident.LoginProvider,
			Email:         ident.Email,
			Name:          ident.Name,
		}

		store.On("FindByExternalIdentity", ctx, "gh-123", "github").
			Return(stale, nil).Once()
		store.On("UpdateUser", ctx, mock.MatchedBy(func(u *identity.UserProfile) bool {
			return u.ID == stale.ID && u.Email == ident.Email && u.Name == ident.Name
		})).Return(fresh, nil).Once()

		user, _, err := reconciler.GetOrCreateUser(ctx, ident)
		require.NoError(t, err)
		assert.Equal(t, ident.Email, user.Email)
		assert.Equal(t, ident.Name, user.Name)
		assert.Equal(t, stale.ID, user.ID)

		store.AssertExpectations(t)
	})

	t.Run("reuses external id as internal id for credentials provider", func(t *testing.T) {
		store := new(MockUserStore)
		reconciler := identity.NewIdentityReconciler(store).WithLogger(silentLogger{})

		id, err := identity.DeriveInternalID("admin@x.com")
		require.NoError(t, err)

		credIdent := identity.ExternalIdentity{
			ExternalID:    id.String(),
			LoginProvider: identity.ProviderCredentials,
			Email:         "admin@x.com",
		}

		store.On("FindByExternalIdentity", ctx, id.String(), identity.ProviderCredentials).
			Return(nil, notFound()).Once()
		store.On("CountUsers", ctx).Return(0, nil).Once()
		store.On("CreateUser", ctx, mock.MatchedBy(func(u *identity.UserProfile) bool {
			return u.ID == id
		})).Return(&identity.UserProfile{
			ID:            id,
			ExternalID:    id.String(),
			LoginProvider: identity.ProviderCredentials,
			Email:         "admin@x.com",
			Name:          "admin@x.com",
			Admin:         true,
		}, nil).Once()

		user, _, err := reconciler.GetOrCreateUser(ctx, credIdent)
		require.NoError(t, err)
		assert.Equal(t, id, user.ID)

		store.AssertExpectations(t)
	})

	t.Run("rejects an identity without an email", func(t *testing.T) {
		store := new(MockUserStore)
		reconciler := identity.NewIdentityReconciler(store).WithLogger(silentLogger{})

		_, _, err := reconciler.GetOrCreateUser(ctx, identity.ExternalIdentity{
			ExternalID:    "gh-123",
			LoginProvider: "github",
		})
		assert.Error(t, err)

		store.AssertNotCalled(t, "FindByExternalIdentity", mock.Anything, mock.Anything, mock.Anything)
	})
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/goliatone/go-identity"
	repobun "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the bun-backed implementation of identity.UserStore.
type Users struct {
	repobun.Repository[*identity.UserProfile]
	db *bun.DB
}

var _ identity.UserStore = (*Users)(nil)

// NewUsersRepository creates a Users repository on top of db.
func NewUsersRepository(db *bun.DB) *Users {
	repo := repobun.NewRepository[*identity.UserProfile](db, repobun.ModelHandlers[*identity.UserProfile]{
		NewRecord: func() *identity.UserProfile { return &identity.UserProfile{} },
		GetID: func(u *identity.UserProfile) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *identity.UserProfile, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &Users{
		Repository: repo,
		db:         db,
	}
}

// FindByExternalIdentity implements identity.UserStore.
func (r *Users) FindByExternalIdentity(ctx context.Context, externalID, provider string) (*identity.UserProfile, error) {
	record := &identity.UserProfile{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.external_id = ?", externalID).
		Where("?TableAlias.login_provider = ?", provider).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repobun.NewRecordNotFound().
				WithMetadata(map[string]any{
					"external_id": externalID,
					"provider":    provider,
				})
		}
		return nil, err
	}

	return record, nil
}

// FindByEmail implements identity.UserStore. The credential is nil for
// provider-only accounts.
func (r *Users) FindByEmail(ctx context.Context, email string) (*identity.UserProfile, *identity.Credential, error) {
	record := &identity.UserProfile{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, repobun.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": email,
				})
		}
		return nil, nil, err
	}

	cred := &identity.Credential{}
	err = r.db.NewSelect().
		Model(cred).
		Where("?TableAlias.user_id = ?", record.ID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return record, nil, nil
		}
		return nil, nil, err
	}

	return record, cred, nil
}

// CountUsers implements identity.UserStore.
func (r *Users) CountUsers(ctx context.Context) (int, error) {
	return r.db.NewSelect().
		Model((*identity.UserProfile)(nil)).
		Count(ctx)
}

// CreateUser implements identity.UserStore. A create that hits the
// (external_id, login_provider) constraint reports
// identity.ErrDuplicateIdentity so the caller can re-fetch the winner.
func (r *Users) CreateUser(ctx context.Context, record *identity.UserProfile) (*identity.UserProfile, error) {
	prepareUserDefaults(record)

	res, err := r.db.NewInsert().
		Model(record).
		On("CONFLICT (external_id, login_provider) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, identity.ErrDuplicateIdentity
	}

	return r.FindByExternalIdentity(ctx, record.ExternalID, record.LoginProvider)
}

// UpdateUser implements identity.UserStore. Only the provider-owned
// name/email fields are written; id and admin flag are never touched.
func (r *Users) UpdateUser(ctx context.Context, record *identity.UserProfile) (*identity.UserProfile, error) {
	now := time.Now()
	record.UpdatedAt = &now

	_, err := r.db.NewUpdate().
		Model(record).
		Column("email", "name", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	updated := &identity.UserProfile{}
	err = r.db.NewSelect().
		Model(updated).
		Where("?TableAlias.id = ?", record.ID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repobun.NewRecordNotFound().
				WithMetadata(map[string]any{
					"id": record.ID.String(),
				})
		}
		return nil, err
	}

	return updated, nil
}

// SaveCredential implements identity.UserStore as an upsert keyed by
// user id.
func (r *Users) SaveCredential(ctx context.Context, record *identity.Credential) error {
	now := time.Now()
	record.UpdatedAt = &now

	_, err := r.db.NewInsert().
		Model(record).
		On("CONFLICT (user_id) DO UPDATE").
		Set("password_hash = EXCLUDED.password_hash").
		Set("change_at_next_login = EXCLUDED.change_at_next_login").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)

	return err
}

func prepareUserDefaults(record *identity.UserProfile) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

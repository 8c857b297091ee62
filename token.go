package identity

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// Claim keys written by the enricher. Everything else on the token is
// carried over untouched.
const (
	ClaimSubject          = "sub"
	ClaimEmail            = "email"
	ClaimName             = "name"
	ClaimInternalID       = "internal_id"
	ClaimExternalID       = "external_id"
	ClaimExternalUsername = "external_username"
	ClaimProvider         = "provider"
)

// ProviderAccount is the provider-side account attached to the current
// login, present only while the provider callback is in flight.
type ProviderAccount struct {
	Provider string
}

// ProviderProfile is the raw profile the provider returned with the
// login, used for its login handle when available.
type ProviderProfile struct {
	Login string
	Name  string
	Email string
}

// TokenEnricher rebuilds the session token claims on each refresh and
// projects the identity subset into the client-visible session.
type TokenEnricher struct {
	reconciler *IdentityReconciler
	dispatcher *Dispatcher
	logger     Logger
}

// NewTokenEnricher returns an enricher that reconciles through the
// given reconciler.
func NewTokenEnricher(reconciler *IdentityReconciler) *TokenEnricher {
	return &TokenEnricher{
		reconciler: reconciler,
		dispatcher: NewDispatcher(),
		logger:     defLogger{},
	}
}

// WithDispatcher sets the dispatcher that delivers reconciliation
// events after a refresh.
func (e *TokenEnricher) WithDispatcher(dispatcher *Dispatcher) *TokenEnricher {
	if dispatcher != nil {
		e.dispatcher = dispatcher
	}
	return e
}

func (e *TokenEnricher) WithLogger(logger Logger) *TokenEnricher {
	e.logger = logger
	return e
}

// Refresh rebuilds the token claims from the previous token plus the
// current provider account and profile. The previous token must carry
// `sub` and `email`; a missing one is a provider misconfiguration, not
// a login failure. All claims not owned by the enricher carry over.
func (e *TokenEnricher) Refresh(ctx context.Context, token jwt.MapClaims, account *ProviderAccount, profile *ProviderProfile) (jwt.MapClaims, error) {
	provider := ProviderCredentials
	if account != nil && account.Provider != "" {
		provider = account.Provider
	} else if prev := stringClaim(token, ClaimProvider); prev != "" {
		provider = prev
	}

	sub := stringClaim(token, ClaimSubject)
	if sub == "" {
		return nil, NewMissingClaimError(ClaimSubject)
	}

	email := stringClaim(token, ClaimEmail)
	if email == "" {
		return nil, NewMissingClaimError(ClaimEmail)
	}

	name := stringClaim(token, ClaimName)
	if name == "" {
		name = email
	}

	user, events, err := e.reconciler.GetOrCreateUser(ctx, ExternalIdentity{
		ExternalID:    sub,
		LoginProvider: provider,
		Email:         email,
		Name:          name,
	})
	if err != nil {
		e.logger.Error("token refresh reconciliation failed for provider %s: %v", provider, err)
		return nil, err
	}

	e.dispatcher.Dispatch(ctx, events)

	enriched := make(jwt.MapClaims, len(token)+4)
	for k, v := range token {
		enriched[k] = v
	}

	enriched[ClaimInternalID] = user.ID.String()
	enriched[ClaimExternalID] = sub
	enriched[ClaimProvider] = provider
	if profile != nil && profile.Login != "" {
		enriched[ClaimExternalUsername] = profile.Login
	}

	return enriched, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if claims == nil {
		return ""
	}
	if val, ok := claims[key].(string); ok {
		return val
	}
	return ""
}

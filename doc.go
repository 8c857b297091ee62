// Package identity reconciles external identities into canonical user
// records and enriches session tokens with the reconciled attributes.
//
// A login attempt, local or provider-backed, yields an ExternalIdentity.
// CredentialVerifier produces that identity for username/password logins,
// including the one-time seed administrator bootstrap. IdentityReconciler
// maps the identity to a UserProfile, creating it on first sight, and
// TokenEnricher folds the profile into the token claims on every refresh
// and projects a fixed subset into the client-visible session.
package identity

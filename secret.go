package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	fingerprintSeparator = "|"
	fingerprintSentinel  = "unset"
)

// ResolveSigningSecret returns the explicit secret when one is
// configured, otherwise derives a stable secret from the deployment
// fingerprint and logs that an autogenerated key is in use. Call once
// at process start; the result is immutable afterwards.
//
// The derived secret is reproducible by anyone who knows the
// fingerprint inputs, so the fingerprint must include values that are
// themselves secret, such as the database connection string.
func ResolveSigningSecret(logger Logger, explicit string, fingerprint ...string) string {
	if explicit != "" {
		return explicit
	}

	if logger == nil {
		logger = defLogger{}
	}

	secret := DeriveSigningSecret(fingerprint...)
	logger.Info("no signing secret configured, using derived secret %s", secret)

	return secret
}

// DeriveSigningSecret computes a hex-encoded sha256 digest over the
// ordered fingerprint components. Empty components are replaced with a
// fixed sentinel so the digest stays stable across partial configs.
func DeriveSigningSecret(fingerprint ...string) string {
	parts := make([]string, len(fingerprint))
	for i, part := range fingerprint {
		if part == "" {
			part = fingerprintSentinel
		}
		parts[i] = part
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, fingerprintSeparator)))
	return hex.EncodeToString(sum[:])
}

package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenService signs and validates the session token using the
// process-wide signing secret. The secret is computed once at startup
// via ResolveSigningSecret and is safe to read concurrently.
type TokenService struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	logger     Logger
}

// NewTokenService creates a TokenService with the given signing key.
func NewTokenService(signingKey []byte, ttl time.Duration, issuer string) *TokenService {
	return &TokenService{
		signingKey: signingKey,
		ttl:        ttl,
		issuer:     issuer,
		logger:     defLogger{},
	}
}

func (ts *TokenService) WithLogger(logger Logger) *TokenService {
	ts.logger = logger
	return ts
}

// SignClaims signs the claims with HS256, stamping issuer, iat and exp
// when not already present.
func (ts *TokenService) SignClaims(claims jwt.MapClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	now := time.Now()
	stamped := make(jwt.MapClaims, len(claims)+3)
	for k, v := range claims {
		stamped[k] = v
	}
	if _, ok := stamped["iss"]; !ok && ts.issuer != "" {
		stamped["iss"] = ts.issuer
	}
	if _, ok := stamped["iat"]; !ok {
		stamped["iat"] = jwt.NewNumericDate(now)
	}
	if _, ok := stamped["exp"]; !ok && ts.ttl > 0 {
		stamped["exp"] = jwt.NewNumericDate(now.Add(ts.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, stamped)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates a token string, returning its claims.
func (ts *TokenService) Validate(tokenString string) (jwt.MapClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 1)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token validate encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryAuth, "failed to validate token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		ts.logger.Error("token validate could not decode claims")
		return nil, errors.New("unable to decode token claims", errors.CategoryAuth)
	}

	return claims, nil
}

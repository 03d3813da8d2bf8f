package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/employee-service/internal/config"
)

var (
	ErrSecretUnconfigured   = errors.New("jwt secret is not configured")
	ErrUnsupportedAlgorithm = errors.New("unsupported jwt signing algorithm")

	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
)

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	skew   time.Duration
	now    func() time.Time
}

// NewTokenManager builds a new manager. A missing secret is a startup error.
func NewTokenManager(cfg config.AuthConfig) (*TokenManager, error) {
	if cfg.JWTSecret == "" {
		return nil, ErrSecretUnconfigured
	}
	alg := cfg.Algorithm
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg)
	}
	ttl := cfg.AccessTokenTTL()
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &TokenManager{
		secret: []byte(cfg.JWTSecret),
		method: method,
		ttl:    ttl,
		skew:   cfg.ClockSkew(),
		now:    time.Now,
	}, nil
}

// Issue signs a token for subject. A non-positive ttl uses the configured default.
func (tm *TokenManager) Issue(subject string, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = tm.ttl
	}
	now := tm.now()
	expiresAt := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(tm.method, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Validate verifies the signature and expiry and returns the subject. Errors
// are always one of ErrTokenMalformed, ErrTokenExpired or ErrTokenSignatureInvalid.
func (tm *TokenManager) Validate(tokenStr string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, tm.keyFunc,
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(tm.skew),
		jwt.WithTimeFunc(tm.now),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "", ErrTokenSignatureInvalid
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", ErrTokenExpired
	default:
		return "", ErrTokenMalformed
	}

	if claims.Subject == "" {
		return "", ErrTokenMalformed
	}
	return claims.Subject, nil
}

func (tm *TokenManager) keyFunc(token *jwt.Token) (interface{}, error) {
	if token.Method.Alg() != tm.method.Alg() {
		return nil, fmt.Errorf("unexpected signing method %q", token.Method.Alg())
	}
	return tm.secret, nil
}

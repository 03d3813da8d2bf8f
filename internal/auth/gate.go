package auth

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/employee-service/internal/domain"
	"github.com/spec-kit/employee-service/internal/observability"
	apperrors "github.com/spec-kit/employee-service/pkg/util/errorutil"
)

var (
	ErrNoCredentials   = errors.New("no credentials supplied")
	ErrInactiveAccount = errors.New("account is inactive")
	ErrForbidden       = errors.New("role not permitted")
)

const invalidCredentialsMessage = "could not validate credentials"

// Gate runs the access control pipeline: authenticate, require an active
// account, then require an admitted role. Each stage only runs when the
// previous one passed.
type Gate struct {
	tokens   *TokenManager
	resolver *IdentityResolver
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewGate wires the gate dependencies. metrics may be nil.
func NewGate(tokens *TokenManager, resolver *IdentityResolver, metrics *observability.Metrics, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{tokens: tokens, resolver: resolver, metrics: metrics, logger: logger}
}

// Check runs every stage in order. A nil allowed set skips the role stage.
func (g *Gate) Check(ctx context.Context, rawToken string, allowed RoleSet) (*domain.User, error) {
	user, err := g.Authenticate(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	if err := g.Authorize(user, allowed); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate validates the token and resolves its subject.
func (g *Gate) Authenticate(ctx context.Context, rawToken string) (*domain.User, error) {
	if rawToken == "" {
		return nil, g.reject("no_credentials", apperrors.NewUnauthorized("not authenticated", ErrNoCredentials))
	}

	subject, err := g.tokens.Validate(rawToken)
	if err != nil {
		return nil, g.reject(tokenFailureReason(err), apperrors.NewUnauthorized(invalidCredentialsMessage, err))
	}

	user, err := g.resolver.Resolve(ctx, subject)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return nil, g.reject("identity_not_found", apperrors.NewUnauthorized(invalidCredentialsMessage, err))
		}
		return nil, apperrors.NewInternalError(err)
	}
	return user, nil
}

// Authorize applies the active and role stages to an already authenticated user.
func (g *Gate) Authorize(user *domain.User, allowed RoleSet) error {
	if err := RequireActive(user); err != nil {
		return g.reject("inactive_account", err)
	}
	if allowed == nil {
		return nil
	}
	if err := RequireRole(user, allowed); err != nil {
		return g.reject("forbidden", err)
	}
	return nil
}

// RequireActive rejects users whose account is disabled.
func RequireActive(user *domain.User) error {
	if user == nil {
		return apperrors.NewUnauthorized("not authenticated", ErrNoCredentials)
	}
	if !user.IsActive {
		return apperrors.NewInactiveAccount(ErrInactiveAccount)
	}
	return nil
}

// RequireRole rejects users whose role is not in allowed.
func RequireRole(user *domain.User, allowed RoleSet) error {
	if user == nil {
		return apperrors.NewUnauthorized("not authenticated", ErrNoCredentials)
	}
	if !allowed.Contains(user.Role) {
		return apperrors.NewForbidden(ErrForbidden)
	}
	return nil
}

func (g *Gate) reject(reason string, err error) error {
	g.metrics.RecordAuthFailure(reason)
	g.logger.Debug("access denied", zap.String("reason", reason), zap.Error(err))
	return err
}

func tokenFailureReason(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, ErrTokenSignatureInvalid):
		return "token_signature_invalid"
	default:
		return "token_malformed"
	}
}

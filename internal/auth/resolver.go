package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/spec-kit/employee-service/internal/domain"
	"github.com/spec-kit/employee-service/internal/repository"
)

// ErrIdentityNotFound is returned when a token subject has no matching user.
var ErrIdentityNotFound = errors.New("identity not found")

// IdentityResolver maps a token subject to the current stored user.
type IdentityResolver struct {
	users repository.UserRepository
}

// NewIdentityResolver constructs a resolver.
func NewIdentityResolver(users repository.UserRepository) *IdentityResolver {
	return &IdentityResolver{users: users}
}

// Resolve looks the subject up by exact email match.
func (r *IdentityResolver) Resolve(ctx context.Context, subject string) (*domain.User, error) {
	user, err := r.users.GetByEmail(ctx, subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, fmt.Errorf("resolve identity: %w", err)
	}
	return user, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/employee-service/internal/audit"
	"github.com/spec-kit/employee-service/internal/auth"
	"github.com/spec-kit/employee-service/internal/domain"
	"github.com/spec-kit/employee-service/internal/repository"
	apperrors "github.com/spec-kit/employee-service/pkg/util/errorutil"
)

const invalidLoginMessage = "incorrect email or password"

// LoginThrottle tracks failed logins. Implementations must fail open.
type LoginThrottle interface {
	Locked(ctx context.Context, email string) bool
	RecordFailure(ctx context.Context, email string)
	Reset(ctx context.Context, email string)
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	store    repository.Transactor
	hasher   *auth.PasswordHasher
	tokens   *auth.TokenManager
	recorder *audit.Recorder
	throttle LoginThrottle
	logger   *zap.Logger

	dummyOnce sync.Once
	dummyHash string
}

// AuthDependencies encapsulates the auth service collaborators. Throttle is optional.
type AuthDependencies struct {
	Store    repository.Transactor
	Hasher   *auth.PasswordHasher
	Tokens   *auth.TokenManager
	Recorder *audit.Recorder
	Throttle LoginThrottle
	Logger   *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		store:    deps.Store,
		hasher:   deps.Hasher,
		tokens:   deps.Tokens,
		recorder: deps.Recorder,
		throttle: deps.Throttle,
		logger:   logger,
	}
}

// RegisterInput carries a new account.
type RegisterInput struct {
	Email    string
	Password string
	FullName *string
}

// Login exchanges credentials for a bearer token. Unknown email, wrong
// password and inactive account all produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, time.Time, error) {
	if s.throttle != nil && s.throttle.Locked(ctx, email) {
		return "", time.Time{}, apperrors.NewTooManyRequests("too many failed login attempts, try again later")
	}

	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return "", time.Time{}, fmt.Errorf("load user: %w", err)
		}
		// keep response timing close to the wrong-password path
		s.hasher.Verify(password, s.dummy())
		return "", time.Time{}, s.loginFailed(ctx, email)
	}

	if !s.hasher.Verify(password, user.PasswordHash) || !user.IsActive {
		return "", time.Time{}, s.loginFailed(ctx, email)
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.upgradeHash(ctx, user, password)
	}
	if s.throttle != nil {
		s.throttle.Reset(ctx, email)
	}

	token, exp, err := s.tokens.Issue(user.Email, 0)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("issue token: %w", err)
	}
	return token, exp, nil
}

func (s *AuthService) loginFailed(ctx context.Context, email string) error {
	if s.throttle != nil {
		s.throttle.RecordFailure(ctx, email)
	}
	return apperrors.NewUnauthorized(invalidLoginMessage, nil)
}

func (s *AuthService) upgradeHash(ctx context.Context, user *domain.User, password string) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Warn("password rehash failed", zap.Int64("user_id", user.ID), zap.Error(err))
		return
	}
	if err := s.store.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		s.logger.Warn("password rehash not stored", zap.Int64("user_id", user.ID), zap.Error(err))
		return
	}
	user.PasswordHash = hash
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("timing-equalizer")
	})
	return s.dummyHash
}

// Register creates an account. The first account becomes ADMIN, later ones EMPLOYEE.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Email:        input.Email,
		PasswordHash: hash,
		FullName:     input.FullName,
		Role:         domain.RoleEmployee,
		IsActive:     true,
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if _, err := tx.Users().GetByEmail(ctx, input.Email); err == nil {
			return emailRegistered()
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		count, err := tx.Users().Count(ctx)
		if err != nil {
			return err
		}
		if count == 0 {
			user.Role = domain.RoleAdmin
		}

		if err := tx.Users().Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return emailRegistered()
			}
			return err
		}

		_, err = s.recorder.Record(ctx, tx, user, audit.Entry{
			Action:       audit.ActionRegisterUser,
			ResourceType: audit.ResourceUser,
			ResourceID:   strconv.FormatInt(user.ID, 10),
			Details:      fmt.Sprintf("Registered user %s as %s", user.Email, user.Role),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// SeedAdmin creates an active ADMIN when email is not registered yet. It
// reports whether a user was created; an existing account is left untouched.
func (s *AuthService) SeedAdmin(ctx context.Context, email, password string, fullName *string) (*domain.User, bool, error) {
	existing, err := s.store.Users().GetByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, false, fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Role:         domain.RoleAdmin,
		IsActive:     true,
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		_, err := s.recorder.Record(ctx, tx, nil, audit.Entry{
			Action:       audit.ActionSeedUser,
			ResourceType: audit.ResourceUser,
			ResourceID:   strconv.FormatInt(user.ID, 10),
			Details:      "Seeded admin " + user.Email,
		})
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func emailRegistered() error {
	return apperrors.NewConflict("email already registered", nil)
}

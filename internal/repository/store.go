package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
)

const uniqueViolation = "23505"

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store groups the repositories bound to one session (the pool or a transaction).
type Store interface {
	Users() UserRepository
	Employees() EmployeeRepository
	ActivityLogs() ActivityLogRepository
}

// Transactor is a Store that can also open a transaction. Everything done
// through the Store passed to fn commits together or not at all.
type Transactor interface {
	Store
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

type pgStore struct {
	db DBTX
}

// NewStore binds all repositories to db.
func NewStore(db DBTX) Store {
	return &pgStore{db: db}
}

func (s *pgStore) Users() UserRepository               { return NewUserRepository(s.db) }
func (s *pgStore) Employees() EmployeeRepository       { return NewEmployeeRepository(s.db) }
func (s *pgStore) ActivityLogs() ActivityLogRepository { return NewActivityLogRepository(s.db) }

// PostgresTransactor opens pgx transactions on a pool.
type PostgresTransactor struct {
	Store
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresTransactor constructs a Transactor backed by pool.
func NewPostgresTransactor(pool *pgxpool.Pool, logger *zap.Logger) *PostgresTransactor {
	return &PostgresTransactor{Store: NewStore(pool), pool: pool, logger: logger}
}

// WithinTx runs fn in a transaction and commits when fn returns nil.
func (t *PostgresTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			t.logger.Error("failed to rollback transaction", zap.Error(err))
		}
	}()

	if err := fn(ctx, NewStore(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return errors.Join(ErrDuplicate, err)
	}
	return err
}

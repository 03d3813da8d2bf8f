//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/employee-service/internal/domain"
	"github.com/spec-kit/employee-service/internal/persistence"
	"github.com/spec-kit/employee-service/internal/repository"
	"github.com/spec-kit/employee-service/internal/testutil"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	ctx := context.Background()
	container, err := testutil.NewPostgresContainer(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "postgres container: %v\n", err)
		return 1
	}
	defer func() { _ = container.Terminate(ctx) }()

	testPool, err = pgxpool.New(ctx, container.ConnectionString)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		return 1
	}
	defer testPool.Close()

	if err := persistence.RunMigrations(ctx, testPool, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		return 1
	}
	return m.Run()
}

func resetTables(t *testing.T) {
	t.Helper()
	// TRUNCATE does not fire the row-level append-only trigger
	_, err := testPool.Exec(context.Background(), `TRUNCATE activity_logs, employees, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
}

func strPtr(s string) *string { return &s }

func TestUserRepository_CreateAndLookup(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	store := repository.NewStore(testPool)

	u := &domain.User{Email: "admin@example.com", PasswordHash: "x", Role: domain.RoleAdmin, IsActive: true}
	require.NoError(t, store.Users().Create(ctx, u))
	assert.NotZero(t, u.ID)

	got, err := store.Users().GetByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, domain.RoleAdmin, got.Role)

	_, err = store.Users().GetByEmail(ctx, "ADMIN@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = store.Users().Create(ctx, &domain.User{Email: "admin@example.com", PasswordHash: "y", Role: domain.RoleEmployee})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	n, err := store.Users().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestEmployeeRepository_ListFiltersAndPages(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	store := repository.NewStore(testPool)

	for i := 0; i < 4; i++ {
		e := &domain.Employee{FirstName: "E", LastName: fmt.Sprint(i), IsActive: i != 2}
		require.NoError(t, store.Employees().Create(ctx, e))
	}

	active := true
	page, err := store.Employees().List(ctx, repository.EmployeeFilter{IsActive: &active, Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "1", page[0].LastName)
	assert.Equal(t, "3", page[1].LastName)

	inactive := false
	gone, err := store.Employees().List(ctx, repository.EmployeeFilter{IsActive: &inactive, Limit: 10})
	require.NoError(t, err)
	require.Len(t, gone, 1)
	assert.Equal(t, "2", gone[0].LastName)

	err = store.Employees().Update(ctx, &domain.Employee{ID: 999, FirstName: "x", LastName: "y"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestEmployeeRepository_UniqueEmailAllowsManyNulls(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	store := repository.NewStore(testPool)

	require.NoError(t, store.Employees().Create(ctx, &domain.Employee{FirstName: "a", LastName: "a", IsActive: true}))
	require.NoError(t, store.Employees().Create(ctx, &domain.Employee{FirstName: "b", LastName: "b", IsActive: true}))

	require.NoError(t, store.Employees().Create(ctx, &domain.Employee{FirstName: "c", LastName: "c", Email: strPtr("c@example.com")}))
	err := store.Employees().Create(ctx, &domain.Employee{FirstName: "d", LastName: "d", Email: strPtr("c@example.com")})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestPostgresTransactor_RollsBackOnError(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	tx := repository.NewPostgresTransactor(testPool, zap.NewNop())
	boom := errors.New("boom")

	err := tx.WithinTx(ctx, func(ctx context.Context, s repository.Store) error {
		if err := s.Employees().Create(ctx, &domain.Employee{FirstName: "a", LastName: "b", IsActive: true}); err != nil {
			return err
		}
		if err := s.ActivityLogs().Append(ctx, &domain.ActivityLog{Action: "create_employee"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	active := true
	list, err := tx.Employees().List(ctx, repository.EmployeeFilter{IsActive: &active, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, list)

	logs, err := tx.ActivityLogs().ListByResource(ctx, "employee", "1")
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestActivityLogs_AppendOnly(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	store := repository.NewStore(testPool)

	u := &domain.User{Email: "a@example.com", PasswordHash: "x", Role: domain.RoleAdmin, IsActive: true}
	require.NoError(t, store.Users().Create(ctx, u))
	entry := &domain.ActivityLog{UserID: &u.ID, Action: "create_employee", ResourceType: strPtr("employee"), ResourceID: strPtr("1")}
	require.NoError(t, store.ActivityLogs().Append(ctx, entry))

	_, err := testPool.Exec(ctx, `UPDATE activity_logs SET details = 'tampered' WHERE id = $1`, entry.ID)
	assert.Error(t, err)
	_, err = testPool.Exec(ctx, `DELETE FROM activity_logs WHERE id = $1`, entry.ID)
	assert.Error(t, err)

	// deleting the actor only clears the reference
	_, err = testPool.Exec(ctx, `DELETE FROM users WHERE id = $1`, u.ID)
	require.NoError(t, err)

	logs, err := store.ActivityLogs().ListByResource(ctx, "employee", "1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Nil(t, logs[0].UserID)
	assert.Equal(t, "create_employee", logs[0].Action)
}

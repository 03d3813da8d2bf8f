package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/employee-service/internal/domain"
	"github.com/spec-kit/employee-service/internal/repository"
)

// MemStore is an in-memory repository.Transactor. A transaction works on a
// private copy of the data which replaces the committed data only when the
// callback succeeds, so rollback semantics match the Postgres implementation.
type MemStore struct {
	mu        sync.RWMutex
	txMu      sync.Mutex
	committed *state

	failMu     sync.Mutex
	failCommit error
	failAppend error
}

type state struct {
	users     map[int64]domain.User
	employees map[int64]domain.Employee
	logs      []domain.ActivityLog
	nextUser  int64
	nextEmp   int64
	nextLog   int64
}

func newState() *state {
	return &state{
		users:     make(map[int64]domain.User),
		employees: make(map[int64]domain.Employee),
	}
}

func (s *state) clone() *state {
	c := &state{
		users:     make(map[int64]domain.User, len(s.users)),
		employees: make(map[int64]domain.Employee, len(s.employees)),
		logs:      append([]domain.ActivityLog(nil), s.logs...),
		nextUser:  s.nextUser,
		nextEmp:   s.nextEmp,
		nextLog:   s.nextLog,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.employees {
		c.employees[k] = v
	}
	return c
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{committed: newState()}
}

// FailNextCommit makes the next transaction fail with err after its callback succeeded.
func (m *MemStore) FailNextCommit(err error) {
	m.failMu.Lock()
	defer m.failMu.Unlock()
	m.failCommit = err
}

// FailNextAppend makes the next activity log append fail with err.
func (m *MemStore) FailNextAppend(err error) {
	m.failMu.Lock()
	defer m.failMu.Unlock()
	m.failAppend = err
}

func (m *MemStore) takeFailure(target *error) error {
	m.failMu.Lock()
	defer m.failMu.Unlock()
	err := *target
	*target = nil
	return err
}

// AllActivityLogs returns every committed audit row in insertion order.
func (m *MemStore) AllActivityLogs() []domain.ActivityLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.ActivityLog(nil), m.committed.logs...)
}

// EmployeeCount returns the number of committed employee rows.
func (m *MemStore) EmployeeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.committed.employees)
}

func (m *MemStore) Users() repository.UserRepository {
	return &memUsers{v: committedView{m}}
}

func (m *MemStore) Employees() repository.EmployeeRepository {
	return &memEmployees{v: committedView{m}}
}

func (m *MemStore) ActivityLogs() repository.ActivityLogRepository {
	return &memActivityLogs{v: committedView{m}, m: m}
}

// WithinTx serializes transactions; readers outside the transaction keep
// seeing the last committed data.
func (m *MemStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.RLock()
	working := m.committed.clone()
	m.mu.RUnlock()

	v := &txView{s: working}
	tx := &memTxStore{
		users:     &memUsers{v: v},
		employees: &memEmployees{v: v},
		logs:      &memActivityLogs{v: v, m: m},
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := m.takeFailure(&m.failCommit); err != nil {
		return err
	}

	m.mu.Lock()
	m.committed = working
	m.mu.Unlock()
	return nil
}

type memTxStore struct {
	users     *memUsers
	employees *memEmployees
	logs      *memActivityLogs
}

func (s *memTxStore) Users() repository.UserRepository               { return s.users }
func (s *memTxStore) Employees() repository.EmployeeRepository       { return s.employees }
func (s *memTxStore) ActivityLogs() repository.ActivityLogRepository { return s.logs }

type view interface {
	read(fn func(s *state))
	write(fn func(s *state) error) error
}

type committedView struct {
	m *MemStore
}

func (v committedView) read(fn func(s *state)) {
	v.m.mu.RLock()
	defer v.m.mu.RUnlock()
	fn(v.m.committed)
}

// write applies a single statement atomically, like an autocommit query.
func (v committedView) write(fn func(s *state) error) error {
	v.m.txMu.Lock()
	defer v.m.txMu.Unlock()
	v.m.mu.Lock()
	defer v.m.mu.Unlock()

	working := v.m.committed.clone()
	if err := fn(working); err != nil {
		return err
	}
	v.m.committed = working
	return nil
}

type txView struct {
	s *state
}

func (v *txView) read(fn func(s *state)) { fn(v.s) }

func (v *txView) write(fn func(s *state) error) error { return fn(v.s) }

type memUsers struct {
	v view
}

func (r *memUsers) Create(_ context.Context, user *domain.User) error {
	return r.v.write(func(s *state) error {
		for _, u := range s.users {
			if u.Email == user.Email {
				return repository.ErrDuplicate
			}
		}
		s.nextUser++
		now := time.Now().UTC()
		user.ID = s.nextUser
		user.CreatedAt = now
		user.UpdatedAt = now
		s.users[user.ID] = *user
		return nil
	})
}

func (r *memUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	var (
		found domain.User
		ok    bool
	)
	r.v.read(func(s *state) { found, ok = s.users[id] })
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &found, nil
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	var found *domain.User
	r.v.read(func(s *state) {
		for _, u := range s.users {
			if u.Email == email {
				u := u
				found = &u
				return
			}
		}
	})
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (r *memUsers) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	return r.v.write(func(s *state) error {
		u, ok := s.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		u.PasswordHash = hash
		u.UpdatedAt = time.Now().UTC()
		s.users[id] = u
		return nil
	})
}

func (r *memUsers) Count(_ context.Context) (int64, error) {
	var n int64
	r.v.read(func(s *state) { n = int64(len(s.users)) })
	return n, nil
}

type memEmployees struct {
	v view
}

func emailTaken(s *state, email *string, exceptID int64) bool {
	if email == nil {
		return false
	}
	for id, e := range s.employees {
		if id != exceptID && e.Email != nil && *e.Email == *email {
			return true
		}
	}
	return false
}

func (r *memEmployees) Create(_ context.Context, employee *domain.Employee) error {
	return r.v.write(func(s *state) error {
		if emailTaken(s, employee.Email, 0) {
			return repository.ErrDuplicate
		}
		s.nextEmp++
		now := time.Now().UTC()
		employee.ID = s.nextEmp
		employee.CreatedAt = now
		employee.UpdatedAt = now
		s.employees[employee.ID] = *employee
		return nil
	})
}

func (r *memEmployees) Update(_ context.Context, employee *domain.Employee) error {
	return r.v.write(func(s *state) error {
		current, ok := s.employees[employee.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if emailTaken(s, employee.Email, employee.ID) {
			return repository.ErrDuplicate
		}
		employee.CreatedAt = current.CreatedAt
		employee.CreatedByID = current.CreatedByID
		employee.UpdatedAt = time.Now().UTC()
		s.employees[employee.ID] = *employee
		return nil
	})
}

func (r *memEmployees) GetByID(_ context.Context, id int64) (*domain.Employee, error) {
	var (
		found domain.Employee
		ok    bool
	)
	r.v.read(func(s *state) { found, ok = s.employees[id] })
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &found, nil
}

func (r *memEmployees) GetByEmail(_ context.Context, email string) (*domain.Employee, error) {
	var found *domain.Employee
	r.v.read(func(s *state) {
		for _, e := range s.employees {
			if e.Email != nil && *e.Email == email {
				e := e
				found = &e
				return
			}
		}
	})
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (r *memEmployees) List(_ context.Context, filter repository.EmployeeFilter) ([]domain.Employee, error) {
	out := make([]domain.Employee, 0)
	r.v.read(func(s *state) {
		for _, e := range s.employees {
			if filter.IsActive != nil && e.IsActive != *filter.IsActive {
				continue
			}
			out = append(out, e)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []domain.Employee{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

type memActivityLogs struct {
	v view
	m *MemStore
}

func (r *memActivityLogs) Append(_ context.Context, entry *domain.ActivityLog) error {
	if err := r.m.takeFailure(&r.m.failAppend); err != nil {
		return err
	}
	return r.v.write(func(s *state) error {
		s.nextLog++
		entry.ID = s.nextLog
		entry.CreatedAt = time.Now().UTC()
		s.logs = append(s.logs, *entry)
		return nil
	})
}

func (r *memActivityLogs) ListByResource(_ context.Context, resourceType, resourceID string) ([]domain.ActivityLog, error) {
	var out []domain.ActivityLog
	r.v.read(func(s *state) {
		for _, l := range s.logs {
			if l.ResourceType != nil && *l.ResourceType == resourceType &&
				l.ResourceID != nil && *l.ResourceID == resourceID {
				out = append(out, l)
			}
		}
	})
	return out, nil
}

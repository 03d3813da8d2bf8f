package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/employee-service/internal/audit"
	"github.com/spec-kit/employee-service/internal/auth"
	"github.com/spec-kit/employee-service/internal/domain"
	"github.com/spec-kit/employee-service/internal/events"
	"github.com/spec-kit/employee-service/internal/repository"
	apperrors "github.com/spec-kit/employee-service/pkg/util/errorutil"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// EmployeeService implements gated, audited employee mutations.
type EmployeeService struct {
	store      repository.Transactor
	gate       *auth.Gate
	recorder   *audit.Recorder
	dispatcher events.Dispatcher
	allowed    auth.RoleSet
	logger     *zap.Logger
	now        func() time.Time
}

// EmployeeDependencies bundles collaborators. Dispatcher is optional.
type EmployeeDependencies struct {
	Store      repository.Transactor
	Gate       *auth.Gate
	Recorder   *audit.Recorder
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewEmployeeService builds the service. Every operation admits auth.EmployeeManagers.
func NewEmployeeService(deps EmployeeDependencies) *EmployeeService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmployeeService{
		store:      deps.Store,
		gate:       deps.Gate,
		recorder:   deps.Recorder,
		dispatcher: deps.Dispatcher,
		allowed:    auth.EmployeeManagers,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateEmployeeInput holds the fields of a new employee. IsActive defaults to true.
type CreateEmployeeInput struct {
	FirstName  string
	LastName   string
	Email      *string
	Department *string
	Position   *string
	IsActive   *bool
	HiredAt    *time.Time
}

// UpdateEmployeeInput is a partial update: nil fields are left untouched and
// an empty string clears an optional text field. ClearHiredAt unsets the hire
// date and wins over HiredAt.
type UpdateEmployeeInput struct {
	FirstName    *string
	LastName     *string
	Email        *string
	Department   *string
	Position     *string
	IsActive     *bool
	HiredAt      *time.Time
	ClearHiredAt bool
}

func (in UpdateEmployeeInput) empty() bool {
	return in.FirstName == nil && in.LastName == nil && in.Email == nil &&
		in.Department == nil && in.Position == nil && in.IsActive == nil &&
		in.HiredAt == nil && !in.ClearHiredAt
}

// ListEmployeesInput holds list parameters. A nil IsActive lists active
// employees and a nil Limit uses DefaultListLimit.
type ListEmployeesInput struct {
	IsActive *bool
	Limit    *int
	Offset   int
}

func (s *EmployeeService) authorize(actor *domain.User) error {
	return s.gate.Authorize(actor, s.allowed)
}

// Create inserts an employee and its audit entry in one transaction.
func (s *EmployeeService) Create(ctx context.Context, actor *domain.User, input CreateEmployeeInput) (*domain.Employee, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	createdBy := actor.ID
	employee := &domain.Employee{
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		Email:       nullable(input.Email),
		Department:  nullable(input.Department),
		Position:    nullable(input.Position),
		IsActive:    active,
		HiredAt:     input.HiredAt,
		CreatedByID: &createdBy,
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := ensureEmailAvailable(ctx, tx, employee.Email, 0); err != nil {
			return err
		}
		if err := tx.Employees().Create(ctx, employee); err != nil {
			return translateEmployeeWrite(err)
		}
		_, err := s.recorder.Record(ctx, tx, actor, audit.Entry{
			Action:       audit.ActionCreateEmployee,
			ResourceType: audit.ResourceEmployee,
			ResourceID:   employeeID(employee),
			Details:      fmt.Sprintf("Created employee %s %s (id %d)", employee.FirstName, employee.LastName, employee.ID),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventEmployeeCreated, employee, actor, nil)
	return employee, nil
}

// Get returns one employee. Reads are not audited.
func (s *EmployeeService) Get(ctx context.Context, actor *domain.User, id int64) (*domain.Employee, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	employee, err := s.store.Employees().GetByID(ctx, id)
	if err != nil {
		return nil, translateEmployeeRead(err)
	}
	return employee, nil
}

// List returns a page of employees ordered by id.
func (s *EmployeeService) List(ctx context.Context, actor *domain.User, input ListEmployeesInput) ([]domain.Employee, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}

	filter, err := listFilter(input)
	if err != nil {
		return nil, err
	}
	employees, err := s.store.Employees().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	return employees, nil
}

func listFilter(input ListEmployeesInput) (repository.EmployeeFilter, error) {
	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	limit := DefaultListLimit
	if input.Limit != nil {
		limit = *input.Limit
	}

	details := map[string]any{}
	if limit < 1 || limit > MaxListLimit {
		details["limit"] = fmt.Sprintf("must be between 1 and %d", MaxListLimit)
	}
	if input.Offset < 0 {
		details["skip"] = "must be greater than or equal to 0"
	}
	if len(details) > 0 {
		return repository.EmployeeFilter{}, apperrors.NewValidationError("invalid pagination", details)
	}
	return repository.EmployeeFilter{IsActive: &active, Limit: limit, Offset: input.Offset}, nil
}

// Update merges the supplied fields and records which ones were touched. An
// update that supplies no field is rejected.
func (s *EmployeeService) Update(ctx context.Context, actor *domain.User, id int64, input UpdateEmployeeInput) (*domain.Employee, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	if input.empty() {
		return nil, apperrors.NewValidationError("no fields to update", nil)
	}

	var (
		employee *domain.Employee
		touched  []string
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		current, err := tx.Employees().GetByID(ctx, id)
		if err != nil {
			return translateEmployeeRead(err)
		}

		previousEmail := current.Email
		touched = applyUpdate(current, input)
		if input.Email != nil && !sameString(previousEmail, current.Email) {
			if err := ensureEmailAvailable(ctx, tx, current.Email, current.ID); err != nil {
				return err
			}
		}

		if err := tx.Employees().Update(ctx, current); err != nil {
			return translateEmployeeWrite(err)
		}
		employee = current

		_, err = s.recorder.Record(ctx, tx, actor, audit.Entry{
			Action:       audit.ActionUpdateEmployee,
			ResourceType: audit.ResourceEmployee,
			ResourceID:   employeeID(current),
			Details:      "Updated employee: " + strings.Join(touched, ", "),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventEmployeeUpdated, employee, actor, events.EmployeeUpdatedPayload{Fields: touched})
	return employee, nil
}

// Delete soft-deletes: the row stays, is_active becomes false.
func (s *EmployeeService) Delete(ctx context.Context, actor *domain.User, id int64) error {
	if err := s.authorize(actor); err != nil {
		return err
	}

	var employee *domain.Employee
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		current, err := tx.Employees().GetByID(ctx, id)
		if err != nil {
			return translateEmployeeRead(err)
		}
		current.IsActive = false
		if err := tx.Employees().Update(ctx, current); err != nil {
			return translateEmployeeWrite(err)
		}
		employee = current

		_, err = s.recorder.Record(ctx, tx, actor, audit.Entry{
			Action:       audit.ActionDeleteEmployee,
			ResourceType: audit.ResourceEmployee,
			ResourceID:   employeeID(current),
			Details:      "Soft deleted (is_active = false)",
		})
		return err
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.EventEmployeeDeactivated, employee, actor, nil)
	return nil
}

// applyUpdate copies the non-nil fields of input onto e and returns their
// names in declaration order.
func applyUpdate(e *domain.Employee, input UpdateEmployeeInput) []string {
	touched := make([]string, 0, 7)
	if input.FirstName != nil {
		e.FirstName = *input.FirstName
		touched = append(touched, "first_name")
	}
	if input.LastName != nil {
		e.LastName = *input.LastName
		touched = append(touched, "last_name")
	}
	if input.Email != nil {
		e.Email = nullable(input.Email)
		touched = append(touched, "email")
	}
	if input.Department != nil {
		e.Department = nullable(input.Department)
		touched = append(touched, "department")
	}
	if input.Position != nil {
		e.Position = nullable(input.Position)
		touched = append(touched, "position")
	}
	if input.IsActive != nil {
		e.IsActive = *input.IsActive
		touched = append(touched, "is_active")
	}
	switch {
	case input.ClearHiredAt:
		e.HiredAt = nil
		touched = append(touched, "hired_at")
	case input.HiredAt != nil:
		hired := *input.HiredAt
		e.HiredAt = &hired
		touched = append(touched, "hired_at")
	}
	return touched
}

func ensureEmailAvailable(ctx context.Context, tx repository.Store, email *string, selfID int64) error {
	if email == nil {
		return nil
	}
	existing, err := tx.Employees().GetByEmail(ctx, *email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("check employee email: %w", err)
	case existing.ID != selfID:
		return employeeEmailConflict(*email)
	default:
		return nil
	}
}

func employeeEmailConflict(email string) error {
	return apperrors.NewConflict("employee with this email already exists", map[string]any{"email": email})
}

func translateEmployeeRead(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("employee", nil)
	}
	return fmt.Errorf("load employee: %w", err)
}

// translateEmployeeWrite maps a unique violation that slipped past the
// pre-check (a concurrent insert) to the same conflict.
func translateEmployeeWrite(err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict("employee with this email already exists", nil)
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound("employee", nil)
	default:
		return fmt.Errorf("write employee: %w", err)
	}
}

func (s *EmployeeService) publish(ctx context.Context, eventType events.EventType, e *domain.Employee, actor *domain.User, payload any) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		EmployeeID: e.ID,
		Timestamp:  s.now().UTC(),
		Payload:    payload,
	}
	if actor != nil {
		id := actor.ID
		event.ActorID = &id
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("employee event handler failed", zap.String("type", string(eventType)), zap.Error(err))
	}
}

func employeeID(e *domain.Employee) string {
	return strconv.FormatInt(e.ID, 10)
}

// nullable treats an empty string like an absent value.
func nullable(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/spec-kit/employee-service/internal/domain"
)

// EmployeeFilter captures list parameters.
type EmployeeFilter struct {
	IsActive *bool
	Limit    int
	Offset   int
}

// EmployeeRepository encapsulates employee persistence.
type EmployeeRepository interface {
	Create(ctx context.Context, employee *domain.Employee) error
	Update(ctx context.Context, employee *domain.Employee) error
	GetByID(ctx context.Context, id int64) (*domain.Employee, error)
	GetByEmail(ctx context.Context, email string) (*domain.Employee, error)
	List(ctx context.Context, filter EmployeeFilter) ([]domain.Employee, error)
}

type employeeRepository struct {
	db DBTX
}

// NewEmployeeRepository instantiates repository.
func NewEmployeeRepository(db DBTX) EmployeeRepository {
	return &employeeRepository{db: db}
}

const employeeColumns = `id, first_name, last_name, email, department, position, is_active,
               hired_at, created_by_id, created_at, updated_at`

func (r *employeeRepository) Create(ctx context.Context, employee *domain.Employee) error {
	const query = `
        INSERT INTO employees (first_name, last_name, email, department, position, is_active, hired_at, created_by_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		employee.FirstName,
		employee.LastName,
		employee.Email,
		employee.Department,
		employee.Position,
		employee.IsActive,
		employee.HiredAt,
		employee.CreatedByID,
	).Scan(&employee.ID, &employee.CreatedAt, &employee.UpdatedAt)
	return translateError(err)
}

func (r *employeeRepository) Update(ctx context.Context, employee *domain.Employee) error {
	const query = `
        UPDATE employees SET first_name=$1, last_name=$2, email=$3, department=$4, position=$5,
            is_active=$6, hired_at=$7, updated_at=NOW()
        WHERE id=$8
        RETURNING updated_at`
	err := r.db.QueryRow(ctx, query,
		employee.FirstName,
		employee.LastName,
		employee.Email,
		employee.Department,
		employee.Position,
		employee.IsActive,
		employee.HiredAt,
		employee.ID,
	).Scan(&employee.UpdatedAt)
	return translateError(err)
}

func (r *employeeRepository) GetByID(ctx context.Context, id int64) (*domain.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *employeeRepository) GetByEmail(ctx context.Context, email string) (*domain.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE email=$1`
	return r.fetchSingle(ctx, query, email)
}

func (r *employeeRepository) List(ctx context.Context, filter EmployeeFilter) ([]domain.Employee, error) {
	base := `SELECT ` + employeeColumns + ` FROM employees`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		clauses = append(clauses, fmt.Sprintf("is_active=$%d", len(args)))
	}

	query := base + " WHERE " + strings.Join(clauses, " AND ") + " ORDER BY id ASC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	employees := make([]domain.Employee, 0)
	for rows.Next() {
		var e domain.Employee
		if err := scanEmployee(rows, &e); err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

func (r *employeeRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Employee, error) {
	var employee domain.Employee
	if err := scanEmployee(r.db.QueryRow(ctx, query, arg), &employee); err != nil {
		return nil, translateError(err)
	}
	return &employee, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner, e *domain.Employee) error {
	return row.Scan(
		&e.ID,
		&e.FirstName,
		&e.LastName,
		&e.Email,
		&e.Department,
		&e.Position,
		&e.IsActive,
		&e.HiredAt,
		&e.CreatedByID,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
}

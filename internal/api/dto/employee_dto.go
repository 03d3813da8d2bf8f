package dto

import (
	"time"

	"github.com/spec-kit/employee-service/internal/domain"
	"github.com/spec-kit/employee-service/internal/service"
	apperrors "github.com/spec-kit/employee-service/pkg/util/errorutil"
)

// CreateEmployeeRequest payload. hired_at is a calendar date (YYYY-MM-DD).
type CreateEmployeeRequest struct {
	FirstName  string  `json:"first_name" validate:"required,max=100"`
	LastName   string  `json:"last_name" validate:"required,max=100"`
	Email      *string `json:"email" validate:"omitempty,email,max=255"`
	Department *string `json:"department" validate:"omitempty,max=100"`
	Position   *string `json:"position" validate:"omitempty,max=100"`
	IsActive   *bool   `json:"is_active"`
	HiredAt    *string `json:"hired_at" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateEmployeeRequest is a partial update. Omitted or null fields are left
// untouched; an empty string clears email, department, position or hired_at.
type UpdateEmployeeRequest struct {
	FirstName  *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName   *string `json:"last_name" validate:"omitempty,min=1,max=100"`
	Email      *string `json:"email" validate:"omitempty,email,max=255"`
	Department *string `json:"department" validate:"omitempty,max=100"`
	Position   *string `json:"position" validate:"omitempty,max=100"`
	IsActive   *bool   `json:"is_active"`
	HiredAt    *string `json:"hired_at" validate:"omitempty,datetime=2006-01-02"`
}

// EmployeeResponse is the public view of an employee.
type EmployeeResponse struct {
	ID          int64     `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       *string   `json:"email"`
	Department  *string   `json:"department"`
	Position    *string   `json:"position"`
	IsActive    bool      `json:"is_active"`
	HiredAt     *string   `json:"hired_at"`
	CreatedByID *int64    `json:"created_by_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks the request. An empty email or hired_at means "none" and
// skips the format rules.
func (r CreateEmployeeRequest) Validate() error {
	r.Email = nonBlank(r.Email)
	r.HiredAt = nonBlank(r.HiredAt)
	return Validate(r)
}

// Validate checks the request. An empty email or hired_at clears the field
// and skips the format rules.
func (r UpdateEmployeeRequest) Validate() error {
	r.Email = nonBlank(r.Email)
	r.HiredAt = nonBlank(r.HiredAt)
	return Validate(r)
}

// ToInput converts a validated request.
func (r CreateEmployeeRequest) ToInput() (service.CreateEmployeeInput, error) {
	hired, err := parseDate(r.HiredAt)
	if err != nil {
		return service.CreateEmployeeInput{}, err
	}
	return service.CreateEmployeeInput{
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		Email:      r.Email,
		Department: r.Department,
		Position:   r.Position,
		IsActive:   r.IsActive,
		HiredAt:    hired,
	}, nil
}

// ToInput converts a validated request.
func (r UpdateEmployeeRequest) ToInput() (service.UpdateEmployeeInput, error) {
	hired, err := parseDate(r.HiredAt)
	if err != nil {
		return service.UpdateEmployeeInput{}, err
	}
	return service.UpdateEmployeeInput{
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Email:        r.Email,
		Department:   r.Department,
		Position:     r.Position,
		IsActive:     r.IsActive,
		HiredAt:      hired,
		ClearHiredAt: r.HiredAt != nil && *r.HiredAt == "",
	}, nil
}

// NewEmployeeResponse maps a domain employee.
func NewEmployeeResponse(e *domain.Employee) EmployeeResponse {
	resp := EmployeeResponse{
		ID:          e.ID,
		FirstName:   e.FirstName,
		LastName:    e.LastName,
		Email:       e.Email,
		Department:  e.Department,
		Position:    e.Position,
		IsActive:    e.IsActive,
		CreatedByID: e.CreatedByID,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	if e.HiredAt != nil {
		hired := e.HiredAt.Format(dateLayout)
		resp.HiredAt = &hired
	}
	return resp
}

// NewEmployeeListResponse maps a page of employees.
func NewEmployeeListResponse(employees []domain.Employee) []EmployeeResponse {
	out := make([]EmployeeResponse, 0, len(employees))
	for i := range employees {
		out = append(out, NewEmployeeResponse(&employees[i]))
	}
	return out
}

func nonBlank(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func parseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *s)
	if err != nil {
		return nil, apperrors.NewValidationError("request validation failed", map[string]any{
			"hired_at": "hired_at must be a date formatted as " + dateLayout,
		})
	}
	return &t, nil
}

// ListEmployeesQuery holds the list query string. A missing is_active lists
// active employees and a missing limit uses the service default.
type ListEmployeesQuery struct {
	IsActive *bool `query:"is_active" json:"is_active"`
	Skip     int   `query:"skip" json:"skip" validate:"min=0"`
	Limit    *int  `query:"limit" json:"limit" validate:"omitnil,min=1,max=100"`
}

// ToInput converts a validated query.
func (q ListEmployeesQuery) ToInput() service.ListEmployeesInput {
	return service.ListEmployeesInput{IsActive: q.IsActive, Limit: q.Limit, Offset: q.Skip}
}

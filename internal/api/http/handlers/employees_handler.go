package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/employee-service/internal/api/dto"
	"github.com/spec-kit/employee-service/internal/auth"
	"github.com/spec-kit/employee-service/internal/domain"
	"github.com/spec-kit/employee-service/internal/service"
	apperrors "github.com/spec-kit/employee-service/pkg/util/errorutil"
)

// EmployeesHandler exposes employee CRUD. Routes sit behind the auth middleware.
type EmployeesHandler struct {
	employees *service.EmployeeService
}

// NewEmployeesHandler constructs handler.
func NewEmployeesHandler(employees *service.EmployeeService) *EmployeesHandler {
	return &EmployeesHandler{employees: employees}
}

// Create handles POST /api/v1/employees.
func (h *EmployeesHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateEmployeeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := req.Validate(); err != nil {
		return err
	}
	input, err := req.ToInput()
	if err != nil {
		return err
	}

	employee, err := h.employees.Create(c.UserContext(), principal(c), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewEmployeeResponse(employee)})
}

// List handles GET /api/v1/employees?is_active=&skip=&limit=.
func (h *EmployeesHandler) List(c *fiber.Ctx) error {
	input, err := listInput(c)
	if err != nil {
		return err
	}

	employees, err := h.employees.List(c.UserContext(), principal(c), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewEmployeeListResponse(employees)})
}

// Get handles GET /api/v1/employees/:id.
func (h *EmployeesHandler) Get(c *fiber.Ctx) error {
	id, err := employeeID(c)
	if err != nil {
		return err
	}
	employee, err := h.employees.Get(c.UserContext(), principal(c), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewEmployeeResponse(employee)})
}

// Update handles PUT /api/v1/employees/:id.
func (h *EmployeesHandler) Update(c *fiber.Ctx) error {
	id, err := employeeID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateEmployeeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := req.Validate(); err != nil {
		return err
	}
	input, err := req.ToInput()
	if err != nil {
		return err
	}

	employee, err := h.employees.Update(c.UserContext(), principal(c), id, input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewEmployeeResponse(employee)})
}

// Delete handles DELETE /api/v1/employees/:id.
func (h *EmployeesHandler) Delete(c *fiber.Ctx) error {
	id, err := employeeID(c)
	if err != nil {
		return err
	}
	if err := h.employees.Delete(c.UserContext(), principal(c), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func principal(c *fiber.Ctx) *domain.User {
	user, _ := auth.PrincipalFromContext(c)
	return user
}

func employeeID(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return 0, apperrors.NewValidationError("invalid employee id", map[string]any{"id": "must be a positive integer"})
	}
	return int64(id), nil
}

func listInput(c *fiber.Ctx) (service.ListEmployeesInput, error) {
	var query dto.ListEmployeesQuery
	if err := c.QueryParser(&query); err != nil {
		return service.ListEmployeesInput{}, apperrors.NewValidationError("invalid query parameters", map[string]any{
			"query": "is_active must be a boolean; skip and limit must be integers",
		})
	}
	if err := dto.Validate(query); err != nil {
		return service.ListEmployeesInput{}, err
	}
	return query.ToInput(), nil
}

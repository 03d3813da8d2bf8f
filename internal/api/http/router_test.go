package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	httptransport "github.com/spec-kit/employee-service/internal/api/http"
	"github.com/spec-kit/employee-service/internal/api/http/handlers"
	"github.com/spec-kit/employee-service/internal/audit"
	"github.com/spec-kit/employee-service/internal/auth"
	"github.com/spec-kit/employee-service/internal/config"
	"github.com/spec-kit/employee-service/internal/domain"
	"github.com/spec-kit/employee-service/internal/events"
	"github.com/spec-kit/employee-service/internal/observability"
	"github.com/spec-kit/employee-service/internal/service"
	"github.com/spec-kit/employee-service/internal/testutil"
)

type testServer struct {
	app    *fiber.App
	store  *testutil.MemStore
	hasher *auth.PasswordHasher
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	store := testutil.NewMemStore()
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	tokens, err := auth.NewTokenManager(config.AuthConfig{JWTSecret: "router-test-secret", AccessTokenTTLMinutes: 30})
	require.NoError(t, err)
	gate := auth.NewGate(tokens, auth.NewIdentityResolver(store.Users()), metrics, logger)
	recorder := audit.NewRecorder()

	authService := service.NewAuthService(service.AuthDependencies{
		Store:    store,
		Hasher:   hasher,
		Tokens:   tokens,
		Recorder: recorder,
		Logger:   logger,
	})
	employeeService := service.NewEmployeeService(service.EmployeeDependencies{
		Store:      store,
		Gate:       gate,
		Recorder:   recorder,
		Dispatcher: events.NewInMemoryDispatcher(),
		Logger:     logger,
	})

	app := fiber.New(fiber.Config{ErrorHandler: httptransport.ErrorHandler(logger, metrics)})
	httptransport.RegisterMiddlewares(app, logger, metrics, 0)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler("employee-service", "test", nil),
		Auth:           handlers.NewAuthHandler(authService),
		Employees:      handlers.NewEmployeesHandler(employeeService),
		AuthMiddleware: auth.NewAuthMiddleware(gate),
		Metrics:        metrics,
	})

	return &testServer{app: app, store: store, hasher: hasher, tokens: tokens}
}

func (s *testServer) addUser(t *testing.T, email string, role domain.Role, active bool) string {
	t.Helper()
	hash, err := s.hasher.Hash("password123")
	require.NoError(t, err)
	require.NoError(t, s.store.Users().Create(context.Background(), &domain.User{
		Email: email, PasswordHash: hash, Role: role, IsActive: active,
	}))
	token, _, err := s.tokens.Issue(email, 0)
	require.NoError(t, err)
	return token
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (r response) json(t *testing.T) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(r.body, &out), string(r.body))
	return out
}

func (r response) errorCode(t *testing.T) string {
	t.Helper()
	errObj, ok := r.json(t)["error"].(map[string]any)
	require.True(t, ok, string(r.body))
	return errObj["code"].(string)
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return s.send(t, req)
}

func (s *testServer) send(t *testing.T, req *http.Request) response {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return response{status: resp.StatusCode, header: resp.Header, body: raw}
}

func TestAuthFlow_RegisterLoginMe(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"email": "admin@example.com", "password": "hola123123", "full_name": "Admin",
	})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))
	user := resp.json(t)["data"].(map[string]any)
	assert.Equal(t, "ADMIN", user["role"])
	assert.NotContains(t, user, "password_hash")

	resp = s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"email": "second@example.com", "password": "hola123123",
	})
	require.Equal(t, http.StatusCreated, resp.status)
	assert.Equal(t, "EMPLOYEE", resp.json(t)["data"].(map[string]any)["role"])

	resp = s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"email": "admin@example.com", "password": "hola123123",
	})
	assert.Equal(t, http.StatusConflict, resp.status)
	assert.Equal(t, "CONFLICT", resp.errorCode(t))

	form := url.Values{"username": {"admin@example.com"}, "password": {"hola123123"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	resp = s.send(t, req)
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))
	body := resp.json(t)
	assert.Equal(t, "bearer", body["token_type"])
	token := body["access_token"].(string)
	require.NotEmpty(t, token)

	resp = s.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, "admin@example.com", resp.json(t)["data"].(map[string]any)["email"])
}

func TestLogin_Failures(t *testing.T) {
	s := newTestServer(t)
	s.addUser(t, "admin@example.com", domain.RoleAdmin, true)
	s.addUser(t, "gone@example.com", domain.RoleAdmin, false)

	for _, creds := range []map[string]any{
		{"username": "admin@example.com", "password": "wrong-password"},
		{"username": "nobody@example.com", "password": "password123"},
		{"username": "gone@example.com", "password": "password123"},
	} {
		resp := s.do(t, http.MethodPost, "/api/v1/auth/login", "", creds)
		assert.Equal(t, http.StatusUnauthorized, resp.status)
		assert.Equal(t, "incorrect email or password", resp.json(t)["error"].(map[string]any)["message"])
		assert.Equal(t, "Bearer", resp.header.Get(fiber.HeaderWWWAuthenticate))
	}

	resp := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{"username": "admin@example.com"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.status)
}

func TestEmployees_GatePipeline(t *testing.T) {
	s := newTestServer(t)
	employeeToken := s.addUser(t, "employee@example.com", domain.RoleEmployee, true)
	inactiveToken := s.addUser(t, "gone@example.com", domain.RoleManager, false)
	ghostToken, _, err := s.tokens.Issue("ghost@example.com", 0)
	require.NoError(t, err)

	resp := s.do(t, http.MethodGet, "/api/v1/employees", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.status)
	assert.Equal(t, "Bearer", resp.header.Get(fiber.HeaderWWWAuthenticate))

	resp = s.do(t, http.MethodGet, "/api/v1/employees", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.status)

	resp = s.do(t, http.MethodGet, "/api/v1/employees", ghostToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.status)

	resp = s.do(t, http.MethodGet, "/api/v1/employees", inactiveToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, "INACTIVE_ACCOUNT", resp.errorCode(t))

	resp = s.do(t, http.MethodPost, "/api/v1/employees", employeeToken, map[string]any{"first_name": "A", "last_name": "B"})
	assert.Equal(t, http.StatusForbidden, resp.status)
	assert.Equal(t, "FORBIDDEN", resp.errorCode(t))
	assert.Zero(t, s.store.EmployeeCount())

	// /me skips the role stage
	resp = s.do(t, http.MethodGet, "/api/v1/auth/me", employeeToken, nil)
	assert.Equal(t, http.StatusOK, resp.status)
	resp = s.do(t, http.MethodGet, "/api/v1/auth/me", inactiveToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.status)
}

func TestEmployees_CRUD(t *testing.T) {
	s := newTestServer(t)
	token := s.addUser(t, "manager@example.com", domain.RoleManager, true)

	resp := s.do(t, http.MethodPost, "/api/v1/employees", token, map[string]any{
		"first_name": "Ada", "last_name": "Lovelace", "email": "ada@example.com",
		"department": "Engineering", "hired_at": "2023-01-15",
	})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))
	created := resp.json(t)["data"].(map[string]any)
	assert.Equal(t, true, created["is_active"])
	assert.Equal(t, "2023-01-15", created["hired_at"])
	id := int64(created["id"].(float64))
	path := "/api/v1/employees/" + jsonNumber(id)

	resp = s.do(t, http.MethodPost, "/api/v1/employees", token, map[string]any{
		"first_name": "Other", "last_name": "Person", "email": "ada@example.com",
	})
	assert.Equal(t, http.StatusConflict, resp.status)

	resp = s.do(t, http.MethodPut, path, token, map[string]any{"position": "Lead"})
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))
	updated := resp.json(t)["data"].(map[string]any)
	assert.Equal(t, "Lead", updated["position"])
	assert.Equal(t, "Engineering", updated["department"])

	resp = s.do(t, http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusNoContent, resp.status)
	assert.Empty(t, resp.body)

	resp = s.do(t, http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, false, resp.json(t)["data"].(map[string]any)["is_active"])

	resp = s.do(t, http.MethodGet, "/api/v1/employees", token, nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Empty(t, resp.json(t)["data"])

	resp = s.do(t, http.MethodGet, "/api/v1/employees?is_active=false", token, nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Len(t, resp.json(t)["data"], 1)

	logs := s.store.AllActivityLogs()
	require.Len(t, logs, 3)
	assert.Equal(t, audit.ActionCreateEmployee, logs[0].Action)
	assert.Equal(t, audit.ActionUpdateEmployee, logs[1].Action)
	assert.Equal(t, audit.ActionDeleteEmployee, logs[2].Action)
}

func TestEmployees_EmptyStringsClearOptionalFields(t *testing.T) {
	s := newTestServer(t)
	token := s.addUser(t, "manager@example.com", domain.RoleManager, true)

	resp := s.do(t, http.MethodPost, "/api/v1/employees", token, map[string]any{
		"first_name": "No", "last_name": "Email", "email": "", "hired_at": "",
	})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))
	assert.Nil(t, resp.json(t)["data"].(map[string]any)["email"])

	resp = s.do(t, http.MethodPost, "/api/v1/employees", token, map[string]any{
		"first_name": "Ada", "last_name": "Lovelace", "email": "ada@example.com",
		"department": "Engineering", "hired_at": "2023-01-15",
	})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))
	path := "/api/v1/employees/" + jsonNumber(int64(resp.json(t)["data"].(map[string]any)["id"].(float64)))

	resp = s.do(t, http.MethodPut, path, token, map[string]any{"email": "", "department": "", "hired_at": ""})
	require.Equal(t, http.StatusOK, resp.status, string(resp.body))
	cleared := resp.json(t)["data"].(map[string]any)
	assert.Nil(t, cleared["email"])
	assert.Nil(t, cleared["department"])
	assert.Nil(t, cleared["hired_at"])
	assert.Equal(t, "Ada", cleared["first_name"])

	logs := s.store.AllActivityLogs()
	require.NotNil(t, logs[len(logs)-1].Details)
	assert.Equal(t, "Updated employee: email, department, hired_at", *logs[len(logs)-1].Details)

	resp = s.do(t, http.MethodPut, path, token, map[string]any{})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.status)
	assert.Len(t, s.store.AllActivityLogs(), len(logs))
}

func TestEmployees_RequestValidation(t *testing.T) {
	s := newTestServer(t)
	token := s.addUser(t, "admin@example.com", domain.RoleAdmin, true)

	for _, path := range []string{
		"/api/v1/employees?limit=0",
		"/api/v1/employees?limit=101",
		"/api/v1/employees?limit=abc",
		"/api/v1/employees?skip=-1",
		"/api/v1/employees?is_active=maybe",
		"/api/v1/employees/abc",
	} {
		resp := s.do(t, http.MethodGet, path, token, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.status, path)
		assert.Equal(t, "VALIDATION_FAILED", resp.errorCode(t), path)
	}

	resp := s.do(t, http.MethodPost, "/api/v1/employees", token, map[string]any{"first_name": "Ada"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.status)
	details := resp.json(t)["error"].(map[string]any)["details"].(map[string]any)
	assert.Contains(t, details, "last_name")

	resp = s.do(t, http.MethodGet, "/api/v1/employees/999", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.status)
	assert.Empty(t, s.store.AllActivityLogs())
}

func TestOperationalEndpoints(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.status)

	resp = s.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.status)

	resp = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.status)
	assert.Contains(t, string(resp.body), "go_goroutines")

	resp = s.do(t, http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.status)
	assert.Equal(t, "NOT_FOUND", resp.errorCode(t))
}

func jsonNumber(id int64) string {
	raw, _ := json.Marshal(id)
	return string(raw)
}

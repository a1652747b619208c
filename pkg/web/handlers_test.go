package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/atelierhq/easel/pkg/auth"
	"github.com/atelierhq/easel/pkg/eventbus"
	"github.com/atelierhq/easel/pkg/log"
	"github.com/atelierhq/easel/pkg/models"
	"github.com/atelierhq/easel/pkg/persistence/file"
	"github.com/atelierhq/easel/pkg/registry"
	"github.com/atelierhq/easel/pkg/services"
	"github.com/atelierhq/easel/pkg/web"
	"github.com/atelierhq/easel/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testImagingClient struct {
	err error
}

func (c testImagingClient) Generate(_ context.Context, _, _ string) ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}

	return []byte{0x89, 0x50, 0x4e, 0x47}, nil
}

func eventBusForTest(t *testing.T, logger *slog.Logger) eventbus.EventBus {
	t.Helper()

	bus := eventbus.NewGoChannelEventBus(logger)
	t.Cleanup(func() {
		_ = bus.Close()
	})

	return bus
}

// setupTestApp wires the full stack against file persistence and an
// in-process bus, so requests exercise the same path production does.
func setupTestApp(t *testing.T, imagingErr error) *fiber.App {
	t.Helper()

	logger := log.WithModule("test")
	persist := file.NewPersistence(t.TempDir())

	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultHandlers(testImagingClient{err: imagingErr})

	bus := eventBusForTest(t, logger)
	tokens := auth.NewTokenManager([]byte("test-secret"), time.Hour)

	accountService := services.NewAccount(persist, tokens)
	workflowService := services.NewWorkflow(persist, reg)
	executionService := services.NewExecution(persist, bus)

	handlers := web.NewAPIHandlers(
		accountService,
		workflowService,
		executionService,
		validator.New(validator.WithRequiredStructEnabled()),
	)

	executor := workflow.NewExecutor(logger, reg, persist.Executions(), bus)
	runner := workflow.NewRunner(logger, executor, persist, bus)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, runner.Start(ctx))

	app := fiber.New()

	app.Post("/auth/register", handlers.Register)
	app.Post("/auth/login", handlers.Login)

	w := app.Group("/workflows", web.RequireAuth(tokens))
	w.Get("/executions", handlers.GetExecutions)
	w.Get("/executions/:executionID", handlers.GetExecution)
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/execute", handlers.ExecuteWorkflow)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	return resp, buf.Bytes()
}

func registerUser(t *testing.T, app *fiber.App, email string) string {
	t.Helper()

	resp, body := doJSON(t, app, http.MethodPost, "/auth/register", "", web.RegisterRequest{
		Email:    email,
		Name:     "Test User",
		Password: "correct horse battery",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var authResp web.AuthResponse
	require.NoError(t, json.Unmarshal(body, &authResp))
	require.NotEmpty(t, authResp.Token)

	return authResp.Token
}

func createWorkflow(t *testing.T, app *fiber.App, token string) models.Workflow {
	t.Helper()

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/", token, web.WorkflowRequest{
		Name: "poster pipeline",
		Nodes: []web.NodeRequest{
			{ID: "start-1", Type: "start"},
			{ID: "img-1", Type: "imagegen", Data: map[string]any{"prompt": "a fox"}},
			{ID: "end-1", Type: "end"},
		},
		Edges: []web.EdgeRequest{
			{ID: "e1", Source: "start-1", Target: "img-1"},
			{ID: "e2", Source: "img-1", Target: "end-1"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var wf models.Workflow
	require.NoError(t, json.Unmarshal(body, &wf))

	return wf
}

// pollExecution polls until the execution reaches a terminal status.
func pollExecution(t *testing.T, app *fiber.App, token, executionID string) web.ExecutionResponse {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, body := doJSON(t, app, http.MethodGet, "/workflows/executions/"+executionID, token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

		var execution web.ExecutionResponse
		require.NoError(t, json.Unmarshal(body, &execution))

		if execution.Status == models.ExecutionStatusCompleted || execution.Status == models.ExecutionStatusFailed {
			return execution
		}

		time.Sleep(20 * time.Millisecond)
	}

	t.Fatalf("execution %s did not finish in time", executionID)

	return web.ExecutionResponse{}
}

func TestAuth_RegisterAndLogin(t *testing.T) {
	app := setupTestApp(t, nil)

	registerUser(t, app, "ada@example.com")

	resp, body := doJSON(t, app, http.MethodPost, "/auth/login", "", web.LoginRequest{
		Email:    "ada@example.com",
		Password: "correct horse battery",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, _ = doJSON(t, app, http.MethodPost, "/auth/login", "", web.LoginRequest{
		Email:    "ada@example.com",
		Password: "wrong password!!",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuth_DuplicateEmail(t *testing.T) {
	app := setupTestApp(t, nil)

	registerUser(t, app, "ada@example.com")

	resp, _ := doJSON(t, app, http.MethodPost, "/auth/register", "", web.RegisterRequest{
		Email:    "ada@example.com",
		Name:     "Someone Else",
		Password: "another password",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestWorkflows_RequireAuth(t *testing.T) {
	app := setupTestApp(t, nil)

	resp, _ := doJSON(t, app, http.MethodGet, "/workflows/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/workflows/", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWorkflows_CreateAndFetch(t *testing.T) {
	app := setupTestApp(t, nil)
	token := registerUser(t, app, "ada@example.com")

	wf := createWorkflow(t, app, token)
	assert.NotEmpty(t, wf.ID)

	resp, body := doJSON(t, app, http.MethodGet, "/workflows/"+wf.ID, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fetched models.Workflow
	require.NoError(t, json.Unmarshal(body, &fetched))
	assert.Equal(t, "poster pipeline", fetched.Name)
	assert.Len(t, fetched.Nodes, 3)
}

func TestWorkflows_DanglingEdgeRejected(t *testing.T) {
	app := setupTestApp(t, nil)
	token := registerUser(t, app, "ada@example.com")

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/", token, web.WorkflowRequest{
		Name: "broken",
		Nodes: []web.NodeRequest{
			{ID: "start-1", Type: "start"},
		},
		Edges: []web.EdgeRequest{
			{ID: "e1", Source: "start-1", Target: "ghost"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))

	// No execution records exist for a workflow that was never created.
	resp, body = doJSON(t, app, http.MethodGet, "/workflows/executions", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		Executions []web.ExecutionResponse `json:"executions"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Empty(t, list.Executions)
}

func TestWorkflows_OwnerIsolation(t *testing.T) {
	app := setupTestApp(t, nil)
	owner := registerUser(t, app, "ada@example.com")
	other := registerUser(t, app, "grace@example.com")

	wf := createWorkflow(t, app, owner)

	resp, _ := doJSON(t, app, http.MethodGet, "/workflows/"+wf.ID, other, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/workflows/"+wf.ID+"/execute", other, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExecuteWorkflow_CompletesWithResults(t *testing.T) {
	app := setupTestApp(t, nil)
	token := registerUser(t, app, "ada@example.com")
	wf := createWorkflow(t, app, token)

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/"+wf.ID+"/execute", token, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))

	var started web.ExecuteResponse
	require.NoError(t, json.Unmarshal(body, &started))
	assert.Equal(t, models.ExecutionStatusPending, started.Status)
	assert.NotEmpty(t, started.ExecutionID)

	execution := pollExecution(t, app, token, started.ExecutionID)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, 100, execution.Progress)
	assert.Len(t, execution.Results, 3)
	assert.Contains(t, execution.ExecutionLog, "execution completed")
	assert.NotEmpty(t, execution.Results["img-1"].Data["image_base64"])
	assert.False(t, execution.StartedAt.IsZero())
	require.NotNil(t, execution.CompletedAt)
	assert.False(t, execution.CompletedAt.Before(execution.StartedAt))
}

func TestExecuteWorkflow_ProviderFailure(t *testing.T) {
	app := setupTestApp(t, errors.New("provider quota exhausted"))
	token := registerUser(t, app, "ada@example.com")
	wf := createWorkflow(t, app, token)

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/"+wf.ID+"/execute", token, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))

	var started web.ExecuteResponse
	require.NoError(t, json.Unmarshal(body, &started))

	execution := pollExecution(t, app, token, started.ExecutionID)
	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.Contains(t, execution.Error, "provider quota exhausted")
	assert.Equal(t, models.NodeResultFailure, execution.Results["img-1"].Status)
	assert.NotContains(t, execution.Results, "end-1")
}

func TestExecuteWorkflow_CyclicGraphFails(t *testing.T) {
	app := setupTestApp(t, nil)
	token := registerUser(t, app, "ada@example.com")

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/", token, web.WorkflowRequest{
		Name: "loop",
		Nodes: []web.NodeRequest{
			{ID: "a", Type: "log", Data: map[string]any{"message": "hi"}},
			{ID: "b", Type: "log", Data: map[string]any{"message": "ho"}},
		},
		Edges: []web.EdgeRequest{
			{ID: "e1", Source: "a", Target: "b"},
			{ID: "e2", Source: "b", Target: "a"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var wf models.Workflow
	require.NoError(t, json.Unmarshal(body, &wf))

	resp, body = doJSON(t, app, http.MethodPost, "/workflows/"+wf.ID+"/execute", token, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))

	var started web.ExecuteResponse
	require.NoError(t, json.Unmarshal(body, &started))

	execution := pollExecution(t, app, token, started.ExecutionID)
	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.Empty(t, execution.Results)
	assert.Contains(t, execution.Error, "cycle")
}

func TestWorkflows_LockedAfterExecution(t *testing.T) {
	app := setupTestApp(t, nil)
	token := registerUser(t, app, "ada@example.com")
	wf := createWorkflow(t, app, token)

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/"+wf.ID+"/execute", token, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))

	var started web.ExecuteResponse
	require.NoError(t, json.Unmarshal(body, &started))
	pollExecution(t, app, token, started.ExecutionID)

	resp, _ = doJSON(t, app, http.MethodPatch, "/workflows/"+wf.ID, token, web.WorkflowRequest{
		Name: "renamed pipeline",
		Nodes: []web.NodeRequest{
			{ID: "start-1", Type: "start"},
		},
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/workflows/"+wf.ID, token, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestExecutions_ListScopedToUser(t *testing.T) {
	app := setupTestApp(t, nil)
	owner := registerUser(t, app, "ada@example.com")
	other := registerUser(t, app, "grace@example.com")

	wf := createWorkflow(t, app, owner)

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/"+wf.ID+"/execute", owner, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))

	var started web.ExecuteResponse
	require.NoError(t, json.Unmarshal(body, &started))
	pollExecution(t, app, owner, started.ExecutionID)

	resp, body = doJSON(t, app, http.MethodGet, "/workflows/executions", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		Executions []web.ExecutionResponse `json:"executions"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list.Executions, 1)

	resp, _ = doJSON(t, app, http.MethodGet, "/workflows/executions/"+started.ExecutionID, other, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthCheck(t *testing.T) {
	app := setupTestApp(t, nil)

	resp, body := doJSON(t, app, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "healthy")
}

package web

import (
	"github.com/atelierhq/easel/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	accountService   *services.Account
	workflowService  *services.Workflow
	executionService *services.Execution
	validator        *validator.Validate
}

func NewAPIHandlers(
	accountService *services.Account,
	workflowService *services.Workflow,
	executionService *services.Execution,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		accountService:   accountService,
		workflowService:  workflowService,
		executionService: executionService,
		validator:        validator,
	}
}

func (h *APIHandlers) Register(c fiber.Ctx) error {
	var req RegisterRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON in request body")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, "Invalid registration data: "+err.Error())
	}

	user, token, err := h.accountService.Register(c.Context(), services.RegisterRequest{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(AuthResponse{
		Token: token,
		User:  TransformUserResponse(user),
	})
}

func (h *APIHandlers) Login(c fiber.Ctx) error {
	var req LoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON in request body")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, "Invalid login data: "+err.Error())
	}

	user, token, err := h.accountService.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		if services.IsValidationError(err) || services.IsNotFoundError(err) {
			return unauthorized(c, "Invalid email or password")
		}

		return handleServiceError(c, err)
	}

	return c.JSON(AuthResponse{
		Token: token,
		User:  TransformUserResponse(user),
	})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.workflowService.ListByOwner(c.Context(), AuthenticatedUser(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"workflows": workflows})
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req WorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON in request body")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, "Invalid workflow data: "+err.Error())
	}

	workflow, err := h.workflowService.Create(c.Context(), AuthenticatedUser(c), req.ToModel())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflowService.FetchByID(c.Context(), AuthenticatedUser(c), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	var req WorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON in request body")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, "Invalid workflow data: "+err.Error())
	}

	workflow := req.ToModel()
	workflow.ID = c.Params("id")

	updated, err := h.workflowService.Update(c.Context(), AuthenticatedUser(c), workflow)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	if err := h.workflowService.Delete(c.Context(), AuthenticatedUser(c), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ExecuteWorkflow enqueues a run and returns 202 with the execution id;
// clients poll the execution endpoints for progress.
func (h *APIHandlers) ExecuteWorkflow(c fiber.Ctx) error {
	execution, err := h.executionService.Start(c.Context(), AuthenticatedUser(c), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(ExecuteResponse{
		ExecutionID: execution.ID,
		Status:      execution.Status,
	})
}

func (h *APIHandlers) GetExecutions(c fiber.Ctx) error {
	executions, err := h.executionService.ListByUser(c.Context(), AuthenticatedUser(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	responses := make([]ExecutionResponse, 0, len(executions))
	for _, execution := range executions {
		responses = append(responses, TransformExecutionResponse(execution))
	}

	return c.JSON(fiber.Map{"executions": responses})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	execution, err := h.executionService.FetchByID(c.Context(), AuthenticatedUser(c), c.Params("executionID"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TransformExecutionResponse(execution))
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	message, healthy := h.workflowService.HealthCheck(c.Context())
	if !healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":  "unhealthy",
			"message": message,
		})
	}

	return c.JSON(fiber.Map{"status": "healthy"})
}

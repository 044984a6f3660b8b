package handlers

import (
	"github.com/amirphl/estatedesk/app/dto"
	businessflow "github.com/amirphl/estatedesk/business_flow"
	"github.com/gofiber/fiber/v3"
)

// AgentHandlerInterface defines the contract for agent handlers
type AgentHandlerInterface interface {
	Create(c fiber.Ctx) error
	Get(c fiber.Ctx) error
	List(c fiber.Ctx) error
	Update(c fiber.Ctx) error
	Delete(c fiber.Ctx) error
}

type AgentHandler struct {
	baseHandler
	flow businessflow.AgentFlow
}

func NewAgentHandler(flow businessflow.AgentFlow) AgentHandlerInterface {
	return &AgentHandler{
		baseHandler: newBaseHandler(),
		flow:        flow,
	}
}

// Create registers a field agent
// @Summary Create agent
// @Description Create an agent; the response carries the allocated AG-YYYYMM-NNNN identifier. Send an Idempotency-Key header to make retries safe.
// @Tags Agents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Client supplied idempotency key"
// @Param request body dto.CreateAgentRequest true "Agent data"
// @Success 201 {object} dto.APIResponse{data=dto.AgentDTO} "Agent created"
// @Failure 400 {object} dto.APIResponse "Validation failed"
// @Failure 409 {object} dto.APIResponse "Email already exists or request in progress"
// @Failure 503 {object} dto.APIResponse "Identifier allocation busy, retry"
// @Router /api/v1/agents [post]
func (h *AgentHandler) Create(c fiber.Ctx) error {
	var req dto.CreateAgentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/agents")
	defer cancel()

	agent, err := h.flow.Create(ctx, &req, h.metadata(c))
	if err != nil {
		return h.flowError(c, err, "Failed to create agent", "AGENT_CREATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Agent created", agent)
}

// Get returns one agent
// @Summary Get agent
// @Tags Agents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Agent ID"
// @Success 200 {object} dto.APIResponse{data=dto.AgentDTO}
// @Failure 404 {object} dto.APIResponse "Agent not found"
// @Router /api/v1/agents/{id} [get]
func (h *AgentHandler) Get(c fiber.Ctx) error {
	id, err := h.entityIDParam(c)
	if id == "" {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/agents/:id")
	defer cancel()

	agent, err := h.flow.Get(ctx, id)
	if err != nil {
		return h.flowError(c, err, "Failed to get agent", "AGENT_GET_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Agent retrieved", agent)
}

// List returns a filtered page of agents
// @Summary List agents
// @Tags Agents
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (max 100)"
// @Param sort_by query string false "created_at, name or email"
// @Param sort_order query string false "asc or desc"
// @Param search query string false "Matches name, email or phone"
// @Success 200 {object} dto.APIResponse{data=dto.ListAgentsResponse}
// @Failure 400 {object} dto.APIResponse "Invalid filter"
// @Router /api/v1/agents [get]
func (h *AgentHandler) List(c fiber.Ctx) error {
	var req dto.ListPartiesRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_QUERY", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/agents")
	defer cancel()

	resp, err := h.flow.List(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to list agents", "AGENT_LIST_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Agents retrieved", resp)
}

// Update applies a partial update to an agent
// @Summary Update agent
// @Tags Agents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Agent ID"
// @Param request body dto.UpdateAgentRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.AgentDTO}
// @Failure 404 {object} dto.APIResponse "Agent not found"
// @Failure 409 {object} dto.APIResponse "Email already exists"
// @Router /api/v1/agents/{id} [patch]
func (h *AgentHandler) Update(c fiber.Ctx) error {
	id, err := h.entityIDParam(c)
	if id == "" {
		return err
	}

	var req dto.UpdateAgentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/agents/:id")
	defer cancel()

	agent, err := h.flow.Update(ctx, id, &req, h.metadata(c))
	if err != nil {
		return h.flowError(c, err, "Failed to update agent", "AGENT_UPDATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Agent updated", agent)
}

// Delete soft-deletes an agent
// @Summary Delete agent
// @Tags Agents
// @Produce json
// @Security BearerAuth
// @Param id path string true "Agent ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse "Agent not found"
// @Router /api/v1/agents/{id} [delete]
func (h *AgentHandler) Delete(c fiber.Ctx) error {
	id, err := h.entityIDParam(c)
	if id == "" {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/agents/:id")
	defer cancel()

	if err := h.flow.Delete(ctx, id, h.metadata(c)); err != nil {
		return h.flowError(c, err, "Failed to delete agent", "AGENT_DELETE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Agent deleted", nil)
}

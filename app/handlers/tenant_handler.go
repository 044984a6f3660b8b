package handlers

import (
	"github.com/amirphl/estatedesk/app/dto"
	businessflow "github.com/amirphl/estatedesk/business_flow"
	"github.com/gofiber/fiber/v3"
)

// TenantHandlerInterface defines the contract for tenant handlers
type TenantHandlerInterface interface {
	Create(c fiber.Ctx) error
	Get(c fiber.Ctx) error
	List(c fiber.Ctx) error
	Update(c fiber.Ctx) error
	Delete(c fiber.Ctx) error
}

type TenantHandler struct {
	baseHandler
	flow businessflow.TenantFlow
}

func NewTenantHandler(flow businessflow.TenantFlow) TenantHandlerInterface {
	return &TenantHandler{
		baseHandler: newBaseHandler(),
		flow:        flow,
	}
}

// Create registers a tenant and assigns its identifier
// @Summary Create tenant
// @Description Create a tenant, optionally leasing a property which is then marked rented; the response carries the allocated TE-YYYYMM-NNNN identifier. Send an Idempotency-Key header to make retries safe.
// @Tags Tenants
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Client supplied idempotency key"
// @Param request body dto.CreateTenantRequest true "Tenant data"
// @Success 201 {object} dto.APIResponse{data=dto.TenantDTO} "Tenant created"
// @Failure 400 {object} dto.APIResponse "Validation failed"
// @Failure 404 {object} dto.APIResponse "Property not found"
// @Failure 409 {object} dto.APIResponse "Email already exists or request in progress"
// @Failure 503 {object} dto.APIResponse "Identifier allocation busy, retry"
// @Router /api/v1/tenants [post]
func (h *TenantHandler) Create(c fiber.Ctx) error {
	var req dto.CreateTenantRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/tenants")
	defer cancel()

	tenant, err := h.flow.Create(ctx, &req, h.metadata(c))
	if err != nil {
		return h.flowError(c, err, "Failed to create tenant", "TENANT_CREATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Tenant created", tenant)
}

// Get returns one tenant
// @Summary Get tenant
// @Tags Tenants
// @Produce json
// @Security BearerAuth
// @Param id path string true "Tenant ID"
// @Success 200 {object} dto.APIResponse{data=dto.TenantDTO}
// @Failure 404 {object} dto.APIResponse "Tenant not found"
// @Router /api/v1/tenants/{id} [get]
func (h *TenantHandler) Get(c fiber.Ctx) error {
	id, err := h.entityIDParam(c)
	if id == "" {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/tenants/:id")
	defer cancel()

	tenant, err := h.flow.Get(ctx, id)
	if err != nil {
		return h.flowError(c, err, "Failed to get tenant", "TENANT_GET_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Tenant retrieved", tenant)
}

// List returns a filtered page of tenants
// @Summary List tenants
// @Tags Tenants
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (max 100)"
// @Param sort_by query string false "created_at, name or email"
// @Param sort_order query string false "asc or desc"
// @Param search query string false "Matches name, email or phone"
// @Param property_id query string false "Only tenants of this property"
// @Success 200 {object} dto.APIResponse{data=dto.ListTenantsResponse}
// @Failure 400 {object} dto.APIResponse "Invalid filter"
// @Router /api/v1/tenants [get]
func (h *TenantHandler) List(c fiber.Ctx) error {
	var req dto.ListPartiesRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_QUERY", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/tenants")
	defer cancel()

	resp, err := h.flow.List(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to list tenants", "TENANT_LIST_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Tenants retrieved", resp)
}

// Update applies a partial update to a tenant
// @Summary Update tenant
// @Tags Tenants
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Tenant ID"
// @Param request body dto.UpdateTenantRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.TenantDTO}
// @Failure 404 {object} dto.APIResponse "Tenant not found"
// @Failure 409 {object} dto.APIResponse "Email already exists"
// @Router /api/v1/tenants/{id} [patch]
func (h *TenantHandler) Update(c fiber.Ctx) error {
	id, err := h.entityIDParam(c)
	if id == "" {
		return err
	}

	var req dto.UpdateTenantRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/tenants/:id")
	defer cancel()

	tenant, err := h.flow.Update(ctx, id, &req, h.metadata(c))
	if err != nil {
		return h.flowError(c, err, "Failed to update tenant", "TENANT_UPDATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Tenant updated", tenant)
}

// Delete soft-deletes a tenant
// @Summary Delete tenant
// @Tags Tenants
// @Produce json
// @Security BearerAuth
// @Param id path string true "Tenant ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse "Tenant not found"
// @Router /api/v1/tenants/{id} [delete]
func (h *TenantHandler) Delete(c fiber.Ctx) error {
	id, err := h.entityIDParam(c)
	if id == "" {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/tenants/:id")
	defer cancel()

	if err := h.flow.Delete(ctx, id, h.metadata(c)); err != nil {
		return h.flowError(c, err, "Failed to delete tenant", "TENANT_DELETE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Tenant deleted", nil)
}

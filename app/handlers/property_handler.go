package handlers

import (
	"github.com/amirphl/estatedesk/app/dto"
	businessflow "github.com/amirphl/estatedesk/business_flow"
	"github.com/gofiber/fiber/v3"
)

// PropertyHandlerInterface defines the contract for property handlers
type PropertyHandlerInterface interface {
	Create(c fiber.Ctx) error
	Get(c fiber.Ctx) error
	List(c fiber.Ctx) error
	Update(c fiber.Ctx) error
	Delete(c fiber.Ctx) error
}

type PropertyHandler struct {
	baseHandler
	flow businessflow.PropertyFlow
}

func NewPropertyHandler(flow businessflow.PropertyFlow) PropertyHandlerInterface {
	return &PropertyHandler{
		baseHandler: newBaseHandler(),
		flow:        flow,
	}
}

// Create lists a new property for a landlord
// @Summary Create property
// @Description Create a property owned by an existing landlord, optionally managed by an agent; the response carries the allocated PR-YYYYMM-NNNN identifier. Send an Idempotency-Key header to make retries safe.
// @Tags Properties
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Client supplied idempotency key"
// @Param request body dto.CreatePropertyRequest true "Property data"
// @Success 201 {object} dto.APIResponse{data=dto.PropertyDTO} "Property created"
// @Failure 400 {object} dto.APIResponse "Validation failed"
// @Failure 404 {object} dto.APIResponse "Landlord or agent not found"
// @Failure 409 {object} dto.APIResponse "Request in progress"
// @Failure 503 {object} dto.APIResponse "Identifier allocation busy, retry"
// @Router /api/v1/properties [post]
func (h *PropertyHandler) Create(c fiber.Ctx) error {
	var req dto.CreatePropertyRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/properties")
	defer cancel()

	property, err := h.flow.Create(ctx, &req, h.metadata(c))
	if err != nil {
		return h.flowError(c, err, "Failed to create property", "PROPERTY_CREATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Property created", property)
}

// Get returns one property
// @Summary Get property
// @Tags Properties
// @Produce json
// @Security BearerAuth
// @Param id path string true "Property ID"
// @Success 200 {object} dto.APIResponse{data=dto.PropertyDTO}
// @Failure 404 {object} dto.APIResponse "Property not found"
// @Router /api/v1/properties/{id} [get]
func (h *PropertyHandler) Get(c fiber.Ctx) error {
	id, err := h.entityIDParam(c)
	if id == "" {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/properties/:id")
	defer cancel()

	property, err := h.flow.Get(ctx, id)
	if err != nil {
		return h.flowError(c, err, "Failed to get property", "PROPERTY_GET_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Property retrieved", property)
}

// List returns a filtered page of properties
// @Summary List properties
// @Tags Properties
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (max 100)"
// @Param sort_by query string false "created_at, monthly_rent, title, city or area_sqm"
// @Param sort_order query string false "asc or desc"
// @Param search query string false "Matches title or address"
// @Param status query string false "available, rented or maintenance"
// @Param type query string false "apartment, house, commercial or land"
// @Param city query string false "City, case-insensitive"
// @Param landlord_id query string false "Owner"
// @Param min_rent query number false "Minimum monthly rent"
// @Param max_rent query number false "Maximum monthly rent"
// @Success 200 {object} dto.APIResponse{data=dto.ListPropertiesResponse}
// @Failure 400 {object} dto.APIResponse "Invalid filter"
// @Router /api/v1/properties [get]
func (h *PropertyHandler) List(c fiber.Ctx) error {
	var req dto.ListPropertiesRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_QUERY", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/properties")
	defer cancel()

	resp, err := h.flow.List(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to list properties", "PROPERTY_LIST_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Properties retrieved", resp)
}

// Update applies a partial update to a property
// @Summary Update property
// @Tags Properties
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Property ID"
// @Param request body dto.UpdatePropertyRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.PropertyDTO}
// @Failure 404 {object} dto.APIResponse "Property not found"
// @Router /api/v1/properties/{id} [patch]
func (h *PropertyHandler) Update(c fiber.Ctx) error {
	id, err := h.entityIDParam(c)
	if id == "" {
		return err
	}

	var req dto.UpdatePropertyRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/properties/:id")
	defer cancel()

	property, err := h.flow.Update(ctx, id, &req, h.metadata(c))
	if err != nil {
		return h.flowError(c, err, "Failed to update property", "PROPERTY_UPDATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Property updated", property)
}

// Delete soft-deletes a property
// @Summary Delete property
// @Tags Properties
// @Produce json
// @Security BearerAuth
// @Param id path string true "Property ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse "Property not found"
// @Router /api/v1/properties/{id} [delete]
func (h *PropertyHandler) Delete(c fiber.Ctx) error {
	id, err := h.entityIDParam(c)
	if id == "" {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/properties/:id")
	defer cancel()

	if err := h.flow.Delete(ctx, id, h.metadata(c)); err != nil {
		return h.flowError(c, err, "Failed to delete property", "PROPERTY_DELETE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Property deleted", nil)
}

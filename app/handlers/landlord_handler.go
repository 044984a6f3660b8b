package handlers

import (
	"github.com/amirphl/estatedesk/app/dto"
	businessflow "github.com/amirphl/estatedesk/business_flow"
	"github.com/gofiber/fiber/v3"
)

// LandlordHandlerInterface defines the contract for landlord handlers
type LandlordHandlerInterface interface {
	Create(c fiber.Ctx) error
	Get(c fiber.Ctx) error
	List(c fiber.Ctx) error
	Update(c fiber.Ctx) error
	Delete(c fiber.Ctx) error
}

type LandlordHandler struct {
	baseHandler
	flow businessflow.LandlordFlow
}

func NewLandlordHandler(flow businessflow.LandlordFlow) LandlordHandlerInterface {
	return &LandlordHandler{
		baseHandler: newBaseHandler(),
		flow:        flow,
	}
}

// Create registers a landlord and assigns its identifier
// @Summary Create landlord
// @Description Create a landlord; the response carries the allocated LA-YYYYMM-NNNN identifier. Send an Idempotency-Key header to make retries safe.
// @Tags Landlords
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Client supplied idempotency key"
// @Param request body dto.CreateLandlordRequest true "Landlord data"
// @Success 201 {object} dto.APIResponse{data=dto.LandlordDTO} "Landlord created"
// @Failure 400 {object} dto.APIResponse "Validation failed"
// @Failure 409 {object} dto.APIResponse "Email already exists or request in progress"
// @Failure 503 {object} dto.APIResponse "Identifier allocation busy, retry"
// @Router /api/v1/landlords [post]
func (h *LandlordHandler) Create(c fiber.Ctx) error {
	var req dto.CreateLandlordRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/landlords")
	defer cancel()

	landlord, err := h.flow.Create(ctx, &req, h.metadata(c))
	if err != nil {
		return h.flowError(c, err, "Failed to create landlord", "LANDLORD_CREATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Landlord created", landlord)
}

// Get returns one landlord
// @Summary Get landlord
// @Tags Landlords
// @Produce json
// @Security BearerAuth
// @Param id path string true "Landlord ID"
// @Success 200 {object} dto.APIResponse{data=dto.LandlordDTO}
// @Failure 404 {object} dto.APIResponse "Landlord not found"
// @Router /api/v1/landlords/{id} [get]
func (h *LandlordHandler) Get(c fiber.Ctx) error {
	id, err := h.entityIDParam(c)
	if id == "" {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/landlords/:id")
	defer cancel()

	landlord, err := h.flow.Get(ctx, id)
	if err != nil {
		return h.flowError(c, err, "Failed to get landlord", "LANDLORD_GET_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Landlord retrieved", landlord)
}

// List returns a filtered page of landlords
// @Summary List landlords
// @Tags Landlords
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (max 100)"
// @Param sort_by query string false "created_at, name or email"
// @Param sort_order query string false "asc or desc"
// @Param search query string false "Matches name, email or phone"
// @Success 200 {object} dto.APIResponse{data=dto.ListLandlordsResponse}
// @Failure 400 {object} dto.APIResponse "Invalid filter"
// @Router /api/v1/landlords [get]
func (h *LandlordHandler) List(c fiber.Ctx) error {
	var req dto.ListPartiesRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_QUERY", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/landlords")
	defer cancel()

	resp, err := h.flow.List(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to list landlords", "LANDLORD_LIST_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Landlords retrieved", resp)
}

// Update applies a partial update to a landlord
// @Summary Update landlord
// @Tags Landlords
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Landlord ID"
// @Param request body dto.UpdateLandlordRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.LandlordDTO}
// @Failure 404 {object} dto.APIResponse "Landlord not found"
// @Failure 409 {object} dto.APIResponse "Email already exists"
// @Router /api/v1/landlords/{id} [patch]
func (h *LandlordHandler) Update(c fiber.Ctx) error {
	id, err := h.entityIDParam(c)
	if id == "" {
		return err
	}

	var req dto.UpdateLandlordRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/landlords/:id")
	defer cancel()

	landlord, err := h.flow.Update(ctx, id, &req, h.metadata(c))
	if err != nil {
		return h.flowError(c, err, "Failed to update landlord", "LANDLORD_UPDATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Landlord updated", landlord)
}

// Delete soft-deletes a landlord
// @Summary Delete landlord
// @Tags Landlords
// @Produce json
// @Security BearerAuth
// @Param id path string true "Landlord ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse "Landlord not found"
// @Router /api/v1/landlords/{id} [delete]
func (h *LandlordHandler) Delete(c fiber.Ctx) error {
	id, err := h.entityIDParam(c)
	if id == "" {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/landlords/:id")
	defer cancel()

	if err := h.flow.Delete(ctx, id, h.metadata(c)); err != nil {
		return h.flowError(c, err, "Failed to delete landlord", "LANDLORD_DELETE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Landlord deleted", nil)
}

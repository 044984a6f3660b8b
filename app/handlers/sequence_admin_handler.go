package handlers

import (
	"strings"

	"github.com/amirphl/estatedesk/app/dto"
	businessflow "github.com/amirphl/estatedesk/business_flow"
	"github.com/gofiber/fiber/v3"
)

// SequenceAdminHandlerInterface defines the contract for identifier sequence inspection
type SequenceAdminHandlerInterface interface {
	ListCounters(c fiber.Ctx) error
	Peek(c fiber.Ctx) error
	ParseID(c fiber.Ctx) error
}

type SequenceAdminHandler struct {
	baseHandler
	flow businessflow.SequenceAdminFlow
}

func NewSequenceAdminHandler(flow businessflow.SequenceAdminFlow) SequenceAdminHandlerInterface {
	return &SequenceAdminHandler{
		baseHandler: newBaseHandler(),
		flow:        flow,
	}
}

// ListCounters returns the stored per-type, per-month counters
// @Summary List sequence counters
// @Tags Sequences
// @Produce json
// @Security BearerAuth
// @Param entity_type query string false "Entity type, e.g. Landlord"
// @Param year_month query string false "YYYYMM"
// @Success 200 {object} dto.APIResponse{data=dto.ListSequenceCountersResponse}
// @Router /api/v1/admin/sequences [get]
func (h *SequenceAdminHandler) ListCounters(c fiber.Ctx) error {
	var req dto.ListSequenceCountersRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_QUERY", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/sequences")
	defer cancel()

	resp, err := h.flow.ListCounters(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to list sequence counters", "SEQUENCE_LIST_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Sequence counters retrieved", resp)
}

// Peek reads one counter without advancing it
// @Summary Peek sequence counter
// @Tags Sequences
// @Produce json
// @Security BearerAuth
// @Param entity_type path string true "Entity type, e.g. Landlord"
// @Param year_month query string false "YYYYMM, defaults to the current month"
// @Success 200 {object} dto.APIResponse{data=dto.SequenceCounterDTO}
// @Failure 400 {object} dto.APIResponse "Unknown entity type"
// @Failure 404 {object} dto.APIResponse "No identifier issued yet"
// @Router /api/v1/admin/sequences/{entity_type} [get]
func (h *SequenceAdminHandler) Peek(c fiber.Ctx) error {
	req := dto.PeekSequenceRequest{
		EntityType: strings.TrimSpace(c.Params("entity_type")),
		YearMonth:  strings.TrimSpace(c.Query("year_month")),
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/sequences/:entity_type")
	defer cancel()

	counter, err := h.flow.Peek(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to read sequence counter", "SEQUENCE_PEEK_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Sequence counter retrieved", counter)
}

// ParseID decomposes an identifier and reports whether it has been issued
// @Summary Parse identifier
// @Tags Sequences
// @Produce json
// @Security BearerAuth
// @Param id path string true "Identifier, e.g. LA-202603-0001"
// @Success 200 {object} dto.APIResponse{data=dto.ParseIDResponse}
// @Failure 400 {object} dto.APIResponse "Malformed identifier"
// @Router /api/v1/admin/ids/{id} [get]
func (h *SequenceAdminHandler) ParseID(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/ids/:id")
	defer cancel()

	resp, err := h.flow.ParseID(ctx, strings.TrimSpace(c.Params("id")))
	if err != nil {
		return h.flowError(c, err, "Failed to parse identifier", "ID_PARSE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Identifier parsed", resp)
}

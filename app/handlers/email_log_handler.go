package handlers

import (
	"github.com/amirphl/estatedesk/app/dto"
	businessflow "github.com/amirphl/estatedesk/business_flow"
	"github.com/gofiber/fiber/v3"
)

type EmailLogHandlerInterface interface {
	List(c fiber.Ctx) error
}

type EmailLogHandler struct {
	baseHandler
	flow businessflow.EmailFlow
}

func NewEmailLogHandler(flow businessflow.EmailFlow) EmailLogHandlerInterface {
	return &EmailLogHandler{
		baseHandler: newBaseHandler(),
		flow:        flow,
	}
}

// List returns recorded email attempts, newest first
// @Summary List email log
// @Tags Email
// @Produce json
// @Security BearerAuth
// @Param recipient query string false "Recipient address"
// @Param status query string false "sent or failed"
// @Param entity_id query string false "Related entity identifier"
// @Success 200 {object} dto.APIResponse{data=dto.ListEmailLogsResponse}
// @Router /api/v1/admin/emails [get]
func (h *EmailLogHandler) List(c fiber.Ctx) error {
	var req dto.ListEmailLogsRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_QUERY", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/emails")
	defer cancel()

	resp, err := h.flow.List(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to list emails", "EMAIL_LOG_LIST_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Emails retrieved", resp)
}

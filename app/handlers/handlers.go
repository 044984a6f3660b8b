// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/amirphl/estatedesk/app/dto"
	businessflow "github.com/amirphl/estatedesk/business_flow"
	"github.com/amirphl/estatedesk/sequence"
	"github.com/amirphl/estatedesk/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// RetryAfterSeconds is advertised to clients whose create request lost an identifier allocation race
const RetryAfterSeconds = "1"

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return err.Field() + " must be at least " + err.Param()
	case "max":
		return err.Field() + " must be at most " + err.Param()
	case "len":
		return err.Field() + " must be exactly " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "alpha":
		return err.Field() + " must contain only letters"
	case "url":
		return err.Field() + " must be a valid URL"
	case "entity_id":
		return err.Field() + " must be formatted as PP-YYYYMM-NNNN"
	case "numeric":
		return err.Field() + " must contain only numbers"
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}

// newValidator returns a validator with the entity_id tag registered
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("entity_id", func(fl validator.FieldLevel) bool {
		_, err := sequence.ParseID(fl.Field().String())
		return err == nil
	})
	return v
}

// baseHandler carries the response envelope and request plumbing shared by all handlers
type baseHandler struct {
	validator *validator.Validate
}

func newBaseHandler() baseHandler {
	return baseHandler{validator: newValidator()}
}

// ErrorResponse standard JSON error
func (h *baseHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

// SuccessResponse standard JSON success
func (h *baseHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// validate runs struct validation and writes a 400 response on failure. It returns true when the request may proceed.
func (h *baseHandler) validate(c fiber.Ctx, req any) (bool, error) {
	if err := h.validator.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", err.Error())
		}
		var validationErrors []string
		for _, fe := range fieldErrs {
			validationErrors = append(validationErrors, getValidationErrorMessage(fe))
		}
		return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}
	return true, nil
}

// entityIDParam reads the :id path parameter and checks its identifier format
func (h *baseHandler) entityIDParam(c fiber.Ctx) (string, error) {
	id := strings.TrimSpace(c.Params("id"))
	if err := h.validator.Var(id, "required,entity_id"); err != nil {
		return "", h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid identifier", "INVALID_ENTITY_ID", "id must be formatted as PP-YYYYMM-NNNN")
	}
	return id, nil
}

// metadata collects client information and the optional idempotency key
func (h *baseHandler) metadata(c fiber.Ctx) *businessflow.ClientMetadata {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetRequestID(c.Get("X-Request-ID"))
	metadata.SetIdempotencyKey(c.Get(utils.IdempotencyKeyHeader))
	if adminID, ok := c.Locals("admin_id").(uint); ok {
		metadata.AdminID = adminID
	}
	return metadata
}

// createRequestContext builds the flow context for one request. The caller must call cancel.
func (h *baseHandler) createRequestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	return h.createRequestContextWithTimeout(c, endpoint, utils.DefaultRequestTimeout)
}

func (h *baseHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	if adminID, ok := c.Locals("admin_id").(uint); ok {
		ctx = context.WithValue(ctx, utils.AdminIDKey, adminID)
	}
	return ctx, cancel
}

// flowError translates a business flow error into an HTTP response
func (h *baseHandler) flowError(c fiber.Ctx, err error, fallbackMessage, fallbackCode string) error {
	code, message := fallbackCode, fallbackMessage
	var be *businessflow.BusinessError
	if errors.As(err, &be) {
		code, message = be.Code, be.Message
	}

	switch {
	case businessflow.IsRetryableAllocation(err):
		c.Set(fiber.HeaderRetryAfter, RetryAfterSeconds)
		return h.ErrorResponse(c, fiber.StatusServiceUnavailable, "Identifier allocation is busy, please retry", "SEQUENCE_CONFLICT_RETRY", nil)
	case businessflow.IsValidationError(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, message, code, rootCause(err))
	case businessflow.IsNotFound(err):
		return h.ErrorResponse(c, fiber.StatusNotFound, message, code, nil)
	case businessflow.IsEmailAlreadyExists(err):
		return h.ErrorResponse(c, fiber.StatusConflict, "Email already exists", "EMAIL_ALREADY_EXISTS", nil)
	case businessflow.IsIdempotencyInProgress(err):
		return h.ErrorResponse(c, fiber.StatusConflict, "A request with this idempotency key is still in progress", "IDEMPOTENCY_IN_PROGRESS", nil)
	case businessflow.IsInsufficientBalance(err):
		return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Account balance is insufficient", "INSUFFICIENT_BALANCE", nil)
	case errors.Is(err, context.DeadlineExceeded):
		return h.ErrorResponse(c, fiber.StatusGatewayTimeout, "Request timed out", "REQUEST_TIMEOUT", nil)
	}

	log.Printf("%s: %v", fallbackMessage, err)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, message, code, nil)
}

func rootCause(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

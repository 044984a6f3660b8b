package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/amirphl/estatedesk/app/dto"
	businessflow "github.com/amirphl/estatedesk/business_flow"
	"github.com/amirphl/estatedesk/sequence"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLandlordFlow answers with canned results and records what the handler passed in
type fakeLandlordFlow struct {
	businessflow.LandlordFlow

	createErr    error
	getErr       error
	lastMetadata *businessflow.ClientMetadata
	lastID       string
}

func (f *fakeLandlordFlow) Create(ctx context.Context, req *dto.CreateLandlordRequest, metadata *businessflow.ClientMetadata) (*dto.LandlordDTO, error) {
	f.lastMetadata = metadata
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &dto.LandlordDTO{ID: "LA-202501-0001", ContactDTO: dto.ContactDTO{FullName: req.FullName, Email: req.Email}}, nil
}

func (f *fakeLandlordFlow) Get(ctx context.Context, id string) (*dto.LandlordDTO, error) {
	f.lastID = id
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &dto.LandlordDTO{ID: id}, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Details any    `json:"details"`
	} `json:"error"`
}

func landlordApp(flow businessflow.LandlordFlow) *fiber.App {
	h := NewLandlordHandler(flow)
	app := fiber.New()
	app.Use(func(c fiber.Ctx) error {
		c.Locals("admin_id", uint(7))
		return c.Next()
	})
	app.Post("/landlords", h.Create)
	app.Get("/landlords/:id", h.Get)
	return app
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, envelope) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()

	var env envelope
	if strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(body, &env), string(body))
	}
	return resp, env
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

const validLandlordBody = `{"full_name":"Ada Lovelace","email":"ada@example.com"}`

func TestLandlordCreate_ErrorMapping(t *testing.T) {
	conflict := &sequence.ConflictError{EntityType: "landlord", YearMonth: "202501", Attempts: 5, Err: errors.New("serialization failure")}

	tests := []struct {
		name       string
		flowErr    error
		wantStatus int
		wantCode   string
		retryAfter string
	}{
		{
			name:       "allocation conflict asks the client to retry",
			flowErr:    businessflow.NewBusinessError("SEQUENCE_CONFLICT_RETRY", "Identifier allocation is busy, please retry", conflict),
			wantStatus: fiber.StatusServiceUnavailable,
			wantCode:   "SEQUENCE_CONFLICT_RETRY",
			retryAfter: RetryAfterSeconds,
		},
		{
			name:       "allocation timeout is retryable too",
			flowErr:    fmt.Errorf("create landlord: %w", sequence.ErrAllocationTimeout),
			wantStatus: fiber.StatusServiceUnavailable,
			wantCode:   "SEQUENCE_CONFLICT_RETRY",
			retryAfter: RetryAfterSeconds,
		},
		{
			name:       "duplicate email",
			flowErr:    businessflow.NewBusinessError("EMAIL_ALREADY_EXISTS", "Email already exists", businessflow.ErrEmailAlreadyExists),
			wantStatus: fiber.StatusConflict,
			wantCode:   "EMAIL_ALREADY_EXISTS",
		},
		{
			name:       "idempotency key still running",
			flowErr:    businessflow.ErrIdempotencyInProgress,
			wantStatus: fiber.StatusConflict,
			wantCode:   "IDEMPOTENCY_IN_PROGRESS",
		},
		{
			name:       "business validation",
			flowErr:    businessflow.NewBusinessError("LANDLORD_VALIDATION_FAILED", "Invalid landlord", businessflow.ErrInvalidEmail),
			wantStatus: fiber.StatusBadRequest,
			wantCode:   "LANDLORD_VALIDATION_FAILED",
		},
		{
			name:       "deadline exceeded",
			flowErr:    fmt.Errorf("create landlord: %w", context.DeadlineExceeded),
			wantStatus: fiber.StatusGatewayTimeout,
			wantCode:   "REQUEST_TIMEOUT",
		},
		{
			name:       "unexpected failure",
			flowErr:    errors.New("connection reset"),
			wantStatus: fiber.StatusInternalServerError,
			wantCode:   "LANDLORD_CREATE_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := landlordApp(&fakeLandlordFlow{createErr: tt.flowErr})

			resp, env := doRequest(t, app, jsonRequest(http.MethodPost, "/landlords", validLandlordBody))

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantCode, env.Error.Code)
			assert.Equal(t, tt.retryAfter, resp.Header.Get(fiber.HeaderRetryAfter))
		})
	}
}

func TestLandlordCreate_Success(t *testing.T) {
	flow := &fakeLandlordFlow{}
	app := landlordApp(flow)

	req := jsonRequest(http.MethodPost, "/landlords", validLandlordBody)
	req.Header.Set("Idempotency-Key", "  retry-1 ")
	req.Header.Set("X-Request-ID", "req-42")
	resp, env := doRequest(t, app, req)

	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.True(t, env.Success)

	var landlord dto.LandlordDTO
	require.NoError(t, json.Unmarshal(env.Data, &landlord))
	assert.Equal(t, "LA-202501-0001", landlord.ID)
	assert.Equal(t, "Ada Lovelace", landlord.FullName)

	require.NotNil(t, flow.lastMetadata)
	assert.Equal(t, "retry-1", flow.lastMetadata.IdempotencyKey)
	assert.Equal(t, "req-42", flow.lastMetadata.RequestID)
	assert.Equal(t, uint(7), flow.lastMetadata.AdminID)
}

func TestLandlordCreate_RequestValidation(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{name: "malformed json", body: `{"full_name":`, wantCode: "INVALID_REQUEST"},
		{name: "missing email", body: `{"full_name":"Ada Lovelace"}`, wantCode: "VALIDATION_ERROR"},
		{name: "bad email", body: `{"full_name":"Ada Lovelace","email":"not-an-email"}`, wantCode: "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow := &fakeLandlordFlow{}
			app := landlordApp(flow)

			resp, env := doRequest(t, app, jsonRequest(http.MethodPost, "/landlords", tt.body))

			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.wantCode, env.Error.Code)
			assert.Nil(t, flow.lastMetadata, "flow must not be called for a rejected request")
		})
	}
}

func TestLandlordGet(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		flowErr    error
		wantStatus int
		wantCode   string
		wantCalled bool
	}{
		{name: "found", id: "LA-202501-0001", wantStatus: fiber.StatusOK, wantCalled: true},
		{name: "malformed id", id: "LA-2025-1", wantStatus: fiber.StatusBadRequest, wantCode: "INVALID_ENTITY_ID"},
		{name: "lowercase prefix", id: "la-202501-0001", wantStatus: fiber.StatusBadRequest, wantCode: "INVALID_ENTITY_ID"},
		{
			name:       "not found",
			id:         "LA-202501-0002",
			flowErr:    businessflow.NewBusinessError("LANDLORD_NOT_FOUND", "Landlord not found", businessflow.ErrLandlordNotFound),
			wantStatus: fiber.StatusNotFound,
			wantCode:   "LANDLORD_NOT_FOUND",
			wantCalled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow := &fakeLandlordFlow{getErr: tt.flowErr}
			app := landlordApp(flow)

			resp, env := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/landlords/"+tt.id, nil))

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCode, env.Error.Code)
			if tt.wantCalled {
				assert.Equal(t, tt.id, flow.lastID)
			} else {
				assert.Empty(t, flow.lastID)
			}
		})
	}
}

func TestRootCause(t *testing.T) {
	err := businessflow.NewBusinessError("X", "outer", fmt.Errorf("middle: %w", businessflow.ErrInvalidCurrency))
	assert.Equal(t, businessflow.ErrInvalidCurrency.Error(), rootCause(err))
	assert.Equal(t, "plain", rootCause(errors.New("plain")))
}

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amirphl/estatedesk/app/dto"
	businessflow "github.com/amirphl/estatedesk/business_flow"
	"github.com/amirphl/estatedesk/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBookkeepingFlow struct {
	businessflow.BookkeepingFlow

	expenseErr    error
	exportErr     error
	lastAccountID string
	lastYearMonth string
}

func (f *fakeBookkeepingFlow) RecordExpense(ctx context.Context, req *dto.RecordExpenseRequest, metadata *businessflow.ClientMetadata) (*dto.LedgerEntryDTO, error) {
	if f.expenseErr != nil {
		return nil, f.expenseErr
	}
	return &dto.LedgerEntryDTO{ID: "EX-202501-0001", Kind: "expense", AccountID: req.AccountID}, nil
}

func (f *fakeBookkeepingFlow) ExportMonth(ctx context.Context, accountID, yearMonth string) (string, []byte, error) {
	f.lastAccountID, f.lastYearMonth = accountID, yearMonth
	if f.exportErr != nil {
		return "", nil, f.exportErr
	}
	return "ledger-" + accountID + "-" + yearMonth + ".xlsx", []byte("PK\x03\x04workbook"), nil
}

func bookkeepingApp(flow businessflow.BookkeepingFlow) *fiber.App {
	h := NewBookkeepingHandler(flow)
	app := fiber.New()
	app.Post("/expenses", h.RecordExpense)
	app.Get("/accounts/:id/export", h.ExportMonth)
	return app
}

func TestRecordExpense(t *testing.T) {
	body := `{"account_id":"AC-202501-0001","amount":"120.50","category":"repairs"}`

	tests := []struct {
		name       string
		flowErr    error
		wantStatus int
		wantCode   string
	}{
		{name: "recorded", wantStatus: fiber.StatusCreated},
		{
			name:       "overdraft refused",
			flowErr:    businessflow.NewBusinessError("INSUFFICIENT_BALANCE", "Account balance is insufficient", businessflow.ErrInsufficientBalance),
			wantStatus: fiber.StatusUnprocessableEntity,
			wantCode:   "INSUFFICIENT_BALANCE",
		},
		{
			name:       "unknown account",
			flowErr:    businessflow.NewBusinessError("ACCOUNT_NOT_FOUND", "Account not found", businessflow.ErrAccountNotFound),
			wantStatus: fiber.StatusNotFound,
			wantCode:   "ACCOUNT_NOT_FOUND",
		},
		{
			name:       "replayed key points at a missing entry",
			flowErr:    businessflow.NewBusinessError("EXPENSE_NOT_FOUND", "Expense not found", businessflow.ErrExpenseNotFound),
			wantStatus: fiber.StatusNotFound,
			wantCode:   "EXPENSE_NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := bookkeepingApp(&fakeBookkeepingFlow{expenseErr: tt.flowErr})

			resp, env := doRequest(t, app, jsonRequest(http.MethodPost, "/expenses", body))

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCode, env.Error.Code)
		})
	}
}

func TestExportMonth_Headers(t *testing.T) {
	flow := &fakeBookkeepingFlow{}
	app := bookkeepingApp(flow)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/accounts/AC-202501-0001/export?year_month=202501", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, xlsxContentType, resp.Header.Get(fiber.HeaderContentType))
	assert.Equal(t, `attachment; filename="ledger-AC-202501-0001-202501.xlsx"`, resp.Header.Get(fiber.HeaderContentDisposition))
	assert.Equal(t, "AC-202501-0001", flow.lastAccountID)
	assert.Equal(t, "202501", flow.lastYearMonth)
}

func TestExportMonth_DefaultsToCurrentUTCMonth(t *testing.T) {
	flow := &fakeBookkeepingFlow{}
	app := bookkeepingApp(flow)

	before := utils.UTCNow().Format("200601")
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/accounts/AC-202501-0001/export", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	after := utils.UTCNow().Format("200601")

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, []string{before, after}, flow.lastYearMonth)
}

func TestExportMonth_InvalidMonth(t *testing.T) {
	flow := &fakeBookkeepingFlow{
		exportErr: businessflow.NewBusinessError("INVALID_YEAR_MONTH", "Invalid month", businessflow.ErrInvalidYearMonth),
	}
	app := bookkeepingApp(flow)

	resp, env := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/accounts/AC-202501-0001/export?year_month=2025-01", nil))

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_YEAR_MONTH", env.Error.Code)
	assert.Equal(t, businessflow.ErrInvalidYearMonth.Error(), env.Error.Details)
}

func TestRecordExpense_AmountDecoded(t *testing.T) {
	var got decimal.Decimal
	flow := &capturingExpenseFlow{onExpense: func(req *dto.RecordExpenseRequest) { got = req.Amount }}
	app := bookkeepingApp(flow)

	resp, _ := doRequest(t, app, jsonRequest(http.MethodPost, "/expenses", `{"account_id":"AC-202501-0001","amount":"99.99","category":"utilities"}`))

	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.True(t, decimal.RequireFromString("99.99").Equal(got))
}

type capturingExpenseFlow struct {
	fakeBookkeepingFlow
	onExpense func(req *dto.RecordExpenseRequest)
}

func (f *capturingExpenseFlow) RecordExpense(ctx context.Context, req *dto.RecordExpenseRequest, metadata *businessflow.ClientMetadata) (*dto.LedgerEntryDTO, error) {
	f.onExpense(req)
	return f.fakeBookkeepingFlow.RecordExpense(ctx, req, metadata)
}

package handlers

import (
	"fmt"
	"strings"

	"github.com/amirphl/estatedesk/app/dto"
	businessflow "github.com/amirphl/estatedesk/business_flow"
	"github.com/amirphl/estatedesk/utils"
	"github.com/gofiber/fiber/v3"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// BookkeepingHandlerInterface defines the contract for account and ledger handlers
type BookkeepingHandlerInterface interface {
	CreateAccount(c fiber.Ctx) error
	GetAccount(c fiber.Ctx) error
	ListAccounts(c fiber.Ctx) error
	MonthlySummary(c fiber.Ctx) error
	ExportMonth(c fiber.Ctx) error
	RecordIncome(c fiber.Ctx) error
	ListIncomes(c fiber.Ctx) error
	RecordExpense(c fiber.Ctx) error
	ListExpenses(c fiber.Ctx) error
}

type BookkeepingHandler struct {
	baseHandler
	flow businessflow.BookkeepingFlow
}

func NewBookkeepingHandler(flow businessflow.BookkeepingFlow) BookkeepingHandlerInterface {
	return &BookkeepingHandler{
		baseHandler: newBaseHandler(),
		flow:        flow,
	}
}

// CreateAccount opens a bank or cash account
// @Summary Create account
// @Tags Bookkeeping
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Client supplied idempotency key"
// @Param request body dto.CreateAccountRequest true "Account data"
// @Success 201 {object} dto.APIResponse{data=dto.AccountDTO} "Account created"
// @Failure 400 {object} dto.APIResponse "Validation failed"
// @Failure 404 {object} dto.APIResponse "Landlord not found"
// @Failure 503 {object} dto.APIResponse "Identifier allocation busy, retry"
// @Router /api/v1/accounts [post]
func (h *BookkeepingHandler) CreateAccount(c fiber.Ctx) error {
	var req dto.CreateAccountRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/accounts")
	defer cancel()

	account, err := h.flow.CreateAccount(ctx, &req, h.metadata(c))
	if err != nil {
		return h.flowError(c, err, "Failed to create account", "ACCOUNT_CREATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Account created", account)
}

// GetAccount returns one account with its current balance
// @Summary Get account
// @Tags Bookkeeping
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Success 200 {object} dto.APIResponse{data=dto.AccountDTO}
// @Failure 404 {object} dto.APIResponse "Account not found"
// @Router /api/v1/accounts/{id} [get]
func (h *BookkeepingHandler) GetAccount(c fiber.Ctx) error {
	id, err := h.entityIDParam(c)
	if id == "" {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/accounts/:id")
	defer cancel()

	account, err := h.flow.GetAccount(ctx, id)
	if err != nil {
		return h.flowError(c, err, "Failed to get account", "ACCOUNT_GET_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Account retrieved", account)
}

// ListAccounts
// @Summary List accounts
// @Tags Bookkeeping
// @Produce json
// @Security BearerAuth
// @Param landlord_id query string false "Owner landlord"
// @Param kind query string false "bank or cash"
// @Success 200 {object} dto.APIResponse{data=dto.ListAccountsResponse}
// @Router /api/v1/accounts [get]
func (h *BookkeepingHandler) ListAccounts(c fiber.Ctx) error {
	var req dto.ListAccountsRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_QUERY", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/accounts")
	defer cancel()

	resp, err := h.flow.ListAccounts(ctx, &req)
	if err != nil {
		return h.flowError(c, err, "Failed to list accounts", "ACCOUNT_LIST_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Accounts retrieved", resp)
}

// MonthlySummary totals an account's incomes and expenses for one month
// @Summary Monthly account summary
// @Tags Bookkeeping
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Param year_month query string false "YYYYMM, defaults to the current month"
// @Success 200 {object} dto.APIResponse{data=dto.MonthlySummaryResponse}
// @Failure 400 {object} dto.APIResponse "Invalid year_month"
// @Failure 404 {object} dto.APIResponse "Account not found"
// @Router /api/v1/accounts/{id}/summary [get]
func (h *BookkeepingHandler) MonthlySummary(c fiber.Ctx) error {
	id, err := h.entityIDParam(c)
	if id == "" {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/accounts/:id/summary")
	defer cancel()

	summary, err := h.flow.MonthlySummary(ctx, id, yearMonthQuery(c))
	if err != nil {
		return h.flowError(c, err, "Failed to build monthly summary", "ACCOUNT_SUMMARY_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Monthly summary retrieved", summary)
}

// ExportMonth downloads an account's ledger for one month as an Excel workbook
// @Summary Export monthly ledger
// @Tags Bookkeeping
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Param year_month query string false "YYYYMM, defaults to the current month"
// @Success 200 {file} binary "Workbook"
// @Failure 400 {object} dto.APIResponse "Invalid year_month"
// @Failure 404 {object} dto.APIResponse "Account not found"
// @Router /api/v1/accounts/{id}/export [get]
func (h *BookkeepingHandler) ExportMonth(c fiber.Ctx) error {
	id, err := h.entityIDParam(c)
	if id == "" {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/accounts/:id/export")
	defer cancel()

	filename, data, err := h.flow.ExportMonth(ctx, id, yearMonthQuery(c))
	if err != nil {
		return h.flowError(c, err, "Failed to export ledger", "LEDGER_EXPORT_FAILED")
	}

	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Status(fiber.StatusOK).Send(data)
}

// RecordIncome posts an income against an account
// @Summary Record income
// @Tags Bookkeeping
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Client supplied idempotency key"
// @Param request body dto.RecordIncomeRequest true "Income data"
// @Success 201 {object} dto.APIResponse{data=dto.LedgerEntryDTO} "Income recorded"
// @Failure 400 {object} dto.APIResponse "Validation failed"
// @Failure 404 {object} dto.APIResponse "Account, property or tenant not found"
// @Failure 503 {object} dto.APIResponse "Identifier allocation busy, retry"
// @Router /api/v1/incomes [post]
func (h *BookkeepingHandler) RecordIncome(c fiber.Ctx) error {
	var req dto.RecordIncomeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/incomes")
	defer cancel()

	entry, err := h.flow.RecordIncome(ctx, &req, h.metadata(c))
	if err != nil {
		return h.flowError(c, err, "Failed to record income", "INCOME_CREATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Income recorded", entry)
}

// RecordExpense posts an expense against an account
// @Summary Record expense
// @Description Debits the account. Fails with 422 when the account does not allow overdraft and the balance would go negative.
// @Tags Bookkeeping
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Client supplied idempotency key"
// @Param request body dto.RecordExpenseRequest true "Expense data"
// @Success 201 {object} dto.APIResponse{data=dto.LedgerEntryDTO} "Expense recorded"
// @Failure 400 {object} dto.APIResponse "Validation failed"
// @Failure 404 {object} dto.APIResponse "Account or property not found"
// @Failure 422 {object} dto.APIResponse "Insufficient balance"
// @Failure 503 {object} dto.APIResponse "Identifier allocation busy, retry"
// @Router /api/v1/expenses [post]
func (h *BookkeepingHandler) RecordExpense(c fiber.Ctx) error {
	var req dto.RecordExpenseRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/expenses")
	defer cancel()

	entry, err := h.flow.RecordExpense(ctx, &req, h.metadata(c))
	if err != nil {
		return h.flowError(c, err, "Failed to record expense", "EXPENSE_CREATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Expense recorded", entry)
}

// ListIncomes
// @Summary List incomes
// @Tags Bookkeeping
// @Produce json
// @Security BearerAuth
// @Param account_id query string false "Account"
// @Param category query string false "Category"
// @Param from query string false "RFC3339 lower bound"
// @Param to query string false "RFC3339 upper bound"
// @Success 200 {object} dto.APIResponse{data=dto.ListLedgerResponse}
// @Router /api/v1/incomes [get]
func (h *BookkeepingHandler) ListIncomes(c fiber.Ctx) error {
	req, err := h.ledgerQuery(c)
	if req == nil {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/incomes")
	defer cancel()

	resp, err := h.flow.ListIncomes(ctx, req)
	if err != nil {
		return h.flowError(c, err, "Failed to list incomes", "INCOME_LIST_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Incomes retrieved", resp)
}

// ListExpenses
// @Summary List expenses
// @Tags Bookkeeping
// @Produce json
// @Security BearerAuth
// @Param account_id query string false "Account"
// @Param category query string false "Category"
// @Param from query string false "RFC3339 lower bound"
// @Param to query string false "RFC3339 upper bound"
// @Success 200 {object} dto.APIResponse{data=dto.ListLedgerResponse}
// @Router /api/v1/expenses [get]
func (h *BookkeepingHandler) ListExpenses(c fiber.Ctx) error {
	req, err := h.ledgerQuery(c)
	if req == nil {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/expenses")
	defer cancel()

	resp, err := h.flow.ListExpenses(ctx, req)
	if err != nil {
		return h.flowError(c, err, "Failed to list expenses", "EXPENSE_LIST_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Expenses retrieved", resp)
}

func (h *BookkeepingHandler) ledgerQuery(c fiber.Ctx) (*dto.ListLedgerRequest, error) {
	var req dto.ListLedgerRequest
	if err := c.Bind().Query(&req); err != nil {
		return nil, h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_QUERY", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return nil, err
	}
	return &req, nil
}

// yearMonthQuery defaults to the current UTC month
func yearMonthQuery(c fiber.Ctx) string {
	if ym := strings.TrimSpace(c.Query("year_month")); ym != "" {
		return ym
	}
	return utils.UTCNow().Format("200601")
}

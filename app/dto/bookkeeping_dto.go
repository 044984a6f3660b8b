package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateAccountRequest is the body of POST /accounts
type CreateAccountRequest struct {
	Name           string          `json:"name" validate:"required,max=255"`
	Kind           string          `json:"kind" validate:"required,oneof=bank cash"`
	Currency       string          `json:"currency" validate:"required,len=3,alpha"`
	LandlordID     *string         `json:"landlord_id,omitempty" validate:"omitempty,max=32"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	AllowOverdraft bool            `json:"allow_overdraft"`
}

// AccountDTO is the API representation of a bookkeeping account
type AccountDTO struct {
	ID             string          `json:"id"`
	UUID           string          `json:"uuid"`
	Name           string          `json:"name"`
	Kind           string          `json:"kind"`
	Currency       string          `json:"currency"`
	LandlordID     *string         `json:"landlord_id,omitempty"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Balance        decimal.Decimal `json:"balance"`
	AllowOverdraft bool            `json:"allow_overdraft"`
	CreatedAt      string          `json:"created_at"`
}

type ListAccountsRequest struct {
	PaginationRequest
	LandlordID *string `json:"landlord_id,omitempty" query:"landlord_id"`
	Kind       *string `json:"kind,omitempty" query:"kind"`
}

type ListAccountsResponse struct {
	Items      []AccountDTO   `json:"items"`
	Pagination PaginationInfo `json:"pagination"`
}

// RecordIncomeRequest is the body of POST /incomes
type RecordIncomeRequest struct {
	AccountID  string          `json:"account_id" validate:"required,max=32"`
	Amount     decimal.Decimal `json:"amount"`
	Category   string          `json:"category" validate:"required,max=64"`
	PropertyID *string         `json:"property_id,omitempty" validate:"omitempty,max=32"`
	TenantID   *string         `json:"tenant_id,omitempty" validate:"omitempty,max=32"`
	ReceivedAt *time.Time      `json:"received_at,omitempty"`
	Note       *string         `json:"note,omitempty" validate:"omitempty,max=2000"`
}

// RecordExpenseRequest is the body of POST /expenses
type RecordExpenseRequest struct {
	AccountID  string          `json:"account_id" validate:"required,max=32"`
	Amount     decimal.Decimal `json:"amount"`
	Category   string          `json:"category" validate:"required,max=64"`
	PropertyID *string         `json:"property_id,omitempty" validate:"omitempty,max=32"`
	Payee      *string         `json:"payee,omitempty" validate:"omitempty,max=255"`
	PaidAt     *time.Time      `json:"paid_at,omitempty"`
	Note       *string         `json:"note,omitempty" validate:"omitempty,max=2000"`
}

// LedgerEntryDTO is the API representation of an income or expense
type LedgerEntryDTO struct {
	ID           string           `json:"id"`
	Kind         string           `json:"kind"`
	AccountID    string           `json:"account_id"`
	Amount       decimal.Decimal  `json:"amount"`
	Category     string           `json:"category"`
	PropertyID   *string          `json:"property_id,omitempty"`
	TenantID     *string          `json:"tenant_id,omitempty"`
	Payee        *string          `json:"payee,omitempty"`
	Note         *string          `json:"note,omitempty"`
	OccurredAt   string           `json:"occurred_at"`
	BalanceAfter *decimal.Decimal `json:"balance_after,omitempty"`
}

// ListLedgerRequest filters income and expense listings
type ListLedgerRequest struct {
	PaginationRequest
	AccountID  *string    `json:"account_id,omitempty" query:"account_id"`
	PropertyID *string    `json:"property_id,omitempty" query:"property_id"`
	Category   *string    `json:"category,omitempty" query:"category"`
	From       *time.Time `json:"from,omitempty" query:"from"`
	To         *time.Time `json:"to,omitempty" query:"to"`
}

type ListLedgerResponse struct {
	Items      []LedgerEntryDTO `json:"items"`
	Pagination PaginationInfo   `json:"pagination"`
}

// MonthlySummaryResponse totals one account's movements in one month
type MonthlySummaryResponse struct {
	AccountID    string          `json:"account_id"`
	YearMonth    string          `json:"year_month"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	Net          decimal.Decimal `json:"net"`
	Balance      decimal.Decimal `json:"balance"`
}

package businessflow

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/amirphl/estatedesk/app/dto"
	"github.com/amirphl/estatedesk/models"
	"github.com/amirphl/estatedesk/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestBookkeepingFlow_CreateAccount(t *testing.T) {
	env := setupFlows(t)
	ctx := context.Background()

	account, err := env.bookkeeping.CreateAccount(ctx, &dto.CreateAccountRequest{
		Name:           "Operating",
		Kind:           models.AccountKindBank,
		Currency:       "eur",
		OpeningBalance: dec("500.50"),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "AC-202603-0001", account.ID)
	assert.Equal(t, "EUR", account.Currency)
	assert.True(t, dec("500.5").Equal(account.Balance))

	tests := []struct {
		name    string
		req     *dto.CreateAccountRequest
		wantErr error
	}{
		{
			name:    "unknown kind",
			req:     &dto.CreateAccountRequest{Name: "x", Kind: "crypto", Currency: "EUR"},
			wantErr: ErrInvalidAccountKind,
		},
		{
			name:    "bad currency",
			req:     &dto.CreateAccountRequest{Name: "x", Kind: models.AccountKindCash, Currency: "E1R"},
			wantErr: ErrInvalidCurrency,
		},
		{
			name:    "negative opening balance without overdraft",
			req:     &dto.CreateAccountRequest{Name: "x", Kind: models.AccountKindCash, Currency: "EUR", OpeningBalance: dec("-1")},
			wantErr: ErrNegativeAmount,
		},
		{
			name:    "unknown landlord",
			req:     &dto.CreateAccountRequest{Name: "x", Kind: models.AccountKindCash, Currency: "EUR", LandlordID: utils.ToPtr("LA-202603-0099")},
			wantErr: ErrLandlordNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.bookkeeping.CreateAccount(ctx, tt.req, nil)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Equal(t, int64(1), env.counterValue(t, models.EntityAccount))
}

func TestBookkeepingFlow_IncomeAndExpenseMoveBalance(t *testing.T) {
	env := setupFlows(t)
	ctx := context.Background()

	account, err := env.fixtures.CreateAccount(dec("100"), false)
	require.NoError(t, err)
	received := time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC)

	income, err := env.bookkeeping.RecordIncome(ctx, &dto.RecordIncomeRequest{
		AccountID:  account.ID,
		Amount:     dec("250.25"),
		Category:   "rent",
		ReceivedAt: &received,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "IN-202603-0001", income.ID)
	assert.Equal(t, ledgerKindIncome, income.Kind)
	require.NotNil(t, income.BalanceAfter)
	assert.True(t, dec("350.25").Equal(*income.BalanceAfter))

	expense, err := env.bookkeeping.RecordExpense(ctx, &dto.RecordExpenseRequest{
		AccountID: account.ID,
		Amount:    dec("50.5"),
		Category:  "repairs",
		Payee:     utils.ToPtr("Plumber Ltd"),
		PaidAt:    &received,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "EX-202603-0001", expense.ID)
	assert.True(t, dec("299.75").Equal(*expense.BalanceAfter))

	got, err := env.bookkeeping.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, dec("299.75").Equal(got.Balance))

	summary, err := env.bookkeeping.MonthlySummary(ctx, account.ID, "202603")
	require.NoError(t, err)
	assert.True(t, dec("250.25").Equal(summary.TotalIncome))
	assert.True(t, dec("50.5").Equal(summary.TotalExpense))
	assert.True(t, dec("199.75").Equal(summary.Net))

	empty, err := env.bookkeeping.MonthlySummary(ctx, account.ID, "202602")
	require.NoError(t, err)
	assert.True(t, empty.TotalIncome.IsZero())

	_, err = env.bookkeeping.MonthlySummary(ctx, account.ID, "2026-03")
	assert.ErrorIs(t, err, ErrInvalidYearMonth)
}

func TestBookkeepingFlow_InsufficientBalanceRollsBack(t *testing.T) {
	env := setupFlows(t)
	ctx := context.Background()

	account, err := env.fixtures.CreateAccount(dec("20"), false)
	require.NoError(t, err)

	_, err = env.bookkeeping.RecordExpense(ctx, &dto.RecordExpenseRequest{
		AccountID: account.ID,
		Amount:    dec("20.25"),
		Category:  "repairs",
	}, nil)
	require.Error(t, err)
	assert.True(t, IsInsufficientBalance(err))
	assert.Equal(t, "INSUFFICIENT_BALANCE", businessCode(err))
	assert.Equal(t, int64(0), env.counterValue(t, models.EntityExpense))
	assert.Equal(t, int64(0), countRows(t, env.db, &models.Expense{}))

	got, err := env.bookkeeping.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, dec("20").Equal(got.Balance))

	overdraft, err := env.fixtures.CreateAccount(dec("20"), true)
	require.NoError(t, err)
	expense, err := env.bookkeeping.RecordExpense(ctx, &dto.RecordExpenseRequest{
		AccountID: overdraft.ID,
		Amount:    dec("20.25"),
		Category:  "repairs",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "EX-202603-0001", expense.ID)
	assert.True(t, dec("-0.25").Equal(*expense.BalanceAfter))
}

func TestBookkeepingFlow_ReplayOfMissingEntryIsNotFound(t *testing.T) {
	env := setupFlows(t)
	ctx := context.Background()

	account, err := env.fixtures.CreateAccount(dec("100"), false)
	require.NoError(t, err)

	// keys completed with entries that no longer exist
	require.NoError(t, env.idempotency.Complete(ctx, "income", "k-income", "IN-202603-0042"))
	require.NoError(t, env.idempotency.Complete(ctx, "expense", "k-expense", "EX-202603-0042"))

	tests := []struct {
		name     string
		record   func() error
		wantErr  error
		wantCode string
	}{
		{
			name: "income",
			record: func() error {
				_, err := env.bookkeeping.RecordIncome(ctx, &dto.RecordIncomeRequest{
					AccountID: account.ID,
					Amount:    dec("10"),
					Category:  "rent",
				}, &ClientMetadata{IdempotencyKey: "k-income"})
				return err
			},
			wantErr:  ErrIncomeNotFound,
			wantCode: "INCOME_NOT_FOUND",
		},
		{
			name: "expense",
			record: func() error {
				_, err := env.bookkeeping.RecordExpense(ctx, &dto.RecordExpenseRequest{
					AccountID: account.ID,
					Amount:    dec("10"),
					Category:  "repairs",
				}, &ClientMetadata{IdempotencyKey: "k-expense"})
				return err
			},
			wantErr:  ErrExpenseNotFound,
			wantCode: "EXPENSE_NOT_FOUND",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsNotFound(err))
			assert.Equal(t, tt.wantCode, businessCode(err))
		})
	}

	// a replay never posts a new entry
	assert.Equal(t, int64(0), countRows(t, env.db, &models.Income{}))
	assert.Equal(t, int64(0), countRows(t, env.db, &models.Expense{}))
	got, err := env.bookkeeping.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, dec("100").Equal(got.Balance))
}

func TestBookkeepingFlow_EntryValidation(t *testing.T) {
	env := setupFlows(t)
	ctx := context.Background()

	account, err := env.fixtures.CreateAccount(dec("20"), false)
	require.NoError(t, err)

	tests := []struct {
		name    string
		req     *dto.RecordIncomeRequest
		wantErr error
	}{
		{name: "zero amount", req: &dto.RecordIncomeRequest{AccountID: account.ID, Amount: decimal.Zero, Category: "rent"}, wantErr: ErrAmountNotPositive},
		{name: "missing category", req: &dto.RecordIncomeRequest{AccountID: account.ID, Amount: dec("1"), Category: " "}, wantErr: ErrCategoryRequired},
		{name: "unknown account", req: &dto.RecordIncomeRequest{AccountID: "AC-202603-0404", Amount: dec("1"), Category: "rent"}, wantErr: ErrAccountNotFound},
		{name: "unknown tenant", req: &dto.RecordIncomeRequest{AccountID: account.ID, Amount: dec("1"), Category: "rent", TenantID: utils.ToPtr("TE-202603-0404")}, wantErr: ErrTenantNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.bookkeeping.RecordIncome(ctx, tt.req, nil)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Equal(t, int64(0), env.counterValue(t, models.EntityIncome))
}

func TestBookkeepingFlow_ListAndExport(t *testing.T) {
	env := setupFlows(t)
	ctx := context.Background()

	account, err := env.fixtures.CreateAccount(dec("1000"), false)
	require.NoError(t, err)

	for i, day := range []int{2, 5, 9} {
		at := time.Date(2026, time.March, day, 8, 0, 0, 0, time.UTC)
		_, err := env.bookkeeping.RecordIncome(ctx, &dto.RecordIncomeRequest{
			AccountID:  account.ID,
			Amount:     dec("100").Add(decimal.NewFromInt(int64(i))),
			Category:   "rent",
			ReceivedAt: &at,
		}, nil)
		require.NoError(t, err)
	}
	paid := time.Date(2026, time.March, 4, 8, 0, 0, 0, time.UTC)
	_, err = env.bookkeeping.RecordExpense(ctx, &dto.RecordExpenseRequest{
		AccountID: account.ID,
		Amount:    dec("75.5"),
		Category:  "cleaning",
		PaidAt:    &paid,
	}, nil)
	require.NoError(t, err)

	page, err := env.bookkeeping.ListIncomes(ctx, &dto.ListLedgerRequest{
		PaginationRequest: dto.PaginationRequest{Page: 1, PageSize: 2},
		AccountID:         &account.ID,
	})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, int64(3), page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	assert.Equal(t, "IN-202603-0003", page.Items[0].ID, "newest first")

	expenses, err := env.bookkeeping.ListExpenses(ctx, &dto.ListLedgerRequest{Category: utils.ToPtr("cleaning")})
	require.NoError(t, err)
	require.Len(t, expenses.Items, 1)
	assert.Nil(t, expenses.Items[0].BalanceAfter)

	filename, data, err := env.bookkeeping.ExportMonth(ctx, account.ID, "202603")
	require.NoError(t, err)
	assert.Equal(t, "ledger_"+account.ID+"_202603.xlsx", filename)

	xl, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = xl.Close() }()

	incomeRows, err := xl.GetRows("Income 202603")
	require.NoError(t, err)
	require.Len(t, incomeRows, 5) // header, 3 entries, total
	assert.Equal(t, "IN-202603-0001", incomeRows[1][0])
	assert.Equal(t, "303.00", incomeRows[4][3])

	expenseRows, err := xl.GetRows("Expense 202603")
	require.NoError(t, err)
	require.Len(t, expenseRows, 3)
	assert.Equal(t, "75.50", expenseRows[1][3])
}

func TestSanitizeSheetName(t *testing.T) {
	assert.Equal(t, "a_b_c", sanitizeSheetName("a/b:c"))
	assert.Equal(t, "Sheet", sanitizeSheetName("   "))
	assert.Len(t, sanitizeSheetName("an extremely long sheet name that overflows"), 31)
}

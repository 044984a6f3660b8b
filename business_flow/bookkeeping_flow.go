package businessflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/estatedesk/app/dto"
	"github.com/amirphl/estatedesk/app/services"
	"github.com/amirphl/estatedesk/models"
	"github.com/amirphl/estatedesk/repository"
	"github.com/amirphl/estatedesk/sequence"
	"github.com/amirphl/estatedesk/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	ledgerKindIncome  = "income"
	ledgerKindExpense = "expense"
)

// BookkeepingFlow handles accounts, incomes and expenses
type BookkeepingFlow interface {
	CreateAccount(ctx context.Context, req *dto.CreateAccountRequest, metadata *ClientMetadata) (*dto.AccountDTO, error)
	GetAccount(ctx context.Context, id string) (*dto.AccountDTO, error)
	ListAccounts(ctx context.Context, req *dto.ListAccountsRequest) (*dto.ListAccountsResponse, error)
	RecordIncome(ctx context.Context, req *dto.RecordIncomeRequest, metadata *ClientMetadata) (*dto.LedgerEntryDTO, error)
	RecordExpense(ctx context.Context, req *dto.RecordExpenseRequest, metadata *ClientMetadata) (*dto.LedgerEntryDTO, error)
	ListIncomes(ctx context.Context, req *dto.ListLedgerRequest) (*dto.ListLedgerResponse, error)
	ListExpenses(ctx context.Context, req *dto.ListLedgerRequest) (*dto.ListLedgerResponse, error)
	MonthlySummary(ctx context.Context, accountID, yearMonth string) (*dto.MonthlySummaryResponse, error)
	ExportMonth(ctx context.Context, accountID, yearMonth string) (string, []byte, error)
}

type BookkeepingFlowImpl struct {
	accountRepo  repository.AccountRepository
	incomeRepo   repository.IncomeRepository
	expenseRepo  repository.ExpenseRepository
	landlordRepo repository.LandlordRepository
	propertyRepo repository.PropertyRepository
	tenantRepo   repository.TenantRepository
	allocator    *sequence.Allocator
	idempotency  services.IdempotencyStore
}

func NewBookkeepingFlow(
	accountRepo repository.AccountRepository,
	incomeRepo repository.IncomeRepository,
	expenseRepo repository.ExpenseRepository,
	landlordRepo repository.LandlordRepository,
	propertyRepo repository.PropertyRepository,
	tenantRepo repository.TenantRepository,
	allocator *sequence.Allocator,
	idempotency services.IdempotencyStore,
) BookkeepingFlow {
	return &BookkeepingFlowImpl{
		accountRepo:  accountRepo,
		incomeRepo:   incomeRepo,
		expenseRepo:  expenseRepo,
		landlordRepo: landlordRepo,
		propertyRepo: propertyRepo,
		tenantRepo:   tenantRepo,
		allocator:    allocator,
		idempotency:  idempotency,
	}
}

func (f *BookkeepingFlowImpl) CreateAccount(ctx context.Context, req *dto.CreateAccountRequest, metadata *ClientMetadata) (*dto.AccountDTO, error) {
	if req == nil {
		return nil, NewBusinessError("ACCOUNT_VALIDATION_FAILED", "Create account validation failed", ErrInvalidAccountKind)
	}
	if req.Kind != models.AccountKindBank && req.Kind != models.AccountKindCash {
		return nil, NewBusinessError("INVALID_ACCOUNT_KIND", "Account kind is invalid", ErrInvalidAccountKind)
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if !validCurrency(currency) {
		return nil, NewBusinessError("INVALID_CURRENCY", "Currency must be a 3-letter ISO code", ErrInvalidCurrency)
	}
	if req.OpeningBalance.IsNegative() && !req.AllowOverdraft {
		return nil, NewBusinessError("NEGATIVE_AMOUNT", "Opening balance cannot be negative", ErrNegativeAmount)
	}
	landlordID := trimmedPtr(req.LandlordID)

	return idempotent(ctx, f.idempotency, "account", idempotencyKeyOf(metadata),
		func(ctx context.Context, id string) (*dto.AccountDTO, error) {
			return f.GetAccount(ctx, id)
		},
		func(ctx context.Context) (*dto.AccountDTO, string, error) {
			account, err := sequence.AllocateAndCreate(ctx, f.allocator, models.EntityAccount,
				func(ctx context.Context, id string) (*models.Account, error) {
					if landlordID != nil {
						landlord, err := f.landlordRepo.ByID(ctx, *landlordID)
						if err != nil {
							return nil, err
						}
						if landlord == nil {
							return nil, NewBusinessError("LANDLORD_NOT_FOUND", "Landlord not found", ErrLandlordNotFound)
						}
					}

					a := &models.Account{
						ID:             id,
						Name:           strings.TrimSpace(req.Name),
						Kind:           req.Kind,
						Currency:       currency,
						LandlordID:     landlordID,
						OpeningBalance: req.OpeningBalance,
						Balance:        req.OpeningBalance,
						AllowOverdraft: utils.ToPtr(req.AllowOverdraft),
					}
					if err := f.accountRepo.Save(ctx, a); err != nil {
						return nil, err
					}
					return a, nil
				})
			if err != nil {
				return nil, "", creationError("ACCOUNT_CREATE_FAILED", "Failed to create account", err)
			}
			resp := ToAccountDTO(*account)
			return &resp, account.ID, nil
		})
}

func validCurrency(c string) bool {
	if len(c) != 3 {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func (f *BookkeepingFlowImpl) loadAccount(ctx context.Context, id string) (*models.Account, error) {
	account, err := f.accountRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_LOOKUP_FAILED", "Failed to lookup account", err)
	}
	if account == nil {
		return nil, NewBusinessError("ACCOUNT_NOT_FOUND", "Account not found", ErrAccountNotFound)
	}
	return account, nil
}

func (f *BookkeepingFlowImpl) GetAccount(ctx context.Context, id string) (*dto.AccountDTO, error) {
	account, err := f.loadAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToAccountDTO(*account)
	return &resp, nil
}

func (f *BookkeepingFlowImpl) ListAccounts(ctx context.Context, req *dto.ListAccountsRequest) (*dto.ListAccountsResponse, error) {
	if req == nil {
		req = &dto.ListAccountsRequest{}
	}
	page, size, offset, err := pageParams(req.PaginationRequest)
	if err != nil {
		return nil, err
	}

	filter := models.AccountFilter{
		LandlordID: trimmedPtr(req.LandlordID),
		Kind:       trimmedPtr(req.Kind),
	}
	total, err := f.accountRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_COUNT_FAILED", "Failed to count accounts", err)
	}
	rows, err := f.accountRepo.ByFilter(ctx, filter, "created_at DESC, id DESC", size, offset)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_LIST_FAILED", "Failed to list accounts", err)
	}

	items := make([]dto.AccountDTO, 0, len(rows))
	for _, a := range rows {
		items = append(items, ToAccountDTO(*a))
	}
	return &dto.ListAccountsResponse{Items: items, Pagination: paginationInfo(total, page, size)}, nil
}

// checkLedgerRefs verifies the optional property and tenant an entry points at
func (f *BookkeepingFlowImpl) checkLedgerRefs(ctx context.Context, propertyID, tenantID *string) error {
	if propertyID != nil {
		p, err := f.propertyRepo.ByID(ctx, *propertyID)
		if err != nil {
			return err
		}
		if p == nil {
			return NewBusinessError("PROPERTY_NOT_FOUND", "Property not found", ErrPropertyNotFound)
		}
	}
	if tenantID != nil {
		t, err := f.tenantRepo.ByID(ctx, *tenantID)
		if err != nil {
			return err
		}
		if t == nil {
			return NewBusinessError("TENANT_NOT_FOUND", "Tenant not found", ErrTenantNotFound)
		}
	}
	return nil
}

// accountInTx loads the account inside the allocator transaction
func (f *BookkeepingFlowImpl) accountInTx(ctx context.Context, id string) (*models.Account, error) {
	account, err := f.accountRepo.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, NewBusinessError("ACCOUNT_NOT_FOUND", "Account not found", ErrAccountNotFound)
	}
	return account, nil
}

func validateEntry(amount decimal.Decimal, category string) error {
	if !amount.IsPositive() {
		return NewBusinessError("AMOUNT_NOT_POSITIVE", "Amount must be greater than zero", ErrAmountNotPositive)
	}
	if strings.TrimSpace(category) == "" {
		return NewBusinessError("CATEGORY_REQUIRED", "Category is required", ErrCategoryRequired)
	}
	return nil
}

type postedIncome struct {
	income  *models.Income
	balance decimal.Decimal
}

func (f *BookkeepingFlowImpl) RecordIncome(ctx context.Context, req *dto.RecordIncomeRequest, metadata *ClientMetadata) (*dto.LedgerEntryDTO, error) {
	if req == nil {
		return nil, NewBusinessError("INCOME_VALIDATION_FAILED", "Record income validation failed", ErrAmountNotPositive)
	}
	if err := validateEntry(req.Amount, req.Category); err != nil {
		return nil, err
	}
	propertyID := trimmedPtr(req.PropertyID)
	tenantID := trimmedPtr(req.TenantID)

	return idempotent(ctx, f.idempotency, "income", idempotencyKeyOf(metadata),
		func(ctx context.Context, id string) (*dto.LedgerEntryDTO, error) {
			income, err := f.incomeRepo.ByID(ctx, id)
			if err != nil {
				return nil, NewBusinessError("INCOME_LOOKUP_FAILED", "Failed to lookup income", err)
			}
			if income == nil {
				return nil, NewBusinessError("INCOME_NOT_FOUND", "Income not found", ErrIncomeNotFound)
			}
			resp := ToIncomeDTO(*income)
			return &resp, nil
		},
		func(ctx context.Context) (*dto.LedgerEntryDTO, string, error) {
			posted, err := sequence.AllocateAndCreate(ctx, f.allocator, models.EntityIncome,
				func(ctx context.Context, id string) (postedIncome, error) {
					account, err := f.accountInTx(ctx, req.AccountID)
					if err != nil {
						return postedIncome{}, err
					}
					if err := f.checkLedgerRefs(ctx, propertyID, tenantID); err != nil {
						return postedIncome{}, err
					}

					income := &models.Income{
						LedgerEntry: models.LedgerEntry{
							ID:         id,
							AccountID:  account.ID,
							Amount:     req.Amount,
							Category:   strings.TrimSpace(req.Category),
							PropertyID: propertyID,
							Note:       trimmedPtr(req.Note),
						},
						TenantID: tenantID,
					}
					if req.ReceivedAt != nil {
						income.OccurredAt = req.ReceivedAt.UTC()
					}
					if err := f.incomeRepo.Save(ctx, income); err != nil {
						return postedIncome{}, err
					}

					balance := account.Balance.Add(req.Amount)
					if err := f.accountRepo.SetBalance(ctx, account.ID, balance); err != nil {
						return postedIncome{}, err
					}
					return postedIncome{income: income, balance: balance}, nil
				})
			if err != nil {
				return nil, "", creationError("INCOME_CREATE_FAILED", "Failed to record income", err)
			}

			resp := ToIncomeDTO(*posted.income)
			resp.BalanceAfter = &posted.balance
			return &resp, posted.income.ID, nil
		})
}

type postedExpense struct {
	expense *models.Expense
	balance decimal.Decimal
}

func (f *BookkeepingFlowImpl) RecordExpense(ctx context.Context, req *dto.RecordExpenseRequest, metadata *ClientMetadata) (*dto.LedgerEntryDTO, error) {
	if req == nil {
		return nil, NewBusinessError("EXPENSE_VALIDATION_FAILED", "Record expense validation failed", ErrAmountNotPositive)
	}
	if err := validateEntry(req.Amount, req.Category); err != nil {
		return nil, err
	}
	propertyID := trimmedPtr(req.PropertyID)

	return idempotent(ctx, f.idempotency, "expense", idempotencyKeyOf(metadata),
		func(ctx context.Context, id string) (*dto.LedgerEntryDTO, error) {
			expense, err := f.expenseRepo.ByID(ctx, id)
			if err != nil {
				return nil, NewBusinessError("EXPENSE_LOOKUP_FAILED", "Failed to lookup expense", err)
			}
			if expense == nil {
				return nil, NewBusinessError("EXPENSE_NOT_FOUND", "Expense not found", ErrExpenseNotFound)
			}
			resp := ToExpenseDTO(*expense)
			return &resp, nil
		},
		func(ctx context.Context) (*dto.LedgerEntryDTO, string, error) {
			posted, err := sequence.AllocateAndCreate(ctx, f.allocator, models.EntityExpense,
				func(ctx context.Context, id string) (postedExpense, error) {
					account, err := f.accountInTx(ctx, req.AccountID)
					if err != nil {
						return postedExpense{}, err
					}
					if err := f.checkLedgerRefs(ctx, propertyID, nil); err != nil {
						return postedExpense{}, err
					}

					balance := account.Balance.Sub(req.Amount)
					if balance.IsNegative() && !utils.IsTrue(account.AllowOverdraft) {
						return postedExpense{}, ErrInsufficientBalance
					}

					expense := &models.Expense{
						LedgerEntry: models.LedgerEntry{
							ID:         id,
							AccountID:  account.ID,
							Amount:     req.Amount,
							Category:   strings.TrimSpace(req.Category),
							PropertyID: propertyID,
							Note:       trimmedPtr(req.Note),
						},
						Payee: trimmedPtr(req.Payee),
					}
					if req.PaidAt != nil {
						expense.OccurredAt = req.PaidAt.UTC()
					}
					if err := f.expenseRepo.Save(ctx, expense); err != nil {
						return postedExpense{}, err
					}
					if err := f.accountRepo.SetBalance(ctx, account.ID, balance); err != nil {
						return postedExpense{}, err
					}
					return postedExpense{expense: expense, balance: balance}, nil
				})
			if err != nil {
				return nil, "", creationError("EXPENSE_CREATE_FAILED", "Failed to record expense", err)
			}

			resp := ToExpenseDTO(*posted.expense)
			resp.BalanceAfter = &posted.balance
			return &resp, posted.expense.ID, nil
		})
}

func ledgerFilter(req *dto.ListLedgerRequest) (models.LedgerFilter, error) {
	if err := checkDateRange(req.From, req.To); err != nil {
		return models.LedgerFilter{}, err
	}
	return models.LedgerFilter{
		AccountID:      trimmedPtr(req.AccountID),
		PropertyID:     trimmedPtr(req.PropertyID),
		Category:       trimmedPtr(req.Category),
		OccurredAfter:  utils.TimeToUTCPtr(req.From),
		OccurredBefore: utils.TimeToUTCPtr(req.To),
	}, nil
}

func (f *BookkeepingFlowImpl) ListIncomes(ctx context.Context, req *dto.ListLedgerRequest) (*dto.ListLedgerResponse, error) {
	if req == nil {
		req = &dto.ListLedgerRequest{}
	}
	page, size, offset, err := pageParams(req.PaginationRequest)
	if err != nil {
		return nil, err
	}
	filter, err := ledgerFilter(req)
	if err != nil {
		return nil, err
	}

	total, err := f.incomeRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("INCOME_COUNT_FAILED", "Failed to count incomes", err)
	}
	rows, err := f.incomeRepo.ByFilter(ctx, filter, "", size, offset)
	if err != nil {
		return nil, NewBusinessError("INCOME_LIST_FAILED", "Failed to list incomes", err)
	}

	items := make([]dto.LedgerEntryDTO, 0, len(rows))
	for _, i := range rows {
		items = append(items, ToIncomeDTO(*i))
	}
	return &dto.ListLedgerResponse{Items: items, Pagination: paginationInfo(total, page, size)}, nil
}

func (f *BookkeepingFlowImpl) ListExpenses(ctx context.Context, req *dto.ListLedgerRequest) (*dto.ListLedgerResponse, error) {
	if req == nil {
		req = &dto.ListLedgerRequest{}
	}
	page, size, offset, err := pageParams(req.PaginationRequest)
	if err != nil {
		return nil, err
	}
	filter, err := ledgerFilter(req)
	if err != nil {
		return nil, err
	}

	total, err := f.expenseRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("EXPENSE_COUNT_FAILED", "Failed to count expenses", err)
	}
	rows, err := f.expenseRepo.ByFilter(ctx, filter, "", size, offset)
	if err != nil {
		return nil, NewBusinessError("EXPENSE_LIST_FAILED", "Failed to list expenses", err)
	}

	items := make([]dto.LedgerEntryDTO, 0, len(rows))
	for _, e := range rows {
		items = append(items, ToExpenseDTO(*e))
	}
	return &dto.ListLedgerResponse{Items: items, Pagination: paginationInfo(total, page, size)}, nil
}

// monthBounds parses a YYYYMM period in UTC. An empty period means the current month.
func monthBounds(yearMonth string) (string, time.Time, time.Time, error) {
	var ref time.Time
	if yearMonth == "" {
		ref = utils.UTCNow()
	} else {
		t, err := time.ParseInLocation("200601", yearMonth, time.UTC)
		if err != nil {
			return "", time.Time{}, time.Time{}, NewBusinessError("INVALID_YEAR_MONTH", "year_month must be formatted as YYYYMM", ErrInvalidYearMonth)
		}
		ref = t
	}
	start, end := utils.MonthRange(ref)
	return start.Format("200601"), start, end, nil
}

func (f *BookkeepingFlowImpl) MonthlySummary(ctx context.Context, accountID, yearMonth string) (*dto.MonthlySummaryResponse, error) {
	account, err := f.loadAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	period, start, end, err := monthBounds(yearMonth)
	if err != nil {
		return nil, err
	}

	filter := models.LedgerFilter{AccountID: &account.ID, OccurredAfter: &start, OccurredBefore: &end}
	income, err := f.incomeRepo.Sum(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("SUMMARY_FAILED", "Failed to total incomes", err)
	}
	expense, err := f.expenseRepo.Sum(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("SUMMARY_FAILED", "Failed to total expenses", err)
	}

	return &dto.MonthlySummaryResponse{
		AccountID:    account.ID,
		YearMonth:    period,
		TotalIncome:  income,
		TotalExpense: expense,
		Net:          income.Sub(expense),
		Balance:      account.Balance,
	}, nil
}

// ExportMonth writes one account's incomes and expenses for a month to an xlsx workbook
func (f *BookkeepingFlowImpl) ExportMonth(ctx context.Context, accountID, yearMonth string) (string, []byte, error) {
	account, err := f.loadAccount(ctx, accountID)
	if err != nil {
		return "", nil, err
	}
	period, start, end, err := monthBounds(yearMonth)
	if err != nil {
		return "", nil, err
	}

	filter := models.LedgerFilter{AccountID: &account.ID, OccurredAfter: &start, OccurredBefore: &end}
	incomes, err := f.incomeRepo.ByFilter(ctx, filter, "occurred_at ASC, id ASC", 0, 0)
	if err != nil {
		return "", nil, NewBusinessError("FETCH_LEDGER_FAILED", "Failed to fetch incomes", err)
	}
	expenses, err := f.expenseRepo.ByFilter(ctx, filter, "occurred_at ASC, id ASC", 0, 0)
	if err != nil {
		return "", nil, NewBusinessError("FETCH_LEDGER_FAILED", "Failed to fetch expenses", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	incomeSheet := sanitizeSheetName("Income " + period)
	expenseSheet := sanitizeSheetName("Expense " + period)
	if err := xl.SetSheetName(xl.GetSheetName(0), incomeSheet); err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to prepare workbook", err)
	}
	if _, err := xl.NewSheet(expenseSheet); err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to prepare workbook", err)
	}

	incomeHeader := []string{"id", "occurred_at", "category", "amount", "property_id", "tenant_id", "note"}
	_ = xl.SetSheetRow(incomeSheet, "A1", &incomeHeader)
	total := decimal.Zero
	for ri, i := range incomes {
		record := []any{
			i.ID,
			i.OccurredAt.UTC().Format(time.RFC3339),
			i.Category,
			i.Amount.StringFixed(2),
			deref(i.PropertyID),
			deref(i.TenantID),
			deref(i.Note),
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
		_ = xl.SetSheetRow(incomeSheet, cellRef, &record)
		total = total.Add(i.Amount)
	}
	writeTotalRow(xl, incomeSheet, len(incomes)+2, total)

	expenseHeader := []string{"id", "occurred_at", "category", "amount", "property_id", "payee", "note"}
	_ = xl.SetSheetRow(expenseSheet, "A1", &expenseHeader)
	total = decimal.Zero
	for ri, e := range expenses {
		record := []any{
			e.ID,
			e.OccurredAt.UTC().Format(time.RFC3339),
			e.Category,
			e.Amount.StringFixed(2),
			deref(e.PropertyID),
			deref(e.Payee),
			deref(e.Note),
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
		_ = xl.SetSheetRow(expenseSheet, cellRef, &record)
		total = total.Add(e.Amount)
	}
	writeTotalRow(xl, expenseSheet, len(expenses)+2, total)

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}
	filename := fmt.Sprintf("ledger_%s_%s.xlsx", account.ID, period)
	return filename, buf.Bytes(), nil
}

func writeTotalRow(xl *excelize.File, sheet string, row int, total decimal.Decimal) {
	cellRef, _ := excelize.CoordinatesToCellName(3, row)
	record := []any{"total", total.StringFixed(2)}
	_ = xl.SetSheetRow(sheet, cellRef, &record)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func sanitizeSheetName(name string) string {
	// Excel sheet names cannot contain: : \\ / ? * [ ] and must be <= 31 chars
	replacer := strings.NewReplacer(":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_")
	safe := replacer.Replace(name)
	return truncateSheetName(strings.TrimSpace(safe))
}

func truncateSheetName(name string) string {
	if len(name) > 31 {
		return name[:31]
	}
	if name == "" {
		return "Sheet"
	}
	return name
}

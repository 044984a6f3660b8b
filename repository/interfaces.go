// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/amirphl/estatedesk/models"
	"github.com/shopspring/decimal"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// EntityRepository is a repository of entities keyed by their human-readable ID
type EntityRepository[T any, F any] interface {
	Repository[T, F]
	ByID(ctx context.Context, id string) (*T, error)
	Update(ctx context.Context, entity *T) error
	Delete(ctx context.Context, id string) error
}

// Transactor opens database transactions and exposes them to repositories through the context
type Transactor interface {
	Within(ctx context.Context, fn func(ctx context.Context) error) error
	WithinSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}

// SequenceCounterRepository defines operations for per-type, per-month ID counters
type SequenceCounterRepository interface {
	Repository[models.SequenceCounter, models.SequenceCounterFilter]
	ByKey(ctx context.Context, key string) (*models.SequenceCounter, error)
	// Next advances the counter for entityType in yearMonth and returns the new value.
	// It must run inside a transaction carried by ctx.
	Next(ctx context.Context, entityType, yearMonth string) (int64, error)
}

// LandlordRepository defines operations for landlords
type LandlordRepository interface {
	EntityRepository[models.Landlord, models.PartyFilter]
	ByEmail(ctx context.Context, email string) (*models.Landlord, error)
}

// TenantRepository defines operations for tenants
type TenantRepository interface {
	EntityRepository[models.Tenant, models.PartyFilter]
	ByEmail(ctx context.Context, email string) (*models.Tenant, error)
}

// AgentRepository defines operations for field agents
type AgentRepository interface {
	EntityRepository[models.Agent, models.PartyFilter]
	ByEmail(ctx context.Context, email string) (*models.Agent, error)
}

// PropertyRepository defines operations for properties
type PropertyRepository interface {
	EntityRepository[models.Property, models.PropertyFilter]
}

// AccountRepository defines operations for bookkeeping accounts
type AccountRepository interface {
	EntityRepository[models.Account, models.AccountFilter]
	// SetBalance overwrites the balance of an account; callers compute the new value inside their transaction
	SetBalance(ctx context.Context, id string, balance decimal.Decimal) error
}

// IncomeRepository defines operations for incomes
type IncomeRepository interface {
	Repository[models.Income, models.LedgerFilter]
	ByID(ctx context.Context, id string) (*models.Income, error)
	Sum(ctx context.Context, filter models.LedgerFilter) (decimal.Decimal, error)
}

// ExpenseRepository defines operations for expenses
type ExpenseRepository interface {
	Repository[models.Expense, models.LedgerFilter]
	ByID(ctx context.Context, id string) (*models.Expense, error)
	Sum(ctx context.Context, filter models.LedgerFilter) (decimal.Decimal, error)
}

// EmailLogRepository defines operations for email logs
type EmailLogRepository interface {
	Repository[models.EmailLog, models.EmailLogFilter]
}

// AdminRepository defines operations for admins
type AdminRepository interface {
	Repository[models.Admin, models.AdminFilter]
	ByID(ctx context.Context, id uint) (*models.Admin, error)
	ByUsername(ctx context.Context, username string) (*models.Admin, error)
	UpdateLastLogin(ctx context.Context, id uint, at time.Time) error
}

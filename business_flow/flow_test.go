package businessflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/amirphl/estatedesk/app/services"
	"github.com/amirphl/estatedesk/repository"
	"github.com/amirphl/estatedesk/sequence"
	testutil "github.com/amirphl/estatedesk/testing"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var march2026 = time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)

type recordingEmailProvider struct {
	mu   sync.Mutex
	sent []string
	fail error
}

func (p *recordingEmailProvider) SendEmail(email, subject, message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.sent = append(p.sent, email)
	return nil
}

func (p *recordingEmailProvider) recipients() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.sent...)
}

type memoryIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]string
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{keys: make(map[string]string)}
}

func (s *memoryIdempotencyStore) Reserve(_ context.Context, scope, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.keys[scope+":"+key]
	if !ok {
		s.keys[scope+":"+key] = ""
		return "", true, nil
	}
	if v == "" {
		return "", false, services.ErrIdempotencyPending
	}
	return v, false, nil
}

func (s *memoryIdempotencyStore) Complete(_ context.Context, scope, key, entityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[scope+":"+key] = entityID
	return nil
}

func (s *memoryIdempotencyStore) Release(_ context.Context, scope, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, scope+":"+key)
	return nil
}

// flowEnv wires every flow against one in-memory database
type flowEnv struct {
	db          *gorm.DB
	fixtures    *testutil.TestFixtures
	allocator   *sequence.Allocator
	counters    repository.SequenceCounterRepository
	email       *recordingEmailProvider
	idempotency *memoryIdempotencyStore

	landlords   LandlordFlow
	tenants     TenantFlow
	agents      AgentFlow
	properties  PropertyFlow
	bookkeeping BookkeepingFlow
	emails      EmailFlow
	sequences   SequenceAdminFlow
	adminAuth   AdminAuthFlow

	tokenService services.TokenService
	adminRepo    repository.AdminRepository
}

func setupFlows(t *testing.T) *flowEnv {
	t.Helper()

	db, err := testutil.NewSQLiteDB()
	require.NoError(t, err)
	t.Cleanup(func() { testutil.CloseDB(db) })

	counters := repository.NewSequenceCounterRepository(db)
	transactor := repository.NewTransactor(db)
	allocator := sequence.NewAllocator(counters, transactor, sequence.Config{
		BackoffBase: time.Millisecond,
		BackoffMax:  5 * time.Millisecond,
		Clock:       func() time.Time { return march2026 },
	})

	landlordRepo := repository.NewLandlordRepository(db)
	tenantRepo := repository.NewTenantRepository(db)
	agentRepo := repository.NewAgentRepository(db)
	propertyRepo := repository.NewPropertyRepository(db)
	adminRepo := repository.NewAdminRepository(db)

	provider := &recordingEmailProvider{}
	store := newMemoryIdempotencyStore()
	emails := NewEmailFlow(services.NewNotificationService(provider), repository.NewEmailLogRepository(db))

	tokenService, err := services.NewTokenService(15*time.Minute, time.Hour, "test-issuer", "test-audience", false, "", "", "test-secret-key-for-jwt-signing-32-chars")
	require.NoError(t, err)

	return &flowEnv{
		db:          db,
		fixtures:    testutil.NewTestFixtures(db),
		allocator:   allocator,
		counters:    counters,
		email:       provider,
		idempotency: store,

		landlords:  NewLandlordFlow(landlordRepo, allocator, store, emails),
		tenants:    NewTenantFlow(tenantRepo, propertyRepo, transactor, allocator, store, emails),
		agents:     NewAgentFlow(agentRepo, allocator, store),
		properties: NewPropertyFlow(propertyRepo, landlordRepo, agentRepo, transactor, allocator, store),
		bookkeeping: NewBookkeepingFlow(
			repository.NewAccountRepository(db),
			repository.NewIncomeRepository(db),
			repository.NewExpenseRepository(db),
			landlordRepo, propertyRepo, tenantRepo,
			allocator, store,
		),
		emails:    emails,
		sequences: NewSequenceAdminFlow(counters, allocator),
		adminAuth: NewAdminAuthFlow(adminRepo, tokenService),

		tokenService: tokenService,
		adminRepo:    adminRepo,
	}
}

// counterValue returns the stored counter for entityType in March 2026, or 0 when absent
func (e *flowEnv) counterValue(t *testing.T, entityType string) int64 {
	t.Helper()
	c, err := e.counters.ByKey(context.Background(), sequence.CounterKey(entityType, "202603"))
	require.NoError(t, err)
	if c == nil {
		return 0
	}
	return c.Value
}

func businessCode(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

package sequence

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/amirphl/estatedesk/models"
	"github.com/amirphl/estatedesk/repository"
	testutil "github.com/amirphl/estatedesk/testing"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var jan2026 = time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC)

// widget is a throwaway entity used to exercise the allocator against a real table
type widget struct {
	ID   string `gorm:"primaryKey;size:32"`
	Name string `gorm:"size:64;not null;uniqueIndex"`
}

func setupAllocator(t *testing.T) (*Allocator, *gorm.DB) {
	t.Helper()

	db, err := testutil.NewSQLiteDB()
	require.NoError(t, err)
	t.Cleanup(func() { testutil.CloseDB(db) })
	require.NoError(t, db.AutoMigrate(&widget{}))

	a := NewAllocator(
		repository.NewSequenceCounterRepository(db),
		repository.NewTransactor(db),
		Config{BackoffBase: time.Millisecond, BackoffMax: 5 * time.Millisecond},
	)
	return a, db
}

func createWidget(name string) func(ctx context.Context, id string) (*widget, error) {
	return func(ctx context.Context, id string) (*widget, error) {
		tx := ctx.Value(repository.TxContextKey).(*gorm.DB)
		w := &widget{ID: id, Name: name}
		if err := tx.Create(w).Error; err != nil {
			return nil, err
		}
		return w, nil
	}
}

func sequenceOf(t *testing.T, id string) int64 {
	t.Helper()
	parsed, err := ParseID(id)
	require.NoError(t, err)
	return parsed.Sequence
}

func TestAllocateAndCreate_UniqueAndMonotonic(t *testing.T) {
	a, db := setupAllocator(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	var last int64
	for i := 0; i < 20; i++ {
		w, err := AllocateAndCreate(ctx, a, "Widget", createWidget(fmt.Sprintf("w-%d", i)), At(jan2026))
		require.NoError(t, err)
		assert.False(t, seen[w.ID], "duplicate id %s", w.ID)
		seen[w.ID] = true

		seq := sequenceOf(t, w.ID)
		assert.Greater(t, seq, last)
		last = seq
	}

	var count int64
	require.NoError(t, db.Model(&widget{}).Count(&count).Error)
	assert.Equal(t, int64(20), count)

	counter, err := a.Peek(ctx, "Widget", jan2026)
	require.NoError(t, err)
	require.NotNil(t, counter)
	assert.Equal(t, int64(20), counter.Value)
}

func TestAllocateAndCreate_FailureDoesNotConsumeValue(t *testing.T) {
	a, db := setupAllocator(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		w, err := AllocateAndCreate(ctx, a, "User", createWidget(fmt.Sprintf("u-%d", i)), At(jan2026))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("US-202601-%04d", i), w.ID)
	}

	errBoom := errors.New("create failed")
	_, err := AllocateAndCreate(ctx, a, "User", func(ctx context.Context, id string) (*widget, error) {
		assert.Equal(t, "US-202601-0004", id)
		if _, err := createWidget("doomed")(ctx, id); err != nil {
			return nil, err
		}
		return nil, errBoom
	}, At(jan2026))
	assert.ErrorIs(t, err, errBoom)

	counter, err := a.Peek(ctx, "User", jan2026)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counter.Value)

	var doomed int64
	require.NoError(t, db.Model(&widget{}).Where("name = ?", "doomed").Count(&doomed).Error)
	assert.Zero(t, doomed)

	w, err := AllocateAndCreate(ctx, a, "User", createWidget("u-4"), At(jan2026))
	require.NoError(t, err)
	assert.Equal(t, "US-202601-0004", w.ID)
}

func TestAllocateAndCreate_DuplicateInsertPropagatesWithoutAdvancing(t *testing.T) {
	a, _ := setupAllocator(t)
	ctx := context.Background()

	_, err := AllocateAndCreate(ctx, a, "Widget", createWidget("same"), At(jan2026))
	require.NoError(t, err)

	_, err = AllocateAndCreate(ctx, a, "Widget", createWidget("same"), At(jan2026))
	require.Error(t, err)
	assert.True(t, repository.IsUniqueViolation(err))
	assert.False(t, IsRetryable(err))

	counter, err := a.Peek(ctx, "Widget", jan2026)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counter.Value)
}

func TestAllocateAndCreate_MonthRollover(t *testing.T) {
	a, _ := setupAllocator(t)
	ctx := context.Background()

	endOfJan := time.Date(2026, time.January, 31, 23, 59, 59, 0, time.UTC)
	startOfFeb := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)

	jan, err := AllocateAndCreate(ctx, a, "User", createWidget("jan"), At(endOfJan))
	require.NoError(t, err)
	feb, err := AllocateAndCreate(ctx, a, "User", createWidget("feb"), At(startOfFeb))
	require.NoError(t, err)

	assert.Equal(t, "US-202601-0001", jan.ID)
	assert.Equal(t, "US-202602-0001", feb.ID)
}

func TestAllocateAndCreate_FormatWidens(t *testing.T) {
	a, db := setupAllocator(t)
	ctx := context.Background()

	seed := func(entityType string, value int64) {
		require.NoError(t, db.Create(&models.SequenceCounter{
			Key:        CounterKey(entityType, "202601"),
			EntityType: entityType,
			YearMonth:  "202601",
			Value:      value,
			CreatedAt:  jan2026,
			UpdatedAt:  jan2026,
		}).Error)
	}
	seed("User", 6)
	seed("Expense", 12344)

	u, err := AllocateAndCreate(ctx, a, "User", createWidget("seventh"), At(jan2026))
	require.NoError(t, err)
	assert.Equal(t, "US-202601-0007", u.ID)

	e, err := AllocateAndCreate(ctx, a, "Expense", createWidget("big"), At(jan2026))
	require.NoError(t, err)
	assert.Equal(t, "EX-202601-12345", e.ID)
}

// TestAllocateAndCreate_Concurrent checks the bookkeeping of concurrent callers. The
// in-memory database has one connection, so transactions queue on the pool rather than
// overlap; TestAllocateAndCreate_ConcurrentConnections and
// TestAllocateAndCreate_PostgresSerializable cover overlapping transactions.
func TestAllocateAndCreate_Concurrent(t *testing.T) {
	a, _ := setupAllocator(t)
	ctx := context.Background()

	const n = 25
	var wg sync.WaitGroup
	ids := make(chan string, n)
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w, err := AllocateAndCreate(ctx, a, "Property", createWidget(fmt.Sprintf("p-%d", i)), At(jan2026))
			if err != nil {
				errs <- err
				return
			}
			ids <- w.ID
		}(i)
	}
	wg.Wait()
	close(ids)
	close(errs)

	for err := range errs {
		t.Fatalf("unexpected allocation error: %v", err)
	}

	var seqs []int64
	for id := range ids {
		require.True(t, strings.HasPrefix(id, "PR-202601-"), id)
		seqs = append(seqs, sequenceOf(t, id))
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })

	require.Len(t, seqs, n)
	for i, s := range seqs {
		assert.Equal(t, int64(i+1), s)
	}
}

func TestAllocateAndCreate_ConcurrentConnections(t *testing.T) {
	db, err := testutil.NewSQLiteFileDB(filepath.Join(t.TempDir(), "alloc.db"), 8)
	require.NoError(t, err)
	t.Cleanup(func() { testutil.CloseDB(db) })
	require.NoError(t, db.AutoMigrate(&widget{}))

	counters := repository.NewSequenceCounterRepository(db)
	a := NewAllocator(counters, repository.NewTransactor(db), Config{
		MaxAttempts: 50,
		BackoffBase: time.Millisecond,
		BackoffMax:  10 * time.Millisecond,
	})
	ctx := context.Background()

	const n = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seqs []int64
		errs []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w, err := AllocateAndCreate(ctx, a, "Property", createWidget(fmt.Sprintf("c-%d", i)), At(jan2026))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			parsed, err := ParseID(w.ID)
			if err != nil {
				errs = append(errs, err)
				return
			}
			seqs = append(seqs, parsed.Sequence)
		}(i)
	}
	wg.Wait()

	// only transient conflicts may surface; anything else is a bug
	for _, err := range errs {
		assert.True(t, IsRetryable(err), "unexpected allocation error: %v", err)
	}
	require.NotEmpty(t, seqs)

	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	for i, s := range seqs {
		assert.Equal(t, int64(i+1), s)
	}

	c, err := counters.ByKey(ctx, CounterKey("Property", "202601"))
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, int64(len(seqs)), c.Value)

	var rows int64
	require.NoError(t, db.Model(&widget{}).Count(&rows).Error)
	assert.Equal(t, int64(len(seqs)), rows)
}

func TestPeek_BeforeFirstUse(t *testing.T) {
	a, _ := setupAllocator(t)
	ctx := context.Background()

	counter, err := a.Peek(ctx, "Tenant", jan2026)
	require.NoError(t, err)
	assert.Nil(t, counter)

	w, err := AllocateAndCreate(ctx, a, "Tenant", createWidget("first"), At(jan2026))
	require.NoError(t, err)
	assert.Equal(t, "TE-202601-0001", w.ID)

	counter, err = a.Peek(ctx, "Tenant", jan2026)
	require.NoError(t, err)
	require.NotNil(t, counter)
	assert.Equal(t, int64(1), counter.Value)
	assert.Equal(t, "Tenant_202601", counter.Key)
	assert.Equal(t, "Tenant", counter.EntityType)
	assert.Equal(t, "202601", counter.YearMonth)
}

func TestAllocate_DeprecatedLeavesGap(t *testing.T) {
	a, _ := setupAllocator(t)
	ctx := context.Background()

	id, err := a.Allocate(ctx, "Agent", jan2026)
	require.NoError(t, err)
	assert.Equal(t, "AG-202601-0001", id)

	w, err := AllocateAndCreate(ctx, a, "Agent", createWidget("agent"), At(jan2026))
	require.NoError(t, err)
	assert.Equal(t, "AG-202601-0002", w.ID)
}

func TestRun_DefaultsToClock(t *testing.T) {
	db, err := testutil.NewSQLiteDB()
	require.NoError(t, err)
	defer testutil.CloseDB(db)

	a := NewAllocator(repository.NewSequenceCounterRepository(db), repository.NewTransactor(db), Config{
		Clock:    func() time.Time { return time.Date(2026, time.March, 31, 22, 0, 0, 0, time.UTC) },
		Location: time.FixedZone("UTC+3", 3*3600),
	})

	id, err := a.Run(context.Background(), "Income", time.Time{}, func(context.Context, string) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, "IN-202604-0001", id)
}

// fakeCounters scripts the results of Next
type fakeCounters struct {
	repository.SequenceCounterRepository
	mu      sync.Mutex
	results []error
	calls   int
}

func (f *fakeCounters) Next(ctx context.Context, entityType, yearMonth string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.results) > 0 {
		err := f.results[0]
		f.results = f.results[1:]
		if err != nil {
			return 0, err
		}
	}
	return int64(f.calls), nil
}

// fakeTransactor runs fn directly and can fail the commit or block until the context ends
type fakeTransactor struct {
	commitErrs []error
	block      bool
	calls      int
}

func (f *fakeTransactor) Within(ctx context.Context, fn func(context.Context) error) error {
	return f.WithinSerializable(ctx, fn)
}

func (f *fakeTransactor) WithinSerializable(ctx context.Context, fn func(context.Context) error) error {
	f.calls++
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if err := fn(ctx); err != nil {
		return err
	}
	if len(f.commitErrs) > 0 {
		err := f.commitErrs[0]
		f.commitErrs = f.commitErrs[1:]
		return err
	}
	return nil
}

func newFakeAllocator(counters *fakeCounters, tx *fakeTransactor, cfg Config) (*Allocator, *[]time.Duration) {
	a := NewAllocator(counters, tx, cfg)
	var sleeps []time.Duration
	a.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return ctx.Err()
	}
	return a, &sleeps
}

func TestRun_RetriesCounterConflicts(t *testing.T) {
	counters := &fakeCounters{results: []error{repository.ErrCounterConflict, repository.ErrCounterConflict}}
	tx := &fakeTransactor{}
	a, sleeps := newFakeAllocator(counters, tx, Config{})

	var created []string
	id, err := a.Run(context.Background(), "Landlord", jan2026, func(_ context.Context, id string) error {
		created = append(created, id)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "LA-202601-0003", id)
	assert.Equal(t, []string{"LA-202601-0003"}, created)
	assert.Equal(t, 3, counters.calls)
	assert.Len(t, *sleeps, 2)
}

func TestRun_RetriesSerializationFailureAtCommit(t *testing.T) {
	counters := &fakeCounters{}
	tx := &fakeTransactor{commitErrs: []error{
		fmt.Errorf("failed to commit transaction: %w", &pgconn.PgError{Code: "40001"}),
		&pgconn.PgError{Code: "40P01"},
	}}
	a, _ := newFakeAllocator(counters, tx, Config{})

	calls := 0
	_, err := a.Run(context.Background(), "Landlord", jan2026, func(context.Context, string) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, tx.calls)
}

func TestRun_GivesUpAfterMaxAttempts(t *testing.T) {
	results := make([]error, 10)
	for i := range results {
		results[i] = repository.ErrCounterConflict
	}
	counters := &fakeCounters{results: results}
	tx := &fakeTransactor{}
	a, sleeps := newFakeAllocator(counters, tx, Config{MaxAttempts: 4})

	called := false
	_, err := a.Run(context.Background(), "Property", jan2026, func(context.Context, string) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
	assert.ErrorIs(t, err, ErrTransientConflict)
	assert.ErrorIs(t, err, repository.ErrCounterConflict)
	assert.True(t, IsRetryable(err))

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 4, conflict.Attempts)
	assert.Equal(t, "Property", conflict.EntityType)
	assert.Equal(t, "202601", conflict.YearMonth)
	assert.Equal(t, 4, counters.calls)
	assert.Len(t, *sleeps, 3)
}

func TestRun_CreateErrorIsNotRetried(t *testing.T) {
	counters := &fakeCounters{}
	tx := &fakeTransactor{}
	a, sleeps := newFakeAllocator(counters, tx, Config{})

	errDuplicate := errors.New("email already exists")
	_, err := a.Run(context.Background(), "Tenant", jan2026, func(context.Context, string) error {
		return fmt.Errorf("create tenant: %w", errDuplicate)
	})
	assert.ErrorIs(t, err, errDuplicate)
	assert.False(t, IsRetryable(err))
	assert.Equal(t, 1, counters.calls)
	assert.Empty(t, *sleeps)
}

func TestRun_TransactionTimeout(t *testing.T) {
	tx := &fakeTransactor{block: true}
	a, _ := newFakeAllocator(&fakeCounters{}, tx, Config{TxTimeout: 20 * time.Millisecond})

	_, err := a.Run(context.Background(), "Account", jan2026, func(context.Context, string) error { return nil })
	assert.ErrorIs(t, err, ErrAllocationTimeout)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, 1, tx.calls)
}

func TestRun_CallerCancellationIsNotTimeout(t *testing.T) {
	tx := &fakeTransactor{block: true}
	a, _ := newFakeAllocator(&fakeCounters{}, tx, Config{TxTimeout: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := a.Run(ctx, "Account", jan2026, func(context.Context, string) error { return nil })
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAllocationTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRun_InvalidEntityType(t *testing.T) {
	tx := &fakeTransactor{}
	a, _ := newFakeAllocator(&fakeCounters{}, tx, Config{})

	for _, entityType := range []string{"", "X", "9z"} {
		_, err := a.Run(context.Background(), entityType, jan2026, func(context.Context, string) error { return nil })
		assert.ErrorIs(t, err, ErrInvalidEntityType)
	}
	assert.Zero(t, tx.calls)

	_, err := a.Peek(context.Background(), "X", jan2026)
	assert.ErrorIs(t, err, ErrInvalidEntityType)
}

func TestBackoff(t *testing.T) {
	a := NewAllocator(&fakeCounters{}, &fakeTransactor{}, Config{BackoffBase: 100 * time.Millisecond, BackoffMax: 300 * time.Millisecond})

	for i := 0; i < 50; i++ {
		d := a.backoff(1)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 100*time.Millisecond)

		d = a.backoff(2)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.LessOrEqual(t, d, 200*time.Millisecond)

		d = a.backoff(10)
		assert.GreaterOrEqual(t, d, 150*time.Millisecond)
		assert.LessOrEqual(t, d, 300*time.Millisecond)
	}
}

func TestDefaultConfig(t *testing.T) {
	a := NewAllocator(&fakeCounters{}, &fakeTransactor{}, Config{})
	cfg := a.Config()

	assert.Equal(t, 10*time.Second, cfg.TxTimeout)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 25*time.Millisecond, cfg.BackoffBase)
	assert.Equal(t, time.Second, cfg.BackoffMax)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.NotNil(t, cfg.Clock)
}

func TestConfigDefaults_BackoffMax(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantMax time.Duration
	}{
		{name: "zero max keeps the default cap", cfg: Config{BackoffBase: 25 * time.Millisecond}, wantMax: time.Second},
		{name: "explicit max is kept", cfg: Config{BackoffBase: 10 * time.Millisecond, BackoffMax: 200 * time.Millisecond}, wantMax: 200 * time.Millisecond},
		{name: "max below base is raised to base", cfg: Config{BackoffBase: 2 * time.Second, BackoffMax: time.Millisecond}, wantMax: 2 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAllocator(&fakeCounters{}, &fakeTransactor{}, tt.cfg)
			assert.Equal(t, tt.wantMax, a.Config().BackoffMax)
		})
	}

	a := NewAllocator(&fakeCounters{}, &fakeTransactor{}, Config{BackoffBase: 25 * time.Millisecond})
	for i := 0; i < 20; i++ {
		assert.Greater(t, a.backoff(5), 25*time.Millisecond, "later attempts back off beyond the base delay")
	}
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/mahrfyi/internal/db"
	"github.com/vbonduro/mahrfyi/internal/domain"
	"github.com/vbonduro/mahrfyi/internal/events"
	"github.com/vbonduro/mahrfyi/internal/location"
	"github.com/vbonduro/mahrfyi/internal/observability"
	"github.com/vbonduro/mahrfyi/internal/store"
)

var testNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

// stubPublisher records published events.
type stubPublisher struct {
	mu     sync.Mutex
	events []events.SubmissionCreated
	err    error
}

func (p *stubPublisher) PublishSubmission(_ context.Context, ev events.SubmissionCreated) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

// failingRepository fails every call.
type failingRepository struct{}

func (failingRepository) Create(context.Context, *domain.Submission) error {
	return errors.New("database is locked")
}

func (failingRepository) List(context.Context, store.ListFilter) ([]*domain.Submission, error) {
	return nil, errors.New("database is locked")
}

func (failingRepository) Count(context.Context) (int, error) {
	return 0, errors.New("database is locked")
}

func (failingRepository) Ping(context.Context) error {
	return errors.New("database is locked")
}

type testEnv struct {
	db        *sql.DB
	store     *store.SubmissionStore
	resolver  *location.Resolver
	clock     *clockwork.FakeClock
	metrics   *observability.Metrics
	publisher *stubPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	tables, err := location.DefaultTables()
	require.NoError(t, err)
	metrics := observability.NewMetricsForTesting()

	return &testEnv{
		db:        d,
		store:     store.NewSubmissionStore(d),
		resolver:  location.NewResolver(location.NewNormalizer(tables), nil, metrics, slog.Default()),
		clock:     clockwork.NewFakeClockAt(testNow),
		metrics:   metrics,
		publisher: &stubPublisher{},
	}
}

func (e *testEnv) submissionService(policy LocationPolicy) *SubmissionService {
	return NewSubmissionService(e.store, e.resolver, e.publisher, e.clock, policy, e.metrics, slog.Default())
}

func (e *testEnv) statsService(opts ...StatsOption) *StatsService {
	return NewStatsService(e.store, e.resolver, e.clock, e.metrics, slog.Default(), opts...)
}

func (e *testEnv) rowCount(t *testing.T) int {
	t.Helper()
	n, err := e.store.Count(context.Background())
	require.NoError(t, err)
	return n
}

// seed stores a submission directly, bypassing validation and resolution.
func (e *testEnv) seed(t *testing.T, sub *domain.Submission) {
	t.Helper()
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = testNow
	}
	require.NoError(t, e.store.Create(context.Background(), sub))
}

func cash(location string, amount int64) *domain.Submission {
	return &domain.Submission{
		AssetType:    domain.AssetCash,
		CashAmount:   decimal.NewNullDecimal(decimal.NewFromInt(amount)),
		CashCurrency: "USD",
		RawLocation:  location,
		Location:     location,
	}
}

func estimated(assetType domain.AssetType, location string, amount int64) *domain.Submission {
	return &domain.Submission{
		AssetType:              assetType,
		EstimatedValue:         decimal.NewNullDecimal(decimal.NewFromInt(amount)),
		EstimatedValueCurrency: "USD",
		RawLocation:            location,
		Location:               location,
	}
}

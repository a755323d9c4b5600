package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/audit/domain"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/audit/repository"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/kvstore"
)

// countingMetrics counts audit-pipeline signals for assertions.
type countingMetrics struct {
	mu             sync.Mutex
	logged         int
	writeFailures  int
	forwardFailure int
}

func (m *countingMetrics) IncAuditEventLogged(string, domain.Severity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logged++
}

func (m *countingMetrics) IncAuditWriteFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeFailures++
}

func (m *countingMetrics) IncAuditForwardFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forwardFailure++
}

// failingRepository rejects every write.
type failingRepository struct {
	Repository
}

func (f *failingRepository) Append(context.Context, *domain.Event) error {
	return errors.New("backend down")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestAuditUseCase_LogEvent tests the append path and its failure isolation.
func TestAuditUseCase_LogEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_AppendsAndCounts", func(t *testing.T) {
		store := kvstore.NewMemoryStore()
		repo := repository.NewKVAuditRepository(store, 90*24*time.Hour)
		metrics := &countingMetrics{}
		uc := NewAuditUseCase(repo, metrics, discardLogger(), false)

		event := domain.NewEvent(domain.ActionPatientViewed, "patients", domain.SeverityMedium, domain.OutcomeSuccess)
		event.UserID = "user-1"
		uc.LogEvent(ctx, event)

		assert.Equal(t, 1, metrics.logged)

		events, err := uc.Query(ctx, domain.Filter{})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, event.ID, events[0].ID)
	})

	t.Run("Success_WriteFailureNeverPanicsOrPropagates", func(t *testing.T) {
		metrics := &countingMetrics{}
		uc := NewAuditUseCase(&failingRepository{}, metrics, discardLogger(), false)

		event := domain.NewEvent(domain.ActionLoginFailed, "auth", domain.SeverityHigh, domain.OutcomeFailure)
		uc.LogEvent(ctx, event)

		assert.Equal(t, 1, metrics.writeFailures)
		assert.Zero(t, metrics.logged)
	})

	t.Run("Success_ForwardingStagesOutbox", func(t *testing.T) {
		store := kvstore.NewMemoryStore()
		repo := repository.NewKVAuditRepository(store, 90*24*time.Hour)
		uc := NewAuditUseCase(repo, &countingMetrics{}, discardLogger(), true)

		event := domain.NewEvent(domain.ActionClaimSubmitted, "claims", domain.SeverityMedium, domain.OutcomeSuccess)
		uc.LogEvent(ctx, event)

		_, pending, err := repo.PendingForwards(ctx, 0)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, event.ID, pending[0].ID)
	})

	t.Run("Success_ForwardingDisabledSkipsOutbox", func(t *testing.T) {
		store := kvstore.NewMemoryStore()
		repo := repository.NewKVAuditRepository(store, 90*24*time.Hour)
		uc := NewAuditUseCase(repo, &countingMetrics{}, discardLogger(), false)

		uc.LogEvent(ctx, domain.NewEvent(domain.ActionPatientViewed, "patients", domain.SeverityMedium, domain.OutcomeSuccess))

		_, pending, err := repo.PendingForwards(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})
}

// TestAuditUseCase_Stats tests aggregation over the full match.
func TestAuditUseCase_Stats(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	repo := repository.NewKVAuditRepository(store, 90*24*time.Hour)
	uc := NewAuditUseCase(repo, &countingMetrics{}, discardLogger(), false)

	viewed := domain.NewEvent(domain.ActionPatientViewed, "patients", domain.SeverityMedium, domain.OutcomeSuccess)
	viewed.UserID = "user-1"
	failed := domain.NewEvent(domain.ActionLoginFailed, "auth", domain.SeverityHigh, domain.OutcomeFailure)
	again := domain.NewEvent(domain.ActionPatientViewed, "patients", domain.SeverityMedium, domain.OutcomeSuccess)
	again.UserID = "user-1"

	for _, event := range []*domain.Event{viewed, failed, again} {
		uc.LogEvent(ctx, event)
	}

	stats, err := uc.Stats(ctx, domain.Filter{})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.ByAction[domain.ActionPatientViewed])
	assert.Equal(t, 1, stats.ByAction[domain.ActionLoginFailed])
	assert.Equal(t, 1, stats.BySeverity[string(domain.SeverityHigh)])
	assert.Equal(t, 2, stats.ByUser["user-1"])
	assert.Equal(t, 2, stats.ByResource["patients"])
	assert.Equal(t, 1, stats.ByOutcome[string(domain.OutcomeFailure)])
}

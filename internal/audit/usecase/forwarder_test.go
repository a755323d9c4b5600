package usecase

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/audit/domain"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/audit/repository"
	apperrors "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/errors"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/kvstore"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newForwarderFixture(t *testing.T, url string) (*Forwarder, *repository.KVAuditRepository) {
	t.Helper()

	repo := repository.NewKVAuditRepository(kvstore.NewMemoryStore(), 90*24*time.Hour)
	client := &http.Client{Timeout: time.Second}
	t.Cleanup(client.CloseIdleConnections)

	forwarder := NewForwarder(
		ForwarderConfig{URL: url, Interval: 10 * time.Millisecond, BatchSize: 100},
		repo,
		client,
		[]byte("signing-key"),
		&countingMetrics{},
		discardLogger(),
	)
	return forwarder, repo
}

// TestForwarder_Flush tests batch delivery and dequeueing.
func TestForwarder_Flush(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_DeliversSignedBatch", func(t *testing.T) {
		var body []byte
		var signature string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ = io.ReadAll(r.Body)
			signature = r.Header.Get("X-Audit-Signature")
			w.WriteHeader(http.StatusAccepted)
		}))
		defer server.Close()

		forwarder, repo := newForwarderFixture(t, server.URL)

		event := domain.NewEvent(domain.ActionPatientViewed, "patients", domain.SeverityMedium, domain.OutcomeSuccess)
		require.NoError(t, repo.EnqueueForward(ctx, event))

		require.NoError(t, forwarder.Flush(ctx))

		var batch struct {
			Events []*domain.Event `json:"events"`
		}
		require.NoError(t, json.Unmarshal(body, &batch))
		require.Len(t, batch.Events, 1)
		assert.Equal(t, event.ID, batch.Events[0].ID)

		mac := hmac.New(sha256.New, []byte("signing-key"))
		mac.Write(body)
		assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), signature)

		// Delivered events leave the queue.
		_, pending, err := repo.PendingForwards(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("Success_EmptyQueueSkipsDelivery", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		}))
		defer server.Close()

		forwarder, _ := newForwarderFixture(t, server.URL)

		require.NoError(t, forwarder.Flush(ctx))
		assert.Zero(t, calls.Load())
	})

	t.Run("Error_CollectorFailureKeepsBatchQueued", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		forwarder, repo := newForwarderFixture(t, server.URL)

		event := domain.NewEvent(domain.ActionPatientViewed, "patients", domain.SeverityMedium, domain.OutcomeSuccess)
		require.NoError(t, repo.EnqueueForward(ctx, event))

		err := forwarder.Flush(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrBackendUnavailable)

		_, pending, err := repo.PendingForwards(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, pending, 1)
	})
}

// TestForwarder_Start tests the ticking loop drains the queue and stops on
// cancellation without leaking its goroutine.
func TestForwarder_Start(t *testing.T) {
	var delivered atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivered.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	forwarder, repo := newForwarderFixture(t, server.URL)

	event := domain.NewEvent(domain.ActionPatientViewed, "patients", domain.SeverityMedium, domain.OutcomeSuccess)
	require.NoError(t, repo.EnqueueForward(context.Background(), event))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- forwarder.Start(ctx)
	}()

	assert.Eventually(t, func() bool {
		return delivered.Load() > 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("forwarder did not stop after cancellation")
	}
}

package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/errors"
)

func newMockStore(t *testing.T) (*PostgreSQLStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp),
		sqlmock.MonitorPingsOption(true),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})

	return NewPostgreSQLStore(db), mock
}

// TestPostgreSQLStore_Get tests row lookup with the expiry filter.
func TestPostgreSQLStore_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_ReturnsValue", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectQuery(`SELECT v FROM kv_entries`).
			WithArgs("session:abc", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow([]byte("value")))

		value, err := store.Get(ctx, "session:abc")
		require.NoError(t, err)
		assert.Equal(t, []byte("value"), value)
	})

	t.Run("Error_MissingRowMapsToKeyNotFound", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectQuery(`SELECT v FROM kv_entries`).
			WithArgs("absent", sqlmock.AnyArg()).
			WillReturnError(sql.ErrNoRows)

		_, err := store.Get(ctx, "absent")
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("Error_QueryFailure", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectQuery(`SELECT v FROM kv_entries`).
			WithArgs("key", sqlmock.AnyArg()).
			WillReturnError(errors.New("connection reset"))

		_, err := store.Get(ctx, "key")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrKeyNotFound)
	})
}

// TestPostgreSQLStore_Set tests the upsert with and without a TTL.
func TestPostgreSQLStore_Set(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_WithTTL", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectExec(`INSERT INTO kv_entries`).
			WithArgs("session:abc", []byte("value"), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := store.Set(ctx, "session:abc", []byte("value"), time.Minute)
		assert.NoError(t, err)
	})

	t.Run("Success_WithoutTTLStoresNullExpiry", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectExec(`INSERT INTO kv_entries`).
			WithArgs("user-record:1", []byte("value"), nil).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := store.Set(ctx, "user-record:1", []byte("value"), 0)
		assert.NoError(t, err)
	})

	t.Run("Error_ExecFailure", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectExec(`INSERT INTO kv_entries`).
			WithArgs("key", []byte("value"), nil).
			WillReturnError(errors.New("disk full"))

		err := store.Set(ctx, "key", []byte("value"), 0)
		assert.Error(t, err)
	})
}

// TestPostgreSQLStore_Keys tests prefix listing.
func TestPostgreSQLStore_Keys(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_ReturnsSortedKeys", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectQuery(`SELECT k FROM kv_entries`).
			WithArgs("audit:%", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"k"}).
				AddRow("audit:1").
				AddRow("audit:2"))

		keys, err := store.Keys(ctx, "audit:")
		require.NoError(t, err)
		assert.Equal(t, []string{"audit:1", "audit:2"}, keys)
	})

	t.Run("Success_WildcardsInPrefixEscaped", func(t *testing.T) {
		store, mock := newMockStore(t)

		// "_" and "%" are LIKE wildcards; the prefix must match literally.
		mock.ExpectQuery(`SELECT k FROM kv_entries`).
			WithArgs(`job\_100\%:`+"%", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"k"}))

		_, err := store.Keys(ctx, "job_100%:")
		require.NoError(t, err)
	})

	t.Run("Success_NoMatches", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectQuery(`SELECT k FROM kv_entries`).
			WithArgs("consent:%", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"k"}))

		keys, err := store.Keys(ctx, "consent:")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})
}

// TestPostgreSQLStore_DeleteExpired tests the bulk expiry sweep.
func TestPostgreSQLStore_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	store, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM kv_entries WHERE expires_at`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	deleted, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
}

// TestPostgreSQLStore_Ping tests backend health reporting.
func TestPostgreSQLStore_Ping(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_BackendReachable", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectPing()

		assert.NoError(t, store.Ping(ctx))
	})

	t.Run("Error_BackendUnavailable", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		store := NewPostgreSQLStore(db)
		err = store.Ping(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrBackendUnavailable)
	})
}

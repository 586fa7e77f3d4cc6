package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepository(t *testing.T) (*CacheRepository, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return NewCacheRepository(mock, "dirsync:user:"), mock
}

func TestCacheRepository_Get(t *testing.T) {
	selectQuery := regexp.QuoteMeta(`SELECT value FROM user_cache WHERE key = $1`)

	tests := []struct {
		name      string
		setup     func(mock pgxmock.PgxPoolIface)
		wantValue []byte
		wantFound bool
		wantErr   bool
	}{
		{
			name: "hit",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(selectQuery).
					WithArgs("dirsync:user:user_id:u1").
					WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow([]byte(`{"user_id":"u1"}`)))
			},
			wantValue: []byte(`{"user_id":"u1"}`),
			wantFound: true,
		},
		{
			name: "missing or expired row is a miss",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(selectQuery).
					WithArgs("dirsync:user:user_id:u1").
					WillReturnError(pgx.ErrNoRows)
			},
		},
		{
			name: "query error",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(selectQuery).
					WithArgs("dirsync:user:user_id:u1").
					WillReturnError(errors.New("connection reset"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)
			tt.setup(mock)

			value, found, err := repo.Get(context.Background(), "dirsync:user:user_id:u1")
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.wantValue, value)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCacheRepository_Set(t *testing.T) {
	insertQuery := regexp.QuoteMeta(`INSERT INTO user_cache`)
	hour := time.Hour.Milliseconds()

	tests := []struct {
		name    string
		ttl     time.Duration
		wantTTL *int64
		execErr error
	}{
		{name: "with ttl", ttl: time.Hour, wantTTL: &hour},
		{name: "without ttl", ttl: 0, wantTTL: nil},
		{name: "exec error", ttl: time.Hour, wantTTL: &hour, execErr: errors.New("disk full")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)
			value := []byte(`{"user_id":"u1"}`)

			exp := mock.ExpectExec(insertQuery).WithArgs("k", value, tt.wantTTL)
			if tt.execErr != nil {
				exp.WillReturnError(tt.execErr)
			} else {
				exp.WillReturnResult(pgxmock.NewResult("INSERT", 1))
			}

			err := repo.Set(context.Background(), "k", value, tt.ttl)
			if tt.execErr != nil {
				require.ErrorIs(t, err, tt.execErr)
			} else {
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCacheRepository_Delete(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM user_cache WHERE key = $1`)).
		WithArgs("k").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, repo.Delete(context.Background(), "k"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheRepository_ClearUsesPrefix(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM user_cache WHERE starts_with(key, $1)`)).
		WithArgs("dirsync:user:").
		WillReturnResult(pgxmock.NewResult("DELETE", 12))

	require.NoError(t, repo.Clear(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheRepository_PurgeExpired(t *testing.T) {
	t.Run("returns affected rows", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM user_cache WHERE expires_at IS NOT NULL`)).
			WillReturnResult(pgxmock.NewResult("DELETE", 4))

		purged, err := repo.PurgeExpired(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(4), purged)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM user_cache WHERE expires_at IS NOT NULL`)).
			WillReturnError(errors.New("boom"))

		_, err := repo.PurgeExpired(context.Background())
		require.Error(t, err)
	})
}

package meetup

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/infrastructure/persistence/postgres/connection"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/pkg/geo"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newSQLRepository runs the gorm repository against a mocked driver so the
// generated SQL can be pinned.
func newSQLRepository(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return NewRepository(&connection.Database{DB: gdb}), mock
}

func TestListEventsSweepPredicates(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		filter EventFilter
		where  string
		args   []driver.Value
	}{
		{
			name:   "no-show candidates include events ending exactly now",
			filter: EventFilter{Statuses: []Status{StatusActive, StatusOnSitePartial}, StartsBefore: &now},
			where:  `WHERE status IN \(\$1,\$2\) AND scheduled_start_time <= \$3 ORDER BY`,
			args:   []driver.Value{"active", "on_site_partial", now},
		},
		{
			name:   "expiry includes the expiry instant",
			filter: EventFilter{Statuses: []Status{StatusScheduled}, ExpiresBefore: &now},
			where:  `WHERE status IN \(\$1\) AND expires_at <= \$2 ORDER BY`,
			args:   []driver.Value{"scheduled", now},
		},
		{
			name:   "revalidation deadline includes the deadline",
			filter: EventFilter{Statuses: []Status{StatusRevalidationPending}, RevalidationSentBefore: &now},
			where:  `WHERE status IN \(\$1\) AND revalidation_sent_at <= \$2 ORDER BY`,
			args:   []driver.Value{"revalidation_pending", now},
		},
		{
			name:   "reminder window",
			filter: EventFilter{Statuses: []Status{StatusCompleted}, StartsAfter: &now, ReminderUnset: true},
			where:  `WHERE status IN \(\$1\) AND scheduled_start_time >= \$2 AND feedback_reminder_sent_at IS NULL ORDER BY`,
			args:   []driver.Value{"completed", now},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newSQLRepository(t)
			id := uuid.New()
			mock.ExpectQuery(`SELECT \* FROM "events" ` + tt.where + ` scheduled_start_time ASC`).
				WithArgs(tt.args...).
				WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(id.String(), string(tt.filter.Statuses[0])))

			events, err := repo.ListEvents(context.Background(), tt.filter)
			require.NoError(t, err)
			require.Len(t, events, 1)
			assert.Equal(t, id, events[0].ID)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestListEventsBoxAcrossAntimeridian(t *testing.T) {
	repo, mock := newSQLRepository(t)
	box := geo.Box(geo.Point{Lat: -16.8, Lng: 179.99}, 5000)
	require.True(t, box.CrossesAntimeridian())

	mock.ExpectQuery(`WHERE hub_lat BETWEEN \$1 AND \$2 AND \(hub_lng >= \$3 OR hub_lng <= \$4\)`).
		WithArgs(box.MinLat, box.MaxLat, box.MinLng, box.MaxLng).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	events, err := repo.ListEvents(context.Background(), EventFilter{Box: &box})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionLocksRow(t *testing.T) {
	id := uuid.New()
	rows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "creator_id", "status", "duration_minutes"}).
			AddRow(id.String(), uuid.New().String(), "active", 60)
	}

	t.Run("saves inside the locking transaction", func(t *testing.T) {
		repo, mock := newSQLRepository(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "events" WHERE id = \$1 ORDER BY "events"."id" LIMIT .*FOR UPDATE`).
			WillReturnRows(rows())
		mock.ExpectExec(`UPDATE "events" SET .*"status"=\$\d+.* WHERE .*"id" = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		event, err := repo.Transition(context.Background(), id, func(ctx context.Context, tx Store, e *Event) error {
			e.Status = StatusOnSitePartial
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, StatusOnSitePartial, event.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when the step fails", func(t *testing.T) {
		repo, mock := newSQLRepository(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(rows())
		mock.ExpectRollback()

		_, err := repo.Transition(context.Background(), id, func(ctx context.Context, tx Store, e *Event) error {
			return ErrConflict
		})
		assert.True(t, errors.Is(err, ErrConflict))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row", func(t *testing.T) {
		repo, mock := newSQLRepository(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		_, err := repo.Transition(context.Background(), id, func(ctx context.Context, tx Store, e *Event) error {
			t.Fatal("step must not run")
			return nil
		})
		assert.True(t, errors.Is(err, ErrEventNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPurgeClosedBeforeDeletesChildrenFirst(t *testing.T) {
	repo, mock := newSQLRepository(t)
	cutoff := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .*id.* FROM "events" WHERE status IN \(\$1,\$2,\$3,\$4,\$5\) AND closed_at IS NOT NULL AND closed_at <= \$6`).
		WithArgs("completed", "cancelled", "cancelled_no_revalidation", "cancelled_geo_mismatch", "expired", cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id.String()))
	for _, table := range []string{"chat_messages", "event_chats", "event_feedback", "event_requests"} {
		mock.ExpectExec(`DELETE FROM "` + table + `" WHERE event_id IN \(\$1\)`).
			WillReturnResult(sqlmock.NewResult(0, 2))
	}
	mock.ExpectExec(`DELETE FROM "events" WHERE id IN \(\$1\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	purged, err := repo.PurgeClosedBefore(context.Background(), cutoff, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeClosedBeforeWithNothingToDelete(t *testing.T) {
	repo, mock := newSQLRepository(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`closed_at <= \$\d+`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	purged, err := repo.PurgeClosedBefore(context.Background(), time.Now(), 0)
	require.NoError(t, err)
	assert.Zero(t, purged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/model"
)

func TestPostgresRepo_SaveActivity(t *testing.T) {
	repo, mock := newTestRepo(t)
	entry := model.NewActivityLogEntry(&model.ActivityLogEntry{Type: model.ActivityWarning, Message: "accepted exceeds sent"})

	mock.ExpectQuery(`INSERT INTO "activity_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	require.NoError(t, repo.SaveActivity(context.Background(), entry))
	assert.Equal(t, int64(42), entry.ID)
}

func TestPostgresRepo_RecentActivities_NewestFirst(t *testing.T) {
	repo, mock := newTestRepo(t)
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// two entries sharing a timestamp: the later insert (higher id) comes first
	mock.ExpectQuery(`SELECT \* FROM "activity_logs" ORDER BY timestamp DESC,id DESC LIMIT`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "timestamp", "type", "message"}).
			AddRow(8, ts, "refresh", "second").
			AddRow(7, ts, "refresh", "first"))

	rows, err := repo.RecentActivities(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "second", rows[0].Message)
	assert.Equal(t, model.ActivityRefresh, rows[1].Type)
}

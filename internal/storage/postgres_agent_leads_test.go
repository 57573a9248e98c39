package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/apperrors"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/model"
)

var agentLeadsCols = []string{"id", "channel", "timestamp", "daily_sent", "daily_accepted", "total_sent", "total_accepted", "status"}

func TestPostgresRepo_SaveAgentLeadsReport_NoActivity(t *testing.T) {
	repo, mock := newTestRepo(t)
	report := model.NewAgentLeadsReport(&model.AgentLeadsReport{Channel: model.ChannelLinkedIn, DailySent: 20, DailyAccepted: 5})

	mock.ExpectQuery(`INSERT INTO "agent_leads_reports"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	err := repo.SaveAgentLeadsReport(context.Background(), report)
	require.NoError(t, err)
	assert.Equal(t, int64(11), report.ID)
}

func TestPostgresRepo_SaveAgentLeadsReport_WithActivityInTransaction(t *testing.T) {
	repo, mock := newTestRepo(t)
	report := model.NewAgentLeadsReport(&model.AgentLeadsReport{Channel: model.ChannelInstagram})
	activity := model.NewActivityLogEntry(&model.ActivityLogEntry{Type: model.ActivityAgent, Message: "Instagram agent reported"})

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "agent_leads_reports"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectQuery(`INSERT INTO "activity_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectCommit()

	err := repo.SaveAgentLeadsReport(context.Background(), report, activity)
	require.NoError(t, err)
	assert.Equal(t, int64(3), report.ID)
	assert.Equal(t, int64(9), activity.ID)
}

func TestPostgresRepo_SaveAgentLeadsReport_ActivityFailureRollsBack(t *testing.T) {
	repo, mock := newTestRepo(t)
	report := model.NewAgentLeadsReport()
	activity := model.NewActivityLogEntry()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "agent_leads_reports"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectQuery(`INSERT INTO "activity_logs"`).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.SaveAgentLeadsReport(context.Background(), report, activity)
	assert.True(t, apperrors.IsDatabaseError(err))
	assert.ErrorContains(t, err, "disk full")
}

func TestPostgresRepo_LatestAgentLeadsReport(t *testing.T) {
	repo, mock := newTestRepo(t)
	ts := time.Date(2025, 5, 2, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT \* FROM "agent_leads_reports" WHERE channel = \$1 ORDER BY timestamp DESC,id DESC LIMIT`).
		WillReturnRows(sqlmock.NewRows(agentLeadsCols).AddRow(7, "linkedin", ts, 20, 5, 400, 120, "completed"))

	got, err := repo.LatestAgentLeadsReport(context.Background(), model.ChannelLinkedIn)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, ts, got.Timestamp)
	assert.Equal(t, 25.0, got.DailyAcceptanceRatio())
}

func TestPostgresRepo_LatestAgentLeadsReport_Empty(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery(`SELECT \* FROM "agent_leads_reports" WHERE channel = \$1`).
		WillReturnRows(sqlmock.NewRows(agentLeadsCols))

	got, err := repo.LatestAgentLeadsReport(context.Background(), model.ChannelVideo)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestPostgresRepo_FindAgentLeadsReportsInRange(t *testing.T) {
	repo, mock := newTestRepo(t)
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 5, 7, 23, 59, 59, 0, time.UTC)

	mock.ExpectQuery(`SELECT \* FROM "agent_leads_reports" WHERE \(?channel = \$1 AND timestamp >= \$2 AND timestamp <= \$3\)? ORDER BY timestamp ASC,id ASC`).
		WithArgs("facebook", start, end).
		WillReturnRows(sqlmock.NewRows(agentLeadsCols).
			AddRow(1, "facebook", start, 1, 0, 1, 0, "idle").
			AddRow(2, "facebook", end, 4, 2, 5, 2, "completed"))

	rows, err := repo.FindAgentLeadsReportsInRange(context.Background(), model.ChannelFacebook, start, end)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Timestamp.Before(rows[1].Timestamp))
}

func TestPostgresRepo_FindAgentLeadsReportsInRange_EmptyIsNotNil(t *testing.T) {
	repo, mock := newTestRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT \* FROM "agent_leads_reports"`).
		WillReturnRows(sqlmock.NewRows(agentLeadsCols))

	rows, err := repo.FindAgentLeadsReportsInRange(context.Background(), model.ChannelLinkedIn, now, now)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestPostgresRepo_FindAgentLeadsReportsInRange_Error(t *testing.T) {
	repo, mock := newTestRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT \* FROM "agent_leads_reports"`).
		WillReturnError(errors.New("relation does not exist"))

	rows, err := repo.FindAgentLeadsReportsInRange(context.Background(), model.ChannelLinkedIn, now, now)
	assert.Nil(t, rows)
	assert.True(t, apperrors.IsDatabaseError(err))
}

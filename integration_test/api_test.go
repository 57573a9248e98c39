//go:build integration

package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"go.uber.org/zap/zaptest"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/api"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/config"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/model"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/storage"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/upstream"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/usecase"
)

// newAPI serves the full HTTP surface over repo.
func (s *IntegrationSuite) newAPI(repo *storage.PostgresRepo, upstreamCfg config.UpstreamConfig) *httptest.Server {
	if upstreamCfg.Timeout == 0 {
		upstreamCfg.Timeout = 2 * time.Second
	}
	if upstreamCfg.DefaultChannel == "" {
		upstreamCfg.DefaultChannel = string(model.ChannelLinkedIn)
	}
	ingest := usecase.NewIngestService(repo, repo, repo, repo, upstream.NewClient(upstreamCfg.Timeout), nil, upstreamCfg)
	srv := api.NewServer(0, 5*time.Second, 5*time.Second, api.Dependencies{
		Ingest:    ingest,
		Query:     usecase.NewQueryService(repo, repo, repo, repo),
		Schedules: usecase.NewScheduleService(repo, ingest),
		DB:        repo,
		Version:   "integration",
	}, zaptest.NewLogger(s.T()))
	ts := httptest.NewServer(srv.Handler())
	s.T().Cleanup(ts.Close)
	return ts
}

func (s *IntegrationSuite) postJSON(url, body string) *http.Response {
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	s.Require().NoError(err)
	return resp
}

func (s *IntegrationSuite) getJSON(url string, dst interface{}) int {
	resp, err := http.Get(url)
	s.Require().NoError(err)
	defer resp.Body.Close()
	if dst != nil {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(dst))
	}
	return resp.StatusCode
}

func (s *IntegrationSuite) TestAPI_ManualMetricsRoundTrip() {
	ts := s.newAPI(s.Repo, config.UpstreamConfig{})

	resp := s.postJSON(ts.URL+"/api/metrics", `{"invitesSent":20,"invitesAccepted":5}`)
	resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var latest model.MetricSample
	s.Require().Equal(http.StatusOK, s.getJSON(ts.URL+"/api/metrics/latest", &latest))
	s.Equal(25.0, latest.AcceptanceRatio)

	n, err := s.CountRows("activity_logs", "type = $1", "refresh")
	s.Require().NoError(err)
	s.Equal(1, n, "manual metrics append a refresh activity")
}

func (s *IntegrationSuite) TestAPI_ConcurrentActivities() {
	ts := s.newAPI(s.Repo, config.UpstreamConfig{})

	done := make(chan int, 2)
	for _, body := range []string{
		`{"timestamp":"2025-03-14T09:00:00Z","type":"invite_sent","message":"first"}`,
		`{"timestamp":"2025-03-14T09:05:00Z","type":"invite_accepted","message":"second"}`,
	} {
		go func(body string) {
			resp, err := http.Post(ts.URL+"/api/activities", "application/json", bytes.NewBufferString(body))
			if err != nil {
				done <- 0
				return
			}
			resp.Body.Close()
			done <- resp.StatusCode
		}(body)
	}
	s.Equal(http.StatusCreated, <-done)
	s.Equal(http.StatusCreated, <-done)

	var entries []model.ActivityLogEntry
	s.Require().Equal(http.StatusOK, s.getJSON(ts.URL+"/api/activities?limit=2", &entries))
	s.Require().Len(entries, 2)
	s.NotEqual(entries[0].ID, entries[1].ID)
	s.Equal("second", entries[0].Message)
	s.Equal("first", entries[1].Message)
}

func (s *IntegrationSuite) TestAPI_WebhookTriggerStoresReport() {
	upstreamSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"daily_sent":9,"daily_accepted":3,"total_sent":90,"total_accepted":30}}`))
	}))
	defer upstreamSrv.Close()

	ts := s.newAPI(s.Repo, config.UpstreamConfig{WebhookURL: upstreamSrv.URL})
	resp := s.postJSON(ts.URL+"/api/trigger-agent-webhook", `{"channel":"video"}`)
	resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var latest model.AgentLeadsReport
	s.Require().Equal(http.StatusOK, s.getJSON(ts.URL+"/api/video-agent-leads/latest", &latest))
	s.Equal(int64(9), latest.DailySent)
	s.Equal(model.ChannelVideo, latest.Channel)
}

func (s *IntegrationSuite) TestAPI_ReadyReportsDatabaseOutage() {
	repo, err := storage.NewPostgresRepo(s.PostgresDSN, false)
	s.Require().NoError(err)
	defer repo.Close(context.Background())
	ts := s.newAPI(repo, config.UpstreamConfig{})

	s.Equal(http.StatusOK, s.getJSON(ts.URL+"/ready", nil))

	s.Require().NoError(s.StopService(s.Ctx, PostgresServiceName))
	var health api.HealthResponse
	s.Equal(http.StatusServiceUnavailable, s.getJSON(ts.URL+"/ready", &health))
	s.Equal("NOT_READY", health.Status)

	s.Require().NoError(s.StartService(s.Ctx, PostgresServiceName))
	// the suite repository still points at the old mapped port
	s.Require().NoError(s.Repo.Close(context.Background()))
	s.Repo, err = storage.NewPostgresRepo(s.PostgresDSN, true)
	s.Require().NoError(err)
}

package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/config"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/model"
	storagemock "gitlab.com/timkado/api/outreach-metrics-service/internal/storage/mock"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/upstream"
	"gitlab.com/timkado/api/outreach-metrics-service/pkg/logger"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

// fakeTrigger returns a canned upstream answer and records the last request.
type fakeTrigger struct {
	resp    *upstream.Response
	err     error
	lastURL string
	lastReq upstream.TriggerRequest
	calls   int
}

func (f *fakeTrigger) Trigger(_ context.Context, webhookURL string, req upstream.TriggerRequest) (*upstream.Response, error) {
	f.calls++
	f.lastURL = webhookURL
	f.lastReq = req
	return f.resp, f.err
}

// recordingNotifier keeps every notified event.
type recordingNotifier struct {
	mu     sync.Mutex
	events []model.IngestedEvent
}

func (n *recordingNotifier) Notify(_ context.Context, e model.IngestedEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) Stop() {}

func testCtx(t *testing.T) context.Context {
	l := zaptest.NewLogger(t)
	logger.Log = l
	return logger.WithLogger(context.Background(), l)
}

func newTestIngestService(repo *storagemock.RepositoryMock, trigger Triggerer, notifier EventNotifier, cfg config.UpstreamConfig) *IngestService {
	s := NewIngestService(repo, repo, repo, repo, trigger, notifier, cfg)
	s.now = func() time.Time { return fixedNow }
	return s
}

func activitiesOf(args []interface{}, idx int) []*model.ActivityLogEntry {
	a, _ := args[idx].([]*model.ActivityLogEntry)
	return a
}

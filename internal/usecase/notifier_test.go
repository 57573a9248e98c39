package usecase

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/config"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/model"
)

type published struct {
	subject string
	data    []byte
	headers map[string]string
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(subject string, data []byte, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{subject: subject, data: data, headers: headers})
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.msgs)
}

func testPoolConfig() config.WorkerPoolConfig {
	return config.WorkerPoolConfig{PoolSize: 2, ExpiryTime: time.Second}
}

func TestPoolNotifier_PublishesEvents(t *testing.T) {
	ctx := testCtx(t)
	pub := &fakePublisher{}
	n, err := NewPoolNotifier(testPoolConfig(), pub, "v1.metrics.ingested", zaptest.NewLogger(t))
	require.NoError(t, err)

	n.Notify(ctx, model.IngestedEvent{Channel: model.ChannelLinkedIn, ReportID: 1, Timestamp: fixedNow, Source: SourceAPI})
	n.Notify(ctx, model.IngestedEvent{Channel: model.ChannelNewsletter, ReportID: 2, Timestamp: fixedNow, Source: SourceNATS})

	assert.Eventually(t, func() bool { return pub.count() == 2 }, 2*time.Second, 10*time.Millisecond)
	n.Stop()

	subjects := []string{pub.msgs[0].subject, pub.msgs[1].subject}
	assert.ElementsMatch(t, []string{"v1.metrics.ingested.linkedin", "v1.metrics.ingested.newsletter"}, subjects)

	for _, m := range pub.msgs {
		assert.NotEmpty(t, m.headers["Nats-Msg-Id"])
		var ev model.IngestedEvent
		require.NoError(t, json.Unmarshal(m.data, &ev))
		assert.Equal(t, fixedNow, ev.Timestamp)
	}
	assert.NotEqual(t, pub.msgs[0].headers["Nats-Msg-Id"], pub.msgs[1].headers["Nats-Msg-Id"])
}

func TestPoolNotifier_PublishFailureIsSwallowed(t *testing.T) {
	ctx := testCtx(t)
	pub := &fakePublisher{err: errors.New("nats: no responders")}
	n, err := NewPoolNotifier(testPoolConfig(), pub, "v1.metrics.ingested", zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		n.Notify(ctx, model.IngestedEvent{Channel: model.ChannelVideo, ReportID: 9})
	})
	n.Stop()
	assert.Zero(t, pub.count())
}

func TestPoolNotifier_NotifyAfterStop(t *testing.T) {
	ctx := testCtx(t)
	pub := &fakePublisher{}
	n, err := NewPoolNotifier(testPoolConfig(), pub, "v1.metrics.ingested", zaptest.NewLogger(t))
	require.NoError(t, err)
	n.Stop()

	assert.NotPanics(t, func() {
		n.Notify(ctx, model.IngestedEvent{Channel: model.ChannelLinkedIn, ReportID: 3})
	})
	assert.Zero(t, pub.count())
}

type blockingPublisher struct {
	started chan struct{}
	release chan struct{}
	fakePublisher
}

func (p *blockingPublisher) Publish(subject string, data []byte, headers map[string]string) error {
	p.started <- struct{}{}
	<-p.release
	return p.fakePublisher.Publish(subject, data, headers)
}

func TestPoolNotifier_SaturatedPoolDoesNotBlock(t *testing.T) {
	ctx := testCtx(t)
	pub := &blockingPublisher{started: make(chan struct{}, 2), release: make(chan struct{})}
	n, err := NewPoolNotifier(config.WorkerPoolConfig{PoolSize: 1, ExpiryTime: time.Second}, pub, "v1.metrics.ingested", zaptest.NewLogger(t))
	require.NoError(t, err)

	n.Notify(ctx, model.IngestedEvent{Channel: model.ChannelLinkedIn, ReportID: 1})
	select {
	case <-pub.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first event was not picked up by a worker")
	}

	returned := make(chan struct{})
	go func() {
		n.Notify(ctx, model.IngestedEvent{Channel: model.ChannelLinkedIn, ReportID: 2})
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a saturated pool")
	}

	close(pub.release)
	n.Stop()
	assert.Equal(t, 1, pub.count(), "the event submitted while saturated is dropped")
}

func TestNoopNotifier(t *testing.T) {
	var n EventNotifier = NoopNotifier{}
	assert.NotPanics(t, func() {
		n.Notify(testCtx(t), model.IngestedEvent{})
		n.Stop()
	})
}

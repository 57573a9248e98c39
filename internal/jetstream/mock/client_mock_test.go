package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestClientMock_RecordsCalls(t *testing.T) {
	m := new(ClientMock)
	streamCfg := &nats.StreamConfig{Name: "METRICS_INGEST", Subjects: []string{"v1.metrics.ingest.*"}}
	consumerCfg := &nats.ConsumerConfig{Durable: "metrics-ingest"}

	m.On("SetupStream", mock.Anything, streamCfg).Return(nil)
	m.On("SetupConsumer", mock.Anything, "METRICS_INGEST", consumerCfg).Return(nil)
	m.On("SubscribePush", "v1.metrics.ingest.*", "metrics-ingest", "grp", "METRICS_INGEST", mock.AnythingOfType("nats.MsgHandler")).
		Return(MockSubscription(), nil)
	m.On("Publish", "v1.metrics.ingested.linkedin", []byte(`{}`), map[string]string(nil)).Return(errors.New("no responders"))
	m.On("IsConnected").Return(true)
	m.On("Close").Return()

	ctx := context.Background()
	assert.NoError(t, m.SetupStream(ctx, streamCfg))
	assert.NoError(t, m.SetupConsumer(ctx, "METRICS_INGEST", consumerCfg))
	sub, err := m.SubscribePush("v1.metrics.ingest.*", "metrics-ingest", "grp", "METRICS_INGEST", nats.MsgHandler(func(*nats.Msg) {}))
	assert.NoError(t, err)
	assert.Nil(t, sub)
	assert.EqualError(t, m.Publish("v1.metrics.ingested.linkedin", []byte(`{}`), nil), "no responders")
	assert.True(t, m.IsConnected())
	m.Close()

	m.AssertExpectations(t)
}

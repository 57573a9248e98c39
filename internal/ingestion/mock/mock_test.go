package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/model"
)

func noopHandler(context.Context, model.Channel, *model.MessageMetadata, []byte) error {
	return nil
}

func TestRouterMock(t *testing.T) {
	router := new(RouterMock)
	router.On("Register", model.ChannelLinkedIn, mock.Anything).Return()
	router.On("Register", model.ChannelNewsletter, mock.Anything).Return()
	router.On("Route", mock.Anything, mock.Anything, []byte("{}")).Return(errors.New("boom"))

	router.Register(model.ChannelLinkedIn, noopHandler)
	router.Register(model.ChannelNewsletter, noopHandler)
	err := router.Route(context.Background(), SetupMessageMetadata("m-1", "v1.metrics.ingest.linkedin"), []byte("{}"))

	assert.EqualError(t, err, "boom")
	AssertChannelsRegistered(t, router, model.ChannelLinkedIn, model.ChannelNewsletter)
	router.AssertExpectations(t)
}

func TestConsumerMock(t *testing.T) {
	consumer := new(ConsumerMock)
	setupErr := errors.New("setup failed")
	consumer.On("Setup").Return(setupErr)
	consumer.On("Start").Return(nil)
	consumer.On("Stop").Return()

	assert.Equal(t, setupErr, consumer.Setup())
	assert.NoError(t, consumer.Start())
	consumer.Stop()

	consumer.AssertExpectations(t)
}

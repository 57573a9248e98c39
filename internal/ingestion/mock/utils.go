package mock

import (
	"testing"

	"github.com/stretchr/testify/mock"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/model"
)

// SetupMessageMetadata builds delivery metadata for a first delivery of subject.
func SetupMessageMetadata(messageID, subject string) *model.MessageMetadata {
	return &model.MessageMetadata{
		MessageID:        messageID,
		MessageSubject:   subject,
		StreamSequence:   1,
		ConsumerSequence: 1,
		Stream:           "test_stream",
		Consumer:         "test_consumer",
		NumDelivered:     1,
	}
}

// AssertChannelsRegistered checks that a handler was registered for every channel.
func AssertChannelsRegistered(t *testing.T, router *RouterMock, channels ...model.Channel) {
	t.Helper()
	for _, ch := range channels {
		router.AssertCalled(t, "Register", ch, mock.Anything)
	}
}

package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/ingestion"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/model"
)

// RouterMock is a mock implementation of the ingestion.RouterInterface
type RouterMock struct {
	mock.Mock
}

var _ ingestion.RouterInterface = (*RouterMock)(nil)

// Register records the channel; handlers are not comparable so tests match them with mock.Anything.
func (m *RouterMock) Register(channel model.Channel, handler ingestion.MessageHandler) {
	m.Called(channel, handler)
}

func (m *RouterMock) RegisterDefault(handler ingestion.MessageHandler) {
	m.Called(handler)
}

func (m *RouterMock) Route(ctx context.Context, metadata *model.MessageMetadata, data []byte) error {
	args := m.Called(ctx, metadata, data)
	return args.Error(0)
}

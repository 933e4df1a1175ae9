package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// MockKafkaReader implements KafkaReader for testing
type MockKafkaReader struct {
	mock.Mock
}

func (m *MockKafkaReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	args := m.Called(ctx)
	return args.Get(0).(kafka.Message), args.Error(1)
}

func (m *MockKafkaReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaReader) Close() error {
	return m.Called().Error(0)
}

func encodedEvent(t *testing.T, eventType EventType, id uuid.UUID) kafka.Message {
	t.Helper()
	value, err := json.Marshal(Event{Type: eventType, EntityID: id})
	require.NoError(t, err)
	return kafka.Message{Key: []byte(id.String()), Value: value}
}

func TestConsumer_Run(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	id := uuid.New()
	good := encodedEvent(t, StoreUpdated, id)
	bad := kafka.Message{Value: []byte("not json")}

	reader := &MockKafkaReader{}
	reader.On("FetchMessage", ctx).Return(bad, nil).Once()
	reader.On("FetchMessage", ctx).Return(good, nil).Once()
	reader.On("FetchMessage", ctx).Return(kafka.Message{}, context.Canceled).Run(func(mock.Arguments) { cancel() })
	reader.On("CommitMessages", ctx, mock.Anything).Return(nil)

	core, recorded := observer.New(zap.ErrorLevel)
	consumer := newConsumer(reader, zap.New(core))

	var handled []Event
	err := consumer.Run(ctx, func(_ context.Context, event Event) error {
		handled = append(handled, event)
		return nil
	})
	require.NoError(t, err, "cancellation is a clean stop")

	require.Len(t, handled, 1)
	assert.Equal(t, StoreUpdated, handled[0].Type)
	assert.Equal(t, id, handled[0].EntityID)
	reader.AssertNumberOfCalls(t, "CommitMessages", 2)
	assert.Equal(t, 1, recorded.FilterMessage("Failed to parse event").Len())
}

func TestConsumer_HandlerErrorSkipsCommit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &MockKafkaReader{}
	reader.On("FetchMessage", ctx).Return(encodedEvent(t, ProductDeleted, uuid.New()), nil).Once()
	reader.On("FetchMessage", ctx).Return(kafka.Message{}, context.Canceled).Run(func(mock.Arguments) { cancel() })

	consumer := newConsumer(reader, zaptest.NewLogger(t))
	err := consumer.Run(ctx, func(context.Context, Event) error {
		return errors.New("downstream unavailable")
	})
	require.NoError(t, err)
	reader.AssertNotCalled(t, "CommitMessages", mock.Anything, mock.Anything)
}

func TestConsumer_Close(t *testing.T) {
	reader := &MockKafkaReader{}
	reader.On("Close").Return(errors.New("already closed"))

	core, recorded := observer.New(zap.ErrorLevel)
	newConsumer(reader, zap.New(core)).Close()

	reader.AssertExpectations(t)
	assert.Equal(t, 1, recorded.FilterMessage("Failed to close Kafka reader").Len())
}

func TestNewConsumer_RequiresBroker(t *testing.T) {
	_, err := NewConsumer(nil, "group", "topic", zaptest.NewLogger(t))
	assert.Error(t, err)
}

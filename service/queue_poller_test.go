package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"coinledger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func queueMessage(id string) *MockQueueMessage {
	return &MockQueueMessage{MessageID: id, Body: []byte(terminalPayload)}
}

func TestQueuePoller_PollOnce_AcksAndNaks(t *testing.T) {
	ctx := context.Background()
	source := new(MockMessageSource)
	ingest := new(MockIngestService)
	metrics := new(MockPollMetrics)
	poller := NewQueuePoller(ingest, source, metrics, testConfig(t))

	applied, failed, rejected := queueMessage("a"), queueMessage("b"), queueMessage("c")

	source.On("Ping", ctx).Return(nil)
	source.On("Fetch", mock.Anything, 10).Return([]QueueMessage{applied, failed, rejected}, nil)
	ingest.On("Ingest", ctx, mock.MatchedBy(func(r IngestRequest) bool { return r.ExternalID == "a" })).
		Return(&models.IngestResult{Status: models.IngestStatusApplied}, nil)
	ingest.On("Ingest", ctx, mock.MatchedBy(func(r IngestRequest) bool { return r.ExternalID == "b" })).
		Return(nil, ErrStorageUnavailable)
	ingest.On("Ingest", ctx, mock.MatchedBy(func(r IngestRequest) bool {
		return r.ExternalID == "c" && r.Source == models.EventSourceQueueMessage
	})).Return(&models.IngestResult{Status: models.IngestStatusRejected}, nil)
	applied.On("Ack", ctx).Return(nil)
	failed.On("Nak", ctx).Return(nil)
	rejected.On("Ack", ctx).Return(nil)
	metrics.On("RecordQueuePoll", 3, 2).Return()

	result, err := poller.PollOnce(ctx)

	require.NoError(t, err)
	assert.Equal(t, 3, result.MessagesReceived)
	assert.Equal(t, 2, result.MessagesProcessed)
	applied.AssertExpectations(t)
	failed.AssertExpectations(t)
	rejected.AssertExpectations(t)
	metrics.AssertExpectations(t)
	metrics.AssertNotCalled(t, "RecordQueueAlert")
}

func TestQueuePoller_PollOnce_AlertsAboveFailureRatio(t *testing.T) {
	ctx := context.Background()
	source := new(MockMessageSource)
	ingest := new(MockIngestService)
	metrics := new(MockPollMetrics)
	poller := NewQueuePoller(ingest, source, metrics, testConfig(t))

	msg := queueMessage("a")
	source.On("Ping", ctx).Return(nil)
	source.On("Fetch", mock.Anything, 10).Return([]QueueMessage{msg}, nil)
	ingest.On("Ingest", ctx, mock.Anything).Return(nil, ErrStorageUnavailable)
	msg.On("Nak", ctx).Return(nil)
	metrics.On("RecordQueuePoll", 1, 0).Return()
	metrics.On("RecordQueueAlert").Return()

	result, err := poller.PollOnce(ctx)

	require.NoError(t, err)
	assert.Equal(t, 0, result.MessagesProcessed)
	metrics.AssertExpectations(t)
}

func TestQueuePoller_PollOnce_TimeoutIsEmptyCycle(t *testing.T) {
	ctx := context.Background()
	source := new(MockMessageSource)
	metrics := new(MockPollMetrics)
	cfg := testConfig(t)
	cfg.QueuePollTimeout = 10 * time.Millisecond
	poller := NewQueuePoller(new(MockIngestService), source, metrics, cfg)

	source.On("Ping", ctx).Return(nil)
	source.On("Fetch", mock.Anything, 10).Return(nil, context.DeadlineExceeded)
	metrics.On("RecordQueuePoll", 0, 0).Return()

	result, err := poller.PollOnce(ctx)

	require.NoError(t, err)
	assert.Equal(t, &models.PollResult{}, result)
}

func TestQueuePoller_PollOnce_Unreachable(t *testing.T) {
	ctx := context.Background()
	source := new(MockMessageSource)
	poller := NewQueuePoller(new(MockIngestService), source, nil, testConfig(t))

	source.On("Ping", ctx).Return(errors.New("no servers available"))

	_, err := poller.PollOnce(ctx)

	assert.True(t, errors.Is(err, ErrStorageUnavailable))
	source.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestQueuePoller_PollOnce_NoBackend(t *testing.T) {
	poller := NewQueuePoller(new(MockIngestService), nil, nil, testConfig(t))

	_, err := poller.PollOnce(context.Background())
	assert.True(t, errors.Is(err, ErrStorageUnavailable))
}

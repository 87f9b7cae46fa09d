package service

import (
	"context"
	"errors"
	"fmt"

	"coinledger/config"
	"coinledger/models"

	log "github.com/sirupsen/logrus"
)

type queuePoller struct {
	ingest     IngestService
	source     MessageSource
	metrics    PollMetrics
	batchSize  int
	cfg        *config.Config
	alertRatio float64
}

// NewQueuePoller creates a poller over source. metrics may be nil.
func NewQueuePoller(ingest IngestService, source MessageSource, metrics PollMetrics, cfg *config.Config) QueuePoller {
	batchSize := cfg.QueueBatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	return &queuePoller{
		ingest:     ingest,
		source:     source,
		metrics:    metrics,
		batchSize:  batchSize,
		cfg:        cfg,
		alertRatio: cfg.QueueFailureAlertRatio,
	}
}

// PollOnce runs one fetch-and-ingest cycle. Messages are acked once their
// event has a final status and nakked for redelivery on internal failures.
func (p *queuePoller) PollOnce(ctx context.Context) (*models.PollResult, error) {
	if p.source == nil {
		return nil, fmt.Errorf("%w: no queue backend configured", ErrStorageUnavailable)
	}
	if err := p.source.Ping(ctx); err != nil {
		return nil, fmt.Errorf("queue connectivity check failed: %w: %w", ErrStorageUnavailable, err)
	}

	fetchCtx := ctx
	if p.cfg.QueuePollTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, p.cfg.QueuePollTimeout)
		defer cancel()
	}

	messages, err := p.source.Fetch(fetchCtx, p.batchSize)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("failed to fetch messages: %w: %w", ErrStorageUnavailable, err)
	}

	result := &models.PollResult{MessagesReceived: len(messages)}
	for _, msg := range messages {
		if p.handle(ctx, msg) {
			result.MessagesProcessed++
		}
	}

	if p.metrics != nil {
		p.metrics.RecordQueuePoll(result.MessagesReceived, result.MessagesProcessed)
	}

	fields := log.Fields{
		"received":  result.MessagesReceived,
		"processed": result.MessagesProcessed,
	}
	if result.MessagesReceived > 0 {
		failed := result.MessagesReceived - result.MessagesProcessed
		if float64(failed)/float64(result.MessagesReceived) > p.alertRatio {
			log.WithFields(fields).Error("Queue poll failure ratio above threshold")
			if p.metrics != nil {
				p.metrics.RecordQueueAlert()
			}
		}
	}
	log.WithFields(fields).Debug("Queue poll completed")

	return result, nil
}

func (p *queuePoller) handle(ctx context.Context, msg QueueMessage) bool {
	logger := log.WithField("messageID", msg.ID())

	res, err := p.ingest.Ingest(ctx, IngestRequest{
		Source:     models.EventSourceQueueMessage,
		ExternalID: msg.ID(),
		Payload:    msg.Data(),
		Signature:  msg.Signature(),
	})
	if err != nil {
		logger.WithError(err).Error("Failed to ingest queue message")
		if nakErr := msg.Nak(ctx); nakErr != nil {
			logger.WithError(nakErr).Error("Failed to nak queue message")
		}
		return false
	}

	if err := msg.Ack(ctx); err != nil {
		// The event is recorded, so a redelivery is reported as a duplicate
		logger.WithError(err).Warn("Failed to ack queue message")
	}
	logger.WithField("status", res.Status).Debug("Queue message handled")
	return true
}

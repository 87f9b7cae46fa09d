package repository

import (
	"context"
	"fmt"

	"coinledger/database"
	"coinledger/models"

	"github.com/jackc/pgx/v5"
)

// ExternalEventRepository implements the ExternalEventRepository interface
type ExternalEventRepository struct {
	q queryable
}

// NewExternalEventRepository creates a new external event repository
func NewExternalEventRepository(db *database.DB) *ExternalEventRepository {
	return &ExternalEventRepository{q: db.Pool}
}

// newExternalEventRepositoryWithTx creates a new external event repository with a transaction
func newExternalEventRepositoryWithTx(tx queryable) *ExternalEventRepository {
	return &ExternalEventRepository{q: tx}
}

// InsertIfAbsent records a pending event unless its (source, external_id) is known
func (r *ExternalEventRepository) InsertIfAbsent(ctx context.Context, event *models.ExternalEvent) (bool, error) {
	payload := event.RawPayload
	if payload == nil {
		payload = []byte{}
	}

	tag, err := r.q.Exec(ctx, `
		INSERT INTO external_events (source, external_id, raw_payload, processing_status)
		VALUES ($1, $2, $3, 'pending')
		ON CONFLICT (source, external_id) DO NOTHING
	`, string(event.Source), event.ExternalID, payload)
	if err != nil {
		return false, wrapError("failed to record external event", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetForUpdate locks and returns the event row, nil if absent
func (r *ExternalEventRepository) GetForUpdate(ctx context.Context, source models.EventSource, externalID string) (*models.ExternalEvent, error) {
	var event models.ExternalEvent
	var src, status string

	err := r.q.QueryRow(ctx, `
		SELECT id, source, external_id, raw_payload, processing_status, rejection_reason,
			applied_transaction_id, received_at, processed_at
		FROM external_events
		WHERE source = $1 AND external_id = $2
		FOR UPDATE
	`, string(source), externalID).Scan(
		&event.ID,
		&src,
		&event.ExternalID,
		&event.RawPayload,
		&status,
		&event.RejectionReason,
		&event.AppliedTransactionID,
		&event.ReceivedAt,
		&event.ProcessedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock external event %s/%s: %w", source, externalID, err)
	}

	event.Source = models.EventSource(src)
	event.ProcessingStatus = models.ProcessingStatus(status)
	return &event, nil
}

// MarkProcessed records the final status of an event
func (r *ExternalEventRepository) MarkProcessed(ctx context.Context, event *models.ExternalEvent) error {
	payload := event.RawPayload
	if payload == nil {
		payload = []byte{}
	}

	tag, err := r.q.Exec(ctx, `
		UPDATE external_events
		SET processing_status = $2, rejection_reason = $3, applied_transaction_id = $4,
			raw_payload = $5, processed_at = NOW()
		WHERE id = $1
	`,
		event.ID,
		string(event.ProcessingStatus),
		event.RejectionReason,
		event.AppliedTransactionID,
		payload,
	)
	if err != nil {
		return wrapError(fmt.Sprintf("failed to update external event %d", event.ID), err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("external event %d not found", event.ID)
	}
	return nil
}

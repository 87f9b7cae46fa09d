package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"coinledger/config"
	"coinledger/events"
	"coinledger/models"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
)

type ingestService struct {
	uowFactory UnitOfWorkFactory
	secret     string
	coinRate   int64
	validator  *validator.Validate
}

// NewIngestService creates a new ingest service
func NewIngestService(uowFactory UnitOfWorkFactory, cfg *config.Config) IngestService {
	if cfg.TerminalWebhookSecret == "" {
		log.Warn("TERMINAL_WEBHOOK_SECRET is not set, terminal signatures will not be verified")
	}
	coinRate := cfg.TerminalCoinRate
	if coinRate <= 0 {
		coinRate = 1
	}
	return &ingestService{
		uowFactory: uowFactory,
		secret:     cfg.TerminalWebhookSecret,
		coinRate:   coinRate,
		validator:  validator.New(),
	}
}

func (s *ingestService) Ingest(ctx context.Context, req IngestRequest) (*models.IngestResult, error) {
	if req.Source != models.EventSourceTerminalWebhook && req.Source != models.EventSourceQueueMessage {
		return nil, fmt.Errorf("%w: unknown event source %q", ErrInvalidRequest, req.Source)
	}
	externalID := strings.TrimSpace(req.ExternalID)
	if externalID == "" {
		externalID = deriveExternalID(req.Payload)
	}

	logger := log.WithFields(log.Fields{
		"source":     req.Source,
		"externalID": externalID,
	})

	var signatureErr error
	switch {
	case s.secret == "":
	case req.Signature == "":
		logger.Warn("Terminal event received without a signature")
	default:
		signatureErr = verifySignature(s.secret, req.Payload, req.Signature)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storageError("failed to begin transaction", err)
	}
	defer uow.Rollback()

	eventRepo := uow.ExternalEventRepository()
	if _, err := eventRepo.InsertIfAbsent(ctx, &models.ExternalEvent{
		Source:           req.Source,
		ExternalID:       externalID,
		RawPayload:       req.Payload,
		ProcessingStatus: models.ProcessingStatusPending,
	}); err != nil {
		return nil, storageError("failed to record event", err)
	}

	event, err := eventRepo.GetForUpdate(ctx, req.Source, externalID)
	if err != nil {
		return nil, storageError("failed to lock event", err)
	}
	if event == nil {
		return nil, fmt.Errorf("%w: event %s/%s vanished after insert", ErrInvariantViolation, req.Source, externalID)
	}

	if event.ProcessingStatus == models.ProcessingStatusApplied {
		if err := uow.Commit(); err != nil {
			return nil, storageError("failed to commit transaction", err)
		}
		logger.WithField("eventID", event.ID).Info("Duplicate terminal event ignored")
		return &models.IngestResult{
			Status:        models.IngestStatusDuplicate,
			EventID:       event.ID,
			TransactionID: event.AppliedTransactionID,
		}, nil
	}

	// A pending or previously rejected row is evaluated against this delivery
	event.RawPayload = req.Payload

	if signatureErr != nil {
		return s.reject(ctx, uow, event, models.RejectionInvalidSignature, signatureErr)
	}

	payload, err := s.parsePayload(req.Payload)
	if err != nil {
		return s.reject(ctx, uow, event, models.RejectionMalformedPayload, err)
	}

	accountID, err := s.resolveAccount(ctx, uow, payload)
	if errors.Is(err, ErrMalformedPayload) {
		return s.reject(ctx, uow, event, models.RejectionMalformedPayload, err)
	}
	if err != nil {
		return nil, err
	}

	var coins int64
	if payload.Coins != nil {
		coins = *payload.Coins
	} else if coins, err = multiplyAmount(payload.Amount, s.coinRate); err != nil {
		return s.reject(ctx, uow, event, models.RejectionMalformedPayload, err)
	}

	entry := models.Earn(accountID, models.CategoryTerminalSale, coins, models.ExternalReference(event.Source, event.ExternalID)).
		WithMetadata(map[string]any{
			"machine_id":     payload.MachineID,
			"transaction_id": payload.TransactionID,
			"amount":         payload.Amount,
			"event_id":       event.ID,
		})
	txs, err := appendEntries(ctx, uow, []models.Entry{entry})
	if errors.Is(err, ErrInvalidAmount) {
		return s.reject(ctx, uow, event, models.RejectionMalformedPayload, err)
	}
	if err != nil {
		return nil, storageError("failed to credit terminal sale", err)
	}

	now := time.Now()
	txID := txs[0].ID
	event.ProcessingStatus = models.ProcessingStatusApplied
	event.RejectionReason = nil
	event.AppliedTransactionID = &txID
	event.ProcessedAt = &now
	if err := eventRepo.MarkProcessed(ctx, event); err != nil {
		return nil, storageError("failed to mark event applied", err)
	}

	uow.EventBus().Publish(events.ExternalEventProcessedEvent{
		EventID:    event.ID,
		Source:     event.Source,
		ExternalID: event.ExternalID,
		Status:     models.IngestStatusApplied,
	})

	if err := uow.Commit(); err != nil {
		return nil, storageError("failed to commit transaction", err)
	}

	logger.WithFields(log.Fields{
		"eventID":       event.ID,
		"accountID":     accountID,
		"coins":         coins,
		"transactionID": txID,
	}).Info("Terminal event applied")

	return &models.IngestResult{
		Status:        models.IngestStatusApplied,
		EventID:       event.ID,
		TransactionID: &txID,
	}, nil
}

// reject persists the rejection and commits. A rejection is a result, not
// an error.
func (s *ingestService) reject(ctx context.Context, uow UnitOfWork, event *models.ExternalEvent, reason string, cause error) (*models.IngestResult, error) {
	now := time.Now()
	event.ProcessingStatus = models.ProcessingStatusRejected
	event.RejectionReason = &reason
	event.AppliedTransactionID = nil
	event.ProcessedAt = &now
	if err := uow.ExternalEventRepository().MarkProcessed(ctx, event); err != nil {
		return nil, storageError("failed to mark event rejected", err)
	}

	uow.EventBus().Publish(events.ExternalEventProcessedEvent{
		EventID:    event.ID,
		Source:     event.Source,
		ExternalID: event.ExternalID,
		Status:     models.IngestStatusRejected,
		Reason:     reason,
	})

	if err := uow.Commit(); err != nil {
		return nil, storageError("failed to commit transaction", err)
	}

	log.WithFields(log.Fields{
		"eventID":    event.ID,
		"source":     event.Source,
		"externalID": event.ExternalID,
		"reason":     reason,
	}).WithError(cause).Warn("Terminal event rejected")

	return &models.IngestResult{
		Status:  models.IngestStatusRejected,
		EventID: event.ID,
		Reason:  reason,
	}, nil
}

func (s *ingestService) parsePayload(raw []byte) (*models.TerminalPayload, error) {
	var payload models.TerminalPayload
	decoder := json.NewDecoder(bytes.NewReader(raw))
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	payload.TransactionID = strings.TrimSpace(payload.TransactionID)
	payload.MachineID = strings.TrimSpace(payload.MachineID)
	if err := s.validator.Struct(&payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return &payload, nil
}

// resolveAccount prefers an explicit account id over the machine binding
func (s *ingestService) resolveAccount(ctx context.Context, uow UnitOfWork, payload *models.TerminalPayload) (int64, error) {
	if payload.AccountID != nil {
		return *payload.AccountID, nil
	}
	accountID, err := uow.TerminalBindingRepository().GetAccountForMachine(ctx, payload.MachineID)
	if err != nil {
		return 0, storageError("failed to look up terminal", err)
	}
	if accountID == nil {
		return 0, fmt.Errorf("%w: unknown machine %q", ErrMalformedPayload, payload.MachineID)
	}
	return *accountID, nil
}

func (s *ingestService) BindTerminal(ctx context.Context, machineID string, accountID int64) error {
	machineID = strings.TrimSpace(machineID)
	if machineID == "" || accountID <= 0 {
		return fmt.Errorf("%w: machine id and account id are required", ErrInvalidRequest)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return storageError("failed to begin transaction", err)
	}
	defer uow.Rollback()

	if err := uow.TerminalBindingRepository().Bind(ctx, machineID, accountID); err != nil {
		return storageError("failed to bind terminal", err)
	}
	if err := uow.Commit(); err != nil {
		return storageError("failed to commit transaction", err)
	}

	log.WithFields(log.Fields{
		"machineID": machineID,
		"accountID": accountID,
	}).Info("Terminal bound")
	return nil
}

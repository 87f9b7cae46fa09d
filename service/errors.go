package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidStake       = errors.New("stake outside table limits")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrQuotaExceeded      = errors.New("quota exceeded")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrMalformedPayload   = errors.New("malformed payload")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrInvariantViolation = errors.New("ledger invariant violated")
	ErrNotFound           = errors.New("not found")
	ErrRaceNotOpen        = errors.New("race is not open")
	ErrInvalidGame        = errors.New("invalid game")
	ErrInvalidRequest     = errors.New("invalid request")
)

var domainErrors = []error{
	ErrInvalidAmount,
	ErrInvalidStake,
	ErrInsufficientFunds,
	ErrQuotaExceeded,
	ErrInvalidSignature,
	ErrMalformedPayload,
	ErrStorageUnavailable,
	ErrInvariantViolation,
	ErrNotFound,
	ErrRaceNotOpen,
	ErrInvalidGame,
	ErrInvalidRequest,
}

// IsDomainError reports whether err carries one of the service sentinels
func IsDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// storageError wraps infrastructure failures as ErrStorageUnavailable so
// callers can treat them as retryable. Domain errors pass through.
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsDomainError(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}

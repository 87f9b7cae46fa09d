package api

import (
	"errors"
	"net/http"

	"coinledger/service"
)

// Error kinds reported to clients
const (
	KindInvalidStake       = "invalid_stake"
	KindInvalidAmount      = "invalid_amount"
	KindInvalidGame        = "invalid_game"
	KindInvalidRequest     = "invalid_request"
	KindInsufficientFunds  = "insufficient_funds"
	KindQuotaExceeded      = "quota_exceeded"
	KindNotFound           = "not_found"
	KindRaceNotOpen        = "race_not_open"
	KindStorageUnavailable = "storage_unavailable"
	KindInternal           = "internal"
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{service.ErrInvalidStake, KindInvalidStake},
	{service.ErrInvalidAmount, KindInvalidAmount},
	{service.ErrInvalidGame, KindInvalidGame},
	{service.ErrInvalidRequest, KindInvalidRequest},
	{service.ErrMalformedPayload, KindInvalidRequest},
	{service.ErrInsufficientFunds, KindInsufficientFunds},
	{service.ErrQuotaExceeded, KindQuotaExceeded},
	{service.ErrNotFound, KindNotFound},
	{service.ErrRaceNotOpen, KindRaceNotOpen},
	{service.ErrStorageUnavailable, KindStorageUnavailable},
}

// ErrorKind maps a service error to the kind reported to clients
func ErrorKind(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

func statusForKind(kind string) int {
	switch kind {
	case KindInvalidStake, KindInvalidAmount, KindInvalidGame, KindInvalidRequest:
		return http.StatusBadRequest
	case KindInsufficientFunds, KindRaceNotOpen:
		return http.StatusConflict
	case KindQuotaExceeded:
		return http.StatusTooManyRequests
	case KindNotFound:
		return http.StatusNotFound
	case KindStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage hides internal detail behind a generic message
func clientMessage(kind string, err error) string {
	switch kind {
	case KindInternal, KindStorageUnavailable:
		return "something went wrong, please try again"
	default:
		return err.Error()
	}
}

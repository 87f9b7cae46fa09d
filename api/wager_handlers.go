package api

import (
	"net/http"

	"coinledger/models"
	"coinledger/service"

	"github.com/shopspring/decimal"
)

// wagerRequest carries only the player's choice. Results are never accepted
// from clients, so there are no outcome or payout fields.
type wagerRequest struct {
	AccountID  int64         `json:"account_id" validate:"gt=0"`
	BusinessID int64         `json:"business_id" validate:"gte=0"`
	GameType   string        `json:"game_type" validate:"required"`
	Stake      int64         `json:"stake"`
	Context    *wagerContext `json:"context,omitempty"`
}

type wagerContext struct {
	RaceID    int64 `json:"race_id" validate:"gte=0"`
	EntrantNo int   `json:"entrant_no" validate:"gte=0"`
}

type wagerResponse struct {
	Success        bool              `json:"success"`
	PlayID         int64             `json:"play_id"`
	Stake          int64             `json:"stake"`
	Payout         int64             `json:"payout"`
	Multiplier     decimal.Decimal   `json:"multiplier"`
	IsJackpot      bool              `json:"is_jackpot"`
	Outcome        models.Outcome    `json:"outcome"`
	Status         models.PlayStatus `json:"status"`
	NewBalance     int64             `json:"new_balance"`
	PlaysRemaining int64             `json:"plays_remaining"`
}

// PlaceWager handles POST /api/v1/wagers
func (h *Handler) PlaceWager(w http.ResponseWriter, r *http.Request) {
	var req wagerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	wager := service.WagerRequest{
		AccountID:  req.AccountID,
		BusinessID: req.BusinessID,
		GameType:   models.GameType(req.GameType),
		Stake:      req.Stake,
	}
	if req.Context != nil {
		wager.Context = service.WagerContext{RaceID: req.Context.RaceID, EntrantNo: req.Context.EntrantNo}
	}

	result, err := h.svc.Wagering.PlaceWager(r.Context(), wager)
	if err != nil {
		writeServiceError(w, r, "place_wager", err)
		return
	}

	writeJSON(w, http.StatusOK, wagerResponse{
		Success:        true,
		PlayID:         result.PlayID,
		Stake:          result.Stake,
		Payout:         result.Payout,
		Multiplier:     result.Multiplier,
		IsJackpot:      result.IsJackpot,
		Outcome:        result.Outcome,
		Status:         result.Status,
		NewBalance:     result.NewBalance,
		PlaysRemaining: result.PlaysRemaining,
	})
}

package api

import (
	"net/http"
)

type spinPackRequest struct {
	AccountID  int64 `json:"account_id" validate:"gt=0"`
	BusinessID int64 `json:"business_id" validate:"gt=0"`
}

type votePackRequest struct {
	AccountID int64 `json:"account_id" validate:"gt=0"`
	Packs     int64 `json:"packs" validate:"gt=0,lte=100"`
}

type discountRequest struct {
	AccountID  int64  `json:"account_id" validate:"gt=0"`
	BusinessID int64  `json:"business_id" validate:"gt=0"`
	Code       string `json:"code" validate:"required,max=64"`
	Price      int64  `json:"price" validate:"gt=0,lte=1000000000000"`
}

type levelUpRequest struct {
	AccountID int64 `json:"account_id" validate:"gt=0"`
	Level     int   `json:"level" validate:"gt=0"`
	Amount    int64 `json:"amount" validate:"gt=0,lte=1000000000000"`
}

// BuySpinPack handles POST /api/v1/purchases/spin-pack
func (h *Handler) BuySpinPack(w http.ResponseWriter, r *http.Request) {
	var req spinPackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	result, err := h.svc.Purchases.BuySpinPack(r.Context(), req.AccountID, req.BusinessID)
	if err != nil {
		writeServiceError(w, r, "buy_spin_pack", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// BuyVotePack handles POST /api/v1/purchases/vote-pack
func (h *Handler) BuyVotePack(w http.ResponseWriter, r *http.Request) {
	var req votePackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	result, err := h.svc.Purchases.BuyVotePack(r.Context(), req.AccountID, req.Packs)
	if err != nil {
		writeServiceError(w, r, "buy_vote_pack", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// BuyDiscount handles POST /api/v1/purchases/discount
func (h *Handler) BuyDiscount(w http.ResponseWriter, r *http.Request) {
	var req discountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	result, err := h.svc.Purchases.BuyDiscount(r.Context(), req.AccountID, req.BusinessID, req.Code, req.Price)
	if err != nil {
		writeServiceError(w, r, "buy_discount", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GrantLevelUpBonus handles POST /api/v1/bonuses/level-up. A repeated grant
// for the same level answers 200 with granted=false.
func (h *Handler) GrantLevelUpBonus(w http.ResponseWriter, r *http.Request) {
	var req levelUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	tx, err := h.svc.Purchases.GrantLevelUpBonus(r.Context(), req.AccountID, req.Level, req.Amount)
	if err != nil {
		writeServiceError(w, r, "grant_level_up_bonus", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"granted": tx != nil, "transaction": tx})
}

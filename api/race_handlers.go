package api

import (
	"net/http"
	"time"

	"coinledger/service"
)

type createRaceRequest struct {
	BusinessID     int64                `json:"business_id" validate:"gt=0"`
	Name           string               `json:"name" validate:"required,max=200"`
	Weather        string               `json:"weather" validate:"max=50"`
	TimeOfDay      string               `json:"time_of_day" validate:"max=50"`
	StartsAt       *time.Time           `json:"starts_at,omitempty"`
	PrizePool      int64                `json:"prize_pool"`
	HouseAccountID *int64               `json:"house_account_id,omitempty" validate:"omitempty,gt=0"`
	Entrants       []raceEntrantRequest `json:"entrants" validate:"required,min=2,dive"`
}

type raceEntrantRequest struct {
	EntrantNo        int     `json:"entrant_no" validate:"gt=0"`
	Name             string  `json:"name" validate:"required,max=100"`
	PerformanceScore float64 `json:"performance_score" validate:"gt=0,lte=9999"`
	RecentForm       float64 `json:"recent_form" validate:"gte=0,lte=1"`
	PreferredWeather string  `json:"preferred_weather" validate:"max=50"`
	PreferredTime    string  `json:"preferred_time" validate:"max=50"`
}

// CreateRace handles POST /api/v1/races
func (h *Handler) CreateRace(w http.ResponseWriter, r *http.Request) {
	var req createRaceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	entrants := make([]service.RaceEntrantSpec, len(req.Entrants))
	for i, e := range req.Entrants {
		entrants[i] = service.RaceEntrantSpec{
			EntrantNo:        e.EntrantNo,
			Name:             e.Name,
			PerformanceScore: e.PerformanceScore,
			RecentForm:       e.RecentForm,
			PreferredWeather: e.PreferredWeather,
			PreferredTime:    e.PreferredTime,
		}
	}

	race, err := h.svc.Races.CreateRace(r.Context(), service.CreateRaceRequest{
		BusinessID:     req.BusinessID,
		Name:           req.Name,
		Weather:        req.Weather,
		TimeOfDay:      req.TimeOfDay,
		StartsAt:       req.StartsAt,
		PrizePool:      req.PrizePool,
		HouseAccountID: req.HouseAccountID,
		Entrants:       entrants,
	})
	if err != nil {
		writeServiceError(w, r, "create_race", err)
		return
	}
	writeJSON(w, http.StatusCreated, race)
}

// GetRace handles GET /api/v1/races/{raceID}
func (h *Handler) GetRace(w http.ResponseWriter, r *http.Request) {
	raceID, err := pathInt64(r, "raceID")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	race, err := h.svc.Races.GetRace(r.Context(), raceID)
	if err != nil {
		writeServiceError(w, r, "get_race", err)
		return
	}
	writeJSON(w, http.StatusOK, race)
}

// SettleRace handles POST /api/v1/races/{raceID}/settle
func (h *Handler) SettleRace(w http.ResponseWriter, r *http.Request) {
	raceID, err := pathInt64(r, "raceID")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	result, err := h.svc.Races.SettleRace(r.Context(), raceID)
	if err != nil {
		writeServiceError(w, r, "settle_race", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CancelRace handles POST /api/v1/races/{raceID}/cancel
func (h *Handler) CancelRace(w http.ResponseWriter, r *http.Request) {
	raceID, err := pathInt64(r, "raceID")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	result, err := h.svc.Races.CancelRace(r.Context(), raceID)
	if err != nil {
		writeServiceError(w, r, "cancel_race", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

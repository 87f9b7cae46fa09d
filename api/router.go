package api

import (
	"net/http"
	"time"

	"coinledger/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Services are the operations exposed over HTTP
type Services struct {
	Ledger    service.LedgerService
	Quota     service.QuotaService
	Wagering  service.WageringService
	Races     service.RaceService
	Ingest    service.IngestService
	Poller    service.QueuePoller
	Purchases service.PurchaseService
	Votes     service.VoteService
	Status    service.StatusService
}

// Handler exposes the services as HTTP handlers
type Handler struct {
	svc Services
}

// NewHandler returns a handler over svc
func NewHandler(svc Services) *Handler {
	return &Handler{svc: svc}
}

// NewRouter builds the chi router with every API route registered
func NewRouter(svc Services) http.Handler {
	h := NewHandler(svc)
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", SignatureHeader, EventIDHeader},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/wagers", h.PlaceWager)

		r.Get("/accounts/{accountID}/status", h.GetStatus)
		r.Get("/accounts/{accountID}/transactions", h.GetTransactions)

		r.Post("/webhooks/terminal", h.TerminalWebhook)
		r.Put("/terminals/{machineID}", h.BindTerminal)
		r.Post("/queue/poll", h.PollQueue)

		r.Post("/races", h.CreateRace)
		r.Get("/races/{raceID}", h.GetRace)
		r.Post("/races/{raceID}/settle", h.SettleRace)
		r.Post("/races/{raceID}/cancel", h.CancelRace)

		r.Post("/purchases/spin-pack", h.BuySpinPack)
		r.Post("/purchases/vote-pack", h.BuyVotePack)
		r.Post("/purchases/discount", h.BuyDiscount)
		r.Post("/bonuses/level-up", h.GrantLevelUpBonus)

		r.Post("/votes", h.CastVote)
		r.Post("/insights/refresh", h.RefreshInsight)
	})

	return r
}

// NewServer creates a configured *http.Server
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

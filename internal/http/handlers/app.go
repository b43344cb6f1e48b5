package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"mediaforge/internal/domain"
	"mediaforge/internal/ledger"
	"mediaforge/internal/middleware"
	"mediaforge/internal/orchestrator"
	"mediaforge/internal/reconcile"
)

// App is the handler container wired in main.
type App struct {
	Logger  zerolog.Logger
	Orch    *orchestrator.Orchestrator
	Ledger  *ledger.Ledger
	Sweeper *reconcile.Sweeper
}

func NewApp(logger zerolog.Logger, orch *orchestrator.Orchestrator, l *ledger.Ledger, sweeper *reconcile.Sweeper) *App {
	return &App{Logger: logger, Orch: orch, Ledger: l, Sweeper: sweeper}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]string{"error": errCode, "message": message})
}

func (a *App) currentAccountID(r *http.Request) string {
	return middleware.AccountIDFromContext(r.Context())
}

// domainError maps domain sentinels onto HTTP responses.
func (a *App) domainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		a.error(w, http.StatusNotFound, "account_not_found", "no balance record for account")
	case errors.Is(err, domain.ErrInsufficientCredits):
		a.error(w, http.StatusPaymentRequired, "insufficient_credits", "not enough credits for this generation")
	case errors.Is(err, domain.ErrInvalidInput):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrVendorRejected):
		a.error(w, http.StatusUnprocessableEntity, "vendor_rejected", err.Error())
	case errors.Is(err, domain.ErrVendorUnavailable):
		a.error(w, http.StatusBadGateway, "vendor_unavailable", "generation service temporarily unavailable")
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "generation not found")
	default:
		a.Logger.Error().Err(err).Msg("handler: internal error")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

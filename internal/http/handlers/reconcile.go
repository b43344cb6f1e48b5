package handlers

import "net/http"

// ReconcileRun triggers one sweep pass on demand. The same code path runs on
// the scheduler in cmd/reconciler; this endpoint exists for operators.
func (a *App) ReconcileRun(w http.ResponseWriter, r *http.Request) {
	report, err := a.Sweeper.Sweep(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("handler: manual sweep failed")
		a.error(w, http.StatusInternalServerError, "internal", "sweep failed")
		return
	}
	a.json(w, http.StatusOK, report)
}

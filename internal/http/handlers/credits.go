package handlers

import "net/http"

type balanceResponse struct {
	SubscriptionCredits int  `json:"subscription_credits"`
	ExtraCredits        int  `json:"extra_credits"`
	Total               int  `json:"total"`
	SubscriptionActive  bool `json:"subscription_active"`
}

// CreditsBalance reports both credit pools for the calling account.
func (a *App) CreditsBalance(w http.ResponseWriter, r *http.Request) {
	accountID := a.currentAccountID(r)
	if accountID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing account context")
		return
	}
	bal, err := a.Ledger.GetBalance(r.Context(), accountID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, balanceResponse{
		SubscriptionCredits: bal.SubscriptionCredits,
		ExtraCredits:        bal.ExtraCredits,
		Total:               bal.Total(),
		SubscriptionActive:  bal.SubscriptionActive,
	})
}

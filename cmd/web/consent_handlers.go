package main

import (
	"net/http"

	"go.uber.org/zap"

	mw "finitefield.org/storefront/internal/middleware"
	"finitefield.org/storefront/internal/observability"
)

// ConsentAcceptHandler stores consent for a year and removes the banner.
func (a *app) ConsentAcceptHandler(w http.ResponseWriter, r *http.Request) {
	state, err := a.consent.Accept(w)
	if err != nil {
		observability.FromContext(r.Context()).Error("consent save failed", zap.Error(err))
		mw.WriteError(w, r, http.StatusInternalServerError, "could not save consent")
		return
	}
	if !mw.IsHTMX(r.Context()) {
		redirectHome(w, r)
		return
	}
	triggerEvents(w, map[string]any{consentEvent: map[string]string{"state": state.String()}})
	w.WriteHeader(http.StatusOK)
}

// ConsentDeclineHandler hides the banner for this page only; nothing is stored,
// so the banner returns on the next load. Plain form posts redirect to a page
// that renders without the banner.
func (a *app) ConsentDeclineHandler(w http.ResponseWriter, r *http.Request) {
	state := a.consent.Decline()
	if mw.IsHTMX(r.Context()) {
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/?"+consentParam+"="+state.String(), http.StatusSeeOther)
}

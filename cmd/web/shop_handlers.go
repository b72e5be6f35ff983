package main

import (
	"net/http"

	"finitefield.org/storefront/internal/consent"
	"finitefield.org/storefront/internal/order"
)

// consentParam carries a one-page decline after a plain form post.
const consentParam = "consent"

// ShopHandler renders the full storefront: catalog, cart, consent banner and order button.
func (a *app) ShopHandler(w http.ResponseWriter, r *http.Request) {
	items := a.cart.Load(r)
	vm := a.pageData(r, items, a.orderView(order.Closed, items))
	if r.URL.Query().Get(consentParam) == consent.Declined.String() {
		vm.Consent.Visible = false
	}
	renderPage(w, r, http.StatusOK, vm)
}

package main

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finitefield.org/storefront/internal/cart"
	mw "finitefield.org/storefront/internal/middleware"
	"finitefield.org/storefront/internal/observability"
	"finitefield.org/storefront/internal/order"
)

// CartFrag renders the cart list and total.
func (a *app) CartFrag(w http.ResponseWriter, r *http.Request) {
	items := a.cart.Load(r)
	renderTemplate(w, r, "frag_cart", a.pageData(r, items, a.orderView(order.Closed, items)))
}

// CartAddHandler adds one unit of the product in the path. Unknown ids leave the cart as is.
func (a *app) CartAddHandler(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context()).Named("cart")
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 1 {
		mw.WriteError(w, r, http.StatusBadRequest, "invalid product id")
		return
	}

	items, added, err := a.cart.Add(w, r, id)
	if err != nil {
		logger.Error("cart save failed", zap.Int("product_id", id), zap.Error(err))
		mw.WriteError(w, r, http.StatusInternalServerError, "could not save cart")
		return
	}
	if !added {
		logger.Warn("cart add ignored unknown product", zap.Int("product_id", id))
	} else {
		logger.Info("cart item added", zap.Int("product_id", id), zap.Int("items", cart.Count(items)))
	}

	a.respondCart(w, r, items)
}

// CartClearHandler empties the cart and expires its cookie.
func (a *app) CartClearHandler(w http.ResponseWriter, r *http.Request) {
	a.cart.Clear(w)
	observability.FromContext(r.Context()).Named("cart").Info("cart cleared")
	a.respondCart(w, r, nil)
}

func (a *app) respondCart(w http.ResponseWriter, r *http.Request, items []cart.Item) {
	if !mw.IsHTMX(r.Context()) {
		redirectHome(w, r)
		return
	}
	triggerEvents(w, map[string]any{
		cartUpdatedEvent: map[string]int{"count": cart.Count(items)},
	})
	renderTemplate(w, r, "frag_cart", a.pageData(r, items, a.orderView(order.Closed, items)))
}

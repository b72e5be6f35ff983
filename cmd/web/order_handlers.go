package main

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"finitefield.org/storefront/internal/cart"
	handlersPkg "finitefield.org/storefront/internal/handlers"
	mw "finitefield.org/storefront/internal/middleware"
	"finitefield.org/storefront/internal/observability"
	"finitefield.org/storefront/internal/order"
)

// OrderOpenHandler moves Closed to Confirming and shows the cart summary.
func (a *app) OrderOpenHandler(w http.ResponseWriter, r *http.Request) {
	a.transition(w, r, order.EventOpen)
}

// OrderConfirmHandler moves Confirming to Open and shows the modal form.
func (a *app) OrderConfirmHandler(w http.ResponseWriter, r *http.Request) {
	a.transition(w, r, order.EventConfirm)
}

// OrderDismissHandler closes the prompt or the modal.
func (a *app) OrderDismissHandler(w http.ResponseWriter, r *http.Request) {
	a.transition(w, r, order.EventDismiss)
}

func (a *app) transition(w http.ResponseWriter, r *http.Request, ev order.Event) {
	from := order.ParseState(r.PostFormValue("state"))
	items := a.cart.Load(r)
	to, err := order.Next(from, ev, order.Input{CartSize: len(items)})
	if err != nil {
		a.orderError(w, r, err, from, items, order.Form{})
		return
	}
	a.renderOrder(w, r, http.StatusOK, a.pageData(r, items, a.orderView(to, items)))
}

// OrderSubmitHandler validates the modal, builds the WhatsApp message from the cart
// and hands the outbound link to the page.
func (a *app) OrderSubmitHandler(w http.ResponseWriter, r *http.Request) {
	from := order.ParseState(r.PostFormValue("state"))
	items := a.cart.Load(r)
	form := order.NewForm(r.PostFormValue("nome"), r.PostFormValue("endereco"), r.PostFormValue("pagamento"))
	form.Payment = a.paymentMethod(form.Payment)

	if _, err := order.Next(from, order.EventSubmit, order.Input{CartSize: len(items), Form: form}); err != nil {
		a.orderError(w, r, err, from, items, form)
		return
	}
	sub, err := a.orders.Submit(r.Context(), form, items, r.UserAgent())
	if err != nil {
		a.orderError(w, r, err, order.Open, items, form)
		return
	}

	if !mw.IsHTMX(r.Context()) {
		http.Redirect(w, r, sub.Links.Primary, http.StatusSeeOther)
		return
	}
	triggerEvents(w, map[string]any{
		orderOpenEvent: map[string]string{
			"url":      sub.Links.Primary,
			"fallback": sub.Links.Fallback,
		},
	})
	ov := a.orderView(order.Closed, items)
	ov.Links = sub.Links
	ov.Reference = sub.Reference
	renderTemplate(w, r, "frag_order", a.pageData(r, items, ov))
}

// orderError maps flow errors to responses. Guard failures keep the current state and
// raise an alert; unknown transitions are conflicts.
func (a *app) orderError(w http.ResponseWriter, r *http.Request, err error, from order.State, items []cart.Item, form order.Form) {
	logger := observability.FromContext(r.Context()).Named("order")
	var fieldsErr *order.FieldsError
	switch {
	case errors.Is(err, order.ErrEmptyCart):
		logger.Info("order blocked: empty cart", zap.String("state", string(from)))
		ov := a.orderView(order.Closed, items)
		a.renderOrderAlert(w, r, alertEmptyCart, a.pageData(r, items, ov), false)
	case errors.As(err, &fieldsErr):
		logger.Info("order blocked: missing fields", zap.Strings("fields", fieldsErr.Fields))
		ov := a.orderView(order.Open, items).WithFieldErrors(form, fieldsErr)
		a.renderOrderAlert(w, r, alertMissingFields, a.pageData(r, items, ov), true)
	case errors.Is(err, order.ErrInvalidTransition):
		logger.Warn("order transition rejected", zap.String("state", string(from)), zap.Error(err))
		mw.WriteError(w, r, http.StatusConflict, "invalid order state")
	default:
		logger.Error("order failed", zap.Error(err))
		mw.WriteError(w, r, http.StatusInternalServerError, "could not place order")
	}
}

// renderOrderAlert answers a blocked action with 422. htmx clients get the alert as an
// event and, when swap is set, the re-rendered modal; others get the full page.
func (a *app) renderOrderAlert(w http.ResponseWriter, r *http.Request, msg string, vm handlersPkg.PageData, swap bool) {
	if mw.IsHTMX(r.Context()) {
		triggerEvents(w, alertPayload(msg))
		if !swap {
			w.Header().Set("HX-Reswap", "none")
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		renderStatus(w, r, http.StatusUnprocessableEntity, "frag_order", vm)
		return
	}
	vm.Alert = msg
	renderPage(w, r, http.StatusUnprocessableEntity, vm)
}

func (a *app) renderOrder(w http.ResponseWriter, r *http.Request, status int, vm handlersPkg.PageData) {
	if mw.IsHTMX(r.Context()) {
		renderStatus(w, r, status, "frag_order", vm)
		return
	}
	renderPage(w, r, status, vm)
}

package handlers

import (
	"finitefield.org/storefront/internal/cart"
	"finitefield.org/storefront/internal/order"
)

// OrderView drives the order button, confirmation prompt and modal.
type OrderView struct {
	Enabled        bool
	State          string
	Summary        string
	Form           order.Form
	Missing        map[string]bool
	PaymentMethods []string
	Links          order.Links
	Reference      string
}

// Confirming reports whether the confirmation prompt is showing.
func (o OrderView) Confirming() bool { return o.State == string(order.Confirming) }

// Open reports whether the modal form is showing.
func (o OrderView) Open() bool { return o.State == string(order.Open) }

// Sent reports whether an order link has been generated.
func (o OrderView) Sent() bool { return o.Links.Primary != "" }

// BuildOrderView prepares the modal for state. svc may be nil when the flow is disabled.
func BuildOrderView(svc *order.Service, state order.State, items []cart.Item, paymentMethods []string) OrderView {
	view := OrderView{
		Enabled:        svc != nil,
		State:          string(state),
		PaymentMethods: paymentMethods,
		Missing:        map[string]bool{},
	}
	if svc == nil {
		view.State = string(order.Closed)
		return view
	}
	if state == order.Confirming {
		view.Summary = svc.Summary(items)
	}
	if len(paymentMethods) > 0 {
		view.Form.Payment = paymentMethods[0]
	}
	return view
}

// WithFieldErrors marks missing fields and keeps what the customer typed.
func (o OrderView) WithFieldErrors(form order.Form, fe *order.FieldsError) OrderView {
	o.Form = form
	if fe != nil {
		for _, f := range fe.Fields {
			o.Missing[f] = true
		}
	}
	return o
}

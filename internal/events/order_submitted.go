package events

import (
	"time"

	"finitefield.org/storefront/internal/order"
)

const (
	OrderSubmittedEventName    = "OrderSubmitted"
	OrderSubmittedEventVersion = 1
	producerName               = "storefront-web"
)

// OrderSubmitted is the notification payload for a submitted order. Customer address is not
// included; the shop receives it through the WhatsApp message.
type OrderSubmitted struct {
	EventName    string               `json:"eventName"`
	EventVersion int                  `json:"eventVersion"`
	Producer     string               `json:"producer"`
	Reference    string               `json:"reference"`
	CustomerName string               `json:"customerName"`
	Payment      string               `json:"payment,omitempty"`
	Items        []OrderSubmittedItem `json:"items"`
	TotalMinor   int64                `json:"totalMinor"`
	Currency     string               `json:"currency"`
	OccurredAt   time.Time            `json:"occurredAt"`
}

// OrderSubmittedItem is one line of an OrderSubmitted event.
type OrderSubmittedItem struct {
	ProductID int     `json:"productId"`
	Name      string  `json:"name"`
	Unit      string  `json:"unit"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// BuildOrderSubmitted maps a submission to its event payload.
func BuildOrderSubmitted(sub order.Submission) OrderSubmitted {
	ev := OrderSubmitted{
		EventName:    OrderSubmittedEventName,
		EventVersion: OrderSubmittedEventVersion,
		Producer:     producerName,
		Reference:    sub.Reference,
		CustomerName: sub.Form.Name,
		Payment:      sub.Form.Payment,
		TotalMinor:   sub.Total,
		Currency:     sub.Currency,
		OccurredAt:   sub.CreatedAt,
	}
	for _, it := range sub.Items {
		ev.Items = append(ev.Items, OrderSubmittedItem{
			ProductID: it.ID,
			Name:      it.Name,
			Unit:      it.Unit,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	return ev
}

// Package order implements the checkout modal flow and the outbound WhatsApp order link.
package order

import (
	"errors"
	"strings"
)

// State is the modal state.
type State string

const (
	Closed     State = "closed"
	Confirming State = "confirming"
	Open       State = "open"
)

// Event is a user action against the modal.
type Event string

const (
	EventOpen    Event = "open"
	EventConfirm Event = "confirm"
	EventDismiss Event = "dismiss"
	EventSubmit  Event = "submit"
)

var (
	// ErrEmptyCart blocks opening the modal.
	ErrEmptyCart = errors.New("order: cart is empty")
	// ErrInvalidTransition is returned for events the current state does not accept.
	ErrInvalidTransition = errors.New("order: invalid transition")
	// ErrDisabled is returned when the order flow cannot run (no destination phone).
	ErrDisabled = errors.New("order: flow disabled")
)

// Input carries what guards need to decide a transition.
type Input struct {
	CartSize int
	Form     Form
}

type guard func(Input) error

type transition struct {
	to    State
	guard guard
}

// transitions is the dispatch table keyed by state then event.
var transitions = map[State]map[Event]transition{
	Closed: {
		EventOpen: {to: Confirming, guard: requireItems},
	},
	Confirming: {
		EventConfirm: {to: Open, guard: requireItems},
		EventDismiss: {to: Closed},
	},
	Open: {
		EventDismiss: {to: Closed},
		EventSubmit:  {to: Closed, guard: requireFields},
	},
}

func requireItems(in Input) error {
	if in.CartSize == 0 {
		return ErrEmptyCart
	}
	return nil
}

func requireFields(in Input) error {
	if in.CartSize == 0 {
		return ErrEmptyCart
	}
	return in.Form.Validate()
}

// Next applies ev to from. On a failed guard or an unknown pair it returns from and the error.
func Next(from State, ev Event, in Input) (State, error) {
	t, ok := transitions[from][ev]
	if !ok {
		return from, ErrInvalidTransition
	}
	if t.guard != nil {
		if err := t.guard(in); err != nil {
			return from, err
		}
	}
	return t.to, nil
}

// ParseState maps a posted state value, defaulting to Closed.
func ParseState(raw string) State {
	switch State(strings.ToLower(strings.TrimSpace(raw))) {
	case Confirming:
		return Confirming
	case Open:
		return Open
	default:
		return Closed
	}
}

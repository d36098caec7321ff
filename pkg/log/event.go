package log

import (
	"time"
)

// Event represents a DUA manager log event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"2,keyasint"`

	// Type-specific payload (exactly one is set).
	StateChange  *StateChangeEvent  `cbor:"3,keyasint,omitempty"`
	Registration *RegistrationEvent `cbor:"4,keyasint,omitempty"`
	Error        *ErrorEvent        `cbor:"5,keyasint,omitempty"`
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryState indicates a registration state transition.
	CategoryState Category = 0
	// CategoryRegistration indicates registration protocol traffic.
	CategoryRegistration Category = 1
	// CategoryError indicates an error event.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryState:
		return "STATE"
	case CategoryRegistration:
		return "REGISTRATION"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent captures a registration state transition.
type StateChangeEvent struct {
	// OldState and NewState are the state names.
	OldState string `cbor:"1,keyasint"`
	NewState string `cbor:"2,keyasint"`

	// Address is the affected DUA, when one exists.
	Address string `cbor:"3,keyasint,omitempty"`

	// Reason describes what triggered the transition.
	Reason string `cbor:"4,keyasint,omitempty"`
}

// RegistrationEvent captures one registration request or response.
type RegistrationEvent struct {
	// Address is the DUA being registered.
	Address string `cbor:"1,keyasint"`

	// Token is the request token.
	Token string `cbor:"2,keyasint,omitempty"`

	// ChildIndex is the child slot for proxy registrations, -1 for the
	// device's own registration.
	ChildIndex int `cbor:"3,keyasint"`

	// Status is the response status name; empty for outgoing requests.
	Status string `cbor:"4,keyasint,omitempty"`
}

// ErrorEvent captures an error at any layer.
type ErrorEvent struct {
	// Op names the failing operation.
	Op string `cbor:"1,keyasint"`

	// Message is the error text.
	Message string `cbor:"2,keyasint"`
}

// NewStateChangeEvent builds a state-transition event stamped with the
// current time.
func NewStateChangeEvent(oldState, newState, address, reason string) Event {
	return Event{
		Timestamp: time.Now(),
		Category:  CategoryState,
		StateChange: &StateChangeEvent{
			OldState: oldState,
			NewState: newState,
			Address:  address,
			Reason:   reason,
		},
	}
}

// NewRegistrationEvent builds a registration-traffic event stamped with
// the current time. Use childIndex -1 for the device's own registration.
func NewRegistrationEvent(address, token string, childIndex int, status string) Event {
	return Event{
		Timestamp: time.Now(),
		Category:  CategoryRegistration,
		Registration: &RegistrationEvent{
			Address:    address,
			Token:      token,
			ChildIndex: childIndex,
			Status:     status,
		},
	}
}

// NewErrorEvent builds an error event stamped with the current time.
func NewErrorEvent(op string, err error) Event {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return Event{
		Timestamp: time.Now(),
		Category:  CategoryError,
		Error: &ErrorEvent{
			Op:      op,
			Message: msg,
		},
	}
}

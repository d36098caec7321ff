package transport

import (
	"errors"
	"net"

	"github.com/thread-protocol/dua-go/pkg/wire"
)

// Transport errors.
var (
	// ErrTimeout indicates no response arrived within the request
	// timeout. The DUA manager treats this as a soft condition.
	ErrTimeout = errors.New("registration request timed out")

	// ErrClosed indicates the transport was closed with the request
	// outstanding.
	ErrClosed = errors.New("transport closed")

	// ErrNoServer indicates no Backbone Router endpoint is configured.
	ErrNoServer = errors.New("no backbone router endpoint configured")
)

// ResponseHandler receives the outcome of a registration request: either
// a response or a delivery error, never both.
type ResponseHandler func(resp *wire.RegistrationResponse, err error)

// Client issues registration requests toward the Primary Backbone Router.
// Implemented by Endpoint and Loopback.
type Client interface {
	// SendRegistration sends a request. The handler is invoked exactly
	// once, from a transport goroutine, with the response or an error.
	// A send error means the handler will not be invoked.
	SendRegistration(req *wire.RegistrationRequest, handler ResponseHandler) error
}

// NotificationReceiver accepts unsolicited address notifications.
// Implemented by Endpoint and Loopback.
type NotificationReceiver interface {
	// OnNotification sets the callback for inbound notifications.
	OnNotification(fn func(ntf *wire.AddressNotification))
}

// RegistrationHandler serves registration requests on the Backbone Router
// side. Returning nil suppresses the response (simulates loss).
type RegistrationHandler interface {
	HandleRegistration(req *wire.RegistrationRequest, from net.Addr) *wire.RegistrationResponse
}

// RegistrationHandlerFunc adapts a function to RegistrationHandler.
type RegistrationHandlerFunc func(req *wire.RegistrationRequest, from net.Addr) *wire.RegistrationResponse

// HandleRegistration invokes the function.
func (f RegistrationHandlerFunc) HandleRegistration(req *wire.RegistrationRequest, from net.Addr) *wire.RegistrationResponse {
	return f(req, from)
}

// Compile-time interface satisfaction checks.
var (
	_ Client               = (*Endpoint)(nil)
	_ Client               = (*Loopback)(nil)
	_ NotificationReceiver = (*Endpoint)(nil)
	_ NotificationReceiver = (*Loopback)(nil)
	_ RegistrationHandler  = RegistrationHandlerFunc(nil)
)

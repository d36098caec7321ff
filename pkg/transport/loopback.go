package transport

import (
	"net"
	"sync"

	"github.com/thread-protocol/dua-go/pkg/wire"
)

// loopbackAddr is the pseudo peer address reported to handlers.
type loopbackAddr struct{}

func (loopbackAddr) Network() string { return "loopback" }
func (loopbackAddr) String() string  { return "loopback" }

// Loopback is an in-process transport for tests. Requests are delivered
// synchronously to the configured handler and the response is handed back
// to the caller's ResponseHandler before SendRegistration returns.
type Loopback struct {
	mu      sync.Mutex
	handler RegistrationHandler
	sink    func(ntf *wire.AddressNotification)

	// DropRequests makes sends succeed without ever delivering a
	// response, simulating loss on the wire.
	DropRequests bool

	// SendError, when non-nil, is returned by the next SendRegistration
	// call without delivering anything.
	SendError error

	sent []*wire.RegistrationRequest
}

// NewLoopback creates a loopback transport serving requests with handler.
// A nil handler behaves like a lost request.
func NewLoopback(handler RegistrationHandler) *Loopback {
	return &Loopback{handler: handler}
}

// SetHandler replaces the serving handler.
func (l *Loopback) SetHandler(handler RegistrationHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handler = handler
}

// SendRegistration delivers the request to the handler and the response
// back to the caller, all synchronously.
func (l *Loopback) SendRegistration(req *wire.RegistrationRequest, handler ResponseHandler) error {
	l.mu.Lock()
	if l.SendError != nil {
		err := l.SendError
		l.SendError = nil
		l.mu.Unlock()
		return err
	}
	l.sent = append(l.sent, req)
	drop := l.DropRequests
	serve := l.handler
	l.mu.Unlock()

	if drop || serve == nil {
		return nil
	}

	resp := serve.HandleRegistration(req, loopbackAddr{})
	if resp == nil {
		return nil
	}
	handler(resp, nil)
	return nil
}

// OnNotification sets the callback for notifications injected via Notify.
func (l *Loopback) OnNotification(fn func(ntf *wire.AddressNotification)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sink = fn
}

// Notify injects an unsolicited address notification, as the Backbone
// Router would push one.
func (l *Loopback) Notify(ntf *wire.AddressNotification) {
	l.mu.Lock()
	sink := l.sink
	l.mu.Unlock()

	if sink != nil {
		sink(ntf)
	}
}

// Sent returns the requests sent so far.
func (l *Loopback) Sent() []*wire.RegistrationRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*wire.RegistrationRequest(nil), l.sent...)
}

// LastSent returns the most recent request, or nil.
func (l *Loopback) LastSent() *wire.RegistrationRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.sent) == 0 {
		return nil
	}
	return l.sent[len(l.sent)-1]
}

var _ net.Addr = loopbackAddr{}

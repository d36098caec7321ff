package transport

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/thread-protocol/dua-go/pkg/wire"
)

// DefaultRequestTimeout bounds how long the endpoint waits for a response
// before reporting ErrTimeout. The DUA manager's periodic check provides
// the real retry cadence; this only releases the pending slot.
const DefaultRequestTimeout = 8 * time.Second

// maxDatagramSize is the receive buffer size. Registration messages are
// far below a single MTU.
const maxDatagramSize = 1280

// EndpointConfig configures a device-side UDP endpoint.
type EndpointConfig struct {
	// LocalAddress is the local UDP address to bind ("" means any).
	LocalAddress string

	// ServerAddress is the Backbone Router's endpoint ("host:port").
	// May be empty at creation and set later via SetServerAddress.
	ServerAddress string

	// RequestTimeout overrides DefaultRequestTimeout when non-zero.
	RequestTimeout time.Duration
}

// Endpoint sends registration requests and receives responses and
// unsolicited notifications over UDP, one CBOR message per datagram.
type Endpoint struct {
	conn    *net.UDPConn
	timeout time.Duration

	mu      sync.Mutex
	server  *net.UDPAddr
	pending map[string]*pendingRequest
	sink    func(ntf *wire.AddressNotification)
	closed  bool

	wg sync.WaitGroup
}

type pendingRequest struct {
	handler ResponseHandler
	timer   *time.Timer
}

// NewEndpoint creates an endpoint and starts its receive loop.
func NewEndpoint(config EndpointConfig) (*Endpoint, error) {
	local := config.LocalAddress
	if local == "" {
		local = ":0"
	}
	laddr, err := net.ResolveUDPAddr("udp", local)
	if err != nil {
		return nil, fmt.Errorf("invalid local address: %w", err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("listen failed: %w", err)
	}

	e := &Endpoint{
		conn:    conn,
		timeout: config.RequestTimeout,
		pending: make(map[string]*pendingRequest),
	}
	if e.timeout == 0 {
		e.timeout = DefaultRequestTimeout
	}

	if config.ServerAddress != "" {
		if err := e.SetServerAddress(config.ServerAddress); err != nil {
			conn.Close()
			return nil, err
		}
	}

	e.wg.Add(1)
	go e.readLoop()

	return e, nil
}

// SetServerAddress points the endpoint at a (new) Backbone Router.
func (e *Endpoint) SetServerAddress(address string) error {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return fmt.Errorf("invalid server address: %w", err)
	}
	e.mu.Lock()
	e.server = addr
	e.mu.Unlock()
	return nil
}

// LocalAddr returns the bound local address.
func (e *Endpoint) LocalAddr() net.Addr {
	return e.conn.LocalAddr()
}

// OnNotification sets the callback for inbound address notifications.
func (e *Endpoint) OnNotification(fn func(ntf *wire.AddressNotification)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sink = fn
}

// SendRegistration encodes and sends the request, remembering the token
// so the matching response can be routed back to the handler. If no
// response arrives within the request timeout the handler receives
// ErrTimeout.
func (e *Endpoint) SendRegistration(req *wire.RegistrationRequest, handler ResponseHandler) error {
	data, err := wire.EncodeRequest(req)
	if err != nil {
		return err
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	server := e.server
	if server == nil {
		e.mu.Unlock()
		return ErrNoServer
	}

	token := req.Token
	p := &pendingRequest{handler: handler}
	p.timer = time.AfterFunc(e.timeout, func() {
		e.expire(token)
	})
	e.pending[token] = p
	e.mu.Unlock()

	if _, err := e.conn.WriteToUDP(data, server); err != nil {
		e.mu.Lock()
		if p, ok := e.pending[token]; ok {
			p.timer.Stop()
			delete(e.pending, token)
		}
		e.mu.Unlock()
		return fmt.Errorf("send failed: %w", err)
	}
	return nil
}

// expire times out a pending request.
func (e *Endpoint) expire(token string) {
	e.mu.Lock()
	p, ok := e.pending[token]
	if ok {
		delete(e.pending, token)
	}
	e.mu.Unlock()

	if ok {
		p.handler(nil, ErrTimeout)
	}
}

// Close shuts down the endpoint. Pending handlers receive ErrClosed.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	pending := e.pending
	e.pending = make(map[string]*pendingRequest)
	e.mu.Unlock()

	err := e.conn.Close()
	e.wg.Wait()

	for _, p := range pending {
		p.timer.Stop()
		p.handler(nil, ErrClosed)
	}
	return err
}

// readLoop dispatches inbound datagrams until the socket closes.
func (e *Endpoint) readLoop() {
	defer e.wg.Done()

	buf := make([]byte, maxDatagramSize)
	for {
		n, _, err := e.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}

		_, resp, ntf, err := wire.Decode(buf[:n])
		if err != nil {
			continue // not ours, or malformed
		}

		switch {
		case resp != nil:
			e.mu.Lock()
			p, ok := e.pending[resp.Token]
			if ok {
				p.timer.Stop()
				delete(e.pending, resp.Token)
			}
			e.mu.Unlock()

			if ok {
				p.handler(resp, nil)
			}

		case ntf != nil:
			e.mu.Lock()
			sink := e.sink
			e.mu.Unlock()

			if sink != nil {
				sink(ntf)
			}
		}
	}
}

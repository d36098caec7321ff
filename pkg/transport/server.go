package transport

import (
	"fmt"
	"net"
	"sync"

	"github.com/thread-protocol/dua-go/pkg/wire"
)

// ServerConfig configures the Backbone Router side of the transport.
type ServerConfig struct {
	// ListenAddress is the UDP address to serve on ("host:port").
	ListenAddress string
}

// Server receives registration requests over UDP and answers them through
// a RegistrationHandler. It can also push unsolicited notifications to
// devices.
type Server struct {
	config  ServerConfig
	handler RegistrationHandler

	mu     sync.Mutex
	conn   *net.UDPConn
	closed bool

	wg sync.WaitGroup
}

// NewServer creates a server dispatching to handler.
func NewServer(config ServerConfig, handler RegistrationHandler) *Server {
	return &Server{config: config, handler: handler}
}

// Start binds the socket and begins serving.
func (s *Server) Start() error {
	addr, err := net.ResolveUDPAddr("udp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("listen failed: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	s.conn = conn
	s.mu.Unlock()

	s.wg.Add(1)
	go s.serve(conn)
	return nil
}

// Stop closes the socket and waits for the serve loop to exit.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conn := s.conn
	s.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
	}
	s.wg.Wait()
	return err
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// SendNotification pushes an unsolicited address notification to a device.
func (s *Server) SendNotification(to *net.UDPAddr, ntf *wire.AddressNotification) error {
	data, err := wire.EncodeNotification(ntf)
	if err != nil {
		return err
	}

	s.mu.Lock()
	conn := s.conn
	closed := s.closed
	s.mu.Unlock()

	if closed || conn == nil {
		return ErrClosed
	}
	if _, err := conn.WriteToUDP(data, to); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	return nil
}

// serve reads datagrams until the socket closes.
func (s *Server) serve(conn *net.UDPConn) {
	defer s.wg.Done()

	buf := make([]byte, maxDatagramSize)
	for {
		n, raddr, err := conn.ReadFromUDP(buf)
		if err != nil {
			return
		}

		req, _, _, err := wire.Decode(buf[:n])
		if err != nil || req == nil {
			continue
		}

		resp := s.handler.HandleRegistration(req, raddr)
		if resp == nil {
			continue
		}
		data, err := wire.EncodeResponse(resp)
		if err != nil {
			continue
		}
		_, _ = conn.WriteToUDP(data, raddr)
	}
}

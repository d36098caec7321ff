package service

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/thread-protocol/dua-go/pkg/discovery"
	"github.com/thread-protocol/dua-go/pkg/ip6"
	"github.com/thread-protocol/dua-go/pkg/log"
	"github.com/thread-protocol/dua-go/pkg/transport"
	"github.com/thread-protocol/dua-go/pkg/wire"
)

// BackboneConfig configures a BackboneService.
type BackboneConfig struct {
	// ListenAddress is the UDP registration endpoint ("host:port").
	ListenAddress string

	// NetworkName is the Thread network this router serves.
	NetworkName string

	// SequenceNumber is the initial service sequence number.
	SequenceNumber uint8

	// ReregistrationDelay is the refresh interval (seconds) announced to
	// devices.
	ReregistrationDelay uint16

	// MlrTimeout is the multicast listener timeout (seconds) announced
	// to devices.
	MlrTimeout uint32

	// RegistrationLifetime bounds how long an unrefreshed registration
	// stays valid. Zero uses DefaultRegistrationLifetime.
	RegistrationLifetime time.Duration

	// Advertise enables the mDNS announcement.
	Advertise bool

	// AdvertiseInterface restricts the announcement to one interface.
	AdvertiseInterface string

	// Logger receives service events. Nil disables logging.
	Logger log.Logger
}

// Validate checks the configuration.
func (c BackboneConfig) Validate() error {
	if c.ListenAddress == "" {
		return fmt.Errorf("listen address required")
	}
	if c.NetworkName == "" {
		return fmt.Errorf("network name required")
	}
	return nil
}

// BackboneService runs the Backbone Router side of DUA registration: a
// UDP server answering registration requests against a duplicate
// registry, plus an optional mDNS announcement of the service.
type BackboneService struct {
	config   BackboneConfig
	logger   log.Logger
	registry *Registry

	mu         sync.Mutex
	server     *transport.Server
	advertiser *discovery.Advertiser
	sequence   uint8
	forced     []wire.DuaStatus
	started    bool
}

// NewBackboneService creates a BackboneService.
func NewBackboneService(config BackboneConfig) (*BackboneService, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	logger := config.Logger
	if logger == nil {
		logger = log.NoopLogger{}
	}
	return &BackboneService{
		config:   config,
		logger:   logger,
		registry: NewRegistry(config.RegistrationLifetime),
		sequence: config.SequenceNumber,
	}, nil
}

// Start binds the registration server and, when configured, begins
// advertising.
func (s *BackboneService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	server := transport.NewServer(transport.ServerConfig{ListenAddress: s.config.ListenAddress}, s)
	if err := server.Start(); err != nil {
		return err
	}
	s.server = server
	s.started = true

	if s.config.Advertise {
		s.advertiser = discovery.NewAdvertiser(discovery.AdvertiserConfig{
			Interface: s.config.AdvertiseInterface,
		})
		if err := s.advertiser.Advertise(s.serviceInfoLocked()); err != nil {
			s.logger.Log(log.NewErrorEvent("advertise", err))
		}
	}
	return nil
}

// Stop withdraws the announcement and closes the server.
func (s *BackboneService) Stop() error {
	s.mu.Lock()
	advertiser := s.advertiser
	server := s.server
	s.advertiser = nil
	s.server = nil
	s.started = false
	s.mu.Unlock()

	if advertiser != nil {
		advertiser.Stop()
	}
	if server != nil {
		return server.Stop()
	}
	return nil
}

// Addr returns the bound registration endpoint, or nil before Start.
func (s *BackboneService) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return nil
	}
	return s.server.Addr()
}

// Registry exposes the duplicate registry, e.g. for inspection tooling.
func (s *BackboneService) Registry() *Registry {
	return s.registry
}

// SequenceNumber returns the current service sequence number.
func (s *BackboneService) SequenceNumber() uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sequence
}

// BumpSequence increments the sequence number, invalidating every
// registration held by devices, and refreshes the announcement.
func (s *BackboneService) BumpSequence() uint8 {
	s.mu.Lock()
	s.sequence++
	seq := s.sequence
	advertiser := s.advertiser
	info := s.serviceInfoLocked()
	s.mu.Unlock()

	if advertiser != nil {
		if err := advertiser.Update(info); err != nil {
			s.logger.Log(log.NewErrorEvent("advertise-update", err))
		}
	}
	return seq
}

// ForceNextStatus queues a status to be returned for the next
// registration request regardless of registry state. Used to exercise
// device-side error handling.
func (s *BackboneService) ForceNextStatus(status wire.DuaStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forced = append(s.forced, status)
}

// NotifyDuplicate evicts the target's registration and pushes an address
// notification to its holder, simulating a collision detected elsewhere
// on the backbone.
func (s *BackboneService) NotifyDuplicate(target ip6.Address) error {
	_, peer, ok := s.registry.Holder(target, time.Now())
	if !ok {
		return fmt.Errorf("no registration for %s", target)
	}
	s.registry.Remove(target)

	s.mu.Lock()
	server := s.server
	s.mu.Unlock()
	if server == nil {
		return transport.ErrClosed
	}
	return server.SendNotification(peer, &wire.AddressNotification{Target: target})
}

// ServiceInfo returns the data announced over mDNS.
func (s *BackboneService) ServiceInfo() *discovery.BackboneRouterInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serviceInfoLocked()
}

func (s *BackboneService) serviceInfoLocked() *discovery.BackboneRouterInfo {
	info := &discovery.BackboneRouterInfo{
		NetworkName:         s.config.NetworkName,
		SequenceNumber:      s.sequence,
		ReregistrationDelay: s.config.ReregistrationDelay,
		MlrTimeout:          s.config.MlrTimeout,
	}
	if s.server != nil {
		if addr, ok := s.server.Addr().(*net.UDPAddr); ok {
			info.Port = uint16(addr.Port)
		}
	}
	return info
}

// HandleRegistration answers one registration request.
func (s *BackboneService) HandleRegistration(req *wire.RegistrationRequest, from net.Addr) *wire.RegistrationResponse {
	resp := &wire.RegistrationResponse{Token: req.Token, Target: req.Target}

	if err := req.Validate(); err != nil {
		resp.Status = wire.StatusInvalidRequest
		return resp
	}

	s.mu.Lock()
	if len(s.forced) > 0 {
		resp.Status = s.forced[0]
		s.forced = s.forced[1:]
		s.mu.Unlock()
		s.logger.Log(log.NewRegistrationEvent(req.Target.String(), req.Token, -1, resp.Status.String()))
		return resp
	}
	s.mu.Unlock()

	peer, _ := from.(*net.UDPAddr)
	resp.Status = s.registry.Register(req.Target, req.MeshLocalIID, peer, time.Now())
	s.logger.Log(log.NewRegistrationEvent(req.Target.String(), req.Token, -1, resp.Status.String()))
	return resp
}

// Compile-time handler check.
var _ transport.RegistrationHandler = (*BackboneService)(nil)

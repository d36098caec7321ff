package service

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/thread-protocol/dua-go/pkg/backbone"
	"github.com/thread-protocol/dua-go/pkg/discovery"
	"github.com/thread-protocol/dua-go/pkg/dua"
	"github.com/thread-protocol/dua-go/pkg/ip6"
	"github.com/thread-protocol/dua-go/pkg/log"
	"github.com/thread-protocol/dua-go/pkg/meshtable"
	"github.com/thread-protocol/dua-go/pkg/netif"
	"github.com/thread-protocol/dua-go/pkg/persistence"
	"github.com/thread-protocol/dua-go/pkg/transport"
)

// DeviceConfig configures a DeviceService.
type DeviceConfig struct {
	// ExtendedAddress is the device EUI-64 as 16 hex digits.
	ExtendedAddress string

	// NetworkName is the Thread network name.
	NetworkName string

	// MeshLocalIID is the device's mesh-local Interface Identifier as
	// 16 hex digits.
	MeshLocalIID string

	// SettingsPath is the JSON settings file. Empty keeps settings in
	// memory only.
	SettingsPath string

	// ListenAddress is the local UDP address ("" binds any).
	ListenAddress string

	// ServerAddress is a static Backbone Router endpoint ("host:port").
	// Empty means discover one via mDNS.
	ServerAddress string

	// DiscoveryInterface restricts mDNS browsing to one interface.
	DiscoveryInterface string

	// RequestTimeout bounds each registration request.
	RequestTimeout time.Duration

	// UpdatePeriod overrides the manager's scheduler tick.
	UpdatePeriod time.Duration

	// MaxChildren enables proxy registration for a child table of this
	// capacity. Zero disables proxying.
	MaxChildren int

	// Logger receives manager and service events. Nil disables logging.
	Logger log.Logger
}

// Validate checks the configuration.
func (c DeviceConfig) Validate() error {
	if _, err := ip6.ParseInterfaceIdentifier(c.ExtendedAddress); err != nil {
		return fmt.Errorf("invalid extended address: %w", err)
	}
	if _, err := ip6.ParseInterfaceIdentifier(c.MeshLocalIID); err != nil {
		return fmt.Errorf("invalid mesh-local IID: %w", err)
	}
	if c.NetworkName == "" {
		return fmt.Errorf("network name required")
	}
	return nil
}

// DeviceService runs the device side of DUA management: a Manager wired
// to persistent settings, the interface address table and a UDP
// endpoint, with the Backbone Router either statically configured or
// discovered over mDNS.
type DeviceService struct {
	config DeviceConfig
	logger log.Logger

	store     persistence.SettingsStore
	addresses *netif.Table
	notifier  *backbone.Notifier

	mu           sync.Mutex
	endpoint     *transport.Endpoint
	manager      *dua.Manager
	children     *meshtable.Table
	proxy        *dua.ProxyRegistrar
	browseCancel context.CancelFunc
	started      bool
}

// NewDeviceService creates a DeviceService.
func NewDeviceService(config DeviceConfig) (*DeviceService, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = log.NoopLogger{}
	}

	var store persistence.SettingsStore
	if config.SettingsPath != "" {
		store = persistence.NewFileStore(config.SettingsPath)
	} else {
		store = persistence.NewMemStore()
	}

	return &DeviceService{
		config:    config,
		logger:    logger,
		store:     store,
		addresses: netif.NewTable(),
		notifier:  backbone.NewNotifier(),
	}, nil
}

// Start opens the transport, restores settings, registers the manager
// with the topology notifier and, without a static server address,
// begins browsing for a Backbone Router. ctx bounds the browse.
func (s *DeviceService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	endpoint, err := transport.NewEndpoint(transport.EndpointConfig{
		LocalAddress:   s.config.ListenAddress,
		ServerAddress:  s.config.ServerAddress,
		RequestTimeout: s.config.RequestTimeout,
	})
	if err != nil {
		return err
	}

	extAddr, _ := ip6.ParseInterfaceIdentifier(s.config.ExtendedAddress)
	meshIID, _ := ip6.ParseInterfaceIdentifier(s.config.MeshLocalIID)

	manager, err := dua.NewManager(dua.Config{
		ExtendedAddress: extAddr,
		NetworkName:     s.config.NetworkName,
		MeshLocalIID:    meshIID,
		Store:           s.store,
		Addresses:       s.addresses,
		Client:          endpoint,
		Logger:          s.logger,
		UpdatePeriod:    s.config.UpdatePeriod,
	})
	if err != nil {
		endpoint.Close()
		return err
	}

	if s.config.MaxChildren > 0 {
		s.children = meshtable.NewTable(s.config.MaxChildren)
		s.proxy = manager.EnableProxy(s.children)
	}

	if err := manager.Restore(); err != nil {
		// Already logged; the manager derives fresh state.
		_ = err
	}

	endpoint.OnNotification(manager.HandleDuaNotification)
	s.notifier.RegisterPrefixObserver(manager)
	s.notifier.RegisterPrimaryObserver(manager)

	s.endpoint = endpoint
	s.manager = manager
	s.started = true

	if s.config.ServerAddress == "" {
		browseCtx, cancel := context.WithCancel(ctx)
		s.browseCancel = cancel
		go s.discoverPrimary(browseCtx)
	}
	return nil
}

// Stop shuts the service down.
func (s *DeviceService) Stop() error {
	s.mu.Lock()
	cancel := s.browseCancel
	manager := s.manager
	endpoint := s.endpoint
	s.browseCancel = nil
	s.manager = nil
	s.endpoint = nil
	s.started = false
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if manager != nil {
		manager.Close()
	}
	if endpoint != nil {
		return endpoint.Close()
	}
	return nil
}

// Manager returns the DUA manager, or nil before Start.
func (s *DeviceService) Manager() *dua.Manager {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager
}

// Notifier returns the topology notifier feeding the manager.
func (s *DeviceService) Notifier() *backbone.Notifier {
	return s.notifier
}

// Addresses returns the interface address table.
func (s *DeviceService) Addresses() *netif.Table {
	return s.addresses
}

// Children returns the child table, or nil when proxying is disabled.
func (s *DeviceService) Children() *meshtable.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.children
}

// Proxy returns the proxy registrar, or nil when proxying is disabled.
func (s *DeviceService) Proxy() *dua.ProxyRegistrar {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proxy
}

// discoverPrimary browses for a Backbone Router serving the configured
// network and feeds the result into the notifier.
func (s *DeviceService) discoverPrimary(ctx context.Context) {
	browser := discovery.NewBrowser(discovery.BrowserConfig{Interface: s.config.DiscoveryInterface})
	svc, err := browser.FindByNetworkName(ctx, s.config.NetworkName)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Log(log.NewErrorEvent("discover", err))
		}
		return
	}
	if len(svc.Addresses) == 0 {
		s.logger.Log(log.NewErrorEvent("discover", fmt.Errorf("%s: no addresses", svc.InstanceName)))
		return
	}

	addr := net.JoinHostPort(svc.Addresses[0], strconv.Itoa(int(svc.Port)))

	s.mu.Lock()
	endpoint := s.endpoint
	s.mu.Unlock()
	if endpoint == nil {
		return
	}
	if err := endpoint.SetServerAddress(addr); err != nil {
		s.logger.Log(log.NewErrorEvent("discover", err))
		return
	}

	s.notifier.NotifyPrimary(backbone.StateAdded, backbone.Config{
		SequenceNumber:      svc.SequenceNumber,
		ReregistrationDelay: svc.ReregistrationDelay,
		MlrTimeout:          svc.MlrTimeout,
	})
}

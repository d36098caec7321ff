package discovery

import (
	"errors"
	"time"
)

// ServiceType is the DNS-SD service type Backbone Routers announce.
const ServiceType = "_meshbbr._udp"

// Domain is the DNS-SD domain.
const Domain = "local."

// MaxInstanceNameLen caps DNS-SD instance names.
const MaxInstanceNameLen = 63

// Discovery errors.
var (
	// ErrNotFound indicates no matching service was discovered.
	ErrNotFound = errors.New("service not found")

	// ErrInvalidTXT indicates malformed TXT records.
	ErrInvalidTXT = errors.New("invalid TXT records")
)

// BackboneRouterInfo is the data a Backbone Router advertises.
type BackboneRouterInfo struct {
	// InstanceName is the DNS-SD instance name.
	InstanceName string

	// Port is the UDP registration port.
	Port uint16

	// NetworkName is the Thread network the router serves.
	NetworkName string

	// SequenceNumber is the Backbone Router service sequence number.
	SequenceNumber uint8

	// ReregistrationDelay is the mandated refresh interval in seconds.
	ReregistrationDelay uint16

	// MlrTimeout is the multicast listener timeout in seconds.
	MlrTimeout uint32
}

// BackboneRouterService is a discovered Backbone Router.
type BackboneRouterService struct {
	BackboneRouterInfo

	// Host is the announced hostname.
	Host string

	// Addresses are the resolved host addresses in textual form.
	Addresses []string
}

// AdvertiserConfig configures an Advertiser.
type AdvertiserConfig struct {
	// Interface restricts advertising to one interface by name. Empty
	// means all interfaces.
	Interface string

	// TTL overrides the record TTL when non-zero.
	TTL time.Duration
}

// BrowserConfig configures a Browser.
type BrowserConfig struct {
	// Interface restricts browsing to one interface by name. Empty
	// means all interfaces.
	Interface string
}

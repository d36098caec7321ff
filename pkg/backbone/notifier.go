package backbone

import (
	"sync"

	"github.com/thread-protocol/dua-go/pkg/ip6"
)

// Notifier fans topology changes out to registered observers. It tracks the
// last announced Domain Prefix and Primary Backbone Router so late-joining
// observers can be brought up to date.
type Notifier struct {
	mu sync.Mutex

	prefixObservers  []PrefixObserver
	primaryObservers []PrimaryObserver

	prefix    ip6.Prefix
	hasPrefix bool

	primary    Config
	hasPrimary bool
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// RegisterPrefixObserver adds an observer for Domain Prefix changes.
// If a prefix is already known, the observer immediately receives a
// PrefixAdded notification.
func (n *Notifier) RegisterPrefixObserver(obs PrefixObserver) {
	n.mu.Lock()
	n.prefixObservers = append(n.prefixObservers, obs)
	known, prefix := n.hasPrefix, n.prefix
	n.mu.Unlock()

	if known {
		obs.HandleDomainPrefixUpdate(PrefixAdded, prefix)
	}
}

// RegisterPrimaryObserver adds an observer for Primary Backbone Router
// changes. If a Primary is already known, the observer immediately
// receives a StateAdded notification.
func (n *Notifier) RegisterPrimaryObserver(obs PrimaryObserver) {
	n.mu.Lock()
	n.primaryObservers = append(n.primaryObservers, obs)
	known, config := n.hasPrimary, n.primary
	n.mu.Unlock()

	if known {
		obs.HandleBackboneRouterPrimaryUpdate(StateAdded, config)
	}
}

// NotifyDomainPrefix records and distributes a Domain Prefix change.
func (n *Notifier) NotifyDomainPrefix(state DomainPrefixState, prefix ip6.Prefix) {
	n.mu.Lock()
	switch state {
	case PrefixRemoved:
		n.hasPrefix = false
		n.prefix = ip6.Prefix{}
	default:
		n.hasPrefix = true
		n.prefix = prefix
	}
	observers := append([]PrefixObserver(nil), n.prefixObservers...)
	n.mu.Unlock()

	for _, obs := range observers {
		obs.HandleDomainPrefixUpdate(state, prefix)
	}
}

// NotifyPrimary records and distributes a Primary Backbone Router change.
func (n *Notifier) NotifyPrimary(state State, config Config) {
	n.mu.Lock()
	switch state {
	case StateNone, StateRemoved:
		n.hasPrimary = false
		n.primary = Config{}
	default:
		n.hasPrimary = true
		n.primary = config
	}
	observers := append([]PrimaryObserver(nil), n.primaryObservers...)
	n.mu.Unlock()

	for _, obs := range observers {
		obs.HandleBackboneRouterPrimaryUpdate(state, config)
	}
}

// DomainPrefix returns the last announced Domain Prefix, if any.
func (n *Notifier) DomainPrefix() (ip6.Prefix, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.prefix, n.hasPrefix
}

// Primary returns the last announced Primary Backbone Router config, if any.
func (n *Notifier) Primary() (Config, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.primary, n.hasPrimary
}

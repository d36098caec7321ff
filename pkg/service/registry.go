package service

import (
	"net"
	"sync"
	"time"

	"github.com/thread-protocol/dua-go/pkg/ip6"
	"github.com/thread-protocol/dua-go/pkg/wire"
)

// DefaultRegistrationLifetime is how long a registration stays valid
// without a refresh.
const DefaultRegistrationLifetime = 2 * time.Hour

// registration is one Backbone Router registry entry.
type registration struct {
	meshLocalIID ip6.InterfaceIdentifier
	peer         *net.UDPAddr
	updatedAt    time.Time
}

// Registry is the Backbone Router's view of registered Domain Unicast
// Addresses. An address belongs to the mesh-local identity that first
// registered it; a registration under a different identity is a
// duplicate until the original entry expires.
type Registry struct {
	mu       sync.Mutex
	entries  map[ip6.Address]*registration
	lifetime time.Duration
}

// NewRegistry creates a registry. A non-positive lifetime falls back to
// DefaultRegistrationLifetime.
func NewRegistry(lifetime time.Duration) *Registry {
	if lifetime <= 0 {
		lifetime = DefaultRegistrationLifetime
	}
	return &Registry{
		entries:  make(map[ip6.Address]*registration),
		lifetime: lifetime,
	}
}

// Register records or refreshes a registration and reports the outcome.
func (r *Registry) Register(target ip6.Address, meshLocalIID ip6.InterfaceIdentifier, peer *net.UDPAddr, now time.Time) wire.DuaStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[target]
	if ok && now.Sub(entry.updatedAt) >= r.lifetime {
		delete(r.entries, target)
		ok = false
	}
	if ok && entry.meshLocalIID != meshLocalIID {
		return wire.StatusDuplicate
	}

	r.entries[target] = &registration{
		meshLocalIID: meshLocalIID,
		peer:         peer,
		updatedAt:    now,
	}
	return wire.StatusSuccess
}

// Holder returns the registered identity and transport address for a
// target, if a live entry exists.
func (r *Registry) Holder(target ip6.Address, now time.Time) (ip6.InterfaceIdentifier, *net.UDPAddr, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[target]
	if !ok {
		return ip6.InterfaceIdentifier{}, nil, false
	}
	if now.Sub(entry.updatedAt) >= r.lifetime {
		delete(r.entries, target)
		return ip6.InterfaceIdentifier{}, nil, false
	}
	return entry.meshLocalIID, entry.peer, true
}

// Remove forgets a registration.
func (r *Registry) Remove(target ip6.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, target)
}

// Len returns the number of entries, including expired ones not yet
// swept.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// RegistryEntry is a snapshot of one registration, for inspection.
type RegistryEntry struct {
	Target       ip6.Address
	MeshLocalIID ip6.InterfaceIdentifier
	UpdatedAt    time.Time
}

// Entries returns a snapshot of all live registrations.
func (r *Registry) Entries(now time.Time) []RegistryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]RegistryEntry, 0, len(r.entries))
	for target, entry := range r.entries {
		if now.Sub(entry.updatedAt) >= r.lifetime {
			continue
		}
		out = append(out, RegistryEntry{
			Target:       target,
			MeshLocalIID: entry.meshLocalIID,
			UpdatedAt:    entry.updatedAt,
		})
	}
	return out
}

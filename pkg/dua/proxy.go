package dua

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/thread-protocol/dua-go/pkg/ip6"
	"github.com/thread-protocol/dua-go/pkg/log"
	"github.com/thread-protocol/dua-go/pkg/meshtable"
	"github.com/thread-protocol/dua-go/pkg/wire"
)

// ProxyRegistrar registers Domain Unicast Addresses on behalf of
// children that cannot run the registration protocol themselves. It
// keeps two bitsets over the child table: which children currently need
// registration and which are confirmed. Children are served in ascending
// index order with at most one proxy request outstanding.
//
// A ProxyRegistrar shares its Manager's lock; it is composed in via
// Manager.EnableProxy and has no standalone life.
type ProxyRegistrar struct {
	manager *Manager
	table   *meshtable.Table

	needs      *meshtable.ChildMask
	registered *meshtable.ChildMask

	// registeringIndex is the child with a request in flight, -1 when
	// none.
	registeringIndex int
	registeringToken string

	// reregisterCurrent defers a status change that arrived while the
	// same child's request was in flight: the confirmation is discarded
	// and the child re-registered.
	reregisterCurrent bool

	onChildDuplicate func(childIndex int, addr ip6.Address)
}

// EnableProxy composes a ProxyRegistrar over table into the Manager.
// Idempotent; the second call returns the existing registrar.
func (m *Manager) EnableProxy(table *meshtable.Table) *ProxyRegistrar {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.proxy != nil {
		return m.proxy
	}
	m.proxy = &ProxyRegistrar{
		manager:          m,
		table:            table,
		needs:            meshtable.NewChildMask(table.Capacity()),
		registered:       meshtable.NewChildMask(table.Capacity()),
		registeringIndex: -1,
	}
	return m.proxy
}

// UpdateChildDomainUnicastAddress records a DUA change announced by a
// child and schedules the resulting proxy registration. Returns
// ErrInvalidArgument when no ProxyRegistrar is enabled or the announced
// address is unspecified.
func (m *Manager) UpdateChildDomainUnicastAddress(childIndex int, state meshtable.ChildDuaState, addr ip6.Address) error {
	m.mu.Lock()
	p := m.proxy
	if p == nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: proxy registration not enabled", ErrInvalidArgument)
	}

	err := p.updateChildLocked(childIndex, state, addr)
	if err == nil && p.hasWorkLocked() {
		if m.delay.check == 0 || m.delay.check > InitialCheckDelay {
			m.delay.check = InitialCheckDelay
		}
		m.ensureTickerLocked()
	}
	m.mu.Unlock()
	return err
}

// OnChildDuplicate sets the callback invoked when a child's address
// collides. The parent cannot regenerate a child's address; the child is
// expected to announce a new one. The callback must not call back into
// the Manager.
func (p *ProxyRegistrar) OnChildDuplicate(fn func(childIndex int, addr ip6.Address)) {
	p.manager.mu.Lock()
	defer p.manager.mu.Unlock()
	p.onChildDuplicate = fn
}

// IsChildRegistered reports whether the child's registration is
// confirmed.
func (p *ProxyRegistrar) IsChildRegistered(childIndex int) bool {
	p.manager.mu.Lock()
	defer p.manager.mu.Unlock()
	return p.registered.Has(childIndex)
}

// HasPendingRegistrations reports whether any child still awaits
// registration or confirmation.
func (p *ProxyRegistrar) HasPendingRegistrations() bool {
	p.manager.mu.Lock()
	defer p.manager.mu.Unlock()
	return p.registeringIndex >= 0 || p.hasWorkLocked()
}

func (p *ProxyRegistrar) updateChildLocked(childIndex int, state meshtable.ChildDuaState, addr ip6.Address) error {
	switch state {
	case meshtable.DuaUnchanged:
		child := p.table.Get(childIndex)
		if child == nil {
			return meshtable.ErrNoSuchChild
		}
		if child.HasDua {
			// Refresh the last-transaction time only.
			return p.table.SetDua(childIndex, child.DomainUnicastAddress)
		}
		return nil

	case meshtable.DuaAdded, meshtable.DuaChanged:
		if addr.IsUnspecified() {
			return fmt.Errorf("%w: unspecified child address", ErrInvalidArgument)
		}
		if err := p.table.SetDua(childIndex, addr); err != nil {
			return err
		}
		p.needs.Set(childIndex)
		p.registered.Clear(childIndex)
		if p.registeringIndex == childIndex {
			p.reregisterCurrent = true
		}
		return nil

	case meshtable.DuaRemoved:
		if err := p.table.ClearDua(childIndex); err != nil {
			return err
		}
		p.needs.Clear(childIndex)
		p.registered.Clear(childIndex)
		if p.registeringIndex == childIndex {
			p.reregisterCurrent = false
		}
		return nil

	default:
		return fmt.Errorf("%w: child dua state %d", ErrInvalidArgument, state)
	}
}

// nextRequestLocked picks the lowest-indexed unconfirmed child and builds
// its proxy request, marking it in flight. Returns nil when a request is
// already outstanding or no child needs registration.
func (p *ProxyRegistrar) nextRequestLocked() *wire.RegistrationRequest {
	if p.registeringIndex >= 0 {
		return nil
	}

	for i := p.needs.NextSet(0); i >= 0; i = p.needs.NextSet(i + 1) {
		if p.registered.Has(i) {
			continue
		}
		child := p.table.Get(i)
		if child == nil || !child.HasDua {
			// Stale need bit; the child detached or withdrew.
			p.needs.Clear(i)
			continue
		}

		last := uint32(time.Since(child.LastTransaction) / time.Second)
		token := uuid.NewString()
		p.registeringIndex = i
		p.registeringToken = token
		p.reregisterCurrent = false
		p.manager.logger.Log(log.NewRegistrationEvent(child.DomainUnicastAddress.String(), token, i, ""))
		return &wire.RegistrationRequest{
			Token:                  token,
			Target:                 child.DomainUnicastAddress,
			MeshLocalIID:           child.MeshLocalIID,
			LastTransactionSeconds: &last,
		}
	}
	return nil
}

// hasWorkLocked reports whether any needing child is still unconfirmed.
func (p *ProxyRegistrar) hasWorkLocked() bool {
	for i := p.needs.NextSet(0); i >= 0; i = p.needs.NextSet(i + 1) {
		if !p.registered.Has(i) {
			return true
		}
	}
	return false
}

// cancelOutstandingLocked drops the in-flight request; its late response
// will not match the cleared token.
func (p *ProxyRegistrar) cancelOutstandingLocked() {
	p.registeringIndex = -1
	p.registeringToken = ""
	p.reregisterCurrent = false
}

// sendFailedLocked releases the in-flight slot after a send error.
func (p *ProxyRegistrar) sendFailedLocked(token string) {
	if token == p.registeringToken {
		p.cancelOutstandingLocked()
	}
}

// invalidateRegistrationsLocked forgets every confirmation, forcing all
// needing children through registration again.
func (p *ProxyRegistrar) invalidateRegistrationsLocked() {
	p.registered.ClearAll()
}

// handleNotificationLocked processes a collision report against a
// proxied child's address.
func (p *ProxyRegistrar) handleNotificationLocked(target ip6.Address) {
	for i := p.needs.NextSet(0); i >= 0; i = p.needs.NextSet(i + 1) {
		child := p.table.Get(i)
		if child == nil || !child.HasDua || child.DomainUnicastAddress != target {
			continue
		}
		p.dropDuplicateChildLocked(i, target)
		return
	}
}

// dropDuplicateChildLocked withdraws a colliding child address and
// reports it. The child must announce a fresh address before the parent
// registers for it again.
func (p *ProxyRegistrar) dropDuplicateChildLocked(childIndex int, addr ip6.Address) {
	p.needs.Clear(childIndex)
	p.registered.Clear(childIndex)
	_ = p.table.ClearDua(childIndex)
	if p.registeringIndex == childIndex {
		p.reregisterCurrent = false
	}
	p.manager.logger.Log(log.NewErrorEvent("proxy-duplicate",
		fmt.Errorf("%w: child %d %s", ErrDuplicateAddress, childIndex, addr)))
	if cb := p.onChildDuplicate; cb != nil {
		cb(childIndex, addr)
	}
}

// handleProxyResponse processes the outcome of a proxy registration
// request. Responses whose token no longer matches are discarded.
func (m *Manager) handleProxyResponse(token string, resp *wire.RegistrationResponse, err error) {
	m.mu.Lock()
	p := m.proxy
	if p == nil || token != p.registeringToken {
		m.mu.Unlock()
		return
	}
	idx := p.registeringIndex
	reregister := p.reregisterCurrent
	p.cancelOutstandingLocked()

	more := false
	if err != nil {
		m.logger.Log(log.NewErrorEvent("proxy-registration", err))
		// The periodic check retries.
	} else {
		m.logger.Log(log.NewRegistrationEvent(resp.Target.String(), token, idx, resp.Status.String()))
		switch resp.Status {
		case wire.StatusSuccess:
			// A child whose need was withdrawn or changed mid-flight is
			// not marked; the change wins.
			if p.needs.Has(idx) && !reregister {
				p.registered.Set(idx)
			}
			more = true

		case wire.StatusDuplicate:
			p.dropDuplicateChildLocked(idx, resp.Target)
			more = true

		default:
			// NOT_PRIMARY, NOT_READY: back off to the periodic check.
		}
	}
	m.mu.Unlock()

	if more {
		m.PerformNextRegistration()
	}
}

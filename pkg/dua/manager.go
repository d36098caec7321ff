package dua

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thread-protocol/dua-go/pkg/backbone"
	"github.com/thread-protocol/dua-go/pkg/ip6"
	"github.com/thread-protocol/dua-go/pkg/log"
	"github.com/thread-protocol/dua-go/pkg/netif"
	"github.com/thread-protocol/dua-go/pkg/persistence"
	"github.com/thread-protocol/dua-go/pkg/transport"
	"github.com/thread-protocol/dua-go/pkg/wire"
)

// Manager errors.
var (
	// ErrInvalidArgument indicates a caller-supplied value is unusable,
	// e.g. a reserved Interface Identifier.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDuplicateAddress indicates an unrecoverable address collision
	// on an operator-fixed Interface Identifier.
	ErrDuplicateAddress = errors.New("duplicate domain unicast address")
)

// Config wires a Manager to its collaborators.
type Config struct {
	// ExtendedAddress is the device's EUI-64, the derivation secret for
	// the Interface Identifier.
	ExtendedAddress [8]byte

	// NetworkName salts the Interface Identifier derivation.
	NetworkName string

	// MeshLocalIID identifies the device in registration requests.
	MeshLocalIID ip6.InterfaceIdentifier

	// Store persists the chosen Interface Identifier and DAD counter.
	Store persistence.SettingsStore

	// Addresses is the network interface address table the DUA is
	// published to.
	Addresses netif.AddressTable

	// Client carries registration requests to the Primary Backbone
	// Router.
	Client transport.Client

	// Logger receives manager events. Nil disables logging.
	Logger log.Logger

	// UpdatePeriod overrides the scheduler tick period when non-zero.
	// Tests use a long period and drive ticks directly.
	UpdatePeriod time.Duration

	// CheckInterval overrides DefaultCheckInterval (seconds) when
	// non-zero.
	CheckInterval uint8
}

// Manager runs the Domain Unicast Address lifecycle: generation from the
// Domain Prefix, registration with the Primary Backbone Router, duplicate
// recovery and persistence. It observes Domain Prefix and Backbone Router
// changes through the backbone package's observer interfaces.
//
// Registration callbacks set via OnUnrecoverableDuplicate and
// OnStorageError run with internal state settled but must not call back
// into the Manager.
type Manager struct {
	cfg           Config
	logger        log.Logger
	updatePeriod  time.Duration
	checkInterval uint8

	mu sync.Mutex

	state     State
	prefix    ip6.Prefix
	hasPrefix bool
	address   ip6.Address

	fixedIID      ip6.InterfaceIdentifier
	hasFixedIID   bool
	derivedIID    ip6.InterfaceIdentifier
	hasDerivedIID bool
	dadCounter    uint8

	bbrPrimary bool
	bbrConfig  backbone.Config

	outstandingToken string
	lastRegistration time.Time

	delay      delays
	tickerStop chan struct{}

	proxy *ProxyRegistrar

	onUnrecoverable func(addr ip6.Address)
	onStorageError  func(err error)
}

// Compile-time observer checks.
var (
	_ backbone.PrefixObserver  = (*Manager)(nil)
	_ backbone.PrimaryObserver = (*Manager)(nil)
)

// NewManager creates a Manager. Store, Addresses and Client are required.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("%w: nil settings store", ErrInvalidArgument)
	}
	if cfg.Addresses == nil {
		return nil, fmt.Errorf("%w: nil address table", ErrInvalidArgument)
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("%w: nil transport client", ErrInvalidArgument)
	}

	m := &Manager{
		cfg:           cfg,
		logger:        cfg.Logger,
		updatePeriod:  cfg.UpdatePeriod,
		checkInterval: cfg.CheckInterval,
	}
	if m.logger == nil {
		m.logger = log.NoopLogger{}
	}
	if m.updatePeriod == 0 {
		m.updatePeriod = UpdatePeriod
	}
	if m.checkInterval == 0 {
		m.checkInterval = DefaultCheckInterval
	}
	return m, nil
}

// Restore loads the persisted Interface Identifier and DAD counter. Call
// once before the first topology update. A storage failure is reported
// but leaves the Manager usable with fresh derivation state.
func (m *Manager) Restore() error {
	m.mu.Lock()
	settings, ok, err := m.cfg.Store.LoadDuaSettings()
	if err != nil {
		m.logger.Log(log.NewErrorEvent("restore", err))
		cb := m.onStorageError
		m.mu.Unlock()
		if cb != nil {
			cb(err)
		}
		return err
	}
	if ok {
		if settings.Fixed {
			m.fixedIID = settings.InterfaceIdentifier
			m.hasFixedIID = true
		} else {
			m.derivedIID = settings.InterfaceIdentifier
			m.hasDerivedIID = true
		}
		m.dadCounter = settings.DadCounter
	}
	m.mu.Unlock()
	return nil
}

// OnUnrecoverableDuplicate sets the callback invoked when a collision is
// reported for an operator-fixed Interface Identifier, which the Manager
// cannot resolve on its own.
func (m *Manager) OnUnrecoverableDuplicate(fn func(addr ip6.Address)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUnrecoverable = fn
}

// OnStorageError sets the callback invoked when persisting settings
// fails. In-memory state stays authoritative regardless.
func (m *Manager) OnStorageError(fn func(err error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStorageError = fn
}

// State returns the current registration state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// GetDomainUnicastAddress returns the current address. The second return
// value is false while no address exists.
func (m *Manager) GetDomainUnicastAddress() (ip6.Address, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.address, m.state != StateNotExist
}

// DadCounter returns the duplicate-detection counter.
func (m *Manager) DadCounter() uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dadCounter
}

// IsFixedDuaInterfaceIdentifierSet reports whether an operator-fixed
// Interface Identifier is in effect.
func (m *Manager) IsFixedDuaInterfaceIdentifierSet() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasFixedIID
}

// GetFixedDuaInterfaceIdentifier returns the operator-fixed Interface
// Identifier, if one is set.
func (m *Manager) GetFixedDuaInterfaceIdentifier() (ip6.InterfaceIdentifier, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fixedIID, m.hasFixedIID
}

// SetFixedDuaInterfaceIdentifier fixes the Interface Identifier to an
// operator-chosen value, overriding derivation. Reserved values are
// rejected with ErrInvalidArgument. If an address already exists it is
// regenerated and re-registered.
func (m *Manager) SetFixedDuaInterfaceIdentifier(iid ip6.InterfaceIdentifier) error {
	if iid.IsReserved() {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, ip6.ErrReservedIID)
	}

	m.mu.Lock()
	if m.hasFixedIID && m.fixedIID == iid {
		m.mu.Unlock()
		return nil
	}
	m.fixedIID = iid
	m.hasFixedIID = true
	m.storeLocked()
	if m.state != StateNotExist {
		m.replaceAddressLocked(iid, "fixed interface identifier set")
	}
	m.mu.Unlock()
	return nil
}

// ClearFixedDuaInterfaceIdentifier reverts to derived Interface
// Identifiers. An existing address is regenerated from a fresh
// derivation; the cleared value is never reused implicitly.
func (m *Manager) ClearFixedDuaInterfaceIdentifier() {
	m.mu.Lock()
	if !m.hasFixedIID {
		m.mu.Unlock()
		return
	}
	m.hasFixedIID = false
	m.fixedIID = ip6.InterfaceIdentifier{}
	m.hasDerivedIID = false

	if m.state == StateNotExist {
		m.storeLocked()
		m.mu.Unlock()
		return
	}

	iid, err := m.currentIIDLocked()
	if err != nil {
		m.logger.Log(log.NewErrorEvent("derive", err))
		m.removeAddressLocked("interface identifier derivation failed")
		m.mu.Unlock()
		return
	}
	m.replaceAddressLocked(iid, "fixed interface identifier cleared")
	m.mu.Unlock()
}

// HandleDomainPrefixUpdate reacts to Domain Prefix changes in the network
// data. Gaining a prefix generates an address; losing it removes the
// address; a changed prefix regenerates it.
func (m *Manager) HandleDomainPrefixUpdate(state backbone.DomainPrefixState, prefix ip6.Prefix) {
	m.mu.Lock()
	switch state {
	case backbone.PrefixRemoved:
		m.removeAddressLocked("domain prefix removed")
		m.hasPrefix = false
		m.prefix = ip6.Prefix{}

	case backbone.PrefixAdded, backbone.PrefixChanged, backbone.PrefixRefreshed:
		if !prefix.IsValid() {
			m.logger.Log(log.NewErrorEvent("prefix-update",
				fmt.Errorf("%w: prefix %s", ErrInvalidArgument, prefix)))
			break
		}
		if m.hasPrefix && !m.prefix.Equal(prefix) {
			m.removeAddressLocked("domain prefix changed")
		}
		m.prefix = prefix
		m.hasPrefix = true
		if m.state == StateNotExist {
			m.generateAddressLocked()
		}
	}
	m.mu.Unlock()
}

// HandleBackboneRouterPrimaryUpdate reacts to Primary Backbone Router
// changes: a new Primary schedules registration, a sequence-number bump
// invalidates every confirmed registration, a lost Primary cancels
// in-flight requests.
func (m *Manager) HandleBackboneRouterPrimaryUpdate(state backbone.State, config backbone.Config) {
	m.mu.Lock()
	switch state {
	case backbone.StateAdded, backbone.StateRefreshed, backbone.StateToTriggerRereg:
		m.bbrPrimary = true
		m.bbrConfig = config

		if state == backbone.StateToTriggerRereg {
			if m.state == StateRegistered {
				m.delay.reregistration = 0
			}
			if m.proxy != nil {
				m.proxy.invalidateRegistrationsLocked()
			}
		}
		if state == backbone.StateAdded && m.proxy != nil {
			m.delay.registration = NewRouterRegistrationDelay
		}
		if m.state != StateNotExist || (m.proxy != nil && m.proxy.hasWorkLocked()) {
			m.delay.check = InitialCheckDelay
		}
		m.ensureTickerLocked()

	case backbone.StateRemoved, backbone.StateNone:
		m.bbrPrimary = false
		if m.state == StateRegistering {
			m.transitionLocked(StateToRegister, "primary backbone router lost")
			m.outstandingToken = ""
		}
		if m.proxy != nil {
			m.proxy.cancelOutstandingLocked()
		}
	}
	m.mu.Unlock()
}

// HandleDuaNotification processes an unsolicited collision report. A
// notification for the device's own address restarts registration with a
// bumped DAD counter regardless of current state; a notification for a
// proxied child's address is forwarded to the ProxyRegistrar.
func (m *Manager) HandleDuaNotification(ntf *wire.AddressNotification) {
	if ntf == nil || ntf.Validate() != nil {
		return
	}

	m.mu.Lock()
	retry := false
	if m.state != StateNotExist && ntf.Target == m.address {
		m.outstandingToken = ""
		retry = m.handleDuplicateLocked("duplicate notification")
	} else if m.proxy != nil {
		m.proxy.handleNotificationLocked(ntf.Target)
	}
	m.mu.Unlock()

	if retry {
		m.PerformNextRegistration()
	}
}

// PerformNextRegistration sends the next due registration: the device's
// own address first, then at most one proxied child. It is a no-op while
// no Primary Backbone Router is known or a request is already
// outstanding for the respective slot.
func (m *Manager) PerformNextRegistration() {
	m.mu.Lock()
	if !m.bbrPrimary {
		m.mu.Unlock()
		return
	}

	if m.state == StateToRegister {
		counter := m.dadCounter
		token := uuid.NewString()
		req := &wire.RegistrationRequest{
			Token:        token,
			Target:       m.address,
			MeshLocalIID: m.cfg.MeshLocalIID,
			DadCounter:   &counter,
		}
		m.outstandingToken = token
		m.lastRegistration = time.Now()
		m.transitionLocked(StateRegistering, "registration request")
		m.logger.Log(log.NewRegistrationEvent(m.address.String(), token, ownRegistration, ""))
		client := m.cfg.Client
		m.mu.Unlock()

		if err := client.SendRegistration(req, func(resp *wire.RegistrationResponse, err error) {
			m.handleOwnResponse(token, resp, err)
		}); err != nil {
			m.mu.Lock()
			if m.outstandingToken == token {
				m.outstandingToken = ""
				if m.state == StateRegistering {
					m.transitionLocked(StateToRegister, "send failed")
				}
				m.logger.Log(log.NewErrorEvent("send", err))
			}
			m.mu.Unlock()
		}
		return
	}

	if m.proxy == nil {
		m.mu.Unlock()
		return
	}
	req := m.proxy.nextRequestLocked()
	client := m.cfg.Client
	m.mu.Unlock()

	if req == nil {
		return
	}
	token := req.Token
	if err := client.SendRegistration(req, func(resp *wire.RegistrationResponse, err error) {
		m.handleProxyResponse(token, resp, err)
	}); err != nil {
		m.mu.Lock()
		m.proxy.sendFailedLocked(token)
		m.logger.Log(log.NewErrorEvent("proxy-send", err))
		m.mu.Unlock()
	}
}

// Close stops the scheduler. The Manager must not be used afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.tickerStop != nil {
		close(m.tickerStop)
		m.tickerStop = nil
	}
	m.mu.Unlock()
}

// handleOwnResponse processes the outcome of the device's own
// registration request. Responses whose token no longer matches the
// outstanding request are discarded.
func (m *Manager) handleOwnResponse(token string, resp *wire.RegistrationResponse, err error) {
	m.mu.Lock()
	if token != m.outstandingToken {
		m.mu.Unlock()
		return
	}
	m.outstandingToken = ""

	if err != nil {
		m.logger.Log(log.NewErrorEvent("registration", err))
		if m.state == StateRegistering {
			m.transitionLocked(StateToRegister, "no response")
		}
		m.mu.Unlock()
		return
	}

	m.logger.Log(log.NewRegistrationEvent(m.address.String(), token, ownRegistration, resp.Status.String()))

	retry := false
	switch resp.Status {
	case wire.StatusSuccess:
		if m.state == StateRegistering {
			m.transitionLocked(StateRegistered, "registration confirmed")
			m.delay.reregistration = m.reregistrationIntervalLocked()
			m.ensureTickerLocked()
		}

	case wire.StatusDuplicate:
		retry = m.handleDuplicateLocked("registration response")

	default:
		// NOT_PRIMARY, NOT_READY, INVALID_REQUEST: back off to the
		// periodic check.
		if m.state == StateRegistering {
			m.transitionLocked(StateToRegister, resp.Status.String())
		}
	}
	m.mu.Unlock()

	if retry {
		m.PerformNextRegistration()
	}
}

// handleDuplicateLocked recovers from an address collision. With a
// derived Interface Identifier the DAD counter is bumped, persisted, and
// a fresh address generated; the return value asks the caller to retry
// registration immediately (after unlocking). With a fixed Interface
// Identifier the condition is unrecoverable and reported upward.
func (m *Manager) handleDuplicateLocked(reason string) bool {
	m.dadCounter++
	m.storeLocked()

	if m.hasFixedIID {
		m.logger.Log(log.NewErrorEvent("duplicate",
			fmt.Errorf("%w: %s (fixed interface identifier)", ErrDuplicateAddress, m.address)))
		if m.state == StateRegistering {
			m.transitionLocked(StateToRegister, reason)
		}
		if cb := m.onUnrecoverable; cb != nil {
			cb(m.address)
		}
		return false
	}

	old := m.address
	m.hasDerivedIID = false
	iid, err := m.currentIIDLocked()
	if err != nil {
		m.logger.Log(log.NewErrorEvent("derive", err))
		m.removeAddressLocked(reason)
		return false
	}

	_ = m.cfg.Addresses.RemoveUnicastAddress(old)
	m.address = ip6.AddressFrom(m.prefix, iid)
	if addErr := m.cfg.Addresses.AddUnicastAddress(m.address); addErr != nil {
		m.logger.Log(log.NewErrorEvent("address-add", addErr))
	}
	m.transitionLocked(StateToRegister, reason)
	m.delay.check = InitialCheckDelay
	m.ensureTickerLocked()
	return true
}

// generateAddressLocked creates the address from the current prefix and
// the effective Interface Identifier and schedules its registration.
func (m *Manager) generateAddressLocked() {
	iid, err := m.currentIIDLocked()
	if err != nil {
		m.logger.Log(log.NewErrorEvent("derive", err))
		return
	}

	m.address = ip6.AddressFrom(m.prefix, iid)
	if err := m.cfg.Addresses.AddUnicastAddress(m.address); err != nil {
		m.logger.Log(log.NewErrorEvent("address-add", err))
	}
	m.transitionLocked(StateToRegister, "address generated")
	m.delay.check = InitialCheckDelay
	m.ensureTickerLocked()
}

// replaceAddressLocked swaps the current address for one built from iid
// and schedules re-registration.
func (m *Manager) replaceAddressLocked(iid ip6.InterfaceIdentifier, reason string) {
	_ = m.cfg.Addresses.RemoveUnicastAddress(m.address)
	m.outstandingToken = ""
	m.address = ip6.AddressFrom(m.prefix, iid)
	if err := m.cfg.Addresses.AddUnicastAddress(m.address); err != nil {
		m.logger.Log(log.NewErrorEvent("address-add", err))
	}
	m.transitionLocked(StateToRegister, reason)
	m.delay.check = InitialCheckDelay
	m.ensureTickerLocked()
}

// removeAddressLocked withdraws the address and returns to NotExist. Any
// outstanding request is cancelled; its late response will not match the
// cleared token.
func (m *Manager) removeAddressLocked(reason string) {
	if m.state == StateNotExist {
		return
	}
	_ = m.cfg.Addresses.RemoveUnicastAddress(m.address)
	m.transitionLocked(StateNotExist, reason)
	m.address = ip6.Address{}
	m.outstandingToken = ""
	m.delay.reregistration = 0
	m.delay.check = 0
	m.maybeStopTickerLocked()
}

// currentIIDLocked returns the effective Interface Identifier: the fixed
// value if set, the cached derived value otherwise, deriving (and
// persisting) a fresh one on first use or after a counter bump.
func (m *Manager) currentIIDLocked() (ip6.InterfaceIdentifier, error) {
	if m.hasFixedIID {
		return m.fixedIID, nil
	}
	if m.hasDerivedIID {
		return m.derivedIID, nil
	}
	if m.dadCounter > MaxDadCounter {
		return ip6.InterfaceIdentifier{}, fmt.Errorf("%w: detection counter exhausted (%d)",
			ip6.ErrDerivationFailed, m.dadCounter)
	}

	iid, err := ip6.DeriveInterfaceIdentifier(m.cfg.ExtendedAddress, m.cfg.NetworkName, m.dadCounter)
	if err != nil {
		return ip6.InterfaceIdentifier{}, err
	}
	m.derivedIID = iid
	m.hasDerivedIID = true
	m.storeLocked()
	return iid, nil
}

// storeLocked persists the current Interface Identifier choice and DAD
// counter. Failure is reported but never blocks address operation.
func (m *Manager) storeLocked() {
	settings := persistence.DuaSettings{
		Fixed:      m.hasFixedIID,
		DadCounter: m.dadCounter,
	}
	if m.hasFixedIID {
		settings.InterfaceIdentifier = m.fixedIID
	} else {
		settings.InterfaceIdentifier = m.derivedIID
	}

	if err := m.cfg.Store.StoreDuaSettings(settings); err != nil {
		m.logger.Log(log.NewErrorEvent("store", err))
		if cb := m.onStorageError; cb != nil {
			cb(err)
		}
	}
}

// reregistrationIntervalLocked returns the refresh interval mandated by
// the Primary Backbone Router, with a fallback when its service data
// carries none.
func (m *Manager) reregistrationIntervalLocked() uint16 {
	if m.bbrConfig.ReregistrationDelay > 0 {
		return m.bbrConfig.ReregistrationDelay
	}
	return DefaultReregistrationInterval
}

// transitionLocked changes state and logs the transition.
func (m *Manager) transitionLocked(next State, reason string) {
	if m.state == next {
		return
	}
	m.logger.Log(log.NewStateChangeEvent(m.state.String(), next.String(), m.address.String(), reason))
	m.state = next
}

// ownRegistration is the child-index value marking the device's own
// registration in log events.
const ownRegistration = -1

// ensureTickerLocked starts the scheduler goroutine if a countdown is
// pending and none is running.
func (m *Manager) ensureTickerLocked() {
	if m.tickerStop != nil || !m.delay.pending() {
		return
	}
	stop := make(chan struct{})
	m.tickerStop = stop

	ticker := time.NewTicker(m.updatePeriod)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				m.handleTick()
			}
		}
	}()
}

// maybeStopTickerLocked stops the scheduler once every countdown reached
// zero.
func (m *Manager) maybeStopTickerLocked() {
	if m.tickerStop != nil && !m.delay.pending() {
		close(m.tickerStop)
		m.tickerStop = nil
	}
}

// handleTick advances every running countdown by one period and fires
// the actions that became due.
func (m *Manager) handleTick() {
	m.mu.Lock()
	perform := false

	if m.delay.reregistration > 0 {
		m.delay.reregistration--
	}

	if m.delay.check > 0 {
		m.delay.check--
		if m.delay.check == 0 {
			if m.state == StateRegistered && m.delay.reregistration == 0 {
				m.transitionLocked(StateToRegister, "re-registration due")
			}
			if m.state == StateRegistering &&
				time.Since(m.lastRegistration) >= time.Duration(m.checkInterval)*m.updatePeriod {
				// Response lost; release the slot and retry.
				m.outstandingToken = ""
				m.transitionLocked(StateToRegister, "response overdue")
			}
			proxyWork := m.proxy != nil && m.proxy.hasWorkLocked()
			if m.state == StateToRegister || proxyWork {
				perform = true
			}
			if m.state != StateNotExist || proxyWork {
				m.delay.check = m.checkInterval
			}
		}
	}

	if m.delay.registration > 0 {
		m.delay.registration--
		if m.delay.registration == 0 {
			perform = true
		}
	}

	m.maybeStopTickerLocked()
	m.mu.Unlock()

	if perform {
		m.PerformNextRegistration()
	}
}

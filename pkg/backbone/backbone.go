package backbone

import (
	"fmt"

	"github.com/thread-protocol/dua-go/pkg/ip6"
)

// DomainPrefixState describes a Domain Prefix change in the network data.
type DomainPrefixState uint8

const (
	// PrefixRemoved indicates the Domain Prefix is no longer present.
	PrefixRemoved DomainPrefixState = 0

	// PrefixAdded indicates a Domain Prefix became available.
	PrefixAdded DomainPrefixState = 1

	// PrefixChanged indicates the Domain Prefix was replaced by another.
	PrefixChanged DomainPrefixState = 2

	// PrefixRefreshed indicates the same Domain Prefix was re-announced.
	PrefixRefreshed DomainPrefixState = 3
)

// String returns the prefix state name.
func (s DomainPrefixState) String() string {
	switch s {
	case PrefixRemoved:
		return "REMOVED"
	case PrefixAdded:
		return "ADDED"
	case PrefixChanged:
		return "CHANGED"
	case PrefixRefreshed:
		return "REFRESHED"
	default:
		return "UNKNOWN"
	}
}

// State describes a Primary Backbone Router change.
type State uint8

const (
	// StateNone indicates no Primary Backbone Router is known.
	StateNone State = 0

	// StateAdded indicates a Primary Backbone Router became available.
	StateAdded State = 1

	// StateRemoved indicates the Primary Backbone Router was lost.
	StateRemoved State = 2

	// StateToTriggerRereg indicates the Primary bumped its sequence
	// number: every device must re-register its DUA.
	StateToTriggerRereg State = 3

	// StateRefreshed indicates the same Primary re-announced itself.
	StateRefreshed State = 4
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateNone:
		return "NONE"
	case StateAdded:
		return "ADDED"
	case StateRemoved:
		return "REMOVED"
	case StateToTriggerRereg:
		return "TO_TRIGGER_REREG"
	case StateRefreshed:
		return "REFRESHED"
	default:
		return "UNKNOWN"
	}
}

// Config carries the Primary Backbone Router's service data.
type Config struct {
	// SequenceNumber is the Backbone Router service sequence number.
	// A bump invalidates all existing registrations.
	SequenceNumber uint8

	// ReregistrationDelay is the interval (in seconds) within which
	// devices must refresh their registrations.
	ReregistrationDelay uint16

	// MlrTimeout is the multicast listener registration timeout in
	// seconds. Carried for completeness; the DUA manager does not use it.
	MlrTimeout uint32
}

// String returns a compact description of the service data.
func (c Config) String() string {
	return fmt.Sprintf("seq=%d rereg=%ds mlr=%ds", c.SequenceNumber, c.ReregistrationDelay, c.MlrTimeout)
}

// PrefixObserver receives Domain Prefix changes. The prefix argument is
// meaningful for every state except PrefixRemoved.
type PrefixObserver interface {
	HandleDomainPrefixUpdate(state DomainPrefixState, prefix ip6.Prefix)
}

// PrimaryObserver receives Primary Backbone Router changes.
type PrimaryObserver interface {
	HandleBackboneRouterPrimaryUpdate(state State, config Config)
}

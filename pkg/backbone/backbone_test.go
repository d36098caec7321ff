package backbone

import (
	"testing"

	"github.com/thread-protocol/dua-go/pkg/ip6"
)

type recordingObserver struct {
	prefixStates  []DomainPrefixState
	prefixes      []ip6.Prefix
	primaryStates []State
	configs       []Config
}

func (r *recordingObserver) HandleDomainPrefixUpdate(state DomainPrefixState, prefix ip6.Prefix) {
	r.prefixStates = append(r.prefixStates, state)
	r.prefixes = append(r.prefixes, prefix)
}

func (r *recordingObserver) HandleBackboneRouterPrimaryUpdate(state State, config Config) {
	r.primaryStates = append(r.primaryStates, state)
	r.configs = append(r.configs, config)
}

func testPrefix(t *testing.T) ip6.Prefix {
	t.Helper()
	addr, err := ip6.ParseAddress("fd00:7d03:7d03:7d03::")
	if err != nil {
		t.Fatalf("ParseAddress failed: %v", err)
	}
	return ip6.Prefix{Address: addr, Length: 64}
}

func TestNotifierDistributesPrefixUpdates(t *testing.T) {
	n := NewNotifier()
	obs := &recordingObserver{}
	n.RegisterPrefixObserver(obs)

	prefix := testPrefix(t)
	n.NotifyDomainPrefix(PrefixAdded, prefix)
	n.NotifyDomainPrefix(PrefixRemoved, ip6.Prefix{})

	if len(obs.prefixStates) != 2 {
		t.Fatalf("got %d notifications, want 2", len(obs.prefixStates))
	}
	if obs.prefixStates[0] != PrefixAdded || obs.prefixStates[1] != PrefixRemoved {
		t.Errorf("states = %v, want [ADDED REMOVED]", obs.prefixStates)
	}
	if obs.prefixes[0] != prefix {
		t.Errorf("prefix = %s, want %s", obs.prefixes[0], prefix)
	}

	if _, known := n.DomainPrefix(); known {
		t.Error("DomainPrefix() still known after removal")
	}
}

func TestNotifierCatchesUpLateObserver(t *testing.T) {
	n := NewNotifier()
	prefix := testPrefix(t)
	n.NotifyDomainPrefix(PrefixAdded, prefix)
	n.NotifyPrimary(StateAdded, Config{SequenceNumber: 3, ReregistrationDelay: 1800})

	obs := &recordingObserver{}
	n.RegisterPrefixObserver(obs)
	n.RegisterPrimaryObserver(obs)

	if len(obs.prefixStates) != 1 || obs.prefixStates[0] != PrefixAdded {
		t.Errorf("late prefix observer states = %v, want [ADDED]", obs.prefixStates)
	}
	if len(obs.primaryStates) != 1 || obs.primaryStates[0] != StateAdded {
		t.Errorf("late primary observer states = %v, want [ADDED]", obs.primaryStates)
	}
	if len(obs.configs) == 1 && obs.configs[0].SequenceNumber != 3 {
		t.Errorf("config seq = %d, want 3", obs.configs[0].SequenceNumber)
	}
}

func TestStateStrings(t *testing.T) {
	if got := StateToTriggerRereg.String(); got != "TO_TRIGGER_REREG" {
		t.Errorf("String() = %s, want TO_TRIGGER_REREG", got)
	}
	if got := PrefixChanged.String(); got != "CHANGED" {
		t.Errorf("String() = %s, want CHANGED", got)
	}
	if got := DomainPrefixState(99).String(); got != "UNKNOWN" {
		t.Errorf("String() = %s, want UNKNOWN", got)
	}
}

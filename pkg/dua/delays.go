package dua

import "time"

// Scheduling constants. All delays count in ticks of UpdatePeriod.
const (
	// UpdatePeriod is the tick period of the delay scheduler.
	UpdatePeriod = time.Second

	// NewRouterRegistrationDelay is the wait (in seconds) for link
	// establishment after a new router appears, before proxy
	// registration starts on its behalf.
	NewRouterRegistrationDelay = 5

	// InitialCheckDelay is the wait (in seconds) before the first
	// evaluation after an address is generated or registration becomes
	// due.
	InitialCheckDelay = 1

	// DefaultCheckInterval is the steady-state evaluation cadence in
	// seconds. It also bounds how long a lost response is tolerated
	// before a fresh attempt.
	DefaultCheckInterval = 30

	// DefaultReregistrationInterval is the refresh interval (in
	// seconds) used when the Backbone Router's service data does not
	// supply one.
	DefaultReregistrationInterval = 3600

	// MaxDadCounter bounds the duplicate-detection counter. Derivation
	// fails loudly beyond it rather than silently reusing addresses.
	MaxDadCounter = 32
)

// delays holds the three independent countdowns sharing the scheduler
// tick. The timer must run exactly while pending() is true.
type delays struct {
	// reregistration is the time until the current registration must be
	// refreshed.
	reregistration uint16

	// check is the time until the next evaluation of whether
	// registration is needed.
	check uint8

	// registration is the grace period before proxy registration after
	// a new router joins.
	registration uint8
}

// pending reports whether any countdown is still running.
func (d *delays) pending() bool {
	return d.reregistration != 0 || d.check != 0 || d.registration != 0
}

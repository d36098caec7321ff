package dua

// State is the registration state of the Domain Unicast Address.
type State uint8

const (
	// StateNotExist indicates no address exists: there is no Domain
	// Prefix, or generation failed.
	StateNotExist State = 0

	// StateToRegister indicates the address exists but its registration
	// is unconfirmed.
	StateToRegister State = 1

	// StateRegistering indicates a registration request is outstanding.
	StateRegistering State = 2

	// StateRegistered indicates the Primary Backbone Router confirmed
	// the registration.
	StateRegistered State = 3
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateNotExist:
		return "NOT_EXIST"
	case StateToRegister:
		return "TO_REGISTER"
	case StateRegistering:
		return "REGISTERING"
	case StateRegistered:
		return "REGISTERED"
	default:
		return "UNKNOWN"
	}
}

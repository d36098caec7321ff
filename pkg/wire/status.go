package wire

// DuaStatus represents a registration response status.
type DuaStatus uint8

const (
	// StatusSuccess indicates the address was registered.
	StatusSuccess DuaStatus = 0

	// StatusDuplicate indicates the address is already registered by
	// another device.
	StatusDuplicate DuaStatus = 1

	// StatusNotPrimary indicates the responder is not the Primary
	// Backbone Router.
	StatusNotPrimary DuaStatus = 2

	// StatusNotReady indicates the Backbone Router cannot serve the
	// registration yet; try again later.
	StatusNotReady DuaStatus = 3

	// StatusInvalidRequest indicates a malformed or unacceptable request.
	StatusInvalidRequest DuaStatus = 4
)

// String returns the status name.
func (s DuaStatus) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusDuplicate:
		return "DUPLICATE"
	case StatusNotPrimary:
		return "NOT_PRIMARY"
	case StatusNotReady:
		return "NOT_READY"
	case StatusInvalidRequest:
		return "INVALID_REQUEST"
	default:
		return "UNKNOWN"
	}
}

// IsSuccess returns true if the status indicates success.
func (s DuaStatus) IsSuccess() bool {
	return s == StatusSuccess
}

package wire

import (
	"errors"

	"github.com/thread-protocol/dua-go/pkg/ip6"
)

// Message validation errors.
var (
	ErrMissingTarget = errors.New("missing target address")
	ErrMissingToken  = errors.New("missing request token")
)

// RegistrationRequest asks the Primary Backbone Router to register a DUA.
//
// For a device's own registration the DAD counter is present and the
// last-transaction field is absent. For a proxy registration on a child's
// behalf it is the other way around: the parent reports how long ago it
// last heard from the child instead.
type RegistrationRequest struct {
	// Token pairs the response with this request.
	Token string `cbor:"1,keyasint"`

	// Target is the Domain Unicast Address to register.
	Target ip6.Address `cbor:"2,keyasint"`

	// MeshLocalIID identifies the registering device (or the child, for
	// proxy registrations) independently of the target address.
	MeshLocalIID ip6.InterfaceIdentifier `cbor:"3,keyasint"`

	// DadCounter is the device's duplicate-detection counter. Present
	// only for the device's own registration.
	DadCounter *uint8 `cbor:"4,keyasint,omitempty"`

	// LastTransactionSeconds is the time since the parent last heard
	// from the child. Present only for proxy registrations.
	LastTransactionSeconds *uint32 `cbor:"5,keyasint,omitempty"`
}

// IsProxy returns true if the request is a proxy registration.
func (r *RegistrationRequest) IsProxy() bool {
	return r.LastTransactionSeconds != nil
}

// Validate checks structural validity of the request.
func (r *RegistrationRequest) Validate() error {
	if r.Token == "" {
		return ErrMissingToken
	}
	if r.Target.IsUnspecified() {
		return ErrMissingTarget
	}
	return nil
}

// RegistrationResponse answers a RegistrationRequest.
type RegistrationResponse struct {
	// Token echoes the request token.
	Token string `cbor:"1,keyasint"`

	// Status is the registration outcome.
	Status DuaStatus `cbor:"2,keyasint"`

	// Target echoes the address the status applies to.
	Target ip6.Address `cbor:"3,keyasint"`
}

// AddressNotification reports asynchronously that an address collides with
// one registered elsewhere. It may arrive at any time, not only in response
// to a request the receiver sent.
type AddressNotification struct {
	// Target is the colliding address.
	Target ip6.Address `cbor:"1,keyasint"`

	// MeshLocalIID identifies the device that holds the conflicting
	// registration, when known.
	MeshLocalIID ip6.InterfaceIdentifier `cbor:"2,keyasint,omitempty"`
}

// Validate checks structural validity of the notification.
func (n *AddressNotification) Validate() error {
	if n.Target.IsUnspecified() {
		return ErrMissingTarget
	}
	return nil
}

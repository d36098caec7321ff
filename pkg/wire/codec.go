package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder mode for registration messages.
// Configured for deterministic encoding with integer keys.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for registration messages.
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeUnix,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Lenient decoding for forward compatibility
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// Marshal encodes a value to CBOR bytes.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR bytes into a value.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// MessageType represents the type of a decoded message.
type MessageType uint8

const (
	MessageTypeUnknown MessageType = iota
	MessageTypeRequest
	MessageTypeResponse
	MessageTypeNotification
)

// frame is the envelope placed around every message on the wire so the
// receiver can dispatch without guessing from field shapes.
type frame struct {
	Type    MessageType     `cbor:"1,keyasint"`
	Payload cbor.RawMessage `cbor:"2,keyasint"`
}

// EncodeRequest encodes a registration request into a framed message.
func EncodeRequest(req *RegistrationRequest) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return encodeFrame(MessageTypeRequest, req)
}

// EncodeResponse encodes a registration response into a framed message.
func EncodeResponse(resp *RegistrationResponse) ([]byte, error) {
	return encodeFrame(MessageTypeResponse, resp)
}

// EncodeNotification encodes an address notification into a framed message.
func EncodeNotification(ntf *AddressNotification) ([]byte, error) {
	if err := ntf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid notification: %w", err)
	}
	return encodeFrame(MessageTypeNotification, ntf)
}

func encodeFrame(t MessageType, v any) ([]byte, error) {
	payload, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	return Marshal(&frame{Type: t, Payload: payload})
}

// Decode decodes a framed message. Exactly one of the return values is
// non-nil on success, according to the frame type.
func Decode(data []byte) (*RegistrationRequest, *RegistrationResponse, *AddressNotification, error) {
	var f frame
	if err := Unmarshal(data, &f); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to decode frame: %w", err)
	}

	switch f.Type {
	case MessageTypeRequest:
		var req RegistrationRequest
		if err := Unmarshal(f.Payload, &req); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to decode request: %w", err)
		}
		if err := req.Validate(); err != nil {
			return nil, nil, nil, fmt.Errorf("invalid request: %w", err)
		}
		return &req, nil, nil, nil

	case MessageTypeResponse:
		var resp RegistrationResponse
		if err := Unmarshal(f.Payload, &resp); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to decode response: %w", err)
		}
		return nil, &resp, nil, nil

	case MessageTypeNotification:
		var ntf AddressNotification
		if err := Unmarshal(f.Payload, &ntf); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to decode notification: %w", err)
		}
		if err := ntf.Validate(); err != nil {
			return nil, nil, nil, fmt.Errorf("invalid notification: %w", err)
		}
		return nil, nil, &ntf, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown message type %d", f.Type)
	}
}

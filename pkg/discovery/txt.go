package discovery

import (
	"fmt"
	"strconv"
	"strings"
)

// TXT record keys for the Backbone Router service.
const (
	txtKeyNetworkName = "nn"
	txtKeySequence    = "sq"
	txtKeyReregDelay  = "rd"
	txtKeyMlrTimeout  = "mt"
)

// EncodeTXT renders the Backbone Router info as DNS-SD TXT strings.
func EncodeTXT(info *BackboneRouterInfo) []string {
	return []string{
		txtKeyNetworkName + "=" + info.NetworkName,
		txtKeySequence + "=" + strconv.Itoa(int(info.SequenceNumber)),
		txtKeyReregDelay + "=" + strconv.Itoa(int(info.ReregistrationDelay)),
		txtKeyMlrTimeout + "=" + strconv.Itoa(int(info.MlrTimeout)),
	}
}

// DecodeTXT parses DNS-SD TXT strings into Backbone Router info. Unknown
// keys are ignored; the sequence number is required.
func DecodeTXT(txt []string) (*BackboneRouterInfo, error) {
	info := &BackboneRouterInfo{}
	haveSeq := false

	for _, record := range txt {
		key, value, ok := strings.Cut(record, "=")
		if !ok {
			continue
		}
		switch key {
		case txtKeyNetworkName:
			info.NetworkName = value

		case txtKeySequence:
			n, err := strconv.ParseUint(value, 10, 8)
			if err != nil {
				return nil, fmt.Errorf("%w: %s=%q", ErrInvalidTXT, key, value)
			}
			info.SequenceNumber = uint8(n)
			haveSeq = true

		case txtKeyReregDelay:
			n, err := strconv.ParseUint(value, 10, 16)
			if err != nil {
				return nil, fmt.Errorf("%w: %s=%q", ErrInvalidTXT, key, value)
			}
			info.ReregistrationDelay = uint16(n)

		case txtKeyMlrTimeout:
			n, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("%w: %s=%q", ErrInvalidTXT, key, value)
			}
			info.MlrTimeout = uint32(n)
		}
	}

	if !haveSeq {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidTXT, txtKeySequence)
	}
	return info, nil
}

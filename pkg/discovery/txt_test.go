package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTXTRoundTrip(t *testing.T) {
	info := &BackboneRouterInfo{
		NetworkName:         "OpenHouse",
		SequenceNumber:      7,
		ReregistrationDelay: 300,
		MlrTimeout:          3600,
	}

	decoded, err := DecodeTXT(EncodeTXT(info))
	require.NoError(t, err)
	assert.Equal(t, info.NetworkName, decoded.NetworkName)
	assert.Equal(t, info.SequenceNumber, decoded.SequenceNumber)
	assert.Equal(t, info.ReregistrationDelay, decoded.ReregistrationDelay)
	assert.Equal(t, info.MlrTimeout, decoded.MlrTimeout)
}

func TestDecodeTXTMissingSequence(t *testing.T) {
	_, err := DecodeTXT([]string{"nn=OpenHouse"})
	assert.ErrorIs(t, err, ErrInvalidTXT)
}

func TestDecodeTXTBadValue(t *testing.T) {
	_, err := DecodeTXT([]string{"sq=banana"})
	assert.ErrorIs(t, err, ErrInvalidTXT)
}

func TestDecodeTXTIgnoresUnknownKeys(t *testing.T) {
	info, err := DecodeTXT([]string{"sq=3", "xx=ignored", "novalue"})
	require.NoError(t, err)
	assert.Equal(t, uint8(3), info.SequenceNumber)
}

package service

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thread-protocol/dua-go/pkg/ip6"
	"github.com/thread-protocol/dua-go/pkg/wire"
)

func registryAddr(t *testing.T) ip6.Address {
	t.Helper()
	addr, err := ip6.ParseAddress("fd00:7d03:7d03:7d03::42")
	require.NoError(t, err)
	return addr
}

func TestRegistryRegisterAndRefresh(t *testing.T) {
	r := NewRegistry(time.Hour)
	target := registryAddr(t)
	iid := ip6.InterfaceIdentifier{1, 2, 3, 4, 5, 6, 7, 8}
	peer := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 4000}
	now := time.Now()

	assert.Equal(t, wire.StatusSuccess, r.Register(target, iid, peer, now))
	assert.Equal(t, wire.StatusSuccess, r.Register(target, iid, peer, now.Add(time.Minute)),
		"same identity refreshes")
	assert.Equal(t, 1, r.Len())

	holder, gotPeer, ok := r.Holder(target, now.Add(time.Minute))
	require.True(t, ok)
	assert.Equal(t, iid, holder)
	assert.Equal(t, peer, gotPeer)
}

func TestRegistryDuplicate(t *testing.T) {
	r := NewRegistry(time.Hour)
	target := registryAddr(t)
	now := time.Now()

	require.Equal(t, wire.StatusSuccess,
		r.Register(target, ip6.InterfaceIdentifier{1}, nil, now))
	assert.Equal(t, wire.StatusDuplicate,
		r.Register(target, ip6.InterfaceIdentifier{2}, nil, now.Add(time.Second)))
}

func TestRegistryExpiryAllowsTakeover(t *testing.T) {
	r := NewRegistry(time.Minute)
	target := registryAddr(t)
	now := time.Now()

	require.Equal(t, wire.StatusSuccess,
		r.Register(target, ip6.InterfaceIdentifier{1}, nil, now))
	assert.Equal(t, wire.StatusSuccess,
		r.Register(target, ip6.InterfaceIdentifier{2}, nil, now.Add(2*time.Minute)),
		"expired entry does not block a new identity")
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry(0)
	target := registryAddr(t)

	r.Register(target, ip6.InterfaceIdentifier{1}, nil, time.Now())
	r.Remove(target)
	_, _, ok := r.Holder(target, time.Now())
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

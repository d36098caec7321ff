package dua_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thread-protocol/dua-go/pkg/backbone"
	"github.com/thread-protocol/dua-go/pkg/discovery"
	"github.com/thread-protocol/dua-go/pkg/dua"
	"github.com/thread-protocol/dua-go/pkg/ip6"
	"github.com/thread-protocol/dua-go/pkg/meshtable"
	"github.com/thread-protocol/dua-go/pkg/service"
)

func e2ePrefix(t *testing.T) ip6.Prefix {
	t.Helper()
	addr, err := ip6.ParseAddress("fd00:beef:cafe:1::")
	require.NoError(t, err)
	return ip6.Prefix{Address: addr, Length: 64}
}

func e2eBackbone(t *testing.T) *service.BackboneService {
	t.Helper()
	bbr, err := service.NewBackboneService(service.BackboneConfig{
		ListenAddress:       "127.0.0.1:0",
		NetworkName:         "OpenHouse",
		SequenceNumber:      1,
		ReregistrationDelay: 300,
	})
	require.NoError(t, err)
	require.NoError(t, bbr.Start())
	t.Cleanup(func() { _ = bbr.Stop() })
	return bbr
}

// e2eDevice starts a device against the given Backbone Router and
// announces the Domain Prefix and the Primary to it.
func e2eDevice(t *testing.T, bbr *service.BackboneService, meshIID string, maxChildren int) *service.DeviceService {
	t.Helper()
	dev, err := service.NewDeviceService(service.DeviceConfig{
		ExtendedAddress: "1622334455667788",
		NetworkName:     "OpenHouse",
		MeshLocalIID:    meshIID,
		ListenAddress:   "127.0.0.1:0",
		ServerAddress:   bbr.Addr().String(),
		RequestTimeout:  2 * time.Second,
		UpdatePeriod:    10 * time.Millisecond,
		MaxChildren:     maxChildren,
	})
	require.NoError(t, err)
	require.NoError(t, dev.Start(context.Background()))
	t.Cleanup(func() { _ = dev.Stop() })

	dev.Notifier().NotifyDomainPrefix(backbone.PrefixAdded, e2ePrefix(t))
	dev.Notifier().NotifyPrimary(backbone.StateAdded, backbone.Config{
		SequenceNumber:      bbr.SequenceNumber(),
		ReregistrationDelay: 300,
	})
	return dev
}

func waitRegistered(t *testing.T, dev *service.DeviceService) ip6.Address {
	t.Helper()
	require.Eventually(t, func() bool {
		return dev.Manager().State() == dua.StateRegistered
	}, 3*time.Second, 20*time.Millisecond)
	addr, ok := dev.Manager().GetDomainUnicastAddress()
	require.True(t, ok)
	return addr
}

// TestE2E_DuplicateAddressResolution runs two devices that share an
// extended address and network name, so both derive the same DUA. The
// Backbone Router rejects the second registration and the device must
// recover with a new address.
func TestE2E_DuplicateAddressResolution(t *testing.T) {
	bbr := e2eBackbone(t)

	devA := e2eDevice(t, bbr, "aabbccddeeff0101", 0)
	addrA := waitRegistered(t, devA)

	devB := e2eDevice(t, bbr, "aabbccddeeff0202", 0)
	addrB := waitRegistered(t, devB)

	assert.NotEqual(t, addrA, addrB)
	assert.Equal(t, uint8(0), devA.Manager().DadCounter())
	assert.Equal(t, uint8(1), devB.Manager().DadCounter(),
		"second device resolved the collision by bumping its counter")
	assert.Equal(t, 2, bbr.Registry().Len())
}

// TestE2E_ProxyRegistration attaches children to a device and verifies
// the parent registers their addresses on their behalf.
func TestE2E_ProxyRegistration(t *testing.T) {
	bbr := e2eBackbone(t)
	dev := e2eDevice(t, bbr, "aabbccddeeff0303", 4)
	waitRegistered(t, dev)

	prefix := e2ePrefix(t)
	for i := 0; i < 2; i++ {
		_, err := dev.Children().Attach(i, ip6.InterfaceIdentifier{0xc0, 0, 0, 0, 0, 0, 0, byte(i)})
		require.NoError(t, err)
		addr := ip6.AddressFrom(prefix, ip6.InterfaceIdentifier{0xd0, 0, 0, 0, 0, 0, 0, byte(i)})
		require.NoError(t, dev.Manager().UpdateChildDomainUnicastAddress(i, meshtable.DuaAdded, addr))
	}

	require.Eventually(t, func() bool {
		return dev.Proxy().IsChildRegistered(0) && dev.Proxy().IsChildRegistered(1)
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, 3, bbr.Registry().Len(), "own address plus two children")

	require.NoError(t, dev.Manager().UpdateChildDomainUnicastAddress(1, meshtable.DuaRemoved, ip6.Address{}))
	assert.False(t, dev.Proxy().IsChildRegistered(1))
}

// TestE2E_SequenceBumpReregistration verifies that a sequence number
// bump makes the device refresh its registration.
func TestE2E_SequenceBumpReregistration(t *testing.T) {
	bbr := e2eBackbone(t)
	dev := e2eDevice(t, bbr, "aabbccddeeff0404", 0)
	addr := waitRegistered(t, dev)

	entries := bbr.Registry().Entries(time.Now())
	require.Len(t, entries, 1)
	registeredAt := entries[0].UpdatedAt

	time.Sleep(20 * time.Millisecond)
	seq := bbr.BumpSequence()
	dev.Notifier().NotifyPrimary(backbone.StateToTriggerRereg, backbone.Config{
		SequenceNumber:      seq,
		ReregistrationDelay: 300,
	})

	require.Eventually(t, func() bool {
		entries := bbr.Registry().Entries(time.Now())
		return len(entries) == 1 && entries[0].UpdatedAt.After(registeredAt)
	}, 3*time.Second, 20*time.Millisecond)

	current, ok := dev.Manager().GetDomainUnicastAddress()
	require.True(t, ok)
	assert.Equal(t, addr, current, "re-registration keeps the same address")
}

// TestE2E_Discovery tests that a device can find a Backbone Router via
// mDNS.
func TestE2E_Discovery(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	advertiser := discovery.NewAdvertiser(discovery.AdvertiserConfig{})
	defer advertiser.Stop()

	info := &discovery.BackboneRouterInfo{
		InstanceName:        "BBR-E2E",
		Port:                61631,
		NetworkName:         "DiscoveryHouse",
		SequenceNumber:      7,
		ReregistrationDelay: 300,
	}
	require.NoError(t, advertiser.Advertise(info))

	// Give mDNS time to propagate
	time.Sleep(500 * time.Millisecond)

	browser := discovery.NewBrowser(discovery.BrowserConfig{})
	found, err := browser.FindByNetworkName(ctx, "DiscoveryHouse")
	require.NoError(t, err)
	assert.Equal(t, uint8(7), found.SequenceNumber)
	assert.Equal(t, uint16(61631), found.Port)
}

package transport

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thread-protocol/dua-go/pkg/ip6"
	"github.com/thread-protocol/dua-go/pkg/wire"
)

func testRequest(t *testing.T, token string) *wire.RegistrationRequest {
	t.Helper()
	addr, err := ip6.ParseAddress("fd00:7d03:7d03:7d03::99")
	require.NoError(t, err)
	counter := uint8(0)
	return &wire.RegistrationRequest{
		Token:        token,
		Target:       addr,
		MeshLocalIID: ip6.InterfaceIdentifier{1, 2, 3, 4, 5, 6, 7, 8},
		DadCounter:   &counter,
	}
}

func TestLoopbackDelivery(t *testing.T) {
	lb := NewLoopback(RegistrationHandlerFunc(func(req *wire.RegistrationRequest, _ net.Addr) *wire.RegistrationResponse {
		return &wire.RegistrationResponse{Token: req.Token, Status: wire.StatusSuccess, Target: req.Target}
	}))

	var got *wire.RegistrationResponse
	err := lb.SendRegistration(testRequest(t, "t1"), func(resp *wire.RegistrationResponse, err error) {
		require.NoError(t, err)
		got = resp
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "t1", got.Token)
	assert.Equal(t, wire.StatusSuccess, got.Status)
	assert.Len(t, lb.Sent(), 1)
}

func TestLoopbackDropAndNotify(t *testing.T) {
	lb := NewLoopback(nil)
	lb.DropRequests = true

	delivered := false
	require.NoError(t, lb.SendRegistration(testRequest(t, "t2"), func(*wire.RegistrationResponse, error) {
		delivered = true
	}))
	assert.False(t, delivered, "dropped request delivered a response")
	assert.Equal(t, "t2", lb.LastSent().Token)

	var ntfTarget ip6.Address
	lb.OnNotification(func(ntf *wire.AddressNotification) { ntfTarget = ntf.Target })
	addr, err := ip6.ParseAddress("fd00::dead")
	require.NoError(t, err)
	lb.Notify(&wire.AddressNotification{Target: addr})
	assert.Equal(t, addr, ntfTarget)
}

func TestUDPRoundTrip(t *testing.T) {
	server := NewServer(ServerConfig{ListenAddress: "127.0.0.1:0"},
		RegistrationHandlerFunc(func(req *wire.RegistrationRequest, _ net.Addr) *wire.RegistrationResponse {
			return &wire.RegistrationResponse{Token: req.Token, Status: wire.StatusNotReady, Target: req.Target}
		}))
	require.NoError(t, server.Start())
	defer server.Stop()

	ep, err := NewEndpoint(EndpointConfig{
		LocalAddress:   "127.0.0.1:0",
		ServerAddress:  server.Addr().String(),
		RequestTimeout: 2 * time.Second,
	})
	require.NoError(t, err)
	defer ep.Close()

	respCh := make(chan *wire.RegistrationResponse, 1)
	err = ep.SendRegistration(testRequest(t, "udp-1"), func(resp *wire.RegistrationResponse, err error) {
		require.NoError(t, err)
		respCh <- resp
	})
	require.NoError(t, err)

	select {
	case resp := <-respCh:
		assert.Equal(t, "udp-1", resp.Token)
		assert.Equal(t, wire.StatusNotReady, resp.Status)
	case <-time.After(3 * time.Second):
		t.Fatal("no response within deadline")
	}
}

func TestUDPTimeout(t *testing.T) {
	// Server that never answers.
	server := NewServer(ServerConfig{ListenAddress: "127.0.0.1:0"},
		RegistrationHandlerFunc(func(*wire.RegistrationRequest, net.Addr) *wire.RegistrationResponse {
			return nil
		}))
	require.NoError(t, server.Start())
	defer server.Stop()

	ep, err := NewEndpoint(EndpointConfig{
		LocalAddress:   "127.0.0.1:0",
		ServerAddress:  server.Addr().String(),
		RequestTimeout: 100 * time.Millisecond,
	})
	require.NoError(t, err)
	defer ep.Close()

	errCh := make(chan error, 1)
	err = ep.SendRegistration(testRequest(t, "udp-2"), func(resp *wire.RegistrationResponse, err error) {
		errCh <- err
	})
	require.NoError(t, err)

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrTimeout)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout handler never fired")
	}
}

func TestUDPNotification(t *testing.T) {
	server := NewServer(ServerConfig{ListenAddress: "127.0.0.1:0"}, RegistrationHandlerFunc(
		func(*wire.RegistrationRequest, net.Addr) *wire.RegistrationResponse { return nil }))
	require.NoError(t, server.Start())
	defer server.Stop()

	ep, err := NewEndpoint(EndpointConfig{
		LocalAddress:  "127.0.0.1:0",
		ServerAddress: server.Addr().String(),
	})
	require.NoError(t, err)
	defer ep.Close()

	ntfCh := make(chan *wire.AddressNotification, 1)
	ep.OnNotification(func(ntf *wire.AddressNotification) { ntfCh <- ntf })

	target, err := ip6.ParseAddress("fd00::beef")
	require.NoError(t, err)
	to := ep.LocalAddr().(*net.UDPAddr)
	require.NoError(t, server.SendNotification(to, &wire.AddressNotification{Target: target}))

	select {
	case ntf := <-ntfCh:
		assert.Equal(t, target, ntf.Target)
	case <-time.After(2 * time.Second):
		t.Fatal("notification not delivered")
	}
}

func TestEndpointNoServer(t *testing.T) {
	ep, err := NewEndpoint(EndpointConfig{LocalAddress: "127.0.0.1:0"})
	require.NoError(t, err)
	defer ep.Close()

	err = ep.SendRegistration(testRequest(t, "t3"), func(*wire.RegistrationResponse, error) {})
	assert.ErrorIs(t, err, ErrNoServer)
}

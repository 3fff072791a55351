package xr872

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loopbackPair binds a Transport whose "drone" lives on 127.0.0.1 at two
// freshly chosen ports. The Transport itself binds locally to ephemeral
// ports, mirroring production where only the drone's ports are fixed.
func loopbackPair(t *testing.T) (*Transport, Config) {
	t.Helper()
	cfg := DefaultConfig("127.0.0.1")
	cfg.CtlPort = freePort(t)
	cfg.VideoPort = freePort(t)

	tr := NewTransport(cfg, testLogger())
	require.NoError(t, tr.Bind())
	t.Cleanup(func() { tr.Close() })
	return tr, cfg
}

// freePort reserves a loopback UDP port number by briefly binding to it.
func freePort(t *testing.T) uint16 {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer conn.Close()
	return uint16(conn.LocalAddr().(*net.UDPAddr).Port)
}

// dronePeer stands in for the aircraft: a plain UDP socket listening on
// the drone's fixed port, which Transport's "connected" socket addresses.
func dronePeer(t *testing.T, port uint16) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: int(port)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestTransportSendControlRoundTrip(t *testing.T) {
	tr, cfg := loopbackPair(t)
	peer := dronePeer(t, cfg.CtlPort)

	frame := EncodeControlFrame(EncodeFrameInput{Roll: 10})
	require.NoError(t, tr.SendControl(frame))

	peer.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 64)
	n, _, err := peer.ReadFromUDP(buf)
	require.NoError(t, err)
	assert.Equal(t, frame[:], buf[:n])
}

func TestTransportRunCtlReceiverInvokesCallback(t *testing.T) {
	tr, cfg := loopbackPair(t)
	peer := dronePeer(t, cfg.CtlPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan []byte, 1)
	go tr.RunCtlReceiver(ctx, func(pkt []byte) { received <- pkt })

	// The drone only learns the ground station's ephemeral port once a
	// packet arrives from it, so establish that first.
	require.NoError(t, tr.SendHeartbeat())
	buf := make([]byte, 64)
	peer.SetReadDeadline(time.Now().Add(time.Second))
	_, fromAddr, err := peer.ReadFromUDP(buf)
	require.NoError(t, err)

	_, err = peer.WriteToUDP([]byte{0x66, 0x0F}, fromAddr)
	require.NoError(t, err)

	select {
	case pkt := <-received:
		assert.Equal(t, []byte{0x66, 0x0F}, pkt)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for received packet")
	}
}

func TestTransportConsecutiveSendFailuresResetsOnSuccess(t *testing.T) {
	tr, _ := loopbackPair(t)
	tr.sendFailures.Store(2)

	frame := EncodeControlFrame(EncodeFrameInput{})
	require.NoError(t, tr.SendControl(frame))
	assert.Equal(t, uint32(0), tr.ConsecutiveSendFailures())
}

func TestTransportSendTripleOrdering(t *testing.T) {
	tr, cfg := loopbackPair(t)
	peer := dronePeer(t, cfg.CtlPort)

	triple := BuildCommandTriple(0x01, 0x02)
	go tr.SendTriple(triple)

	peer.SetReadDeadline(time.Now().Add(2 * time.Second))
	for i := 0; i < 3; i++ {
		buf := make([]byte, 16)
		n, _, err := peer.ReadFromUDP(buf)
		require.NoError(t, err)
		assert.Equal(t, triple[i][:], buf[:n], "packets must arrive in sequence order")
	}
}

package mqttv5

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamWritePacket(t *testing.T) {
	t.Run("writes a single packet and returns its length", func(t *testing.T) {
		client, server := net.Pipe()
		defer client.Close()
		defer server.Close()

		s := newStream(client, false, 0)

		read := make(chan []byte, 1)
		go func() {
			buf := make([]byte, 256)
			n, _ := server.Read(buf)
			read <- buf[:n]
		}()

		pkt := &PingreqPacket{}
		n, err := s.WritePacket(pkt, 0)
		require.NoError(t, err)
		assert.Equal(t, 2, n) // fixed header only, no variable/payload

		got := <-read
		assert.Equal(t, []byte{0xC0, 0x00}, got)
	})

	t.Run("rejects an invalid packet before touching the connection", func(t *testing.T) {
		client, server := net.Pipe()
		defer client.Close()
		defer server.Close()

		s := newStream(client, false, 0)

		pkt := &SubscribePacket{PacketID: 1} // no subscriptions: invalid
		_, err := s.WritePacket(pkt, 0)
		assert.Error(t, err)
	})

	t.Run("enforces maxSize", func(t *testing.T) {
		client, server := net.Pipe()
		defer client.Close()
		defer server.Close()

		s := newStream(client, false, 0)

		pkt := &PublishPacket{Topic: "t", Payload: make([]byte, 1024)}
		_, err := s.WritePacket(pkt, 10)
		assert.ErrorIs(t, err, ErrPacketTooLarge)
	})

	t.Run("write to a nil connection fails", func(t *testing.T) {
		s := newStream(nil, false, 0)
		_, err := s.WritePacket(&PingreqPacket{}, 0)
		assert.ErrorIs(t, err, ErrNotConnected)
	})
}

func TestStreamConcurrentWriters(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	s := newStream(client, true, 0)

	const writers = 20
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		buf := make([]byte, 4096)
		total := 0
		for total < writers*2 {
			n, err := server.Read(buf)
			if err != nil {
				return
			}
			total += n
		}
	}()

	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.WritePacket(&PingreqPacket{}, 0)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	select {
	case <-drained:
	case <-time.After(time.Second):
		t.Fatal("server did not receive all queued writes")
	}
}

func TestStreamRebind(t *testing.T) {
	client1, server1 := net.Pipe()
	defer server1.Close()

	s := newStream(client1, false, 0)
	client1.Close()

	client2, server2 := net.Pipe()
	defer client2.Close()
	defer server2.Close()

	s.rebind(client2)

	read := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 256)
		n, _ := server2.Read(buf)
		read <- buf[:n]
	}()

	_, err := s.WritePacket(&PingreqPacket{}, 0)
	require.NoError(t, err)

	select {
	case got := <-read:
		assert.Equal(t, []byte{0xC0, 0x00}, got)
	case <-time.After(time.Second):
		t.Fatal("rebound stream did not deliver write to the new connection")
	}
}

func TestStreamWriteTimeout(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	s := newStream(client, false, 5*time.Millisecond)

	// net.Pipe has no internal buffer, so a write with nothing reading on
	// the other end blocks until the deadline fires.
	_, err := s.WritePacket(&PingreqPacket{}, 0)
	assert.Error(t, err)
	var netErr net.Error
	if ok := isNetTimeoutErr(err, &netErr); ok {
		assert.True(t, netErr.Timeout())
	}
}

func isNetTimeoutErr(err error, target *net.Error) bool {
	for err != nil {
		if ne, ok := err.(net.Error); ok {
			*target = ne
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

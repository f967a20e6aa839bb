package mqttv5

import (
	"net"
	"time"
)

// Stream serializes writes to a connection through a single logical writer.
// Concurrent callers queue their encoded packets instead of racing on
// conn.Write; whichever caller finds the queue idle becomes the writer for
// that pass and drains everything queued while it works, including buffers
// added by other callers after it started. When bulkWrite is enabled this
// coalesces bursts of small packets (e.g. a batch of QoS 0 publishes) into
// fewer underlying Write calls.
// MQTT v5.0 spec: Section 4.2 framing.
type Stream struct {
	bulkWrite    bool
	writeTimeout time.Duration

	mu      chan struct{} // 1-buffered mutex; never blocks drain's own re-checks
	conn    net.Conn
	pending [][]byte
	writing bool
}

func newStream(conn net.Conn, bulkWrite bool, writeTimeout time.Duration) *Stream {
	s := &Stream{
		bulkWrite:    bulkWrite,
		writeTimeout: writeTimeout,
		mu:           make(chan struct{}, 1),
		conn:         conn,
	}
	s.mu <- struct{}{}
	return s
}

func (s *Stream) lock()   { <-s.mu }
func (s *Stream) unlock() { s.mu <- struct{}{} }

// rebind points the stream at a new connection after reconnect and drops any
// buffers queued for the previous, now-dead connection.
func (s *Stream) rebind(conn net.Conn) {
	s.lock()
	s.conn = conn
	s.pending = nil
	s.writing = false
	s.unlock()
}

// WritePacket validates and encodes pkt, then queues the bytes for writing.
// Returns the number of bytes written once this caller's data has actually
// reached the connection (or the first write error encountered draining the
// queue, which may belong to a different caller's buffer than this one's).
func (s *Stream) WritePacket(pkt Packet, maxSize uint32) (int, error) {
	if err := pkt.Validate(); err != nil {
		return 0, err
	}

	var buf bytesBuffer
	n, err := pkt.Encode(&buf)
	if err != nil {
		return 0, err
	}
	if maxSize > 0 && uint32(n) > maxSize {
		return 0, ErrPacketTooLarge
	}

	return s.write(buf.Bytes())
}

func (s *Stream) write(b []byte) (int, error) {
	s.lock()
	if s.conn == nil {
		s.unlock()
		return 0, ErrNotConnected
	}
	s.pending = append(s.pending, b)
	if s.writing {
		// Another goroutine owns the drain loop and will carry this
		// buffer through on its next pass.
		s.unlock()
		return len(b), nil
	}
	s.writing = true
	s.unlock()

	return s.drain()
}

// drain scatters whatever is queued to the connection, re-checking the queue
// after each physical write so buffers gathered while it was writing go out
// before drain gives up ownership.
func (s *Stream) drain() (int, error) {
	total := 0
	for {
		s.lock()
		batch := s.pending
		s.pending = nil
		if len(batch) == 0 {
			s.writing = false
			s.unlock()
			return total, nil
		}
		conn := s.conn
		s.unlock()

		if s.writeTimeout > 0 {
			conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
		}

		n, err := s.writeBatch(conn, batch)
		total += n

		if s.writeTimeout > 0 {
			conn.SetWriteDeadline(time.Time{})
		}

		if err != nil {
			s.lock()
			s.writing = false
			s.unlock()
			return total, err
		}
	}
}

// writeBatch writes the queued buffers to conn. With bulk-write coalescing
// enabled and more than one buffer queued, it hands the batch to net.Buffers
// so the runtime can issue a single writev(2) instead of one Write call per
// buffer.
func (s *Stream) writeBatch(conn net.Conn, batch [][]byte) (int, error) {
	if s.bulkWrite && len(batch) > 1 {
		bufs := net.Buffers(batch)
		n, err := bufs.WriteTo(conn)
		return int(n), err
	}

	total := 0
	for _, b := range batch {
		n, err := conn.Write(b)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

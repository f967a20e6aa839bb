package mqttv5

import (
	"context"
	"net"
	"sync/atomic"
	"time"
)

// EndpointState describes where a connection sits in its lifecycle.
// MQTT v5.0 spec: Section 4.3 (endpoint state machine)
type EndpointState int32

const (
	EndpointDisconnected EndpointState = iota
	EndpointConnecting
	EndpointConnected
	EndpointDisconnecting
)

// Endpoint is the per-connection actor that owns everything scoped to a
// single network connection: the framing stream, packet-id allocation, the
// ordered in-flight record used for deterministic resend, topic alias
// tables, and flow control in both directions. Client owns an Endpoint and
// drives it; Endpoint never dials or reconnects on its own.
type Endpoint struct {
	state atomic.Int32

	stream   *Stream
	packetID *packetIDAllocator
	inflight *InflightStore

	sendFlow *FlowController
	recvFlow *FlowController

	topicAliases *TopicAliasManager

	autoPubResponse           bool
	autoPingResponse          bool
	autoMapTopicAliasSend     bool
	autoReplaceTopicAliasSend bool
	pingRespRecvTimeout       time.Duration

	lastPingSent atomic.Int64
}

// newEndpoint builds an Endpoint bound to conn, configured from options.
// inboundAliasMax/outboundAliasMax mirror what the client previously passed
// to NewTopicAliasManager directly.
func newEndpoint(conn net.Conn, opts *clientOptions) *Endpoint {
	e := &Endpoint{
		stream:                    newStream(conn, opts.bulkWrite, opts.writeTimeout),
		packetID:                  newPacketIDAllocator(),
		inflight:                  newInflightStore(),
		sendFlow:                  NewFlowController(65535),
		recvFlow:                  NewFlowController(opts.receiveMaximum),
		topicAliases:              NewTopicAliasManager(opts.topicAliasMaximum, 0),
		autoPubResponse:           opts.autoPubResponse,
		autoPingResponse:          opts.autoPingResponse,
		autoMapTopicAliasSend:     opts.autoMapTopicAliasSend,
		autoReplaceTopicAliasSend: opts.autoReplaceTopicAliasSend,
		pingRespRecvTimeout:       opts.pingRespRecvTimeout,
	}
	e.state.Store(int32(EndpointConnecting))
	return e
}

// Rebind points the endpoint at a freshly dialed connection, clearing the
// write queue of anything destined for the previous socket. It does not
// touch packet ids, in-flight records, or topic aliases; callers decide
// separately whether those survive based on whether the server resumed the
// session.
func (e *Endpoint) Rebind(conn net.Conn) {
	e.stream.rebind(conn)
	e.state.Store(int32(EndpointConnecting))
}

func (e *Endpoint) State() EndpointState {
	return EndpointState(e.state.Load())
}

func (e *Endpoint) SetState(s EndpointState) {
	e.state.Store(int32(s))
}

// WritePacket queues pkt on the endpoint's framing stream.
func (e *Endpoint) WritePacket(pkt Packet, maxSize uint32) (int, error) {
	return e.stream.WritePacket(pkt, maxSize)
}

// AllocatePacketID returns the smallest currently unused packet id, or
// blocks until one is released or ctx is done. MQTT v5.0 spec: Section
// 2.2.1 requires ids be reused only after release; this additionally
// guarantees "smallest free id" allocation and FIFO fairness among callers
// waiting on exhaustion instead of failing the call outright.
func (e *Endpoint) AllocatePacketID(ctx context.Context) (uint16, error) {
	return e.packetID.acquireWait(ctx)
}

// ReleasePacketID frees id for reuse and wakes the oldest waiter, if any.
func (e *Endpoint) ReleasePacketID(id uint16) {
	e.packetID.release(id)
}

// ResetPacketIDs discards all allocations, e.g. when a session is not
// resumed and old in-flight ids no longer mean anything to the new
// connection.
func (e *Endpoint) ResetPacketIDs() {
	e.packetID.reset()
}

// Inflight returns the ordered store of outbound QoS 1/2 packet ids awaiting
// acknowledgment, used to resend in original send order after reconnect.
func (e *Endpoint) Inflight() *InflightStore {
	return e.inflight
}

// TopicAliases returns the bidirectional alias table for this connection.
func (e *Endpoint) TopicAliases() *TopicAliasManager {
	return e.topicAliases
}

func (e *Endpoint) SendFlow() *FlowController { return e.sendFlow }
func (e *Endpoint) RecvFlow() *FlowController { return e.recvFlow }

// AutoPubResponse reports whether the endpoint should automatically send
// PUBACK/PUBREC/PUBCOMP for inbound PUBLISH/PUBREL, rather than leaving
// acknowledgment to application code.
func (e *Endpoint) AutoPubResponse() bool { return e.autoPubResponse }

// AutoPingResponse reports whether the endpoint should automatically answer
// PINGREQ with PINGRESP. Client is always the one sending PINGREQ, so this
// only matters for endpoints acting as the receiving side of a connection.
func (e *Endpoint) AutoPingResponse() bool { return e.autoPingResponse }

// PrepareOutboundAlias applies this connection's topic-alias send policy to
// an outbound PUBLISH. When autoMapTopicAliasSend is off this is a no-op.
// Otherwise it assigns (or reuses) an outbound alias for pkt.Topic and sets
// PropTopicAlias; when autoReplaceTopicAliasSend is also set and an alias
// was already established for this topic on a prior publish, it elides the
// topic name entirely, since MQTT v5 spec Section 3.3.2.3.4 only requires
// the topic name on the publish that first establishes the mapping.
func (e *Endpoint) PrepareOutboundAlias(pkt *PublishPacket) {
	if !e.autoMapTopicAliasSend || pkt.Topic == "" {
		return
	}

	if existing := e.topicAliases.GetOutbound(pkt.Topic); existing != 0 {
		pkt.Props.Set(PropTopicAlias, existing)
		if e.autoReplaceTopicAliasSend {
			pkt.Topic = ""
		}
		return
	}

	if alias := e.topicAliases.GetOrCreateOutbound(pkt.Topic); alias != 0 {
		pkt.Props.Set(PropTopicAlias, alias)
	}
}

// NotePingSent records that a PINGREQ was just written, for
// PINGRESP-timeout tracking by the caller's keep-alive loop.
func (e *Endpoint) NotePingSent() {
	e.lastPingSent.Store(time.Now().UnixNano())
}

// PingOverdue reports whether a PINGREQ was sent more than
// pingRespRecvTimeout ago with no PINGRESP observed since (the caller
// clears the mark via ClearPingSent on PINGRESP receipt).
func (e *Endpoint) PingOverdue() bool {
	sent := e.lastPingSent.Load()
	if sent == 0 {
		return false
	}
	return time.Since(time.Unix(0, sent)) > e.pingRespRecvTimeout
}

// ClearPingSent marks the outstanding PINGREQ, if any, as answered.
func (e *Endpoint) ClearPingSent() {
	e.lastPingSent.Store(0)
}

// Reset clears packet ids, in-flight records, and topic aliases. Used when
// reconnecting without session resumption: the server has no memory of the
// previous connection, so none of this state means anything to it anymore.
func (e *Endpoint) Reset() {
	e.packetID.reset()
	e.inflight.Reset()
	e.topicAliases.Clear()
	e.sendFlow = NewFlowController(65535)
	e.recvFlow.Reset()
}

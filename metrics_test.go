package mqttv5

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoOpMetrics(t *testing.T) {
	metrics := &NoOpMetrics{}

	t.Run("all operations are no-ops", func(_ *testing.T) {
		metrics.Counter("c", nil).Inc()
		metrics.Gauge("g", nil).Set(1)
		metrics.Histogram("h", nil).Observe(1)
	})
}

func TestMetricTypeString(t *testing.T) {
	assert.Equal(t, "counter", MetricTypeCounter.String())
	assert.Equal(t, "gauge", MetricTypeGauge.String())
	assert.Equal(t, "histogram", MetricTypeHistogram.String())
	assert.Equal(t, "unknown", MetricType(99).String())
}

func TestClientMetrics(t *testing.T) {
	t.Run("connection lifecycle", func(t *testing.T) {
		mem := NewMemoryMetrics()
		cm := NewClientMetrics(mem)

		cm.ConnectionOpened()
		cm.ConnectionOpened()
		cm.ConnectionClosed()

		assert.Equal(t, float64(1), mem.GetGauge(MetricConnections, nil).Value())
		assert.Equal(t, float64(2), mem.GetCounter(MetricConnectionsTotal, nil).Value())
	})

	t.Run("message counters by qos", func(t *testing.T) {
		mem := NewMemoryMetrics()
		cm := NewClientMetrics(mem)

		cm.MessageReceived(1)
		cm.MessageReceived(1)
		cm.MessageSent(2)

		received := mem.GetCounter(MetricMessagesReceived, MetricLabels{LabelQoS: "1"})
		sent := mem.GetCounter(MetricMessagesSent, MetricLabels{LabelQoS: "2"})
		assert.Equal(t, float64(2), received.Value())
		assert.Equal(t, float64(1), sent.Value())
	})

	t.Run("byte counters", func(t *testing.T) {
		mem := NewMemoryMetrics()
		cm := NewClientMetrics(mem)

		cm.BytesReceived(100)
		cm.BytesReceived(200)
		cm.BytesSent(150)

		assert.Equal(t, float64(300), mem.GetCounter(MetricBytesReceived, nil).Value())
		assert.Equal(t, float64(150), mem.GetCounter(MetricBytesSent, nil).Value())
	})

	t.Run("subscription gauge", func(t *testing.T) {
		mem := NewMemoryMetrics()
		cm := NewClientMetrics(mem)

		cm.SubscriptionAdded()
		cm.SubscriptionAdded()
		cm.SubscriptionRemoved()

		assert.Equal(t, float64(1), mem.GetGauge(MetricSubscriptions, nil).Value())
	})

	t.Run("publish latency histogram", func(t *testing.T) {
		mem := NewMemoryMetrics()
		cm := NewClientMetrics(mem)

		cm.PublishLatency(10 * time.Millisecond)
		cm.PublishLatency(20 * time.Millisecond)

		h := mem.GetHistogram(MetricPublishLatency, nil)
		assert.Equal(t, uint64(2), h.Count())
	})

	t.Run("packet counters by type", func(t *testing.T) {
		mem := NewMemoryMetrics()
		cm := NewClientMetrics(mem)

		cm.PacketReceived(PacketCONNECT)
		cm.PacketReceived(PacketPUBLISH)
		cm.PacketReceived(PacketPUBLISH)
		cm.PacketSent(PacketCONNACK)

		assert.Equal(t, float64(1), mem.GetCounter(MetricPacketsReceived, MetricLabels{LabelPacketType: PacketCONNECT.String()}).Value())
		assert.Equal(t, float64(2), mem.GetCounter(MetricPacketsReceived, MetricLabels{LabelPacketType: PacketPUBLISH.String()}).Value())
		assert.Equal(t, float64(1), mem.GetCounter(MetricPacketsSent, MetricLabels{LabelPacketType: PacketCONNACK.String()}).Value())
	})

	t.Run("works against the no-op backend", func(_ *testing.T) {
		cm := NewClientMetrics(&NoOpMetrics{})
		cm.ConnectionOpened()
		cm.MessageReceived(0)
		cm.PacketSent(PacketPINGREQ)
	})
}

func TestMetricsInterface(t *testing.T) {
	t.Run("NoOpMetrics implements Metrics", func(_ *testing.T) {
		var _ Metrics = &NoOpMetrics{}
	})

	t.Run("MemoryMetrics implements Metrics", func(_ *testing.T) {
		var _ Metrics = NewMemoryMetrics()
	})
}

func BenchmarkClientMetricsConnectionOpened(b *testing.B) {
	cm := NewClientMetrics(NewMemoryMetrics())

	b.ResetTimer()
	b.ReportAllocs()

	for b.Loop() {
		cm.ConnectionOpened()
	}
}

func BenchmarkClientMetricsMessageReceived(b *testing.B) {
	cm := NewClientMetrics(NewMemoryMetrics())

	b.ResetTimer()
	b.ReportAllocs()

	for b.Loop() {
		cm.MessageReceived(1)
	}
}

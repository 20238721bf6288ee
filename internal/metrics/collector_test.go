package metrics

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

// nextTestNamespace keeps instruments unique on the default registry.
func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

// --- Construction ---

func TestNewCollector(t *testing.T) {
	c := NewCollector(nextTestNamespace(), zap.NewNop())

	assert.NotNil(t, c)
	assert.NotNil(t, c.sessionsActive)
	assert.NotNil(t, c.eventsTotal)
	assert.NotNil(t, c.pipelineDuration)
	assert.NotNil(t, c.adapterFailures)
}

// --- Recording ---

func TestCollector_SessionLifecycle(t *testing.T) {
	c := NewCollector(nextTestNamespace(), zap.NewNop())

	c.SessionOpened()
	c.SessionOpened()
	c.SessionClosed()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.sessionsActive))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.sessionsTotal))
}

func TestCollector_Counters(t *testing.T) {
	c := NewCollector(nextTestNamespace(), zap.NewNop())

	c.EventReceived("media")
	c.EventReceived("media")
	c.EventReceived("closed")
	c.FrameDropped()
	c.MessageSent("clear")
	c.AdapterFailure("tts")
	c.ObservePipeline(50 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.eventsTotal.WithLabelValues("media")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.eventsTotal.WithLabelValues("closed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.framesDropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.outboundMessages.WithLabelValues("clear")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.adapterFailures.WithLabelValues("tts")))
}

// --- Nil safety ---

func TestCollector_NilReceiverIsNoop(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.SessionOpened()
		c.SessionClosed()
		c.EventReceived("media")
		c.FrameDropped()
		c.MessageSent("media")
		c.ObservePipeline(time.Millisecond)
		c.AdapterFailure("stt")
	})
}

package lifecycle

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semcache/metric"
)

func TestNotifier_PostDeliversToAllSubscribers(t *testing.T) {
	n := NewNotifier()

	var got1, got2 []Signal
	sub1, err := n.Subscribe(func(s Signal) { got1 = append(got1, s) })
	require.NoError(t, err)
	sub2, err := n.Subscribe(func(s Signal) { got2 = append(got2, s) })
	require.NoError(t, err)
	defer sub1.Unsubscribe()
	defer sub2.Unsubscribe()

	n.Post(SignalMemoryWarning)
	n.Post(SignalDidEnterBackground)

	expected := []Signal{SignalMemoryWarning, SignalDidEnterBackground}
	assert.Equal(t, expected, got1)
	assert.Equal(t, expected, got2)
	assert.Equal(t, 2, n.Len())
}

func TestNotifier_UnsubscribeStopsDelivery(t *testing.T) {
	n := NewNotifier()

	var count atomic.Int32
	sub, err := n.Subscribe(func(Signal) { count.Add(1) })
	require.NoError(t, err)

	n.Post(SignalMemoryWarning)
	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, sub.Unsubscribe(), "second unsubscribe is a no-op")
	n.Post(SignalMemoryWarning)

	assert.Equal(t, int32(1), count.Load())
	assert.Equal(t, 0, n.Len())
}

func TestNotifier_UnsubscribeWaitsForInFlightHandler(t *testing.T) {
	n := NewNotifier()

	entered := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool

	sub, err := n.Subscribe(func(Signal) {
		close(entered)
		<-release
		finished.Store(true)
	})
	require.NoError(t, err)

	go n.Post(SignalMemoryWarning)
	<-entered

	unsubscribed := make(chan struct{})
	go func() {
		_ = sub.Unsubscribe()
		close(unsubscribed)
	}()

	select {
	case <-unsubscribed:
		t.Fatal("Unsubscribe returned while the handler was still running")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-unsubscribed
	assert.True(t, finished.Load())
}

func TestNotifier_ConcurrentPostAndSubscribe(t *testing.T) {
	n := NewNotifier()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub, err := n.Subscribe(func(Signal) {})
			assert.NoError(t, err)
			_ = sub.Unsubscribe()
		}()
		go func() {
			defer wg.Done()
			n.Post(SignalDidEnterBackground)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, n.Len())
}

func TestNotifier_RecordsMetrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	n := NewNotifier(WithMetrics(registry))

	n.Post(SignalMemoryWarning)

	received := registry.CoreMetrics().SignalsReceived.WithLabelValues("process", "memory_warning")
	assert.Equal(t, float64(1), testutil.ToFloat64(received))
}

func TestDefault_IsSingleton(t *testing.T) {
	assert.Same(t, Default(), Default())
}

package lifecycle

import (
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"github.com/c360/semcache/errors"
	"github.com/c360/semcache/metric"
)

// Signal is a host lifecycle event that may trigger bulk eviction.
type Signal int

const (
	// SignalDidEnterBackground is raised when the host moves the process to the background.
	SignalDidEnterBackground Signal = iota + 1
	// SignalMemoryWarning is raised when the host reports memory pressure.
	SignalMemoryWarning
)

// String returns the wire name of the signal.
func (s Signal) String() string {
	switch s {
	case SignalDidEnterBackground:
		return "background"
	case SignalMemoryWarning:
		return "memory_warning"
	default:
		return fmt.Sprintf("signal(%d)", int(s))
	}
}

// ParseSignal parses a wire name produced by Signal.String.
func ParseSignal(name string) (Signal, error) {
	switch name {
	case "background":
		return SignalDidEnterBackground, nil
	case "memory_warning":
		return SignalMemoryWarning, nil
	default:
		return 0, errors.WrapInvalid(errors.ErrUnknownSignal, "lifecycle", "ParseSignal", fmt.Sprintf("parse %q", name))
	}
}

// Signals returns every known signal.
func Signals() []Signal {
	return []Signal{SignalDidEnterBackground, SignalMemoryWarning}
}

// Handler receives lifecycle signals.
type Handler func(Signal)

// Subscription is a live registration with a Source.
type Subscription interface {
	// Unsubscribe stops delivery. Once it returns, the handler is not running
	// and will not be called again. Calling it more than once is a no-op.
	// It must not be called from inside the handler it cancels.
	Unsubscribe() error
}

// Source delivers lifecycle signals to subscribers.
type Source interface {
	Subscribe(h Handler) (Subscription, error)
}

// NopSource is a Source that never emits. It stands in on hosts without
// lifecycle signals.
type NopSource struct{}

// Subscribe returns a subscription that never fires.
func (NopSource) Subscribe(Handler) (Subscription, error) {
	return nopSubscription{}, nil
}

type nopSubscription struct{}

func (nopSubscription) Unsubscribe() error { return nil }

// Option configures sources, monitors and publishers in this package.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics *metric.Metrics
	limiter *rate.Limiter
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records signal activity in the registry's core metrics.
// A nil registry is ignored.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(o *options) {
		if registry != nil {
			o.metrics = registry.CoreMetrics()
		}
	}
}

// WithPublishLimit caps NATSPublisher at perSecond signals with the given
// burst. Signals over the limit are rejected without touching the
// connection. Only publishers honor it; perSecond <= 0 means no limit.
func WithPublishLimit(perSecond float64, burst int) Option {
	return func(o *options) {
		if perSecond <= 0 {
			o.limiter = nil
			return
		}
		o.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
	}
}

func applyOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

func (o options) recordSignal(source string, s Signal) {
	if o.metrics != nil {
		o.metrics.RecordSignal(source, s.String())
	}
}

// guardedHandler serializes delivery to one handler and lets Unsubscribe
// wait out an in-flight call.
type guardedHandler struct {
	mu      sync.Mutex
	handler Handler
	stopped bool
}

func (g *guardedHandler) deliver(s Signal) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.stopped {
		g.handler(s)
	}
}

// stop reports whether this call performed the transition.
func (g *guardedHandler) stop() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopped {
		return false
	}
	g.stopped = true
	return true
}

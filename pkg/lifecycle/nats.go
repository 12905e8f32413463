package lifecycle

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/semcache/errors"
)

// DefaultSubjectPrefix is the subject prefix lifecycle signals travel under.
const DefaultSubjectPrefix = "semcache.lifecycle"

// Subject returns the NATS subject carrying s under prefix.
func Subject(prefix string, s Signal) string {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return prefix + "." + s.String()
}

// NATSSource delivers lifecycle signals published on NATS subjects
// <prefix>.background and <prefix>.memory_warning. Payloads are ignored.
type NATSSource struct {
	conn   *nats.Conn
	prefix string
	opts   options
}

// NewNATSSource creates a source on an established connection.
func NewNATSSource(conn *nats.Conn, prefix string, opts ...Option) *NATSSource {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSSource{conn: conn, prefix: prefix, opts: applyOptions(opts)}
}

// Subscribe registers h for every known signal subject.
func (s *NATSSource) Subscribe(h Handler) (Subscription, error) {
	if s.conn == nil || s.conn.IsClosed() {
		return nil, errors.WrapTransient(errors.ErrNoConnection, "NATSSource", "Subscribe", "subscribe to signals")
	}

	g := &guardedHandler{handler: h}
	sub, err := s.conn.Subscribe(s.prefix+".*", func(msg *nats.Msg) {
		name := strings.TrimPrefix(msg.Subject, s.prefix+".")
		sig, err := ParseSignal(name)
		if err != nil {
			s.opts.logger.Warn("Dropping unknown lifecycle signal", "subject", msg.Subject)
			return
		}
		s.opts.recordSignal("nats", sig)
		g.deliver(sig)
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "NATSSource", "Subscribe", "subscribe to signals")
	}

	// Make sure the server has the interest registered before we report success.
	if err := s.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, errors.WrapTransient(err, "NATSSource", "Subscribe", "flush subscription")
	}

	return &natsSubscription{sub: sub, guard: g}, nil
}

type natsSubscription struct {
	sub   *nats.Subscription
	guard *guardedHandler
}

func (s *natsSubscription) Unsubscribe() error {
	if !s.guard.stop() {
		return nil
	}
	if err := s.sub.Unsubscribe(); err != nil && !errorsIsClosed(err) {
		return errors.WrapTransient(err, "NATSSource", "Unsubscribe", "unsubscribe from signals")
	}
	return nil
}

func errorsIsClosed(err error) bool {
	return stderrors.Is(err, nats.ErrConnectionClosed) || stderrors.Is(err, nats.ErrBadSubscription)
}

// NATSPublisher publishes lifecycle signals for NATSSource subscribers.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
	opts   options
}

// NewNATSPublisher creates a publisher on an established connection.
func NewNATSPublisher(conn *nats.Conn, prefix string, opts ...Option) *NATSPublisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSPublisher{conn: conn, prefix: prefix, opts: applyOptions(opts)}
}

// Publish sends s and waits until the server has acknowledged it or ctx is done.
func (p *NATSPublisher) Publish(ctx context.Context, s Signal) error {
	if p.opts.limiter != nil && !p.opts.limiter.Allow() {
		return errors.WrapTransient(errors.ErrRateLimited, "NATSPublisher", "Publish", "publish "+s.String())
	}
	if p.conn == nil {
		return errors.WrapTransient(errors.ErrNoConnection, "NATSPublisher", "Publish", "publish signal")
	}
	subject := Subject(p.prefix, s)
	if err := p.conn.Publish(subject, nil); err != nil {
		return errors.WrapTransient(err, "NATSPublisher", "Publish", "publish "+subject)
	}
	if err := p.flush(ctx); err != nil {
		return errors.WrapTransient(err, "NATSPublisher", "Publish", "flush "+subject)
	}
	if p.opts.metrics != nil {
		p.opts.metrics.RecordPublish(s.String())
	}
	p.opts.logger.Debug("Published lifecycle signal", "subject", subject)
	return nil
}

// flush falls back to the connection's default flush timeout when ctx
// carries no deadline, which FlushWithContext rejects.
func (p *NATSPublisher) flush(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		return p.conn.Flush()
	}
	return p.conn.FlushWithContext(ctx)
}

// Forward republishes every signal from src through p. Each publish is
// bounded by timeout when it is positive.
func Forward(ctx context.Context, src Source, p *NATSPublisher, timeout time.Duration) (Subscription, error) {
	return src.Subscribe(func(s Signal) {
		pubCtx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			pubCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		if err := p.Publish(pubCtx, s); err != nil {
			p.opts.logger.Error("Failed to forward lifecycle signal", "signal", s.String(), "error", err)
		}
	})
}

package lifecycle

import (
	"context"
	"os"
	"os/signal"
)

// NotifyOS relays the mapped OS signals into n until ctx is done or the
// returned stop function is called. Unmapped signals are never registered.
func NotifyOS(ctx context.Context, n *Notifier, mapping map[os.Signal]Signal) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	if len(mapping) == 0 {
		return cancel
	}

	ch := make(chan os.Signal, len(mapping))
	sigs := make([]os.Signal, 0, len(mapping))
	for sig := range mapping {
		sigs = append(sigs, sig)
	}
	signal.Notify(ch, sigs...)

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer signal.Stop(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-ch:
				if s, ok := mapping[sig]; ok {
					n.opts.logger.Info("Received OS lifecycle signal", "os_signal", sig.String(), "signal", s.String())
					n.Post(s)
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

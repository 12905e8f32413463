// Package lifecycle delivers host lifecycle signals, a background transition
// or a memory warning, to caches that want to drop their contents when the
// host asks for memory back.
//
// A Source hands out Subscriptions. Several sources are provided:
//
//   - NopSource never fires; it is the default on hosts without signals.
//   - Notifier is an in-process broadcaster. Default() returns the
//     process-wide instance, and Post delivers synchronously.
//   - NotifyOS bridges OS signals (SIGUSR1/SIGUSR2 by default on unix) into
//     a Notifier.
//   - PressureMonitor samples Linux PSI (/proc/pressure/memory) and posts a
//     memory warning when "some avg10" crosses a threshold.
//   - NATSSource receives signals published on <prefix>.background and
//     <prefix>.memory_warning; NATSPublisher and Forward are the sending side.
//
// Once Unsubscribe returns, the handler is guaranteed not to be running and
// will not run again, so a cache can tear down its subscription and know no
// late purge will reach it.
//
//	sub, err := lifecycle.Default().Subscribe(func(s lifecycle.Signal) {
//	    slog.Info("lifecycle signal", "signal", s)
//	})
//	if err != nil {
//	    return err
//	}
//	defer sub.Unsubscribe()
package lifecycle

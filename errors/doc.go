// Package errors provides classified error handling for semcache.
//
// Errors fall into three classes: Transient (temporary, retryable), Invalid
// (bad input or configuration, do not retry) and Fatal (stop processing).
// Cache operations themselves never fail; classification is used by the
// surrounding infrastructure: configuration validation, metrics registration,
// lifecycle signal subscriptions and NATS connectivity.
//
// # Wrapping
//
// All wrapping follows the format "component.method: action failed: %w":
//
//	errors.Wrap(err, "Loader", "Load", "read layer")            // preserves class
//	errors.WrapTransient(err, "NATSSource", "Subscribe", "sub") // retryable
//	errors.WrapInvalid(err, "Config", "Validate", "count_limit")
//	errors.WrapFatal(err, "Server", "Start", "listen")
//
// Classification survives wrapping and works with the standard library:
//
//	var ce *errors.ClassifiedError
//	if errors.As(err, &ce) {
//	    slog.Warn("operation failed", "component", ce.Component, "class", ce.Class)
//	}
//
// Context errors (context.DeadlineExceeded, context.Canceled) are classified
// as Transient.
package errors

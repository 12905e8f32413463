// Package retry provides exponential backoff with optional jitter.
//
// It is used where semcache talks to something outside the process, most
// notably when connecting to the NATS server that carries lifecycle signals:
//
//	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
//	    return client.Connect(ctx)
//	})
//
// Errors classified as invalid or fatal (see the errors package) end the
// loop on the first attempt; everything else is retried until MaxAttempts
// is reached or ctx is done.
package retry

// Package natsclient wraps a single NATS connection used to exchange
// lifecycle signals between processes.
//
// The Client retries the initial dial with exponential backoff, lets the
// nats.go library handle reconnection afterwards, and reports connection
// state through the metric package:
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//	    natsclient.WithName("semcache-relay"),
//	    natsclient.WithMetrics(registry),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	publisher := lifecycle.NewNATSPublisher(client.Conn(), lifecycle.DefaultSubjectPrefix)
//
// TestClient starts a throwaway NATS server in a container for integration
// tests.
package natsclient

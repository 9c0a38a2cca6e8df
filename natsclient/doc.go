// Package natsclient publishes validated meter readings to NATS.
//
// Client owns a single connection. Connect never blocks on an unreachable
// server: nats.go keeps retrying in the background and Publish fails fast
// with ErrNotConnected until the connection is up. State changes are logged
// and reported through WithStatusCallback, which the gateway wires to the
// ecoquest_nats_connected gauge.
//
// ReadingPublisher puts each reading envelope on
//
//	meters.readings.<brand>
//
// with a Nats-Msg-Id header, so a JetStream stream bound to meters.readings.>
// deduplicates retried publishes.
//
// Basic usage:
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//	    natsclient.WithName("ecoquest-gateway"),
//	    natsclient.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close(context.Background())
//
//	pub := natsclient.NewReadingPublisher(client, "")
//	err = pub.Publish(ctx, reading.BrandQube, envelope.Metadata.RequestID, envelope)
package natsclient

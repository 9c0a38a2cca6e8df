// Package testutil provides test doubles shared across ecoquest packages.
//
// MockNATSClient records publications in memory so reading publication can
// be exercised without a NATS server. It satisfies the publish side of
// natsclient.Client and plugs straight into natsclient.NewReadingPublisher:
//
//	mock := testutil.NewMockNATSClient()
//	pub := natsclient.NewReadingPublisher(mock, "")
//	gw, _ := gateway.New(cfg, gate, router, validator, gateway.WithPublisher(pub))
//
//	// ... drive requests ...
//	msgs := mock.Messages("meters.readings.qube")
package testutil

// Package health tracks the health of the vendor APIs behind the gateway.
//
// The gateway reports every vendor call outcome to a Monitor:
//
//   - success: the vendor is healthy
//   - the reading failed validation: degraded (the vendor answers, but the
//     data is not usable)
//   - transport or protocol failure: degraded, then unhealthy after
//     UnhealthyAfter consecutive failures
//
// Caller mistakes (missing token, unsupported brand, bad parameters) and
// vendor credential rejections say nothing about vendor availability and
// are not recorded.
//
// Messages are sanitised before they are stored: URLs, IP addresses, ports
// and anything that looks like a credential are replaced, since Qube puts
// its API key in the query string.
//
// Aggregate rolls vendors up into one gateway status: healthy when all
// vendors are healthy, unhealthy when none are, degraded otherwise. The
// /health endpoint serves the aggregate.
//
//	monitor := health.NewMonitor("QUBE", "SECURE", "LNT")
//	monitor.SetObserver(func(name string, s health.Status) {
//	    metrics.RecordVendorHealth(name, s.Level())
//	})
//	monitor.RecordSuccess("QUBE")
//	status := monitor.AggregateHealth("ecoquest")
package health

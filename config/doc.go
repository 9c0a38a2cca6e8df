// Package config loads the ecoquest service configuration.
//
// Configuration comes from three places, applied in order:
//
//  1. Default, which runs the gateway against the embedded vendor simulator
//     with the demo credentials.
//  2. Zero or more files, JSON or YAML by extension. Each file overrides only
//     the keys it names; unknown keys are rejected.
//  3. Environment variables prefixed ECOQUEST_, for addresses, secrets and
//     switches (ECOQUEST_QUBE_API_KEY, ECOQUEST_NATS_ENABLED, ...).
//
// Durations are written as strings ("5s", "2m", "1d").
//
// # Basic Usage
//
//	loader := config.NewLoader()
//	loader.AddLayer("configs/ecoquest.yaml")
//	loader.AddLayer("configs/production.yaml")
//
//	cfg, err := loader.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gw, err := gateway.New(cfg.GatewayConfig(), gate, router, validator)
//
// Vendor credentials are vendorapi.Credential values and never print. Use
// Config as a slog.LogValuer rather than formatting it directly.
package config

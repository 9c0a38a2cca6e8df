// Package main runs the ecoquest gateway: one authenticated HTTP surface in
// front of the Qube, Secure and L&T meter APIs, with an optional embedded
// vendor simulator and NATS publication of validated readings.
package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/YGNTECHSTARTUP/ecoquest/auth"
	"github.com/YGNTECHSTARTUP/ecoquest/config"
	"github.com/YGNTECHSTARTUP/ecoquest/gateway"
	gatewayhttp "github.com/YGNTECHSTARTUP/ecoquest/gateway/http"
	"github.com/YGNTECHSTARTUP/ecoquest/health"
	"github.com/YGNTECHSTARTUP/ecoquest/metric"
	"github.com/YGNTECHSTARTUP/ecoquest/natsclient"
	"github.com/YGNTECHSTARTUP/ecoquest/router"
	"github.com/YGNTECHSTARTUP/ecoquest/validation"
	"github.com/YGNTECHSTARTUP/ecoquest/vendorapi"
	"github.com/YGNTECHSTARTUP/ecoquest/vendorapi/lnt"
	"github.com/YGNTECHSTARTUP/ecoquest/vendorapi/qube"
	"github.com/YGNTECHSTARTUP/ecoquest/vendorapi/secure"
	"github.com/YGNTECHSTARTUP/ecoquest/vendorsim"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "ecoquest"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(os.Args[1:]); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	cli, err := parseFlags(fs, args)
	if err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("invalid flags: %w", err)
	}
	if err := validateFlags(cli); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	if cli.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cli.ShowHelp {
		fs.Usage()
		return nil
	}

	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}

	logger := setupLogger(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	if cli.Validate {
		logger.Info("Configuration is valid", "config", cfg)
		return nil
	}

	logger.Info("Starting ecoquest gateway",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cli.ConfigPath,
		"config", cfg)

	a, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return a.run(ctx)
}

// loadConfig loads the file named on the command line, if any, and applies
// flag overrides for logging.
func loadConfig(cli *CLIConfig) (*config.Config, error) {
	cfg, err := config.Load(cli.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cli.LogLevel != "" {
		cfg.Log.Level = strings.ToLower(cli.LogLevel)
	}
	if cli.LogFormat != "" {
		cfg.Log.Format = strings.ToLower(cli.LogFormat)
	}
	return cfg, nil
}

// app is the wired service.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *metric.MetricsRegistry
	health   *health.Monitor
	server   *gatewayhttp.Server
	nats     *natsclient.Client
	sim      *vendorsim.Simulator
}

// buildApp constructs every collaborator from cfg. Nothing is started.
func buildApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	if strings.ToLower(cfg.Log.Level) != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	a := &app{cfg: cfg, logger: logger, registry: metric.NewMetricsRegistry()}
	metrics := a.registry.CoreMetrics()

	vendorOpts := []vendorapi.Option{
		vendorapi.WithHTTPClient(vendorHTTPClient()),
		vendorapi.WithLogger(logger),
		vendorapi.WithTimeout(cfg.Gateway.MaxTimeout.Std()),
	}
	r, err := router.New(
		qube.New(cfg.Vendors.Qube.BaseURL, cfg.Vendors.Qube.Credential, vendorOpts...),
		secure.New(cfg.Vendors.Secure.BaseURL, cfg.Vendors.Secure.Credential, vendorOpts...),
		lnt.New(cfg.Vendors.LNT.BaseURL, cfg.Vendors.LNT.Credential, vendorOpts...),
	)
	if err != nil {
		return nil, fmt.Errorf("create router: %w", err)
	}

	names := make([]string, 0, len(r.Brands()))
	for _, b := range r.Brands() {
		names = append(names, string(b))
	}
	a.health = health.NewMonitor(names...)

	validator, err := validation.New(cfg.Validation)
	if err != nil {
		return nil, fmt.Errorf("create validator: %w", err)
	}

	verifier, err := auth.NewVerifier(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("create verifier: %w", err)
	}

	gwOpts := []gateway.Option{
		gateway.WithLogger(logger),
		gateway.WithMetrics(metrics),
		gateway.WithHealth(a.health),
	}

	if cfg.NATS.Enabled {
		opts := append(cfg.NATSOptions(),
			natsclient.WithLogger(logger),
			natsclient.WithStatusCallback(metrics.RecordNATSStatus))
		a.nats, err = natsclient.NewClient(cfg.NATS.URL, opts...)
		if err != nil {
			return nil, fmt.Errorf("create NATS client: %w", err)
		}
		gwOpts = append(gwOpts, gateway.WithPublisher(natsclient.NewReadingPublisher(a.nats, cfg.NATS.SubjectPrefix)))
	}

	gw, err := gateway.New(cfg.GatewayConfig(), auth.NewGate(verifier, logger), r, validator, gwOpts...)
	if err != nil {
		return nil, fmt.Errorf("create gateway: %w", err)
	}

	httpOpts := []gatewayhttp.Option{
		gatewayhttp.WithLogger(logger),
		gatewayhttp.WithHealth(a.health),
		gatewayhttp.WithMetricsHandler(a.registry.Handler()),
	}

	if cfg.Simulator.Enabled {
		a.sim, err = vendorsim.New(cfg.SimulatorConfig(),
			vendorsim.WithLogger(logger),
			vendorsim.WithMetrics(metrics))
		if err != nil {
			return nil, fmt.Errorf("create simulator: %w", err)
		}
		if err := a.sim.RegisterMetrics(a.registry); err != nil {
			return nil, fmt.Errorf("register simulator metrics: %w", err)
		}
		if cfg.Simulator.Addr == "" {
			httpOpts = append(httpOpts, gatewayhttp.WithRoutes(a.sim.Register))
		}
	}

	a.server, err = gatewayhttp.NewServer(gw, cfg.HTTPConfig(), httpOpts...)
	if err != nil {
		return nil, fmt.Errorf("create HTTP server: %w", err)
	}
	return a, nil
}

// servers returns the listeners to run: the gateway and, when it has its
// own address, the simulator.
func (a *app) servers() []*http.Server {
	readHeader := a.cfg.Server.ReadHeaderTimeout.Std()
	out := []*http.Server{{
		Addr:              a.cfg.Server.Addr,
		Handler:           a.server.Handler(),
		ReadHeaderTimeout: readHeader,
	}}
	if a.sim != nil && a.cfg.Simulator.Addr != "" {
		out = append(out, &http.Server{
			Addr:              a.cfg.Simulator.Addr,
			Handler:           a.sim.Handler(),
			ReadHeaderTimeout: readHeader,
		})
	}
	return out
}

// run serves until ctx is cancelled, then shuts everything down within the
// configured shutdown timeout.
func (a *app) run(ctx context.Context) error {
	if a.nats != nil {
		a.logger.Info("Connecting to NATS", "url", a.cfg.NATS.URL)
		if err := a.nats.Connect(ctx); err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
	}

	servers := a.servers()
	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			a.logger.Info("Listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("Received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Std())
		defer cancel()

		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown %s: %w", srv.Addr, err))
			}
		}
		if a.nats != nil {
			if err := a.nats.Close(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("close NATS: %w", err))
			}
		}
		return stderrors.Join(errs...)
	})

	err := g.Wait()
	total, failed := a.server.Stats()
	a.logger.Info("ecoquest shutdown complete",
		"requests", total,
		"failed", failed,
		"health", a.health.AggregateHealth(appName).Status)
	return err
}

// vendorHTTPClient is shared by the adapters. Every vendor may sit on the
// same host, as the simulator does, so idle connections are kept per host.
func vendorHTTPClient() *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.MaxIdleConnsPerHost = 32
	return &http.Client{Transport: tr}
}

package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dotdns/internal/dns/common/admission"
	"dotdns/internal/dns/common/log"
	"dotdns/internal/dns/common/metrics"
	"dotdns/internal/dns/config"
	"dotdns/internal/dns/gateways/transport"
	"dotdns/internal/dns/gateways/upstream"
	"dotdns/internal/dns/gateways/wire"
	"dotdns/internal/dns/repos/respcache"
	"dotdns/internal/dns/services/responder"
)

const (
	// Version information
	version = "0.1.0-dev"
	appName = "dotdnsd"

	// Default timeout for upstream resolution attempts
	defaultUpstreamTimeout = 5 * time.Second
)

// Application holds all the components of the DNS server.
type Application struct {
	config     *config.AppConfig
	handler    responder.Handler
	metrics    *metrics.Metrics
	transports []transport.ServerTransport
}

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Configure global logging
	err = log.Configure(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Info(map[string]any{
		"version":    version,
		"env":        cfg.Env,
		"log_level":  cfg.LogLevel,
		"udp_addr":   cfg.UDPAddr,
		"bind_addr":  cfg.BindAddr,
		"cache_size": cfg.CacheSize,
		"rate_limit": cfg.RateLimit,
		"servers":    cfg.Servers,
	}, "Starting dotdns server")

	// Build application with all dependencies
	app, err := buildApplication(cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err}, "Failed to build application")
	}

	// Setup shutdown on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info(map[string]any{"signal": sig.String()}, "Shutdown signal received")
		cancel()
	}()

	if err := app.Run(ctx); err != nil {
		log.Fatal(map[string]any{"error": err}, "Server failed")
	}

	log.Info(nil, "dotdns server stopped")
}

// buildApplication constructs all components and wires them together.
// Shared state (cache, limiter, metrics) is created once here and injected;
// nothing reaches for a global.
func buildApplication(cfg *config.AppConfig) (*Application, error) {
	logger := log.GetLogger()

	m := metrics.New()
	codec := wire.NewCodec()

	cache, err := respcache.New(int(cfg.CacheSize))
	if err != nil {
		return nil, fmt.Errorf("failed to create response cache: %w", err)
	}

	limiter := admission.New(int(cfg.RateLimit))

	upstreamClient, err := upstream.NewResolver(upstream.Options{
		Servers: cfg.Servers,
		Timeout: defaultUpstreamTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream client: %w", err)
	}

	handler := responder.New(responder.Options{
		Codec:    codec,
		Resolver: upstreamClient,
		Cache:    cache,
		Logger:   logger,
		TTL:      cfg.DefaultTTL,
		Fallback: net.ParseIP(cfg.FallbackIP),
	})

	tlsConfig, err := loadTLSConfig(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS credentials: %w", err)
	}

	udpTransport, err := transport.New(transport.TransportUDP, transport.Options{
		Addr:    cfg.UDPAddr,
		Codec:   codec,
		Logger:  logger,
		Metrics: m,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create UDP transport: %w", err)
	}

	dotTransport, err := transport.New(transport.TransportDoT, transport.Options{
		Addr:      cfg.BindAddr,
		Codec:     codec,
		Logger:    logger,
		Metrics:   m,
		TLSConfig: tlsConfig,
		Limiter:   limiter,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DoT transport: %w", err)
	}

	return &Application{
		config:     cfg,
		handler:    handler,
		metrics:    m,
		transports: []transport.ServerTransport{udpTransport, dotTransport},
	}, nil
}

// loadTLSConfig reads the PEM certificate chain and PKCS#8 private key.
// Absence or invalid format is a fatal startup error.
func loadTLSConfig(certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// Run starts all transports and blocks until the context is cancelled.
func (app *Application) Run(ctx context.Context) error {
	for _, tr := range app.transports {
		if err := tr.Start(ctx, app.handler); err != nil {
			app.stopAll()
			return fmt.Errorf("failed to start transport on %s: %w", tr.Address(), err)
		}
		log.Info(map[string]any{
			"address": tr.Address(),
		}, "DNS server started")
	}

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info(nil, "Shutdown initiated")
	app.stopAll()

	snap := app.metrics.Read()
	log.Info(map[string]any{
		"queries":        snap.Queries,
		"parse_failures": snap.ParseFailures,
	}, "Final serving counters")

	return nil
}

// stopAll stops every transport, logging rather than propagating errors.
func (app *Application) stopAll() {
	for _, tr := range app.transports {
		if err := tr.Stop(); err != nil {
			log.Warn(map[string]any{
				"address": tr.Address(),
				"error":   err.Error(),
			}, "Error during transport shutdown")
		}
	}
}

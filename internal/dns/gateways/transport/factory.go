package transport

import (
	"crypto/tls"
	"fmt"

	"dotdns/internal/dns/common/log"
	"dotdns/internal/dns/common/metrics"
	"dotdns/internal/dns/gateways/wire"
)

// Options carries the dependencies a transport may need. TLSConfig and
// Limiter are only consulted by the DoT transport.
type Options struct {
	Addr      string
	Codec     wire.Codec
	Logger    log.Logger
	Metrics   *metrics.Metrics
	TLSConfig *tls.Config
	Limiter   AdmissionGate
}

// New creates a transport instance of the specified type. The factory keeps
// a single construction path for current and future transport protocols.
func New(transportType TransportType, opts Options) (ServerTransport, error) {
	switch transportType {
	case TransportUDP:
		return NewUDPTransport(opts.Addr, opts.Codec, opts.Logger, opts.Metrics), nil

	case TransportDoT:
		if opts.TLSConfig == nil {
			return nil, fmt.Errorf("DoT transport requires a TLS config")
		}
		if opts.Limiter == nil {
			return nil, fmt.Errorf("DoT transport requires an admission gate")
		}
		return NewDoTTransport(DoTOptions{
			Addr:      opts.Addr,
			TLSConfig: opts.TLSConfig,
			Codec:     opts.Codec,
			Logger:    opts.Logger,
			Limiter:   opts.Limiter,
			Metrics:   opts.Metrics,
		}), nil

	case TransportDoH:
		return nil, fmt.Errorf("DNS over HTTPS transport not yet implemented")

	case TransportDoQ:
		return nil, fmt.Errorf("DNS over QUIC transport not yet implemented")

	default:
		return nil, fmt.Errorf("unsupported transport type: %s", transportType)
	}
}

// SupportedTransports returns the transport types currently implemented.
func SupportedTransports() []TransportType {
	return []TransportType{
		TransportUDP,
		TransportDoT,
	}
}

// IsSupported checks if a given transport type is currently implemented.
func IsSupported(transportType TransportType) bool {
	for _, t := range SupportedTransports() {
		if t == transportType {
			return true
		}
	}
	return false
}

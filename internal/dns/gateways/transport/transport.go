// Package transport provides the network serving loops for the DNS server.
// Transports own all socket and protocol framing concerns and hand parsed
// queries to the service layer, which returns encoded response bytes.
package transport

import (
	"context"

	"dotdns/internal/dns/services/responder"
)

// ServerTransport defines the interface for DNS server transport
// implementations. Different transport types (UDP, DoT, DoH, DoQ) implement
// this interface while providing the same serving contract.
type ServerTransport interface {
	// Start begins listening for requests and handling them via the provided handler.
	Start(ctx context.Context, handler responder.Handler) error

	// Stop shuts down the transport, closing its listening socket.
	Stop() error

	// Address returns the network address the transport is bound to.
	Address() string
}

// AdmissionGate decides whether one more inbound connection may be accepted.
// It must never block.
type AdmissionGate interface {
	Allow() bool
}

// TransportType represents the DNS transport protocols this server knows of.
type TransportType string

const (
	// TransportUDP is standard DNS over UDP (RFC 1035).
	TransportUDP TransportType = "udp"

	// TransportDoT is DNS over TLS (RFC 7858).
	TransportDoT TransportType = "dot"

	// TransportDoH is DNS over HTTPS (RFC 8484) - future implementation.
	TransportDoH TransportType = "doh"

	// TransportDoQ is DNS over QUIC (RFC 9250) - future implementation.
	TransportDoQ TransportType = "doq"
)

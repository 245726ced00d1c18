package transport

import (
	"context"
	"fmt"
	"net"
	"sync"

	"dotdns/internal/dns/common/log"
	"dotdns/internal/dns/common/metrics"
	"dotdns/internal/dns/gateways/wire"
	"dotdns/internal/dns/services/responder"
)

// UDPTransport implements ServerTransport for standard DNS over UDP
// (RFC 1035). Datagrams are handled strictly sequentially: one datagram is
// fully answered before the next is received, so a slow resolution stalls
// the whole loop. Callers must not assume fairness here.
type UDPTransport struct {
	addr    string
	conn    *net.UDPConn
	codec   wire.Codec
	logger  log.Logger
	metrics *metrics.Metrics

	// Synchronization for shutdown
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
}

// NewUDPTransport creates a new UDP transport instance.
func NewUDPTransport(addr string, codec wire.Codec, logger log.Logger, m *metrics.Metrics) *UDPTransport {
	return &UDPTransport{
		addr:    addr,
		codec:   codec,
		logger:  logger,
		metrics: m,
		stopCh:  make(chan struct{}),
	}
}

// Start binds the UDP socket and starts the sequential receive/respond loop.
func (t *UDPTransport) Start(ctx context.Context, handler responder.Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return fmt.Errorf("UDP transport already running")
	}

	udpAddr, err := net.ResolveUDPAddr("udp", t.addr)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address %s: %w", t.addr, err)
	}

	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("failed to bind UDP socket on %s: %w", t.addr, err)
	}

	t.conn = conn
	t.running = true

	t.logger.Info(map[string]any{
		"transport": "udp",
		"address":   conn.LocalAddr().String(),
	}, "DNS transport started")

	go t.serveLoop(ctx, handler)

	return nil
}

// Stop shuts down the UDP transport.
func (t *UDPTransport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return nil
	}

	close(t.stopCh)

	var closeErr error
	if t.conn != nil {
		closeErr = t.conn.Close()
	}

	t.running = false

	t.logger.Info(map[string]any{
		"transport": "udp",
		"address":   t.addr,
	}, "DNS transport stopped")

	return closeErr
}

// Address returns the network address the transport is bound to.
func (t *UDPTransport) Address() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.conn != nil {
		return t.conn.LocalAddr().String()
	}
	return t.addr
}

// serveLoop receives one datagram at a time and answers it before reading
// the next. No goroutine is spawned per datagram.
func (t *UDPTransport) serveLoop(ctx context.Context, handler responder.Handler) {
	buffer := make([]byte, 512) // DNS over UDP without EDNS0 caps at 512 bytes

	for {
		select {
		case <-ctx.Done():
			t.logger.Debug(nil, "UDP transport stopping due to context cancellation")
			return
		case <-t.stopCh:
			t.logger.Debug(nil, "UDP transport stopping due to stop signal")
			return
		default:
			n, clientAddr, err := t.conn.ReadFromUDP(buffer)
			if err != nil {
				t.mu.RLock()
				running := t.running
				t.mu.RUnlock()

				if !running {
					return // normal shutdown
				}

				t.logger.Warn(map[string]any{
					"error": err.Error(),
				}, "Failed to read UDP packet")
				continue
			}

			t.handlePacket(ctx, buffer[:n], clientAddr, handler)
		}
	}
}

// handlePacket answers a single UDP datagram. Every failure is contained
// here; the serving loop never sees an error.
func (t *UDPTransport) handlePacket(ctx context.Context, data []byte, clientAddr *net.UDPAddr, handler responder.Handler) {
	t.metrics.RecordQuery()

	query, err := t.codec.DecodeQuery(data)
	if err != nil {
		// Unparseable datagrams are dropped without a reply.
		t.metrics.RecordParseFailure()
		t.logger.Debug(map[string]any{
			"client": clientAddr.String(),
			"error":  err.Error(),
			"size":   len(data),
		}, "Dropped unparseable DNS query")
		return
	}

	response, err := handler.Answer(ctx, query)
	if err != nil {
		t.logger.Warn(map[string]any{
			"client":   clientAddr.String(),
			"query_id": query.ID,
			"error":    err.Error(),
		}, "Failed to answer DNS query")
		return
	}

	if _, err := t.conn.WriteToUDP(response, clientAddr); err != nil {
		t.logger.Error(map[string]any{
			"client":   clientAddr.String(),
			"query_id": query.ID,
			"error":    err.Error(),
		}, "Failed to send DNS response")
		return
	}

	t.logger.Debug(map[string]any{
		"client":   clientAddr.String(),
		"query_id": query.ID,
		"size":     len(response),
	}, "Sent DNS response")
}

var _ ServerTransport = (*UDPTransport)(nil)

package transport

import (
	"context"
	"crypto/tls"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"dotdns/internal/dns/common/log"
	"dotdns/internal/dns/common/metrics"
	"dotdns/internal/dns/common/tasks"
	"dotdns/internal/dns/gateways/wire"
	"dotdns/internal/dns/services/responder"
)

const (
	// handshakeTimeout bounds the TLS handshake of a freshly accepted
	// connection so a stalled peer cannot pin its task forever.
	handshakeTimeout = 5 * time.Second

	// maxResponseLen is the largest message the 2-byte length prefix can frame.
	maxResponseLen = 0xFFFF
)

// DoTTransport implements ServerTransport for DNS over TLS (RFC 7858).
// The accept loop consults the admission gate once per inbound connection;
// each admitted connection is served by its own supervised task performing
// one length-prefixed request/response exchange. Task count is unbounded
// beyond the gate's rate.
type DoTTransport struct {
	addr      string
	tlsConfig *tls.Config
	codec     wire.Codec
	logger    log.Logger
	limiter   AdmissionGate
	metrics   *metrics.Metrics
	sup       *tasks.Supervisor

	listener net.Listener
	mu       sync.RWMutex
	running  bool
}

// DoTOptions configures a DoTTransport. All fields are required.
type DoTOptions struct {
	Addr      string
	TLSConfig *tls.Config
	Codec     wire.Codec
	Logger    log.Logger
	Limiter   AdmissionGate
	Metrics   *metrics.Metrics
}

// NewDoTTransport creates a new DNS-over-TLS transport instance.
func NewDoTTransport(opts DoTOptions) *DoTTransport {
	return &DoTTransport{
		addr:      opts.Addr,
		tlsConfig: opts.TLSConfig,
		codec:     opts.Codec,
		logger:    opts.Logger,
		limiter:   opts.Limiter,
		metrics:   opts.Metrics,
		sup:       tasks.NewSupervisor(opts.Logger),
	}
}

// Start binds the TCP listener and starts the accept loop.
func (t *DoTTransport) Start(ctx context.Context, handler responder.Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return fmt.Errorf("DoT transport already running")
	}

	listener, err := net.Listen("tcp", t.addr)
	if err != nil {
		return fmt.Errorf("failed to bind TCP listener on %s: %w", t.addr, err)
	}

	t.listener = listener
	t.running = true

	t.logger.Info(map[string]any{
		"transport": "dot",
		"address":   listener.Addr().String(),
	}, "DNS transport started")

	go t.acceptLoop(ctx, handler)

	return nil
}

// Stop closes the listener. In-flight connection tasks are not drained.
func (t *DoTTransport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return nil
	}

	var closeErr error
	if t.listener != nil {
		closeErr = t.listener.Close()
	}

	t.running = false

	t.logger.Info(map[string]any{
		"transport": "dot",
		"address":   t.addr,
	}, "DNS transport stopped")

	return closeErr
}

// Address returns the network address the transport is bound to.
func (t *DoTTransport) Address() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.listener != nil {
		return t.listener.Addr().String()
	}
	return t.addr
}

// acceptLoop admits connections through the rate gate and hands each one to
// a supervised task. Failures inside a connection task never reach this loop.
func (t *DoTTransport) acceptLoop(ctx context.Context, handler responder.Handler) {
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			t.mu.RLock()
			running := t.running
			t.mu.RUnlock()

			if !running || ctx.Err() != nil {
				return
			}

			t.logger.Warn(map[string]any{
				"error": err.Error(),
			}, "Failed to accept TLS connection")
			continue
		}

		if !t.limiter.Allow() {
			t.logger.Warn(map[string]any{
				"client": conn.RemoteAddr().String(),
			}, "Connection rejected by rate limit")
			_ = conn.Close()
			continue
		}

		t.sup.Go("dot-connection", func() error {
			return t.handleConn(ctx, conn, handler)
		})
	}
}

// handleConn performs the TLS handshake and one framed request/response
// exchange, then closes the connection. A returned error terminates only
// this connection's task.
func (t *DoTTransport) handleConn(ctx context.Context, conn net.Conn, handler responder.Handler) error {
	defer conn.Close()
	peer := conn.RemoteAddr().String()

	tlsConn := tls.Server(conn, t.tlsConfig)
	_ = conn.SetDeadline(time.Now().Add(handshakeTimeout))
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return fmt.Errorf("peer %s: TLS handshake: %w", peer, err)
	}
	_ = conn.SetDeadline(time.Time{})

	t.logger.Debug(map[string]any{
		"client": peer,
	}, "TLS connection established")

	// DNS-over-TCP framing: 2-byte big-endian length, then the message.
	var lenBuf [2]byte
	if _, err := io.ReadFull(tlsConn, lenBuf[:]); err != nil {
		return fmt.Errorf("peer %s: read length prefix: %w", peer, err)
	}
	msg := make([]byte, binary.BigEndian.Uint16(lenBuf[:]))
	if _, err := io.ReadFull(tlsConn, msg); err != nil {
		return fmt.Errorf("peer %s: read message: %w", peer, err)
	}

	t.metrics.RecordQuery()

	query, err := t.codec.DecodeQuery(msg)
	if err != nil {
		t.metrics.RecordParseFailure()
		t.logger.Warn(map[string]any{
			"client": peer,
			"error":  err.Error(),
			"size":   len(msg),
		}, "Failed to parse DNS query")
		return nil
	}

	response, err := handler.AnswerCached(ctx, query)
	if err != nil {
		t.logger.Warn(map[string]any{
			"client":   peer,
			"query_id": query.ID,
			"error":    err.Error(),
		}, "Failed to answer DNS query")
		return nil
	}
	if len(response) > maxResponseLen {
		return fmt.Errorf("peer %s: response too large for framing: %d bytes", peer, len(response))
	}

	framed := make([]byte, 2+len(response))
	binary.BigEndian.PutUint16(framed[:2], uint16(len(response)))
	copy(framed[2:], response)

	if _, err := tlsConn.Write(framed); err != nil {
		return fmt.Errorf("peer %s: write response: %w", peer, err)
	}

	t.logger.Debug(map[string]any{
		"client":   peer,
		"query_id": query.ID,
		"size":     len(response),
	}, "Sent DNS response")

	return nil
}

var _ ServerTransport = (*DoTTransport)(nil)

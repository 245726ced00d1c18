package transport

import (
	"crypto/tls"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dotdns/internal/dns/common/log"
	"dotdns/internal/dns/common/metrics"
	"dotdns/internal/dns/gateways/wire"
)

func baseOptions() Options {
	return Options{
		Addr:    "127.0.0.1:0",
		Codec:   wire.NewCodec(),
		Logger:  log.NewNoopLogger(),
		Metrics: metrics.New(),
	}
}

func TestNew_UDP(t *testing.T) {
	tr, err := New(TransportUDP, baseOptions())
	require.NoError(t, err)
	assert.IsType(t, &UDPTransport{}, tr)
}

func TestNew_DoT(t *testing.T) {
	opts := baseOptions()
	opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	opts.Limiter = allowAll{}

	tr, err := New(TransportDoT, opts)
	require.NoError(t, err)
	assert.IsType(t, &DoTTransport{}, tr)
}

func TestNew_DoTMissingDependencies(t *testing.T) {
	opts := baseOptions()
	opts.Limiter = allowAll{}
	_, err := New(TransportDoT, opts)
	assert.Error(t, err, "missing TLS config")

	opts = baseOptions()
	opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	_, err = New(TransportDoT, opts)
	assert.Error(t, err, "missing admission gate")
}

func TestNew_Unimplemented(t *testing.T) {
	for _, typ := range []TransportType{TransportDoH, TransportDoQ, TransportType("smoke-signal")} {
		_, err := New(typ, baseOptions())
		assert.Error(t, err, "transport %s", typ)
	}
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported(TransportUDP))
	assert.True(t, IsSupported(TransportDoT))
	assert.False(t, IsSupported(TransportDoH))
	assert.False(t, IsSupported(TransportDoQ))
}

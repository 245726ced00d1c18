package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dotdns/internal/dns/config"
)

// writeTestCerts writes a self-signed PEM certificate and PKCS#8 private key
// into a temp dir and returns their paths.
func writeTestCerts(t *testing.T) (string, string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "dotdns test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1)},
		DNSNames:              []string{"localhost"},
		IsCA:                  true,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	dir := t.TempDir()
	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")

	certOut, err := os.Create(certFile)
	require.NoError(t, err)
	require.NoError(t, pem.Encode(certOut, &pem.Block{Type: "CERTIFICATE", Bytes: der}))
	require.NoError(t, certOut.Close())

	keyOut, err := os.Create(keyFile)
	require.NoError(t, err)
	require.NoError(t, pem.Encode(keyOut, &pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}))
	require.NoError(t, keyOut.Close())

	return certFile, keyFile
}

func TestLoadTLSConfig(t *testing.T) {
	certFile, keyFile := writeTestCerts(t)

	cfg, err := loadTLSConfig(certFile, keyFile)
	require.NoError(t, err)
	assert.Len(t, cfg.Certificates, 1)
	assert.Equal(t, uint16(0x0303), cfg.MinVersion) // TLS 1.2
}

func TestLoadTLSConfig_MissingFiles(t *testing.T) {
	_, err := loadTLSConfig("nope/cert.pem", "nope/key.pem")
	assert.Error(t, err)
}

func TestLoadTLSConfig_InvalidFormat(t *testing.T) {
	dir := t.TempDir()
	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certFile, []byte("not a certificate"), 0o600))
	require.NoError(t, os.WriteFile(keyFile, []byte("not a key"), 0o600))

	_, err := loadTLSConfig(certFile, keyFile)
	assert.Error(t, err)
}

func TestBuildApplication(t *testing.T) {
	certFile, keyFile := writeTestCerts(t)
	t.Setenv("DNS_CERT_FILE", certFile)
	t.Setenv("DNS_KEY_FILE", keyFile)
	t.Setenv("DNS_UDP_ADDR", "127.0.0.1:0")
	t.Setenv("DNS_BIND_ADDR", "127.0.0.1:0")

	cfg, err := config.Load()
	require.NoError(t, err)

	app, err := buildApplication(cfg)
	require.NoError(t, err)
	assert.Len(t, app.transports, 2)
	assert.NotNil(t, app.handler)
	assert.NotNil(t, app.metrics)
}

func TestBuildApplication_MissingCertificateIsFatal(t *testing.T) {
	t.Setenv("DNS_CERT_FILE", "missing/cert.pem")
	t.Setenv("DNS_KEY_FILE", "missing/key.pem")

	cfg, err := config.Load()
	require.NoError(t, err)

	_, err = buildApplication(cfg)
	assert.Error(t, err)
}

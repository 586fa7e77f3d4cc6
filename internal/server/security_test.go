package server

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
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
)

// writeKeyPair writes a self-signed certificate for 127.0.0.1 and returns the
// certificate and key paths.
func writeKeyPair(t *testing.T) (string, string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(42),
		Subject:      pkix.Name{CommonName: "dirsync-admin"},
		NotBefore:    time.Now().Add(-time.Minute),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.IPv4(127, 0, 0, 1)},
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	dir := t.TempDir()
	certFile := filepath.Join(dir, "admin.crt")
	keyFile := filepath.Join(dir, "admin.key")
	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}), 0o600))

	return certFile, keyFile
}

func TestNewSecurityLayer(t *testing.T) {
	_, ok := NewSecurityLayer(true, "c.pem", "k.pem").(*TLSListener)
	assert.True(t, ok)

	_, ok = NewSecurityLayer(false, "c.pem", "k.pem").(*PlainListener)
	assert.True(t, ok)
}

func TestTLSListener_Listen(t *testing.T) {
	certFile, keyFile := writeKeyPair(t)

	tests := []struct {
		name    string
		cert    string
		key     string
		addr    string
		failing bool
		wantErr string
	}{
		{name: "valid key pair", cert: certFile, key: keyFile, addr: "127.0.0.1:0"},
		{name: "missing files", cert: "missing.crt", key: "missing.key", addr: "127.0.0.1:0", failing: true, wantErr: "failed to load TLS certificate"},
		{name: "bad address", cert: certFile, key: keyFile, addr: "not-an-address", failing: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ln, err := NewTLSListener(tt.cert, tt.key).Listen("tcp", tt.addr)
			if tt.failing {
				require.Error(t, err)
				if tt.wantErr != "" {
					assert.Contains(t, err.Error(), tt.wantErr)
				}
				return
			}
			require.NoError(t, err)
			require.NoError(t, ln.Close())
		})
	}
}

func TestTLSListener_RejectsOldProtocols(t *testing.T) {
	certFile, keyFile := writeKeyPair(t)

	ln, err := NewTLSListener(certFile, keyFile).Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.(*tls.Conn).Handshake()
			conn.Close()
		}
	}()

	_, err = tls.Dial("tcp", ln.Addr().String(), &tls.Config{
		InsecureSkipVerify: true, //nolint:gosec // self-signed test certificate
		MaxVersion:         tls.VersionTLS11,
	})
	require.Error(t, err)

	conn, err := tls.Dial("tcp", ln.Addr().String(), &tls.Config{
		InsecureSkipVerify: true, //nolint:gosec // self-signed test certificate
		MinVersion:         tls.VersionTLS12,
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, conn.ConnectionState().Version, uint16(tls.VersionTLS12))
	conn.Close()
}

func TestPlainListener_Listen(t *testing.T) {
	ln, err := NewPlainListener().Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	_, ok := ln.(*net.TCPListener)
	assert.True(t, ok)

	_, err = NewPlainListener().Listen("tcp", "not-an-address")
	require.Error(t, err)
}

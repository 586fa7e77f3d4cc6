package server

import (
	"crypto/tls"
	"fmt"
	"net"

	"github.com/dtroode/dirsync/internal/model"
)

// NewSecurityLayer returns a TLS listener factory when enableTLS is set and a
// plain one otherwise.
func NewSecurityLayer(enableTLS bool, certFileName, privateKeyFileName string) model.SecurityLayer {
	if enableTLS {
		return NewTLSListener(certFileName, privateKeyFileName)
	}
	return NewPlainListener()
}

// TLSListener opens listeners that terminate TLS 1.2+ with a key pair read
// from disk on every Listen call.
type TLSListener struct {
	certFileName       string
	privateKeyFileName string
}

// NewTLSListener creates a TLSListener for the given certificate and key files.
func NewTLSListener(certFileName, privateKeyFileName string) *TLSListener {
	return &TLSListener{
		certFileName:       certFileName,
		privateKeyFileName: privateKeyFileName,
	}
}

func (l *TLSListener) Listen(protocol, addr string) (net.Listener, error) {
	cert, err := tls.LoadX509KeyPair(l.certFileName, l.privateKeyFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}
	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	return tls.Listen(protocol, addr, tlsConfig)
}

// PlainListener opens unencrypted listeners.
type PlainListener struct{}

func NewPlainListener() *PlainListener {
	return &PlainListener{}
}

func (l *PlainListener) Listen(protocol, addr string) (net.Listener, error) {
	return net.Listen(protocol, addr)
}

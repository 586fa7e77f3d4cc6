package model

import (
	"context"
	"net"
)

// SecurityLayer opens the listener a Server accepts connections on, with or
// without TLS.
type SecurityLayer interface {
	Listen(protocol, addr string) (net.Listener, error)
}

// Server is a long-running listener of the sync daemon: the admin gRPC
// endpoint or the metrics endpoint.
type Server interface {
	// Start blocks until the server stops.
	Start(securityLayer SecurityLayer) error
	// Stop drains in-flight requests until ctx is done.
	Stop(ctx context.Context) error
	Address() string
}

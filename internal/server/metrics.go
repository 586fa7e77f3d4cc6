package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dtroode/dirsync/internal/model"
)

const readHeaderTimeout = 5 * time.Second

// MetricsServer serves Prometheus metrics over HTTP.
type MetricsServer struct {
	server *http.Server
	addr   string
}

var _ model.Server = (*MetricsServer)(nil)

// NewMetricsServer creates a server exposing the default registry on /metrics.
func NewMetricsServer(addr string) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &MetricsServer{
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		addr: addr,
	}
}

// Start serves until Stop is called.
func (s *MetricsServer) Start(securityLayer model.SecurityLayer) error {
	listener, err := securityLayer.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *MetricsServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *MetricsServer) Address() string {
	return s.addr
}

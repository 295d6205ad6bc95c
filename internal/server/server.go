package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	defaultPort       = "8080"
	maxHeaderBytes    = 1 << 20
	readHeaderTimeout = 10 * time.Second
	// synchronous /process calls run the whole pipeline before answering
	writeTimeout = 5 * time.Minute
	idleTimeout  = 60 * time.Second
)

// Server serves the pipeline API and owns its lifecycle. The zero value is
// ready to use.
type Server struct {
	mu  sync.Mutex
	srv *http.Server
}

// normalizeAddr accepts "8080" or ":8080"; empty means the default port.
func normalizeAddr(port string) string {
	port = strings.TrimSpace(port)
	if port == "" {
		port = defaultPort
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// Listen binds the API port. Port "0" picks a free one; the listener's Addr
// reports it.
func Listen(port string) (net.Listener, error) {
	return net.Listen("tcp", normalizeAddr(port))
}

// Serve answers requests on ln until Shutdown. A graceful stop returns nil.
func (s *Server) Serve(ln net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		MaxHeaderBytes:    maxHeaderBytes,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
	s.mu.Lock()
	s.srv = srv
	s.mu.Unlock()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight runs until
// ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

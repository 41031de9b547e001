package utils

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const (
	DEFAULT_READ_TIMEOUT     = 60 * time.Second
	DEFAULT_WRITE_TIMEOUT    = DEFAULT_READ_TIMEOUT
	DEFAULT_SHUTDOWN_TIMEOUT = 30 * time.Second
)

// Server wraps http.Server with graceful shutdown and ordered shutdown hooks.
type Server struct {
	*http.Server

	shutdownTimeout time.Duration
	onShutdown      []func()
}

// NewServer creates a Server with timeouts and handler.
func NewServer(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) *Server {
	return &Server{
		Server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      writeTimeout,
		},
		shutdownTimeout: DEFAULT_SHUTDOWN_TIMEOUT,
	}
}

// OnShutdown registers fn to run after the HTTP server has drained.
func (srv *Server) OnShutdown(fn func()) {
	srv.onShutdown = append(srv.onShutdown, fn)
}

// Serve accepts on ln until ctx is done, then drains in-flight requests and runs the hooks.
func (srv *Server) Serve(ctx context.Context, ln net.Listener) error {
	errc := make(chan error, 1)
	go func() { errc <- srv.Server.Serve(ln) }()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			srv.runHooks()
			return err
		}
	case <-ctx.Done():
		L().Info("shutting down HTTP server", zap.String("addr", ln.Addr().String()))
		sctx, cancel := context.WithTimeout(context.Background(), srv.shutdownTimeout)
		err := srv.Shutdown(sctx)
		cancel()
		if err != nil {
			L().Error("HTTP server shutdown error", zap.Error(err))
		} else {
			L().Info("HTTP server shutdown success")
		}
		<-errc
	}
	// background workers and clients stop after in-flight requests are done
	srv.runHooks()
	return nil
}

func (srv *Server) runHooks() {
	for _, fn := range srv.onShutdown {
		fn()
	}
}

// GraceServer listens on addr and serves until SIGINT or SIGTERM. The hooks run
// in order once the server has shut down.
func GraceServer(addr string, handler http.Handler, onShutdown ...func()) error {
	if addr == "" {
		addr = ":http"
	}
	srv := NewServer(addr, handler, DEFAULT_READ_TIMEOUT, DEFAULT_WRITE_TIMEOUT)
	for _, fn := range onShutdown {
		srv.OnShutdown(fn)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return srv.Serve(ctx, ln)
}

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/cpuid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/sanonone/travelsdb/pkg/engine"
)

const shutdownTimeout = 5 * time.Second

// Server holds the HTTP interface and the underlying Database Engine.
//
// Each worker runs its own http.Server on its own listener. The workers
// share nothing but the Engine, whose store serializes writes internally.
type Server struct {
	Engine *engine.Engine

	cfg     Config
	logger  *slog.Logger
	handler http.Handler

	mu        sync.Mutex
	listeners []net.Listener
	ready     chan struct{}
}

// NewServer builds the HTTP front end for an existing Engine.
// Note: The Engine must be initialized (Open) before passing it here.
func NewServer(eng *engine.Engine, cfg Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Request ids come from a pooled random source.
	uuid.EnableRandPool()

	s := &Server{
		Engine: eng,
		cfg:    cfg,
		logger: logger,
		ready:  make(chan struct{}),
	}

	// Chain middlewares: Recovery -> Logging -> Router
	// Recovery must be outer-most to catch everything.
	var handler http.Handler = s.routes()
	handler = s.LoggingMiddleware(handler)
	handler = s.RecoveryMiddleware(handler)
	s.handler = handler

	return s, nil
}

// Handler returns the API handler with its middleware chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Ready is closed once every worker listener is bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound API address, or nil before Ready.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.listeners) == 0 {
		return nil
	}
	return s.listeners[0].Addr()
}

// DefaultWorkers is the number of logical cores usable by this process.
func DefaultWorkers() int {
	n := runtime.NumCPU()
	if lc := cpuid.CPU.LogicalCores; lc > 0 && lc < n {
		n = lc
	}
	return n
}

func (s *Server) workers() int {
	if s.cfg.Workers > 0 {
		return s.cfg.Workers
	}
	return DefaultWorkers()
}

func (s *Server) newHTTPServer(handler http.Handler) *http.Server {
	srv := &http.Server{
		Handler:      handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(s.logger.Handler(), slog.LevelDebug),
	}
	srv.SetKeepAlivesEnabled(s.cfg.KeepAlive)
	return srv
}

// Run binds the worker listeners (and the admin listener, if configured) and
// serves until ctx is cancelled or a worker fails. Shutdown is graceful with
// a 5 second deadline.
func (s *Server) Run(ctx context.Context) error {
	n := s.workers()
	listeners, err := listen(ctx, s.cfg.Bind, n)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Bind, err)
	}

	var admin *http.Server
	var adminLn net.Listener
	if s.cfg.AdminBind != "" {
		var lc net.ListenConfig
		adminLn, err = lc.Listen(ctx, "tcp", s.cfg.AdminBind)
		if err != nil {
			closeListeners(listeners)
			return fmt.Errorf("listen on admin %s: %w", s.cfg.AdminBind, err)
		}
		admin = s.newHTTPServer(s.adminRoutes())
		admin.SetKeepAlivesEnabled(true)
	}

	s.mu.Lock()
	s.listeners = listeners
	s.mu.Unlock()

	s.logger.Info("HTTP server listening",
		"addr", listeners[0].Addr().String(),
		"workers", n,
		"keep_alive", s.cfg.KeepAlive,
		"pin_cpus", s.cfg.PinCPUs,
		"cpu", cpuid.CPU.BrandName,
		"physical_cores", cpuid.CPU.PhysicalCores,
		"logical_cores", cpuid.CPU.LogicalCores,
	)
	if adminLn != nil {
		s.logger.Info("Admin server listening", "addr", adminLn.Addr().String())
	}

	g, gctx := errgroup.WithContext(ctx)
	servers := make([]*http.Server, 0, n+1)
	for i, ln := range listeners {
		srv := s.newHTTPServer(s.handler)
		servers = append(servers, srv)
		g.Go(func() error {
			if s.cfg.PinCPUs {
				if err := pinThread(i); err != nil {
					s.logger.Warn("CPU pinning failed", "worker", i, "error", err)
				}
			}
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("worker %d: %w", i, err)
			}
			return nil
		})
	}
	if admin != nil {
		servers = append(servers, admin)
		g.Go(func() error {
			if err := admin.Serve(adminLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("admin server: %w", err)
			}
			return nil
		})
	}
	close(s.ready)

	g.Go(func() error {
		<-gctx.Done()
		s.shutdown(servers)
		return nil
	})

	return g.Wait()
}

// shutdown stops every server concurrently under one deadline.
func (s *Server) shutdown(servers []*http.Server) {
	s.logger.Info("Starting graceful shutdown of HTTP Server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, srv := range servers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, net.ErrClosed) {
				s.logger.Error("HTTP server shutdown error", "error", err)
			}
		}()
	}
	wg.Wait()
}

func closeListeners(listeners []net.Listener) {
	for _, ln := range listeners {
		ln.Close()
	}
}

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/tiscam/internal/camera"
	"github.com/muurk/tiscam/internal/logging"
)

// Defaults for Config
const (
	DefaultPort           = 8080
	DefaultStreamInterval = 200 * time.Millisecond
	shutdownTimeout       = 10 * time.Second
)

// Config holds the preview server configuration
type Config struct {
	Host string
	Port int // 0 picks a free port

	// Advertise registers the server over mDNS as discovery.ServiceType
	Advertise bool
	Instance  string // mDNS instance name (default: "tiscam on <hostname>")
	Model     string // TXT model value (default: camera model)

	// StreamInterval is the pause between frames on /ws unless the client
	// asks for another one with ?interval_ms=
	StreamInterval time.Duration
}

// Server serves camera settings and frames over HTTP and WebSocket.
// Camera access from concurrent requests is serialised by camLock, which
// holds one token while a request uses the camera.
type Server struct {
	config *Config

	camLock  chan struct{}
	released bool // set by ReleaseCamera; guarded by camLock
	cam      *camera.Camera
	rollback *camera.RollbackManager

	mux        *http.ServeMux
	httpServer *http.Server
	upgrader   websocket.Upgrader
	listener   net.Listener
	mdns       *zeroconf.Server

	mu          sync.Mutex
	wg          sync.WaitGroup
	closed      bool
	quit        chan struct{}
	activeConns map[string]*websocket.Conn
}

// New creates a preview server for an opened camera
func New(cam *camera.Camera, config *Config) *Server {
	if config == nil {
		config = &Config{}
	}
	if config.StreamInterval <= 0 {
		config.StreamInterval = DefaultStreamInterval
	}
	if config.Model == "" {
		config.Model = strings.ReplaceAll(cam.Info().DeviceType, "_", " ")
	}
	if config.Instance == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "localhost"
		}
		config.Instance = "tiscam on " + host
	}

	s := &Server{
		config:      config,
		camLock:     make(chan struct{}, 1),
		cam:         cam,
		rollback:    camera.NewRollbackManager(cam),
		mux:         http.NewServeMux(),
		quit:        make(chan struct{}),
		activeConns: make(map[string]*websocket.Conn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			// Preview clients are local tools and browsers on the lab network
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.setupRoutes()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	s.mux.HandleFunc("POST /api/settings", s.handlePostSettings)
	s.mux.HandleFunc("GET /api/formats", s.handleFormats)
	s.mux.HandleFunc("GET /api/frame.tiff", s.handleFrameTIFF)
	s.mux.HandleFunc("GET /ws", s.handleWebSocket)
}

// Handler returns the HTTP handler with request logging
func (s *Server) Handler() http.Handler {
	return logRequests(s.mux)
}

// Start listens, serves and blocks until ctx is done, SIGINT/SIGTERM
// arrives or the server fails.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Listen opens the listening socket and, if configured, registers the
// mDNS advertisement for the bound port.
func (s *Server) Listen() error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	logging.Info("Preview server listening",
		zap.String("addr", listener.Addr().String()),
		zap.String("camera", s.cam.Name()),
	)

	if s.config.Advertise {
		if err := s.advertise(listener.Addr().(*net.TCPAddr).Port); err != nil {
			// the server stays usable by address
			logging.Warn("mDNS advertisement failed", zap.Error(err))
		}
	}
	return nil
}

// Addr returns the bound address once Listen succeeded
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Serve accepts connections on the listener opened by Listen
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("server is not listening")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutdown signal received, stopping server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("preview server failed: %w", err)
	}
}

// Shutdown stops the advertisement, ends frame streams and drains HTTP
// requests. It is safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.quit)
	s.mu.Unlock()

	logging.Info("Shutting down preview server...")

	if s.mdns != nil {
		s.mdns.Shutdown()
		s.mdns = nil
	}

	var shutdownErr error
	if s.listener != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("failed to shut down HTTP server: %w", err)
		}
	}

	// Streams watch quit and send a going-away close frame
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All streams closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
		s.mu.Lock()
		for addr, conn := range s.activeConns {
			logging.Info("Closing active stream", zap.String("remote_addr", addr))
			_ = conn.Close()
		}
		s.mu.Unlock()
	}

	return shutdownErr
}

// GetActiveConnections returns the number of open frame streams
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

// track registers a stream; it fails once shutdown has begun
func (s *Server) track(remoteAddr string, conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.activeConns[remoteAddr] = conn
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(remoteAddr string) {
	s.mu.Lock()
	delete(s.activeConns, remoteAddr)
	s.mu.Unlock()
	s.wg.Done()
}

// grab records a single frame with the current settings
func (s *Server) grab(ctx context.Context) (*camera.Frames, error) {
	if err := s.lockCamera(ctx); err != nil {
		return nil, err
	}
	defer s.unlockCamera()

	opts := camera.DefaultRecordOptions()
	opts.Count = 1
	frames, _, err := s.cam.RecordNew(ctx, opts)
	return frames, err
}

// lockCamera waits for exclusive use of the camera. It fails when ctx ends
// first or the camera has been released.
func (s *Server) lockCamera(ctx context.Context) error {
	select {
	case s.camLock <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	if s.released {
		<-s.camLock
		return camera.NewStateError("camera has been released by the preview server")
	}
	return nil
}

func (s *Server) unlockCamera() {
	<-s.camLock
}

// ReleaseCamera waits until no request is using the camera, then passes it
// to fn, typically to close it. Later requests get a state error. If a
// frame is still being acquired when ctx ends (e.g. a snap waiting for a
// hardware trigger without timeout) fn is not called and the error says so;
// the camera must then be left alone.
func (s *Server) ReleaseCamera(ctx context.Context, fn func(*camera.Camera)) error {
	if err := s.lockCamera(ctx); err != nil {
		if camera.IsStateError(err) {
			return nil
		}
		return fmt.Errorf("camera still in use: %w", err)
	}
	defer s.unlockCamera()

	s.released = true
	fn(s.cam)
	return nil
}

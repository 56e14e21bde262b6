package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"bigrack/internal/config"
	"bigrack/internal/inventory"
	"bigrack/internal/logging"
)

// Version is reported to MCP clients during initialize.
const Version = "0.3.0"

// Server is the BigRack daemon: inventory store plus MCP listener.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger

	lockPath string
	lock     *flock.Flock

	store    *inventory.Store
	listener net.Listener
	tools    *toolset

	running  atomic.Bool
	sessions atomic.Int64

	connMu sync.Mutex
	conns  map[net.Conn]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Addr         string
	Sessions     int
	DatabasePath string
	LockFilePath string
}

// New constructs a server. No resources are acquired until Start.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "bigrackd.lock")
	return &Server{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "mcp"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start brings the daemon to the ready state: single-instance lock, inventory
// store, bound listener, accept loop. Returns an error without partial state
// if any step fails.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return errors.New("daemon already running")
	}

	if err := s.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another bigrack daemon instance is already running")
	}

	store, err := inventory.Open(s.cfg)
	if err != nil {
		_ = s.lock.Unlock()
		return fmt.Errorf("open inventory store: %w", err)
	}

	listener, err := net.Listen("tcp", s.cfg.MCP.Bind)
	if err != nil {
		_ = store.Close()
		_ = s.lock.Unlock()
		return fmt.Errorf("bind %s: %w", s.cfg.MCP.Bind, err)
	}

	s.store = store
	s.listener = listener
	s.tools = &toolset{store: store}
	s.conns = make(map[net.Conn]struct{})
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop()

	s.logger.Info("mcp listener ready",
		logging.String(logging.FieldEventType, "mcp_listener_ready"),
		logging.String("addr", listener.Addr().String()),
		logging.String("database", store.Path()),
		logging.String("lock", s.lockPath),
	)
	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			if s.running.Load() {
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "mcp_accept_failed"),
					logging.String(logging.FieldImpact, "MCP clients may fail to connect"),
				)
			}
			continue
		}

		if int(s.sessions.Load()) >= s.cfg.MCP.MaxSessions {
			s.logger.Warn("session limit reached",
				logging.String(logging.FieldEventType, "mcp_session_rejected"),
				logging.Int("max_sessions", s.cfg.MCP.MaxSessions),
			)
			_ = conn.Close()
			continue
		}

		s.trackConn(conn, true)
		s.sessions.Add(1)
		s.wg.Add(1)
		go func(c net.Conn) {
			defer s.wg.Done()
			defer s.sessions.Add(-1)
			defer s.trackConn(c, false)
			s.serveSession(c)
		}(conn)
	}
}

func (s *Server) serveSession(conn net.Conn) {
	defer conn.Close()

	sessionID := uuid.NewString()
	logger := s.logger.With(logging.String(logging.FieldSessionID, sessionID))
	logger.Debug("session opened", logging.String("remote", conn.RemoteAddr().String()))

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)

	for {
		var req request
		if err := decoder.Decode(&req); err != nil {
			if !errors.Is(err, io.EOF) && s.ctx.Err() == nil {
				logger.Debug("session decode failed", logging.Error(err))
				_ = encoder.Encode(errorResponse(nil, codeParseError, "parse error"))
			}
			return
		}

		resp, respond := s.dispatch(req, logger)
		if !respond {
			continue
		}
		if err := encoder.Encode(resp); err != nil {
			logger.Debug("session write failed", logging.Error(err))
			return
		}
	}
}

func (s *Server) trackConn(conn net.Conn, add bool) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conns == nil {
		return
	}
	if add {
		s.conns[conn] = struct{}{}
	} else {
		delete(s.conns, conn)
	}
}

// dispatch handles one request. The second return value is false for
// notifications, which must not receive a response.
func (s *Server) dispatch(req request, logger *slog.Logger) (response, bool) {
	if req.JSONRPC != "2.0" {
		return errorResponse(req.ID, codeInvalidRequest, "jsonrpc must be \"2.0\""), !req.isNotification()
	}
	if req.isNotification() {
		// Only notifications/initialized is expected; others are ignored.
		return response{}, false
	}

	switch req.Method {
	case "initialize":
		return resultResponse(req.ID, initializeResult{
			ProtocolVersion: protocolVersion,
			ServerInfo:      serverInfo{Name: s.cfg.MCP.ServerName, Version: Version},
			Capabilities:    map[string]any{"tools": map[string]any{}},
		}), true
	case "ping":
		return resultResponse(req.ID, map[string]any{}), true
	case "tools/list":
		return resultResponse(req.ID, toolsListResult{Tools: s.tools.descriptors()}), true
	case "tools/call":
		var params toolsCallParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, codeInvalidParams, "invalid tools/call params"), true
		}
		result, err := s.tools.call(s.ctx, params.Name, params.Arguments)
		if err != nil {
			logger.Warn("tool call rejected",
				logging.Error(err),
				logging.String("tool", params.Name),
				logging.String(logging.FieldEventType, "mcp_tool_rejected"),
			)
			return errorResponse(req.ID, codeInvalidParams, err.Error()), true
		}
		return resultResponse(req.ID, result), true
	default:
		return errorResponse(req.ID, codeMethodNotFound, fmt.Sprintf("method %q not found", req.Method)), true
	}
}

// Addr returns the bound listener address, or empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop stops serving and releases the lock and store.
func (s *Server) Stop() {
	if !s.running.Load() {
		return
	}
	s.running.Store(false)

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.connMu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.connMu.Unlock()
	s.wg.Wait()

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("failed to close inventory store", logging.Error(err))
		}
		s.store = nil
	}
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	s.logger.Info("bigrack daemon stopped",
		logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the server.
func (s *Server) Close() error {
	s.Stop()
	return nil
}

// DatabasePath returns the resolved inventory database location.
func (s *Server) DatabasePath() string {
	return s.cfg.DatabasePath()
}

// InventoryCounts returns aggregate inventory totals, for status reporting.
func (s *Server) InventoryCounts(ctx context.Context) (inventory.Summary, error) {
	if s.store == nil {
		return inventory.Summary{}, errors.New("inventory store unavailable")
	}
	return s.store.Counts(ctx)
}

// Status returns the current daemon status.
func (s *Server) Status() Status {
	return Status{
		Running:      s.running.Load(),
		Addr:         s.Addr(),
		Sessions:     int(s.sessions.Load()),
		DatabasePath: s.cfg.DatabasePath(),
		LockFilePath: s.lockPath,
	}
}

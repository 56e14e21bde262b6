package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"log/slog"

	"bigrack/internal/logging"
	"bigrack/internal/mcpserver"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	connMu sync.Mutex
	conns  map[net.Conn]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the control server at the given socket path. The
// shutdown func is invoked (once) when a client requests Stop; it is expected
// to end the daemon's run context.
func NewServer(ctx context.Context, path string, daemon *mcpserver.Server, shutdown func(), logger *slog.Logger) (*Server, error) {
	if daemon == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if shutdown == nil {
		return nil, errors.New("ipc server requires shutdown func")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	svc := &service{daemon: daemon, shutdown: shutdown, logger: logger}
	if err := rpcServer.RegisterName("BigRack", svc); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		conns:     make(map[net.Conn]struct{}),
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("control socket listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "control_accept_failed"),
					logging.String(logging.FieldImpact, "control clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.trackConn(c, true)
				defer s.trackConn(c, false)
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

func (s *Server) trackConn(conn net.Conn, add bool) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if add {
		if s.conns == nil {
			s.conns = make(map[net.Conn]struct{})
		}
		s.conns[conn] = struct{}{}
		return
	}
	delete(s.conns, conn)
}

// Close stops the server, disconnects any control clients still attached,
// and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.connMu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.connMu.Unlock()
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "control_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale control socket may block future starts"))
	}
}

type service struct {
	daemon   *mcpserver.Server
	shutdown func()
	logger   *slog.Logger

	stopOnce sync.Once
}

// Status reports daemon and inventory state.
func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status()
	resp.Running = status.Running
	resp.Addr = status.Addr
	resp.Sessions = status.Sessions
	resp.DatabasePath = status.DatabasePath
	resp.LockPath = status.LockFilePath
	resp.PID = os.Getpid()
	resp.Version = mcpserver.Version

	if status.Running {
		if counts, err := s.daemon.InventoryCounts(context.Background()); err == nil {
			resp.Racks = counts.Racks
			resp.Devices = counts.Devices
		}
	}
	return nil
}

// Stop requests daemon shutdown. The response is written before the process
// begins tearing down, so clients get an acknowledgment.
func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	resp.Stopping = true
	s.stopOnce.Do(func() {
		s.logger.Info("shutdown requested via control socket",
			logging.String(logging.FieldEventType, "daemon_stop_requested"))
		go s.shutdown()
	})
	return nil
}

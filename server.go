package reactor

import (
	"strconv"
	"sync"
	"sync/atomic"
)

// Server owns the Acceptor and the I/O thread pool, and tracks every live
// Connection in a map keyed by connection name. Stop does not close the
// tracked Connections.
type Server struct {
	baseLoop *Loop
	logger   *Logger

	name    string
	address string

	acceptor   *Acceptor
	threadPool *IoThreadPool

	cfg *serverConfig

	mu          sync.Mutex
	connections map[string]*Connection
	nextConnID  atomic.Int64

	started atomic.Bool
}

// NewServer constructs a Server listening on address, with name used as
// the prefix for connection names. It does not start listening until
// Start is called.
func NewServer(baseLoop *Loop, logger *Logger, name, address string, opts ...ServerOption) (*Server, error) {
	if logger == nil {
		logger = discardLogger
	}
	cfg := resolveServerConfig(opts)

	acceptor, err := NewAcceptor(baseLoop, logger, address, cfg.reusePort)
	if err != nil {
		return nil, err
	}

	s := &Server{
		baseLoop:    baseLoop,
		logger:      logger,
		name:        name,
		address:     address,
		acceptor:    acceptor,
		cfg:         cfg,
		connections: make(map[string]*Connection),
	}
	s.threadPool = newIoThreadPool(baseLoop, logger, cfg.threadNum)
	acceptor.SetNewConnectionCallback(s.newConnection)
	return s, nil
}

// BaseLoop returns the Loop the Acceptor and the connection map live on.
func (s *Server) BaseLoop() *Loop { return s.baseLoop }

// Start launches the I/O thread pool and begins listening. Safe to call
// only once; subsequent calls return ErrServerAlreadyStarted.
func (s *Server) Start() error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrServerAlreadyStarted
	}
	s.threadPool.start(s.cfg.threadInitCallback)
	return s.acceptor.Listen()
}

// newConnection runs on the base loop: it picks the next I/O loop
// round-robin, wraps fd in a Connection named "<name>-<ipPort>#<id>",
// installs the user callbacks, installs the Server's own close callback
// (which removes the Connection from the map), and posts
// connectEstablished to the I/O loop.
func (s *Server) newConnection(fd int, peerAddr string) {
	loop := s.threadPool.getNextLoop()
	id := s.nextConnID.Add(1)
	connName := s.name + "-" + peerAddr + "#" + strconv.FormatInt(id, 10)

	conn := newConnection(loop, s.logger, connName, fd, s.address, peerAddr)
	conn.setConnectionCallback(s.cfg.connectionCallback)
	conn.setMessageCallback(s.cfg.messageCallback)
	conn.setWriteCompleteCallback(s.cfg.writeCompleteCb)
	if s.cfg.highWaterMarkCb != nil {
		conn.setHighWaterMarkCallback(s.cfg.highWaterMarkCb, s.cfg.highWaterMark)
	}
	conn.setCloseCallback(s.removeConnection)

	s.mu.Lock()
	s.connections[connName] = conn
	s.mu.Unlock()

	if s.cfg.tcpNoDelay {
		_ = conn.SetTCPNoDelay(true)
	}

	loop.RunInLoop(conn.connectEstablished)
}

// removeConnection posts removeConnectionInLoop to the base loop; the
// indirection is required because the close callback that triggers
// removal runs on the Connection's I/O loop, while the connection map
// lives on the base loop.
func (s *Server) removeConnection(conn *Connection) {
	s.baseLoop.RunInLoop(func() { s.removeConnectionInLoop(conn) })
}

func (s *Server) removeConnectionInLoop(conn *Connection) {
	s.mu.Lock()
	delete(s.connections, conn.Name())
	s.mu.Unlock()

	conn.Loop().QueueInLoop(func() {
		conn.connectDestroyed()
		if s.cfg.closeCallback != nil {
			s.cfg.closeCallback(conn)
		}
	})
}

// Connections returns a snapshot of every currently tracked Connection.
func (s *Server) Connections() []*Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Connection, 0, len(s.connections))
	for _, c := range s.connections {
		out = append(out, c)
	}
	return out
}

// Stop closes the Acceptor on the base loop and asks every I/O Loop in the
// pool, then the base loop itself, to quit. It does not wait for the Loops
// to return from Run and does not call Loop.Close on them.
func (s *Server) Stop() {
	s.baseLoop.QueueInLoop(func() { _ = s.acceptor.Close() })
	for _, loop := range s.threadPool.getAllLoops() {
		loop.Quit()
	}
	s.baseLoop.Quit()
}

package reactor

import "time"

// ConnectionCallback is invoked when a Connection is established and again
// when it is about to be destroyed; check Connection.Connected to tell
// the two apart.
type ConnectionCallback func(conn *Connection)

// MessageCallback is invoked whenever new bytes are appended to a
// Connection's input Buffer; it is the handler's responsibility to
// Retrieve whatever it has fully consumed.
type MessageCallback func(conn *Connection, buf *Buffer, receiveTime time.Time)

// WriteCompleteCallback is invoked once a Connection's output buffer has
// been fully drained to the kernel.
type WriteCompleteCallback func(conn *Connection)

// HighWaterMarkCallback is invoked at most once per crossing when a
// Connection's output buffer grows past the configured watermark.
type HighWaterMarkCallback func(conn *Connection, bytesQueued int)

// CloseCallback is invoked once a Connection has been fully torn down.
type CloseCallback func(conn *Connection)

// ThreadInitCallback is invoked on each I/O thread's Loop goroutine, once,
// before that Loop begins polling.
type ThreadInitCallback func(loop *Loop)

type serverConfig struct {
	threadNum          int
	reusePort          bool
	tcpNoDelay         bool
	highWaterMark      int
	threadInitCallback ThreadInitCallback
	connectionCallback ConnectionCallback
	messageCallback    MessageCallback
	writeCompleteCb    WriteCompleteCallback
	highWaterMarkCb    HighWaterMarkCallback
	closeCallback      CloseCallback
}

func defaultServerConfig() *serverConfig {
	return &serverConfig{
		threadNum:     0,
		tcpNoDelay:    true,
		highWaterMark: 64 * 1024 * 1024,
	}
}

// ServerOption configures a Server at construction time, in the
// functional-options shape.
type ServerOption func(*serverConfig)

// WithReusePort enables SO_REUSEPORT on the listening socket, allowing
// multiple processes to share the same listening address.
func WithReusePort(v bool) ServerOption {
	return func(c *serverConfig) { c.reusePort = v }
}

// WithThreadNum sets the size of the I/O thread pool backing the Server.
// Zero (the default) runs the Acceptor and all connections on the base
// Loop with no additional threads.
func WithThreadNum(n int) ServerOption {
	return func(c *serverConfig) { c.threadNum = n }
}

// WithThreadInitCallback registers a callback run once on each I/O
// thread's Loop before it starts polling.
func WithThreadInitCallback(cb ThreadInitCallback) ServerOption {
	return func(c *serverConfig) { c.threadInitCallback = cb }
}

// WithConnectionCallback registers the connection-lifecycle callback.
func WithConnectionCallback(cb ConnectionCallback) ServerOption {
	return func(c *serverConfig) { c.connectionCallback = cb }
}

// WithMessageCallback registers the inbound-data callback.
func WithMessageCallback(cb MessageCallback) ServerOption {
	return func(c *serverConfig) { c.messageCallback = cb }
}

// WithWriteCompleteCallback registers the output-drained callback.
func WithWriteCompleteCallback(cb WriteCompleteCallback) ServerOption {
	return func(c *serverConfig) { c.writeCompleteCb = cb }
}

// WithHighWaterMarkCallback registers the callback fired when a
// connection's output buffer exceeds n queued bytes.
func WithHighWaterMarkCallback(cb HighWaterMarkCallback, n int) ServerOption {
	return func(c *serverConfig) {
		c.highWaterMarkCb = cb
		c.highWaterMark = n
	}
}

// WithTCPNoDelay controls whether TCP_NODELAY is set on accepted
// connections; it defaults to enabled.
func WithTCPNoDelay(v bool) ServerOption {
	return func(c *serverConfig) { c.tcpNoDelay = v }
}

// WithCloseCallback registers the connection-teardown-complete callback.
func WithCloseCallback(cb CloseCallback) ServerOption {
	return func(c *serverConfig) { c.closeCallback = cb }
}

func resolveServerConfig(opts []ServerOption) *serverConfig {
	c := defaultServerConfig()
	for _, opt := range opts {
		opt(c)
	}
	return c
}

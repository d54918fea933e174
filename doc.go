// Package reactor implements a high-concurrency TCP server runtime built
// around the reactor pattern: a single-threaded event loop per worker
// thread, a readiness-based I/O multiplexer (epoll on Linux, kqueue on
// Darwin/BSD), a timer service backed by a monotonic timer descriptor, and
// a per-connection state machine driving buffered reads and writes.
//
// # Architecture
//
// A [Loop] owns exactly one [Poller], one [TimerQueue], and one wakeup
// channel. [Channel] mediates between the two: it holds a descriptor's
// interest mask and the read/write/close/error callbacks the Loop invokes
// on readiness. An [Acceptor] sits on a base Loop and hands accepted
// connections to an [IoThreadPool] of worker Loops; each accepted
// descriptor is wrapped in exactly one [Connection] for its lifetime.
// [Server] ties the Acceptor, the pool, and the connection map together.
//
// # Concurrency model
//
// Every Loop is strictly single-threaded: Poller state, Channel interest,
// Timer Queue state, and Connection state for a given Loop are mutated
// only on that Loop's own goroutine. Cross-goroutine interaction uses
// exactly one primitive, [Loop.QueueInLoop], backed by a mutex-protected
// slice and a counter-descriptor wakeup.
//
// # Usage
//
//	logger := reactor.NewLogger(os.Stderr, logiface.LevelInformational)
//	baseLoop, err := reactor.NewLoop(logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv, err := reactor.NewServer(baseLoop, logger, "echo", "127.0.0.1:9999",
//	    reactor.WithThreadNum(4),
//	    reactor.WithMessageCallback(func(c *reactor.Connection, buf *reactor.Buffer, t time.Time) {
//	        c.Send([]byte(buf.RetrieveAllAsString()))
//	    }),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	baseLoop.Run()
package reactor

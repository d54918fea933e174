// Command echo runs a TCP echo server on the reactor core, demonstrating
// the public Server/Loop/Buffer API.
package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/joeycumines/logiface"
	reactor "github.com/riftlabs/reactorcore"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:9999", "listen address")
	threads := flag.Int("threads", 4, "I/O thread pool size")
	flag.Parse()

	logger := reactor.NewLogger(os.Stderr, logiface.LevelInformational)

	baseLoop, err := reactor.NewLoop(logger)
	if err != nil {
		log.Fatal(err)
	}

	srv, err := reactor.NewServer(baseLoop, logger, "echo", *addr,
		reactor.WithThreadNum(*threads),
		reactor.WithConnectionCallback(func(c *reactor.Connection) {
			if c.Connected() {
				logger.Info().Str(`conn`, c.Name()).Str(`peer`, c.PeerAddr()).Log(`connection established`)
			} else {
				logger.Info().Str(`conn`, c.Name()).Log(`connection closed`)
			}
		}),
		reactor.WithMessageCallback(func(c *reactor.Connection, buf *reactor.Buffer, _ time.Time) {
			c.Send([]byte(buf.RetrieveAllAsString()))
		}),
	)
	if err != nil {
		log.Fatal(err)
	}

	if err := srv.Start(); err != nil {
		log.Fatal(err)
	}
	logger.Notice().Str(`addr`, *addr).Int(`threads`, *threads).Log(`echo server listening`)

	if err := baseLoop.Run(); err != nil {
		log.Fatal(err)
	}
}

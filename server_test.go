package reactor

import (
	"bufio"
	"net"
	"sync"
	"testing"
	"time"
)

// TestEchoOneLine: a single client sends one line and receives the same
// line back.
func TestEchoOneLine(t *testing.T) {
	baseLoop, err := NewLoop(nil)
	if err != nil {
		t.Fatal(err)
	}
	srv, err := NewServer(baseLoop, nil, "echo", "127.0.0.1:18099",
		WithMessageCallback(func(c *Connection, buf *Buffer, _ time.Time) {
			c.Send([]byte(buf.RetrieveAllAsString()))
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		_ = baseLoop.Run()
	}()
	defer func() {
		srv.Stop()
		<-runDone
	}()
	time.Sleep(20 * time.Millisecond)

	conn, err := net.Dial("tcp", "127.0.0.1:18099")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("hello reactor\n")); err != nil {
		t.Fatal(err)
	}
	reader := bufio.NewReader(conn)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}
	if line != "hello reactor\n" {
		t.Fatalf("unexpected echo: %q", line)
	}
}

// TestRoundRobinDispatch starts a pool of 3 I/O threads and connects 6
// clients one at a time, verifying the loop assignments cycle through the
// pool in connection order: connection i and connection i+3 share a loop,
// and the first three land on three distinct loops.
func TestRoundRobinDispatch(t *testing.T) {
	baseLoop, err := NewLoop(nil)
	if err != nil {
		t.Fatal(err)
	}

	established := make(chan *Loop, 8)

	srv, err := NewServer(baseLoop, nil, "pool", "127.0.0.1:18100",
		WithThreadNum(3),
		WithConnectionCallback(func(c *Connection) {
			if c.Connected() {
				established <- c.Loop()
			}
		}),
		WithMessageCallback(func(c *Connection, buf *Buffer, _ time.Time) {
			c.Send([]byte(buf.RetrieveAllAsString()))
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		_ = baseLoop.Run()
	}()
	defer func() {
		srv.Stop()
		<-runDone
	}()
	time.Sleep(20 * time.Millisecond)

	const clients = 6
	var assigned []*Loop
	for i := 0; i < clients; i++ {
		conn, err := net.Dial("tcp", "127.0.0.1:18100")
		if err != nil {
			t.Fatal(err)
		}
		defer conn.Close()

		select {
		case loop := <-established:
			assigned = append(assigned, loop)
		case <-time.After(2 * time.Second):
			t.Fatalf("connection %d was never established", i)
		}

		msg := "ping\n"
		if _, err := conn.Write([]byte(msg)); err != nil {
			t.Fatal(err)
		}
		reader := bufio.NewReader(conn)
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatal(err)
		}
		if line != msg {
			t.Fatalf("unexpected echo: %q", line)
		}
	}

	if assigned[0] == assigned[1] || assigned[1] == assigned[2] || assigned[0] == assigned[2] {
		t.Fatal("first three connections were not spread across three distinct loops")
	}
	for i := 0; i < 3; i++ {
		if assigned[i] != assigned[i+3] {
			t.Fatalf("connection %d and %d did not share a loop", i, i+3)
		}
	}
	for _, loop := range assigned {
		if loop == baseLoop {
			t.Fatal("a connection was assigned to the base loop despite a non-empty pool")
		}
	}
}

// TestHighWaterMarkAndWriteComplete: a slow-reading peer and a large send
// should trigger the high-water-mark
// callback before the write-complete callback eventually fires.
func TestHighWaterMarkAndWriteComplete(t *testing.T) {
	baseLoop, err := NewLoop(nil)
	if err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var highWaterHits int
	var writeCompleteHits int
	connReady := make(chan *Connection, 1)

	srv, err := NewServer(baseLoop, nil, "hwm", "127.0.0.1:18101",
		WithHighWaterMarkCallback(func(c *Connection, n int) {
			mu.Lock()
			highWaterHits++
			mu.Unlock()
		}, 8*1024),
		WithWriteCompleteCallback(func(c *Connection) {
			mu.Lock()
			writeCompleteHits++
			mu.Unlock()
		}),
		WithConnectionCallback(func(c *Connection) {
			if c.Connected() {
				select {
				case connReady <- c:
				default:
				}
			}
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		_ = baseLoop.Run()
	}()
	defer func() {
		srv.Stop()
		<-runDone
	}()
	time.Sleep(20 * time.Millisecond)

	conn, err := net.Dial("tcp", "127.0.0.1:18101")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	var serverConn *Connection
	select {
	case serverConn = <-connReady:
	case <-time.After(2 * time.Second):
		t.Fatal("connection callback never fired")
	}

	payload := make([]byte, 1024*1024)
	for i := range payload {
		payload[i] = byte(i)
	}
	serverConn.Loop().RunInLoop(func() { serverConn.Send(payload) })

	received := 0
	buf := make([]byte, 4096)
	_ = conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	for received < len(payload) {
		n, err := conn.Read(buf)
		received += n
		if err != nil {
			break
		}
		time.Sleep(5 * time.Millisecond) // slow reader, lets output queue build up
	}

	deadline := time.Now().Add(3 * time.Second)
	_ = conn.SetReadDeadline(time.Time{})
	for received < len(payload) && time.Now().Before(deadline) {
		n, err := conn.Read(buf)
		received += n
		if err != nil {
			break
		}
	}

	if received != len(payload) {
		t.Fatalf("expected to receive %d bytes, got %d", len(payload), received)
	}

	mu.Lock()
	defer mu.Unlock()
	if highWaterHits < 1 {
		t.Fatal("high-water-mark callback never fired")
	}
	if writeCompleteHits != 1 {
		t.Fatalf("expected exactly one write-complete callback, got %d", writeCompleteHits)
	}
}

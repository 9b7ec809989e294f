// ABOUTME: Multi-client TCP control listener
// ABOUTME: One goroutine per connection, each an independent line session
package control

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"
)

// ListenerConfig holds TCP control listener configuration
type ListenerConfig struct {
	Addr        string        // e.g. ":7070"
	IdleTimeout time.Duration // 0 = no read deadline
}

// Listener accepts operator connections. Connection counts are expected to
// stay small, so each connection gets its own goroutine.
type Listener struct {
	config     ListenerConfig
	dispatcher *Dispatcher

	ln    net.Listener
	conns map[net.Conn]struct{}
	mu    sync.Mutex

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewListener creates a TCP control listener
func NewListener(config ListenerConfig, dispatcher *Dispatcher) *Listener {
	ctx, cancel := context.WithCancel(context.Background())
	return &Listener{
		config:     config,
		dispatcher: dispatcher,
		conns:      make(map[net.Conn]struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start binds the listening socket and begins accepting connections.
func (l *Listener) Start() error {
	ln, err := net.Listen("tcp", l.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.config.Addr, err)
	}
	l.ln = ln
	log.Printf("Control listener on %s", ln.Addr())

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.acceptLoop()
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (l *Listener) Addr() net.Addr {
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Port returns the bound TCP port, or 0 before Start.
func (l *Listener) Port() int {
	if addr, ok := l.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

func (l *Listener) acceptLoop() {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("Control accept error: %v", err)
			continue
		}

		l.mu.Lock()
		if l.ctx.Err() != nil {
			l.mu.Unlock()
			conn.Close()
			return
		}
		l.conns[conn] = struct{}{}
		l.mu.Unlock()

		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			l.handleConn(conn)
		}()
	}
}

func (l *Listener) handleConn(conn net.Conn) {
	defer func() {
		conn.Close()
		l.mu.Lock()
		delete(l.conns, conn)
		l.mu.Unlock()
	}()

	s := l.dispatcher.Open("tcp", conn.RemoteAddr().String())
	defer l.dispatcher.Close(s)

	r := &deadlineReader{conn: conn, timeout: l.config.IdleTimeout}
	if err := l.dispatcher.Serve(l.ctx, s, r, conn); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Control session %s ended: %v", s, err)
	}
}

// Stop closes the listener and all sessions, then waits for them to exit.
func (l *Listener) Stop() {
	l.stopOnce.Do(func() {
		l.cancel()
		if l.ln != nil {
			l.ln.Close()
		}

		l.mu.Lock()
		for conn := range l.conns {
			conn.Close()
		}
		l.mu.Unlock()

		l.wg.Wait()
		log.Printf("Control listener stopped")
	})
}

// deadlineReader refreshes the read deadline before every read.
type deadlineReader struct {
	conn    net.Conn
	timeout time.Duration
}

func (r *deadlineReader) Read(p []byte) (int, error) {
	if r.timeout > 0 {
		if err := r.conn.SetReadDeadline(time.Now().Add(r.timeout)); err != nil {
			return 0, err
		}
	}
	return r.conn.Read(p)
}

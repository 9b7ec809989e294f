// ABOUTME: Command-line control client for a running selector
// ABOUTME: Sends commands over TCP or WebSocket, finds routers via mDNS
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Resonate-Protocol/resonate-selector/internal/discovery"
)

var (
	addr    = flag.String("addr", "", "Selector address host:port or ws://host:port/control (default: discover via mDNS)")
	timeout = flag.Duration("timeout", 5*time.Second, "Discovery and I/O timeout")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: selector-ctl [flags] [command ...]\n\n")
		fmt.Fprintf(os.Stderr, "Without a command, lines from standard input are sent.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	log.SetFlags(0)

	target := *addr
	if target == "" {
		var err error
		if target, err = discover(*timeout); err != nil {
			log.Fatal(err)
		}
	}

	var input io.Reader = os.Stdin
	if flag.NArg() > 0 {
		input = strings.NewReader(strings.Join(flag.Args(), " ") + "\n")
	}

	var err error
	if strings.HasPrefix(target, "ws://") || strings.HasPrefix(target, "wss://") {
		err = runWebSocket(target, input, os.Stdout)
	} else {
		err = runTCP(target, input, os.Stdout)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// discover returns the first selector announced on the local network.
func discover(wait time.Duration) (string, error) {
	routers, err := discovery.Lookup(wait)
	if err != nil {
		return "", err
	}
	if len(routers) == 0 {
		return "", fmt.Errorf("no selector found after %v", wait)
	}

	r := routers[0]
	inputs, channels := r.Layout()
	fmt.Fprintf(os.Stderr, "using %s at %s (%d inputs x %d channels)\n", r.Name, r.Addr(), inputs, channels)
	return r.Addr(), nil
}

// runTCP streams input to the selector and copies replies until the server
// closes the session.
func runTCP(target string, input io.Reader, output io.Writer) error {
	conn, err := net.DialTimeout("tcp", target, *timeout)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	go func() {
		_, _ = io.Copy(conn, input)
		if tc, ok := conn.(*net.TCPConn); ok {
			_ = tc.CloseWrite()
		}
	}()

	if _, err := io.Copy(output, conn); err != nil {
		return fmt.Errorf("read reply: %w", err)
	}
	return nil
}

// runWebSocket sends each input line as a text message and prints the
// matching reply.
func runWebSocket(target string, input io.Reader, output io.Writer) error {
	dialer := websocket.Dialer{HandshakeTimeout: *timeout}
	conn, _, err := dialer.Dial(target, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			return fmt.Errorf("send: %w", err)
		}

		_, reply, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("read reply: %w", err)
		}
		fmt.Fprintln(output, string(reply))
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return scanner.Err()
}

// ABOUTME: Line loop shared by stream transports
// ABOUTME: Reads newline-delimited commands and writes replies
package control

import (
	"bufio"
	"context"
	"fmt"
	"io"
)

// MaxLineBytes bounds a single control line. Longer lines end the session.
const MaxLineBytes = 4096

// Serve reads lines from r and writes replies to w until EOF, a quit
// command, a malformed line or ctx cancellation. It returns nil on EOF or quit.
func (d *Dispatcher) Serve(ctx context.Context, s *Session, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 256), MaxLineBytes)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		reply, quit := d.Handle(s, scanner.Text())
		if reply != "" {
			if _, err := fmt.Fprintln(w, reply); err != nil {
				return fmt.Errorf("write reply: %w", err)
			}
		}
		if quit {
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read command: %w", err)
	}
	return nil
}

// ServeStdin runs the standard-input session until EOF.
func (d *Dispatcher) ServeStdin(ctx context.Context, r io.Reader, w io.Writer) error {
	s := d.Open("stdin", "")
	defer d.Close(s)
	return d.Serve(ctx, s, r, w)
}

// ABOUTME: Line-oriented command dispatcher for the control plane
// ABOUTME: Validates switch requests and enqueues them for the audio callback
package control

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/Resonate-Protocol/resonate-selector/pkg/ingress"
	"github.com/Resonate-Protocol/resonate-selector/pkg/router"
)

// Sender accepts validated switch commands. *ingress.Queue implements it.
type Sender interface {
	Send(cmd ingress.Command)
}

// StatusReader reports the router state. *router.Processor implements it.
type StatusReader interface {
	Status() router.Status
}

const helpText = `commands:
  <index>|<name>  fade to that source
  list            show sources (* marks the active one)
  status          show active source and fade progress
  help            show this text
  quit            close this session`

// Dispatcher interprets control lines from every transport.
type Dispatcher struct {
	sources  *Sources
	sender   Sender
	status   StatusReader
	registry *Registry
}

// NewDispatcher creates a dispatcher. status may be nil, in which case the
// status and list commands report no active source.
func NewDispatcher(sources *Sources, sender Sender, status StatusReader) *Dispatcher {
	return &Dispatcher{
		sources:  sources,
		sender:   sender,
		status:   status,
		registry: NewRegistry(),
	}
}

// Sources returns the source table.
func (d *Dispatcher) Sources() *Sources { return d.sources }

// Registry returns the active session registry.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Open registers a new session.
func (d *Dispatcher) Open(transport, remote string) *Session {
	s := NewSession(transport, remote)
	d.registry.add(s)
	log.Printf("Control session opened: %s (ID: %s)", s, s.ID)
	return s
}

// Close unregisters a session.
func (d *Dispatcher) Close(s *Session) {
	d.registry.remove(s)
	log.Printf("Control session closed: %s (ID: %s)", s, s.ID)
}

// Handle processes one line and returns the reply text (without trailing
// newline) and whether the session should end. Empty lines produce no reply.
func (d *Dispatcher) Handle(s *Session, line string) (reply string, quit bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}

	switch strings.ToLower(line) {
	case "list":
		return d.list(), false
	case "status":
		return d.statusLine(), false
	case "help", "?":
		return helpText, false
	case "quit", "exit":
		return "bye", true
	}

	idx, err := d.Switch(s, line)
	if err != nil {
		if errors.Is(err, ErrInvalidSource) {
			return ErrInvalidSource.Error(), false
		}
		return err.Error(), false
	}
	return fmt.Sprintf("ok %d %s", idx, d.sources.Name(idx)), false
}

// Switch validates target and enqueues a switch command. Invalid targets
// never reach the queue.
func (d *Dispatcher) Switch(s *Session, target string) (int, error) {
	idx, err := d.sources.Lookup(target)
	if err != nil {
		log.Printf("Rejected switch from %s: %v", s, err)
		return 0, err
	}

	d.sender.Send(ingress.Command{Source: idx})
	log.Printf("%s switched source to %d (%s)", s, idx, d.sources.Name(idx))
	return idx, nil
}

func (d *Dispatcher) list() string {
	active := -1
	if d.status != nil {
		active = d.status.Status().Active
	}

	var b strings.Builder
	for i, name := range d.sources.names {
		marker := " "
		if i == active {
			marker = "*"
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s %d %s", marker, i, name)
	}
	return b.String()
}

func (d *Dispatcher) statusLine() string {
	if d.status == nil {
		return "status unavailable"
	}

	st := d.status.Status()
	if !st.Transitioning {
		return fmt.Sprintf("active %d %s steady", st.Active, d.sources.Name(st.Active))
	}
	return fmt.Sprintf("active %d %s fading from %d %s progress %.3f",
		st.Active, d.sources.Name(st.Active),
		st.Previous, d.sources.Name(st.Previous),
		st.Progress)
}

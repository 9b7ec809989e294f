// ABOUTME: Selector application orchestration
// ABOUTME: Coordinates audio host, router, control transports and discovery
package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"sync"

	"github.com/Resonate-Protocol/resonate-selector/internal/config"
	"github.com/Resonate-Protocol/resonate-selector/internal/control"
	"github.com/Resonate-Protocol/resonate-selector/internal/discovery"
	"github.com/Resonate-Protocol/resonate-selector/internal/version"
	"github.com/Resonate-Protocol/resonate-selector/pkg/audio"
	"github.com/Resonate-Protocol/resonate-selector/pkg/audio/host"
	"github.com/Resonate-Protocol/resonate-selector/pkg/audio/source"
	"github.com/Resonate-Protocol/resonate-selector/pkg/ingress"
	"github.com/Resonate-Protocol/resonate-selector/pkg/router"
)

// Selector represents the running router and its control plane
type Selector struct {
	config     config.Config
	queue      *ingress.Queue
	proc       *router.Processor
	dispatcher *control.Dispatcher
	host       host.Host

	listener   *control.Listener
	web        *control.WebServer
	advertiser *discovery.Advertiser

	stdin  io.Reader
	stdout io.Writer

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// NewHost creates the audio host named by cfg.Backend
func NewHost(cfg config.Config) (host.Host, error) {
	hc := host.Config{
		Layout:       audio.Layout{Inputs: cfg.Inputs, Channels: cfg.Channels},
		SampleRate:   cfg.SampleRate,
		PeriodFrames: cfg.PeriodFrames,
	}

	switch cfg.Backend {
	case config.BackendMalgo:
		return host.NewMalgo(hc), nil
	case config.BackendPortAudio:
		return host.NewPortAudio(hc), nil
	case config.BackendOto:
		return host.NewOto(hc, source.ToneBank(cfg.Inputs, cfg.SampleRate)), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", config.ErrInvalidConfig, cfg.Backend)
	}
}

// New creates a selector driven by h. A nil h selects the configured backend.
func New(cfg config.Config, h host.Host) (*Selector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if h == nil {
		var err error
		if h, err = NewHost(cfg); err != nil {
			return nil, err
		}
	}

	queue := ingress.NewQueue(cfg.QueueCapacity)
	proc, err := router.NewProcessor(router.Config{
		Layout:           audio.Layout{Inputs: cfg.Inputs, Channels: cfg.Channels},
		SampleRate:       h.SampleRate(),
		TransitionLength: cfg.Transition,
	}, queue)
	if err != nil {
		return nil, err
	}

	sources, err := control.NewSources(cfg.Inputs, cfg.Names)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Selector{
		config:     cfg,
		queue:      queue,
		proc:       proc,
		dispatcher: control.NewDispatcher(sources, queue, proc),
		host:       h,
		stdin:      os.Stdin,
		stdout:     os.Stdout,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}, nil
}

// SetStdio replaces the streams used by the stdin session. Call before Start.
func (s *Selector) SetStdio(r io.Reader, w io.Writer) {
	s.stdin = r
	s.stdout = w
}

// Start starts the audio host and every enabled control transport
func (s *Selector) Start() error {
	log.Printf("Starting %s: %d inputs x %d channels at %dHz, %v fades",
		version.String(), s.config.Inputs, s.config.Channels, s.proc.SampleRate(), s.proc.TransitionLength())

	if err := s.host.Start(s.proc.Process); err != nil {
		return fmt.Errorf("failed to start audio host: %w", err)
	}

	if s.config.ControlAddr != "" {
		s.listener = control.NewListener(control.ListenerConfig{
			Addr:        s.config.ControlAddr,
			IdleTimeout: s.config.IdleTimeout,
		}, s.dispatcher)
		if err := s.listener.Start(); err != nil {
			s.Stop()
			return err
		}
	}

	if s.config.WebAddr != "" {
		s.web = control.NewWebServer(control.WebConfig{Addr: s.config.WebAddr}, s.dispatcher)
		if err := s.web.Start(); err != nil {
			s.Stop()
			return err
		}
	}

	if s.config.MDNS && s.listener != nil {
		adv, err := discovery.Advertise(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.listener.Port(),
			Info: map[string]string{
				"inputs":   strconv.Itoa(s.config.Inputs),
				"channels": strconv.Itoa(s.config.Channels),
				"version":  version.Version,
			},
		})
		if err != nil {
			// the control port still works without advertisement
			log.Printf("mDNS advertisement failed: %v", err)
		} else {
			s.advertiser = adv
		}
	}

	if s.config.Stdin {
		go s.serveStdin()
	}

	return nil
}

// serveStdin runs the stdin session; EOF ends the selector.
func (s *Selector) serveStdin() {
	if err := s.dispatcher.ServeStdin(s.ctx, s.stdin, s.stdout); err != nil && s.ctx.Err() == nil {
		log.Printf("stdin session error: %v", err)
	}
	if s.ctx.Err() == nil {
		log.Printf("stdin closed, shutting down")
		s.Stop()
	}
}

// Dispatcher returns the control dispatcher
func (s *Selector) Dispatcher() *control.Dispatcher { return s.dispatcher }

// Processor returns the router
func (s *Selector) Processor() *router.Processor { return s.proc }

// Queue returns the command queue
func (s *Selector) Queue() *ingress.Queue { return s.queue }

// Listener returns the TCP listener, or nil when disabled
func (s *Selector) Listener() *control.Listener { return s.listener }

// Web returns the WebSocket server, or nil when disabled
func (s *Selector) Web() *control.WebServer { return s.web }

// Done is closed once Stop has finished
func (s *Selector) Done() <-chan struct{} { return s.done }

// Stop stops transports first, then the audio host
func (s *Selector) Stop() {
	s.stopOnce.Do(func() {
		log.Printf("Stopping selector")
		s.cancel()

		if s.advertiser != nil {
			s.advertiser.Stop()
		}
		if s.web != nil {
			s.web.Stop()
		}
		if s.listener != nil {
			s.listener.Stop()
		}
		if err := s.host.Close(); err != nil {
			log.Printf("Error closing audio host: %v", err)
		}

		st := s.proc.Status()
		log.Printf("Selector stopped: %d blocks, %d switches applied, %d dropped",
			st.Blocks, st.Applied, s.queue.Dropped())
		close(s.done)
	})
}

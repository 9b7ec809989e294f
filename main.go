// ABOUTME: Entry point for the resonate-selector daemon
// ABOUTME: Parses flags over an optional YAML config and runs the router
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/resonate-selector/internal/app"
	"github.com/Resonate-Protocol/resonate-selector/internal/config"
	"github.com/Resonate-Protocol/resonate-selector/internal/ui"
	"github.com/Resonate-Protocol/resonate-selector/internal/version"
)

var (
	configFile    = flag.String("config", "", "YAML config file (flags override it)")
	inputs        = flag.Int("inputs", 2, "Number of input buses")
	channels      = flag.Int("channels", 2, "Channels per bus")
	names         = flag.String("names", "", "Comma-separated source names (default in_<index>)")
	transition    = flag.Duration("transition", time.Second, "Crossfade duration")
	name          = flag.String("name", "", "Client name for logs and mDNS (default: hostname-resonate-selector)")
	backend       = flag.String("backend", config.BackendMalgo, "Audio backend: malgo, portaudio or oto (tone demo)")
	sampleRate    = flag.Int("sample-rate", 48000, "Device sample rate in Hz")
	periodFrames  = flag.Int("period", 512, "Largest block size in frames")
	queueCapacity = flag.Int("queue", 0, "Command queue capacity (0 = default)")
	controlAddr   = flag.String("control", ":7070", "TCP control address (empty to disable)")
	webAddr       = flag.String("web", "", "WebSocket control address, e.g. :7071 (empty to disable)")
	idleTimeout   = flag.Duration("idle-timeout", 10*time.Minute, "Close idle TCP sessions after this long (0 = never)")
	noStdin       = flag.Bool("no-stdin", false, "Do not read commands from standard input")
	noMDNS        = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	useTUI        = flag.Bool("tui", false, "Show the operator TUI (implies -no-stdin)")
	logFile       = flag.String("log-file", "resonate-selector.log", "Log file path")
	showVersion   = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Set up logging
	f, err := os.OpenFile(cfg.LogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if cfg.TUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stderr, f))
	}

	sel, err := app.New(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to create selector: %v", err)
	}
	if err := sel.Start(); err != nil {
		log.Fatalf("Failed to start selector: %v", err)
	}

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if cfg.TUI {
		tui := ui.New(ui.Config{
			Name:       cfg.Name,
			Dispatcher: sel.Dispatcher(),
			Status:     sel.Processor(),
			Drops:      sel.Queue(),
			Transition: sel.Processor().TransitionLength(),
		})
		go func() {
			select {
			case sig := <-sigChan:
				log.Printf("Received %v signal", sig)
			case <-sel.Done():
			}
			tui.Stop()
		}()
		if err := tui.Run(); err != nil {
			log.Printf("TUI error: %v", err)
		}
	} else {
		select {
		case sig := <-sigChan:
			log.Printf("Received %v signal, shutting down gracefully...", sig)
		case <-sel.Done():
		}
	}

	sel.Stop()
}

// loadConfig builds the configuration: defaults, then the YAML file, then
// any flag set explicitly on the command line.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.LoadFile(*configFile); err != nil {
			return cfg, err
		}
	}

	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "inputs":
			cfg.Inputs = *inputs
		case "channels":
			cfg.Channels = *channels
		case "names":
			cfg.Names = splitNames(*names)
		case "transition":
			cfg.Transition = *transition
		case "name":
			cfg.Name = *name
		case "backend":
			cfg.Backend = *backend
		case "sample-rate":
			cfg.SampleRate = *sampleRate
		case "period":
			cfg.PeriodFrames = *periodFrames
		case "queue":
			cfg.QueueCapacity = *queueCapacity
		case "control":
			cfg.ControlAddr = *controlAddr
		case "web":
			cfg.WebAddr = *webAddr
		case "idle-timeout":
			cfg.IdleTimeout = *idleTimeout
		case "no-stdin":
			cfg.Stdin = !*noStdin
		case "no-mdns":
			cfg.MDNS = !*noMDNS
		case "tui":
			cfg.TUI = *useTUI
		case "log-file":
			cfg.LogFile = *logFile
		}
	})

	if cfg.Name == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		cfg.Name = fmt.Sprintf("%s-resonate-selector", hostname)
	}

	// The TUI owns the terminal.
	if cfg.TUI {
		cfg.Stdin = false
	}

	return cfg, cfg.Validate()
}

func splitNames(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

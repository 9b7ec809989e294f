// ABOUTME: mDNS advertisement and lookup of selector control endpoints
// ABOUTME: TXT records carry the bus layout so clients can show it before connecting
package discovery

import (
	"fmt"
	"log"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the DNS-SD service type advertised by the selector.
const ServiceType = "_selector._tcp"

// DefaultLookupTimeout bounds a Lookup when no timeout is given.
const DefaultLookupTimeout = 3 * time.Second

// Config describes the advertised control endpoint
type Config struct {
	ServiceName string
	Port        int
	Info        map[string]string // TXT key=value records
}

// Advertiser answers mDNS queries for one selector until stopped
type Advertiser struct {
	server   *mdns.Server
	stopOnce sync.Once
}

// Advertise starts answering queries for the control port.
func Advertise(config Config) (*Advertiser, error) {
	if config.ServiceName == "" {
		return nil, fmt.Errorf("service name is required")
	}
	if config.Port <= 0 || config.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", config.Port)
	}

	ips, err := interfaceIPv4s()
	if err != nil {
		return nil, fmt.Errorf("failed to list interface addresses: %w", err)
	}

	service, err := mdns.NewMDNSService(config.ServiceName, ServiceType, "", "", config.Port, ips, encodeInfo(config.Info))
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to create mdns server: %w", err)
	}

	log.Printf("Advertising %s as %q on port %d", ServiceType, config.ServiceName, config.Port)
	return &Advertiser{server: server}, nil
}

// Stop withdraws the advertisement. Safe to call more than once.
func (a *Advertiser) Stop() {
	a.stopOnce.Do(func() {
		if err := a.server.Shutdown(); err != nil {
			log.Printf("mDNS shutdown error: %v", err)
		}
	})
}

// Router is a selector found on the network
type Router struct {
	Name string
	Host string
	Port int
	Info map[string]string
}

// Addr returns host:port for dialing.
func (r Router) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// Layout returns the advertised bus layout, zero when not advertised.
func (r Router) Layout() (inputs, channels int) {
	inputs, _ = strconv.Atoi(r.Info["inputs"])
	channels, _ = strconv.Atoi(r.Info["channels"])
	return inputs, channels
}

// Lookup sends one query and returns every selector that answered within
// timeout, sorted by name.
func Lookup(timeout time.Duration) ([]Router, error) {
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}

	entries := make(chan *mdns.ServiceEntry, 16)
	found := make(map[string]Router)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for entry := range entries {
			if r, ok := routerFromEntry(entry); ok {
				found[r.Addr()] = r
			}
		}
	}()

	err := mdns.Query(&mdns.QueryParam{
		Service: ServiceType,
		Domain:  "local",
		Timeout: timeout,
		Entries: entries,
	})
	close(entries)
	<-done
	if err != nil {
		return nil, fmt.Errorf("mdns query failed: %w", err)
	}

	routers := make([]Router, 0, len(found))
	for _, r := range found {
		routers = append(routers, r)
	}
	sort.Slice(routers, func(i, j int) bool {
		if routers[i].Name != routers[j].Name {
			return routers[i].Name < routers[j].Name
		}
		return routers[i].Addr() < routers[j].Addr()
	})
	return routers, nil
}

// routerFromEntry converts an answer, preferring IPv4. Answers for other
// services sharing the query window are skipped.
func routerFromEntry(entry *mdns.ServiceEntry) (Router, bool) {
	if !strings.Contains(entry.Name, ServiceType) {
		return Router{}, false
	}

	var host string
	switch {
	case entry.AddrV4 != nil:
		host = entry.AddrV4.String()
	case entry.AddrV6 != nil:
		host = entry.AddrV6.String()
	default:
		return Router{}, false
	}

	name := strings.TrimSuffix(entry.Name, "."+ServiceType+".local.")
	return Router{
		Name: name,
		Host: host,
		Port: entry.Port,
		Info: decodeInfo(entry.InfoFields),
	}, true
}

func encodeInfo(info map[string]string) []string {
	fields := make([]string, 0, len(info))
	for k, v := range info {
		fields = append(fields, k+"="+v)
	}
	sort.Strings(fields)
	return fields
}

func decodeInfo(fields []string) map[string]string {
	info := make(map[string]string, len(fields))
	for _, f := range fields {
		k, v, _ := strings.Cut(f, "=")
		if k != "" {
			info[k] = v
		}
	}
	return info
}

// interfaceIPv4s lists the non-loopback IPv4 addresses of this host.
func interfaceIPv4s() ([]net.IP, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, err
	}

	var ips []net.IP
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if v4 := ipnet.IP.To4(); v4 != nil {
			ips = append(ips, v4)
		}
	}
	return ips, nil
}

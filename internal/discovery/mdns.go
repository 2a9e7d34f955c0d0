// Package discovery advertises the API on the local network over mDNS.
package discovery

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog/log"
)

// Service is the advertised service type.
const Service = "_stripd._tcp"

// Info describes the advertised device.
type Info struct {
	ID      string
	Name    string
	Version string
	Port    int
}

// TXT returns the TXT records for info.
func TXT(info Info) []string {
	return []string{
		"id=" + info.ID,
		"name=" + info.Name,
		"version=" + info.Version,
	}
}

// Instance turns a device name into an mDNS instance label.
func Instance(name string) string {
	label := strings.Map(func(r rune) rune {
		if r == '.' {
			return '-'
		}
		return r
	}, strings.TrimSpace(name))
	if label == "" {
		return "stripd"
	}
	return label
}

// Advertiser runs the mDNS responder.
type Advertiser struct {
	server *mdns.Server
}

// Advertise starts responding for info until Shutdown.
func Advertise(info Info) (*Advertiser, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	service, err := mdns.NewMDNSService(Instance(info.Name), Service, "", "", info.Port, nil, TXT(info))
	if err != nil {
		return nil, fmt.Errorf("mdns service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("mdns server: %w", err)
	}

	log.Info().
		Str("service", Service).
		Str("instance", Instance(info.Name)).
		Str("host", host).
		Int("port", info.Port).
		Msg("Advertising over mDNS")

	return &Advertiser{server: server}, nil
}

// Shutdown stops the responder.
func (a *Advertiser) Shutdown() error {
	return a.server.Shutdown()
}

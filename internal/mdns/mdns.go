// Package mdns advertises the remote-control API on the local network.
package mdns

import (
	"fmt"
	"os"
	"strings"

	"github.com/grandcat/zeroconf"

	"github.com/rori/roriclient/internal/config"
	"github.com/rori/roriclient/internal/core"
	"github.com/rori/roriclient/internal/logging"
)

// SayPath is the advertised text-submission endpoint.
const SayPath = "/say"

// InstanceName returns the advertised instance name for alias.
func InstanceName(alias string) string {
	host, _ := os.Hostname()
	host = strings.TrimSuffix(host, ".local")
	if host == "" {
		host = "rori"
	}
	if alias == "" {
		return "rori-client on " + host
	}
	return fmt.Sprintf("rori-client %s on %s", alias, host)
}

// TXT returns the TXT records for identity.
func TXT(id core.Identity) []string {
	txt := []string{
		fmt.Sprintf("alias=%s", id.Alias),
		fmt.Sprintf("path=%s", SayPath),
	}
	if id.NetworkAddress != "" {
		txt = append(txt, fmt.Sprintf("identity=%s", id.NetworkAddress))
	}
	return txt
}

// Advertise registers the API port under cfg.Service. The returned function
// withdraws the advertisement. A disabled config advertises nothing.
func Advertise(cfg config.MDNSConfig, port int, id core.Identity) (shutdown func(), err error) {
	if !cfg.Enabled {
		return func() {}, nil
	}
	log := logging.Component("mdns")

	name := InstanceName(id.Alias)
	server, err := zeroconf.Register(name, cfg.Service, cfg.Domain, port, TXT(id), nil)
	if err != nil {
		return nil, fmt.Errorf("mdns register: %w", err)
	}
	log.Info("Advertised %s on %s (%s) port=%d", name, cfg.Service, cfg.Domain, port)
	return server.Shutdown, nil
}

// Package discovery announces the auditor API on the local network.
package discovery

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"haca/internal/utils"

	"github.com/pion/mdns/v2"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// LocalName normalizes a host name for mDNS, e.g. "haca" -> "haca.local"
func LocalName(name string) string {
	name = strings.TrimSuffix(strings.TrimSpace(name), ".")
	if name == "" {
		return ""
	}
	if !strings.HasSuffix(name, ".local") {
		name += ".local"
	}
	return name
}

// Announce answers mDNS queries for localName on IPv4 and, when available,
// IPv6. Close the returned conn to stop.
func Announce(localName string) (*mdns.Conn, error) {
	log := utils.Logger("MDNS")
	name := LocalName(localName)
	if name == "" {
		return nil, errors.New("mdns: empty local name")
	}

	addr4, err := net.ResolveUDPAddr("udp4", mdns.DefaultAddressIPv4)
	if err != nil {
		return nil, fmt.Errorf("resolve udp4: %w", err)
	}
	l4, err := net.ListenUDP("udp4", addr4)
	if err != nil {
		return nil, fmt.Errorf("listen udp4: %w", err)
	}

	var pc6 *ipv6.PacketConn
	if addr6, err := net.ResolveUDPAddr("udp6", mdns.DefaultAddressIPv6); err == nil {
		if l6, err := net.ListenUDP("udp6", addr6); err == nil {
			pc6 = ipv6.NewPacketConn(l6)
		} else {
			log.Warnf("IPv6 unavailable, announcing on IPv4 only: %v", err)
		}
	}

	conn, err := mdns.Server(ipv4.NewPacketConn(l4), pc6, &mdns.Config{
		LocalNames: []string{name},
	})
	if err != nil {
		l4.Close()
		if pc6 != nil {
			pc6.Close()
		}
		return nil, fmt.Errorf("start mdns server: %w", err)
	}
	log.Infof("Announcing %s", name)
	return conn, nil
}

package net

import (
	"net"

	"github.com/pkg/errors"
)

var ErrNoAdvertiseAddr = errors.New("no routable IPv4 address found")

// AdvertiseAddr returns the address other hosts should use to reach this
// server. A configured address wins and must be an IPv4 literal or a host
// name; otherwise the first routable IPv4 address of an up interface is used.
func AdvertiseAddr(configured string) (string, error) {
	if configured != "" {
		if ip := net.ParseIP(configured); ip != nil && ip.To4() == nil {
			return "", errors.Errorf("advertise address %s is not IPv4", configured)
		}
		return configured, nil
	}
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", errors.Wrap(err, "list interfaces")
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			return "", errors.Wrapf(err, "addresses of %s", iface.Name)
		}
		if ip, ok := firstRoutableIPv4(addrs); ok {
			return ip, nil
		}
	}
	return "", ErrNoAdvertiseAddr
}

func firstRoutableIPv4(addrs []net.Addr) (string, bool) {
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip4 := ipNet.IP.To4()
		if ip4 == nil || ip4.IsLoopback() || ip4.IsLinkLocalUnicast() {
			continue
		}
		return ip4.String(), true
	}
	return "", false
}

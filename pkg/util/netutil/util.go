// Package netutil has helpers for client addresses.
package netutil

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/pires/go-proxyproto"
)

// Host returns the host of net.Addr.
func Host(addr net.Addr) string {
	host, _, _ := splitHostPort(addr.String())
	return host
}

// Port returns the port of net.Addr.
func Port(addr net.Addr) uint16 {
	_, port, _ := splitHostPort(addr.String())
	return port
}

// HostPort returns the split host and port of a net.Addr.
func HostPort(addr net.Addr) (host string, port uint16) {
	host, port, _ = splitHostPort(addr.String())
	return
}

// WithIP returns a tcp address with the given ip and the port of addr.
// It is used to replace the address of a proxy with the address of the
// client the proxy forwards.
func WithIP(addr net.Addr, ip string) (*net.TCPAddr, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, fmt.Errorf("invalid ip address %q", ip)
	}
	return &net.TCPAddr{IP: parsed, Port: int(Port(addr))}, nil
}

// ProxyHeader returns a PROXY protocol v2 header for a connection from srcAddr to destAddr.
func ProxyHeader(srcAddr, destAddr net.Addr) (*proxyproto.Header, error) {
	src, err := toTCPAddr(srcAddr)
	if err != nil {
		return nil, err
	}
	dst, err := toTCPAddr(destAddr)
	if err != nil {
		return nil, err
	}
	// on mismatch v4 to v6: use v6
	if (src.IP.To4() == nil) != (dst.IP.To4() == nil) {
		src = &net.TCPAddr{IP: src.IP.To16(), Port: src.Port}
		dst = &net.TCPAddr{IP: dst.IP.To16(), Port: dst.Port}
	}
	header := proxyproto.HeaderProxyFromAddrs(2, src, dst)
	if src.IP.To4() == nil || dst.IP.To4() == nil {
		header.TransportProtocol = proxyproto.TCPv6
	}
	return header, nil
}

func toTCPAddr(addr net.Addr) (*net.TCPAddr, error) {
	switch a := addr.(type) {
	case nil:
		return nil, errors.New("missing address")
	case *net.TCPAddr:
		return a, nil
	default:
		host, port := HostPort(addr)
		ip := net.ParseIP(host)
		if ip == nil {
			return nil, fmt.Errorf("invalid ip address %T: %+v (host: %s, port: %d)", addr, addr, host, port)
		}
		return &net.TCPAddr{IP: ip, Port: int(port)}, nil
	}
}

func splitHostPort(addr string) (host string, port uint16, err error) {
	portInt := 0
	portStr := ""
	host, portStr, err = net.SplitHostPort(addr)
	if err == nil {
		portInt, err = strconv.Atoi(portStr)
	} else if isMissingPortErr(err) {
		host = addr
		err = nil
	}
	return host, uint16(portInt), err
}

func isMissingPortErr(err error) bool {
	var addrErr *net.AddrError
	return err != nil && errors.As(err, &addrErr) && addrErr.Err == "missing port in address"
}

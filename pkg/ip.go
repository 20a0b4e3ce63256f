package pkg

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// IPIsLocal reports whether the address is a loopback one, which is what requests
// arriving through an SSH tunnel look like.
func IPIsLocal(ipAddr string) bool {
	host := ipAddr
	if h, _, err := net.SplitHostPort(ipAddr); err == nil {
		host = h
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// ReadUserIP returns the client IP, honoring proxy headers first.
func ReadUserIP(r *http.Request) (string, error) {
	ipAddr := r.Header.Get("X-Real-Ip")
	if ipAddr == "" {
		// X-Forwarded-For: client, proxy1, proxy2
		ipAddr = strings.TrimSpace(strings.Split(r.Header.Get("X-Forwarded-For"), ",")[0])
	}
	if ipAddr == "" {
		ipAddr = r.RemoteAddr
	}

	if host, _, err := net.SplitHostPort(ipAddr); err == nil {
		ipAddr = host
	}

	if net.ParseIP(ipAddr) == nil {
		return "", fmt.Errorf("ip addr %s is invalid", ipAddr)
	}

	return ipAddr, nil
}

package runner

import (
	"errors"
	"net"
	"strings"
)

var (
	// ErrConnectivity marks an extraction failure caused by the network
	// rather than the page. Adapters may wrap it explicitly.
	ErrConnectivity = errors.New("network connectivity lost")

	ErrNoCandidates = errors.New("no candidate products found")
)

// Markers emitted by Firefox and Chromium when the network is down.
var connectivityMarkers = []string{
	"NS_ERROR_UNKNOWN_HOST",
	"NS_ERROR_ABORT",
	"NS_ERROR_CONNECTION_REFUSED",
	"NS_ERROR_CONNECTION_TIMEOUT",
	"NS_ERROR_NET_TIMEOUT",
	"NS_ERROR_NET_INTERRUPT",
	"ERR_INTERNET_DISCONNECTED",
	"ERR_NETWORK_CHANGED",
	"ERR_NAME_NOT_RESOLVED",
	"ERR_CONNECTION_REFUSED",
	"ERR_CONNECTION_TIMED_OUT",
	"ERR_CONNECTION_RESET",
	"ERR_ADDRESS_UNREACHABLE",
}

// IsConnectivityError reports whether err means the network is unavailable.
// Everything else is treated as a transient site error.
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConnectivity) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}

	msg := err.Error()
	for _, marker := range connectivityMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

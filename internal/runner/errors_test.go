package runner

import (
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsConnectivityError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"firefox unknown host", errors.New("page.goto: NS_ERROR_UNKNOWN_HOST"), true},
		{"firefox abort", errors.New("NS_ERROR_ABORT while loading"), true},
		{"firefox refused", errors.New("NS_ERROR_CONNECTION_REFUSED"), true},
		{"firefox net timeout", errors.New("NS_ERROR_NET_TIMEOUT"), true},
		{"chromium disconnected", errors.New("net::ERR_INTERNET_DISCONNECTED"), true},
		{"chromium network changed", errors.New("net::ERR_NETWORK_CHANGED"), true},
		{"chromium dns", errors.New("net::ERR_NAME_NOT_RESOLVED"), true},
		{"wrapped sentinel", fmt.Errorf("fetch image: %w", ErrConnectivity), true},
		{"dns error", &net.DNSError{Err: "no such host", Name: "example.com"}, true},
		{"dial error", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, true},
		{"read error", &net.OpError{Op: "read", Err: errors.New("reset")}, false},
		{"selector timeout", errors.New("timeout 30000ms exceeded waiting for h1"), false},
		{"missing element", errors.New("product name not found"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsConnectivityError(tt.err))
		})
	}
}

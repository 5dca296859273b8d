package supervisor

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// networkErrnos are the connectivity-failure category codes.
var networkErrnos = []syscall.Errno{
	syscall.ECONNREFUSED,
	syscall.ECONNRESET,
	syscall.ECONNABORTED,
	syscall.ETIMEDOUT,
	syscall.ENETUNREACH,
	syscall.ENETDOWN,
	syscall.EHOSTUNREACH,
}

// networkPhrases are matched case-insensitively against the error text.
// The runtime-style code names cover errors that crossed a process
// boundary and survive only as strings.
var networkPhrases = []string{
	"getaddrinfo",
	"enotfound",
	"econnrefused",
	"econnreset",
	"etimedout",
	"socket hang up",
	"fetch failed",
	"network is unreachable",
	"connection refused",
	"connection reset",
	"no such host",
}

// IsNetworkError reports whether err is a connectivity failure. The
// category check runs first but either a matching code or a matching
// message phrase suffices. nil returns false.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	for _, errno := range networkErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, phrase := range networkPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

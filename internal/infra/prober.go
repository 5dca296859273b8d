package infra

import (
	"context"
	"net"
	"time"

	"github.com/codeglyph/agentshim/internal/domain"
)

// DNSProber checks connectivity with a name-resolution query against a
// fixed external host. No payload is exchanged; a successful lookup is
// the whole probe.
type DNSProber struct {
	host     string
	timeout  time.Duration
	resolver *net.Resolver
}

// NewProber creates a connectivity prober for host.
func NewProber(host string, timeout time.Duration) domain.ConnectivityProber {
	return &DNSProber{
		host:     host,
		timeout:  timeout,
		resolver: net.DefaultResolver,
	}
}

// Probe returns nil when host resolves.
func (p *DNSProber) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	_, err := p.resolver.LookupHost(ctx, p.host)
	return err
}

// Ensure DNSProber implements domain.ConnectivityProber.
var _ domain.ConnectivityProber = (*DNSProber)(nil)

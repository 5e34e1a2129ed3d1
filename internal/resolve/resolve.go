package resolve

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
)

// Resolver looks up the first A (then AAAA) record for a host. IP literals are
// returned unchanged. With no server configured the system resolver is used.
type Resolver struct {
	server string
	client *dns.Client
}

// New creates a Resolver querying server ("host:port" or "host", port 53
// assumed). An empty server selects the system resolver.
func New(server string) *Resolver {
	if server != "" {
		if _, _, err := net.SplitHostPort(server); err != nil {
			server = net.JoinHostPort(server, "53")
		}
	}
	return &Resolver{
		server: server,
		client: &dns.Client{Timeout: 5 * time.Second},
	}
}

// LookupIP resolves host to a single address.
func (r *Resolver) LookupIP(ctx context.Context, host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return ip, nil
	}
	if r.server == "" {
		ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
		if err != nil {
			return nil, err
		}
		for _, ip := range ips {
			if ip.To4() != nil {
				return ip, nil
			}
		}
		return ips[0], nil
	}
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		ip, err := r.query(ctx, host, qtype)
		if err != nil {
			return nil, err
		}
		if ip != nil {
			return ip, nil
		}
	}
	return nil, fmt.Errorf("no address records for %s", host)
}

func (r *Resolver) query(ctx context.Context, host string, qtype uint16) (net.IP, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), qtype)
	resp, _, err := r.client.ExchangeContext(ctx, msg, r.server)
	if err != nil {
		return nil, fmt.Errorf("dns query %s: %w", host, err)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("dns query %s: %s", host, dns.RcodeToString[resp.Rcode])
	}
	return firstAddr(resp), nil
}

func firstAddr(resp *dns.Msg) net.IP {
	for _, ans := range resp.Answer {
		switch rr := ans.(type) {
		case *dns.A:
			return rr.A
		case *dns.AAAA:
			return rr.AAAA
		}
	}
	return nil
}

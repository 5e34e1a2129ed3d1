package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"rtt-collect/internal/measure"
)

// Resolver turns a host name into the address to probe.
type Resolver interface {
	LookupIP(ctx context.Context, host string) (net.IP, error)
}

// ICMPProber sends echo requests itself instead of shelling out. Without
// privileged it uses datagram ICMP sockets, which Linux only allows for
// groups listed in net.ipv4.ping_group_range.
type ICMPProber struct {
	count      int
	timeout    time.Duration
	privileged bool
	resolver   Resolver
	id         int
}

// NewICMPProber creates an ICMPProber sending count echoes, waiting up to
// timeout for each reply.
func NewICMPProber(count int, timeout time.Duration, privileged bool, r Resolver) *ICMPProber {
	if count <= 0 {
		count = 3
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ICMPProber{count: count, timeout: timeout, privileged: privileged, resolver: r, id: os.Getpid() & 0xffff}
}

// family holds the per-IP-version socket parameters.
type family struct {
	network string
	listen  string
	proto   int
	request icmp.Type
	reply   icmp.Type
}

func familyFor(ip net.IP, privileged bool) family {
	if ip.To4() != nil {
		f := family{network: "udp4", listen: "0.0.0.0", proto: 1, request: ipv4.ICMPTypeEcho, reply: ipv4.ICMPTypeEchoReply}
		if privileged {
			f.network = "ip4:icmp"
		}
		return f
	}
	f := family{network: "udp6", listen: "::", proto: 58, request: ipv6.ICMPTypeEchoRequest, reply: ipv6.ICMPTypeEchoReply}
	if privileged {
		f.network = "ip6:ipv6-icmp"
	}
	return f
}

// Probe implements Prober.
func (p *ICMPProber) Probe(ctx context.Context, host string) (*measure.RTT, error) {
	ip, err := p.resolver.LookupIP(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %v", ErrProbeFailed, host, err)
	}
	f := familyFor(ip, p.privileged)
	conn, err := icmp.ListenPacket(f.network, f.listen)
	if err != nil {
		return nil, fmt.Errorf("icmp listen %s: %w", f.network, err)
	}
	defer conn.Close()

	var samples []float64
	for seq := 1; seq <= p.count; seq++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rtt, ok, err := p.echo(conn, f, ip, seq)
		if err != nil {
			return nil, err
		}
		if ok {
			samples = append(samples, rtt)
		}
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no echo replies from %s", ErrProbeFailed, host)
	}
	return summarize(samples), nil
}

// echo sends one request and waits for the matching reply. A timeout is
// reported as ok=false, not as an error.
func (p *ICMPProber) echo(conn *icmp.PacketConn, f family, ip net.IP, seq int) (float64, bool, error) {
	msg := icmp.Message{
		Type: f.request, Code: 0,
		Body: &icmp.Echo{ID: p.id, Seq: seq, Data: []byte("rtt-collect")},
	}
	b, err := msg.Marshal(nil)
	if err != nil {
		return 0, false, err
	}
	var dst net.Addr = &net.UDPAddr{IP: ip}
	if p.privileged {
		dst = &net.IPAddr{IP: ip}
	}

	start := time.Now()
	if _, err := conn.WriteTo(b, dst); err != nil {
		return 0, false, fmt.Errorf("icmp write: %w", err)
	}
	if err := conn.SetReadDeadline(start.Add(p.timeout)); err != nil {
		return 0, false, err
	}
	buf := make([]byte, 1500)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return 0, false, nil
			}
			return 0, false, fmt.Errorf("icmp read: %w", err)
		}
		rm, err := icmp.ParseMessage(f.proto, buf[:n])
		if err != nil || rm.Type != f.reply {
			continue
		}
		reply, ok := rm.Body.(*icmp.Echo)
		if !ok || reply.Seq != seq {
			continue
		}
		// datagram sockets get their echo ID rewritten by the kernel
		if p.privileged && reply.ID != p.id {
			continue
		}
		return float64(time.Since(start)) / float64(time.Millisecond), true, nil
	}
}

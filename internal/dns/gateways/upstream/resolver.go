// Package upstream performs recursive name resolution by forwarding address
// queries to external recursive resolvers.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"

	"dotdns/internal/dns/domain"
)

var (
	ErrNoServersProvided = errors.New("no upstream DNS servers provided")
	ErrNoAddress         = errors.New("upstream returned no usable address")
)

// ExchangeFunc sends a DNS message to the given server and returns its reply.
// It exists so tests can stand in for the network.
type ExchangeFunc func(ctx context.Context, msg *dns.Msg, server string) (*dns.Msg, time.Duration, error)

// Resolver forwards A/AAAA lookups to a list of upstream servers, trying
// each in order until one answers.
type Resolver struct {
	servers  []string
	timeout  time.Duration
	exchange ExchangeFunc
}

// Options configures a Resolver. Servers is required; Timeout defaults to
// 5 seconds; Exchange is injectable for testing.
type Options struct {
	Servers  []string
	Timeout  time.Duration
	Exchange ExchangeFunc
}

// NewResolver creates an upstream resolver with the specified options.
func NewResolver(opts Options) (*Resolver, error) {
	if len(opts.Servers) == 0 {
		return nil, ErrNoServersProvided
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	r := &Resolver{
		servers:  opts.Servers,
		timeout:  opts.Timeout,
		exchange: opts.Exchange,
	}
	if r.exchange == nil {
		client := &dns.Client{Timeout: opts.Timeout}
		r.exchange = client.ExchangeContext
	}
	return r, nil
}

// LookupAddr resolves name to an address of the requested record type.
// Servers are tried serially; the first reply carrying a matching address
// record wins. A reply without one counts as a failure for that server.
func (r *Resolver) LookupAddr(ctx context.Context, name string, rrtype domain.RRType) (net.IP, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), uint16(rrtype))

	var lastErr error = ErrNoAddress
	for _, server := range r.servers {
		reply, _, err := r.exchange(ctx, msg, server)
		if err != nil {
			lastErr = fmt.Errorf("server %s: %w", server, err)
			continue
		}
		if ip := firstAddress(reply, rrtype); ip != nil {
			return ip, nil
		}
		lastErr = fmt.Errorf("server %s: %w", server, ErrNoAddress)
	}
	return nil, fmt.Errorf("all %d upstream servers failed: %w", len(r.servers), lastErr)
}

// firstAddress extracts the first address record of the requested type from
// a reply's answer section.
func firstAddress(reply *dns.Msg, rrtype domain.RRType) net.IP {
	if reply == nil {
		return nil
	}
	for _, rr := range reply.Answer {
		switch record := rr.(type) {
		case *dns.A:
			if rrtype == domain.RRTypeA {
				return record.A
			}
		case *dns.AAAA:
			if rrtype == domain.RRTypeAAAA {
				return record.AAAA
			}
		}
	}
	return nil
}

// Package responder decides the answer for a parsed query: it resolves the
// queried name through the upstream backend, falls back to a fixed address
// when resolution fails, and synthesizes the wire-format response.
package responder

import (
	"context"
	"errors"
	"fmt"
	"net"

	"dotdns/internal/dns/common/log"
	"dotdns/internal/dns/domain"
	"dotdns/internal/dns/gateways/wire"
)

// ErrUnsupportedQuestion indicates a question this server does not answer
// (anything other than an IN-class A or AAAA query).
var ErrUnsupportedQuestion = errors.New("unsupported question")

// Fallback addresses answered when resolution fails. Clients never see an
// error rcode; absence of a resolvable address masks as these.
var (
	defaultFallbackV4 = net.IPv4(192, 168, 1, 1)
	defaultFallbackV6 = net.IPv6loopback
)

// Responder implements Handler.
type Responder struct {
	codec    wire.Codec
	resolver AddressResolver
	cache    ResponseCache
	logger   log.Logger
	ttl      uint32
	fallback net.IP // IPv4 fallback; the IPv6 fallback is fixed at ::1
}

// Options configures a Responder. Codec, Resolver, and Cache are required;
// Fallback defaults to 192.168.1.1 and Logger to a noop logger.
type Options struct {
	Codec    wire.Codec
	Resolver AddressResolver
	Cache    ResponseCache
	Logger   log.Logger
	TTL      uint32
	Fallback net.IP
}

// New constructs a Responder from opts.
func New(opts Options) *Responder {
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	if opts.Fallback == nil {
		opts.Fallback = defaultFallbackV4
	}
	return &Responder{
		codec:    opts.Codec,
		resolver: opts.Resolver,
		cache:    opts.Cache,
		logger:   opts.Logger,
		ttl:      opts.TTL,
		fallback: opts.Fallback,
	}
}

// Answer resolves and encodes a response for the first question of q.
// Remaining questions are ignored; the question section is still echoed
// whole into the response.
func (r *Responder) Answer(ctx context.Context, q domain.Query) ([]byte, error) {
	question, err := q.First()
	if err != nil {
		return nil, err
	}
	if !question.Type.IsSupported() || !question.Class.IsSupported() {
		return nil, fmt.Errorf("%w: %s %s", ErrUnsupportedQuestion, question.Class, question.Type)
	}

	ip := r.resolve(ctx, question)

	r.logger.Debug(map[string]any{
		"query_id": q.ID,
		"name":     question.Name,
		"type":     question.Type.String(),
		"ip":       ip.String(),
	}, "Synthesizing DNS answer")

	return r.codec.BuildResponse(question.Name, ip, r.ttl, q.Raw)
}

// AnswerCached is Answer with the shared response cache in front. The cache
// key is the exact queried name; a fresh answer is stored before returning.
func (r *Responder) AnswerCached(ctx context.Context, q domain.Query) ([]byte, error) {
	question, err := q.First()
	if err != nil {
		return nil, err
	}

	if response, ok := r.cache.Get(question.Name); ok {
		r.logger.Debug(map[string]any{
			"query_id": q.ID,
			"name":     question.Name,
		}, "Served response from cache")
		return response, nil
	}

	response, err := r.Answer(ctx, q)
	if err != nil {
		return nil, err
	}
	r.cache.Set(question.Name, response)
	return response, nil
}

// resolve is the resolution adapter: it delegates to the upstream resolver
// and masks any failure with the fallback address for the question's
// address family. Both A and AAAA go through the resolver.
func (r *Responder) resolve(ctx context.Context, question domain.Question) net.IP {
	ip, err := r.resolver.LookupAddr(ctx, question.Name, question.Type)
	if err == nil && ip != nil {
		return ip
	}

	fields := map[string]any{
		"name": question.Name,
		"type": question.Type.String(),
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	r.logger.Debug(fields, "Resolution failed, answering fallback address")

	if question.Type == domain.RRTypeAAAA {
		return defaultFallbackV6
	}
	return r.fallback
}

var _ Handler = (*Responder)(nil)

package responder

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dotdns/internal/dns/domain"
	"dotdns/internal/dns/gateways/wire"
	"dotdns/internal/dns/repos/respcache"
)

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) LookupAddr(ctx context.Context, name string, rrtype domain.RRType) (net.IP, error) {
	args := m.Called(ctx, name, rrtype)
	ip, _ := args.Get(0).(net.IP)
	return ip, args.Error(1)
}

// newQuery builds a parsed query plus its raw bytes via the wire codec.
func newQuery(t *testing.T, name string, qtype uint16) domain.Query {
	t.Helper()
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), qtype)
	raw, err := m.Pack()
	require.NoError(t, err)

	q, err := wire.NewCodec().DecodeQuery(raw)
	require.NoError(t, err)
	return q
}

// answeredIP decodes a synthesized response and returns its single answer
// address.
func answeredIP(t *testing.T, response []byte) net.IP {
	t.Helper()
	var msg dns.Msg
	require.NoError(t, msg.Unpack(response))
	require.Len(t, msg.Answer, 1)
	switch rr := msg.Answer[0].(type) {
	case *dns.A:
		return rr.A
	case *dns.AAAA:
		return rr.AAAA
	default:
		t.Fatalf("unexpected answer type %T", msg.Answer[0])
		return nil
	}
}

func newTestResponder(t *testing.T, resolver AddressResolver) *Responder {
	t.Helper()
	cache, err := respcache.New(10)
	require.NoError(t, err)
	return New(Options{
		Codec:    wire.NewCodec(),
		Resolver: resolver,
		Cache:    cache,
		TTL:      60,
	})
}

func TestAnswer_ResolvedA(t *testing.T) {
	resolver := &mockResolver{}
	resolver.On("LookupAddr", mock.Anything, "example.com.", domain.RRTypeA).
		Return(net.ParseIP("93.184.216.34"), nil)

	r := newTestResponder(t, resolver)
	q := newQuery(t, "example.com", dns.TypeA)

	response, err := r.Answer(context.Background(), q)
	require.NoError(t, err)
	assert.True(t, answeredIP(t, response).Equal(net.ParseIP("93.184.216.34")))
	resolver.AssertExpectations(t)
}

func TestAnswer_FallbackOnResolutionFailure(t *testing.T) {
	resolver := &mockResolver{}
	resolver.On("LookupAddr", mock.Anything, "down.example.", domain.RRTypeA).
		Return(nil, errors.New("all upstream servers failed"))

	r := newTestResponder(t, resolver)
	q := newQuery(t, "down.example", dns.TypeA)

	response, err := r.Answer(context.Background(), q)
	require.NoError(t, err, "resolution failure is masked, never surfaced")
	assert.True(t, answeredIP(t, response).Equal(net.ParseIP("192.168.1.1")))
}

func TestAnswer_AAAAGoesThroughResolver(t *testing.T) {
	resolver := &mockResolver{}
	resolver.On("LookupAddr", mock.Anything, "v6.example.", domain.RRTypeAAAA).
		Return(net.ParseIP("2001:db8::7"), nil)

	r := newTestResponder(t, resolver)
	q := newQuery(t, "v6.example", dns.TypeAAAA)

	response, err := r.Answer(context.Background(), q)
	require.NoError(t, err)
	assert.True(t, answeredIP(t, response).Equal(net.ParseIP("2001:db8::7")))
	resolver.AssertExpectations(t)
}

func TestAnswer_AAAAFallbackIsLoopback(t *testing.T) {
	resolver := &mockResolver{}
	resolver.On("LookupAddr", mock.Anything, mock.Anything, domain.RRTypeAAAA).
		Return(nil, errors.New("timeout"))

	r := newTestResponder(t, resolver)
	q := newQuery(t, "v6.example", dns.TypeAAAA)

	response, err := r.Answer(context.Background(), q)
	require.NoError(t, err)
	assert.True(t, answeredIP(t, response).Equal(net.ParseIP("::1")))
}

func TestAnswer_CustomFallback(t *testing.T) {
	resolver := &mockResolver{}
	resolver.On("LookupAddr", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("nope"))

	cache, err := respcache.New(10)
	require.NoError(t, err)
	r := New(Options{
		Codec:    wire.NewCodec(),
		Resolver: resolver,
		Cache:    cache,
		TTL:      60,
		Fallback: net.ParseIP("10.1.2.3"),
	})

	response, err := r.Answer(context.Background(), newQuery(t, "x.example", dns.TypeA))
	require.NoError(t, err)
	assert.True(t, answeredIP(t, response).Equal(net.ParseIP("10.1.2.3")))
}

func TestAnswer_UnsupportedType(t *testing.T) {
	resolver := &mockResolver{}
	r := newTestResponder(t, resolver)
	q := newQuery(t, "example.com", dns.TypeMX)

	_, err := r.Answer(context.Background(), q)
	assert.ErrorIs(t, err, ErrUnsupportedQuestion)
	resolver.AssertNotCalled(t, "LookupAddr", mock.Anything, mock.Anything, mock.Anything)
}

func TestAnswer_NoQuestions(t *testing.T) {
	r := newTestResponder(t, &mockResolver{})

	_, err := r.Answer(context.Background(), domain.Query{ID: 9, Raw: make([]byte, 12)})
	assert.ErrorIs(t, err, domain.ErrNoQuestions)
}

func TestAnswer_OnlyFirstQuestionAnswered(t *testing.T) {
	resolver := &mockResolver{}
	resolver.On("LookupAddr", mock.Anything, "first.example.", domain.RRTypeA).
		Return(net.ParseIP("203.0.113.1"), nil).Once()

	r := newTestResponder(t, resolver)
	q := newQuery(t, "first.example", dns.TypeA)
	q.Questions = append(q.Questions, domain.Question{
		Name: "second.example.", Type: domain.RRTypeA, Class: domain.RRClassIN,
	})

	_, err := r.Answer(context.Background(), q)
	require.NoError(t, err)
	resolver.AssertExpectations(t)
}

func TestAnswerCached_SecondHitSkipsResolver(t *testing.T) {
	resolver := &mockResolver{}
	resolver.On("LookupAddr", mock.Anything, "hot.example.", domain.RRTypeA).
		Return(net.ParseIP("203.0.113.5"), nil).Once()

	r := newTestResponder(t, resolver)
	q := newQuery(t, "hot.example", dns.TypeA)

	first, err := r.AnswerCached(context.Background(), q)
	require.NoError(t, err)

	second, err := r.AnswerCached(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	resolver.AssertNumberOfCalls(t, "LookupAddr", 1)
}

func TestAnswerCached_FailureNotCached(t *testing.T) {
	resolver := &mockResolver{}
	r := newTestResponder(t, resolver)
	q := newQuery(t, "example.com", dns.TypeTXT)

	_, err := r.AnswerCached(context.Background(), q)
	require.ErrorIs(t, err, ErrUnsupportedQuestion)

	// The name must not be poisoned in the cache.
	_, err = r.AnswerCached(context.Background(), q)
	assert.ErrorIs(t, err, ErrUnsupportedQuestion)
}

package responder

import (
	"context"
	"net"

	"dotdns/internal/dns/domain"
)

// AddressResolver performs recursive resolution of a name to an address of
// the requested record type.
type AddressResolver interface {
	LookupAddr(ctx context.Context, name string, rrtype domain.RRType) (net.IP, error)
}

// ResponseCache maps a queried name to a previously encoded response.
type ResponseCache interface {
	Get(name string) ([]byte, bool)
	Set(name string, response []byte)
}

// Handler is what transports call to turn a parsed query into response
// bytes. Answer always resolves and encodes; AnswerCached consults the
// shared response cache first and stores fresh answers.
type Handler interface {
	Answer(ctx context.Context, q domain.Query) ([]byte, error)
	AnswerCached(ctx context.Context, q domain.Query) ([]byte, error)
}

// Package wire converts between raw DNS messages and domain objects.
// Query decoding delegates to the miekg/dns parser; response synthesis is
// done by hand because the response must echo exact byte ranges of the
// original query (RFC 1035 wire format).
package wire

import (
	"net"

	"dotdns/internal/dns/domain"
)

// Codec decodes queries and synthesizes responses.
type Codec interface {
	// DecodeQuery parses a raw DNS query message into a domain Query.
	// The returned Query retains a copy of the raw bytes for synthesis.
	DecodeQuery(data []byte) (domain.Query, error)

	// BuildResponse synthesizes a complete DNS response to rawQuery,
	// answering the queried name with a single address record.
	BuildResponse(name string, ip net.IP, ttl uint32, rawQuery []byte) ([]byte, error)
}

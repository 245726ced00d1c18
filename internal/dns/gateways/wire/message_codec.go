package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/miekg/dns"

	"dotdns/internal/dns/domain"
)

// Sentinel errors for encoding failures. Both are unrecoverable for the
// record being encoded; callers must not send a partial response.
var (
	ErrLabelTooLong       = errors.New("label exceeds 63 bytes")
	ErrUnsupportedAddress = errors.New("unsupported address type")
	ErrQueryTooShort      = errors.New("query shorter than DNS header")
)

// Standard-response flag bytes: QR=1, opcode=0, RD=1, RA=1, rcode=0.
// Every synthesized response carries these; error rcodes are never sent.
const (
	flagsHi = 0x81
	flagsLo = 0x80
)

// messageCodec implements Codec.
type messageCodec struct{}

// NewCodec returns the production message codec.
func NewCodec() Codec {
	return &messageCodec{}
}

// DecodeQuery parses data with the miekg/dns parser and converts the
// question section into domain objects. Names keep the case and trailing
// dot the parser reports; no normalization happens here or later.
func (c *messageCodec) DecodeQuery(data []byte) (domain.Query, error) {
	var msg dns.Msg
	if err := msg.Unpack(data); err != nil {
		return domain.Query{}, fmt.Errorf("malformed query: %w", err)
	}

	questions := make([]domain.Question, 0, len(msg.Question))
	for _, q := range msg.Question {
		questions = append(questions, domain.Question{
			Name:  q.Name,
			Type:  domain.RRType(q.Qtype),
			Class: domain.RRClass(q.Qclass),
		})
	}

	// The raw bytes are echoed into the response later, so keep our own copy
	// in case the caller reuses its receive buffer.
	raw := make([]byte, len(data))
	copy(raw, data)

	return domain.Query{
		ID:        msg.Id,
		Questions: questions,
		Raw:       raw,
	}, nil
}

// BuildResponse synthesizes a response to rawQuery answering name with ip.
//
// Layout: transaction id and question count are copied verbatim from the
// query (bytes [0,2) and [4,6)), the question section (bytes [12,end)) is
// echoed untouched, and exactly one address record is appended. The record
// data length is backpatched over its 2-byte placeholder once the address
// bytes are written, so the header counts always match the body.
func (c *messageCodec) BuildResponse(name string, ip net.IP, ttl uint32, rawQuery []byte) ([]byte, error) {
	if len(rawQuery) < 12 {
		return nil, ErrQueryTooShort
	}

	var buf bytes.Buffer
	buf.Write(rawQuery[0:2])                            // transaction id
	buf.Write([]byte{flagsHi, flagsLo})                 // standard response flags
	buf.Write(rawQuery[4:6])                            // QDCOUNT, echoed
	_ = binary.Write(&buf, binary.BigEndian, uint16(1)) // ANCOUNT
	_ = binary.Write(&buf, binary.BigEndian, uint16(0)) // NSCOUNT
	_ = binary.Write(&buf, binary.BigEndian, uint16(0)) // ARCOUNT
	buf.Write(rawQuery[12:])                            // original question section

	if err := writeName(&buf, name); err != nil {
		return nil, err
	}

	rrtype, addr, err := addressRecordData(ip)
	if err != nil {
		return nil, err
	}
	_ = binary.Write(&buf, binary.BigEndian, uint16(rrtype))
	_ = binary.Write(&buf, binary.BigEndian, uint16(domain.RRClassIN))
	_ = binary.Write(&buf, binary.BigEndian, ttl)

	// Reserve the RDLENGTH placeholder, append the address, then backpatch
	// the placeholder with the actual byte count.
	rdlenPos := buf.Len()
	buf.Write([]byte{0, 0})
	dataStart := buf.Len()
	buf.Write(addr)

	out := buf.Bytes()
	dataLen := buf.Len() - dataStart
	binary.BigEndian.PutUint16(out[rdlenPos:rdlenPos+2], uint16(dataLen))

	return out, nil
}

// writeName encodes a domain name as length-prefixed labels split on ".",
// terminated by a zero length byte. Empty labels (leading dots, the FQDN
// trailing dot) are skipped; a label over 63 bytes is an error.
func writeName(buf *bytes.Buffer, name string) error {
	for _, label := range strings.Split(name, ".") {
		if len(label) == 0 {
			continue
		}
		if len(label) > 63 {
			return fmt.Errorf("%w: %q", ErrLabelTooLong, label)
		}
		buf.WriteByte(byte(len(label)))
		buf.WriteString(label)
	}
	buf.WriteByte(0)
	return nil
}

// addressRecordData maps an IP address onto its record type and data bytes:
// 4-byte IPv4 data for type A, 16-byte IPv6 data for type AAAA.
func addressRecordData(ip net.IP) (domain.RRType, []byte, error) {
	if ip4 := ip.To4(); ip4 != nil {
		return domain.RRTypeA, ip4, nil
	}
	if ip16 := ip.To16(); ip16 != nil {
		return domain.RRTypeAAAA, ip16, nil
	}
	return 0, nil, fmt.Errorf("%w: %v", ErrUnsupportedAddress, ip)
}

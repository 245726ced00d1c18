package domain

import "fmt"

// RRClass represents a DNS resource record class. Only IN is served.
type RRClass uint16

const (
	RRClassIN RRClass = 1 // IN - Internet
)

// IsSupported returns true if the RRClass is one this server can answer.
func (c RRClass) IsSupported() bool {
	return c == RRClassIN
}

// String returns the textual representation of the RRClass.
// For unknown classes, it returns "UNKNOWN(<value>)".
func (c RRClass) String() string {
	if c == RRClassIN {
		return "IN"
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint16(c))
}

package domain

import "fmt"

// RRType represents a DNS resource record type.
// Only address records are served; see IANA DNS Parameters for codes.
type RRType uint16

const (
	RRTypeA    RRType = 1  // A - IPv4 address
	RRTypeAAAA RRType = 28 // AAAA - IPv6 address
)

// IsSupported returns true if the RRType is one this server can answer.
func (t RRType) IsSupported() bool {
	switch t {
	case RRTypeA, RRTypeAAAA:
		return true
	default:
		return false
	}
}

// String returns the textual representation of the RRType.
// For unknown types, it returns "UNKNOWN(<value>)".
func (t RRType) String() string {
	switch t {
	case RRTypeA:
		return "A"
	case RRTypeAAAA:
		return "AAAA"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint16(t))
	}
}

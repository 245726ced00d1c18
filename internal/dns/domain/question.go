package domain

import "fmt"

// Question is the query tuple (name, type, class) a client asks about.
// The name keeps whatever case and trailing dot the client sent; it is
// never normalized, and it doubles as the response cache key.
type Question struct {
	Name  string
	Type  RRType
	Class RRClass
}

// Validate checks whether the Question fields are structurally valid.
// Unsupported types and classes are legal on the wire; they are skipped
// later rather than rejected here.
func (q Question) Validate() error {
	if q.Name == "" {
		return fmt.Errorf("question name must not be empty")
	}
	return nil
}

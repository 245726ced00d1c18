package domain

import "errors"

// ErrNoQuestions indicates a query whose question section is empty.
var ErrNoQuestions = errors.New("query has no questions")

// Query represents a parsed DNS query. It is owned transiently per request
// and discarded once the response is sent.
//
// Raw holds the exact wire bytes the query arrived as. Response synthesis
// copies the transaction id, question count, and question section out of Raw
// verbatim, so the bytes must outlive the Query until the answer is encoded.
type Query struct {
	ID        uint16
	Questions []Question
	Raw       []byte
}

// First returns the first question of the query. Only the first question is
// ever answered, regardless of how many the packet carries.
func (q Query) First() (Question, error) {
	if len(q.Questions) == 0 {
		return Question{}, ErrNoQuestions
	}
	return q.Questions[0], nil
}

package aggregate

import "errors"

// ErrBadCommand is returned when a command's id extractor yields an empty
// aggregate id (spec step 1 of the pipeline).
var ErrBadCommand = errors.New("bad command: empty aggregate id")

// ErrCorruptStream means init or evolve panicked while folding a stream's
// events during rehydration.
var ErrCorruptStream = errors.New("corrupt stream")

// DomainRejection carries the message an aggregate's create or decide
// produced when it rejected a command.
type DomainRejection struct {
	Msg string
}

func (e *DomainRejection) Error() string { return "domain rejection: " + e.Msg }

// NewDomainRejection builds a DomainRejection with the given message.
func NewDomainRejection(msg string) error {
	return &DomainRejection{Msg: msg}
}

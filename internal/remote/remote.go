// Package remote describes the lifecycle of one backend request as seen by
// the UI: not started, loading, failed with a message, or succeeded.
package remote

import "fmt"

// Kind is the request lifecycle stage.
type Kind int

const (
	NotAsked Kind = iota
	Loading
	Failure
	Success
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case NotAsked:
		return "not-asked"
	case Loading:
		return "loading"
	case Failure:
		return "failure"
	case Success:
		return "success"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Status is the state of one request. Message is set only for Failure.
// The zero Status is NotAsked.
type Status struct {
	Kind    Kind
	Message string
}

// Failed returns a Failure status carrying a human-readable message.
func Failed(message string) Status {
	return Status{Kind: Failure, Message: message}
}

// Pending returns a Loading status.
func Pending() Status {
	return Status{Kind: Loading}
}

// Done returns a Success status.
func Done() Status {
	return Status{Kind: Success}
}

// String renders the status for logs and CLI output.
func (s Status) String() string {
	if s.Kind == Failure {
		return fmt.Sprintf("failure: %s", s.Message)
	}
	return s.Kind.String()
}

package emitter

import (
	"context"

	"github.com/vietddude/lottowatch/internal/core/domain"
)

// Result is the final outcome of delivering one payload.
type Result int

const (
	// ResultSent means the endpoint accepted the payload.
	ResultSent Result = iota
	// ResultDropped means the payload was abandoned after its retry budget.
	ResultDropped
)

func (r Result) String() string {
	if r == ResultSent {
		return "sent"
	}
	return "dropped"
}

// Emitter delivers formatted notifications.
type Emitter interface {
	// Deliver sends a payload to its channel. It never returns an error;
	// failures beyond the retry budget are logged and reported as ResultDropped.
	Deliver(ctx context.Context, payload domain.Payload) Result

	// Close releases transport resources
	Close() error
}

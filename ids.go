package reactor

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// IDGenerator produces the identifiers minted once per execution.
// Supplying a deterministic implementation via WithIDGenerator makes
// correlation identifiers reproducible in tests.
type IDGenerator interface {
	// ExecutionID identifies one Execute call.
	ExecutionID() string

	// TraceID is the correlation identifier propagated to every step
	// and outbound call of one execution.
	TraceID() string

	// SpanID is the execution's span identifier.
	SpanID() string
}

// uuidGenerator is the default IDGenerator: random UUIDs, rendered as
// 32 hex characters for trace identifiers and 16 for span identifiers.
type uuidGenerator struct{}

func (uuidGenerator) ExecutionID() string {
	return uuid.NewString()
}

func (uuidGenerator) TraceID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

func (uuidGenerator) SpanID() string {
	id := uuid.New()
	return hex.EncodeToString(id[8:])
}

package gateway

import "time"

// SchemaMode selects how hard the model is constrained to the critique shape.
type SchemaMode string

const (
	// SchemaStrict sends the full response schema with the request.
	SchemaStrict SchemaMode = "strict"
	// SchemaRelaxed only requests a JSON MIME type; the validator carries
	// the full structural burden.
	SchemaRelaxed SchemaMode = "relaxed"
)

// Attempt records one model call. A request produces an ordered attempt
// slice, strict first, so callers can see exactly what happened upstream.
type Attempt struct {
	Mode      SchemaMode
	Model     string
	StartedAt time.Time
	Duration  time.Duration
	// Err is the upstream error for a failed attempt, nil on success.
	Err error
}

// Package failure defines the closed failure taxonomy for the analysis
// pipeline and the pure mapping from failures to user-facing states.
// Every pipeline component reports failures as a *Report instead of
// panicking or leaking raw transport errors to the caller.
package failure

import (
	"fmt"
	"math"
	"time"
)

// Category identifies one of the fixed failure classes a pipeline run can
// end in. The set is closed: new failure modes must be mapped onto one of
// these before they reach the caller.
type Category string

const (
	// RateLimited means the per-session cooldown rejected the request
	// before any work was done.
	RateLimited Category = "rate_limited"

	// UpstreamUnavailable covers quota exhaustion, 5xx responses, and
	// timeouts from the inference service.
	UpstreamUnavailable Category = "upstream_unavailable"

	// ImageParseFailure means the uploaded image could not be decoded or
	// brought within the size limits.
	ImageParseFailure Category = "image_parse_failure"

	// InvalidResponseFormat means the model's output was not parseable
	// as JSON at all.
	InvalidResponseFormat Category = "invalid_response_format"

	// SchemaValidationFailure means the model returned JSON that does not
	// satisfy the critique schema (missing fields, wrong types, empty
	// critique content).
	SchemaValidationFailure Category = "schema_validation_failure"

	// Unknown is reserved for malformed requests and programmer errors.
	Unknown Category = "unknown"
)

// Report is the typed failure value passed between pipeline stages.
type Report struct {
	Category  Category
	Retryable bool
	Message   string

	// RetryAfter is how long the caller must wait before retrying.
	// Only set for RateLimited reports.
	RetryAfter time.Duration
}

// New builds a Report for the given category. Retryable is derived from the
// category: everything except Unknown can reasonably be retried by the user
// (after a cooldown, with a different image, or simply again later).
func New(category Category, message string) *Report {
	return &Report{
		Category:  category,
		Retryable: category != Unknown,
		Message:   message,
	}
}

// Newf is New with fmt.Sprintf formatting.
func Newf(category Category, format string, args ...any) *Report {
	return New(category, fmt.Sprintf(format, args...))
}

// NewRateLimited builds a RateLimited Report carrying the remaining wait.
func NewRateLimited(retryAfter time.Duration) *Report {
	r := Newf(RateLimited, "Please wait %d seconds before requesting another analysis.",
		int(math.Ceil(retryAfter.Seconds())))
	r.RetryAfter = retryAfter
	return r
}

func (r *Report) Error() string {
	return fmt.Sprintf("%s: %s", r.Category, r.Message)
}

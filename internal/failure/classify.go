package failure

import "math"

// UserFacingState is the rendering contract handed to the UI layer for a
// failed analysis. The UI picks an illustration per category; the pipeline
// never decides presentation beyond these fields.
type UserFacingState struct {
	Category  Category `json:"category"`
	Message   string   `json:"message"`
	Retryable bool     `json:"retryable"`
	Hint      string   `json:"hint,omitempty"`

	// RetryAfterSeconds is the remaining cooldown for rate-limited
	// requests, rounded up to whole seconds.
	RetryAfterSeconds int `json:"retry_after_seconds,omitempty"`
}

// Classify maps a Report onto its user-facing state. Pure function, no side
// effects: same Report in, same state out.
func Classify(r *Report) UserFacingState {
	state := UserFacingState{
		Category:  r.Category,
		Retryable: r.Retryable,
	}

	switch r.Category {
	case RateLimited:
		state.Message = r.Message
		state.Hint = "Try again after the cooldown."
		state.RetryAfterSeconds = int(math.Ceil(r.RetryAfter.Seconds()))
	case UpstreamUnavailable:
		state.Message = "The model service is taking a nap - try again in a minute."
		state.Hint = "Retry a bit later."
	case ImageParseFailure:
		state.Message = "Couldn't read that menu image."
		state.Hint = "Try a clearer photo or paste the menu text instead."
	case InvalidResponseFormat, SchemaValidationFailure:
		state.Message = "The model replied, but the response didn't match the expected critique format."
		state.Hint = "Retry the request."
	default:
		state.Message = "Something went sideways. Please check your input and try again."
	}

	return state
}

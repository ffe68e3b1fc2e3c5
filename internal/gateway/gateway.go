package gateway

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"menucritic/internal/critique"
	"menucritic/internal/failure"
	"menucritic/internal/input"
	"menucritic/internal/metrics"
)

// Request carries everything the gateway needs for one critique call.
type Request struct {
	Payload *input.Payload
	Mode    critique.Mode
	Goal    string
	Context string
}

// Gateway turns prepared payloads into raw model output. It owns model
// selection, the strict-then-relaxed attempt sequence, and per-attempt
// timeouts. Validation of the raw output happens in the caller so both
// schema modes converge on the same structural guarantee.
type Gateway struct {
	invoker     Invoker
	textModel   string
	visionModel string
	timeout     time.Duration
}

// New creates a Gateway.
func New(invoker Invoker, textModel, visionModel string, timeout time.Duration) *Gateway {
	return &Gateway{
		invoker:     invoker,
		textModel:   textModel,
		visionModel: visionModel,
		timeout:     timeout,
	}
}

// Invoke runs the attempt sequence for req and returns the raw model text.
// The strict attempt asks for the critique schema directly; any strict
// failure is followed by exactly one relaxed attempt before the error is
// classified. The returned attempts record what happened upstream.
func (g *Gateway) Invoke(ctx context.Context, req *Request) (string, []Attempt, *failure.Report) {
	model := g.textModel
	if req.Payload.Kind == input.KindImage {
		model = g.visionModel
	}

	contents := g.buildContents(req)
	attempts := make([]Attempt, 0, 2)

	for _, schemaMode := range []SchemaMode{SchemaStrict, SchemaRelaxed} {
		attempt := Attempt{Mode: schemaMode, Model: model, StartedAt: time.Now()}

		raw, resp, err := g.generate(ctx, model, contents, g.generateConfig(req.Mode, schemaMode))
		attempt.Duration = time.Since(attempt.StartedAt)
		attempt.Err = err

		g.emitMetrics(&attempt, req.Payload.Kind, resp)
		attempts = append(attempts, attempt)

		if err == nil {
			log.Debug().
				Str("model", model).
				Str("schemaMode", string(schemaMode)).
				Int("responseLength", len(raw)).
				Dur("duration", attempt.Duration).
				Msg("Model call succeeded")
			return raw, attempts, nil
		}

		if schemaMode == SchemaStrict {
			log.Warn().
				Err(err).
				Str("model", model).
				Bool("schemaUnsupported", isSchemaUnsupported(err)).
				Msg("Strict schema attempt failed; retrying with relaxed JSON mode")
			continue
		}

		log.Error().Err(err).Str("model", model).Msg("Relaxed attempt failed; giving up")
		return "", attempts, classifyUpstream(err)
	}

	// Unreachable: the relaxed branch always returns.
	return "", attempts, failure.New(failure.Unknown, "no attempt produced a result")
}

// errEmptyResponse marks a call that technically succeeded but carried no text.
var errEmptyResponse = errors.New("model returned an empty response")

func (g *Gateway) generate(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, *genai.GenerateContentResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.invoker.GenerateContent(callCtx, model, contents, cfg)
	if err != nil {
		return "", resp, err
	}
	if resp == nil || resp.Text() == "" {
		return "", resp, errEmptyResponse
	}
	return resp.Text(), resp, nil
}

func (g *Gateway) buildContents(req *Request) []*genai.Content {
	menuText := ""
	imageAttached := req.Payload.Kind == input.KindImage
	if !imageAttached {
		menuText = req.Payload.Text
	}
	prompt := buildUserPrompt(req.Mode, req.Goal, req.Context, menuText, imageAttached)

	parts := []*genai.Part{}
	if imageAttached {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: req.Payload.Image.MIMEType(),
				Data:     req.Payload.Image.Data,
			},
		})
	}
	parts = append(parts, &genai.Part{Text: prompt})

	return []*genai.Content{{Role: "user", Parts: parts}}
}

func (g *Gateway) generateConfig(mode critique.Mode, schemaMode SchemaMode) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt()}},
		},
		Temperature:      genai.Ptr(temperatureFor(mode)),
		ResponseMIMEType: "application/json",
	}
	if schemaMode == SchemaStrict {
		cfg.ResponseSchema = critique.ResponseSchema()
	}
	return cfg
}

func (g *Gateway) emitMetrics(attempt *Attempt, kind input.Kind, resp *genai.GenerateContentResponse) {
	m := metrics.New("MenuCritic").
		Dimension("Operation", "critique").
		Dimension("SchemaMode", string(attempt.Mode)).
		Metric("GeminiApiLatencyMs", float64(attempt.Duration.Milliseconds()), metrics.UnitMilliseconds).
		Count("GeminiApiCalls").
		Property("inputKind", string(kind)).
		Property("model", attempt.Model)
	if attempt.Err != nil {
		m.Count("GeminiApiErrors")
	}
	if resp != nil && resp.UsageMetadata != nil {
		m.Metric("GeminiInputTokens", float64(resp.UsageMetadata.PromptTokenCount), metrics.UnitCount)
		m.Metric("GeminiOutputTokens", float64(resp.UsageMetadata.CandidatesTokenCount), metrics.UnitCount)
	}
	m.Flush()
}

// isSchemaUnsupported reports whether an upstream rejection looks like the
// model or endpoint refusing the response schema rather than the request
// content. Only used for diagnostics; every strict failure falls back anyway.
func isSchemaUnsupported(err error) bool {
	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "response_schema") ||
		strings.Contains(lower, "responseschema") ||
		strings.Contains(lower, "response_mime_type") ||
		strings.Contains(lower, "responsemimetype") {
		return true
	}
	return strings.Contains(lower, "schema") && strings.Contains(lower, "nesting depth")
}

// classifyUpstream maps an upstream error to a failure category. Upstream
// quota exhaustion deliberately maps to UpstreamUnavailable, not RateLimited;
// the rate-limited category is reserved for the local per-session cooldown.
func classifyUpstream(err error) *failure.Report {
	if errors.Is(err, errEmptyResponse) {
		return failure.New(failure.InvalidResponseFormat, "model returned an empty response")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return failure.New(failure.UpstreamUnavailable, "the model request timed out")
	}

	lower := strings.ToLower(err.Error())
	switch {
	case hasStatusCode(lower, "429"),
		strings.Contains(lower, "rate limit"),
		strings.Contains(lower, "too many requests"),
		strings.Contains(lower, "resource_exhausted"),
		strings.Contains(lower, "quota"):
		return failure.Newf(failure.UpstreamUnavailable, "the model service refused the request: %v", err)

	case strings.Contains(lower, "deadline exceeded"),
		strings.Contains(lower, "timeout"),
		strings.Contains(lower, "unavailable"),
		strings.Contains(lower, "overloaded"),
		hasStatusCode(lower, "500"),
		hasStatusCode(lower, "502"),
		hasStatusCode(lower, "503"):
		return failure.Newf(failure.UpstreamUnavailable, "the model service is unavailable: %v", err)
	}

	return failure.Newf(failure.Unknown, "model request failed: %v", err)
}

// hasStatusCode reports whether the lowercased error text carries the HTTP
// status code as a labelled token ("error 500", "status 500"). A bare
// substring match would also hit incidental numbers such as byte counts.
func hasStatusCode(lower, code string) bool {
	for _, label := range []string{"error ", "error: ", "status ", "status: ", "code ", "code: ", "http "} {
		if strings.Contains(lower, label+code) {
			return true
		}
	}
	return false
}

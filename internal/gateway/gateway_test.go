package gateway

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"google.golang.org/genai"

	"menucritic/internal/critique"
	"menucritic/internal/failure"
	"menucritic/internal/imageprep"
	"menucritic/internal/input"
)

// fakeInvoker plays back a scripted sequence of responses and records every
// call so tests can assert on the attempt sequence.
type fakeInvoker struct {
	script []fakeReply
	calls  []fakeCall
}

type fakeReply struct {
	text string
	err  error
}

type fakeCall struct {
	model string
	cfg   *genai.GenerateContentConfig
	parts []*genai.Part
}

func (f *fakeInvoker) GenerateContent(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var parts []*genai.Part
	if len(contents) > 0 {
		parts = contents[0].Parts
	}
	f.calls = append(f.calls, fakeCall{model: model, cfg: cfg, parts: parts})

	if len(f.script) == 0 {
		return nil, errors.New("fakeInvoker: script exhausted")
	}
	reply := f.script[0]
	f.script = f.script[1:]

	if reply.err != nil {
		return nil, reply.err
	}
	return textResponse(reply.text), nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func textRequest(mode critique.Mode) *Request {
	return &Request{
		Payload: &input.Payload{Kind: input.KindText, Text: "Burger $9, Fries $3"},
		Mode:    mode,
		Goal:    "Increase average order value",
	}
}

func newTestGateway(inv Invoker) *Gateway {
	return New(inv, "text-model", "vision-model", 5*time.Second)
}

func TestInvoke_StrictSuccess(t *testing.T) {
	inv := &fakeInvoker{script: []fakeReply{{text: `{"ok": true}`}}}
	g := newTestGateway(inv)

	raw, attempts, rep := g.Invoke(context.Background(), textRequest(critique.ModeFix))
	if rep != nil {
		t.Fatalf("unexpected failure: %v", rep)
	}
	if raw != `{"ok": true}` {
		t.Errorf("unexpected raw output: %q", raw)
	}
	if len(inv.calls) != 1 {
		t.Fatalf("expected exactly one upstream call, got %d", len(inv.calls))
	}
	if inv.calls[0].cfg.ResponseSchema == nil {
		t.Error("strict attempt must carry a response schema")
	}
	if len(attempts) != 1 || attempts[0].Mode != SchemaStrict || attempts[0].Err != nil {
		t.Errorf("unexpected attempts: %+v", attempts)
	}
}

func TestInvoke_StrictFailureTriggersRelaxed(t *testing.T) {
	inv := &fakeInvoker{script: []fakeReply{
		{err: errors.New("400 INVALID_ARGUMENT: response_schema is not supported for this model")},
		{text: `{"ok": true}`},
	}}
	g := newTestGateway(inv)

	raw, attempts, rep := g.Invoke(context.Background(), textRequest(critique.ModeFix))
	if rep != nil {
		t.Fatalf("unexpected failure: %v", rep)
	}
	if raw != `{"ok": true}` {
		t.Errorf("unexpected raw output: %q", raw)
	}
	if len(inv.calls) != 2 {
		t.Fatalf("expected strict then relaxed call, got %d calls", len(inv.calls))
	}
	if inv.calls[1].cfg.ResponseSchema != nil {
		t.Error("relaxed attempt must not carry a response schema")
	}
	if inv.calls[1].cfg.ResponseMIMEType != "application/json" {
		t.Errorf("relaxed attempt should still request JSON, got %q", inv.calls[1].cfg.ResponseMIMEType)
	}
	if len(attempts) != 2 || attempts[0].Err == nil || attempts[1].Err != nil {
		t.Errorf("unexpected attempts: %+v", attempts)
	}
}

func TestInvoke_EmptyStrictResponseRetriesRelaxed(t *testing.T) {
	inv := &fakeInvoker{script: []fakeReply{
		{text: ""},
		{text: `{"ok": true}`},
	}}
	g := newTestGateway(inv)

	raw, _, rep := g.Invoke(context.Background(), textRequest(critique.ModeFix))
	if rep != nil {
		t.Fatalf("unexpected failure: %v", rep)
	}
	if raw != `{"ok": true}` {
		t.Errorf("unexpected raw output: %q", raw)
	}
	if len(inv.calls) != 2 {
		t.Errorf("empty strict response should trigger a relaxed attempt, got %d calls", len(inv.calls))
	}
}

func TestInvoke_BothAttemptsRateLimited(t *testing.T) {
	upstream := errors.New("429 RESOURCE_EXHAUSTED: quota exceeded")
	inv := &fakeInvoker{script: []fakeReply{{err: upstream}, {err: upstream}}}
	g := newTestGateway(inv)

	_, attempts, rep := g.Invoke(context.Background(), textRequest(critique.ModeFix))
	if rep == nil {
		t.Fatal("expected failure when both attempts fail")
	}
	if rep.Category != failure.UpstreamUnavailable {
		t.Errorf("upstream 429 must classify as UpstreamUnavailable, got %s", rep.Category)
	}
	if len(attempts) != 2 {
		t.Errorf("expected 2 attempts, got %d", len(attempts))
	}
	if len(inv.calls) != 2 {
		t.Errorf("expected exactly 2 upstream calls, got %d", len(inv.calls))
	}
}

func TestInvoke_BothAttemptsEmpty(t *testing.T) {
	inv := &fakeInvoker{script: []fakeReply{{text: ""}, {text: ""}}}
	g := newTestGateway(inv)

	_, _, rep := g.Invoke(context.Background(), textRequest(critique.ModeFix))
	if rep == nil || rep.Category != failure.InvalidResponseFormat {
		t.Fatalf("empty responses should classify as InvalidResponseFormat, got %v", rep)
	}
}

func TestInvoke_ImageUsesVisionModel(t *testing.T) {
	inv := &fakeInvoker{script: []fakeReply{{text: `{"ok": true}`}}}
	g := newTestGateway(inv)

	req := &Request{
		Payload: &input.Payload{
			Kind:  input.KindImage,
			Image: &imageprep.Encoded{Data: []byte{0xFF, 0xD8}, Width: 100, Height: 80, Quality: 85},
		},
		Mode: critique.ModeRoast,
	}

	_, _, rep := g.Invoke(context.Background(), req)
	if rep != nil {
		t.Fatalf("unexpected failure: %v", rep)
	}
	if inv.calls[0].model != "vision-model" {
		t.Errorf("image payload should use the vision model, got %s", inv.calls[0].model)
	}
	if len(inv.calls[0].parts) != 2 || inv.calls[0].parts[0].InlineData == nil {
		t.Fatalf("expected inline image part followed by the prompt, got %+v", inv.calls[0].parts)
	}
	if inv.calls[0].parts[0].InlineData.MIMEType != "image/jpeg" {
		t.Errorf("expected image/jpeg inline data, got %s", inv.calls[0].parts[0].InlineData.MIMEType)
	}
}

func TestInvoke_TemperaturePerMode(t *testing.T) {
	inv := &fakeInvoker{script: []fakeReply{{text: "{}"}, {text: "{}"}}}
	g := newTestGateway(inv)

	g.Invoke(context.Background(), textRequest(critique.ModeFix))
	g.Invoke(context.Background(), textRequest(critique.ModeRoast))

	if got := *inv.calls[0].cfg.Temperature; got != 0.35 {
		t.Errorf("fix mode temperature = %v, want 0.35", got)
	}
	if got := *inv.calls[1].cfg.Temperature; got != 1.0 {
		t.Errorf("roast mode temperature = %v, want 1.0", got)
	}
}

func TestClassifyUpstream(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want failure.Category
	}{
		{"quota", errors.New("429 RESOURCE_EXHAUSTED"), failure.UpstreamUnavailable},
		{"rate limit text", errors.New("rate limit exceeded, try later"), failure.UpstreamUnavailable},
		{"server error", errors.New("googleapi: Error 503: service unavailable"), failure.UpstreamUnavailable},
		{"labelled 500", errors.New("googleapi: Error 500: internal failure"), failure.UpstreamUnavailable},
		{"incidental 500", errors.New("request body of 1500 bytes rejected"), failure.Unknown},
		{"incidental 429", errors.New("prompt id 4290 was malformed"), failure.Unknown},
		{"deadline", context.DeadlineExceeded, failure.UpstreamUnavailable},
		{"wrapped deadline", fmt.Errorf("call failed: %w", context.DeadlineExceeded), failure.UpstreamUnavailable},
		{"empty response", errEmptyResponse, failure.InvalidResponseFormat},
		{"mystery", errors.New("something odd happened"), failure.Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := classifyUpstream(tt.err)
			if rep.Category != tt.want {
				t.Errorf("classifyUpstream(%v) = %s, want %s", tt.err, rep.Category, tt.want)
			}
		})
	}
}

func TestIsSchemaUnsupported(t *testing.T) {
	tests := []struct {
		err  string
		want bool
	}{
		{"400 INVALID_ARGUMENT: response_schema is not supported", true},
		{"Invalid JSON payload: unknown field responseSchema", true},
		{"schema exceeds the maximum nesting depth", true},
		{"429 RESOURCE_EXHAUSTED", false},
		{"internal error", false},
	}

	for _, tt := range tests {
		if got := isSchemaUnsupported(errors.New(tt.err)); got != tt.want {
			t.Errorf("isSchemaUnsupported(%q) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"menucritic/internal/config"
	"menucritic/internal/critique"
	"menucritic/internal/failure"
	"menucritic/internal/input"
)

const validCritiqueJSON = `{
	"scores": {
		"clarity": 62,
		"pricing_psychology": 48,
		"upsell_potential": 55,
		"menu_structure": 70,
		"dietary_signals": 20
	},
	"top_5_changes": ["Group entrees", "Drop currency symbols", "Add combos", "Label vegetarian items", "Shorten descriptions"],
	"revenue_levers": {
		"conversion": ["Highlight the best seller"],
		"aov": ["Offer a large size"],
		"margin": ["Feature the pasta"]
	},
	"rewrite_examples": [
		{"original": "Burger $9", "rewritten": "Smash Burger - double patty", "why_it_helps": "Specificity sells"}
	],
	"ab_tests": [
		{"hypothesis": "No $ signs lifts orders", "variant_a": "Burger $9", "variant_b": "Burger 9", "success_metric": "conversion rate"}
	],
	"red_flags": ["No dietary labels"]
}`

// scriptedInvoker returns canned replies in order and counts calls.
type scriptedInvoker struct {
	replies []reply
	calls   int
}

type reply struct {
	text string
	err  error
}

func (s *scriptedInvoker) GenerateContent(_ context.Context, _ string, _ []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	s.calls++
	if len(s.replies) == 0 {
		return nil, errors.New("scriptedInvoker: no replies left")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	if r.err != nil {
		return nil, r.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: r.text}}},
		}},
	}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		APIKey:              "test-key",
		TextModel:           "text-model",
		VisionModel:         "vision-model",
		RequestCooldown:     10 * time.Second,
		RequestTimeout:      5 * time.Second,
		MaxTextChars:        12000,
		MaxImageUploadBytes: 8 << 20,
		TargetImageBytes:    3_500_000,
		MaxImageDimension:   1600,
	}
}

func textRequest(text string) *input.AnalysisRequest {
	return &input.AnalysisRequest{
		SessionID: uuid.NewString(),
		Mode:      critique.ModeFix,
		Kind:      input.KindText,
		Text:      text,
	}
}

func TestAnalyze_ValidText(t *testing.T) {
	inv := &scriptedInvoker{replies: []reply{{text: validCritiqueJSON}}}
	p := New(testConfig(), inv)

	res, state := p.Analyze(context.Background(), textRequest("Burger $9, Fries $3"))
	if state != nil {
		t.Fatalf("unexpected failure state: %+v", state)
	}
	if res == nil {
		t.Fatal("expected a critique result")
	}
	if res.SchemaVersion != critique.SchemaVersion {
		t.Errorf("expected schema version %s, got %s", critique.SchemaVersion, res.SchemaVersion)
	}
	if res.Mode != critique.ModeFix {
		t.Errorf("result should carry the request mode, got %s", res.Mode)
	}
	if len(res.Top5Changes) != 5 {
		t.Errorf("expected 5 changes, got %d", len(res.Top5Changes))
	}
	if inv.calls != 1 {
		t.Errorf("expected a single model call, got %d", inv.calls)
	}
}

func TestAnalyze_CorruptImageNeverCallsModel(t *testing.T) {
	inv := &scriptedInvoker{}
	p := New(testConfig(), inv)

	req := &input.AnalysisRequest{
		SessionID: uuid.NewString(),
		Mode:      critique.ModeFix,
		Kind:      input.KindImage,
		Image:     []byte("corrupt image bytes"),
	}

	res, state := p.Analyze(context.Background(), req)
	if res != nil {
		t.Fatal("corrupt image must not produce a result")
	}
	if state == nil || state.Category != failure.ImageParseFailure {
		t.Fatalf("expected ImageParseFailure, got %+v", state)
	}
	if inv.calls != 0 {
		t.Errorf("corrupt image must not reach the model, got %d calls", inv.calls)
	}
}

func TestAnalyze_CooldownNeverCallsModel(t *testing.T) {
	inv := &scriptedInvoker{replies: []reply{{text: validCritiqueJSON}}}
	p := New(testConfig(), inv)

	req := textRequest("Burger $9, Fries $3")
	if _, state := p.Analyze(context.Background(), req); state != nil {
		t.Fatalf("first request should succeed: %+v", state)
	}

	res, state := p.Analyze(context.Background(), req)
	if res != nil {
		t.Fatal("request inside cooldown must not produce a result")
	}
	if state == nil || state.Category != failure.RateLimited {
		t.Fatalf("expected RateLimited, got %+v", state)
	}
	if state.RetryAfterSeconds <= 0 || state.RetryAfterSeconds > 10 {
		t.Errorf("RetryAfterSeconds should be within the cooldown window, got %d", state.RetryAfterSeconds)
	}
	if inv.calls != 1 {
		t.Errorf("refused request must not reach the model, got %d calls", inv.calls)
	}
}

func TestAnalyze_CooldownIsPerSession(t *testing.T) {
	inv := &scriptedInvoker{replies: []reply{{text: validCritiqueJSON}, {text: validCritiqueJSON}}}
	p := New(testConfig(), inv)

	if _, state := p.Analyze(context.Background(), textRequest("Burger $9")); state != nil {
		t.Fatalf("first session should succeed: %+v", state)
	}
	if _, state := p.Analyze(context.Background(), textRequest("Pizza 12.00")); state != nil {
		t.Fatalf("second session should not share the first session's cooldown: %+v", state)
	}
}

func TestAnalyze_UpstreamQuotaExhausted(t *testing.T) {
	upstream := errors.New("429 RESOURCE_EXHAUSTED: quota exceeded")
	inv := &scriptedInvoker{replies: []reply{{err: upstream}, {err: upstream}}}
	p := New(testConfig(), inv)

	_, state := p.Analyze(context.Background(), textRequest("Burger $9, Fries $3"))
	if state == nil || state.Category != failure.UpstreamUnavailable {
		t.Fatalf("upstream 429 must surface as UpstreamUnavailable, got %+v", state)
	}
	if inv.calls != 2 {
		t.Errorf("expected strict and relaxed attempts, got %d calls", inv.calls)
	}
}

func TestAnalyze_GarbageModelOutput(t *testing.T) {
	inv := &scriptedInvoker{replies: []reply{{text: "Sure! Here's my hot take on your menu..."}}}
	p := New(testConfig(), inv)

	_, state := p.Analyze(context.Background(), textRequest("Burger $9, Fries $3"))
	if state == nil || state.Category != failure.InvalidResponseFormat {
		t.Fatalf("garbage output must surface as InvalidResponseFormat, got %+v", state)
	}
}

func TestAnalyze_SchemaMismatch(t *testing.T) {
	inv := &scriptedInvoker{replies: []reply{{text: `{"scores": {"clarity": 50}}`}}}
	p := New(testConfig(), inv)

	_, state := p.Analyze(context.Background(), textRequest("Burger $9, Fries $3"))
	if state == nil || state.Category != failure.SchemaValidationFailure {
		t.Fatalf("structurally wrong JSON must surface as SchemaValidationFailure, got %+v", state)
	}
}

func TestAnalyze_EmptyText(t *testing.T) {
	inv := &scriptedInvoker{}
	p := New(testConfig(), inv)

	_, state := p.Analyze(context.Background(), textRequest("   "))
	if state == nil || state.Category != failure.Unknown {
		t.Fatalf("empty text must surface as Unknown, got %+v", state)
	}
	if inv.calls != 0 {
		t.Errorf("empty text must not reach the model, got %d calls", inv.calls)
	}
}

func TestAnalyze_InvalidMode(t *testing.T) {
	inv := &scriptedInvoker{}
	p := New(testConfig(), inv)

	req := textRequest("Burger $9")
	req.Mode = "grill"

	_, state := p.Analyze(context.Background(), req)
	if state == nil || state.Category != failure.Unknown {
		t.Fatalf("invalid mode must surface as Unknown, got %+v", state)
	}
}

func TestAnalyze_MissingSession(t *testing.T) {
	inv := &scriptedInvoker{}
	p := New(testConfig(), inv)

	req := textRequest("Burger $9")
	req.SessionID = ""

	_, state := p.Analyze(context.Background(), req)
	if state == nil || state.Category != failure.Unknown {
		t.Fatalf("missing session must surface as Unknown, got %+v", state)
	}
}

// Package pipeline is the single inbound entry point for menu analysis.
// It chains the cooldown gate, input normalization, the model gateway, and
// response validation, and converts any stage failure into the user-facing
// state contract.
package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"menucritic/internal/config"
	"menucritic/internal/critique"
	"menucritic/internal/failure"
	"menucritic/internal/gateway"
	"menucritic/internal/imageprep"
	"menucritic/internal/input"
	"menucritic/internal/ratelimit"
)

// Pipeline wires the analysis stages together. One instance serves all
// sessions; every stage is safe for concurrent use.
type Pipeline struct {
	limiter    *ratelimit.Limiter
	normalizer *input.Normalizer
	gateway    *gateway.Gateway
}

// New builds a Pipeline from configuration and a model invoker.
func New(cfg *config.Config, invoker gateway.Invoker) *Pipeline {
	return &Pipeline{
		limiter: ratelimit.New(cfg.RequestCooldown),
		normalizer: &input.Normalizer{
			MaxTextChars: cfg.MaxTextChars,
			Images: &imageprep.Preprocessor{
				MaxUploadBytes: cfg.MaxImageUploadBytes,
				TargetBytes:    cfg.TargetImageBytes,
				MaxDimension:   cfg.MaxImageDimension,
			},
		},
		gateway: gateway.New(invoker, cfg.TextModel, cfg.VisionModel, cfg.RequestTimeout),
	}
}

// Analyze runs one menu analysis end to end. Exactly one of the results is
// non-nil: a validated critique or the user-facing failure state.
func (p *Pipeline) Analyze(ctx context.Context, req *input.AnalysisRequest) (*critique.Result, *failure.UserFacingState) {
	start := time.Now()
	res, rep := p.run(ctx, req)
	if rep != nil {
		log.Info().
			Str("category", string(rep.Category)).
			Dur("duration", time.Since(start)).
			Msg("Menu analysis failed")
		state := failure.Classify(rep)
		return nil, &state
	}

	log.Info().
		Str("mode", string(res.Mode)).
		Dur("duration", time.Since(start)).
		Msg("Menu analysis complete")
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, req *input.AnalysisRequest) (*critique.Result, *failure.Report) {
	if req == nil {
		return nil, failure.New(failure.Unknown, "no request provided")
	}
	if _, err := critique.ParseMode(string(req.Mode)); err != nil {
		return nil, failure.Newf(failure.Unknown, "%v", err)
	}
	if req.SessionID == "" {
		return nil, failure.New(failure.Unknown, "request has no session ID")
	}

	// The cooldown gate runs before any expensive work so refused requests
	// cost nothing.
	if d := p.limiter.CheckAndRecord(req.SessionID); !d.Allowed {
		return nil, failure.NewRateLimited(d.RetryAfter)
	}

	payload, rep := p.normalizer.Normalize(req)
	if rep != nil {
		return nil, rep
	}

	log.Info().
		Str("mode", string(req.Mode)).
		Str("kind", string(payload.Kind)).
		Bool("truncated", payload.Truncated).
		Bool("looksLikeMenu", payload.LooksLikeMenu).
		Msg("Starting menu analysis")

	raw, attempts, rep := p.gateway.Invoke(ctx, &gateway.Request{
		Payload: payload,
		Mode:    req.Mode,
		Goal:    req.Goal,
		Context: req.Context,
	})
	if rep != nil {
		return nil, rep
	}

	result, rep := critique.Validate(raw, req.Mode)
	if rep != nil {
		log.Warn().
			Int("attempts", len(attempts)).
			Str("schemaMode", string(attempts[len(attempts)-1].Mode)).
			Msg("Model output failed validation")
		return nil, rep
	}

	return result, nil
}

package critique

import (
	"math"

	"github.com/rs/zerolog/log"

	"menucritic/internal/failure"
	"menucritic/internal/jsonutil"
)

// Validate parses raw model output into a Result tagged with the requested
// mode. The Result is fully built here; callers treat it as read-only.
//
// Two failure categories come out of this stage: output that is not JSON at
// all (after fence stripping and extraction) is an invalid response format,
// while well-formed JSON with the wrong shape is a schema validation failure.
// Validation never coerces or defaults missing fields.
func Validate(raw string, mode Mode) (*Result, *failure.Report) {
	obj, err := jsonutil.ParseObject(raw)
	if err != nil {
		log.Warn().Int("rawLen", len(raw)).Err(err).Msg("Model output was not parseable JSON")
		return nil, failure.Newf(failure.InvalidResponseFormat, "model output was not valid JSON: %v", err)
	}

	res, verr := buildResult(obj)
	if verr != nil {
		log.Warn().Err(verr).Msg("Model output failed critique validation")
		return nil, failure.Newf(failure.SchemaValidationFailure, "critique did not match the expected shape: %v", verr)
	}

	res.SchemaVersion = SchemaVersion
	res.Mode = mode
	return res, nil
}

// validationError carries the field-level reason a critique was rejected.
type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func invalid(msg string) *validationError { return &validationError{msg: msg} }

func buildResult(obj map[string]any) (*Result, *validationError) {
	for _, key := range []string{"scores", "top_5_changes", "revenue_levers", "rewrite_examples", "ab_tests", "red_flags"} {
		if _, ok := obj[key]; !ok {
			return nil, invalid("missing key: " + key)
		}
	}

	var res Result

	scoresObj, ok := obj["scores"].(map[string]any)
	if !ok {
		return nil, invalid("scores must be an object")
	}
	for key, dst := range map[string]*int{
		"clarity":            &res.Scores.Clarity,
		"pricing_psychology": &res.Scores.PricingPsychology,
		"upsell_potential":   &res.Scores.UpsellPotential,
		"menu_structure":     &res.Scores.MenuStructure,
		"dietary_signals":    &res.Scores.DietarySignals,
	} {
		v, ok := scoresObj[key]
		if !ok {
			return nil, invalid("scores missing " + key)
		}
		n, ok := asInt(v)
		if !ok {
			return nil, invalid("scores." + key + " must be an integer")
		}
		if n < 0 || n > 100 {
			return nil, invalid("scores." + key + " must be 0-100")
		}
		*dst = n
	}

	changes, ok := asStringList(obj["top_5_changes"])
	if !ok {
		return nil, invalid("top_5_changes must be a string list")
	}
	if len(changes) == 0 {
		return nil, invalid("top_5_changes must not be empty")
	}
	if len(changes) > 5 {
		return nil, invalid("top_5_changes must have at most 5 items")
	}
	res.Top5Changes = changes

	levers, ok := obj["revenue_levers"].(map[string]any)
	if !ok {
		return nil, invalid("revenue_levers must be an object")
	}
	for key, dst := range map[string]*[]string{
		"conversion": &res.RevenueLevers.Conversion,
		"aov":        &res.RevenueLevers.AOV,
		"margin":     &res.RevenueLevers.Margin,
	} {
		items, ok := asStringList(levers[key])
		if !ok {
			return nil, invalid("revenue_levers." + key + " must be a string list")
		}
		*dst = items
	}

	rewrites, ok := obj["rewrite_examples"].([]any)
	if !ok {
		return nil, invalid("rewrite_examples must be a list")
	}
	for _, item := range rewrites {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, invalid("rewrite_examples items must be objects")
		}
		var ex RewriteExample
		for key, dst := range map[string]*string{
			"original":     &ex.Original,
			"rewritten":    &ex.Rewritten,
			"why_it_helps": &ex.WhyItHelps,
		} {
			s, ok := m[key].(string)
			if !ok {
				return nil, invalid("rewrite_examples item missing string " + key)
			}
			*dst = s
		}
		res.RewriteExamples = append(res.RewriteExamples, ex)
	}

	tests, ok := obj["ab_tests"].([]any)
	if !ok {
		return nil, invalid("ab_tests must be a list")
	}
	for _, item := range tests {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, invalid("ab_tests items must be objects")
		}
		var ab ABTest
		for key, dst := range map[string]*string{
			"hypothesis":     &ab.Hypothesis,
			"variant_a":      &ab.VariantA,
			"variant_b":      &ab.VariantB,
			"success_metric": &ab.SuccessMetric,
		} {
			s, ok := m[key].(string)
			if !ok {
				return nil, invalid("ab_tests item missing string " + key)
			}
			*dst = s
		}
		res.ABTests = append(res.ABTests, ab)
	}

	flags, ok := asStringList(obj["red_flags"])
	if !ok {
		return nil, invalid("red_flags must be a string list")
	}
	res.RedFlags = flags

	return &res, nil
}

// asInt accepts JSON numbers that are integral. encoding/json decodes every
// number to float64, so 80 arrives as 80.0; 80.5 is rejected.
func asInt(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok {
		return 0, false
	}
	if f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func asStringList(v any) ([]string, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

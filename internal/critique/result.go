// Package critique defines the structured menu critique, the response schema
// the model is asked to follow, and the validator that turns raw model output
// into a Result.
package critique

import "fmt"

// SchemaVersion tags every validated Result so downstream consumers can
// detect schema changes.
const SchemaVersion = "menu-critic/v1"

// Mode selects the tone of the critique.
type Mode string

const (
	// ModeFix produces a direct, operator-friendly critique.
	ModeFix Mode = "fix"
	// ModeRoast produces a witty critique that still carries actionable fixes.
	ModeRoast Mode = "roast"
)

// ParseMode converts user input into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFix, ModeRoast:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q (want %q or %q)", s, ModeFix, ModeRoast)
}

// Scores rates the menu on five axes, each 0..100.
type Scores struct {
	Clarity           int `json:"clarity"`
	PricingPsychology int `json:"pricing_psychology"`
	UpsellPotential   int `json:"upsell_potential"`
	MenuStructure     int `json:"menu_structure"`
	DietarySignals    int `json:"dietary_signals"`
}

// RevenueLevers groups suggestions by the revenue mechanism they pull.
type RevenueLevers struct {
	Conversion []string `json:"conversion"`
	AOV        []string `json:"aov"`
	Margin     []string `json:"margin"`
}

// RewriteExample is a concrete menu line upgrade.
type RewriteExample struct {
	Original   string `json:"original"`
	Rewritten  string `json:"rewritten"`
	WhyItHelps string `json:"why_it_helps"`
}

// ABTest is a realistic experiment the operator can run on the menu or
// ordering page.
type ABTest struct {
	Hypothesis    string `json:"hypothesis"`
	VariantA      string `json:"variant_a"`
	VariantB      string `json:"variant_b"`
	SuccessMetric string `json:"success_metric"`
}

// Result is the validated critique. It is never mutated after validation.
type Result struct {
	SchemaVersion   string           `json:"schema_version"`
	Mode            Mode             `json:"mode,omitempty"`
	Scores          Scores           `json:"scores"`
	Top5Changes     []string         `json:"top_5_changes"`
	RevenueLevers   RevenueLevers    `json:"revenue_levers"`
	RewriteExamples []RewriteExample `json:"rewrite_examples"`
	ABTests         []ABTest         `json:"ab_tests"`
	RedFlags        []string         `json:"red_flags"`
}

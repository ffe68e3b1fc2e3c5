package gateway

import (
	"fmt"
	"strings"

	"menucritic/internal/critique"
)

// systemPrompt frames the critic persona and the JSON-only output contract.
// The roast guardrails live here so tone never degrades into personal attacks.
func systemPrompt() string {
	return "You are Menu Critic, an expert in restaurant menu conversion optimization, average order value, " +
		"and customer experience. Always respond in English and output JSON only (no markdown).\n" +
		"If mode is Roast, be funny and specific but never cruel. Roast the menu copy/layout/pricing choices, " +
		"not the owner or any people. No harassment, slurs, or personal attacks.\n" +
		"In Roast mode, use sharper humor, vivid metaphors, playful one-liners, and consultant-style sarcasm " +
		"while still being actionable.\n" +
		"Avoid bland corporate wording in Roast mode. Each major point should sound like a real roast, not a polite audit.\n" +
		"Focus on practical, testable improvements."
}

// buildUserPrompt assembles the critique request. When the menu arrives as an
// image, menuText is empty and the prompt points the model at the attached
// image instead.
func buildUserPrompt(mode critique.Mode, goal, restaurantContext, menuText string, imageAttached bool) string {
	safeGoal := strings.TrimSpace(goal)
	if safeGoal == "" {
		safeGoal = "Not provided"
	}
	safeContext := strings.TrimSpace(restaurantContext)
	if safeContext == "" {
		safeContext = "Not provided"
	}

	var sb strings.Builder
	sb.WriteString("Analyze this restaurant menu and return a critique using the required JSON schema.\n\n")
	sb.WriteString(fmt.Sprintf("Mode: %s\n", mode))
	sb.WriteString(fmt.Sprintf("Primary goal: %s\n", safeGoal))
	sb.WriteString(fmt.Sprintf("Restaurant context: %s\n\n", safeContext))

	sb.WriteString("Scoring guidance:\n")
	sb.WriteString("- clarity: readability, naming, scannability\n")
	sb.WriteString("- pricing_psychology: anchors, decoys, price formatting, value framing\n")
	sb.WriteString("- upsell_potential: combos, add-ons, sizing, pairings\n")
	sb.WriteString("- menu_structure: grouping, flow, hierarchy\n")
	sb.WriteString("- dietary_signals: labels for vegetarian/vegan/gluten-free/allergens\n\n")

	if mode == critique.ModeRoast {
		sb.WriteString("Roast style requirements:\n")
		sb.WriteString("- Make the critique genuinely funny and specific (not generic, not mild).\n")
		sb.WriteString("- Roast the menu writing/structure/pricing like a witty consultant doing stand-up with receipts.\n")
		sb.WriteString("- Every joke must still include a useful fix.\n")
		sb.WriteString("- Keep it playful, not cruel, and never target people.\n")
		sb.WriteString("- `top_5_changes` and `red_flags` should read like punchy roasts with actionable advice.\n")
		sb.WriteString("- Prefer lines that combine a roast + fix in one sentence.\n")
		sb.WriteString("- Use colorful phrasing (examples of tone only): 'reads like a tax form', " +
			"'buried like a secret menu witness', 'priced like it includes a side of rent'.\n")
		sb.WriteString("- Do not overuse the same joke structure.\n")
		sb.WriteString("- `rewrite_examples[].why_it_helps` should keep a witty tone while explaining the conversion logic.\n")
		sb.WriteString("- `ab_tests[].hypothesis` can be playful, but `success_metric` must stay practical.\n\n")
	} else {
		sb.WriteString("Fix mode requirements:\n")
		sb.WriteString("- Prioritize clarity, revenue impact, and implementation practicality.\n")
		sb.WriteString("- Be direct and operator-friendly.\n\n")
	}

	sb.WriteString("Requirements:\n")
	sb.WriteString("- Provide exactly 5 top_5_changes if possible.\n")
	sb.WriteString("- Rewrite examples should be concrete menu line upgrades.\n")
	sb.WriteString("- In Roast mode, rewrite_examples should preserve the humor in the explanation but keep the rewritten menu line usable.\n")
	sb.WriteString("- A/B tests should be realistic for a restaurant menu or online ordering page.\n")
	sb.WriteString("- Red flags should call out confusing, risky, or conversion-killing issues.\n")
	sb.WriteString("- Keep all output in English.\n\n")
	sb.WriteString("Roast calibration (only if mode is Roast): aim for 7/10 funny, 10/10 useful.\n\n")

	if imageAttached {
		sb.WriteString("The menu is provided as the attached image. Read every visible item, price, and section before critiquing.")
	} else {
		sb.WriteString("Menu text:\n")
		sb.WriteString(menuText)
	}

	return sb.String()
}

// temperatureFor returns the sampling temperature per mode. Roast runs hot so
// the humor varies between runs; Fix stays close to deterministic.
func temperatureFor(mode critique.Mode) float32 {
	if mode == critique.ModeRoast {
		return 1.0
	}
	return 0.35
}

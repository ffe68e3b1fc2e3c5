package critique

import "google.golang.org/genai"

// ResponseSchema is the strict-mode schema handed to the model so it returns
// the critique shape directly. The validator still runs on the output; the
// schema narrows what the model produces, it does not replace validation.
func ResponseSchema() *genai.Schema {
	scoreSchema := &genai.Schema{
		Type:    genai.TypeInteger,
		Minimum: genai.Ptr(0.0),
		Maximum: genai.Ptr(100.0),
	}
	stringList := &genai.Schema{
		Type:  genai.TypeArray,
		Items: &genai.Schema{Type: genai.TypeString},
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Required: []string{
			"scores",
			"top_5_changes",
			"revenue_levers",
			"rewrite_examples",
			"ab_tests",
			"red_flags",
		},
		Properties: map[string]*genai.Schema{
			"scores": {
				Type:     genai.TypeObject,
				Required: []string{"clarity", "pricing_psychology", "upsell_potential", "menu_structure", "dietary_signals"},
				Properties: map[string]*genai.Schema{
					"clarity":            scoreSchema,
					"pricing_psychology": scoreSchema,
					"upsell_potential":   scoreSchema,
					"menu_structure":     scoreSchema,
					"dietary_signals":    scoreSchema,
				},
			},
			"top_5_changes": {
				Type:     genai.TypeArray,
				Items:    &genai.Schema{Type: genai.TypeString},
				MinItems: genai.Ptr(int64(1)),
				MaxItems: genai.Ptr(int64(5)),
			},
			"revenue_levers": {
				Type:     genai.TypeObject,
				Required: []string{"conversion", "aov", "margin"},
				Properties: map[string]*genai.Schema{
					"conversion": stringList,
					"aov":        stringList,
					"margin":     stringList,
				},
			},
			"rewrite_examples": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type:     genai.TypeObject,
					Required: []string{"original", "rewritten", "why_it_helps"},
					Properties: map[string]*genai.Schema{
						"original":     {Type: genai.TypeString},
						"rewritten":    {Type: genai.TypeString},
						"why_it_helps": {Type: genai.TypeString},
					},
				},
			},
			"ab_tests": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type:     genai.TypeObject,
					Required: []string{"hypothesis", "variant_a", "variant_b", "success_metric"},
					Properties: map[string]*genai.Schema{
						"hypothesis":     {Type: genai.TypeString},
						"variant_a":      {Type: genai.TypeString},
						"variant_b":      {Type: genai.TypeString},
						"success_metric": {Type: genai.TypeString},
					},
				},
			},
			"red_flags": stringList,
		},
	}
}

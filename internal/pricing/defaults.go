package pricing

// DefaultTable returns the built-in pricing used when no PRICING_FILE is set.
func DefaultTable() *Table {
	t, err := New(defaultEstimates(), defaultRates())
	if err != nil {
		panic(err) // built-in tables always carry a default entry
	}
	return t
}

func defaultEstimates() map[string]float64 {
	return map[string]float64{
		"gpt-5":            0.10,
		"gpt-5-mini":       0.02,
		"claude-4-opus":    0.15,
		"claude-4-sonnet":  0.05,
		"gemini-2.5-pro":   0.03,
		"gemini-2.5-flash": 0.01,
		DefaultModel:       0.05,
	}
}

func defaultRates() map[string]Rate {
	return map[string]Rate{
		"gpt-5":            {PromptPerMillion: 50.0, CompletionPerMillion: 150.0},
		"gpt-5-mini":       {PromptPerMillion: 10.0, CompletionPerMillion: 30.0},
		"claude-4-opus":    {PromptPerMillion: 60.0, CompletionPerMillion: 180.0},
		"claude-4-sonnet":  {PromptPerMillion: 15.0, CompletionPerMillion: 45.0},
		"gemini-2.5-pro":   {PromptPerMillion: 7.0, CompletionPerMillion: 21.0},
		"gemini-2.5-flash": {PromptPerMillion: 0.5, CompletionPerMillion: 1.5},

		"gpt-4o":            {PromptPerMillion: 2.5, CompletionPerMillion: 10.0},
		"gpt-4o-mini":       {PromptPerMillion: 0.15, CompletionPerMillion: 0.6},
		"claude-3.5-sonnet": {PromptPerMillion: 3.0, CompletionPerMillion: 15.0},
		"gemini-1.5-pro":    {PromptPerMillion: 3.5, CompletionPerMillion: 10.5},
		"gemini-1.5-flash":  {PromptPerMillion: 0.35, CompletionPerMillion: 1.05},

		DefaultModel: {PromptPerMillion: 5.0, CompletionPerMillion: 15.0},
	}
}

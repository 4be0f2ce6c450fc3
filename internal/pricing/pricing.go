package pricing

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultModel is the mandatory fallback key in both tables.
const DefaultModel = "default"

var ErrMissingDefault = errors.New("pricing: missing default entry")

// Rate is the price of one million tokens, in USD.
type Rate struct {
	PromptPerMillion     float64 `yaml:"prompt" json:"prompt"`
	CompletionPerMillion float64 `yaml:"completion" json:"completion"`
}

type CostEstimate struct {
	Amount float64 `json:"amount"`
}

// Table maps model identifiers to a flat pre-call estimate and to token rates.
// It is never mutated after construction and is safe for concurrent use.
type Table struct {
	estimates map[string]float64
	rates     map[string]Rate
}

type document struct {
	Estimates map[string]float64 `yaml:"estimates"`
	Rates     map[string]Rate    `yaml:"rates"`
}

// New builds a Table from the given maps. Both must contain DefaultModel.
func New(estimates map[string]float64, rates map[string]Rate) (*Table, error) {
	if _, ok := estimates[DefaultModel]; !ok {
		return nil, fmt.Errorf("estimates: %w", ErrMissingDefault)
	}
	if _, ok := rates[DefaultModel]; !ok {
		return nil, fmt.Errorf("rates: %w", ErrMissingDefault)
	}

	t := &Table{
		estimates: make(map[string]float64, len(estimates)),
		rates:     make(map[string]Rate, len(rates)),
	}
	for model, amount := range estimates {
		if amount < 0 {
			return nil, fmt.Errorf("pricing: negative estimate for %q", model)
		}
		t.estimates[model] = amount
	}
	for model, r := range rates {
		if r.PromptPerMillion < 0 || r.CompletionPerMillion < 0 {
			return nil, fmt.Errorf("pricing: negative rate for %q", model)
		}
		t.rates[model] = r
	}
	return t, nil
}

// Parse reads a YAML pricing document with "estimates" and "rates" sections.
func Parse(data []byte) (*Table, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse pricing: %w", err)
	}
	return New(doc.Estimates, doc.Rates)
}

// Load reads the pricing file at path. An empty path yields DefaultTable.
func Load(path string) (*Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pricing: %w", err)
	}
	return Parse(data)
}

// Estimate returns the flat pre-call cost for model, falling back to the
// default entry for unknown models.
func (t *Table) Estimate(model string) CostEstimate {
	amount, ok := t.estimates[model]
	if !ok {
		amount = t.estimates[DefaultModel]
	}
	return CostEstimate{Amount: amount}
}

// Rate returns the rate for model and whether it was found. Unknown models get
// the default rate.
func (t *Table) Rate(model string) (Rate, bool) {
	r, ok := t.rates[model]
	if !ok {
		return t.rates[DefaultModel], false
	}
	return r, true
}

// PriceTokens computes the actual cost of a call. Rounding is left to the
// billing service.
func (t *Table) PriceTokens(model string, promptTokens, completionTokens uint64) float64 {
	r, _ := t.Rate(model)
	promptCost := (float64(promptTokens) / 1_000_000) * r.PromptPerMillion
	completionCost := (float64(completionTokens) / 1_000_000) * r.CompletionPerMillion
	return promptCost + completionCost
}

// Models lists every model with an explicit rate, default included.
func (t *Table) Models() []string {
	models := make([]string, 0, len(t.rates))
	for m := range t.rates {
		models = append(models, m)
	}
	return models
}

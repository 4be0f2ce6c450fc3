package pricing

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestEstimate_KnownModel(t *testing.T) {
	table := DefaultTable()
	assert.Equal(t, 0.10, table.Estimate("gpt-5").Amount)
	assert.Equal(t, 0.01, table.Estimate("gemini-2.5-flash").Amount)
}

func TestEstimate_UnknownModelUsesDefault(t *testing.T) {
	table := DefaultTable()
	assert.Equal(t, 0.05, table.Estimate("llama-99-ultra").Amount)
	assert.Equal(t, 0.05, table.Estimate("").Amount)
}

func TestPriceTokens_Formula(t *testing.T) {
	table := DefaultTable()

	cost := table.PriceTokens("gpt-4o", 1000, 500)
	assert.InDelta(t, 0.0075, cost, 1e-12)

	// default: 5.0 prompt, 15.0 completion
	cost = table.PriceTokens("unknown-model", 2_000_000, 1_000_000)
	assert.InDelta(t, 25.0, cost, 1e-9)

	assert.Zero(t, table.PriceTokens("gpt-4o", 0, 0))
}

func TestRate_ReportsFallback(t *testing.T) {
	table := DefaultTable()

	r, ok := table.Rate("gpt-4o-mini")
	assert.True(t, ok)
	assert.Equal(t, Rate{PromptPerMillion: 0.15, CompletionPerMillion: 0.6}, r)

	r, ok = table.Rate("nope")
	assert.False(t, ok)
	assert.Equal(t, Rate{PromptPerMillion: 5.0, CompletionPerMillion: 15.0}, r)
}

func TestPriceTokens_LinearInTokens(t *testing.T) {
	table := DefaultTable()
	models := table.Models()

	rapid.Check(t, func(rt *rapid.T) {
		model := rapid.SampledFrom(models).Draw(rt, "model")
		prompt := rapid.Uint64Range(0, 10_000_000).Draw(rt, "prompt")
		completion := rapid.Uint64Range(0, 10_000_000).Draw(rt, "completion")

		r, ok := table.Rate(model)
		if !ok {
			rt.Fatalf("model %q missing from table", model)
		}
		want := (float64(prompt)/1_000_000)*r.PromptPerMillion + (float64(completion)/1_000_000)*r.CompletionPerMillion
		got := table.PriceTokens(model, prompt, completion)
		if got != want {
			rt.Fatalf("PriceTokens(%q, %d, %d) = %v, want %v", model, prompt, completion, got, want)
		}

		split := table.PriceTokens(model, prompt, 0) + table.PriceTokens(model, 0, completion)
		if diff := got - split; diff > 1e-9 || diff < -1e-9 {
			rt.Fatalf("not additive: %v vs %v", got, split)
		}
	})
}

func TestUnknownModels_NeverFail(t *testing.T) {
	table := DefaultTable()
	def, _ := table.Rate(DefaultModel)

	rapid.Check(t, func(rt *rapid.T) {
		model := rapid.StringMatching(`unknown-[a-z0-9]{1,12}`).Draw(rt, "model")
		prompt := rapid.Uint64Range(0, 1_000_000).Draw(rt, "prompt")
		completion := rapid.Uint64Range(0, 1_000_000).Draw(rt, "completion")

		if got := table.Estimate(model).Amount; got != 0.05 {
			rt.Fatalf("Estimate(%q) = %v, want default", model, got)
		}
		want := (float64(prompt)/1_000_000)*def.PromptPerMillion + (float64(completion)/1_000_000)*def.CompletionPerMillion
		if got := table.PriceTokens(model, prompt, completion); got != want {
			rt.Fatalf("PriceTokens(%q) = %v, want %v", model, got, want)
		}
	})
}

func TestParse(t *testing.T) {
	doc := []byte(`
estimates:
  default: 0.2
  small: 0.01
rates:
  default: {prompt: 1.0, completion: 2.0}
  small: {prompt: 2.5, completion: 10.0}
`)
	table, err := Parse(doc)
	require.NoError(t, err)

	assert.Equal(t, 0.01, table.Estimate("small").Amount)
	assert.Equal(t, 0.2, table.Estimate("big").Amount)
	assert.InDelta(t, 0.0075, table.PriceTokens("small", 1000, 500), 1e-12)
	assert.InDelta(t, 3.0, table.PriceTokens("big", 1_000_000, 1_000_000), 1e-12)
}

func TestParse_MissingDefault(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "no default estimate",
			doc:  "estimates: {a: 1}\nrates: {default: {prompt: 1, completion: 1}}\n",
		},
		{
			name: "no default rate",
			doc:  "estimates: {default: 1}\nrates: {a: {prompt: 1, completion: 1}}\n",
		},
		{
			name: "empty document",
			doc:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMissingDefault))
		})
	}
}

func TestParse_RejectsNegativeRates(t *testing.T) {
	_, err := Parse([]byte("estimates: {default: 1}\nrates: {default: {prompt: -1, completion: 1}}\n"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"estimates: {default: 0.5}\nrates: {default: {prompt: 4, completion: 8}}\n",
	), 0o600))

	table, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, table.Estimate("x").Amount)

	table, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, 0.05, table.Estimate("x").Amount)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// Package generation talks to the external text generation service.
package generation

import (
	"context"
	"errors"

	"github.com/opsdesk/reportgen/internal/metrics"
	"github.com/opsdesk/reportgen/internal/report/model"
	logx "github.com/opsdesk/reportgen/pkg/logger"
)

// ErrEmptyResponse is returned when the service answers without any text.
var ErrEmptyResponse = errors.New("generation service returned an empty response")

// Client issues exactly one blocking request per call and returns the full
// output text. Implementations never retry.
type Client interface {
	Generate(ctx context.Context, pair model.PromptPair) (string, error)
}

// Router sends prompts with inline images to Multimodal and everything else to Text.
type Router struct {
	Text       Client
	Multimodal Client
}

func (r *Router) Generate(ctx context.Context, pair model.PromptPair) (string, error) {
	if pair.HasImage() {
		return r.Multimodal.Generate(ctx, pair)
	}
	return r.Text.Generate(ctx, pair)
}

var _ Client = (*Router)(nil)

// recordUsage logs token usage with its estimated cost and feeds the usage counters.
func recordUsage(modelName string, domain model.Domain, usage *model.Usage) {
	if usage == nil {
		return
	}
	inC, outC, totalC := model.ComputeCost(usage, model.ResolvePricing(modelName))

	metrics.GenerationTokensTotal.WithLabelValues(modelName, "input").Add(float64(usage.PromptTokens))
	metrics.GenerationTokensTotal.WithLabelValues(modelName, "output").Add(float64(usage.CompletionTokens))
	metrics.GenerationCostUSD.WithLabelValues(modelName).Add(totalC)

	logx.Debug().
		Str("domain", domain.String()).
		Str("model", modelName).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Int("total_tokens", usage.TotalTokens).
		Float64("input_cost_usd", inC).
		Float64("output_cost_usd", outC).
		Float64("total_cost_usd", totalC).
		Msg("LLM usage")
}

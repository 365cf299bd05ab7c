package llm

import (
	"strings"
	"sync"

	"github.com/navchetna/whispey-sub001/internal/domain"
	"github.com/navchetna/whispey-sub001/internal/llm/transport"
)

// pricingEntry holds per-1000-token rates in milli-cents for one model.
type pricingEntry struct {
	promptPer1000 domain.MilliCents
	outputPer1000 domain.MilliCents
}

// PricingTable estimates call costs from token usage. Rates are static
// defaults; Set allows overriding at startup from configuration. Estimation
// is best-effort: an unknown model falls back to its provider's default
// entry, and a fully unknown provider estimates zero rather than failing
// the evaluation unit.
type PricingTable struct {
	mu      sync.RWMutex
	entries map[string]pricingEntry
}

// NewPricingTable creates a table seeded with default rates for the
// supported provider families.
func NewPricingTable() *PricingTable {
	return &PricingTable{
		entries: map[string]pricingEntry{
			"openai/gpt-4o":                {promptPer1000: 250, outputPer1000: 1000},
			"openai/gpt-4o-mini":           {promptPer1000: 15, outputPer1000: 60},
			"openai/default":               {promptPer1000: 50, outputPer1000: 150},
			"google/gemini-2.0-flash":      {promptPer1000: 10, outputPer1000: 40},
			"google/gemini-1.5-pro":        {promptPer1000: 125, outputPer1000: 500},
			"google/default":               {promptPer1000: 15, outputPer1000: 60},
			"groq/llama-3.1-8b-instant":    {promptPer1000: 5, outputPer1000: 8},
			"groq/llama-3.3-70b-versatile": {promptPer1000: 59, outputPer1000: 79},
			"groq/default":                 {promptPer1000: 10, outputPer1000: 20},
		},
	}
}

// Set overrides the rates for a provider/model pair.
func (p *PricingTable) Set(provider, model string, promptPer1000, outputPer1000 domain.MilliCents) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[pricingKey(provider, model)] = pricingEntry{
		promptPer1000: promptPer1000,
		outputPer1000: outputPer1000,
	}
}

// EstimateCost computes the estimated cost of a call from its token usage.
func (p *PricingTable) EstimateCost(provider, model string, usage transport.TokenUsage) domain.MilliCents {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entry, ok := p.entries[pricingKey(provider, model)]
	if !ok {
		entry, ok = p.entries[pricingKey(provider, "default")]
	}
	if !ok {
		return 0
	}

	promptCost := domain.MilliCents(usage.PromptTokens) * entry.promptPer1000 / 1000
	outputCost := domain.MilliCents(usage.CompletionTokens) * entry.outputPer1000 / 1000
	return promptCost + outputCost
}

func pricingKey(provider, model string) string {
	return strings.ToLower(provider) + "/" + strings.ToLower(model)
}

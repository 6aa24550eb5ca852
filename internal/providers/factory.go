package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/aegis/internal/common"
	"github.com/ternarybob/aegis/internal/interfaces"
	"github.com/ternarybob/arbor"
)

// Pool names a provider credential pool. Precedent research and risk
// quantification run concurrently, so they are assigned different pools
// (and, for Gemini, different API keys) to keep their quotas independent.
type Pool string

const (
	PoolIngestion Pool = "ingestion"
	PoolResearch  Pool = "research"
	PoolRisk      Pool = "risk"
	PoolStrategy  Pool = "strategy"
)

// commonTimeout wraps the per-call hard timeout.
type commonTimeout struct {
	d time.Duration
}

func (t commonTimeout) wrap(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.d <= 0 {
		return context.WithTimeout(ctx, 60*time.Second)
	}
	return context.WithTimeout(ctx, t.d)
}

// Factory creates analysis providers per credential pool.
type Factory struct {
	config *common.Config
	logger arbor.ILogger
}

// NewFactory creates a provider factory.
func NewFactory(config *common.Config, logger arbor.ILogger) *Factory {
	return &Factory{config: config, logger: logger}
}

// Provider returns an analysis provider for a pool based on the configured
// default provider. Returns interfaces.ErrNotConfigured when the pool's
// credential is missing; the calling stage disables itself and uses its
// documented neutral default.
func (f *Factory) Provider(ctx context.Context, pool Pool) (interfaces.AnalysisProvider, error) {
	switch f.config.LLM.DefaultProvider {
	case "claude":
		return NewClaudeProvider(&f.config.Claude, &f.config.LLM, f.logger)
	default:
		apiKey := f.geminiKeyForPool(pool)
		return NewGeminiProvider(ctx, apiKey, f.config.Gemini.Model, &f.config.LLM, f.logger)
	}
}

// geminiKeyForPool selects the credential for a pool. The risk pool gets
// the alternate key so it never contends with research for quota; when no
// alternate is configured the primary is shared with a warning.
func (f *Factory) geminiKeyForPool(pool Pool) string {
	if pool == PoolRisk && f.config.Gemini.APIKeyAlt != "" {
		return f.config.Gemini.APIKeyAlt
	}
	if pool == PoolRisk && f.config.Gemini.APIKey != "" {
		f.logger.Warn().Msg("No alternate Gemini key configured; risk pool shares the primary quota")
	}
	return f.config.Gemini.APIKey
}

// ParseStructured decodes a provider's JSON text into out, tolerating
// markdown fences around the payload. A decode failure is reported as
// ErrInvalidPayload so callers apply their conservative fallback.
func ParseStructured(text string, out interface{}) error {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	// Grounded responses sometimes wrap the JSON in prose; cut to the
	// outermost object or array.
	if !strings.HasPrefix(cleaned, "{") && !strings.HasPrefix(cleaned, "[") {
		objStart := strings.IndexAny(cleaned, "{[")
		if objStart < 0 {
			return fmt.Errorf("no JSON payload in provider response: %w", interfaces.ErrInvalidPayload)
		}
		cleaned = cleaned[objStart:]
		end := strings.LastIndexAny(cleaned, "}]")
		if end >= 0 {
			cleaned = cleaned[:end+1]
		}
	}

	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("failed to decode provider response: %v: %w", err, interfaces.ErrInvalidPayload)
	}
	return nil
}

package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/aegis/internal/common"
	"github.com/ternarybob/aegis/internal/interfaces"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// GeminiProvider implements the AnalysisProvider contract on the Google
// Gemini API. It supports both the plain structured-output variant and the
// grounded variant (GoogleSearch tool with grounding-source extraction).
type GeminiProvider struct {
	client  *genai.Client
	model   string
	timeout commonTimeout
	retry   *RetryPolicy
	limiter *rate.Limiter
	logger  arbor.ILogger
}

// NewGeminiProvider creates a provider bound to one API credential. Stages
// that run concurrently are given providers built from different keys so
// one stage's rate limiting cannot starve the other.
func NewGeminiProvider(ctx context.Context, apiKey string, model string, llmConfig *common.LLMConfig, logger arbor.ILogger) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, interfaces.ErrNotConfigured
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	retry := NewDefaultRetryPolicy()
	if llmConfig.MaxRetries > 0 {
		retry.MaxAttempts = llmConfig.MaxRetries
	}

	rpm := llmConfig.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30
	}

	return &GeminiProvider{
		client:  client,
		model:   model,
		timeout: commonTimeout{llmConfig.RequestTimeout},
		retry:   retry,
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm),
		logger:  logger,
	}, nil
}

// Invoke generates a structured judgment. Retries and the per-call timeout
// are handled here; an error is returned only after retries are exhausted.
func (p *GeminiProvider) Invoke(ctx context.Context, req *interfaces.AnalysisRequest) (*interfaces.AnalysisResponse, error) {
	config := &genai.GenerateContentConfig{}

	if req.Temperature > 0 {
		config.Temperature = genai.Ptr(req.Temperature)
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}

	prompt := req.Prompt
	if req.Grounded {
		// Grounding tools and response schemas are mutually exclusive on
		// the Gemini API, so grounded calls embed the schema in the prompt
		// and the caller parses JSON out of the text.
		config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
		if req.OutputSchema != nil {
			prompt = appendSchemaInstruction(prompt, req.OutputSchema)
		}
	} else if req.OutputSchema != nil {
		schema, err := convertToGenaiSchema(req.OutputSchema)
		if err != nil {
			p.logger.Error().Err(err).Msg("Failed to convert output schema")
		} else if schema != nil {
			config.ResponseMIMEType = "application/json"
			config.ResponseSchema = schema
		}
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	var resp *genai.GenerateContentResponse
	err := p.retry.Execute(ctx, p.logger, "gemini_generate", func(ctx context.Context) error {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}

		callCtx, cancel := p.timeout.wrap(ctx)
		defer cancel()

		var apiErr error
		resp, apiErr = p.client.Models.GenerateContent(callCtx, p.model, contents, config)
		return apiErr
	})
	if err != nil {
		return nil, fmt.Errorf("Gemini API call failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from Gemini API: %w", interfaces.ErrInvalidPayload)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("empty text in Gemini response: %w", interfaces.ErrInvalidPayload)
	}

	result := &interfaces.AnalysisResponse{Text: text}

	if resp.UsageMetadata != nil {
		result.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		result.Cost = ComputeCost(result.InputTokens, result.OutputTokens)
	}

	if gm := resp.Candidates[0].GroundingMetadata; gm != nil {
		for _, chunk := range gm.GroundingChunks {
			if chunk.Web != nil {
				result.Sources = append(result.Sources, interfaces.GroundingSource{
					URL:   chunk.Web.URI,
					Title: chunk.Web.Title,
				})
			}
		}
	}

	return result, nil
}

// Close releases the provider's client.
func (p *GeminiProvider) Close() error {
	p.client = nil
	return nil
}

// appendSchemaInstruction folds a JSON schema into the prompt for calls
// where API-level schema enforcement is unavailable.
func appendSchemaInstruction(prompt string, schema map[string]interface{}) string {
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\nRespond with JSON only, no markdown fences, matching this schema:\n")
	writeSchemaHint(&b, schema, 0)
	return b.String()
}

// writeSchemaHint renders a compact human-readable schema description.
func writeSchemaHint(b *strings.Builder, schema map[string]interface{}, depth int) {
	if depth > 4 {
		return
	}
	indent := strings.Repeat("  ", depth)

	if t, ok := schema["type"].(string); ok {
		fmt.Fprintf(b, "%stype: %s", indent, t)
		if desc, ok := schema["description"].(string); ok {
			fmt.Fprintf(b, " (%s)", desc)
		}
		b.WriteString("\n")
	}

	if props, ok := schema["properties"].(map[string]interface{}); ok {
		for name, val := range props {
			if propMap, ok := val.(map[string]interface{}); ok {
				fmt.Fprintf(b, "%s- %q:\n", indent, name)
				writeSchemaHint(b, propMap, depth+1)
			}
		}
	}

	if items, ok := schema["items"].(map[string]interface{}); ok {
		fmt.Fprintf(b, "%sitems:\n", indent)
		writeSchemaHint(b, items, depth+1)
	}
}

// convertToGenaiSchema converts a map representation of a JSON schema to a
// genai.Schema structure.
func convertToGenaiSchema(schemaMap map[string]interface{}) (*genai.Schema, error) {
	if len(schemaMap) == 0 {
		return nil, nil
	}

	schema := &genai.Schema{}

	if typeStr, ok := schemaMap["type"].(string); ok {
		switch strings.ToLower(typeStr) {
		case "object":
			schema.Type = genai.TypeObject
		case "array":
			schema.Type = genai.TypeArray
		case "string":
			schema.Type = genai.TypeString
		case "number":
			schema.Type = genai.TypeNumber
		case "integer":
			schema.Type = genai.TypeInteger
		case "boolean":
			schema.Type = genai.TypeBoolean
		}
	}

	if desc, ok := schemaMap["description"].(string); ok {
		schema.Description = desc
	}

	if enumVals, ok := schemaMap["enum"].([]interface{}); ok {
		for _, v := range enumVals {
			if s, ok := v.(string); ok {
				schema.Enum = append(schema.Enum, s)
			}
		}
	} else if enumVals, ok := schemaMap["enum"].([]string); ok {
		schema.Enum = enumVals
	}

	if reqVals, ok := schemaMap["required"].([]interface{}); ok {
		for _, v := range reqVals {
			if s, ok := v.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	} else if reqVals, ok := schemaMap["required"].([]string); ok {
		schema.Required = reqVals
	}

	if f, ok := numericValue(schemaMap["minimum"]); ok {
		schema.Minimum = &f
	}
	if f, ok := numericValue(schemaMap["maximum"]); ok {
		schema.Maximum = &f
	}

	if itemsMap, ok := schemaMap["items"].(map[string]interface{}); ok {
		itemSchema, err := convertToGenaiSchema(itemsMap)
		if err != nil {
			return nil, fmt.Errorf("failed to convert items schema: %w", err)
		}
		schema.Items = itemSchema
	}

	if propsMap, ok := schemaMap["properties"].(map[string]interface{}); ok {
		schema.Properties = make(map[string]*genai.Schema)
		for propName, propVal := range propsMap {
			if propMap, ok := propVal.(map[string]interface{}); ok {
				propSchema, err := convertToGenaiSchema(propMap)
				if err != nil {
					return nil, fmt.Errorf("failed to convert property '%s': %w", propName, err)
				}
				schema.Properties[propName] = propSchema
			}
		}
	}

	return schema, nil
}

func numericValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/aegis/internal/common"
	"github.com/ternarybob/aegis/internal/interfaces"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

// ClaudeProvider implements the AnalysisProvider contract on the Anthropic
// API. Claude has no API-level schema enforcement, so the output schema is
// folded into the instruction and the grounded variant uses the web search
// tool.
type ClaudeProvider struct {
	client      anthropic.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     commonTimeout
	retry       *RetryPolicy
	limiter     *rate.Limiter
	logger      arbor.ILogger
}

// NewClaudeProvider creates a provider bound to one API credential.
func NewClaudeProvider(claudeConfig *common.ClaudeConfig, llmConfig *common.LLMConfig, logger arbor.ILogger) (*ClaudeProvider, error) {
	if claudeConfig.APIKey == "" {
		return nil, interfaces.ErrNotConfigured
	}

	retry := NewDefaultRetryPolicy()
	if llmConfig.MaxRetries > 0 {
		retry.MaxAttempts = llmConfig.MaxRetries
	}

	rpm := llmConfig.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30
	}

	return &ClaudeProvider{
		client:      anthropic.NewClient(option.WithAPIKey(claudeConfig.APIKey)),
		model:       claudeConfig.Model,
		maxTokens:   claudeConfig.MaxTokens,
		temperature: claudeConfig.Temperature,
		timeout:     commonTimeout{llmConfig.RequestTimeout},
		retry:       retry,
		limiter:     rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm),
		logger:      logger,
	}, nil
}

// Invoke generates a structured judgment via the Anthropic messages API.
func (p *ClaudeProvider) Invoke(ctx context.Context, req *interfaces.AnalysisRequest) (*interfaces.AnalysisResponse, error) {
	prompt := req.Prompt
	if req.OutputSchema != nil {
		prompt = appendSchemaInstruction(prompt, req.OutputSchema)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.maxTokens
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	temp := req.Temperature
	if temp <= 0 {
		temp = p.temperature
	}
	if temp > 0 {
		params.Temperature = anthropic.Float(float64(temp))
	}

	if req.SystemInstruction != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemInstruction}}
	}

	if req.Grounded {
		params.Tools = []anthropic.ToolUnionParam{{
			OfWebSearchTool20250305: &anthropic.WebSearchTool20250305Param{},
		}}
	}

	var resp *anthropic.Message
	err := p.retry.Execute(ctx, p.logger, "claude_generate", func(ctx context.Context) error {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}

		callCtx, cancel := p.timeout.wrap(ctx)
		defer cancel()

		var apiErr error
		resp, apiErr = p.client.Messages.New(callCtx, params)
		return apiErr
	})
	if err != nil {
		return nil, fmt.Errorf("Claude API call failed: %w", err)
	}

	var text strings.Builder
	var sources []interfaces.GroundingSource
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
			for _, citation := range block.Citations {
				if citation.URL != "" {
					sources = append(sources, interfaces.GroundingSource{
						URL:     citation.URL,
						Title:   citation.Title,
						Content: citation.CitedText,
					})
				}
			}
		}
	}

	if text.Len() == 0 {
		return nil, fmt.Errorf("empty response from Claude API: %w", interfaces.ErrInvalidPayload)
	}

	tokensIn := int(resp.Usage.InputTokens)
	tokensOut := int(resp.Usage.OutputTokens)

	return &interfaces.AnalysisResponse{
		Text:         text.String(),
		Sources:      sources,
		InputTokens:  tokensIn,
		OutputTokens: tokensOut,
		Cost:         ComputeCost(tokensIn, tokensOut),
	}, nil
}

// Close releases the provider's client.
func (p *ClaudeProvider) Close() error {
	p.client = anthropic.Client{}
	return nil
}

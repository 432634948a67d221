package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const DefaultOpenAIBaseURL = "https://openrouter.ai/api/v1"

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Rate    float64
	Burst   int
}

// OpenAI extracts lookups from any OpenAI-compatible chat completions API
// (OpenRouter by default) using tool calls.
type OpenAI struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
	logger  zerolog.Logger
}

func NewOpenAI(cfg OpenAIConfig, logger zerolog.Logger) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai API key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("openai model is required")
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAI{
		client:  openai.NewClientWithConfig(config),
		model:   cfg.Model,
		limiter: newLimiter(cfg.Rate, cfg.Burst),
		logger:  logger.With().Str("component", "openai").Logger(),
	}, nil
}

func (o *OpenAI) Extract(ctx context.Context, question string) (Extraction, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return Extraction{}, err
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:      o.model,
		Messages:   o.baseMessages(question),
		Tools:      []openai.Tool{openAITool()},
		ToolChoice: "auto",
	})
	if err != nil {
		return Extraction{}, o.wrapError("chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return Extraction{}, fmt.Errorf("no choices in response")
	}

	msg := resp.Choices[0].Message
	for _, tc := range msg.ToolCalls {
		if tc.Function.Name != ToolName {
			o.logger.Debug().Str("function", tc.Function.Name).Msg("Ignoring unknown tool call")
			continue
		}
		ex, err := ParseToolArguments([]byte(tc.Function.Arguments))
		if err != nil {
			return Extraction{}, err
		}
		o.logger.Debug().Str("container_id", ex.ContainerID).Str("intent", ex.Intent.String()).Msg("Extracted lookup")
		return ex, nil
	}
	return Extraction{Reply: strings.TrimSpace(msg.Content)}, nil
}

// Narrate sends the tool call and its result back as a tool message and
// returns the model's answer.
func (o *OpenAI) Narrate(ctx context.Context, question string, call Extraction, toolResult map[string]any) (string, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return "", err
	}

	args, err := json.Marshal(map[string]string{
		"container_id": call.ContainerID,
		"intent":       call.Intent.String(),
	})
	if err != nil {
		return "", err
	}
	result, err := json.Marshal(toolResult)
	if err != nil {
		return "", fmt.Errorf("marshal tool result: %w", err)
	}

	const callID = "call_query_container"
	messages := append(o.baseMessages(question),
		openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleAssistant,
			ToolCalls: []openai.ToolCall{{
				ID:   callID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      ToolName,
					Arguments: string(args),
				},
			}},
		},
		openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			ToolCallID: callID,
			Content:    string(result),
		},
	)

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: messages,
		Tools:    []openai.Tool{openAITool()},
	})
	if err != nil {
		return "", o.wrapError("narrate", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (o *OpenAI) baseMessages(question string) []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: SystemInstruction},
		{Role: openai.ChatMessageRoleUser, Content: question},
	}
}

func (o *OpenAI) wrapError(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return &QuotaExceededError{Provider: "openai", Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return &QuotaExceededError{Provider: "openai", Err: err}
	}
	return fmt.Errorf("openai %s: %w", op, err)
}

func openAITool() openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        ToolName,
			Description: ToolDescription,
			Parameters:  json.RawMessage(ToolParametersSchema),
		},
	}
}

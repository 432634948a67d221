package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.0-flash"

type GeminiConfig struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint. Empty uses the public Gemini API.
	BaseURL string
	Rate    float64
	Burst   int
}

// Gemini extracts lookups through Gemini function calling and can narrate
// the tool result in a second turn.
type Gemini struct {
	client  *genai.Client
	model   string
	limiter *rate.Limiter
	config  *genai.GenerateContentConfig
	logger  zerolog.Logger
}

func NewGemini(ctx context.Context, cfg GeminiConfig, logger zerolog.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Gemini{
		client:  client,
		model:   cfg.Model,
		limiter: newLimiter(cfg.Rate, cfg.Burst),
		config: &genai.GenerateContentConfig{
			Tools:             []*genai.Tool{{FunctionDeclarations: []*genai.FunctionDeclaration{geminiToolDeclaration()}}},
			SystemInstruction: genai.NewContentFromText(SystemInstruction, genai.RoleUser),
		},
		logger: logger.With().Str("component", "gemini").Logger(),
	}, nil
}

func (g *Gemini) Extract(ctx context.Context, question string) (Extraction, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return Extraction{}, err
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{
		genai.NewContentFromText(question, genai.RoleUser),
	}, g.config)
	if err != nil {
		return Extraction{}, g.wrapError("generate content", err)
	}

	for _, call := range resp.FunctionCalls() {
		if call.Name != ToolName {
			g.logger.Debug().Str("function", call.Name).Msg("Ignoring unknown function call")
			continue
		}
		ex, err := parseToolArgumentMap(call.Args)
		if err != nil {
			return Extraction{}, err
		}
		g.logger.Debug().Str("container_id", ex.ContainerID).Str("intent", ex.Intent.String()).Msg("Extracted lookup")
		return ex, nil
	}

	return Extraction{Reply: strings.TrimSpace(resp.Text())}, nil
}

// Narrate replays the function call and hands the tool result back to the
// model for a prose answer.
func (g *Gemini) Narrate(ctx context.Context, question string, call Extraction, toolResult map[string]any) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	contents := []*genai.Content{
		genai.NewContentFromText(question, genai.RoleUser),
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromFunctionCall(ToolName, map[string]any{
				"container_id": call.ContainerID,
				"intent":       call.Intent.String(),
			}),
		}, genai.RoleModel),
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromFunctionResponse(ToolName, toolResult),
		}, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, g.config)
	if err != nil {
		return "", g.wrapError("narrate", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

func (g *Gemini) wrapError(op string, err error) error {
	if looksLikeQuotaError(err) {
		return &QuotaExceededError{Provider: "gemini", Err: err}
	}
	return fmt.Errorf("gemini %s: %w", op, err)
}

func geminiToolDeclaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        ToolName,
		Description: ToolDescription,
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"container_id": {
					Type:        genai.TypeString,
					Description: "Container ID (e.g., ABCU1234567, TCLU9876543)",
				},
				"intent": {
					Type:        genai.TypeString,
					Description: "Intent: status, location, availability, holds, last_free_day, or 'all'",
					Enum:        []string{"status", "location", "availability", "holds", "last_free_day", "all"},
				},
			},
			Required: []string{"container_id", "intent"},
		},
	}
}

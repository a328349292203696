package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/wellbeingchat/backend/internal/analysis/safety"
	"github.com/wellbeingchat/backend/internal/apperr"
	"github.com/wellbeingchat/backend/internal/config"
	"github.com/wellbeingchat/backend/internal/metrics"
)

const (
	gatewayResponse       = "response"
	gatewayRecommendation = "recommendation"
)

// ResponseRequest is the input of the response gateway.
type ResponseRequest struct {
	UserInput           string `json:"userInput"`
	ConversationHistory string `json:"conversationHistory"`
}

// ResponseResult is the reply plus the opaque safety flag.
type ResponseResult struct {
	ChatbotResponse string `json:"chatbotResponse"`
	IsTriggering    bool   `json:"isTriggering,omitempty"`
}

// RecommendationRequest is the input of the recommendation gateway.
type RecommendationRequest struct {
	Mood                string `json:"mood"`
	ConversationHistory string `json:"conversationHistory"`
}

// Service runs both gateways on one chat model.
type Service struct {
	responder   compose.Runnable[map[string]any, *schema.Message]
	recommender compose.Runnable[map[string]any, *schema.Message]
	schemas     outputSchemas
	metrics     *metrics.Metrics
}

type outputSchemas struct {
	response       *jsonschema.Schema
	recommendation *jsonschema.Schema
}

// NewService builds the chat model from cfg and compiles both chains.
func NewService(ctx context.Context, cfg config.AIConfig, m *metrics.Metrics) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(ctx, chatModel, m)
}

// NewServiceWithModel compiles both chains around an existing chat model.
func NewServiceWithModel(ctx context.Context, chatModel model.ChatModel, m *metrics.Metrics) (*Service, error) {
	responder, err := compileChain(ctx, chatModel, responseSystemPrompt, responseUserPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to compile response chain: %w", err)
	}

	recommender, err := compileChain(ctx, chatModel, recommendationSystemPrompt, recommendationUserPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to compile recommendation chain: %w", err)
	}

	schemas, err := compileOutputSchemas()
	if err != nil {
		return nil, err
	}

	return &Service{
		responder:   responder,
		recommender: recommender,
		schemas:     schemas,
		metrics:     m,
	}, nil
}

func compileChain(ctx context.Context, chatModel model.ChatModel, system, user string) (compose.Runnable[map[string]any, *schema.Message], error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(system),
		schema.UserMessage(user),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	return chain.Compile(ctx)
}

// GenerateResponse produces a supportive reply to the user's input.
func (s *Service) GenerateResponse(ctx context.Context, req ResponseRequest) (result ResponseResult, err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveGateway(gatewayResponse, started, err) }()

	input := map[string]any{
		"user_input": strings.TrimSpace(req.UserInput),
		"history":    historySection(req.ConversationHistory),
	}

	msg, err := s.responder.Invoke(ctx, input)
	if err != nil {
		return ResponseResult{}, apperr.Gateway(gatewayResponse, err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return ResponseResult{}, apperr.Gateway(gatewayResponse, fmt.Errorf("empty model output"))
	}

	result, err = s.parseResponse(msg.Content, req.UserInput)
	if err != nil {
		return ResponseResult{}, apperr.Gateway(gatewayResponse, err)
	}

	log.Debug().
		Str("component", "ai").
		Int("length", len(result.ChatbotResponse)).
		Bool("triggering", result.IsTriggering).
		Msg("generated response")
	return result, nil
}

// Recommend returns short actionable suggestions for the given mood.
func (s *Service) Recommend(ctx context.Context, req RecommendationRequest) (items []string, err error) {
	started := time.Now()
	defer func() { s.metrics.ObserveGateway(gatewayRecommendation, started, err) }()

	input := map[string]any{
		"mood":    strings.TrimSpace(req.Mood),
		"history": historySection(req.ConversationHistory),
	}

	msg, err := s.recommender.Invoke(ctx, input)
	if err != nil {
		return nil, apperr.Gateway(gatewayRecommendation, err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return nil, apperr.Gateway(gatewayRecommendation, fmt.Errorf("empty model output"))
	}

	items, err = s.parseRecommendations(msg.Content)
	if err != nil {
		return nil, apperr.Gateway(gatewayRecommendation, err)
	}
	return items, nil
}

func (s *Service) parseResponse(content, userInput string) (ResponseResult, error) {
	var payload responsePayload
	found, err := decodeObject(content, s.schemas.response, &payload)
	if err != nil {
		return ResponseResult{}, err
	}

	if !found {
		// Plain-text answer: keep it and judge safety locally.
		return ResponseResult{
			ChatbotResponse: strings.TrimSpace(content),
			IsTriggering:    safety.Analyze(userInput).Triggering(),
		}, nil
	}

	result := ResponseResult{ChatbotResponse: strings.TrimSpace(payload.ChatbotResponse)}
	if payload.IsTriggering != nil {
		result.IsTriggering = *payload.IsTriggering
	} else {
		result.IsTriggering = safety.Analyze(userInput).Triggering()
	}
	return result, nil
}

func (s *Service) parseRecommendations(content string) ([]string, error) {
	var payload recommendationPayload
	found, err := decodeObject(content, s.schemas.recommendation, &payload)
	if err != nil {
		return nil, err
	}

	var items []string
	if found {
		items = payload.Recommendations
	} else {
		items = parseBulletList(content)
	}

	cleaned := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("no recommendations in model output")
	}
	return cleaned, nil
}

func historySection(history string) string {
	history = strings.TrimSpace(history)
	if history == "" {
		return "(no earlier messages)"
	}
	return history
}

// parseBulletList accepts "- item", "* item" and "1. item" lines.
func parseBulletList(content string) []string {
	var items []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "* "):
			items = append(items, strings.Trim(strings.TrimSpace(line[2:]), `"`))
		default:
			if idx := strings.Index(line, ". "); idx > 0 && isDigits(line[:idx]) {
				items = append(items, strings.Trim(strings.TrimSpace(line[idx+2:]), `"`))
			}
		}
	}
	return items
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

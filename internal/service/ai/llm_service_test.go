package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/wellbeingchat/backend/internal/apperr"
)

type fakeChatModel struct {
	reply  string
	err    error
	inputs [][]*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (f *fakeChatModel) BindTools([]*schema.ToolInfo) error { return nil }

func newTestService(t *testing.T, fake *fakeChatModel) *Service {
	t.Helper()
	svc, err := NewServiceWithModel(context.Background(), fake, nil)
	if err != nil {
		t.Fatalf("NewServiceWithModel err: %v", err)
	}
	return svc
}

func TestGenerateResponseParsesJSON(t *testing.T) {
	fake := &fakeChatModel{reply: "Sure! ```json\n{\"chatbotResponse\": \"That sounds hard.\", \"isTriggering\": false}\n```"}
	svc := newTestService(t, fake)

	got, err := svc.GenerateResponse(context.Background(), ResponseRequest{
		UserInput:           "I failed my exam",
		ConversationHistory: "bot: Hello!",
	})
	if err != nil {
		t.Fatalf("GenerateResponse err: %v", err)
	}
	if got.ChatbotResponse != "That sounds hard." || got.IsTriggering {
		t.Fatalf("unexpected result: %+v", got)
	}

	if len(fake.inputs) != 1 {
		t.Fatalf("expected one model call, got %d", len(fake.inputs))
	}
	last := fake.inputs[0][len(fake.inputs[0])-1]
	if !strings.Contains(last.Content, "User Input: I failed my exam") || !strings.Contains(last.Content, "bot: Hello!") {
		t.Fatalf("prompt missing input or history: %q", last.Content)
	}
}

func TestGenerateResponseModelFlagWins(t *testing.T) {
	fake := &fakeChatModel{reply: `{"chatbotResponse": "I'm here with you.", "isTriggering": true}`}
	svc := newTestService(t, fake)

	got, err := svc.GenerateResponse(context.Background(), ResponseRequest{UserInput: "rough day"})
	if err != nil {
		t.Fatalf("GenerateResponse err: %v", err)
	}
	if !got.IsTriggering {
		t.Fatal("expected the model's flag to be kept")
	}
}

func TestGenerateResponsePlainTextFallsBackToHeuristic(t *testing.T) {
	fake := &fakeChatModel{reply: "I'm really sorry you're feeling this way. You deserve support."}
	svc := newTestService(t, fake)

	got, err := svc.GenerateResponse(context.Background(), ResponseRequest{UserInput: "I want to end my life"})
	if err != nil {
		t.Fatalf("GenerateResponse err: %v", err)
	}
	if got.ChatbotResponse != "I'm really sorry you're feeling this way. You deserve support." {
		t.Fatalf("unexpected reply: %q", got.ChatbotResponse)
	}
	if !got.IsTriggering {
		t.Fatal("expected heuristic to flag crisis language")
	}
}

func TestGenerateResponseRejectsInvalidJSON(t *testing.T) {
	fake := &fakeChatModel{reply: `{"reply": "wrong field"}`}
	svc := newTestService(t, fake)

	_, err := svc.GenerateResponse(context.Background(), ResponseRequest{UserInput: "hi"})
	if !errors.Is(err, apperr.ErrGateway) {
		t.Fatalf("expected ErrGateway, got %v", err)
	}
}

func TestGenerateResponseModelFailure(t *testing.T) {
	fake := &fakeChatModel{err: errors.New("429 too many requests")}
	svc := newTestService(t, fake)

	_, err := svc.GenerateResponse(context.Background(), ResponseRequest{UserInput: "hi"})
	if !errors.Is(err, apperr.ErrGateway) {
		t.Fatalf("expected ErrGateway, got %v", err)
	}
}

func TestRecommendJSON(t *testing.T) {
	fake := &fakeChatModel{reply: `{"recommendations": ["Take a short walk outside.", "  ", "Call a friend you trust."]}`}
	svc := newTestService(t, fake)

	got, err := svc.Recommend(context.Background(), RecommendationRequest{Mood: "Sad"})
	if err != nil {
		t.Fatalf("Recommend err: %v", err)
	}
	if len(got) != 2 || got[0] != "Take a short walk outside." || got[1] != "Call a friend you trust." {
		t.Fatalf("unexpected recommendations: %v", got)
	}
}

func TestRecommendBulletFallback(t *testing.T) {
	fake := &fakeChatModel{reply: "Here are some ideas:\n- Try box breathing for two minutes.\n2. Drink a glass of water."}
	svc := newTestService(t, fake)

	got, err := svc.Recommend(context.Background(), RecommendationRequest{Mood: "Anxious"})
	if err != nil {
		t.Fatalf("Recommend err: %v", err)
	}
	if len(got) != 2 || got[1] != "Drink a glass of water." {
		t.Fatalf("unexpected recommendations: %v", got)
	}
}

func TestRecommendEmptyIsGatewayError(t *testing.T) {
	fake := &fakeChatModel{reply: "I can't help with that."}
	svc := newTestService(t, fake)

	if _, err := svc.Recommend(context.Background(), RecommendationRequest{Mood: "Calm"}); !errors.Is(err, apperr.ErrGateway) {
		t.Fatalf("expected ErrGateway, got %v", err)
	}
}

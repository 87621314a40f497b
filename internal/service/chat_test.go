package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"docuchat-ai/internal/citation"
	"docuchat-ai/internal/history"
	"docuchat-ai/internal/rag"
	ragmocks "docuchat-ai/internal/rag/mocks"
	"docuchat-ai/internal/search"
	"docuchat-ai/internal/service"
)

func init() {
	// Set default logger to discard output for cleaner test output
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// failingHistory fails every call.
type failingHistory struct{}

func (failingHistory) Append(context.Context, string, history.Message) error {
	return errors.New("redis unavailable")
}

func (failingHistory) Recent(context.Context, string, int) ([]history.Message, error) {
	return nil, errors.New("redis unavailable")
}

type collector struct {
	events []service.Event
}

func (c *collector) emit(e service.Event) {
	c.events = append(c.events, e)
}

// assertOneTerminal checks that exactly the last event is terminal.
func (c *collector) assertOneTerminal(t *testing.T, want service.EventType) {
	t.Helper()
	if len(c.events) == 0 {
		t.Fatal("no events emitted")
	}
	for i, e := range c.events[:len(c.events)-1] {
		if e.Terminal() {
			t.Errorf("event %d (%s) is terminal but not last", i, e.Type)
		}
	}
	if last := c.events[len(c.events)-1]; last.Type != want {
		t.Errorf("terminal event = %s, want %s", last.Type, want)
	}
}

func TestChatService_AnswerQuery(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := ragmocks.NewMockEngine(ctrl)
	hist := history.NewMemoryStore()
	ctx := context.Background()

	_ = hist.Append(ctx, "s1", history.Message{Role: history.RoleUser, Content: "earlier question"})
	_ = hist.Append(ctx, "s1", history.Message{Role: history.RoleAssistant, Content: "earlier answer"})

	result := rag.Result{
		Answer:    `Revenue grew<sup class="citation" data-citation="1" data-instance="cite-1">[1]</sup>`,
		Citations: []citation.Citation{{SourceFile: "report.pdf", PageNumber: 3}},
	}
	engine.EXPECT().AnswerQuery(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req rag.Request, progress rag.Progress) (rag.Result, error) {
			if req.SessionID != "s1" || req.Message != "How did revenue change?" {
				t.Errorf("engine request = %+v", req)
			}
			if len(req.History) != 2 || req.History[0].Content != "earlier question" {
				t.Errorf("engine history = %+v", req.History)
			}
			progress(rag.ProgressAnalyzing)
			progress(rag.ProgressSearching)
			return result, nil
		})

	svc := service.NewChatService(engine, hist, 0)
	var c collector
	got, err := svc.AnswerQuery(ctx, service.ChatRequest{SessionID: "s1", Message: "  How did revenue change?  "}, c.emit)
	if err != nil {
		t.Fatalf("AnswerQuery() error = %v", err)
	}
	if got.Answer != result.Answer {
		t.Errorf("AnswerQuery() answer = %q", got.Answer)
	}

	c.assertOneTerminal(t, service.EventResult)
	if len(c.events) != 3 || c.events[0].Message != rag.ProgressAnalyzing {
		t.Errorf("events = %+v", c.events)
	}
	if c.events[2].Result == nil || len(c.events[2].Result.Citations) != 1 {
		t.Errorf("terminal event = %+v", c.events[2])
	}

	stored, _ := hist.Recent(ctx, "s1", 10)
	if len(stored) != 4 {
		t.Fatalf("history has %d messages, want 4", len(stored))
	}
	if stored[2].Role != history.RoleUser || stored[2].Content != "How did revenue change?" {
		t.Errorf("stored question = %+v", stored[2])
	}
	if stored[3].Role != history.RoleAssistant || stored[3].Content != result.Answer {
		t.Errorf("stored answer = %+v", stored[3])
	}
}

func TestChatService_AnswerQuery_Validation(t *testing.T) {
	tests := []struct {
		name      string
		req       service.ChatRequest
		wantField string
	}{
		{name: "missing session", req: service.ChatRequest{Message: "hi"}, wantField: "session_id"},
		{name: "empty message", req: service.ChatRequest{SessionID: "s1", Message: "   "}, wantField: "message"},
		{name: "message too long", req: service.ChatRequest{SessionID: "s1", Message: strings.Repeat("a", service.MaxMessageLength+1)}, wantField: "message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			// The engine must not be called.
			engine := ragmocks.NewMockEngine(ctrl)
			svc := service.NewChatService(engine, history.NewMemoryStore(), 6)

			var c collector
			_, err := svc.AnswerQuery(context.Background(), tt.req, c.emit)

			var validationErr *service.ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("AnswerQuery() error = %v, want ValidationError", err)
			}
			if validationErr.Field != tt.wantField {
				t.Errorf("ValidationError.Field = %q, want %q", validationErr.Field, tt.wantField)
			}
			c.assertOneTerminal(t, service.EventError)
			if len(c.events) != 1 {
				t.Errorf("events = %+v, want a single error", c.events)
			}
		})
	}
}

func TestChatService_AnswerQuery_EngineError(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := ragmocks.NewMockEngine(ctrl)
	hist := history.NewMemoryStore()

	engine.EXPECT().AnswerQuery(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ rag.Request, progress rag.Progress) (rag.Result, error) {
			progress(rag.ProgressAnalyzing)
			return rag.Result{}, errors.New("failed to search documents: dial tcp: connection refused")
		})

	svc := service.NewChatService(engine, hist, 6)
	var c collector
	_, err := svc.AnswerQuery(context.Background(), service.ChatRequest{SessionID: "s1", Message: "q"}, c.emit)
	if !errors.Is(err, service.ErrExternalService) {
		t.Errorf("AnswerQuery() error = %v, want ErrExternalService", err)
	}

	c.assertOneTerminal(t, service.EventError)
	last := c.events[len(c.events)-1]
	if strings.Contains(last.Message, "dial tcp") {
		t.Errorf("error event leaks internal detail: %q", last.Message)
	}

	stored, _ := hist.Recent(context.Background(), "s1", 10)
	if len(stored) != 0 {
		t.Errorf("failed exchange was recorded: %+v", stored)
	}
}

func TestChatService_AnswerQuery_StoreNotFoundIsExternal(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := ragmocks.NewMockEngine(ctrl)
	engine.EXPECT().AnswerQuery(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(rag.Result{}, fmt.Errorf("failed to load latest document: %w", search.ErrNotFound))

	svc := service.NewChatService(engine, history.NewMemoryStore(), 6)
	var c collector
	_, err := svc.AnswerQuery(context.Background(), service.ChatRequest{SessionID: "s1", Message: "q"}, c.emit)
	if !errors.Is(err, service.ErrExternalService) {
		t.Errorf("AnswerQuery() error = %v, want ErrExternalService", err)
	}

	c.assertOneTerminal(t, service.EventError)
	if got := c.events[len(c.events)-1].Message; got != "A backing service is unavailable. Please try again." {
		t.Errorf("error event message = %q", got)
	}
}

func TestChatService_AnswerQuery_HistoryFailuresAreSwallowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := ragmocks.NewMockEngine(ctrl)

	engine.EXPECT().AnswerQuery(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req rag.Request, _ rag.Progress) (rag.Result, error) {
			if len(req.History) != 0 {
				t.Errorf("history = %+v, want none", req.History)
			}
			return rag.Result{Answer: "ok", Citations: []citation.Citation{}}, nil
		})

	svc := service.NewChatService(engine, failingHistory{}, 6)
	got, err := svc.AnswerQuery(context.Background(), service.ChatRequest{SessionID: "s1", Message: "q"}, nil)
	if err != nil {
		t.Fatalf("AnswerQuery() error = %v", err)
	}
	if got.Answer != "ok" {
		t.Errorf("AnswerQuery() answer = %q, want ok", got.Answer)
	}
}

package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chat_service.go -package=mocks -mock_names=ChatService=MockChatService docuchat-ai/internal/service ChatService

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"docuchat-ai/internal/contextutil"
	"docuchat-ai/internal/history"
	"docuchat-ai/internal/rag"
)

const (
	// DefaultHistoryLimit is how many earlier messages accompany a question.
	DefaultHistoryLimit = 6
	// MaxMessageLength bounds a question, in characters.
	MaxMessageLength = 4000
)

// EventType names the kind of an Event.
type EventType string

const (
	EventProgress EventType = "progress"
	EventResult   EventType = "result"
	EventError    EventType = "error"
)

// Event is one element of an answer stream. Progress events carry Message;
// the single terminal event is either a result or an error.
type Event struct {
	Type    EventType   `json:"type"`
	Message string      `json:"message,omitempty"`
	Result  *rag.Result `json:"result,omitempty"`
}

// Terminal reports whether e ends the stream.
func (e Event) Terminal() bool {
	return e.Type == EventResult || e.Type == EventError
}

// ChatRequest represents a chat request in the domain layer.
type ChatRequest struct {
	SessionID string
	Message   string
}

// ChatService answers questions about the documents of a session.
type ChatService interface {
	// AnswerQuery emits zero or more progress events followed by exactly one
	// terminal event, and returns the same outcome the terminal event carries.
	// emit may be nil.
	AnswerQuery(ctx context.Context, req ChatRequest, emit func(Event)) (rag.Result, error)
}

// chatService implements ChatService.
type chatService struct {
	engine       rag.Engine
	history      history.Store
	historyLimit int
}

// NewChatService creates a new ChatService. A non-positive historyLimit uses DefaultHistoryLimit.
func NewChatService(engine rag.Engine, hist history.Store, historyLimit int) ChatService {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &chatService{
		engine:       engine,
		history:      hist,
		historyLimit: historyLimit,
	}
}

func validate(req ChatRequest) error {
	if strings.TrimSpace(req.SessionID) == "" {
		return &ValidationError{Field: "session_id", Message: "is required"}
	}
	if strings.TrimSpace(req.Message) == "" {
		return &ValidationError{Field: "message", Message: "cannot be empty"}
	}
	if utf8.RuneCountInString(req.Message) > MaxMessageLength {
		return &ValidationError{Field: "message", Message: "is too long"}
	}
	return nil
}

// AnswerQuery validates req, loads history, runs the engine and records the exchange.
func (s *chatService) AnswerQuery(ctx context.Context, req ChatRequest, emit func(Event)) (rag.Result, error) {
	logger := contextutil.LoggerFromContext(ctx)
	if emit == nil {
		emit = func(Event) {}
	}
	fail := func(err error) (rag.Result, error) {
		emit(Event{Type: EventError, Message: PublicMessage(err)})
		return rag.Result{}, err
	}

	if err := validate(req); err != nil {
		logger.WarnContext(ctx, "invalid chat request", "error", err)
		return fail(err)
	}
	req.Message = strings.TrimSpace(req.Message)

	past, err := s.history.Recent(ctx, req.SessionID, s.historyLimit)
	if err != nil {
		logger.WarnContext(ctx, "failed to load history, continuing without it", "session_id", req.SessionID, "error", err)
		past = nil
	}

	res, err := s.engine.AnswerQuery(ctx, rag.Request{
		SessionID: req.SessionID,
		Message:   req.Message,
		History:   past,
	}, func(msg string) {
		emit(Event{Type: EventProgress, Message: msg})
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to answer query", "error", err)
		return fail(externalError(err, "failed to answer query"))
	}

	emit(Event{Type: EventResult, Result: &res})

	s.record(ctx, req, res)
	logger.InfoContext(ctx, "chat request processed successfully",
		"message_length", len(req.Message),
		"answer_length", len(res.Answer),
		"citations", len(res.Citations),
	)
	return res, nil
}

// record appends the exchange to history. Failures are logged and dropped.
func (s *chatService) record(ctx context.Context, req ChatRequest, res rag.Result) {
	now := time.Now().UTC()
	for _, msg := range []history.Message{
		{Role: history.RoleUser, Content: req.Message, CreatedAt: now},
		{Role: history.RoleAssistant, Content: res.Answer, CreatedAt: now},
	} {
		if err := s.history.Append(ctx, req.SessionID, msg); err != nil {
			contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to append history",
				"session_id", req.SessionID, "role", msg.Role, "error", err)
			return
		}
	}
}

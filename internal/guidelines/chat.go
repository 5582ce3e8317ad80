package guidelines

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"healthmate/internal/catalog"
	"healthmate/internal/llm"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("guidelines: conversation not found")
	ErrInvalidArgument = errors.New("guidelines: invalid argument")
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	maxQuestionLen = 2000
)

type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type Conversation struct {
	ID                 string    `json:"id"`
	Messages           []Message `json:"messages"`
	SuggestedQuestions []string  `json:"suggested_questions"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// CatalogSource yields the current catalog snapshot.
type CatalogSource interface {
	Current() *catalog.Catalog
}

// ChatService answers guideline questions. Replies come from the model when
// one is configured and from the catalog rules otherwise, or when the model
// fails.
type ChatService struct {
	catalog CatalogSource
	model   llm.Client
	log     *slog.Logger
	clock   func() time.Time

	mu    sync.Mutex
	convs map[string]*Conversation
}

// NewChatService builds the service; model may be nil.
func NewChatService(src CatalogSource, model llm.Client, log *slog.Logger) *ChatService {
	if log == nil {
		log = slog.Default()
	}
	return &ChatService{
		catalog: src,
		model:   model,
		log:     log,
		clock:   time.Now,
		convs:   map[string]*Conversation{},
	}
}

// Ask appends the question and the assistant's reply to the conversation.
// An empty conversationID starts a new conversation.
func (s *ChatService) Ask(ctx context.Context, conversationID, question string) (Conversation, error) {
	question = strings.TrimSpace(question)
	if question == "" || len(question) > maxQuestionLen {
		return Conversation{}, ErrInvalidArgument
	}
	cat := s.catalog.Current()
	now := s.clock()

	s.mu.Lock()
	conv, err := s.conversationLocked(conversationID, cat, now)
	if err != nil {
		s.mu.Unlock()
		return Conversation{}, err
	}
	conv.Messages = append(conv.Messages, Message{ID: uuid.NewString(), Role: RoleUser, Content: question, CreatedAt: now})
	history := append([]Message(nil), conv.Messages...)
	s.mu.Unlock()

	answer := s.reply(ctx, cat, history, question)

	s.mu.Lock()
	defer s.mu.Unlock()
	// The conversation may have been cleared while the model was answering.
	conv, ok := s.convs[conv.ID]
	if !ok {
		return Conversation{}, ErrNotFound
	}
	now = s.clock()
	conv.Messages = append(conv.Messages, Message{ID: uuid.NewString(), Role: RoleAssistant, Content: answer, CreatedAt: now})
	conv.SuggestedQuestions = SuggestQuestions(cat.Chat, question)
	conv.UpdatedAt = now
	return copyConversation(conv), nil
}

func (s *ChatService) Get(conversationID string) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.convs[conversationID]
	if !ok {
		return Conversation{}, ErrNotFound
	}
	return copyConversation(conv), nil
}

// Delete drops a conversation and its history.
func (s *ChatService) Delete(conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.convs[conversationID]; !ok {
		return ErrNotFound
	}
	delete(s.convs, conversationID)
	return nil
}

// InitialQuestions are the suggestions shown before any question is asked.
func (s *ChatService) InitialQuestions() []string {
	return append([]string(nil), s.catalog.Current().Chat.SuggestedQuestions...)
}

func (s *ChatService) conversationLocked(id string, cat *catalog.Catalog, now time.Time) (*Conversation, error) {
	if id == "" {
		conv := &Conversation{
			ID:                 uuid.NewString(),
			Messages:           []Message{},
			SuggestedQuestions: append([]string(nil), cat.Chat.SuggestedQuestions...),
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		s.convs[conv.ID] = conv
		return conv, nil
	}
	conv, ok := s.convs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return conv, nil
}

func (s *ChatService) reply(ctx context.Context, cat *catalog.Catalog, history []Message, question string) string {
	if s.model != nil {
		answer, err := s.model.Chat(ctx, promptMessages(cat, history))
		if err == nil {
			return answer
		}
		s.log.Warn("guidelines: model reply failed, using rules", "err", err)
	}
	return RuleAnswer(cat.Chat, question)
}

// RuleAnswer returns the answer of the first matching rule, or the default.
func RuleAnswer(chat catalog.Chat, question string) string {
	for _, r := range chat.Rules {
		if r.Matches(question) {
			return r.Answer
		}
	}
	return chat.DefaultAnswer
}

// SuggestQuestions picks the follow-up suggestions for the last question,
// falling back to the initial list.
func SuggestQuestions(chat catalog.Chat, lastQuestion string) []string {
	for _, r := range chat.Suggestions {
		if r.Matches(lastQuestion) {
			return append([]string(nil), r.Questions...)
		}
	}
	return append([]string(nil), chat.SuggestedQuestions...)
}

func copyConversation(c *Conversation) Conversation {
	out := *c
	out.Messages = append([]Message(nil), c.Messages...)
	out.SuggestedQuestions = append([]string(nil), c.SuggestedQuestions...)
	return out
}

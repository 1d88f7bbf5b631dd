package api

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/finchat/finchat/internal/conversation"
	"github.com/finchat/finchat/internal/pipeline"
	"github.com/finchat/finchat/internal/schema"
)

type fakePipeline struct {
	result pipeline.Result
	err    error

	calls       int
	question    string
	accountType schema.AccountType
}

func (p *fakePipeline) Run(_ context.Context, question string, accountType schema.AccountType) (pipeline.Result, error) {
	p.calls++
	p.question = question
	p.accountType = accountType
	return p.result, p.err
}

type memoryConversationStore struct {
	mu            sync.Mutex
	conversations map[int64]conversation.Conversation
	messages      []conversation.Message
	nextID        int64
	nextMessageID int64
	clock         time.Time

	healthErr error
	addErr    error
	listErr   error
}

func newMemoryConversationStore() *memoryConversationStore {
	return &memoryConversationStore{
		conversations: map[int64]conversation.Conversation{},
		clock:         time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (s *memoryConversationStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memoryConversationStore) CreateConversation(_ context.Context, title string) (conversation.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	item := conversation.Conversation{ID: s.nextID, Title: conversation.NormalizeTitle(title), CreatedAt: s.tick()}
	s.conversations[item.ID] = item
	return item, nil
}

func (s *memoryConversationStore) AddMessage(_ context.Context, input conversation.NewMessage) (conversation.Message, error) {
	if err := input.Validate(); err != nil {
		return conversation.Message{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addErr != nil {
		return conversation.Message{}, s.addErr
	}
	s.nextMessageID++
	message := conversation.Message{
		ID:             s.nextMessageID,
		ConversationID: input.ConversationID,
		Sender:         input.Sender,
		Content:        input.Content,
		Chart:          input.Chart,
		CreatedAt:      s.tick(),
	}
	s.messages = append(s.messages, message)
	return message, nil
}

func (s *memoryConversationStore) ListConversations(_ context.Context) ([]conversation.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []conversation.Conversation
	for _, item := range s.conversations {
		if !item.IsDeleted {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *memoryConversationStore) ListMessages(_ context.Context, conversationID int64) ([]conversation.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []conversation.Message
	for _, message := range s.messages {
		if message.ConversationID == conversationID {
			out = append(out, message)
		}
	}
	return out, nil
}

func (s *memoryConversationStore) RenameConversation(_ context.Context, id int64, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.conversations[id]; ok {
		item.Title = conversation.NormalizeTitle(title)
		s.conversations[id] = item
	}
	return nil
}

func (s *memoryConversationStore) SoftDeleteConversation(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.conversations[id]; ok {
		item.IsDeleted = true
		s.conversations[id] = item
	}
	return nil
}

func (s *memoryConversationStore) HealthCheck(_ context.Context) error {
	return s.healthErr
}

var errStoreDown = errors.New("store down")

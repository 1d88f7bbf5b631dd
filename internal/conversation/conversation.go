// Package conversation models the persisted chat threads and their turns.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/finchat/finchat/internal/chart"
)

const DefaultConversationTitle = "Nova Conversa"

const (
	maxTitleWords = 6
	maxTitleRunes = 60
)

var (
	ErrInvalidID     = errors.New("invalid conversation id")
	ErrInvalidSender = errors.New("invalid message sender")
)

type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

func ParseSender(raw string) (Sender, error) {
	switch Sender(strings.ToLower(strings.TrimSpace(raw))) {
	case SenderUser:
		return SenderUser, nil
	case SenderAI:
		return SenderAI, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSender, raw)
	}
}

type Conversation struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	IsDeleted bool      `json:"is_deleted"`
}

type Message struct {
	ID             int64       `json:"id"`
	ConversationID int64       `json:"conversation_id"`
	Sender         Sender      `json:"sender"`
	Content        string      `json:"content"`
	Chart          *chart.Spec `json:"chart_data"`
	CreatedAt      time.Time   `json:"created_at"`
}

type NewMessage struct {
	ConversationID int64
	Sender         Sender
	Content        string
	Chart          *chart.Spec
}

func (m NewMessage) Validate() error {
	if m.ConversationID <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidID, m.ConversationID)
	}
	if _, err := ParseSender(string(m.Sender)); err != nil {
		return err
	}
	return nil
}

// Store persists conversations. Messages are append-only and survive a soft
// delete of their conversation. Rename and soft delete of a missing id are
// silent no-ops.
type Store interface {
	CreateConversation(ctx context.Context, title string) (Conversation, error)
	AddMessage(ctx context.Context, message NewMessage) (Message, error)
	ListConversations(ctx context.Context) ([]Conversation, error)
	ListMessages(ctx context.Context, conversationID int64) ([]Message, error)
	RenameConversation(ctx context.Context, id int64, title string) error
	SoftDeleteConversation(ctx context.Context, id int64) error
	HealthCheck(ctx context.Context) error
}

// NormalizeTitle trims the title and falls back to the default.
func NormalizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return DefaultConversationTitle
	}
	return title
}

// DefaultTitle derives a title from the opening question of a conversation.
func DefaultTitle(question string) string {
	words := strings.Fields(question)
	if len(words) == 0 {
		return DefaultConversationTitle
	}
	if len(words) > maxTitleWords {
		words = words[:maxTitleWords]
	}
	title := strings.Join(words, " ")
	if utf8.RuneCountInString(title) > maxTitleRunes {
		title = strings.TrimSpace(string([]rune(title)[:maxTitleRunes]))
	}
	return title
}

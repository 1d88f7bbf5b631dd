// Package sqlstore keeps conversations in PostgreSQL or SQLite through
// database/sql.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/finchat/finchat/internal/chart"
	"github.com/finchat/finchat/internal/conversation"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

func ParseDialect(raw string) (Dialect, error) {
	switch Dialect(strings.ToLower(strings.TrimSpace(raw))) {
	case DialectPostgres:
		return DialectPostgres, nil
	case DialectSQLite:
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported store dialect %q", raw)
	}
}

type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

var _ conversation.Store = (*Store)(nil)

func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect, now: time.Now}
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Dialect() Dialect {
	return s.dialect
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping conversation store: %w", err)
	}
	return nil
}

func (s *Store) CreateConversation(ctx context.Context, title string) (conversation.Conversation, error) {
	out := conversation.Conversation{
		Title:     conversation.NormalizeTitle(title),
		CreatedAt: s.timestamp(),
	}
	query := s.rebind(`
INSERT INTO conversations (title, created_at, is_deleted)
VALUES (?, ?, FALSE)
RETURNING id`)
	if err := s.db.QueryRowContext(ctx, query, out.Title, out.CreatedAt).Scan(&out.ID); err != nil {
		return conversation.Conversation{}, fmt.Errorf("insert conversation: %w", err)
	}
	return out, nil
}

func (s *Store) AddMessage(ctx context.Context, input conversation.NewMessage) (conversation.Message, error) {
	if err := input.Validate(); err != nil {
		return conversation.Message{}, err
	}
	chartData, err := encodeChart(input.Chart)
	if err != nil {
		return conversation.Message{}, err
	}

	out := conversation.Message{
		ConversationID: input.ConversationID,
		Sender:         input.Sender,
		Content:        input.Content,
		Chart:          input.Chart,
		CreatedAt:      s.timestamp(),
	}
	query := s.rebind(`
INSERT INTO messages (conversation_id, sender, content, chart_data, created_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id`)
	err = s.db.QueryRowContext(ctx, query, out.ConversationID, string(out.Sender), out.Content, chartData, out.CreatedAt).Scan(&out.ID)
	if err != nil {
		return conversation.Message{}, fmt.Errorf("insert message: %w", err)
	}
	return out, nil
}

func (s *Store) ListConversations(ctx context.Context) ([]conversation.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, title, created_at, is_deleted
FROM conversations
WHERE is_deleted = FALSE
ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]conversation.Conversation, 0)
	for rows.Next() {
		var item conversation.Conversation
		if err := rows.Scan(&item.ID, &item.Title, &item.CreatedAt, &item.IsDeleted); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	return out, nil
}

func (s *Store) ListMessages(ctx context.Context, conversationID int64) ([]conversation.Message, error) {
	if conversationID <= 0 {
		return nil, fmt.Errorf("%w: %d", conversation.ErrInvalidID, conversationID)
	}
	query := s.rebind(`
SELECT id, conversation_id, sender, content, chart_data, created_at
FROM messages
WHERE conversation_id = ?
ORDER BY created_at ASC, id ASC`)
	rows, err := s.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]conversation.Message, 0)
	for rows.Next() {
		var (
			item      conversation.Message
			sender    string
			chartData sql.NullString
		)
		if err := rows.Scan(&item.ID, &item.ConversationID, &sender, &item.Content, &chartData, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		item.Sender = conversation.Sender(sender)
		if item.Chart, err = decodeChart(chartData); err != nil {
			return nil, fmt.Errorf("decode chart for message %d: %w", item.ID, err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return out, nil
}

func (s *Store) RenameConversation(ctx context.Context, id int64, title string) error {
	if id <= 0 {
		return fmt.Errorf("%w: %d", conversation.ErrInvalidID, id)
	}
	query := s.rebind(`UPDATE conversations SET title = ? WHERE id = ?`)
	if _, err := s.db.ExecContext(ctx, query, conversation.NormalizeTitle(title), id); err != nil {
		return fmt.Errorf("rename conversation %d: %w", id, err)
	}
	return nil
}

func (s *Store) SoftDeleteConversation(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: %d", conversation.ErrInvalidID, id)
	}
	query := s.rebind(`UPDATE conversations SET is_deleted = TRUE WHERE id = ?`)
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("soft delete conversation %d: %w", id, err)
	}
	return nil
}

// timestamp is truncated to the precision both dialects store.
func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// rebind rewrites ? placeholders as $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	index := 0
	for _, r := range query {
		if r == '?' {
			index++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(index))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func encodeChart(spec *chart.Spec) (any, error) {
	if spec == nil {
		return nil, nil
	}
	raw, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}
	return string(raw), nil
}

func decodeChart(raw sql.NullString) (*chart.Spec, error) {
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return nil, nil
	}
	var spec chart.Spec
	if err := json.Unmarshal([]byte(raw.String), &spec); err != nil {
		return nil, err
	}
	return &spec, nil
}

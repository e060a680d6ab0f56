package database

import (
	"context"
	"fmt"
	"time"

	"github.com/mbertholdt/docrag/helper"
	"github.com/mbertholdt/docrag/model"
	loadSql "github.com/mbertholdt/docrag/sql"
)

// SessionsDBHandlerFunctions defines the interface for chat session database operations.
type SessionsDBHandlerFunctions interface {
	InsertSession(ctx context.Context, session *model.ChatSession) error
	SelectSession(ctx context.Context, id int64) (*model.ChatSession, error)
	SelectAllSessions(ctx context.Context) ([]*model.ChatSession, error)
	UpdateSessionName(ctx context.Context, id int64, name string) (*model.ChatSession, error)
	DeleteSession(ctx context.Context, id int64) (bool, error)
	InsertMessage(ctx context.Context, message *model.ChatMessage) error
	SelectMessagesBySession(ctx context.Context, sessionID int64) ([]*model.ChatMessage, error)
}

// SessionsDBHandler handles chat session and message database operations.
type SessionsDBHandler struct {
	db *helper.Database
}

// NewSessionsDBHandler creates a new sessions database handler.
// It loads the session-related SQL functions and creates the tables.
// If force is true, it will reload the SQL functions even if they already exist.
func NewSessionsDBHandler(db *helper.Database, force bool) (*SessionsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	sessionsDbHandler := &SessionsDBHandler{
		db: db,
	}

	err := loadSql.LoadSessionsSql(sessionsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewStoreError("load sessions sql", err)
	}

	err = sessionsDbHandler.CreateTables()
	if err != nil {
		return nil, helper.NewStoreError("create tables", err)
	}

	db.Logger.Info("Initialized SessionsDBHandler")

	return sessionsDbHandler, nil
}

// CreateTables creates the 'chat_sessions' and 'chat_messages' tables.
// If the tables already exist, it does not create them again.
func (h *SessionsDBHandler) CreateTables() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_sessions();`)
	if err != nil {
		return helper.NewStoreError("initialize sessions tables", err)
	}

	h.db.Logger.Info("Checked/created tables chat_sessions and chat_messages")

	return nil
}

// InsertSession creates a new chat session.
func (h *SessionsDBHandler) InsertSession(ctx context.Context, session *model.ChatSession) error {
	row := h.db.Instance.QueryRowContext(ctx,
		`SELECT * FROM insert_session($1)`,
		session.Name,
	)

	err := row.Scan(
		&session.ID,
		&session.RID,
		&session.Name,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return helper.NewStoreError("scan", err)
	}

	return nil
}

// SelectSession retrieves a session by ID
func (h *SessionsDBHandler) SelectSession(ctx context.Context, id int64) (*model.ChatSession, error) {
	session := &model.ChatSession{}
	row := h.db.Instance.QueryRowContext(ctx,
		`SELECT * FROM select_session($1)`,
		id,
	)

	err := row.Scan(
		&session.ID,
		&session.RID,
		&session.Name,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, helper.NewStoreError("scan", err)
	}

	return session, nil
}

// SelectAllSessions lists all sessions, most recently updated first, with
// their message counts.
func (h *SessionsDBHandler) SelectAllSessions(ctx context.Context) ([]*model.ChatSession, error) {
	rows, err := h.db.Instance.QueryContext(ctx, `SELECT * FROM select_all_sessions()`)
	if err != nil {
		return nil, helper.NewStoreError("query", err)
	}
	defer rows.Close()

	var sessions []*model.ChatSession
	for rows.Next() {
		session := &model.ChatSession{}
		var messageCount int64
		err := rows.Scan(
			&session.ID,
			&session.RID,
			&session.Name,
			&session.CreatedAt,
			&session.UpdatedAt,
			&messageCount,
		)
		if err != nil {
			return nil, helper.NewStoreError("scan", err)
		}
		session.MessageCount = int(messageCount)
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, helper.NewStoreError("rows error", err)
	}

	return sessions, nil
}

// UpdateSessionName renames a session and refreshes its updated_at.
func (h *SessionsDBHandler) UpdateSessionName(ctx context.Context, id int64, name string) (*model.ChatSession, error) {
	session := &model.ChatSession{}
	row := h.db.Instance.QueryRowContext(ctx,
		`SELECT * FROM update_session_name($1, $2)`,
		id,
		name,
	)

	err := row.Scan(
		&session.ID,
		&session.RID,
		&session.Name,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, helper.NewStoreError("scan", err)
	}

	return session, nil
}

// DeleteSession removes a session and, through the cascade, all of its
// messages. Returns false when no session with the given id existed.
func (h *SessionsDBHandler) DeleteSession(ctx context.Context, id int64) (bool, error) {
	var count int64
	err := h.db.Instance.QueryRowContext(ctx,
		`SELECT delete_session($1)`,
		id,
	).Scan(&count)
	if err != nil {
		return false, helper.NewStoreError("exec", err)
	}
	return count > 0, nil
}

// InsertMessage appends a message to a session and bumps the session's
// updated_at in the same transaction. The role must be user or assistant.
func (h *SessionsDBHandler) InsertMessage(ctx context.Context, message *model.ChatMessage) error {
	if !message.Role.Valid() {
		return helper.NewValidationError("message role validation", fmt.Errorf("invalid role %q, must be %q or %q", message.Role, model.RoleUser, model.RoleAssistant))
	}

	row := h.db.Instance.QueryRowContext(ctx,
		`SELECT * FROM insert_message($1, $2, $3, $4)`,
		message.SessionID,
		string(message.Role),
		message.Content,
		message.Metadata,
	)

	err := row.Scan(
		&message.ID,
		&message.SessionID,
		&message.Role,
		&message.Content,
		&message.Metadata,
		&message.CreatedAt,
	)
	if err != nil {
		return helper.NewStoreError("scan", err)
	}

	return nil
}

// SelectMessagesBySession lists a session's messages oldest first.
func (h *SessionsDBHandler) SelectMessagesBySession(ctx context.Context, sessionID int64) ([]*model.ChatMessage, error) {
	rows, err := h.db.Instance.QueryContext(ctx,
		`SELECT * FROM select_messages_by_session($1)`,
		sessionID,
	)
	if err != nil {
		return nil, helper.NewStoreError("query", err)
	}
	defer rows.Close()

	var messages []*model.ChatMessage
	for rows.Next() {
		message := &model.ChatMessage{}
		err := rows.Scan(
			&message.ID,
			&message.SessionID,
			&message.Role,
			&message.Content,
			&message.Metadata,
			&message.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewStoreError("scan", err)
		}
		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, helper.NewStoreError("rows error", err)
	}

	return messages, nil
}

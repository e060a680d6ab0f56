package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbertholdt/docrag/helper"
	"github.com/mbertholdt/docrag/model"
)

func TestInsertSession(t *testing.T) {
	handler := initSessionsHandler(t)
	ctx := context.Background()

	session := &model.ChatSession{Name: "research notes"}
	err := handler.InsertSession(ctx, session)
	require.NoError(t, err)

	assert.NotZero(t, session.ID)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", session.RID.String())
	assert.Equal(t, "research notes", session.Name)
	assert.False(t, session.CreatedAt.IsZero())

	got, err := handler.SelectSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.RID, got.RID)
	assert.Equal(t, session.Name, got.Name)
}

func TestSelectAllSessions(t *testing.T) {
	handler := initSessionsHandler(t)
	ctx := context.Background()

	first := &model.ChatSession{Name: "older"}
	require.NoError(t, handler.InsertSession(ctx, first))
	second := &model.ChatSession{Name: "newer"}
	require.NoError(t, handler.InsertSession(ctx, second))

	// Adding a message to the first session makes it the most recently
	// active one.
	message := &model.ChatMessage{SessionID: first.ID, Role: model.RoleUser, Content: "hello"}
	require.NoError(t, handler.InsertMessage(ctx, message))

	sessions, err := handler.SelectAllSessions(ctx)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(sessions), 2)

	assert.Equal(t, first.ID, sessions[0].ID, "most recently active session comes first")
	assert.Equal(t, 1, sessions[0].MessageCount)
}

func TestUpdateSessionName(t *testing.T) {
	handler := initSessionsHandler(t)
	ctx := context.Background()

	session := &model.ChatSession{Name: "draft"}
	require.NoError(t, handler.InsertSession(ctx, session))

	updated, err := handler.UpdateSessionName(ctx, session.ID, "final")
	require.NoError(t, err)
	assert.Equal(t, "final", updated.Name)
	assert.Equal(t, session.ID, updated.ID)
	assert.True(t, updated.UpdatedAt.After(session.UpdatedAt) || updated.UpdatedAt.Equal(session.UpdatedAt))
}

func TestDeleteSession(t *testing.T) {
	handler := initSessionsHandler(t)
	ctx := context.Background()

	t.Run("cascades to messages", func(t *testing.T) {
		session := &model.ChatSession{Name: "doomed"}
		require.NoError(t, handler.InsertSession(ctx, session))
		message := &model.ChatMessage{SessionID: session.ID, Role: model.RoleUser, Content: "soon gone"}
		require.NoError(t, handler.InsertMessage(ctx, message))

		deleted, err := handler.DeleteSession(ctx, session.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		messages, err := handler.SelectMessagesBySession(ctx, session.ID)
		require.NoError(t, err)
		assert.Empty(t, messages)
	})

	t.Run("missing session returns false", func(t *testing.T) {
		deleted, err := handler.DeleteSession(ctx, 999999)
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}

func TestInsertMessage(t *testing.T) {
	handler := initSessionsHandler(t)
	ctx := context.Background()

	session := &model.ChatSession{Name: "chat"}
	require.NoError(t, handler.InsertSession(ctx, session))

	t.Run("appends message and bumps session activity", func(t *testing.T) {
		message := &model.ChatMessage{
			SessionID: session.ID,
			Role:      model.RoleAssistant,
			Content:   "the answer",
			Metadata:  model.Metadata{"confidence": 0.8},
		}
		err := handler.InsertMessage(ctx, message)
		require.NoError(t, err)
		assert.NotZero(t, message.ID)
		assert.False(t, message.CreatedAt.IsZero())

		bumped, err := handler.SelectSession(ctx, session.ID)
		require.NoError(t, err)
		assert.False(t, bumped.UpdatedAt.Before(session.UpdatedAt))
		assert.NotEqual(t, session.UpdatedAt, bumped.UpdatedAt)
	})

	t.Run("rejects invalid role before touching the store", func(t *testing.T) {
		message := &model.ChatMessage{SessionID: session.ID, Role: "system", Content: "nope"}
		err := handler.InsertMessage(ctx, message)
		require.Error(t, err)
		assert.True(t, errors.Is(err, helper.ErrValidation))
	})

	t.Run("rejects missing session", func(t *testing.T) {
		message := &model.ChatMessage{SessionID: 999999, Role: model.RoleUser, Content: "orphan"}
		err := handler.InsertMessage(ctx, message)
		require.Error(t, err)
		assert.True(t, errors.Is(err, helper.ErrStore))
	})
}

func TestSelectMessagesBySession(t *testing.T) {
	handler := initSessionsHandler(t)
	ctx := context.Background()

	session := &model.ChatSession{Name: "ordered chat"}
	require.NoError(t, handler.InsertSession(ctx, session))

	contents := []string{"first", "second", "third"}
	for _, content := range contents {
		message := &model.ChatMessage{SessionID: session.ID, Role: model.RoleUser, Content: content}
		require.NoError(t, handler.InsertMessage(ctx, message))
	}

	messages, err := handler.SelectMessagesBySession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, messages, len(contents))
	for i, content := range contents {
		assert.Equal(t, content, messages[i].Content)
		assert.Equal(t, model.RoleUser, messages[i].Role)
	}
}

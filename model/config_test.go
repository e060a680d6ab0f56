package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultQueryConfig(t *testing.T) {
	t.Run("Returns correct default values", func(t *testing.T) {
		config := DefaultQueryConfig()

		assert.Equal(t, 5, config.TopK, "Default TopK should be 5")
		assert.Equal(t, 0.7, config.SimilarityThreshold, "Default SimilarityThreshold should be 0.7")
	})

	t.Run("Can be modified after creation", func(t *testing.T) {
		config := DefaultQueryConfig()

		config.TopK = 10
		config.SimilarityThreshold = 0.5

		assert.Equal(t, 10, config.TopK)
		assert.Equal(t, 0.5, config.SimilarityThreshold)
	})
}

func TestMessageRoleValid(t *testing.T) {
	t.Run("Known roles are valid", func(t *testing.T) {
		assert.True(t, RoleUser.Valid())
		assert.True(t, RoleAssistant.Valid())
	})

	t.Run("Unknown role is invalid", func(t *testing.T) {
		assert.False(t, MessageRole("system").Valid())
		assert.False(t, MessageRole("").Valid())
	})
}

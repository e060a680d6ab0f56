package helper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareModel(t *testing.T) {
	t.Run("returns existing model path without downloading", func(t *testing.T) {
		modelPath := filepath.Join(modelDir, "test_cached-model")
		require.NoError(t, os.MkdirAll(modelPath, 0750))
		defer os.RemoveAll(modelPath)

		path, err := PrepareModel("test/cached-model", "")
		require.NoError(t, err)
		assert.Equal(t, modelPath, path)
	})

	t.Run("flattens model names with slashes", func(t *testing.T) {
		modelPath := filepath.Join(modelDir, "organization_model-name")
		require.NoError(t, os.MkdirAll(modelPath, 0750))
		defer os.RemoveAll(modelPath)

		path, err := PrepareModel("organization/model-name", "onnx/model.onnx")
		require.NoError(t, err)
		assert.Equal(t, modelPath, path)
	})

	t.Run("uses plain names directly", func(t *testing.T) {
		modelPath := filepath.Join(modelDir, "simple-model")
		require.NoError(t, os.MkdirAll(modelPath, 0750))
		defer os.RemoveAll(modelPath)

		path, err := PrepareModel("simple-model", "")
		require.NoError(t, err)
		assert.Equal(t, modelPath, path)
	})

	t.Run("downloads missing models", func(t *testing.T) {
		if testing.Short() {
			t.Skip("skipping model download in short mode")
		}

		modelName := "sentence-transformers/all-MiniLM-L6-v2"
		modelPath := filepath.Join(modelDir, "sentence-transformers_all-MiniLM-L6-v2")
		os.RemoveAll(modelPath)

		path, err := PrepareModel(modelName, "onnx/model.onnx")
		// Download depends on network access; a failure must at least be
		// reported as one.
		if err != nil {
			assert.Contains(t, err.Error(), "failed to")
		} else {
			assert.NotEmpty(t, path)
			assert.DirExists(t, path)
		}
	})
}

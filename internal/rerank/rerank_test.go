package rerank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Disabled(t *testing.T) {
	t.Parallel()

	r, err := New(Config{})
	require.NoError(t, err)
	assert.False(t, r.IsAvailable())

	_, err = r.Score(context.Background(), "q", []string{"a"})
	assert.Error(t, err)
}

func TestNew_UnsupportedProvider(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Provider: "bogus"})
	assert.Error(t, err)
}

func TestMockReranker_ScoresByOverlap(t *testing.T) {
	t.Parallel()

	r := NewMockReranker()
	require.True(t, r.IsAvailable())

	scores, err := r.Score(context.Background(), "parse config file", []string{
		"function to parse a config file",
		"completely unrelated text about cats",
	})
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Greater(t, scores[0], scores[1])
}

func TestMockReranker_SetScoreError(t *testing.T) {
	t.Parallel()

	r := NewMockReranker()
	r.SetScoreError(assert.AnError)

	_, err := r.Score(context.Background(), "q", []string{"d"})
	assert.ErrorIs(t, err, assert.AnError)
}

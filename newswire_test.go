package newswire

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/newswire/ai/mock"
	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/dispatch"
)

func TestNewMonitor(t *testing.T) {
	t.Run("create new monitor", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "test_db")
		m, err := NewMonitor(tmpDir, WithEmbedder(mock.NewMockEmbedder()))
		require.NoError(t, err)
		require.NotNil(t, m)
		defer m.Close()

		// Verify components are initialized
		assert.NotNil(t, m.SourceRepository())
		assert.NotNil(t, m.MessageRepository())
		assert.NotNil(t, m.MatchRepository())
		assert.NotNil(t, m.ForwardTaskRepository())
		assert.NotNil(t, m.backend)
		assert.NotNil(t, m.dispatcher)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		err := os.WriteFile(tmpFile, []byte("test"), 0644)
		require.NoError(t, err)

		m, err := NewMonitor(tmpFile, WithEmbedder(mock.NewMockEmbedder()))
		assert.Error(t, err)
		assert.Nil(t, m)
	})
}

func TestMonitor_EndToEnd(t *testing.T) {
	rules := []core.FilterRule{
		core.NewFilterRule("politics", core.FilterModeCombined,
			[]string{"elections"}, []string{"elections"}, 0.7),
	}

	vectors := map[string][]float32{
		"breaking news about elections": {1, 0, 0},
		"elections":                     {0.82, 0.5723635, 0},
	}
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return vectors[text], nil
	}
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = vectors[text]
		}
		return out, nil
	}

	m, err := NewMonitor("",
		WithInMemory(),
		WithEmbedder(embedder),
		WithRules(rules),
		WithRefreshInterval(time.Minute),
	)
	require.NoError(t, err)
	defer m.Close()

	ctx := context.Background()
	_, _, err = m.SourceRepository().GetOrCreate(ctx, 42, core.SourceHint{Title: "World News"})
	require.NoError(t, err)
	require.NoError(t, m.RefreshSources(ctx))

	result, err := m.Process(ctx, &dispatch.RawEvent{
		MessageID: 7,
		ChatID:    42,
		Date:      time.Now().UTC(),
		Text:      "breaking news about elections",
		Chat:      &dispatch.RawChat{Type: "channel", Title: "World News"},
	})
	require.NoError(t, err)

	require.False(t, result.Dropped)
	require.NotNil(t, result.Message)
	require.Len(t, result.Matches, 1)
	require.Len(t, result.Tasks, 1)

	// Keyword hit plus a topic over threshold: a combined match.
	assert.Equal(t, core.MatchTypeCombined, result.Matches[0].Type)
	assert.InDelta(t, 0.82, result.Tasks[0].Score, 1e-6)

	pending, err := m.ForwardTaskRepository().ListPending(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	// An event from an unmonitored chat leaves no trace.
	result, err = m.Process(ctx, &dispatch.RawEvent{MessageID: 8, ChatID: 99, Text: "elections"})
	require.NoError(t, err)
	assert.True(t, result.Dropped)

	recent, err := m.MessageRepository().GetRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestMonitor_StartStop(t *testing.T) {
	m, err := NewMonitor("",
		WithInMemory(),
		WithEmbedder(mock.NewMockEmbedder()),
		WithRefreshInterval(10*time.Millisecond),
	)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, m.Start(ctx))

	_, _, err = m.SourceRepository().GetOrCreate(ctx, 42, core.SourceHint{})
	require.NoError(t, err)

	// HandleEvent is fire-and-forget; Close waits for it.
	m.HandleEvent(ctx, &dispatch.RawEvent{MessageID: 7, ChatID: 42, Text: "hello"})
	require.NoError(t, m.Close())
}

func TestMonitor_ReloadRules(t *testing.T) {
	m, err := NewMonitor("", WithInMemory(), WithEmbedder(mock.NewMockEmbedder()))
	require.NoError(t, err)
	defer m.Close()

	rulesPath := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(rulesPath, []byte(`rules:
  - name: politics
    mode: keyword_only
    keywords: [elections]
`), 0644))

	require.NoError(t, m.ReloadRules(rulesPath))
	assert.Len(t, m.dispatcher.Rules(), 1)

	assert.Error(t, m.ReloadRules(filepath.Join(t.TempDir(), "missing.yaml")))
}

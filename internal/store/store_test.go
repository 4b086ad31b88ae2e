package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	v1 "github.com/danilofalcao/chat-relay/internal/api/chat/v1"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "models.json"))
}

func sampleConfigs() []v1.ModelConfig {
	return []v1.ModelConfig{
		{Model: "gpt-4o", BaseURL: "https://api.openai.com/v1", APIKey: "sk-1", LastUpdated: "2025-01-02T03:04:05Z"},
		{Model: "llama3", BaseURL: "http://localhost:11434/v1", APIKey: "", LastUpdated: "2025-01-03T00:00:00Z"},
		{Model: "gpt-4o", BaseURL: "https://api.openai.com/v1", APIKey: "sk-1", LastUpdated: "2025-01-02T03:04:05Z"},
	}
}

func TestListOnFreshStoreIsEmpty(t *testing.T) {
	s := newTestStore(t)

	configs := s.List(context.Background())
	require.NotNil(t, configs)
	assert.Empty(t, configs)

	_, err := s.Load()
	assert.True(t, errors.Is(err, ErrNoDocument))
}

func TestReplaceThenListRoundTrips(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Replace(ctx, sampleConfigs()))
	assert.Equal(t, sampleConfigs(), s.List(ctx))
}

func TestReplaceOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Replace(ctx, sampleConfigs()))
	next := []v1.ModelConfig{{Model: "only", BaseURL: "b", APIKey: "k", LastUpdated: "t"}}
	require.NoError(t, s.Replace(ctx, next))
	assert.Equal(t, next, s.List(ctx))

	require.NoError(t, s.Replace(ctx, nil))
	configs := s.List(ctx)
	require.NotNil(t, configs)
	assert.Empty(t, configs)

	b, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(b))
}

func TestReplaceWritesIndentedDocument(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Replace(context.Background(), sampleConfigs()[:1]))

	b, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Contains(t, string(b), "\n        \"model\": \"gpt-4o\"")

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should not be left behind")
}

func TestCorruptDocumentDegradesToEmpty(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o644))

	_, err := s.Load()
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoDocument))

	configs := s.List(context.Background())
	require.NotNil(t, configs)
	assert.Empty(t, configs)
}

func TestWrongShapeDegradesToEmpty(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte(`{"model":"x"}`), 0o644))
	assert.Empty(t, s.List(context.Background()))
}

func TestReplaceCreatesParentDirectory(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "nested", "dir", "models.json"))
	ctx := context.Background()

	require.NoError(t, s.Replace(ctx, sampleConfigs()))
	assert.Len(t, s.List(ctx), 3)
}

func TestConcurrentReplaceLeavesOneWholeList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	lists := [][]v1.ModelConfig{
		sampleConfigs(),
		{{Model: "a"}},
		{{Model: "b"}, {Model: "c"}},
	}

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(l []v1.ModelConfig) {
			defer wg.Done()
			assert.NoError(t, s.Replace(ctx, l))
		}(lists[i%len(lists)])
	}
	wg.Wait()

	got, err := s.Load()
	require.NoError(t, err)
	assert.Contains(t, lists, got)
}

func TestEmptyOnError(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, []v1.ModelConfig{}, EmptyOnError(ctx, nil, nil))
	assert.Equal(t, []v1.ModelConfig{}, EmptyOnError(ctx, sampleConfigs(), errors.New("boom")))
	assert.Equal(t, sampleConfigs(), EmptyOnError(ctx, sampleConfigs(), nil))
}

package neurogalaxy

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/localrivet/neurogalaxy/internal/errortypes"
	"github.com/localrivet/neurogalaxy/internal/namer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg := DefaultConfig()
	cfg.Store.SQLitePath = filepath.Join(t.TempDir(), "notes.db")
	cfg.Projector.NEpochs = 50
	return cfg
}

func TestServerNoteLifecycle(t *testing.T) {
	srv, err := NewServer(ServerOptions{Config: testConfig(t)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Stop() })

	ctx := context.Background()

	empty, err := srv.Nodes(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty.Nodes)
	assert.Empty(t, empty.ClusterNames)

	first, err := srv.AddNotes(ctx, []string{"buy milk", "buy eggs"})
	require.NoError(t, err)
	assert.Equal(t, "Added 2 note(s)", first.Message)
	assert.Equal(t, 2, first.TotalCount)
	require.Len(t, first.Galaxy.Nodes, 2)

	second, err := srv.AddNotes(ctx, []string{"train the model", "tune the optimizer", "walk the dog"})
	require.NoError(t, err)
	assert.Equal(t, 5, second.TotalCount)
	require.Len(t, second.Galaxy.Nodes, 5)
	assert.Equal(t, "buy milk", second.Galaxy.Nodes[0].Label)
	assert.Equal(t, "walk the dog", second.Galaxy.Nodes[4].Label)

	for i, node := range second.Galaxy.Nodes {
		assert.Equal(t, i, node.ID)
		assert.Equal(t, namer.Placeholder(node.Category), node.ClusterLabel)
		assert.Equal(t, second.Galaxy.ClusterNames[node.Category], node.ClusterLabel)
	}

	nodes, err := srv.Nodes(ctx)
	require.NoError(t, err)
	assert.Len(t, nodes.Nodes, 5)

	deleted, err := srv.ClearNotes()
	require.NoError(t, err)
	assert.Equal(t, 5, deleted)

	count, err := srv.GetStore().Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestServerProcessDoesNotStore(t *testing.T) {
	srv, err := NewServer(ServerOptions{Config: testConfig(t)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Stop() })

	galaxy, err := srv.Process(context.Background(), []string{"alpha note", "beta note", "gamma note"})
	require.NoError(t, err)
	assert.Len(t, galaxy.Nodes, 3)

	count, err := srv.GetStore().Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestServerHealthWithoutProvider(t *testing.T) {
	srv, err := NewServer(ServerOptions{Config: testConfig(t)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Stop() })

	_, err = srv.Process(context.Background(), []string{"one", "two"})
	require.NoError(t, err)

	report, err := srv.Health()
	require.NoError(t, err)
	assert.Equal(t, namer.StatusDegraded, report.Status)
	assert.False(t, report.Available)
	assert.Equal(t, int64(1), report.Runs)

	data, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"stage_times_ms"`)
}

func TestCreateComponentsEmbedderSelection(t *testing.T) {
	t.Run("unknown provider", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Embedder.Provider = "word2vec"

		_, err := CreateComponents(cfg, nil)
		require.Error(t, err)
		assert.True(t, errortypes.IsType(err, errortypes.ErrorTypeConfig))
	})

	t.Run("openai without key", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Embedder.Provider = EmbedderOpenAI
		cfg.Embedder.ApiKey = ""

		_, err := CreateComponents(cfg, nil)
		require.Error(t, err)
		assert.True(t, errortypes.IsEmbeddingError(err))
	})

	t.Run("nil config", func(t *testing.T) {
		_, err := CreateComponents(nil, nil)
		assert.Error(t, err)
	})
}

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/scaledex/internal/domain"
	domscale "github.com/kailas-cloud/scaledex/internal/domain/scale"
)

const testConfig = `
http:
  port: 8080
database:
  driver: badger
  badger:
    in_memory: true
logging:
  level: warn
`

const testCatalog = `[
  {"id": "phq-9", "name_en": "Patient Health Questionnaire-9", "acronym": "PHQ-9",
   "description_en": "Self-report measure of depression severity", "category": "depression",
   "validation_status": "published", "usage_count": 100},
  {"id": "gad-7", "name_en": "Generalized Anxiety Disorder-7", "acronym": "GAD-7",
   "description_en": "Brief self-report scale for generalized anxiety", "category": "anxiety",
   "validation_status": "published", "usage_count": 90},
  {"id": "pilot", "name_en": "Internal depression pilot", "category": "depression", "public": false}
]`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out).Run(append([]string{"scalectl"}, args...))
	return out.String(), err
}

func TestSearchCommand(t *testing.T) {
	cfg := writeFile(t, "config.yaml", testConfig)
	catalog := writeFile(t, "catalog.json", testCatalog)

	out, err := run(t, "--config", cfg, "search", "--catalog", catalog, "--mode", "keyword", "depression")
	require.NoError(t, err)

	assert.Contains(t, out, "mode=keyword")
	assert.Contains(t, out, "phq-9")
	assert.NotContains(t, out, "gad-7")
	assert.NotContains(t, out, "pilot", "private scales are excluded by default")
}

func TestSearchCommand_IncludePrivate(t *testing.T) {
	cfg := writeFile(t, "config.yaml", testConfig)
	catalog := writeFile(t, "catalog.json", testCatalog)

	out, err := run(t, "--config", cfg, "search", "--catalog", catalog,
		"--mode", "keyword", "--include-private", "depression")
	require.NoError(t, err)
	assert.Contains(t, out, "pilot")
}

func TestSearchCommand_CatalogRequired(t *testing.T) {
	_, err := run(t, "search", "depression")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog")
}

func TestSearchCommand_InvalidMode(t *testing.T) {
	cfg := writeFile(t, "config.yaml", testConfig)
	catalog := writeFile(t, "catalog.json", testCatalog)

	_, err := run(t, "--config", cfg, "search", "--catalog", catalog, "--mode", "fuzzy", "depression")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)
}

func TestExpandCommand(t *testing.T) {
	cfg := writeFile(t, "config.yaml", testConfig)

	out, err := run(t, "--config", cfg, "expand", "Depression")
	require.NoError(t, err)
	assert.Contains(t, out, "normalized: depression")
	assert.Contains(t, out, "expansion:")
}

func TestExpandCommand_RequiresQuery(t *testing.T) {
	_, err := run(t, "expand")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query")
}

func TestImportCommand(t *testing.T) {
	cfg := writeFile(t, "config.yaml", testConfig)
	catalog := writeFile(t, "catalog.json", testCatalog)

	out, err := run(t, "--config", cfg, "import", catalog)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 3 scales")
}

func TestImportCommand_DryRun(t *testing.T) {
	cfg := writeFile(t, "config.yaml", testConfig)
	catalog := writeFile(t, "catalog.json", testCatalog)

	out, err := run(t, "--config", cfg, "import", "--dry-run", catalog)
	require.NoError(t, err)
	assert.Contains(t, out, "catalog valid: 3 scales")
	assert.NotContains(t, out, "imported")
}

func TestImportCommand_InvalidCatalog(t *testing.T) {
	cfg := writeFile(t, "config.yaml", testConfig)
	catalog := writeFile(t, "catalog.json", `[{"id": "bad id!", "name_en": "x"}]`)

	_, err := run(t, "--config", cfg, "import", catalog)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidScale)
}

func TestImportCommand_EmbedRequiresAPIKey(t *testing.T) {
	cfg := writeFile(t, "config.yaml", testConfig)
	catalog := writeFile(t, "catalog.json", testCatalog)

	_, err := run(t, "--config", cfg, "import", "--embed", catalog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
}

// --- Mocks ---

type fakeBatchEmbedder struct {
	texts []string
	err   error
}

func (f *fakeBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	f.texts = texts
	if f.err != nil {
		return domain.BatchEmbeddingResult{}, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i + 1)}
	}
	return domain.BatchEmbeddingResult{Embeddings: out}, nil
}

// --- Tests ---

func mustScale(t *testing.T, f domscale.Fields) domscale.Scale {
	t.Helper()
	s, err := domscale.New(f)
	require.NoError(t, err)
	return s
}

func TestBackfillEmbeddings(t *testing.T) {
	scales := []domscale.Scale{
		mustScale(t, domscale.Fields{ID: "a", NameEn: "Alpha"}),
		mustScale(t, domscale.Fields{ID: "b", NameEn: "Beta", Embedding: []float32{0.9}}),
		mustScale(t, domscale.Fields{ID: "c", NameEn: "Gamma"}),
	}
	emb := &fakeBatchEmbedder{}

	n, err := backfillEmbeddings(context.Background(), emb, scales)
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"Alpha", "Gamma"}, emb.texts)
	assert.Equal(t, []float32{1}, scales[0].Embedding())
	assert.Equal(t, []float32{0.9}, scales[1].Embedding(), "existing embeddings are kept")
	assert.Equal(t, []float32{2}, scales[2].Embedding())
}

func TestBackfillEmbeddings_NothingMissing(t *testing.T) {
	scales := []domscale.Scale{mustScale(t, domscale.Fields{ID: "a", NameEn: "Alpha", Embedding: []float32{1}})}
	emb := &fakeBatchEmbedder{err: errors.New("must not be called")}

	n, err := backfillEmbeddings(context.Background(), emb, scales)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Nil(t, emb.texts)
}

func TestBackfillEmbeddings_Error(t *testing.T) {
	scales := []domscale.Scale{mustScale(t, domscale.Fields{ID: "a", NameEn: "Alpha"})}
	emb := &fakeBatchEmbedder{err: domain.ErrEmbeddingProviderError}

	_, err := backfillEmbeddings(context.Background(), emb, scales)
	assert.ErrorIs(t, err, domain.ErrEmbeddingProviderError)
}

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrition-planner/internal/config"
	"nutrition-planner/internal/database"
	"nutrition-planner/internal/recipe"
	"nutrition-planner/internal/storage"
)

func TestImportRecordsAndExport(t *testing.T) {
	ctx := context.Background()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "import.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := recipe.NewRepository(db.SQL)

	records, err := storage.NewRecordStore(t.TempDir())
	require.NoError(t, err)

	steps, _ := json.Marshal([]string{"Сварить"})
	for i, rec := range []recipe.Record{
		{Name: "Борщ", Category: "Супы", Ingredients: []string{"Свекла 1 шт"}, Instructions: steps,
			Nutrition: map[string]any{"calories": 55.0, "proteins": 3.0, "fats": 2.0, "carbs": 6.0}},
		{Name: "Гречка", Category: "Гарниры", Ingredients: []string{"Гречка 100 г"}, Instructions: steps,
			Nutrition: map[string]any{"calories": 130.0, "protein": 4.0, "fat": 1.0, "carbs": 25.0}},
		{Name: "  ", Ingredients: []string{"Вода"}},
	} {
		require.NoError(t, records.Save(string(rune('a'+i)), "v1", rec))
	}
	require.NoError(t, repo.Save(ctx, recipe.Recipe{Name: "Гречка", Category: "Гарниры"}))

	res, err := ImportRecords(ctx, records, repo, nil)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Found: 3, Imported: 1, Skipped: 2}, res)

	borscht, err := repo.Get(ctx, "Борщ")
	require.NoError(t, err)
	require.NotNil(t, borscht)
	assert.Equal(t, 3.0, borscht.Nutrition.Protein)

	again, err := ImportRecords(ctx, records, repo, nil)
	require.NoError(t, err)
	assert.Zero(t, again.Imported)

	var buf bytes.Buffer
	require.NoError(t, ExportCorpus(ctx, repo, &buf))
	corpus, err := recipe.Load(ctx, recipe.Bytes(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 2, corpus.Len())
	_, ok := corpus.Get("Борщ")
	assert.True(t, ok)
}

func TestLoadCorpus_FallsBackToCache(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	db, err := database.NewDB(filepath.Join(dir, "corpus.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	cache := recipe.NewRepository(db.SQL)

	path := filepath.Join(dir, "recipes.json")
	data := `[{"name":"Борщ","category":"Супы","ingredients":["Свекла 1 шт"],"nutrition":{"calories":55,"proteins":3,"fats":2,"carbs":6}}]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg := &config.Config{CorpusPath: path}
	assert.Equal(t, recipe.FileSource{Path: path}, CorpusSource(cfg, cache))

	corpus, err := LoadCorpus(ctx, cfg, cache, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, corpus.Len())
	n, err := cache.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, os.Remove(path))
	assert.Same(t, cache, CorpusSource(cfg, cache))
	again, err := LoadCorpus(ctx, cfg, cache, nil)
	require.NoError(t, err)
	r, ok := again.Get("Борщ")
	require.True(t, ok)
	assert.Equal(t, 3.0, r.Nutrition.Protein)

	_, err = db.SQL.ExecContext(ctx, `DELETE FROM recipes`)
	require.NoError(t, err)
	_, err = LoadCorpus(ctx, cfg, cache, nil)
	var lerr *recipe.DataLoadError
	assert.ErrorAs(t, err, &lerr)
}

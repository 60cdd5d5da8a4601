package recipe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureCorpus = `[
  {"name": "Овсяная каша с ягодами", "category": "Завтраки", "ingredients": ["Овсяные хлопья 50 г", "Молоко 200 мл"],
   "instructions": ["Сварить", "Добавить ягоды", "Подать"], "nutrition": {"calories": 110, "proteins": 4, "fats": 3, "carbs": 18},
   "description": "Простая и сытная каша"},
  {"name": "Борщ", "category": "Супы", "ingredients": ["Говядина 300 г", "Свекла 2 шт"],
   "instructions": "Сварить бульон\nДобавить овощи", "nutrition": {"Calories": "60 ккал", "Protein": "3,5", "Fat": 2, "Carbs": 6}},
  {"name": "", "category": "broken"},
  {"name": "Борщ", "category": "Дубликат", "nutrition": {}}
]`

func TestDecode(t *testing.T) {
	recipes, err := Decode(strings.NewReader(fixtureCorpus))
	require.NoError(t, err)
	require.Len(t, recipes, 2)

	t.Run("NutrientVariants", func(t *testing.T) {
		assert.Equal(t, Nutrition{Calories: 110, Protein: 4, Fat: 3, Carbs: 18}, recipes[0].Nutrition)
		assert.Equal(t, Nutrition{Calories: 60, Protein: 3.5, Fat: 2, Carbs: 6}, recipes[1].Nutrition)
	})

	t.Run("InstructionForms", func(t *testing.T) {
		assert.Equal(t, []string{"Сварить", "Добавить ягоды", "Подать"}, recipes[0].Instructions)
		assert.Equal(t, []string{"Сварить бульон", "Добавить овощи"}, recipes[1].Instructions)
	})

	t.Run("DuplicateKeepsFirst", func(t *testing.T) {
		assert.Equal(t, "Супы", recipes[1].Category)
	})
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"name": "not an array"`))
	assert.Error(t, err)
}

func TestNormalize_MissingNutritionDefaultsToZero(t *testing.T) {
	r := Record{Name: "Вода"}.Normalize()
	assert.Equal(t, Nutrition{}, r.Nutrition)
}

func TestNutritionScale(t *testing.T) {
	n := Nutrition{Calories: 133, Protein: 12.34, Fat: 5.55, Carbs: 7}
	got := n.Scale(150)
	assert.Equal(t, 200.0, got.Calories)
	assert.Equal(t, 18.5, got.Protein)
	assert.InDelta(t, 8.3, got.Fat, 1e-9)
	assert.Equal(t, 10.5, got.Carbs)
}

func TestRecordRoundTrip(t *testing.T) {
	orig := Recipe{
		Name:         "Салат",
		Category:     "Салаты",
		Ingredients:  []string{"Огурец 1 шт"},
		Instructions: []string{"Нарезать"},
		Nutrition:    Nutrition{Calories: 40, Protein: 1, Fat: 2, Carbs: 3},
	}
	assert.Equal(t, orig, orig.ToRecord().Normalize())
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "recipes.json")
		require.NoError(t, os.WriteFile(path, []byte(fixtureCorpus), 0644))

		c, err := Load(ctx, FileSource{Path: path})
		require.NoError(t, err)
		assert.Equal(t, 2, c.Len())
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load(ctx, FileSource{Path: filepath.Join(t.TempDir(), "nope.json")})
		var dle *DataLoadError
		require.True(t, errors.As(err, &dle))
		assert.Contains(t, dle.Source, "nope.json")
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := Load(ctx, Bytes(`not json`))
		var dle *DataLoadError
		assert.True(t, errors.As(err, &dle))
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := Load(ctx, Bytes(`[]`))
		var dle *DataLoadError
		assert.True(t, errors.As(err, &dle))
	})

	t.Run("HTTP", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(fixtureCorpus))
		}))
		defer server.Close()

		c, err := Load(ctx, NewHTTPSource(server.URL, "secret"))
		require.NoError(t, err)
		assert.Equal(t, 2, c.Len())

		_, err = Load(ctx, NewHTTPSource(server.URL, ""))
		var dle *DataLoadError
		require.True(t, errors.As(err, &dle))
		assert.Contains(t, dle.Error(), "401")
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		category string
		want     DishType
	}{
		{"Утренний омлет", "", Breakfast},
		{"Гречневая каша", "", Porridge},
		{"Банановый смузи", "", Smoothie},
		{"Блины на молоке", "", Pancakes},
		{"Сырники", "", Dairy},
		{"Омлет с сыром", "", Eggs},
		{"Куриный суп", "", Soup},
		{"Говяжий стейк", "", Main},
		{"Салат Цезарь", "", Salad},
		{"Бутерброд с авокадо", "", Snack},
		{"Запеченное яблоко", "", Fruit},
		{"Греческий йогурт", "", Yogurt},
		{"Грецкий орех", "", Nuts},
		{"Шоколадный торт", "", Dessert},
		{"Постный обед", "", Light},
		{"Отварной рис", "", SideDish},
		{"Индейка в духовке", "", Poultry},
		{"Треска на пару", "", Fish},
		{"Тушеная капуста", "", Vegetables},
		{"Нечто", "Завтраки", Breakfast},
		{"Нечто", "Breakfast bowls", Breakfast},
		{"Нечто", "Soup of the day", Soup},
		{"Нечто", "", Main},
	}
	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.category, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(Recipe{Name: tt.name, Category: tt.category}))
		})
	}
}

func TestClassificationPriority(t *testing.T) {
	// Both "каша" and "завтрак" match; the earlier rule wins.
	assert.Equal(t, Breakfast, Classify(Recipe{Name: "Каша на завтрак"}))
}

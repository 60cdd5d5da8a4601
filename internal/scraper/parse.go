package scraper

import (
	"encoding/json"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"nutrition-planner/internal/recipe"
)

var numberPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// Selector lists are tried in order; schema.org microdata first, then
// common class names.
var (
	titleSelectors       = []string{`h1[itemprop="name"]`, "h1", `[itemprop="name"]`, "title"}
	ingredientSelectors  = []string{`[itemprop="recipeIngredient"]`, `[itemprop="ingredients"]`, ".ingredients li", "li.ingredient"}
	instructionSelectors = []string{`[itemprop="recipeInstructions"] li`, `[itemprop="recipeInstructions"]`, ".instructions li", ".steps li"}
	categorySelectors    = []string{`[itemprop="recipeCategory"]`, ".recipe-category", ".breadcrumbs a:last-of-type"}

	nutrientSelectors = map[string][]string{
		"calories": {`[itemprop="calories"]`, ".nutrition .calories"},
		"protein":  {`[itemprop="proteinContent"]`, ".nutrition .protein"},
		"fat":      {`[itemprop="fatContent"]`, ".nutrition .fat"},
		"carbs":    {`[itemprop="carbohydrateContent"]`, ".nutrition .carbs"},
	}
)

// ParsePage extracts a corpus record from a recipe page.
func ParsePage(r io.Reader, pageURL string) (recipe.Record, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return recipe.Record{}, err
	}
	doc.Find("script, style, nav, footer, iframe, .ads, #ads").Remove()

	rec := recipe.Record{
		Name:        firstText(doc, titleSelectors),
		Category:    firstText(doc, categorySelectors),
		Ingredients: allTexts(doc, ingredientSelectors),
		Description: description(doc),
		URL:         pageURL,
		Nutrition:   make(map[string]any, len(nutrientSelectors)),
	}
	if rec.Name == "" || len(rec.Ingredients) == 0 {
		return recipe.Record{}, ErrNotARecipe
	}

	if steps := allTexts(doc, instructionSelectors); len(steps) > 0 {
		rec.Instructions = encodeSteps(steps)
	}
	for key, selectors := range nutrientSelectors {
		if v, ok := firstNumber(doc, selectors); ok {
			rec.Nutrition[key] = v
		}
	}
	return rec, nil
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if t := clean(doc.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

func allTexts(doc *goquery.Document, selectors []string) []string {
	for _, sel := range selectors {
		var out []string
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if t := clean(s.Text()); t != "" {
				out = append(out, t)
			}
		})
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func firstNumber(doc *goquery.Document, selectors []string) (float64, bool) {
	for _, sel := range selectors {
		s := doc.Find(sel).First()
		text, ok := s.Attr("content")
		if !ok {
			text = s.Text()
		}
		m := numberPattern.FindString(text)
		if m == "" {
			continue
		}
		v, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
		if err == nil {
			return v, true
		}
	}
	return 0, false
}

func description(doc *goquery.Document) string {
	if d, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok && clean(d) != "" {
		return clean(d)
	}
	return clean(doc.Find(`[itemprop="description"]`).First().Text())
}

func encodeSteps(steps []string) json.RawMessage {
	data, _ := json.Marshal(steps)
	return data
}

package telegram

import (
	"fmt"
	"strings"

	"nutrition-planner/internal/metrics"
	"nutrition-planner/internal/planner"
	"nutrition-planner/internal/recipe"
)

const helpText = `🥗 *Планировщик питания*

/generate [ккал белки жиры углеводы] [приёмы] [дни] [диета] [ограничения] - новый план
/regenerate - пересобрать план с новыми блюдами
/day [неделя] [день] - меню на день
/fill неделя день приём - добавить блюдо до нормы
/add неделя день приём название - добавить рецепт
/remove неделя день приём номер - убрать блюдо
/portion неделя день приём номер граммы - изменить порцию
/shopping - список покупок файлом
/stats - разнообразие рецептов
/search запрос - поиск рецептов
/history - последние сохранения
/metrics - статистика и здоровье сервиса

Пример: /generate 2000 100 70 250 3 14 vegetarian nuts`

func formatNutrition(n recipe.Nutrition) string {
	return fmt.Sprintf("%.0f ккал · Б %.0f · Ж %.0f · У %.0f", n.Calories, n.Protein, n.Fat, n.Carbs)
}

func formatSummary(plan *planner.Plan) string {
	stats := planner.Stats(plan)
	var sb strings.Builder
	sb.WriteString("✅ План готов\n\n")
	fmt.Fprintf(&sb, "Диета: %s\n", plan.Settings.DietType.DisplayName())
	fmt.Fprintf(&sb, "Цель: %s\n", formatNutrition(plan.Goals.Nutrition()))
	fmt.Fprintf(&sb, "Недель: %d, приёмов в день: %d\n", len(plan.Weeks), plan.Settings.MealCount)
	fmt.Fprintf(&sb, "Блюд: %d, уникальных: %d (%d%%)\n", stats.TotalDishes, stats.UniqueRecipes, stats.VarietyPct)
	sb.WriteString("\nМеню на первый день: /day 1 1")
	return sb.String()
}

func formatDay(plan *planner.Plan, week, day int) (string, error) {
	d, err := plan.Day(week, day)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📅 Неделя %d, день %d\n", week, day)
	for _, m := range d.OrderedMeals() {
		fmt.Fprintf(&sb, "\n%s, %s (%s)\n", m.Name, m.Time, m.Type)
		if len(m.Recipes) == 0 {
			sb.WriteString("  пусто\n")
		}
		for i, r := range m.Recipes {
			fmt.Fprintf(&sb, "  %d. %s, %.0f г (%.0f ккал)\n", i+1, r.Name, r.PortionGrams, r.ScaledNutrition.Calories)
		}
		fmt.Fprintf(&sb, "  Итого: %s\n", formatNutrition(m.Actual))
	}
	fmt.Fprintf(&sb, "\nЗа день: %s", formatNutrition(d.Totals()))
	return sb.String(), nil
}

func formatStats(s planner.VarietyStats) string {
	var sb strings.Builder
	sb.WriteString("📊 Разнообразие\n\n")
	fmt.Fprintf(&sb, "Уникальных рецептов: %d\n", s.UniqueRecipes)
	fmt.Fprintf(&sb, "Всего блюд: %d\n", s.TotalDishes)
	fmt.Fprintf(&sb, "Разнообразие: %d%%\n", s.VarietyPct)
	if len(s.MostUsed) > 0 {
		sb.WriteString("\nЧаще всего:\n")
		for _, f := range s.MostUsed {
			fmt.Fprintf(&sb, "• %s: %d\n", f.Name, f.Count)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatSearch(query string, results []recipe.Recipe, limit int) string {
	if len(results) == 0 {
		return fmt.Sprintf("🔍 По запросу %q ничего не найдено", query)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "🔍 Найдено: %d\n", len(results))
	for i, r := range results {
		if i == limit {
			fmt.Fprintf(&sb, "… и ещё %d", len(results)-limit)
			break
		}
		fmt.Fprintf(&sb, "\n• %s (%s), %.0f ккал/100 г", r.Name, r.Category, r.Nutrition.Calories)
	}
	return sb.String()
}

func formatHistory(entries []planner.HistoryEntry) string {
	if len(entries) == 0 {
		return "🗂 Сохранённых планов пока нет"
	}
	var sb strings.Builder
	sb.WriteString("🗂 Последние сохранения\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "\n• %s: неделя %d, %s, %d приёма, %d дн.",
			e.SavedAt.Format("2006-01-02 15:04"), e.WeekNumber,
			recipe.DietType(e.DietType).DisplayName(), e.MealCount, e.DurationDays)
	}
	return sb.String()
}

func formatReport(usage []metrics.DailyUsage, health metrics.Health) string {
	var sb strings.Builder
	sb.WriteString("📊 Использование и здоровье\n\n")

	sb.WriteString("🗓 Генерации за неделю\n")
	if len(usage) == 0 {
		sb.WriteString("нет данных\n")
	}
	for _, d := range usage {
		fmt.Fprintf(&sb, "• %s: %d планов, %d блюд, %d промахов, %.0f мс\n",
			d.Date, d.Generations, d.TotalDishes, d.SelectionMisses, d.AvgLatencyMS)
	}

	sb.WriteString("\n🧠 Система\n")
	fmt.Fprintf(&sb, "• RAM: %dMB (heap) / %dMB (sys)\n", health.HeapMB, health.SysMB)
	fmt.Fprintf(&sb, "• Goroutines: %d\n", health.Goroutines)
	fmt.Fprintf(&sb, "• Data: %s\n", metrics.HumanBytes(health.DataBytes))
	fmt.Fprintf(&sb, "• Uptime: %s", health.Uptime)
	return sb.String()
}

package shopping

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Header opens every exported list.
const Header = "📋 СПИСОК ПОКУПОК"

// Format renders the list as plain text, one "• Name: amount unit" line per
// item. Items are rendered in the order given; Aggregate already sorts them.
func Format(items []Item) string {
	var sb strings.Builder
	sb.WriteString(Header)
	sb.WriteString("\n\n")
	for _, it := range items {
		sb.WriteString(FormatItem(it))
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatItem renders a single list line without the trailing newline.
func FormatItem(it Item) string {
	amount, unit := DisplayAmount(it.Amount, it.Unit)
	return fmt.Sprintf("• %s: %s %s", capitalize(it.Name), amount, unit)
}

// FileName is the download name for a list exported at t.
func FileName(t time.Time) string {
	return "Список_покупок_" + t.Format("20060102") + ".txt"
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return cases.Upper(language.Russian).String(string(r)) + s[size:]
}

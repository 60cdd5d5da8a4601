package shopping

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	numberToken = regexp.MustCompile(`^\d+(?:[.,/]\d+)?%?$`)
	// "300гр", "1.5л", "2шт."
	gluedToken = regexp.MustCompile(`^\d+(?:[.,/]\d+)?(\p{L}[\p{L}.]*)$`)
)

// Produce counted by the piece often repeats its own name after the count: "огурцы 2 огурца".
var produceStems = []string{"яблок", "помидор", "огур", "морков", "перц", "перец", "лук", "картоф", "виноград", "гриб", "шампиньон"}

const maxCleanPasses = 10

// NormalizeName reduces an ingredient name to the canonical key used for
// merging. The result is stable: NormalizeName(NormalizeName(x)) == NormalizeName(x).
// Names with nothing left after cleaning normalize to "".
func NormalizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, "ё", "е")
	for i := 0; i < maxCleanPasses; i++ {
		next := cleanName(s)
		if next == s {
			break
		}
		s = next
	}
	if s == "" {
		return ""
	}
	return canonicalName(s)
}

func cleanName(s string) string {
	s = parenPattern.ReplaceAllString(s, " ")
	for _, m := range toTasteMarkers {
		s = strings.ReplaceAll(s, m, " ")
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case '(', ')', '[', ']', '-', '–', '—':
			return ' '
		}
		return r
	}, s)

	tokens := dropQuantities(strings.Fields(s))

	// Punctuation goes only after quantities are gone, since "ст." "л." are unit tokens.
	joined := strings.Join(tokens, " ")
	joined = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			return r
		}
		return ' '
	}, joined)
	return strings.Join(strings.Fields(joined), " ")
}

// dropQuantities removes numbers together with the unit words that follow
// them, and glued forms such as "300гр".
func dropQuantities(tokens []string) []string {
	produce := containsAny(strings.Join(tokens, " "), produceStems)

	out := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if m := gluedToken.FindStringSubmatch(tok); m != nil {
			if _, ok := lookupUnit(m[1]); ok {
				continue
			}
		}
		if !numberToken.MatchString(strings.TrimRight(tok, ".,;:")) {
			out = append(out, tok)
			continue
		}
		i += unitSpan(tokens[i+1:], produce)
	}
	return out
}

// unitSpan returns how many tokens at the start of rest form a unit.
func unitSpan(rest []string, produce bool) int {
	if len(rest) == 0 {
		return 0
	}
	first := strings.Trim(rest[0], ",;:")
	if len(rest) > 1 && (first == "ст." || first == "ст" || first == "ч." || first == "ч") {
		if second := strings.Trim(rest[1], ".,;:"); second == "л" {
			return 2
		}
	}
	if u, ok := lookupUnit(first); ok {
		if (u == Tablespoon || u == Teaspoon) && len(rest) > 1 && strings.HasPrefix(rest[1], "лож") {
			return 2
		}
		return 1
	}
	if produce && containsAny(first, produceStems) {
		return 1
	}
	return 0
}

// synonymTable maps spelling variants onto one list entry. Keys are matched
// exactly first, then as whole-token runs inside longer names, longest key first.
var synonymTable = map[string]string{
	"вода теплая":    "вода",
	"теплая вода":    "вода",
	"вода горячая":   "вода",
	"горячая вода":   "вода",
	"вода холодная":  "вода",
	"питьевая вода":  "вода",
	"сок лимона":     "лимонный сок",
	"сок апельсина":  "апельсиновый сок",
	"вино белое":     "белое вино",
	"вино красное":   "красное вино",
	"соус соевый":    "соевый соус",

	"сухое молоко обезжиренное": "сухое молоко",
	"молоко сухое":              "сухое молоко",
	"йогурт натуральный":        "йогурт",
	"натуральный йогурт":        "йогурт",
	"греческий йогурт":          "йогурт",

	"сыр адыгейский": "адыгейский сыр",
	"пармезан":       "сыр пармезан",
	"фета":           "сыр фета",
	"бекон сыр":      "сыр",
	"творог жирный":  "творог",

	"масло сливочное":     "сливочное масло",
	"масло растительное":  "растительное масло",
	"масло подсолнечное":  "растительное масло",
	"подсолнечное масло":  "растительное масло",
	"масло оливковое":     "оливковое масло",
	"масло кокосовое":     "кокосовое масло",
	"пшеничная мука":      "мука пшеничная",
	"рисовая мука":        "мука рисовая",
	"кукурузная мука":     "мука кукурузная",
	"овсяная мука":        "мука овсяная",
	"цельнозерновая мука": "мука цельнозерновая",
	"кокосовая мука":      "мука кокосовая",
	"манка":               "манная крупа",

	"сахар ванильный":    "ванильный сахар",
	"сахар тростниковый": "тростниковый сахар",
	"сахарный песок":     "сахар",
	"шоколад белый":      "белый шоколад",
	"шоколад горький":    "горький шоколад",
	"шоколад темный":     "горький шоколад",
	"шоколад молочный":   "молочный шоколад",

	"соль гималайская розовая": "соль",
	"соль морская":             "соль",
	"морская соль":             "соль",
	"чай молочный улун сухой":  "чай улун",

	"орехи грецкие": "грецкие орехи",
	"орехи кешью":   "кешью",

	"яблоко":           "яблоки",
	"яблока":           "яблоки",
	"помидор":          "помидоры",
	"помидора":         "помидоры",
	"томаты":           "помидоры",
	"огурец":           "огурцы",
	"огурца":           "огурцы",
	"перец болгарский": "болгарский перец",
	"перец черный":     "черный перец",
	"перец красный":    "красный перец",
	"грибы жареные":    "грибы",

	"белая фасоль":                    "фасоль белая",
	"фасоль красная консервированная": "фасоль консервированная",
	"фасоль стручковая":               "стручковая фасоль",

	"филе куриное":                    "куриное филе",
	"куриная грудка":                  "куриное филе",
	"филе куриной грудки":             "куриное филе",
	"филе минтая":                     "филе рыбы",
	"филе пангасиуса":                 "филе рыбы",
	"филе сельди":                     "филе рыбы",
	"филе трески":                     "филе рыбы",
	"говяжий фарш":                    "фарш говяжий",
	"колбаса вареная":                 "колбаса",
	"колбаса варено копченая сервелат": "колбаса",
	"сосиска":                         "сосиски",

	"белый хлеб":     "хлеб белый",
	"черный хлеб":    "хлеб черный",
	"лепешка ржаная": "ржаная лепешка",

	"яйцо":          "яйца",
	"яйца куриные":  "яйца",
	"яйцо куриное":  "яйца",
	"куриные яйца":  "яйца",
	"куриное яйцо":  "яйца",
	"яичный белок":  "яичные белки",
	"яичный желток": "яичные желтки",
}

type synonymKey struct {
	tokens []string
	value  string
}

var synonyms, synonymKeys = buildSynonyms(synonymTable)

// buildSynonyms maps every canonical value onto itself, so normalized names
// stay fixed, and orders the table keys for containment matching: more
// tokens first, then longer text, then lexical order. Values only match
// exactly; a generic value like "сыр" must not swallow "сыр моцарелла".
func buildSynonyms(table map[string]string) (map[string]string, []synonymKey) {
	all := make(map[string]string, len(table)*2)
	for k, v := range table {
		all[k] = v
	}
	for _, v := range table {
		if _, ok := all[v]; !ok {
			all[v] = v
		}
	}

	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ti, tj := len(strings.Fields(keys[i])), len(strings.Fields(keys[j]))
		if ti != tj {
			return ti > tj
		}
		li, lj := utf8.RuneCountInString(keys[i]), utf8.RuneCountInString(keys[j])
		if li != lj {
			return li > lj
		}
		return keys[i] < keys[j]
	})

	ordered := make([]synonymKey, len(keys))
	for i, k := range keys {
		ordered[i] = synonymKey{tokens: strings.Fields(k), value: all[k]}
	}
	return all, ordered
}

func canonicalName(s string) string {
	if v, ok := synonyms[s]; ok {
		return v
	}
	tokens := strings.Fields(s)
	for _, k := range synonymKeys {
		if containsRun(tokens, k.tokens) {
			return k.value
		}
	}
	return s
}

// containsRun reports whether sub appears as a contiguous run of whole tokens in tokens.
func containsRun(tokens, sub []string) bool {
	if len(sub) == 0 || len(sub) > len(tokens) {
		return false
	}
outer:
	for i := 0; i+len(sub) <= len(tokens); i++ {
		for j := range sub {
			if tokens[i+j] != sub[j] {
				continue outer
			}
		}
		return true
	}
	return false
}

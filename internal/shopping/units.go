package shopping

import (
	"math"
	"strconv"
	"strings"
)

// Canonical unit tokens. Every spelling found in ingredient lines maps onto one of these.
const (
	Gram       = "г"
	Kilogram   = "кг"
	Milliliter = "мл"
	Liter      = "л"
	Piece      = "шт"
	Tablespoon = "ст.л."
	Teaspoon   = "ч.л."
	Cup        = "стакан"
	Clove      = "зуб."
	Bunch      = "пучок"
	Jar        = "банка"
	Packet     = "пакет"
	Bottle     = "бутылка"
	Package    = "упаковка"
	Pack       = "пачка"
	Slice      = "кусочек"
	Stalk      = "стебель"
	Pinch      = "щепотка"

	// ToTaste marks lines without a purchasable quantity. They never reach the list.
	ToTaste = "по вкусу"
)

var unitAliases = map[string]string{
	"г": Gram, "гр": Gram, "грамм": Gram, "граммов": Gram, "грамма": Gram, "g": Gram, "gr": Gram, "gram": Gram, "grams": Gram,
	"кг": Kilogram, "килограмм": Kilogram, "килограммов": Kilogram, "килограмма": Kilogram, "kg": Kilogram,
	"мл": Milliliter, "миллилитр": Milliliter, "миллилитров": Milliliter, "миллилитра": Milliliter, "ml": Milliliter,
	"л": Liter, "литр": Liter, "литров": Liter, "литра": Liter, "l": Liter, "liter": Liter, "litre": Liter,
	"шт": Piece, "штук": Piece, "штука": Piece, "штуки": Piece, "pcs": Piece, "pc": Piece, "piece": Piece, "pieces": Piece,

	"ст.л": Tablespoon, "ст л": Tablespoon, "ст ложка": Tablespoon, "столовая ложка": Tablespoon,
	"ложка столовая": Tablespoon, "столовые ложки": Tablespoon, "столовую ложку": Tablespoon,
	"столовых ложки": Tablespoon, "столовых ложек": Tablespoon, "tbsp": Tablespoon,
	"ч.л": Teaspoon, "ч л": Teaspoon, "ч ложка": Teaspoon, "чайная ложка": Teaspoon,
	"ложка чайная": Teaspoon, "чайные ложки": Teaspoon, "чайную ложку": Teaspoon,
	"чайных ложки": Teaspoon, "чайных ложек": Teaspoon, "tsp": Teaspoon,

	"стакан": Cup, "стаканов": Cup, "стакана": Cup, "стаканы": Cup, "cup": Cup, "cups": Cup,
	"зуб": Clove, "зубчик": Clove, "зубчиков": Clove, "зубчика": Clove, "clove": Clove, "cloves": Clove,
	"пучок": Bunch, "пучков": Bunch, "пучка": Bunch, "bunch": Bunch,
	"банка": Jar, "банок": Jar, "банки": Jar, "jar": Jar, "can": Jar,
	"пакет": Packet, "пакетов": Packet, "пакета": Packet, "пакетик": Packet, "пакетика": Packet,
	"бутылка": Bottle, "бутылок": Bottle, "бутылки": Bottle, "bottle": Bottle,
	"упаковка": Package, "упаковок": Package, "упаковки": Package,
	"пачка": Pack, "пачек": Pack, "пачки": Pack,
	"кусочек": Slice, "кусочков": Slice, "кусочка": Slice, "кусок": Slice, "куска": Slice, "slice": Slice,
	"стебель": Stalk, "стеблей": Stalk, "стебля": Stalk, "stalk": Stalk,
	"щепотка": Pinch, "щепоток": Pinch, "щепоть": Pinch, "щепотки": Pinch, "pinch": Pinch,

	ToTaste: ToTaste,
}

// unitStems catch inflections the alias table misses. Longer stems that
// contain shorter ones come first.
var unitStems = []struct {
	stem string
	unit string
}{
	{"килограм", Kilogram},
	{"миллилит", Milliliter},
	{"литр", Liter},
	{"грамм", Gram},
	{"столов", Tablespoon},
	{"чайн", Teaspoon},
	{"стакан", Cup},
	{"зубчик", Clove},
	{"пучк", Bunch},
	{"банк", Jar},
	{"пакет", Packet},
	{"бутыл", Bottle},
	{"упаков", Package},
	{"пачк", Pack},
	{"кусоч", Slice},
	{"стебл", Stalk},
	{"щепот", Pinch},
	{"штук", Piece},
}

var compactUnit = strings.NewReplacer(".", "", " ", "")

var compactAliases = func() map[string]string {
	m := make(map[string]string, len(unitAliases))
	for k, v := range unitAliases {
		m[compactUnit.Replace(k)] = v
	}
	return m
}()

// lookupUnit resolves a spelling to its canonical unit, reporting whether it is a unit at all.
func lookupUnit(raw string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "ё", "е")
	if s == "" {
		return "", false
	}
	if u, ok := unitAliases[s]; ok {
		return u, true
	}
	if u, ok := unitAliases[strings.TrimRight(s, ".")]; ok {
		return u, true
	}
	if u, ok := compactAliases[compactUnit.Replace(s)]; ok {
		return u, true
	}
	for _, st := range unitStems {
		if strings.HasPrefix(s, st.stem) {
			return st.unit, true
		}
	}
	return "", false
}

// NormalizeUnit maps an abbreviated or inflected unit onto its canonical
// token. Unknown units become pieces.
func NormalizeUnit(raw string) string {
	if u, ok := lookupUnit(raw); ok {
		return u
	}
	return Piece
}

type conversion struct {
	factor float64
	base   string
}

// Spoons are treated as weight.
var conversions = map[string]conversion{
	Gram:       {1, Gram},
	Kilogram:   {1000, Gram},
	Milliliter: {1, Milliliter},
	Liter:      {1000, Milliliter},
	Cup:        {250, Milliliter},
	Tablespoon: {15, Gram},
	Teaspoon:   {5, Gram},
	Pinch:      {1, Gram},
	Piece:      {1, Piece},
	Clove:      {1, Piece},
	Bunch:      {1, Piece},
	Jar:        {1, Piece},
	Packet:     {1, Piece},
	Bottle:     {1, Piece},
	Package:    {1, Piece},
	Pack:       {1, Piece},
	Slice:      {1, Piece},
	Stalk:      {1, Piece},
}

// Convert reduces an amount to grams, milliliters or pieces. Units outside
// the conversion table are returned unchanged.
func Convert(amount float64, unit string) (float64, string) {
	c, ok := conversions[unit]
	if !ok {
		u, known := lookupUnit(unit)
		if !known {
			return amount, unit
		}
		if c, ok = conversions[u]; !ok {
			return amount, u
		}
	}
	return amount * c.factor, c.base
}

// baseUnit returns the unit Convert would reduce unit to.
func baseUnit(unit string) string {
	_, u := Convert(1, unit)
	return u
}

// DisplayAmount renders an amount for the list: totals of 1000 g or ml and
// above become kg or l with one decimal, everything else is rounded.
func DisplayAmount(amount float64, unit string) (string, string) {
	switch unit {
	case Gram:
		if amount >= 1000 {
			return strconv.FormatFloat(amount/1000, 'f', 1, 64), Kilogram
		}
	case Milliliter:
		if amount >= 1000 {
			return strconv.FormatFloat(amount/1000, 'f', 1, 64), Liter
		}
	}
	rounded := math.Round(amount)
	if rounded == 0 && amount > 0 {
		return strconv.FormatFloat(math.Max(math.Round(amount*10)/10, 0.1), 'f', 1, 64), unit
	}
	return strconv.FormatFloat(rounded, 'f', 0, 64), unit
}

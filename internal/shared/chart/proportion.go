// Package chart aggregates weighted items into the slices of a two ring proportion chart.
package chart

import (
	"sort"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/shopspring/decimal"
)

const (
	OtherKey   = "OTHER"
	UnknownKey = "UNKNOWN"

	// PlaceholderValue fills the single slice drawn when there is nothing to show.
	PlaceholderValue = 9007199254740991
)

// Reserved colors of the OTHER and UNKNOWN slices.
const (
	OtherColor   = "rgba(0, 0, 0, 0.24)"
	UnknownColor = "rgba(0, 0, 0, 0.12)"
)

// Palette is shade 5 of the open-color scale.
var Palette = []string{
	"#ff6b6b", // red
	"#f06595", // pink
	"#cc5de8", // grape
	"#845ef7", // violet
	"#5c7cfa", // indigo
	"#339af0", // blue
	"#22b8cf", // cyan
	"#20c997", // teal
	"#51cf66", // green
	"#94d82d", // lime
	"#fcc419", // yellow
	"#ff922b", // orange
}

// Item is one weighted entry, typically a holding keyed by symbol.
type Item struct {
	Name       string
	Value      float64
	DataSource string
	// Attributes are looked up by the grouping keys, e.g. "assetClass".
	Attributes map[string]string
}

type Slice struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

// Chart is the outer ring (Categories) and, when grouped by two keys, the inner ring.
type Chart struct {
	Categories    []Slice `json:"categories"`
	SubCategories []Slice `json:"subCategories"`
	Placeholder   bool    `json:"placeholder"`
}

type group struct {
	key   string
	name  string
	value decimal.Decimal
	// sub-category order follows first appearance
	subKeys []string
	subs    map[string]decimal.Decimal
	color   string
}

func (g *group) addSub(key string, v decimal.Decimal) {
	if g.subs == nil {
		g.subs = map[string]decimal.Decimal{}
	}
	if _, ok := g.subs[key]; !ok {
		g.subKeys = append(g.subKeys, key)
	}
	g.subs[key] = g.subs[key].Add(v)
}

// Proportion groups data by up to two attribute keys. Without keys every item
// is its own slice. When maxItems > 0 the smallest groups beyond maxItems are
// folded into OTHER.
func Proportion(data map[string]Item, keys []string, maxItems int) Chart {
	symbols := make([]string, 0, len(data))
	for s := range data {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	groups := map[string]*group{}
	var order []*group
	get := func(key, name string) *group {
		g, ok := groups[key]
		if !ok {
			g = &group{key: key, name: name}
			groups[key] = g
			order = append(order, g)
		}
		return g
	}

	for _, s := range symbols {
		item := data[s]
		v := decimal.NewFromFloat(item.Value)
		if len(keys) == 0 {
			g := get(s, item.Name)
			g.value = g.value.Add(v)
			continue
		}

		attr := item.Attributes[keys[0]]
		var g *group
		if attr == "" {
			g = get(UnknownKey, UnknownKey)
		} else {
			g = get(strings.ToUpper(attr), attr)
		}
		g.value = g.value.Add(v)
		if len(keys) > 1 {
			sub := item.Attributes[keys[1]]
			if sub == "" {
				sub = UnknownKey
			}
			g.addSub(sub, v)
		}
	}

	sortGroups(order)
	if maxItems > 0 && len(order) > maxItems {
		other := &group{key: OtherKey, name: OtherKey}
		for _, g := range order[maxItems:] {
			other.value = other.value.Add(g.value)
		}
		order = append(order[:maxItems:maxItems], other)
		sortGroups(order)
	}

	for i, g := range order {
		switch g.key {
		case OtherKey:
			g.color = OtherColor
		case UnknownKey:
			g.color = UnknownColor
		default:
			g.color = Palette[i%len(Palette)]
		}
	}

	out := Chart{Categories: make([]Slice, 0, len(order)), SubCategories: []Slice{}}
	for _, g := range order {
		out.Categories = append(out.Categories, Slice{Key: g.key, Label: g.name, Value: g.value.InexactFloat64(), Color: g.color})

		ratio := 0.2
		for _, sk := range g.subKeys {
			color := g.color
			if g.key != UnknownKey {
				color = lighten(g.color, ratio)
			}
			out.SubCategories = append(out.SubCategories, Slice{Key: g.key + "/" + sk, Label: sk, Value: g.subs[sk].InexactFloat64(), Color: color})
			ratio += 0.1
		}
	}

	first := out.Categories
	if len(keys) > 1 {
		first = out.SubCategories
	}
	if len(first) == 0 || first[0].Value == 0 {
		return Chart{
			Categories:    []Slice{{Key: UnknownKey, Label: "", Value: PlaceholderValue, Color: UnknownColor}},
			SubCategories: []Slice{},
			Placeholder:   true,
		}
	}
	return out
}

// sortGroups orders by value descending, ties by key.
func sortGroups(gs []*group) {
	sort.SliceStable(gs, func(i, j int) bool {
		if c := gs[i].value.Cmp(gs[j].value); c != 0 {
			return c > 0
		}
		return gs[i].key < gs[j].key
	})
}

// lighten raises the HSL lightness of hex by ratio of its current value.
func lighten(hex string, ratio float64) string {
	c, err := colorful.Hex(hex)
	if err != nil {
		return hex
	}
	h, s, l := c.Hsl()
	return colorful.Hsl(h, s, min(1, l*(1+ratio))).Clamped().Hex()
}

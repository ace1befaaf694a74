// Package filter parses the activity filter tokens shared by list endpoints.
package filter

import "strings"

type Type string

const (
	TypeAccount       Type = "ACCOUNT"
	TypeAssetClass    Type = "ASSET_CLASS"
	TypeAssetSubClass Type = "ASSET_SUB_CLASS"
	TypeDataSource    Type = "DATA_SOURCE"
	TypeSearchQuery   Type = "SEARCH_QUERY"
	TypeSymbol        Type = "SYMBOL"
	TypeTag           Type = "TAG"
)

// Filter is a single predicate token, e.g. {ID: "EQUITY", Type: ASSET_CLASS}.
type Filter struct {
	ID   string `json:"id"`
	Type Type   `json:"type"`
}

// queryParams maps query string keys to filter types. Values are comma separated.
var queryParams = []struct {
	key  string
	typ  Type
	list bool
}{
	{key: "accounts", typ: TypeAccount, list: true},
	{key: "assetClasses", typ: TypeAssetClass, list: true},
	{key: "assetSubClasses", typ: TypeAssetSubClass, list: true},
	{key: "dataSource", typ: TypeDataSource},
	{key: "symbol", typ: TypeSymbol},
	{key: "query", typ: TypeSearchQuery},
	{key: "tags", typ: TypeTag, list: true},
}

// FromQuery builds filters from query parameters read through get.
func FromQuery(get func(key string) string) []Filter {
	var out []Filter
	for _, p := range queryParams {
		v := strings.TrimSpace(get(p.key))
		if v == "" {
			continue
		}
		if !p.list {
			out = append(out, Filter{ID: v, Type: p.typ})
			continue
		}
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				out = append(out, Filter{ID: id, Type: p.typ})
			}
		}
	}
	return out
}

// IDs returns the ids of all filters of type t, in order.
func IDs(filters []Filter, t Type) []string {
	var out []string
	for _, f := range filters {
		if f.Type == t {
			out = append(out, f.ID)
		}
	}
	return out
}

// First returns the id of the first filter of type t, or "".
func First(filters []Filter, t Type) string {
	for _, f := range filters {
		if f.Type == t {
			return f.ID
		}
	}
	return ""
}

package graph

import (
	"sort"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ============================================================================
// Helper Functions
// ============================================================================

func getStringFromRecord(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func getIntFromRecord(record *neo4j.Record, key string) int {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	if i, ok := val.(int64); ok {
		return int(i)
	}
	if i, ok := val.(int); ok {
		return i
	}
	return 0
}

func getMapFromRecord(record *neo4j.Record, key string) map[string]any {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return map[string]any{}
	}
	if m, ok := val.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func getMapsFromRecord(record *neo4j.Record, key string) []map[string]any {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return nil
	}
	list, ok := val.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, v := range list {
		if m, ok := v.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func getStringFromMap(m map[string]any, key, defaultValue string) string {
	val, ok := m[key]
	if !ok || val == nil {
		return defaultValue
	}
	if str, ok := val.(string); ok {
		return str
	}
	return defaultValue
}

func getFloat64FromMap(m map[string]any, key string, defaultValue float64) float64 {
	val, ok := m[key]
	if !ok || val == nil {
		return defaultValue
	}
	if f, ok := val.(float64); ok {
		return f
	}
	if i, ok := val.(int64); ok {
		return float64(i)
	}
	return defaultValue
}

func getIntFromMap(m map[string]any, key string) int {
	val, ok := m[key]
	if !ok || val == nil {
		return 0
	}
	if i, ok := val.(int64); ok {
		return int(i)
	}
	if f, ok := val.(float64); ok {
		return int(f)
	}
	return 0
}

func getBoolFromMap(m map[string]any, key string) bool {
	val, ok := m[key]
	if !ok || val == nil {
		return false
	}
	b, _ := val.(bool)
	return b
}

func getFloat64SliceFromMap(m map[string]any, key string) []float64 {
	val, ok := m[key]
	if !ok || val == nil {
		return []float64{}
	}
	list, ok := val.([]any)
	if !ok {
		return []float64{}
	}
	out := make([]float64, 0, len(list))
	for _, v := range list {
		switch n := v.(type) {
		case float64:
			out = append(out, n)
		case int64:
			out = append(out, float64(n))
		default:
			out = append(out, 0)
		}
	}
	return out
}

func getTimeFromMap(m map[string]any, key string) time.Time {
	val, ok := m[key]
	if !ok || val == nil {
		return time.Time{}
	}
	if t, ok := val.(time.Time); ok {
		return t
	}
	return time.Time{}
}

// ============================================================================
// Parameter builders
// ============================================================================

func namedParams(nodes []NamedNode) []map[string]any {
	out := make([]map[string]any, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, map[string]any{"id": n.ID, "name": n.Name})
	}
	return out
}

func originParams(nodes []OriginNode) []map[string]any {
	out := make([]map[string]any, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, map[string]any{"id": n.ID, "name": n.Name, "country": n.Country, "region": n.Region})
	}
	return out
}

func noteParams(notes []NoteNode) []map[string]any {
	out := make([]map[string]any, 0, len(notes))
	for _, n := range notes {
		out = append(out, map[string]any{"id": n.ID, "text": n.Text, "attribute_id": n.AttributeID})
	}
	return out
}

func optionalNamed(n *NamedNode) []NamedNode {
	if n == nil || n.ID == "" {
		return nil
	}
	return []NamedNode{*n}
}

func floatsParam(v []float64) []any {
	out := make([]any, len(v))
	for i, f := range v {
		out[i] = f
	}
	return out
}

func stringsParam(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

// ============================================================================
// Record mapping
// ============================================================================

func productFromRecord(record *neo4j.Record) *Product {
	props := getMapFromRecord(record, "product")
	p := &Product{
		ID:       getStringFromMap(props, "id", ""),
		Name:     getStringFromMap(props, "name", ""),
		Price:    getFloat64FromMap(props, "price", 0),
		Currency: getStringFromMap(props, "currency", ""),
		InStock:  getBoolFromMap(props, "in_stock"),
		Altitude: Altitude{
			Raw: getStringFromMap(props, "altitude_raw", ""),
			Min: getIntFromMap(props, "altitude_min"),
			Max: getIntFromMap(props, "altitude_max"),
		},
		FlavorProfile: getFloat64SliceFromMap(props, "flavor_profile"),
		CharacterAxes: getFloat64SliceFromMap(props, "character_axes"),
		SyncedAt:      getTimeFromMap(props, "synced_at"),
	}

	if brands := namedFromMaps(getMapsFromRecord(record, "brands")); len(brands) > 0 {
		p.Brand = &brands[0]
	}
	if roasts := namedFromMaps(getMapsFromRecord(record, "roasts")); len(roasts) > 0 {
		p.Roast = &roasts[0]
	}
	p.Processes = namedFromMaps(getMapsFromRecord(record, "processes"))
	p.Producers = namedFromMaps(getMapsFromRecord(record, "producers"))
	p.Varieties = namedFromMaps(getMapsFromRecord(record, "varieties"))

	for _, m := range getMapsFromRecord(record, "origins") {
		p.Origins = append(p.Origins, originFromMap(m))
	}
	sort.Slice(p.Origins, func(i, j int) bool { return p.Origins[i].ID < p.Origins[j].ID })

	for _, m := range getMapsFromRecord(record, "notes") {
		p.Notes = append(p.Notes, NoteNode{
			ID:            getStringFromMap(m, "id", ""),
			Text:          getStringFromMap(m, "text", ""),
			AttributeID:   getStringFromMap(m, "attribute_id", ""),
			SubcategoryID: getStringFromMap(m, "subcategory_id", ""),
			CategoryID:    getStringFromMap(m, "category_id", ""),
		})
	}
	sort.Slice(p.Notes, func(i, j int) bool { return p.Notes[i].ID < p.Notes[j].ID })

	return p
}

func namedFromMaps(maps []map[string]any) []NamedNode {
	out := make([]NamedNode, 0, len(maps))
	for _, m := range maps {
		out = append(out, NamedNode{
			ID:   getStringFromMap(m, "id", ""),
			Name: getStringFromMap(m, "name", ""),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func originFromMap(m map[string]any) OriginNode {
	return OriginNode{
		ID:      getStringFromMap(m, "id", ""),
		Name:    getStringFromMap(m, "name", ""),
		Country: getStringFromMap(m, "country", ""),
		Region:  getStringFromMap(m, "region", ""),
	}
}

package values

import (
	"encoding/json"
	"reflect"
	"testing"

	"headless-cms/backend/internal/domain/schema"
)

func mediaField(name string, opts schema.Options) schema.Field {
	return schema.Field{Name: name, Type: schema.TypeMedia, Options: opts}
}

func TestNormalizeMediaAlwaysArray(t *testing.T) {
	cases := []struct {
		name  string
		field schema.Field
		raw   any
		want  []any
	}{
		{
			name:  "single object",
			field: mediaField("cover", schema.Options{Multiple: false}),
			raw:   map[string]any{"id": 7},
			want:  []any{int64(7)},
		},
		{
			name:  "multiple drops nulls",
			field: mediaField("gallery", schema.Options{Multiple: true}),
			raw:   []any{map[string]any{"id": 1}, map[string]any{"id": 2}, nil},
			want:  []any{int64(1), int64(2)},
		},
		{
			name:  "media type two is multiple",
			field: mediaField("gallery", schema.Options{Media: &schema.MediaOptions{Type: schema.MediaTypeMultiple}}),
			raw:   []any{float64(3), float64(4)},
			want:  []any{int64(3), int64(4)},
		},
		{
			name:  "array on single field keeps every id",
			field: mediaField("cover", schema.Options{}),
			raw:   []any{nil, map[string]any{"id": 9}, map[string]any{"id": 10}},
			want:  []any{int64(9), int64(10)},
		},
		{
			name:  "single scalar",
			field: mediaField("cover", schema.Options{}),
			raw:   float64(5),
			want:  []any{int64(5)},
		},
		{
			name:  "single null",
			field: mediaField("cover", schema.Options{}),
			raw:   nil,
			want:  []any{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			state := NormalizeForEdit(map[string]any{tc.field.Name: tc.raw}, []schema.Field{tc.field})
			got, ok := state[tc.field.Name].([]any)
			if !ok {
				t.Fatalf("expected array, got %T", state[tc.field.Name])
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %#v, want %#v", got, tc.want)
			}
			if _, isList := tc.raw.([]any); !isList && !tc.field.AllowsMultipleMedia() && len(got) > 1 {
				t.Fatalf("single media produced %d ids", len(got))
			}
		})
	}
}

func TestDefaultsCoverEveryType(t *testing.T) {
	for _, ft := range schema.AllTypes() {
		field := schema.Field{Name: "f", Type: ft}
		if ft == schema.TypeGroup {
			field.Children = []schema.Field{{Name: "c", Type: schema.TypeText}}
		}
		state := DefaultsFor([]schema.Field{field})
		value, ok := state["f"]
		if !ok {
			t.Fatalf("type %s produced no default", ft)
		}
		if value == nil && ft != schema.TypeJSON {
			t.Fatalf("type %s default should not be nil", ft)
		}
		// 缺失原值时与默认值一致
		normalized := NormalizeForEdit(map[string]any{}, []schema.Field{field})
		if !reflect.DeepEqual(normalized["f"], value) {
			t.Fatalf("type %s: normalize fallback %#v != default %#v", ft, normalized["f"], value)
		}
	}
}

func TestDefaultsForShapes(t *testing.T) {
	tree := []schema.Field{
		{Name: "seo", Type: schema.TypeGroup, Children: []schema.Field{
			{Name: "indexed", Type: schema.TypeBoolean},
			{Name: "tags", Type: schema.TypeEnumeration, Options: schema.Options{Multiple: true}},
			{Name: "image", Type: schema.TypeMedia},
			{Name: "meta", Type: schema.TypeJSON},
			{Name: "title", Type: schema.TypeText},
		}},
		{Name: "blocks", Type: schema.TypeGroup, Options: schema.Options{Repeatable: true}},
		{Name: "aliases", Type: schema.TypeText, Options: schema.Options{Repeatable: true}},
		{Name: "related", Type: schema.TypeRelation},
		{Name: "featured", Type: schema.TypeBoolean},
		{Name: "payload", Type: schema.TypeJSON},
	}
	state := DefaultsFor(tree)

	seo := state["seo"].([]any)
	if len(seo) != 1 {
		t.Fatalf("non-repeatable group should default to one instance, got %d", len(seo))
	}
	instance := seo[0].(map[string]any)
	want := map[string]any{
		"indexed": false,
		"tags":    []string{},
		"image":   []any{},
		"meta":    nil,
		"title":   "",
	}
	if !reflect.DeepEqual(instance, want) {
		t.Fatalf("unexpected group instance %#v", instance)
	}
	if blocks := state["blocks"].([]any); len(blocks) != 0 {
		t.Fatalf("repeatable group should default empty")
	}
	aliases := state["aliases"].([]any)
	if len(aliases) != 1 || !reflect.DeepEqual(aliases[0], map[string]any{"value": nil}) {
		t.Fatalf("unexpected repeatable default %#v", aliases)
	}
	if state["featured"] != false || state["payload"] != nil {
		t.Fatalf("unexpected scalar defaults %#v", state)
	}
	if related := state["related"].([]any); len(related) != 0 {
		t.Fatalf("relation default should be empty array")
	}
}

func TestRepeatableGroupRoundTrip(t *testing.T) {
	group := schema.Field{
		Name:    "slides",
		Type:    schema.TypeGroup,
		Options: schema.Options{Repeatable: true},
		Children: []schema.Field{
			{Name: "media_field", Type: schema.TypeMedia},
			{Name: "text_field", Type: schema.TypeText},
		},
	}
	raw := map[string]any{
		"slides": []any{
			map[string]any{"media_field": []any{map[string]any{"id": 1}}, "text_field": "a"},
			map[string]any{"media_field": []any{}, "text_field": "b"},
		},
	}
	state := NormalizeForEdit(raw, []schema.Field{group})
	slides := state["slides"].([]any)
	if len(slides) != 2 {
		t.Fatalf("expected 2 instances, got %d", len(slides))
	}
	first := slides[0].(map[string]any)
	second := slides[1].(map[string]any)
	if !reflect.DeepEqual(first["media_field"], []any{int64(1)}) || first["text_field"] != "a" {
		t.Fatalf("unexpected first instance %#v", first)
	}
	if !reflect.DeepEqual(second["media_field"], []any{}) || second["text_field"] != "b" {
		t.Fatalf("unexpected second instance %#v", second)
	}

	persisted := ToPersisted(state, []schema.Field{group})
	back := NormalizeForEdit(persisted, []schema.Field{group})
	if !reflect.DeepEqual(back, state) {
		t.Fatalf("round trip mismatch\n got %#v\nwant %#v", back, state)
	}
}

func TestNonRepeatableGroupWrapsObject(t *testing.T) {
	group := schema.Field{
		Name:     "seo",
		Type:     schema.TypeGroup,
		Children: []schema.Field{{Name: "cover", Type: schema.TypeMedia}, {Name: "title", Type: schema.TypeText}},
	}
	state := NormalizeForEdit(map[string]any{"seo": map[string]any{"cover": map[string]any{"id": 4}, "title": "x"}}, []schema.Field{group})
	seo := state["seo"].([]any)
	if len(seo) != 1 {
		t.Fatalf("expected single instance array, got %#v", seo)
	}
	instance := seo[0].(map[string]any)
	if !reflect.DeepEqual(instance["cover"], []any{int64(4)}) || instance["title"] != "x" {
		t.Fatalf("unexpected instance %#v", instance)
	}

	persisted := ToPersisted(state, []schema.Field{group})
	obj, ok := persisted["seo"].(map[string]any)
	if !ok {
		t.Fatalf("non-repeatable group should persist as object, got %T", persisted["seo"])
	}
	if !reflect.DeepEqual(obj["cover"], []any{int64(4)}) {
		t.Fatalf("unexpected persisted cover %#v", obj["cover"])
	}
}

func TestGenericRepeatableWrapping(t *testing.T) {
	field := schema.Field{Name: "aliases", Type: schema.TypeText, Options: schema.Options{Repeatable: true}}
	state := NormalizeForEdit(map[string]any{"aliases": []any{"a", "b"}}, []schema.Field{field})
	want := []any{map[string]any{"value": "a"}, map[string]any{"value": "b"}}
	if !reflect.DeepEqual(state["aliases"], want) {
		t.Fatalf("unexpected wrappers %#v", state["aliases"])
	}
	// 已是规范形态时保持不变
	again := NormalizeForEdit(map[string]any(state), []schema.Field{field})
	if !reflect.DeepEqual(again["aliases"], want) {
		t.Fatalf("normalize should be idempotent, got %#v", again["aliases"])
	}
	persisted := ToPersisted(state, []schema.Field{field})
	if !reflect.DeepEqual(persisted["aliases"], []any{"a", "b"}) {
		t.Fatalf("unexpected persisted list %#v", persisted["aliases"])
	}
}

func TestNormalizeToleratesMalformedInput(t *testing.T) {
	tree := []schema.Field{
		{Name: "tags", Type: schema.TypeEnumeration, Options: schema.Options{Multiple: true}},
		{Name: "flag", Type: schema.TypeBoolean},
		{Name: "agreed", Type: schema.TypeBoolean},
		{Name: "kind", Type: schema.TypeEnumeration},
		{Name: "related", Type: schema.TypeRelation},
		{Name: "seo", Type: schema.TypeGroup},
		{Name: "title", Type: schema.TypeText},
	}
	raw := map[string]any{
		"tags":    `["a","b"]`,
		"flag":    "true",
		"agreed":  " Yes ",
		"kind":    []any{float64(1), "news", "blog"},
		"related": map[string]any{"id": float64(3)},
		"seo":     "garbage",
		"title":   nil,
	}
	state := NormalizeForEdit(raw, tree)
	if !reflect.DeepEqual(state["tags"], []string{"a", "b"}) {
		t.Fatalf("unexpected tags %#v", state["tags"])
	}
	if state["flag"] != true || state["agreed"] != true {
		t.Fatalf("boolean strings should coerce to true, got %#v %#v", state["flag"], state["agreed"])
	}
	if state["kind"] != "news" {
		t.Fatalf("single enumeration should keep the first string of an array, got %#v", state["kind"])
	}
	if !reflect.DeepEqual(state["related"], []any{int64(3)}) {
		t.Fatalf("unexpected related %#v", state["related"])
	}
	if seo := state["seo"].([]any); len(seo) != 1 {
		t.Fatalf("malformed group should fall back to default instance")
	}
	if state["title"] != "" {
		t.Fatalf("nil text should become empty string")
	}
}

func TestNormalizeAfterJSONRoundTrip(t *testing.T) {
	tree := []schema.Field{
		{Name: "cover", Type: schema.TypeMedia},
		{Name: "related", Type: schema.TypeRelation},
	}
	state := NormalizeForEdit(map[string]any{"cover": map[string]any{"id": 7}, "related": []any{2, 1}}, tree)
	raw, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	again := NormalizeForEdit(decoded, tree)
	if !reflect.DeepEqual(again, state) {
		t.Fatalf("json round trip changed state: %#v vs %#v", again, state)
	}
}

func TestToPersistedKeepsMediaArrayOnSingleField(t *testing.T) {
	tree := []schema.Field{mediaField("cover", schema.Options{Multiple: false})}
	state := NormalizeForEdit(map[string]any{"cover": []any{map[string]any{"id": 1}, map[string]any{"id": 2}}}, tree)
	if !reflect.DeepEqual(state["cover"], []any{int64(1), int64(2)}) {
		t.Fatalf("stored array should stay multiple, got %#v", state["cover"])
	}
	persisted := ToPersisted(state, tree)
	if !reflect.DeepEqual(persisted["cover"], []any{int64(1), int64(2)}) {
		t.Fatalf("saving dropped media ids: %#v", persisted["cover"])
	}
}

func TestIDHelpers(t *testing.T) {
	if IDKey(float64(7)) != IDKey(int64(7)) || IDKey("7") != "7" {
		t.Fatalf("id keys should compare numerically")
	}
	ids := UintIDs([]any{float64(1), "2", "abc", nil, map[string]any{"id": 3}})
	if !reflect.DeepEqual(ids, []uint{1, 2, 3}) {
		t.Fatalf("unexpected uint ids %#v", ids)
	}
}

func TestStateCloneIsDeep(t *testing.T) {
	state := State{"list": []any{map[string]any{"value": "a"}}}
	clone := state.Clone()
	clone["list"].([]any)[0].(map[string]any)["value"] = "b"
	if state["list"].([]any)[0].(map[string]any)["value"] != "a" {
		t.Fatalf("clone shares nested data")
	}
}

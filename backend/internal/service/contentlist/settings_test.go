package contentlist

import (
	"encoding/base64"
	"errors"
	"math"
	"net/url"
	"reflect"
	"testing"
)

func TestPageResetSemantics(t *testing.T) {
	base := DefaultSettings().WithFilter("title", "foo").WithSort("title", DirectionAsc).WithPage(4)
	if base.Page != 4 {
		t.Fatalf("expected page 4, got %d", base.Page)
	}

	cases := []struct {
		name string
		next Settings
	}{
		{"filter", base.WithFilter("category", "news")},
		{"clear filter", base.ClearFilter("title")},
		{"search", base.WithSearch("hello")},
		{"sort", base.WithSort("created_at", DirectionDesc)},
		{"page size", base.WithPageSize(25)},
		{"date range", base.WithDateRange("created_at", DateRange{From: "2024-01-01"})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.next.Page != 1 {
				t.Fatalf("expected page reset to 1, got %d", tc.next.Page)
			}
		})
	}

	paged := base.WithPage(7)
	if paged.Page != 7 {
		t.Fatalf("expected page 7, got %d", paged.Page)
	}
	if !reflect.DeepEqual(paged.Filters, base.Filters) || paged.Sort != base.Sort || paged.Search != base.Search {
		t.Fatalf("page change must not touch filters or sort")
	}

	hidden := base.WithColumnVisibility("title", false)
	if hidden.Page != 4 || hidden.IsColumnVisible("title") {
		t.Fatalf("visibility change should keep page and hide column: %+v", hidden)
	}
	if base.Filters["category"] != "" {
		t.Fatalf("reducers must not mutate the receiver")
	}
}

func TestApplyMutation(t *testing.T) {
	s := DefaultSettings()
	s, err := s.Apply(Mutation{Kind: MutationFilter, Column: "status", Value: "draft"})
	if err != nil || s.Filters["status"] != "draft" {
		t.Fatalf("filter mutation failed: %+v %v", s, err)
	}
	visible := false
	s, err = s.Apply(Mutation{Kind: MutationColumnVisibility, Column: "body", Visible: &visible})
	if err != nil || s.IsColumnVisible("body") {
		t.Fatalf("visibility mutation failed: %+v %v", s, err)
	}
	if _, err := s.Apply(Mutation{Kind: "explode"}); !errors.Is(err, ErrInvalidMutation) {
		t.Fatalf("expected invalid mutation, got %v", err)
	}
	if _, err := s.Apply(Mutation{Kind: MutationFilter}); !errors.Is(err, ErrInvalidMutation) {
		t.Fatalf("filter without column should fail, got %v", err)
	}
	reset, _ := s.Apply(Mutation{Kind: MutationReset})
	if !reflect.DeepEqual(reset, DefaultSettings()) {
		t.Fatalf("reset should restore defaults")
	}
}

func sampleSettings() Settings {
	s := DefaultSettings()
	s.ColumnVisibility["body"] = false
	s.ColumnVisibility["title"] = true
	s.Filters["category"] = "news"
	s.DateRanges["created_at"] = DateRange{From: "2024-01-01", To: "2024-02-01"}
	s.Sort = SortState{Column: "title", Direction: DirectionAsc}
	s.PageSize = 25
	s.Search = "launch"
	s.Page = 3
	return s
}

func TestSettingsRoundTripAllEncodings(t *testing.T) {
	want := sampleSettings().Normalize()
	for _, enc := range []Encoding{EncodingEnvelope, EncodingLegacyPlain, EncodingLegacyObfuscated} {
		blob, err := Encode(want, enc)
		if err != nil {
			t.Fatalf("encode %d: %v", enc, err)
		}
		got, err := DecodeSettings(blob)
		if err != nil {
			t.Fatalf("decode %d: %v", enc, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("encoding %d round trip mismatch\n got %+v\nwant %+v", enc, got, want)
		}
	}
}

func TestDecodeObfuscatedEnvelope(t *testing.T) {
	blob, err := EncodeSettings(sampleSettings())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeSettings(base64.StdEncoding.EncodeToString([]byte(blob)))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Search != "launch" || got.Page != 3 {
		t.Fatalf("unexpected settings %+v", got)
	}
}

func TestDecodeFailsSilently(t *testing.T) {
	for _, blob := range []string{"", "not json at all", "[1,2,3]", `{"version":9}`} {
		if _, err := DecodeSettings(blob); !errors.Is(err, ErrUndecodableSettings) {
			t.Fatalf("blob %q: expected ErrUndecodableSettings, got %v", blob, err)
		}
	}
}

func TestQueryEncodeParse(t *testing.T) {
	q := sampleSettings().Query()
	q.Locale = "fr"
	values := q.Encode()
	if values.Get("filter_category") != "news" || values.Get("filter_created_at_from") != "2024-01-01" || values.Get("filter_created_at_to") != "2024-02-01" {
		t.Fatalf("unexpected encoded filters %v", values)
	}
	parsed := ParseQuery(values)
	if !reflect.DeepEqual(parsed, q) {
		t.Fatalf("query round trip mismatch\n got %+v\nwant %+v", parsed, q)
	}

	cleared := sampleSettings().ClearFilter("created_at").Query().Encode()
	if _, ok := cleared["filter_created_at_from"]; ok {
		t.Fatalf("cleared filter must drop its parameters")
	}
	if cleared.Get("page") != "1" {
		t.Fatalf("clearing a filter resets the page, got %s", cleared.Get("page"))
	}
}

func TestParseQueryDefaults(t *testing.T) {
	q := ParseQuery(url.Values{"per_page": {"500"}, "page": {"-2"}, "sort": {"title"}})
	if q.PerPage != MaxPageSize || q.Page != 1 || q.Direction != DirectionDesc {
		t.Fatalf("unexpected defaults %+v", q)
	}
}

func TestPaginate(t *testing.T) {
	p, start, end := Paginate(23, 3, 10)
	if p.LastPage != 3 || p.From != 21 || p.To != 23 || start != 20 || end != 23 {
		t.Fatalf("unexpected pagination %+v [%d,%d)", p, start, end)
	}
	empty, start, end := Paginate(0, 1, 10)
	if empty.LastPage != 1 || empty.From != 0 || start != end {
		t.Fatalf("unexpected empty pagination %+v", empty)
	}
	beyond, start, end := Paginate(5, 4, 10)
	if beyond.From != 0 || start != end {
		t.Fatalf("page beyond range should be empty: %+v", beyond)
	}
	huge, start, end := Paginate(3, math.MaxInt, 10)
	if start != 3 || end != 3 || huge.From != 0 || huge.LastPage != 1 {
		t.Fatalf("huge page should clamp to an empty tail: %+v [%d,%d)", huge, start, end)
	}
	wide, start, end := Paginate(3, 1, math.MaxInt)
	if start != 0 || end != 3 || wide.To != 3 {
		t.Fatalf("huge page size should cover everything: %+v [%d,%d)", wide, start, end)
	}
}

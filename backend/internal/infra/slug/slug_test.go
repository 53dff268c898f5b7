package slug

import "testing"

func TestMake(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "basic", in: "Hello World!", want: "hello-world"},
		{name: "diacritics", in: "Crème Brûlée", want: "creme-brulee"},
		{name: "collapse separators", in: "  a -- b__c  ", want: "a-b-c"},
		{name: "digits", in: "Top 10 Tips", want: "top-10-tips"},
		{name: "empty", in: "", want: ""},
		{name: "only symbols", in: "!!!", want: ""},
		{name: "cjk kept", in: "你好 世界", want: "你好-世界"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Make(tc.in); got != tc.want {
				t.Fatalf("Make(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestFromValueNonString(t *testing.T) {
	if got := FromValue(42.0); got != "" {
		t.Fatalf("expected empty slug for number, got %q", got)
	}
	if got := FromValue(nil); got != "" {
		t.Fatalf("expected empty slug for nil, got %q", got)
	}
}

package parser

import "testing"

func TestModulePath(t *testing.T) {
	cases := []struct {
		rel  string
		want string
	}{
		{"src/lib.rs", ""},
		{"src/main.rs", ""},
		{"src/net/mod.rs", "net"},
		{"src/net/http.rs", "net::http"},
		{"a.rs", "a"},
		{"tests/api.rs", "tests::api"},
		{"crates/core-utils/src/fmt_helpers.rs", "fmt_helpers"},
		{"src/bin/my-tool.rs", "bin::my_tool"},
	}
	for _, tc := range cases {
		if got := ModulePath(tc.rel); got != tc.want {
			t.Errorf("ModulePath(%q): expected %q, got %q", tc.rel, tc.want, got)
		}
	}
}

func TestNormalizePath(t *testing.T) {
	cases := []struct {
		path, module, want string
	}{
		{"crate::b::bar", "a", "b::bar"},
		{"self::inner::f", "a::b", "a::b::inner::f"},
		{"super::c", "a::b", "a::c"},
		{"super::super::top", "a::b", "top"},
		{"::std::mem", "a", "std::mem"},
		{"b::bar", "a", "b::bar"},
		{"crate", "a", ""},
	}
	for _, tc := range cases {
		if got := NormalizePath(tc.path, tc.module); got != tc.want {
			t.Errorf("NormalizePath(%q, %q): expected %q, got %q", tc.path, tc.module, tc.want, got)
		}
	}
}

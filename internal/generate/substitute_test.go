package generate

import (
	"slices"
	"testing"
)

func TestSubstitute(t *testing.T) {
	vars := Variables{"CONCEPT_NAME": "Caching", "owner": "platform team"}

	tests := []struct {
		name string
		text string
		want string
	}{
		{"single braces", "# {CONCEPT_NAME}", "# Caching"},
		{"double braces", "Owned by {{owner}}.", "Owned by platform team."},
		{"double braces with spaces", "{{ owner }}", "platform team"},
		{"case-insensitive", "{concept_name} / {Owner}", "Caching / platform team"},
		{"unknown kept", "{MISSING} and {{missing}}", "{MISSING} and {{missing}}"},
		{"json untouched", `{"key": 1}`, `{"key": 1}`},
		{"repeated", "{owner}{owner}", "platform teamplatform team"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Substitute(tt.text, vars); got != tt.want {
				t.Errorf("Substitute() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSubstitute_AllBoundLeavesNoPlaceholders(t *testing.T) {
	text := "# {TITLE}\n\n{{summary}} by {AUTHOR}.\n\n## {TITLE} details\n"
	vars := Variables{"TITLE": "Sessions", "summary": "How sessions work", "AUTHOR": "ops"}

	out := Substitute(text, vars)
	if left := Placeholders(out); len(left) != 0 {
		t.Errorf("placeholders left after substitution: %v in %q", left, out)
	}
}

func TestLookup_PrefersExactKey(t *testing.T) {
	vars := Variables{"name": "lower", "NAME": "upper"}
	if got, _ := vars.Lookup("NAME"); got != "upper" {
		t.Errorf("Lookup(NAME) = %q, want upper", got)
	}
	if got, _ := vars.Lookup("Name"); got != "upper" {
		t.Errorf("Lookup(Name) = %q, want the smallest matching key's value", got)
	}
}

func TestPlaceholders(t *testing.T) {
	got := Placeholders("{A} {{b}} {A} {not valid} {C}")
	want := []string{"A", "b", "C"}
	if !slices.Equal(got, want) {
		t.Errorf("Placeholders() = %v, want %v", got, want)
	}
}

func TestTargetName(t *testing.T) {
	tests := []struct {
		name string
		vars Variables
		want string
	}{
		{"concept first", Variables{"name": "n", "concept_name": "c"}, "c"},
		{"section", Variables{"section_name": "s"}, "s"},
		{"integration before service", Variables{"service_name": "svc", "integration_name": "int"}, "int"},
		{"upper-case key", Variables{"CONCEPT_NAME": "Upper"}, "Upper"},
		{"blank skipped", Variables{"concept_name": "  ", "name": "n"}, "n"},
		{"fallback", Variables{}, "manifest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TargetName(tt.vars, "manifest"); got != tt.want {
				t.Errorf("TargetName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Caching Layer":       "caching-layer",
		"  OAuth 2.0 / OIDC ": "oauth-2-0-oidc",
		"already-slugged":     "already-slugged",
		"!!!":                 "",
		"Ünïcode":             "n-code",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMerge(t *testing.T) {
	got := Merge(Variables{"a": "1", "b": "1"}, nil, Variables{"b": "2"})
	if got["a"] != "1" || got["b"] != "2" || len(got) != 2 {
		t.Errorf("Merge() = %v", got)
	}
}

package generate

import (
	"maps"
	"regexp"
	"slices"
	"strings"
)

// Variables binds placeholder names to values.
type Variables map[string]string

// targetKeys name the document, in order of preference.
var targetKeys = []string{"concept_name", "section_name", "integration_name", "service_name", "name"}

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}|\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Merge returns a new map with the entries of each argument, later ones winning.
func Merge(sets ...Variables) Variables {
	merged := Variables{}
	for _, set := range sets {
		maps.Copy(merged, set)
	}
	return merged
}

// Lookup returns the value bound to key, falling back to a case-insensitive
// match. Among keys differing only in case the smallest one wins.
func (v Variables) Lookup(key string) (string, bool) {
	if val, ok := v[key]; ok {
		return val, true
	}
	for _, k := range slices.Sorted(maps.Keys(v)) {
		if strings.EqualFold(k, key) {
			return v[k], true
		}
	}
	return "", false
}

// Substitute replaces every bound placeholder in text. Unbound placeholders
// are kept verbatim.
func Substitute(text string, vars Variables) string {
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		sub := placeholderPattern.FindStringSubmatch(match)
		key := sub[1]
		if key == "" {
			key = sub[2]
		}
		if val, ok := vars.Lookup(key); ok {
			return val
		}
		return match
	})
}

// Placeholders lists the distinct placeholder names in text, in order of
// first appearance.
func Placeholders(text string) []string {
	var names []string
	for _, sub := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		key := sub[1]
		if key == "" {
			key = sub[2]
		}
		if !slices.Contains(names, key) {
			names = append(names, key)
		}
	}
	return names
}

// TargetName picks the document name from vars, or fallback when none of
// concept_name, section_name, integration_name, service_name or name is set.
func TargetName(vars Variables, fallback string) string {
	for _, key := range targetKeys {
		if val, ok := vars.Lookup(key); ok && strings.TrimSpace(val) != "" {
			return val
		}
	}
	return fallback
}

// Slugify lowercases s and collapses runs of other characters into dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}

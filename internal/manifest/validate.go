package manifest

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gorewood/docsmith/internal/workspace"
)

// Warning thresholds.
const (
	maxComfortableRoles = 4
	largeBudget         = 8000
	budgetSlack         = 1.5
)

// ErrInvalid is matched by every *InvalidError.
var ErrInvalid = errors.New("invalid manifest")

// InvalidError carries every finding for a manifest that failed validation.
type InvalidError struct {
	Path   string
	Errors []string
}

// Error implements the error interface.
func (e *InvalidError) Error() string {
	return fmt.Sprintf("manifest %s is invalid: %s", e.Path, strings.Join(e.Errors, "; "))
}

// Is makes errors.Is(err, ErrInvalid) match.
func (e *InvalidError) Is(target error) bool {
	return target == ErrInvalid
}

// Report is the outcome of validating one manifest.
// Valid is true iff Errors is empty; warnings never affect it. Fatal marks a
// manifest that could not be read or parsed, so no schema checks ran.
type Report struct {
	Path     string    `json:"path"`
	Valid    bool      `json:"valid"`
	Fatal    bool      `json:"fatal,omitempty"`
	Errors   []string  `json:"errors"`
	Warnings []string  `json:"warnings"`
	Manifest *Manifest `json:"manifest,omitempty"`
}

func (r *Report) errorf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if !slices.Contains(r.Errors, msg) {
		r.Errors = append(r.Errors, msg)
	}
}

func (r *Report) fatalf(format string, args ...any) {
	r.Fatal = true
	r.errorf(format, args...)
}

func (r *Report) warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if !slices.Contains(r.Warnings, msg) {
		r.Warnings = append(r.Warnings, msg)
	}
}

// Summary aggregates a batch of reports.
type Summary struct {
	Total    int `json:"total"`
	Valid    int `json:"valid"`
	Invalid  int `json:"invalid"`
	Fatal    int `json:"fatal"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
}

// BatchReport holds one report per input plus the summary.
type BatchReport struct {
	Results []*Report `json:"results"`
	Summary Summary   `json:"summary"`
}

// AllValid reports whether every manifest in the batch passed.
func (b *BatchReport) AllValid() bool {
	return b.Summary.Invalid == 0
}

// HasFatal reports whether any manifest in the batch could not be read or parsed.
func (b *BatchReport) HasFatal() bool {
	return b.Summary.Fatal > 0
}

// Validator checks manifests against a schema.
type Validator struct {
	schema *Schema
}

// NewValidator returns a Validator for schema.
func NewValidator(schema *Schema) *Validator {
	return &Validator{schema: schema}
}

// NewValidatorForDir returns a Validator using dir's schema file or the built-in schema.
func NewValidatorForDir(dir string) (*Validator, error) {
	schema, err := LoadSchema(dir)
	if err != nil {
		return nil, err
	}
	return NewValidator(schema), nil
}

// Load validates path and returns the typed manifest. An invalid manifest
// yields an *InvalidError and the full report.
func Load(path string) (*Manifest, *Report, error) {
	validator, err := NewValidatorForDir(filepath.Dir(path))
	if err != nil {
		return nil, nil, err
	}
	return validator.Load(path)
}

// Load validates path with v and returns the typed manifest.
func (v *Validator) Load(path string) (*Manifest, *Report, error) {
	report := v.Validate(path)
	if !report.Valid {
		return nil, report, &InvalidError{Path: path, Errors: report.Errors}
	}
	return report.Manifest, report, nil
}

// ValidateAll validates every path and summarises the results.
func (v *Validator) ValidateAll(paths []string) *BatchReport {
	batch := &BatchReport{Results: make([]*Report, 0, len(paths))}
	for _, path := range paths {
		report := v.Validate(path)
		batch.Results = append(batch.Results, report)
		batch.Summary.Total++
		if report.Valid {
			batch.Summary.Valid++
		} else {
			batch.Summary.Invalid++
		}
		if report.Fatal {
			batch.Summary.Fatal++
		}
		batch.Summary.Errors += len(report.Errors)
		batch.Summary.Warnings += len(report.Warnings)
	}
	return batch
}

// Validate checks one manifest file, accumulating every finding.
func (v *Validator) Validate(path string) *Report {
	report := &Report{Path: path, Errors: []string{}, Warnings: []string{}}

	data, err := os.ReadFile(path)
	if err != nil {
		report.fatalf("cannot read manifest: %v", err)
		return report
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		report.fatalf("parse error: %v", err)
		return report
	}
	if raw == nil {
		report.fatalf("parse error: manifest is empty")
		return report
	}

	for _, name := range v.schema.Required {
		if isMissing(raw, name) {
			report.errorf("missing required field: %s", name)
		}
	}
	for _, name := range slices.Sorted(maps.Keys(raw)) {
		if field, ok := v.schema.Properties[name]; ok {
			checkField(report, name, raw[name], field)
		}
	}

	checkBudgetConsistency(report, raw)
	checkRoles(report, raw)
	checkActivationRules(report, raw)
	checkTemplate(report, path, raw)
	addWarnings(report, raw)

	report.Valid = len(report.Errors) == 0
	if report.Valid {
		m, err := decode(data, path)
		if err != nil {
			report.fatalf("parse error: %v", err)
			report.Valid = false
			return report
		}
		report.Manifest = m
	}
	return report
}

func decode(data []byte, path string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m.Category == "" {
		m.Category = workspace.CategoryGeneral
	}
	m.Path = path
	return &m, nil
}

func isMissing(raw map[string]any, name string) bool {
	value, ok := raw[name]
	return !ok || value == nil
}

// checkField applies type, pattern, range, length and enum checks, then recurses.
func checkField(report *Report, path string, value any, field *Field) {
	if value == nil {
		return
	}
	if field.Type != "" && !hasType(value, field.Type) {
		report.errorf("%s: expected %s, got %s", path, field.Type, typeName(value))
		return
	}

	switch v := value.(type) {
	case string:
		if field.re != nil && !field.re.MatchString(v) {
			report.errorf("%s: %q does not match pattern %s", path, v, field.Pattern)
		}
	case []any:
		if field.MinItems != nil && len(v) < *field.MinItems {
			report.errorf("%s: has %d items, minimum is %d", path, len(v), *field.MinItems)
		}
		if field.MaxItems != nil && len(v) > *field.MaxItems {
			report.errorf("%s: has %d items, maximum is %d", path, len(v), *field.MaxItems)
		}
		if field.Items != nil {
			for i, item := range v {
				checkField(report, fmt.Sprintf("%s[%d]", path, i), item, field.Items)
			}
		}
	case map[string]any:
		for _, name := range field.Required {
			if isMissing(v, name) {
				report.errorf("%s: missing required field: %s", path, name)
			}
		}
		for _, name := range slices.Sorted(maps.Keys(v)) {
			if child, ok := field.Properties[name]; ok {
				checkField(report, path+"."+name, v[name], child)
			}
		}
	}

	if n, ok := asNumber(value); ok {
		if field.Minimum != nil && n < *field.Minimum {
			report.errorf("%s: %v is below minimum %v", path, value, *field.Minimum)
		}
		if field.Maximum != nil && n > *field.Maximum {
			report.errorf("%s: %v is above maximum %v", path, value, *field.Maximum)
		}
	}

	if len(field.Enum) > 0 && !enumContains(field.Enum, value) {
		report.errorf("%s: %s is not one of [%s]", path, quote(value), joinAny(field.Enum))
	}
}

func hasType(value any, t FieldType) bool {
	switch t {
	case TypeString:
		_, ok := value.(string)
		return ok
	case TypeInteger:
		_, ok := asInt(value)
		return ok
	case TypeNumber:
		_, ok := asNumber(value)
		return ok
	case TypeBoolean:
		_, ok := value.(bool)
		return ok
	case TypeArray:
		_, ok := value.([]any)
		return ok
	case TypeObject:
		_, ok := value.(map[string]any)
		return ok
	default:
		return true
	}
}

func typeName(value any) string {
	switch value.(type) {
	case string:
		return "string"
	case int, int64, uint64:
		return "integer"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", value)
	}
}

func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case uint64:
		if v > math.MaxInt {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}

func asNumber(value any) (float64, bool) {
	if n, ok := asInt(value); ok {
		return float64(n), true
	}
	f, ok := value.(float64)
	return f, ok
}

func enumContains(enum []any, value any) bool {
	for _, allowed := range enum {
		if fmt.Sprint(allowed) == fmt.Sprint(value) {
			return true
		}
	}
	return false
}

func joinAny(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}

func quote(value any) string {
	if s, ok := value.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprint(value)
}

// checkBudgetConsistency rejects section caps that cannot fit the budget.
func checkBudgetConsistency(report *Report, raw map[string]any) {
	budget, ok := asInt(raw["default_token_budget"])
	if !ok {
		return
	}
	total := 0
	for _, section := range sectionMaps(raw) {
		if n, ok := asInt(section["max_tokens"]); ok {
			total += n
		}
	}
	limit := float64(budget) * budgetSlack
	if float64(total) > limit {
		report.errorf("ai_output_format.sections: max_tokens total %d exceeds %.1f × default_token_budget (%d)",
			total, budgetSlack, int(limit))
	}
}

func sectionMaps(raw map[string]any) []map[string]any {
	format, _ := raw["ai_output_format"].(map[string]any)
	items, _ := format["sections"].([]any)
	var sections []map[string]any
	for _, item := range items {
		if section, ok := item.(map[string]any); ok {
			sections = append(sections, section)
		}
	}
	return sections
}

// checkRoles enforces the fixed role set and that rules only reference declared roles.
func checkRoles(report *Report, raw map[string]any) {
	declared := map[string]bool{}
	items, _ := raw["specialist_roles"].([]any)
	for i, item := range items {
		role, ok := item.(string)
		if !ok {
			continue
		}
		if !ValidRole(role) {
			report.errorf("specialist_roles[%d]: %q is not one of [%s]", i, role, roleList())
			continue
		}
		declared[role] = true
	}

	rules, _ := raw["lazy_activation_rules"].([]any)
	for i, item := range rules {
		rule, _ := item.(map[string]any)
		specialist, ok := rule["specialist"].(string)
		if !ok || specialist == "" {
			continue
		}
		if !declared[specialist] {
			report.errorf("lazy_activation_rules[%d].specialist: %q is not listed in specialist_roles", i, specialist)
		}
	}
}

func roleList() string {
	names := make([]string, len(Roles))
	for i, r := range Roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}

// checkActivationRules requires trigger, condition and specialist on every rule.
func checkActivationRules(report *Report, raw map[string]any) {
	rules, _ := raw["lazy_activation_rules"].([]any)
	for i, item := range rules {
		rule, ok := item.(map[string]any)
		if !ok {
			report.errorf("lazy_activation_rules[%d]: expected object, got %s", i, typeName(item))
			continue
		}
		for _, key := range []string{"trigger", "condition", "specialist"} {
			if s, _ := rule[key].(string); strings.TrimSpace(s) == "" {
				report.errorf("lazy_activation_rules[%d]: missing %s", i, key)
			}
		}
	}
}

// checkTemplate requires the template to exist and be readable.
func checkTemplate(report *Report, manifestPath string, raw map[string]any) {
	templatePath, ok := raw["template_path"].(string)
	if !ok || templatePath == "" {
		return
	}
	resolved := resolveTemplate(manifestPath, templatePath)

	info, err := os.Stat(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
		report.errorf("template_path: template not found: %s", resolved)
		return
	case err != nil:
		report.warnf("template_path: cannot stat %s: %v", resolved, err)
		report.errorf("template_path: template unreadable: %s", resolved)
		return
	case info.IsDir():
		report.errorf("template_path: %s is a directory", resolved)
		return
	}

	file, err := os.Open(resolved)
	if err != nil {
		report.warnf("template_path: %s exists but cannot be opened: %v", resolved, err)
		report.errorf("template_path: template unreadable: %s", resolved)
		return
	}
	_ = file.Close()
}

// addWarnings reports soft quality concerns.
func addWarnings(report *Report, raw map[string]any) {
	if roles, ok := raw["specialist_roles"].([]any); ok && len(roles) > maxComfortableRoles {
		report.warnf("specialist_roles: %d roles may complicate coordination", len(roles))
	}
	if rules, _ := raw["lazy_activation_rules"].([]any); len(rules) == 0 {
		report.warnf("lazy_activation_rules: none declared, all specialists will be loaded eagerly")
	}
	if budget, ok := asInt(raw["default_token_budget"]); ok && budget > largeBudget {
		report.warnf("default_token_budget: %d may impact performance", budget)
	}
}

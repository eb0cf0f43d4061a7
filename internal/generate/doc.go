// Package generate renders documentation from manifests.
//
// Each manifest produces two files: a human document holding the fully
// substituted template, and an AI document holding the same content cut down
// to the manifest's token budget, prefixed with YAML frontmatter.
//
// Placeholders use either {NAME} or {{name}}. Lookup tries the exact key and
// then a case-insensitive match; placeholders with no binding are left as is.
package generate

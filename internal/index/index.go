// Package index rebuilds the master index of AI documents.
//
// The index is always derived from the files on disk and rewritten whole.
// Concurrent rebuilds from separate processes are not coordinated; the last
// writer wins and the next rebuild repairs any mix.
package index

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/gorewood/docsmith/internal/generate"
	"github.com/gorewood/docsmith/internal/tokens"
	"github.com/gorewood/docsmith/internal/workspace"
)

// Pattern matches AI documents below the AI docs root.
const Pattern = "**/*" + workspace.AIDocSuffix

// Entry is one indexed AI document.
type Entry struct {
	Path     string             `json:"path"`
	Category workspace.Category `json:"category"`
	Manifest string             `json:"manifest,omitempty"`
	Tokens   int                `json:"tokens"`
}

// Summary describes a rebuilt index.
type Summary struct {
	IndexPath   string    `json:"index_path"`
	TotalFiles  int       `json:"total_files"`
	TotalTokens int       `json:"total_tokens"`
	Timestamp   time.Time `json:"timestamp"`
	Entries     []Entry   `json:"entries"`
}

// Builder rebuilds the master index for a workspace.
type Builder struct {
	root    workspace.Root
	counter *tokens.Counter
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// WithLogger sets the logger for unreadable documents.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBuilder returns a Builder. A nil counter uses the heuristic strategy.
func NewBuilder(root workspace.Root, counter *tokens.Counter, opts ...Option) *Builder {
	if counter == nil {
		counter = tokens.NewCounter(nil)
	}
	b := &Builder{root: root, counter: counter, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Update scans the AI docs tree and rewrites the master index.
func (b *Builder) Update() (*Summary, error) {
	entries, err := b.Scan()
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		IndexPath: b.root.Rel(b.root.IndexPath()),
		Timestamp: b.now().UTC().Truncate(time.Second),
		Entries:   entries,
	}
	for _, e := range entries {
		summary.TotalFiles++
		summary.TotalTokens += e.Tokens
	}

	content, err := render(summary)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(b.root.AIDocsPath(), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", b.root.AIDocsPath(), err)
	}
	if err := os.WriteFile(b.root.IndexPath(), []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("writing index: %w", err)
	}
	return summary, nil
}

// Scan lists the AI documents sorted by path without writing anything.
// A missing AI docs directory yields no entries.
func (b *Builder) Scan() ([]Entry, error) {
	aiRoot := b.root.AIDocsPath()
	if _, err := os.Stat(aiRoot); os.IsNotExist(err) {
		return []Entry{}, nil
	}

	matches, err := doublestar.Glob(os.DirFS(aiRoot), Pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", aiRoot, err)
	}
	slices.Sort(matches)

	entries := make([]Entry, 0, len(matches))
	for _, rel := range matches {
		if path.Base(rel) == workspace.IndexFile {
			continue
		}
		entry, err := b.entry(aiRoot, rel)
		if err != nil {
			b.logger.Warn("skipping unreadable document", "path", rel, "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (b *Builder) entry(aiRoot, rel string) (Entry, error) {
	full := filepath.Join(aiRoot, filepath.FromSlash(rel))
	data, err := fs.ReadFile(os.DirFS(aiRoot), rel)
	if err != nil {
		return Entry{}, err
	}

	entry := Entry{Path: rel, Category: workspace.CategoryFromDir(firstSegment(rel))}
	fm, body, ok, err := generate.ParseFrontmatter(string(data))
	if err != nil {
		b.logger.Debug("bad frontmatter, counting whole file", "path", full, "error", err)
	}
	if !ok {
		entry.Tokens = b.counter.Count(strings.TrimSpace(body)).Tokens
		return entry, nil
	}
	entry.Manifest = fm.Manifest
	if fm.Tokens != nil {
		entry.Tokens = *fm.Tokens
	} else {
		entry.Tokens = b.counter.Count(strings.TrimSpace(body)).Tokens
	}
	if fm.Category != "" {
		entry.Category = fm.Category
	}
	return entry, nil
}

func firstSegment(rel string) string {
	dir, _, found := strings.Cut(rel, "/")
	if !found {
		return ""
	}
	return dir
}

type indexHeader struct {
	GeneratedAt string `yaml:"generated_at"`
	TotalFiles  int    `yaml:"total_files"`
	TotalTokens int    `yaml:"total_tokens"`
}

func render(s *Summary) (string, error) {
	header, err := yaml.Marshal(indexHeader{
		GeneratedAt: s.Timestamp.Format(time.RFC3339),
		TotalFiles:  s.TotalFiles,
		TotalTokens: s.TotalTokens,
	})
	if err != nil {
		return "", fmt.Errorf("encoding index header: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	sb.Write(header)
	sb.WriteString("---\n\n# Master Index\n\n")
	if len(s.Entries) == 0 {
		sb.WriteString("No AI documents have been generated yet.\n")
		return sb.String(), nil
	}
	sb.WriteString("| Document | Category | Manifest | Tokens |\n")
	sb.WriteString("|----------|----------|----------|--------|\n")
	for _, e := range s.Entries {
		fmt.Fprintf(&sb, "| [%s](%s) | %s | %s | %d |\n", e.Path, e.Path, e.Category, e.Manifest, e.Tokens)
	}
	return sb.String(), nil
}

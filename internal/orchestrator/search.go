package orchestrator

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/gorewood/docsmith/internal/tokens"
	"github.com/gorewood/docsmith/internal/workspace"
)

// MaxMatchesPerFile caps the hits reported for one document.
const MaxMatchesPerFile = 5

// Match is one matching line with a line of context either side.
type Match struct {
	Line    int    `json:"line"`
	Text    string `json:"text"`
	Context string `json:"context"`
}

// FileMatches groups the matches in one document.
type FileMatches struct {
	Path    string  `json:"path"`
	Matches []Match `json:"matches"`
}

// SearchResult is the result of a search operation.
type SearchResult struct {
	Query        string        `json:"query"`
	Files        []FileMatches `json:"files"`
	TotalFiles   int           `json:"totalFiles"`
	TotalMatches int           `json:"totalMatches"`
	Skipped      []string      `json:"skipped,omitempty"`
}

// Search scans every markdown file under the human and AI docs roots for a
// case-insensitive substring. Unreadable or binary files are logged and
// listed in Skipped; the rest of the scan continues.
func Search(root workspace.Root, query string, logger *slog.Logger) (*SearchResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, fmt.Errorf("%w: query", ErrMissingParameter)
	}

	paths, err := markdownFiles(root)
	if err != nil {
		return nil, err
	}

	result := &SearchResult{Query: query, Files: []FileMatches{}}
	for _, path := range paths {
		matches, err := searchFile(path, needle)
		if err != nil {
			logger.Warn("skipping document", "path", root.Rel(path), "error", err)
			result.Skipped = append(result.Skipped, root.Rel(path))
			continue
		}
		if len(matches) == 0 {
			continue
		}
		result.Files = append(result.Files, FileMatches{Path: root.Rel(path), Matches: matches})
		result.TotalMatches += len(matches)
	}
	result.TotalFiles = len(result.Files)
	return result, nil
}

// markdownFiles lists *.md below the docs and AI docs roots, deduplicated and sorted.
func markdownFiles(root workspace.Root) ([]string, error) {
	var paths []string
	for _, dir := range []string{root.DocsPath(), root.AIDocsPath()} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		matches, err := doublestar.Glob(os.DirFS(dir), "**/*.md", doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", dir, err)
		}
		for _, rel := range matches {
			paths = append(paths, filepath.Join(dir, filepath.FromSlash(rel)))
		}
	}
	slices.Sort(paths)
	return slices.Compact(paths), nil
}

func searchFile(path, needle string) ([]Match, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close() //nolint:errcheck // read-only

	reader := bufio.NewReader(file)
	head, err := reader.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if tokens.IsBinary(head) {
		return nil, fmt.Errorf("%w: %s", tokens.ErrNotText, path)
	}

	var lines []string
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			lines = append(lines, strings.TrimRight(line, "\r\n"))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	var matches []Match
	for i, line := range lines {
		if !strings.Contains(strings.ToLower(line), needle) {
			continue
		}
		lo, hi := max(i-1, 0), min(i+2, len(lines))
		matches = append(matches, Match{
			Line:    i + 1,
			Text:    line,
			Context: strings.Join(lines[lo:hi], "\n"),
		})
		if len(matches) == MaxMatchesPerFile {
			break
		}
	}
	return matches, nil
}

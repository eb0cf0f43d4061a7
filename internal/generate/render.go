package generate

import (
	"regexp"
	"strings"

	"github.com/gorewood/docsmith/internal/manifest"
	"github.com/gorewood/docsmith/internal/tokens"
)

// Ellipsis marks content cut to fit a cap or budget.
const Ellipsis = "…"

// PreambleName labels the text before the first ## heading in reports.
const PreambleName = "preamble"

// undeclaredPriority ranks sections the manifest does not declare below every declared one.
const undeclaredPriority = -1

var (
	htmlComment = regexp.MustCompile(`(?s)<!--.*?-->`)
	blankRuns   = regexp.MustCompile(`\n{3,}`)
)

// block is the preamble or one ## section of the AI document.
type block struct {
	name     string
	text     string
	priority int
	preamble bool
}

// Rendering is the budgeted AI body and what was cut to produce it.
type Rendering struct {
	Body      string
	Tokens    int
	Dropped   []string
	Truncated []string
}

// RenderAI fits text into m's budget. Section caps apply first, then whole
// sections are dropped lowest priority first (undeclared sections before
// declared ones, later before earlier on ties), and finally the remaining
// text is cut. Section order is preserved and the preamble is never dropped.
func RenderAI(counter *tokens.Counter, m *manifest.Manifest, text string) Rendering {
	var r Rendering
	blocks := splitSections(m, clean(text))
	marker := counter.Count("\n" + Ellipsis).Tokens

	for i, b := range blocks {
		if b.preamble {
			continue
		}
		section, _, ok := m.Section(b.name)
		if !ok || section.MaxTokens <= 0 {
			continue
		}
		if counter.Count(b.text).Tokens <= section.MaxTokens {
			continue
		}
		blocks[i].text = cut(counter, b.text, section.MaxTokens-marker)
		r.Truncated = append(r.Truncated, b.name)
	}

	budget := tokens.ResolveBudget(m)
	for counter.Count(join(blocks)).Tokens > budget {
		victim := lowestPriority(blocks)
		if victim < 0 {
			break
		}
		r.Dropped = append(r.Dropped, blocks[victim].name)
		blocks = append(blocks[:victim], blocks[victim+1:]...)
	}

	body := join(blocks)
	if counter.Count(body).Tokens > budget && len(blocks) > 0 {
		body = cut(counter, body, budget-marker)
		last := blocks[len(blocks)-1].name
		if len(r.Truncated) == 0 || r.Truncated[len(r.Truncated)-1] != last {
			r.Truncated = append(r.Truncated, last)
		}
	}

	r.Body = body
	r.Tokens = counter.Count(body).Tokens
	return r
}

// clean strips HTML comments, trailing spaces and runs of blank lines.
func clean(text string) string {
	text = htmlComment.ReplaceAllString(text, "")
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	text = blankRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(text)
}

// splitSections cuts text at level-two headings. Fenced code is not scanned
// for headings.
func splitSections(m *manifest.Manifest, text string) []block {
	var blocks []block
	current := block{name: PreambleName, preamble: true}
	var lines []string
	inFence := false

	flush := func() {
		current.text = strings.TrimSpace(strings.Join(lines, "\n"))
		if current.text != "" || !current.preamble {
			blocks = append(blocks, current)
		}
		lines = nil
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
		}
		if !inFence && strings.HasPrefix(line, "## ") {
			flush()
			name := strings.TrimSpace(strings.TrimPrefix(line, "## "))
			current = block{name: name, priority: undeclaredPriority}
			if section, _, ok := m.Section(name); ok {
				current.priority = section.Priority
			}
		}
		lines = append(lines, line)
	}
	flush()
	return blocks
}

// lowestPriority returns the index of the next section to drop, or -1 when
// only the preamble is left.
func lowestPriority(blocks []block) int {
	victim := -1
	for i, b := range blocks {
		if b.preamble {
			continue
		}
		if victim < 0 || b.priority <= blocks[victim].priority {
			victim = i
		}
	}
	return victim
}

func join(blocks []block) string {
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = b.text
	}
	return strings.Join(parts, "\n\n")
}

// cut truncates text to limit tokens and appends the ellipsis marker.
func cut(counter *tokens.Counter, text string, limit int) string {
	kept := counter.Truncate(text, limit)
	if kept == "" {
		return Ellipsis
	}
	return kept + "\n" + Ellipsis
}

package tokens

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Limits and defaults.
const (
	// MaxFileSize is the largest file CountFile accepts.
	MaxFileSize int64 = 10 << 20
	// DefaultBudget applies when a budget source declares none.
	DefaultBudget = 5000

	sniffLen  = 512
	cacheSize = 256
)

// Sentinel errors for file input.
var (
	ErrFileTooLarge = errors.New("file too large")
	ErrNotText      = errors.New("not a text file")
)

// Details describes the measured text.
type Details struct {
	Characters int `json:"characters"`
	Words      int `json:"words"`
	Lines      int `json:"lines"`
	CodeBlocks int `json:"code_blocks"`
	InlineCode int `json:"inline_code"`
	URLs       int `json:"urls"`
}

// BudgetValidation reports how a count compares to a budget.
type BudgetValidation struct {
	Budget          int  `json:"budget"`
	WithinBudget    bool `json:"within_budget"`
	UsagePercentage int  `json:"usage_percentage"`
	Remaining       int  `json:"remaining"`
}

// Result is a token count.
type Result struct {
	Method  Method            `json:"method"`
	Tokens  int               `json:"tokens"`
	Model   string            `json:"model"`
	Details Details           `json:"details"`
	Path    string            `json:"path,omitempty"`
	Budget  *BudgetValidation `json:"budget_validation,omitempty"`
}

// BudgetSource supplies a token budget. *manifest.Manifest and Budget implement it.
type BudgetSource interface {
	TokenBudget() int
}

// Budget is a raw token budget.
type Budget int

// TokenBudget implements BudgetSource.
func (b Budget) TokenBudget() int { return int(b) }

// ResolveBudget returns the budget from src, or DefaultBudget when src is nil
// or declares no positive budget.
func ResolveBudget(src BudgetSource) int {
	if src == nil {
		return DefaultBudget
	}
	if b := src.TokenBudget(); b > 0 {
		return b
	}
	return DefaultBudget
}

// CheckBudget compares tokens against the budget from src.
func CheckBudget(tokens int, src BudgetSource) BudgetValidation {
	budget := ResolveBudget(src)
	return BudgetValidation{
		Budget:          budget,
		WithinBudget:    tokens <= budget,
		UsagePercentage: int(math.Round(float64(tokens) / float64(budget) * 100)),
		Remaining:       budget - tokens,
	}
}

// Counter counts tokens with a fixed strategy. It has no side effects.
type Counter struct {
	strategy    Strategy
	maxFileSize int64
	cache       *lru.Cache[[sha256.Size]byte, Result]
}

// Option configures a Counter.
type Option func(*Counter)

// WithMaxFileSize overrides MaxFileSize.
func WithMaxFileSize(n int64) Option {
	return func(c *Counter) {
		if n > 0 {
			c.maxFileSize = n
		}
	}
}

// NewCounter returns a Counter using strategy. A nil strategy means heuristic.
func NewCounter(strategy Strategy, opts ...Option) *Counter {
	if strategy == nil {
		strategy = HeuristicStrategy{}
	}
	cache, _ := lru.New[[sha256.Size]byte, Result](cacheSize)
	c := &Counter{
		strategy:    strategy,
		maxFileSize: MaxFileSize,
		cache:       cache,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Strategy returns the counter's strategy.
func (c *Counter) Strategy() Strategy { return c.strategy }

// Count counts tokens in text.
func (c *Counter) Count(text string) Result {
	key := sha256.Sum256([]byte(text))
	if cached, ok := c.cache.Get(key); ok {
		return cached
	}

	d := measure(text)
	var tokens int
	if _, ok := c.strategy.(HeuristicStrategy); ok {
		tokens = heuristicTokens(d)
	} else {
		tokens = c.strategy.Count(text)
	}

	result := Result{
		Method:  c.strategy.Method(),
		Tokens:  tokens,
		Model:   c.strategy.Model(),
		Details: d,
	}
	c.cache.Add(key, result)
	return result
}

// CountFile counts tokens in a text file of at most the configured size.
func (c *Counter) CountFile(path string) (Result, error) {
	text, err := c.readText(path)
	if err != nil {
		return Result{}, err
	}
	result := c.Count(text)
	result.Path = path
	return result, nil
}

// ValidateBudget counts path and attaches a budget validation against src.
// Exceeding the budget is not an error.
func (c *Counter) ValidateBudget(path string, src BudgetSource) (Result, error) {
	result, err := c.CountFile(path)
	if err != nil {
		return Result{}, err
	}
	check := CheckBudget(result.Tokens, src)
	result.Budget = &check
	return result, nil
}

// Truncate returns the longest line-aligned prefix of text that fits in
// maxTokens. When not even the first line fits, the exact strategy decodes
// the first maxTokens tokens of that line and the heuristic cuts it at a word
// boundary.
func (c *Counter) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	if c.Count(text).Tokens <= maxTokens {
		return text
	}

	lines := strings.Split(text, "\n")
	fit := c.searchPrefix(len(lines), maxTokens, func(n int) string {
		return strings.Join(lines[:n], "\n")
	})
	if fit > 0 {
		return strings.TrimRight(strings.Join(lines[:fit], "\n"), " \t\n")
	}

	if exact, ok := c.strategy.(*ExactStrategy); ok {
		return strings.TrimRight(exact.Prefix(lines[0], maxTokens), " \t")
	}

	words := strings.Fields(lines[0])
	fit = c.searchPrefix(len(words), maxTokens, func(n int) string {
		return strings.Join(words[:n], " ")
	})
	return strings.Join(words[:fit], " ")
}

// searchPrefix finds the largest n in [0, total] whose prefix fits.
// Token counts grow with prefix length, so binary search applies.
func (c *Counter) searchPrefix(total, maxTokens int, prefix func(int) string) int {
	lo, hi := 0, total
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if c.strategy.Count(prefix(mid)) <= maxTokens {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// readText reads a file after enforcing the size cap and sniffing for binary content.
func (c *Counter) readText(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("reading %s: is a directory", path)
	}
	if info.Size() > c.maxFileSize {
		return "", fmt.Errorf("%w: %s is %s (limit %s)", ErrFileTooLarge, path,
			humanize.IBytes(uint64(info.Size())), humanize.IBytes(uint64(c.maxFileSize)))
	}

	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close() //nolint:errcheck // read-only

	data, err := io.ReadAll(io.LimitReader(file, c.maxFileSize+1))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	if int64(len(data)) > c.maxFileSize {
		return "", fmt.Errorf("%w: %s grew past %s while reading", ErrFileTooLarge, path,
			humanize.IBytes(uint64(c.maxFileSize)))
	}
	if IsBinary(data) {
		return "", fmt.Errorf("%w: %s", ErrNotText, path)
	}
	return string(data), nil
}

// IsBinary reports whether the first 512 bytes contain NUL or control bytes
// other than tab, newline and carriage return.
func IsBinary(data []byte) bool {
	sample := data[:min(len(data), sniffLen)]
	if bytes.IndexByte(sample, 0) >= 0 {
		return true
	}
	for _, b := range sample {
		if b < 0x20 && b != '\t' && b != '\n' && b != '\r' {
			return true
		}
	}
	return false
}

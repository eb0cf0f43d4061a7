package tokens

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// Method names the counting strategy that produced a result.
type Method string

// Counting methods.
const (
	MethodExact     Method = "tiktoken"
	MethodHeuristic Method = "heuristic"
)

// Mode selects how SelectStrategy picks a strategy.
type Mode string

// Strategy selection modes.
const (
	ModeAuto      Mode = "auto"
	ModeExact     Mode = "exact"
	ModeHeuristic Mode = "heuristic"
)

// ParseMode parses a mode name. Empty means auto.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeExact:
		return ModeExact, nil
	case ModeHeuristic:
		return ModeHeuristic, nil
	default:
		return "", fmt.Errorf("unknown tokenizer mode %q (want auto, exact or heuristic)", s)
	}
}

// DefaultModel is the model whose encoding is tried first.
const DefaultModel = "gpt-4"

// EstimatedModel is reported as the model for heuristic counts.
const EstimatedModel = "estimated"

// Heuristic constants.
const (
	wordTokenRatio   = 1.33
	codeBlockTokens  = 50
	inlineCodeTokens = 2
	urlTokens        = 10
)

// Strategy counts tokens in text.
type Strategy interface {
	Method() Method
	// Model is the model name for exact strategies, EstimatedModel otherwise.
	Model() string
	Count(text string) int
}

// HeuristicStrategy estimates tokens from words plus structural adjustments.
type HeuristicStrategy struct{}

// Method implements Strategy.
func (HeuristicStrategy) Method() Method { return MethodHeuristic }

// Model implements Strategy.
func (HeuristicStrategy) Model() string { return EstimatedModel }

// Count implements Strategy.
func (HeuristicStrategy) Count(text string) int {
	d := measure(text)
	return heuristicTokens(d)
}

func heuristicTokens(d Details) int {
	base := int(math.Ceil(float64(d.Words) * wordTokenRatio))
	return base + d.CodeBlocks*codeBlockTokens + d.InlineCode*inlineCodeTokens + d.URLs*urlTokens
}

// ExactStrategy counts tokens with a tiktoken encoding.
type ExactStrategy struct {
	model string
	enc   *tiktoken.Tiktoken
}

var loaderOnce sync.Once

// NewExactStrategy loads the encoding for model. BPE ranks come from the
// embedded offline loader, so no network access is needed.
func NewExactStrategy(model string) (*ExactStrategy, error) {
	if model == "" {
		model = DefaultModel
	}
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Unknown model names may still be a raw encoding name like cl100k_base.
		var encErr error
		enc, encErr = tiktoken.GetEncoding(model)
		if encErr != nil {
			return nil, fmt.Errorf("loading tokenizer for %q: %w", model, err)
		}
	}
	return &ExactStrategy{model: model, enc: enc}, nil
}

// Method implements Strategy.
func (s *ExactStrategy) Method() Method { return MethodExact }

// Model implements Strategy.
func (s *ExactStrategy) Model() string { return s.model }

// Count implements Strategy.
func (s *ExactStrategy) Count(text string) int {
	return len(s.enc.Encode(text, nil, nil))
}

// Prefix decodes the first n tokens of text. A multi-byte character split
// by the cut is dropped.
func (s *ExactStrategy) Prefix(text string, n int) string {
	ids := s.enc.Encode(text, nil, nil)
	if len(ids) <= n {
		return text
	}
	return strings.ToValidUTF8(s.enc.Decode(ids[:max(n, 0)]), "")
}

// SelectStrategy picks the counting strategy once.
//
// In auto mode a tokenizer load failure falls back to the heuristic; the
// returned error then explains why and is informational only. In exact mode
// the error is fatal and the returned strategy is nil.
func SelectStrategy(mode Mode, model string) (Strategy, error) {
	switch mode {
	case ModeHeuristic:
		return HeuristicStrategy{}, nil
	case ModeExact:
		exact, err := NewExactStrategy(model)
		if err != nil {
			return nil, err
		}
		return exact, nil
	default:
		exact, err := NewExactStrategy(model)
		if err != nil {
			return HeuristicStrategy{}, fmt.Errorf("falling back to heuristic: %w", err)
		}
		return exact, nil
	}
}

var (
	fencedBlockRe = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRe  = regexp.MustCompile("`[^`\n]+`")
	urlRe         = regexp.MustCompile(`https?://[^\s<>()\[\]"'` + "`" + `]+`)
)

// measure computes the structural details of text.
func measure(text string) Details {
	d := Details{
		Characters: len([]rune(text)),
		Words:      countWords(text),
		Lines:      countLines(text),
		CodeBlocks: len(fencedBlockRe.FindAllStringIndex(text, -1)),
		URLs:       len(urlRe.FindAllStringIndex(text, -1)),
	}
	withoutFences := fencedBlockRe.ReplaceAllString(text, " ")
	d.InlineCode = len(inlineCodeRe.FindAllStringIndex(withoutFences, -1))
	return d
}

// countWords strips punctuation and symbols, then splits on whitespace.
func countWords(text string) int {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, text)
	return len(strings.Fields(stripped))
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	return strings.Count(strings.TrimSuffix(text, "\n"), "\n") + 1
}

// Package tokens estimates language-model token counts for documents.
//
// A Counter wraps one Strategy chosen once at startup:
//
//	strategy, reason := tokens.SelectStrategy(tokens.ModeAuto, "gpt-4")
//	counter := tokens.NewCounter(strategy)
//	result := counter.Count(text)
//
// ExactStrategy encodes text with a tiktoken BPE encoding. HeuristicStrategy
// multiplies the word count by 1.33 and adds flat costs for fenced code
// blocks, inline code spans and URLs. Result.Method records which one ran.
//
// Going over budget is reported in BudgetValidation, never as an error.
package tokens

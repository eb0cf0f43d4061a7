package orchestrator

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors surfaced in responses.
var (
	ErrMissingParameter = errors.New("missing required parameter")
	ErrUnknownCommand   = errors.New("unknown command")
)

// Operation is a named pipeline operation.
type Operation int

// Operations.
const (
	OpBootstrap Operation = iota
	OpExpand
	OpAnalyze
	OpUpdate
	OpIndex
	OpSearch
)

var operationNames = [...]string{
	OpBootstrap: "bootstrap",
	OpExpand:    "expand",
	OpAnalyze:   "analyze",
	OpUpdate:    "update",
	OpIndex:     "index",
	OpSearch:    "search",
}

// Operations lists every operation in declaration order.
func Operations() []Operation {
	return []Operation{OpBootstrap, OpExpand, OpAnalyze, OpUpdate, OpIndex, OpSearch}
}

// String returns the command name.
func (o Operation) String() string {
	if o < 0 || int(o) >= len(operationNames) {
		return fmt.Sprintf("Operation(%d)", int(o))
	}
	return operationNames[o]
}

// ParseOperation maps a command name to its Operation.
func ParseOperation(name string) (Operation, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, op := range Operations() {
		if op.String() == key {
			return op, nil
		}
	}
	return 0, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownCommand, name, strings.Join(Names(), ", "))
}

// Names lists the command names.
func Names() []string {
	names := make([]string, 0, len(operationNames))
	for _, op := range Operations() {
		names = append(names, op.String())
	}
	return names
}

// Parameter names the positional argument the operation requires, or ""
// when it takes none.
func (o Operation) Parameter() string {
	switch o {
	case OpExpand:
		return "concept"
	case OpAnalyze:
		return "integration"
	case OpUpdate:
		return "section"
	case OpSearch:
		return "query"
	case OpBootstrap, OpIndex:
		return ""
	default:
		return ""
	}
}

// Description is a one-line summary used in help text and tool listings.
func (o Operation) Description() string {
	switch o {
	case OpBootstrap:
		return "Generate documents for every manifest and rebuild the master index"
	case OpExpand:
		return "Generate concept and overview documents for a concept"
	case OpAnalyze:
		return "Generate integration and service documents for an integration"
	case OpUpdate:
		return "Regenerate section documents for a section"
	case OpIndex:
		return "Rebuild the master index"
	case OpSearch:
		return "Search the generated documentation"
	default:
		return ""
	}
}

package main

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gorewood/docsmith/internal/config"
	"github.com/gorewood/docsmith/internal/generate"
	"github.com/gorewood/docsmith/internal/index"
	"github.com/gorewood/docsmith/internal/orchestrator"
	"github.com/gorewood/docsmith/internal/output"
	"github.com/gorewood/docsmith/internal/tokens"
	"github.com/gorewood/docsmith/internal/workspace"
)

// envLogLevel sets the log level when --verbose is not given.
const envLogLevel = "DOCSMITH_LOG_LEVEL"

// env is everything a command needs to work on one workspace.
type env struct {
	root    workspace.Root
	cfg     *config.Config
	logger  *slog.Logger
	counter *tokens.Counter
}

// newPrinter creates a printer honouring --json and --color.
func newPrinter(cmd *cobra.Command) *output.Printer {
	mode, _ := output.ParseColorMode(stringFlag(cmd, "color", ""))
	isTTY := output.ResolveColorMode(mode, output.IsTTY(cmd.OutOrStdout()))
	return output.NewPrinter(cmd.OutOrStdout(), isJSONMode(cmd), isTTY).WithStderr(cmd.ErrOrStderr())
}

// newLogger writes text logs to w. Verbose forces debug level; otherwise
// DOCSMITH_LOG_LEVEL applies, defaulting to warn.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if v := strings.TrimSpace(os.Getenv(envLogLevel)); v != "" {
		var parsed slog.Level
		if err := parsed.UnmarshalText([]byte(v)); err == nil {
			level = parsed
		}
	}
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadEnv resolves the workspace at dir, loads dotenv files and config, and
// selects the token counting strategy.
//
// Dotenv resolution order (first match for each variable wins; variables
// already in the environment always take precedence):
//  1. <root>/.env.local
//  2. <root>/.env
//  3. <config dir>/env
func loadEnv(dir string, logger *slog.Logger) (*env, error) {
	root, err := workspace.New(dir)
	if err != nil {
		return nil, output.NewUserError(err.Error())
	}

	loaded, err := config.LoadEnv(root)
	if err != nil {
		return nil, output.NewSystemErrorWithCause(err.Error(), err)
	}
	for _, path := range loaded {
		logger.Debug("loaded env file", "path", path)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, output.NewUserError(err.Error())
	}
	if cfg.Path != "" {
		logger.Debug("loaded config", "path", cfg.Path)
	}
	root = cfg.Apply(root)

	strategy, err := tokens.SelectStrategy(cfg.Mode(), cfg.Model)
	if strategy == nil {
		return nil, output.NewSystemErrorWithCause(err.Error(), err)
	}
	if err != nil {
		logger.Info("tokenizer unavailable", "model", cfg.Model, "reason", err)
	}
	logger.Debug("token strategy selected", "method", strategy.Method(), "model", strategy.Model())

	return &env{
		root:    root,
		cfg:     cfg,
		logger:  logger,
		counter: tokens.NewCounter(strategy, tokens.WithMaxFileSize(int64(cfg.MaxFileSize))),
	}, nil
}

// loadCmdEnv is loadEnv driven by the --root and --verbose flags.
func loadCmdEnv(cmd *cobra.Command) (*env, error) {
	return loadEnv(stringFlag(cmd, "root", "."), newLogger(cmd.ErrOrStderr(), isVerbose(cmd)))
}

// newOrchestrator wires the generator and index builder for the workspace.
func (e *env) newOrchestrator() *orchestrator.Orchestrator {
	gen := generate.New(e.root, e.counter, generate.WithLogger(e.logger))
	idx := index.NewBuilder(e.root, e.counter, index.WithLogger(e.logger))
	return orchestrator.New(e.root, gen, idx, orchestrator.WithLogger(e.logger))
}

// variables merges configured variables under the given ones.
func (e *env) variables(vars generate.Variables) generate.Variables {
	return generate.Merge(e.cfg.Variables, vars)
}

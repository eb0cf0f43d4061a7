package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/gorewood/docsmith/internal/tokens"
	"github.com/gorewood/docsmith/internal/workspace"
)

// Environment overrides.
const (
	EnvModel     = "DOCSMITH_MODEL"
	EnvTokenizer = "DOCSMITH_TOKENIZER"
)

// ByteSize is a size in bytes. In YAML it may be an integer or a string
// such as "10 MiB".
type ByteSize int64

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *ByteSize) UnmarshalYAML(node *yaml.Node) error {
	var n int64
	if err := node.Decode(&n); err == nil {
		*b = ByteSize(n)
		return nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("line %d: byte size must be a number or a string", node.Line)
	}
	parsed, err := humanize.ParseBytes(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*b = ByteSize(parsed)
	return nil
}

// String formats the size for humans.
func (b ByteSize) String() string {
	return humanize.IBytes(uint64(b))
}

// Config holds project settings.
type Config struct {
	// Model selects the tiktoken encoding for exact counting.
	Model string `yaml:"model"`
	// Tokenizer is auto, exact or heuristic.
	Tokenizer   string            `yaml:"tokenizer"`
	MaxFileSize ByteSize          `yaml:"max_file_size"`
	ManifestDir string            `yaml:"manifest_dir"`
	DocsDir     string            `yaml:"docs_dir"`
	Variables   map[string]string `yaml:"variables"`

	// Path is the file the config was read from, empty for defaults.
	Path string `yaml:"-"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Model:       tokens.DefaultModel,
		Tokenizer:   string(tokens.ModeAuto),
		MaxFileSize: ByteSize(tokens.MaxFileSize),
		Variables:   map[string]string{},
	}
}

// Load reads .docsmith.yaml under root, when present, over the defaults and
// then applies environment overrides.
func Load(root workspace.Root) (*Config, error) {
	cfg := Default()

	path := root.ConfigPath()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		cfg.Path = path
	}

	if v := os.Getenv(EnvModel); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv(EnvTokenizer); v != "" {
		cfg.Tokenizer = v
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := tokens.ParseMode(c.Tokenizer); err != nil {
		return err
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("max_file_size must be positive, got %d", c.MaxFileSize)
	}
	for _, dir := range []string{c.ManifestDir, c.DocsDir} {
		clean := filepath.ToSlash(filepath.Clean(dir))
		if filepath.IsAbs(dir) || clean == ".." || strings.HasPrefix(clean, "../") {
			return fmt.Errorf("directory %q must be relative to the workspace root", dir)
		}
	}
	if strings.TrimSpace(c.Model) == "" {
		c.Model = tokens.DefaultModel
	}
	if c.Variables == nil {
		c.Variables = map[string]string{}
	}
	return nil
}

// Mode returns the parsed tokenizer mode.
func (c *Config) Mode() tokens.Mode {
	mode, _ := tokens.ParseMode(c.Tokenizer)
	return mode
}

// Apply returns root with the configured directory overrides.
func (c *Config) Apply(root workspace.Root) workspace.Root {
	return root.WithManifestDir(c.ManifestDir).WithDocsDir(c.DocsDir)
}

// EnvFiles lists the dotenv files read by LoadEnv, highest precedence first.
func EnvFiles(root workspace.Root) []string {
	files := []string{root.Path(".env.local"), root.Path(".env")}
	if dir := Dir(); dir != "" {
		files = append(files, filepath.Join(dir, "env"))
	}
	return files
}

// LoadEnv loads the dotenv files that exist. Variables already in the
// environment are never overwritten, so earlier files win over later ones.
func LoadEnv(root workspace.Root) ([]string, error) {
	var loaded []string
	for _, path := range EnvFiles(root) {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return loaded, fmt.Errorf("loading %s: %w", path, err)
		}
		loaded = append(loaded, path)
	}
	return loaded, nil
}

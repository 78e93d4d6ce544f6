package subagents

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/crewkit/crewkit/pkg/logger"
	"github.com/crewkit/crewkit/pkg/skills"
)

// subagentFrontmatter mirrors the hyphenated header keys of a subagent
// definition file
type subagentFrontmatter struct {
	Name            string   `mapstructure:"name"`
	Description     string   `mapstructure:"description"`
	Model           string   `mapstructure:"model"`
	Tools           []string `mapstructure:"tools"`
	AllowedTools    []string `mapstructure:"allowed-tools"`
	DisallowedTools []string `mapstructure:"disallowed-tools"`
	Skills          []string `mapstructure:"skills"`
	MaxTurns        int      `mapstructure:"max-turns"`
}

// Loader reads subagent definition files. Definitions share the skill
// file shape: YAML frontmatter plus a body that becomes the system
// prompt.
type Loader struct {
	projectDir string
	userDir    string
}

// LoaderOption configures a Loader
type LoaderOption func(*Loader) error

// WithProjectDir sets the project-scope agent directory
func WithProjectDir(dir string) LoaderOption {
	return func(l *Loader) error {
		l.projectDir = dir
		return nil
	}
}

// WithUserDir sets the user-scope agent directory
func WithUserDir(dir string) LoaderOption {
	return func(l *Loader) error {
		l.userDir = dir
		return nil
	}
}

// WithDefaultDirs sets the crewkit agent directory conventions
func WithDefaultDirs() LoaderOption {
	return func(l *Loader) error {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrap(err, "failed to get user home directory")
		}
		l.projectDir = filepath.Join(".crewkit", "agents")
		l.userDir = filepath.Join(homeDir, ".crewkit", "agents")
		return nil
	}
}

// NewLoader creates a loader. Without options the default directories
// are used.
func NewLoader(opts ...LoaderOption) (*Loader, error) {
	l := &Loader{}
	if len(opts) == 0 {
		opts = []LoaderOption{WithDefaultDirs()}
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// LoadDescriptor parses a single subagent definition file
func (l *Loader) LoadDescriptor(path string) (*Descriptor, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Name: path, Reason: err.Error()}
	}
	return ParseDescriptor(path, string(content))
}

// ParseDescriptor builds a descriptor from definition file content. The
// header is mapped from its hyphenated keys; the body becomes the
// system prompt.
func ParseDescriptor(path, content string) (*Descriptor, error) {
	metaData, body, err := skills.ParseDefinition([]byte(content))
	if err != nil {
		return nil, &ConfigError{Name: path, Reason: err.Error()}
	}

	var fm subagentFrontmatter
	if err := skills.DecodeHeader(metaData, &fm); err != nil {
		return nil, &ConfigError{Name: path, Reason: err.Error()}
	}

	if fm.Name == "" {
		fm.Name = strings.TrimSuffix(filepath.Base(path), ".md")
	}
	if !skills.ValidName(fm.Name) {
		return nil, &ConfigError{Name: fm.Name, Reason: "name must be a lowercase identifier (letters, digits, '-', '_')"}
	}
	if fm.Description == "" {
		return nil, &ConfigError{Name: fm.Name, Reason: "description is required in frontmatter"}
	}

	tools := fm.Tools
	if tools == nil {
		tools = fm.AllowedTools // accepted alias
	}

	return &Descriptor{
		Name:            fm.Name,
		Description:     fm.Description,
		Model:           fm.Model,
		Tools:           tools,
		DisallowedTools: fm.DisallowedTools,
		Prompt:          strings.TrimSpace(body),
		Skills:          fm.Skills,
		MaxTurns:        fm.MaxTurns,
		Path:            path,
	}, nil
}

// Discover scans the project then the user directory for definition
// files. First-seen names win and names already registered are skipped,
// never overwritten.
func (l *Loader) Discover(ctx context.Context, registered func(name string) bool) ([]*Descriptor, error) {
	var found []*Descriptor
	seen := make(map[string]bool)

	for _, dir := range []string{l.projectDir, l.userDir} {
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			logger.G(ctx).WithField("dir", dir).Debug("Agent directory not readable, skipping")
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
				continue
			}

			path := filepath.Join(dir, entry.Name())
			desc, err := l.LoadDescriptor(path)
			if err != nil {
				logger.G(ctx).WithField("path", path).WithError(err).Warn("Failed to load subagent definition, skipping")
				continue
			}

			if seen[desc.Name] || (registered != nil && registered(desc.Name)) {
				continue
			}
			seen[desc.Name] = true
			found = append(found, desc)
		}
	}

	return found, nil
}

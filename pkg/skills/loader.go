package skills

import (
	"bytes"
	"os"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
)

// SkillFileName is the definition file expected inside each skill directory
const SkillFileName = "SKILL.md"

// frontmatter mirrors the hyphenated header keys of a skill definition
type frontmatter struct {
	Name                   string   `mapstructure:"name"`
	Description            string   `mapstructure:"description"`
	AllowedTools           []string `mapstructure:"allowed-tools"`
	Tools                  []string `mapstructure:"tools"`
	Model                  string   `mapstructure:"model"`
	ExecutionMode          string   `mapstructure:"execution-mode"`
	Agent                  string   `mapstructure:"agent"`
	DisableModelInvocation bool     `mapstructure:"disable-model-invocation"`
	UserInvocable          *bool    `mapstructure:"user-invocable"`
	ArgumentHint           string   `mapstructure:"argument-hint"`
}

var knownHeaderKeys = map[string]bool{
	"name": true, "description": true, "allowed-tools": true, "tools": true,
	"model": true, "execution-mode": true, "agent": true,
	"disable-model-invocation": true, "user-invocable": true, "argument-hint": true,
}

// LoadDescriptor parses the header block of a skill definition into a
// Descriptor without touching the body (tier 1). Scope and trust are
// filled in by discovery; standalone callers get ScopeCustom defaults.
func LoadDescriptor(path string) (*Descriptor, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Cause: err}
	}

	metaData, err := parseHeader(content)
	if err != nil {
		return nil, &ParseError{Path: path, Cause: err}
	}

	var fm frontmatter
	if err := DecodeHeader(metaData, &fm); err != nil {
		return nil, &ParseError{Path: path, Cause: err}
	}

	if fm.Name == "" {
		return nil, &ValidationError{Path: path, Reason: "name is required in frontmatter"}
	}
	if !ValidName(fm.Name) {
		return nil, &ValidationError{Path: path, Reason: "name must be a lowercase identifier (letters, digits, '-', '_')"}
	}
	if fm.Description == "" {
		return nil, &ValidationError{Path: path, Reason: "description is required in frontmatter"}
	}

	mode := ModeNormal
	switch fm.ExecutionMode {
	case "", string(ModeNormal):
	case string(ModeFork):
		mode = ModeFork
	default:
		return nil, &ValidationError{Path: path, Reason: "execution-mode must be 'normal' or 'fork'"}
	}

	allowedTools := fm.AllowedTools
	if allowedTools == nil {
		allowedTools = fm.Tools // "tools" is an accepted alias
	}

	userInvocable := true
	if fm.UserInvocable != nil {
		userInvocable = *fm.UserInvocable
	}

	extra := make(map[string]interface{})
	for key, value := range metaData {
		if !knownHeaderKeys[key] {
			extra[key] = value
		}
	}

	d := &Descriptor{
		Name:                   fm.Name,
		Description:            fm.Description,
		Path:                   path,
		Scope:                  ScopeCustom,
		Trust:                  ScopeCustom.DefaultTrust(),
		AllowedTools:           allowedTools,
		Model:                  fm.Model,
		Mode:                   mode,
		Agent:                  fm.Agent,
		DisableModelInvocation: fm.DisableModelInvocation,
		UserInvocable:          userInvocable,
		ArgumentHint:           fm.ArgumentHint,
		Metadata:               extra,
	}
	return d, nil
}

// LoadBody returns the free-text body of a definition file (tier 2)
func LoadBody(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", &LoadError{Path: path, Cause: err}
	}
	return ExtractBody(string(content)), nil
}

// ParseDefinition splits definition file content into its frontmatter
// map and body text. Subagent definitions share this file shape.
func ParseDefinition(content []byte) (map[string]interface{}, string, error) {
	metaData, err := parseHeader(content)
	if err != nil {
		return nil, "", err
	}
	return metaData, ExtractBody(string(content)), nil
}

// parseHeader runs the markdown converter solely to extract frontmatter
func parseHeader(content []byte) (map[string]interface{}, error) {
	md := goldmark.New(goldmark.WithExtensions(meta.Meta))

	var buf bytes.Buffer
	pctx := parser.NewContext()
	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return nil, errors.Wrap(err, "failed to parse markdown")
	}

	metaData := meta.Get(pctx)
	if metaData == nil {
		return nil, errors.New("missing frontmatter")
	}
	return metaData, nil
}

// DecodeHeader maps the raw frontmatter onto the target struct. Comma
// separated strings are accepted wherever a list is expected.
func DecodeHeader(metaData map[string]interface{}, target interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		DecodeHook:       stringToTrimmedSliceHook(),
	})
	if err != nil {
		return errors.Wrap(err, "failed to build frontmatter decoder")
	}
	if err := dec.Decode(metaData); err != nil {
		return errors.Wrap(err, "failed to decode frontmatter")
	}
	return nil
}

// stringToTrimmedSliceHook splits comma separated strings into slices,
// trimming the whitespace "a, b" style headers carry
func stringToTrimmedSliceHook() mapstructure.DecodeHookFunc {
	return func(f reflect.Kind, t reflect.Kind, data interface{}) (interface{}, error) {
		if f != reflect.String || t != reflect.Slice {
			return data, nil
		}
		raw, ok := data.(string)
		if !ok || raw == "" {
			return data, nil
		}
		parts := strings.Split(raw, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out, nil
	}
}

// ExtractBody removes YAML frontmatter and returns the body text
func ExtractBody(content string) string {
	if !strings.HasPrefix(content, "---") {
		return content
	}

	lines := strings.Split(content, "\n")
	frontmatterEnd := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			frontmatterEnd = i
			break
		}
	}

	if frontmatterEnd == -1 {
		return content
	}

	return strings.TrimLeft(strings.Join(lines[frontmatterEnd+1:], "\n"), "\n")
}

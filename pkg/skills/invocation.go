package skills

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Arguments holds the parsed form of a raw invocation string
type Arguments struct {
	Raw        string
	Positional []string
	Named      map[string]string
}

// ParseArguments splits a raw invocation string into positional and
// named (key=value) arguments. Double-quoted tokens may contain spaces.
func ParseArguments(raw string) Arguments {
	args := Arguments{
		Raw:   strings.TrimSpace(raw),
		Named: make(map[string]string),
	}

	for _, token := range tokenize(args.Raw) {
		if key, value, ok := splitNamed(token); ok {
			args.Named[key] = value
			continue
		}
		args.Positional = append(args.Positional, token)
	}
	return args
}

func tokenize(raw string) []string {
	var tokens []string
	var current strings.Builder
	inQuote := false

	for _, r := range raw {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == ' ' && !inQuote:
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

// splitNamed recognizes key=value tokens where key is an identifier
func splitNamed(token string) (string, string, bool) {
	idx := strings.Index(token, "=")
	if idx <= 0 {
		return "", "", false
	}
	key := token[:idx]
	if !ValidName(strings.ToLower(key)) {
		return "", "", false
	}
	return key, token[idx+1:], true
}

var placeholderRe = regexp.MustCompile(`\$\{?([A-Za-z_][A-Za-z0-9_]*|[0-9]+)\}?`)

// Substitute replaces placeholders in a skill body with argument values.
// $1..$n map to positionals, $NAME to named arguments, and $ARGUMENTS to
// the raw string. Placeholders with no matching argument are replaced
// with an explicit unresolved marker so the gap surfaces to the caller.
func Substitute(body string, args Arguments) string {
	return placeholderRe.ReplaceAllStringFunc(body, func(match string) string {
		key := placeholderRe.FindStringSubmatch(match)[1]

		if key == "ARGUMENTS" {
			return args.Raw
		}

		if n, err := strconv.Atoi(key); err == nil {
			if n >= 1 && n <= len(args.Positional) {
				return args.Positional[n-1]
			}
			return unresolved(key)
		}

		if value, ok := args.Named[key]; ok {
			return value
		}
		return unresolved(key)
	})
}

func unresolved(key string) string {
	return fmt.Sprintf("<unresolved:$%s>", key)
}

// checkSource enforces invocation permissions for the given source
// against the descriptor's flags
func checkSource(desc *Descriptor, source InvocationSource) error {
	switch source {
	case SourceModel:
		if desc.DisableModelInvocation {
			return &InvocationError{
				Name:   desc.Name,
				Source: source,
				Reason: "model-initiated invocation is disabled for this skill",
			}
		}
	case SourceUser:
		if !desc.UserInvocable {
			return &InvocationError{
				Name:   desc.Name,
				Source: source,
				Reason: "user-initiated invocation is not permitted for this skill",
			}
		}
	default:
		return &InvocationError{
			Name:   desc.Name,
			Source: source,
			Reason: "unknown invocation source",
		}
	}
	return nil
}

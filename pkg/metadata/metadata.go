// Package metadata recovers a utility's description and declared command-line
// options from its source text. Sources are only ever read as text: nothing is
// imported, compiled or executed.
package metadata

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// FallbackDescription is reported when no description can be recovered.
const FallbackDescription = "No description available"

const (
	optionCall = "add_argument"
	parserCall = "ArgumentParser"
)

// OptionSpec describes one declared option of a utility.
type OptionSpec struct {
	// Key is the canonical option name with leading dashes stripped.
	Key string `json:"key" yaml:"key"`
	// Flag is the exact flag text used on the child command line. Empty for positional arguments.
	Flag       string `json:"flag,omitempty" yaml:"flag,omitempty"`
	Required   bool   `json:"required" yaml:"required"`
	Default    string `json:"default,omitempty" yaml:"default,omitempty"`
	HasDefault bool   `json:"-" yaml:"-"`
	Help       string `json:"help,omitempty" yaml:"help,omitempty"`
	// TakesValue is false for flag-only options (store_true and friends).
	TakesValue bool `json:"takes_value" yaml:"takes_value"`
	Positional bool `json:"positional,omitempty" yaml:"positional,omitempty"`
}

// Metadata is everything recovered from a single source file.
type Metadata struct {
	Description string
	Options     []OptionSpec
}

var (
	tripleDouble    = regexp.MustCompile(`(?s)"""(.*?)"""`)
	tripleSingle    = regexp.MustCompile(`(?s)'''(.*?)'''`)
	descriptionExpr = regexp.MustCompile(`description\s*=\s*(?:"([^"\n]+)"|'([^'\n]+)')`)
	keywordExpr     = regexp.MustCompile(`(?s)^([A-Za-z_][A-Za-z0-9_]*)\s*=\s*([^=].*)$`)
	flagExpr        = regexp.MustCompile(`^-{1,2}[A-Za-z0-9][A-Za-z0-9_.-]*$`)
)

// Actions that never consume a value on the command line.
var flagActions = map[string]struct{}{
	"store_true":   {},
	"store_false":  {},
	"store_const":  {},
	"append_const": {},
	"count":        {},
	"help":         {},
	"version":      {},
}

// ParseFile reads path once and extracts its metadata. When the file cannot be
// read the fallback metadata is returned together with the read error.
func ParseFile(path string) (Metadata, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return Metadata{Description: FallbackDescription}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(string(data)), nil
}

// Parse extracts metadata from source text.
func Parse(source string) Metadata {
	return Metadata{
		Description: ExtractDescription(source),
		Options:     ExtractOptions(source),
	}
}

// ExtractDescription returns the first non-blank line of the first
// triple-quoted block, else the description= literal passed to the argument
// parser, else FallbackDescription.
func ExtractDescription(source string) string {
	if block, ok := firstTripleQuoted(source); ok {
		if line := firstNonBlankLine(block); line != "" {
			return line
		}
	}

	for _, args := range findCalls(source, parserCall) {
		for _, arg := range splitArgs(args) {
			name, value, ok := keyword(arg)
			if !ok || name != "description" {
				continue
			}
			if text, ok := unquote(value); ok && strings.TrimSpace(text) != "" {
				return firstNonBlankLine(text)
			}
		}
	}

	if m := descriptionExpr.FindStringSubmatch(source); m != nil {
		if m[1] != "" {
			return m[1]
		}
		return m[2]
	}

	return FallbackDescription
}

// ExtractOptions returns the options registered through add_argument calls in
// declaration order. Calls that do not match the expected shape are skipped.
func ExtractOptions(source string) []OptionSpec {
	var (
		options []OptionSpec
		seen    = make(map[string]struct{})
	)
	for _, args := range findCalls(source, optionCall) {
		spec, ok := parseOption(args)
		if !ok {
			continue
		}
		if _, dup := seen[spec.Key]; dup {
			continue
		}
		seen[spec.Key] = struct{}{}
		options = append(options, spec)
	}
	return options
}

func parseOption(args string) (OptionSpec, bool) {
	var (
		tokens   []string
		keywords = make(map[string]string)
	)
	for _, arg := range splitArgs(args) {
		if name, value, ok := keyword(arg); ok {
			keywords[name] = value
			continue
		}
		if text, ok := unquote(arg); ok {
			tokens = append(tokens, strings.TrimSpace(text))
		}
	}
	if len(tokens) == 0 {
		return OptionSpec{}, false
	}

	spec := OptionSpec{TakesValue: true}
	for _, token := range tokens {
		if flagExpr.MatchString(token) {
			spec.Flag = token
		}
	}

	if spec.Flag != "" {
		spec.Key = strings.TrimLeft(spec.Flag, "-")
	} else {
		spec.Key = tokens[len(tokens)-1]
		spec.Positional = true
		if spec.Key == "" || strings.ContainsAny(spec.Key, " \t") {
			return OptionSpec{}, false
		}
	}

	if raw, ok := keywords["default"]; ok {
		if text, isLiteral := unquote(raw); isLiteral {
			spec.Default, spec.HasDefault = text, true
		} else if raw != "None" {
			spec.Default, spec.HasDefault = raw, true
		}
	}

	if raw, ok := keywords["help"]; ok {
		if text, isLiteral := unquote(raw); isLiteral {
			spec.Help = strings.Join(strings.Fields(text), " ")
		}
	}

	if raw, ok := keywords["action"]; ok {
		action := raw
		if text, isLiteral := unquote(raw); isLiteral {
			action = text
		}
		if _, flagOnly := flagActions[action]; flagOnly || strings.HasSuffix(action, "BooleanOptionalAction") {
			spec.TakesValue = false
		}
	}

	nargs := ""
	if raw, ok := keywords["nargs"]; ok {
		nargs = raw
		if text, isLiteral := unquote(raw); isLiteral {
			nargs = text
		}
		if nargs == "0" {
			spec.TakesValue = false
		}
	}

	required, explicit := keywords["required"]
	switch {
	case explicit:
		spec.Required = required == "True"
	case spec.Positional:
		spec.Required = nargs != "?" && nargs != "*" && !spec.HasDefault
	}

	return spec, true
}

func firstTripleQuoted(source string) (string, bool) {
	double := tripleDouble.FindStringSubmatchIndex(source)
	single := tripleSingle.FindStringSubmatchIndex(source)
	switch {
	case double == nil && single == nil:
		return "", false
	case single == nil || (double != nil && double[0] < single[0]):
		return source[double[2]:double[3]], true
	default:
		return source[single[2]:single[3]], true
	}
}

func firstNonBlankLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func keyword(arg string) (string, string, bool) {
	m := keywordExpr.FindStringSubmatch(arg)
	if m == nil {
		return "", "", false
	}
	return m[1], strings.TrimSpace(m[2]), true
}

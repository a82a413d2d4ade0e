package session

import (
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/tb0hdan/csak/pkg/metadata"
)

type valueKind int

const (
	kindString valueKind = iota
	kindFlag
)

// Value is an operator-supplied option value: either text or "flag present".
type Value struct {
	kind valueKind
	text string
}

// StringValue wraps a textual option value.
func StringValue(text string) Value {
	return Value{kind: kindString, text: text}
}

// FlagPresent marks a flag-only option as given, without a value.
func FlagPresent() Value {
	return Value{kind: kindFlag}
}

// IsFlag reports whether v is the "flag present" marker.
func (v Value) IsFlag() bool {
	return v.kind == kindFlag
}

// Text returns the textual value; empty for FlagPresent.
func (v Value) Text() string {
	return v.text
}

func (v Value) String() string {
	if v.IsFlag() {
		return "true"
	}
	return v.text
}

func (v Value) empty() bool {
	return !v.IsFlag() && v.text == ""
}

// Assignment is one configured option in the order it was first set.
type Assignment struct {
	Spec  metadata.OptionSpec
	Value Value
}

// InvalidOptionError reports a key the selected utility did not declare.
type InvalidOptionError struct {
	Key string
}

func (e *InvalidOptionError) Error() string {
	return fmt.Sprintf("invalid option %q", e.Key)
}

// Row is one line of the option table.
type Row struct {
	Key      string
	Default  string
	Required bool
	Value    string
	Help     string
}

type valueStore struct {
	order  []string
	values map[string]Value
}

func newValueStore() *valueStore {
	return &valueStore{values: make(map[string]Value)}
}

func (v *valueStore) set(key string, value Value) {
	if _, ok := v.values[key]; !ok {
		v.order = append(v.order, key)
	}
	v.values[key] = value
}

func (v *valueStore) unset(key string) {
	if _, ok := v.values[key]; !ok {
		return
	}
	delete(v.values, key)
	for i, k := range v.order {
		if k == key {
			v.order = append(v.order[:i], v.order[i+1:]...)
			break
		}
	}
}

func (s *Session) spec(key string) (metadata.OptionSpec, error) {
	if s.entry == nil {
		return metadata.OptionSpec{}, ErrNoToolSelected
	}
	for _, spec := range s.specs {
		if spec.Key == key {
			return spec, nil
		}
	}
	return metadata.OptionSpec{}, &InvalidOptionError{Key: key}
}

// SetOption stores value for a declared option. Undeclared keys are rejected
// without touching the stored values. A textual value on a flag-only option is
// kept and later passed through literally; FlagPresent is only accepted for
// flag-only options.
func (s *Session) SetOption(key string, value Value) error {
	spec, err := s.spec(key)
	if err != nil {
		return err
	}
	if value.IsFlag() && spec.TakesValue {
		return fmt.Errorf("%w: %s", ErrValueRequired, key)
	}
	s.values.set(key, value)
	return nil
}

// SetOptionText applies the console form "set <key> [value]". Without a value a
// flag-only option toggles between present and unset.
func (s *Session) SetOptionText(key, text string) (Value, error) {
	spec, err := s.spec(key)
	if err != nil {
		return Value{}, err
	}
	if text != "" {
		value := StringValue(text)
		s.values.set(key, value)
		return value, nil
	}
	if spec.TakesValue {
		return Value{}, fmt.Errorf("%w: %s", ErrValueRequired, key)
	}
	if current, ok := s.values.values[key]; ok && current.IsFlag() {
		s.values.unset(key)
		return Value{}, nil
	}
	value := FlagPresent()
	s.values.set(key, value)
	return value, nil
}

// UnsetOption removes a configured value.
func (s *Session) UnsetOption(key string) error {
	if _, err := s.spec(key); err != nil {
		return err
	}
	s.values.unset(key)
	return nil
}

// UnsetAll drops every configured value of the selected utility.
func (s *Session) UnsetAll() {
	s.values = newValueStore()
}

// Value returns the configured value of key.
func (s *Session) Value(key string) (Value, bool) {
	value, ok := s.values.values[key]
	return value, ok
}

// Assignments returns the configured options in insertion order.
func (s *Session) Assignments() []Assignment {
	assignments := make([]Assignment, 0, len(s.values.order))
	for _, key := range s.values.order {
		spec, err := s.spec(key)
		if err != nil {
			continue
		}
		assignments = append(assignments, Assignment{Spec: spec, Value: s.values.values[key]})
	}
	return assignments
}

// MissingRequired returns the required keys without a non-empty value.
func (s *Session) MissingRequired() mapset.Set[string] {
	required := mapset.NewSet[string]()
	for _, spec := range s.specs {
		if spec.Required {
			required.Add(spec.Key)
		}
	}
	present := mapset.NewSet[string]()
	for key, value := range s.values.values {
		if !value.empty() {
			present.Add(key)
		}
	}
	return required.Difference(present)
}

// SortedKeys renders a key set deterministically.
func SortedKeys(keys mapset.Set[string]) []string {
	sorted := keys.ToSlice()
	sort.Strings(sorted)
	return sorted
}

// CurrentTable returns the option table in declaration order.
func (s *Session) CurrentTable() []Row {
	rows := make([]Row, 0, len(s.specs))
	for _, spec := range s.specs {
		row := Row{
			Key:      spec.Key,
			Default:  spec.Default,
			Required: spec.Required,
			Help:     spec.Help,
		}
		if value, ok := s.values.values[spec.Key]; ok {
			row.Value = value.String()
		}
		if !spec.TakesValue && row.Default == "" {
			row.Default = "false"
		}
		rows = append(rows, row)
	}
	return rows
}

// Keys returns the declared option keys, used for completion.
func (s *Session) Keys() []string {
	keys := make([]string, 0, len(s.specs))
	for _, spec := range s.specs {
		keys = append(keys, spec.Key)
	}
	return keys
}

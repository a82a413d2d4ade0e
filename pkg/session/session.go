// Package session holds the operator's current selection and the option values
// configured for the selected utility.
package session

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tb0hdan/csak/pkg/catalog"
	"github.com/tb0hdan/csak/pkg/metadata"
)

var (
	ErrIndexOutOfRange = errors.New("no such index")
	ErrUnknownTool     = errors.New("no such tool")
	ErrUnknownCategory = errors.New("no such module")
	ErrNoToolSelected  = errors.New("no tool selected")
	ErrValueRequired   = errors.New("option requires a value")
)

// State is the selection state of a session.
type State int

const (
	Idle State = iota
	CategorySelected
	UtilitySelected
)

func (s State) String() string {
	switch s {
	case CategorySelected:
		return "category-selected"
	case UtilitySelected:
		return "utility-selected"
	default:
		return "idle"
	}
}

// OptionLoader recovers the declared options of a utility source.
type OptionLoader func(path string) ([]metadata.OptionSpec, error)

// LoadOptions is the default OptionLoader, backed by static source extraction.
func LoadOptions(path string) ([]metadata.OptionSpec, error) {
	meta, err := metadata.ParseFile(path)
	return meta.Options, err
}

// Session is one operator's selection and option values. It is not safe for
// concurrent use; every front-end owns its sessions.
type Session struct {
	id       string
	logger   zerolog.Logger
	catalog  *catalog.Catalog
	load     OptionLoader
	category string
	entry    *catalog.Entry
	specs    []metadata.OptionSpec
	values   *valueStore
}

// New creates an idle session over cat. A nil loader selects LoadOptions.
func New(logger zerolog.Logger, cat *catalog.Catalog, load OptionLoader) *Session {
	if load == nil {
		load = LoadOptions
	}
	id := uuid.NewString()
	return &Session{
		id:      id,
		logger:  logger.With().Str("component", "session").Str("session", id).Logger(),
		catalog: cat,
		load:    load,
		values:  newValueStore(),
	}
}

// ID identifies the session in run history.
func (s *Session) ID() string {
	return s.id
}

// Catalog returns the catalog the session selects from.
func (s *Session) Catalog() *catalog.Catalog {
	return s.catalog
}

// State reports the current selection state.
func (s *Session) State() State {
	switch {
	case s.entry != nil:
		return UtilitySelected
	case s.category != "":
		return CategorySelected
	default:
		return Idle
	}
}

// Category returns the selected category, empty when idle.
func (s *Session) Category() string {
	return s.category
}

// Selected returns the selected utility.
func (s *Session) Selected() (catalog.Entry, bool) {
	if s.entry == nil {
		return catalog.Entry{}, false
	}
	return *s.entry, true
}

// Specs returns the declared options of the selected utility.
func (s *Session) Specs() []metadata.OptionSpec {
	return s.specs
}

// SelectByIndex selects the utility at a catalog position.
func (s *Session) SelectByIndex(index int) error {
	entry, ok := s.catalog.At(index)
	if !ok {
		return fmt.Errorf("%w %d", ErrIndexOutOfRange, index)
	}
	s.selectEntry(entry)
	return nil
}

// SelectByPath selects the utility named tool in category.
func (s *Session) SelectByPath(category, tool string) error {
	entry, ok := s.catalog.Lookup(category, tool)
	if !ok {
		return fmt.Errorf("%w %s/%s", ErrUnknownTool, category, tool)
	}
	s.selectEntry(entry)
	return nil
}

// SelectCategory selects a category and drops any utility selection.
func (s *Session) SelectCategory(category string) error {
	if !s.catalog.HasCategory(category) {
		return fmt.Errorf("%w %s", ErrUnknownCategory, category)
	}
	s.category = category
	s.clearUtility()
	s.logger.Debug().Msgf("selected category %s", category)
	return nil
}

// SelectTool selects a utility by name inside the selected category. Without a
// selected category the name must be unique across the catalog.
func (s *Session) SelectTool(tool string) error {
	if s.category != "" {
		return s.SelectByPath(s.category, tool)
	}
	matches := s.catalog.FindByName(tool)
	switch len(matches) {
	case 0:
		return fmt.Errorf("%w %s", ErrUnknownTool, tool)
	case 1:
		s.selectEntry(matches[0])
		return nil
	default:
		return fmt.Errorf("%w %s: name is ambiguous, use <module>/<tool>", ErrUnknownTool, tool)
	}
}

// Back moves one step towards idle.
func (s *Session) Back() {
	switch {
	case s.entry != nil:
		s.clearUtility()
	case s.category != "":
		s.category = ""
	}
}

// ReplaceCatalog swaps in a freshly scanned catalog. The selection survives only
// when it still exists; option values are always cleared.
func (s *Session) ReplaceCatalog(cat *catalog.Catalog) {
	s.catalog = cat
	if s.entry != nil {
		if entry, ok := cat.Lookup(s.entry.Category, s.entry.Name); ok {
			s.selectEntry(entry)
			return
		}
	}
	s.clearUtility()
	if s.category != "" && !cat.HasCategory(s.category) {
		s.category = ""
	}
}

func (s *Session) selectEntry(entry catalog.Entry) {
	specs, err := s.load(entry.Path)
	if err != nil {
		s.logger.Warn().Err(err).Msgf("failed to load options for %s", entry.ID())
	}
	s.category = entry.Category
	s.entry = &entry
	s.specs = specs
	s.values = newValueStore()
	s.logger.Debug().Msgf("selected %s with %d options", entry.ID(), len(specs))
}

func (s *Session) clearUtility() {
	s.entry = nil
	s.specs = nil
	s.values = newValueStore()
}

// Package catalog discovers utilities laid out as <root>/<category>/<utility><ext>.
package catalog

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	ignore "github.com/sabhiram/go-gitignore"
	"github.com/tb0hdan/csak/pkg/metadata"
	"github.com/tb0hdan/csak/pkg/types"
)

// ErrDirectoryNotFound is returned when the scan root does not exist.
var ErrDirectoryNotFound = errors.New("scripts directory not found")

// Category description files, in resolution order.
var categoryDescriptionFiles = []string{"README.md", "description.txt"}

// Entry identifies one discovered utility.
type Entry struct {
	Index       int    `json:"index" yaml:"index"`
	Category    string `json:"category" yaml:"category"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Path        string `json:"path" yaml:"path"`
}

// ID returns the "<category>/<name>" form used by the use command.
func (e Entry) ID() string {
	return e.Category + "/" + e.Name
}

// Category is one top-level grouping directory.
type Category struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// Catalog is the ordered, immutable result of a scan.
type Catalog struct {
	Root       string     `json:"root" yaml:"root"`
	Categories []Category `json:"categories" yaml:"categories"`
	Entries    []Entry    `json:"utilities" yaml:"utilities"`
}

// Len returns the number of utilities.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Entries)
}

// At returns the entry with the given positional index.
func (c *Catalog) At(index int) (Entry, bool) {
	if c == nil || index < 0 || index >= len(c.Entries) {
		return Entry{}, false
	}
	return c.Entries[index], true
}

// Lookup finds a utility by category and name.
func (c *Catalog) Lookup(category, name string) (Entry, bool) {
	if c == nil {
		return Entry{}, false
	}
	for _, entry := range c.Entries {
		if entry.Category == category && entry.Name == name {
			return entry, true
		}
	}
	return Entry{}, false
}

// HasCategory reports whether the category was discovered, with or without utilities.
func (c *Catalog) HasCategory(name string) bool {
	if c == nil {
		return false
	}
	for _, category := range c.Categories {
		if category.Name == name {
			return true
		}
	}
	return false
}

// InCategory returns the utilities of one category in catalog order.
func (c *Catalog) InCategory(name string) []Entry {
	if c == nil {
		return nil
	}
	var entries []Entry
	for _, entry := range c.Entries {
		if entry.Category == name {
			entries = append(entries, entry)
		}
	}
	return entries
}

// FindByName returns every utility called name, across all categories.
func (c *Catalog) FindByName(name string) []Entry {
	if c == nil {
		return nil
	}
	var entries []Entry
	for _, entry := range c.Entries {
		if entry.Name == name {
			entries = append(entries, entry)
		}
	}
	return entries
}

// Scanner walks a scripts root and builds catalogs.
type Scanner struct {
	logger    zerolog.Logger
	extension string
}

// NewScanner creates a scanner recognising utility sources by extension.
func NewScanner(logger zerolog.Logger, extension string) *Scanner {
	if extension == "" {
		extension = types.DefaultExtension
	}
	return &Scanner{
		logger:    logger.With().Str("component", "catalog").Logger(),
		extension: extension,
	}
}

// Scan builds the catalog for root. Missing descriptions and unreadable
// sources never fail the scan.
func (s *Scanner) Scan(root string) (*Catalog, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, root)
	}

	matcher := s.loadIgnore(root)

	dirs, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", root, err)
	}

	catalog := &Catalog{Root: root}
	for _, dir := range sortedNames(dirs, true) {
		if skipName(dir) || ignored(matcher, dir+"/") {
			continue
		}
		categoryPath := filepath.Join(root, dir)
		catalog.Categories = append(catalog.Categories, Category{
			Name:        dir,
			Description: categoryDescription(categoryPath),
		})

		files, err := os.ReadDir(categoryPath)
		if err != nil {
			s.logger.Warn().Err(err).Msgf("skipping unreadable category %s", dir)
			continue
		}
		for _, file := range sortedNames(files, false) {
			if skipName(file) || !strings.HasSuffix(file, s.extension) || ignored(matcher, dir+"/"+file) {
				continue
			}
			path := filepath.Join(categoryPath, file)
			meta, err := metadata.ParseFile(path)
			if err != nil {
				s.logger.Debug().Err(err).Msgf("no metadata for %s", path)
			}
			catalog.Entries = append(catalog.Entries, Entry{
				Index:       len(catalog.Entries),
				Category:    dir,
				Name:        strings.TrimSuffix(file, s.extension),
				Description: meta.Description,
				Path:        path,
			})
		}
	}

	s.logger.Debug().Msgf("scanned %s: %d categories, %d utilities", root, len(catalog.Categories), len(catalog.Entries))
	return catalog, nil
}

func (s *Scanner) loadIgnore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, types.IgnoreFileName)
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	matcher, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		s.logger.Warn().Err(err).Msgf("failed to load %s", path)
		return nil
	}
	return matcher
}

func ignored(matcher *ignore.GitIgnore, rel string) bool {
	return matcher != nil && matcher.MatchesPath(rel)
}

func sortedNames(entries []os.DirEntry, dirs bool) []string {
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() == dirs {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names
}

func skipName(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "__")
}

func categoryDescription(dir string) string {
	for _, name := range categoryDescriptionFiles {
		if line, ok := firstLine(filepath.Join(dir, name)); ok {
			return line
		}
	}
	return metadata.FallbackDescription
}

func firstLine(path string) (string, bool) {
	file, err := os.Open(path) //nolint:gosec
	if err != nil {
		return "", false
	}
	defer func() {
		_ = file.Close()
	}()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line, true
		}
	}
	return "", false
}

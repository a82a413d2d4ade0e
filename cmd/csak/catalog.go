package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/tb0hdan/csak/pkg/catalog"
	"github.com/tb0hdan/csak/pkg/metadata"
	"gopkg.in/yaml.v3"
)

type catalogTool struct {
	Index       int                   `json:"index" yaml:"index"`
	Name        string                `json:"name" yaml:"name"`
	Description string                `json:"description" yaml:"description"`
	Path        string                `json:"path" yaml:"path"`
	Options     []metadata.OptionSpec `json:"options" yaml:"options"`
}

type catalogModule struct {
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Tools       []catalogTool `json:"tools" yaml:"tools"`
}

type catalogDocument struct {
	Root    string          `json:"root" yaml:"root"`
	Total   int             `json:"total" yaml:"total"`
	Modules []catalogModule `json:"modules" yaml:"modules"`
}

func newCatalogCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the discovered utilities and their options",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := catalog.NewScanner(a.logger, a.cfg.Extension).Scan(a.cfg.ScriptsDir)
			if err != nil {
				return err
			}
			return writeCatalog(cmd.OutOrStdout(), buildCatalogDocument(a.logger, cat), format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format: yaml or json")
	return cmd
}

func buildCatalogDocument(logger zerolog.Logger, cat *catalog.Catalog) catalogDocument {
	doc := catalogDocument{Root: cat.Root, Total: cat.Len(), Modules: []catalogModule{}}
	for _, category := range cat.Categories {
		module := catalogModule{Name: category.Name, Description: category.Description, Tools: []catalogTool{}}
		for _, entry := range cat.InCategory(category.Name) {
			meta, err := metadata.ParseFile(entry.Path)
			if err != nil {
				logger.Warn().Err(err).Msgf("failed to read options of %s", entry.ID())
			}
			options := meta.Options
			if options == nil {
				options = []metadata.OptionSpec{}
			}
			module.Tools = append(module.Tools, catalogTool{
				Index:       entry.Index,
				Name:        entry.Name,
				Description: entry.Description,
				Path:        entry.Path,
				Options:     options,
			})
		}
		doc.Modules = append(doc.Modules, module)
	}
	return doc
}

func writeCatalog(w io.Writer, doc catalogDocument, format string) error {
	switch format {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode catalog: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode catalog: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format %q, use yaml or json", format)
	}
}

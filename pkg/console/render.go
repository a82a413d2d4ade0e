package console

import (
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/chzyer/readline"
	"github.com/olekukonko/tablewriter"
	"github.com/tb0hdan/csak/pkg/catalog"
	"github.com/tb0hdan/csak/pkg/models"
)

type styles struct {
	module   lipgloss.Style
	category lipgloss.Style
	tool     lipgloss.Style
	index    lipgloss.Style
	ok       lipgloss.Style
	fail     lipgloss.Style
}

// newStyles binds styles to w so colour is dropped when w is not a terminal.
func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		module:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		category: r.NewStyle().Foreground(lipgloss.Color("12")),
		tool:     r.NewStyle().Foreground(lipgloss.Color("9")),
		index:    r.NewStyle().Foreground(lipgloss.Color("8")),
		ok:       r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		fail:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
	}
}

func (c *Console) newTable(header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(c.cfg.Out)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetColumnSeparator("")
	table.SetCenterSeparator("")
	table.SetRowSeparator("-")
	table.SetTablePadding("  ")
	return table
}

func (c *Console) renderCatalog(cat *catalog.Catalog) {
	if cat.Len() == 0 && len(cat.Categories) == 0 {
		c.printf("No tools found in %s\n", cat.Root)
		return
	}
	for _, category := range cat.Categories {
		c.printf("%s %s\n", c.styles.module.Render(category.Name), category.Description)
		for _, entry := range cat.InCategory(category.Name) {
			c.printf("  %s %s - %s\n", c.styles.index.Render("["+strconv.Itoa(entry.Index)+"]"), entry.Name, entry.Description)
		}
		c.printf("\n")
	}
}

func (c *Console) renderModules(cat *catalog.Catalog) {
	if len(cat.Categories) == 0 {
		c.printf("No modules found in %s\n", cat.Root)
		return
	}
	table := c.newTable("Module", "Tools", "Description")
	for _, category := range cat.Categories {
		table.Append([]string{category.Name, strconv.Itoa(len(cat.InCategory(category.Name))), category.Description})
	}
	table.Render()
}

func (c *Console) renderTools(entries []catalog.Entry, qualified bool) {
	if len(entries) == 0 {
		c.printf("No tools found\n")
		return
	}
	table := c.newTable("#", "Tool", "Description")
	for _, entry := range entries {
		name := entry.Name
		if qualified {
			name = entry.ID()
		}
		table.Append([]string{strconv.Itoa(entry.Index), name, entry.Description})
	}
	table.Render()
}

func (c *Console) renderOptions() {
	entry, _ := c.session.Selected()
	rows := c.session.CurrentTable()
	if len(rows) == 0 {
		c.printf("%s declares no options\n", entry.ID())
		return
	}
	table := c.newTable("Name", "Current", "Default", "Required", "Description")
	for _, row := range rows {
		required := "no"
		if row.Required {
			required = "yes"
		}
		table.Append([]string{row.Key, row.Value, row.Default, required, row.Help})
	}
	table.Render()
}

func (c *Console) renderHistory(records []models.RunRecord, total int64) {
	if len(records) == 0 {
		c.printf("No runs recorded\n")
		return
	}
	table := c.newTable("ID", "When", "Tool", "Status", "Duration", "Command")
	for _, record := range records {
		table.Append([]string{
			strconv.FormatUint(uint64(record.ID), 10),
			record.CreatedAt.Local().Format(time.DateTime),
			record.ToolID(),
			record.Status(),
			(time.Duration(record.DurationMs) * time.Millisecond).String(),
			record.CommandLine,
		})
	}
	table.Render()
	c.printf("Showing %d of %d runs\n", len(records), total)
}

// completer offers command names plus live tool and option names.
func (c *Console) completer() *readline.PrefixCompleter {
	tools := func(string) []string {
		cat := c.session.Catalog()
		names := make([]string, 0, cat.Len())
		for _, entry := range cat.Entries {
			names = append(names, entry.ID())
		}
		return names
	}
	modules := func(string) []string {
		cat := c.session.Catalog()
		names := make([]string, 0, len(cat.Categories))
		for _, category := range cat.Categories {
			names = append(names, category.Name)
		}
		return names
	}
	options := func(string) []string {
		return c.session.Keys()
	}

	return readline.NewPrefixCompleter(
		readline.PcItem("list", readline.PcItem("modules"), readline.PcItem("tools")),
		readline.PcItem("use",
			readline.PcItem("module", readline.PcItemDynamic(modules)),
			readline.PcItem("tool"),
			readline.PcItemDynamic(tools),
		),
		readline.PcItem("show", readline.PcItem("options"), readline.PcItem("info")),
		readline.PcItem("set", readline.PcItemDynamic(options)),
		readline.PcItem("unset", readline.PcItem("all"), readline.PcItemDynamic(options)),
		readline.PcItem("run"),
		readline.PcItem("back"),
		readline.PcItem("rescan"),
		readline.PcItem("history"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
		readline.PcItem("quit"),
	)
}

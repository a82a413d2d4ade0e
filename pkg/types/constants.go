package types

const (
	// MaxDefaultLines is the number of output lines returned to MCP clients when no limit is given.
	MaxDefaultLines = 200
	// MaxAllowedLines caps the max_lines parameter of MCP tools.
	MaxAllowedLines = 100000

	// DefaultExtension identifies utility sources inside a category directory.
	DefaultExtension = ".py"
	// DefaultInterpreter launches utility sources.
	DefaultInterpreter = "python3"
	// DefaultScriptsDir is the scripts root used when none is configured.
	DefaultScriptsDir = "./modules"
	// IgnoreFileName holds gitignore-style patterns excluded from scans.
	IgnoreFileName = ".csakignore"

	// ModeStream relays child output as it is produced.
	ModeStream = "stream"
	// ModeCapture buffers child output into the execution result.
	ModeCapture = "capture"

	// FrontendConsole and FrontendMCP tag run history records.
	FrontendConsole = "console"
	FrontendMCP     = "mcp"
)

package tools

import (
	"fmt"
	"strings"

	"github.com/tb0hdan/csak/pkg/types"
)

// Paginate returns the window of output starting at offset and a notice when
// the window does not cover everything. A zero maxLines selects the default.
func Paginate(output string, maxLines, offset int) (string, string) {
	if maxLines <= 0 {
		maxLines = types.MaxDefaultLines
	}

	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	totalLines := len(lines)

	if offset >= totalLines {
		return "", fmt.Sprintf("[Offset %d is past the end of output (%d lines).]", offset, totalLines)
	}

	truncated := false
	end := totalLines
	if offset+maxLines < totalLines {
		end = offset + maxLines
		truncated = true
	}
	lines = lines[offset:end]

	notice := ""
	if truncated || offset > 0 {
		notice = fmt.Sprintf("[Showing lines %d-%d of %d lines. Use offset parameter to view more.]", offset+1, offset+len(lines), totalLines)
	}
	return strings.Join(lines, "\n"), notice
}

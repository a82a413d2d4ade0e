package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// RunRecord is the audit trail of one utility launch. Child output is never stored.
type RunRecord struct {
	ID           uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	SessionID    string         `gorm:"type:varchar(64);index" json:"session_id,omitempty"`
	Frontend     string         `gorm:"type:varchar(16);index" json:"frontend"`
	Category     string         `gorm:"type:varchar(255);index:idx_run_tool" json:"category"`
	Tool         string         `gorm:"type:varchar(255);index:idx_run_tool;not null" json:"tool"`
	CommandLine  string         `gorm:"type:text" json:"command_line"`
	ExitCode     int            `json:"exit_code"`
	ErrorMessage string         `gorm:"type:text" json:"error_message,omitempty"`
	DurationMs   int64          `json:"duration_ms"`
	Success      bool           `gorm:"index" json:"success"`
}

// Status summarises the outcome for listings.
func (r RunRecord) Status() string {
	switch {
	case r.ErrorMessage != "":
		return "spawn failed"
	case r.ExitCode == 0:
		return "ok"
	default:
		return fmt.Sprintf("exit %d", r.ExitCode)
	}
}

// ToolID returns the "<category>/<tool>" form of the launched utility.
func (r RunRecord) ToolID() string {
	return r.Category + "/" + r.Tool
}

package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRunRecord_Status(t *testing.T) {
	cases := []struct {
		name   string
		record RunRecord
		want   string
	}{
		{"success", RunRecord{ExitCode: 0, Success: true}, "ok"},
		{"non-zero exit", RunRecord{ExitCode: 2}, "exit 2"},
		{"spawn failure", RunRecord{ExitCode: -1, ErrorMessage: "executable file not found"}, "spawn failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.record.Status(); got != tc.want {
				t.Errorf("expected status %q, got %q", tc.want, got)
			}
		})
	}
}

func TestRunRecord_ToolID(t *testing.T) {
	record := RunRecord{Category: "net", Tool: "scan"}
	if record.ToolID() != "net/scan" {
		t.Errorf("expected 'net/scan', got '%s'", record.ToolID())
	}
}

func TestRunRecord_JSONFieldNames(t *testing.T) {
	record := RunRecord{
		ID:          1,
		SessionID:   "session-1",
		Frontend:    "console",
		Category:    "net",
		Tool:        "scan",
		CommandLine: "python3 net/scan.py --target 10.0.0.1",
		DurationMs:  15,
		Success:     true,
	}

	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	jsonStr := string(data)

	for _, field := range []string{`"command_line":`, `"exit_code":0`, `"frontend":"console"`, `"tool":"scan"`} {
		if !strings.Contains(jsonStr, field) {
			t.Errorf("expected %s in %s", field, jsonStr)
		}
	}
	if strings.Contains(jsonStr, "error_message") {
		t.Errorf("expected error_message to be omitted, got %s", jsonStr)
	}
}

func TestRunRecord_ZeroValues(t *testing.T) {
	record := RunRecord{}

	if record.ID != 0 {
		t.Errorf("expected zero ID, got %d", record.ID)
	}
	if record.Success {
		t.Error("expected Success to be false by default")
	}
	if record.Status() != "ok" {
		t.Errorf("expected zero record to report ok, got %q", record.Status())
	}
}

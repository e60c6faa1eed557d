package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/sonnylabs/sonnylabs-go/scan"
)

// ToolReport is the outcome of checking one tool's instructions.
type ToolReport struct {
	ToolName    string       `json:"tool_name"`
	Instruction string       `json:"instruction"`
	Verdict     scan.Verdict `json:"analysis_result"`
	Signals     []Signal     `json:"signals,omitempty"`
}

// CheckTools scans the description of every tool, in order. The input schema
// is appended to the description when present since poisoned instructions
// are often hidden in parameter docs. A scan failure marks only that tool as
// unsafe; the error return is reserved for invalid policies.
func CheckTools(ctx context.Context, s *scan.Scanner, tools []ToolDefinition, p scan.Policy) ([]ToolReport, error) {
	reports := make([]ToolReport, 0, len(tools))
	for _, tool := range tools {
		text := instructionText(tool)
		v, err := s.ScanText(ctx, scan.TextRequest{
			Text:     text,
			ScanType: scan.ScanInput,
			Policy:   p,
			Meta:     scan.Meta{"tool": tool.Name, "component": "mcp_tool_description"},
		})
		if err != nil {
			return nil, fmt.Errorf("checking tool %q: %w", tool.Name, err)
		}
		reports = append(reports, ToolReport{
			ToolName:    tool.Name,
			Instruction: tool.Description,
			Verdict:     v,
			Signals:     DetectSignals(text),
		})
	}
	return reports, nil
}

func instructionText(tool ToolDefinition) string {
	if len(tool.InputSchema) == 0 {
		return tool.Description
	}
	return strings.TrimSpace(tool.Description + "\n" + string(tool.InputSchema))
}

// Unsafe returns the reports whose verdict is not safe.
func Unsafe(reports []ToolReport) []ToolReport {
	var out []ToolReport
	for _, r := range reports {
		if !r.Verdict.IsSafe {
			out = append(out, r)
		}
	}
	return out
}

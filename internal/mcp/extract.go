package mcp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrNoTools = errors.New("no MCP tools found")

// pythonToolPattern matches a FastMCP `@mcp.tool()` function and its first
// triple-quoted docstring.
var pythonToolPattern = regexp.MustCompile(`(?s)@mcp\.tool\(\)\s*def\s+([a-zA-Z_][a-zA-Z0-9_]*)\([^)]*\).*?"""(.*?)"""`)

// ExtractPythonTools returns the decorated tools of a Python MCP server
// source file, in source order. The docstring becomes the description.
func ExtractPythonTools(src []byte) []ToolDefinition {
	matches := pythonToolPattern.FindAllSubmatch(src, -1)
	tools := make([]ToolDefinition, 0, len(matches))
	for _, m := range matches {
		tools = append(tools, ToolDefinition{
			Name:        string(m[1]),
			Description: strings.TrimSpace(string(m[2])),
		})
	}
	return tools
}

// ParseToolList decodes either a bare tools/list result or a full JSON-RPC
// response wrapping one.
func ParseToolList(data []byte) ([]ToolDefinition, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrNoTools
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("invalid tools/list JSON: %w", err)
	}
	if msg.Error != nil {
		return nil, fmt.Errorf("tools/list failed: %d %s", msg.Error.Code, msg.Error.Message)
	}
	if len(msg.Result) > 0 {
		data = msg.Result
	}

	var result ListToolsResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("invalid tools/list result: %w", err)
	}
	if result.Tools == nil {
		return nil, ErrNoTools
	}
	for i, t := range result.Tools {
		if t.Name == "" {
			return nil, fmt.Errorf("tool %d has no name", i)
		}
	}
	return result.Tools, nil
}

// LoadTools picks the parser from the file name: .py sources are searched
// for decorated tools, anything else is read as tools/list JSON.
func LoadTools(name string, data []byte) ([]ToolDefinition, error) {
	if strings.HasSuffix(strings.ToLower(name), ".py") {
		tools := ExtractPythonTools(data)
		if len(tools) == 0 {
			return nil, ErrNoTools
		}
		return tools, nil
	}
	return ParseToolList(data)
}

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sonnylabs/sonnylabs-go/internal/mcp"
)

const defaultMCPReport = "prompt_injection_results.json"

func newMCPCheckCmd(opts *options) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "mcp-check <server.py|tools.json>",
		Short: "Scan MCP tool descriptions for prompt injection",
		Long: `Extract the tool instructions of an MCP server and scan each one.

A .py file is searched for @mcp.tool() functions and their docstrings. Any
other file is read as a tools/list result or JSON-RPC response.

The per-tool report is written to --output (default: ` + defaultMCPReport + `).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			tools, err := mcp.LoadTools(args[0], data)
			if err != nil {
				return err
			}

			sess, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			sess.log.Info("checking MCP tools", "file", args[0], "tools", len(tools))
			reports, err := mcp.CheckTools(cmd.Context(), sess.scanner, tools, sess.policy)
			if err != nil {
				return err
			}
			for _, r := range reports {
				sess.record("mcp_tool", r.Instruction, r.Verdict, "")
			}

			if output != "" && output != "-" {
				if err := writeReport(output, reports); err != nil {
					return err
				}
			}

			unsafe := mcp.Unsafe(reports)
			if err := sess.emit(reports, mcpSummary(reports, output)); err != nil {
				return err
			}
			return sess.judge(len(unsafe) > 0, fmt.Sprintf("%d of %d MCP tools flagged", len(unsafe), len(reports)))
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", defaultMCPReport, `Report file ("-" to skip)`)
	return cmd
}

func writeReport(path string, reports []mcp.ToolReport) error {
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func mcpSummary(reports []mcp.ToolReport, output string) string {
	var b strings.Builder
	for _, r := range reports {
		fmt.Fprintf(&b, "%-24s %s\n", r.ToolName, r.Verdict.String())
		for _, s := range r.Signals {
			fmt.Fprintf(&b, "%s\n", indent(fmt.Sprintf("%s: %s", s.Kind, s.Detail)))
		}
	}
	fmt.Fprintf(&b, "\n%d tools checked, %d flagged", len(reports), len(mcp.Unsafe(reports)))
	if output != "" && output != "-" {
		fmt.Fprintf(&b, "\nResults saved to %s", output)
	}
	return b.String()
}

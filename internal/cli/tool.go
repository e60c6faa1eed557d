package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sonnylabs/sonnylabs-go/scan"
)

func newToolCmd(opts *options) *cobra.Command {
	var (
		message  string
		name     string
		argsJSON string
		schema   string
	)
	cmd := &cobra.Command{
		Use:   "tool --name NAME --message TEXT [--args JSON] [--schema TEXT|JSON]",
		Short: "Scan a proposed tool call before executing it",
		Long: `Scan the user message and the proposed tool call separately and combine
them into a recommendation: proceed, review or block.

--schema accepts a JSON object (scanned as a schema) or free text (scanned as
a description).

Example:
  sonnylabs tool --message "Delete my old files" --name delete_files \
    --args '{"path": "/home/user/old"}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var toolArgs map[string]any
			if strings.TrimSpace(argsJSON) != "" {
				if err := json.Unmarshal([]byte(argsJSON), &toolArgs); err != nil {
					return fmt.Errorf("invalid --args JSON: %w", err)
				}
			}

			sess, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			r, err := sess.scanner.ScanToolCall(cmd.Context(), scan.ToolCallRequest{
				UserMessage: message,
				ToolName:    name,
				ToolArgs:    toolArgs,
				ToolSchema:  parseSchema(schema),
				Policy:      sess.policy,
			})
			if err != nil {
				return err
			}

			sess.record("tool_user_intent", message, r.UserMessageVerdict, r.Recommendation)
			sess.record("tool_context", scan.ToolContext(name, toolArgs, parseSchema(schema)),
				r.ToolContextVerdict, r.Recommendation)

			human := fmt.Sprintf("%s\n  user message: %s\n  tool call:    %s",
				r.String(), r.UserMessageVerdict.String(), r.ToolContextVerdict.String())
			if err := sess.emit(r, human); err != nil {
				return err
			}
			return sess.judge(!r.IsSafe || r.Recommendation == scan.RecommendBlock, r.String())
		},
	}
	cmd.Flags().StringVar(&message, "message", "", "The user message that led to the tool call")
	cmd.Flags().StringVar(&name, "name", "", "Tool name")
	cmd.Flags().StringVar(&argsJSON, "args", "", "Tool arguments as a JSON object")
	cmd.Flags().StringVar(&schema, "schema", "", "Tool description or JSON schema")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

// parseSchema treats a JSON object as a structured schema and anything else
// as a description.
func parseSchema(s string) scan.ToolSchema {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var structured map[string]any
	if strings.HasPrefix(s, "{") && json.Unmarshal([]byte(s), &structured) == nil {
		return scan.StructuredSchema(structured)
	}
	return scan.SchemaDescription(s)
}

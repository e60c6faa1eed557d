package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sonnylabs/sonnylabs-go/scan"
)

type textFlags struct {
	scanType string
	tag      string
	meta     map[string]string
}

func (f *textFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.scanType, "scan-type", "input", "Scan type: input, output or tool_output")
	cmd.Flags().StringVar(&f.tag, "tag", "", "Correlation tag (default: generated)")
	cmd.Flags().StringToStringVar(&f.meta, "meta", nil, "Metadata attached to the verdict (key=value)")
}

func newTextCmd(opts *options) *cobra.Command {
	var flags textFlags
	cmd := &cobra.Command{
		Use:   "text [text|-]",
		Short: "Scan a single text for prompt injection",
		Long: `Scan a single text. With no argument or "-" the text is read from stdin.

Examples:
  sonnylabs text "What is the capital of France?"
  echo "$MODEL_REPLY" | sonnylabs text --scan-type output`,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := scan.ParseScanType(flags.scanType)
			if err != nil {
				return err
			}

			var text string
			if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
				data, err := readInput(cmd, "-")
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				text = string(data)
			} else {
				text = strings.Join(args, " ")
			}

			sess, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			v, err := sess.scanner.ScanText(cmd.Context(), scan.TextRequest{
				Text:     text,
				ScanType: st,
				Tag:      flags.tag,
				Policy:   sess.policy,
				Meta:     toMeta(flags.meta),
			})
			if err != nil {
				return err
			}
			sess.record("text", text, v, "")
			if err := sess.emit(v, verdictLine(v)); err != nil {
				return err
			}
			return sess.judge(!v.IsSafe, v.String())
		},
	}
	flags.register(cmd)
	return cmd
}

func newMessagesCmd(opts *options) *cobra.Command {
	var flags textFlags
	cmd := &cobra.Command{
		Use:   "messages [file.json|-]",
		Short: "Scan a conversation for prompt injection",
		Long: `Scan a conversation given as a JSON array of {"role", "content"} objects.
The messages are flattened to "[role]: content" lines and scanned as one text.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := scan.ParseScanType(flags.scanType)
			if err != nil {
				return err
			}
			data, err := readInput(cmd, firstArg(args))
			if err != nil {
				return fmt.Errorf("failed to read messages: %w", err)
			}
			var messages []scan.Message
			if err := json.Unmarshal(data, &messages); err != nil {
				return fmt.Errorf("invalid messages JSON: %w", err)
			}

			sess, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			v, err := sess.scanner.ScanMessages(cmd.Context(), scan.MessagesRequest{
				Messages: messages,
				ScanType: st,
				Tag:      flags.tag,
				Policy:   sess.policy,
				Meta:     toMeta(flags.meta),
			})
			if err != nil {
				return err
			}
			sess.record("messages", scan.ConversationText(messages), v, "")
			if err := sess.emit(v, verdictLine(v)); err != nil {
				return err
			}
			return sess.judge(!v.IsSafe, v.String())
		},
	}
	flags.register(cmd)
	return cmd
}

func verdictLine(v scan.Verdict) string {
	line := fmt.Sprintf("%s  tag=%s", v.String(), v.Tag)
	if v.Failed() {
		line += "\n  error: " + v.Error
	}
	return line
}

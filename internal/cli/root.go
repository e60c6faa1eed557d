package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Process exit codes.
const (
	ExitOK     = 0
	ExitError  = 1
	ExitUnsafe = 2
)

var errUnsafe = errors.New("unsafe content detected")

// options holds the global flags shared by every command.
type options struct {
	configPath string
	policyPath string
	auditLog   string
	logLevel   string
	jsonOut    bool
}

// NewRootCmd builds the sonnylabs command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "sonnylabs",
		Short: "SonnyLabs - prompt injection scanning for AI applications",
		Long: `sonnylabs scans user input, model output, retrieved RAG chunks, proposed
tool calls and MCP tool descriptions for prompt injection using the SonnyLabs
analysis API. Any failure to obtain a score is reported as unsafe.

Credentials come from SONNYLABS_API_TOKEN and SONNYLABS_ANALYSIS_ID or from
~/.sonnylabs/config.yaml.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to config YAML file (default: ~/.sonnylabs/config.yaml)")
	flags.StringVar(&opts.policyPath, "policy", "", "Path to policy YAML file (default: ~/.sonnylabs/policy.yaml)")
	flags.StringVar(&opts.auditLog, "audit-log", "", "Path to audit log file (default: ~/.sonnylabs/audit.jsonl)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: TRACE, DEBUG, INFO, WARN, ERROR")
	flags.BoolVar(&opts.jsonOut, "json", false, "Always print JSON, even on a terminal")

	root.AddCommand(
		newTextCmd(opts),
		newMessagesCmd(opts),
		newRAGCmd(opts),
		newToolCmd(opts),
		newMCPCheckCmd(opts),
		newVersionCmd(),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, NewRootCmd())
}

func run(ctx context.Context, root *cobra.Command) int {
	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, errUnsafe):
		return ExitUnsafe
	default:
		fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
		return ExitError
	}
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sonnylabs/sonnylabs-go/client"
	"github.com/sonnylabs/sonnylabs-go/internal/config"
	"github.com/sonnylabs/sonnylabs-go/internal/logger"
	"github.com/sonnylabs/sonnylabs-go/internal/policy"
	"github.com/sonnylabs/sonnylabs-go/internal/redact"
	"github.com/sonnylabs/sonnylabs-go/scan"
)

// session is everything a scanning command needs: the configured scanner,
// the effective policy, the audit log and the output mode.
type session struct {
	cfg     *config.Config
	policy  scan.Policy
	scanner *scan.Scanner
	log     hclog.Logger
	audit   *logger.AuditLogger
	out     io.Writer
	errOut  io.Writer
	json    bool
}

func (o *options) open(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.policyPath != "" {
		cfg.PolicyPath = o.policyPath
	}
	if o.auditLog != "" {
		cfg.AuditLog = o.auditLog
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logger.NewWithOutput("sonnylabs", cfg.LogLevel, cmd.ErrOrStderr())
	log.Debug("config loaded", "base_url", cfg.BaseURL, "analysis_id", cfg.AnalysisID,
		"token", redact.MaskToken(cfg.APIToken), "policy", cfg.PolicyPath)

	pol, err := policy.Load(cfg.PolicyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy: %w", err)
	}

	c, err := client.New(client.Config{
		APIToken:   cfg.APIToken,
		BaseURL:    cfg.BaseURL,
		AnalysisID: cfg.AnalysisID,
		Timeout:    cfg.Timeout,
		Logger:     log.Named("client"),
	})
	if err != nil {
		return nil, err
	}
	scan.Configure(c, scan.WithLogger(log.Named("scan")), scan.WithTagFunc(c.GenerateTag))
	scanner, err := scan.Default()
	if err != nil {
		return nil, err
	}

	if cfg.AuditLog == "" {
		if err := cfg.EnsureDir(); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	audit, err := logger.NewAudit(cfg.AuditLogPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	return &session{
		cfg:     cfg,
		policy:  pol,
		scanner: scanner,
		log:     log,
		audit:   audit,
		out:     cmd.OutOrStdout(),
		errOut:  cmd.ErrOrStderr(),
		json:    o.jsonOut || !isTerminal(cmd.OutOrStdout()),
	}, nil
}

func (s *session) Close() error {
	return s.audit.Close()
}

// record appends one verdict to the audit log. Audit failures are logged but
// never change the verdict.
func (s *session) record(operation, text string, v scan.Verdict, rec scan.Recommendation) {
	event := logger.VerdictEvent(operation, text, v)
	event.Recommendation = string(rec)
	if err := s.audit.Log(event); err != nil {
		s.log.Warn("audit log write failed", "error", err)
	}
}

// emit prints v as indented JSON or the human form.
func (s *session) emit(v any, human string) error {
	if s.json {
		enc := json.NewEncoder(s.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(s.out, human)
	return err
}

// judge applies the policy action to an unsafe outcome.
func (s *session) judge(unsafe bool, what string) error {
	if !unsafe {
		return nil
	}
	switch s.policy.Action {
	case policy.ActionWarn:
		fmt.Fprintf(s.errOut, "Warning: %s\n", what)
		return nil
	case policy.ActionLog:
		s.log.Info("unsafe content allowed by policy", "detail", what)
		return nil
	default:
		return errUnsafe
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// readInput reads the named file, or stdin when name is empty or "-".
func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "" || name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(name)
}

func toMeta(m map[string]string) scan.Meta {
	if len(m) == 0 {
		return nil
	}
	meta := make(scan.Meta, len(m))
	for k, v := range m {
		meta[k] = v
	}
	return meta
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func indent(s string) string {
	return "    " + strings.ReplaceAll(s, "\n", "\n    ")
}
